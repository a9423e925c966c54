package services

import (
	"errors"
	"fieldops_portal/portal/auth"
	"fieldops_portal/portal/schema"
	"fieldops_portal/utils"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FiberTeamService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *FiberTeamService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/create", s.Create)
	r.Get("/list", s.List)
	r.Get("/stats", s.Stats)

	r.Route("/{team_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Post("/update", s.Update)
		r.Delete("/", s.Delete)
		r.Post("/assign", s.Assign)
		r.Post("/clear-assignment", s.ClearAssignment)
	})

	return r
}

type createFiberTeamRequest struct {
	TeamName string   `json:"team_name"`
	TeamLead string   `json:"team_lead"`
	Members  []string `json:"members"`
}

type fiberTeamResponse struct {
	TeamId uuid.UUID `json:"team_id"`
}

func (s *FiberTeamService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createFiberTeamRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.TeamName == "" || params.TeamLead == "" {
		http.Error(w, "team_name and team_lead must be specified", http.StatusBadRequest)
		return
	}

	team := schema.FiberTeam{
		Id:        uuid.New(),
		TeamName:  params.TeamName,
		TeamLead:  params.TeamLead,
		Members:   schema.EncodeStringList(params.Members),
		Status:    schema.TeamAvailable,
		CreatedAt: time.Now().UTC(),
		CreatedBy: user.Id,
	}

	result := s.db.Create(&team)
	if result.Error != nil {
		slog.Error("sql error creating fiber team", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating fiber team: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	recordsCreated.WithLabelValues("fiber_team").Inc()

	utils.WriteJsonResponse(w, fiberTeamResponse{TeamId: team.Id})
}

type updateFiberTeamRequest struct {
	TeamName *string   `json:"team_name"`
	TeamLead *string   `json:"team_lead"`
	Members  *[]string `json:"members"`
	Status   *string   `json:"status"`
}

func (params *updateFiberTeamRequest) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if params.TeamName != nil {
		updates["team_name"] = *params.TeamName
	}
	if params.TeamLead != nil {
		updates["team_lead"] = *params.TeamLead
	}
	if params.Members != nil {
		updates["members"] = schema.EncodeStringList(*params.Members)
	}
	if params.Status != nil {
		updates["status"] = *params.Status
	}
	return updates
}

func (s *FiberTeamService) Update(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParamUUID(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateFiberTeamRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Status != nil {
		if err := schema.CheckValidTeamStatus(*params.Status); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkFiberTeamExists(txn, teamId); err != nil {
			return err
		}

		updates := params.changes()
		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.FiberTeam{Id: teamId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating fiber team", "team_id", teamId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating fiber team: %v", err), GetResponseCode(err))
		return
	}

	if params.Status != nil {
		statusTransitions.WithLabelValues("fiber_team", *params.Status).Inc()
	}

	utils.WriteJsonResponse(w, fiberTeamResponse{TeamId: teamId})
}

func (s *FiberTeamService) Delete(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParamUUID(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkFiberTeamExists(txn, teamId); err != nil {
			return err
		}

		result := txn.Delete(&schema.FiberTeam{Id: teamId})
		if result.Error != nil {
			slog.Error("sql error deleting fiber team", "team_id", teamId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting fiber team: %v", err), GetResponseCode(err))
		return
	}

	recordsDeleted.WithLabelValues("fiber_team").Inc()

	utils.WriteSuccess(w)
}

type assignFiberTeamRequest struct {
	ProjectId *uuid.UUID `json:"project_id"`
	Location  *string    `json:"location"`
	Task      *string    `json:"task"`
	StartDate *string    `json:"start_date"`
	EndDate   *string    `json:"end_date"`
}

// Assign moves a team to the Assigned status and records the assignment
// details in one update. Reassigning an already assigned team overwrites the
// previous assignment.
func (s *FiberTeamService) Assign(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParamUUID(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params assignFiberTeamRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkFiberTeamExists(txn, teamId); err != nil {
			return err
		}

		if params.ProjectId != nil {
			if err := checkProjectExists(txn, *params.ProjectId); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":                schema.TeamAssigned,
			"assignment_project_id": params.ProjectId,
			"assignment_location":   params.Location,
			"assignment_task":       params.Task,
			"assignment_start":      params.StartDate,
			"assignment_end":        params.EndDate,
		}

		result := txn.Model(&schema.FiberTeam{Id: teamId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error assigning fiber team", "team_id", teamId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error assigning fiber team: %v", err), GetResponseCode(err))
		return
	}

	statusTransitions.WithLabelValues("fiber_team", schema.TeamAssigned).Inc()

	utils.WriteJsonResponse(w, fiberTeamResponse{TeamId: teamId})
}

// ClearAssignment returns a team to Available and clears every assignment
// field so no stale detail survives the transition.
func (s *FiberTeamService) ClearAssignment(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParamUUID(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkFiberTeamExists(txn, teamId); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":                schema.TeamAvailable,
			"assignment_project_id": nil,
			"assignment_location":   nil,
			"assignment_task":       nil,
			"assignment_start":      nil,
			"assignment_end":        nil,
		}

		result := txn.Model(&schema.FiberTeam{Id: teamId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error clearing fiber team assignment", "team_id", teamId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error clearing fiber team assignment: %v", err), GetResponseCode(err))
		return
	}

	statusTransitions.WithLabelValues("fiber_team", schema.TeamAvailable).Inc()

	utils.WriteJsonResponse(w, fiberTeamResponse{TeamId: teamId})
}

type FiberTeamInfo struct {
	Id       uuid.UUID `json:"id"`
	TeamName string    `json:"team_name"`
	TeamLead string    `json:"team_lead"`
	Members  []string  `json:"members"`
	Status   string    `json:"status"`

	AssignmentProjectId *uuid.UUID `json:"assignment_project_id,omitempty"`
	AssignmentProject   *string    `json:"assignment_project,omitempty"`
	AssignmentLocation  *string    `json:"assignment_location,omitempty"`
	AssignmentTask      *string    `json:"assignment_task,omitempty"`
	AssignmentStart     *string    `json:"assignment_start,omitempty"`
	AssignmentEnd       *string    `json:"assignment_end,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (s *FiberTeamService) enrich(teams []schema.FiberTeam) ([]FiberTeamInfo, error) {
	projectIds := make([]uuid.UUID, 0)
	for _, team := range teams {
		projectIds = collectIds(projectIds, team.AssignmentProjectId)
	}

	projects, err := projectNames(s.db, projectIds)
	if err != nil {
		return nil, err
	}

	infos := make([]FiberTeamInfo, 0, len(teams))
	for _, team := range teams {
		members := team.MemberList()
		if members == nil {
			members = []string{}
		}
		infos = append(infos, FiberTeamInfo{
			Id:                  team.Id,
			TeamName:            team.TeamName,
			TeamLead:            team.TeamLead,
			Members:             members,
			Status:              team.Status,
			AssignmentProjectId: team.AssignmentProjectId,
			AssignmentProject:   projects.resolveOptional(team.AssignmentProjectId),
			AssignmentLocation:  team.AssignmentLocation,
			AssignmentTask:      team.AssignmentTask,
			AssignmentStart:     team.AssignmentStart,
			AssignmentEnd:       team.AssignmentEnd,
			CreatedAt:           team.CreatedAt,
		})
	}

	return infos, nil
}

type fiberTeamFilters struct {
	Status    string
	ProjectId *uuid.UUID
}

func (f *fiberTeamFilters) matches(team *schema.FiberTeam) bool {
	if f.Status != "" && team.Status != f.Status {
		return false
	}
	if f.ProjectId != nil && (team.AssignmentProjectId == nil || *team.AssignmentProjectId != *f.ProjectId) {
		return false
	}
	return true
}

func (s *FiberTeamService) query(r *http.Request) ([]schema.FiberTeam, error) {
	projectId, err := utils.QueryParamUUID(r, "project_id")
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}

	filters := fiberTeamFilters{
		Status:    r.URL.Query().Get("status"),
		ProjectId: projectId,
	}

	query := s.db
	switch {
	case filters.Status != "":
		query = query.Where("status = ?", filters.Status)
	case filters.ProjectId != nil:
		query = query.Where("assignment_project_id = ?", *filters.ProjectId)
	}

	var teams []schema.FiberTeam
	result := query.Find(&teams)
	if result.Error != nil {
		slog.Error("sql error listing fiber teams", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	matching := make([]schema.FiberTeam, 0, len(teams))
	for _, team := range teams {
		if filters.matches(&team) {
			matching = append(matching, team)
		}
	}

	return matching, nil
}

func (s *FiberTeamService) List(w http.ResponseWriter, r *http.Request) {
	teams, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing fiber teams: %v", err), GetResponseCode(err))
		return
	}

	infos, err := s.enrich(teams)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing fiber teams: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *FiberTeamService) Get(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParamUUID(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	team, err := schema.GetFiberTeam(teamId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrFiberTeamNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting fiber team: %v", err), http.StatusInternalServerError)
		return
	}

	infos, err := s.enrich([]schema.FiberTeam{team})
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting fiber team: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos[0])
}

type FiberTeamStats struct {
	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"by_status"`
	Available int            `json:"available"`
	Assigned  int            `json:"assigned"`
}

func (s *FiberTeamService) Stats(w http.ResponseWriter, r *http.Request) {
	teams, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error computing fiber team stats: %v", err), GetResponseCode(err))
		return
	}

	stats := FiberTeamStats{
		Total:    len(teams),
		ByStatus: map[string]int{},
	}
	for _, team := range teams {
		bumpCount(stats.ByStatus, team.Status)
	}
	stats.Available = stats.ByStatus[schema.TeamAvailable]
	stats.Assigned = stats.ByStatus[schema.TeamAssigned]

	utils.WriteJsonResponse(w, stats)
}
