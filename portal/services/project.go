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

type ProjectService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *ProjectService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/create", s.Create)
	r.Get("/list", s.List)

	r.Route("/{project_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Post("/update", s.Update)
		r.Delete("/", s.Delete)
	})

	return r
}

type createProjectRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type projectResponse struct {
	ProjectId uuid.UUID `json:"project_id"`
}

func (s *ProjectService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createProjectRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" {
		http.Error(w, "name must be specified", http.StatusBadRequest)
		return
	}

	project := schema.Project{
		Id:        uuid.New(),
		Name:      params.Name,
		Location:  params.Location,
		Status:    "Active",
		CreatedAt: time.Now().UTC(),
		CreatedBy: user.Id,
	}

	result := s.db.Create(&project)
	if result.Error != nil {
		slog.Error("sql error creating project", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating project: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	recordsCreated.WithLabelValues("project").Inc()

	utils.WriteJsonResponse(w, projectResponse{ProjectId: project.Id})
}

type updateProjectRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Status   *string `json:"status"`
}

func (params *updateProjectRequest) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if params.Name != nil {
		updates["name"] = *params.Name
	}
	if params.Location != nil {
		updates["location"] = *params.Location
	}
	if params.Status != nil {
		updates["status"] = *params.Status
	}
	return updates
}

func (s *ProjectService) Update(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateProjectRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProjectExists(txn, projectId); err != nil {
			return err
		}

		updates := params.changes()
		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.Project{Id: projectId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating project", "project_id", projectId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating project: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, projectResponse{ProjectId: projectId})
}

// Delete removes the project record only. Records referencing the project keep
// their ids and enrich to a null project name afterwards.
func (s *ProjectService) Delete(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProjectExists(txn, projectId); err != nil {
			return err
		}

		result := txn.Delete(&schema.Project{Id: projectId})
		if result.Error != nil {
			slog.Error("sql error deleting project", "project_id", projectId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting project: %v", err), GetResponseCode(err))
		return
	}

	recordsDeleted.WithLabelValues("project").Inc()

	utils.WriteSuccess(w)
}

type ProjectInfo struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *ProjectService) List(w http.ResponseWriter, r *http.Request) {
	var projects []schema.Project
	result := s.db.Find(&projects)
	if result.Error != nil {
		slog.Error("sql error listing projects", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing projects: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]ProjectInfo, 0, len(projects))
	for _, project := range projects {
		infos = append(infos, ProjectInfo{
			Id:        project.Id,
			Name:      project.Name,
			Location:  project.Location,
			Status:    project.Status,
			CreatedAt: project.CreatedAt,
		})
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *ProjectService) Get(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	project, err := schema.GetProject(projectId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrProjectNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting project: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, ProjectInfo{
		Id:        project.Id,
		Name:      project.Name,
		Location:  project.Location,
		Status:    project.Status,
		CreatedAt: project.CreatedAt,
	})
}
