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

type ShiftService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *ShiftService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/create", s.Create)
	r.Get("/list", s.List)
	r.Get("/stats", s.Stats)

	r.Route("/{shift_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Post("/update", s.Update)
		r.Delete("/", s.Delete)
	})

	return r
}

type createShiftRequest struct {
	UserId    uuid.UUID  `json:"user_id"`
	ProjectId *uuid.UUID `json:"project_id"`
	ShiftType string     `json:"shift_type"`
	Date      string     `json:"date"`
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
}

type shiftResponse struct {
	ShiftId uuid.UUID `json:"shift_id"`
}

func (s *ShiftService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createShiftRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.UserId == uuid.Nil || params.ShiftType == "" || params.Date == "" || params.StartTime == "" || params.EndTime == "" {
		http.Error(w, "user_id, shift_type, date, start_time, and end_time must be specified", http.StatusBadRequest)
		return
	}

	shift := schema.Shift{
		Id:        uuid.New(),
		UserId:    params.UserId,
		ProjectId: params.ProjectId,
		ShiftType: params.ShiftType,
		Date:      params.Date,
		StartTime: params.StartTime,
		EndTime:   params.EndTime,
		Status:    schema.ShiftScheduled,
		CreatedAt: time.Now().UTC(),
		CreatedBy: user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, params.UserId); err != nil {
			return err
		}

		if result := txn.Create(&shift); result.Error != nil {
			slog.Error("sql error creating shift", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating shift: %v", err), GetResponseCode(err))
		return
	}

	recordsCreated.WithLabelValues("shift").Inc()

	utils.WriteJsonResponse(w, shiftResponse{ShiftId: shift.Id})
}

type updateShiftRequest struct {
	ProjectId *uuid.UUID `json:"project_id"`
	ShiftType *string    `json:"shift_type"`
	Date      *string    `json:"date"`
	StartTime *string    `json:"start_time"`
	EndTime   *string    `json:"end_time"`
	Status    *string    `json:"status"`
}

func (params *updateShiftRequest) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if params.ProjectId != nil {
		updates["project_id"] = *params.ProjectId
	}
	if params.ShiftType != nil {
		updates["shift_type"] = *params.ShiftType
	}
	if params.Date != nil {
		updates["date"] = *params.Date
	}
	if params.StartTime != nil {
		updates["start_time"] = *params.StartTime
	}
	if params.EndTime != nil {
		updates["end_time"] = *params.EndTime
	}
	if params.Status != nil {
		updates["status"] = *params.Status
	}
	return updates
}

func (s *ShiftService) Update(w http.ResponseWriter, r *http.Request) {
	shiftId, err := utils.URLParamUUID(r, "shift_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateShiftRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Status != nil {
		if err := schema.CheckValidShiftStatus(*params.Status); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkShiftExists(txn, shiftId); err != nil {
			return err
		}

		updates := params.changes()
		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.Shift{Id: shiftId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating shift", "shift_id", shiftId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating shift: %v", err), GetResponseCode(err))
		return
	}

	if params.Status != nil {
		statusTransitions.WithLabelValues("shift", *params.Status).Inc()
	}

	utils.WriteJsonResponse(w, shiftResponse{ShiftId: shiftId})
}

func (s *ShiftService) Delete(w http.ResponseWriter, r *http.Request) {
	shiftId, err := utils.URLParamUUID(r, "shift_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkShiftExists(txn, shiftId); err != nil {
			return err
		}

		result := txn.Delete(&schema.Shift{Id: shiftId})
		if result.Error != nil {
			slog.Error("sql error deleting shift", "shift_id", shiftId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting shift: %v", err), GetResponseCode(err))
		return
	}

	recordsDeleted.WithLabelValues("shift").Inc()

	utils.WriteSuccess(w)
}

type ShiftInfo struct {
	Id          uuid.UUID  `json:"id"`
	UserId      uuid.UUID  `json:"user_id"`
	UserName    string     `json:"user_name"`
	ProjectId   *uuid.UUID `json:"project_id,omitempty"`
	ProjectName *string    `json:"project_name,omitempty"`
	ShiftType   string     `json:"shift_type"`
	Date        string     `json:"date"`
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (s *ShiftService) enrich(shifts []schema.Shift) ([]ShiftInfo, error) {
	userIds := make([]uuid.UUID, 0, len(shifts))
	projectIds := make([]uuid.UUID, 0)
	for _, shift := range shifts {
		userIds = append(userIds, shift.UserId)
		projectIds = collectIds(projectIds, shift.ProjectId)
	}

	users, err := userNames(s.db, userIds)
	if err != nil {
		return nil, err
	}
	projects, err := projectNames(s.db, projectIds)
	if err != nil {
		return nil, err
	}

	infos := make([]ShiftInfo, 0, len(shifts))
	for _, shift := range shifts {
		infos = append(infos, ShiftInfo{
			Id:          shift.Id,
			UserId:      shift.UserId,
			UserName:    users.resolve(shift.UserId),
			ProjectId:   shift.ProjectId,
			ProjectName: projects.resolveOptional(shift.ProjectId),
			ShiftType:   shift.ShiftType,
			Date:        shift.Date,
			StartTime:   shift.StartTime,
			EndTime:     shift.EndTime,
			Status:      shift.Status,
			CreatedAt:   shift.CreatedAt,
		})
	}

	return infos, nil
}

type shiftFilters struct {
	UserId    *uuid.UUID
	ProjectId *uuid.UUID
	Date      string
	Status    string
}

func (f *shiftFilters) matches(shift *schema.Shift) bool {
	if f.UserId != nil && shift.UserId != *f.UserId {
		return false
	}
	if f.ProjectId != nil && (shift.ProjectId == nil || *shift.ProjectId != *f.ProjectId) {
		return false
	}
	if f.Date != "" && shift.Date != f.Date {
		return false
	}
	if f.Status != "" && shift.Status != f.Status {
		return false
	}
	return true
}

func (s *ShiftService) query(r *http.Request) ([]schema.Shift, error) {
	userId, err := utils.QueryParamUUID(r, "user_id")
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}
	projectId, err := utils.QueryParamUUID(r, "project_id")
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}

	filters := shiftFilters{
		UserId:    userId,
		ProjectId: projectId,
		Date:      r.URL.Query().Get("date"),
		Status:    r.URL.Query().Get("status"),
	}

	query := s.db
	switch {
	case filters.UserId != nil:
		query = query.Where("user_id = ?", *filters.UserId)
	case filters.ProjectId != nil:
		query = query.Where("project_id = ?", *filters.ProjectId)
	case filters.Date != "":
		query = query.Where("date = ?", filters.Date)
	case filters.Status != "":
		query = query.Where("status = ?", filters.Status)
	}

	var shifts []schema.Shift
	result := query.Find(&shifts)
	if result.Error != nil {
		slog.Error("sql error listing shifts", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	matching := make([]schema.Shift, 0, len(shifts))
	for _, shift := range shifts {
		if filters.matches(&shift) {
			matching = append(matching, shift)
		}
	}

	return matching, nil
}

func (s *ShiftService) List(w http.ResponseWriter, r *http.Request) {
	shifts, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing shifts: %v", err), GetResponseCode(err))
		return
	}

	infos, err := s.enrich(shifts)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing shifts: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *ShiftService) Get(w http.ResponseWriter, r *http.Request) {
	shiftId, err := utils.URLParamUUID(r, "shift_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	shift, err := schema.GetShift(shiftId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrShiftNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting shift: %v", err), http.StatusInternalServerError)
		return
	}

	infos, err := s.enrich([]schema.Shift{shift})
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting shift: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos[0])
}

type ShiftStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByType   map[string]int `json:"by_type"`
}

func (s *ShiftService) Stats(w http.ResponseWriter, r *http.Request) {
	shifts, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error computing shift stats: %v", err), GetResponseCode(err))
		return
	}

	stats := ShiftStats{
		Total:    len(shifts),
		ByStatus: map[string]int{},
		ByType:   map[string]int{},
	}
	for _, shift := range shifts {
		bumpCount(stats.ByStatus, shift.Status)
		bumpCount(stats.ByType, shift.ShiftType)
	}

	utils.WriteJsonResponse(w, stats)
}
