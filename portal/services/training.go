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

type TrainingService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *TrainingService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/create", s.Create)
	r.Get("/list", s.List)
	r.Get("/stats", s.Stats)

	r.Route("/{request_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Post("/update", s.Update)
		r.Delete("/", s.Delete)

		r.Post("/approve", s.Approve)
		r.Post("/reject", s.Reject)
		r.Post("/complete", s.Complete)
	})

	return r
}

type createTrainingRequest struct {
	EmployeeName  string `json:"employee_name"`
	Department    string `json:"department"`
	TrainingTitle string `json:"training_title"`
	Justification string `json:"justification"`
}

type trainingResponse struct {
	RequestId uuid.UUID `json:"request_id"`
}

func (s *TrainingService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createTrainingRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.EmployeeName == "" || params.Department == "" || params.TrainingTitle == "" {
		http.Error(w, "employee_name, department, and training_title must be specified", http.StatusBadRequest)
		return
	}

	request := schema.TrainingRequest{
		Id:            uuid.New(),
		RequestedBy:   user.Id,
		EmployeeName:  params.EmployeeName,
		Department:    params.Department,
		TrainingTitle: params.TrainingTitle,
		Justification: params.Justification,
		Status:        schema.Pending,
		CreatedAt:     time.Now().UTC(),
	}

	result := s.db.Create(&request)
	if result.Error != nil {
		slog.Error("sql error creating training request", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating training request: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	recordsCreated.WithLabelValues("training_request").Inc()

	utils.WriteJsonResponse(w, trainingResponse{RequestId: request.Id})
}

type updateTrainingRequest struct {
	EmployeeName  *string `json:"employee_name"`
	Department    *string `json:"department"`
	TrainingTitle *string `json:"training_title"`
	Justification *string `json:"justification"`
	// Notes keep their previous value unless a new value is supplied.
	Notes *string `json:"notes"`
}

func (params *updateTrainingRequest) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if params.EmployeeName != nil {
		updates["employee_name"] = *params.EmployeeName
	}
	if params.Department != nil {
		updates["department"] = *params.Department
	}
	if params.TrainingTitle != nil {
		updates["training_title"] = *params.TrainingTitle
	}
	if params.Justification != nil {
		updates["justification"] = *params.Justification
	}
	if params.Notes != nil {
		updates["notes"] = *params.Notes
	}
	return updates
}

func (s *TrainingService) Update(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateTrainingRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkTrainingRequestExists(txn, requestId); err != nil {
			return err
		}

		updates := params.changes()
		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.TrainingRequest{Id: requestId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating training request", "request_id", requestId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating training request: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, trainingResponse{RequestId: requestId})
}

func (s *TrainingService) Delete(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkTrainingRequestExists(txn, requestId); err != nil {
			return err
		}

		result := txn.Delete(&schema.TrainingRequest{Id: requestId})
		if result.Error != nil {
			slog.Error("sql error deleting training request", "request_id", requestId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting training request: %v", err), GetResponseCode(err))
		return
	}

	recordsDeleted.WithLabelValues("training_request").Inc()

	utils.WriteSuccess(w)
}

func (s *TrainingService) Approve(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, schema.Approved, true)
}

func (s *TrainingService) Reject(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, schema.Rejected, true)
}

// Complete is reachable from any state; it does not record an approver.
func (s *TrainingService) Complete(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, schema.Completed, false)
}

func (s *TrainingService) transition(w http.ResponseWriter, r *http.Request, status string, recordApprover bool) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	actor, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	updates := map[string]interface{}{"status": status}
	if recordApprover {
		updates["approved_by"] = actor.Id
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkTrainingRequestExists(txn, requestId); err != nil {
			return err
		}

		result := txn.Model(&schema.TrainingRequest{Id: requestId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating training request status", "request_id", requestId, "status", status, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating training request status: %v", err), GetResponseCode(err))
		return
	}

	statusTransitions.WithLabelValues("training_request", status).Inc()
	slog.Info("training request status updated", "request_id", requestId, "status", status)

	utils.WriteJsonResponse(w, trainingResponse{RequestId: requestId})
}

type TrainingRequestInfo struct {
	Id            uuid.UUID  `json:"id"`
	RequestedBy   uuid.UUID  `json:"requested_by"`
	RequesterName string     `json:"requester_name"`
	EmployeeName  string     `json:"employee_name"`
	Department    string     `json:"department"`
	TrainingTitle string     `json:"training_title"`
	Justification string     `json:"justification"`
	Notes         string     `json:"notes"`
	Status        string     `json:"status"`
	ApprovedBy    *uuid.UUID `json:"approved_by,omitempty"`
	ApproverName  *string    `json:"approver_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (s *TrainingService) enrich(requests []schema.TrainingRequest) ([]TrainingRequestInfo, error) {
	userIds := make([]uuid.UUID, 0, len(requests))
	for _, request := range requests {
		userIds = collectIds(append(userIds, request.RequestedBy), request.ApprovedBy)
	}

	users, err := userNames(s.db, userIds)
	if err != nil {
		return nil, err
	}

	infos := make([]TrainingRequestInfo, 0, len(requests))
	for _, request := range requests {
		infos = append(infos, TrainingRequestInfo{
			Id:            request.Id,
			RequestedBy:   request.RequestedBy,
			RequesterName: users.resolve(request.RequestedBy),
			EmployeeName:  request.EmployeeName,
			Department:    request.Department,
			TrainingTitle: request.TrainingTitle,
			Justification: request.Justification,
			Notes:         request.Notes,
			Status:        request.Status,
			ApprovedBy:    request.ApprovedBy,
			ApproverName:  users.resolveOptional(request.ApprovedBy),
			CreatedAt:     request.CreatedAt,
		})
	}

	return infos, nil
}

type trainingFilters struct {
	Status     string
	Department string
	UserId     *uuid.UUID
}

func (f *trainingFilters) matches(request *schema.TrainingRequest) bool {
	if f.Status != "" && request.Status != f.Status {
		return false
	}
	if f.Department != "" && request.Department != f.Department {
		return false
	}
	if f.UserId != nil && request.RequestedBy != *f.UserId {
		return false
	}
	return true
}

func (s *TrainingService) query(r *http.Request) ([]schema.TrainingRequest, error) {
	userId, err := utils.QueryParamUUID(r, "user_id")
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}

	filters := trainingFilters{
		Status:     r.URL.Query().Get("status"),
		Department: r.URL.Query().Get("department"),
		UserId:     userId,
	}

	query := s.db
	switch {
	case filters.Status != "":
		query = query.Where("status = ?", filters.Status)
	case filters.Department != "":
		query = query.Where("department = ?", filters.Department)
	case filters.UserId != nil:
		query = query.Where("requested_by = ?", *filters.UserId)
	}

	var requests []schema.TrainingRequest
	result := query.Find(&requests)
	if result.Error != nil {
		slog.Error("sql error listing training requests", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	matching := make([]schema.TrainingRequest, 0, len(requests))
	for _, request := range requests {
		if filters.matches(&request) {
			matching = append(matching, request)
		}
	}

	return matching, nil
}

func (s *TrainingService) List(w http.ResponseWriter, r *http.Request) {
	requests, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing training requests: %v", err), GetResponseCode(err))
		return
	}

	infos, err := s.enrich(requests)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing training requests: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *TrainingService) Get(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	request, err := schema.GetTrainingRequest(requestId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrTrainingRequestNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting training request: %v", err), http.StatusInternalServerError)
		return
	}

	infos, err := s.enrich([]schema.TrainingRequest{request})
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting training request: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos[0])
}

type TrainingStats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByDepartment map[string]int `json:"by_department"`
}

func (s *TrainingService) Stats(w http.ResponseWriter, r *http.Request) {
	requests, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error computing training stats: %v", err), GetResponseCode(err))
		return
	}

	stats := TrainingStats{
		Total:        len(requests),
		ByStatus:     map[string]int{},
		ByDepartment: map[string]int{},
	}
	for _, request := range requests {
		bumpCount(stats.ByStatus, request.Status)
		bumpCount(stats.ByDepartment, request.Department)
	}

	utils.WriteJsonResponse(w, stats)
}
