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

type LeaveService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *LeaveService) Routes() chi.Router {
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
	})

	return r
}

type createLeaveRequest struct {
	EmployeeName  string     `json:"employee_name"`
	RequestType   string     `json:"request_type"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	Reason        string     `json:"reason"`
	ShiftSwapWith *uuid.UUID `json:"shift_swap_with"`
	ProjectId     *uuid.UUID `json:"project_id"`
}

type createLeaveResponse struct {
	RequestId uuid.UUID `json:"request_id"`
}

func (s *LeaveService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createLeaveRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.EmployeeName == "" || params.RequestType == "" || params.StartDate == "" || params.EndDate == "" {
		http.Error(w, "employee_name, request_type, start_date, and end_date must be specified", http.StatusBadRequest)
		return
	}

	request := schema.LeaveRequest{
		Id:            uuid.New(),
		RequestedBy:   user.Id,
		EmployeeName:  params.EmployeeName,
		RequestType:   params.RequestType,
		StartDate:     params.StartDate,
		EndDate:       params.EndDate,
		Reason:        params.Reason,
		Status:        schema.Pending,
		ShiftSwapWith: params.ShiftSwapWith,
		ProjectId:     params.ProjectId,
		CreatedAt:     time.Now().UTC(),
	}

	result := s.db.Create(&request)
	if result.Error != nil {
		slog.Error("sql error creating leave request", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating leave request: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	recordsCreated.WithLabelValues("leave_request").Inc()

	utils.WriteJsonResponse(w, createLeaveResponse{RequestId: request.Id})
}

type updateLeaveRequest struct {
	EmployeeName *string `json:"employee_name"`
	RequestType  *string `json:"request_type"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	Reason       *string `json:"reason"`
}

// Omitted fields are never written, so a partial update cannot clear a field.
func (params *updateLeaveRequest) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if params.EmployeeName != nil {
		updates["employee_name"] = *params.EmployeeName
	}
	if params.RequestType != nil {
		updates["request_type"] = *params.RequestType
	}
	if params.StartDate != nil {
		updates["start_date"] = *params.StartDate
	}
	if params.EndDate != nil {
		updates["end_date"] = *params.EndDate
	}
	if params.Reason != nil {
		updates["reason"] = *params.Reason
	}
	return updates
}

func (s *LeaveService) Update(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateLeaveRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkLeaveRequestExists(txn, requestId); err != nil {
			return err
		}

		updates := params.changes()
		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.LeaveRequest{Id: requestId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating leave request", "request_id", requestId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating leave request: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, createLeaveResponse{RequestId: requestId})
}

func (s *LeaveService) Delete(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkLeaveRequestExists(txn, requestId); err != nil {
			return err
		}

		result := txn.Delete(&schema.LeaveRequest{Id: requestId})
		if result.Error != nil {
			slog.Error("sql error deleting leave request", "request_id", requestId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting leave request: %v", err), GetResponseCode(err))
		return
	}

	recordsDeleted.WithLabelValues("leave_request").Inc()

	utils.WriteSuccess(w)
}

func (s *LeaveService) Approve(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, schema.Approved)
}

func (s *LeaveService) Reject(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, schema.Rejected)
}

func (s *LeaveService) transition(w http.ResponseWriter, r *http.Request, status string) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	approver, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkLeaveRequestExists(txn, requestId); err != nil {
			return err
		}

		result := txn.Model(&schema.LeaveRequest{Id: requestId}).Updates(map[string]interface{}{
			"status": status, "approved_by": approver.Id,
		})
		if result.Error != nil {
			slog.Error("sql error updating leave request status", "request_id", requestId, "status", status, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating leave request status: %v", err), GetResponseCode(err))
		return
	}

	statusTransitions.WithLabelValues("leave_request", status).Inc()
	slog.Info("leave request status updated", "request_id", requestId, "status", status, "approved_by", approver.Id)

	utils.WriteJsonResponse(w, createLeaveResponse{RequestId: requestId})
}

type LeaveRequestInfo struct {
	Id            uuid.UUID  `json:"id"`
	RequestedBy   uuid.UUID  `json:"requested_by"`
	RequesterName string     `json:"requester_name"`
	EmployeeName  string     `json:"employee_name"`
	RequestType   string     `json:"request_type"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	ApprovedBy    *uuid.UUID `json:"approved_by,omitempty"`
	ApproverName  *string    `json:"approver_name,omitempty"`
	ShiftSwapWith *uuid.UUID `json:"shift_swap_with,omitempty"`
	SwapWithName  *string    `json:"swap_with_name,omitempty"`
	ProjectId     *uuid.UUID `json:"project_id,omitempty"`
	ProjectName   *string    `json:"project_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (s *LeaveService) enrich(requests []schema.LeaveRequest) ([]LeaveRequestInfo, error) {
	userIds := make([]uuid.UUID, 0, len(requests))
	projectIds := make([]uuid.UUID, 0)
	for _, request := range requests {
		userIds = collectIds(append(userIds, request.RequestedBy), request.ApprovedBy, request.ShiftSwapWith)
		projectIds = collectIds(projectIds, request.ProjectId)
	}

	users, err := userNames(s.db, userIds)
	if err != nil {
		return nil, err
	}
	projects, err := projectNames(s.db, projectIds)
	if err != nil {
		return nil, err
	}

	infos := make([]LeaveRequestInfo, 0, len(requests))
	for _, request := range requests {
		infos = append(infos, LeaveRequestInfo{
			Id:            request.Id,
			RequestedBy:   request.RequestedBy,
			RequesterName: users.resolve(request.RequestedBy),
			EmployeeName:  request.EmployeeName,
			RequestType:   request.RequestType,
			StartDate:     request.StartDate,
			EndDate:       request.EndDate,
			Reason:        request.Reason,
			Status:        request.Status,
			ApprovedBy:    request.ApprovedBy,
			ApproverName:  users.resolveOptional(request.ApprovedBy),
			ShiftSwapWith: request.ShiftSwapWith,
			SwapWithName:  users.resolveOptional(request.ShiftSwapWith),
			ProjectId:     request.ProjectId,
			ProjectName:   projects.resolveOptional(request.ProjectId),
			CreatedAt:     request.CreatedAt,
		})
	}

	return infos, nil
}

type leaveFilters struct {
	Status    string
	Type      string
	UserId    *uuid.UUID
	ProjectId *uuid.UUID
}

func (f *leaveFilters) matches(request *schema.LeaveRequest) bool {
	if f.Status != "" && request.Status != f.Status {
		return false
	}
	if f.Type != "" && request.RequestType != f.Type {
		return false
	}
	if f.UserId != nil && request.RequestedBy != *f.UserId {
		return false
	}
	if f.ProjectId != nil && (request.ProjectId == nil || *request.ProjectId != *f.ProjectId) {
		return false
	}
	return true
}

func (s *LeaveService) query(r *http.Request) ([]schema.LeaveRequest, error) {
	userId, err := utils.QueryParamUUID(r, "user_id")
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}
	projectId, err := utils.QueryParamUUID(r, "project_id")
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}

	filters := leaveFilters{
		Status:    r.URL.Query().Get("status"),
		Type:      r.URL.Query().Get("type"),
		UserId:    userId,
		ProjectId: projectId,
	}

	// The first supplied filter in precedence order drives the indexed lookup,
	// the rest are applied in memory.
	query := s.db
	switch {
	case filters.Status != "":
		query = query.Where("status = ?", filters.Status)
	case filters.UserId != nil:
		query = query.Where("requested_by = ?", *filters.UserId)
	case filters.ProjectId != nil:
		query = query.Where("project_id = ?", *filters.ProjectId)
	}

	var requests []schema.LeaveRequest
	result := query.Find(&requests)
	if result.Error != nil {
		slog.Error("sql error listing leave requests", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	matching := make([]schema.LeaveRequest, 0, len(requests))
	for _, request := range requests {
		if filters.matches(&request) {
			matching = append(matching, request)
		}
	}

	return matching, nil
}

func (s *LeaveService) List(w http.ResponseWriter, r *http.Request) {
	requests, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing leave requests: %v", err), GetResponseCode(err))
		return
	}

	infos, err := s.enrich(requests)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing leave requests: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *LeaveService) Get(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	request, err := schema.GetLeaveRequest(requestId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrLeaveRequestNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting leave request: %v", err), http.StatusInternalServerError)
		return
	}

	infos, err := s.enrich([]schema.LeaveRequest{request})
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting leave request: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos[0])
}

type LeaveStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByType   map[string]int `json:"by_type"`
	Pending  int            `json:"pending"`
}

func (s *LeaveService) Stats(w http.ResponseWriter, r *http.Request) {
	requests, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error computing leave stats: %v", err), GetResponseCode(err))
		return
	}

	stats := LeaveStats{
		Total:    len(requests),
		ByStatus: map[string]int{},
		ByType:   map[string]int{},
	}
	for _, request := range requests {
		bumpCount(stats.ByStatus, request.Status)
		bumpCount(stats.ByType, request.RequestType)
		if request.Status == schema.Pending {
			stats.Pending++
		}
	}

	utils.WriteJsonResponse(w, stats)
}
