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

type ProcurementService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *ProcurementService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/create", s.Create)
	r.Get("/list", s.List)
	r.Get("/stats", s.Stats)

	r.Route("/{log_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Post("/update", s.Update)
		r.Delete("/", s.Delete)
	})

	return r
}

type createProcurementRequest struct {
	LogType          string     `json:"log_type"`
	DocumentId       string     `json:"document_id"`
	Supplier         string     `json:"supplier"`
	Date             string     `json:"date"`
	Amount           *float64   `json:"amount"`
	RelatedProjectId *uuid.UUID `json:"related_project_id"`
}

type procurementResponse struct {
	LogId uuid.UUID `json:"log_id"`
}

func (s *ProcurementService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createProcurementRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.LogType == "" || params.DocumentId == "" || params.Supplier == "" || params.Date == "" {
		http.Error(w, "log_type, document_id, supplier, and date must be specified", http.StatusBadRequest)
		return
	}

	log := schema.ProcurementLog{
		Id:               uuid.New(),
		LogType:          params.LogType,
		DocumentId:       params.DocumentId,
		Supplier:         params.Supplier,
		Date:             params.Date,
		Amount:           params.Amount,
		Status:           schema.Pending,
		RelatedProjectId: params.RelatedProjectId,
		CreatedAt:        time.Now().UTC(),
		CreatedBy:        user.Id,
	}

	result := s.db.Create(&log)
	if result.Error != nil {
		slog.Error("sql error creating procurement log", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating procurement log: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	recordsCreated.WithLabelValues("procurement_log").Inc()

	utils.WriteJsonResponse(w, procurementResponse{LogId: log.Id})
}

type updateProcurementRequest struct {
	LogType          *string    `json:"log_type"`
	DocumentId       *string    `json:"document_id"`
	Supplier         *string    `json:"supplier"`
	Date             *string    `json:"date"`
	Amount           *float64   `json:"amount"`
	Status           *string    `json:"status"`
	RelatedProjectId *uuid.UUID `json:"related_project_id"`
}

func (params *updateProcurementRequest) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if params.LogType != nil {
		updates["log_type"] = *params.LogType
	}
	if params.DocumentId != nil {
		updates["document_id"] = *params.DocumentId
	}
	if params.Supplier != nil {
		updates["supplier"] = *params.Supplier
	}
	if params.Date != nil {
		updates["date"] = *params.Date
	}
	if params.Amount != nil {
		updates["amount"] = *params.Amount
	}
	if params.Status != nil {
		updates["status"] = *params.Status
	}
	if params.RelatedProjectId != nil {
		updates["related_project_id"] = *params.RelatedProjectId
	}
	return updates
}

// Update allows any-to-any status movement within the procurement status set.
// The value is validated, the transition itself is not guarded.
func (s *ProcurementService) Update(w http.ResponseWriter, r *http.Request) {
	logId, err := utils.URLParamUUID(r, "log_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateProcurementRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Status != nil {
		if err := schema.CheckValidProcurementStatus(*params.Status); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProcurementLogExists(txn, logId); err != nil {
			return err
		}

		updates := params.changes()
		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.ProcurementLog{Id: logId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating procurement log", "log_id", logId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating procurement log: %v", err), GetResponseCode(err))
		return
	}

	if params.Status != nil {
		statusTransitions.WithLabelValues("procurement_log", *params.Status).Inc()
	}

	utils.WriteJsonResponse(w, procurementResponse{LogId: logId})
}

func (s *ProcurementService) Delete(w http.ResponseWriter, r *http.Request) {
	logId, err := utils.URLParamUUID(r, "log_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProcurementLogExists(txn, logId); err != nil {
			return err
		}

		result := txn.Delete(&schema.ProcurementLog{Id: logId})
		if result.Error != nil {
			slog.Error("sql error deleting procurement log", "log_id", logId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting procurement log: %v", err), GetResponseCode(err))
		return
	}

	recordsDeleted.WithLabelValues("procurement_log").Inc()

	utils.WriteSuccess(w)
}

type ProcurementLogInfo struct {
	Id               uuid.UUID  `json:"id"`
	LogType          string     `json:"log_type"`
	DocumentId       string     `json:"document_id"`
	Supplier         string     `json:"supplier"`
	Date             string     `json:"date"`
	Amount           *float64   `json:"amount,omitempty"`
	Status           string     `json:"status"`
	RelatedProjectId *uuid.UUID `json:"related_project_id,omitempty"`
	ProjectName      *string    `json:"project_name,omitempty"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	CreatorName      string     `json:"creator_name"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (s *ProcurementService) enrich(logs []schema.ProcurementLog) ([]ProcurementLogInfo, error) {
	userIds := make([]uuid.UUID, 0, len(logs))
	projectIds := make([]uuid.UUID, 0)
	for _, log := range logs {
		userIds = append(userIds, log.CreatedBy)
		projectIds = collectIds(projectIds, log.RelatedProjectId)
	}

	users, err := userNames(s.db, userIds)
	if err != nil {
		return nil, err
	}
	projects, err := projectNames(s.db, projectIds)
	if err != nil {
		return nil, err
	}

	infos := make([]ProcurementLogInfo, 0, len(logs))
	for _, log := range logs {
		infos = append(infos, ProcurementLogInfo{
			Id:               log.Id,
			LogType:          log.LogType,
			DocumentId:       log.DocumentId,
			Supplier:         log.Supplier,
			Date:             log.Date,
			Amount:           log.Amount,
			Status:           log.Status,
			RelatedProjectId: log.RelatedProjectId,
			ProjectName:      projects.resolveOptional(log.RelatedProjectId),
			CreatedBy:        log.CreatedBy,
			CreatorName:      users.resolve(log.CreatedBy),
			CreatedAt:        log.CreatedAt,
		})
	}

	return infos, nil
}

type procurementFilters struct {
	Status    string
	Type      string
	Date      string
	ProjectId *uuid.UUID
}

func (f *procurementFilters) matches(log *schema.ProcurementLog) bool {
	if f.Status != "" && log.Status != f.Status {
		return false
	}
	if f.Type != "" && log.LogType != f.Type {
		return false
	}
	if f.Date != "" && log.Date != f.Date {
		return false
	}
	if f.ProjectId != nil && (log.RelatedProjectId == nil || *log.RelatedProjectId != *f.ProjectId) {
		return false
	}
	return true
}

func (s *ProcurementService) query(r *http.Request) ([]schema.ProcurementLog, error) {
	projectId, err := utils.QueryParamUUID(r, "project_id")
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}

	filters := procurementFilters{
		Status:    r.URL.Query().Get("status"),
		Type:      r.URL.Query().Get("type"),
		Date:      r.URL.Query().Get("date"),
		ProjectId: projectId,
	}

	query := s.db
	switch {
	case filters.Status != "":
		query = query.Where("status = ?", filters.Status)
	case filters.Type != "":
		query = query.Where("log_type = ?", filters.Type)
	case filters.Date != "":
		query = query.Where("date = ?", filters.Date)
	case filters.ProjectId != nil:
		query = query.Where("related_project_id = ?", *filters.ProjectId)
	}

	var logs []schema.ProcurementLog
	result := query.Find(&logs)
	if result.Error != nil {
		slog.Error("sql error listing procurement logs", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	matching := make([]schema.ProcurementLog, 0, len(logs))
	for _, log := range logs {
		if filters.matches(&log) {
			matching = append(matching, log)
		}
	}

	return matching, nil
}

func (s *ProcurementService) List(w http.ResponseWriter, r *http.Request) {
	logs, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing procurement logs: %v", err), GetResponseCode(err))
		return
	}

	infos, err := s.enrich(logs)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing procurement logs: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *ProcurementService) Get(w http.ResponseWriter, r *http.Request) {
	logId, err := utils.URLParamUUID(r, "log_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log, err := schema.GetProcurementLog(logId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrProcurementLogNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting procurement log: %v", err), http.StatusInternalServerError)
		return
	}

	infos, err := s.enrich([]schema.ProcurementLog{log})
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting procurement log: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos[0])
}

type ProcurementStats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByType      map[string]int `json:"by_type"`
	TotalAmount float64        `json:"total_amount"`
}

func (s *ProcurementService) Stats(w http.ResponseWriter, r *http.Request) {
	logs, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error computing procurement stats: %v", err), GetResponseCode(err))
		return
	}

	stats := ProcurementStats{
		Total:    len(logs),
		ByStatus: map[string]int{},
		ByType:   map[string]int{},
	}
	for _, log := range logs {
		bumpCount(stats.ByStatus, log.Status)
		bumpCount(stats.ByType, log.LogType)
		if log.Amount != nil {
			stats.TotalAmount += *log.Amount
		}
	}

	utils.WriteJsonResponse(w, stats)
}
