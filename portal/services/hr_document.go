package services

import (
	"errors"
	"fieldops_portal/portal/auth"
	"fieldops_portal/portal/expiry"
	"fieldops_portal/portal/schema"
	"fieldops_portal/portal/storage"
	"fieldops_portal/utils"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HRDocumentService struct {
	db       *gorm.DB
	store    storage.Storage
	userAuth auth.IdentityProvider

	// now is captured once per request so every document in a response is
	// classified against the same day.
	now func() time.Time
}

func (s *HRDocumentService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/create", s.Create)
	r.Get("/list", s.List)
	r.Get("/stats", s.Stats)
	r.Get("/expiring", s.Expiring)
	r.Get("/expired", s.Expired)

	r.Route("/{document_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Post("/update", s.Update)
		r.Delete("/", s.Delete)

		r.With(checkSufficientStorage(s.store)).Post("/upload", s.Upload)
		r.Get("/download", s.Download)
	})

	return r
}

type createHRDocumentRequest struct {
	UserId            uuid.UUID `json:"user_id"`
	DocumentType      string    `json:"document_type"`
	DocumentNumber    string    `json:"document_number"`
	ExpiryDate        *string   `json:"expiry_date"`
	InsuranceProvider *string   `json:"insurance_provider"`
}

type hrDocumentResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
}

func (s *HRDocumentService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createHRDocumentRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.UserId == uuid.Nil || params.DocumentType == "" || params.DocumentNumber == "" {
		http.Error(w, "user_id, document_type, and document_number must be specified", http.StatusBadRequest)
		return
	}

	document := schema.HRDocument{
		Id:                uuid.New(),
		UserId:            params.UserId,
		DocumentType:      params.DocumentType,
		DocumentNumber:    params.DocumentNumber,
		ExpiryDate:        params.ExpiryDate,
		InsuranceProvider: params.InsuranceProvider,
		CreatedAt:         time.Now().UTC(),
		CreatedBy:         user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, params.UserId); err != nil {
			return err
		}

		if result := txn.Create(&document); result.Error != nil {
			slog.Error("sql error creating hr document", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating hr document: %v", err), GetResponseCode(err))
		return
	}

	recordsCreated.WithLabelValues("hr_document").Inc()

	utils.WriteJsonResponse(w, hrDocumentResponse{DocumentId: document.Id})
}

type updateHRDocumentRequest struct {
	DocumentType      *string `json:"document_type"`
	DocumentNumber    *string `json:"document_number"`
	ExpiryDate        *string `json:"expiry_date"`
	InsuranceProvider *string `json:"insurance_provider"`
}

func (params *updateHRDocumentRequest) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if params.DocumentType != nil {
		updates["document_type"] = *params.DocumentType
	}
	if params.DocumentNumber != nil {
		updates["document_number"] = *params.DocumentNumber
	}
	if params.ExpiryDate != nil {
		updates["expiry_date"] = *params.ExpiryDate
	}
	if params.InsuranceProvider != nil {
		updates["insurance_provider"] = *params.InsuranceProvider
	}
	return updates
}

func (s *HRDocumentService) Update(w http.ResponseWriter, r *http.Request) {
	documentId, err := utils.URLParamUUID(r, "document_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateHRDocumentRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkHRDocumentExists(txn, documentId); err != nil {
			return err
		}

		updates := params.changes()
		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.HRDocument{Id: documentId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating hr document", "document_id", documentId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating hr document: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, hrDocumentResponse{DocumentId: documentId})
}

func (s *HRDocumentService) Delete(w http.ResponseWriter, r *http.Request) {
	documentId, err := utils.URLParamUUID(r, "document_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var filePath string
	err = s.db.Transaction(func(txn *gorm.DB) error {
		document, err := schema.GetHRDocument(documentId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrHRDocumentNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}
		if document.FilePath != nil {
			filePath = *document.FilePath
		}

		result := txn.Delete(&schema.HRDocument{Id: documentId})
		if result.Error != nil {
			slog.Error("sql error deleting hr document", "document_id", documentId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting hr document: %v", err), GetResponseCode(err))
		return
	}

	deleteBlob(s.store, filePath)

	recordsDeleted.WithLabelValues("hr_document").Inc()

	utils.WriteSuccess(w)
}

func (s *HRDocumentService) Upload(w http.ResponseWriter, r *http.Request) {
	documentId, err := utils.URLParamUUID(r, "document_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxDocumentUploadSize); err != nil {
		http.Error(w, fmt.Sprintf("error parsing upload: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "upload must contain a 'file' part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	path := storage.HRDocumentPath(documentId, header.Filename)

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkHRDocumentExists(txn, documentId); err != nil {
			return err
		}

		if err := s.store.Write(path, file); err != nil {
			slog.Error("error writing hr document file", "path", path, "error", err)
			return CodedError(errors.New("unable to store document file"), http.StatusInternalServerError)
		}

		result := txn.Model(&schema.HRDocument{Id: documentId}).Update("file_path", path)
		if result.Error != nil {
			slog.Error("sql error recording hr document file", "document_id", documentId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error uploading hr document file: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, map[string]string{"path": path})
}

func (s *HRDocumentService) Download(w http.ResponseWriter, r *http.Request) {
	documentId, err := utils.URLParamUUID(r, "document_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	document, err := schema.GetHRDocument(documentId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrHRDocumentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting hr document: %v", err), http.StatusInternalServerError)
		return
	}

	if document.FilePath == nil {
		http.Error(w, "no file attached to this document", http.StatusNotFound)
		return
	}

	data, err := s.store.Read(*document.FilePath)
	if err != nil {
		http.Error(w, fmt.Sprintf("error reading document file: %v", err), http.StatusInternalServerError)
		return
	}
	defer data.Close()

	if _, err := io.Copy(w, data); err != nil {
		slog.Error("error streaming hr document file", "path", *document.FilePath, "error", err)
	}
}

type HRDocumentInfo struct {
	Id                uuid.UUID `json:"id"`
	UserId            uuid.UUID `json:"user_id"`
	UserName          string    `json:"user_name"`
	DocumentType      string    `json:"document_type"`
	DocumentNumber    string    `json:"document_number"`
	ExpiryDate        *string   `json:"expiry_date,omitempty"`
	InsuranceProvider *string   `json:"insurance_provider,omitempty"`
	FileUrl           *string   `json:"file_url,omitempty"`

	ExpiryStatus string `json:"expiry_status"`
	DaysLeft     *int   `json:"days_left,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (s *HRDocumentService) enrich(documents []schema.HRDocument, today time.Time) ([]HRDocumentInfo, error) {
	userIds := make([]uuid.UUID, 0, len(documents))
	for _, document := range documents {
		userIds = append(userIds, document.UserId)
	}

	users, err := userNames(s.db, userIds)
	if err != nil {
		return nil, err
	}

	infos := make([]HRDocumentInfo, 0, len(documents))
	for _, document := range documents {
		info := HRDocumentInfo{
			Id:                document.Id,
			UserId:            document.UserId,
			UserName:          users.resolve(document.UserId),
			DocumentType:      document.DocumentType,
			DocumentNumber:    document.DocumentNumber,
			ExpiryDate:        document.ExpiryDate,
			InsuranceProvider: document.InsuranceProvider,
			CreatedAt:         document.CreatedAt,
		}

		if document.FilePath != nil {
			url := fmt.Sprintf("/api/v1/hr-document/%v/download", document.Id)
			info.FileUrl = &url
		}

		classification := classifyDocument(&document, today)
		info.ExpiryStatus = classification.Label
		if classification.Bucket != expiry.NoDate && classification.Bucket != expiry.InvalidDate {
			days := classification.DaysLeft
			info.DaysLeft = &days
		}

		infos = append(infos, info)
	}

	return infos, nil
}

func classifyDocument(document *schema.HRDocument, today time.Time) expiry.Classification {
	date := ""
	if document.ExpiryDate != nil {
		date = *document.ExpiryDate
	}
	return expiry.Classify(date, today)
}

type hrDocumentFilters struct {
	UserId *uuid.UUID
	Type   string
}

func (f *hrDocumentFilters) matches(document *schema.HRDocument) bool {
	if f.UserId != nil && document.UserId != *f.UserId {
		return false
	}
	if f.Type != "" && document.DocumentType != f.Type {
		return false
	}
	return true
}

func (s *HRDocumentService) query(r *http.Request) ([]schema.HRDocument, error) {
	userId, err := utils.QueryParamUUID(r, "user_id")
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}

	filters := hrDocumentFilters{
		UserId: userId,
		Type:   r.URL.Query().Get("type"),
	}

	query := s.db
	switch {
	case filters.UserId != nil:
		query = query.Where("user_id = ?", *filters.UserId)
	case filters.Type != "":
		query = query.Where("document_type = ?", filters.Type)
	}

	var documents []schema.HRDocument
	result := query.Find(&documents)
	if result.Error != nil {
		slog.Error("sql error listing hr documents", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	matching := make([]schema.HRDocument, 0, len(documents))
	for _, document := range documents {
		if filters.matches(&document) {
			matching = append(matching, document)
		}
	}

	return matching, nil
}

func (s *HRDocumentService) List(w http.ResponseWriter, r *http.Request) {
	documents, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing hr documents: %v", err), GetResponseCode(err))
		return
	}

	infos, err := s.enrich(documents, s.now())
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing hr documents: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *HRDocumentService) Get(w http.ResponseWriter, r *http.Request) {
	documentId, err := utils.URLParamUUID(r, "document_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	document, err := schema.GetHRDocument(documentId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrHRDocumentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting hr document: %v", err), http.StatusInternalServerError)
		return
	}

	infos, err := s.enrich([]schema.HRDocument{document}, s.now())
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting hr document: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos[0])
}

// Expiring lists documents whose expiry falls within the next N days
// (default 30). Already expired documents are excluded.
func (s *HRDocumentService) Expiring(w http.ResponseWriter, r *http.Request) {
	days := 30
	if param := r.URL.Query().Get("days"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed < 0 {
			http.Error(w, fmt.Sprintf("invalid 'days' parameter '%v'", param), http.StatusBadRequest)
			return
		}
		days = parsed
	}

	documents, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing expiring hr documents: %v", err), GetResponseCode(err))
		return
	}

	today := s.now()
	expiring := make([]schema.HRDocument, 0)
	for _, document := range documents {
		if classifyDocument(&document, today).ExpiresWithin(days) {
			expiring = append(expiring, document)
		}
	}

	infos, err := s.enrich(expiring, today)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing expiring hr documents: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *HRDocumentService) Expired(w http.ResponseWriter, r *http.Request) {
	documents, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing expired hr documents: %v", err), GetResponseCode(err))
		return
	}

	today := s.now()
	expired := make([]schema.HRDocument, 0)
	for _, document := range documents {
		if classifyDocument(&document, today).IsExpired() {
			expired = append(expired, document)
		}
	}

	infos, err := s.enrich(expired, today)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing expired hr documents: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

type HRDocumentStats struct {
	Total        int            `json:"total"`
	ByType       map[string]int `json:"by_type"`
	Expired      int            `json:"expired"`
	ExpiringSoon int            `json:"expiring_soon"`
}

func (s *HRDocumentService) Stats(w http.ResponseWriter, r *http.Request) {
	documents, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error computing hr document stats: %v", err), GetResponseCode(err))
		return
	}

	today := s.now()
	stats := HRDocumentStats{
		Total:  len(documents),
		ByType: map[string]int{},
	}
	for _, document := range documents {
		bumpCount(stats.ByType, document.DocumentType)
		classification := classifyDocument(&document, today)
		if classification.IsExpired() {
			stats.Expired++
		} else if classification.ExpiresWithin(30) {
			stats.ExpiringSoon++
		}
	}

	utils.WriteJsonResponse(w, stats)
}
