package services

import (
	"errors"
	"fieldops_portal/portal/auth"
	"fieldops_portal/portal/schema"
	"fieldops_portal/portal/storage"
	"fieldops_portal/utils"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContractorService struct {
	db       *gorm.DB
	store    storage.Storage
	userAuth auth.IdentityProvider
}

func (s *ContractorService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/create", s.Create)
	r.Get("/list", s.List)
	r.Get("/stats", s.Stats)

	r.Route("/{contractor_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Post("/update", s.Update)
		r.Delete("/", s.Delete)

		r.With(checkSufficientStorage(s.store)).Post("/upload-document", s.UploadDocument)
		r.Get("/documents/{filename}", s.DownloadDocument)
	})

	return r
}

var errDuplicateCompanyName = errors.New("a contractor with this company name already exists")

type createContractorRequest struct {
	CompanyName     string   `json:"company_name"`
	ContactPerson   string   `json:"contact_person"`
	Phone           string   `json:"phone"`
	BusinessLicense string   `json:"business_license"`
	Categories      []string `json:"categories"`
	Rating          string   `json:"rating"`
}

type contractorResponse struct {
	ContractorId uuid.UUID `json:"contractor_id"`
}

func (s *ContractorService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createContractorRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.CompanyName == "" || params.BusinessLicense == "" {
		http.Error(w, "company_name and business_license must be specified", http.StatusBadRequest)
		return
	}

	contractor := schema.Contractor{
		Id:              uuid.New(),
		CompanyName:     params.CompanyName,
		ContactPerson:   params.ContactPerson,
		Phone:           params.Phone,
		BusinessLicense: params.BusinessLicense,
		Categories:      schema.EncodeStringList(params.Categories),
		Rating:          params.Rating,
		IsActive:        true,
		Documents:       schema.EncodeStringList(nil),
		CreatedAt:       time.Now().UTC(),
		CreatedBy:       user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var existing schema.Contractor
		result := txn.Where("company_name = ?", params.CompanyName).Limit(1).Find(&existing)
		if result.Error != nil {
			slog.Error("sql error checking for duplicate contractor", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected > 0 {
			return CodedError(errDuplicateCompanyName, http.StatusConflict)
		}

		if result := txn.Create(&contractor); result.Error != nil {
			slog.Error("sql error creating contractor", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating contractor: %v", err), GetResponseCode(err))
		return
	}

	recordsCreated.WithLabelValues("contractor").Inc()

	utils.WriteJsonResponse(w, contractorResponse{ContractorId: contractor.Id})
}

type updateContractorRequest struct {
	CompanyName     *string   `json:"company_name"`
	ContactPerson   *string   `json:"contact_person"`
	Phone           *string   `json:"phone"`
	BusinessLicense *string   `json:"business_license"`
	Categories      *[]string `json:"categories"`
	Rating          *string   `json:"rating"`
	IsActive        *bool     `json:"is_active"`
}

func (params *updateContractorRequest) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if params.CompanyName != nil {
		updates["company_name"] = *params.CompanyName
	}
	if params.ContactPerson != nil {
		updates["contact_person"] = *params.ContactPerson
	}
	if params.Phone != nil {
		updates["phone"] = *params.Phone
	}
	if params.BusinessLicense != nil {
		updates["business_license"] = *params.BusinessLicense
	}
	if params.Categories != nil {
		updates["categories"] = schema.EncodeStringList(*params.Categories)
	}
	if params.Rating != nil {
		updates["rating"] = *params.Rating
	}
	if params.IsActive != nil {
		updates["is_active"] = *params.IsActive
	}
	return updates
}

func (s *ContractorService) Update(w http.ResponseWriter, r *http.Request) {
	contractorId, err := utils.URLParamUUID(r, "contractor_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateContractorRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkContractorExists(txn, contractorId); err != nil {
			return err
		}

		if params.CompanyName != nil {
			var existing schema.Contractor
			result := txn.Where("company_name = ? AND id <> ?", *params.CompanyName, contractorId).Limit(1).Find(&existing)
			if result.Error != nil {
				slog.Error("sql error checking for duplicate contractor", "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			if result.RowsAffected > 0 {
				return CodedError(errDuplicateCompanyName, http.StatusConflict)
			}
		}

		updates := params.changes()
		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.Contractor{Id: contractorId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating contractor", "contractor_id", contractorId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating contractor: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, contractorResponse{ContractorId: contractorId})
}

func (s *ContractorService) Delete(w http.ResponseWriter, r *http.Request) {
	contractorId, err := utils.URLParamUUID(r, "contractor_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var documents []string
	err = s.db.Transaction(func(txn *gorm.DB) error {
		contractor, err := schema.GetContractor(contractorId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrContractorNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}
		documents = contractor.DocumentList()

		result := txn.Delete(&schema.Contractor{Id: contractorId})
		if result.Error != nil {
			slog.Error("sql error deleting contractor", "contractor_id", contractorId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting contractor: %v", err), GetResponseCode(err))
		return
	}

	for _, document := range documents {
		deleteBlob(s.store, document)
	}

	recordsDeleted.WithLabelValues("contractor").Inc()

	utils.WriteSuccess(w)
}

const maxDocumentUploadSize = 100 * 1024 * 1024

func (s *ContractorService) UploadDocument(w http.ResponseWriter, r *http.Request) {
	contractorId, err := utils.URLParamUUID(r, "contractor_id")
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

	path := storage.ContractorDocumentPath(contractorId, header.Filename)

	err = s.db.Transaction(func(txn *gorm.DB) error {
		contractor, err := schema.GetContractor(contractorId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrContractorNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if err := s.store.Write(path, file); err != nil {
			slog.Error("error writing contractor document", "path", path, "error", err)
			return CodedError(errors.New("unable to store document"), http.StatusInternalServerError)
		}

		documents := contractor.DocumentList()
		if !slices.Contains(documents, path) {
			documents = append(documents, path)
		}

		result := txn.Model(&schema.Contractor{Id: contractorId}).
			Update("documents", schema.EncodeStringList(documents))
		if result.Error != nil {
			slog.Error("sql error recording contractor document", "contractor_id", contractorId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error uploading contractor document: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, map[string]string{"path": path})
}

func (s *ContractorService) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	contractorId, err := utils.URLParamUUID(r, "contractor_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filename, err := utils.URLParam(r, "filename")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	path := storage.ContractorDocumentPath(contractorId, filename)
	exists, err := s.store.Exists(path)
	if err != nil {
		http.Error(w, fmt.Sprintf("error locating document: %v", err), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	data, err := s.store.Read(path)
	if err != nil {
		http.Error(w, fmt.Sprintf("error reading document: %v", err), http.StatusInternalServerError)
		return
	}
	defer data.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, data); err != nil {
		slog.Error("error streaming contractor document", "path", path, "error", err)
	}
}

type ContractorInfo struct {
	Id              uuid.UUID `json:"id"`
	CompanyName     string    `json:"company_name"`
	ContactPerson   string    `json:"contact_person"`
	Phone           string    `json:"phone"`
	BusinessLicense string    `json:"business_license"`
	Categories      []string  `json:"categories"`
	Rating          string    `json:"rating"`
	IsActive        bool      `json:"is_active"`
	Documents       []string  `json:"documents"`
	CreatedBy       uuid.UUID `json:"created_by"`
	CreatorName     string    `json:"creator_name"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *ContractorService) enrich(contractors []schema.Contractor) ([]ContractorInfo, error) {
	userIds := make([]uuid.UUID, 0, len(contractors))
	for _, contractor := range contractors {
		userIds = append(userIds, contractor.CreatedBy)
	}

	users, err := userNames(s.db, userIds)
	if err != nil {
		return nil, err
	}

	infos := make([]ContractorInfo, 0, len(contractors))
	for _, contractor := range contractors {
		categories := contractor.CategoryList()
		if categories == nil {
			categories = []string{}
		}
		documents := contractor.DocumentList()
		if documents == nil {
			documents = []string{}
		}
		infos = append(infos, ContractorInfo{
			Id:              contractor.Id,
			CompanyName:     contractor.CompanyName,
			ContactPerson:   contractor.ContactPerson,
			Phone:           contractor.Phone,
			BusinessLicense: contractor.BusinessLicense,
			Categories:      categories,
			Rating:          contractor.Rating,
			IsActive:        contractor.IsActive,
			Documents:       documents,
			CreatedBy:       contractor.CreatedBy,
			CreatorName:     users.resolve(contractor.CreatedBy),
			CreatedAt:       contractor.CreatedAt,
		})
	}

	return infos, nil
}

type contractorFilters struct {
	Category string
	IsActive *bool
}

func (f *contractorFilters) matches(contractor *schema.Contractor) bool {
	if f.Category != "" && !slices.Contains(contractor.CategoryList(), f.Category) {
		return false
	}
	if f.IsActive != nil && contractor.IsActive != *f.IsActive {
		return false
	}
	return true
}

func (s *ContractorService) query(r *http.Request) ([]schema.Contractor, error) {
	filters := contractorFilters{
		Category: r.URL.Query().Get("category"),
	}
	switch r.URL.Query().Get("is_active") {
	case "true":
		active := true
		filters.IsActive = &active
	case "false":
		active := false
		filters.IsActive = &active
	}

	// Categories are stored json encoded, so both filters are applied in memory.
	query := s.db
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}

	var contractors []schema.Contractor
	result := query.Find(&contractors)
	if result.Error != nil {
		slog.Error("sql error listing contractors", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	matching := make([]schema.Contractor, 0, len(contractors))
	for _, contractor := range contractors {
		if filters.matches(&contractor) {
			matching = append(matching, contractor)
		}
	}

	return matching, nil
}

func (s *ContractorService) List(w http.ResponseWriter, r *http.Request) {
	contractors, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing contractors: %v", err), GetResponseCode(err))
		return
	}

	infos, err := s.enrich(contractors)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing contractors: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *ContractorService) Get(w http.ResponseWriter, r *http.Request) {
	contractorId, err := utils.URLParamUUID(r, "contractor_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	contractor, err := schema.GetContractor(contractorId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrContractorNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting contractor: %v", err), http.StatusInternalServerError)
		return
	}

	infos, err := s.enrich([]schema.Contractor{contractor})
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting contractor: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos[0])
}

type ContractorStats struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	ByCategory map[string]int `json:"by_category"`
}

func (s *ContractorService) Stats(w http.ResponseWriter, r *http.Request) {
	contractors, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error computing contractor stats: %v", err), GetResponseCode(err))
		return
	}

	stats := ContractorStats{
		Total:      len(contractors),
		ByCategory: map[string]int{},
	}
	for _, contractor := range contractors {
		if contractor.IsActive {
			stats.Active++
		}
		for _, category := range contractor.CategoryList() {
			bumpCount(stats.ByCategory, category)
		}
	}

	utils.WriteJsonResponse(w, stats)
}
