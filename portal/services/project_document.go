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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectDocumentService struct {
	db       *gorm.DB
	store    storage.Storage
	userAuth auth.IdentityProvider
}

func (s *ProjectDocumentService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.With(checkSufficientStorage(s.store)).Post("/upload", s.Upload)
	r.Get("/list", s.List)
	r.Get("/stats", s.Stats)

	r.Route("/{document_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Post("/update", s.Update)
		r.Delete("/", s.Delete)
		r.Get("/download", s.Download)
	})

	return r
}

type projectDocumentResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
}

// Upload creates a project document in one request: the multipart form carries
// the metadata fields and the file itself. The blob is written before the
// record so a record never points at a missing file.
func (s *ProjectDocumentService) Upload(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := r.ParseMultipartForm(maxDocumentUploadSize); err != nil {
		http.Error(w, fmt.Sprintf("error parsing upload: %v", err), http.StatusBadRequest)
		return
	}

	projectId, err := uuid.Parse(r.FormValue("project_id"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid project_id: %v", err), http.StatusBadRequest)
		return
	}
	documentType := r.FormValue("document_type")
	title := r.FormValue("title")
	if documentType == "" || title == "" {
		http.Error(w, "document_type and title must be specified", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "upload must contain a 'file' part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	document := schema.ProjectDocument{
		Id:           uuid.New(),
		ProjectId:    projectId,
		DocumentType: documentType,
		Title:        title,
		CreatedAt:    time.Now().UTC(),
		UploadedBy:   user.Id,
	}
	document.FilePath = storage.ProjectDocumentPath(document.Id, header.Filename)

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProjectExists(txn, projectId); err != nil {
			return err
		}

		if err := s.store.Write(document.FilePath, file); err != nil {
			slog.Error("error writing project document file", "path", document.FilePath, "error", err)
			return CodedError(errors.New("unable to store document file"), http.StatusInternalServerError)
		}

		if result := txn.Create(&document); result.Error != nil {
			slog.Error("sql error creating project document", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error uploading project document: %v", err), GetResponseCode(err))
		return
	}

	recordsCreated.WithLabelValues("project_document").Inc()

	utils.WriteJsonResponse(w, projectDocumentResponse{DocumentId: document.Id})
}

type updateProjectDocumentRequest struct {
	DocumentType *string `json:"document_type"`
	Title        *string `json:"title"`
}

func (params *updateProjectDocumentRequest) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if params.DocumentType != nil {
		updates["document_type"] = *params.DocumentType
	}
	if params.Title != nil {
		updates["title"] = *params.Title
	}
	return updates
}

func (s *ProjectDocumentService) Update(w http.ResponseWriter, r *http.Request) {
	documentId, err := utils.URLParamUUID(r, "document_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateProjectDocumentRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProjectDocumentExists(txn, documentId); err != nil {
			return err
		}

		updates := params.changes()
		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.ProjectDocument{Id: documentId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating project document", "document_id", documentId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating project document: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, projectDocumentResponse{DocumentId: documentId})
}

func (s *ProjectDocumentService) Delete(w http.ResponseWriter, r *http.Request) {
	documentId, err := utils.URLParamUUID(r, "document_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var filePath string
	err = s.db.Transaction(func(txn *gorm.DB) error {
		document, err := schema.GetProjectDocument(documentId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrProjectDocumentNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}
		filePath = document.FilePath

		result := txn.Delete(&schema.ProjectDocument{Id: documentId})
		if result.Error != nil {
			slog.Error("sql error deleting project document", "document_id", documentId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting project document: %v", err), GetResponseCode(err))
		return
	}

	deleteBlob(s.store, filePath)

	recordsDeleted.WithLabelValues("project_document").Inc()

	utils.WriteSuccess(w)
}

func (s *ProjectDocumentService) Download(w http.ResponseWriter, r *http.Request) {
	documentId, err := utils.URLParamUUID(r, "document_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	document, err := schema.GetProjectDocument(documentId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrProjectDocumentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting project document: %v", err), http.StatusInternalServerError)
		return
	}

	data, err := s.store.Read(document.FilePath)
	if err != nil {
		http.Error(w, fmt.Sprintf("error reading document file: %v", err), http.StatusInternalServerError)
		return
	}
	defer data.Close()

	if _, err := io.Copy(w, data); err != nil {
		slog.Error("error streaming project document file", "path", document.FilePath, "error", err)
	}
}

type ProjectDocumentInfo struct {
	Id           uuid.UUID `json:"id"`
	ProjectId    uuid.UUID `json:"project_id"`
	ProjectName  string    `json:"project_name"`
	DocumentType string    `json:"document_type"`
	Title        string    `json:"title"`
	FileUrl      string    `json:"file_url"`
	UploadedBy   uuid.UUID `json:"uploaded_by"`
	UploaderName string    `json:"uploader_name"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *ProjectDocumentService) enrich(documents []schema.ProjectDocument) ([]ProjectDocumentInfo, error) {
	userIds := make([]uuid.UUID, 0, len(documents))
	projectIds := make([]uuid.UUID, 0, len(documents))
	for _, document := range documents {
		userIds = append(userIds, document.UploadedBy)
		projectIds = append(projectIds, document.ProjectId)
	}

	users, err := userNames(s.db, userIds)
	if err != nil {
		return nil, err
	}
	projects, err := projectNames(s.db, projectIds)
	if err != nil {
		return nil, err
	}

	infos := make([]ProjectDocumentInfo, 0, len(documents))
	for _, document := range documents {
		infos = append(infos, ProjectDocumentInfo{
			Id:           document.Id,
			ProjectId:    document.ProjectId,
			ProjectName:  projects.resolve(document.ProjectId),
			DocumentType: document.DocumentType,
			Title:        document.Title,
			FileUrl:      fmt.Sprintf("/api/v1/project-document/%v/download", document.Id),
			UploadedBy:   document.UploadedBy,
			UploaderName: users.resolve(document.UploadedBy),
			CreatedAt:    document.CreatedAt,
		})
	}

	return infos, nil
}

type projectDocumentFilters struct {
	ProjectId *uuid.UUID
	Type      string
}

func (f *projectDocumentFilters) matches(document *schema.ProjectDocument) bool {
	if f.ProjectId != nil && document.ProjectId != *f.ProjectId {
		return false
	}
	if f.Type != "" && document.DocumentType != f.Type {
		return false
	}
	return true
}

func (s *ProjectDocumentService) query(r *http.Request) ([]schema.ProjectDocument, error) {
	projectId, err := utils.QueryParamUUID(r, "project_id")
	if err != nil {
		return nil, CodedError(err, http.StatusBadRequest)
	}

	filters := projectDocumentFilters{
		ProjectId: projectId,
		Type:      r.URL.Query().Get("type"),
	}

	query := s.db
	switch {
	case filters.ProjectId != nil:
		query = query.Where("project_id = ?", *filters.ProjectId)
	case filters.Type != "":
		query = query.Where("document_type = ?", filters.Type)
	}

	var documents []schema.ProjectDocument
	result := query.Find(&documents)
	if result.Error != nil {
		slog.Error("sql error listing project documents", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	matching := make([]schema.ProjectDocument, 0, len(documents))
	for _, document := range documents {
		if filters.matches(&document) {
			matching = append(matching, document)
		}
	}

	return matching, nil
}

func (s *ProjectDocumentService) List(w http.ResponseWriter, r *http.Request) {
	documents, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing project documents: %v", err), GetResponseCode(err))
		return
	}

	infos, err := s.enrich(documents)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing project documents: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *ProjectDocumentService) Get(w http.ResponseWriter, r *http.Request) {
	documentId, err := utils.URLParamUUID(r, "document_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	document, err := schema.GetProjectDocument(documentId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrProjectDocumentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting project document: %v", err), http.StatusInternalServerError)
		return
	}

	infos, err := s.enrich([]schema.ProjectDocument{document})
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting project document: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos[0])
}

type ProjectDocumentStats struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

func (s *ProjectDocumentService) Stats(w http.ResponseWriter, r *http.Request) {
	documents, err := s.query(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error computing project document stats: %v", err), GetResponseCode(err))
		return
	}

	stats := ProjectDocumentStats{
		Total:  len(documents),
		ByType: map[string]int{},
	}
	for _, document := range documents {
		bumpCount(stats.ByType, document.DocumentType)
	}

	utils.WriteJsonResponse(w, stats)
}
