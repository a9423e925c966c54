package services

import (
	"errors"
	"fieldops_portal/portal/schema"
	"fieldops_portal/portal/storage"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func checkExists[E any](txn *gorm.DB, id uuid.UUID, get func(uuid.UUID, *gorm.DB) (E, error), notFound error) error {
	if _, err := get(id, txn); err != nil {
		if errors.Is(err, notFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkUserExists(txn *gorm.DB, userId uuid.UUID) error {
	return checkExists(txn, userId, schema.GetUser, schema.ErrUserNotFound)
}

func checkProjectExists(txn *gorm.DB, projectId uuid.UUID) error {
	return checkExists(txn, projectId, schema.GetProject, schema.ErrProjectNotFound)
}

func checkContractorExists(txn *gorm.DB, contractorId uuid.UUID) error {
	return checkExists(txn, contractorId, schema.GetContractor, schema.ErrContractorNotFound)
}

func checkFiberTeamExists(txn *gorm.DB, teamId uuid.UUID) error {
	return checkExists(txn, teamId, schema.GetFiberTeam, schema.ErrFiberTeamNotFound)
}

func checkLeaveRequestExists(txn *gorm.DB, requestId uuid.UUID) error {
	return checkExists(txn, requestId, schema.GetLeaveRequest, schema.ErrLeaveRequestNotFound)
}

func checkTrainingRequestExists(txn *gorm.DB, requestId uuid.UUID) error {
	return checkExists(txn, requestId, schema.GetTrainingRequest, schema.ErrTrainingRequestNotFound)
}

func checkProcurementLogExists(txn *gorm.DB, logId uuid.UUID) error {
	return checkExists(txn, logId, schema.GetProcurementLog, schema.ErrProcurementLogNotFound)
}

func checkHRDocumentExists(txn *gorm.DB, documentId uuid.UUID) error {
	return checkExists(txn, documentId, schema.GetHRDocument, schema.ErrHRDocumentNotFound)
}

func checkProjectDocumentExists(txn *gorm.DB, documentId uuid.UUID) error {
	return checkExists(txn, documentId, schema.GetProjectDocument, schema.ErrProjectDocumentNotFound)
}

func checkShiftExists(txn *gorm.DB, shiftId uuid.UUID) error {
	return checkExists(txn, shiftId, schema.GetShift, schema.ErrShiftNotFound)
}

// unknownName is attached in place of a display name whenever a referenced
// record no longer exists. Read paths never fail on dangling references.
const unknownName = "Unknown"

// nameSet is the result of one batched enrichment lookup: all display names
// needed for a result page, fetched with a single IN query per referenced
// table and fanned back out by id.
type nameSet map[uuid.UUID]string

func (names nameSet) resolve(id uuid.UUID) string {
	if name, ok := names[id]; ok {
		return name
	}
	return unknownName
}

// resolveOptional maps a nil reference to nil without a lookup, and a dangling
// reference to the placeholder.
func (names nameSet) resolveOptional(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	name := names.resolve(*id)
	return &name
}

func collectIds(ids []uuid.UUID, optional ...*uuid.UUID) []uuid.UUID {
	for _, id := range optional {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

func userNames(db *gorm.DB, ids []uuid.UUID) (nameSet, error) {
	if len(ids) == 0 {
		return nameSet{}, nil
	}

	var users []schema.User
	result := db.Where("id IN ?", ids).Find(&users)
	if result.Error != nil {
		slog.Error("sql error resolving user names", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	names := make(nameSet, len(users))
	for _, user := range users {
		names[user.Id] = user.Username
	}
	return names, nil
}

func projectNames(db *gorm.DB, ids []uuid.UUID) (nameSet, error) {
	if len(ids) == 0 {
		return nameSet{}, nil
	}

	var projects []schema.Project
	result := db.Where("id IN ?", ids).Find(&projects)
	if result.Error != nil {
		slog.Error("sql error resolving project names", "error", result.Error)
		return nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	names := make(nameSet, len(projects))
	for _, project := range projects {
		names[project.Id] = project.Name
	}
	return names, nil
}

// deleteBlob removes a blob after its owning record has been deleted. The
// record delete is the authoritative step; a failed blob delete leaves only an
// orphaned file, so it is logged and not surfaced to the caller.
func deleteBlob(store storage.Storage, path string) {
	if path == "" {
		return
	}
	if err := store.Delete(path); err != nil {
		slog.Error("error deleting blob for removed record", "path", path, "error", err)
	}
}

func bumpCount(counts map[string]int, key string) {
	if key == "" {
		return
	}
	counts[key]++
}

func sumCounts(counts map[string]int) int {
	total := 0
	for _, count := range counts {
		total += count
	}
	return total
}

func checkDiskUsage(store storage.Storage) error {
	stats, err := store.Usage()
	if err != nil {
		slog.Error("unable to get disk usage from storage", "error", err)
		return CodedError(errors.New("unable to get disk usage"), http.StatusInternalServerError)
	}
	oneMib := uint64(1024 * 1024)
	// Either 10% of the disk or 5Gb needs to be free, whichever is smaller.
	threshold := min(stats.TotalBytes/10, 5*1024*oneMib)
	if stats.FreeBytes < threshold {
		used := (stats.TotalBytes - stats.FreeBytes) / oneMib
		total := stats.TotalBytes / oneMib
		return CodedError(fmt.Errorf("insufficient disk space available for upload, usage: %d/%d Mib", used, total), http.StatusInsufficientStorage)
	}
	return nil
}

func checkSufficientStorage(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			if err := checkDiskUsage(store); err != nil {
				slog.Error(err.Error())
				http.Error(w, err.Error(), GetResponseCode(err))
				return
			}
			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(handler)
	}
}
