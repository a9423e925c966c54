package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrProjectNotFound         = errors.New("project not found")
	ErrContractorNotFound      = errors.New("contractor not found")
	ErrFiberTeamNotFound       = errors.New("fiber team not found")
	ErrLeaveRequestNotFound    = errors.New("leave request not found")
	ErrTrainingRequestNotFound = errors.New("training request not found")
	ErrProcurementLogNotFound  = errors.New("procurement log not found")
	ErrHRDocumentNotFound      = errors.New("hr document not found")
	ErrProjectDocumentNotFound = errors.New("project document not found")
	ErrShiftNotFound           = errors.New("shift not found")
	ErrDbAccessFailed          = errors.New("db access failed")
)

func getById[E any](id uuid.UUID, db *gorm.DB, entity string, notFound error) (E, error) {
	var record E

	result := db.First(&record, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return record, notFound
		}
		slog.Error("sql error in get "+entity, "id", id, "error", result.Error)
		return record, ErrDbAccessFailed
	}

	return record, nil
}

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	return getById[User](userId, db, "user", ErrUserNotFound)
}

func GetProject(projectId uuid.UUID, db *gorm.DB) (Project, error) {
	return getById[Project](projectId, db, "project", ErrProjectNotFound)
}

func GetContractor(contractorId uuid.UUID, db *gorm.DB) (Contractor, error) {
	return getById[Contractor](contractorId, db, "contractor", ErrContractorNotFound)
}

func GetFiberTeam(teamId uuid.UUID, db *gorm.DB) (FiberTeam, error) {
	return getById[FiberTeam](teamId, db, "fiber team", ErrFiberTeamNotFound)
}

func GetLeaveRequest(requestId uuid.UUID, db *gorm.DB) (LeaveRequest, error) {
	return getById[LeaveRequest](requestId, db, "leave request", ErrLeaveRequestNotFound)
}

func GetTrainingRequest(requestId uuid.UUID, db *gorm.DB) (TrainingRequest, error) {
	return getById[TrainingRequest](requestId, db, "training request", ErrTrainingRequestNotFound)
}

func GetProcurementLog(logId uuid.UUID, db *gorm.DB) (ProcurementLog, error) {
	return getById[ProcurementLog](logId, db, "procurement log", ErrProcurementLogNotFound)
}

func GetHRDocument(documentId uuid.UUID, db *gorm.DB) (HRDocument, error) {
	return getById[HRDocument](documentId, db, "hr document", ErrHRDocumentNotFound)
}

func GetProjectDocument(documentId uuid.UUID, db *gorm.DB) (ProjectDocument, error) {
	return getById[ProjectDocument](documentId, db, "project document", ErrProjectDocumentNotFound)
}

func GetShift(shiftId uuid.UUID, db *gorm.DB) (Shift, error) {
	return getById[Shift](shiftId, db, "shift", ErrShiftNotFound)
}

// AllTables lists every entity for AutoMigrate and the test setup.
func AllTables() []interface{} {
	return []interface{}{
		&User{}, &Project{}, &Contractor{}, &FiberTeam{}, &LeaveRequest{},
		&TrainingRequest{}, &ProcurementLog{}, &HRDocument{}, &ProjectDocument{}, &Shift{},
	}
}
