package schema

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Username string `gorm:"unique;size:50;not null"`
	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	IsAdmin bool `gorm:"not null;default:false"`
}

type Project struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name     string `gorm:"size:200;not null"`
	Location string `gorm:"size:200"`
	Status   string `gorm:"size:100;not null;default:'Active'"`

	CreatedAt time.Time
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
}

type Contractor struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	CompanyName     string `gorm:"unique;size:200;not null"`
	ContactPerson   string `gorm:"size:100"`
	Phone           string `gorm:"size:50"`
	BusinessLicense string `gorm:"size:100;not null"`
	Categories      string // json encoded list of work categories
	Rating          string `gorm:"size:50"`
	IsActive        bool   `gorm:"not null;default:true"`
	Documents       string // json encoded list of blob paths

	CreatedAt time.Time
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
}

func (c *Contractor) CategoryList() []string {
	return decodeStringList(c.Categories)
}

func (c *Contractor) DocumentList() []string {
	return decodeStringList(c.Documents)
}

type FiberTeam struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	TeamName string `gorm:"size:200;not null"`
	TeamLead string `gorm:"size:100;not null"`
	Members  string // json encoded list of member names

	Status string `gorm:"size:50;not null;default:'Available';index"`

	AssignmentProjectId *uuid.UUID `gorm:"type:uuid"`
	AssignmentLocation  *string    `gorm:"size:200"`
	AssignmentTask      *string
	AssignmentStart     *string `gorm:"size:10"`
	AssignmentEnd       *string `gorm:"size:10"`

	CreatedAt time.Time
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
}

func (t *FiberTeam) MemberList() []string {
	return decodeStringList(t.Members)
}

type LeaveRequest struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	RequestedBy  uuid.UUID `gorm:"type:uuid;not null;index"`
	EmployeeName string    `gorm:"size:100;not null"`
	RequestType  string    `gorm:"size:50;not null"`
	StartDate    string    `gorm:"size:10;not null"`
	EndDate      string    `gorm:"size:10;not null"`
	Reason       string

	Status     string     `gorm:"size:50;not null;default:'Pending';index"`
	ApprovedBy *uuid.UUID `gorm:"type:uuid"`

	ShiftSwapWith *uuid.UUID `gorm:"type:uuid"`
	ProjectId     *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time
}

type TrainingRequest struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	RequestedBy   uuid.UUID `gorm:"type:uuid;not null;index"`
	EmployeeName  string    `gorm:"size:100;not null"`
	Department    string    `gorm:"size:100;not null;index"`
	TrainingTitle string    `gorm:"size:200;not null"`
	Justification string
	Notes         string

	Status     string     `gorm:"size:50;not null;default:'Pending';index"`
	ApprovedBy *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
}

type ProcurementLog struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	LogType    string   `gorm:"size:100;not null;index"`
	DocumentId string   `gorm:"size:100;not null"`
	Supplier   string   `gorm:"size:200;not null"`
	Date       string   `gorm:"size:10;not null;index"`
	Amount     *float64 // missing amount counts as 0 in totals

	Status           string     `gorm:"size:50;not null;default:'Pending';index"`
	RelatedProjectId *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
}

type HRDocument struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserId         uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentType   string    `gorm:"size:100;not null;index"`
	DocumentNumber string    `gorm:"size:100;not null"`

	// Expiry status is always derived from this date at read time, never stored.
	ExpiryDate        *string `gorm:"size:10"`
	InsuranceProvider *string `gorm:"size:200"`
	FilePath          *string `gorm:"size:500"`

	CreatedAt time.Time
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
}

type ProjectDocument struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	ProjectId    uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentType string    `gorm:"size:100;not null;index"`
	Title        string    `gorm:"size:200;not null"`
	FilePath     string    `gorm:"size:500;not null"`

	CreatedAt  time.Time
	UploadedBy uuid.UUID `gorm:"type:uuid;not null"`
}

type Shift struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserId    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProjectId *uuid.UUID `gorm:"type:uuid;index"`
	ShiftType string     `gorm:"size:50;not null"`
	Date      string     `gorm:"size:10;not null;index"`
	StartTime string     `gorm:"size:5;not null"`
	EndTime   string     `gorm:"size:5;not null"`

	Status string `gorm:"size:50;not null;default:'Scheduled';index"`

	CreatedAt time.Time
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
}

func decodeStringList(encoded string) []string {
	if encoded == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(encoded), &items); err != nil {
		return nil
	}
	return items
}

func EncodeStringList(items []string) string {
	if items == nil {
		items = []string{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}
