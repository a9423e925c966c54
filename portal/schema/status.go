package schema

import (
	"fmt"
	"slices"
)

// Shared request lifecycle states (leave, training, procurement).
const (
	Pending   = "Pending"
	Approved  = "Approved"
	Rejected  = "Rejected"
	Completed = "Completed"
)

// Remaining procurement states.
const (
	Ordered   = "Ordered"
	Delivered = "Delivered"
	Paid      = "Paid"
	Cancelled = "Cancelled"
)

// Fiber team states.
const (
	TeamAvailable = "Available"
	TeamAssigned  = "Assigned"
	TeamOnLeave   = "On Leave"
	TeamInactive  = "Inactive"
)

// Shift states.
const (
	ShiftScheduled  = "Scheduled"
	ShiftInProgress = "In Progress"
	ShiftCompleted  = "Completed"
	ShiftCancelled  = "Cancelled"
)

var (
	procurementStatuses = []string{Pending, Approved, Ordered, Delivered, Paid, Cancelled}
	teamStatuses        = []string{TeamAvailable, TeamAssigned, TeamOnLeave, TeamInactive}
	shiftStatuses       = []string{ShiftScheduled, ShiftInProgress, ShiftCompleted, ShiftCancelled}
)

func checkStatusIn(status string, allowed []string) error {
	if !slices.Contains(allowed, status) {
		return fmt.Errorf("invalid status '%v', must be one of %v", status, allowed)
	}
	return nil
}

func CheckValidProcurementStatus(status string) error {
	return checkStatusIn(status, procurementStatuses)
}

func CheckValidTeamStatus(status string) error {
	return checkStatusIn(status, teamStatuses)
}

func CheckValidShiftStatus(status string) error {
	return checkStatusIn(status, shiftStatuses)
}
