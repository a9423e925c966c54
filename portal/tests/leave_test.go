package tests

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestLeaveRequestLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	requester, err := env.newUser("requester")
	if err != nil {
		t.Fatal(err)
	}
	approver, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	projectId, err := approver.createProject("fiber rollout north")
	if err != nil {
		t.Fatal(err)
	}

	requestId, err := requester.createLeave(map[string]interface{}{
		"employee_name": "Jordan Smith",
		"request_type":  "Annual",
		"start_date":    "2025-07-01",
		"end_date":      "2025-07-10",
		"reason":        "summer vacation",
		"project_id":    projectId,
	})
	if err != nil {
		t.Fatal(err)
	}

	info, err := requester.getLeave(requestId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Pending" {
		t.Fatalf("expected new request to be Pending, got %v", info.Status)
	}
	if info.RequesterName != "requester" {
		t.Fatalf("expected requester name to be resolved, got %v", info.RequesterName)
	}
	if info.ProjectName == nil || *info.ProjectName != "fiber rollout north" {
		t.Fatalf("expected project name to be resolved, got %v", info.ProjectName)
	}
	if info.ApprovedBy != nil {
		t.Fatal("new request should not have an approver")
	}

	err = approver.Post(fmt.Sprintf("/leave/%v/approve", requestId)).Json(struct{}{}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err = requester.getLeave(requestId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Approved" {
		t.Fatalf("expected Approved, got %v", info.Status)
	}
	if info.ApproverName == nil || *info.ApproverName != adminUsername {
		t.Fatalf("expected approver name %v, got %v", adminUsername, info.ApproverName)
	}
}

func TestLeavePartialUpdateLeavesOtherFieldsUntouched(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	requestId, err := c.createLeave(map[string]interface{}{
		"employee_name": "Dana Park",
		"request_type":  "Sick",
		"start_date":    "2025-06-20",
		"end_date":      "2025-06-22",
		"reason":        "flu",
	})
	if err != nil {
		t.Fatal(err)
	}

	err = c.Post(fmt.Sprintf("/leave/%v/update", requestId)).Json(map[string]interface{}{
		"end_date": "2025-06-25",
	}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.getLeave(requestId)
	if err != nil {
		t.Fatal(err)
	}
	if info.EndDate != "2025-06-25" {
		t.Fatalf("expected updated end date, got %v", info.EndDate)
	}
	if info.EmployeeName != "Dana Park" || info.RequestType != "Sick" || info.Reason != "flu" {
		t.Fatalf("unrelated fields changed: %+v", info)
	}
	if info.StartDate != "2025-06-20" {
		t.Fatalf("start date changed: %v", info.StartDate)
	}
}

func TestLeaveNotFoundPropagation(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	missing := uuid.NewString()

	if _, err := c.getLeave(missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on get, got %v", err)
	}
	err = c.Post(fmt.Sprintf("/leave/%v/update", missing)).Json(map[string]interface{}{"reason": "x"}).Do(nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
	err = c.Post(fmt.Sprintf("/leave/%v/approve", missing)).Json(struct{}{}).Do(nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on approve, got %v", err)
	}
	err = c.Delete(fmt.Sprintf("/leave/%v/", missing)).Do(nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}

func TestLeaveStatsMatchTotals(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	types := []string{"Annual", "Annual", "Sick", "Unpaid"}
	ids := make([]string, 0, len(types))
	for i, requestType := range types {
		id, err := c.createLeave(map[string]interface{}{
			"employee_name": fmt.Sprintf("employee %d", i),
			"request_type":  requestType,
			"start_date":    "2025-07-01",
			"end_date":      "2025-07-02",
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	if err := c.Post(fmt.Sprintf("/leave/%v/approve", ids[0])).Json(struct{}{}).Do(nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Post(fmt.Sprintf("/leave/%v/reject", ids[1])).Json(struct{}{}).Do(nil); err != nil {
		t.Fatal(err)
	}

	stats, err := c.leaveStats()
	if err != nil {
		t.Fatal(err)
	}

	if stats.Total != len(types) {
		t.Fatalf("expected total %d, got %d", len(types), stats.Total)
	}
	sumStatus := 0
	for _, count := range stats.ByStatus {
		sumStatus += count
	}
	if sumStatus != stats.Total {
		t.Fatalf("by_status counts %d do not sum to total %d", sumStatus, stats.Total)
	}
	if stats.Pending != 2 {
		t.Fatalf("expected 2 pending, got %d", stats.Pending)
	}
	if stats.ByType["Annual"] != 2 || stats.ByType["Sick"] != 1 || stats.ByType["Unpaid"] != 1 {
		t.Fatalf("unexpected by_type counts: %v", stats.ByType)
	}

	pending, err := c.listLeave("?status=Pending")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending requests listed, got %d", len(pending))
	}
}

func TestLeaveEnrichmentAfterUserDeleted(t *testing.T) {
	env := setupTestEnv(t)

	requester, err := env.newUser("shortlived")
	if err != nil {
		t.Fatal(err)
	}

	requestId, err := requester.createLeave(map[string]interface{}{
		"employee_name": "Short Lived",
		"request_type":  "Annual",
		"start_date":    "2025-07-01",
		"end_date":      "2025-07-02",
	})
	if err != nil {
		t.Fatal(err)
	}

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	if err := admin.deleteUser(requester.userId); err != nil {
		t.Fatal(err)
	}

	info, err := admin.getLeave(requestId)
	if err != nil {
		t.Fatal(err)
	}
	if info.RequesterName != "Unknown" {
		t.Fatalf("expected Unknown requester after user deletion, got %v", info.RequesterName)
	}
}
