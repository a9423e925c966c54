package tests

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestShiftLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	worker, err := env.newUser("lineworker")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	projectId, err := admin.createProject("substation tie-in")
	if err != nil {
		t.Fatal(err)
	}

	shiftId, err := admin.createShift(map[string]interface{}{
		"user_id":    worker.userId,
		"project_id": projectId,
		"shift_type": "Day",
		"date":       "2025-06-16",
		"start_time": "07:00",
		"end_time":   "15:00",
	})
	if err != nil {
		t.Fatal(err)
	}

	info, err := admin.getShift(shiftId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Scheduled" {
		t.Fatalf("expected Scheduled, got %v", info.Status)
	}
	if info.UserName != "lineworker" {
		t.Fatalf("expected user name resolved, got %v", info.UserName)
	}
	if info.ProjectName == nil || *info.ProjectName != "substation tie-in" {
		t.Fatalf("expected project name resolved, got %v", info.ProjectName)
	}

	err = admin.Post(fmt.Sprintf("/shift/%v/update", shiftId)).Json(map[string]interface{}{
		"status": "Completed",
	}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err = admin.getShift(shiftId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Completed" {
		t.Fatalf("expected Completed, got %v", info.Status)
	}
}

func TestShiftUpdateMissingShift(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	err = c.Post(fmt.Sprintf("/shift/%v/update", uuid.NewString())).Json(map[string]interface{}{
		"shift_type": "Night",
	}).Do(nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestShiftFiltersAndStats(t *testing.T) {
	env := setupTestEnv(t)

	worker, err := env.newUser("nightcrew")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	shifts := []map[string]interface{}{
		{"user_id": worker.userId, "shift_type": "Day", "date": "2025-06-16", "start_time": "07:00", "end_time": "15:00"},
		{"user_id": worker.userId, "shift_type": "Night", "date": "2025-06-16", "start_time": "22:00", "end_time": "06:00"},
		{"user_id": admin.userId, "shift_type": "Day", "date": "2025-06-17", "start_time": "07:00", "end_time": "15:00"},
	}
	for _, body := range shifts {
		if _, err := admin.createShift(body); err != nil {
			t.Fatal(err)
		}
	}

	var byUser []map[string]interface{}
	if err := admin.Get("/shift/list?user_id=" + worker.userId).Do(&byUser); err != nil {
		t.Fatal(err)
	}
	if len(byUser) != 2 {
		t.Fatalf("expected 2 shifts for user, got %d", len(byUser))
	}

	var byDate []map[string]interface{}
	if err := admin.Get("/shift/list?date=2025-06-16").Do(&byDate); err != nil {
		t.Fatal(err)
	}
	if len(byDate) != 2 {
		t.Fatalf("expected 2 shifts on date, got %d", len(byDate))
	}

	var combined []map[string]interface{}
	if err := admin.Get("/shift/list?user_id=" + worker.userId + "&date=2025-06-16&status=Scheduled").Do(&combined); err != nil {
		t.Fatal(err)
	}
	if len(combined) != 2 {
		t.Fatalf("expected 2 shifts matching all filters, got %d", len(combined))
	}

	stats, err := admin.shiftStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}
	if stats.ByType["Day"] != 2 || stats.ByType["Night"] != 1 {
		t.Fatalf("unexpected type counts: %v", stats.ByType)
	}
	if stats.ByStatus["Scheduled"] != 3 {
		t.Fatalf("unexpected status counts: %v", stats.ByStatus)
	}
}
