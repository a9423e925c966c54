package tests

import (
	"fmt"
	"testing"
)

func TestTrainingRequestLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	requester, err := env.newUser("trainee")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	requestId, err := requester.createTraining(map[string]interface{}{
		"employee_name":  "Riley Chen",
		"department":     "Field Ops",
		"training_title": "Fusion splicing certification",
		"justification":  "required for new closures",
	})
	if err != nil {
		t.Fatal(err)
	}

	info, err := requester.getTraining(requestId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Pending" {
		t.Fatalf("expected Pending, got %v", info.Status)
	}

	err = admin.Post(fmt.Sprintf("/training/%v/approve", requestId)).Json(struct{}{}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err = requester.getTraining(requestId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Approved" {
		t.Fatalf("expected Approved, got %v", info.Status)
	}
	if info.ApproverName == nil || *info.ApproverName != adminUsername {
		t.Fatalf("expected approver recorded, got %v", info.ApproverName)
	}

	err = admin.Post(fmt.Sprintf("/training/%v/complete", requestId)).Json(struct{}{}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err = requester.getTraining(requestId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Completed" {
		t.Fatalf("expected Completed, got %v", info.Status)
	}
}

func TestTrainingCompleteWithoutApproval(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	requestId, err := c.createTraining(map[string]interface{}{
		"employee_name":  "Quinn Ford",
		"department":     "Safety",
		"training_title": "First aid refresher",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Completion does not require the request to pass through Approved first.
	err = c.Post(fmt.Sprintf("/training/%v/complete", requestId)).Json(struct{}{}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.getTraining(requestId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Completed" {
		t.Fatalf("expected Completed, got %v", info.Status)
	}
}

func TestTrainingNotesKeepPreviousValue(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	requestId, err := c.createTraining(map[string]interface{}{
		"employee_name":  "Ash Vale",
		"department":     "Field Ops",
		"training_title": "OTDR basics",
	})
	if err != nil {
		t.Fatal(err)
	}

	err = c.Post(fmt.Sprintf("/training/%v/update", requestId)).Json(map[string]interface{}{
		"notes": "booked for september session",
	}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	// An update without notes must not clear them.
	err = c.Post(fmt.Sprintf("/training/%v/update", requestId)).Json(map[string]interface{}{
		"training_title": "OTDR advanced",
	}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.getTraining(requestId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Notes != "booked for september session" {
		t.Fatalf("notes lost on unrelated update: %v", info.Notes)
	}
	if info.TrainingTitle != "OTDR advanced" {
		t.Fatalf("expected updated title, got %v", info.TrainingTitle)
	}
}

func TestTrainingStatsByDepartment(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	departments := []string{"Field Ops", "Field Ops", "Safety"}
	for i, department := range departments {
		_, err := c.createTraining(map[string]interface{}{
			"employee_name":  fmt.Sprintf("employee %d", i),
			"department":     department,
			"training_title": "course",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	var stats map[string]interface{}
	if err := c.Get("/training/stats").Do(&stats); err != nil {
		t.Fatal(err)
	}
	if stats["total"].(float64) != 3 {
		t.Fatalf("expected total 3, got %v", stats["total"])
	}
	byDepartment := stats["by_department"].(map[string]interface{})
	if byDepartment["Field Ops"].(float64) != 2 || byDepartment["Safety"].(float64) != 1 {
		t.Fatalf("unexpected department counts: %v", byDepartment)
	}

	var filtered []map[string]interface{}
	if err := c.Get("/training/list?department=Safety").Do(&filtered); err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 safety request, got %d", len(filtered))
	}
}
