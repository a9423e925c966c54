package tests

import (
	"fmt"
	"testing"
)

func TestProcurementStatusValidation(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	logId, err := c.createProcurement(map[string]interface{}{
		"log_type":    "Purchase Order",
		"document_id": "PO-1001",
		"supplier":    "Cable Supply Co",
		"date":        "2025-06-10",
		"amount":      1250.50,
	})
	if err != nil {
		t.Fatal(err)
	}

	err = c.Post(fmt.Sprintf("/procurement/%v/update", logId)).Json(map[string]interface{}{
		"status": "Misplaced",
	}).Do(nil)
	if err == nil {
		t.Fatal("expected invalid status to be rejected")
	}

	info, err := c.getProcurement(logId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Pending" {
		t.Fatalf("status changed despite rejection: %v", info.Status)
	}

	// Valid statuses apply regardless of the current state.
	for _, status := range []string{"Paid", "Ordered", "Cancelled"} {
		err = c.Post(fmt.Sprintf("/procurement/%v/update", logId)).Json(map[string]interface{}{
			"status": status,
		}).Do(nil)
		if err != nil {
			t.Fatalf("error setting status %v: %v", status, err)
		}
	}

	info, err = c.getProcurement(logId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Cancelled" {
		t.Fatalf("expected Cancelled, got %v", info.Status)
	}
}

func TestProcurementStatsTreatMissingAmountAsZero(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	logs := []map[string]interface{}{
		{"log_type": "Invoice", "document_id": "INV-1", "supplier": "A", "date": "2025-06-01", "amount": 100.0},
		{"log_type": "Invoice", "document_id": "INV-2", "supplier": "B", "date": "2025-06-02", "amount": 250.5},
		{"log_type": "Delivery Note", "document_id": "DN-1", "supplier": "C", "date": "2025-06-03"},
	}
	for _, body := range logs {
		if _, err := c.createProcurement(body); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := c.procurementStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}
	if stats.TotalAmount != 350.5 {
		t.Fatalf("expected total amount 350.5, got %v", stats.TotalAmount)
	}
	if stats.ByType["Invoice"] != 2 || stats.ByType["Delivery Note"] != 1 {
		t.Fatalf("unexpected type counts: %v", stats.ByType)
	}

	sum := 0
	for _, count := range stats.ByStatus {
		sum += count
	}
	if sum != stats.Total {
		t.Fatalf("by_status counts %d do not sum to total %d", sum, stats.Total)
	}
}

func TestProcurementProjectEnrichment(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	projectId, err := c.createProject("harbor crossing")
	if err != nil {
		t.Fatal(err)
	}

	logId, err := c.createProcurement(map[string]interface{}{
		"log_type":           "Purchase Order",
		"document_id":        "PO-2002",
		"supplier":           "Duct Systems",
		"date":               "2025-06-12",
		"related_project_id": projectId,
	})
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.getProcurement(logId)
	if err != nil {
		t.Fatal(err)
	}
	if info.ProjectName == nil || *info.ProjectName != "harbor crossing" {
		t.Fatalf("expected project name resolved, got %v", info.ProjectName)
	}
	if info.CreatorName != adminUsername {
		t.Fatalf("expected creator name resolved, got %v", info.CreatorName)
	}

	var filtered []map[string]interface{}
	if err := c.Get("/procurement/list?project_id=" + projectId).Do(&filtered); err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 log for project, got %d", len(filtered))
	}
}
