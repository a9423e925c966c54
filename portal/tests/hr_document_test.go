package tests

import (
	"fmt"
	"testing"
)

// Reference day for these tests is 2025-06-15 (testToday in setup.go).
func TestHRDocumentExpiryWindows(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	documents := []map[string]interface{}{
		{"user_id": c.userId, "document_type": "Work Permit", "document_number": "WP-1", "expiry_date": "2025-06-18"}, // 3 days out
		{"user_id": c.userId, "document_type": "Work Permit", "document_number": "WP-2", "expiry_date": "2025-06-25"}, // 10 days out
		{"user_id": c.userId, "document_type": "Insurance", "document_number": "IN-1", "expiry_date": "2025-06-10"},   // expired
		{"user_id": c.userId, "document_type": "Contract", "document_number": "CT-1"},                                 // no expiry
	}
	for _, body := range documents {
		if _, err := c.createHRDocument(body); err != nil {
			t.Fatal(err)
		}
	}

	within15, err := c.expiringHRDocuments("?days=15")
	if err != nil {
		t.Fatal(err)
	}
	if len(within15) != 2 {
		t.Fatalf("expected 2 documents expiring within 15 days, got %d", len(within15))
	}

	within5, err := c.expiringHRDocuments("?days=5")
	if err != nil {
		t.Fatal(err)
	}
	if len(within5) != 1 || within5[0].DocumentNumber != "WP-1" {
		t.Fatalf("expected only the 3-day document within 5 days, got %+v", within5)
	}

	expired, err := c.expiredHRDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0].DocumentNumber != "IN-1" {
		t.Fatalf("expected only the expired document, got %+v", expired)
	}
}

func TestHRDocumentDerivedStatus(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		expiryDate string
		status     string
	}{
		{"2025-06-18", "Expires in 3d"},
		{"2025-06-25", "Expires in 10d"},
		{"2025-07-05", "Expires in 20d"},
		{"2026-06-15", "Valid"},
		{"2025-06-01", "Expired"},
		{"", "No Date"},
	}

	for i, tc := range cases {
		body := map[string]interface{}{
			"user_id":         c.userId,
			"document_type":   "Permit",
			"document_number": fmt.Sprintf("D-%d", i),
		}
		if tc.expiryDate != "" {
			body["expiry_date"] = tc.expiryDate
		}
		id, err := c.createHRDocument(body)
		if err != nil {
			t.Fatal(err)
		}

		var info map[string]interface{}
		if err := c.Get(fmt.Sprintf("/hr-document/%v/", id)).Do(&info); err != nil {
			t.Fatal(err)
		}
		if info["expiry_status"] != tc.status {
			t.Fatalf("document %d: expected status %q, got %q", i, tc.status, info["expiry_status"])
		}
	}
}

func TestHRDocumentStats(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	documents := []map[string]interface{}{
		{"user_id": c.userId, "document_type": "Permit", "document_number": "P-1", "expiry_date": "2025-06-20"},
		{"user_id": c.userId, "document_type": "Permit", "document_number": "P-2", "expiry_date": "2025-08-01"},
		{"user_id": c.userId, "document_type": "Insurance", "document_number": "I-1", "expiry_date": "2025-05-01"},
	}
	for _, body := range documents {
		if _, err := c.createHRDocument(body); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := c.hrDocumentStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}
	if stats.Expired != 1 {
		t.Fatalf("expected 1 expired, got %d", stats.Expired)
	}
	if stats.ExpiringSoon != 1 {
		t.Fatalf("expected 1 expiring within 30 days, got %d", stats.ExpiringSoon)
	}
	if stats.ByType["Permit"] != 2 || stats.ByType["Insurance"] != 1 {
		t.Fatalf("unexpected type counts: %v", stats.ByType)
	}
}

func TestHRDocumentEnrichmentWithUserName(t *testing.T) {
	env := setupTestEnv(t)

	employee, err := env.newUser("fieldtech")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := admin.createHRDocument(map[string]interface{}{
		"user_id":         employee.userId,
		"document_type":   "Permit",
		"document_number": "P-9",
	}); err != nil {
		t.Fatal(err)
	}

	listed, err := admin.listHRDocuments("?user_id=" + employee.userId)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 document for user, got %d", len(listed))
	}
	if listed[0].UserName != "fieldtech" {
		t.Fatalf("expected user name resolved, got %v", listed[0].UserName)
	}
}
