package tests

import (
	"errors"
	"fmt"
	"testing"
)

func TestContractorCompanyNameUniqueness(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	body := map[string]interface{}{
		"company_name":     "Acme Fiber Ltd",
		"contact_person":   "Pat Doyle",
		"business_license": "BL-1001",
		"categories":       []string{"Trenching", "Splicing"},
	}

	if _, err := c.createContractor(body); err != nil {
		t.Fatal(err)
	}

	_, err = c.createContractor(body)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate company name, got %v", err)
	}

	// A different name is fine.
	body["company_name"] = "Acme Fiber South Ltd"
	if _, err := c.createContractor(body); err != nil {
		t.Fatal(err)
	}
}

func TestContractorPartialUpdate(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	id, err := c.createContractor(map[string]interface{}{
		"company_name":     "Northline Civil",
		"contact_person":   "Sam Reed",
		"phone":            "555-0110",
		"business_license": "BL-2002",
		"categories":       []string{"Civil Works"},
		"rating":           "A",
	})
	if err != nil {
		t.Fatal(err)
	}

	err = c.Post(fmt.Sprintf("/contractor/%v/update", id)).Json(map[string]interface{}{
		"rating":    "B",
		"is_active": false,
	}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.getContractor(id)
	if err != nil {
		t.Fatal(err)
	}
	if info.Rating != "B" || info.IsActive {
		t.Fatalf("expected rating B and inactive, got %+v", info)
	}
	if info.CompanyName != "Northline Civil" || info.ContactPerson != "Sam Reed" || info.Phone != "555-0110" {
		t.Fatalf("unrelated fields changed: %+v", info)
	}
	if len(info.Categories) != 1 || info.Categories[0] != "Civil Works" {
		t.Fatalf("categories changed: %v", info.Categories)
	}
}

func TestContractorStatsAndFilters(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	contractors := []map[string]interface{}{
		{"company_name": "A Co", "business_license": "BL-1", "categories": []string{"Trenching"}},
		{"company_name": "B Co", "business_license": "BL-2", "categories": []string{"Trenching", "Splicing"}},
		{"company_name": "C Co", "business_license": "BL-3", "categories": []string{"Splicing"}},
	}

	ids := make([]string, 0, len(contractors))
	for _, body := range contractors {
		id, err := c.createContractor(body)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	err = c.Post(fmt.Sprintf("/contractor/%v/update", ids[2])).Json(map[string]interface{}{"is_active": false}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	stats, err := c.contractorStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}
	if stats.Active != 2 {
		t.Fatalf("expected 2 active, got %d", stats.Active)
	}
	if stats.ByCategory["Trenching"] != 2 || stats.ByCategory["Splicing"] != 2 {
		t.Fatalf("unexpected category counts: %v", stats.ByCategory)
	}

	var active []map[string]interface{}
	if err := c.Get("/contractor/list?is_active=true").Do(&active); err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active contractors listed, got %d", len(active))
	}

	var splicers []map[string]interface{}
	if err := c.Get("/contractor/list?category=Splicing").Do(&splicers); err != nil {
		t.Fatal(err)
	}
	if len(splicers) != 2 {
		t.Fatalf("expected 2 splicing contractors, got %d", len(splicers))
	}

	var activeSplicers []map[string]interface{}
	if err := c.Get("/contractor/list?category=Splicing&is_active=true").Do(&activeSplicers); err != nil {
		t.Fatal(err)
	}
	if len(activeSplicers) != 1 {
		t.Fatalf("expected 1 active splicing contractor, got %d", len(activeSplicers))
	}
}
