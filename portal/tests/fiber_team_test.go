package tests

import (
	"fmt"
	"testing"
)

func TestFiberTeamAssignmentConsistency(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	projectId, err := c.createProject("downtown backbone")
	if err != nil {
		t.Fatal(err)
	}

	teamId, err := c.createFiberTeam(map[string]interface{}{
		"team_name": "Crew 7",
		"team_lead": "Morgan Wells",
		"members":   []string{"A. One", "B. Two"},
	})
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.getFiberTeam(teamId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Available" {
		t.Fatalf("expected new team Available, got %v", info.Status)
	}
	if len(info.Members) != 2 {
		t.Fatalf("expected 2 members, got %v", info.Members)
	}

	err = c.Post(fmt.Sprintf("/fiber-team/%v/assign", teamId)).Json(map[string]interface{}{
		"project_id": projectId,
		"location":   "5th and Main",
		"task":       "splice closure install",
		"start_date": "2025-06-16",
		"end_date":   "2025-06-20",
	}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err = c.getFiberTeam(teamId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Assigned" {
		t.Fatalf("expected Assigned, got %v", info.Status)
	}
	if info.AssignmentProject == nil || *info.AssignmentProject != "downtown backbone" {
		t.Fatalf("expected assignment project name resolved, got %v", info.AssignmentProject)
	}
	if info.AssignmentLocation == nil || *info.AssignmentLocation != "5th and Main" {
		t.Fatalf("expected assignment location, got %v", info.AssignmentLocation)
	}

	err = c.Post(fmt.Sprintf("/fiber-team/%v/clear-assignment", teamId)).Json(struct{}{}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err = c.getFiberTeam(teamId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Available" {
		t.Fatalf("expected Available after clearing, got %v", info.Status)
	}
	if info.AssignmentProjectId != nil || info.AssignmentLocation != nil || info.AssignmentTask != nil ||
		info.AssignmentStart != nil || info.AssignmentEnd != nil {
		t.Fatalf("assignment fields not cleared: %+v", info)
	}
}

func TestFiberTeamStatsMoveOnAssignment(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	teamIds := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		id, err := c.createFiberTeam(map[string]interface{}{
			"team_name": fmt.Sprintf("Crew %d", i),
			"team_lead": fmt.Sprintf("Lead %d", i),
		})
		if err != nil {
			t.Fatal(err)
		}
		teamIds = append(teamIds, id)
	}

	stats, err := c.fiberTeamStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.Available != 3 || stats.Assigned != 0 {
		t.Fatalf("unexpected initial stats: %+v", stats)
	}

	err = c.Post(fmt.Sprintf("/fiber-team/%v/assign", teamIds[0])).Json(map[string]interface{}{
		"location": "north loop",
	}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	stats, err = c.fiberTeamStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Available != 2 || stats.Assigned != 1 {
		t.Fatalf("stats did not move on assignment: %+v", stats)
	}

	err = c.Post(fmt.Sprintf("/fiber-team/%v/update", teamIds[1])).Json(map[string]interface{}{
		"status": "On Leave",
	}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	stats, err = c.fiberTeamStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.ByStatus["On Leave"] != 1 || stats.Available != 1 {
		t.Fatalf("unexpected stats after status update: %+v", stats)
	}

	sum := 0
	for _, count := range stats.ByStatus {
		sum += count
	}
	if sum != stats.Total {
		t.Fatalf("by_status counts %d do not sum to total %d", sum, stats.Total)
	}
}

func TestFiberTeamRejectsInvalidStatus(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	teamId, err := c.createFiberTeam(map[string]interface{}{
		"team_name": "Crew X",
		"team_lead": "Lead X",
	})
	if err != nil {
		t.Fatal(err)
	}

	err = c.Post(fmt.Sprintf("/fiber-team/%v/update", teamId)).Json(map[string]interface{}{
		"status": "Vacationing",
	}).Do(nil)
	if err == nil {
		t.Fatal("expected invalid status to be rejected")
	}

	info, err := c.getFiberTeam(teamId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != "Available" {
		t.Fatalf("status changed despite rejection: %v", info.Status)
	}
}
