package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func TestExtractCompositeChildJobIDs(t *testing.T) {
	childA := uuid.New()
	childB := uuid.New()
	raw, _ := json.Marshal(map[string]any{
		"stages": map[string]any{
			"purge":      map[string]any{"child_job_id": childA.String(), "status": "succeeded"},
			"regenerate": map[string]any{"child_job_id": childB.String(), "status": "waiting_child"},
			"noop":       map[string]any{"status": "pending"},
		},
	})

	ids := extractCompositeChildJobIDs(datatypes.JSON(raw))
	if len(ids) != 2 {
		t.Fatalf("expected 2 child ids, got %d", len(ids))
	}
	found := map[uuid.UUID]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[childA] || !found[childB] {
		t.Fatalf("missing expected child ids: %v", ids)
	}

	if got := extractCompositeChildJobIDs(nil); got != nil {
		t.Fatalf("nil result should yield nil, got %v", got)
	}
	if got := extractCompositeChildJobIDs(datatypes.JSON(`{"stages":{}}`)); len(got) != 0 {
		t.Fatalf("empty stages should yield nothing, got %v", got)
	}
}

func TestResetCompositeStateForRestart(t *testing.T) {
	child := uuid.New()
	raw, _ := json.Marshal(map[string]any{
		"wait_until":    "2026-01-02T15:04:05Z",
		"last_progress": 40,
		"stages": map[string]any{
			"purge": map[string]any{
				"status":       "succeeded",
				"child_job_id": child.String(),
			},
			"regenerate": map[string]any{
				"status":         "failed",
				"child_job_id":   child.String(),
				"child_progress": 55,
				"last_error":     "boom",
			},
		},
	})

	got := resetCompositeStateForRestart(datatypes.JSON(raw))

	var obj map[string]any
	if err := json.Unmarshal(got, &obj); err != nil {
		t.Fatalf("unmarshal reset state: %v", err)
	}
	if obj["wait_until"] != nil {
		t.Fatalf("wait_until should be cleared, got %v", obj["wait_until"])
	}
	if pct, _ := obj["last_progress"].(float64); pct != 0 {
		t.Fatalf("last_progress should be 0, got %v", obj["last_progress"])
	}

	stages := obj["stages"].(map[string]any)
	purge := stages["purge"].(map[string]any)
	if purge["status"] != "succeeded" {
		t.Fatalf("succeeded stage should be preserved, got %v", purge["status"])
	}
	if purge["child_job_id"] == nil {
		t.Fatalf("succeeded stage should keep its child job id")
	}

	regen := stages["regenerate"].(map[string]any)
	if regen["status"] != "pending" {
		t.Fatalf("failed stage should reset to pending, got %v", regen["status"])
	}
	for _, key := range []string{"child_job_id", "child_progress", "last_error"} {
		if _, ok := regen[key]; ok {
			t.Fatalf("reset stage should drop %q", key)
		}
	}
}

func TestResetCompositeStateForRestartPassthrough(t *testing.T) {
	if got := resetCompositeStateForRestart(nil); got != nil {
		t.Fatalf("nil result should pass through, got %v", got)
	}
	bad := datatypes.JSON(`not-json`)
	if got := resetCompositeStateForRestart(bad); string(got) != string(bad) {
		t.Fatalf("invalid json should pass through unchanged")
	}
}

func TestIsCompositeJobType(t *testing.T) {
	if !isCompositeJobType("opportunity_refresh") {
		t.Fatalf("opportunity_refresh should be composite")
	}
	if !isCompositeJobType("  Opportunity_Refresh  ") {
		t.Fatalf("composite check should be case and whitespace insensitive")
	}
	if isCompositeJobType("opportunity_regenerate") {
		t.Fatalf("opportunity_regenerate is not composite")
	}
}
