package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/lexbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
)

func TestJobRunRepoClaimOrder(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobRunRepo(db, testutil.Logger(t))
	now := time.Now().UTC()

	queued := &types.JobRun{
		ID:        uuid.New(),
		JobType:   "opportunity_regenerate",
		Status:    "queued",
		Stage:     "queued",
		Payload:   datatypes.JSON([]byte("{}")),
		Result:    datatypes.JSON([]byte("{}")),
		CreatedAt: now.Add(-3 * time.Hour),
		UpdatedAt: now.Add(-3 * time.Hour),
	}
	retryableFailed := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "opportunity_regenerate",
		Status:      "failed",
		Stage:       "run",
		Attempts:    1,
		LastErrorAt: ptrTime(now.Add(-2 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-2 * time.Hour),
		UpdatedAt:   now.Add(-2 * time.Hour),
	}
	staleRunning := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "opportunity_purge",
		Status:      "running",
		Stage:       "purge",
		Attempts:    1,
		HeartbeatAt: ptrTime(now.Add(-10 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-1 * time.Hour),
		UpdatedAt:   now.Add(-1 * time.Hour),
	}

	created, err := repo.Create(dbc, []*types.JobRun{queued, retryableFailed, staleRunning})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("Create: expected 3, got %d", len(created))
	}

	// Runnable rows come back in created_at ASC order: queued first, then
	// the retryable failure, then the stale running row.
	claim1, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #1: %v", err)
	}
	if claim1 == nil || claim1.ID != queued.ID {
		t.Fatalf("ClaimNextRunnable #1: expected %v got %+v", queued.ID, claim1)
	}

	claim2, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #2: %v", err)
	}
	if claim2 == nil || claim2.ID != retryableFailed.ID {
		t.Fatalf("ClaimNextRunnable #2: expected %v got %+v", retryableFailed.ID, claim2)
	}

	claim3, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #3: %v", err)
	}
	if claim3 == nil || claim3.ID != staleRunning.ID {
		t.Fatalf("ClaimNextRunnable #3: expected %v got %+v", staleRunning.ID, claim3)
	}

	claim4, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #4: %v", err)
	}
	if claim4 != nil {
		t.Fatalf("ClaimNextRunnable #4: expected nil, got %+v", claim4)
	}

	// The claim flips the row to running and bumps attempts even though the
	// returned snapshot still carries pre-claim values.
	rows, err := repo.GetByIDs(dbc, []uuid.UUID{queued.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs after claim: err=%v len=%d", err, len(rows))
	}
	if rows[0].Status != "running" {
		t.Fatalf("expected claimed row running, got %q", rows[0].Status)
	}
	if rows[0].Attempts != 1 {
		t.Fatalf("expected attempts bumped to 1, got %d", rows[0].Attempts)
	}
	if rows[0].HeartbeatAt == nil || rows[0].LockedAt == nil {
		t.Fatalf("expected heartbeat_at and locked_at set on claim")
	}
}

func TestJobRunRepoClaimSkipsIneligible(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobRunRepo(db, testutil.Logger(t))
	now := time.Now().UTC()

	exhausted := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "opportunity_regenerate",
		Status:      "failed",
		Stage:       "run",
		Attempts:    5,
		LastErrorAt: ptrTime(now.Add(-2 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-4 * time.Hour),
		UpdatedAt:   now.Add(-4 * time.Hour),
	}
	recentFailure := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "opportunity_regenerate",
		Status:      "failed",
		Stage:       "run",
		Attempts:    1,
		LastErrorAt: ptrTime(now.Add(-1 * time.Minute)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-3 * time.Hour),
		UpdatedAt:   now.Add(-3 * time.Hour),
	}
	healthyRunning := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "opportunity_purge",
		Status:      "running",
		Stage:       "purge",
		Attempts:    1,
		HeartbeatAt: ptrTime(now),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-2 * time.Hour),
		UpdatedAt:   now.Add(-2 * time.Hour),
	}
	canceled := &types.JobRun{
		ID:        uuid.New(),
		JobType:   "opportunity_purge",
		Status:    "canceled",
		Stage:     "canceled",
		Payload:   datatypes.JSON([]byte("{}")),
		Result:    datatypes.JSON([]byte("{}")),
		CreatedAt: now.Add(-1 * time.Hour),
		UpdatedAt: now.Add(-1 * time.Hour),
	}
	if _, err := repo.Create(dbc, []*types.JobRun{exhausted, recentFailure, healthyRunning, canceled}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	claim, err := repo.ClaimNextRunnable(dbc, 5, 30*time.Minute, 30*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claim != nil {
		t.Fatalf("expected no claimable row, got %+v", claim)
	}
}

func TestJobRunRepoUpdateFieldsUnlessStatus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobRunRepo(db, testutil.Logger(t))

	job := &types.JobRun{
		ID:      uuid.New(),
		JobType: "opportunity_regenerate",
		Status:  "running",
		Stage:   "run",
		Payload: datatypes.JSON([]byte("{}")),
		Result:  datatypes.JSON([]byte("{}")),
	}
	if _, err := repo.Create(dbc, []*types.JobRun{job}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	applied, err := repo.UpdateFieldsUnlessStatus(dbc, job.ID, []string{"canceled"}, map[string]interface{}{
		"progress": 40,
		"message":  "halfway",
	})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus: %v", err)
	}
	if !applied {
		t.Fatalf("expected update applied on running job")
	}

	if err := repo.UpdateFields(dbc, job.ID, map[string]interface{}{"status": "canceled", "stage": "canceled"}); err != nil {
		t.Fatalf("UpdateFields cancel: %v", err)
	}

	// A canceled row refuses further transitions.
	applied, err = repo.UpdateFieldsUnlessStatus(dbc, job.ID, []string{"canceled"}, map[string]interface{}{
		"status": "succeeded",
		"stage":  "done",
	})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus after cancel: %v", err)
	}
	if applied {
		t.Fatalf("expected update refused on canceled job")
	}

	rows, err := repo.GetByIDs(dbc, []uuid.UUID{job.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].Status != "canceled" {
		t.Fatalf("expected status canceled, got %q", rows[0].Status)
	}
	if rows[0].Progress != 40 || rows[0].Message != "halfway" {
		t.Fatalf("expected pre-cancel fields kept, got progress=%d message=%q", rows[0].Progress, rows[0].Message)
	}
}

func TestJobRunRepoHeartbeatOnlyTouchesRunning(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobRunRepo(db, testutil.Logger(t))

	running := &types.JobRun{
		ID:      uuid.New(),
		JobType: "opportunity_purge",
		Status:  "running",
		Stage:   "purge",
		Payload: datatypes.JSON([]byte("{}")),
		Result:  datatypes.JSON([]byte("{}")),
	}
	queued := &types.JobRun{
		ID:      uuid.New(),
		JobType: "opportunity_purge",
		Status:  "queued",
		Stage:   "queued",
		Payload: datatypes.JSON([]byte("{}")),
		Result:  datatypes.JSON([]byte("{}")),
	}
	if _, err := repo.Create(dbc, []*types.JobRun{running, queued}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Heartbeat(dbc, running.ID); err != nil {
		t.Fatalf("Heartbeat running: %v", err)
	}
	if err := repo.Heartbeat(dbc, queued.ID); err != nil {
		t.Fatalf("Heartbeat queued: %v", err)
	}

	rows, err := repo.GetByIDs(dbc, []uuid.UUID{running.ID, queued.ID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	for _, row := range rows {
		switch row.ID {
		case running.ID:
			if row.HeartbeatAt == nil {
				t.Fatalf("expected heartbeat set on running row")
			}
		case queued.ID:
			if row.HeartbeatAt != nil {
				t.Fatalf("expected queued row untouched by heartbeat")
			}
		}
	}
}

func TestJobRunRepoExistsRunnable(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobRunRepo(db, testutil.Logger(t))
	entityID := uuid.New()

	queued := &types.JobRun{
		ID:         uuid.New(),
		JobType:    "opportunity_regenerate",
		EntityType: "opportunity",
		EntityID:   &entityID,
		Status:     "queued",
		Stage:      "queued",
		Payload:    datatypes.JSON([]byte("{}")),
		Result:     datatypes.JSON([]byte("{}")),
	}
	done := &types.JobRun{
		ID:      uuid.New(),
		JobType: "opportunity_purge",
		Status:  "succeeded",
		Stage:   "done",
		Payload: datatypes.JSON([]byte("{}")),
		Result:  datatypes.JSON([]byte("{}")),
	}
	if _, err := repo.Create(dbc, []*types.JobRun{queued, done}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	exists, err := repo.ExistsRunnable(dbc, "opportunity_regenerate", "", nil)
	if err != nil {
		t.Fatalf("ExistsRunnable: %v", err)
	}
	if !exists {
		t.Fatalf("expected queued job to count as runnable")
	}

	exists, err = repo.ExistsRunnable(dbc, "opportunity_regenerate", "opportunity", &entityID)
	if err != nil {
		t.Fatalf("ExistsRunnable scoped: %v", err)
	}
	if !exists {
		t.Fatalf("expected scoped lookup to find the queued job")
	}

	exists, err = repo.ExistsRunnable(dbc, "opportunity_purge", "", nil)
	if err != nil {
		t.Fatalf("ExistsRunnable terminal: %v", err)
	}
	if exists {
		t.Fatalf("succeeded job must not count as runnable")
	}
}

func TestJobRunRepoGetLatestByTypeAndListRecent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobRunRepo(db, testutil.Logger(t))
	now := time.Now().UTC()

	older := &types.JobRun{
		ID:        uuid.New(),
		JobType:   "opportunity_regenerate",
		Status:    "succeeded",
		Stage:     "done",
		Payload:   datatypes.JSON([]byte("{}")),
		Result:    datatypes.JSON([]byte("{}")),
		CreatedAt: now.Add(-2 * time.Hour),
		UpdatedAt: now.Add(-2 * time.Hour),
	}
	newer := &types.JobRun{
		ID:        uuid.New(),
		JobType:   "opportunity_regenerate",
		Status:    "queued",
		Stage:     "queued",
		Payload:   datatypes.JSON([]byte("{}")),
		Result:    datatypes.JSON([]byte("{}")),
		CreatedAt: now.Add(-1 * time.Hour),
		UpdatedAt: now.Add(-1 * time.Hour),
	}
	other := &types.JobRun{
		ID:        uuid.New(),
		JobType:   "opportunity_purge",
		Status:    "queued",
		Stage:     "queued",
		Payload:   datatypes.JSON([]byte("{}")),
		Result:    datatypes.JSON([]byte("{}")),
		CreatedAt: now.Add(-30 * time.Minute),
		UpdatedAt: now.Add(-30 * time.Minute),
	}
	if _, err := repo.Create(dbc, []*types.JobRun{older, newer, other}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	latest, err := repo.GetLatestByType(dbc, "opportunity_regenerate")
	if err != nil {
		t.Fatalf("GetLatestByType: %v", err)
	}
	if latest == nil || latest.ID != newer.ID {
		t.Fatalf("GetLatestByType: expected %v got %+v", newer.ID, latest)
	}

	missing, err := repo.GetLatestByType(dbc, "no_such_type")
	if err != nil {
		t.Fatalf("GetLatestByType missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown job type, got %+v", missing)
	}

	recent, err := repo.ListRecent(dbc, "opportunity_regenerate", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != newer.ID || recent[1].ID != older.ID {
		t.Fatalf("ListRecent: expected [newer older], got %d rows", len(recent))
	}

	all, err := repo.ListRecent(dbc, "", 10)
	if err != nil {
		t.Fatalf("ListRecent all: %v", err)
	}
	if len(all) != 3 || all[0].ID != other.ID {
		t.Fatalf("ListRecent all: expected newest-first across types, got %d rows", len(all))
	}

	capped, err := repo.ListRecent(dbc, "", 1)
	if err != nil {
		t.Fatalf("ListRecent capped: %v", err)
	}
	if len(capped) != 1 {
		t.Fatalf("ListRecent capped: expected 1 row, got %d", len(capped))
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
