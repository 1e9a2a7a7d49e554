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

func TestJobRunEventRepoLedger(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobRunEventRepo(db, testutil.Logger(t))
	jobID := uuid.New()
	otherJobID := uuid.New()
	now := time.Now().UTC()

	events := []*types.JobRunEvent{
		{
			ID:        uuid.New(),
			JobID:     jobID,
			JobType:   "opportunity_regenerate",
			Kind:      string(types.JobEventCreated),
			Status:    "queued",
			Stage:     "queued",
			CreatedAt: now.Add(-3 * time.Minute),
		},
		{
			ID:        uuid.New(),
			JobID:     jobID,
			JobType:   "opportunity_regenerate",
			Kind:      string(types.JobEventReport),
			Status:    "running",
			Stage:     "reconcile",
			Message:   "SUCCESS 12",
			Data:      datatypes.JSON([]byte(`{"topic_id":"abc"}`)),
			CreatedAt: now.Add(-2 * time.Minute),
		},
		{
			ID:        uuid.New(),
			JobID:     jobID,
			JobType:   "opportunity_regenerate",
			Kind:      string(types.JobEventSucceeded),
			Status:    "succeeded",
			Stage:     "done",
			Progress:  100,
			CreatedAt: now.Add(-1 * time.Minute),
		},
		{
			ID:        uuid.New(),
			JobID:     otherJobID,
			JobType:   "opportunity_purge",
			Kind:      string(types.JobEventReport),
			Status:    "running",
			Stage:     "purge",
			Message:   "SUCCESS 4",
			CreatedAt: now.Add(-90 * time.Second),
		},
	}
	if err := repo.Append(dbc, events); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Appending nothing is a no-op, not an error.
	if err := repo.Append(dbc, nil); err != nil {
		t.Fatalf("Append empty: %v", err)
	}

	got, err := repo.ListByJob(dbc, jobID, 0)
	if err != nil {
		t.Fatalf("ListByJob: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListByJob: expected 3 events, got %d", len(got))
	}
	if got[0].Kind != string(types.JobEventCreated) || got[2].Kind != string(types.JobEventSucceeded) {
		t.Fatalf("ListByJob: expected created..succeeded in append order, got %q..%q", got[0].Kind, got[2].Kind)
	}

	limited, err := repo.ListByJob(dbc, jobID, 2)
	if err != nil {
		t.Fatalf("ListByJob limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("ListByJob limited: expected 2 events, got %d", len(limited))
	}

	reports, err := repo.ListByJobAndKind(dbc, jobID, types.JobEventReport)
	if err != nil {
		t.Fatalf("ListByJobAndKind: %v", err)
	}
	if len(reports) != 1 || reports[0].Message != "SUCCESS 12" {
		t.Fatalf("ListByJobAndKind: expected the single report line, got %d rows", len(reports))
	}

	none, err := repo.ListByJobAndKind(dbc, uuid.Nil, types.JobEventReport)
	if err != nil {
		t.Fatalf("ListByJobAndKind nil id: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("ListByJobAndKind nil id: expected no rows, got %d", len(none))
	}
}
