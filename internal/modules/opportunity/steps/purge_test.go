package steps

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
)

func TestPurge_DeletesEverythingAndReportsCount(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	deps := PurgeDeps{
		DB:        tx,
		Log:       log,
		Summaries: repos.NewOpportunitySummaryRepo(tx, log),
	}

	topicID, storyID := uuid.New(), uuid.New()
	testutil.SeedOpportunitySummary(t, ctx, tx, "purge-a", topicID, storyID, uuid.New())
	testutil.SeedOpportunitySummary(t, ctx, tx, "purge-b", topicID, storyID, uuid.New())
	testutil.SeedOpportunitySummary(t, ctx, tx, "purge-c", topicID, storyID, uuid.New())

	out, err := Purge(ctx, deps, PurgeInput{})
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if out.Deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", out.Deleted)
	}
	if len(out.Reports) != 1 || out.Reports[0] != "SUCCESS 3" {
		t.Fatalf("expected single SUCCESS 3 report, got %v", out.Reports)
	}

	rows, err := deps.Summaries.ListAll(dbctx.Context{Ctx: ctx, Tx: tx})
	if err != nil {
		t.Fatalf("list after purge: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty dataset after purge, got %d rows", len(rows))
	}
}

func TestPurge_EmptyDatasetReportsNothing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	deps := PurgeDeps{
		DB:        tx,
		Log:       log,
		Summaries: repos.NewOpportunitySummaryRepo(tx, log),
	}

	out, err := Purge(ctx, deps, PurgeInput{})
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if out.Deleted != 0 {
		t.Fatalf("expected nothing deleted, got %d", out.Deleted)
	}
	if len(out.Reports) != 0 {
		t.Fatalf("no-op purge must not report, got %v", out.Reports)
	}
}
