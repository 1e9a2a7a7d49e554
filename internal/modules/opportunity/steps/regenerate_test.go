package steps

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/modules/opportunity/keys"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
)

func regenerateDepsForTest(t *testing.T) (RegenerateDeps, context.Context) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	return RegenerateDeps{
		DB:           tx,
		Log:          log,
		Topics:       repos.NewTopicRepo(tx, log),
		Stories:      repos.NewStoryRepo(tx, log),
		Explorations: repos.NewExplorationRepo(tx, log),
		Summaries:    repos.NewOpportunitySummaryRepo(tx, log),
	}, context.Background()
}

func TestRegenerate_WritesSummariesAndIsolatesBrokenTopics(t *testing.T) {
	deps, ctx := regenerateDepsForTest(t)
	tx := deps.DB

	e1 := testutil.SeedExploration(t, ctx, tx, "E1", []string{"u1", "u2"}, map[string]int{"fr": 2}, nil)
	e2 := testutil.SeedExploration(t, ctx, tx, "E2", []string{"u1"}, nil, nil)
	s1 := testutil.SeedStory(t, ctx, tx, "S1", []types.Chapter{
		{Title: "C1", ExplorationID: testutil.PtrUUID(e1.ID)},
		{Title: "C2", ExplorationID: testutil.PtrUUID(e2.ID)},
	})
	good := testutil.SeedTopic(t, ctx, tx, "Good", []uuid.UUID{s1.ID})

	missingStory := uuid.New()
	bad := testutil.SeedTopic(t, ctx, tx, "Bad", []uuid.UUID{missingStory})

	out, err := Regenerate(ctx, deps, RegenerateInput{})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if out.TopicsProcessed != 2 {
		t.Fatalf("expected 2 topics processed, got %d", out.TopicsProcessed)
	}
	if out.TopicsFailed != 1 {
		t.Fatalf("expected 1 failed topic, got %d", out.TopicsFailed)
	}
	if out.SummariesWritten != 2 {
		t.Fatalf("expected 2 summaries written, got %d", out.SummariesWritten)
	}
	if len(out.Reports) != 2 {
		t.Fatalf("expected one report per topic, got %d", len(out.Reports))
	}

	var successes, failures int
	for _, r := range out.Reports {
		switch {
		case r == "SUCCESS":
			successes++
		case strings.HasPrefix(r, "FAILURE: "):
			failures++
			if !strings.Contains(r, bad.ID.String()) || !strings.Contains(r, missingStory.String()) {
				t.Fatalf("failure report does not name topic and missing story: %q", r)
			}
		default:
			t.Fatalf("unexpected report line %q", r)
		}
	}
	if successes != 1 || failures != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %d/%d", successes, failures)
	}

	rows, err := deps.Summaries.ListAll(dbctx.Context{Ctx: ctx, Tx: tx})
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 persisted summaries, got %d", len(rows))
	}
	wantIDs := []string{
		keys.SummaryKey(good.ID, s1.ID, e1.ID),
		keys.SummaryKey(good.ID, s1.ID, e2.ID),
	}
	sort.Strings(wantIDs)
	gotIDs := []string{rows[0].ID, rows[1].ID}
	sort.Strings(gotIDs)
	if gotIDs[0] != wantIDs[0] || gotIDs[1] != wantIDs[1] {
		t.Fatalf("persisted ids %v, want %v", gotIDs, wantIDs)
	}
	for _, row := range rows {
		if row.TopicID != good.ID {
			t.Fatalf("summary written for wrong topic: %s", row.TopicID)
		}
	}
}

func TestRegenerate_SecondRunOverwritesInsteadOfAccumulating(t *testing.T) {
	deps, ctx := regenerateDepsForTest(t)
	tx := deps.DB

	exp := testutil.SeedExploration(t, ctx, tx, "E", []string{"u1"}, nil, nil)
	story := testutil.SeedStory(t, ctx, tx, "S", []types.Chapter{
		{Title: "C", ExplorationID: testutil.PtrUUID(exp.ID)},
	})
	testutil.SeedTopic(t, ctx, tx, "T", []uuid.UUID{story.ID})

	first, err := Regenerate(ctx, deps, RegenerateInput{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Regenerate(ctx, deps, RegenerateInput{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.SummariesWritten != 1 || second.SummariesWritten != 1 {
		t.Fatalf("expected 1 summary per run, got %d then %d", first.SummariesWritten, second.SummariesWritten)
	}

	count, err := deps.Summaries.Count(dbctx.Context{Ctx: ctx, Tx: tx})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("regeneration accumulated rows: count=%d", count)
	}
}

func TestRegenerate_FaultInOneTopicDoesNotBlockOthers(t *testing.T) {
	deps, ctx := regenerateDepsForTest(t)
	tx := deps.DB

	eA := testutil.SeedExploration(t, ctx, tx, "EA", []string{"u1"}, nil, nil)
	sA := testutil.SeedStory(t, ctx, tx, "SA", []types.Chapter{
		{Title: "CA", ExplorationID: testutil.PtrUUID(eA.ID)},
	})
	topicA := testutil.SeedTopic(t, ctx, tx, "A", []uuid.UUID{sA.ID})

	eB := testutil.SeedExploration(t, ctx, tx, "EB", []string{"u1"}, nil, nil)
	sB := testutil.SeedStory(t, ctx, tx, "SB", []types.Chapter{
		{Title: "CB", ExplorationID: testutil.PtrUUID(eB.ID)},
	})
	topicB := testutil.SeedTopic(t, ctx, tx, "B", []uuid.UUID{sB.ID})

	deps.Project = func(topic *types.Topic, story *types.Story, chapter types.Chapter, exp *types.Exploration) (*types.OpportunitySummary, error) {
		if topic.ID == topicA.ID {
			panic("injected fault")
		}
		return BuildSummary(topic, story, chapter, exp)
	}

	out, err := Regenerate(ctx, deps, RegenerateInput{})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if out.TopicsFailed != 1 {
		t.Fatalf("expected exactly the faulted topic to fail, got %d", out.TopicsFailed)
	}
	if out.SummariesWritten != 1 {
		t.Fatalf("expected the healthy topic's summary, got %d", out.SummariesWritten)
	}

	rows, err := deps.Summaries.ListAll(dbctx.Context{Ctx: ctx, Tx: tx})
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(rows) != 1 || rows[0].TopicID != topicB.ID {
		t.Fatalf("expected one summary for topic B, got %+v", rows)
	}
}

func TestRegenerate_MissingDepsRejected(t *testing.T) {
	if _, err := Regenerate(context.Background(), RegenerateDeps{}, RegenerateInput{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}
