package steps

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/modules/opportunity/keys"
)

func TestReconcileTopic_EmitsOneSummaryPerLinkedChapter(t *testing.T) {
	e1 := testExploration("en", 2, map[string]int{"fr": 2}, nil)
	e2 := testExploration("en", 1, nil, nil)
	story := testStory("S1",
		chapterLinking("Chapter One", e1.ID),
		types.Chapter{Title: "Outline Only"},
		chapterLinking("Chapter Two", e2.ID),
	)
	topic := testTopic("T1", story.ID)

	out := reconcileTopic(topic,
		NewStoryTable([]*types.Story{story}),
		NewExplorationTable([]*types.Exploration{e1, e2}),
		nil)

	if out.Failed() {
		t.Fatalf("unexpected failure: %s", out.Failure)
	}
	if out.Report() != "SUCCESS" {
		t.Fatalf("expected SUCCESS report, got %q", out.Report())
	}
	if len(out.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out.Records))
	}
	if out.Records[0].ID != keys.SummaryKey(topic.ID, story.ID, e1.ID) {
		t.Fatalf("first record keyed %q, expected digest of (topic, story, e1)", out.Records[0].ID)
	}
	if out.Records[0].ChapterTitle != "Chapter One" || out.Records[1].ChapterTitle != "Chapter Two" {
		t.Fatalf("chapter titles wrong: %q / %q", out.Records[0].ChapterTitle, out.Records[1].ChapterTitle)
	}
	if out.Records[0].TopicName != "T1" || out.Records[0].StoryTitle != "S1" {
		t.Fatalf("projection lost names: %+v", out.Records[0])
	}
}

func TestReconcileTopic_MissingStorySuppressesWholeTopic(t *testing.T) {
	e1 := testExploration("en", 1, nil, nil)
	present := testStory("present", chapterLinking("C1", e1.ID))
	missingID := uuid.New()
	topic := testTopic("T2", present.ID, missingID)

	out := reconcileTopic(topic,
		NewStoryTable([]*types.Story{present}),
		NewExplorationTable([]*types.Exploration{e1}),
		nil)

	if !out.Failed() {
		t.Fatalf("expected failure for missing story")
	}
	if len(out.Records) != 0 {
		t.Fatalf("all-or-nothing violated: %d records emitted", len(out.Records))
	}
	if len(out.MissingStoryIDs) != 1 || out.MissingStoryIDs[0] != missingID {
		t.Fatalf("missing story ids wrong: %v", out.MissingStoryIDs)
	}
	if len(out.MissingExplorationIDs) != 0 {
		t.Fatalf("expected no missing explorations, got %v", out.MissingExplorationIDs)
	}
	report := out.Report()
	if !strings.HasPrefix(report, "FAILURE: ") {
		t.Fatalf("expected FAILURE report, got %q", report)
	}
	if !strings.Contains(report, topic.ID.String()) || !strings.Contains(report, missingID.String()) {
		t.Fatalf("report does not name topic and missing story: %q", report)
	}
	if !strings.Contains(report, "missing_story_with_ids") {
		t.Fatalf("report missing diagnostic label: %q", report)
	}
}

func TestReconcileTopic_MissingExplorationSuppressesWholeTopic(t *testing.T) {
	e1 := testExploration("en", 1, nil, nil)
	missingExp := uuid.New()
	story := testStory("S1",
		chapterLinking("C1", e1.ID),
		chapterLinking("C2", missingExp),
	)
	topic := testTopic("T3", story.ID)

	out := reconcileTopic(topic,
		NewStoryTable([]*types.Story{story}),
		NewExplorationTable([]*types.Exploration{e1}),
		nil)

	if !out.Failed() {
		t.Fatalf("expected failure for missing exploration")
	}
	if len(out.Records) != 0 {
		t.Fatalf("all-or-nothing violated: %d records emitted", len(out.Records))
	}
	if len(out.MissingExplorationIDs) != 1 || out.MissingExplorationIDs[0] != missingExp {
		t.Fatalf("missing exploration ids wrong: %v", out.MissingExplorationIDs)
	}
	if !strings.Contains(out.Failure, "missing_exp_with_ids") {
		t.Fatalf("diagnostic missing label: %q", out.Failure)
	}
}

func TestReconcileTopic_ZeroStoriesIsSuccessNotFailure(t *testing.T) {
	topic := testTopic("empty")

	out := reconcileTopic(topic, NewStoryTable(nil), NewExplorationTable(nil), nil)
	if out.Failed() {
		t.Fatalf("empty topic must not fail: %s", out.Failure)
	}
	if len(out.Records) != 0 {
		t.Fatalf("expected zero records, got %d", len(out.Records))
	}
	if out.Report() != "SUCCESS" {
		t.Fatalf("expected SUCCESS, got %q", out.Report())
	}
}

func TestReconcileTopic_DuplicateChapterLinksEmitOneSummaryEach(t *testing.T) {
	exp := testExploration("en", 1, nil, nil)
	story := testStory("S1",
		chapterLinking("First Pass", exp.ID),
		chapterLinking("Second Pass", exp.ID),
	)
	topic := testTopic("T4", story.ID)

	out := reconcileTopic(topic,
		NewStoryTable([]*types.Story{story}),
		NewExplorationTable([]*types.Exploration{exp}),
		nil)

	if out.Failed() {
		t.Fatalf("unexpected failure: %s", out.Failure)
	}
	if len(out.Records) != 2 {
		t.Fatalf("expected one summary per chapter link, got %d", len(out.Records))
	}
	if out.Records[0].ID != out.Records[1].ID {
		t.Fatalf("same triple must share the digest id: %q vs %q", out.Records[0].ID, out.Records[1].ID)
	}
	if out.Records[0].ChapterTitle == out.Records[1].ChapterTitle {
		t.Fatalf("chapter titles should differ, both %q", out.Records[0].ChapterTitle)
	}
}

func TestReconcileTopic_StoryListedTwiceProcessedOnce(t *testing.T) {
	exp := testExploration("en", 1, nil, nil)
	story := testStory("S1", chapterLinking("C1", exp.ID))
	topic := testTopic("T5", story.ID, story.ID)

	out := reconcileTopic(topic,
		NewStoryTable([]*types.Story{story}),
		NewExplorationTable([]*types.Exploration{exp}),
		nil)

	if out.Failed() {
		t.Fatalf("unexpected failure: %s", out.Failure)
	}
	if len(out.Records) != 1 {
		t.Fatalf("duplicated canonical entry must not double output, got %d records", len(out.Records))
	}
}

func TestReconcileTopic_RecordsFollowCanonicalOrder(t *testing.T) {
	e1 := testExploration("en", 1, nil, nil)
	e2 := testExploration("en", 1, nil, nil)
	sA := testStory("A", chapterLinking("CA", e1.ID))
	sB := testStory("B", chapterLinking("CB", e2.ID))
	// Canonical order is B then A, regardless of snapshot order.
	topic := testTopic("T6", sB.ID, sA.ID)

	out := reconcileTopic(topic,
		NewStoryTable([]*types.Story{sA, sB}),
		NewExplorationTable([]*types.Exploration{e1, e2}),
		nil)

	if out.Failed() {
		t.Fatalf("unexpected failure: %s", out.Failure)
	}
	if len(out.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out.Records))
	}
	if out.Records[0].StoryTitle != "B" || out.Records[1].StoryTitle != "A" {
		t.Fatalf("records out of canonical order: %q then %q", out.Records[0].StoryTitle, out.Records[1].StoryTitle)
	}
}

func TestReconcileTopic_ProjectionPanicBecomesFailureOutcome(t *testing.T) {
	exp := testExploration("en", 1, nil, nil)
	story := testStory("S1", chapterLinking("C1", exp.ID))
	topic := testTopic("T7", story.ID)

	boom := func(*types.Topic, *types.Story, types.Chapter, *types.Exploration) (*types.OpportunitySummary, error) {
		panic("projection exploded")
	}
	out := reconcileTopic(topic,
		NewStoryTable([]*types.Story{story}),
		NewExplorationTable([]*types.Exploration{exp}),
		boom)

	if !out.Failed() {
		t.Fatalf("expected failure outcome from panic")
	}
	if len(out.Records) != 0 {
		t.Fatalf("expected zero records after panic, got %d", len(out.Records))
	}
	if !strings.Contains(out.Failure, "projection exploded") {
		t.Fatalf("panic text lost: %q", out.Failure)
	}
	if out.TopicID != topic.ID {
		t.Fatalf("failure outcome lost topic id: %s", out.TopicID)
	}
}

func TestReconcileTopic_ProjectionErrorBecomesFailureOutcome(t *testing.T) {
	exp := testExploration("en", 1, nil, nil)
	story := testStory("S1", chapterLinking("C1", exp.ID))
	topic := testTopic("T8", story.ID)

	failing := func(*types.Topic, *types.Story, types.Chapter, *types.Exploration) (*types.OpportunitySummary, error) {
		return nil, fmt.Errorf("no metadata available")
	}
	out := reconcileTopic(topic,
		NewStoryTable([]*types.Story{story}),
		NewExplorationTable([]*types.Exploration{exp}),
		failing)

	if !out.Failed() || !strings.Contains(out.Failure, "no metadata available") {
		t.Fatalf("expected projection error in failure, got %q", out.Failure)
	}
	if len(out.Records) != 0 {
		t.Fatalf("expected zero records, got %d", len(out.Records))
	}
}

func TestReconcileTopic_MalformedCanonicalListFails(t *testing.T) {
	topic := testTopic("broken")
	topic.CanonicalStoryIDs = datatypes.JSON([]byte(`{"not":"a list"}`))

	out := reconcileTopic(topic, NewStoryTable(nil), NewExplorationTable(nil), nil)
	if !out.Failed() {
		t.Fatalf("expected failure for malformed canonical list")
	}
	if len(out.Records) != 0 {
		t.Fatalf("expected zero records, got %d", len(out.Records))
	}
}
