package opportunity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/modules/opportunity/keys"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
)

func summaryRow(topicID, storyID, expID uuid.UUID, topicName string) *types.OpportunitySummary {
	return &types.OpportunitySummary{
		ID:            keys.SummaryKey(topicID, storyID, expID),
		TopicID:       topicID,
		TopicName:     topicName,
		StoryID:       storyID,
		StoryTitle:    "Story",
		ChapterTitle:  "Chapter",
		ExplorationID: expID,
		ContentCount:  5,

		IncompleteTranslationLanguageCodes:    types.EncodeStringList([]string{"pt", "sw"}),
		TranslationCounts:                     types.EncodeTranslationCounts(map[string]int{"pt": 2}),
		LanguageCodesNeedingVoiceArtists:      types.EncodeStringList([]string{"en"}),
		LanguageCodesWithAssignedVoiceArtists: types.EncodeStringList(nil),
	}
}

func TestOpportunitySummaryRepoUpsertOverwrites(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewOpportunitySummaryRepo(db, testutil.Logger(t))

	topicID := uuid.New()
	storyID := uuid.New()
	expID := uuid.New()

	first := summaryRow(topicID, storyID, expID, "Science")
	if err := repo.Upsert(dbc, []*types.OpportunitySummary{first}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// The digest id pins the row: a rerun with new field values lands on
	// the same row instead of inserting a second one.
	second := summaryRow(topicID, storyID, expID, "Science (renamed)")
	second.ContentCount = 9
	if err := repo.Upsert(dbc, []*types.OpportunitySummary{second}); err != nil {
		t.Fatalf("Upsert rerun: %v", err)
	}

	count, err := repo.Count(dbc)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single row after rerun, got %d", count)
	}

	rows, err := repo.GetByIDs(dbc, []string{first.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].TopicName != "Science (renamed)" || rows[0].ContentCount != 9 {
		t.Fatalf("expected rerun values, got name=%q count=%d", rows[0].TopicName, rows[0].ContentCount)
	}
}

func TestOpportunitySummaryRepoListAndDelete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewOpportunitySummaryRepo(db, testutil.Logger(t))

	topicA := uuid.New()
	topicB := uuid.New()

	rowA1 := summaryRow(topicA, uuid.New(), uuid.New(), "Topic A")
	rowA2 := summaryRow(topicA, uuid.New(), uuid.New(), "Topic A")
	rowB := summaryRow(topicB, uuid.New(), uuid.New(), "Topic B")

	if err := repo.Upsert(dbc, []*types.OpportunitySummary{rowA1, rowA2, rowB}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	byTopic, err := repo.ListByTopic(dbc, topicA)
	if err != nil {
		t.Fatalf("ListByTopic: %v", err)
	}
	if len(byTopic) != 2 {
		t.Fatalf("ListByTopic: expected 2 rows for topic A, got %d", len(byTopic))
	}
	for _, row := range byTopic {
		if row.TopicID != topicA {
			t.Fatalf("ListByTopic: row for wrong topic %v", row.TopicID)
		}
	}

	all, err := repo.ListAll(dbc)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll: expected 3, got %d", len(all))
	}

	page, err := repo.List(dbc, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("List: expected page of 2, got %d", len(page))
	}
	rest, err := repo.List(dbc, 2, 2)
	if err != nil {
		t.Fatalf("List offset: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("List offset: expected 1 remaining, got %d", len(rest))
	}

	// Purge uses hard deletes so a later regeneration starts from nothing.
	if err := repo.FullDeleteByIDs(dbc, []string{rowA1.ID, rowA2.ID, rowB.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	count, err := repo.Count(dbc)
	if err != nil {
		t.Fatalf("Count after delete: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table after full delete, got %d", count)
	}

	// Reinserting a previously purged id must succeed outright.
	if err := repo.Upsert(dbc, []*types.OpportunitySummary{summaryRow(topicA, uuid.New(), uuid.New(), "Topic A")}); err != nil {
		t.Fatalf("Upsert after purge: %v", err)
	}
}
