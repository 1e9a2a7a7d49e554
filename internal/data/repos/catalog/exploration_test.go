package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
)

func TestExplorationRepoTranslationState(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewExplorationRepo(db, testutil.Logger(t))

	exp := &types.Exploration{
		ID:             uuid.New(),
		Title:          "Fractions on a number line",
		LanguageCode:   "en",
		ContentUnitIDs: types.EncodeStringList([]string{"content_0", "content_1", "content_2"}),
		TranslationCounts: types.EncodeTranslationCounts(map[string]int{
			"pt": 3,
			"sw": 1,
		}),
		AssignedVoiceLanguageCodes: types.EncodeStringList([]string{"pt"}),
	}
	if _, err := repo.Create(dbc, []*types.Exploration{exp}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(dbc, exp.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%+v", err, got)
	}

	count, err := got.ContentCount()
	if err != nil {
		t.Fatalf("ContentCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("ContentCount: expected 3, got %d", count)
	}

	counts, err := got.TranslationCountByLanguage()
	if err != nil {
		t.Fatalf("TranslationCountByLanguage: %v", err)
	}
	if counts["pt"] != 3 || counts["sw"] != 1 {
		t.Fatalf("TranslationCountByLanguage: got %v", counts)
	}

	voices, err := got.AssignedVoiceLanguages()
	if err != nil {
		t.Fatalf("AssignedVoiceLanguages: %v", err)
	}
	if len(voices) != 1 || voices[0] != "pt" {
		t.Fatalf("AssignedVoiceLanguages: expected [pt], got %v", voices)
	}

	// Updating translation counts in place is how ingest keeps rows fresh.
	if err := repo.UpdateFields(dbc, exp.ID, map[string]interface{}{
		"translation_counts": types.EncodeTranslationCounts(map[string]int{"pt": 3, "sw": 3}),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	refreshed, err := repo.GetByID(dbc, exp.ID)
	if err != nil || refreshed == nil {
		t.Fatalf("GetByID refreshed: err=%v", err)
	}
	counts, err = refreshed.TranslationCountByLanguage()
	if err != nil {
		t.Fatalf("TranslationCountByLanguage refreshed: %v", err)
	}
	if counts["sw"] != 3 {
		t.Fatalf("expected sw bumped to 3, got %v", counts)
	}

	// Empty catalog state decodes to empty, not nil-map panics.
	bare := &types.Exploration{
		ID:           uuid.New(),
		Title:        "Untranslated draft",
		LanguageCode: "en",
	}
	if _, err := repo.Create(dbc, []*types.Exploration{bare}); err != nil {
		t.Fatalf("Create bare: %v", err)
	}
	gotBare, err := repo.GetByID(dbc, bare.ID)
	if err != nil || gotBare == nil {
		t.Fatalf("GetByID bare: err=%v", err)
	}
	bareCounts, err := gotBare.TranslationCountByLanguage()
	if err != nil {
		t.Fatalf("TranslationCountByLanguage bare: %v", err)
	}
	if len(bareCounts) != 0 {
		t.Fatalf("expected empty counts for bare exploration, got %v", bareCounts)
	}

	total, err := repo.Count(dbc)
	if err != nil || total != 2 {
		t.Fatalf("Count: err=%v count=%d", err, total)
	}
}
