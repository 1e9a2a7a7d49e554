package steps

import (
	"encoding/json"
	"reflect"
	"testing"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/modules/opportunity/keys"
)

func decodeLangs(t *testing.T, raw []byte) []string {
	t.Helper()
	langs, err := types.DecodeStringList(raw)
	if err != nil {
		t.Fatalf("decode language list: %v", err)
	}
	if langs == nil {
		langs = []string{}
	}
	return langs
}

func TestBuildSummary_LanguageSetMath(t *testing.T) {
	t.Setenv("SUPPORTED_LANGUAGE_CODES", "de,en,es,fr,hi")

	exp := testExploration("en", 3,
		map[string]int{"fr": 3, "de": 3, "es": 1},
		[]string{"fr"})
	story := testStory("The River", chapterLinking("Springs", exp.ID))
	topic := testTopic("Rivers", story.ID)

	rec, err := BuildSummary(topic, story, chapterLinking("Springs", exp.ID), exp)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}

	if rec.ID != keys.SummaryKey(topic.ID, story.ID, exp.ID) {
		t.Fatalf("wrong composite id %q", rec.ID)
	}
	if rec.ContentCount != 3 {
		t.Fatalf("expected content count 3, got %d", rec.ContentCount)
	}

	// fr and de are complete (3/3); es is partial; en is the exploration's
	// own language and never counts as incomplete.
	incomplete := decodeLangs(t, rec.IncompleteTranslationLanguageCodes)
	if !reflect.DeepEqual(incomplete, []string{"es", "hi"}) {
		t.Fatalf("incomplete = %v", incomplete)
	}

	// Voice artists: complete languages plus en, minus the assigned fr.
	needing := decodeLangs(t, rec.LanguageCodesNeedingVoiceArtists)
	if !reflect.DeepEqual(needing, []string{"de", "en"}) {
		t.Fatalf("needing voice = %v", needing)
	}
	assigned := decodeLangs(t, rec.LanguageCodesWithAssignedVoiceArtists)
	if !reflect.DeepEqual(assigned, []string{"fr"}) {
		t.Fatalf("assigned voice = %v", assigned)
	}

	var counts map[string]int
	if err := json.Unmarshal(rec.TranslationCounts, &counts); err != nil {
		t.Fatalf("decode translation counts: %v", err)
	}
	if counts["fr"] != 3 || counts["es"] != 1 {
		t.Fatalf("translation counts = %v", counts)
	}

	if rec.TopicName != "Rivers" || rec.StoryTitle != "The River" || rec.ChapterTitle != "Springs" {
		t.Fatalf("names lost: %+v", rec)
	}
}

func TestBuildSummary_ZeroContentHasNoCompleteTranslations(t *testing.T) {
	t.Setenv("SUPPORTED_LANGUAGE_CODES", "en,fr,sw")

	exp := testExploration("en", 0, map[string]int{"fr": 0}, nil)
	story := testStory("Empty", chapterLinking("C", exp.ID))
	topic := testTopic("T", story.ID)

	rec, err := BuildSummary(topic, story, chapterLinking("C", exp.ID), exp)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if rec.ContentCount != 0 {
		t.Fatalf("expected content count 0, got %d", rec.ContentCount)
	}
	incomplete := decodeLangs(t, rec.IncompleteTranslationLanguageCodes)
	if !reflect.DeepEqual(incomplete, []string{"fr", "sw"}) {
		t.Fatalf("incomplete = %v", incomplete)
	}
	needing := decodeLangs(t, rec.LanguageCodesNeedingVoiceArtists)
	if !reflect.DeepEqual(needing, []string{"en"}) {
		t.Fatalf("needing voice = %v", needing)
	}
}

func TestBuildSummary_AssignedOwnLanguageNotNeedingVoice(t *testing.T) {
	t.Setenv("SUPPORTED_LANGUAGE_CODES", "en,fr")

	exp := testExploration("en", 1, nil, []string{"en"})
	story := testStory("S", chapterLinking("C", exp.ID))
	topic := testTopic("T", story.ID)

	rec, err := BuildSummary(topic, story, chapterLinking("C", exp.ID), exp)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	needing := decodeLangs(t, rec.LanguageCodesNeedingVoiceArtists)
	if len(needing) != 0 {
		t.Fatalf("expected nobody needing voice, got %v", needing)
	}
	assigned := decodeLangs(t, rec.LanguageCodesWithAssignedVoiceArtists)
	if !reflect.DeepEqual(assigned, []string{"en"}) {
		t.Fatalf("assigned = %v", assigned)
	}
}

func TestBuildSummary_NilInputsRejected(t *testing.T) {
	exp := testExploration("en", 1, nil, nil)
	story := testStory("S", chapterLinking("C", exp.ID))

	if _, err := BuildSummary(nil, story, types.Chapter{}, exp); err == nil {
		t.Fatalf("expected error for nil topic")
	}
	if _, err := BuildSummary(testTopic("T"), nil, types.Chapter{}, exp); err == nil {
		t.Fatalf("expected error for nil story")
	}
	if _, err := BuildSummary(testTopic("T"), story, types.Chapter{}, nil); err == nil {
		t.Fatalf("expected error for nil exploration")
	}
}
