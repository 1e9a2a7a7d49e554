package steps

import (
	"github.com/google/uuid"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
)

func testTopic(name string, storyIDs ...uuid.UUID) *types.Topic {
	return &types.Topic{
		ID:                uuid.New(),
		Name:              name,
		LanguageCode:      "en",
		CanonicalStoryIDs: types.EncodeUUIDList(storyIDs),
	}
}

func chapterLinking(title string, expID uuid.UUID) types.Chapter {
	id := expID
	return types.Chapter{Title: title, ExplorationID: &id}
}

func testStory(title string, chapters ...types.Chapter) *types.Story {
	return &types.Story{
		ID:           uuid.New(),
		Title:        title,
		LanguageCode: "en",
		Chapters:     types.EncodeChapters(chapters),
	}
}

func testExploration(lang string, unitCount int, translations map[string]int, voiceLangs []string) *types.Exploration {
	units := make([]string, 0, unitCount)
	for i := 0; i < unitCount; i++ {
		units = append(units, uuid.NewString())
	}
	return &types.Exploration{
		ID:                         uuid.New(),
		Title:                      "exploration",
		LanguageCode:               lang,
		ContentUnitIDs:             types.EncodeStringList(units),
		TranslationCounts:          types.EncodeTranslationCounts(translations),
		AssignedVoiceLanguageCodes: types.EncodeStringList(voiceLangs),
	}
}
