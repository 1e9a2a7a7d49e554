package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/domain/catalog"
)

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, storyIDs []uuid.UUID) *types.Topic {
	tb.Helper()
	t := &types.Topic{
		ID:                uuid.New(),
		Name:              name,
		LanguageCode:      "en",
		CanonicalStoryIDs: catalog.EncodeUUIDList(storyIDs),
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

func SeedStory(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, chapters []types.Chapter) *types.Story {
	tb.Helper()
	s := &types.Story{
		ID:           uuid.New(),
		Title:        title,
		LanguageCode: "en",
		Chapters:     catalog.EncodeChapters(chapters),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed story: %v", err)
	}
	return s
}

func SeedExploration(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, units []string, translations map[string]int, voiceLangs []string) *types.Exploration {
	tb.Helper()
	e := &types.Exploration{
		ID:                         uuid.New(),
		Title:                      title,
		LanguageCode:               "en",
		ContentUnitIDs:             catalog.EncodeStringList(units),
		TranslationCounts:          catalog.EncodeTranslationCounts(translations),
		AssignedVoiceLanguageCodes: catalog.EncodeStringList(voiceLangs),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed exploration: %v", err)
	}
	return e
}

func SeedOpportunitySummary(tb testing.TB, ctx context.Context, tx *gorm.DB, id string, topicID, storyID, expID uuid.UUID) *types.OpportunitySummary {
	tb.Helper()
	s := &types.OpportunitySummary{
		ID:            id,
		TopicID:       topicID,
		TopicName:     "topic",
		StoryID:       storyID,
		StoryTitle:    "story",
		ChapterTitle:  "chapter",
		ExplorationID: expID,
		ContentCount:  1,

		IncompleteTranslationLanguageCodes:    datatypes.JSON([]byte("[]")),
		TranslationCounts:                     datatypes.JSON([]byte("{}")),
		LanguageCodesNeedingVoiceArtists:      datatypes.JSON([]byte("[]")),
		LanguageCodesWithAssignedVoiceArtists: datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed opportunity summary: %v", err)
	}
	return s
}

func SeedJobRun(tb testing.TB, ctx context.Context, tx *gorm.DB, jobType, status string) *types.JobRun {
	tb.Helper()
	j := &types.JobRun{
		ID:      uuid.New(),
		JobType: jobType,
		Status:  status,
		Stage:   status,
		Payload: datatypes.JSON([]byte("{}")),
		Result:  datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job run: %v", err)
	}
	return j
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
