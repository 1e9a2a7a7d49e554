package opportunity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OpportunitySummary is a derived row describing one translatable chapter:
// the join of a topic, one of its canonical stories, and the exploration a
// chapter links. ID is the deterministic digest of that triple, so
// regeneration overwrites rather than duplicates.
type OpportunitySummary struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id"`
	TopicID       uuid.UUID `gorm:"type:uuid;column:topic_id;not null;index" json:"topic_id"`
	TopicName     string    `gorm:"column:topic_name;not null" json:"topic_name"`
	StoryID       uuid.UUID `gorm:"type:uuid;column:story_id;not null;index" json:"story_id"`
	StoryTitle    string    `gorm:"column:story_title;not null" json:"story_title"`
	ChapterTitle  string    `gorm:"column:chapter_title" json:"chapter_title"`
	ExplorationID uuid.UUID `gorm:"type:uuid;column:exploration_id;not null;index" json:"exploration_id"`
	ContentCount  int       `gorm:"column:content_count;not null;default:0" json:"content_count"`

	IncompleteTranslationLanguageCodes    datatypes.JSON `gorm:"column:incomplete_translation_language_codes;type:jsonb" json:"incomplete_translation_language_codes"`
	TranslationCounts                     datatypes.JSON `gorm:"column:translation_counts;type:jsonb" json:"translation_counts"`
	LanguageCodesNeedingVoiceArtists      datatypes.JSON `gorm:"column:language_codes_needing_voice_artists;type:jsonb" json:"language_codes_needing_voice_artists"`
	LanguageCodesWithAssignedVoiceArtists datatypes.JSON `gorm:"column:language_codes_with_assigned_voice_artists;type:jsonb" json:"language_codes_with_assigned_voice_artists"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (OpportunitySummary) TableName() string { return "opportunity_summary" }
