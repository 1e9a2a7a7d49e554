package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Topic is a curated collection of stories. CanonicalStoryIDs is the
// ordered list of story references that defines the topic's published
// sequence; entries may point at stories that no longer exist.
type Topic struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string         `gorm:"column:name;not null;index" json:"name"`
	Description       string         `gorm:"column:description;type:text" json:"description,omitempty"`
	LanguageCode      string         `gorm:"column:language_code;not null" json:"language_code"`
	CanonicalStoryIDs datatypes.JSON `gorm:"column:canonical_story_ids;type:jsonb" json:"canonical_story_ids"`
	CreatedAt         time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Topic) TableName() string { return "topic" }

// StoryIDs decodes the canonical story reference list in declared order.
func (t *Topic) StoryIDs() ([]uuid.UUID, error) {
	return DecodeUUIDList(t.CanonicalStoryIDs)
}
