package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Chapter is one entry of a story's chapter sequence, stored inline on the
// story row. A chapter without an exploration reference is an outline stub.
type Chapter struct {
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	ExplorationID *uuid.UUID `json:"exploration_id,omitempty"`
}

type Story struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string         `gorm:"column:title;not null;index" json:"title"`
	Description  string         `gorm:"column:description;type:text" json:"description,omitempty"`
	LanguageCode string         `gorm:"column:language_code;not null" json:"language_code"`
	Chapters     datatypes.JSON `gorm:"column:chapters;type:jsonb" json:"chapters"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Story) TableName() string { return "story" }

// ChapterList decodes the chapter sequence in stored order.
func (s *Story) ChapterList() ([]Chapter, error) {
	return DecodeChapters(s.Chapters)
}

// LinkedExplorationIDs returns the exploration references of every chapter
// that has one, in chapter order. Duplicates are kept; callers that need a
// set dedupe themselves.
func (s *Story) LinkedExplorationIDs() ([]uuid.UUID, error) {
	chapters, err := s.ChapterList()
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(chapters))
	for _, ch := range chapters {
		if ch.ExplorationID == nil || *ch.ExplorationID == uuid.Nil {
			continue
		}
		out = append(out, *ch.ExplorationID)
	}
	return out, nil
}

func DecodeChapters(raw datatypes.JSON) ([]Chapter, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var chapters []Chapter
	if err := json.Unmarshal(raw, &chapters); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}
	return chapters, nil
}

func EncodeChapters(chapters []Chapter) datatypes.JSON {
	if len(chapters) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	b, err := json.Marshal(chapters)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}
