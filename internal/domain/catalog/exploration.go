package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Exploration is an interactive lesson. ContentUnitIDs lists its
// translatable unit ids; TranslationCounts tracks translated units per
// language; AssignedVoiceLanguageCodes lists languages that already have a
// voice artist.
type Exploration struct {
	ID                         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title                      string         `gorm:"column:title;not null;index" json:"title"`
	LanguageCode               string         `gorm:"column:language_code;not null" json:"language_code"`
	ContentUnitIDs             datatypes.JSON `gorm:"column:content_unit_ids;type:jsonb" json:"content_unit_ids"`
	TranslationCounts          datatypes.JSON `gorm:"column:translation_counts;type:jsonb" json:"translation_counts"`
	AssignedVoiceLanguageCodes datatypes.JSON `gorm:"column:assigned_voice_language_codes;type:jsonb" json:"assigned_voice_language_codes"`
	CreatedAt                  time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt                  time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt                  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Exploration) TableName() string { return "exploration" }

func (e *Exploration) UnitIDs() ([]string, error) {
	return DecodeStringList(e.ContentUnitIDs)
}

// ContentCount is the number of translatable units.
func (e *Exploration) ContentCount() (int, error) {
	units, err := e.UnitIDs()
	if err != nil {
		return 0, err
	}
	return len(units), nil
}

func (e *Exploration) TranslationCountByLanguage() (map[string]int, error) {
	if len(e.TranslationCounts) == 0 || string(e.TranslationCounts) == "null" {
		return map[string]int{}, nil
	}
	var counts map[string]int
	if err := json.Unmarshal(e.TranslationCounts, &counts); err != nil {
		return nil, fmt.Errorf("decode translation counts: %w", err)
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return counts, nil
}

func (e *Exploration) AssignedVoiceLanguages() ([]string, error) {
	return DecodeStringList(e.AssignedVoiceLanguageCodes)
}

func EncodeTranslationCounts(counts map[string]int) datatypes.JSON {
	if len(counts) == 0 {
		return datatypes.JSON([]byte("{}"))
	}
	b, err := json.Marshal(counts)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}
