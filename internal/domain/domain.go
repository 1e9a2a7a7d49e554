package domain

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/lexbridge-backend/internal/domain/catalog"
	"github.com/yungbote/lexbridge-backend/internal/domain/jobs"
	"github.com/yungbote/lexbridge-backend/internal/domain/opportunity"
)

type Topic = catalog.Topic
type Story = catalog.Story
type Chapter = catalog.Chapter
type Exploration = catalog.Exploration

type OpportunitySummary = opportunity.OpportunitySummary

type JobRun = jobs.JobRun
type JobRunEvent = jobs.JobRunEvent
type JobEventKind = jobs.JobEventKind

const (
	JobEventCreated   = jobs.JobEventCreated
	JobEventProgress  = jobs.JobEventProgress
	JobEventReport    = jobs.JobEventReport
	JobEventFailed    = jobs.JobEventFailed
	JobEventSucceeded = jobs.JobEventSucceeded
)

func DecodeUUIDList(raw datatypes.JSON) ([]uuid.UUID, error) { return catalog.DecodeUUIDList(raw) }
func EncodeUUIDList(ids []uuid.UUID) datatypes.JSON          { return catalog.EncodeUUIDList(ids) }
func DecodeStringList(raw datatypes.JSON) ([]string, error)  { return catalog.DecodeStringList(raw) }
func EncodeStringList(vals []string) datatypes.JSON          { return catalog.EncodeStringList(vals) }
func DecodeChapters(raw datatypes.JSON) ([]catalog.Chapter, error) {
	return catalog.DecodeChapters(raw)
}
func EncodeChapters(chapters []catalog.Chapter) datatypes.JSON {
	return catalog.EncodeChapters(chapters)
}
func EncodeTranslationCounts(counts map[string]int) datatypes.JSON {
	return catalog.EncodeTranslationCounts(counts)
}
