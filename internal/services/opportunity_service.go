package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

// OpportunityPage is one page of summaries plus the total across all pages,
// so clients can render pagination without a second count request.
type OpportunityPage struct {
	Summaries []*types.OpportunitySummary `json:"summaries"`
	Total     int64                       `json:"total"`
	Limit     int                         `json:"limit"`
	Offset    int                         `json:"offset"`
}

type OpportunityService interface {
	List(dbc dbctx.Context, limit, offset int) (*OpportunityPage, error)
	ListByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.OpportunitySummary, error)
}

type opportunityService struct {
	db        *gorm.DB
	log       *logger.Logger
	summaries repos.OpportunitySummaryRepo
}

func NewOpportunityService(db *gorm.DB, baseLog *logger.Logger, summaries repos.OpportunitySummaryRepo) OpportunityService {
	return &opportunityService{
		db:        db,
		log:       baseLog.With("service", "OpportunityService"),
		summaries: summaries,
	}
}

func (s *opportunityService) List(dbc dbctx.Context, limit, offset int) (*OpportunityPage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.summaries.List(dbc, limit, offset)
	if err != nil {
		s.log.Error("List opportunities failed", "error", err)
		return nil, err
	}
	total, err := s.summaries.Count(dbc)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*types.OpportunitySummary{}
	}
	return &OpportunityPage{
		Summaries: rows,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func (s *opportunityService) ListByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.OpportunitySummary, error) {
	return s.summaries.ListByTopic(dbc, topicID)
}
