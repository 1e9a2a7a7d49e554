package opportunity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type OpportunitySummaryRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.OpportunitySummary) error
	GetByIDs(dbc dbctx.Context, ids []string) ([]*types.OpportunitySummary, error)
	ListAll(dbc dbctx.Context) ([]*types.OpportunitySummary, error)
	ListByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.OpportunitySummary, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.OpportunitySummary, error)
	Count(dbc dbctx.Context) (int64, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []string) error
}

type opportunitySummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOpportunitySummaryRepo(db *gorm.DB, baseLog *logger.Logger) OpportunitySummaryRepo {
	return &opportunitySummaryRepo{db: db, log: baseLog.With("repo", "OpportunitySummaryRepo")}
}

// Upsert writes regenerated summaries keyed by digest id. Re-running a
// regeneration overwrites rows in place instead of duplicating them.
func (r *opportunitySummaryRepo) Upsert(dbc dbctx.Context, rows []*types.OpportunitySummary) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row == nil {
			continue
		}
		row.UpdatedAt = now
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"topic_id",
				"topic_name",
				"story_id",
				"story_title",
				"chapter_title",
				"exploration_id",
				"content_count",
				"incomplete_translation_language_codes",
				"translation_counts",
				"language_codes_needing_voice_artists",
				"language_codes_with_assigned_voice_artists",
				"updated_at",
				"deleted_at",
			}),
		}).
		Create(&rows).Error
}

func (r *opportunitySummaryRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*types.OpportunitySummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.OpportunitySummary
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *opportunitySummaryRepo) ListAll(dbc dbctx.Context) ([]*types.OpportunitySummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.OpportunitySummary
	if err := transaction.WithContext(dbc.Ctx).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *opportunitySummaryRepo) ListByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.OpportunitySummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.OpportunitySummary
	if topicID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("topic_id = ?", topicID).
		Order("story_id ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *opportunitySummaryRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.OpportunitySummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []*types.OpportunitySummary
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *opportunitySummaryRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).Model(&types.OpportunitySummary{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FullDeleteByIDs hard-deletes; the purge job owns the full lifecycle and a
// soft-deleted remnant would survive the follow-up regeneration as garbage.
func (r *opportunitySummaryRepo) FullDeleteByIDs(dbc dbctx.Context, ids []string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.OpportunitySummary{}).Error
}
