package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type StoryRepo interface {
	Create(dbc dbctx.Context, rows []*types.Story) ([]*types.Story, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Story, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Story, error)
	ListAll(dbc dbctx.Context) ([]*types.Story, error)
	Count(dbc dbctx.Context) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type storyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoryRepo(db *gorm.DB, baseLog *logger.Logger) StoryRepo {
	return &storyRepo{db: db, log: baseLog.With("repo", "StoryRepo")}
}

func (r *storyRepo) Create(dbc dbctx.Context, rows []*types.Story) ([]*types.Story, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Story{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *storyRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Story, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Story
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *storyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Story, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *storyRepo) ListAll(dbc dbctx.Context) ([]*types.Story, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Story
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *storyRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).Model(&types.Story{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *storyRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Story{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *storyRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.Story{}).Error
}
