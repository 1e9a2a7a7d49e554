package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type TopicRepo interface {
	Create(dbc dbctx.Context, rows []*types.Topic) ([]*types.Topic, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Topic, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Topic, error)
	ListAll(dbc dbctx.Context) ([]*types.Topic, error)
	Count(dbc dbctx.Context) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type topicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return &topicRepo{db: db, log: baseLog.With("repo", "TopicRepo")}
}

func (r *topicRepo) Create(dbc dbctx.Context, rows []*types.Topic) ([]*types.Topic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Topic{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *topicRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Topic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Topic
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Topic, error) {
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

// ListAll returns every non-deleted topic in creation order. Regeneration
// snapshots depend on this ordering being stable across runs.
func (r *topicRepo) ListAll(dbc dbctx.Context) ([]*types.Topic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Topic
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).Model(&types.Topic{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *topicRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Topic{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *topicRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.Topic{}).Error
}
