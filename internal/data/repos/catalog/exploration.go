package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type ExplorationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Exploration) ([]*types.Exploration, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Exploration, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Exploration, error)
	ListAll(dbc dbctx.Context) ([]*types.Exploration, error)
	Count(dbc dbctx.Context) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type explorationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExplorationRepo(db *gorm.DB, baseLog *logger.Logger) ExplorationRepo {
	return &explorationRepo{db: db, log: baseLog.With("repo", "ExplorationRepo")}
}

func (r *explorationRepo) Create(dbc dbctx.Context, rows []*types.Exploration) ([]*types.Exploration, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Exploration{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *explorationRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Exploration, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Exploration
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *explorationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Exploration, error) {
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

func (r *explorationRepo) ListAll(dbc dbctx.Context) ([]*types.Exploration, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Exploration
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *explorationRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).Model(&types.Exploration{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *explorationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Exploration{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *explorationRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.Exploration{}).Error
}
