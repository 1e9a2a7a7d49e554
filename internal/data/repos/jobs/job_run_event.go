package jobs

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type JobRunEventRepo interface {
	Append(dbc dbctx.Context, events []*types.JobRunEvent) error
	ListByJob(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error)
	ListByJobAndKind(dbc dbctx.Context, jobID uuid.UUID, kind types.JobEventKind) ([]*types.JobRunEvent, error)
}

type jobRunEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunEventRepo(db *gorm.DB, baseLog *logger.Logger) JobRunEventRepo {
	return &jobRunEventRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunEventRepo"),
	}
}

func (r *jobRunEventRepo) Append(dbc dbctx.Context, events []*types.JobRunEvent) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&events).Error
}

func (r *jobRunEventRepo) ListByJob(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if jobID == uuid.Nil {
		return nil, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.JobRunEvent
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRunEventRepo) ListByJobAndKind(dbc dbctx.Context, jobID uuid.UUID, kind types.JobEventKind) ([]*types.JobRunEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if jobID == uuid.Nil || kind == "" {
		return nil, nil
	}
	var out []*types.JobRunEvent
	if err := transaction.WithContext(dbc.Ctx).
		Where("job_id = ? AND kind = ?", jobID, string(kind)).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
