package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

// JobService owns the write path for job runs: enqueue with dedup, cancel,
// restart, and the read surface the admin API exposes. Execution happens
// elsewhere (the polling worker, or Temporal when configured); this service
// only transitions rows between queued and terminal states.
type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	Dispatch(dbc dbctx.Context, jobID uuid.UUID) error

	EnqueueOpportunityRegenerateIfNeeded(dbc dbctx.Context, trigger string) (*types.JobRun, bool, error)
	EnqueueOpportunityPurgeIfNeeded(dbc dbctx.Context, trigger string) (*types.JobRun, bool, error)
	EnqueueOpportunityRefreshIfNeeded(dbc dbctx.Context, variant string, trigger string) (*types.JobRun, bool, error)

	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	GetLatestByType(dbc dbctx.Context, jobType string) (*types.JobRun, error)
	ListRecent(dbc dbctx.Context, jobType string, limit int) ([]*types.JobRun, error)
	ListEvents(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error)
	ListReports(dbc dbctx.Context, jobID uuid.UUID) ([]string, error)

	Cancel(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	Restart(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	events repos.JobRunEventRepo
	notify JobNotifier

	temporal          temporalsdkclient.Client
	temporalTaskQueue string
}

// NewJobService wires the job write path. tc may be nil; without Temporal
// the polling worker picks queued rows up on its own.
func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	events repos.JobRunEventRepo,
	notify JobNotifier,
	tc temporalsdkclient.Client,
	taskQueue string,
) JobService {
	return &jobService{
		db:                db,
		log:               baseLog.With("service", "JobService"),
		repo:              repo,
		events:            events,
		notify:            notify,
		temporal:          tc,
		temporalTaskQueue: strings.TrimSpace(taskQueue),
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	b, _ := json.Marshal(payload)
	now := time.Now()
	job := &types.JobRun{
		ID:         uuid.New(),
		JobType:    jobType,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     "queued",
		Stage:      "queued",
		Progress:   0,
		Attempts:   0,
		Message:    "Queued",
		Payload:    datatypes.JSON(b),
		Result:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}
	if _, err := s.repo.Create(repoCtx, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.appendCreatedEvent(repoCtx, job)
	if s.notify != nil {
		s.notify.JobCreated(job)
	}

	if s.temporal == nil {
		// Polling worker path: the queued row is the dispatch.
		return job, nil
	}
	// Inside a real DB transaction the workflow must not start before commit;
	// callers invoke Dispatch() afterwards. gorm.DB pointers are cloned by
	// WithContext/Session, so pointer inequality is not a transaction detector.
	if isDBTransaction(dbc.Tx) {
		if s.log != nil {
			s.log.Debug("Job enqueued inside transaction; awaiting dispatch after commit", "job_id", job.ID, "job_type", job.JobType)
		}
		return job, nil
	}
	if err := s.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

func (s *jobService) appendCreatedEvent(dbc dbctx.Context, job *types.JobRun) {
	if s == nil || s.events == nil || job == nil || job.ID == uuid.Nil {
		return
	}
	_ = s.events.Append(dbc, []*types.JobRunEvent{{
		ID:         uuid.New(),
		JobID:      job.ID,
		JobType:    job.JobType,
		EntityType: job.EntityType,
		Kind:       string(types.JobEventCreated),
		Status:     job.Status,
		Stage:      job.Stage,
		Progress:   job.Progress,
		Message:    job.Message,
		CreatedAt:  time.Now().UTC(),
	}})
}

type txCommitter interface {
	Commit() error
	Rollback() error
}

func isDBTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil || db.Statement.ConnPool == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(txCommitter)
	return ok
}

func (s *jobService) Dispatch(dbc dbctx.Context, jobID uuid.UUID) error {
	if s == nil || s.temporal == nil {
		// Nothing to start; the polling worker claims queued rows.
		return nil
	}
	if jobID == uuid.Nil {
		return fmt.Errorf("missing job id")
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	err := s.startTemporalJobWorkflow(ctx, jobID, enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE)
	if err == nil {
		return nil
	}
	if _, ok := err.(*serviceerror.WorkflowExecutionAlreadyStarted); ok {
		return nil
	}

	now := time.Now().UTC()
	// Best-effort: mark job as failed if we couldn't dispatch.
	if s.repo != nil {
		_ = s.repo.UpdateFields(dbctx.Context{Ctx: ctx}, jobID, map[string]interface{}{
			"status":        "failed",
			"stage":         "dispatch",
			"message":       "",
			"error":         err.Error(),
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
	}
	if s.notify != nil && s.repo != nil {
		if rows, rerr := s.repo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{jobID}); rerr == nil && len(rows) > 0 && rows[0] != nil {
			s.notify.JobFailed(rows[0], "dispatch", err.Error())
		}
	}
	return fmt.Errorf("start temporal workflow: %w", err)
}

func (s *jobService) EnqueueOpportunityRegenerateIfNeeded(dbc dbctx.Context, trigger string) (*types.JobRun, bool, error) {
	return s.enqueueOpportunityJobIfNeeded(dbc, "opportunity_regenerate", map[string]any{"trigger": trigger})
}

func (s *jobService) EnqueueOpportunityPurgeIfNeeded(dbc dbctx.Context, trigger string) (*types.JobRun, bool, error) {
	return s.enqueueOpportunityJobIfNeeded(dbc, "opportunity_purge", map[string]any{"trigger": trigger})
}

func (s *jobService) EnqueueOpportunityRefreshIfNeeded(dbc dbctx.Context, variant string, trigger string) (*types.JobRun, bool, error) {
	payload := map[string]any{"trigger": trigger}
	variant = strings.ToLower(strings.TrimSpace(variant))
	if variant != "" {
		payload["variant"] = variant
	}
	return s.enqueueOpportunityJobIfNeeded(dbc, "opportunity_refresh", payload)
}

// enqueueOpportunityJobIfNeeded dedupes against runnable rows of the same
// type. Opportunity jobs rebuild the whole dataset, so at most one of each
// type should ever be queued or running.
func (s *jobService) enqueueOpportunityJobIfNeeded(dbc dbctx.Context, jobType string, payload map[string]any) (*types.JobRun, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}
	exists, err := s.repo.ExistsRunnable(repoCtx, jobType, "opportunity", nil)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, nil
	}
	job, err := s.Enqueue(repoCtx, jobType, "opportunity", nil, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	rows, err := s.repo.GetByIDs(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, fmt.Errorf("job not found")
	}
	return rows[0], nil
}

func (s *jobService) GetLatestByType(dbc dbctx.Context, jobType string) (*types.JobRun, error) {
	if strings.TrimSpace(jobType) == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.repo.GetLatestByType(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, jobType)
}

func (s *jobService) ListRecent(dbc dbctx.Context, jobType string, limit int) ([]*types.JobRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.repo.ListRecent(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, strings.TrimSpace(jobType), limit)
}

func (s *jobService) ListEvents(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id")
	}
	if s.events == nil {
		return nil, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.events.ListByJob(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, jobID, limit)
}

func (s *jobService) ListReports(dbc dbctx.Context, jobID uuid.UUID) ([]string, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id")
	}
	if s.events == nil {
		return nil, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	rows, err := s.events.ListByJobAndKind(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, jobID, types.JobEventReport)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, ev := range rows {
		if ev == nil || strings.TrimSpace(ev.Message) == "" {
			continue
		}
		out = append(out, ev.Message)
	}
	return out, nil
}

func (s *jobService) Cancel(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	var updated *types.JobRun
	shouldNotify := false

	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		job, err := s.GetByID(inner, jobID)
		if err != nil {
			return err
		}

		status := strings.ToLower(strings.TrimSpace(job.Status))
		if status == "succeeded" || status == "failed" || status == "canceled" {
			updated = job
			return nil
		}

		now := time.Now().UTC()
		if err := s.repo.UpdateFields(inner, jobID, map[string]interface{}{
			"status":       "canceled",
			"message":      "Canceled",
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		}); err != nil {
			return err
		}

		job.Status = "canceled"
		job.Message = "Canceled"
		job.LockedAt = nil
		job.HeartbeatAt = &now
		job.UpdatedAt = now
		updated = job
		shouldNotify = true

		// Composite roots track child stage jobs in their result; cancel
		// those too so orphaned children don't keep running.
		if isCompositeJobType(job.JobType) {
			for _, cid := range extractCompositeChildJobIDs(job.Result) {
				if cid == uuid.Nil {
					continue
				}
				if err := txx.WithContext(dbc.Ctx).
					Model(&types.JobRun{}).
					Where("id = ? AND status NOT IN ?", cid, []string{"succeeded", "failed", "canceled"}).
					Updates(map[string]interface{}{
						"status":       "canceled",
						"locked_at":    nil,
						"heartbeat_at": now,
						"updated_at":   now,
					}).Error; err != nil {
					// don't fail cancel for partial child cancellation
					s.log.Warn("Cancel child job failed", "job_id", jobID, "child_job_id", cid, "error", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if shouldNotify && s.notify != nil && updated != nil {
		s.notify.JobCanceled(updated)
	}

	// Best-effort: cancel the Temporal workflow(s) backing this job run.
	if s.temporal != nil {
		_ = s.temporal.CancelWorkflow(dbc.Ctx, jobID.String(), "")
		if updated != nil && isCompositeJobType(updated.JobType) {
			for _, cid := range extractCompositeChildJobIDs(updated.Result) {
				if cid == uuid.Nil {
					continue
				}
				_ = s.temporal.CancelWorkflow(dbc.Ctx, cid.String(), "")
			}
		}
	}
	return updated, nil
}

func (s *jobService) Restart(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	var updated *types.JobRun
	shouldNotify := false

	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		job, err := s.GetByID(inner, jobID)
		if err != nil {
			return err
		}

		status := strings.ToLower(strings.TrimSpace(job.Status))
		if status != "canceled" && status != "failed" {
			return fmt.Errorf("job not restartable")
		}

		now := time.Now().UTC()
		nextResult := job.Result
		if isCompositeJobType(job.JobType) {
			nextResult = resetCompositeStateForRestart(nextResult)
		}

		if err := s.repo.UpdateFields(inner, jobID, map[string]interface{}{
			"status":        "queued",
			"stage":         "queued",
			"progress":      0,
			"message":       "Restarting",
			"error":         "",
			"last_error_at": nil,
			"result":        nextResult,
			"locked_at":     nil,
			"heartbeat_at":  now,
			"updated_at":    now,
		}); err != nil {
			return err
		}

		job.Status = "queued"
		job.Stage = "queued"
		job.Progress = 0
		job.Message = "Restarting"
		job.Error = ""
		job.LastErrorAt = nil
		job.Result = nextResult
		job.LockedAt = nil
		job.HeartbeatAt = &now
		job.UpdatedAt = now

		updated = job
		shouldNotify = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if shouldNotify && s.notify != nil && updated != nil {
		s.notify.JobRestarted(updated)
	}

	if updated != nil && s.temporal != nil {
		ctx := dbc.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := s.startTemporalJobWorkflow(ctx, jobID, enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE); err != nil {
			return nil, fmt.Errorf("restart temporal workflow: %w", err)
		}
	}
	return updated, nil
}

func isCompositeJobType(jobType string) bool {
	return strings.EqualFold(strings.TrimSpace(jobType), "opportunity_refresh")
}

func extractCompositeChildJobIDs(result datatypes.JSON) []uuid.UUID {
	if len(result) == 0 || string(result) == "null" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(result, &obj); err != nil {
		return nil
	}
	rawStages, ok := obj["stages"]
	if !ok || rawStages == nil {
		return nil
	}
	stageMap, ok := rawStages.(map[string]any)
	if !ok || len(stageMap) == 0 {
		return nil
	}

	seen := make(map[uuid.UUID]bool, len(stageMap))
	out := make([]uuid.UUID, 0, len(stageMap))
	for _, v := range stageMap {
		m, ok := v.(map[string]any)
		if !ok || m == nil {
			continue
		}
		idStr := strings.TrimSpace(fmt.Sprint(m["child_job_id"]))
		if idStr == "" || idStr == "<nil>" {
			continue
		}
		id, err := uuid.Parse(idStr)
		if err != nil || id == uuid.Nil {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func resetCompositeStateForRestart(result datatypes.JSON) datatypes.JSON {
	if len(result) == 0 || string(result) == "null" {
		return result
	}
	var obj map[string]any
	if err := json.Unmarshal(result, &obj); err != nil {
		return result
	}

	// Avoid honoring a previous wait window.
	obj["wait_until"] = nil
	obj["last_progress"] = 0

	if rawStages, ok := obj["stages"]; ok && rawStages != nil {
		if stageMap, ok := rawStages.(map[string]any); ok {
			for _, v := range stageMap {
				m, ok := v.(map[string]any)
				if !ok || m == nil {
					continue
				}
				st := strings.ToLower(strings.TrimSpace(fmt.Sprint(m["status"])))
				if st == "succeeded" {
					continue
				}
				m["status"] = "pending"
				delete(m, "child_job_id")
				delete(m, "child_job_type")
				delete(m, "child_job_status")
				delete(m, "child_progress")
				delete(m, "child_message")
				delete(m, "child_result")
				delete(m, "last_error")
				delete(m, "started_at")
				delete(m, "finished_at")
				delete(m, "next_run_at")
			}
		}
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return result
	}
	return datatypes.JSON(b)
}

func (s *jobService) startTemporalJobWorkflow(ctx context.Context, jobID uuid.UUID, reusePolicy enums.WorkflowIdReusePolicy) error {
	if s == nil || s.temporal == nil || jobID == uuid.Nil {
		return fmt.Errorf("temporal not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tq := strings.TrimSpace(s.temporalTaskQueue)
	if tq == "" {
		tq = "lexbridge"
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID.String(),
		TaskQueue:             tq,
		WorkflowIDReusePolicy: reusePolicy,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	_, err := s.temporal.ExecuteWorkflow(ctx, opts, "job_run")
	return err
}
