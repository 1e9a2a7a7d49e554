package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

/*
Context is the execution handle for a single claimed job run. It wraps the
database, the mutable job_run row, the append-only event ledger, and the
notifier, and exposes the only sanctioned ways for a handler to report
progress, publish report lines, or terminate the run. Handlers never write
job_run rows directly.
*/
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *types.JobRun
	Repo    repos.JobRunRepo
	Events  repos.JobRunEventRepo
	Notify  services.JobNotifier
	payload map[string]any
}

/*
NewContext builds a Context for a claimed job. The payload JSON is decoded
eagerly so handlers can read inputs via Payload() and PayloadUUID(); a
malformed payload yields an empty map and handlers reject missing fields
themselves.
*/
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, events repos.JobRunEventRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Events: events,
		Notify: notify,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload never returns nil; an unset or unparseable payload reads as an
// empty map.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// PayloadUUID reads a payload field and parses it as a UUID. Missing, nil,
// or malformed values return (uuid.Nil, false).
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(v))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

/*
Update applies raw field updates to the job_run row, guarded so canceled
jobs are left alone. Meant for composite pipelines persisting state
snapshots into result; lifecycle transitions go through Progress, Fail,
and Succeed so their invariants stay in one place.
*/
func (c *Context) Update(updates map[string]any) error {
	if c == nil || c.Repo == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	_, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, []string{"canceled"}, toIfaceMap(updates))
	return err
}

/*
Progress publishes a non-terminal status update: stage, percent, and a
human message are persisted with a heartbeat, mirrored onto the in-memory
job, and pushed to stream subscribers. Progress is not written to the
event ledger; a long run emits too many of these for a durable row each.
If the row update is rejected (job canceled), nothing is emitted.
*/
func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil {
		return
	}
	now := time.Now()

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, []string{"canceled"}, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"message":      msg,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.Progress = pct
		c.Job.Message = msg
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobProgress(c.Job, stage, pct, msg)
	}
}

/*
Report appends one operator-facing outcome line to the job's event ledger
and pushes it to stream subscribers. Regeneration runs emit one line per
topic; purge runs emit a single count line. Lines survive the run and are
served back through the job events endpoint.
*/
func (c *Context) Report(line string) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	c.appendEvent(types.JobEventReport, line, nil)
	if c.Notify != nil {
		c.Notify.JobReport(c.Job, line)
	}
}

/*
Fail marks the run terminally failed: status=failed, the failing stage and
error are recorded, locked_at is cleared so the row is not mistaken for
in-progress, and a failed event lands in the ledger. Canceled jobs are not
overwritten; a rejected update emits nothing.
*/
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, []string{"canceled"}, map[string]interface{}{
			"status":        "failed",
			"stage":         stage,
			"message":       "",
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = "failed"
		c.Job.Stage = stage
		c.Job.Message = ""
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.LockedAt = nil
		c.Job.UpdatedAt = now
	}

	c.appendEvent(types.JobEventFailed, msg, nil)

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobFailed(c.Job, stage, msg)
	}
}

/*
Succeed marks the run terminally succeeded, stores the serialized result on
the row, appends a succeeded event carrying the same result, and notifies
subscribers. Canceled jobs are not overwritten.
*/
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil {
		return
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, []string{"canceled"}, map[string]interface{}{
			"status":       "succeeded",
			"stage":        finalStage,
			"progress":     100,
			"message":      "",
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = "succeeded"
		c.Job.Stage = finalStage
		c.Job.Progress = 100
		c.Job.Message = ""
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}

	c.appendEvent(types.JobEventSucceeded, "", res)

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobDone(c.Job)
	}
}

// appendEvent writes one ledger row snapshotting the job's current status
// and stage. Ledger writes are best effort; the job_run row stays
// authoritative.
func (c *Context) appendEvent(kind types.JobEventKind, message string, data datatypes.JSON) {
	if c == nil || c.Events == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	ev := &types.JobRunEvent{
		ID:         uuid.New(),
		JobID:      c.Job.ID,
		JobType:    c.Job.JobType,
		EntityType: c.Job.EntityType,
		Kind:       string(kind),
		Status:     c.Job.Status,
		Stage:      c.Job.Stage,
		Progress:   c.Job.Progress,
		Message:    message,
		Data:       data,
	}
	_ = c.Events.Append(dbctx.Context{Ctx: c.ctx()}, []*types.JobRunEvent{ev})
}

func (c *Context) ctx() context.Context {
	if c != nil && c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}

func toIfaceMap(in map[string]any) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
