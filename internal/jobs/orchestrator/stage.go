package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	jobrt "github.com/yungbote/lexbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
)

type RetryPolicy struct {
	MaxAttempts int
	Retryable   func(err error) bool

	MinBackoff time.Duration // default 1s
	MaxBackoff time.Duration // default 30s
	JitterFrac float64       // default 0.20
}

// Stage is one node of a composite pipeline. Inline stages run a function
// in the parent job's process; child stages enqueue a job of ChildJobType
// and wait for it through the queue.
type Stage struct {
	Name string
	Deps []string

	Mode    StageMode
	Timeout time.Duration // inline only
	Retry   RetryPolicy
	IsDone  func(ctx *jobrt.Context, st *OrchestratorState) (bool, error)
	Run     func(ctx *jobrt.Context, st *OrchestratorState) (map[string]any, error)

	ChildJobType string
	ChildEntity  func(ctx *jobrt.Context) (entityType string, entityID *uuid.UUID)
	ChildPayload func(ctx *jobrt.Context, st *OrchestratorState) (map[string]any, error)
}

type ChildEnqueuer interface {
	Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
}

// -------------------- state persistence --------------------

func LoadState(ctx *jobrt.Context, version int) (*OrchestratorState, error) {
	st := &OrchestratorState{Version: version, Stages: map[string]*StageState{}, Meta: map[string]any{}}
	if ctx == nil || ctx.Job == nil {
		st.ensure()
		return st, nil
	}
	raw := ctx.Job.Result
	if len(raw) == 0 || string(raw) == "null" {
		st.ensure()
		return st, nil
	}
	if err := json.Unmarshal(raw, st); err != nil {
		st.Meta["state_unmarshal_error"] = err.Error()
		st.ensure()
		return st, nil
	}
	st.ensure()
	return st, nil
}

func saveStateWithEncoder(ctx *jobrt.Context, st *OrchestratorState, encoder func(*OrchestratorState) map[string]any) error {
	if ctx == nil || ctx.Job == nil || st == nil {
		return nil
	}
	st.ensure()
	res := EncodeState(st)
	if encoder != nil {
		res = encoder(st)
	}
	b, _ := json.Marshal(res)
	if err := ctx.Update(map[string]any{"result": datatypes.JSON(b)}); err != nil {
		return err
	}
	ctx.Job.Result = datatypes.JSON(b)
	return nil
}

func EncodeState(st *OrchestratorState) map[string]any {
	if st == nil {
		return map[string]any{}
	}
	return map[string]any{
		"version":       st.Version,
		"stages":        st.Stages,
		"wait_until":    st.WaitUntil,
		"last_progress": st.LastProgress,
		"meta":          st.Meta,
	}
}

// EncodeFlatState lifts meta keys to the top level so callers reading the
// job result see identifiers without digging into the snapshot.
func EncodeFlatState(st *OrchestratorState) map[string]any {
	out := EncodeState(st)
	delete(out, "meta")
	if st != nil && st.Meta != nil {
		for k, v := range st.Meta {
			out[k] = v
		}
	}
	return out
}

// -------------------- repo helpers --------------------

func loadJobByID(ctx *jobrt.Context, id uuid.UUID) (*types.JobRun, error) {
	if ctx == nil || ctx.Repo == nil {
		return nil, fmt.Errorf("missing job repo")
	}
	rows, err := ctx.Repo.GetByIDs(dbctx.Context{Ctx: ctx.Ctx}, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, errors.New("job not found")
	}
	return rows[0], nil
}

// yieldToQueue parks the parent back in the queue so a worker slot is not
// held while children run.
func yieldToQueue(ctx *jobrt.Context, stage string, progress int) error {
	if ctx == nil || ctx.Job == nil || ctx.Repo == nil {
		return nil
	}
	now := time.Now()
	return ctx.Repo.UpdateFields(dbctx.Context{Ctx: ctx.Ctx}, ctx.Job.ID, map[string]interface{}{
		"status":       "queued",
		"stage":        stage,
		"progress":     progress,
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	})
}

// -------------------- safety --------------------

func effectiveMode(s Stage) StageMode {
	if strings.TrimSpace(string(s.Mode)) == "" {
		return ModeInline
	}
	return s.Mode
}

func safeIsDone(def Stage, ctx *jobrt.Context, st *OrchestratorState) (bool, error) {
	defer func() { _ = recover() }()
	return def.IsDone(ctx, st)
}

func safeRunInline(def Stage, ctx *jobrt.Context, st *OrchestratorState) (map[string]any, error) {
	if def.Run == nil {
		return nil, fmt.Errorf("stage %q: Run is nil", def.Name)
	}
	if def.Timeout <= 0 {
		return def.Run(ctx, st)
	}
	tctx, cancel := context.WithTimeout(ctx.Ctx, def.Timeout)
	defer cancel()
	tmp := *ctx
	tmp.Ctx = tctx
	type out struct {
		m map[string]any
		e error
	}
	ch := make(chan out, 1)
	go func() {
		m, e := def.Run(&tmp, st)
		ch <- out{m: m, e: e}
	}()
	select {
	case <-tctx.Done():
		return nil, fmt.Errorf("stage %q timed out: %w", def.Name, tctx.Err())
	case o := <-ch:
		return o.m, o.e
	}
}

// -------------------- timestamps + outputs --------------------

func markStarted(ss *StageState) {
	if ss == nil || ss.StartedAt != nil {
		return
	}
	now := time.Now().UTC()
	ss.StartedAt = &now
}

func markFinished(ss *StageState, lastErr string) {
	if ss == nil {
		return
	}
	now := time.Now().UTC()
	ss.FinishedAt = &now
	if strings.TrimSpace(lastErr) != "" {
		ss.LastError = lastErr
	}
}

func mergeOutputs(ss *StageState, outs map[string]any) {
	if ss == nil || outs == nil {
		return
	}
	if ss.Outputs == nil {
		ss.Outputs = map[string]any{}
	}
	for k, v := range outs {
		ss.Outputs[k] = v
	}
}

// -------------------- retry/backoff --------------------

func shouldRetry(r RetryPolicy, attempts int, err error) bool {
	if r.MaxAttempts <= 0 || attempts >= r.MaxAttempts {
		return false
	}
	if r.Retryable == nil {
		return true
	}
	return r.Retryable(err)
}

func computeBackoff(r RetryPolicy, attempts int) time.Duration {
	minB := r.MinBackoff
	maxB := r.MaxBackoff
	j := r.JitterFrac
	if minB <= 0 {
		minB = 1 * time.Second
	}
	if maxB <= 0 {
		maxB = 30 * time.Second
	}
	if j <= 0 {
		j = 0.20
	}
	if attempts < 1 {
		attempts = 1
	}
	d := time.Duration(float64(minB) * math.Pow(2, float64(attempts-1)))
	if d > maxB {
		d = maxB
	}
	delta := float64(d) * j
	low := float64(d) - delta
	high := float64(d) + delta
	if low < 0 {
		low = 0
	}
	return time.Duration(low + rand.Float64()*(high-low))
}

// -------------------- misc --------------------

func clampDuration(d, minD, maxD time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if minD > 0 && d < minD {
		return minD
	}
	if maxD > 0 && d > maxD {
		return maxD
	}
	return d
}

func ptrTime(t time.Time) *time.Time { return &t }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func stringsOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
