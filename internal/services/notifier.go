package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/realtime"
)

// JobNotifier pushes job lifecycle events to stream subscribers. Every
// event lands on two channels: the job's own id for watchers of a single
// run, and the shared jobs channel for dashboards.
type JobNotifier interface {
	JobCreated(job *types.JobRun)
	JobProgress(job *types.JobRun, stage string, progress int, message string)
	JobReport(job *types.JobRun, line string)
	JobFailed(job *types.JobRun, stage string, errorMessage string)
	JobDone(job *types.JobRun)
	JobCanceled(job *types.JobRun)
	JobRestarted(job *types.JobRun)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) publish(event realtime.SSEEvent, job *types.JobRun, data map[string]any) {
	if n == nil || n.emit == nil || job == nil || job.ID == uuid.Nil {
		return
	}
	ctx := context.Background()
	n.emit.Emit(ctx, realtime.SSEMessage{Channel: job.ID.String(), Event: event, Data: data})
	n.emit.Emit(ctx, realtime.SSEMessage{Channel: realtime.ChannelJobs, Event: event, Data: data})
}

func (n *jobNotifier) JobCreated(job *types.JobRun) {
	n.publish(realtime.SSEEventJobCreated, job, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"job":      job,
	})
}

func (n *jobNotifier) JobProgress(job *types.JobRun, stage string, progress int, message string) {
	n.publish(realtime.SSEEventJobProgress, job, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"stage":    stage,
		"progress": progress,
		"message":  message,
		"job":      job,
	})
}

func (n *jobNotifier) JobReport(job *types.JobRun, line string) {
	n.publish(realtime.SSEEventJobReport, job, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"report":   line,
		"job":      job,
	})
}

func (n *jobNotifier) JobFailed(job *types.JobRun, stage string, errorMessage string) {
	n.publish(realtime.SSEEventJobFailed, job, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"stage":    stage,
		"error":    errorMessage,
		"job":      job,
	})
}

func (n *jobNotifier) JobDone(job *types.JobRun) {
	n.publish(realtime.SSEEventJobDone, job, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"job":      job,
	})
}

func (n *jobNotifier) JobCanceled(job *types.JobRun) {
	n.publish(realtime.SSEEventJobCanceled, job, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"job":      job,
	})
}

func (n *jobNotifier) JobRestarted(job *types.JobRun) {
	n.publish(realtime.SSEEventJobRestarted, job, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"job":      job,
	})
}

func safeJobID(job *types.JobRun) uuid.UUID {
	if job == nil {
		return uuid.Nil
	}
	return job.ID
}

func safeJobType(job *types.JobRun) string {
	if job == nil {
		return ""
	}
	return job.JobType
}
