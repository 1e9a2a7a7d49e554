package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/http/response"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetByID(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/jobs?type=<job_type>&limit=<n>
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobType := strings.TrimSpace(c.Query("type"))
	limit := parseQueryInt(c, "limit", 20)
	jobs, err := h.jobs.ListRecent(dbctx.Context{Ctx: c.Request.Context()}, jobType, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_jobs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}

// GET /api/jobs/:id/events
func (h *JobHandler) ListJobEvents(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	limit := parseQueryInt(c, "limit", 200)
	events, err := h.jobs.ListEvents(dbctx.Context{Ctx: c.Request.Context()}, jobID, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_job_events_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

// GET /api/jobs/:id/reports
//
// Reports are the operator-facing outcome lines a run emitted, in emission
// order: per-topic lines for regeneration, the count line for purge.
func (h *JobHandler) ListJobReports(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	reports, err := h.jobs.ListReports(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_job_reports_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"reports": reports})
}

// POST /api/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Cancel(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "cancel_job_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/jobs/:id/restart
func (h *JobHandler) RestartJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Restart(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(strings.ToLower(err.Error()), "not restartable") {
			status = http.StatusConflict
		}
		response.RespondError(c, status, "restart_job_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
