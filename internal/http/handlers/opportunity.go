package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/http/response"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

type OpportunityHandler struct {
	log           *logger.Logger
	opportunities services.OpportunityService
	jobs          services.JobService
}

func NewOpportunityHandler(baseLog *logger.Logger, opportunities services.OpportunityService, jobs services.JobService) *OpportunityHandler {
	return &OpportunityHandler{
		log:           baseLog.With("handler", "OpportunityHandler"),
		opportunities: opportunities,
		jobs:          jobs,
	}
}

// GET /api/opportunities?limit=<n>&offset=<n>
func (h *OpportunityHandler) ListOpportunities(c *gin.Context) {
	limit := parseQueryInt(c, "limit", 50)
	offset := parseQueryInt(c, "offset", 0)
	page, err := h.opportunities.List(dbctx.Context{Ctx: c.Request.Context()}, limit, offset)
	if err != nil {
		h.log.Error("ListOpportunities failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_opportunities_failed", err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/topics/:id/opportunities
func (h *OpportunityHandler) ListTopicOpportunities(c *gin.Context) {
	topicID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_topic_id", err)
		return
	}
	rows, err := h.opportunities.ListByTopic(dbctx.Context{Ctx: c.Request.Context()}, topicID)
	if err != nil {
		h.log.Error("ListTopicOpportunities failed", "topic_id", topicID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_opportunities_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"summaries": rows})
}

// POST /api/opportunities/regenerate
//
// Enqueues a full regeneration of the derived dataset. One runnable
// regeneration exists at a time; a second trigger returns the job already
// in flight.
func (h *OpportunityHandler) TriggerRegenerate(c *gin.Context) {
	job, created, err := h.jobs.EnqueueOpportunityRegenerateIfNeeded(dbctx.Context{Ctx: c.Request.Context()}, "api")
	if err != nil {
		h.log.Error("TriggerRegenerate failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "enqueue_regenerate_failed", err)
		return
	}
	if !created {
		response.RespondOK(c, gin.H{"job": job, "enqueued": false})
		return
	}
	response.RespondAccepted(c, gin.H{"job": job, "enqueued": true})
}

// POST /api/opportunities/purge
func (h *OpportunityHandler) TriggerPurge(c *gin.Context) {
	job, created, err := h.jobs.EnqueueOpportunityPurgeIfNeeded(dbctx.Context{Ctx: c.Request.Context()}, "api")
	if err != nil {
		h.log.Error("TriggerPurge failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "enqueue_purge_failed", err)
		return
	}
	if !created {
		response.RespondOK(c, gin.H{"job": job, "enqueued": false})
		return
	}
	response.RespondAccepted(c, gin.H{"job": job, "enqueued": true})
}

// POST /api/opportunities/refresh
//
// Enqueues the composite purge-then-regenerate pipeline. An optional
// variant in the body selects a subset of stages.
func (h *OpportunityHandler) TriggerRefresh(c *gin.Context) {
	var req struct {
		Variant string `json:"variant"`
	}
	_ = c.ShouldBindJSON(&req)

	job, created, err := h.jobs.EnqueueOpportunityRefreshIfNeeded(dbctx.Context{Ctx: c.Request.Context()}, strings.TrimSpace(req.Variant), "api")
	if err != nil {
		h.log.Error("TriggerRefresh failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "enqueue_refresh_failed", err)
		return
	}
	if !created {
		response.RespondOK(c, gin.H{"job": job, "enqueued": false})
		return
	}
	response.RespondAccepted(c, gin.H{"job": job, "enqueued": true})
}
