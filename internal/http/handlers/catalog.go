package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/http/response"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

type CatalogHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
}

func NewCatalogHandler(baseLog *logger.Logger, catalog services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		log:     baseLog.With("handler", "CatalogHandler"),
		catalog: catalog,
	}
}

// POST /api/topics
func (h *CatalogHandler) CreateTopic(c *gin.Context) {
	var req services.CreateTopicInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_topic_payload", err)
		return
	}
	topic, err := h.catalog.CreateTopic(dbctx.Context{Ctx: c.Request.Context()}, req)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "create_topic_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"topic": topic})
}

// GET /api/topics
func (h *CatalogHandler) ListTopics(c *gin.Context) {
	topics, err := h.catalog.ListTopics(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		h.log.Error("ListTopics failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_topics_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"topics": topics})
}

// GET /api/topics/:id
func (h *CatalogHandler) GetTopic(c *gin.Context) {
	topicID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_topic_id", err)
		return
	}
	topic, err := h.catalog.GetTopic(dbctx.Context{Ctx: c.Request.Context()}, topicID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "topic_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"topic": topic})
}

// POST /api/stories
func (h *CatalogHandler) CreateStory(c *gin.Context) {
	var req services.CreateStoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_story_payload", err)
		return
	}
	story, err := h.catalog.CreateStory(dbctx.Context{Ctx: c.Request.Context()}, req)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "create_story_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"story": story})
}

// GET /api/stories
func (h *CatalogHandler) ListStories(c *gin.Context) {
	stories, err := h.catalog.ListStories(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		h.log.Error("ListStories failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_stories_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stories": stories})
}

// POST /api/explorations
func (h *CatalogHandler) CreateExploration(c *gin.Context) {
	var req services.CreateExplorationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_exploration_payload", err)
		return
	}
	exp, err := h.catalog.CreateExploration(dbctx.Context{Ctx: c.Request.Context()}, req)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "create_exploration_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"exploration": exp})
}

// GET /api/explorations
func (h *CatalogHandler) ListExplorations(c *gin.Context) {
	exps, err := h.catalog.ListExplorations(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		h.log.Error("ListExplorations failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_explorations_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"explorations": exps})
}
