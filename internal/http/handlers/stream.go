package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/realtime"
)

type StreamHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewStreamHandler(baseLog *logger.Logger, hub *realtime.SSEHub) *StreamHandler {
	return &StreamHandler{
		log: baseLog.With("handler", "StreamHandler"),
		hub: hub,
	}
}

// GET /api/stream?channels=jobs,<job_id>
//
// Opens an event stream. The channels query selects what to watch: "jobs"
// for every job's lifecycle events, or a job id for one run. With no
// channels given the stream watches "jobs".
func (h *StreamHandler) Stream(c *gin.Context) {
	channels := splitChannels(c.Query("channels"))
	if len(channels) == 0 {
		channels = []string{realtime.ChannelJobs}
	}

	client := h.hub.NewSSEClient()
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}
	h.log.Info("SSE stream open", "client_id", client.ID, "channels", channels)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "client_id", client.ID)
}

func splitChannels(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
