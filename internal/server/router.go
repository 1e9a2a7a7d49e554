package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/lexbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lexbridge-backend/internal/http/middleware"
	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler      *httpH.HealthHandler
	CatalogHandler     *httpH.CatalogHandler
	OpportunityHandler *httpH.OpportunityHandler
	JobHandler         *httpH.JobHandler
	StreamHandler      *httpH.StreamHandler
}

// NewRouter builds the route table. Reads are open; mutating routes sit
// behind the admin guard. The stream endpoint is a read and stays open so
// dashboards can follow runs without minting tokens.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if envutil.Bool("OTEL_ENABLED", false) {
		r.Use(otelgin.Middleware(envutil.String("OTEL_SERVICE_NAME", "lexbridge-backend")))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.CatalogHandler != nil {
			api.GET("/topics", cfg.CatalogHandler.ListTopics)
			api.GET("/topics/:id", cfg.CatalogHandler.GetTopic)
			api.GET("/stories", cfg.CatalogHandler.ListStories)
			api.GET("/explorations", cfg.CatalogHandler.ListExplorations)
		}

		if cfg.OpportunityHandler != nil {
			api.GET("/opportunities", cfg.OpportunityHandler.ListOpportunities)
			api.GET("/topics/:id/opportunities", cfg.OpportunityHandler.ListTopicOpportunities)
		}

		if cfg.JobHandler != nil {
			api.GET("/jobs", cfg.JobHandler.ListJobs)
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
			api.GET("/jobs/:id/events", cfg.JobHandler.ListJobEvents)
			api.GET("/jobs/:id/reports", cfg.JobHandler.ListJobReports)
		}

		if cfg.StreamHandler != nil {
			api.GET("/stream", cfg.StreamHandler.Stream)
		}
	}

	admin := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireAdmin())
		}

		if cfg.CatalogHandler != nil {
			admin.POST("/topics", cfg.CatalogHandler.CreateTopic)
			admin.POST("/stories", cfg.CatalogHandler.CreateStory)
			admin.POST("/explorations", cfg.CatalogHandler.CreateExploration)
		}

		if cfg.OpportunityHandler != nil {
			admin.POST("/opportunities/regenerate", cfg.OpportunityHandler.TriggerRegenerate)
			admin.POST("/opportunities/purge", cfg.OpportunityHandler.TriggerPurge)
			admin.POST("/opportunities/refresh", cfg.OpportunityHandler.TriggerRefresh)
		}

		if cfg.JobHandler != nil {
			admin.POST("/jobs/:id/cancel", cfg.JobHandler.CancelJob)
			admin.POST("/jobs/:id/restart", cfg.JobHandler.RestartJob)
		}
	}

	return r
}
