package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/lexbridge-backend/internal/data/db"
	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/http/handlers"
	"github.com/yungbote/lexbridge-backend/internal/http/middleware"
	"github.com/yungbote/lexbridge-backend/internal/jobs/pipeline/opportunity_purge"
	"github.com/yungbote/lexbridge-backend/internal/jobs/pipeline/opportunity_refresh"
	"github.com/yungbote/lexbridge-backend/internal/jobs/pipeline/opportunity_regenerate"
	jobrt "github.com/yungbote/lexbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/lexbridge-backend/internal/jobs/worker"
	"github.com/yungbote/lexbridge-backend/internal/observability"
	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/platform/shutdown"
	"github.com/yungbote/lexbridge-backend/internal/realtime"
	"github.com/yungbote/lexbridge-backend/internal/realtime/bus"
	"github.com/yungbote/lexbridge-backend/internal/server"
	"github.com/yungbote/lexbridge-backend/internal/services"
	"github.com/yungbote/lexbridge-backend/internal/temporalx"
	"github.com/yungbote/lexbridge-backend/internal/temporalx/temporalworker"
)

func main() {
	// Logger
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	// Postgres
	dbService, err := db.New(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
	gdb := dbService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	topicRepo := repos.NewTopicRepo(gdb, log)
	storyRepo := repos.NewStoryRepo(gdb, log)
	explorationRepo := repos.NewExplorationRepo(gdb, log)
	summaryRepo := repos.NewOpportunitySummaryRepo(gdb, log)
	jobRepo := repos.NewJobRunRepo(gdb, log)
	jobEventRepo := repos.NewJobRunEventRepo(gdb, log)

	// Realtime: in-process hub always; redis bus in front of it when
	// REDIS_ADDR is set so every instance sees every event.
	log.Info("Setting up SSE hub from main...")
	hub := realtime.NewSSEHub(log)
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if os.Getenv("REDIS_ADDR") != "" {
		sseBus, busErr := bus.NewRedisBus(log)
		if busErr != nil {
			log.Warn("Redis SSE bus init failed; using in-process hub only", "error", busErr)
		} else if fwdErr := sseBus.StartForwarder(ctx, hub.Broadcast); fwdErr != nil {
			log.Warn("Redis SSE forwarder failed; using in-process hub only", "error", fwdErr)
			_ = sseBus.Close()
		} else {
			emitter = &services.RedisEmitter{Bus: sseBus}
			defer sseBus.Close()
		}
	}
	notifier := services.NewJobNotifier(emitter)

	// Temporal is optional; nil client means the polling worker runs jobs.
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Temporal client init failed", "error", err)
		os.Exit(1)
	}
	if tc != nil {
		defer tc.Close()
	}
	tcfg := temporalx.LoadConfig()

	// Services
	log.Info("Setting up services from main...")
	jobService := services.NewJobService(gdb, log, jobRepo, jobEventRepo, notifier, tc, tcfg.TaskQueue)
	catalogService := services.NewCatalogService(gdb, log, topicRepo, storyRepo, explorationRepo)
	opportunityService := services.NewOpportunityService(gdb, log, summaryRepo)

	// Job registry
	registry := jobrt.NewRegistry()
	mustRegister(log, registry, opportunity_regenerate.New(gdb, log, topicRepo, storyRepo, explorationRepo, summaryRepo))
	mustRegister(log, registry, opportunity_purge.New(gdb, log, summaryRepo))
	mustRegister(log, registry, opportunity_refresh.New(gdb, log, jobService, topicRepo, storyRepo, explorationRepo, summaryRepo))

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "lexbridge-backend"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", ""),
	})
	if otelShutdown != nil {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(flushCtx); err != nil {
				log.Warn("OTel shutdown failed", "error", err)
			}
		}()
	}

	// Job execution: Temporal worker when a client is configured, DB
	// claim-loop worker otherwise.
	if tc != nil {
		runner, rErr := temporalworker.NewRunner(log, tc, gdb, jobRepo, jobEventRepo, registry, notifier)
		if rErr != nil {
			log.Error("Temporal worker init failed", "error", rErr)
			os.Exit(1)
		}
		if err := runner.Start(ctx); err != nil {
			log.Error("Temporal worker start failed", "error", err)
			os.Exit(1)
		}
	} else {
		worker.NewWorker(gdb, log, jobRepo, jobEventRepo, registry, notifier).Start(ctx)
	}

	// Router + server
	log.Info("Setting up router from main...")
	engine := server.NewRouter(server.RouterConfig{
		Log:                log,
		AuthMiddleware:     middleware.NewAuthMiddleware(log),
		HealthHandler:      handlers.NewHealthHandler(gdb),
		CatalogHandler:     handlers.NewCatalogHandler(log, catalogService),
		OpportunityHandler: handlers.NewOpportunityHandler(log, opportunityService, jobService),
		JobHandler:         handlers.NewJobHandler(jobService),
		StreamHandler:      handlers.NewStreamHandler(log, hub),
	})

	addr := ":" + envutil.String("PORT", "8080")
	if err := server.NewServer(log, engine, addr).Run(ctx); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func mustRegister(log *logger.Logger, r *jobrt.Registry, h jobrt.Handler) {
	if err := r.Register(h); err != nil {
		log.Error("Job handler registration failed", "job_type", h.Type(), "error", err)
		os.Exit(1)
	}
}
