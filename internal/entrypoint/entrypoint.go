package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/batchsync/internal/config"
	http_controllers "github.com/mrlokans/batchsync/internal/http"
	"github.com/mrlokans/batchsync/internal/scheduler"
	"github.com/mrlokans/batchsync/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// SIGKILL cannot be caught.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener goes away.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting batchsync v%s", version)

	engine, err := NewEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize sync engine: %v", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()
	log.Printf("Sync engine ready: mappings=%v mode=%s", engine.Mappings.Names(), cfg.Sync.Mode)

	backgroundCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewRunBatchSyncQueue(engine.Orchestrator),
			tasks.NewCleanupSyncLogsQueue(engine.Audit),
		)
		go taskClient.Start(backgroundCtx)

		if cfg.Audit.RetentionDays > 0 {
			taskClient.EnqueueEvery(backgroundCtx, 24*time.Hour, tasks.CleanupSyncLogsTask{RetentionDays: cfg.Audit.RetentionDays})
		}
	}

	var syncScheduler *scheduler.BatchSyncScheduler
	if cfg.Schedule.Enabled {
		syncScheduler = scheduler.NewBatchSyncScheduler(engine.Orchestrator, engine.Runs, cfg.Schedule.Cron, cfg.Schedule.Mappings)
		if err := syncScheduler.Start(backgroundCtx); err != nil {
			log.Fatalf("Failed to start sync scheduler: %v", err)
		}
		if next := syncScheduler.GetNextRunTime(); next != nil {
			log.Printf("Next scheduled sync at %s", next.Format(time.RFC3339))
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:     engine.DB,
		Mappings:     engine.Mappings,
		Runner:       engine.Orchestrator,
		Logs:         engine.Audit,
		Runs:         engine.Runs,
		SharedSecret: cfg.Sync.SharedSecret,
		Version:      version,
	}
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if syncScheduler != nil {
			syncScheduler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		cancelBackground()
	}

	Serve(router, cfg, onShutdown)
}
