package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates the HTTP router. Everything under /api requires the
// shared secret; /health does not.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg)
	router.GET("/health", health.Status)

	api := router.Group("/api", RequireSharedSecret(cfg.SharedSecret))

	syncController := NewSyncController(cfg.Mappings, cfg.Runner, cfg.Logs, cfg.Runs, cfg.TaskQueue)
	api.GET("/sync/mappings", syncController.ListMappings)
	api.GET("/sync/logs", syncController.ListLogs)
	api.GET("/sync/logs/:request_id", syncController.GetRunLogs)
	api.GET("/sync/runs", syncController.ListRuns)
	api.GET("/sync/runs/:mapping", syncController.GetRun)
	api.POST("/sync/:mapping", syncController.Trigger)

	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}
