package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/batchsync/internal/database"
	"github.com/mrlokans/batchsync/internal/mapping"
)

const (
	healthOK          = "ok"
	healthDegraded    = "degraded"
	healthUnavailable = "unavailable"
)

// HealthResponse describes whether the engine can serve sync requests.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Database  string    `json:"database"`
	Mappings  []string  `json:"mappings"`
	TaskQueue bool      `json:"taskQueue"`
	CheckedAt time.Time `json:"checkedAt"`
}

type HealthController struct {
	db        *database.Database
	mappings  *mapping.Registry
	taskQueue bool
	version   string
}

func NewHealthController(cfg RouterConfig) *HealthController {
	return &HealthController{
		db:        cfg.Database,
		mappings:  cfg.Mappings,
		taskQueue: cfg.TaskQueue != nil,
		version:   cfg.Version,
	}
}

// Status handles GET /health. It is not behind the shared secret.
//
// An unreachable audit database makes the engine unavailable (503). An empty
// mapping table leaves it up but degraded, since every trigger would 404.
func (h *HealthController) Status(c *gin.Context) {
	response := HealthResponse{
		Status:    healthOK,
		Version:   h.version,
		Database:  "disabled",
		Mappings:  []string{},
		TaskQueue: h.taskQueue,
		CheckedAt: time.Now().UTC(),
	}

	if h.mappings != nil {
		response.Mappings = h.mappings.Names()
	}
	if len(response.Mappings) == 0 {
		response.Status = healthDegraded
	}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			response.Database = err.Error()
			response.Status = healthUnavailable
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.Database = healthOK
	}

	c.JSON(http.StatusOK, response)
}
