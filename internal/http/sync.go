package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/batchsync/internal/config"
	"github.com/mrlokans/batchsync/internal/database/audit"
	"github.com/mrlokans/batchsync/internal/entities"
	"github.com/mrlokans/batchsync/internal/mapping"
	"github.com/mrlokans/batchsync/internal/syncer"
	"github.com/mrlokans/batchsync/internal/tasks"
)

const (
	defaultLogsLimit = 50
	maxLogsLimit     = 500
)

// SyncController triggers sync runs and exposes their logs and progress.
type SyncController struct {
	mappings *mapping.Registry
	runner   SyncRunner
	logs     LogReader
	runs     RunReader
	queue    TaskQueue
}

func NewSyncController(mappings *mapping.Registry, runner SyncRunner, logs LogReader, runs RunReader, queue TaskQueue) *SyncController {
	return &SyncController{
		mappings: mappings,
		runner:   runner,
		logs:     logs,
		runs:     runs,
		queue:    queue,
	}
}

// Trigger handles POST /api/sync/:mapping
//
// Query parameters: mode (sync|dry-run), limit, page, cursor, async.
// A synchronous call answers with the SyncResult: 200 when the run completed
// (item failures included), 502 when the source page could not be fetched.
// An async call answers 202 with the task id.
func (sc *SyncController) Trigger(c *gin.Context) {
	name := c.Param("mapping")
	if _, err := sc.mappings.Resolve(name); err != nil {
		respondNotFound(c, "mapping "+name)
		return
	}

	mode := config.Mode(c.Query("mode"))
	switch mode {
	case "", config.ModeSync, config.ModeDryRun:
	default:
		respondBadRequest(c, "invalid mode: want sync or dry-run")
		return
	}
	limit, ok := parseNonNegativeQuery(c, "limit", 0)
	if !ok {
		return
	}
	page, ok := parseNonNegativeQuery(c, "page", 0)
	if !ok {
		return
	}
	async, ok := parseBoolQuery(c, "async")
	if !ok {
		return
	}
	cursor := c.Query("cursor")

	if async {
		if sc.queue == nil {
			respondError(c, http.StatusServiceUnavailable, "task queue is disabled")
			return
		}
		taskID, err := sc.queue.Enqueue(tasks.RunBatchSyncTask{
			Mapping: name,
			Mode:    mode,
			Limit:   limit,
			Page:    page,
			Cursor:  cursor,
		})
		if err != nil {
			respondInternalError(c, err, "enqueue sync")
			return
		}
		respondAccepted(c, "sync enqueued", gin.H{"task_id": taskID, "mapping": name})
		return
	}

	result := sc.runner.RunBatchSync(c.Request.Context(), name, syncer.RunOptions{
		Mode:   mode,
		Limit:  limit,
		Page:   page,
		Cursor: cursor,
	})

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

// ListMappings handles GET /api/sync/mappings
func (sc *SyncController) ListMappings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mappings": sc.mappings.All()})
}

// ListLogs handles GET /api/sync/logs
//
// Query parameters: request_id, mapping, status, since (RFC3339), limit, offset.
func (sc *SyncController) ListLogs(c *gin.Context) {
	filter := audit.Filter{
		RequestID:   c.Query("request_id"),
		MappingName: c.Query("mapping"),
		Status:      entities.SyncLogStatus(c.Query("status")),
	}
	switch filter.Status {
	case "", entities.SyncLogSuccess, entities.SyncLogError, entities.SyncLogSkipped:
	default:
		respondBadRequest(c, "invalid status")
		return
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondBadRequest(c, "invalid since: want RFC3339")
			return
		}
		filter.Since = t
	}

	limit, ok := parseNonNegativeQuery(c, "limit", defaultLogsLimit)
	if !ok {
		return
	}
	if limit == 0 || limit > maxLogsLimit {
		limit = defaultLogsLimit
	}
	offset, ok := parseNonNegativeQuery(c, "offset", 0)
	if !ok {
		return
	}

	entries, total, err := sc.logs.GetEntries(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list sync logs")
		return
	}
	if entries == nil {
		entries = []entities.SyncLogEntry{}
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(entries)) < total,
	})
}

// GetRunLogs handles GET /api/sync/logs/:request_id
func (sc *SyncController) GetRunLogs(c *gin.Context) {
	requestID := c.Param("request_id")
	entries, err := sc.logs.GetRun(requestID)
	if err != nil {
		respondInternalError(c, err, "get run logs")
		return
	}
	if len(entries) == 0 {
		respondNotFound(c, "run "+requestID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": requestID, "entries": entries})
}

// ListRuns handles GET /api/sync/runs
func (sc *SyncController) ListRuns(c *gin.Context) {
	runs, err := sc.runs.ListRuns()
	if err != nil {
		respondInternalError(c, err, "list sync runs")
		return
	}
	if runs == nil {
		runs = []entities.SyncRun{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /api/sync/runs/:mapping
func (sc *SyncController) GetRun(c *gin.Context) {
	name := c.Param("mapping")
	run, err := sc.runs.GetSyncRun(name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "run for "+name)
		return
	}
	if err != nil {
		respondInternalError(c, err, "get sync run")
		return
	}
	c.JSON(http.StatusOK, run)
}
