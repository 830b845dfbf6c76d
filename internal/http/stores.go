package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/batchsync/internal/database/audit"
	"github.com/mrlokans/batchsync/internal/entities"
	"github.com/mrlokans/batchsync/internal/syncer"
)

// SyncRunner runs one batch of a mapping.
type SyncRunner interface {
	RunBatchSync(ctx context.Context, mappingName string, opts syncer.RunOptions) *syncer.SyncResult
}

// LogReader reads the sync log.
type LogReader interface {
	GetEntries(filter audit.Filter, limit, offset int) ([]entities.SyncLogEntry, int64, error)
	GetRun(requestID string) ([]entities.SyncLogEntry, error)
}

// RunReader reads the progress of the latest run of each mapping.
type RunReader interface {
	ListRuns() ([]entities.SyncRun, error)
	GetSyncRun(mappingName string) (*entities.SyncRun, error)
}

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (string, error)
}
