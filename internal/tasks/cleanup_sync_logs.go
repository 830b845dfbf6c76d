package tasks

import (
	"context"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// LogPruner deletes sync log entries older than a retention window.
type LogPruner interface {
	DeleteOldEntries(retention time.Duration) (int64, error)
}

// CleanupSyncLogsTask prunes old sync log entries.
type CleanupSyncLogsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupSyncLogsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_sync_logs",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
		},
	}
}

func CleanupSyncLogsProcessor(pruner LogPruner) backlite.QueueProcessor[CleanupSyncLogsTask] {
	return func(ctx context.Context, task CleanupSyncLogsTask) error {
		if task.RetentionDays <= 0 {
			return nil
		}

		retention := time.Duration(task.RetentionDays) * 24 * time.Hour
		deleted, err := pruner.DeleteOldEntries(retention)
		if err != nil {
			log.Printf("[TASK ERROR] Sync log cleanup failed: %v", err)
			return err
		}
		if deleted > 0 {
			log.Printf("[TASK] Sync log cleanup: deleted %d entries older than %d days", deleted, task.RetentionDays)
		}
		return nil
	}
}

func NewCleanupSyncLogsQueue(pruner LogPruner) backlite.Queue {
	return backlite.NewQueue(CleanupSyncLogsProcessor(pruner))
}
