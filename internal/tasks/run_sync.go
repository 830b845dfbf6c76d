package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/batchsync/internal/config"
	"github.com/mrlokans/batchsync/internal/syncer"
)

// Runner runs one batch of a mapping.
type Runner interface {
	RunBatchSync(ctx context.Context, mappingName string, opts syncer.RunOptions) *syncer.SyncResult
}

// RunBatchSyncTask is a batch sync triggered asynchronously.
type RunBatchSyncTask struct {
	Mapping string      `json:"mapping"`
	Mode    config.Mode `json:"mode,omitempty"`
	Limit   int         `json:"limit,omitempty"`
	Page    int         `json:"page,omitempty"`
	Cursor  string      `json:"cursor,omitempty"`
}

// Config allows a single attempt: items already written are never resent.
func (t RunBatchSyncTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "run_batch_sync",
		MaxAttempts: 1,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data: &backlite.RetainData{
				OnlyFailed: true,
			},
		},
	}
}

func (t RunBatchSyncTask) options() syncer.RunOptions {
	return syncer.RunOptions{
		Mode:   t.Mode,
		Limit:  t.Limit,
		Page:   t.Page,
		Cursor: t.Cursor,
	}
}

// RunBatchSyncProcessor runs the task and fails it when the run could not
// start or fetch. Item-level failures leave the task successful.
func RunBatchSyncProcessor(runner Runner) backlite.QueueProcessor[RunBatchSyncTask] {
	return func(ctx context.Context, task RunBatchSyncTask) error {
		log.Printf("[TASK] Running batch sync: mapping=%s mode=%s", task.Mapping, task.Mode)

		result := runner.RunBatchSync(ctx, task.Mapping, task.options())
		if result == nil {
			return fmt.Errorf("batch sync %s returned no result", task.Mapping)
		}
		if !result.Success {
			msg := "unknown error"
			if len(result.Errors) > 0 {
				msg = result.Errors[0].Error
			}
			return fmt.Errorf("batch sync %s (request %s) failed: %s", task.Mapping, result.RequestID, msg)
		}

		log.Printf("[TASK] Batch sync done: mapping=%s request_id=%s succeeded=%d failed=%d skipped=%d",
			task.Mapping, result.RequestID, result.SuccessCount, result.FailureCount, result.SkippedCount)
		return nil
	}
}

func NewRunBatchSyncQueue(runner Runner) backlite.Queue {
	return backlite.NewQueue(RunBatchSyncProcessor(runner))
}
