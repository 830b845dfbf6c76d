// Package sync stores the progress of the latest run of each mapping.
//
// One row per mapping name is kept; starting a run resets that row. The
// repository implements syncer.ProgressReporter:
//
//	var _ syncer.ProgressReporter = (*Repository)(nil)
package sync

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/batchsync/internal/entities"
)

// StaleAfter is how long a running row may go without updates before it is
// treated as interrupted.
const StaleAfter = 10 * time.Minute

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// GetSyncRun returns the latest run of mappingName.
func (r *Repository) GetSyncRun(mappingName string) (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := r.db.Where("mapping_name = ?", mappingName).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the latest run of every mapping, most recently started first.
func (r *Repository) ListRuns() ([]entities.SyncRun, error) {
	var runs []entities.SyncRun
	err := r.db.Order("started_at DESC").Find(&runs).Error
	return runs, err
}

// StartSync creates or resets the run row of mappingName.
func (r *Repository) StartSync(mappingName, requestID string, dryRun bool, totalItems int) error {
	now := r.now()
	run := entities.SyncRun{
		MappingName: mappingName,
		RequestID:   requestID,
		DryRun:      dryRun,
		Status:      entities.SyncStatusRunning,
		TotalItems:  totalItems,
		StartedAt:   now,
		UpdatedAt:   now,
	}

	var existing entities.SyncRun
	err := r.db.Where("mapping_name = ?", mappingName).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(&run).Error
	}
	if err != nil {
		return err
	}

	run.ID = existing.ID
	return r.db.Save(&run).Error
}

// UpdateProgress records the counters of an ongoing run.
func (r *Repository) UpdateProgress(mappingName string, processed, succeeded, failed, skipped int, currentItem string) error {
	return r.db.Model(&entities.SyncRun{}).
		Where("mapping_name = ?", mappingName).
		Updates(map[string]any{
			"processed":    processed,
			"succeeded":    succeeded,
			"failed":       failed,
			"skipped":      skipped,
			"current_item": currentItem,
			"updated_at":   r.now(),
		}).Error
}

// CompleteSync marks the run of mappingName as completed or failed.
func (r *Repository) CompleteSync(mappingName string, succeeded bool, errorMsg string) error {
	now := r.now()
	status := entities.SyncStatusCompleted
	if !succeeded {
		status = entities.SyncStatusFailed
	}

	updates := map[string]any{
		"status":       status,
		"current_item": "",
		"updated_at":   now,
		"completed_at": now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	return r.db.Model(&entities.SyncRun{}).
		Where("mapping_name = ?", mappingName).
		Updates(updates).Error
}

// IsSyncRunning reports whether mappingName has a run in progress. A running
// row not updated within StaleAfter is marked failed and reported as idle.
func (r *Repository) IsSyncRunning(mappingName string) (bool, error) {
	var run entities.SyncRun
	err := r.db.Where("mapping_name = ? AND status = ?", mappingName, entities.SyncStatusRunning).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if run.UpdatedAt.Before(r.now().Add(-StaleAfter)) {
		if err := r.CompleteSync(mappingName, false, "sync was interrupted"); err != nil {
			log.Printf("[SYNC] failed to mark stale run of %s as failed: %v", mappingName, err)
		}
		return false, nil
	}
	return true, nil
}
