package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/batchsync/internal/entities"
)

const defaultPageSize = 50

// Filter narrows GetEntries. Zero fields match everything.
type Filter struct {
	RequestID   string
	MappingName string
	Status      entities.SyncLogStatus
	Since       time.Time
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEntry appends a sync log entry.
func (r *Repository) LogEntry(entry *entities.SyncLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return r.db.Create(entry).Error
}

// GetEntries returns a page of entries matching filter, newest first, and the
// total number of matches.
func (r *Repository) GetEntries(filter Filter, limit, offset int) ([]entities.SyncLogEntry, int64, error) {
	var entries []entities.SyncLogEntry
	var total int64

	query := r.db.Model(&entities.SyncLogEntry{})
	if filter.RequestID != "" {
		query = query.Where("request_id = ?", filter.RequestID)
	}
	if filter.MappingName != "" {
		query = query.Where("mapping_name = ?", filter.MappingName)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if !filter.Since.IsZero() {
		query = query.Where("timestamp >= ?", filter.Since)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("timestamp DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

// GetByRequestID returns every entry of one run in the order they were written.
func (r *Repository) GetByRequestID(requestID string) ([]entities.SyncLogEntry, error) {
	var entries []entities.SyncLogEntry
	err := r.db.Where("request_id = ?", requestID).Order("id ASC").Find(&entries).Error
	return entries, err
}

// DeleteOldEntries removes entries older than olderThan and returns how many
// were deleted.
func (r *Repository) DeleteOldEntries(olderThan time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", olderThan).Delete(&entities.SyncLogEntry{})
	return result.RowsAffected, result.Error
}
