// Package audit records one entry per item-sync attempt and archives run
// reports.
package audit

import (
	"log"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/batchsync/internal/database/audit"
	"github.com/mrlokans/batchsync/internal/entities"
)

const maxErrorLen = 1000

// Store persists sync log entries.
type Store interface {
	LogEntry(entry *entities.SyncLogEntry) error
	GetEntries(filter audit.Filter, limit, offset int) ([]entities.SyncLogEntry, int64, error)
	GetByRequestID(requestID string) ([]entities.SyncLogEntry, error)
	DeleteOldEntries(olderThan time.Time) (int64, error)
}

type Service struct {
	store Store
}

// NewService creates a service. A nil store only writes log lines.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// LogEntry prints the entry and persists it before returning, so entries of
// one run are stored in item order. Persistence failures are logged and
// swallowed: the audit trail must never fail an item.
func (s *Service) LogEntry(entry *entities.SyncLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Error = truncate(entry.Error, maxErrorLen)

	log.Printf("[SYNC] request_id=%s mapping=%s action=%s status=%s source_id=%s destination_id=%s dry_run=%t error=%q",
		entry.RequestID, entry.MappingName, entry.Action, entry.Status,
		entry.SourceResourceID, entry.DestinationResourceID, entry.DryRun, entry.Error)

	if s.store == nil {
		return
	}
	if err := s.store.LogEntry(entry); err != nil {
		log.Printf("[SYNC] failed to persist sync log entry: request_id=%s source_id=%s error=%v",
			entry.RequestID, entry.SourceResourceID, err)
	}
}

// GetEntries returns a page of entries matching filter.
func (s *Service) GetEntries(filter audit.Filter, limit, offset int) ([]entities.SyncLogEntry, int64, error) {
	if s.store == nil {
		return nil, 0, nil
	}
	return s.store.GetEntries(filter, limit, offset)
}

// GetRun returns every entry of the run identified by requestID.
func (s *Service) GetRun(requestID string) ([]entities.SyncLogEntry, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.GetByRequestID(requestID)
}

// DeleteOldEntries removes entries older than retention.
func (s *Service) DeleteOldEntries(retention time.Duration) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	return s.store.DeleteOldEntries(time.Now().Add(-retention))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
