package entities

import "time"

type SyncLogStatus string

const (
	SyncLogSuccess SyncLogStatus = "success"
	SyncLogError   SyncLogStatus = "error"
	SyncLogSkipped SyncLogStatus = "skipped"
)

// SyncLogEntry is the audit record of one item-sync attempt. Entries are
// append-only; all entries of one run share a RequestID.
type SyncLogEntry struct {
	ID                    uint          `gorm:"primaryKey" json:"id"`
	RequestID             string        `gorm:"index;size:36" json:"request_id"`
	MappingName           string        `gorm:"index;size:100" json:"mapping_name"`
	Action                string        `gorm:"size:10" json:"action"` // HTTP verb used against the destination
	Status                SyncLogStatus `gorm:"index;size:20" json:"status"`
	SourceResourceID      string        `gorm:"size:255" json:"source_resource_id"`
	DestinationResourceID string        `gorm:"size:255" json:"destination_resource_id,omitempty"`
	DryRun                bool          `json:"dry_run"`
	Error                 string        `gorm:"type:text" json:"error,omitempty"`
	Timestamp             time.Time     `gorm:"index" json:"timestamp"`
}

func (SyncLogEntry) TableName() string {
	return "sync_log_entries"
}
