package syncer

import (
	"encoding/json"
	"time"

	"github.com/mrlokans/batchsync/internal/fetcher"
)

// ItemError describes one failed item, or a run-level failure when
// ResourceID is empty.
type ItemError struct {
	ResourceID string `json:"resourceId,omitempty"`
	Error      string `json:"error"`
}

// Action is a write that a dry run would have performed.
type Action struct {
	Action     string          `json:"action"`
	ResourceID string          `json:"resourceId"`
	Endpoint   string          `json:"endpoint"`
	Payload    json.RawMessage `json:"payload"`
}

// SyncResult is the outcome of one run.
//
// ProcessedCount always equals SuccessCount + FailureCount + SkippedCount.
// Success is false only when the mapping could not be resolved or the page
// could not be fetched; per-item failures leave it true.
type SyncResult struct {
	RequestID      string            `json:"requestId"`
	MappingName    string            `json:"mappingName"`
	Success        bool              `json:"success"`
	ProcessedCount int               `json:"processedCount"`
	SuccessCount   int               `json:"successCount"`
	FailureCount   int               `json:"failureCount"`
	SkippedCount   int               `json:"skippedCount"`
	Errors         []ItemError       `json:"errors"`
	DryRun         bool              `json:"dryRun"`
	Actions        []Action          `json:"actions,omitempty"`
	Cancelled      bool              `json:"cancelled,omitempty"`
	Pagination     *fetcher.PageMeta `json:"pagination,omitempty"`
	ReportFile     string            `json:"reportFile,omitempty"`
	StartedAt      time.Time         `json:"startedAt"`
	FinishedAt     time.Time         `json:"finishedAt"`
}

func newResult(requestID, mappingName string, dryRun bool, startedAt time.Time) *SyncResult {
	r := &SyncResult{
		RequestID:   requestID,
		MappingName: mappingName,
		Success:     true,
		Errors:      []ItemError{},
		DryRun:      dryRun,
		StartedAt:   startedAt,
	}
	if dryRun {
		r.Actions = []Action{}
	}
	return r
}

func (r *SyncResult) fail(err error) {
	r.Success = false
	r.Errors = append(r.Errors, ItemError{Error: err.Error()})
}

func (r *SyncResult) recordSuccess(action *Action) {
	r.ProcessedCount++
	r.SuccessCount++
	if action != nil && r.DryRun {
		r.Actions = append(r.Actions, *action)
	}
}

func (r *SyncResult) recordFailure(resourceID string, err error) {
	r.ProcessedCount++
	r.FailureCount++
	r.Errors = append(r.Errors, ItemError{ResourceID: resourceID, Error: err.Error()})
}

func (r *SyncResult) recordSkip() {
	r.ProcessedCount++
	r.SkippedCount++
}
