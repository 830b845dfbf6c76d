// Package syncer runs one batch of a mapping: fetch a page from the source,
// transform every record and send it to the destination, item by item.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/mrlokans/batchsync/internal/config"
	"github.com/mrlokans/batchsync/internal/entities"
	"github.com/mrlokans/batchsync/internal/fetcher"
	"github.com/mrlokans/batchsync/internal/mapping"
	"github.com/mrlokans/batchsync/internal/sender"
	"github.com/mrlokans/batchsync/internal/transform"
)

type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, style mapping.PaginationStyle, opts fetcher.FetchOptions) (*fetcher.FetchPage, error)
}

type Transformer interface {
	Transform(name string, record json.RawMessage) (json.RawMessage, error)
}

type Sender interface {
	Send(ctx context.Context, req sender.SendRequest) (*sender.Response, error)
}

type AuditLogger interface {
	LogEntry(entry *entities.SyncLogEntry)
}

// ProgressReporter tracks the latest run of each mapping.
type ProgressReporter interface {
	StartSync(mappingName, requestID string, dryRun bool, totalItems int) error
	UpdateProgress(mappingName string, processed, succeeded, failed, skipped int, currentItem string) error
	CompleteSync(mappingName string, succeeded bool, errorMsg string) error
	IsSyncRunning(mappingName string) (bool, error)
}

// ReportArchiver stores the final result of each run.
type ReportArchiver interface {
	SaveJSON(prefix string, data any) (string, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Mappings   *mapping.Registry
	Transforms Transformer
	Fetcher    PageFetcher
	Sender     Sender
	Audit      AuditLogger
}

type Options struct {
	BatchSize           int
	Mode                config.Mode
	RateLimitDelay      time.Duration
	IdempotencyStrategy config.IdempotencyStrategy
}

// RunOptions override the defaults for one run.
type RunOptions struct {
	Mode   config.Mode
	Limit  int
	Page   int
	Cursor string
}

// Orchestrator holds no per-run state and may serve concurrent runs of
// different mappings.
type Orchestrator struct {
	deps     Deps
	opts     Options
	progress ProgressReporter
	archiver ReportArchiver

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

func New(deps Deps, opts Options) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.DefaultBatchSize
	}
	if opts.Mode == "" {
		opts.Mode = config.ModeDryRun
	}
	return &Orchestrator{
		deps:  deps,
		opts:  opts,
		now:   time.Now,
		sleep: sleepContext,
		newID: func() string { return uuid.NewString() },
	}
}

// SetProgressReporter enables run progress tracking (optional).
func (o *Orchestrator) SetProgressReporter(reporter ProgressReporter) {
	o.progress = reporter
}

// SetReportArchiver enables JSON run reports (optional).
func (o *Orchestrator) SetReportArchiver(archiver ReportArchiver) {
	o.archiver = archiver
}

// Mappings returns the registry runs are resolved against.
func (o *Orchestrator) Mappings() *mapping.Registry {
	return o.deps.Mappings
}

// RunBatchSync synchronizes one page of mappingName. It never returns an
// error: every failure is reported in the result.
func (o *Orchestrator) RunBatchSync(ctx context.Context, mappingName string, ro RunOptions) *SyncResult {
	mode := ro.Mode
	if mode == "" {
		mode = o.opts.Mode
	}
	dryRun := mode != config.ModeSync
	result := newResult(o.newID(), mappingName, dryRun, o.now())

	m, err := o.deps.Mappings.Resolve(mappingName)
	if err != nil {
		result.fail(err)
		return o.finish(result, nil)
	}

	log.Printf("[SYNC] starting request_id=%s mapping=%s dry_run=%t", result.RequestID, m.Name, dryRun)

	limit := ro.Limit
	if limit <= 0 {
		limit = o.opts.BatchSize
	}
	page, err := o.deps.Fetcher.FetchPage(ctx, m.SourceEndpoint, m.PaginationStyle, fetcher.FetchOptions{
		Page:   ro.Page,
		Limit:  limit,
		Cursor: ro.Cursor,
	})
	if err != nil {
		o.startProgress(result, 0)
		result.fail(fmt.Errorf("fetching %s: %w", m.SourceEndpoint, err))
		return o.finish(result, &m)
	}
	result.Pagination = page.Meta
	o.startProgress(result, len(page.Items))

	for i, item := range page.Items {
		if err := ctx.Err(); err != nil {
			o.cancel(result, err, len(page.Items)-i)
			break
		}

		id := o.processItem(ctx, m, item, result)
		o.updateProgress(result, id)

		if i < len(page.Items)-1 && o.opts.RateLimitDelay > 0 {
			if err := o.sleep(ctx, o.opts.RateLimitDelay); err != nil {
				o.cancel(result, err, len(page.Items)-i-1)
				break
			}
		}
	}

	return o.finish(result, &m)
}

// processItem runs one record through transform and send and returns its
// resource id.
func (o *Orchestrator) processItem(ctx context.Context, m mapping.EndpointMapping, item json.RawMessage, result *SyncResult) string {
	resourceID := extractID(item, m.IDField)
	entry := &entities.SyncLogEntry{
		RequestID:        result.RequestID,
		MappingName:      m.Name,
		Action:           string(m.Method),
		SourceResourceID: resourceID,
		DryRun:           result.DryRun,
	}

	payload, err := o.payload(m, item)
	if errors.Is(err, transform.ErrSkipRecord) {
		result.recordSkip()
		entry.Status = entities.SyncLogSkipped
		entry.Error = err.Error()
		o.audit(entry)
		return resourceID
	}
	if err != nil {
		o.itemFailed(result, entry, err)
		return resourceID
	}

	endpoint := mapping.DestinationPath(m, resourceID)
	if resourceID == "" && strings.Contains(m.DestinationEndpoint, mapping.IDPlaceholder) {
		o.itemFailed(result, entry, fmt.Errorf("record has no %q field to address %s", m.IDField, m.DestinationEndpoint))
		return resourceID
	}

	resp, err := o.deps.Sender.Send(ctx, sender.SendRequest{
		Endpoint:       endpoint,
		Method:         m.Method,
		Payload:        payload,
		IdempotencyKey: sender.IdempotencyKey(o.opts.IdempotencyStrategy, resourceID, m.Name, o.now()),
		DryRun:         result.DryRun,
	})
	if err != nil {
		o.itemFailed(result, entry, err)
		return resourceID
	}

	result.recordSuccess(&Action{
		Action:     string(m.Method),
		ResourceID: resourceID,
		Endpoint:   endpoint,
		Payload:    payload,
	})
	entry.Status = entities.SyncLogSuccess
	entry.DestinationResourceID = resp.DestinationID
	o.audit(entry)
	return resourceID
}

func (o *Orchestrator) payload(m mapping.EndpointMapping, item json.RawMessage) (json.RawMessage, error) {
	if !m.RequiresTransform {
		return item, nil
	}
	if o.deps.Transforms == nil {
		return nil, &transform.Error{Mapping: m.Name, Err: transform.ErrUnknownTransform}
	}
	return o.deps.Transforms.Transform(m.Name, item)
}

func (o *Orchestrator) itemFailed(result *SyncResult, entry *entities.SyncLogEntry, err error) {
	result.recordFailure(entry.SourceResourceID, err)
	entry.Status = entities.SyncLogError
	entry.Error = err.Error()
	o.audit(entry)
}

func (o *Orchestrator) cancel(result *SyncResult, err error, remaining int) {
	result.Cancelled = true
	result.Errors = append(result.Errors, ItemError{
		Error: fmt.Sprintf("run cancelled with %d items left: %v", remaining, err),
	})
	log.Printf("[SYNC] cancelled request_id=%s mapping=%s remaining=%d", result.RequestID, result.MappingName, remaining)
}

func (o *Orchestrator) audit(entry *entities.SyncLogEntry) {
	if o.deps.Audit != nil {
		o.deps.Audit.LogEntry(entry)
	}
}

func (o *Orchestrator) finish(result *SyncResult, m *mapping.EndpointMapping) *SyncResult {
	result.FinishedAt = o.now()

	if m != nil {
		o.completeProgress(result)
		if o.archiver != nil {
			if name, err := o.archiver.SaveJSON(m.Name, result); err != nil {
				log.Printf("[SYNC] failed to save report request_id=%s: %v", result.RequestID, err)
			} else {
				result.ReportFile = name
			}
		}
	}

	log.Printf("[SYNC] finished request_id=%s mapping=%s success=%t processed=%d succeeded=%d failed=%d skipped=%d dry_run=%t duration=%v",
		result.RequestID, result.MappingName, result.Success, result.ProcessedCount, result.SuccessCount,
		result.FailureCount, result.SkippedCount, result.DryRun, result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	return result
}

func (o *Orchestrator) startProgress(result *SyncResult, totalItems int) {
	if o.progress == nil {
		return
	}
	if err := o.progress.StartSync(result.MappingName, result.RequestID, result.DryRun, totalItems); err != nil {
		log.Printf("[SYNC] failed to record run start: %v", err)
	}
}

func (o *Orchestrator) updateProgress(result *SyncResult, currentItem string) {
	if o.progress == nil {
		return
	}
	if err := o.progress.UpdateProgress(result.MappingName, result.ProcessedCount, result.SuccessCount,
		result.FailureCount, result.SkippedCount, currentItem); err != nil {
		log.Printf("[SYNC] failed to record progress: %v", err)
	}
}

func (o *Orchestrator) completeProgress(result *SyncResult) {
	if o.progress == nil {
		return
	}
	var msg string
	if len(result.Errors) > 0 {
		msg = result.Errors[0].Error
	}
	if err := o.progress.CompleteSync(result.MappingName, result.Success && !result.Cancelled, msg); err != nil {
		log.Printf("[SYNC] failed to record run completion: %v", err)
	}
}

func extractID(item json.RawMessage, idField string) string {
	v := gjson.GetBytes(item, gjsonKey(idField))
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

// gjsonKey escapes path syntax so the field name is matched literally.
func gjsonKey(field string) string {
	return strings.NewReplacer(`.`, `\.`, `*`, `\*`, `?`, `\?`).Replace(field)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
