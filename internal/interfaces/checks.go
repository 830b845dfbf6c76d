package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/batchsync/internal/audit"
	dbaudit "github.com/mrlokans/batchsync/internal/database/audit"
	"github.com/mrlokans/batchsync/internal/database/sync"
	"github.com/mrlokans/batchsync/internal/fetcher"
	"github.com/mrlokans/batchsync/internal/http"
	"github.com/mrlokans/batchsync/internal/httpclient"
	"github.com/mrlokans/batchsync/internal/scheduler"
	"github.com/mrlokans/batchsync/internal/sender"
	"github.com/mrlokans/batchsync/internal/syncer"
	"github.com/mrlokans/batchsync/internal/tasks"
	"github.com/mrlokans/batchsync/internal/transform"
)

// =============================================================================
// Sync Pipeline
// =============================================================================

var _ fetcher.Requester = (*httpclient.Client)(nil)
var _ sender.Requester = (*httpclient.Client)(nil)

var _ syncer.PageFetcher = (*fetcher.Fetcher)(nil)
var _ syncer.Transformer = (*transform.Registry)(nil)
var _ syncer.Sender = (*sender.Sender)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ audit.Store = (*dbaudit.Repository)(nil)
var _ syncer.AuditLogger = (*audit.Service)(nil)
var _ syncer.ReportArchiver = (*audit.Auditor)(nil)
var _ http.LogReader = (*audit.Service)(nil)
var _ tasks.LogPruner = (*audit.Service)(nil)

// =============================================================================
// Progress Tracking
// =============================================================================

var _ syncer.ProgressReporter = (*sync.Repository)(nil)
var _ scheduler.RunChecker = (*sync.Repository)(nil)
var _ http.RunReader = (*sync.Repository)(nil)

// =============================================================================
// Triggers
// =============================================================================

var _ http.SyncRunner = (*syncer.Orchestrator)(nil)
var _ scheduler.Runner = (*syncer.Orchestrator)(nil)
var _ tasks.Runner = (*syncer.Orchestrator)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
