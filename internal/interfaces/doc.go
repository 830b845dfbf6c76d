// Package interfaces documents the extension points of the sync engine.
//
// # Interface Categories
//
// ## Sync Pipeline
//
//   - PageFetcher: reads one page from the source system (internal/syncer/orchestrator.go)
//   - Transformer: turns a source record into a destination payload (internal/syncer/orchestrator.go)
//   - Sender: writes one payload to the destination system (internal/syncer/orchestrator.go)
//   - Requester: executes HTTP requests for the fetcher and the sender (internal/httpclient)
//
// ## Data Access Interfaces
//
//   - AuditLogger: records one entry per item (internal/syncer/orchestrator.go)
//   - Store: persists sync log entries (internal/audit/service.go)
//   - LogReader, RunReader: read logs and run progress (internal/http/stores.go)
//
// ## Progress Tracking Interfaces
//
//   - ProgressReporter: latest run of each mapping (internal/syncer/orchestrator.go)
//   - RunChecker: lets the scheduler skip busy mappings (internal/scheduler/batch_sync.go)
//
// # Adding a New Mapping
//
// Mappings without a transform can be added without code through the file
// named by MAPPINGS_FILE:
//
//	mappings:
//	  - name: badges
//	    sourceEndpoint: /api/admin/badges
//	    destinationEndpoint: /api/v1/badges/{id}
//	    method: PUT
//	    idField: _id
//	    paginationStyle: page
//
// A mapping that needs a transform also needs a transform.Func registered
// under the same name:
//
//	func badges(rec gjson.Result) (json.RawMessage, error) {
//	    // build the destination payload
//	}
//
//	registry := transform.NewRegistry(map[string]transform.Func{"badges": badges})
//
// The registry is checked against the mapping table at startup, so a missing
// transform stops the process before any run.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for examples.
package interfaces
