package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/batchsync/internal/config"
	"github.com/mrlokans/batchsync/internal/entities"
	"github.com/mrlokans/batchsync/internal/fetcher"
	"github.com/mrlokans/batchsync/internal/httpclient"
	"github.com/mrlokans/batchsync/internal/mapping"
	"github.com/mrlokans/batchsync/internal/sender"
	"github.com/mrlokans/batchsync/internal/transform"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []entities.SyncLogEntry
}

func (r *recordingAudit) LogEntry(entry *entities.SyncLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
}

type destRequest struct {
	Method         string
	Path           string
	IdempotencyKey string
	Body           string
}

// destination records every write and answers with respond.
type destination struct {
	*httptest.Server
	mu       sync.Mutex
	requests []destRequest
}

func newDestination(t *testing.T, respond func(n int, w http.ResponseWriter, r *http.Request)) *destination {
	d := &destination{}
	d.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		d.mu.Lock()
		d.requests = append(d.requests, destRequest{
			Method:         r.Method,
			Path:           r.URL.Path,
			IdempotencyKey: r.Header.Get(sender.IdempotencyHeader),
			Body:           string(body),
		})
		n := len(d.requests)
		d.mu.Unlock()
		respond(n, w, r)
	}))
	t.Cleanup(d.Close)
	return d
}

func (d *destination) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func newSource(t *testing.T, body string) (*httptest.Server, *int32) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func newTestOrchestrator(t *testing.T, sourceURL, destURL string, mode config.Mode) (*Orchestrator, *recordingAudit) {
	t.Helper()
	clientOpts := func(url string) httpclient.Options {
		return httpclient.Options{BaseURL: url, AuthHeader: "Bearer test", MaxRetries: 3, BaseDelay: time.Millisecond}
	}
	audit := &recordingAudit{}
	o := New(Deps{
		Mappings:   mapping.DefaultRegistry(),
		Transforms: transform.Default(),
		Fetcher:    fetcher.New(httpclient.New(clientOpts(sourceURL))),
		Sender:     sender.New(httpclient.New(clientOpts(destURL))),
		Audit:      audit,
	}, Options{BatchSize: 10, Mode: mode})
	return o, audit
}

func assertCountsInvariant(t *testing.T, r *SyncResult) {
	t.Helper()
	assert.Equal(t, r.ProcessedCount, r.SuccessCount+r.FailureCount+r.SkippedCount)
}

const usersPage = `{
	"data": [
		{"_id": "u1", "email": "one@example.com", "username": "one"},
		{"_id": "u2", "email": "two@example.com", "deleted": true},
		{"_id": "u3", "email": "not-an-email"},
		{"_id": "u4", "email": "four@example.com"}
	],
	"page": 1, "totalPages": 1, "total": 4
}`

func TestRunBatchSync_DryRunIsPure(t *testing.T) {
	src, _ := newSource(t, usersPage)
	dest := newDestination(t, func(int, http.ResponseWriter, *http.Request) {})
	o, audit := newTestOrchestrator(t, src.URL, dest.URL, config.ModeDryRun)

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})

	assert.True(t, result.Success)
	assert.True(t, result.DryRun)
	assert.Equal(t, 0, dest.calls())

	assert.Equal(t, 4, result.ProcessedCount)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, 1, result.SkippedCount)
	assertCountsInvariant(t, result)

	require.Len(t, result.Actions, result.SuccessCount)
	assert.Equal(t, "POST", result.Actions[0].Action)
	assert.Equal(t, "u1", result.Actions[0].ResourceID)
	assert.Equal(t, "/api/v1/users", result.Actions[0].Endpoint)
	assert.JSONEq(t, `"one@example.com"`, mustGet(t, result.Actions[0].Payload, "email"))
	assert.Equal(t, "u4", result.Actions[1].ResourceID)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "u3", result.Errors[0].ResourceID)

	require.NotNil(t, result.Pagination)
	assert.Equal(t, 4, *result.Pagination.Total)

	require.Len(t, audit.entries, 4)
	for _, e := range audit.entries {
		assert.Equal(t, result.RequestID, e.RequestID)
		assert.True(t, e.DryRun)
	}
	assert.Equal(t, entities.SyncLogSuccess, audit.entries[0].Status)
	assert.Equal(t, entities.SyncLogSkipped, audit.entries[1].Status)
	assert.Equal(t, entities.SyncLogError, audit.entries[2].Status)
	assert.Equal(t, "u4", audit.entries[3].SourceResourceID)
}

func TestRunBatchSync_UnknownMapping(t *testing.T) {
	src, srcCalls := newSource(t, usersPage)
	dest := newDestination(t, func(int, http.ResponseWriter, *http.Request) {})
	o, audit := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), "doesNotExist", RunOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.ProcessedCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "not found")
	assert.Equal(t, int32(0), atomic.LoadInt32(srcCalls))
	assert.Equal(t, 0, dest.calls())
	assert.Empty(t, audit.entries)
}

func TestRunBatchSync_FetchFailure(t *testing.T) {
	var calls int32
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer src.Close()
	dest := newDestination(t, func(int, http.ResponseWriter, *http.Request) {})
	o, _ := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.ProcessedCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "502")
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, dest.calls())
}

func TestRunBatchSync_LiveSend(t *testing.T) {
	src, _ := newSource(t, usersPage)
	dest := newDestination(t, func(n int, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"dest-` + r.URL.Path + `"}`))
	})
	o, audit := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})

	assert.True(t, result.Success)
	assert.False(t, result.DryRun)
	assert.Nil(t, result.Actions)
	assert.Equal(t, 2, result.SuccessCount)
	assertCountsInvariant(t, result)

	require.Equal(t, 2, dest.calls())
	assert.Equal(t, http.MethodPost, dest.requests[0].Method)
	assert.Regexp(t, `^u1-users-\d+$`, dest.requests[0].IdempotencyKey)
	assert.JSONEq(t, `"one@example.com"`, mustGet(t, json.RawMessage(dest.requests[0].Body), "email"))

	assert.Equal(t, "dest-/api/v1/users", audit.entries[0].DestinationResourceID)
}

func TestRunBatchSync_ClientErrorIsNotRetried(t *testing.T) {
	src, _ := newSource(t, `[{"_id":"u1","email":"one@example.com"}]`)
	dest := newDestination(t, func(n int, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	o, audit := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, 1, dest.calls())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "u1", result.Errors[0].ResourceID)
	assert.Contains(t, result.Errors[0].Error, "422")
	assert.Equal(t, entities.SyncLogError, audit.entries[0].Status)
}

func TestRunBatchSync_RetriesServerErrorThenSucceeds(t *testing.T) {
	src, _ := newSource(t, `[{"_id":"u1","email":"one@example.com"}]`)
	dest := newDestination(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":"d1"}`))
	})
	o, _ := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
	assert.Equal(t, 2, dest.calls())
	// Both attempts carry the same key.
	assert.Equal(t, dest.requests[0].IdempotencyKey, dest.requests[1].IdempotencyKey)
}

func TestRunBatchSync_FailureIsolation(t *testing.T) {
	src, _ := newSource(t, `[
		{"_id":"u1","email":"one@example.com"},
		{"_id":"u2","email":"two@example.com"}
	]`)
	dest := newDestination(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if n == 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	o, audit := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	require.Len(t, audit.entries, 2)
	assert.Equal(t, entities.SyncLogError, audit.entries[0].Status)
	assert.Equal(t, entities.SyncLogSuccess, audit.entries[1].Status)
}

func TestRunBatchSync_RetriesExhaustedForOneItem(t *testing.T) {
	src, _ := newSource(t, `[
		{"_id":"u1","email":"one@example.com"},
		{"_id":"u2","email":"two@example.com"}
	]`)
	dest := newDestination(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if n == 1 {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	o, audit := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assertCountsInvariant(t, result)

	// One call for u1, then MaxRetries+1 for u2.
	assert.Equal(t, 1+4, dest.calls())
	for _, req := range dest.requests[1:] {
		assert.Equal(t, dest.requests[1].IdempotencyKey, req.IdempotencyKey)
	}

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "u2", result.Errors[0].ResourceID)
	assert.Contains(t, result.Errors[0].Error, "giving up after 4 attempts")

	require.Len(t, audit.entries, 2)
	assert.Equal(t, entities.SyncLogSuccess, audit.entries[0].Status)
	assert.Equal(t, entities.SyncLogError, audit.entries[1].Status)
	assert.Contains(t, audit.entries[1].Error, "503")
}

func TestRunBatchSync_PassThroughWithIDPath(t *testing.T) {
	src, _ := newSource(t, `{"items":[{"_id":"gold","name":"Gold","threshold":1000}]}`)
	dest := newDestination(t, func(n int, w http.ResponseWriter, r *http.Request) {})
	o, _ := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), mapping.VIPLevels, RunOptions{})

	assert.Equal(t, 1, result.SuccessCount)
	require.Equal(t, 1, dest.calls())
	assert.Equal(t, http.MethodPut, dest.requests[0].Method)
	assert.Equal(t, "/api/v1/vip-levels/gold", dest.requests[0].Path)
	assert.JSONEq(t, `{"_id":"gold","name":"Gold","threshold":1000}`, dest.requests[0].Body)
}

func TestRunBatchSync_MissingIDForAddressedEndpoint(t *testing.T) {
	src, _ := newSource(t, `[{"name":"no id"}]`)
	dest := newDestination(t, func(n int, w http.ResponseWriter, r *http.Request) {})
	o, _ := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), mapping.VIPLevels, RunOptions{})

	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, 0, dest.calls())
}

func TestRunBatchSync_RunOptions(t *testing.T) {
	var query string
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer src.Close()
	dest := newDestination(t, func(n int, w http.ResponseWriter, r *http.Request) {})
	o, _ := newTestOrchestrator(t, src.URL, dest.URL, config.ModeSync)

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{Mode: config.ModeDryRun, Limit: 5, Page: 3})
	assert.True(t, result.DryRun)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ProcessedCount)
	assert.Equal(t, "limit=5&page=3", query)

	o.RunBatchSync(context.Background(), mapping.Tasks, RunOptions{Cursor: "abc"})
	assert.Equal(t, "cursor=abc&limit=10", query)
}

func TestRunBatchSync_RateLimitBetweenItems(t *testing.T) {
	src, _ := newSource(t, usersPage)
	dest := newDestination(t, func(int, http.ResponseWriter, *http.Request) {})
	o, _ := newTestOrchestrator(t, src.URL, dest.URL, config.ModeDryRun)
	o.opts.RateLimitDelay = 250 * time.Millisecond

	var delays []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})

	// No delay after the last item.
	assert.Len(t, delays, 3)
	for _, d := range delays {
		assert.Equal(t, 250*time.Millisecond, d)
	}
}

func TestRunBatchSync_CancelledBetweenItems(t *testing.T) {
	src, _ := newSource(t, usersPage)
	dest := newDestination(t, func(int, http.ResponseWriter, *http.Request) {})
	o, audit := newTestOrchestrator(t, src.URL, dest.URL, config.ModeDryRun)
	o.opts.RateLimitDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	o.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	result := o.RunBatchSync(ctx, mapping.Users, RunOptions{})

	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.ProcessedCount)
	assertCountsInvariant(t, result)
	assert.Len(t, audit.entries, 1)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1].Error, "3 items left")
}

type fakeProgress struct {
	started   []int
	updates   int
	completed []bool
	lastItem  string
}

func (f *fakeProgress) StartSync(mappingName, requestID string, dryRun bool, totalItems int) error {
	f.started = append(f.started, totalItems)
	return nil
}

func (f *fakeProgress) UpdateProgress(mappingName string, processed, succeeded, failed, skipped int, currentItem string) error {
	f.updates++
	f.lastItem = currentItem
	return nil
}

func (f *fakeProgress) CompleteSync(mappingName string, succeeded bool, errorMsg string) error {
	f.completed = append(f.completed, succeeded)
	return nil
}

func (f *fakeProgress) IsSyncRunning(string) (bool, error) { return false, nil }

type fakeArchiver struct {
	saved []any
	err   error
}

func (f *fakeArchiver) SaveJSON(prefix string, data any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, data)
	return prefix + "-report.json", nil
}

func TestRunBatchSync_ReportsProgressAndArchives(t *testing.T) {
	src, _ := newSource(t, usersPage)
	dest := newDestination(t, func(int, http.ResponseWriter, *http.Request) {})
	o, _ := newTestOrchestrator(t, src.URL, dest.URL, config.ModeDryRun)

	progress := &fakeProgress{}
	archiver := &fakeArchiver{}
	o.SetProgressReporter(progress)
	o.SetReportArchiver(archiver)

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})

	assert.Equal(t, []int{4}, progress.started)
	assert.Equal(t, 4, progress.updates)
	assert.Equal(t, "u4", progress.lastItem)
	assert.Equal(t, []bool{true}, progress.completed)

	require.Len(t, archiver.saved, 1)
	assert.Same(t, result, archiver.saved[0])
	assert.Equal(t, "users-report.json", result.ReportFile)
}

func TestRunBatchSync_ArchiveFailureDoesNotFailRun(t *testing.T) {
	src, _ := newSource(t, `[]`)
	dest := newDestination(t, func(int, http.ResponseWriter, *http.Request) {})
	o, _ := newTestOrchestrator(t, src.URL, dest.URL, config.ModeDryRun)
	o.SetReportArchiver(&fakeArchiver{err: errors.New("read-only fs")})

	result := o.RunBatchSync(context.Background(), mapping.Users, RunOptions{})
	assert.True(t, result.Success)
	assert.Empty(t, result.ReportFile)
}

func TestRunBatchSync_ResultJSON(t *testing.T) {
	src, _ := newSource(t, `[{"_id":"u1","email":"one@example.com"}]`)
	dest := newDestination(t, func(int, http.ResponseWriter, *http.Request) {})
	o, _ := newTestOrchestrator(t, src.URL, dest.URL, config.ModeDryRun)
	o.newID = func() string { return "req-fixed" }

	data, err := json.Marshal(o.RunBatchSync(context.Background(), mapping.Users, RunOptions{}))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "req-fixed", decoded["requestId"])
	assert.Equal(t, true, decoded["dryRun"])
	assert.Equal(t, float64(1), decoded["processedCount"])
	assert.Len(t, decoded["actions"], 1)
	assert.Equal(t, []any{}, decoded["errors"])
}

func mustGet(t *testing.T, doc json.RawMessage, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc, &m))
	v, ok := m[key]
	require.True(t, ok, "missing key %q", key)
	return string(v)
}
