package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/batchsync/internal/syncer"
)

// DefaultRunTimeout bounds one scheduled run of one mapping.
const DefaultRunTimeout = 10 * time.Minute

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type Runner interface {
	RunBatchSync(ctx context.Context, mappingName string, opts syncer.RunOptions) *syncer.SyncResult
}

// RunChecker reports runs started elsewhere (HTTP trigger, task queue).
type RunChecker interface {
	IsSyncRunning(mappingName string) (bool, error)
}

// BatchSyncScheduler runs a fixed list of mappings on a cron schedule. A
// mapping whose previous run has not finished is skipped for that tick.
type BatchSyncScheduler struct {
	runner   Runner
	checker  RunChecker
	schedule string
	mappings []string
	timeout  time.Duration

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	syncing   map[string]bool
	baseCtx   context.Context
	cancel    context.CancelFunc
}

func NewBatchSyncScheduler(runner Runner, checker RunChecker, schedule string, mappings []string) *BatchSyncScheduler {
	return &BatchSyncScheduler{
		runner:   runner,
		checker:  checker,
		schedule: schedule,
		mappings: append([]string(nil), mappings...),
		timeout:  DefaultRunTimeout,
		cron:     cron.New(cron.WithParser(parser)),
		syncing:  make(map[string]bool),
		baseCtx:  context.Background(),
	}
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Start registers the cron job. Runs started by the scheduler are cancelled
// when ctx is done or Stop is called.
func (s *BatchSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if len(s.mappings) == 0 {
		log.Printf("Batch sync scheduler: no mappings configured, skipping")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.entryID = entryID

	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.isRunning = true

	log.Printf("Batch sync scheduler: started with schedule '%s' for %v", s.schedule, s.mappings)

	go func(done <-chan struct{}) {
		<-done
		s.Stop()
	}(s.baseCtx.Done())

	return nil
}

// Stop cancels in-flight runs and waits for the current tick to return.
func (s *BatchSyncScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)

	log.Printf("Batch sync scheduler: stopped")
}

// RunNow triggers an immediate tick in the background.
func (s *BatchSyncScheduler) RunNow() {
	go s.RunOnce()
}

func (s *BatchSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next tick fires, or nil when stopped.
func (s *BatchSyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// RunOnce runs every configured mapping in order and returns the results of
// the runs that were not skipped.
func (s *BatchSyncScheduler) RunOnce() []*syncer.SyncResult {
	var results []*syncer.SyncResult
	for _, name := range s.mappings {
		if result := s.runMapping(name); result != nil {
			results = append(results, result)
		}
	}
	return results
}

func (s *BatchSyncScheduler) runMapping(name string) *syncer.SyncResult {
	if !s.acquire(name) {
		log.Printf("Batch sync scheduler: %s skipped (already syncing)", name)
		return nil
	}
	defer s.release(name)

	if s.checker != nil {
		running, err := s.checker.IsSyncRunning(name)
		if err != nil {
			log.Printf("Batch sync scheduler: %s skipped (could not check run state: %v)", name, err)
			return nil
		}
		if running {
			log.Printf("Batch sync scheduler: %s skipped (run in progress elsewhere)", name)
			return nil
		}
	}

	s.mu.RLock()
	base := s.baseCtx
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	return s.runner.RunBatchSync(ctx, name, syncer.RunOptions{})
}

func (s *BatchSyncScheduler) acquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncing[name] {
		return false
	}
	s.syncing[name] = true
	return true
}

func (s *BatchSyncScheduler) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.syncing, name)
}
