package server

import (
	"fmt"
	"sync"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/robfig/cron/v3"
)

// ReloadScheduler runs a job on a cron schedule. A run that is still going
// when the next one fires is skipped.
type ReloadScheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entryID cron.EntryID
	started bool
}

// NewReloadScheduler parses schedule, a standard five-field expression or a
// descriptor such as "@daily" or "@every 6h", and registers job on it.
func NewReloadScheduler(schedule string, job func()) (*ReloadScheduler, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	entryID, err := c.AddFunc(schedule, job)
	if err != nil {
		return nil, fmt.Errorf("invalid reload schedule %q: %w", schedule, err)
	}
	return &ReloadScheduler{cron: c, entryID: entryID}, nil
}

// Start begins the scheduler.
func (s *ReloadScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *ReloadScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		<-s.cron.Stop().Done()
		s.started = false
	}
}

// Next returns the next scheduled run as RFC 3339, or "" before Start.
func (s *ReloadScheduler) Next() string {
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return ""
	}
	return entry.Next.Format(contract.DateTimeFormat)
}
