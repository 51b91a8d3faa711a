// Package scheduler drives the two daily jobs: the bracket placement and
// the end-of-window flatten. Triggers fire at fixed wall-clock times in the
// exchange's timezone; each job runs on its own goroutine so a slow fill
// poll never delays the other trigger.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/logging"
	"github.com/FaizanQureshiFinzome/simple-algo/pkg/utils"
)

// Job is one scheduled unit of work.
type Job struct {
	Name string
	At   string // HH:MM wall clock
	Run  func(ctx context.Context)
}

// Scheduler fires jobs at their configured wall-clock time on trading days.
type Scheduler struct {
	jobs     []Job
	location *time.Location
	days     map[time.Weekday]bool
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

// New creates a scheduler. days is "mon-sat" or "mon-fri"; timezone
// defaults to Asia/Kolkata.
func New(timezone, days string, logger zerolog.Logger) (*Scheduler, error) {
	loc := utils.IndiaLocation
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, err
		}
	}

	weekdays := map[time.Weekday]bool{
		time.Monday: true, time.Tuesday: true, time.Wednesday: true,
		time.Thursday: true, time.Friday: true,
	}
	if days == "mon-sat" {
		weekdays[time.Saturday] = true
	}

	return &Scheduler{
		location: loc,
		days:     weekdays,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Add registers a job. Jobs must be added before Run.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Run blocks, firing each job at its configured time every trading day,
// until ctx is cancelled. In-flight jobs are waited for on shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	for i := range s.jobs {
		job := s.jobs[i]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runJob(ctx, job)
		}()
	}

	<-ctx.Done()
	s.wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	logger := logging.WithJob(s.logger, job.Name)

	for {
		next := s.nextTrigger(time.Now().In(s.location), job.At)
		logger.Info().Time("next_run", next).Msg("Job scheduled")

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		logger.Info().Msg("Job triggered")
		job.Run(ctx)
	}
}

// nextTrigger returns the next at-time on a trading day strictly after now.
func (s *Scheduler) nextTrigger(now time.Time, at string) time.Time {
	t, err := time.Parse("15:04", at)
	if err != nil {
		// Validated at config load; fall back to immediate daily retry
		t = time.Time{}
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, s.location)
	for !candidate.After(now) || !s.days[candidate.Weekday()] {
		candidate = candidate.AddDate(0, 0, 1)
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), t.Hour(), t.Minute(), 0, 0, s.location)
	}
	return candidate
}

// SymbolLock serializes work per tradingsymbol. Overlapping triggers for
// the same symbol are skipped, never queued: re-running a bracket job while
// the previous one is mid-flight would place a duplicate entry order.
type SymbolLock struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewSymbolLock creates an empty lock set.
func NewSymbolLock() *SymbolLock {
	return &SymbolLock{held: make(map[string]bool)}
}

// TryAcquire attempts to take the lock for symbol without blocking.
func (l *SymbolLock) TryAcquire(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[symbol] {
		return false
	}
	l.held[symbol] = true
	return true
}

// Release frees the lock for symbol.
func (l *SymbolLock) Release(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, symbol)
}
