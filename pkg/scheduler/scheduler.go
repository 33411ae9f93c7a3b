// Package scheduler runs named entries at a fixed interval.
//
// Each entry runs first as soon as it is scheduled, then every Interval.
// Missed runs are coalesced into one catch-up run, which is skipped when it
// would start later than MisfireGrace after its due time. At most
// MaxInstances runs of the same entry overlap; a run due while that many are
// still going is skipped.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/observability"
)

// Skip reasons reported in logs and metrics.
const (
	SkipMisfire      = "misfire"
	SkipMaxInstances = "max_instances"
)

// Entry is one recurring task.
type Entry struct {
	// Name identifies the entry; adding an entry with a taken name replaces it
	Name string
	// Interval between due times
	Interval time.Duration
	// MisfireGrace is how late a run may start; zero means Interval
	MisfireGrace time.Duration
	// MaxInstances bounds overlapping runs; zero means 1
	MaxInstances int
	// Run is called once per run on its own goroutine
	Run func(ctx context.Context)
}

func (e Entry) validate() error {
	if e.Name == "" {
		return errors.New(errors.ErrorTypeValidation, "entry name is required")
	}
	if e.Interval <= 0 {
		return errors.Newf(errors.ErrorTypeValidation, "entry %s: interval must be positive", e.Name)
	}
	if e.Run == nil {
		return errors.Newf(errors.ErrorTypeValidation, "entry %s: run function is required", e.Name)
	}
	return nil
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, typically with clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the scheduler logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = logger.Component(l, "scheduler") }
}

// WithMetrics records skipped runs.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// entryState is one scheduled entry. cancel stops its timer loop only; runs
// already started live on the scheduler context.
type entryState struct {
	Entry
	cancel context.CancelFunc
}

// Scheduler runs entries until stopped.
type Scheduler struct {
	clock   clock.Clock
	logger  *zap.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[string]*entryState
	running map[string]int // in-progress runs by entry name, across replacements
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	loops   sync.WaitGroup
	runs    sync.WaitGroup
}

// New creates a stopped scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:   clock.New(),
		logger:  logger.Component(nil, "scheduler"),
		entries: make(map[string]*entryState),
		running: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add schedules e, replacing any entry with the same name. Runs of the
// replaced entry keep going and count towards e.MaxInstances. Entries added
// before Start begin with it.
func (s *Scheduler) Add(e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.MisfireGrace <= 0 {
		e.MisfireGrace = e.Interval
	}
	if e.MaxInstances <= 0 {
		e.MaxInstances = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.New(errors.ErrorTypeConflict, "scheduler is stopped")
	}
	if old, ok := s.entries[e.Name]; ok {
		if old.cancel != nil {
			old.cancel()
		}
		s.logger.Info("replacing entry", zap.String("entry", e.Name))
	}

	st := &entryState{Entry: e}
	s.entries[e.Name] = st
	if s.ctx != nil {
		s.launch(st)
	}
	return nil
}

// Start runs every entry. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.New(errors.ErrorTypeConflict, "scheduler is stopped")
	}
	if s.ctx != nil {
		return errors.New(errors.ErrorTypeConflict, "scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, st := range s.entries {
		s.launch(st)
	}
	s.logger.Info("scheduler started", zap.Int("entries", len(s.entries)))
	return nil
}

// Stop cancels every entry and running run, then waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.loops.Wait()
	s.runs.Wait()
	s.logger.Info("scheduler stopped")
}

// Running returns the number of runs of name in progress.
func (s *Scheduler) Running(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[name]
}

// Entries lists the scheduled entry names.
func (s *Scheduler) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// launch starts the loop of st; s.mu must be held.
func (s *Scheduler) launch(st *entryState) {
	ctx, cancel := context.WithCancel(s.ctx)
	st.cancel = cancel

	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		s.loop(ctx, st)
	}()
}

func (s *Scheduler) loop(ctx context.Context, st *entryState) {
	l := s.logger.With(zap.String("entry", st.Name))
	next := s.clock.Now()

	for {
		if wait := next.Sub(s.clock.Now()); wait > 0 {
			timer := s.clock.Timer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		now := s.clock.Now()
		if now.Before(next) {
			continue
		}
		d := Plan(next, now, st.Interval, st.MisfireGrace)
		next = d.Next
		if d.Missed > 0 {
			l.Debug("coalescing missed runs", zap.Int("missed", d.Missed))
		}
		if !d.Fire {
			l.Warn("run skipped", zap.String("reason", SkipMisfire), zap.Duration("late", d.Late))
			s.metrics.RunSkipped(st.Name, SkipMisfire)
			continue
		}
		s.fire(ctx, st, l)
	}
}

func (s *Scheduler) fire(loopCtx context.Context, st *entryState, l *zap.Logger) {
	s.mu.Lock()
	if loopCtx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if s.running[st.Name] >= st.MaxInstances {
		s.mu.Unlock()
		l.Warn("run skipped",
			zap.String("reason", SkipMaxInstances),
			zap.Int("max_instances", st.MaxInstances))
		s.metrics.RunSkipped(st.Name, SkipMaxInstances)
		return
	}
	s.running[st.Name]++
	s.runs.Add(1)
	runCtx := s.ctx
	s.mu.Unlock()

	go func() {
		defer s.runs.Done()
		defer func() {
			s.mu.Lock()
			if s.running[st.Name]--; s.running[st.Name] == 0 {
				delete(s.running, st.Name)
			}
			s.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				l.Error("run panicked", zap.String("panic", fmt.Sprint(r)))
			}
		}()
		st.Run(runCtx)
	}()
}

// Decision is what to do when an entry wakes up.
type Decision struct {
	// Fire is false when the catch-up run is later than the grace time
	Fire bool
	// Late is how far now is past the latest due time
	Late time.Duration
	// Missed counts due times folded into this one
	Missed int
	// Next is the following due time, strictly after now
	Next time.Time
}

// Plan coalesces every due time up to now into the latest one and decides
// whether it may still run.
func Plan(due, now time.Time, interval, grace time.Duration) Decision {
	if now.Before(due) {
		return Decision{Next: due}
	}
	missed := int(now.Sub(due) / interval)
	latest := due.Add(time.Duration(missed) * interval)
	late := now.Sub(latest)
	return Decision{
		Fire:   late <= grace,
		Late:   late,
		Missed: missed,
		Next:   latest.Add(interval),
	}
}
