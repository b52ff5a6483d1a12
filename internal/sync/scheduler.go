package sync

import (
	"context"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/recruit-inbox/internal/metrics"
	"github.com/nhle/recruit-inbox/internal/model"
)

// SyncState represents what the scheduler is currently doing.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus is a point-in-time view of the scheduler.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
	Ticks    int64
	Skipped  int64
}

// TickFunc performs one refresh. It must honor ctx.
type TickFunc func(ctx context.Context) error

// SchedulerOptions tunes a Scheduler.
type SchedulerOptions struct {
	// Timeout bounds a single tick. Defaults to 30s.
	Timeout time.Duration

	// OnError is called with every failed tick. The schedule continues.
	OnError func(error)

	Logger zerolog.Logger
}

// Scheduler fires a TickFunc on a fixed interval and never runs two ticks
// at once: a tick that comes due while the previous one is still running
// is skipped, not queued.
type Scheduler struct {
	tick     TickFunc
	opts     SchedulerOptions
	log      zerolog.Logger
	inFlight atomic.Bool
	ticks    atomic.Int64
	skipped  atomic.Int64

	mu        gosync.Mutex
	running   bool
	stopCh    chan struct{}
	triggerCh chan struct{}
	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	status    SyncStatus
}

// NewScheduler creates a stopped scheduler for tick.
func NewScheduler(tick TickFunc, opts SchedulerOptions) *Scheduler {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Scheduler{
		tick: tick,
		opts: opts,
		log:  opts.Logger,
	}
}

// Start begins firing ticks every interval. A non-positive interval uses
// model.DefaultPollInterval. Start on a running scheduler is a no-op.
func (s *Scheduler) Start(interval time.Duration) {
	if interval <= 0 {
		interval = model.DefaultPollInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.triggerCh = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx, interval, s.stopCh, s.triggerCh)

	s.log.Debug().Dur("interval", interval).Msg("scheduler started")
}

// Stop halts the schedule, cancels an in-flight tick, and waits for both
// to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Debug().Msg("scheduler stopped")
}

// Running reports whether the schedule is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger requests an immediate tick. It obeys the same no-overlap rule
// as scheduled ticks and is dropped when the scheduler is stopped.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	select {
	case s.triggerCh <- struct{}{}:
	default:
		// A trigger is already pending.
	}
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Ticks = s.ticks.Load()
	st.Skipped = s.skipped.Load()
	return st
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, stopCh, triggerCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.fire(ctx)
		case <-triggerCh:
			s.fire(ctx)
		}
	}
}

// fire runs one tick in the background unless one is still in flight.
func (s *Scheduler) fire(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		metrics.PollTicks.WithLabelValues("skipped").Inc()
		s.log.Debug().Msg("tick skipped: previous refresh still running")
		return
	}

	s.setStatus(SyncRunning, nil)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)

		tickCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()

		s.ticks.Add(1)
		err := s.tick(tickCtx)
		if err != nil {
			metrics.PollTicks.WithLabelValues("error").Inc()
			s.setStatus(SyncError, err)
			s.log.Warn().Err(err).Msg("refresh failed")
			if s.opts.OnError != nil {
				s.opts.OnError(err)
			}
			return
		}

		metrics.PollTicks.WithLabelValues("ok").Inc()
		s.setStatus(SyncIdle, nil)
	}()
}

func (s *Scheduler) setStatus(state SyncState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = state
	s.status.Error = err
	if state == SyncIdle && err == nil {
		s.status.LastSync = time.Now()
	}
}
