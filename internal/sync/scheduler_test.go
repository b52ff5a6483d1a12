package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_NoOverlappingTicks(t *testing.T) {
	var running, maxRunning, calls atomic.Int32
	release := make(chan struct{})

	s := NewScheduler(func(ctx context.Context) error {
		calls.Add(1)
		n := running.Add(1)
		defer running.Add(-1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, SchedulerOptions{Timeout: time.Minute, Logger: zerolog.Nop()})

	s.Start(5 * time.Millisecond)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Status().Skipped >= 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), calls.Load(), "skipped ticks are not queued")
	close(release)

	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestScheduler_StopCancelsInFlightTick(t *testing.T) {
	started := make(chan struct{})
	var tickErr atomic.Value

	s := NewScheduler(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		tickErr.Store(ctx.Err())
		return ctx.Err()
	}, SchedulerOptions{Timeout: time.Minute, Logger: zerolog.Nop()})

	s.Start(time.Hour)
	s.Trigger()
	<-started

	s.Stop()

	assert.False(t, s.Running())
	assert.ErrorIs(t, tickErr.Load().(error), context.Canceled)
}

func TestScheduler_TickDeadline(t *testing.T) {
	done := make(chan error, 1)

	s := NewScheduler(func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	}, SchedulerOptions{Timeout: 20 * time.Millisecond, Logger: zerolog.Nop()})

	s.Start(time.Hour)
	defer s.Stop()
	s.Trigger()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("tick was not bounded by its timeout")
	}
}

func TestScheduler_ErrorsDoNotStopSchedule(t *testing.T) {
	var errs atomic.Int32
	boom := errors.New("boom")

	s := NewScheduler(func(ctx context.Context) error {
		return boom
	}, SchedulerOptions{
		OnError: func(err error) {
			if errors.Is(err, boom) {
				errs.Add(1)
			}
		},
		Logger: zerolog.Nop(),
	})

	s.Start(5 * time.Millisecond)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return errs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Running())
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, SchedulerOptions{Logger: zerolog.Nop()})

	s.Start(time.Hour)
	s.Stop()
	s.Trigger()
	assert.Zero(t, calls.Load(), "trigger on a stopped scheduler is dropped")

	s.Start(time.Hour)
	defer s.Stop()
	s.Trigger()

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		st := s.Status()
		return st.State == SyncIdle && !st.LastSync.IsZero()
	}, 2*time.Second, 5*time.Millisecond)
}
