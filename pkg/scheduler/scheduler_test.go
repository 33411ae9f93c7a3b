package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newTestScheduler(t *testing.T) (*Scheduler, *clock.Mock, *observer.ObservedLogs) {
	t.Helper()
	mock := clock.NewMock()
	core, logs := observer.New(zap.DebugLevel)
	s := New(WithClock(mock), WithLogger(zap.New(core)))
	t.Cleanup(s.Stop)
	return s, mock, logs
}

// lagClock reports a time ahead of its mock, simulating a loop that wakes up
// late.
type lagClock struct {
	*clock.Mock
	lag atomic.Int64
}

func (c *lagClock) Now() time.Time {
	return c.Mock.Now().Add(time.Duration(c.lag.Load()))
}

func newLaggingScheduler(t *testing.T) (*Scheduler, *lagClock, *observer.ObservedLogs) {
	t.Helper()
	lc := &lagClock{Mock: clock.NewMock()}
	core, logs := observer.New(zap.DebugLevel)
	s := New(WithClock(lc), WithLogger(zap.New(core)))
	t.Cleanup(s.Stop)
	return s, lc, logs
}

func counter(n *atomic.Int32) func(context.Context) {
	return func(context.Context) { n.Add(1) }
}

func TestPlan(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	minute := time.Minute

	tests := []struct {
		name  string
		now   time.Time
		grace time.Duration
		want  Decision
	}{
		{
			name:  "on time",
			now:   due,
			grace: minute,
			want:  Decision{Fire: true, Next: due.Add(minute)},
		},
		{
			name:  "slightly late",
			now:   due.Add(10 * time.Second),
			grace: minute,
			want:  Decision{Fire: true, Late: 10 * time.Second, Next: due.Add(minute)},
		},
		{
			name:  "missed runs coalesce",
			now:   due.Add(3*minute + 5*time.Second),
			grace: minute,
			want:  Decision{Fire: true, Late: 5 * time.Second, Missed: 3, Next: due.Add(4 * minute)},
		},
		{
			name:  "beyond grace",
			now:   due.Add(30 * time.Second),
			grace: 10 * time.Second,
			want:  Decision{Fire: false, Late: 30 * time.Second, Next: due.Add(minute)},
		},
		{
			name:  "not due yet",
			now:   due.Add(-time.Second),
			grace: minute,
			want:  Decision{Next: due},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(due, tt.now, minute, tt.grace))
		})
	}
}

func TestFirstRunImmediateThenEveryInterval(t *testing.T) {
	s, mock, _ := newTestScheduler(t)

	var runs atomic.Int32
	require.NoError(t, s.Add(Entry{Name: "pg", Interval: time.Minute, Run: counter(&runs)}))
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, tick)

	mock.Add(time.Minute)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, waitFor, tick)

	mock.Add(time.Minute)
	require.Eventually(t, func() bool { return runs.Load() == 3 }, waitFor, tick)
}

func TestMissedRunsCoalesce(t *testing.T) {
	s, lc, logs := newLaggingScheduler(t)

	var runs atomic.Int32
	require.NoError(t, s.Add(Entry{Name: "pg", Interval: time.Minute, MisfireGrace: time.Minute, Run: counter(&runs)}))
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, tick)

	lc.lag.Store(int64(4 * time.Minute))
	lc.Add(time.Minute)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, waitFor, tick)

	coalesced := logs.FilterMessage("coalescing missed runs").All()
	require.Len(t, coalesced, 1)
	assert.Equal(t, int64(4), coalesced[0].ContextMap()["missed"])

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
}

func TestMisfireSkipped(t *testing.T) {
	s, lc, logs := newLaggingScheduler(t)

	var runs atomic.Int32
	require.NoError(t, s.Add(Entry{Name: "pg", Interval: time.Minute, MisfireGrace: time.Second, Run: counter(&runs)}))
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, tick)

	lc.lag.Store(int64(30 * time.Second))
	lc.Add(time.Minute)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("run skipped").FilterField(zap.String("reason", SkipMisfire)).Len() == 1
	}, waitFor, tick)
	assert.Equal(t, int32(1), runs.Load())
}

func TestMaxInstances(t *testing.T) {
	s, mock, logs := newTestScheduler(t)

	release := make(chan struct{})
	var started atomic.Int32
	require.NoError(t, s.Add(Entry{
		Name:         "slow",
		Interval:     time.Minute,
		MaxInstances: 1,
		Run: func(ctx context.Context) {
			started.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
			}
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.Running("slow") == 1 }, waitFor, tick)

	mock.Add(time.Minute)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("run skipped").FilterField(zap.String("reason", SkipMaxInstances)).Len() == 1
	}, waitFor, tick)
	assert.Equal(t, int32(1), started.Load())

	close(release)
	require.Eventually(t, func() bool { return s.Running("slow") == 0 }, waitFor, tick)

	mock.Add(time.Minute)
	require.Eventually(t, func() bool { return started.Load() == 2 }, waitFor, tick)
}

func TestReplaceByName(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	var first, second atomic.Int32
	require.NoError(t, s.Add(Entry{Name: "pg", Interval: time.Minute, Run: counter(&first)}))
	require.NoError(t, s.Add(Entry{Name: "pg", Interval: time.Minute, Run: counter(&second)}))
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return second.Load() == 1 }, waitFor, tick)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, []string{"pg"}, s.Entries())
}

func TestReplaceKeepsInFlightRuns(t *testing.T) {
	s, mock, logs := newTestScheduler(t)

	release := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, s.Add(Entry{
		Name:     "pg",
		Interval: time.Minute,
		Run: func(ctx context.Context) {
			select {
			case <-release:
			case <-ctx.Done():
				cancelled.Store(true)
			}
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.Running("pg") == 1 }, waitFor, tick)

	var second atomic.Int32
	require.NoError(t, s.Add(Entry{Name: "pg", Interval: time.Minute, MaxInstances: 1, Run: counter(&second)}))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("run skipped").FilterField(zap.String("reason", SkipMaxInstances)).Len() == 1
	}, waitFor, tick)
	assert.False(t, cancelled.Load())
	assert.Equal(t, 1, s.Running("pg"))
	assert.Equal(t, int32(0), second.Load())

	close(release)
	require.Eventually(t, func() bool { return s.Running("pg") == 0 }, waitFor, tick)
	assert.False(t, cancelled.Load())

	mock.Add(time.Minute)
	require.Eventually(t, func() bool { return second.Load() == 1 }, waitFor, tick)
}

func TestStopWaitsForRuns(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	var mu sync.Mutex
	cancelled := false
	require.NoError(t, s.Add(Entry{Name: "pg", Interval: time.Minute, Run: func(ctx context.Context) {
		<-ctx.Done()
		mu.Lock()
		cancelled = true
		mu.Unlock()
	}}))
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.Running("pg") == 1 }, waitFor, tick)

	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, cancelled)
	assert.Error(t, s.Add(Entry{Name: "late", Interval: time.Minute, Run: func(context.Context) {}}))
}

func TestAddValidation(t *testing.T) {
	s := New()
	assert.Error(t, s.Add(Entry{Interval: time.Minute, Run: func(context.Context) {}}))
	assert.Error(t, s.Add(Entry{Name: "x", Run: func(context.Context) {}}))
	assert.Error(t, s.Add(Entry{Name: "x", Interval: time.Minute}))
}
