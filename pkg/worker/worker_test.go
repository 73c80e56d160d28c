package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	refreshes int32
	snapshots int32
	err       error
}

func (j *countingJob) RefreshTokens(context.Context) error {
	atomic.AddInt32(&j.refreshes, 1)
	return j.err
}

func (j *countingJob) Snapshot(context.Context) (int, error) {
	atomic.AddInt32(&j.snapshots, 1)
	return 1, j.err
}

func runFor(t *testing.T, w *Worker, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(d + time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestRun_TicksAndStops(t *testing.T) {
	job := &countingJob{}
	runFor(t, New(job, 10*time.Millisecond, 15*time.Millisecond, nil), 100*time.Millisecond)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&job.refreshes), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&job.snapshots), int32(2))
}

func TestRun_ContinuesAfterErrors(t *testing.T) {
	job := &countingJob{err: errors.New("schwab unavailable")}
	runFor(t, New(job, 10*time.Millisecond, 10*time.Millisecond, nil), 80*time.Millisecond)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&job.refreshes), int32(3))
}

func TestRun_MarketGate(t *testing.T) {
	job := &countingJob{}
	closed := func(context.Context) bool { return false }
	runFor(t, New(job, 10*time.Millisecond, 10*time.Millisecond, closed), 60*time.Millisecond)

	assert.Zero(t, atomic.LoadInt32(&job.snapshots))
	assert.Positive(t, atomic.LoadInt32(&job.refreshes))
}

func TestNew_NonPositiveIntervals(t *testing.T) {
	w := New(&countingJob{}, 0, -time.Second, nil)
	assert.Equal(t, DefaultRefreshInterval, w.refreshInterval)
	assert.Equal(t, DefaultSnapshotInterval, w.snapshotInterval)

	job := &countingJob{}
	assert.NotPanics(t, func() { runFor(t, New(job, 0, 0, nil), 20*time.Millisecond) })
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.refreshes))
}
