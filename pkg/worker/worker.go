package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a periodic task
type Job interface {
	RefreshTokens(ctx context.Context) error
	Snapshot(ctx context.Context) (int, error)
}

// MarketGate reports whether snapshots should be taken now
type MarketGate func(ctx context.Context) bool

// Worker runs token checks and position snapshots on fixed intervals
type Worker struct {
	job              Job
	refreshInterval  time.Duration
	snapshotInterval time.Duration
	open             MarketGate
}

const (
	DefaultRefreshInterval  = time.Minute
	DefaultSnapshotInterval = 5 * time.Minute
)

// New returns a Worker. A nil gate always allows snapshots, and non-positive
// intervals fall back to the defaults.
func New(job Job, refreshInterval, snapshotInterval time.Duration, open MarketGate) *Worker {
	if refreshInterval <= 0 {
		zap.S().Warnf("Invalid refresh interval %s, using %s", refreshInterval, DefaultRefreshInterval)
		refreshInterval = DefaultRefreshInterval
	}
	if snapshotInterval <= 0 {
		zap.S().Warnf("Invalid snapshot interval %s, using %s", snapshotInterval, DefaultSnapshotInterval)
		snapshotInterval = DefaultSnapshotInterval
	}
	if open == nil {
		open = func(context.Context) bool { return true }
	}
	return &Worker{
		job:              job,
		refreshInterval:  refreshInterval,
		snapshotInterval: snapshotInterval,
		open:             open,
	}
}

// Run blocks until ctx is cancelled. Task errors are logged and the loop
// carries on.
func (w *Worker) Run(ctx context.Context) error {
	zap.S().Infof("Worker started: token check every %s, snapshot every %s", w.refreshInterval, w.snapshotInterval)

	refresh := time.NewTicker(w.refreshInterval)
	defer refresh.Stop()
	snapshot := time.NewTicker(w.snapshotInterval)
	defer snapshot.Stop()

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			zap.S().Info("Worker shutdown requested")
			return nil
		case <-refresh.C:
			w.refresh(ctx)
		case <-snapshot.C:
			w.snapshot(ctx)
		}
	}
}

func (w *Worker) refresh(ctx context.Context) {
	if err := w.job.RefreshTokens(ctx); err != nil {
		zap.S().Errorf("Error checking tokens: %v", err)
	}
}

func (w *Worker) snapshot(ctx context.Context) {
	if !w.open(ctx) {
		zap.S().Debug("Market closed, skipping snapshot")
		return
	}
	n, err := w.job.Snapshot(ctx)
	if err != nil {
		zap.S().Errorf("Error taking snapshot: %v", err)
		return
	}
	zap.S().Infof("Snapshot recorded %d positions", n)
}
