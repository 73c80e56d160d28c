package refresher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vignesh-goutham/hermes/pkg/alpaca"
	"github.com/vignesh-goutham/hermes/pkg/dynamo"
	"github.com/vignesh-goutham/hermes/pkg/schwab"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"go.uber.org/zap"
)

// Broker is the Schwab client surface the job needs
type Broker interface {
	EnsureValid(ctx context.Context) (*types.Tokens, error)
	AllPositions(ctx context.Context) (types.AccountPositions, error)
}

// Refresher keeps tokens fresh and records position snapshots
type Refresher struct {
	Broker Broker

	// Write persists snapshots and removes closed positions; nil skips
	// persistence
	Write func(ctx context.Context, snaps []types.Snapshot, deletes []types.SnapshotKey) error
	// Existing lists stored snapshots; nil never deletes
	Existing func(ctx context.Context) ([]types.Snapshot, error)
	// Market reports the session state
	Market func() (alpaca.MarketStatus, error)
	Now    func() time.Time
}

// New returns a Refresher writing snapshots to DynamoDB when a client is
// configured
func New(broker Broker) *Refresher {
	r := &Refresher{
		Broker: broker,
		Market: alpaca.GetMarketStatus,
		Now:    time.Now,
	}
	if dynamo.Initialized() {
		r.Write = dynamo.BatchWriteSnapshots
		r.Existing = dynamo.GetSnapshots
	}
	return r
}

// RefreshTokens refreshes the access token when it is close to expiry
func (r *Refresher) RefreshTokens(ctx context.Context) error {
	t, err := r.Broker.EnsureValid(ctx)
	if err != nil {
		return err
	}
	zap.S().Debugf("Access token valid until %s", t.ExpiresAt)
	return nil
}

// Snapshot fetches all positions and persists them, deleting stored rows for
// positions that are no longer held. It returns the number of positions
// written.
func (r *Refresher) Snapshot(ctx context.Context) (int, error) {
	all, err := r.Broker.AllPositions(ctx)
	if err != nil {
		return 0, err
	}

	now := r.Now()
	accounts := make([]string, 0, len(all))
	for number := range all {
		accounts = append(accounts, number)
	}
	sort.Strings(accounts)

	var snaps []types.Snapshot
	for _, number := range accounts {
		for _, p := range all[number] {
			snaps = append(snaps, types.NewSnapshot(number, p, now))
		}
	}

	if r.Write == nil {
		return len(snaps), nil
	}

	deletes, err := r.closed(ctx, snaps)
	if err != nil {
		return 0, err
	}
	if len(snaps) == 0 && len(deletes) == 0 {
		return 0, nil
	}
	if err := r.Write(ctx, snaps, deletes); err != nil {
		return 0, fmt.Errorf("error writing snapshots: %w", err)
	}
	if len(deletes) > 0 {
		zap.S().Infof("Removed %d closed positions", len(deletes))
	}
	return len(snaps), nil
}

// closed returns the keys of stored snapshots missing from snaps
func (r *Refresher) closed(ctx context.Context, snaps []types.Snapshot) ([]types.SnapshotKey, error) {
	if r.Existing == nil {
		return nil, nil
	}
	stored, err := r.Existing(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading stored snapshots: %w", err)
	}

	held := make(map[types.SnapshotKey]bool, len(snaps))
	for _, s := range snaps {
		held[s.Key()] = true
	}

	var deletes []types.SnapshotKey
	for _, s := range stored {
		if k := s.Key(); !held[k] {
			held[k] = true
			deletes = append(deletes, k)
		}
	}
	sort.Slice(deletes, func(i, j int) bool {
		if deletes[i].AccountNumber != deletes[j].AccountNumber {
			return deletes[i].AccountNumber < deletes[j].AccountNumber
		}
		return deletes[i].Symbol < deletes[j].Symbol
	})
	return deletes, nil
}

// Handler refreshes tokens and, while the market is open, snapshots positions
func (r *Refresher) Handler(ctx context.Context) (map[string]interface{}, error) {
	if err := r.RefreshTokens(ctx); err != nil {
		if errors.Is(err, schwab.ErrNotAuthenticated) || errors.Is(err, schwab.ErrRefreshFailed) {
			msg := fmt.Sprintf("Token refresh failed, re-authentication required: %v", err)
			zap.S().Warn(msg)
			return response(401, msg), nil
		}
		return nil, err
	}

	status, err := r.Market()
	if err != nil {
		return nil, err
	}
	if !status.IsOpen {
		msg := fmt.Sprintf("Tokens refreshed. Market is closed. Next open: %s", status.NextOpen.Format(time.RFC3339))
		zap.S().Info(msg)
		return response(200, msg), nil
	}

	count, err := r.Snapshot(ctx)
	if err != nil {
		zap.S().Errorf("Error taking snapshot: %v", err)
		return nil, err
	}

	msg := fmt.Sprintf("Tokens refreshed. Snapshot recorded %d positions", count)
	zap.S().Info(msg)
	return response(200, msg), nil
}

func response(statusCode int, body string) map[string]interface{} {
	return map[string]interface{}{
		"statusCode": statusCode,
		"body":       body,
	}
}
