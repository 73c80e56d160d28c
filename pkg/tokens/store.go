package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/vignesh-goutham/hermes/pkg/types"
)

// ErrNotFound is returned when no tokens have been stored yet
var ErrNotFound = errors.New("no tokens found")

// Store persists the Schwab OAuth tokens
type Store interface {
	Load(ctx context.Context) (*types.Tokens, error)
	Save(ctx context.Context, tokens *types.Tokens) error
}

// Stamp sets expires_at from expires_in relative to now
func Stamp(t *types.Tokens, now time.Time) {
	if t.ExpiresIn > 0 {
		t.ExpiresAt = now.UTC().Add(time.Duration(t.ExpiresIn) * time.Second).Format(time.RFC3339)
	}
}

// ExpiresAt parses the stored expiry. Timestamps without a zone are read as UTC.
func ExpiresAt(t *types.Tokens) (time.Time, error) {
	if t.ExpiresAt == "" {
		return time.Time{}, errors.New("expires_at missing")
	}
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"}
	var err error
	for _, layout := range layouts {
		var at time.Time
		if at, err = time.Parse(layout, t.ExpiresAt); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, err
}
