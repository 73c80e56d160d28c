package schwab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vignesh-goutham/hermes/pkg/tokens"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"go.uber.org/zap"
)

// EnsureValid returns usable tokens, refreshing them when the access token
// expires within two minutes. It never starts an interactive login: missing
// or malformed tokens yield ErrNotAuthenticated. Concurrent callers share a
// single refresh, which is detached from any one caller's cancellation.
func (c *Client) EnsureValid(ctx context.Context) (*types.Tokens, error) {
	ch := c.group.DoChan("ensure", func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), ensureTimeout)
		defer cancel()
		return c.ensureValid(shared)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.Tokens), nil
	}
}

func (c *Client) ensureValid(ctx context.Context) (*types.Tokens, error) {
	t, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, tokens.ErrNotFound) {
			zap.S().Warn("No tokens found, authenticate via the web interface")
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	expiresAt, err := tokens.ExpiresAt(t)
	if err != nil {
		zap.S().Warnf("Invalid expires_at in tokens (%v), re-authentication required", err)
		return nil, ErrNotAuthenticated
	}

	if c.now().Before(expiresAt.Add(-refreshBuffer)) {
		return t, nil
	}

	zap.S().Info("Access token is about to expire or has expired, refreshing")
	fresh, err := c.Refresh(ctx, t)
	if err != nil {
		zap.S().Errorf("Failed to refresh tokens, re-authenticate via the web interface: %v", err)
		if errors.Is(err, ErrRefreshFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	return fresh, nil
}

// AuthStatus describes the stored token state
type AuthStatus struct {
	Authenticated    bool       `json:"authenticated"`
	Expired          bool       `json:"expired"`
	ExpiresAt        string     `json:"expires_at,omitempty"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// Status inspects the stored tokens without refreshing them
func (c *Client) Status(ctx context.Context) (AuthStatus, error) {
	t, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, tokens.ErrNotFound) {
			return AuthStatus{Error: "No tokens found"}, nil
		}
		return AuthStatus{}, err
	}

	if t.ExpiresAt == "" {
		return AuthStatus{Error: "No expiration time found"}, nil
	}
	expiresAt, err := tokens.ExpiresAt(t)
	if err != nil {
		return AuthStatus{Error: "Invalid token format"}, nil
	}

	expired := !c.now().Before(expiresAt)
	status := AuthStatus{
		Authenticated: !expired,
		Expired:       expired,
		ExpiresAt:     t.ExpiresAt,
	}
	if !t.RefreshIssuedAt.IsZero() {
		at := t.RefreshIssuedAt.Add(refreshTokenLifetime)
		status.RefreshExpiresAt = &at
	}
	return status, nil
}

// Upload stores manually entered tokens. All fields are required and the
// expiry has to be in the future.
func (c *Client) Upload(ctx context.Context, accessToken, refreshToken, expiresAt string) (*types.Tokens, error) {
	accessToken = strings.TrimSpace(accessToken)
	refreshToken = strings.TrimSpace(refreshToken)
	expiresAt = strings.TrimSpace(expiresAt)
	if accessToken == "" || refreshToken == "" || expiresAt == "" {
		return nil, &ValidationError{Msg: "Missing required fields: access_token, refresh_token, expires_at"}
	}

	t := &types.Tokens{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		TokenType:       "Bearer",
		ExpiresAt:       expiresAt,
		RefreshIssuedAt: c.now().UTC(),
	}
	at, err := tokens.ExpiresAt(t)
	if err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("Invalid expires_at format: %v", err)}
	}
	if !at.After(c.now()) {
		return nil, &ValidationError{Msg: "Token expiration time is in the past"}
	}
	t.ExpiresAt = at.Format(time.RFC3339)

	if err := c.store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save tokens: %w", err)
	}
	zap.S().Info("Manual tokens uploaded")
	return t, nil
}

// ValidationError is a rejected client input
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
