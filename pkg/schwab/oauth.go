package schwab

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vignesh-goutham/hermes/pkg/tokens"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// AuthURL returns the authorization URL the user visits to grant access.
// An empty state is omitted from the URL.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// CodeFromURL extracts the authorization code from the URL the browser was
// redirected to
func CodeFromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid callback URL: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("failed to extract code from the returned URL")
	}
	return code, nil
}

// Exchange trades an authorization code for tokens and persists them
func (c *Client) Exchange(ctx context.Context, code string) (*types.Tokens, error) {
	zap.S().Info("Exchanging authorization code for tokens")

	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		logRetrieveError("exchange", err)
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	t := c.fromOAuth(tok)
	t.RefreshIssuedAt = c.now().UTC()
	if err := c.store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save tokens: %w", err)
	}
	return t, nil
}

// Refresh uses a refresh token to obtain a new access token and persists it.
// When the response carries no refresh token the old one is kept.
func (c *Client) Refresh(ctx context.Context, current *types.Tokens) (*types.Tokens, error) {
	zap.S().Info("Refreshing access token")

	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: current.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		logRetrieveError("refresh", err)
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	t := c.fromOAuth(tok)
	if t.RefreshToken == current.RefreshToken && !current.RefreshIssuedAt.IsZero() {
		t.RefreshIssuedAt = current.RefreshIssuedAt
	} else {
		t.RefreshIssuedAt = c.now().UTC()
	}
	if err := c.store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save tokens: %w", err)
	}
	return t, nil
}

// fromOAuth converts a token response, stamping expires_at from expires_in
// against the client's clock
func (c *Client) fromOAuth(tok *oauth2.Token) *types.Tokens {
	t := &types.Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if v, ok := tok.Extra("scope").(string); ok {
		t.Scope = v
	}
	if v, ok := tok.Extra("id_token").(string); ok {
		t.IDToken = v
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		t.ExpiresIn = int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			t.ExpiresIn = n
		}
	}

	if t.ExpiresIn > 0 {
		tokens.Stamp(t, c.now())
	} else if !tok.Expiry.IsZero() {
		t.ExpiresAt = tok.Expiry.UTC().Format(time.RFC3339)
	}
	return t
}

func logRetrieveError(op string, err error) {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		zap.S().Errorf("Token %s failed: status=%d response=%s", op, re.Response.StatusCode, string(re.Body))
		return
	}
	zap.S().Errorf("Token %s failed: %v", op, err)
}
