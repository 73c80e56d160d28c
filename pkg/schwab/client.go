package schwab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vignesh-goutham/hermes/pkg/tokens"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultAuthURL  = "https://api.schwabapi.com/v1/oauth/authorize"
	DefaultTokenURL = "https://api.schwabapi.com/v1/oauth/token"
	DefaultAPIURL   = "https://api.schwabapi.com/trader/v1"

	// refreshBuffer is how long before expiry an access token is refreshed
	refreshBuffer = 2 * time.Minute
	// refreshTokenLifetime is how long Schwab honours a refresh token
	refreshTokenLifetime = 7 * 24 * time.Hour

	requestTimeout = 10 * time.Second
	// ensureTimeout bounds a shared load-and-refresh
	ensureTimeout = 30 * time.Second
)

// Client talks to the Schwab OAuth and trader endpoints and owns the token
// lifecycle
type Client struct {
	oauth  *oauth2.Config
	store  tokens.Store
	http   *http.Client
	apiURL string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	group singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithEndpoints overrides the OAuth and API base URLs
func WithEndpoints(authURL, tokenURL, apiURL string) Option {
	return func(c *Client) {
		c.oauth.Endpoint.AuthURL = authURL
		c.oauth.Endpoint.TokenURL = tokenURL
		c.apiURL = apiURL
	}
}

// WithHTTPClient sets the HTTP client used for every request
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithSleep sets the function used to wait between retries
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient returns a Client for the given app credentials and token store
func NewClient(creds types.Credentials, store tokens.Store, opts ...Option) *Client {
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     creds.AppKey,
			ClientSecret: creds.AppSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       []string{"readonly"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   DefaultAuthURL,
				TokenURL:  DefaultTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		store:  store,
		http:   &http.Client{Timeout: 30 * time.Second},
		apiURL: DefaultAPIURL,
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the token store
func (c *Client) Store() tokens.Store {
	return c.store
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// getJSON performs an authenticated GET and decodes a 200 response into out.
// Non-200 responses are returned as *APIError.
func (c *Client) getJSON(ctx context.Context, accessToken, path string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return newAPIError(path, resp, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error decoding %s: %w", path, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
