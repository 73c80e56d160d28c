package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/vignesh-goutham/hermes/pkg/schwab"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"go.uber.org/zap"
)

// stateTTL bounds how long an OAuth state issued by /api/auth/start is honoured
const stateTTL = 10 * time.Minute

// Broker is the Schwab client surface served over HTTP
type Broker interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*types.Tokens, error)
	Status(ctx context.Context) (schwab.AuthStatus, error)
	Upload(ctx context.Context, accessToken, refreshToken, expiresAt string) (*types.Tokens, error)
	AllPositions(ctx context.Context) (types.AccountPositions, error)
}

// Options describes the deployment for /api/status
type Options struct {
	CredentialsAvailable bool
	OnEC2                bool
	TokensExist          func(ctx context.Context) bool

	// PublicIP and BaseURL are the address the service was last synced to
	PublicIP string
	BaseURL  string
}

// Server is the HTTP API for the token lifecycle and positions
type Server struct {
	httpServer *http.Server
	broker     Broker
	opts       Options
	states     *stateSet
	now        func() time.Time
}

// New creates a Server bound to addr
func New(addr string, broker Broker, opts Options) *Server {
	s := &Server{
		broker: broker,
		opts:   opts,
		states: newStateSet(stateTTL),
		now:    time.Now,
	}
	if s.opts.TokensExist == nil {
		s.opts.TokensExist = func(context.Context) bool { return false }
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the route table
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/callback", s.handleOAuthCallback).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	api.HandleFunc("/auth/start", s.handleAuthStart).Methods(http.MethodGet)
	api.HandleFunc("/auth/callback", s.handleManualCallback).Methods(http.MethodPost)
	api.HandleFunc("/auth/status", s.handleAuthStatus).Methods(http.MethodGet)
	api.HandleFunc("/auth/upload-tokens", s.handleUploadTokens).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	zap.S().Infof("Starting Charles Schwab API server on %s", s.httpServer.Addr)

	errc := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// stateSet tracks OAuth states handed out by /api/auth/start
type stateSet struct {
	mu     sync.Mutex
	ttl    time.Duration
	issued map[string]time.Time
}

func newStateSet(ttl time.Duration) *stateSet {
	return &stateSet{ttl: ttl, issued: map[string]time.Time{}}
}

func (s *stateSet) add(state string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, at := range s.issued {
		if now.Sub(at) > s.ttl {
			delete(s.issued, k)
		}
	}
	s.issued[state] = now
}

// consume reports whether state was issued and is still fresh, and forgets it
func (s *stateSet) consume(state string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.issued[state]
	delete(s.issued, state)
	return ok && now.Sub(at) <= s.ttl
}
