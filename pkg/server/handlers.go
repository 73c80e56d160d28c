package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vignesh-goutham/hermes/pkg/schwab"
	"go.uber.org/zap"
)

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

// GET /api/status reports readiness without triggering authentication
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, message := "warning", "Missing credentials"
	if s.opts.CredentialsAvailable {
		status, message = "healthy", "System ready. Authentication required for trading operations."
	}
	source := "Using local .env"
	if s.opts.OnEC2 {
		source = "Running on EC2"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                status,
		"credentials_available": s.opts.CredentialsAvailable,
		"tokens_exist":          s.opts.TokensExist(r.Context()),
		"aws_secrets_loaded":    source,
		"public_ip":             s.opts.PublicIP,
		"app_base_url":          s.opts.BaseURL,
		"message":               message,
		"timestamp":             s.now().Format(time.RFC3339),
	})
}

// GET /api/positions
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.broker.AllPositions(r.Context())
	if err != nil {
		if errors.Is(err, schwab.ErrNotAuthenticated) || errors.Is(err, schwab.ErrRefreshFailed) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		zap.S().Errorf("Error getting positions: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get positions")
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

// GET /api/auth/start
func (s *Server) handleAuthStart(w http.ResponseWriter, _ *http.Request) {
	state := uuid.NewString()
	s.states.add(state, s.now())

	resp := map[string]string{
		"auth_url":     s.broker.AuthURL(state),
		"message":      "Visit this URL to authenticate with Charles Schwab",
		"instructions": "After authentication, you will be redirected back to this server",
	}
	if s.opts.BaseURL != "" {
		resp["app_base_url"] = s.opts.BaseURL
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /callback is the OAuth redirect target. A state, when present, has to
// be one issued by /api/auth/start.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "No authorization code received")
		return
	}
	if state := r.URL.Query().Get("state"); state != "" && !s.states.consume(state, s.now()) {
		writeError(w, http.StatusBadRequest, "Unknown or expired state")
		return
	}
	s.exchange(w, r, code)
}

type manualCallbackRequest struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

// POST /api/auth/callback accepts either the code or the full redirected URL
func (s *Server) handleManualCallback(w http.ResponseWriter, r *http.Request) {
	var req manualCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No authorization code provided")
		return
	}

	code := req.Code
	if code == "" && req.URL != "" {
		var err error
		if code, err = schwab.CodeFromURL(req.URL); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if code == "" {
		writeError(w, http.StatusBadRequest, "No authorization code provided")
		return
	}
	s.exchange(w, r, code)
}

func (s *Server) exchange(w http.ResponseWriter, r *http.Request, code string) {
	t, err := s.broker.Exchange(r.Context(), code)
	if err != nil {
		zap.S().Errorf("Error exchanging authorization code: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to exchange code for tokens")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"message":    "Authentication successful! You can now use the API.",
		"expires_at": t.ExpiresAt,
	})
}

// GET /api/auth/status
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.broker.Status(r.Context())
	if err != nil {
		zap.S().Errorf("Error checking auth status: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type uploadRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// POST /api/auth/upload-tokens
func (s *Server) handleUploadTokens(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}

	t, err := s.broker.Upload(r.Context(), req.AccessToken, req.RefreshToken, req.ExpiresAt)
	if err != nil {
		var verr *schwab.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		zap.S().Errorf("Error uploading tokens: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save tokens")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"message":    "Tokens uploaded and saved successfully! You can now use the API.",
		"expires_at": t.ExpiresAt,
	})
}
