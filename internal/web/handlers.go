// Package web serves the OAuth edge routes, the API proxy and the dashboard API.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/justestif/spotify-stats/internal/auth"
	"github.com/justestif/spotify-stats/internal/config"
)

const (
	msgMissingConfig    = "Missing Spotify environment variables."
	msgStateMismatch    = "Error, state did not match"
	msgMethodNotAllowed = "Method Not Allowed"
)

// invalidTokenLocation is the app root with an error fragment the UI reads.
var invalidTokenLocation = "/#" + url.Values{"error": {"invalid_token"}}.Encode()

// Handlers contains the OAuth edge handlers.
type Handlers struct {
	cfg      *config.Config
	tokens   *auth.TokenService // nil when OAuth config is missing
	sessions *SessionStore
	cors     corsPolicy
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewHandlers creates a new Handlers instance. httpClient is used for calls
// to the accounts service and may be nil.
func NewHandlers(cfg *config.Config, sessions *SessionStore, httpClient *http.Client, logger logrus.FieldLogger) *Handlers {
	h := &Handlers{
		cfg:      cfg,
		sessions: sessions,
		cors:     corsPolicy{allowed: cfg.CORSAllowedOrigins},
		logger:   logger.WithField("component", "oauth"),
		now:      time.Now,
	}
	if creds, err := cfg.OAuth(); err == nil {
		h.tokens = auth.NewTokenService(creds, cfg.AccountsBaseURL, httpClient)
	}
	return h
}

// Login redirects to the consent page (GET /login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, msgMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	if h.tokens == nil {
		http.Error(w, msgMissingConfig, http.StatusInternalServerError)
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.WithError(err).Error("generating state")
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	h.sessions.SetState(w, state)
	http.Redirect(w, r, h.tokens.AuthURL(state), http.StatusFound)
}

// Callback validates the state and exchanges the code (GET /spotify-callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, msgMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	if h.tokens == nil {
		http.Error(w, msgMissingConfig, http.StatusInternalServerError)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	stored := h.sessions.State(r)

	if err := auth.VerifyState(state, stored); err != nil || code == "" {
		h.logger.WithError(auth.ErrStateMismatch).Warn("rejecting callback")
		http.Error(w, msgStateMismatch, http.StatusBadRequest)
		return
	}

	tok, err := h.tokens.Exchange(r.Context(), code)
	if err != nil {
		h.logger.WithError(err).Error("exchanging authorization code")
		reportError(r, err)
		http.Redirect(w, r, invalidTokenLocation, http.StatusFound)
		return
	}

	h.sessions.ClearState(w)
	if err := h.sessions.SetCookie(w, tok); err != nil {
		h.logger.WithError(err).Error("storing session")
		http.Redirect(w, r, invalidTokenLocation, http.StatusFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// RefreshToken renews the session's access token (GET /refresh-token).
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, msgMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	if h.tokens == nil {
		http.Error(w, msgMissingConfig, http.StatusInternalServerError)
		return
	}

	current, err := h.sessions.GetFromRequest(r)
	if err != nil && !errors.Is(err, ErrNoSession) {
		h.logger.WithError(err).Warn("unreadable session cookie")
	}
	if current == nil || current.RefreshToken == "" {
		h.sessions.ClearCookie(w)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	tok, err := h.tokens.Refresh(r.Context(), current.RefreshToken)
	if err != nil {
		h.logger.WithError(err).Error("refreshing token")
		reportError(r, err)
		h.sessions.ClearCookie(w)
		http.Redirect(w, r, invalidTokenLocation, http.StatusFound)
		return
	}

	if err := h.sessions.SetCookie(w, tok); err != nil {
		h.logger.WithError(err).Error("storing session")
		h.sessions.ClearCookie(w)
		http.Redirect(w, r, invalidTokenLocation, http.StatusFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

type setTokensRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Expires      int64  `json:"expires,omitempty"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Expires      int64  `json:"expires"`
}

// SetTokens stores a manually supplied token pair (POST /api/set-tokens).
func (h *Handlers) SetTokens(w http.ResponseWriter, r *http.Request) {
	h.cors.build(w.Header(), r)
	if r.Method != http.MethodPost {
		http.Error(w, msgMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	var body setTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Missing accessToken or refreshToken")
		return
	}

	tok := auth.AccessToken{
		Token:        body.AccessToken,
		Expires:      body.Expires,
		RefreshToken: body.RefreshToken,
	}
	if tok.Expires == 0 {
		tok.Expires = auth.ExpiryTimestamp(h.now(), auth.DefaultTokenLifetime)
	}

	if err := h.sessions.SetCookie(w, tok); err != nil {
		h.logger.WithError(err).Error("storing session")
		writeError(w, http.StatusInternalServerError, "Failed to store tokens")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetTokens returns the stored token triple (GET /api/get-tokens).
func (h *Handlers) GetTokens(w http.ResponseWriter, r *http.Request) {
	h.cors.build(w.Header(), r)
	if r.Method != http.MethodGet {
		http.Error(w, msgMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	tok, err := h.sessions.GetFromRequest(r)
	if err != nil && !errors.Is(err, ErrNoSession) {
		h.logger.WithError(err).Warn("unreadable session cookie")
	}
	if tok == nil || tok.RefreshToken == "" {
		writeError(w, http.StatusNotFound, "No tokens found")
		return
	}

	writeJSON(w, http.StatusOK, tokensResponse{
		AccessToken:  tok.Token,
		RefreshToken: tok.RefreshToken,
		Expires:      tok.Expires,
	})
}

// FeatureFlags reports optional features (GET /api/feature-flags).
func (h *Handlers) FeatureFlags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, msgMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	h.cors.build(w.Header(), r)
	writeJSON(w, http.StatusOK, map[string]bool{"recommendations": h.cfg.EnableRecommendations})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// reportError sends err to Sentry when a hub is attached to the request.
func reportError(r *http.Request, err error) {
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
}
