package web

import (
	"errors"
	"net/http"

	"github.com/justestif/spotify-stats/internal/auth"
	"github.com/justestif/spotify-stats/internal/cookies"
)

// ErrNoSession is returned when the request carries no usable token cookie.
var ErrNoSession = errors.New("no session")

// SessionStore keeps the pending OAuth state and the access token in cookies.
// Nothing is held server-side; every request rebuilds its session from the
// Cookie header.
type SessionStore struct {
	secure bool
}

// NewSessionStore creates a store. secure marks cookies Secure, which
// browsers require for https deployments.
func NewSessionStore(secure bool) *SessionStore {
	return &SessionStore{secure: secure}
}

// GetFromRequest decodes the access token cookie.
func (s *SessionStore) GetFromRequest(r *http.Request) (*auth.AccessToken, error) {
	var tok auth.AccessToken
	if err := cookies.ReadJSON(r, cookies.AccessTokenName, &tok); err != nil {
		if errors.Is(err, cookies.ErrNoCookie) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	if tok.Token == "" {
		return nil, ErrNoSession
	}
	return &tok, nil
}

// SetCookie stores tok as the long-lived session cookie. The cookie stays
// readable by scripts since the dashboard calls the API directly.
func (s *SessionStore) SetCookie(w http.ResponseWriter, tok auth.AccessToken) error {
	return cookies.SetJSON(w, cookies.AccessTokenName, tok, cookies.Options{
		MaxAge:   cookies.AccessTokenMaxAge,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func (s *SessionStore) ClearCookie(w http.ResponseWriter) {
	cookies.Clear(w, cookies.AccessTokenName)
}

// SetState stores the pending OAuth state.
func (s *SessionStore) SetState(w http.ResponseWriter, state string) {
	cookies.Set(w, cookies.StateName, state, cookies.Options{
		MaxAge:   cookies.StateMaxAge,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// State returns the pending OAuth state, or "" when absent.
func (s *SessionStore) State(r *http.Request) string {
	state, err := cookies.Read(r, cookies.StateName)
	if err != nil {
		return ""
	}
	return state
}

// ClearState removes the OAuth state cookie.
func (s *SessionStore) ClearState(w http.ResponseWriter) {
	cookies.Clear(w, cookies.StateName)
}
