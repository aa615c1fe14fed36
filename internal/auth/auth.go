// Package auth implements the pieces of the Spotify authorization code flow:
// state tokens, client credentials, session tokens and the token exchange.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

// DefaultTokenLifetime is used when the authorization server or the caller
// does not say how long an access token lives.
const DefaultTokenLifetime = time.Hour

var (
	// ErrTokenExchange is returned when the authorization server rejects a
	// code or refresh token, is unreachable, or answers with a malformed body.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrStateMismatch is returned when the callback state does not match the stored one.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Scopes requested at login.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// AccessToken is the session persisted in the accessToken cookie.
// Expires is in epoch milliseconds.
type AccessToken struct {
	Token        string `json:"token"`
	Expires      int64  `json:"expires"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Expired reports whether the token is past its expiry at now.
func (t AccessToken) Expired(now time.Time) bool {
	return now.UnixMilli() >= t.Expires
}

// GenerateState creates a random 128-bit state string, hex encoded.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// VerifyState compares the callback state with the stored one in constant
// time. Empty values never match.
func VerifyState(got, stored string) error {
	if got == "" || stored == "" || subtle.ConstantTimeCompare([]byte(got), []byte(stored)) != 1 {
		return ErrStateMismatch
	}
	return nil
}

// BuildBasicAuth returns the Authorization header value for client credentials.
func BuildBasicAuth(clientID, clientSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}

// ExpiryTimestamp returns now+expiresIn in epoch milliseconds.
func ExpiryTimestamp(now time.Time, expiresIn time.Duration) int64 {
	return now.Add(expiresIn).UnixMilli()
}
