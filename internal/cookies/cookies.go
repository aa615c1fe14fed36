// Package cookies encodes session values into cookies and reads them back.
package cookies

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// StateName holds the pending OAuth state between login and callback.
	StateName = "auth-state"

	// AccessTokenName holds the URL-encoded JSON session token.
	AccessTokenName = "accessToken"

	// StateMaxAge bounds how long a login may take.
	StateMaxAge = 5 * time.Minute

	// AccessTokenMaxAge keeps the session (and its refresh token) around for ~30 days.
	AccessTokenMaxAge = 30 * 24 * time.Hour
)

// ErrNoCookie is returned when the named cookie is absent or empty.
var ErrNoCookie = errors.New("cookie not present")

// Options controls the attributes written with a cookie.
// A zero MaxAge produces a session cookie.
type Options struct {
	MaxAge   time.Duration
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// Encode URL-encodes a raw value for use in a cookie.
func Encode(value string) string {
	return url.QueryEscape(value)
}

// Decode reverses Encode. Values that fail to decode are returned as-is.
func Decode(raw string) string {
	value, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return value
}

// Parse splits a Cookie header into decoded name/value pairs.
// Unlike net/http, values outside the RFC 6265 alphabet are kept rather than dropped.
func Parse(header string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		if name == "" {
			continue
		}
		if value == "" {
			cookies[name] = ""
			continue
		}
		cookies[name] = Decode(value)
	}
	return cookies
}

// Read returns the decoded value of the named cookie on r.
func Read(r *http.Request, name string) (string, error) {
	header := strings.Join(r.Header.Values("Cookie"), "; ")
	value, ok := Parse(header)[name]
	if !ok || value == "" {
		return "", ErrNoCookie
	}
	return value, nil
}

// Set writes the named cookie with an encoded value and Path=/.
func Set(w http.ResponseWriter, name, value string, opts Options) {
	http.SetCookie(w, build(name, value, opts))
}

// Clear expires the named cookie immediately.
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// SetJSON marshals v and stores it as the named cookie.
func SetJSON(w http.ResponseWriter, name string, v any, opts Options) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cookie %s: %w", name, err)
	}
	Set(w, name, string(data), opts)
	return nil
}

// ReadJSON decodes the named cookie into v.
// Returns ErrNoCookie when absent and a wrapped decode error when malformed.
func ReadJSON(r *http.Request, name string, v any) error {
	value, err := Read(r, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return fmt.Errorf("decoding cookie %s: %w", name, err)
	}
	return nil
}

func build(name, value string, opts Options) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    Encode(value),
		Path:     "/",
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
	if opts.MaxAge > 0 {
		c.MaxAge = int(opts.MaxAge.Seconds())
	}
	return c
}
