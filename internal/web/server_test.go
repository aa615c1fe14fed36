package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/justestif/spotify-stats/internal/auth"
	"github.com/justestif/spotify-stats/internal/config"
	"github.com/justestif/spotify-stats/internal/cookies"
	"github.com/justestif/spotify-stats/internal/logging"
)

const indexHTML = "<html>dashboard</html>"

func testConfig() *config.Config {
	return &config.Config{
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		RedirectURL:     "http://example.com/spotify-callback",
		Addr:            "127.0.0.1:0",
		APIBaseURL:      config.DefaultAPIBaseURL,
		AccountsBaseURL: config.DefaultAccountsBaseURL,
		LogLevel:        "info",
	}
}

func newTestServer(t *testing.T, cfg ServerConfig) http.Handler {
	t.Helper()
	if cfg.Config == nil {
		cfg.Config = testConfig()
	}
	cfg.Logger = logging.Discard()
	if cfg.StaticFS == nil {
		cfg.StaticFS = fstest.MapFS{
			"index.html": {Data: []byte(indexHTML)},
			"app.js":     {Data: []byte("console.log('app')")},
		}
	}

	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s.Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// findCookie returns the named Set-Cookie from rec, or nil.
func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// sessionCookie encodes tok the way the session store does.
func sessionCookie(t *testing.T, tok auth.AccessToken) string {
	t.Helper()
	data, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("marshal token: %v", err)
	}
	return cookies.AccessTokenName + "=" + cookies.Encode(string(data))
}

func decodeSession(t *testing.T, c *http.Cookie) auth.AccessToken {
	t.Helper()
	var tok auth.AccessToken
	if err := json.Unmarshal([]byte(cookies.Decode(c.Value)), &tok); err != nil {
		t.Fatalf("decoding session cookie %q: %v", c.Value, err)
	}
	return tok
}

func TestNewServerRequiresConfig(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("NewServer() without config should fail")
	}
}

func TestStaticFallback(t *testing.T) {
	h := newTestServer(t, ServerConfig{})

	tests := []struct {
		path     string
		wantBody string
	}{
		{"/", indexHTML},
		{"/some/client/route", indexHTML},
		{"/app.js", "console.log('app')"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(h, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	h := newTestServer(t, ServerConfig{})

	for _, path := range []string{"/login", "/api/set-tokens", "/proxy-api/me", "/anything"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "http://example.com")
		rec := serve(h, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: status = %d, want 204", path, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != corsAllowMethods {
			t.Errorf("%s: Allow-Methods = %q", path, got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Headers"); got != corsAllowHeaders {
			t.Errorf("%s: Allow-Headers = %q", path, got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
			t.Errorf("%s: Allow-Origin = %q, want own origin", path, got)
		}
	}
}
