// Package config loads the application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ErrMissingOAuthConfig is returned when the client id, client secret or
// redirect URL is not set.
var ErrMissingOAuthConfig = errors.New("missing SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET or REDIRECT_URL environment variable")

const (
	// DefaultAPIBaseURL is the Spotify Web API base.
	DefaultAPIBaseURL = "https://api.spotify.com/v1/"

	// DefaultAccountsBaseURL is the Spotify authorization server base.
	DefaultAccountsBaseURL = "https://accounts.spotify.com/"
)

// Config holds all runtime settings.
type Config struct {
	ClientID              string   `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret          string   `env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURL           string   `env:"REDIRECT_URL"`
	PublicURL             string   `env:"PUBLIC_URL"`
	CORSAllowedOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	EnableRecommendations bool     `env:"ENABLE_RECOMMENDATIONS"`

	Addr            string `env:"ADDR"                      envDefault:"127.0.0.1:8080"`
	APIBaseURL      string `env:"SPOTIFY_API_BASE_URL"`
	AccountsBaseURL string `env:"SPOTIFY_ACCOUNTS_BASE_URL"`
	UseMockData     bool   `env:"USE_MOCK_DATA"`
	LogLevel        string `env:"LOG_LEVEL"                 envDefault:"info"`
	SentryDSN       string `env:"SENTRY_DSN"`
}

// OAuth holds the credentials needed for the authorization code flow.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Load reads configuration from environment variables.
// Missing OAuth credentials are not an error here; see Config.OAuth.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// OAuth returns the OAuth credentials, or ErrMissingOAuthConfig if any of
// them is empty.
func (c *Config) OAuth() (OAuth, error) {
	if c.ClientID == "" || c.ClientSecret == "" || c.RedirectURL == "" {
		return OAuth{}, ErrMissingOAuthConfig
	}
	return OAuth{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
	}, nil
}

// PublicOrigin is the scheme and host browsers use to reach the app. It
// comes from PUBLIC_URL, then REDIRECT_URL, then the listen address.
func (c *Config) PublicOrigin() string {
	for _, raw := range []string{c.PublicURL, c.RedirectURL} {
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return "http://" + c.Addr
}

func (c *Config) normalize() {
	c.CORSAllowedOrigins = ParseOrigins(strings.Join(c.CORSAllowedOrigins, ","))
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.AccountsBaseURL == "" {
		c.AccountsBaseURL = DefaultAccountsBaseURL
	}
	c.APIBaseURL = withTrailingSlash(c.APIBaseURL)
	c.AccountsBaseURL = withTrailingSlash(c.AccountsBaseURL)
}

// ParseOrigins splits a comma-separated allow-list, trimming entries and
// dropping empty ones.
func ParseOrigins(raw string) []string {
	origins := []string{}
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
