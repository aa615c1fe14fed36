// Package spotify fetches the user's listening data from the Spotify Web API,
// falling back to the same-origin proxy when direct requests fail.
package spotify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-stats/internal/config"
)

var (
	// ErrUnauthorized means the upstream service rejected the token (HTTP 403).
	// Callers should send the user back through login.
	ErrUnauthorized = errors.New("spotify: token rejected")

	// ErrNoAccessToken is returned by New when the token is empty.
	ErrNoAccessToken = errors.New("spotify: access token required")
)

// TopListsClient is implemented by the live, caching and mock clients.
type TopListsClient interface {
	TopArtists(ctx context.Context, timeRange TimeRange, limit, offset int) (*TopArtists, error)
	TopTracks(ctx context.Context, timeRange TimeRange, limit, offset int) (*TopTracks, error)
	CreatePlaylist(ctx context.Context, name string, trackURIs []string) (*Playlist, error)
	Recommendations(ctx context.Context, params RecommendationParameters) (*Recommendations, error)
	AvailableGenreSeeds(ctx context.Context) (*GenreSeeds, error)
}

var (
	_ TopListsClient = (*Client)(nil)
	_ TopListsClient = (*CachingClient)(nil)
	_ TopListsClient = (*MockClient)(nil)
)

// Options configures a Client.
type Options struct {
	// DirectBaseURL defaults to config.DefaultAPIBaseURL.
	DirectBaseURL string
	// ProxyBaseURL is the same-origin proxy root, e.g. "https://app.example/proxy-api/".
	ProxyBaseURL string
	// HTTPClient is the base client wrapped with bearer authentication.
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client is the resilient top-lists client. It is safe for concurrent use.
type Client struct {
	direct *spotify.Client
	proxy  *spotify.Client
	logger logrus.FieldLogger

	mu          sync.Mutex
	proxyActive bool
	fatal       bool
}

// New creates a client bound to accessToken.
func New(accessToken string, opts Options) (*Client, error) {
	if accessToken == "" {
		return nil, ErrNoAccessToken
	}

	ctx := context.Background()
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	directURL := withSlash(opts.DirectBaseURL)
	if directURL == "/" {
		directURL = config.DefaultAPIBaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		direct: spotify.New(httpClient, spotify.WithBaseURL(directURL)),
		proxy:  spotify.New(httpClient, spotify.WithBaseURL(withSlash(opts.ProxyBaseURL))),
		logger: logger.WithField("component", "spotify"),
	}, nil
}

// ProxyActive reports whether a request has been routed through the proxy.
func (c *Client) ProxyActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proxyActive
}

// Fatal reports whether a proxy attempt has failed. Once set, later failures
// on the direct route are not retried through the proxy.
func (c *Client) Fatal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatal
}

// api returns the route for non-fallback operations.
func (c *Client) api() *spotify.Client {
	if c.ProxyActive() {
		return c.proxy
	}
	return c.direct
}

func (c *Client) activateProxy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proxyActive = true
}

func (c *Client) markFatal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatal = true
}

func isForbidden(err error) bool {
	var se spotify.Error
	if errors.As(err, &se) {
		return se.Status == http.StatusForbidden
	}
	var sp *spotify.Error
	if errors.As(err, &sp) {
		return sp.Status == http.StatusForbidden
	}
	return false
}

func withSlash(u string) string {
	return strings.TrimRight(u, "/") + "/"
}
