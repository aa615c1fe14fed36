package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/justestif/spotify-stats/internal/pagination"
	"github.com/justestif/spotify-stats/internal/spotify"
)

const (
	defaultTopLimit  = 10
	maxClientEntries = 256
)

// ClientFactory builds a top-lists client for an access token. proxyBaseURL
// is this server's own proxy root.
type ClientFactory func(accessToken, proxyBaseURL string) (spotify.TopListsClient, error)

// clientRegistry keeps one client per access token so its cache and
// fallback flags live as long as the browser session.
type clientRegistry struct {
	factory ClientFactory

	mu      sync.Mutex
	clients map[string]spotify.TopListsClient
}

func newClientRegistry(factory ClientFactory) *clientRegistry {
	return &clientRegistry{factory: factory, clients: make(map[string]spotify.TopListsClient)}
}

func (c *clientRegistry) get(accessToken, proxyBaseURL string) (spotify.TopListsClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[accessToken]; ok {
		return client, nil
	}
	client, err := c.factory(accessToken, proxyBaseURL)
	if err != nil {
		return nil, err
	}
	if len(c.clients) >= maxClientEntries {
		clear(c.clients)
	}
	c.clients[accessToken] = client
	return client, nil
}

// Dashboard serves the JSON API behind the session cookie.
type Dashboard struct {
	clients               *clientRegistry
	sessions              *SessionStore
	proxyBaseURL          string
	enableRecommendations bool
	logger                logrus.FieldLogger
	now                   func() time.Time
}

// NewDashboard creates the dashboard API handlers. proxyBaseURL is fixed at
// startup; request headers never select where tokens are sent.
func NewDashboard(factory ClientFactory, sessions *SessionStore, proxyBaseURL string, enableRecommendations bool, logger logrus.FieldLogger) *Dashboard {
	return &Dashboard{
		clients:               newClientRegistry(factory),
		sessions:              sessions,
		proxyBaseURL:          proxyBaseURL,
		enableRecommendations: enableRecommendations,
		logger:                logger.WithField("component", "dashboard"),
		now:                   time.Now,
	}
}

type paginationResponse struct {
	Total             int `json:"total"`
	CurrentLimit      int `json:"currentLimit"`
	CurrentOffset     int `json:"currentOffset"`
	RemainingElements int `json:"remainingElements"`
	NextOffset        int `json:"nextOffset,omitempty"`
}

type topArtistsResponse struct {
	*spotify.TopArtists
	Pagination paginationResponse `json:"pagination"`
}

type topTracksResponse struct {
	*spotify.TopTracks
	Pagination paginationResponse `json:"pagination"`
}

type createPlaylistRequest struct {
	Name      string   `json:"name"`
	TrackURIs []string `json:"trackUris"`
}

// TopArtists handles GET /api/top/artists.
func (d *Dashboard) TopArtists(w http.ResponseWriter, r *http.Request) {
	client, ok := d.client(w, r)
	if !ok {
		return
	}
	timeRange, limit, offset, err := topQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := client.TopArtists(r.Context(), timeRange, limit, offset)
	if err != nil {
		d.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topArtistsResponse{
		TopArtists: res,
		Pagination: paginationFor(res.Total, limit, offset),
	})
}

// TopTracks handles GET /api/top/tracks.
func (d *Dashboard) TopTracks(w http.ResponseWriter, r *http.Request) {
	client, ok := d.client(w, r)
	if !ok {
		return
	}
	timeRange, limit, offset, err := topQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := client.TopTracks(r.Context(), timeRange, limit, offset)
	if err != nil {
		d.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topTracksResponse{
		TopTracks:  res,
		Pagination: paginationFor(res.Total, limit, offset),
	})
}

// CreatePlaylist handles POST /api/playlists.
func (d *Dashboard) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	client, ok := d.client(w, r)
	if !ok {
		return
	}

	var body createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	pl, err := client.CreatePlaylist(r.Context(), body.Name, body.TrackURIs)
	switch {
	case errors.Is(err, spotify.ErrEmptyPlaylistName), errors.Is(err, spotify.ErrNoTracks):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		d.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pl)
}

// Recommendations handles POST /api/recommendations.
func (d *Dashboard) Recommendations(w http.ResponseWriter, r *http.Request) {
	if !d.enableRecommendations {
		writeError(w, http.StatusNotFound, "recommendations disabled")
		return
	}
	client, ok := d.client(w, r)
	if !ok {
		return
	}

	var params spotify.RecommendationParameters
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res, err := client.Recommendations(r.Context(), params)
	switch {
	case errors.Is(err, spotify.ErrNoSeeds):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		d.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GenreSeeds handles GET /api/genre-seeds.
func (d *Dashboard) GenreSeeds(w http.ResponseWriter, r *http.Request) {
	client, ok := d.client(w, r)
	if !ok {
		return
	}
	res, err := client.AvailableGenreSeeds(r.Context())
	if err != nil {
		d.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// client resolves the session's client, answering 401 when there is none.
func (d *Dashboard) client(w http.ResponseWriter, r *http.Request) (spotify.TopListsClient, bool) {
	tok, err := d.sessions.GetFromRequest(r)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			d.logger.WithError(err).Warn("unreadable session cookie")
		}
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	if tok.Expired(d.now()) {
		writeError(w, http.StatusUnauthorized, "session expired")
		return nil, false
	}

	client, err := d.clients.get(tok.Token, d.proxyBaseURL)
	if err != nil {
		d.logger.WithError(err).Error("creating client")
		writeError(w, http.StatusInternalServerError, "client unavailable")
		return nil, false
	}
	return client, true
}

func (d *Dashboard) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, spotify.ErrUnauthorized) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	d.logger.WithError(err).WithField("path", r.URL.Path).Error("upstream request failed")
	reportError(r, err)
	writeError(w, http.StatusBadGateway, "upstream request failed")
}

func topQuery(r *http.Request) (spotify.TimeRange, int, int, error) {
	q := r.URL.Query()

	timeRange := spotify.MediumTerm
	if v := q.Get("time_range"); v != "" {
		tr, err := spotify.ParseTimeRange(v)
		if err != nil {
			return "", 0, 0, err
		}
		timeRange = tr
	}

	limit, err := intParam(q.Get("limit"), defaultTopLimit)
	if err != nil {
		return "", 0, 0, err
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		return "", 0, 0, err
	}
	return timeRange, limit, offset, nil
}

func intParam(v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid number " + strconv.Quote(v))
	}
	return n, nil
}

func paginationFor(total, limit, offset int) paginationResponse {
	p := pagination.New(total, limit, offset)
	res := paginationResponse{
		Total:             p.Total(),
		CurrentLimit:      p.CurrentLimit(),
		CurrentOffset:     p.CurrentOffset(),
		RemainingElements: p.RemainingElements(),
	}
	// nextOffset is omitted on the last page.
	if p.UpdateOffset() && p.CurrentOffset() > res.CurrentOffset {
		res.NextOffset = p.CurrentOffset()
	}
	return res
}
