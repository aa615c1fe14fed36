package spotify

import (
	"context"
	"fmt"
	"sync"
)

const genreSeedsKey = "genre-seeds"

// CachingClient memoizes top lists and genre seeds for its lifetime.
// Playlist creation and recommendations always reach the wrapped client.
type CachingClient struct {
	next TopListsClient

	mu    sync.Mutex
	cache map[string]any
}

// NewCaching wraps next with an in-memory cache.
func NewCaching(next TopListsClient) *CachingClient {
	return &CachingClient{next: next, cache: make(map[string]any)}
}

func (c *CachingClient) TopArtists(ctx context.Context, timeRange TimeRange, limit, offset int) (*TopArtists, error) {
	return cached(c, fmt.Sprintf("artists-%s-%d-%d", timeRange, limit, offset), func() (*TopArtists, error) {
		return c.next.TopArtists(ctx, timeRange, limit, offset)
	})
}

func (c *CachingClient) TopTracks(ctx context.Context, timeRange TimeRange, limit, offset int) (*TopTracks, error) {
	return cached(c, fmt.Sprintf("tracks-%s-%d-%d", timeRange, limit, offset), func() (*TopTracks, error) {
		return c.next.TopTracks(ctx, timeRange, limit, offset)
	})
}

func (c *CachingClient) AvailableGenreSeeds(ctx context.Context) (*GenreSeeds, error) {
	return cached(c, genreSeedsKey, func() (*GenreSeeds, error) {
		return c.next.AvailableGenreSeeds(ctx)
	})
}

func (c *CachingClient) CreatePlaylist(ctx context.Context, name string, trackURIs []string) (*Playlist, error) {
	return c.next.CreatePlaylist(ctx, name, trackURIs)
}

func (c *CachingClient) Recommendations(ctx context.Context, params RecommendationParameters) (*Recommendations, error) {
	return c.next.Recommendations(ctx, params)
}

// cached returns the stored value for key or loads and stores it.
// Errors and degraded results are not cached, so the next call goes
// direct-first again.
func cached[T any](c *CachingClient, key string, load func() (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return v.(T), nil
	}
	c.mu.Unlock()

	v, err := load()
	if err != nil {
		return v, err
	}
	if d, ok := any(v).(degradable); ok && d.isDegraded() {
		return v, nil
	}

	c.mu.Lock()
	c.cache[key] = v
	c.mu.Unlock()
	return v, nil
}
