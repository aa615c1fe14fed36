package spotify

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
)

// countingClient wraps MockClient and counts calls per method.
type countingClient struct {
	*MockClient
	calls map[string]int
	fail  bool
}

func newCountingClient() *countingClient {
	return &countingClient{MockClient: NewMock(), calls: map[string]int{}}
}

func (c *countingClient) TopArtists(ctx context.Context, tr TimeRange, limit, offset int) (*TopArtists, error) {
	c.calls["artists"]++
	if c.fail {
		return nil, errors.New("boom")
	}
	return c.MockClient.TopArtists(ctx, tr, limit, offset)
}

func (c *countingClient) TopTracks(ctx context.Context, tr TimeRange, limit, offset int) (*TopTracks, error) {
	c.calls["tracks"]++
	return c.MockClient.TopTracks(ctx, tr, limit, offset)
}

func (c *countingClient) AvailableGenreSeeds(ctx context.Context) (*GenreSeeds, error) {
	c.calls["genres"]++
	return c.MockClient.AvailableGenreSeeds(ctx)
}

func (c *countingClient) Recommendations(ctx context.Context, p RecommendationParameters) (*Recommendations, error) {
	c.calls["recommendations"]++
	return c.MockClient.Recommendations(ctx, p)
}

func TestCachingClient(t *testing.T) {
	ctx := context.Background()
	inner := newCountingClient()
	c := NewCaching(inner)

	first, _ := c.TopArtists(ctx, LongTerm, 10, 0)
	second, _ := c.TopArtists(ctx, LongTerm, 10, 0)
	if first != second {
		t.Error("second TopArtists call not served from cache")
	}
	c.TopArtists(ctx, LongTerm, 10, 10)
	c.TopArtists(ctx, ShortTerm, 10, 0)
	if inner.calls["artists"] != 3 {
		t.Errorf("artists calls = %d, want 3", inner.calls["artists"])
	}

	c.TopTracks(ctx, LongTerm, 10, 0)
	c.TopTracks(ctx, LongTerm, 10, 0)
	if inner.calls["tracks"] != 1 {
		t.Errorf("tracks calls = %d, want 1", inner.calls["tracks"])
	}

	c.AvailableGenreSeeds(ctx)
	c.AvailableGenreSeeds(ctx)
	if inner.calls["genres"] != 1 {
		t.Errorf("genre calls = %d, want 1", inner.calls["genres"])
	}

	params := RecommendationParameters{SeedGenres: []string{"ambient"}}
	c.Recommendations(ctx, params)
	c.Recommendations(ctx, params)
	if inner.calls["recommendations"] != 2 {
		t.Errorf("recommendation calls = %d, want 2", inner.calls["recommendations"])
	}
}

func TestCachingClientDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner := newCountingClient()
	inner.fail = true
	c := NewCaching(inner)

	if _, err := c.TopArtists(ctx, LongTerm, 10, 0); err == nil {
		t.Fatal("expected error")
	}
	inner.fail = false
	got, err := c.TopArtists(ctx, LongTerm, 10, 0)
	if err != nil || len(got.Items) != 10 {
		t.Errorf("TopArtists() = %v, %v; want 10 items", got, err)
	}
	if inner.calls["artists"] != 2 {
		t.Errorf("artists calls = %d, want 2", inner.calls["artists"])
	}
}

func TestCachingClientRetriesAfterBothRoutesFail(t *testing.T) {
	var down atomic.Bool
	down.Store(true)
	handler := func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			apiError(http.StatusInternalServerError)(w, r)
			return
		}
		respond(http.StatusOK, artistsPage)(w, r)
	}
	direct := newUpstream(t, handler)
	proxy := newUpstream(t, handler)
	c := NewCaching(newTestClient(t, direct, proxy))
	ctx := context.Background()

	first, err := c.TopArtists(ctx, LongTerm, 10, 0)
	if err != nil {
		t.Fatalf("TopArtists() error = %v", err)
	}
	if len(first.Items) != 0 {
		t.Fatalf("first call items = %d, want empty page", len(first.Items))
	}

	down.Store(false)
	directBefore := direct.hits.Load()

	second, err := c.TopArtists(ctx, LongTerm, 10, 0)
	if err != nil {
		t.Fatalf("TopArtists() error = %v", err)
	}
	if len(second.Items) != 1 || second.Total != 1 {
		t.Errorf("second call items = %d, total = %d; want 1, 1", len(second.Items), second.Total)
	}
	if direct.hits.Load() == directBefore {
		t.Error("second call did not reach the direct route")
	}

	third, _ := c.TopArtists(ctx, LongTerm, 10, 0)
	if third != second {
		t.Error("recovered page was not cached")
	}
}

func TestCachingClientDoesNotCacheEmptyGenreSeedsAfterFailure(t *testing.T) {
	var down atomic.Bool
	down.Store(true)
	handler := func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			apiError(http.StatusBadGateway)(w, r)
			return
		}
		respond(http.StatusOK, `{"genres":["ambient","rock"]}`)(w, r)
	}
	direct := newUpstream(t, handler)
	proxy := newUpstream(t, handler)
	c := NewCaching(newTestClient(t, direct, proxy))
	ctx := context.Background()

	if got, _ := c.AvailableGenreSeeds(ctx); len(got.Genres) != 0 {
		t.Fatalf("genres = %v, want empty", got.Genres)
	}
	down.Store(false)
	if got, _ := c.AvailableGenreSeeds(ctx); len(got.Genres) != 2 {
		t.Errorf("genres = %v, want 2 after recovery", got.Genres)
	}
}
