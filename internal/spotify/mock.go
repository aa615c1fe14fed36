package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/justestif/spotify-stats/internal/config"
)

const (
	mockArtistCount = 40
	mockTrackCount  = 60
)

var timeRangeLabels = map[TimeRange]string{
	ShortTerm:  "Recent",
	MediumTerm: "6-Month",
	LongTerm:   "All-Time",
}

var genrePool = [][]string{
	{"synthwave", "electronic"},
	{"indie pop", "dream pop"},
	{"alternative rock", "garage rock"},
	{"hip hop", "lo-fi"},
	{"jazz fusion", "neo soul"},
	{"house", "dance"},
	{"acoustic", "singer-songwriter"},
	{"ambient", "chillout"},
}

var trackStylePool = []string{
	"Neon Drive", "City Lights", "Midnight Echo", "Golden Hour", "Ocean Breeze",
	"Stardust", "Velvet Sky", "Pulse Wave", "Crystal Rain", "Moonrise",
}

var albumStylePool = []string{"Afterglow", "Daydream", "Nightfall", "Aurora", "Atlas", "Mirage", "Odyssey", "Echoes"}

type mockDataset struct {
	artists []Artist
	tracks  []Track
}

// MockClient serves deterministic data for local development.
type MockClient struct {
	mu   sync.Mutex
	data map[TimeRange]*mockDataset
}

// NewMock creates a MockClient.
func NewMock() *MockClient {
	return &MockClient{data: make(map[TimeRange]*mockDataset)}
}

func (m *MockClient) TopArtists(_ context.Context, timeRange TimeRange, limit, offset int) (*TopArtists, error) {
	ds := m.dataset(timeRange)
	return &TopArtists{Items: window(ds.artists, limit, offset), Total: len(ds.artists)}, nil
}

func (m *MockClient) TopTracks(_ context.Context, timeRange TimeRange, limit, offset int) (*TopTracks, error) {
	ds := m.dataset(timeRange)
	return &TopTracks{Items: window(ds.tracks, limit, offset), Total: len(ds.tracks)}, nil
}

func (m *MockClient) CreatePlaylist(_ context.Context, name string, trackURIs []string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyPlaylistName
	}
	if len(trackIDs(trackURIs)) == 0 {
		return nil, ErrNoTracks
	}

	return &Playlist{
		ID:           "mock-playlist-" + strings.Join(strings.Fields(strings.ToLower(name)), "-"),
		ExternalURLs: ExternalURLs{Spotify: "https://open.spotify.com/playlist/mock-playlist"},
		SnapshotID:   "mock-snapshot",
		TracksAdded:  len(trackURIs),
	}, nil
}

func (m *MockClient) Recommendations(_ context.Context, params RecommendationParameters) (*Recommendations, error) {
	if params.SeedCount() == 0 {
		return nil, ErrNoSeeds
	}

	limit := recommendationLimit(params.Limit)
	tracks := buildMockTracks(MediumTerm, limit, buildMockArtists(MediumTerm, 10))
	for i := range tracks {
		tracks[i].ID = fmt.Sprintf("mock-recommendation-%d", i+1)
		tracks[i].Name = "Recommended: " + tracks[i].Name
	}

	seeds := []RecommendationSeed{}
	for _, id := range firstN(params.SeedTracks, MaxSeeds) {
		seeds = append(seeds, RecommendationSeed{ID: id, Type: "TRACK", Href: config.DefaultAPIBaseURL + "tracks/" + id})
	}
	for _, id := range firstN(params.SeedArtists, MaxSeeds) {
		seeds = append(seeds, RecommendationSeed{ID: id, Type: "ARTIST", Href: config.DefaultAPIBaseURL + "artists/" + id})
	}
	for _, genre := range firstN(params.SeedGenres, MaxSeeds) {
		seeds = append(seeds, RecommendationSeed{ID: genre, Type: "GENRE"})
	}

	return &Recommendations{Seeds: seeds, Tracks: tracks}, nil
}

func (m *MockClient) AvailableGenreSeeds(context.Context) (*GenreSeeds, error) {
	var genres []string
	for _, pair := range genrePool {
		genres = append(genres, pair...)
	}
	return &GenreSeeds{Genres: genres}, nil
}

func (m *MockClient) dataset(timeRange TimeRange) *mockDataset {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ds, ok := m.data[timeRange]; ok {
		return ds
	}
	artists := buildMockArtists(timeRange, mockArtistCount)
	ds := &mockDataset{artists: artists, tracks: buildMockTracks(timeRange, mockTrackCount, artists)}
	m.data[timeRange] = ds
	return ds
}

func buildMockArtists(timeRange TimeRange, count int) []Artist {
	artists := make([]Artist, count)
	for i := range artists {
		id := fmt.Sprintf("mock-artist-%s-%d", timeRange, i+1)
		label := fmt.Sprintf("%s Artist %d", timeRangeLabels[timeRange], i+1)
		artists[i] = Artist{
			ID:           id,
			Name:         label,
			ExternalURLs: ExternalURLs{Spotify: "https://open.spotify.com/artist/" + id},
			Genres:       genrePool[i%len(genrePool)],
			Images:       mockImages(label),
		}
	}
	return artists
}

func buildMockTracks(timeRange TimeRange, count int, artists []Artist) []Track {
	tracks := make([]Track, count)
	for i := range tracks {
		id := fmt.Sprintf("mock-track-%s-%d", timeRange, i+1)
		album := fmt.Sprintf("%s (%s)", albumStylePool[i%len(albumStylePool)], timeRangeLabels[timeRange])

		main := artists[i%len(artists)]
		credited := []Artist{main}
		if featured := artists[(i+3)%len(artists)]; featured.ID != main.ID {
			credited = append(credited, featured)
		}

		tracks[i] = Track{
			ID:           id,
			Name:         fmt.Sprintf("%s %d", trackStylePool[i%len(trackStylePool)], i+1),
			Popularity:   60 + i%40,
			URI:          trackURIPrefix + id,
			ExternalURLs: ExternalURLs{Spotify: "https://open.spotify.com/track/" + id},
			Artists:      credited,
			Album:        Album{Name: album, Images: mockImages(album)},
		}
	}
	return tracks
}

func mockImages(label string) []Image {
	sizes := []int{640, 300, 64}
	images := make([]Image, len(sizes))
	for i, size := range sizes {
		images[i] = Image{
			URL:    fmt.Sprintf("https://placehold.co/%dx%d/1DB954/ffffff/png?text=%s", size, size, url.QueryEscape(label)),
			Height: size,
			Width:  size,
		}
	}
	return images
}

func window[T any](items []T, limit, offset int) []T {
	start := min(max(offset, 0), len(items))
	end := min(start+max(limit, 0), len(items))
	return items[start:end]
}

func firstN(s []string, n int) []string {
	return s[:min(n, len(s))]
}
