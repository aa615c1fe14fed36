package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// recommendationsHandler returns one track per seed plus a track shared by
// every group.
func recommendationsHandler(mu *sync.Mutex, groups *[][]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seeds := strings.Split(r.URL.Query().Get("seed_tracks"), ",")
		mu.Lock()
		*groups = append(*groups, seeds)
		mu.Unlock()

		type track struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		resp := struct {
			Seeds  []map[string]string `json:"seeds"`
			Tracks []track             `json:"tracks"`
		}{}
		resp.Tracks = append(resp.Tracks, track{ID: "shared", Name: "Shared"})
		for _, s := range seeds {
			resp.Seeds = append(resp.Seeds, map[string]string{"id": s, "type": "TRACK"})
			resp.Tracks = append(resp.Tracks, track{ID: "rec-" + s, Name: "Rec " + s})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func seedList(n int) []string {
	s := make([]string, n)
	for i := range s {
		s[i] = fmt.Sprintf("s%d", i)
	}
	return s
}

func TestRecommendationsFanOut(t *testing.T) {
	var (
		mu     sync.Mutex
		groups [][]string
	)
	direct := newUpstream(t, recommendationsHandler(&mu, &groups))
	c := newTestClient(t, direct, newUpstream(t, apiError(http.StatusInternalServerError)))

	got, err := c.Recommendations(context.Background(), RecommendationParameters{SeedTracks: seedList(12), Limit: 20})
	if err != nil {
		t.Fatalf("Recommendations() error = %v", err)
	}

	if len(groups) != 3 {
		t.Fatalf("sub-requests = %d, want 3", len(groups))
	}
	for _, g := range groups {
		if len(g) > MaxSeeds {
			t.Errorf("sub-request carried %d seeds", len(g))
		}
	}
	if len(got.Tracks) != 13 {
		t.Errorf("tracks = %d, want 13 (12 unique + 1 shared)", len(got.Tracks))
	}
	seen := map[string]bool{}
	for _, tr := range got.Tracks {
		if seen[tr.ID] {
			t.Errorf("duplicate track %q", tr.ID)
		}
		seen[tr.ID] = true
	}
	if len(got.Seeds) != 12 {
		t.Errorf("seeds = %d, want 12", len(got.Seeds))
	}
}

func TestRecommendationsFanOutTruncates(t *testing.T) {
	var (
		mu     sync.Mutex
		groups [][]string
	)
	direct := newUpstream(t, recommendationsHandler(&mu, &groups))
	c := newTestClient(t, direct, newUpstream(t, apiError(http.StatusInternalServerError)))

	got, err := c.Recommendations(context.Background(), RecommendationParameters{SeedTracks: seedList(8), Limit: 4})
	if err != nil {
		t.Fatalf("Recommendations() error = %v", err)
	}
	if len(got.Tracks) != 4 {
		t.Errorf("tracks = %d, want 4", len(got.Tracks))
	}
}

func TestRecommendationsFanOutUnauthorized(t *testing.T) {
	c := newTestClient(t, newUpstream(t, apiError(http.StatusForbidden)), newUpstream(t, apiError(http.StatusForbidden)))

	_, err := c.Recommendations(context.Background(), RecommendationParameters{SeedTracks: seedList(7)})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestRecommendationsBothRoutesFail(t *testing.T) {
	h := apiError(http.StatusInternalServerError)
	c := newTestClient(t, newUpstream(t, h), newUpstream(t, h))

	got, err := c.Recommendations(context.Background(), RecommendationParameters{SeedGenres: []string{"ambient"}})
	if err != nil {
		t.Fatalf("Recommendations() error = %v", err)
	}
	if len(got.Tracks) != 0 || got.Tracks == nil {
		t.Errorf("tracks = %v, want empty", got.Tracks)
	}
}

func TestRecommendationsSendsTargets(t *testing.T) {
	var query string
	direct := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		respond(http.StatusOK, `{"seeds":[],"tracks":[]}`)(w, r)
	})
	c := newTestClient(t, direct, newUpstream(t, apiError(http.StatusInternalServerError)))

	energy, popularity := 0.8, 40
	_, err := c.Recommendations(context.Background(), RecommendationParameters{
		SeedArtists:   []string{"a1"},
		TargetEnergy:  &energy,
		MinPopularity: &popularity,
	})
	if err != nil {
		t.Fatalf("Recommendations() error = %v", err)
	}
	for _, want := range []string{"seed_artists=a1", "target_energy=0.8", "min_popularity=40", "limit=20"} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q missing %q", query, want)
		}
	}
}

func TestRecommendationsRequiresSeeds(t *testing.T) {
	c := newTestClient(t, newUpstream(t, respond(http.StatusOK, `{}`)), newUpstream(t, respond(http.StatusOK, `{}`)))
	if _, err := c.Recommendations(context.Background(), RecommendationParameters{}); !errors.Is(err, ErrNoSeeds) {
		t.Errorf("error = %v, want ErrNoSeeds", err)
	}
}

func TestPlanSeeds(t *testing.T) {
	tests := []struct {
		name   string
		params RecommendationParameters
		want   []string // per request: "artists/tracks/genres" counts
	}{
		{
			name:   "within cap",
			params: RecommendationParameters{SeedArtists: seedList(2), SeedTracks: seedList(2), SeedGenres: []string{"rock"}},
			want:   []string{"2/2/1"},
		},
		{
			name:   "artists trimmed first",
			params: RecommendationParameters{SeedArtists: seedList(3), SeedTracks: seedList(2), SeedGenres: []string{"rock", "pop"}},
			want:   []string{"1/2/2"},
		},
		{
			name:   "artists then tracks",
			params: RecommendationParameters{SeedArtists: seedList(2), SeedTracks: seedList(4), SeedGenres: []string{"rock", "pop"}},
			want:   []string{"0/3/2"},
		},
		{
			name:   "genres last",
			params: RecommendationParameters{SeedGenres: seedList(7)},
			want:   []string{"0/0/5"},
		},
		{
			name:   "track fan-out drops other kinds",
			params: RecommendationParameters{SeedArtists: seedList(1), SeedTracks: seedList(11)},
			want:   []string{"0/5/0", "0/5/0", "0/1/0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planSeeds(tt.params)
			var got []string
			for _, s := range plan {
				got = append(got, fmt.Sprintf("%d/%d/%d", len(s.Artists), len(s.Tracks), len(s.Genres)))
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("planSeeds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeRecommendations(t *testing.T) {
	results := []*Recommendations{
		{Tracks: []Track{{ID: "a", Name: "first"}, {ID: "b"}}},
		nil,
		{Tracks: []Track{{ID: "a", Name: "second"}, {ID: "c"}}},
	}

	got := mergeRecommendations(results, 20)
	if len(got.Tracks) != 3 {
		t.Fatalf("tracks = %d, want 3", len(got.Tracks))
	}
	if got.Tracks[0].Name != "first" {
		t.Errorf("kept %q, want first occurrence", got.Tracks[0].Name)
	}
}

func TestRecommendationLimit(t *testing.T) {
	for in, want := range map[int]int{0: 20, -1: 20, 7: 7, 500: 100} {
		if got := recommendationLimit(in); got != want {
			t.Errorf("recommendationLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
