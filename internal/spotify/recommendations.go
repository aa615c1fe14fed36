package spotify

import (
	"context"
	"errors"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxSeeds is the upstream cap on seeds per recommendation request.
	MaxSeeds = 5
	// DefaultRecommendationLimit applies when no limit is given.
	DefaultRecommendationLimit = 20
	maxRecommendationLimit     = 100
)

// ErrNoSeeds is returned when a recommendation request carries no seeds.
var ErrNoSeeds = errors.New("at least one seed is required")

// Recommendations returns tracks for the given seeds. More than MaxSeeds
// track seeds are split into groups requested concurrently; the merged result
// is deduplicated by track ID and truncated to the limit. Other oversized
// seed mixes are trimmed, artists first, then tracks, then genres.
func (c *Client) Recommendations(ctx context.Context, params RecommendationParameters) (*Recommendations, error) {
	if params.SeedCount() == 0 {
		return nil, ErrNoSeeds
	}

	limit := recommendationLimit(params.Limit)
	plan := planSeeds(params)
	if len(plan) == 1 {
		return c.recommend(ctx, plan[0], params, limit)
	}

	results := make([]*Recommendations, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	for i, seeds := range plan {
		g.Go(func() error {
			res, err := c.recommend(gctx, seeds, params, limit)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeRecommendations(results, limit), nil
}

// AvailableGenreSeeds lists genres accepted as seeds.
func (c *Client) AvailableGenreSeeds(ctx context.Context) (*GenreSeeds, error) {
	res, ok, err := fetch(ctx, c, "genre-seeds", func(api *spotify.Client) (*GenreSeeds, error) {
		genres, err := api.GetAvailableGenreSeeds(ctx)
		if err != nil {
			return nil, err
		}
		return check(&GenreSeeds{Genres: genres})
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &GenreSeeds{Genres: []string{}, degraded: true}, nil
	}
	return res, nil
}

func (c *Client) recommend(ctx context.Context, seeds spotify.Seeds, params RecommendationParameters, limit int) (*Recommendations, error) {
	attrs := trackAttributes(params)

	res, ok, err := fetch(ctx, c, "recommendations", func(api *spotify.Client) (*Recommendations, error) {
		recs, err := api.GetRecommendations(ctx, seeds, attrs, spotify.Limit(limit))
		if err != nil {
			return nil, err
		}
		return check(convertRecommendations(recs))
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Recommendations{Seeds: []RecommendationSeed{}, Tracks: []Track{}}, nil
	}
	return res, nil
}

// planSeeds splits params into upstream requests. Only track seeds are ever
// fanned out; when they exceed MaxSeeds, other seed kinds are dropped.
func planSeeds(params RecommendationParameters) []spotify.Seeds {
	if len(params.SeedTracks) > MaxSeeds {
		var plan []spotify.Seeds
		for i := 0; i < len(params.SeedTracks); i += MaxSeeds {
			end := min(i+MaxSeeds, len(params.SeedTracks))
			plan = append(plan, spotify.Seeds{Tracks: toIDs(params.SeedTracks[i:end])})
		}
		return plan
	}

	artists, tracks, genres := params.SeedArtists, params.SeedTracks, params.SeedGenres
	excess := len(artists) + len(tracks) + len(genres) - MaxSeeds
	if excess > 0 {
		artists, excess = trimSeeds(artists, excess)
		tracks, excess = trimSeeds(tracks, excess)
		genres, _ = trimSeeds(genres, excess)
	}

	return []spotify.Seeds{{
		Artists: toIDs(artists),
		Tracks:  toIDs(tracks),
		Genres:  genres,
	}}
}

// trimSeeds removes up to excess seeds from the end of s.
func trimSeeds(s []string, excess int) ([]string, int) {
	n := min(excess, len(s))
	return s[:len(s)-n], excess - n
}

func mergeRecommendations(results []*Recommendations, limit int) *Recommendations {
	merged := &Recommendations{Seeds: []RecommendationSeed{}, Tracks: []Track{}}
	seen := make(map[string]bool)

	for _, res := range results {
		if res == nil {
			continue
		}
		merged.Seeds = append(merged.Seeds, res.Seeds...)
		for _, t := range res.Tracks {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			merged.Tracks = append(merged.Tracks, t)
		}
	}

	if len(merged.Tracks) > limit {
		merged.Tracks = merged.Tracks[:limit]
	}
	return merged
}

func recommendationLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecommendationLimit
	}
	return min(limit, maxRecommendationLimit)
}

func trackAttributes(params RecommendationParameters) *spotify.TrackAttributes {
	attrs := spotify.NewTrackAttributes()
	set := false

	if v := params.TargetAcousticness; v != nil {
		attrs, set = attrs.TargetAcousticness(*v), true
	}
	if v := params.TargetDanceability; v != nil {
		attrs, set = attrs.TargetDanceability(*v), true
	}
	if v := params.TargetEnergy; v != nil {
		attrs, set = attrs.TargetEnergy(*v), true
	}
	if v := params.TargetValence; v != nil {
		attrs, set = attrs.TargetValence(*v), true
	}
	if v := params.TargetTempo; v != nil {
		attrs, set = attrs.TargetTempo(*v), true
	}
	if v := params.TargetPopularity; v != nil {
		attrs, set = attrs.TargetPopularity(*v), true
	}
	if v := params.MinPopularity; v != nil {
		attrs, set = attrs.MinPopularity(*v), true
	}
	if v := params.MaxPopularity; v != nil {
		attrs, set = attrs.MaxPopularity(*v), true
	}

	if !set {
		return nil
	}
	return attrs
}

func convertRecommendations(recs *spotify.Recommendations) *Recommendations {
	out := &Recommendations{
		Seeds:  make([]RecommendationSeed, 0, len(recs.Seeds)),
		Tracks: make([]Track, 0, len(recs.Tracks)),
	}
	for _, s := range recs.Seeds {
		out.Seeds = append(out.Seeds, RecommendationSeed{ID: s.ID.String(), Type: s.Type, Href: s.Endpoint})
	}
	for _, t := range recs.Tracks {
		out.Tracks = append(out.Tracks, convertSimpleTrack(t))
	}
	return out
}

func toIDs(s []string) []spotify.ID {
	ids := make([]spotify.ID, len(s))
	for i, v := range s {
		ids[i] = spotify.ID(v)
	}
	return ids
}
