package spotify

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidResponse is returned when an upstream response does not match
// the expected shape. It is treated like any other fetch failure.
var ErrInvalidResponse = errors.New("invalid response shape")

var validate = validator.New(validator.WithRequiredStructEnabled())

// TimeRange selects the analysis window for top lists.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"  // ~4 weeks
	MediumTerm TimeRange = "medium_term" // ~6 months
	LongTerm   TimeRange = "long_term"   // all time
)

// ParseTimeRange validates a time range string.
func ParseTimeRange(s string) (TimeRange, error) {
	switch tr := TimeRange(s); tr {
	case ShortTerm, MediumTerm, LongTerm:
		return tr, nil
	}
	return "", fmt.Errorf("unknown time range %q", s)
}

// Image is an artwork rendition.
type Image struct {
	URL    string `json:"url"    validate:"required"`
	Height int    `json:"height" validate:"gte=0"`
	Width  int    `json:"width"  validate:"gte=0"`
}

// ExternalURLs links to the Spotify web player.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// Artist is a ranked or referenced artist.
type Artist struct {
	ID           string       `json:"id"         validate:"required"`
	Name         string       `json:"name"       validate:"required"`
	Popularity   int          `json:"popularity" validate:"gte=0,lte=100"`
	ExternalURLs ExternalURLs `json:"external_urls"`
	Genres       []string     `json:"genres"`
	Images       []Image      `json:"images" validate:"dive"`
}

// Album is the album a track appears on.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images" validate:"dive"`
}

// Track is a ranked or recommended track.
type Track struct {
	ID           string       `json:"id"         validate:"required"`
	Name         string       `json:"name"       validate:"required"`
	Popularity   int          `json:"popularity" validate:"gte=0,lte=100"`
	URI          string       `json:"uri"`
	ExternalURLs ExternalURLs `json:"external_urls"`
	Artists      []Artist     `json:"artists" validate:"dive"`
	Album        Album        `json:"album"`
}

// TopArtists is one page of the user's top artists.
type TopArtists struct {
	Items []Artist `json:"items" validate:"dive"`
	Total int      `json:"total" validate:"gte=0"`

	degraded bool
}

// TopTracks is one page of the user's top tracks.
type TopTracks struct {
	Items []Track `json:"items" validate:"dive"`
	Total int     `json:"total" validate:"gte=0"`

	degraded bool
}

// Playlist is a newly created playlist.
type Playlist struct {
	ID            string       `json:"id"`
	ExternalURLs  ExternalURLs `json:"external_urls"`
	SnapshotID    string       `json:"snapshot_id,omitempty"`
	TracksAdded   int          `json:"tracks_added"`
	FailedBatches int          `json:"failed_batches"`
}

// RecommendationSeed describes a seed the upstream service used.
type RecommendationSeed struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Href string `json:"href"`
}

// Recommendations is a recommendation result.
type Recommendations struct {
	Seeds  []RecommendationSeed `json:"seeds"`
	Tracks []Track              `json:"tracks" validate:"dive"`
}

// GenreSeeds lists genres accepted as recommendation seeds.
type GenreSeeds struct {
	Genres []string `json:"genres" validate:"dive,required"`

	degraded bool
}

// RecommendationParameters holds seeds and tuning targets.
// At least one seed is required; the seed cap is applied by the client.
type RecommendationParameters struct {
	SeedTracks  []string `json:"seed_tracks,omitempty"`
	SeedArtists []string `json:"seed_artists,omitempty"`
	SeedGenres  []string `json:"seed_genres,omitempty"`
	Limit       int      `json:"limit,omitempty"`

	TargetAcousticness *float64 `json:"target_acousticness,omitempty"`
	TargetDanceability *float64 `json:"target_danceability,omitempty"`
	TargetEnergy       *float64 `json:"target_energy,omitempty"`
	TargetValence      *float64 `json:"target_valence,omitempty"`
	TargetTempo        *float64 `json:"target_tempo,omitempty"`
	TargetPopularity   *int     `json:"target_popularity,omitempty"`
	MinPopularity      *int     `json:"min_popularity,omitempty"`
	MaxPopularity      *int     `json:"max_popularity,omitempty"`
}

// SeedCount is the total number of seeds of all kinds.
func (p RecommendationParameters) SeedCount() int {
	return len(p.SeedTracks) + len(p.SeedArtists) + len(p.SeedGenres)
}

// degradable marks results that stand in for a fetch where both routes failed.
type degradable interface {
	isDegraded() bool
}

func (p *TopArtists) isDegraded() bool { return p != nil && p.degraded }
func (p *TopTracks) isDegraded() bool { return p != nil && p.degraded }
func (g *GenreSeeds) isDegraded() bool { return g != nil && g.degraded }

// check validates v against its shape contract.
func check[T any](v T) (T, error) {
	if err := validate.Struct(v); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return v, nil
}
