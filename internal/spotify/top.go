package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// Upstream window limits for top lists.
const (
	maxTopOffset = 49
	maxTopWindow = 50
)

// TopArtists returns a page of the user's top artists. When both routes fail
// it returns an empty page without error.
func (c *Client) TopArtists(ctx context.Context, timeRange TimeRange, limit, offset int) (*TopArtists, error) {
	opts := topOptions(timeRange, limit, offset)

	res, ok, err := fetch(ctx, c, "top-artists", func(api *spotify.Client) (*TopArtists, error) {
		page, err := api.CurrentUsersTopArtists(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return check(artistsFromPage(page))
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &TopArtists{Items: []Artist{}, degraded: true}, nil
	}
	return res, nil
}

// TopTracks returns a page of the user's top tracks. When both routes fail
// it returns an empty page without error.
func (c *Client) TopTracks(ctx context.Context, timeRange TimeRange, limit, offset int) (*TopTracks, error) {
	opts := topOptions(timeRange, limit, offset)

	res, ok, err := fetch(ctx, c, "top-tracks", func(api *spotify.Client) (*TopTracks, error) {
		page, err := api.CurrentUsersTopTracks(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return check(tracksFromPage(page))
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &TopTracks{Items: []Track{}, degraded: true}, nil
	}
	return res, nil
}

// clampWindow keeps offset within [0, 49] and offset+limit within 50.
func clampWindow(limit, offset int) (int, int) {
	limit = max(limit, 0)
	offset = min(max(offset, 0), maxTopOffset)
	if offset+limit > maxTopWindow {
		limit = maxTopWindow - offset
	}
	return limit, offset
}

func topOptions(timeRange TimeRange, limit, offset int) []spotify.RequestOption {
	limit, offset = clampWindow(limit, offset)
	opts := []spotify.RequestOption{spotify.Offset(offset)}
	if timeRange != "" {
		opts = append(opts, spotify.Timerange(spotify.Range(timeRange)))
	}
	if limit > 0 {
		opts = append(opts, spotify.Limit(limit))
	}
	return opts
}

func artistsFromPage(page *spotify.FullArtistPage) *TopArtists {
	out := &TopArtists{Items: make([]Artist, 0, len(page.Artists)), Total: int(page.Total)}
	for _, a := range page.Artists {
		out.Items = append(out.Items, convertArtist(a))
	}
	return out
}

func tracksFromPage(page *spotify.FullTrackPage) *TopTracks {
	out := &TopTracks{Items: make([]Track, 0, len(page.Tracks)), Total: int(page.Total)}
	for _, t := range page.Tracks {
		out.Items = append(out.Items, convertTrack(t))
	}
	return out
}

func convertArtist(a spotify.FullArtist) Artist {
	artist := convertSimpleArtist(a.SimpleArtist)
	artist.Popularity = int(a.Popularity)
	artist.Genres = a.Genres
	artist.Images = convertImages(a.Images)
	return artist
}

func convertSimpleArtist(a spotify.SimpleArtist) Artist {
	return Artist{
		ID:           a.ID.String(),
		Name:         a.Name,
		ExternalURLs: ExternalURLs{Spotify: a.ExternalURLs["spotify"]},
	}
}

func convertTrack(t spotify.FullTrack) Track {
	track := convertSimpleTrack(t.SimpleTrack)
	track.Popularity = int(t.Popularity)
	track.Album = Album{Name: t.Album.Name, Images: convertImages(t.Album.Images)}
	return track
}

func convertSimpleTrack(t spotify.SimpleTrack) Track {
	artists := make([]Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, convertSimpleArtist(a))
	}
	return Track{
		ID:           t.ID.String(),
		Name:         t.Name,
		URI:          string(t.URI),
		ExternalURLs: ExternalURLs{Spotify: t.ExternalURLs["spotify"]},
		Artists:      artists,
		Album:        Album{Name: t.Album.Name, Images: convertImages(t.Album.Images)},
	}
}

func convertImages(images []spotify.Image) []Image {
	out := make([]Image, 0, len(images))
	for _, img := range images {
		out = append(out, Image{URL: img.URL, Height: int(img.Height), Width: int(img.Width)})
	}
	return out
}
