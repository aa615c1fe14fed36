package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"
)

const (
	maxTracksPerRequest = 100
	playlistDescription = "Created by Spotify Stats"
	trackURIPrefix      = "spotify:track:"
)

var (
	// ErrEmptyPlaylistName is returned when the playlist name is blank.
	ErrEmptyPlaylistName = errors.New("playlist name required")
	// ErrNoTracks is returned when no usable track URIs were given.
	ErrNoTracks = errors.New("at least one track is required")
)

// CreatePlaylist creates a private playlist for the current user and adds
// the given tracks. It uses the proxy when an earlier fetch switched to it.
// Failed track batches are logged and skipped.
func (c *Client) CreatePlaylist(ctx context.Context, name string, trackURIs []string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyPlaylistName
	}
	ids := trackIDs(trackURIs)
	if len(ids) == 0 {
		return nil, ErrNoTracks
	}

	api := c.api()
	user, err := api.CurrentUser(ctx)
	if err != nil {
		if isForbidden(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	created, err := api.CreatePlaylistForUser(ctx, user.ID, name, playlistDescription, false, false)
	if err != nil {
		if isForbidden(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("creating playlist: %w", err)
	}

	playlist := &Playlist{
		ID:           created.ID.String(),
		ExternalURLs: ExternalURLs{Spotify: created.ExternalURLs["spotify"]},
		SnapshotID:   created.SnapshotID,
	}

	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		batch := ids[i:end]

		snapshot, err := api.AddTracksToPlaylist(ctx, created.ID, batch...)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"playlist_id": playlist.ID,
				"batch":       fmt.Sprintf("%d-%d", i+1, end),
			}).WithError(err).Warn("adding tracks failed, skipping batch")
			playlist.FailedBatches++
			continue
		}
		playlist.SnapshotID = snapshot
		playlist.TracksAdded += len(batch)
	}

	return playlist, nil
}

// trackIDs converts "spotify:track:<id>" URIs to IDs. Bare IDs pass through
// and blanks are dropped.
func trackIDs(uris []string) []spotify.ID {
	ids := make([]spotify.ID, 0, len(uris))
	for _, uri := range uris {
		id := strings.TrimPrefix(strings.TrimSpace(uri), trackURIPrefix)
		if id == "" {
			continue
		}
		ids = append(ids, spotify.ID(id))
	}
	return ids
}
