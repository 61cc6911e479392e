package playlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyLister enumerates Spotify playlist and album entries. Spotify does
// not serve audio, so each entry comes back as a "title artist" search query
// for the playback side to resolve.
type SpotifyLister struct {
	client *spotify.Client
}

func NewSpotifyLister(ctx context.Context, clientID, clientSecret string) (*SpotifyLister, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "spotify token request failed")
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return &SpotifyLister{client: spotify.New(httpClient)}, nil
}

// IsSpotifyCollection reports whether the reference is a Spotify playlist or
// album URL or URI.
func IsSpotifyCollection(ref string) bool {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "spotify:playlist:") || strings.HasPrefix(ref, "spotify:album:") {
		return true
	}
	if !strings.Contains(ref, "open.spotify.com") {
		return false
	}
	return strings.Contains(ref, "/playlist/") || strings.Contains(ref, "/album/")
}

// List returns search queries for the collection's tracks in order.
func (l *SpotifyLister) List(ctx context.Context, ref string) ([]string, error) {
	if id := extractID(ref, "playlist"); id != "" {
		return l.listPlaylist(ctx, spotify.ID(id))
	}
	if id := extractID(ref, "album"); id != "" {
		return l.listAlbum(ctx, spotify.ID(id))
	}
	return nil, errors.Newf("not a spotify collection: %s", ref)
}

func (l *SpotifyLister) listPlaylist(ctx context.Context, id spotify.ID) ([]string, error) {
	var refs []string
	offset := 0
	const limit = 100

	for {
		page, err := l.client.GetPlaylistItems(ctx, id,
			spotify.Limit(limit),
			spotify.Offset(offset),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			refs = append(refs, searchQuery(item.Track.Track.Name, artistNames(item.Track.Track.Artists)))
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}
	return refs, nil
}

func (l *SpotifyLister) listAlbum(ctx context.Context, id spotify.ID) ([]string, error) {
	var refs []string
	offset := 0
	const limit = 50

	for {
		page, err := l.client.GetAlbumTracks(ctx, id,
			spotify.Limit(limit),
			spotify.Offset(offset),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get album tracks")
		}

		for _, t := range page.Tracks {
			refs = append(refs, searchQuery(t.Name, artistNames(t.Artists)))
		}

		if len(page.Tracks) < limit {
			break
		}
		offset += limit
	}
	return refs, nil
}

func searchQuery(title, artist string) string {
	if artist == "" {
		return title
	}
	return fmt.Sprintf("%s %s", title, artist)
}

func artistNames(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

func extractID(input, kind string) string {
	input = strings.TrimSpace(input)

	if id, ok := strings.CutPrefix(input, "spotify:"+kind+":"); ok {
		return id
	}

	marker := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, marker) {
		parts := strings.Split(input, marker)
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	return ""
}
