package playlist

import (
	"context"

	zlog "github.com/rs/zerolog/log"
)

// Expander routes collection references to the lister that understands them.
// A nil Spotify lister disables Spotify expansion; its URLs then fall
// through as plain references.
type Expander struct {
	youtube *YouTubeLister
	spotify *SpotifyLister
}

func NewExpander(youtube *YouTubeLister, spotify *SpotifyLister) *Expander {
	return &Expander{youtube: youtube, spotify: spotify}
}

func (e *Expander) IsCollection(ref string) bool {
	if IsPlaylist(ref) {
		return true
	}
	return e.spotify != nil && IsSpotifyCollection(ref)
}

func (e *Expander) Expand(ctx context.Context, ref string) ([]string, error) {
	if IsPlaylist(ref) {
		refs, err := e.youtube.List(ctx, ref)
		if err != nil {
			return nil, err
		}
		zlog.Debug().Str("ref", ref).Int("entries", len(refs)).Msg("expanded youtube playlist")
		return refs, nil
	}
	if e.spotify != nil && IsSpotifyCollection(ref) {
		refs, err := e.spotify.List(ctx, ref)
		if err != nil {
			return nil, err
		}
		zlog.Debug().Str("ref", ref).Int("entries", len(refs)).Msg("expanded spotify collection")
		return refs, nil
	}
	return nil, nil
}
