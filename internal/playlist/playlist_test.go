package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaylist(t *testing.T) {
	cases := []struct {
		ref  string
		want bool
	}{
		{"https://www.youtube.com/playlist?list=PLxyz", true},
		{"https://www.youtube.com/watch?v=abc&list=PLxyz", true},
		{"https://youtube.com/watch?v=abc", false},
		{"https://youtu.be/abc", false},
		{"https://soundcloud.com/sets/xyz", false},
		{"nerevar rising", false},
		{"", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, IsPlaylist(tc.ref), tc.ref)
	}
}

func TestIsSpotifyCollection(t *testing.T) {
	cases := []struct {
		ref  string
		want bool
	}{
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", true},
		{"https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy", true},
		{"spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", true},
		{"spotify:album:4aawyAB9vmqN3uQ7FjRGTy", true},
		{"https://open.spotify.com/track/11dFghVXANMlKmJXsNCbNl", false},
		{"https://youtube.com/watch?v=abc", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, IsSpotifyCollection(tc.ref), tc.ref)
	}
}

func TestExtractID(t *testing.T) {
	assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M",
		extractID("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", "playlist"))
	assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M",
		extractID("spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", "playlist"))
	assert.Equal(t, "4aawyAB9vmqN3uQ7FjRGTy",
		extractID("https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy/", "album"))
	assert.Equal(t, "", extractID("https://example.com/whatever", "playlist"))
}

func TestExpanderWithoutSpotify(t *testing.T) {
	e := NewExpander(NewYouTubeLister(""), nil)

	assert.True(t, e.IsCollection("https://www.youtube.com/playlist?list=PLxyz"))
	assert.False(t, e.IsCollection("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"))
	assert.False(t, e.IsCollection("plain search text"))
}
