// Package playlist expands collection references (YouTube playlists,
// Spotify playlists and albums) into the ordered track references they
// contain.
package playlist

import (
	"context"
	"encoding/json"
	"net/url"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// YouTubeLister enumerates playlist entries with yt-dlp without resolving
// each video.
type YouTubeLister struct {
	Binary string
}

func NewYouTubeLister(binary string) *YouTubeLister {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YouTubeLister{Binary: binary}
}

// IsPlaylist reports whether the reference is a YouTube playlist URL. A
// watch URL carrying a list parameter counts: the user pasted it from a
// playlist view.
func IsPlaylist(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	if !strings.Contains(host, "youtube.com") && !strings.Contains(host, "youtu.be") {
		return false
	}
	if strings.Contains(u.Path, "/playlist") {
		return u.Query().Get("list") != ""
	}
	return u.Query().Get("list") != ""
}

// List returns the video URLs of the playlist in their playlist order.
func (l *YouTubeLister) List(ctx context.Context, ref string) ([]string, error) {
	args := []string{
		"--no-warnings",
		"--flat-playlist",
		"--dump-single-json",
		"--skip-download",
		ref,
	}

	cmd := exec.CommandContext(ctx, l.Binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(err, "yt-dlp playlist listing failed: %s", strings.TrimSpace(string(output)))
	}

	var root flatPlaylist
	if err := json.Unmarshal(output, &root); err != nil {
		return nil, errors.Wrap(err, "invalid yt-dlp playlist json")
	}

	refs := make([]string, 0, len(root.Entries))
	for _, entry := range root.Entries {
		link := entry.URL
		if link == "" && entry.ID != "" {
			link = "https://www.youtube.com/watch?v=" + entry.ID
		}
		if link == "" {
			continue
		}
		refs = append(refs, link)
	}
	return refs, nil
}

type flatPlaylist struct {
	Entries []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"entries"`
}
