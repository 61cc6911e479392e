package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/socucius/ergallabot/internal/music"
)

// Resolver asks yt-dlp for track metadata. Plain text is treated as a
// search query against YouTube; anything URL-shaped is loaded directly.
type Resolver struct {
	Binary string
}

func NewResolver(binary string) *Resolver {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Resolver{Binary: binary}
}

// Resolve produces a ResolveResult rather than an error for the two expected
// failure shapes: a search with no hits and a reference that will not load.
// An error return means yt-dlp itself could not be run.
func (r *Resolver) Resolve(ctx context.Context, query string) (music.ResolveResult, error) {
	target := strings.TrimSpace(query)
	if target == "" {
		return music.ResolveResult{Status: music.ResolveNoMatch}, nil
	}

	// Local files (voice-line clips) need no metadata lookup.
	if !looksLikeURL(target) {
		if _, err := os.Stat(target); err == nil {
			return music.ResolveResult{
				Status: music.ResolveSuccess,
				Track:  music.Track{Title: localTitle(target), URL: target},
			}, nil
		}
		target = "ytsearch1:" + target
	}

	args := []string{
		"--no-warnings",
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		target,
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return music.ResolveResult{}, errors.Wrap(ctx.Err(), "yt-dlp canceled")
		}
		if _, execErr := exec.LookPath(r.Binary); execErr != nil {
			return music.ResolveResult{}, errors.Wrapf(execErr, "yt-dlp not runnable")
		}
		// The binary ran and rejected the reference.
		return music.ResolveResult{Status: music.ResolveLoadFailed}, nil
	}

	var root ytDLPItem
	if err := json.Unmarshal(output, &root); err != nil {
		return music.ResolveResult{Status: music.ResolveLoadFailed}, nil
	}

	item, ok := pickItem(root)
	if !ok {
		return music.ResolveResult{Status: music.ResolveNoMatch}, nil
	}

	link := item.WebpageURL
	if link == "" {
		link = item.URL
	}
	if link == "" {
		return music.ResolveResult{Status: music.ResolveNoMatch}, nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "Unknown Title"
	}
	author := strings.TrimSpace(item.Uploader)
	if author == "" {
		author = strings.TrimSpace(item.Channel)
	}

	duration := time.Duration(item.Duration * float64(time.Second))
	if duration < 0 {
		duration = 0
	}

	return music.ResolveResult{
		Status: music.ResolveSuccess,
		Track: music.Track{
			ID:        item.ID,
			Title:     title,
			Author:    author,
			URL:       link,
			Duration:  duration,
			Thumbnail: item.Thumbnail,
		},
	}, nil
}

// ResolveStreamURL asks yt-dlp for the best-audio stream location. Local
// file paths pass through untouched.
func (r *Resolver) ResolveStreamURL(ctx context.Context, ref string) (string, error) {
	target := strings.TrimSpace(ref)
	if target == "" {
		return "", errors.New("empty stream reference")
	}
	if !looksLikeURL(target) {
		if _, err := os.Stat(target); err == nil {
			return target, nil
		}
		target = "ytsearch1:" + target
	}

	args := []string{
		"--no-warnings",
		"-f", "bestaudio",
		"-g",
		"--no-playlist",
		target,
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "yt-dlp failed: %s", strings.TrimSpace(string(output)))
	}

	streamURL := strings.TrimSpace(string(output))
	if streamURL == "" {
		return "", errors.New("yt-dlp returned an empty stream url")
	}
	if i := strings.IndexByte(streamURL, '\n'); i >= 0 {
		streamURL = streamURL[:i]
	}
	return streamURL, nil
}

type ytDLPItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Uploader   string      `json:"uploader"`
	Channel    string      `json:"channel"`
	WebpageURL string      `json:"webpage_url"`
	URL        string      `json:"url"`
	Duration   float64     `json:"duration"`
	Thumbnail  string      `json:"thumbnail"`
	Entries    []ytDLPItem `json:"entries"`
}

func pickItem(root ytDLPItem) (ytDLPItem, bool) {
	if len(root.Entries) == 0 {
		if root.WebpageURL == "" && root.URL == "" && root.Title == "" {
			return ytDLPItem{}, false
		}
		return root, true
	}
	for _, entry := range root.Entries {
		if entry.WebpageURL != "" || entry.URL != "" || entry.Title != "" {
			return entry, true
		}
	}
	return ytDLPItem{}, false
}

func looksLikeURL(value string) bool {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return true
	}
	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func localTitle(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return fmt.Sprintf("Voice line: %s", base)
}
