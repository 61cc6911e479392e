package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socucius/ergallabot/internal/music"
)

func TestLooksLikeURL(t *testing.T) {
	assert.True(t, looksLikeURL("https://youtube.com/watch?v=abc"))
	assert.True(t, looksLikeURL("http://example.com"))
	assert.False(t, looksLikeURL("nerevar rising"))
	assert.False(t, looksLikeURL("/local/path.mp3"))
}

func TestLocalTitle(t *testing.T) {
	assert.Equal(t, "Voice line: greeting", localTitle("/clips/greeting.mp3"))
	assert.Equal(t, "Voice line: farewell", localTitle("farewell.mp3"))
}

func TestResolveLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	r := NewResolver("")
	res, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, music.ResolveSuccess, res.Status)
	assert.Equal(t, path, res.Track.URL)
	assert.Equal(t, "Voice line: greeting", res.Track.Title)
}

func TestResolveEmptyQuery(t *testing.T) {
	r := NewResolver("")
	res, err := r.Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, music.ResolveNoMatch, res.Status)
}

func TestResolveStreamURLLocalPassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	r := NewResolver("")
	url, err := r.ResolveStreamURL(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, url)
}

func TestPickItemPrefersUsableEntry(t *testing.T) {
	root := ytDLPItem{
		Entries: []ytDLPItem{
			{},
			{Title: "found", WebpageURL: "https://example.com/found"},
		},
	}
	item, ok := pickItem(root)
	require.True(t, ok)
	assert.Equal(t, "found", item.Title)

	_, ok = pickItem(ytDLPItem{})
	assert.False(t, ok)
}
