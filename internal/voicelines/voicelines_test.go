package voicelines

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFiltersToMP3(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"greeting.mp3", "farewell.MP3", "notes.txt", "cover.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.mp3"), 0o755))

	library, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, library.Count())
}

func TestPickReturnsTitleAndPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seyda neen.mp3"), []byte("x"), 0o644))

	library, err := Load(dir)
	require.NoError(t, err)

	title, path, err := library.Pick()
	require.NoError(t, err)
	assert.Equal(t, "seyda neen", title)
	assert.Equal(t, filepath.Join(dir, "seyda neen.mp3"), path)
}

func TestPickEmptyLibrary(t *testing.T) {
	library, err := Load(t.TempDir())
	require.NoError(t, err)

	_, _, err = library.Pick()
	assert.Error(t, err)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
