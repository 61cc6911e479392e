// Package voicelines serves the bot's short interjection clips from a local
// directory.
package voicelines

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Library holds the clip paths discovered at startup. The directory is read
// once; dropping new clips in requires a restart.
type Library struct {
	clips []string
	rng   *rand.Rand
	log   zerolog.Logger
}

func Load(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read voice line directory %s", dir)
	}

	var clips []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			clips = append(clips, filepath.Join(dir, entry.Name()))
		}
	}

	log := zlog.With().Str("component", "voicelines").Logger()
	log.Debug().Int("count", len(clips)).Str("dir", dir).Msg("loaded voice lines")

	return &Library{
		clips: clips,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		log:   log,
	}, nil
}

// Pick returns a random clip as a display title and a local file path.
func (l *Library) Pick() (string, string, error) {
	if len(l.clips) == 0 {
		return "", "", errors.New("no voice lines loaded")
	}
	path := l.clips[l.rng.Intn(len(l.clips))]
	return title(path), path, nil
}

// Count reports how many clips were loaded.
func (l *Library) Count() int {
	return len(l.clips)
}

func title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
