package music

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewQueuedItemClampsWindow(t *testing.T) {
	track := Track{Title: "t", Duration: 2 * time.Minute}

	item := newQueuedItem(track, 30*time.Second, 5*time.Minute, nil, KindUser)
	assert.Equal(t, 30*time.Second, item.Start)
	assert.Equal(t, 2*time.Minute, item.End)
	assert.True(t, item.HasWindow())

	item = newQueuedItem(track, 0, 0, nil, KindUser)
	assert.False(t, item.HasWindow())
	assert.NotEmpty(t, item.ID)
}

func TestParseRepeatMode(t *testing.T) {
	for _, value := range []string{"none", "single", "all"} {
		mode, ok := ParseRepeatMode(value)
		assert.True(t, ok)
		assert.Equal(t, RepeatMode(value), mode)
	}

	_, ok := ParseRepeatMode("sideways")
	assert.False(t, ok)
}

func TestParseShuffleMode(t *testing.T) {
	for _, value := range []string{"none", "playlist", "endless"} {
		mode, ok := ParseShuffleMode(value)
		assert.True(t, ok)
		assert.Equal(t, ShuffleMode(value), mode)
	}

	_, ok := ParseShuffleMode("chaos")
	assert.False(t, ok)
}

func TestManagerReturnsSameSessionPerGuild(t *testing.T) {
	m := NewManager(Deps{Backend: newFakeBackend()})

	a := m.Get("guild-a")
	b := m.Get("guild-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, m.Get("guild-a"))
}

func TestUnconfiguredManagerSessionFailsClosed(t *testing.T) {
	m := NewManager(Deps{})
	s := m.Get("guild-a")

	_, err := s.EnqueueOrPlay(context.Background(), PlayRequest{
		Query:          "some song",
		VoiceChannelID: "vc-1",
	})
	assert.ErrorIs(t, err, ErrBackendDown)
	assert.False(t, s.Status().Connected)

	_, err = s.EnqueueRandomFromHistory(context.Background(), false, &Requester{ID: "u1"}, "vc-1")
	assert.ErrorIs(t, err, ErrBackendDown)

	_, err = s.PlayVoiceLine(context.Background(), "vc-1")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSetBotIdentityReachesExistingSessions(t *testing.T) {
	m := NewManager(Deps{Backend: newFakeBackend()})
	s := m.Get("guild-a")

	identity := Requester{ID: "bot-42", Username: "Ergalla"}
	m.SetBotIdentity(identity)

	s.mu.Lock()
	got := s.botIdentity
	s.mu.Unlock()
	assert.Equal(t, identity, got)

	assert.Equal(t, identity, m.Get("guild-b").botIdentity)
}
