package music

import (
	"context"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu           sync.Mutex
	joins        []string
	played       []QueuedItem
	volumes      []int
	seeks        []time.Duration
	pauses       int
	resumes      int
	disconnects  int
	resolves     map[string]ResolveResult
	resolveErr   error
	playErr      error
	playErrOnce  bool
	joinErr      error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{resolves: make(map[string]ResolveResult)}
}

func (b *fakeBackend) stub(query string, track Track) {
	b.resolves[query] = ResolveResult{Status: ResolveSuccess, Track: track}
}

func (b *fakeBackend) Join(ctx context.Context, guildID, channelID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.joinErr != nil {
		return b.joinErr
	}
	b.joins = append(b.joins, channelID)
	return nil
}

func (b *fakeBackend) Resolve(ctx context.Context, query string) (ResolveResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolveErr != nil {
		return ResolveResult{}, b.resolveErr
	}
	if res, ok := b.resolves[query]; ok {
		return res, nil
	}
	if strings.HasPrefix(query, "https://") {
		return ResolveResult{
			Status: ResolveSuccess,
			Track:  Track{Title: path.Base(query), URL: query, Duration: 3 * time.Minute},
		}, nil
	}
	return ResolveResult{
		Status: ResolveSuccess,
		Track:  Track{Title: query, URL: "https://example.com/" + query, Duration: 3 * time.Minute},
	}, nil
}

func (b *fakeBackend) Play(ctx context.Context, guildID string, item QueuedItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playErr != nil {
		err := b.playErr
		if b.playErrOnce {
			b.playErr = nil
		}
		return err
	}
	b.played = append(b.played, item)
	return nil
}

func (b *fakeBackend) Pause(ctx context.Context, guildID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pauses++
	return nil
}

func (b *fakeBackend) Resume(ctx context.Context, guildID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resumes++
	return nil
}

func (b *fakeBackend) Seek(ctx context.Context, guildID string, position time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seeks = append(b.seeks, position)
	return nil
}

func (b *fakeBackend) SetVolume(ctx context.Context, guildID string, percent int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volumes = append(b.volumes, percent)
	return nil
}

func (b *fakeBackend) Disconnect(ctx context.Context, guildID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnects++
	return nil
}

func (b *fakeBackend) lastPlayed() QueuedItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.played[len(b.played)-1]
}

func (b *fakeBackend) playCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.played)
}

type recordedPlay struct {
	title     string
	requester string
}

type fakeHistory struct {
	mu      sync.Mutex
	records []recordedPlay
	tracks  []HistoryTrack
	listErr error
}

func (h *fakeHistory) RecordPlay(ctx context.Context, title, author, url, requesterID, requesterName string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, recordedPlay{title: title, requester: requesterID})
	return nil
}

func (h *fakeHistory) ListAll(ctx context.Context) ([]HistoryTrack, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listErr != nil {
		return nil, h.listErr
	}
	return append([]HistoryTrack(nil), h.tracks...), nil
}

func (h *fakeHistory) recorded() []recordedPlay {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recordedPlay(nil), h.records...)
}

type fakePresence struct {
	mu         sync.Mutex
	nowPlaying []string
	ambient    int
}

func (p *fakePresence) SetNowPlaying(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nowPlaying = append(p.nowPlaying, text)
}

func (p *fakePresence) SetAmbient() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ambient++
}

func (p *fakePresence) ambientCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ambient
}

type fakeFiller struct {
	title string
	ref   string
	err   error
}

func (f *fakeFiller) Pick() (string, string, error) {
	return f.title, f.ref, f.err
}

type fakeExpander struct {
	collections map[string][]string
}

func (e *fakeExpander) IsCollection(ref string) bool {
	_, ok := e.collections[ref]
	return ok
}

func (e *fakeExpander) Expand(ctx context.Context, ref string) ([]string, error) {
	return e.collections[ref], nil
}

type sessionFixture struct {
	session  *Session
	backend  *fakeBackend
	history  *fakeHistory
	presence *fakePresence
}

func newFixture(t *testing.T, mutate ...func(*Deps)) *sessionFixture {
	t.Helper()

	backend := newFakeBackend()
	history := &fakeHistory{}
	presence := &fakePresence{}

	deps := Deps{
		Backend:       backend,
		History:       history,
		Presence:      presence,
		BotIdentity:   Requester{ID: "bot-1", Username: "Socucius Ergalla"},
		DefaultVolume: 15,
		IdleTimeout:   10 * time.Second,
	}
	for _, fn := range mutate {
		fn(&deps)
	}

	return &sessionFixture{
		session:  newSession("guild-1", deps),
		backend:  backend,
		history:  history,
		presence: presence,
	}
}

func (f *sessionFixture) play(t *testing.T, query string) PlayResult {
	t.Helper()
	result, err := f.session.EnqueueOrPlay(context.Background(), PlayRequest{
		Query:          query,
		Requester:      &Requester{ID: "user-1", Username: "nerevar"},
		VoiceChannelID: "vc-1",
	})
	require.NoError(t, err)
	return result
}

func TestEnqueueOrPlayStartsWhenIdle(t *testing.T) {
	f := newFixture(t)

	result := f.play(t, "nerevar rising")

	assert.False(t, result.Queued)
	assert.Equal(t, 1, f.backend.playCount())
	assert.Equal(t, []string{"vc-1"}, f.backend.joins)
	// stored default volume applied on join
	assert.Equal(t, []int{15}, f.backend.volumes)

	status := f.session.Status()
	require.NotNil(t, status.NowPlaying)
	assert.Equal(t, "nerevar rising", status.NowPlaying.Track.Title)
	assert.True(t, status.Playing)
	assert.Empty(t, status.Pending)
}

func TestEnqueueOrPlayQueuesWhenBusy(t *testing.T) {
	f := newFixture(t)

	f.play(t, "first")
	result := f.play(t, "second")

	assert.True(t, result.Queued)
	assert.Equal(t, 1, result.Position)
	assert.Equal(t, 1, f.backend.playCount())

	status := f.session.Status()
	require.Len(t, status.Pending, 1)
	assert.Equal(t, "second", status.Pending[0].Track.Title)
}

func TestEnqueueOrPlayPlaceFirst(t *testing.T) {
	f := newFixture(t)

	f.play(t, "first")
	f.play(t, "second")

	result, err := f.session.EnqueueOrPlay(context.Background(), PlayRequest{
		Query:          "urgent",
		PlaceFirst:     true,
		Requester:      &Requester{ID: "user-1"},
		VoiceChannelID: "vc-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Position)

	status := f.session.Status()
	require.Len(t, status.Pending, 2)
	assert.Equal(t, "urgent", status.Pending[0].Track.Title)
	assert.Equal(t, "second", status.Pending[1].Track.Title)
}

func TestEnqueuedPlaysAreRecorded(t *testing.T) {
	f := newFixture(t)

	f.play(t, "first")
	f.play(t, "second")

	records := f.history.recorded()
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].title)
	assert.Equal(t, "user-1", records[0].requester)
}

func TestPlayRequiresVoiceChannel(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.EnqueueOrPlay(context.Background(), PlayRequest{
		Query:     "something",
		Requester: &Requester{ID: "user-1"},
	})
	assert.ErrorIs(t, err, ErrNoVoiceChannel)
}

func TestResolveOutcomes(t *testing.T) {
	f := newFixture(t)
	f.backend.resolves["missing"] = ResolveResult{Status: ResolveNoMatch}
	f.backend.resolves["broken"] = ResolveResult{Status: ResolveLoadFailed}

	_, err := f.session.EnqueueOrPlay(context.Background(), PlayRequest{
		Query: "missing", Requester: &Requester{ID: "u"}, VoiceChannelID: "vc-1",
	})
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = f.session.EnqueueOrPlay(context.Background(), PlayRequest{
		Query: "broken", Requester: &Requester{ID: "u"}, VoiceChannelID: "vc-1",
	})
	assert.ErrorIs(t, err, ErrLoadFailed)
}

func TestFinishedAdvancesQueue(t *testing.T) {
	f := newFixture(t)

	f.play(t, "first")
	f.play(t, "second")

	f.session.OnPlaybackFinished(ReasonFinished)

	assert.Equal(t, 2, f.backend.playCount())
	assert.Equal(t, "second", f.backend.lastPlayed().Track.Title)

	status := f.session.Status()
	require.NotNil(t, status.NowPlaying)
	assert.Equal(t, "second", status.NowPlaying.Track.Title)
	assert.Empty(t, status.Pending)
}

func TestFinishedEmptyQueueGoesIdle(t *testing.T) {
	f := newFixture(t)

	f.play(t, "only")
	f.session.OnPlaybackFinished(ReasonFinished)

	status := f.session.Status()
	assert.Nil(t, status.NowPlaying)
	assert.False(t, status.Playing)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, f.presence.ambientCount())
}

func TestReplacedTakesNoQueueAction(t *testing.T) {
	f := newFixture(t)

	f.play(t, "first")
	f.play(t, "queued")

	f.session.OnPlaybackFinished(ReasonReplaced)

	// the queue is untouched and playback is considered live
	status := f.session.Status()
	require.Len(t, status.Pending, 1)
	assert.True(t, status.Playing)
	assert.Equal(t, 1, f.backend.playCount())
}

func TestRepeatSingleReinsertsAtHead(t *testing.T) {
	f := newFixture(t)

	f.play(t, "repeating")
	f.play(t, "waiting")
	f.session.SetRepeatMode(context.Background(), RepeatSingle)

	f.session.OnPlaybackFinished(ReasonFinished)

	assert.Equal(t, "repeating", f.backend.lastPlayed().Track.Title)
	assert.Equal(t, KindRepeat, f.backend.lastPlayed().Kind)

	status := f.session.Status()
	require.Len(t, status.Pending, 1)
	assert.Equal(t, "waiting", status.Pending[0].Track.Title)
}

func TestRepeatAllReinsertsAtTail(t *testing.T) {
	f := newFixture(t)

	f.play(t, "first")
	f.play(t, "second")
	f.session.SetRepeatMode(context.Background(), RepeatAll)

	f.session.OnPlaybackFinished(ReasonFinished)

	assert.Equal(t, "second", f.backend.lastPlayed().Track.Title)

	status := f.session.Status()
	require.Len(t, status.Pending, 1)
	assert.Equal(t, "first", status.Pending[0].Track.Title)
	assert.Equal(t, KindRepeat, status.Pending[0].Kind)
}

func TestEndlessShuffleRefillsFromHistory(t *testing.T) {
	f := newFixture(t)
	f.history.tracks = []HistoryTrack{
		{Title: "archived", URL: "https://example.com/archived"},
	}

	f.play(t, "only")
	f.session.SetShuffleMode(context.Background(), ShuffleEndless)

	f.session.OnPlaybackFinished(ReasonFinished)

	require.Equal(t, 2, f.backend.playCount())
	refill := f.backend.lastPlayed()
	assert.Equal(t, KindShuffle, refill.Kind)
	require.NotNil(t, refill.RequestedBy)
	assert.Equal(t, "bot-1", refill.RequestedBy.ID)

	// the refill is attributed to the bot in the history
	records := f.history.recorded()
	assert.Equal(t, "bot-1", records[len(records)-1].requester)
}

func TestEndlessShuffleEmptyHistoryGoesIdle(t *testing.T) {
	f := newFixture(t)

	f.play(t, "only")
	f.session.SetShuffleMode(context.Background(), ShuffleEndless)

	f.session.OnPlaybackFinished(ReasonFinished)

	status := f.session.Status()
	assert.Nil(t, status.NowPlaying)
	assert.Equal(t, 1, f.presence.ambientCount())
}

func TestRandomDrawSkipsUnresolvableRecords(t *testing.T) {
	f := newFixture(t)
	f.history.tracks = []HistoryTrack{
		{Title: "gone", URL: "https://example.com/gone"},
		{Title: "alive", URL: "https://example.com/alive"},
	}
	f.backend.resolves["https://example.com/gone"] = ResolveResult{Status: ResolveNoMatch}

	result, err := f.session.EnqueueRandomFromHistory(context.Background(), false, &Requester{ID: "user-1"}, "vc-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/alive", result.Track.URL)
}

func TestRandomDrawFailsFastOnLoadFailure(t *testing.T) {
	f := newFixture(t)
	f.history.tracks = []HistoryTrack{
		{Title: "broken", URL: "https://example.com/broken"},
	}
	f.backend.resolves["https://example.com/broken"] = ResolveResult{Status: ResolveLoadFailed}

	_, err := f.session.EnqueueRandomFromHistory(context.Background(), false, &Requester{ID: "user-1"}, "vc-1")
	assert.ErrorIs(t, err, ErrLoadFailed)
}

func TestVoiceLineJumpsQueueAndSkipsHistory(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Filler = &fakeFiller{title: "Breathe in the sea air", ref: "/clips/sea.mp3"}
	})

	f.play(t, "first")
	f.play(t, "second")
	before := len(f.history.recorded())

	result, err := f.session.PlayVoiceLine(context.Background(), "vc-1")
	require.NoError(t, err)
	assert.True(t, result.Queued)
	assert.Equal(t, 1, result.Position)

	status := f.session.Status()
	require.Len(t, status.Pending, 2)
	assert.Equal(t, KindFiller, status.Pending[0].Kind)
	assert.Nil(t, status.Pending[0].RequestedBy)

	// filler items never reach the history
	assert.Len(t, f.history.recorded(), before)
}

func TestSkipWithPending(t *testing.T) {
	f := newFixture(t)

	f.play(t, "current")
	f.play(t, "next")

	result, err := f.session.Skip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "next", result.Track.Title)
	assert.Equal(t, 2, f.backend.playCount())
}

func TestSkipEmptyQueue(t *testing.T) {
	f := newFixture(t)

	f.play(t, "current")

	_, err := f.session.Skip(context.Background())
	assert.ErrorIs(t, err, ErrNothingToSkipTo)
}

func TestSkipEndlessShuffleDrawsFromHistory(t *testing.T) {
	f := newFixture(t)
	f.history.tracks = []HistoryTrack{
		{Title: "archived", URL: "https://example.com/archived"},
	}

	f.play(t, "current")
	f.session.SetShuffleMode(context.Background(), ShuffleEndless)

	result, err := f.session.Skip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/archived", result.Track.URL)
}

func TestSkipNothingPlaying(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Skip(context.Background())
	assert.ErrorIs(t, err, ErrNothingPlaying)
}

func TestPauseResumeToggle(t *testing.T) {
	f := newFixture(t)

	f.play(t, "track")

	result, err := f.session.PauseOrResume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Paused playback.", result.Message)
	assert.False(t, f.session.Status().Playing)

	result, err = f.session.PauseOrResume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Resumed playback.", result.Message)
	assert.True(t, f.session.Status().Playing)

	assert.Equal(t, 1, f.backend.pauses)
	assert.Equal(t, 1, f.backend.resumes)
}

func TestStopResetsEverything(t *testing.T) {
	f := newFixture(t)

	f.play(t, "first")
	f.play(t, "second")
	f.session.SetRepeatMode(context.Background(), RepeatAll)
	f.session.SetShuffleMode(context.Background(), ShuffleEndless)

	_, err := f.session.Stop(context.Background())
	require.NoError(t, err)

	status := f.session.Status()
	assert.False(t, status.Connected)
	assert.Nil(t, status.NowPlaying)
	assert.Empty(t, status.Pending)
	assert.Equal(t, RepeatNone, status.RepeatMode)
	assert.Equal(t, ShuffleNone, status.ShuffleMode)
	assert.Equal(t, 1, f.backend.disconnects)
	assert.GreaterOrEqual(t, f.presence.ambientCount(), 1)
}

func TestStopWhenNotConnected(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestVolumeValidation(t *testing.T) {
	f := newFixture(t)
	f.play(t, "track")

	_, err := f.session.SetVolume(context.Background(), 101)
	assert.ErrorIs(t, err, ErrVolumeRange)

	_, err = f.session.SetVolume(context.Background(), -1)
	assert.ErrorIs(t, err, ErrVolumeRange)

	_, err = f.session.SetVolume(context.Background(), 40)
	require.NoError(t, err)
	assert.Equal(t, 40, f.session.Status().Volume)
}

func TestSeekValidation(t *testing.T) {
	f := newFixture(t)
	f.backend.stub("short", Track{Title: "short", URL: "https://example.com/short", Duration: time.Minute})

	f.play(t, "short")

	_, err := f.session.Seek(context.Background(), 2*time.Minute)
	assert.ErrorIs(t, err, ErrSeekBeyondTrack)

	_, err = f.session.Seek(context.Background(), 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second}, f.backend.seeks)
}

func TestRemoveByPosition(t *testing.T) {
	f := newFixture(t)

	f.play(t, "current")
	f.play(t, "a")
	f.play(t, "b")

	removed, err := f.session.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.Track.Title)

	before := f.session.Status()
	_, err = f.session.Remove(5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	after := f.session.Status()
	require.Len(t, after.Pending, len(before.Pending))
	for i := range before.Pending {
		assert.Equal(t, before.Pending[i].ID, after.Pending[i].ID)
	}
}

func TestShuffleModeShufflesPending(t *testing.T) {
	f := newFixture(t)

	f.play(t, "current")
	for _, q := range []string{"a", "b", "c", "d", "e"} {
		f.play(t, q)
	}

	f.session.SetShuffleMode(context.Background(), ShufflePlaylist)

	status := f.session.Status()
	assert.Len(t, status.Pending, 5)
	seen := make(map[string]bool)
	for _, item := range status.Pending {
		seen[item.Track.Title] = true
	}
	for _, q := range []string{"a", "b", "c", "d", "e"} {
		assert.True(t, seen[q])
	}
}

func TestPlaylistExpansionPreservesOrder(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Expander = &fakeExpander{collections: map[string][]string{
			"https://youtube.com/playlist?list=xyz": {"one", "two", "three"},
		}}
	})

	result, err := f.session.EnqueueOrPlay(context.Background(), PlayRequest{
		Query:          "https://youtube.com/playlist?list=xyz",
		Requester:      &Requester{ID: "user-1"},
		VoiceChannelID: "vc-1",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Message, "3 tracks")

	// first entry plays, the rest queue in order
	assert.Equal(t, "one", f.backend.lastPlayed().Track.Title)
	status := f.session.Status()
	require.Len(t, status.Pending, 2)
	assert.Equal(t, "two", status.Pending[0].Track.Title)
	assert.Equal(t, "three", status.Pending[1].Track.Title)
}

func TestAdvanceRollsBackOnPlayFailure(t *testing.T) {
	f := newFixture(t)

	f.play(t, "current")
	f.play(t, "next")

	f.backend.mu.Lock()
	f.backend.playErr = errors.New("stream down")
	f.backend.playErrOnce = true
	f.backend.mu.Unlock()

	f.session.OnPlaybackFinished(ReasonFinished)

	// the item stays queued for a later attempt
	status := f.session.Status()
	assert.Nil(t, status.NowPlaying)
	require.Len(t, status.Pending, 1)
	assert.Equal(t, "next", status.Pending[0].Track.Title)
}

func TestOnPlaybackStartedUpdatesPresence(t *testing.T) {
	f := newFixture(t)

	f.play(t, "track")
	f.session.OnPlaybackStarted(f.backend.lastPlayed())

	f.presence.mu.Lock()
	defer f.presence.mu.Unlock()
	require.Len(t, f.presence.nowPlaying, 1)
	assert.Contains(t, f.presence.nowPlaying[0], "track")
}
