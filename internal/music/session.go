package music

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Session owns the entire mutable playback state of one guild's voice
// connection: the pending queue, the now-playing slot and the mode flags.
// Every command and every backend event serializes on the session mutex, so
// at most one mutation of the state is in flight at any time. Sessions for
// different guilds are fully independent.
type Session struct {
	guildID string

	mu          sync.Mutex
	pending     []QueuedItem
	nowPlaying  *QueuedItem
	connected   bool
	playing     bool
	repeatMode  RepeatMode
	shuffleMode ShuffleMode
	volume      int

	backend  Backend
	history  History
	filler   FillerSource
	expander Expander
	presence Presence
	settings *SettingsStore

	idle *IdleTimer

	// botIdentity is credited for endless-shuffle refills, matching what a
	// human operator would see: the bot itself "requested" those plays.
	botIdentity   Requester
	defaultVolume int

	rng *rand.Rand
	log zerolog.Logger
}

func newSession(guildID string, deps Deps) *Session {
	s := &Session{
		guildID:       guildID,
		repeatMode:    RepeatNone,
		shuffleMode:   ShuffleNone,
		volume:        deps.DefaultVolume,
		backend:       deps.Backend,
		history:       deps.History,
		filler:        deps.Filler,
		expander:      deps.Expander,
		presence:      deps.Presence,
		settings:      deps.Settings,
		botIdentity:   deps.BotIdentity,
		defaultVolume: deps.DefaultVolume,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		log:           zlog.With().Str("component", "session").Str("guild", guildID).Logger(),
	}
	s.idle = NewIdleTimer(deps.IdleTimeout, func() {
		s.log.Debug().Msg("leave timer elapsed")
		if _, err := s.Stop(context.Background()); err != nil {
			s.log.Warn().Err(err).Msg("idle stop failed")
		}
	})
	return s
}

// EnqueueOrPlay resolves the request and either starts it immediately (when
// nothing is playing) or appends it to the queue, at the head when PlaceFirst
// is set. When not connected it joins the requester's voice channel first and
// fails the whole operation if that is not possible. Playlist references are
// expanded and enqueued in order.
func (s *Session) EnqueueOrPlay(ctx context.Context, req PlayRequest) (PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnectedLocked(ctx, req.VoiceChannelID); err != nil {
		return PlayResult{}, err
	}

	if s.expander != nil && s.expander.IsCollection(req.Query) {
		refs, err := s.expander.Expand(ctx, req.Query)
		if err != nil {
			return PlayResult{}, fmt.Errorf("%w: %v", ErrBackendDown, err)
		}
		if len(refs) > 0 {
			return s.enqueueExpandedLocked(ctx, req, refs)
		}
		// expansion disabled or collection empty: treat as a plain query
	}

	track, err := s.resolveLocked(ctx, req.Query)
	if err != nil {
		return PlayResult{}, err
	}

	item := newQueuedItem(track, req.Start, req.End, req.Requester, KindUser)
	return s.playOrQueueLocked(ctx, item, req.PlaceFirst)
}

// EnqueueRandomFromHistory draws one uniformly random record from the play
// history and plays or queues it. A record that no longer resolves is skipped
// and a different one is drawn, bounded by the history size; a hard backend
// failure aborts immediately.
func (s *Session) EnqueueRandomFromHistory(ctx context.Context, placeFirst bool, requester *Requester, voiceChannelID string) (PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnectedLocked(ctx, voiceChannelID); err != nil {
		return PlayResult{}, err
	}

	item, err := s.drawFromHistoryLocked(ctx, requester, KindUser)
	if err != nil {
		return PlayResult{}, err
	}
	return s.playOrQueueLocked(ctx, item, placeFirst)
}

// PlayVoiceLine injects a random filler clip ahead of the queue. Filler items
// carry no requester identity and are never recorded in history.
func (s *Session) PlayVoiceLine(ctx context.Context, voiceChannelID string) (PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filler == nil {
		return PlayResult{}, fmt.Errorf("%w: no voice lines available", ErrNoMatch)
	}
	if err := s.ensureConnectedLocked(ctx, voiceChannelID); err != nil {
		return PlayResult{}, err
	}

	title, ref, err := s.filler.Pick()
	if err != nil {
		return PlayResult{}, fmt.Errorf("%w: %v", ErrNoMatch, err)
	}

	item := newQueuedItem(Track{Title: title, URL: ref}, 0, 0, nil, KindFiller)
	return s.playOrQueueLocked(ctx, item, true)
}

// Skip replaces the current track with the queue head, or with a random
// history draw under endless shuffle. The replaced track is discarded; the
// backend's subsequent finished(replaced) notification takes no queue action.
func (s *Session) Skip(ctx context.Context) (PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || s.nowPlaying == nil {
		return PlayResult{}, ErrNothingPlaying
	}

	if len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		if err := s.backend.Play(ctx, s.guildID, next); err != nil {
			s.pending = append([]QueuedItem{next}, s.pending...)
			return PlayResult{}, fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		s.nowPlaying = &next
		s.playing = true
		s.log.Info().Str("title", next.Track.Title).Str("author", next.Track.Author).Msg("skipped to track")
		return PlayResult{
			Message: "Skipped to track.",
			Track:   next.Track,
			Start:   next.Start,
			End:     next.End,
		}, nil
	}

	if s.shuffleMode == ShuffleEndless {
		item, err := s.drawFromHistoryLocked(ctx, &s.botIdentity, KindShuffle)
		if err != nil {
			return PlayResult{}, err
		}
		if err := s.backend.Play(ctx, s.guildID, item); err != nil {
			return PlayResult{}, fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		s.nowPlaying = &item
		s.playing = true
		s.recordPlay(ctx, item)
		s.log.Debug().Msg("queue empty on skip, shuffled in a new track")
		return PlayResult{Message: "Skipped to track.", Track: item.Track}, nil
	}

	return PlayResult{}, ErrNothingToSkipTo
}

// PauseOrResume toggles playback. Pausing while paused (or resuming while
// playing) cannot happen through this entry point, so the toggle is safe to
// call at any time something is loaded.
func (s *Session) PauseOrResume(ctx context.Context) (PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || s.nowPlaying == nil {
		return PlayResult{}, ErrNothingPlaying
	}

	if s.playing {
		if err := s.backend.Pause(ctx, s.guildID); err != nil {
			return PlayResult{}, fmt.Errorf("%w: %v", ErrBackendDown, err)
		}
		s.playing = false
		s.log.Info().Msg("playback paused")
		return PlayResult{Message: "Paused playback.", Track: s.nowPlaying.Track}, nil
	}

	if err := s.backend.Resume(ctx, s.guildID); err != nil {
		return PlayResult{}, fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	s.playing = true
	s.log.Info().Msg("playback resumed")
	return PlayResult{Message: "Resumed playback.", Track: s.nowPlaying.Track}, nil
}

// Stop disconnects, clears the queue and the now-playing slot and resets both
// modes. It succeeds whenever the session was connected.
func (s *Session) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return "", ErrNotConnected
	}

	if err := s.backend.Disconnect(ctx, s.guildID); err != nil {
		s.log.Warn().Err(err).Msg("disconnect reported an error")
	}

	s.idle.Disarm()
	s.pending = nil
	s.nowPlaying = nil
	s.connected = false
	s.playing = false
	s.repeatMode = RepeatNone
	s.shuffleMode = ShuffleNone
	if s.presence != nil {
		s.presence.SetAmbient()
	}
	s.log.Info().Msg("stopped playback and left channel")
	return "Stopped playback and left the channel.", nil
}

// SetVolume forwards a 0-100 volume to the backend and persists it as the
// guild's preference.
func (s *Session) SetVolume(ctx context.Context, percent int) (string, error) {
	if percent < 0 || percent > 100 {
		return "", ErrVolumeRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return "", ErrNotConnected
	}
	if err := s.backend.SetVolume(ctx, s.guildID, percent); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	s.volume = percent
	s.persistSettingsLocked(ctx)
	s.log.Info().Int("volume", percent).Msg("volume set")
	return fmt.Sprintf("Volume set to %d.", percent), nil
}

// Seek moves playback to the given position in the current track.
func (s *Session) Seek(ctx context.Context, position time.Duration) (PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || !s.playing || s.nowPlaying == nil {
		return PlayResult{}, ErrNothingPlaying
	}
	if length := s.nowPlaying.Track.Duration; length > 0 && position > length {
		return PlayResult{}, fmt.Errorf("%w: %s exceeds track length %s", ErrSeekBeyondTrack, position, length)
	}
	if err := s.backend.Seek(ctx, s.guildID, position); err != nil {
		return PlayResult{}, fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	return PlayResult{
		Message: fmt.Sprintf("Set position to %s.", position),
		Track:   s.nowPlaying.Track,
	}, nil
}

// Remove drops the pending item at the given 1-based index and returns it for
// confirmation.
func (s *Session) Remove(index int) (QueuedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 1 || index > len(s.pending) {
		return QueuedItem{}, fmt.Errorf("%w: %d (queue has %d items)", ErrIndexOutOfRange, index, len(s.pending))
	}
	removed := s.pending[index-1]
	s.pending = append(s.pending[:index-1], s.pending[index:]...)
	s.log.Info().Str("title", removed.Track.Title).Int("index", index).Msg("removed from queue")
	return removed, nil
}

// SetRepeatMode is a pure state setter and always succeeds.
func (s *Session) SetRepeatMode(ctx context.Context, mode RepeatMode) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repeatMode = mode
	s.persistSettingsLocked(ctx)
	s.log.Debug().Str("mode", string(mode)).Msg("repeat mode set")
	return fmt.Sprintf("Repeat mode set to %s.", mode)
}

// SetShuffleMode sets the shuffle mode; playlist and endless both shuffle the
// current pending queue in place.
func (s *Session) SetShuffleMode(ctx context.Context, mode ShuffleMode) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shuffleMode = mode
	if mode == ShufflePlaylist || mode == ShuffleEndless {
		s.rng.Shuffle(len(s.pending), func(i, j int) {
			s.pending[i], s.pending[j] = s.pending[j], s.pending[i]
		})
	}
	s.persistSettingsLocked(ctx)
	s.log.Debug().Str("mode", string(mode)).Msg("shuffle mode set")
	return fmt.Sprintf("Shuffle mode set to %s.", mode)
}

// Status returns a copy of the session state for display.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionStatus{
		Connected:   s.connected,
		Playing:     s.playing,
		RepeatMode:  s.repeatMode,
		ShuffleMode: s.shuffleMode,
		Volume:      s.volume,
	}
	if s.nowPlaying != nil {
		np := *s.nowPlaying
		st.NowPlaying = &np
	}
	st.Pending = append([]QueuedItem(nil), s.pending...)
	return st
}

// OnChannelOccupancy feeds voice-channel occupancy changes into the idle
// timer: arm the leave countdown when the bot is left alone, disarm it when
// someone joins back.
func (s *Session) OnChannelOccupancy(occupants int, becameLoneBot bool) {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()

	if !connected {
		return
	}
	if becameLoneBot {
		s.log.Debug().Msg("everyone left the session channel, arming leave timer")
		s.idle.Arm()
	} else if occupants > 1 {
		s.idle.Disarm()
	}
}

// OnPlaybackStarted is the backend's started notification.
func (s *Session) OnPlaybackStarted(item QueuedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nowPlaying == nil {
		s.log.Debug().Str("title", item.Track.Title).Msg("started event with empty now-playing slot")
		return
	}
	if s.presence != nil {
		s.presence.SetNowPlaying(fmt.Sprintf("%s - %s", s.nowPlaying.Track.Title, s.nowPlaying.Track.Author))
	}
}

// OnPlaybackFinished is the core next-track decision, driven by the backend's
// asynchronous finished notification. The decide-and-issue-play transition is
// one critical section so no command can slip in between the decision and the
// play call.
func (s *Session) OnPlaybackFinished(reason TrackEndReason) {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug().Str("reason", string(reason)).Msg("playback finished")

	switch {
	case reason == ReasonReplaced:
		// Another command already started new playback; the queue was
		// advanced on that path.
		s.playing = true

	case reason == ReasonFinished && (len(s.pending) > 0 || (s.repeatMode != RepeatNone && s.nowPlaying != nil)):
		s.advanceLocked(ctx)

	case reason == ReasonFinished && len(s.pending) == 0 && s.shuffleMode == ShuffleEndless:
		s.nowPlaying = nil
		s.playing = false
		s.log.Debug().Msg("queue empty under endless shuffle, drawing replacement")
		s.refillFromHistoryLocked(ctx)

	default:
		s.nowPlaying = nil
		s.playing = false
		if s.presence != nil {
			s.presence.SetAmbient()
		}
	}
}

// advanceLocked applies the repeat policy, dequeues the next item and starts
// it. A single-repeat re-insertion goes to the queue head, ahead of any
// user-queued items, so the repeated track always plays next.
func (s *Session) advanceLocked(ctx context.Context) {
	if s.nowPlaying != nil {
		switch s.repeatMode {
		case RepeatSingle:
			re := *s.nowPlaying
			re.Kind = KindRepeat
			s.pending = append([]QueuedItem{re}, s.pending...)
		case RepeatAll:
			re := *s.nowPlaying
			re.Kind = KindRepeat
			s.pending = append(s.pending, re)
		}
	}

	if len(s.pending) == 0 {
		s.log.Debug().Msg("finished event with nothing to advance to")
		s.nowPlaying = nil
		s.playing = false
		return
	}

	next := s.pending[0]
	s.pending = s.pending[1:]
	s.nowPlaying = nil
	s.playing = false

	if err := s.backend.Play(ctx, s.guildID, next); err != nil {
		// Put the item back so nothing is lost; the session goes idle.
		s.pending = append([]QueuedItem{next}, s.pending...)
		s.log.Error().Err(err).Str("title", next.Track.Title).Msg("failed to start next track")
		if s.presence != nil {
			s.presence.SetAmbient()
		}
		return
	}

	s.nowPlaying = &next
	s.playing = true
	s.recordPlay(ctx, next)
	if next.HasWindow() {
		s.log.Info().Str("title", next.Track.Title).Str("author", next.Track.Author).
			Dur("start", next.Start).Dur("end", next.End).Msg("track playing from queue with window")
	} else {
		s.log.Info().Str("title", next.Track.Title).Str("author", next.Track.Author).Msg("track playing from queue")
	}
}

func (s *Session) setBotIdentity(identity Requester) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.botIdentity = identity
}

func (s *Session) ensureConnectedLocked(ctx context.Context, channelID string) error {
	if s.connected {
		return nil
	}
	if s.backend == nil {
		return ErrBackendDown
	}
	if channelID == "" {
		return ErrNoVoiceChannel
	}
	if err := s.backend.Join(ctx, s.guildID, channelID); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	s.connected = true

	volume := s.defaultVolume
	if s.settings != nil {
		if stored, err := s.settings.Get(ctx, s.guildID); err == nil && stored.Volume > 0 {
			volume = stored.Volume
		}
	}
	if err := s.backend.SetVolume(ctx, s.guildID, volume); err != nil {
		s.log.Warn().Err(err).Msg("failed to apply volume on join")
	} else {
		s.volume = volume
	}
	s.log.Debug().Str("channel", channelID).Msg("joined voice channel")
	return nil
}

func (s *Session) resolveLocked(ctx context.Context, query string) (Track, error) {
	res, err := s.backend.Resolve(ctx, query)
	if err != nil {
		return Track{}, fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	switch res.Status {
	case ResolveNoMatch:
		return Track{}, ErrNoMatch
	case ResolveLoadFailed:
		return Track{}, ErrLoadFailed
	}
	return res.Track, nil
}

// playOrQueueLocked starts the item when the now-playing slot is empty,
// otherwise inserts it into pending. History is recorded on acceptance for
// items that carry a requester identity.
func (s *Session) playOrQueueLocked(ctx context.Context, item QueuedItem, placeFirst bool) (PlayResult, error) {
	if s.nowPlaying == nil {
		if err := s.backend.Play(ctx, s.guildID, item); err != nil {
			return PlayResult{}, fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		s.nowPlaying = &item
		s.playing = true
		s.recordPlay(ctx, item)
		s.log.Info().Str("title", item.Track.Title).Str("author", item.Track.Author).Msg("track playing")
		return PlayResult{
			Message: "Now playing.",
			Track:   item.Track,
			Start:   item.Start,
			End:     item.End,
		}, nil
	}

	position := len(s.pending) + 1
	if placeFirst {
		s.pending = append([]QueuedItem{item}, s.pending...)
		position = 1
	} else {
		s.pending = append(s.pending, item)
	}
	s.recordPlay(ctx, item)
	s.log.Info().Str("title", item.Track.Title).Str("author", item.Track.Author).Int("position", position).Msg("track queued")
	return PlayResult{
		Message:  "Track queued.",
		Track:    item.Track,
		Start:    item.Start,
		End:      item.End,
		Queued:   true,
		Position: position,
	}, nil
}

// enqueueExpandedLocked resolves each reference of an expanded collection and
// plays or queues it, preserving the expander's order. Entries that no longer
// resolve are skipped.
func (s *Session) enqueueExpandedLocked(ctx context.Context, req PlayRequest, refs []string) (PlayResult, error) {
	var (
		accepted int
		first    PlayResult
		insertAt int
	)
	for _, ref := range refs {
		res, err := s.backend.Resolve(ctx, ref)
		if err != nil {
			if accepted == 0 {
				return PlayResult{}, fmt.Errorf("%w: %v", ErrBackendDown, err)
			}
			s.log.Warn().Err(err).Str("ref", ref).Msg("stopping playlist expansion on backend failure")
			break
		}
		if res.Status != ResolveSuccess {
			s.log.Warn().Str("ref", ref).Str("status", string(res.Status)).Msg("skipping unresolvable playlist entry")
			continue
		}

		item := newQueuedItem(res.Track, 0, 0, req.Requester, KindUser)
		if s.nowPlaying == nil {
			result, err := s.playOrQueueLocked(ctx, item, false)
			if err != nil {
				if accepted == 0 {
					return PlayResult{}, err
				}
				continue
			}
			first = result
		} else if req.PlaceFirst {
			s.pending = append(s.pending[:insertAt], append([]QueuedItem{item}, s.pending[insertAt:]...)...)
			insertAt++
			s.recordPlay(ctx, item)
		} else {
			s.pending = append(s.pending, item)
			s.recordPlay(ctx, item)
		}
		accepted++
	}

	if accepted == 0 {
		return PlayResult{}, ErrNoMatch
	}

	first.Message = fmt.Sprintf("Queued %d tracks from playlist.", accepted)
	return first, nil
}

func (s *Session) recordPlay(ctx context.Context, item QueuedItem) {
	if s.history == nil || item.RequestedBy == nil {
		return
	}
	err := s.history.RecordPlay(ctx, item.Track.Title, item.Track.Author, item.Track.URL,
		item.RequestedBy.ID, item.RequestedBy.Username)
	if err != nil {
		s.log.Warn().Err(err).Str("title", item.Track.Title).Msg("failed to record play history")
	}
}

func (s *Session) persistSettingsLocked(ctx context.Context) {
	if s.settings == nil {
		return
	}
	err := s.settings.Set(ctx, s.guildID, Settings{
		RepeatMode:  s.repeatMode,
		ShuffleMode: s.shuffleMode,
		Volume:      s.volume,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to persist guild settings")
	}
}
