package music

import (
	"time"

	"github.com/google/uuid"
)

type RepeatMode string

const (
	RepeatNone   RepeatMode = "none"
	RepeatSingle RepeatMode = "single"
	RepeatAll    RepeatMode = "all"
)

type ShuffleMode string

const (
	ShuffleNone     ShuffleMode = "none"
	ShufflePlaylist ShuffleMode = "playlist"
	ShuffleEndless  ShuffleMode = "endless"
)

// ItemKind records how an item entered the queue, so history recording and
// display can branch on an explicit tag instead of guessing from other fields.
type ItemKind string

const (
	KindUser    ItemKind = "user"
	KindFiller  ItemKind = "filler"
	KindRepeat  ItemKind = "repeat"
	KindShuffle ItemKind = "shuffle"
)

// TrackEndReason mirrors the backend's playback-finished notification.
type TrackEndReason string

const (
	ReasonFinished   TrackEndReason = "finished"
	ReasonReplaced   TrackEndReason = "replaced"
	ReasonStopped    TrackEndReason = "stopped"
	ReasonLoadFailed TrackEndReason = "loadfailed"
	ReasonCleanup    TrackEndReason = "cleanup"
)

type Track struct {
	ID        string
	Title     string
	Author    string
	URL       string
	Duration  time.Duration
	Thumbnail string
}

type Requester struct {
	ID       string
	Username string
}

// QueuedItem is one playable unit: a track plus an optional [Start,End)
// window. Both offsets zero means play in full. RequestedBy is nil for
// system-injected items.
type QueuedItem struct {
	ID          string
	Track       Track
	Start       time.Duration
	End         time.Duration
	RequestedBy *Requester
	Kind        ItemKind
	EnqueuedAt  time.Time
}

func newQueuedItem(track Track, start, end time.Duration, requester *Requester, kind ItemKind) QueuedItem {
	if end > track.Duration && track.Duration > 0 {
		end = track.Duration
	}
	return QueuedItem{
		ID:          uuid.NewString(),
		Track:       track,
		Start:       start,
		End:         end,
		RequestedBy: requester,
		Kind:        kind,
		EnqueuedAt:  time.Now().UTC(),
	}
}

// HasWindow reports whether the item plays a sub-range instead of the
// whole track.
func (q QueuedItem) HasWindow() bool {
	return q.Start != 0 || q.End != 0
}

type PlayRequest struct {
	Query          string
	Start          time.Duration
	End            time.Duration
	PlaceFirst     bool
	Requester      *Requester
	VoiceChannelID string
}

// PlayResult describes the outcome of a play-like command: whether the item
// started immediately or was queued, and where.
type PlayResult struct {
	Message  string
	Track    Track
	Start    time.Duration
	End      time.Duration
	Queued   bool
	Position int // 1-based position in the pending queue when Queued
}

// SessionStatus is a point-in-time copy of the session state for display.
type SessionStatus struct {
	Connected   bool
	Playing     bool
	NowPlaying  *QueuedItem
	Pending     []QueuedItem
	RepeatMode  RepeatMode
	ShuffleMode ShuffleMode
	Volume      int
}

// HistoryTrack is one remembered track as the orchestrator sees it.
type HistoryTrack struct {
	Title  string
	Author string
	URL    string
	Plays  int
}

// ParseRepeatMode maps a command option value onto a RepeatMode.
func ParseRepeatMode(value string) (RepeatMode, bool) {
	switch RepeatMode(value) {
	case RepeatNone, RepeatSingle, RepeatAll:
		return RepeatMode(value), true
	}
	return RepeatNone, false
}

// ParseShuffleMode maps a command option value onto a ShuffleMode.
func ParseShuffleMode(value string) (ShuffleMode, bool) {
	switch ShuffleMode(value) {
	case ShuffleNone, ShufflePlaylist, ShuffleEndless:
		return ShuffleMode(value), true
	}
	return ShuffleNone, false
}
