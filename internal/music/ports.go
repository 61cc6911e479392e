package music

import (
	"context"
	"time"
)

type ResolveStatus string

const (
	ResolveSuccess    ResolveStatus = "success"
	ResolveNoMatch    ResolveStatus = "nomatch"
	ResolveLoadFailed ResolveStatus = "loadfailed"
)

type ResolveResult struct {
	Status ResolveStatus
	Track  Track
}

// Backend is the control surface of the remote audio service. Playback
// lifecycle notifications come back asynchronously through EventSink.
type Backend interface {
	Join(ctx context.Context, guildID, channelID string) error
	Resolve(ctx context.Context, query string) (ResolveResult, error)
	Play(ctx context.Context, guildID string, item QueuedItem) error
	Pause(ctx context.Context, guildID string) error
	Resume(ctx context.Context, guildID string) error
	Seek(ctx context.Context, guildID string, position time.Duration) error
	SetVolume(ctx context.Context, guildID string, percent int) error
	Disconnect(ctx context.Context, guildID string) error
}

// EventSink receives the backend's asynchronous playback notifications.
// The Manager implements it and routes events to the owning session.
type EventSink interface {
	OnPlaybackStarted(guildID string, item QueuedItem)
	OnPlaybackFinished(guildID string, item QueuedItem, reason TrackEndReason)
}

// History is the subset of the play-history store the orchestrator needs.
// Status-display queries (top tracks, top requesters) go straight to the
// repository from the command layer so they never hold a session lock.
type History interface {
	RecordPlay(ctx context.Context, title, author, url, requesterID, requesterName string) error
	ListAll(ctx context.Context) ([]HistoryTrack, error)
}

// FillerSource supplies a short system clip when no user content is wanted.
type FillerSource interface {
	Pick() (title string, ref string, err error)
}

// Expander turns a collection reference (a playlist URL) into the ordered
// item references it contains. An empty slice means the collection has no
// resolvable items or expansion is disabled.
type Expander interface {
	IsCollection(ref string) bool
	Expand(ctx context.Context, ref string) ([]string, error)
}

// Presence is informed of now-playing changes. Fire and forget; failures are
// the notifier's problem.
type Presence interface {
	SetNowPlaying(text string)
	SetAmbient()
}
