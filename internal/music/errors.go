package music

import "errors"

// Failure reasons surfaced to the command layer. Every operation returns one
// of these (possibly wrapped with detail) instead of panicking across the
// boundary; the message text is suitable for direct display.
var (
	ErrNotConnected    = errors.New("bot is not connected to a voice channel")
	ErrNoVoiceChannel  = errors.New("requester is not in a joinable voice channel")
	ErrNothingPlaying  = errors.New("nothing is currently playing")
	ErrNothingToSkipTo = errors.New("nothing to skip to")
	ErrNoMatch         = errors.New("search returned no playable result")
	ErrLoadFailed      = errors.New("backend failed to load the track")
	ErrBackendDown     = errors.New("audio backend unavailable")
	ErrHistoryEmpty    = errors.New("play history is empty")
	ErrIndexOutOfRange = errors.New("queue index is out of range")
	ErrSeekBeyondTrack = errors.New("seek position exceeds track length")
	ErrVolumeRange     = errors.New("volume must be between 0 and 100")
)
