package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	shared "github.com/socucius/ergallabot/internal/features/shared"
	"github.com/socucius/ergallabot/internal/music"
)

// requireGuildSession validates the interaction context and returns the
// guild's playback session along with the requester identity.
func requireGuildSession(s *discordgo.Session, i *discordgo.InteractionCreate) (*music.Session, *music.Requester, bool) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "This command only works in a server.")
		return nil, nil, false
	}

	userID := shared.GetInteractionUserID(i)
	if userID == "" {
		shared.RespondEphemeral(s, i, "Could not determine who you are.")
		return nil, nil, false
	}

	requester := &music.Requester{
		ID:       userID,
		Username: shared.GetInteractionUsername(i),
	}
	return music.DefaultManager.Get(i.GuildID), requester, true
}

// errorMessage translates orchestrator errors into user-facing text.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, music.ErrNoVoiceChannel):
		return "Join a voice channel first."
	case errors.Is(err, music.ErrNotConnected):
		return "I'm not in a voice channel."
	case errors.Is(err, music.ErrNothingPlaying):
		return "Nothing is playing."
	case errors.Is(err, music.ErrNothingToSkipTo):
		return "The queue is empty, there is nothing to skip to."
	case errors.Is(err, music.ErrNoMatch):
		return "No results for that query."
	case errors.Is(err, music.ErrLoadFailed):
		return "Found the track but could not load it."
	case errors.Is(err, music.ErrHistoryEmpty):
		return "The play history is empty."
	case errors.Is(err, music.ErrIndexOutOfRange):
		return "There is no queue entry at that position."
	case errors.Is(err, music.ErrSeekBeyondTrack):
		return "That position is past the end of the track."
	case errors.Is(err, music.ErrVolumeRange):
		return "Volume must be between 0 and 100."
	default:
		return "Something went wrong, try again."
	}
}

func trackLine(track music.Track) string {
	if track.Author != "" {
		return track.Title + " — " + track.Author
	}
	return track.Title
}
