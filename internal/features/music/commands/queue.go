package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	shared "github.com/socucius/ergallabot/internal/features/shared"
	"github.com/socucius/ergallabot/internal/music"
)

const queueDisplayLimit = 15

func Repeat(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	mode, ok := music.ParseRepeatMode(shared.GetOptionString(i.ApplicationCommandData().Options, "mode"))
	if !ok {
		shared.RespondEphemeral(s, i, "Pick one of: none, single, all.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	shared.RespondEmbed(s, i, "Repeat", session.SetRepeatMode(ctx, mode))
}

func Shuffle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	mode, ok := music.ParseShuffleMode(shared.GetOptionString(i.ApplicationCommandData().Options, "mode"))
	if !ok {
		shared.RespondEphemeral(s, i, "Pick one of: none, playlist, endless.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	shared.RespondEmbed(s, i, "Shuffle", session.SetShuffleMode(ctx, mode))
}

func Remove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	index := shared.GetOptionInt(i.ApplicationCommandData().Options, "index")

	removed, err := session.Remove(index)
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEmbed(s, i, "Removed from queue", trackLine(removed.Track))
}

func Queue(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	status := session.Status()

	var sb strings.Builder
	if status.NowPlaying != nil {
		sb.WriteString("**Now playing:** ")
		sb.WriteString(trackLine(status.NowPlaying.Track))
		if by := status.NowPlaying.RequestedBy; by != nil {
			fmt.Fprintf(&sb, " (requested by %s)", by.Username)
		}
		sb.WriteString("\n\n")
	}

	if len(status.Pending) == 0 {
		if status.NowPlaying == nil {
			shared.RespondEmbed(s, i, "Queue", "The queue is empty.")
			return
		}
		sb.WriteString("The queue is empty.")
	}

	for n, item := range status.Pending {
		if n >= queueDisplayLimit {
			fmt.Fprintf(&sb, "… and %d more\n", len(status.Pending)-queueDisplayLimit)
			break
		}
		fmt.Fprintf(&sb, "%d. %s", n+1, trackLine(item.Track))
		if d := item.Track.Duration; d > 0 {
			fmt.Fprintf(&sb, " [%s]", shared.FormatDuration(d))
		}
		sb.WriteString("\n")
	}

	shared.RespondEmbed(s, i, "Queue", sb.String())
}
