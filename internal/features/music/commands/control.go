package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	shared "github.com/socucius/ergallabot/internal/features/shared"
)

const controlTimeout = 10 * time.Second

func Pause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	result, err := session.PauseOrResume(ctx)
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEmbed(s, i, result.Message, trackLine(result.Track))
}

func Stop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	message, err := session.Stop(ctx)
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEmbed(s, i, "Stop", message)
}

func Skip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	result, err := session.Skip(ctx)
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEmbed(s, i, result.Message, trackLine(result.Track))
}

func Volume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	percent := shared.GetOptionInt(i.ApplicationCommandData().Options, "percent")

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	message, err := session.SetVolume(ctx, percent)
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEmbed(s, i, "Volume", message)
}

func Seek(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	position, err := shared.ParseTimestamp(shared.GetOptionString(i.ApplicationCommandData().Options, "position"))
	if err != nil {
		shared.RespondEphemeral(s, i, "Could not read the position, use something like 1:30.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	result, err := session.Seek(ctx, position)
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEmbed(s, i, "Seek", fmt.Sprintf("%s\n%s", result.Message, trackLine(result.Track)))
}
