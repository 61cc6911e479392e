package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	zlog "github.com/rs/zerolog/log"

	shared "github.com/socucius/ergallabot/internal/features/shared"
	"github.com/socucius/ergallabot/internal/music"
)

const playTimeout = 120 * time.Second

func Play(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, requester, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	data := i.ApplicationCommandData()
	query := strings.TrimSpace(shared.GetOptionString(data.Options, "query"))
	if query == "" {
		shared.RespondEphemeral(s, i, "Tell me what to play.")
		return
	}

	start, err := shared.ParseTimestamp(shared.GetOptionString(data.Options, "start"))
	if err != nil {
		shared.RespondEphemeral(s, i, "Could not read the start position, use something like 1:30.")
		return
	}
	end, err := shared.ParseTimestamp(shared.GetOptionString(data.Options, "end"))
	if err != nil {
		shared.RespondEphemeral(s, i, "Could not read the end position, use something like 3:00.")
		return
	}
	if end > 0 && end <= start {
		shared.RespondEphemeral(s, i, "The end position must come after the start position.")
		return
	}

	if err := shared.DeferResponse(s, i); err != nil {
		zlog.Warn().Err(err).Msg("play defer failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	result, err := session.EnqueueOrPlay(ctx, music.PlayRequest{
		Query:          query,
		Start:          start,
		End:            end,
		PlaceFirst:     shared.GetOptionBool(data.Options, "next"),
		Requester:      requester,
		VoiceChannelID: shared.FindUserVoiceChannel(s, i.GuildID, requester.ID),
	})
	if err != nil {
		shared.FollowupEmbed(s, i, "Play", errorMessage(err))
		return
	}

	shared.FollowupEmbed(s, i, result.Message, describeResult(result))
}

func PlayRandom(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, requester, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	options := i.ApplicationCommandData().Options
	count := shared.GetOptionInt(options, "count")
	if count < 1 {
		count = 1
	}
	if count > 25 {
		count = 25
	}
	placeFirst := shared.GetOptionBool(options, "next")

	if err := shared.DeferResponse(s, i); err != nil {
		zlog.Warn().Err(err).Msg("playrandom defer failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	channelID := shared.FindUserVoiceChannel(s, i.GuildID, requester.ID)

	var queued int
	var last music.PlayResult
	for n := 0; n < count; n++ {
		result, err := session.EnqueueRandomFromHistory(ctx, placeFirst, requester, channelID)
		if err != nil {
			if queued == 0 {
				shared.FollowupEmbed(s, i, "Play random", errorMessage(err))
				return
			}
			break
		}
		last = result
		queued++
	}

	if queued == 1 {
		shared.FollowupEmbed(s, i, last.Message, describeResult(last))
		return
	}
	shared.FollowupEmbed(s, i, "Play random", fmt.Sprintf("Queued %d tracks from the play history.", queued))
}

func PlayVoiceLine(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, requester, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	if err := shared.DeferResponse(s, i); err != nil {
		zlog.Warn().Err(err).Msg("playvoiceline defer failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	result, err := session.PlayVoiceLine(ctx, shared.FindUserVoiceChannel(s, i.GuildID, requester.ID))
	if err != nil {
		shared.FollowupEmbed(s, i, "Voice line", errorMessage(err))
		return
	}

	shared.FollowupEmbed(s, i, "Voice line", trackLine(result.Track))
}

func describeResult(result music.PlayResult) string {
	line := trackLine(result.Track)
	if result.Start > 0 || result.End > 0 {
		end := "end"
		if result.End > 0 {
			end = shared.FormatDuration(result.End)
		}
		line = fmt.Sprintf("%s (%s to %s)", line, shared.FormatDuration(result.Start), end)
	}
	if result.Queued {
		line = fmt.Sprintf("%s\nPosition in queue: %d", line, result.Position)
	}
	return line
}
