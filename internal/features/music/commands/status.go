package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	zlog "github.com/rs/zerolog/log"

	"github.com/socucius/ergallabot/internal/database"
	shared "github.com/socucius/ergallabot/internal/features/shared"
)

const statsTopN = 5

// Status shows the session state plus all-time play statistics. The
// statistics queries go straight to the repository so a long-running play
// operation cannot delay this command.
func Status(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, _, ok := requireGuildSession(s, i)
	if !ok {
		return
	}

	status := session.Status()

	var sb strings.Builder
	if status.NowPlaying != nil {
		sb.WriteString("**Now playing:** ")
		sb.WriteString(trackLine(status.NowPlaying.Track))
		if !status.Playing {
			sb.WriteString(" (paused)")
		}
		sb.WriteString("\n")
	} else if status.Connected {
		sb.WriteString("Connected, nothing playing.\n")
	} else {
		sb.WriteString("Not connected to a voice channel.\n")
	}
	fmt.Fprintf(&sb, "Queue length: %d\n", len(status.Pending))
	fmt.Fprintf(&sb, "Repeat: %s | Shuffle: %s | Volume: %d\n", status.RepeatMode, status.ShuffleMode, status.Volume)

	if database.GetDB() != nil {
		appendHistoryStats(&sb)
	}

	shared.RespondEmbed(s, i, "Status", sb.String())
}

func appendHistoryStats(sb *strings.Builder) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo := database.NewHistoryRepository()

	total, err := repo.TotalPlays(ctx)
	if err != nil {
		zlog.Warn().Err(err).Msg("failed to load play statistics")
		return
	}
	fmt.Fprintf(sb, "\n**Plays recorded:** %d\n", total)

	if tracks, err := repo.TopTracks(ctx, statsTopN); err == nil && len(tracks) > 0 {
		sb.WriteString("\n**Most played tracks**\n")
		for n, t := range tracks {
			fmt.Fprintf(sb, "%d. %s — %s (%d plays)\n", n+1, t.Title, t.Author, t.Plays)
		}
	}

	if requesters, err := repo.TopRequesters(ctx, statsTopN); err == nil && len(requesters) > 0 {
		sb.WriteString("\n**Most frequent requesters**\n")
		for n, r := range requesters {
			fmt.Fprintf(sb, "%d. %s (%d plays)\n", n+1, r.Username, r.Plays)
		}
	}
}
