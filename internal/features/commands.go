package features

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	zlog "github.com/rs/zerolog/log"

	musiccmd "github.com/socucius/ergallabot/internal/features/music/commands"
	musiclisteners "github.com/socucius/ergallabot/internal/features/music/listeners"
)

var (
	CommandList = []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a track or playlist, or queue it if something is already playing",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Search text or a URL",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "start",
					Description: "Start position, e.g. 1:30",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "end",
					Description: "End position, e.g. 3:00",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "next",
					Description: "Put the track at the front of the queue",
					Required:    false,
				},
			},
		},
		{
			Name:        "playrandom",
			Description: "Play random tracks from the play history",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "How many tracks to queue (default 1)",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "next",
					Description: "Put the drawn tracks at the front of the queue",
					Required:    false,
				},
			},
		},
		{
			Name:        "playvoiceline",
			Description: "Play a random Socucius Ergalla voice line",
		},
		{
			Name:        "pause",
			Description: "Pause or resume playback",
		},
		{
			Name:        "stop",
			Description: "Stop playback, clear the queue and leave the channel",
		},
		{
			Name:        "skip",
			Description: "Skip to the next track in the queue",
		},
		{
			Name:        "volume",
			Description: "Set the playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "percent",
					Description: "Volume from 0 to 100",
					Required:    true,
				},
			},
		},
		{
			Name:        "seek",
			Description: "Jump to a position in the current track",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "position",
					Description: "Target position, e.g. 1:30",
					Required:    true,
				},
			},
		},
		{
			Name:        "repeat",
			Description: "Set the repeat mode",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "Repeat behavior",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Off", Value: "none"},
						{Name: "Repeat track", Value: "single"},
						{Name: "Repeat queue", Value: "all"},
					},
				},
			},
		},
		{
			Name:        "shuffle",
			Description: "Set the shuffle mode",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "Shuffle behavior",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Off", Value: "none"},
						{Name: "Shuffle queue", Value: "playlist"},
						{Name: "Endless (refill from history)", Value: "endless"},
					},
				},
			},
		},
		{
			Name:        "remove",
			Description: "Remove a track from the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "index",
					Description: "Queue position to remove (1 is next up)",
					Required:    true,
				},
			},
		},
		{
			Name:        "queue",
			Description: "Show the current queue",
		},
		{
			Name:        "status",
			Description: "Show playback status and play-history statistics",
		},
	}

	commandHandlers = map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"play":          musiccmd.Play,
		"playrandom":    musiccmd.PlayRandom,
		"playvoiceline": musiccmd.PlayVoiceLine,
		"pause":         musiccmd.Pause,
		"stop":          musiccmd.Stop,
		"skip":          musiccmd.Skip,
		"volume":        musiccmd.Volume,
		"seek":          musiccmd.Seek,
		"repeat":        musiccmd.Repeat,
		"shuffle":       musiccmd.Shuffle,
		"remove":        musiccmd.Remove,
		"queue":         musiccmd.Queue,
		"status":        musiccmd.Status,
	}
)

func RegisterCommands(s *discordgo.Session, appID string, guildID string) ([]*discordgo.ApplicationCommand, error) {
	scope := "global"
	if guildID != "" {
		scope = fmt.Sprintf("guild:%s", guildID)
	}

	zlog.Info().Int("count", len(CommandList)).Str("scope", scope).Msg("registering commands")

	cmds, err := s.ApplicationCommandBulkOverwrite(appID, guildID, CommandList)
	if err != nil {
		return nil, fmt.Errorf("cannot bulk overwrite commands: %w", err)
	}
	return cmds, nil
}

func AddHandlers(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := i.ApplicationCommandData()
		if handler, ok := commandHandlers[data.Name]; ok {
			handler(s, i)
		}
	})

	s.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		musiclisteners.HandleVoiceStateUpdate(s, vs)
	})
}
