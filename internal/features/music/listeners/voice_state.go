package listeners

import (
	"github.com/bwmarrin/discordgo"

	"github.com/socucius/ergallabot/internal/music"
)

// HandleVoiceStateUpdate classifies occupancy changes in the channel the bot
// is sitting in and feeds them to the session's leave countdown: arm it when
// the bot ends up alone, disarm it as soon as company returns.
func HandleVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if s == nil || vs == nil || vs.GuildID == "" {
		return
	}

	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	if botID == "" || vs.UserID == botID {
		return
	}

	guild := getGuildWithVoiceStates(s, vs.GuildID)
	if guild == nil {
		return
	}

	botChannelID := ""
	for _, state := range guild.VoiceStates {
		if state.UserID == botID && state.ChannelID != "" {
			botChannelID = state.ChannelID
			break
		}
	}
	if botChannelID == "" {
		return
	}

	occupants := 0
	for _, state := range guild.VoiceStates {
		if state.ChannelID == botChannelID {
			occupants++
		}
	}

	session := music.DefaultManager.Get(vs.GuildID)
	session.OnChannelOccupancy(occupants, occupants == 1)
}

func getGuildWithVoiceStates(s *discordgo.Session, guildID string) *discordgo.Guild {
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g
		}
	}
	g, err := s.Guild(guildID)
	if err != nil {
		return nil
	}
	return g
}
