package main

import (
	"os"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"

	"github.com/socucius/ergallabot/config"
	"github.com/socucius/ergallabot/internal/bot"
	"github.com/socucius/ergallabot/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		zlog.Fatal().Err(err).Msg("failed to load configuration, DISCORD_TOKEN and DISCORD_APPLICATION_ID are required")
	}

	logger.Init(cfg.LogLevel)

	if cfg.IsDevelopment() {
		zlog.Info().Str("guild", cfg.GuildID).Msg("development mode, commands registered per guild")
	} else {
		zlog.Info().Msg("production mode, global commands")
	}
	zlog.Info().
		Int("default_volume", cfg.DefaultVolume).
		Dur("idle_leave_timeout", cfg.IdleLeaveTimeout).
		Bool("spotify", cfg.SpotifyEnabled()).
		Msg("configuration loaded")

	b, err := bot.New(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create bot")
	}

	if err := b.Start(); err != nil {
		zlog.Fatal().Err(err).Msg("failed to start bot")
	}
	zlog.Info().Msg("bot is running, press CTRL+C to exit")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zlog.Info().Msg("shutting down")
	if err := b.Stop(); err != nil {
		zlog.Error().Err(err).Msg("failed to stop bot cleanly")
	}
}
