package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/socucius/ergallabot/config"
	"github.com/socucius/ergallabot/internal/backend"
	"github.com/socucius/ergallabot/internal/database"
	"github.com/socucius/ergallabot/internal/features"
	"github.com/socucius/ergallabot/internal/music"
	"github.com/socucius/ergallabot/internal/playlist"
	"github.com/socucius/ergallabot/internal/redis"
	"github.com/socucius/ergallabot/internal/voicelines"
)

// Bot wires the orchestrator to its collaborators and owns the Discord
// session lifecycle.
type Bot struct {
	config   *config.Config
	session  *discordgo.Session
	presence *PresenceRotator
	started  bool
}

func New(cfg *config.Config) (*Bot, error) {
	dbConfig := &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
	if err := database.Initialize(dbConfig); err != nil {
		zlog.Warn().Err(err).Msg("database initialization failed, play history disabled")
	}

	redisConfig := redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	if _, err := redis.Init(redisConfig); err != nil {
		zlog.Warn().Err(err).Msg("redis initialization failed, guild settings will not persist")
	}

	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord session")
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	return &Bot{
		config:  cfg,
		session: s,
	}, nil
}

func (b *Bot) Start() error {
	if b.started {
		return nil
	}

	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if r.User == nil {
			zlog.Info().Msg("bot ready")
			return
		}
		zlog.Info().Str("user", r.User.Username).Msg("bot ready")
		music.DefaultManager.SetBotIdentity(music.Requester{
			ID:       r.User.ID,
			Username: r.User.Username,
		})
	})
	features.AddHandlers(b.session)

	// The playback stack must be assembled before the gateway opens: once
	// Open returns, interaction and voice-state handlers can fire, and a
	// session created from an unconfigured manager would be cached for its
	// guild with nil collaborators.
	if err := b.wirePlayback(); err != nil {
		return err
	}

	if err := b.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open gateway session")
	}

	if _, err := features.RegisterCommands(b.session, b.config.ApplicationID, b.config.GuildID); err != nil {
		zlog.Warn().Err(err).Msg("failed to register slash commands")
	}

	b.presence.SetAmbient()
	b.started = true
	zlog.Info().Msg("bot session opened")
	return nil
}

// wirePlayback assembles the playback stack. The bot's own identity,
// credited for endless-shuffle refills, is only known once the gateway is
// ready, so it starts as a placeholder and the Ready handler fills it in.
func (b *Bot) wirePlayback() error {
	cfg := b.config

	resolver := backend.NewResolver(cfg.YTDLPBinary)
	audio := backend.New(b.session, resolver, cfg.FFmpegBinary)
	b.presence = NewPresenceRotator(b.session)

	var filler music.FillerSource
	if cfg.VoicelineDir != "" {
		library, err := voicelines.Load(cfg.VoicelineDir)
		if err != nil {
			zlog.Warn().Err(err).Msg("voice lines unavailable")
		} else {
			filler = library
		}
	}

	var spotifyLister *playlist.SpotifyLister
	if cfg.SpotifyEnabled() {
		lister, err := playlist.NewSpotifyLister(context.Background(), cfg.SpotifyClientID, cfg.SpotifyClientSecret)
		if err != nil {
			zlog.Warn().Err(err).Msg("spotify expansion unavailable")
		} else {
			spotifyLister = lister
		}
	}
	expander := playlist.NewExpander(playlist.NewYouTubeLister(cfg.YTDLPBinary), spotifyLister)

	var history music.History
	if database.GetDB() != nil {
		history = historyAdapter{repo: database.NewHistoryRepository()}
	}

	identity := music.Requester{Username: "Socucius Ergalla"}

	music.DefaultManager.Configure(music.Deps{
		Backend:       audio,
		History:       history,
		Filler:        filler,
		Expander:      expander,
		Presence:      b.presence,
		Settings:      music.NewSettingsStoreFromDefault(),
		BotIdentity:   identity,
		DefaultVolume: cfg.DefaultVolume,
		IdleTimeout:   cfg.IdleLeaveTimeout,
	})
	audio.SetEventSink(music.DefaultManager)
	return nil
}

func (b *Bot) Stop() error {
	if !b.started {
		return nil
	}
	b.started = false

	if b.presence != nil {
		b.presence.Stop()
	}
	if err := b.session.Close(); err != nil {
		return errors.Wrap(err, "failed to close gateway session")
	}

	if err := database.Close(); err != nil {
		zlog.Warn().Err(err).Msg("failed to close database")
	}
	if err := redis.Close(); err != nil {
		zlog.Warn().Err(err).Msg("failed to close redis")
	}

	zlog.Info().Msg("bot session closed")
	return nil
}

// historyAdapter narrows the play-history repository to what the
// orchestrator needs.
type historyAdapter struct {
	repo *database.HistoryRepository
}

func (h historyAdapter) RecordPlay(ctx context.Context, title, author, url, requesterID, requesterName string) error {
	return h.repo.RecordPlay(ctx, title, author, url, requesterID, requesterName)
}

func (h historyAdapter) ListAll(ctx context.Context) ([]music.HistoryTrack, error) {
	records, err := h.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	tracks := make([]music.HistoryTrack, 0, len(records))
	for _, rec := range records {
		tracks = append(tracks, music.HistoryTrack{
			Title:  rec.Title,
			Author: rec.Author,
			URL:    rec.URL,
			Plays:  rec.Plays,
		})
	}
	return tracks, nil
}
