package music

import (
	"context"
	"fmt"
	"strconv"

	redislib "github.com/redis/go-redis/v9"

	internalredis "github.com/socucius/ergallabot/internal/redis"
)

const settingsKeyPrefix = "music:settings:"

// Settings are the per-guild preferences that survive restarts.
type Settings struct {
	RepeatMode  RepeatMode
	ShuffleMode ShuffleMode
	Volume      int
}

// SettingsStore keeps per-guild playback preferences in a redis hash.
type SettingsStore struct {
	client *redislib.Client
}

func NewSettingsStore(client *redislib.Client) *SettingsStore {
	return &SettingsStore{client: client}
}

func NewSettingsStoreFromDefault() *SettingsStore {
	return &SettingsStore{client: internalredis.Client()}
}

func (s *SettingsStore) ensureClient() error {
	if s.client != nil {
		return nil
	}

	s.client = internalredis.Client()
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	return nil
}

func (s *SettingsStore) Get(ctx context.Context, guildID string) (Settings, error) {
	if err := s.ensureClient(); err != nil {
		return Settings{}, err
	}
	if guildID == "" {
		return Settings{}, fmt.Errorf("guild id is required")
	}

	data, err := s.client.HGetAll(ctx, settingsKey(guildID)).Result()
	if err != nil {
		return Settings{}, err
	}

	return decodeSettings(data), nil
}

func (s *SettingsStore) Set(ctx context.Context, guildID string, settings Settings) error {
	if err := s.ensureClient(); err != nil {
		return err
	}
	if guildID == "" {
		return fmt.Errorf("guild id is required")
	}

	return s.client.HSet(ctx, settingsKey(guildID), encodeSettings(settings)).Err()
}

func encodeSettings(settings Settings) map[string]interface{} {
	return map[string]interface{}{
		"repeat_mode":  string(settings.RepeatMode),
		"shuffle_mode": string(settings.ShuffleMode),
		"volume":       strconv.Itoa(settings.Volume),
	}
}

// decodeSettings tolerates missing and malformed fields so a hash written by
// an older build never breaks a join.
func decodeSettings(data map[string]string) Settings {
	settings := Settings{
		RepeatMode:  RepeatNone,
		ShuffleMode: ShuffleNone,
	}

	if v, ok := data["repeat_mode"]; ok && v != "" {
		if mode, valid := ParseRepeatMode(v); valid {
			settings.RepeatMode = mode
		}
	}
	if v, ok := data["shuffle_mode"]; ok && v != "" {
		if mode, valid := ParseShuffleMode(v); valid {
			settings.ShuffleMode = mode
		}
	}
	if v, ok := data["volume"]; ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			settings.Volume = parsed
		}
	}

	return settings
}

func settingsKey(guildID string) string {
	return settingsKeyPrefix + guildID
}
