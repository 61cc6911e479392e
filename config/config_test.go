package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_APPLICATION_ID", "app-id")
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_APPLICATION_ID", "app-id")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.DefaultVolume)
	assert.Equal(t, 10*time.Second, cfg.IdleLeaveTimeout)
	assert.Equal(t, "yt-dlp", cfg.YTDLPBinary)
	assert.Equal(t, "ffmpeg", cfg.FFmpegBinary)
	assert.False(t, cfg.SpotifyEnabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DEFAULT_VOLUME", "40")
	t.Setenv("IDLE_LEAVE_TIMEOUT", "30")
	t.Setenv("DISCORD_GUILD_ID", "guild-1")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.DefaultVolume)
	assert.Equal(t, 30*time.Second, cfg.IdleLeaveTimeout)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.SpotifyEnabled())
}

func TestValidateVolumeRange(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DEFAULT_VOLUME", "150")

	_, err := Load()
	assert.Error(t, err)
}
