// Package backend drives the actual audio path: it resolves references with
// yt-dlp, joins Discord voice channels and streams opus audio transcoded by
// ffmpeg. Playback lifecycle changes are reported asynchronously to the
// configured event sink.
package backend

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	"github.com/socucius/ergallabot/internal/music"
)

type Backend struct {
	session  *discordgo.Session
	resolver *Resolver
	ffmpeg   string

	mu     sync.Mutex
	sink   music.EventSink
	guilds map[string]*guildStream
}

func New(session *discordgo.Session, resolver *Resolver, ffmpegBinary string) *Backend {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Backend{
		session:  session,
		resolver: resolver,
		ffmpeg:   ffmpegBinary,
		guilds:   make(map[string]*guildStream),
	}
}

// SetEventSink wires the notification target. It must be set before the
// first Play call.
func (b *Backend) SetEventSink(sink music.EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

func (b *Backend) guild(guildID string) *guildStream {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gs, ok := b.guilds[guildID]; ok {
		return gs
	}
	gs := newGuildStream(guildID, b.resolver, b.ffmpeg, b.eventSink)
	b.guilds[guildID] = gs
	return gs
}

func (b *Backend) eventSink() music.EventSink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sink
}

func (b *Backend) Join(ctx context.Context, guildID, channelID string) error {
	if b.session == nil {
		return errors.New("discord session is nil")
	}
	vc, err := b.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return errors.Wrap(err, "voice join failed")
	}
	b.guild(guildID).setVoice(vc)
	return nil
}

func (b *Backend) Resolve(ctx context.Context, query string) (music.ResolveResult, error) {
	return b.resolver.Resolve(ctx, query)
}

func (b *Backend) Play(ctx context.Context, guildID string, item music.QueuedItem) error {
	return b.guild(guildID).play(item)
}

func (b *Backend) Pause(ctx context.Context, guildID string) error {
	return b.guild(guildID).setPaused(true)
}

func (b *Backend) Resume(ctx context.Context, guildID string) error {
	return b.guild(guildID).setPaused(false)
}

func (b *Backend) Seek(ctx context.Context, guildID string, position time.Duration) error {
	return b.guild(guildID).seek(position)
}

func (b *Backend) SetVolume(ctx context.Context, guildID string, percent int) error {
	return b.guild(guildID).setVolume(percent)
}

func (b *Backend) Disconnect(ctx context.Context, guildID string) error {
	return b.guild(guildID).disconnect()
}
