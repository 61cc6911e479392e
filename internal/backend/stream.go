package backend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/socucius/ergallabot/internal/music"
)

var errStreamRestart = errors.New("stream restart requested")

const frameDuration = 20 * time.Millisecond

// guildStream owns one guild's voice connection and at most one running
// playback. Starting a new playback cancels the running one; the canceled
// stream reports finished(replaced) so the orchestrator knows no queue
// action is needed.
type guildStream struct {
	guildID  string
	resolver *Resolver
	ffmpeg   string
	sink     func() music.EventSink

	mu      sync.Mutex
	vc      *discordgo.VoiceConnection
	volume  int
	current *playback
}

type playback struct {
	item   music.QueuedItem
	cancel context.CancelFunc

	mu        sync.Mutex
	paused    bool
	position  time.Duration
	replaced  bool
	stopped   bool
	restartCh chan time.Duration
}

func newGuildStream(guildID string, resolver *Resolver, ffmpeg string, sink func() music.EventSink) *guildStream {
	return &guildStream{
		guildID:  guildID,
		resolver: resolver,
		ffmpeg:   ffmpeg,
		sink:     sink,
		volume:   100,
	}
}

func (g *guildStream) setVoice(vc *discordgo.VoiceConnection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vc = vc
}

// play replaces any running playback with the given item. The method returns
// once the new stream goroutine is launched; started/finished notifications
// follow asynchronously.
func (g *guildStream) play(item music.QueuedItem) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.vc == nil {
		return errors.New("voice connection not established")
	}

	if g.current != nil {
		g.current.markReplaced()
		g.current.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	pb := &playback{
		item:      item,
		cancel:    cancel,
		position:  item.Start,
		restartCh: make(chan time.Duration, 1),
	}
	g.current = pb

	go g.run(ctx, pb, g.vc)
	return nil
}

func (g *guildStream) setPaused(paused bool) error {
	g.mu.Lock()
	pb := g.current
	g.mu.Unlock()

	if pb == nil {
		return errors.New("nothing is streaming")
	}
	pb.mu.Lock()
	pb.paused = paused
	pb.mu.Unlock()
	return nil
}

func (g *guildStream) seek(position time.Duration) error {
	g.mu.Lock()
	pb := g.current
	g.mu.Unlock()

	if pb == nil {
		return errors.New("nothing is streaming")
	}
	pb.requestRestart(position)
	return nil
}

// setVolume stores the new level and restarts the running stream at its
// current position so the change is audible immediately.
func (g *guildStream) setVolume(percent int) error {
	g.mu.Lock()
	g.volume = percent
	pb := g.current
	g.mu.Unlock()

	if pb != nil {
		pb.mu.Lock()
		pos := pb.position
		pb.mu.Unlock()
		pb.requestRestart(pos)
	}
	return nil
}

func (g *guildStream) disconnect() error {
	g.mu.Lock()
	pb := g.current
	vc := g.vc
	g.vc = nil
	g.mu.Unlock()

	if pb != nil {
		pb.markStopped()
		pb.cancel()
	}
	if vc != nil {
		_ = vc.Disconnect()
	}
	return nil
}

// run is the per-track stream goroutine: resolve the stream URL, transcode
// with ffmpeg and pump opus frames until the track ends or is displaced.
func (g *guildStream) run(ctx context.Context, pb *playback, vc *discordgo.VoiceConnection) {
	log := zlog.With().Str("component", "stream").Str("guild", g.guildID).
		Str("title", pb.item.Track.Title).Logger()

	if sink := g.sink(); sink != nil {
		sink.OnPlaybackStarted(g.guildID, pb.item)
	}

	reason := music.ReasonFinished
	defer func() {
		g.mu.Lock()
		if g.current == pb {
			g.current = nil
		}
		g.mu.Unlock()
		if sink := g.sink(); sink != nil {
			sink.OnPlaybackFinished(g.guildID, pb.item, reason)
		}
	}()

	streamURL, err := g.resolver.ResolveStreamURL(ctx, pb.item.Track.URL)
	if err != nil {
		if pb.endReason() != "" {
			reason = pb.endReason()
			return
		}
		log.Error().Err(err).Msg("stream url resolution failed")
		reason = music.ReasonLoadFailed
		return
	}

	offset := pb.item.Start
	for {
		err := g.streamOnce(ctx, pb, vc, streamURL, offset)
		if errors.Is(err, errStreamRestart) {
			pb.mu.Lock()
			offset = pb.position
			pb.mu.Unlock()
			continue
		}
		if r := pb.endReason(); r != "" {
			reason = r
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("stream failed")
			reason = music.ReasonLoadFailed
			return
		}
		log.Debug().Msg("stream drained")
		return
	}
}

// streamOnce runs one ffmpeg invocation from the given offset and pumps its
// ogg/opus output into the voice connection. It returns errStreamRestart
// when a seek or volume change asks for a new invocation.
func (g *guildStream) streamOnce(ctx context.Context, pb *playback, vc *discordgo.VoiceConnection, url string, offset time.Duration) error {
	g.mu.Lock()
	volume := g.volume
	g.mu.Unlock()

	args := make([]string, 0, 24)
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}
	if offset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", offset.Seconds()))
	}
	args = append(args, "-i", url)
	if end := pb.item.End; end > 0 && end > offset {
		args = append(args, "-t", fmt.Sprintf("%.3f", (end-offset).Seconds()))
	}
	args = append(args,
		"-af", fmt.Sprintf("volume=%.2f", float64(volume)/100),
		"-c:a", "libopus",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", "96k",
		"-vbr", "on",
		"-frame_duration", "20",
		"-application", "audio",
		"-f", "ogg",
		"-loglevel", "warning",
		"pipe:1",
	)

	ffmpegCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ffmpegCtx, g.ffmpeg, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "ffmpeg stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "ffmpeg start")
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
	}()

	safeSpeaking(vc, true)
	defer safeSpeaking(vc, false)

	return g.pumpOgg(ctx, pb, vc, stdout, offset)
}

func (g *guildStream) pumpOgg(ctx context.Context, pb *playback, vc *discordgo.VoiceConnection, r io.Reader, offset time.Duration) error {
	reader := bufio.NewReaderSize(r, 65536)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	var frames int64

	for {
		select {
		case <-ctx.Done():
			return nil
		case pos := <-pb.restartCh:
			pb.mu.Lock()
			pb.position = pos
			pb.mu.Unlock()
			return errStreamRestart
		default:
		}

		if pb.isPaused() {
			safeSpeaking(vc, false)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		page, err := readOggPage(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if page.isHeader {
			continue
		}

		safeSpeaking(vc, true)

		for _, packet := range page.packets {
			if len(packet) == 0 {
				continue
			}

			select {
			case <-ctx.Done():
				return nil
			case pos := <-pb.restartCh:
				pb.mu.Lock()
				pb.position = pos
				pb.mu.Unlock()
				return errStreamRestart
			default:
			}

			for pb.isPaused() {
				safeSpeaking(vc, false)
				time.Sleep(50 * time.Millisecond)
				select {
				case <-ctx.Done():
					return nil
				default:
				}
			}

			<-ticker.C

			select {
			case vc.OpusSend <- packet:
				frames++
				pb.mu.Lock()
				pb.position = offset + time.Duration(frames)*frameDuration
				pb.mu.Unlock()
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
				zlog.Warn().Str("guild", g.guildID).Int64("frame", frames).Msg("opus frame send timed out")
			}
		}
	}
}

func (pb *playback) isPaused() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.paused
}

func (pb *playback) requestRestart(position time.Duration) {
	select {
	case pb.restartCh <- position:
	default:
	}
}

func (pb *playback) markReplaced() {
	pb.mu.Lock()
	pb.replaced = true
	pb.mu.Unlock()
}

func (pb *playback) markStopped() {
	pb.mu.Lock()
	pb.stopped = true
	pb.mu.Unlock()
}

func (pb *playback) endReason() music.TrackEndReason {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.replaced {
		return music.ReasonReplaced
	}
	if pb.stopped {
		return music.ReasonStopped
	}
	return ""
}

func safeSpeaking(vc *discordgo.VoiceConnection, speaking bool) {
	if vc == nil || !vc.Ready {
		return
	}
	_ = vc.Speaking(speaking)
}
