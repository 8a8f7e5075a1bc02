// Package voice is the audio transport: it joins a guild voice channel,
// decodes a stream locator through ffmpeg into 48kHz stereo PCM, applies
// gain, Opus-encodes the frames and ships them to Discord.
package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"layeh.com/gopus"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
)

// ErrClosed is returned by controls on a transport whose connection is gone.
var ErrClosed = errors.New("voice transport is closed")

// ErrNoSource is returned by SetSource when nothing is playing.
var ErrNoSource = errors.New("no active audio source")

// source is one ffmpeg pipeline feeding the connection. finish is wrapped in
// a sync.Once upstream, so a track reports completion exactly once no matter
// how many times the source gets swapped by seeks.
type source struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	quit   chan struct{}
	finish func(error)
}

// Conn drives one guild's voice connection. It implements player.Transport.
type Conn struct {
	ChannelID string

	mu     sync.Mutex
	cond   *sync.Cond
	vc     *discordgo.VoiceConnection
	cur    *source
	volume float64
	paused bool
	closed bool

	log zerolog.Logger
}

// Connect joins the voice channel and returns the transport handle.
func Connect(dg *discordgo.Session, guildID, channelID string, log zerolog.Logger) (*Conn, error) {
	vc, err := dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice channel: %w", err)
	}
	c := &Conn{
		ChannelID: channelID,
		vc:        vc,
		volume:    1.0,
		log:       log.With().Str("component", "voice").Str("guild", guildID).Logger(),
	}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}

// Play starts a new track. onFinished fires exactly once: on natural end of
// stream, on a pipeline error, or when Stop cuts the track short.
func (c *Conn) Play(locator string, volume float64, onFinished func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.dropSourceLocked()
	c.volume = volume
	c.paused = false

	var once sync.Once
	finish := func(err error) {
		once.Do(func() {
			if onFinished != nil {
				onFinished(err)
			}
		})
	}
	return c.startLocked(locator, 0, finish)
}

// SetSource swaps the audio source mid-track, starting at the given offset.
// The finished callback carries over to the new source, so a seek never
// looks like a completed track.
func (c *Conn) SetSource(locator string, offset time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.cur == nil {
		return ErrNoSource
	}

	finish := c.cur.finish
	c.dropSourceLocked()
	return c.startLocked(locator, offset, finish)
}

func (c *Conn) startLocked(locator string, offset time.Duration, finish func(error)) error {
	args := []string{"-loglevel", "warning"}
	if offset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", offset.Seconds()))
	}
	if strings.HasPrefix(locator, "http") {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}
	args = append(args,
		"-i", locator,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"pipe:1",
	)

	cmd := exec.Command("ffmpeg", args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	src := &source{cmd: cmd, out: out, quit: make(chan struct{}), finish: finish}
	c.cur = src
	go c.pump(src)
	return nil
}

// dropSourceLocked kills the active pipeline without firing its callback.
func (c *Conn) dropSourceLocked() {
	src := c.cur
	c.cur = nil
	c.cond.Broadcast()
	if src == nil {
		return
	}
	close(src.quit)
	if src.cmd.Process != nil {
		_ = src.cmd.Process.Kill()
	}
	go src.cmd.Wait()
}

// pump reads PCM frames, scales them by the live gain, encodes and sends
// them until the stream ends, errors, or the source is dropped.
func (c *Conn) pump(src *source) {
	defer src.out.Close()

	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		c.retire(src, fmt.Errorf("opus encoder: %w", err))
		return
	}

	_ = c.vc.Speaking(true)
	defer func() { _ = c.vc.Speaking(false) }()

	pcm := make([]byte, frameSize*channels*2)
	samples := make([]int16, frameSize*channels)

	for {
		c.mu.Lock()
		for c.paused && c.cur == src {
			c.cond.Wait()
		}
		vol := c.volume
		stale := c.cur != src
		c.mu.Unlock()
		if stale {
			return
		}

		if _, err := io.ReadFull(src.out, pcm); err != nil {
			if dropped(src) {
				return
			}
			if src.cmd.Process != nil {
				_ = src.cmd.Process.Kill()
			}
			_ = src.cmd.Wait()
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				c.retire(src, nil)
			} else {
				c.retire(src, fmt.Errorf("read pcm: %w", err))
			}
			return
		}

		for i := range samples {
			s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) * vol
			switch {
			case s > 32767:
				s = 32767
			case s < -32768:
				s = -32768
			}
			samples[i] = int16(s)
		}

		frame, err := enc.Encode(samples, frameSize, len(pcm))
		if err != nil {
			if dropped(src) {
				return
			}
			c.retire(src, fmt.Errorf("opus encode: %w", err))
			return
		}

		select {
		case c.vc.OpusSend <- frame:
		case <-src.quit:
			return
		}
	}
}

func dropped(src *source) bool {
	select {
	case <-src.quit:
		return true
	default:
		return false
	}
}

// retire detaches the source and fires its callback.
func (c *Conn) retire(src *source, err error) {
	c.mu.Lock()
	if c.cur == src {
		c.cur = nil
	}
	c.mu.Unlock()
	src.finish(err)
}

func (c *Conn) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.paused = true
	return nil
}

func (c *Conn) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.paused = false
	c.cond.Broadcast()
	return nil
}

// Stop ends the current track early through the normal finished path. A skip
// is indistinguishable from a natural completion downstream.
func (c *Conn) Stop() error {
	c.mu.Lock()
	src := c.cur
	c.cur = nil
	c.paused = false
	c.cond.Broadcast()
	c.mu.Unlock()

	if src == nil {
		return nil
	}
	close(src.quit)
	if src.cmd.Process != nil {
		_ = src.cmd.Process.Kill()
	}
	go src.cmd.Wait()
	src.finish(nil)
	return nil
}

func (c *Conn) SetVolume(volume float64) {
	c.mu.Lock()
	c.volume = volume
	c.mu.Unlock()
}

// Close kills any active source without firing its callback and leaves the
// voice channel.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.paused = false
	c.dropSourceLocked()
	vc := c.vc
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- vc.Disconnect() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
