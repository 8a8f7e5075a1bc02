package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"jukebox/pkg/jobmgr"
)

// DefaultIdleTimeout is how long the loop waits on an empty queue before the
// session abandons the voice channel.
const DefaultIdleTimeout = 180 * time.Second

// Transport is the opaque voice sink a session drives. Play reports
// completion or failure through onFinished exactly once per started track;
// Stop ends the current track early through the same callback, so a skip and
// a natural finish look identical to the loop. SetSource swaps the audio
// source mid-track (seek) without firing the callback.
type Transport interface {
	Play(locator string, volume float64, onFinished func(error)) error
	SetSource(locator string, offset time.Duration) error
	Pause() error
	Resume() error
	Stop() error
	SetVolume(volume float64)
	Close(ctx context.Context) error
}

// Notifier carries session events back to the guild's origin text channel.
type Notifier interface {
	NowPlaying(t *Track)
	QueueSaved(url string, tracks int)
	SaveFailed(err error)
	ReplayHint(t *Track)
	SessionEnded(reason string)
}

// PlayCounter records that a track started playing. Failures are logged and
// ignored.
type PlayCounter interface {
	IncrementPlayCount(ctx context.Context, sourceID, extractor string) error
}

// Uploader stores text externally and returns a share URL.
type Uploader interface {
	Upload(ctx context.Context, text string) (string, error)
}

// Session is one guild's playback state: the queue, the transport handle and
// the background loop that pumps tracks from one into the other.
type Session struct {
	GuildID       string
	VoiceChannel  string
	TextChannelID string

	queue *Queue

	mu           sync.Mutex
	now          *Track
	loopSingle   bool
	loopQueue    bool
	notify       bool
	volume       float64 // 0.0 - 1.0
	songStarted  time.Time
	pauseStarted time.Time // zero while not paused

	transport Transport
	counter   PlayCounter
	uploader  Uploader
	notifier  Notifier
	log       zerolog.Logger

	clock       func() time.Time
	idleTimeout time.Duration

	jobs     *jobmgr.Manager
	finished chan error
	done     chan struct{}
	closing  sync.Once
	onClose  func(guildID string)
}

// SessionOptions configures a new session. Transport is mandatory; the rest
// default to no-ops or sane values.
type SessionOptions struct {
	GuildID       string
	VoiceChannel  string
	TextChannelID string
	Transport     Transport
	Counter       PlayCounter
	Uploader      Uploader
	Notifier      Notifier
	Logger        zerolog.Logger
	IdleTimeout   time.Duration
	Volume        int // percent, 0 means default 100
	Notifications bool
	Clock         func() time.Time
}

func NewSession(opts SessionOptions) *Session {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	vol := opts.Volume
	if vol <= 0 || vol > 100 {
		vol = 100
	}
	return &Session{
		GuildID:       opts.GuildID,
		VoiceChannel:  opts.VoiceChannel,
		TextChannelID: opts.TextChannelID,
		queue:         NewQueue(),
		volume:        float64(vol) / 100,
		notify:        opts.Notifications,
		transport:     opts.Transport,
		counter:       opts.Counter,
		uploader:      opts.Uploader,
		notifier:      opts.Notifier,
		log:           opts.Logger.With().Str("guild", opts.GuildID).Logger(),
		clock:         opts.Clock,
		idleTimeout:   opts.IdleTimeout,
		finished:      make(chan error, 1),
		done:          make(chan struct{}),
	}
}

// Queue exposes the session's queue for enqueue and inspection commands.
func (s *Session) Queue() *Queue {
	return s.queue
}

func (s *Session) jobName() string {
	return "session:" + s.GuildID
}

// Start launches the background loop as a supervised job.
func (s *Session) Start(jobs *jobmgr.Manager) error {
	s.jobs = jobs
	return jobs.StartAsync(s.jobName(), func(ctx context.Context) error {
		defer close(s.done)
		return s.run(ctx)
	})
}

func (s *Session) run(ctx context.Context) error {
	err := s.loop(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		// Disconnect is driving the teardown.
		return nil
	case errors.Is(err, ErrIdleTimeout):
		s.log.Info().Msg("no tracks arrived, leaving voice channel")
		if s.notifier != nil {
			s.notifier.SessionEnded("nothing queued for a while, leaving the voice channel")
		}
		s.teardown()
		return nil
	default:
		s.log.Error().Err(err).Msg("playback loop failed")
		s.crash(err)
		return err
	}
}

// loop is the session state machine: wait for a track, play it, wait for the
// transport's finished signal, apply loop flags, repeat.
func (s *Session) loop(ctx context.Context) error {
	for {
		s.mu.Lock()
		track := s.now
		s.mu.Unlock()

		if track == nil {
			t, err := s.queue.PopFrontWait(ctx, s.idleTimeout)
			if err != nil {
				return err
			}
			track = t
			s.mu.Lock()
			s.now = track
			s.mu.Unlock()
		}

		s.mu.Lock()
		s.songStarted = s.clock()
		s.pauseStarted = time.Time{}
		vol := s.volume
		notify := s.notify
		s.mu.Unlock()

		s.log.Info().Str("title", track.Title).Str("url", track.WebpageURL).Msg("starting track")
		if err := s.transport.Play(track.Locator(), vol, s.signalFinished); err != nil {
			return fmt.Errorf("start transport: %w", err)
		}

		if s.counter != nil {
			if err := s.counter.IncrementPlayCount(ctx, track.SourceID, track.Extractor); err != nil {
				s.log.Warn().Err(err).Msg("play count increment failed")
			}
		}
		if notify && s.notifier != nil {
			s.notifier.NowPlaying(track)
		}

		select {
		case err := <-s.finished:
			if err != nil {
				return fmt.Errorf("transport: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		s.mu.Lock()
		s.songStarted = time.Time{}
		s.pauseStarted = time.Time{}
		if s.loopQueue && !s.loopSingle {
			s.queue.RequeueBack(s.now)
		}
		if !s.loopSingle {
			s.now = nil
		}
		s.mu.Unlock()
	}
}

// signalFinished is handed to the transport as the per-track completion
// callback.
func (s *Session) signalFinished(err error) {
	select {
	case s.finished <- err:
	default:
	}
}

// crash is step five of the loop: save what can be saved, tell the channel,
// then tear down. It never propagates beyond this session.
func (s *Session) crash(cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.mu.Lock()
	now := s.now
	s.mu.Unlock()

	switch {
	case s.queue.Len() > 0:
		url, saved, err := s.SaveQueue(ctx)
		if s.notifier != nil {
			if err != nil {
				s.notifier.SaveFailed(err)
			} else {
				s.notifier.QueueSaved(url, saved)
			}
		}
	case now != nil:
		if s.notifier != nil {
			s.notifier.ReplayHint(now)
		}
	}

	if s.notifier != nil {
		s.notifier.SessionEnded(fmt.Sprintf("playback failed: %v", cause))
	}
	s.teardown()
}

// teardown closes the transport and deregisters the session. Safe to call
// more than once.
func (s *Session) teardown() {
	s.closing.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.transport.Close(ctx); err != nil {
			s.log.Warn().Err(err).Msg("transport close failed")
		}
		if s.onClose != nil {
			s.onClose(s.GuildID)
		}
	})
}

// --- transport controls ---

// Now returns the current track, the elapsed playback time and whether
// playback is paused. Elapsed time excludes paused intervals.
func (s *Session) Now() (*Track, time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now == nil || s.songStarted.IsZero() {
		return s.now, 0, false
	}
	if !s.pauseStarted.IsZero() {
		return s.now, s.pauseStarted.Sub(s.songStarted), true
	}
	return s.now, s.clock().Sub(s.songStarted), false
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now == nil {
		return ErrNoTrackPlaying
	}
	if !s.pauseStarted.IsZero() {
		return ErrAlreadyPaused
	}
	s.pauseStarted = s.clock()
	return s.transport.Pause()
}

// Resume folds the paused interval into songStarted so elapsed time stays
// correct across any number of pause/resume cycles.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now == nil {
		return ErrNoTrackPlaying
	}
	if s.pauseStarted.IsZero() {
		return ErrNotPaused
	}
	s.songStarted = s.songStarted.Add(s.clock().Sub(s.pauseStarted))
	s.pauseStarted = time.Time{}
	return s.transport.Resume()
}

// Skip ends the current track early. The transport routes it through the
// normal finished callback, so the loop advances exactly as on completion.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now == nil {
		return ErrNoTrackPlaying
	}
	return s.transport.Stop()
}

// Seek moves playback to the given position within the current track.
func (s *Session) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now == nil {
		return ErrNoTrackPlaying
	}
	if pos < 0 || pos > s.now.Duration {
		return ErrBadSeek
	}
	if err := s.transport.SetSource(s.now.Locator(), pos); err != nil {
		return err
	}
	s.songStarted = s.clock().Add(-pos)
	if !s.pauseStarted.IsZero() {
		s.pauseStarted = s.clock()
	}
	return nil
}

// StartOver restarts the current track from the beginning.
func (s *Session) StartOver() error {
	return s.Seek(0)
}

// SkipTo advances to the queue entry at the given 1-indexed position. The
// skipped entries go to the back of the queue when queue looping is on, in
// their original order. Single-track looping is cleared: skipping forward is
// an explicit request for a different track, replaying the abandoned one
// would contradict it.
func (s *Session) SkipTo(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now == nil {
		return ErrNoTrackPlaying
	}
	if position < 1 || position > s.queue.Len() {
		return ErrOutOfRange
	}
	skipped, err := s.queue.CutFront(position - 1)
	if err != nil {
		return err
	}
	if s.loopQueue {
		for _, t := range skipped {
			s.queue.RequeueBack(t)
		}
	}
	s.loopSingle = false
	return s.transport.Stop()
}

// SetVolume sets both the live transport gain and the session default for
// subsequent tracks. Percent runs 0-100.
func (s *Session) SetVolume(percent int) error {
	if percent < 0 || percent > 100 {
		return ErrBadVolume
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = float64(percent) / 100
	s.transport.SetVolume(s.volume)
	return nil
}

// Volume returns the session volume in percent.
func (s *Session) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.volume*100 + 0.5)
}

// SetLoopSingle toggles replaying the current track and returns the new
// state.
func (s *Session) SetLoopSingle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loopSingle = !s.loopSingle
	return s.loopSingle
}

// SetLoopQueue toggles re-appending finished tracks to the queue and returns
// the new state.
func (s *Session) SetLoopQueue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loopQueue = !s.loopQueue
	return s.loopQueue
}

// LoopState reports (single, queue) loop flags.
func (s *Session) LoopState() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopSingle, s.loopQueue
}

// SetNotifications toggles now-playing announcements and returns the new
// state.
func (s *Session) SetNotifications() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = !s.notify
	return s.notify
}

func (s *Session) Notifications() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notify
}

// Stop clears the loop flags, empties the queue and stops the transport.
// The session stays alive; new tracks may be queued afterwards.
func (s *Session) Stop() error {
	s.mu.Lock()
	s.loopSingle = false
	s.loopQueue = false
	playing := s.now != nil
	s.mu.Unlock()

	s.queue.Clear()
	if playing {
		return s.transport.Stop()
	}
	return nil
}

// Disconnect cancels the loop, stops playback, closes the transport and
// deregisters the session. Safe to call twice.
func (s *Session) Disconnect() {
	if s.jobs != nil {
		_ = s.jobs.Stop(s.jobName())
	}
	<-s.done

	s.mu.Lock()
	s.loopSingle = false
	s.loopQueue = false
	s.now = nil
	s.songStarted = time.Time{}
	s.pauseStarted = time.Time{}
	s.mu.Unlock()
	s.queue.Clear()

	s.teardown()
}

// --- queue persistence ---

// SaveQueue uploads the remaining queue as newline-delimited source URLs and
// returns the share link plus the number of tracks it lists. When queue
// looping is active the current track is logically still in the rotation, so
// its URL goes first.
func (s *Session) SaveQueue(ctx context.Context) (string, int, error) {
	if s.uploader == nil {
		return "", 0, fmt.Errorf("save queue: %w", ErrNothingToSave)
	}

	s.mu.Lock()
	now := s.now
	looping := s.loopQueue
	s.mu.Unlock()

	var urls []string
	if looping && now != nil {
		urls = append(urls, now.ShareURL())
	}
	for _, t := range s.queue.Snapshot() {
		urls = append(urls, t.ShareURL())
	}
	if len(urls) == 0 {
		return "", 0, ErrNothingToSave
	}

	url, err := s.uploader.Upload(ctx, strings.Join(urls, "\n"))
	if err != nil {
		return "", 0, fmt.Errorf("save queue: %w", err)
	}
	s.log.Info().Int("tracks", len(urls)).Str("url", url).Msg("queue saved")
	return url, len(urls), nil
}

// SaveAndDisconnect persists a non-empty queue, announces the link and tears
// the session down. Used by owner maintenance stops and the empty-channel
// watchdog. A failed upload is reported and teardown continues.
func (s *Session) SaveAndDisconnect(ctx context.Context, reason string) {
	if s.queue.Len() > 0 {
		url, saved, err := s.SaveQueue(ctx)
		if s.notifier != nil {
			if err != nil {
				s.notifier.SaveFailed(err)
			} else {
				s.notifier.QueueSaved(url, saved)
			}
		}
	}
	if s.notifier != nil && reason != "" {
		s.notifier.SessionEnded(reason)
	}
	s.Disconnect()
}
