package player

import "errors"

var (
	// ErrNoTrackPlaying is returned by controls that need a current track.
	ErrNoTrackPlaying = errors.New("no track is currently playing")

	// ErrOutOfRange is returned for queue positions that do not exist.
	ErrOutOfRange = errors.New("queue position out of range")

	// ErrBadVolume is returned for volume arguments above 100 or below 0.
	ErrBadVolume = errors.New("volume must be between 0 and 100")

	// ErrBadSeek is returned for seek positions outside the track duration.
	ErrBadSeek = errors.New("seek position outside track duration")

	// ErrNotPaused is returned by Resume when playback is not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrAlreadyPaused is returned by Pause when playback is already paused.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrIdleTimeout signals that the loop waited the full idle window on an
	// empty queue and nothing arrived.
	ErrIdleTimeout = errors.New("idle timeout waiting for tracks")

	// ErrNothingToSave is returned when a queue save finds no URLs to write.
	ErrNothingToSave = errors.New("nothing to save")
)
