package player

import "time"

// Source is a started/stopped handle to one resolved, playable piece of
// media. Implementations live outside this package (e.g. infra/audio).
//
// The onComplete callback passed to Start must be invoked exactly once per
// successful Start call: either when the media ends naturally or when Stop
// terminates it. The callback may be invoked from any goroutine.
type Source interface {
	Start(onComplete func()) error
	Pause() error
	Resume() error
	Stop() error

	// Finished reports whether playback has completed (naturally or via Stop).
	Finished() bool

	// Duration returns the media length, and false when unknown.
	Duration() (time.Duration, bool)

	// SetVolume sets the playback volume. Valid range is 0.0 to 2.0.
	SetVolume(v float64) error
	Volume() float64
}
