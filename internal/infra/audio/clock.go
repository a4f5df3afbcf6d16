// Package audio provides playback source implementations.
package audio

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultVolume is the volume new sources start with.
const DefaultVolume = 0.6

// Errors
var (
	ErrAlreadyStarted = errors.New("source already started")
	ErrNotStarted     = errors.New("source not started")
	ErrVolumeRange    = errors.New("volume out of range")
)

// ClockSource implements player.Source by modeling playback with a
// cancellable wall-clock timer: Start arms a timer for the track duration
// and the completion callback fires when it elapses, or earlier on Stop.
// Pausing suspends the timer and accumulates the paused time so the
// remaining playtime stays accurate across pause/resume cycles.
//
// A source with an unknown (zero) duration plays until stopped.
type ClockSource struct {
	duration time.Duration

	mu            sync.Mutex
	volume        float64
	started       bool
	finished      bool
	paused        bool
	startedAt     time.Time
	pausedAt      time.Time
	pausedElapsed time.Duration
	onComplete    func()
	stopTimer     func()

	completeOnce sync.Once
}

// NewClockSource creates a source that "plays" for the given duration.
func NewClockSource(duration time.Duration) *ClockSource {
	return &ClockSource{
		duration: duration,
		volume:   DefaultVolume,
	}
}

// Start arms the completion timer. The callback fires exactly once, on
// natural expiry or on Stop, whichever comes first.
func (c *ClockSource) Start(onComplete func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true
	c.startedAt = time.Now()
	c.onComplete = onComplete
	if c.duration > 0 {
		c.armLocked(c.duration)
	}
	return nil
}

// Pause suspends the completion timer.
func (c *ClockSource) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.finished {
		return ErrNotStarted
	}
	if c.paused {
		return nil
	}
	c.paused = true
	c.pausedAt = time.Now()
	c.disarmLocked()
	return nil
}

// Resume re-arms the completion timer for the remaining playtime.
func (c *ClockSource) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.finished {
		return ErrNotStarted
	}
	if !c.paused {
		return nil
	}
	c.pausedElapsed += time.Since(c.pausedAt)
	c.paused = false
	if c.duration > 0 {
		remaining := c.remainingLocked()
		if remaining <= 0 {
			go c.complete()
			return nil
		}
		c.armLocked(remaining)
	}
	return nil
}

// Stop ends playback early and fires the completion callback.
func (c *ClockSource) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.disarmLocked()
	c.mu.Unlock()
	c.complete()
	return nil
}

// Finished reports whether playback has completed.
func (c *ClockSource) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Duration returns the modeled track length, and false when unknown.
func (c *ClockSource) Duration() (time.Duration, bool) {
	if c.duration <= 0 {
		return 0, false
	}
	return c.duration, true
}

// Elapsed returns how long the source has effectively played.
func (c *ClockSource) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return 0
	}
	elapsed := time.Since(c.startedAt) - c.pausedElapsed
	if c.paused {
		elapsed -= time.Since(c.pausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// SetVolume sets the playback volume. Valid range is 0.0 to 2.0.
func (c *ClockSource) SetVolume(v float64) error {
	if v < 0 || v > 2.0 {
		return ErrVolumeRange
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = v
	return nil
}

// Volume returns the current volume.
func (c *ClockSource) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *ClockSource) remainingLocked() time.Duration {
	elapsed := time.Since(c.startedAt) - c.pausedElapsed
	return c.duration - elapsed
}

// armLocked schedules completion after d. Must be called with mu held.
func (c *ClockSource) armLocked(d time.Duration) {
	t := time.AfterFunc(d, c.complete)
	c.stopTimer = func() { t.Stop() }
}

// disarmLocked cancels any pending completion timer. Must be called with mu
// held.
func (c *ClockSource) disarmLocked() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
}

func (c *ClockSource) complete() {
	c.completeOnce.Do(func() {
		c.mu.Lock()
		c.finished = true
		c.paused = false
		c.disarmLocked()
		done := c.onComplete
		c.mu.Unlock()
		if done != nil {
			done()
		}
	})
}
