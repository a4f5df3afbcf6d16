package player

import (
	"time"

	"github.com/google/uuid"

	"github.com/aurora-bot/aurora/internal/domain/track"
)

// Entry pairs one playable source with who requested it and where progress
// should be announced. Entries are immutable after construction.
type Entry struct {
	ID              string
	Track           track.Track
	Requester       track.Requester
	NotifyChannelID string // Chat channel for "now playing" style messages
	Source          Source
	EnqueuedAt      time.Time
}

// NewEntry creates a queue entry for the given source and requester.
func NewEntry(t track.Track, r track.Requester, notifyChannelID string, src Source) *Entry {
	return &Entry{
		ID:              uuid.New().String(),
		Track:           t,
		Requester:       r,
		NotifyChannelID: notifyChannelID,
		Source:          src,
		EnqueuedAt:      time.Now().UTC(),
	}
}

// Describe renders the entry for chat output.
func (e *Entry) Describe() string {
	return e.Track.Describe(e.Requester)
}
