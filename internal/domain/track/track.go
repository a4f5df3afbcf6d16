// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"time"
)

// Track represents a playable piece of media.
// Contains only metadata; the playable stream lives behind player.Source.
type Track struct {
	ID       string        // Provider-specific track ID
	Title    string        // Track title
	Artists  []string      // Artist names
	Duration time.Duration // Track duration (zero when unknown)
	URL      string        // Canonical URL, if any
}

// Requester represents the user who asked for a track to be played.
type Requester struct {
	ID   string // Opaque external user ID
	Name string // Display name
}

// Describe renders a human-readable one-liner for chat output,
// e.g. "Bohemian Rhapsody by Queen (requested by alice) [length: 5m 55s]".
func (t Track) Describe(r Requester) string {
	s := t.Title
	if len(t.Artists) > 0 {
		s += " by " + t.Artists[0]
	}
	if r.Name != "" {
		s += fmt.Sprintf(" (requested by %s)", r.Name)
	}
	if t.Duration > 0 {
		total := int(t.Duration.Seconds())
		s += fmt.Sprintf(" [length: %dm %ds]", total/60, total%60)
	}
	return s
}
