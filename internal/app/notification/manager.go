// Package notification provides the notification manager for broadcasting
// playback events to subscribers.
package notification

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aurora-bot/aurora/internal/app/player"
)

// TrackInfo is the wire-friendly projection of a queued track.
type TrackInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	URL         string `json:"url,omitempty"`
	DurationSec int    `json:"duration_sec,omitempty"`
	Requester   string `json:"requester,omitempty"`
}

// Notification is one playback event as delivered to subscribers.
type Notification struct {
	Sequence  uint64     `json:"sequence"`
	At        time.Time  `json:"at"`
	ChannelID string     `json:"channel_id"`
	Kind      string     `json:"kind"`
	State     string     `json:"state"`
	Message   string     `json:"message"`
	Track     *TrackInfo `json:"track,omitempty"`
	Votes     int        `json:"votes,omitempty"`
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting. It implements
// player.Notifier, so sessions can report events straight into it.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription

	sequenceMu sync.Mutex
	sequence   uint64
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{id: id, stream: stream}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Notify converts a playback event into a notification and broadcasts it.
// Part of the player.Notifier contract: it must never fail scheduling, so
// subscriber errors are dropped and slow subscribers are timed out.
func (m *Manager) Notify(channelID string, ev player.Event) {
	m.Broadcast(fromEvent(channelID, ev))
}

// Broadcast sends a notification to all subscribers. Each stream send runs
// in its own goroutine with a timeout so one stuck subscriber cannot block
// the rest.
func (m *Manager) Broadcast(n *Notification) {
	m.sequenceMu.Lock()
	m.sequence++
	n.Sequence = m.sequence
	m.sequenceMu.Unlock()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			done := make(chan struct{})
			go func() {
				_ = s.stream.Send(n)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(500 * time.Millisecond):
				// Stuck subscriber, move on. Cleanup happens on the next
				// failed send from its own transport.
			}
		}(sub)
	}
	wg.Wait()
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}

// fromEvent builds the subscriber-facing notification for a playback event.
func fromEvent(channelID string, ev player.Event) *Notification {
	n := &Notification{
		At:        time.Now().UTC(),
		ChannelID: channelID,
		Kind:      ev.Kind.String(),
		State:     ev.State.String(),
		Message:   RenderMessage(ev),
		Votes:     ev.Votes,
	}
	if ev.Entry != nil {
		info := &TrackInfo{
			ID:          ev.Entry.Track.ID,
			Title:       ev.Entry.Track.Title,
			URL:         ev.Entry.Track.URL,
			DurationSec: int(ev.Entry.Track.Duration.Seconds()),
			Requester:   ev.Entry.Requester.Name,
		}
		if len(ev.Entry.Track.Artists) > 0 {
			info.Artist = ev.Entry.Track.Artists[0]
		}
		n.Track = info
	}
	return n
}

// RenderMessage renders the chat line for a playback event.
func RenderMessage(ev player.Event) string {
	switch ev.Kind {
	case player.EventEnqueued:
		return fmt.Sprintf("Enqueued %s", ev.Entry.Describe())
	case player.EventNowPlaying:
		return fmt.Sprintf("Now playing %s", ev.Entry.Describe())
	case player.EventFinished:
		return fmt.Sprintf("Finished playing %s", ev.Entry.Describe())
	case player.EventSkipped:
		return fmt.Sprintf("Skipped %s", ev.Entry.Describe())
	case player.EventStateChanged:
		if ev.State == player.StatePaused {
			return fmt.Sprintf("Paused %s", ev.Entry.Describe())
		}
		return fmt.Sprintf("Resumed %s", ev.Entry.Describe())
	case player.EventVoteRecorded:
		return fmt.Sprintf("Skip vote added, currently at %d", ev.Votes)
	case player.EventQueueEmpty:
		return "Queue is empty"
	default:
		return ev.Kind.String()
	}
}
