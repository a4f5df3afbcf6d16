package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-bot/aurora/internal/app/player"
	"github.com/aurora-bot/aurora/internal/domain/track"
)

// fakeStream records every notification it receives.
type fakeStream struct {
	mu       sync.Mutex
	received []*Notification
	sendErr  error
	block    chan struct{}
}

func (s *fakeStream) Send(n *Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, n)
	return s.sendErr
}

func (s *fakeStream) notifications() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Notification, len(s.received))
	copy(out, s.received)
	return out
}

func testEvent(kind player.EventKind) player.Event {
	entry := player.NewEntry(
		track.Track{
			ID:       "t1",
			Title:    "Bohemian Rhapsody",
			Artists:  []string{"Queen"},
			Duration: 5*time.Minute + 55*time.Second,
			URL:      "https://open.spotify.com/track/t1",
		},
		track.Requester{ID: "u1", Name: "alice"},
		"chat-1",
		nil,
	)
	return player.Event{Kind: kind, Entry: entry, State: player.StatePlaying}
}

func TestManager_SubscribeUnsubscribe(t *testing.T) {
	m := NewManager()
	assert.Equal(t, 0, m.SubscriberCount())

	a := m.Subscribe(&fakeStream{})
	b := m.Subscribe(&fakeStream{})
	assert.Equal(t, 2, m.SubscriberCount())
	assert.NotEqual(t, a, b)

	m.Unsubscribe(a)
	assert.Equal(t, 1, m.SubscriberCount())

	// Unknown IDs are ignored.
	m.Unsubscribe("no-such-subscription")
	assert.Equal(t, 1, m.SubscriberCount())
}

func TestManager_BroadcastReachesAllSubscribers(t *testing.T) {
	m := NewManager()
	first := &fakeStream{}
	second := &fakeStream{}
	m.Subscribe(first)
	m.Subscribe(second)

	m.Notify("voice-1", testEvent(player.EventNowPlaying))

	require.Len(t, first.notifications(), 1)
	require.Len(t, second.notifications(), 1)

	n := first.notifications()[0]
	assert.Equal(t, "voice-1", n.ChannelID)
	assert.Equal(t, "now_playing", n.Kind)
	assert.Equal(t, "playing", n.State)
	require.NotNil(t, n.Track)
	assert.Equal(t, "Bohemian Rhapsody", n.Track.Title)
	assert.Equal(t, "Queen", n.Track.Artist)
	assert.Equal(t, "alice", n.Track.Requester)
	assert.Equal(t, 355, n.Track.DurationSec)
	assert.False(t, n.At.IsZero())
}

func TestManager_SequenceIncrements(t *testing.T) {
	m := NewManager()
	stream := &fakeStream{}
	m.Subscribe(stream)

	m.Notify("voice-1", testEvent(player.EventNowPlaying))
	m.Notify("voice-1", testEvent(player.EventFinished))
	m.Notify("voice-1", testEvent(player.EventQueueEmpty))

	got := stream.notifications()
	require.Len(t, got, 3)
	assert.Equal(t, uint64(1), got[0].Sequence)
	assert.Equal(t, uint64(2), got[1].Sequence)
	assert.Equal(t, uint64(3), got[2].Sequence)
}

func TestManager_UnsubscribedStreamStopsReceiving(t *testing.T) {
	m := NewManager()
	stream := &fakeStream{}
	id := m.Subscribe(stream)

	m.Notify("voice-1", testEvent(player.EventNowPlaying))
	m.Unsubscribe(id)
	m.Notify("voice-1", testEvent(player.EventFinished))

	assert.Len(t, stream.notifications(), 1)
}

func TestManager_StuckSubscriberDoesNotBlockOthers(t *testing.T) {
	m := NewManager()
	stuck := &fakeStream{block: make(chan struct{})}
	defer close(stuck.block)
	healthy := &fakeStream{}
	m.Subscribe(stuck)
	m.Subscribe(healthy)

	done := make(chan struct{})
	go func() {
		m.Notify("voice-1", testEvent(player.EventNowPlaying))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("broadcast blocked on a stuck subscriber")
	}
	assert.Len(t, healthy.notifications(), 1)
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&fakeStream{})
	m.Subscribe(&fakeStream{})

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestRenderMessage(t *testing.T) {
	tests := []struct {
		name string
		ev   player.Event
		want string
	}{
		{
			name: "now playing",
			ev:   testEvent(player.EventNowPlaying),
			want: "Now playing Bohemian Rhapsody by Queen (requested by alice) [length: 5m 55s]",
		},
		{
			name: "enqueued",
			ev:   testEvent(player.EventEnqueued),
			want: "Enqueued Bohemian Rhapsody by Queen (requested by alice) [length: 5m 55s]",
		},
		{
			name: "finished",
			ev:   testEvent(player.EventFinished),
			want: "Finished playing Bohemian Rhapsody by Queen (requested by alice) [length: 5m 55s]",
		},
		{
			name: "skipped",
			ev:   testEvent(player.EventSkipped),
			want: "Skipped Bohemian Rhapsody by Queen (requested by alice) [length: 5m 55s]",
		},
		{
			name: "vote recorded",
			ev:   player.Event{Kind: player.EventVoteRecorded, Votes: 2},
			want: "Skip vote added, currently at 2",
		},
		{
			name: "queue empty",
			ev:   player.Event{Kind: player.EventQueueEmpty, State: player.StateIdle},
			want: "Queue is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderMessage(tt.ev))
		})
	}
}

func TestRenderMessage_StateChanged(t *testing.T) {
	ev := testEvent(player.EventStateChanged)
	ev.State = player.StatePaused
	assert.Equal(t, "Paused Bohemian Rhapsody by Queen (requested by alice) [length: 5m 55s]", RenderMessage(ev))

	ev.State = player.StatePlaying
	assert.Equal(t, "Resumed Bohemian Rhapsody by Queen (requested by alice) [length: 5m 55s]", RenderMessage(ev))
}
