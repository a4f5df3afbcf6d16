package player

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-bot/aurora/internal/domain/track"
)

// fakeSource is a manually-driven Source: tests decide when it completes.
type fakeSource struct {
	mu         sync.Mutex
	started    bool
	finished   bool
	paused     bool
	volume     float64
	onComplete func()
	startErr   error
}

func (f *fakeSource) Start(onComplete func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	f.onComplete = onComplete
	return nil
}

func (f *fakeSource) Pause() error  { f.mu.Lock(); defer f.mu.Unlock(); f.paused = true; return nil }
func (f *fakeSource) Resume() error { f.mu.Lock(); defer f.mu.Unlock(); f.paused = false; return nil }

func (f *fakeSource) Stop() error {
	f.Complete()
	return nil
}

// Complete simulates the end of playback, natural or forced. The "now
// playing" announcement precedes Start, so wait for the completion callback
// to be registered before firing it.
func (f *fakeSource) Complete() {
	for i := 0; i < 1000; i++ {
		f.mu.Lock()
		if f.started {
			f.mu.Unlock()
			break
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return
	}
	f.finished = true
	cb := f.onComplete
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (f *fakeSource) Finished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

func (f *fakeSource) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *fakeSource) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeSource) Duration() (time.Duration, bool) { return 3 * time.Minute, true }

func (f *fakeSource) SetVolume(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
	return nil
}

func (f *fakeSource) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// chanNotifier forwards events to a channel so tests can await transitions.
type chanNotifier struct {
	events chan Event
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{events: make(chan Event, 128)}
}

func (n *chanNotifier) Notify(_ string, ev Event) {
	n.events <- ev
}

// awaitEvent blocks until an event of the given kind arrives.
func (n *chanNotifier) awaitEvent(t *testing.T, kind EventKind) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-n.events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func newTestEntry(requesterID, title string) (*Entry, *fakeSource) {
	src := &fakeSource{}
	e := NewEntry(
		track.Track{ID: title, Title: title, Artists: []string{"Test Artist"}, Duration: 3 * time.Minute},
		track.Requester{ID: requesterID, Name: "user-" + requesterID},
		"chat",
		src,
	)
	return e, src
}

func newTestSession(t *testing.T, notifier Notifier, quorum int) *Session {
	t.Helper()
	s := New("channel-1", nil, notifier, quorum)
	t.Cleanup(s.Close)
	return s
}

func TestSession_PlaysInFIFOOrder(t *testing.T) {
	n := newChanNotifier()
	s := newTestSession(t, n, 3)

	titles := []string{"A", "B", "C"}
	sources := make(map[string]*fakeSource)
	for _, title := range titles {
		e, src := newTestEntry("u1", title)
		sources[title] = src
		require.NoError(t, s.Enqueue(e))
	}

	for _, want := range titles {
		ev := n.awaitEvent(t, EventNowPlaying)
		assert.Equal(t, want, ev.Entry.Track.Title, "playback order must match enqueue order")
		assert.True(t, s.IsPlaying())

		sources[want].Complete()
		n.awaitEvent(t, EventFinished)
	}

	state, current := s.Status()
	assert.Equal(t, StateIdle, state)
	assert.Nil(t, current)
}

func TestSession_NowPlayingAnnouncedBeforeStart(t *testing.T) {
	n := newChanNotifier()
	s := newTestSession(t, n, 3)

	e, src := newTestEntry("u1", "A")
	require.NoError(t, s.Enqueue(e))

	n.awaitEvent(t, EventNowPlaying)
	require.Eventually(t, src.Started, time.Second, 5*time.Millisecond)
}

func TestSession_RequesterAlwaysForcesSkip(t *testing.T) {
	n := newChanNotifier()
	s := newTestSession(t, n, 3)

	a, _ := newTestEntry("u1", "A")
	b, _ := newTestEntry("u2", "B")
	require.NoError(t, s.Enqueue(a))
	require.NoError(t, s.Enqueue(b))
	n.awaitEvent(t, EventNowPlaying)

	// Pile on votes first; the requester still short-circuits.
	res, err := s.VoteSkip("u3")
	require.NoError(t, err)
	assert.Equal(t, VoteCounted, res.Outcome)

	res, err = s.VoteSkip("u1")
	require.NoError(t, err)
	assert.Equal(t, VoteForced, res.Outcome)

	n.awaitEvent(t, EventSkipped)
	ev := n.awaitEvent(t, EventNowPlaying)
	assert.Equal(t, "B", ev.Entry.Track.Title)
}

func TestSession_SkipQuorum(t *testing.T) {
	n := newChanNotifier()
	s := newTestSession(t, n, 3)

	a, _ := newTestEntry("u1", "A")
	b, _ := newTestEntry("u1", "B")
	require.NoError(t, s.Enqueue(a))
	require.NoError(t, s.Enqueue(b))
	n.awaitEvent(t, EventNowPlaying)

	res, err := s.VoteSkip("u2")
	require.NoError(t, err)
	assert.Equal(t, VoteResult{Outcome: VoteCounted, Votes: 1}, res)

	res, err = s.VoteSkip("u3")
	require.NoError(t, err)
	assert.Equal(t, VoteResult{Outcome: VoteCounted, Votes: 2}, res)
	assert.True(t, s.IsPlaying(), "two votes must not skip with quorum 3")

	// Duplicate vote changes nothing.
	res, err = s.VoteSkip("u3")
	require.NoError(t, err)
	assert.Equal(t, VoteResult{Outcome: VoteAlreadyCounted, Votes: 2}, res)
	assert.True(t, s.IsPlaying())

	res, err = s.VoteSkip("u4")
	require.NoError(t, err)
	assert.Equal(t, VoteResult{Outcome: VoteQuorumReached, Votes: 3}, res)

	n.awaitEvent(t, EventSkipped)
	ev := n.awaitEvent(t, EventNowPlaying)
	assert.Equal(t, "B", ev.Entry.Track.Title)
}

func TestSession_VotesDoNotLeakAcrossEntries(t *testing.T) {
	n := newChanNotifier()
	s := newTestSession(t, n, 3)

	a, srcA := newTestEntry("u1", "A")
	b, _ := newTestEntry("u1", "B")
	require.NoError(t, s.Enqueue(a))
	require.NoError(t, s.Enqueue(b))
	n.awaitEvent(t, EventNowPlaying)

	res, err := s.VoteSkip("u2")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Votes)

	// A ends naturally; u2's vote must not carry over to B.
	srcA.Complete()
	n.awaitEvent(t, EventFinished)
	n.awaitEvent(t, EventNowPlaying)

	res, err = s.VoteSkip("u2")
	require.NoError(t, err)
	assert.Equal(t, VoteResult{Outcome: VoteCounted, Votes: 1}, res)
}

func TestSession_VoteSkipWhenIdle(t *testing.T) {
	s := newTestSession(t, newChanNotifier(), 3)

	_, err := s.VoteSkip("u1")
	assert.ErrorIs(t, err, ErrNothingPlaying)
}

func TestSession_PauseResume(t *testing.T) {
	n := newChanNotifier()
	s := newTestSession(t, n, 3)

	a, src := newTestEntry("u1", "A")
	b, _ := newTestEntry("u1", "B")
	require.NoError(t, s.Enqueue(a))
	require.NoError(t, s.Enqueue(b))
	n.awaitEvent(t, EventNowPlaying)
	require.Eventually(t, src.Started, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Pause())
	assert.Equal(t, StatePaused, s.State())
	assert.True(t, src.Paused())

	// Pausing again is a no-op.
	require.NoError(t, s.Pause())
	assert.Equal(t, StatePaused, s.State())

	require.NoError(t, s.Resume())
	assert.Equal(t, StatePlaying, s.State())
	assert.False(t, src.Paused())

	// Queue order survives a pause cycle.
	assert.Equal(t, 1, s.QueueLen())
}

func TestSession_PauseWhenIdleIsNoop(t *testing.T) {
	s := newTestSession(t, newChanNotifier(), 3)

	require.NoError(t, s.Pause())
	require.NoError(t, s.Resume())
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_SetVolume(t *testing.T) {
	n := newChanNotifier()
	s := newTestSession(t, n, 3)

	assert.ErrorIs(t, s.SetVolume(80), ErrNothingPlaying)

	a, src := newTestEntry("u1", "A")
	require.NoError(t, s.Enqueue(a))
	n.awaitEvent(t, EventNowPlaying)

	require.NoError(t, s.SetVolume(80))
	assert.InDelta(t, 0.8, src.Volume(), 0.001)

	// Out-of-range values are clamped, not rejected.
	require.NoError(t, s.SetVolume(500))
	assert.InDelta(t, 2.0, src.Volume(), 0.001)
}

func TestSession_StartErrorAdvancesQueue(t *testing.T) {
	n := newChanNotifier()
	s := newTestSession(t, n, 3)

	broken, brokenSrc := newTestEntry("u1", "broken")
	brokenSrc.startErr = fmt.Errorf("no stream")
	b, _ := newTestEntry("u1", "B")
	require.NoError(t, s.Enqueue(broken))
	require.NoError(t, s.Enqueue(b))

	// The broken entry is treated as completed and B plays.
	for {
		ev := n.awaitEvent(t, EventNowPlaying)
		if ev.Entry.Track.Title == "B" {
			break
		}
	}
}

func TestSession_CloseStopsInFlightSource(t *testing.T) {
	n := newChanNotifier()
	s := New("channel-1", nil, n, 3)

	a, src := newTestEntry("u1", "A")
	require.NoError(t, s.Enqueue(a))
	n.awaitEvent(t, EventNowPlaying)

	s.Close()
	assert.True(t, src.Finished(), "in-flight source must be stopped on close")

	// Close is idempotent and enqueue after close is rejected.
	s.Close()
	b, _ := newTestEntry("u1", "B")
	assert.ErrorIs(t, s.Enqueue(b), ErrClosed)
}

func TestSession_ConcurrentEnqueue(t *testing.T) {
	n := newChanNotifier()
	s := newTestSession(t, n, 3)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, _ := newTestEntry("u1", fmt.Sprintf("track-%d", i))
			assert.NoError(t, s.Enqueue(e))
		}(i)
	}
	wg.Wait()

	// Exactly one entry is picked up by the single scheduling loop, the
	// rest stay queued: nothing lost, nothing duplicated.
	n.awaitEvent(t, EventNowPlaying)
	require.Eventually(t, func() bool {
		return s.QueueLen() == workers-1
	}, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsPlaying())
}
