package player

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/aurora-bot/aurora/internal/infra/transport"
)

// Errors
var (
	ErrNothingPlaying = errors.New("nothing is playing")
	ErrClosed         = errors.New("playback session is closed")
)

// Session owns playback for one channel: the FIFO queue, the currently
// playing entry, the skip-vote set and the voice connection. A single
// scheduling goroutine started by New is the only thing that advances the
// queue; all other methods are safe to call concurrently with it.
type Session struct {
	channelID string
	quorum    int
	notifier  Notifier
	conn      transport.Conn

	mu            sync.Mutex
	queue         []*Entry
	current       *Entry
	votes         map[string]struct{}
	state         State
	skipped       bool // Current entry is ending because of a forced skip
	sourceStarted bool // Current entry's source has been started by the loop
	closed        bool

	wake     chan struct{} // Signals the loop that the queue became non-empty
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// New creates a session for the given channel and launches its scheduling
// loop. conn may be nil when no voice transport is involved (tests).
func New(channelID string, conn transport.Conn, notifier Notifier, quorum int) *Session {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if quorum <= 0 {
		quorum = DefaultSkipQuorum
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		channelID: channelID,
		quorum:    quorum,
		notifier:  notifier,
		conn:      conn,
		votes:     make(map[string]struct{}),
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		loopDone:  make(chan struct{}),
	}
	go s.run()
	return s
}

// ChannelID returns the channel this session plays for.
func (s *Session) ChannelID() string {
	return s.channelID
}

// Enqueue appends an entry to the queue. It never blocks: the queue is
// unbounded and the scheduling loop is woken asynchronously.
func (s *Session) Enqueue(e *Entry) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	s.notifier.Notify(e.NotifyChannelID, Event{Kind: EventEnqueued, Entry: e, State: s.State()})
	return nil
}

// IsPlaying reports whether an entry is currently playing or paused.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && !s.current.Source.Finished()
}

// State returns the current playback state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the playback state together with the current entry, if any.
func (s *Session) Status() (State, *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.current
}

// QueueLen returns the number of entries waiting behind the current one.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Pause pauses the current entry. No-op when nothing is playing. A pause
// landing between the "now playing" announcement and the source start is
// recorded and applied by the loop once the source is up.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != StatePlaying || s.current == nil {
		s.mu.Unlock()
		return nil
	}
	cur := s.current
	s.state = StatePaused
	started := s.sourceStarted
	s.mu.Unlock()

	if started {
		if err := cur.Source.Pause(); err != nil {
			s.mu.Lock()
			if s.current == cur {
				s.state = StatePlaying
			}
			s.mu.Unlock()
			return errors.Wrap(err, "failed to pause source")
		}
	}
	s.notifier.Notify(cur.NotifyChannelID, Event{Kind: EventStateChanged, Entry: cur, State: StatePaused})
	return nil
}

// Resume resumes a paused entry. No-op when nothing is paused.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused || s.current == nil {
		s.mu.Unlock()
		return nil
	}
	cur := s.current
	s.state = StatePlaying
	started := s.sourceStarted
	s.mu.Unlock()

	if started {
		if err := cur.Source.Resume(); err != nil {
			s.mu.Lock()
			if s.current == cur {
				s.state = StatePaused
			}
			s.mu.Unlock()
			return errors.Wrap(err, "failed to resume source")
		}
	}
	s.notifier.Notify(cur.NotifyChannelID, Event{Kind: EventStateChanged, Entry: cur, State: StatePlaying})
	return nil
}

// SetVolume sets the current entry's volume, given as a percentage (100 is
// nominal, 200 is the maximum the source contract allows).
func (s *Session) SetVolume(percent int) error {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur == nil || cur.Source.Finished() {
		return ErrNothingPlaying
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 200 {
		percent = 200
	}
	return cur.Source.SetVolume(float64(percent) / 100)
}

// ForceSkip terminates the current entry immediately and clears the vote
// set. The queue behind it is untouched; stopping the source triggers the
// completion signal which advances the loop.
func (s *Session) ForceSkip() {
	s.forceSkip(nil)
}

// forceSkip skips the current entry. When target is non-nil and the current
// entry has already moved on, the skip is dropped instead of terminating the
// wrong entry.
func (s *Session) forceSkip(target *Entry) {
	s.mu.Lock()
	cur := s.current
	if target != nil && cur != target {
		s.mu.Unlock()
		return
	}
	s.votes = make(map[string]struct{})
	playing := cur != nil && !cur.Source.Finished()
	if playing {
		s.skipped = true
	}
	started := s.sourceStarted
	s.mu.Unlock()

	// A skip before the loop has started the source is only recorded; the
	// loop stops the source itself right after starting it.
	if playing && started {
		if err := cur.Source.Stop(); err != nil {
			zlog.Warn().Err(err).Str("channel", s.channelID).Msg("player: failed to stop source on skip")
		}
	}
}

// VoteSkip registers a skip vote from voterID against the current entry.
// The entry's own requester always forces the skip; other voters count once
// each until the quorum is reached. Returns ErrNothingPlaying when idle.
func (s *Session) VoteSkip(voterID string) (VoteResult, error) {
	s.mu.Lock()
	if s.current == nil || s.current.Source.Finished() {
		s.mu.Unlock()
		return VoteResult{}, ErrNothingPlaying
	}
	cur := s.current
	res := tallyVote(voterID, cur.Requester.ID, s.votes, s.quorum)
	switch res.Outcome {
	case VoteCounted, VoteQuorumReached:
		s.votes[voterID] = struct{}{}
	}
	s.mu.Unlock()

	switch res.Outcome {
	case VoteForced, VoteQuorumReached:
		s.forceSkip(cur)
	case VoteCounted:
		s.notifier.Notify(cur.NotifyChannelID, Event{Kind: EventVoteRecorded, Entry: cur, State: StatePlaying, Votes: res.Votes})
	}
	return res, nil
}

// Close stops playback, drains the queue and tears the session down. The
// in-flight source is stopped by the scheduling loop before it exits, and
// the voice connection is released best-effort. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	s.cancel()
	<-s.loopDone

	if s.conn != nil {
		if err := s.conn.Disconnect(); err != nil {
			zlog.Warn().Err(err).Str("channel", s.channelID).Msg("player: failed to disconnect voice transport")
		}
	}
}

// run is the scheduling loop: dequeue, announce, start, wait for completion,
// repeat. It exits only on cancellation and stops any in-flight source on
// the way out.
func (s *Session) run() {
	defer close(s.loopDone)

	for {
		entry := s.awaitNext()
		if entry == nil {
			return
		}

		s.mu.Lock()
		s.current = entry
		s.state = StatePlaying
		s.skipped = false
		s.sourceStarted = false
		s.mu.Unlock()

		s.notifier.Notify(entry.NotifyChannelID, Event{Kind: EventNowPlaying, Entry: entry, State: StatePlaying})

		completed := make(chan struct{}, 1)
		err := entry.Source.Start(func() {
			select {
			case completed <- struct{}{}:
			default:
			}
		})
		if err != nil {
			// A source that cannot start is treated as an implicit
			// completion: log it and advance to the next entry.
			zlog.Error().Err(err).Str("channel", s.channelID).Str("track", entry.Track.Title).
				Msg("player: source failed to start")
			s.finishCurrent()
			continue
		}

		// Commands can land between the announcement and Start; apply
		// whatever state they recorded now that the source is running.
		s.mu.Lock()
		s.sourceStarted = true
		wantSkip := s.skipped
		wantPause := s.state == StatePaused
		s.mu.Unlock()
		if wantSkip {
			if serr := entry.Source.Stop(); serr != nil {
				zlog.Warn().Err(serr).Str("channel", s.channelID).Msg("player: failed to stop source on skip")
			}
		} else if wantPause {
			if perr := entry.Source.Pause(); perr != nil {
				zlog.Warn().Err(perr).Str("channel", s.channelID).Msg("player: failed to pause source")
			}
		}

		select {
		case <-completed:
			s.finishCurrent()
		case <-s.ctx.Done():
			if err := entry.Source.Stop(); err != nil {
				zlog.Warn().Err(err).Str("channel", s.channelID).Msg("player: failed to stop source on shutdown")
			}
			s.finishCurrent()
			return
		}
	}
}

// awaitNext pops the queue head, suspending until the queue is non-empty.
// Returns nil when the session is cancelled.
func (s *Session) awaitNext() *Entry {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			entry := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return entry
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-s.ctx.Done():
			return nil
		}
	}
}

// finishCurrent clears the current entry and the vote set. Votes are always
// scoped to one entry, so this runs on every transition away from it, not
// only on forced skips.
func (s *Session) finishCurrent() {
	s.mu.Lock()
	ended := s.current
	wasSkipped := s.skipped
	s.current = nil
	s.skipped = false
	s.sourceStarted = false
	s.votes = make(map[string]struct{})
	s.state = StateIdle
	queueEmpty := len(s.queue) == 0
	s.mu.Unlock()

	if ended == nil {
		return
	}
	kind := EventFinished
	if wasSkipped {
		kind = EventSkipped
	}
	s.notifier.Notify(ended.NotifyChannelID, Event{Kind: kind, Entry: ended, State: StateIdle})
	if queueEmpty {
		s.notifier.Notify(ended.NotifyChannelID, Event{Kind: EventQueueEmpty, State: StateIdle})
	}
}
