package player

// EventKind represents a playback event type.
type EventKind int

const (
	EventEnqueued     EventKind = iota // Entry was added to the queue
	EventNowPlaying                    // Entry started playing
	EventFinished                      // Entry finished (natural end or error)
	EventSkipped                       // Entry was force-skipped
	EventStateChanged                  // Playback paused or resumed
	EventVoteRecorded                  // A skip vote was counted
	EventQueueEmpty                    // Queue drained, channel went idle
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventEnqueued:
		return "enqueued"
	case EventNowPlaying:
		return "now_playing"
	case EventFinished:
		return "finished"
	case EventSkipped:
		return "skipped"
	case EventStateChanged:
		return "state_changed"
	case EventVoteRecorded:
		return "vote_recorded"
	case EventQueueEmpty:
		return "queue_empty"
	default:
		return "unknown"
	}
}

// Event represents a playback event on one channel.
type Event struct {
	Kind  EventKind
	Entry *Entry // Entry the event refers to (nil for queue_empty)
	State State  // Channel state after the event
	Votes int    // Skip-vote count (vote_recorded only)
}

// Notifier receives playback events for a channel. Implementations must be
// fire-and-forget: a failing or slow notifier must never stall scheduling.
type Notifier interface {
	Notify(notifyChannelID string, ev Event)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(string, Event) {}

// MultiNotifier fans one event out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(notifyChannelID string, ev Event) {
	for _, n := range m {
		n.Notify(notifyChannelID, ev)
	}
}
