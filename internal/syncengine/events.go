package syncengine

import "github.com/sosuisen/gitdocdb/internal/model"

// EventKind names one point in a sync cycle's lifecycle, or in the
// live-sync loop around it, that a caller can observe.
type EventKind string

const (
	EventBeforeLiveSync EventKind = "before-live-sync"
	EventStart          EventKind = "start"
	EventProgress       EventKind = "progress"
	EventChange         EventKind = "change"
	EventPause          EventKind = "pause"
	EventResume         EventKind = "resume"
	EventComplete       EventKind = "complete"
	EventError          EventKind = "error"
)

// Event is one lifecycle notification. Result is populated on
// Complete, Err on Error, Message carries a short progress note on
// Progress/Change.
type Event struct {
	Kind    EventKind
	Result  *model.SyncResult
	Err     error
	Message string
}

// eventBus fans Engine notifications out to every subscribed
// listener without blocking the sync goroutine on a slow consumer:
// each listener gets its own buffered channel and a full channel
// drops the event rather than stalling the cycle.
type eventBus struct {
	listeners []chan Event
}

func (b *eventBus) subscribe(buf int) <-chan Event {
	ch := make(chan Event, buf)
	b.listeners = append(b.listeners, ch)
	return ch
}

func (b *eventBus) emit(ev Event) {
	for _, ch := range b.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}
