package pipeline

import "node.town/parley/transcript"

type EventKind int

const (
	EventState EventKind = iota
	EventProgressStarted
	EventProgressStopped
	EventHistoryAppended
)

// Event is delivered to observers after every change. State is set for
// EventState, Pair for EventHistoryAppended.
type Event struct {
	Kind  EventKind
	State State
	Pair  transcript.Pair
}

// Subscribe registers fn for every future event. Observers run on the
// goroutine that caused the change and must not block.
func (c *Controller) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) emit(e Event) {
	c.mu.Lock()
	observers := make([]func(Event), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(e)
	}
}
