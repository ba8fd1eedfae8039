package pageverify

import (
	"sync"
	"time"
)

// EventKind tags an observed page event.
type EventKind int

const (
	EventConsole EventKind = iota
	EventPageError
)

func (k EventKind) String() string {
	switch k {
	case EventConsole:
		return "console"
	case EventPageError:
		return "page error"
	default:
		return "unknown"
	}
}

// ObservedEvent is a console message or page error emitted by the page at
// some point between observer attachment and session close.
type ObservedEvent struct {
	Kind EventKind
	Text string
	At   time.Time
}

// EventLog is an append-only list of observed events. Observer callbacks
// append from the browser's event goroutine while the main flow reads
// snapshots, so access is mutex-guarded.
type EventLog struct {
	mu     sync.Mutex
	events []ObservedEvent
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append records one event in arrival order.
func (l *EventLog) Append(kind EventKind, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ObservedEvent{Kind: kind, Text: text, At: time.Now()})
}

// Events returns a copy of the recorded events.
func (l *EventLog) Events() []ObservedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ObservedEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
