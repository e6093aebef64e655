package events

import (
	"sync"

	"lendledger/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder retains emitted events in order. The ledger attaches one so that
// callers (and tests) can observe the notifications produced by an operation.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

// Events returns a snapshot of everything emitted so far.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Typed wraps a types.Event payload so modules can emit attribute-map events
// through the Emitter interface.
type Typed struct {
	Payload *types.Event
}

// EventType implements the Event interface.
func (t Typed) EventType() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload.Type
}

// Event returns the underlying payload.
func (t Typed) Event() *types.Event { return t.Payload }

// Wrap is a convenience constructor for Typed.
func Wrap(evt *types.Event) Typed { return Typed{Payload: evt} }
