package stream

import (
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// Emitter delivers events to a consumer, in order, as the run executes.
// Emitters are forward-only producers: no replay, no rewind. Emission is
// interleaved with computation, so a slow consumer stalls the run.
type Emitter interface {
	Emit(event Event) error
}

// WriterEmitter writes newline-delimited JSON event records to an io.Writer.
type WriterEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterEmitter creates an NDJSON emitter over w.
func NewWriterEmitter(w io.Writer) *WriterEmitter {
	return &WriterEmitter{w: w}
}

// Emit marshals the event and writes it as one line.
func (e *WriterEmitter) Emit(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s event: %w", event.EventType(), err)
	}
	return nil
}

// CollectEmitter accumulates events in memory, for tests and for callers
// that inspect the sequence after the run.
type CollectEmitter struct {
	mu     sync.Mutex
	events []Event
}

// NewCollectEmitter creates an empty collecting emitter.
func NewCollectEmitter() *CollectEmitter {
	return &CollectEmitter{}
}

// Emit appends the event.
func (e *CollectEmitter) Emit(event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

// Events returns the emitted sequence in order.
func (e *CollectEmitter) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// Discard is an emitter that drops every event. Useful when a caller wants
// the run's side effects without a progress stream.
var Discard Emitter = discardEmitter{}

type discardEmitter struct{}

func (discardEmitter) Emit(Event) error { return nil }
