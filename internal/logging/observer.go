package logging

import (
	"context"
	"log/slog"
	"sync"
)

// Event is a structured diagnostic emitted by a pipeline component, such as
// an input truncation or a per-record failure. Components emit events through
// an [Observer] instead of logging directly so that callers decide where the
// events go.
type Event struct {
	// Name is a stable dotted identifier (e.g. "embed.truncated").
	Name string
	// Level is the severity of the event.
	Level slog.Level
	// Message is a short human-readable summary.
	Message string
	// Attrs carries the event's structured fields.
	Attrs []slog.Attr
}

// Observer receives diagnostic events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// Observe handles a single event.
	Observe(ctx context.Context, e Event)
}

// LogObserver writes events to a [*slog.Logger]. When constructed with a nil
// logger it uses the logger carried by the event's context.
type LogObserver struct {
	// log is the destination logger; nil means "use FromContext".
	log *slog.Logger
}

// NewLogObserver returns an Observer that logs every event.
func NewLogObserver(log *slog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Observe logs e at its level with an "event" attribute naming it.
func (o *LogObserver) Observe(ctx context.Context, e Event) {
	log := o.log
	if log == nil {
		log = FromContext(ctx)
	}
	attrs := make([]slog.Attr, 0, len(e.Attrs)+1)
	attrs = append(attrs, slog.String("event", e.Name))
	attrs = append(attrs, e.Attrs...)
	log.LogAttrs(ctx, e.Level, e.Message, attrs...)
}

// OrDefault returns o, or a context-logger observer when o is nil.
func OrDefault(o Observer) Observer {
	if o == nil {
		return NewLogObserver(nil)
	}
	return o
}

// Recorder is an Observer that keeps every event in memory. It is intended
// for tests that assert on emitted diagnostics.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Observe appends e to the recorded events.
func (r *Recorder) Observe(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of all recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events whose Name equals name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Attr returns the value of the attribute with the given key, or a zero
// [slog.Value] if the event has no such attribute.
func (e Event) Attr(key string) slog.Value {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return slog.Value{}
}
