// Package eventlog implements the append-only record of settlement
// lifecycle events described in spec section 2.9. It both satisfies the
// events.Emitter interface (so engine components can emit into it
// directly) and fans out to an optional downstream emitter, mirroring the
// teacher's NoopEmitter-by-default wiring in native/escrow.
package eventlog

import (
	"sync"

	"github.com/smith5mc/clearing-sub001/core/events"
	"github.com/smith5mc/clearing-sub001/core/types"
)

// Record pairs a raw event with the monotonic sequence number it was
// appended under.
type Record struct {
	Seq   uint64
	Event *types.Event
}

// Log is an in-process, append-only, thread-safe event log. It is not a
// durable store: persistence is an external collaborator per spec section 1.
type Log struct {
	mu       sync.Mutex
	records  []Record
	seq      uint64
	fanOut   events.Emitter
}

// New constructs an empty log. The optional fanOut emitter, if non-nil,
// receives every event appended to the log (e.g. a metrics-recording or
// stdout emitter; the demo CLI configures none).
func New(fanOut events.Emitter) *Log {
	return &Log{fanOut: fanOut}
}

// SetFanOut replaces the downstream emitter. Passing nil disables fan-out.
func (l *Log) SetFanOut(fanOut events.Emitter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fanOut = fanOut
}

// Emit implements events.Emitter: it assigns the next sequence number,
// appends the rendered event, and forwards the typed event to the fan-out
// emitter if one is configured.
func (l *Log) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	rendered := render(evt)
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.records = append(l.records, Record{Seq: seq, Event: rendered})
	fanOut := l.fanOut
	l.mu.Unlock()
	if fanOut != nil {
		fanOut.Emit(evt)
	}
}

// render extracts the canonical *types.Event payload from a typed event.
// Every typed event in core/events exposes an Event() *types.Event method
// in addition to EventType(); render falls back to a bare type/seq record
// for any implementation that only satisfies the minimal interface.
func render(evt events.Event) *types.Event {
	type renderer interface {
		Event() *types.Event
	}
	if r, ok := evt.(renderer); ok {
		if out := r.Event(); out != nil {
			return out
		}
	}
	return &types.Event{Type: evt.EventType()}
}

// Since returns every record appended after (and including) the supplied
// sequence number, in append order.
func (l *Log) Since(seq uint64) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		if r.Seq >= seq {
			out = append(out, r)
		}
	}
	return out
}

// All returns every record in the log, in append order.
func (l *Log) All() []Record {
	return l.Since(0)
}

// Len reports the number of records currently held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
