// Package trace records bus, line and delay activity in place of real
// hardware. It backs the sequencer tests and the -dry-run mode of
// lmx-init.
package trace

import (
	"fmt"
	"time"
)

// Kind identifies what an Event recorded
type Kind uint8

const (
	KindSelect Kind = iota
	KindEnable
	KindWrite
	KindSleep
)

// String returns a human-readable name for the event kind
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindEnable:
		return "enable"
	case KindWrite:
		return "write"
	case KindSleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// Event is one recorded operation
type Event struct {
	Kind   Kind
	Active bool          // select/enable level
	Data   []byte        // write payload
	Delay  time.Duration // sleep length
}

// Word reassembles a write payload, MSB first
func (e Event) Word() uint32 {
	var w uint32
	for _, b := range e.Data {
		w = w<<8 | uint32(b)
	}
	return w
}

// String returns a one-line description of the event
func (e Event) String() string {
	switch e.Kind {
	case KindSelect, KindEnable:
		level := "idle"
		if e.Active {
			level = "active"
		}
		return fmt.Sprintf("%-6s %s", e.Kind, level)
	case KindWrite:
		return fmt.Sprintf("%-6s R%d 0x%06X", e.Kind, (e.Word()>>16)&0x7F, e.Word())
	case KindSleep:
		return fmt.Sprintf("%-6s %v", e.Kind, e.Delay)
	default:
		return e.Kind.String()
	}
}

// Recorder stands in for the serial bus, the select line, the enable line
// and the delay primitive.
type Recorder struct {
	Events []Event

	// FailWrite makes the Nth write (1-based) return Fault. Zero disables.
	FailWrite int
	Fault     error

	// FailEnable, if set, is returned when the enable line is driven
	FailEnable error

	// DebugLog callback (optional)
	DebugLog func(format string, args ...interface{})

	selected   bool
	writes     int
	violations []string
}

// New returns an empty recorder
func New() *Recorder {
	return &Recorder{}
}

// Line is a recorded control line
type Line struct {
	r    *Recorder
	kind Kind
}

// Set records the new level
func (l Line) Set(active bool) error {
	return l.r.set(l.kind, active)
}

// Select returns the chip select line
func (r *Recorder) Select() Line {
	return Line{r: r, kind: KindSelect}
}

// Enable returns the chip enable line
func (r *Recorder) Enable() Line {
	return Line{r: r, kind: KindEnable}
}

func (r *Recorder) set(kind Kind, active bool) error {
	if kind == KindEnable && r.FailEnable != nil {
		return r.FailEnable
	}
	r.record(Event{Kind: kind, Active: active})
	if kind == KindSelect {
		r.selected = active
	}
	return nil
}

// Write records a bus write
func (r *Recorder) Write(w []byte) error {
	r.writes++
	if r.FailWrite > 0 && r.writes == r.FailWrite {
		r.debug("write %d: injecting %v", r.writes, r.Fault)
		return r.Fault
	}
	if !r.selected {
		r.violations = append(r.violations, fmt.Sprintf("write %d outside a select frame", r.writes))
	}
	data := make([]byte, len(w))
	copy(data, w)
	r.record(Event{Kind: KindWrite, Data: data})
	return nil
}

// Sleep records a delay without blocking
func (r *Recorder) Sleep(d time.Duration) {
	if r.selected {
		r.violations = append(r.violations, fmt.Sprintf("sleep %v inside a select frame", d))
	}
	r.record(Event{Kind: KindSleep, Delay: d})
}

func (r *Recorder) record(e Event) {
	r.Events = append(r.Events, e)
	r.debug("%s", e)
}

func (r *Recorder) debug(format string, args ...interface{}) {
	if r.DebugLog != nil {
		r.DebugLog(format, args...)
	}
}

// Writes returns the recorded write events in order
func (r *Recorder) Writes() []Event {
	var writes []Event
	for _, e := range r.Events {
		if e.Kind == KindWrite {
			writes = append(writes, e)
		}
	}
	return writes
}

// Addresses returns the register address of every recorded write
func (r *Recorder) Addresses() []uint8 {
	writes := r.Writes()
	addrs := make([]uint8, len(writes))
	for i, e := range writes {
		addrs[i] = uint8((e.Word() >> 16) & 0x7F)
	}
	return addrs
}

// Elapsed returns the sum of all recorded delays
func (r *Recorder) Elapsed() time.Duration {
	var total time.Duration
	for _, e := range r.Events {
		if e.Kind == KindSleep {
			total += e.Delay
		}
	}
	return total
}

// Violations lists framing problems seen so far: writes with select
// idle, and delays with select active.
func (r *Recorder) Violations() []string {
	return r.violations
}
