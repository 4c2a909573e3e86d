package audio

import (
	"fmt"
	"sort"

	"github.com/hypebeast/go-osc/osc"
)

// ----- Message ----- //

// MessageKind ...
type MessageKind int

// MessageKind values
const (
	MessageNoteOn MessageKind = iota
	MessageNoteOff
	MessageControl
	MessagePatch
)

func (k MessageKind) String() string {
	switch k {
	case MessageNoteOn:
		return "note-on"
	case MessageNoteOff:
		return "note-off"
	case MessageControl:
		return "control"
	case MessagePatch:
		return "patch"
	}
	return fmt.Sprintf("MessageKind(%d)", int(k))
}

// Message is one thing to apply to the synth.
type Message struct {
	Kind     MessageKind
	Key      uint8
	Velocity float64
	Packet   osc.Packet // MessageControl
	Patch    *Patch     // MessagePatch
}

// NoteOnMessage ...
func NoteOnMessage(key uint8, velocity float64) Message {
	return Message{Kind: MessageNoteOn, Key: key, Velocity: velocity}
}

// NoteOffMessage ...
func NoteOffMessage(key uint8, velocity float64) Message {
	return Message{Kind: MessageNoteOff, Key: key, Velocity: velocity}
}

// ControlMessage ...
func ControlMessage(packet osc.Packet) Message {
	return Message{Kind: MessageControl, Packet: packet}
}

// PatchMessage ...
func PatchMessage(p *Patch) Message {
	return Message{Kind: MessagePatch, Patch: p}
}

func (m Message) applyTo(s *Synth) {
	switch m.Kind {
	case MessageNoteOn:
		s.NoteOn(int(m.Key), m.Velocity)
	case MessageNoteOff:
		s.NoteOff(int(m.Key), m.Velocity)
	case MessageControl:
		if m.Packet != nil {
			s.Control(m.Packet)
		}
	case MessagePatch:
		if m.Patch != nil {
			s.SetPatch(m.Patch)
		}
	}
}

// Event is a message with a timestamp in nanoseconds of the shared clock.
type Event struct {
	Timestamp int64
	Message   Message
}

// Output is something produced while rendering. A sync reply carries the
// patch revision to dump; the bundle itself is built by Build, away from the
// render goroutine.
type Output struct {
	Packet osc.Packet
	Sync   *Patch
}

// Build returns the packet to send.
func (o Output) Build() osc.Packet {
	if o.Sync != nil {
		return syncBundle(o.Sync)
	}
	return o.Packet
}

// ----- Events Buffer ----- //

// EventsBuffer keeps events ordered by timestamp. Events with equal
// timestamps keep their insertion order. It is not safe for concurrent use.
type EventsBuffer struct {
	events []Event
}

// NewEventsBuffer ...
func NewEventsBuffer(capacity int) *EventsBuffer {
	return &EventsBuffer{events: make([]Event, 0, capacity)}
}

// Push ...
func (b *EventsBuffer) Push(e Event) {
	n := len(b.events)
	if n == 0 || b.events[n-1].Timestamp <= e.Timestamp {
		b.events = append(b.events, e)
		return
	}
	// first position whose timestamp is greater
	i := sort.Search(n, func(i int) bool {
		return b.events[i].Timestamp > e.Timestamp
	})
	b.events = append(b.events, Event{})
	copy(b.events[i+1:], b.events[i:])
	b.events[i] = e
}

// count of leading events with timestamp < until
func (b *EventsBuffer) splitIndex(until int64) int {
	return sort.Search(len(b.events), func(i int) bool {
		return b.events[i].Timestamp >= until
	})
}

// SplitInto moves every event with timestamp < until to the end of dst,
// in order. It does not allocate while dst has enough capacity.
func (b *EventsBuffer) SplitInto(until int64, dst *EventsBuffer) {
	n := b.splitIndex(until)
	if n == 0 {
		return
	}
	for _, e := range b.events[:n] {
		dst.Push(e)
	}
	rest := copy(b.events, b.events[n:])
	for i := rest; i < len(b.events); i++ {
		b.events[i] = Event{}
	}
	b.events = b.events[:rest]
}

// Split removes and returns every event with timestamp < until.
func (b *EventsBuffer) Split(until int64) *EventsBuffer {
	dst := NewEventsBuffer(b.splitIndex(until))
	b.SplitInto(until, dst)
	return dst
}

// Each calls f for each distinct timestamp in ascending order with the
// messages at that timestamp in insertion order.
func (b *EventsBuffer) Each(f func(timestamp int64, messages []Message)) {
	var messages []Message
	for i := 0; i < len(b.events); {
		ts := b.events[i].Timestamp
		messages = messages[:0]
		for ; i < len(b.events) && b.events[i].Timestamp == ts; i++ {
			messages = append(messages, b.events[i].Message)
		}
		f(ts, messages)
	}
}

// Events returns the ordered events. The slice is only valid until the next
// modification.
func (b *EventsBuffer) Events() []Event {
	return b.events
}

// Len returns the number of distinct timestamps.
func (b *EventsBuffer) Len() int {
	n := 0
	for i := range b.events {
		if i == 0 || b.events[i].Timestamp != b.events[i-1].Timestamp {
			n++
		}
	}
	return n
}

// NumEvents ...
func (b *EventsBuffer) NumEvents() int {
	return len(b.events)
}

// IsEmpty ...
func (b *EventsBuffer) IsEmpty() bool {
	return len(b.events) == 0
}

// Clear ...
func (b *EventsBuffer) Clear() {
	for i := range b.events {
		b.events[i] = Event{}
	}
	b.events = b.events[:0]
}
