package audio

import (
	"fmt"
	"sync/atomic"
)

// ----- Synth ----- //

// Synth owns one voice per key and the shared patch.
//
// NoteOn, NoteOff, Control, SetPatch and Process are called from the render
// goroutine only. Patch may be called from any goroutine.
type Synth struct {
	sampleRate float64
	bank       *WavetableBank
	patch      atomic.Pointer[Patch]

	voices [numKeys]voice

	// active = keys[:numActive], position[key] = index in active + 1 (0 = inactive)
	active    [numKeys]int
	numActive int
	position  [numKeys]int

	// Revisions are never reused once published, so readers on other
	// goroutines can keep them. The render goroutine takes empty ones from
	// spares, refilled by the engine's ingestion goroutine.
	spares chan *Patch

	// control changes not yet published
	draft        *Patch
	draftChanges int

	outbox []Output
}

const patchSpares = 32

// NewSynth ...
func NewSynth(sampleRate float64, bank *WavetableBank, patch *Patch) *Synth {
	if sampleRate <= 0 {
		panic(fmt.Sprintf("invalid sample rate: %v", sampleRate))
	}
	if patch == nil {
		patch = DefaultPatch()
	}
	s := &Synth{
		sampleRate: sampleRate,
		bank:       bank,
		spares:     make(chan *Patch, patchSpares),
		outbox:     make([]Output, 0, 16),
	}
	s.refill()
	s.patch.Store(patch.Clone())
	for key := range s.voices {
		s.voices[key].init(sampleRate, bank, key)
	}
	return s
}

// Patch returns the current revision. It must not be modified.
func (s *Synth) Patch() *Patch {
	return s.patch.Load()
}

// SetPatch publishes a copy of p as the next revision.
func (s *Synth) SetPatch(p *Patch) {
	r := s.newRevision()
	*r = *p
	s.publish(r, 1)
}

// newRevision takes a spare revision, allocating only when none is left.
func (s *Synth) newRevision() *Patch {
	select {
	case r := <-s.spares:
		return r
	default:
		return &Patch{}
	}
}

// recycle returns a revision that was never published.
func (s *Synth) recycle(r *Patch) {
	select {
	case s.spares <- r:
	default:
	}
}

// refill tops up the spare revisions. It may be called from any goroutine.
func (s *Synth) refill() {
	for len(s.spares) < cap(s.spares) {
		select {
		case s.spares <- &Patch{}:
		default:
			return
		}
	}
}

func (s *Synth) publish(p *Patch, changes uint64) {
	p.Version = s.patch.Load().Version + changes
	s.patch.Store(p)
}

// NumActive ...
func (s *Synth) NumActive() int {
	return s.numActive
}

// NoteOn starts the voice for key. A non-positive velocity is a note off.
func (s *Synth) NoteOn(key int, velocity float64) {
	if velocity <= 0 {
		s.NoteOff(key, velocity)
		return
	}
	key &= 0x7f
	s.voices[key].noteOn(s.patch.Load(), velocity)
	s.activate(key)
}

// NoteOff silences the voice for key immediately.
func (s *Synth) NoteOff(key int, velocity float64) {
	key &= 0x7f
	s.voices[key].velocity = 0
	s.deactivate(key)
}

// AllNotesOff ...
func (s *Synth) AllNotesOff() {
	for s.numActive > 0 {
		s.NoteOff(s.active[s.numActive-1], 0)
	}
}

func (s *Synth) activate(key int) {
	if s.position[key] != 0 {
		return
	}
	s.active[s.numActive] = key
	s.numActive++
	s.position[key] = s.numActive
}

func (s *Synth) deactivate(key int) {
	pos := s.position[key]
	if pos == 0 {
		return
	}
	last := s.active[s.numActive-1]
	s.active[pos-1] = last
	s.position[last] = pos
	s.position[key] = 0
	s.numActive--
}

// Process renders one stereo sample from the active voices. The output is not
// normalized by the number of voices.
func (s *Synth) Process() (float64, float64) {
	if s.numActive == 0 {
		return 0, 0
	}
	p := s.patch.Load()
	left, right := 0.0, 0.0
	for i := 0; i < s.numActive; i++ {
		v := &s.voices[s.active[i]]
		v.syncPatch(p)
		l, r := v.process()
		left += l
		right += r
	}
	return left, right
}

// DrainOutbox hands every pending output to send and clears the queue.
func (s *Synth) DrainOutbox(send func(Output)) {
	for i, o := range s.outbox {
		send(o)
		s.outbox[i] = Output{}
	}
	s.outbox = s.outbox[:0]
}
