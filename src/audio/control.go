package audio

import (
	"math"
	"strings"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// ----- Control ----- //

// Control applies a control packet. Bundles are applied recursively, messages
// first. Malformed or out-of-range messages are ignored. All patch changes of
// one packet are published as a single revision.
func (s *Synth) Control(packet osc.Packet) {
	s.control(packet)
	s.commit()
}

func (s *Synth) control(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Bundle:
		for _, m := range p.Messages {
			s.controlMessage(m)
		}
		for _, b := range p.Bundles {
			s.control(b)
		}
	case *osc.Message:
		s.controlMessage(p)
	}
}

func (s *Synth) controlMessage(msg *osc.Message) {
	if msg == nil {
		return
	}
	switch {
	case msg.Address == "/sync":
		s.commit()
		// best effort: beyond the outbox capacity requests are dropped
		if len(s.outbox) < cap(s.outbox) {
			s.outbox = append(s.outbox, Output{Sync: s.patch.Load()})
		}
	case msg.Address == "/note":
		key, ok := argInt(msg, 0)
		if !ok || key < 0 || key >= numKeys {
			return
		}
		velocity, ok := argFloat(msg, 1)
		if !ok {
			return
		}
		s.commit()
		if velocity > 0 {
			s.NoteOn(key, velocity)
		} else {
			s.NoteOff(key, 0)
		}
	case msg.Address == "/osc/fm" || msg.Address == "/fm":
		s.changed(applyFMControl(s.editPatch(), msg))
	case strings.HasPrefix(msg.Address, "/osc/"):
		s.changed(applyOscillatorControl(s.editPatch(), s.bank, msg))
	case strings.HasPrefix(msg.Address, "/filter/"):
		s.changed(applyFilterControl(s.editPatch(), msg))
	}
}

// editPatch returns the unpublished draft, copying the current revision into
// a spare one first if there is no draft yet.
func (s *Synth) editPatch() *Patch {
	if s.draft == nil {
		s.draft = s.newRevision()
		*s.draft = *s.patch.Load()
		s.draftChanges = 0
	}
	return s.draft
}

func (s *Synth) changed(ok bool) {
	if ok {
		s.draftChanges++
	}
}

// commit publishes the draft if anything changed. The version advances by
// the number of changes.
func (s *Synth) commit() {
	if s.draft == nil {
		return
	}
	if s.draftChanges > 0 {
		s.publish(s.draft, uint64(s.draftChanges))
	} else {
		s.recycle(s.draft)
	}
	s.draft = nil
	s.draftChanges = 0
}

// /osc/fm dst src value
func applyFMControl(p *Patch, msg *osc.Message) bool {
	dst, ok := argIndex(msg, 0, MaxOscillators)
	if !ok {
		return false
	}
	src, ok := argIndex(msg, 1, MaxOscillators)
	if !ok {
		return false
	}
	v, ok := argFloat(msg, 2)
	if !ok || !inRange(v, -1, 1) {
		return false
	}
	p.declareOscillator(max(src, dst))
	p.Oscillators[src].FMSend[dst] = v
	return true
}

func applyOscillatorControl(p *Patch, bank *WavetableBank, msg *osc.Message) bool {
	i, ok := argIndex(msg, 0, MaxOscillators)
	if !ok {
		return false
	}
	switch msg.Address {
	case "/osc/enabled":
		b, ok := argBool(msg, 1)
		if !ok {
			return false
		}
		p.declareOscillator(i).Enabled = b
	case "/osc/wavetable":
		name, ok := argString(msg, 1)
		if !ok || !bank.Has(name) {
			return false
		}
		p.declareOscillator(i).Wavetable = name
	case "/osc/amp":
		v, ok := argFloat(msg, 1)
		if !ok || !inRange(v, -100, 100) {
			return false
		}
		p.declareOscillator(i).Amplitude = v
	case "/osc/free-phase":
		b, ok := argBool(msg, 1)
		if !ok {
			return false
		}
		p.declareOscillator(i).FreePhase = b
	case "/osc/phase":
		v, ok := argFloat(msg, 1)
		if !ok {
			return false
		}
		p.declareOscillator(i).InitialPhase = v
	case "/osc/fixed-freq":
		b, ok := argBool(msg, 1)
		if !ok {
			return false
		}
		p.declareOscillator(i).FixedFreq = b
	case "/osc/freq":
		v, ok := argFloat(msg, 1)
		if !ok || !inRange(v, 0, 22000) {
			return false
		}
		if i >= p.NumOscillators || !p.Oscillators[i].FixedFreq {
			return false
		}
		p.Oscillators[i].BaseFrequency = v
	case "/osc/octaves":
		n, ok := argInt(msg, 1)
		if !ok || n < -8 || n > 8 {
			return false
		}
		p.declareOscillator(i).Octaves = n
	case "/osc/semitones":
		n, ok := argInt(msg, 1)
		if !ok || n < -12 || n > 12 {
			return false
		}
		p.declareOscillator(i).Semitones = n
	case "/osc/detune":
		v, ok := argFloat(msg, 1)
		if !ok || !inRange(v, -MaxDetune, MaxDetune) {
			return false
		}
		p.declareOscillator(i).Detune = v
	case "/osc/level":
		v, ok := argFloat(msg, 1)
		if !ok || !inRange(v, -1, 1) {
			return false
		}
		p.declareOscillator(i).Level = v
	case "/osc/pan":
		v, ok := argFloat(msg, 1)
		if !ok || !inRange(v, -1, 1) {
			return false
		}
		p.declareOscillator(i).Panning = v
	case "/osc/am":
		dst, ok := argIndex(msg, 1, MaxOscillators)
		if !ok {
			return false
		}
		v, ok := argFloat(msg, 2)
		if !ok {
			return false
		}
		p.declareOscillator(max(i, dst))
		p.Oscillators[i].AMSend[dst] = v
	case "/osc/filter":
		f, ok := argIndex(msg, 1, MaxFilters)
		if !ok {
			return false
		}
		v, ok := argFloat(msg, 2)
		if !ok || !inRange(v, -1, 1) {
			return false
		}
		p.declareFilter(f)
		p.declareOscillator(i).FilterSend[f] = v
	default:
		return false
	}
	return true
}

func applyFilterControl(p *Patch, msg *osc.Message) bool {
	i, ok := argIndex(msg, 0, MaxFilters)
	if !ok {
		return false
	}
	switch msg.Address {
	case "/filter/enabled":
		b, ok := argBool(msg, 1)
		if !ok {
			return false
		}
		p.declareFilter(i).Enabled = b
	case "/filter/design":
		name, ok := argString(msg, 1)
		if !ok {
			return false
		}
		design, err := ParseFilterDesign(name)
		if err != nil {
			return false
		}
		p.declareFilter(i).Design = design
	case "/filter/slope":
		n, ok := argInt(msg, 1)
		if !ok {
			return false
		}
		slope, err := ParseFilterSlope(n)
		if err != nil {
			return false
		}
		p.declareFilter(i).Slope = slope
	case "/filter/cutoff":
		v, ok := argFloat(msg, 1)
		if !ok || v < 0 {
			return false
		}
		p.declareFilter(i).Cutoff = v
	case "/filter/res":
		v, ok := argFloat(msg, 1)
		if !ok || !inRange(v, 0, 1) {
			return false
		}
		p.declareFilter(i).Resonance = v
	case "/filter/level":
		v, ok := argFloat(msg, 1)
		if !ok || !inRange(v, -1, 1) {
			return false
		}
		p.declareFilter(i).Level = v
	case "/filter/pan":
		v, ok := argFloat(msg, 1)
		if !ok || !inRange(v, -1, 1) {
			return false
		}
		p.declareFilter(i).Panning = v
	default:
		return false
	}
	return true
}

// ----- Sync ----- //

// syncBundle dumps p using the same addresses that set it.
func syncBundle(p *Patch) *osc.Bundle {
	b := osc.NewBundle(time.Now())
	add := func(address string, args ...interface{}) {
		b.Messages = append(b.Messages, osc.NewMessage(address, args...))
	}
	for i := 0; i < p.NumOscillators; i++ {
		o := &p.Oscillators[i]
		idx := int32(i + 1)
		add("/osc/enabled", idx, o.Enabled)
		add("/osc/wavetable", idx, o.Wavetable)
		add("/osc/amp", idx, float32(o.Amplitude))
		add("/osc/free-phase", idx, o.FreePhase)
		add("/osc/phase", idx, float32(o.InitialPhase))
		add("/osc/fixed-freq", idx, o.FixedFreq)
		add("/osc/freq", idx, float32(o.BaseFrequency))
		add("/osc/octaves", idx, int32(o.Octaves))
		add("/osc/semitones", idx, int32(o.Semitones))
		add("/osc/detune", idx, float32(o.Detune))
		add("/osc/level", idx, float32(o.Level))
		add("/osc/pan", idx, float32(o.Panning))
		for dst, level := range o.FMSend {
			if level != 0 {
				add("/osc/fm", int32(dst+1), idx, float32(level))
			}
		}
		for dst, level := range o.AMSend {
			if level != 0 {
				add("/osc/am", idx, int32(dst+1), float32(level))
			}
		}
		for f, level := range o.FilterSend {
			if level != 0 {
				add("/osc/filter", idx, int32(f+1), float32(level))
			}
		}
	}
	for i := 0; i < p.NumFilters; i++ {
		f := &p.Filters[i]
		idx := int32(i + 1)
		add("/filter/enabled", idx, f.Enabled)
		add("/filter/design", idx, f.Design.String())
		add("/filter/slope", idx, int32(f.Slope.DecibelsPerOctave()))
		add("/filter/cutoff", idx, float32(f.Cutoff))
		add("/filter/res", idx, float32(f.Resonance))
		add("/filter/level", idx, float32(f.Level))
		add("/filter/pan", idx, float32(f.Panning))
	}
	return b
}

// ----- Arguments ----- //

func argFloat(msg *osc.Message, i int) (float64, bool) {
	if i >= len(msg.Arguments) {
		return 0, false
	}
	var v float64
	switch a := msg.Arguments[i].(type) {
	case float32:
		v = float64(a)
	case float64:
		v = a
	case int32:
		v = float64(a)
	case int64:
		v = float64(a)
	case int:
		v = float64(a)
	default:
		return 0, false
	}
	return v, isFinite(v)
}

// argInt accepts integers and integral floats.
func argInt(msg *osc.Message, i int) (int, bool) {
	if i >= len(msg.Arguments) {
		return 0, false
	}
	switch a := msg.Arguments[i].(type) {
	case int32:
		return int(a), true
	case int64:
		return int(a), true
	case int:
		return a, true
	case float32, float64:
		v, ok := argFloat(msg, i)
		if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

// argBool accepts booleans and numbers (non-zero = true).
func argBool(msg *osc.Message, i int) (bool, bool) {
	if i >= len(msg.Arguments) {
		return false, false
	}
	if b, ok := msg.Arguments[i].(bool); ok {
		return b, true
	}
	v, ok := argFloat(msg, i)
	if !ok {
		return false, false
	}
	return v != 0, true
}

func argString(msg *osc.Message, i int) (string, bool) {
	if i >= len(msg.Arguments) {
		return "", false
	}
	s, ok := msg.Arguments[i].(string)
	return s, ok
}

// argIndex reads a 1-based index in [1, count] and returns it 0-based.
func argIndex(msg *osc.Message, i int, count int) (int, bool) {
	n, ok := argInt(msg, i)
	if !ok || n < 1 || n > count {
		return 0, false
	}
	return n - 1, true
}
