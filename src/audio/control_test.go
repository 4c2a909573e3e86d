package audio

import (
	"math"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

func control(s *Synth, address string, args ...interface{}) {
	s.Control(osc.NewMessage(address, args...))
}

func TestControlOscillator(t *testing.T) {
	testCases := []struct {
		address string
		args    []interface{}
		check   func(o *OscillatorPatch) bool
	}{
		{"/osc/enabled", []interface{}{int32(1), false}, func(o *OscillatorPatch) bool { return !o.Enabled }},
		{"/osc/enabled", []interface{}{int32(1), int32(0)}, func(o *OscillatorPatch) bool { return !o.Enabled }},
		{"/osc/amp", []interface{}{int32(1), float32(-50)}, func(o *OscillatorPatch) bool { return o.Amplitude == -50 }},
		{"/osc/free-phase", []interface{}{int32(1), true}, func(o *OscillatorPatch) bool { return o.FreePhase }},
		{"/osc/phase", []interface{}{int32(1), float32(0.5)}, func(o *OscillatorPatch) bool { return o.InitialPhase == 0.5 }},
		{"/osc/fixed-freq", []interface{}{int32(1), true}, func(o *OscillatorPatch) bool { return o.FixedFreq }},
		{"/osc/octaves", []interface{}{int32(1), int32(-8)}, func(o *OscillatorPatch) bool { return o.Octaves == -8 }},
		{"/osc/semitones", []interface{}{int32(1), float32(7)}, func(o *OscillatorPatch) bool { return o.Semitones == 7 }},
		{"/osc/detune", []interface{}{int32(1), float32(-3.5)}, func(o *OscillatorPatch) bool { return o.Detune == -3.5 }},
		{"/osc/level", []interface{}{int32(1), float32(-0.25)}, func(o *OscillatorPatch) bool { return o.Level == -0.25 }},
		{"/osc/pan", []interface{}{int32(1), float32(0.5)}, func(o *OscillatorPatch) bool { return o.Panning == 0.5 }},
		{"/osc/wavetable", []interface{}{int32(1), "saw"}, func(o *OscillatorPatch) bool { return o.Wavetable == wavetableSaw }},
		{"/osc/am", []interface{}{int32(1), int32(1), float32(2)}, func(o *OscillatorPatch) bool { return o.AMSend[0] == 2 }},
		{"/osc/fm", []interface{}{int32(1), int32(1), float32(-1)}, func(o *OscillatorPatch) bool { return o.FMSend[0] == -1 }},
		{"/fm", []interface{}{int32(1), int32(1), float32(0.5)}, func(o *OscillatorPatch) bool { return o.FMSend[0] == 0.5 }},
		{"/osc/filter", []interface{}{int32(1), int32(2), float32(1)}, func(o *OscillatorPatch) bool { return o.FilterSend[1] == 1 }},
	}
	for _, tc := range testCases {
		s := newTestSynth(t, newSinglePatch())
		version := s.Patch().Version
		control(s, tc.address, tc.args...)
		p := s.Patch()
		if !tc.check(&p.Oscillators[0]) {
			t.Errorf("%s %v: not applied: %+v", tc.address, tc.args, p.Oscillators[0])
		}
		expectEqual(t, p.Version, version+1)
	}
}

func TestControlDropsInvalid(t *testing.T) {
	testCases := []struct {
		address string
		args    []interface{}
	}{
		{"/osc/enabled", []interface{}{int32(0), true}},
		{"/osc/enabled", []interface{}{int32(9), true}},
		{"/osc/enabled", []interface{}{int32(1)}},
		{"/osc/enabled", []interface{}{"1", true}},
		{"/osc/amp", []interface{}{int32(1), float32(101)}},
		{"/osc/freq", []interface{}{int32(1), float32(100)}}, // not fixed
		{"/osc/octaves", []interface{}{int32(1), int32(9)}},
		{"/osc/octaves", []interface{}{int32(1), float32(1.5)}},
		{"/osc/semitones", []interface{}{int32(1), int32(-13)}},
		{"/osc/detune", []interface{}{int32(1), float32(1e7)}},
		{"/osc/detune", []interface{}{int32(1), float32(-1201)}},
		{"/osc/level", []interface{}{int32(1), float32(1.5)}},
		{"/osc/pan", []interface{}{int32(1), float32(-2)}},
		{"/osc/fm", []interface{}{int32(2), int32(1), float32(1.5)}},
		{"/osc/fm", []interface{}{int32(2), int32(0), float32(1)}},
		{"/osc/wavetable", []interface{}{int32(1), "square"}},
		{"/osc/filter", []interface{}{int32(1), int32(3), float32(1)}},
		{"/osc/unknown", []interface{}{int32(1), float32(1)}},
		{"/filter/res", []interface{}{int32(1), float32(1.5)}},
		{"/filter/slope", []interface{}{int32(1), int32(18)}},
		{"/filter/design", []interface{}{int32(1), "comb"}},
		{"/filter/enabled", []interface{}{int32(3), true}},
		{"/unknown", []interface{}{}},
	}
	for _, tc := range testCases {
		s := newTestSynth(t, newSinglePatch())
		before := *s.Patch()
		control(s, tc.address, tc.args...)
		if *s.Patch() != before {
			t.Errorf("%s %v: should be dropped", tc.address, tc.args)
		}
	}
}

func TestControlHugeDetuneKeepsRendering(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	control(s, "/osc/detune", int32(1), float32(1e7))
	expectEqual(t, s.Patch().Oscillators[0].Detune, 0.0)
	control(s, "/osc/detune", int32(1), float32(1200))
	expectEqual(t, s.Patch().Oscillators[0].Detune, 1200.0)
	s.NoteOn(60, 1)
	for i := 0; i < 1000; i++ {
		l, r := s.Process()
		if math.IsNaN(l) || math.IsNaN(r) {
			t.Fatalf("got NaN at sample %d", i)
		}
	}
}

func TestControlBundleIsOneRevision(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	version := s.Patch().Version
	b := osc.NewBundle(time.Now())
	expectNoError(t, b.Append(osc.NewMessage("/osc/level", int32(1), float32(0.5))))
	expectNoError(t, b.Append(osc.NewMessage("/osc/pan", int32(1), float32(9))))
	expectNoError(t, b.Append(osc.NewMessage("/osc/pan", int32(1), float32(0.5))))
	before := s.Patch()
	s.Control(b)
	p := s.Patch()
	expectEqual(t, p.Version, version+2)
	expectEqual(t, p.Oscillators[0].Level, 0.5)
	expectEqual(t, p.Oscillators[0].Panning, 0.5)
	// published revisions are never modified afterwards
	expectEqual(t, before.Oscillators[0].Level, 1.0)

	// a note inside a bundle sees the changes before it
	b = osc.NewBundle(time.Now())
	expectNoError(t, b.Append(osc.NewMessage("/osc/phase", int32(1), float32(0))))
	expectNoError(t, b.Append(osc.NewMessage("/note", int32(60), float32(1))))
	s.Control(b)
	l, _ := s.Process()
	expectNearlyEqual(t, l, 0)
}

func TestControlFixedFrequency(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	control(s, "/osc/fixed-freq", int32(1), true)
	control(s, "/osc/freq", int32(1), float32(100))
	expectEqual(t, s.Patch().Oscillators[0].BaseFrequency, 100.0)
	control(s, "/osc/freq", int32(1), float32(22001))
	expectEqual(t, s.Patch().Oscillators[0].BaseFrequency, 100.0)
}

func TestControlDeclaresSlots(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	control(s, "/osc/level", int32(4), float32(0.5))
	p := s.Patch()
	expectEqual(t, p.NumOscillators, 4)
	expectEqual(t, p.Oscillators[3].Level, 0.5)
	expectEqual(t, p.Oscillators[1].Enabled, false)
	expectEqual(t, p.Oscillators[1].Level, 0.0)

	control(s, "/osc/fm", int32(6), int32(2), float32(1))
	p = s.Patch()
	expectEqual(t, p.NumOscillators, 6)
	expectEqual(t, p.Oscillators[1].FMSend[5], 1.0)

	control(s, "/filter/cutoff", int32(2), float32(500))
	p = s.Patch()
	expectEqual(t, p.NumFilters, 2)
	expectEqual(t, p.Filters[1].Cutoff, 500.0)
}

func TestControlFilter(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	control(s, "/filter/enabled", int32(1), true)
	control(s, "/filter/design", int32(1), "highpass")
	control(s, "/filter/slope", int32(1), int32(24))
	control(s, "/filter/cutoff", int32(1), float32(2000))
	control(s, "/filter/res", int32(1), float32(0.5))
	control(s, "/filter/level", int32(1), float32(0.75))
	control(s, "/filter/pan", int32(1), float32(-0.5))
	f := s.Patch().Filters[0]
	expectEqual(t, f, FilterPatch{
		Enabled:   true,
		Design:    FilterHighpass,
		Slope:     Slope24,
		Cutoff:    2000,
		Resonance: 0.5,
		Level:     0.75,
		Panning:   -0.5,
	})
}

func TestControlNote(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	control(s, "/note", int32(60), float32(1))
	expectEqual(t, s.NumActive(), 1)
	control(s, "/note", int32(60), float32(0))
	expectEqual(t, s.NumActive(), 0)
	control(s, "/note", int32(128), float32(1))
	expectEqual(t, s.NumActive(), 0)
}

func TestControlBundle(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	inner := osc.NewBundle(time.Now())
	expectNoError(t, inner.Append(osc.NewMessage("/osc/level", int32(1), float32(0.5))))
	outer := osc.NewBundle(time.Now())
	expectNoError(t, outer.Append(osc.NewMessage("/osc/level", int32(1), float32(0.25))))
	expectNoError(t, outer.Append(osc.NewMessage("/osc/pan", int32(1), float32(1))))
	expectNoError(t, outer.Append(inner))
	s.Control(outer)
	p := s.Patch()
	expectEqual(t, p.Oscillators[0].Level, 0.5)
	expectEqual(t, p.Oscillators[0].Panning, 1.0)
}

func TestControlSync(t *testing.T) {
	s := newTestSynth(t, DefaultPatch())
	control(s, "/sync")
	var packets []osc.Packet
	s.DrainOutbox(func(o Output) {
		packets = append(packets, o.Build())
	})
	expectEqual(t, len(packets), 1)
	bundle, ok := packets[0].(*osc.Bundle)
	if !ok {
		t.Fatalf("expected bundle, got %T", packets[0])
	}
	found := map[string]int{}
	for _, m := range bundle.Messages {
		found[m.Address]++
	}
	expectEqual(t, found["/osc/enabled"], 3)
	expectEqual(t, found["/osc/fm"], 2)
	expectEqual(t, found["/osc/am"], 0)
	expectEqual(t, found["/filter/enabled"], 0)

	// the dump applies back without changing anything
	other := newTestSynth(t, newSinglePatch())
	other.Control(bundle)
	p := other.Patch()
	expectEqual(t, p.NumOscillators, 3)
	expectEqual(t, p.Oscillators[2].FMSend[0], 1.0)
	expectEqual(t, p.Oscillators[1].BaseFrequency, 0.25)

	s.DrainOutbox(func(o Output) {
		t.Errorf("outbox should be empty")
	})
}

func TestArguments(t *testing.T) {
	msg := osc.NewMessage("/test", float32(2), float64(2.5), int64(3), true, "s", 4)
	n, ok := argInt(msg, 0)
	expectEqual(t, ok, true)
	expectEqual(t, n, 2)
	_, ok = argInt(msg, 1)
	expectEqual(t, ok, false)
	n, ok = argInt(msg, 2)
	expectEqual(t, n, 3)
	b, ok := argBool(msg, 3)
	expectEqual(t, b, true)
	expectEqual(t, ok, true)
	_, ok = argFloat(msg, 4)
	expectEqual(t, ok, false)
	str, ok := argString(msg, 4)
	expectEqual(t, str, "s")
	n, ok = argInt(msg, 5)
	expectEqual(t, n, 4)
	_, ok = argFloat(msg, 6)
	expectEqual(t, ok, false)
	i, ok := argIndex(msg, 2, 8)
	expectEqual(t, i, 2)
	expectEqual(t, ok, true)
}
