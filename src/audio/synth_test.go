package audio

import (
	"math"
	"testing"

	"github.com/hypebeast/go-osc/osc"
)

func newTestSynth(t testing.TB, p *Patch) *Synth {
	return NewSynth(testSampleRate, newTestBank(t), p)
}

func TestSynthNoteOnOff(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	l, r := s.Process()
	expectEqual(t, l, 0.0)
	expectEqual(t, r, 0.0)

	s.NoteOn(33, 1.0)
	l, r = s.Process()
	if l == 0 || r == 0 {
		t.Errorf("expected signal, got (%v, %v)", l, r)
	}
	expectEqual(t, s.NumActive(), 1)

	s.NoteOff(33, 0)
	l, r = s.Process()
	expectEqual(t, l, 0.0)
	expectEqual(t, r, 0.0)
	expectEqual(t, s.NumActive(), 0)
}

func TestSynthFirstNoteStartsAtInitialPhase(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	s.NoteOn(33, 1)
	l, r := s.Process()
	expectNearlyEqual(t, l, math.Sqrt(2)/2)
	expectNearlyEqual(t, r, math.Sqrt(2)/2)
}

func TestSynthNoteOnAfterPhaseChange(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	control(s, "/osc/phase", int32(1), float32(0))
	s.NoteOn(60, 1)
	l, _ := s.Process()
	expectNearlyEqual(t, l, 0)

	control(s, "/osc/phase", int32(1), float32(math.Pi/2))
	s.NoteOn(60, 1)
	l, _ = s.Process()
	expectNearlyEqual(t, l, math.Sqrt(2)/2)
}

func TestSynthNoteOnAfterSetPatch(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	p := newSinglePatch()
	p.Oscillators[0].InitialPhase = -math.Pi / 2
	s.SetPatch(p)
	s.NoteOn(60, 1)
	l, _ := s.Process()
	expectNearlyEqual(t, l, -math.Sqrt(2)/2)
}

func TestSynthControlDoesNotAllocate(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	level := osc.NewMessage("/osc/level", int32(1), float32(0.5))
	sync := osc.NewMessage("/sync")
	allocs := testing.AllocsPerRun(10, func() {
		s.Control(level)
		s.Control(sync)
		s.DrainOutbox(func(Output) {})
		s.refill()
	})
	// refill allocates the spares consumed by the run, nothing else does
	if allocs > 1 {
		t.Errorf("expected at most one allocation per run, got %v", allocs)
	}
}

func TestSynthZeroVelocityIsNoteOff(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	s.NoteOn(60, 1)
	s.NoteOn(60, 0)
	expectEqual(t, s.NumActive(), 0)
}

func TestSynthKeyAliasing(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	s.NoteOn(33+128, 1)
	expectEqual(t, s.NumActive(), 1)
	s.NoteOff(33, 0)
	expectEqual(t, s.NumActive(), 0)
}

func TestSynthActiveSet(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	s.NoteOn(1, 1)
	s.NoteOn(2, 1)
	s.NoteOn(3, 1)
	s.NoteOn(2, 1)
	expectEqual(t, s.NumActive(), 3)
	s.NoteOff(1, 0)
	expectEqual(t, s.NumActive(), 2)
	expectEqual(t, s.position[1], 0)
	for i := 0; i < s.numActive; i++ {
		expectEqual(t, s.position[s.active[i]], i+1)
	}
	s.NoteOff(1, 0)
	expectEqual(t, s.NumActive(), 2)
	s.AllNotesOff()
	expectEqual(t, s.NumActive(), 0)
	expectEqual(t, s.position[2], 0)
	expectEqual(t, s.position[3], 0)
}

func TestSynthDoesNotNormalize(t *testing.T) {
	p := newSinglePatch()
	p.Oscillators[0].FixedFreq = true
	p.Oscillators[0].BaseFrequency = 0
	s := newTestSynth(t, p)
	s.NoteOn(60, 1)
	single, _ := s.Process()
	s.NoteOn(61, 1)
	double, _ := s.Process()
	expectNearlyEqual(t, double, 2*single)
}

func TestSynthVelocity(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	s.NoteOn(60, 0.5)
	l, _ := s.Process()
	expectNearlyEqual(t, l, math.Sqrt(2)/4)
}

func TestSynthPatchVersion(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	v := s.Patch().Version
	s.SetPatch(newSinglePatch())
	expectEqual(t, s.Patch().Version, v+1)
}

func TestSynthResyncsStaleVoices(t *testing.T) {
	s := newTestSynth(t, newSinglePatch())
	s.NoteOn(60, 1)
	l, _ := s.Process()
	if l == 0 {
		t.Fatalf("expected signal")
	}
	p := s.Patch().Clone()
	p.Oscillators[0].Level = 0
	s.SetPatch(p)
	l, _ = s.Process()
	expectEqual(t, l, 0.0)
	expectEqual(t, s.voices[60].version, s.Patch().Version)
}

func TestSynthSetPatchCopies(t *testing.T) {
	p := newSinglePatch()
	s := newTestSynth(t, p)
	p.Oscillators[0].Level = 0
	expectEqual(t, s.Patch().Oscillators[0].Level, 1.0)
	if s.Patch() == p {
		t.Errorf("patch should be copied")
	}
}

func TestDefaultPatchSounds(t *testing.T) {
	s := newTestSynth(t, nil)
	expectEqual(t, s.Patch().NumOscillators, 3)
	s.NoteOn(69, 1)
	sum := 0.0
	for i := 0; i < 1000; i++ {
		l, r := s.Process()
		if math.IsNaN(l) || math.IsNaN(r) {
			t.Fatalf("got NaN")
		}
		sum += math.Abs(l)
	}
	if sum == 0 {
		t.Errorf("expected signal")
	}
}
