package audio

import (
	"math"
	"testing"
)

func TestPitchIdentity(t *testing.T) {
	o := newOscillator(44100, MakeSinWavetable(1024), 123.4)
	expectEqual(t, o.frequency, 123.4)
	o.setPitch(1, 0, 0)
	expectNearlyEqual(t, o.frequency, 246.8)
	o.setPitch(0, 12, 0)
	expectNearlyEqual(t, o.frequency, 246.8)
	o.setPitch(0, 0, 1200)
	expectNearlyEqual(t, o.frequency, 246.8)
	o.setPitch(-1, 7, 0)
	expectNearlyEqual(t, o.frequency, 61.7*math.Pow(2, 7.0/12))
	o.setPitch(0, 0, 0)
	expectEqual(t, o.frequency, 123.4)
}

func TestOscillatorFrequencyNotNegative(t *testing.T) {
	o := newOscillator(44100, MakeSinWavetable(1024), -100)
	expectEqual(t, o.frequency, 0.0)
	expectEqual(t, o.tableIncr, 0.0)
}

func TestOscillatorNonFiniteFrequency(t *testing.T) {
	o := newOscillator(44100, MakeSinWavetable(1024), 440)
	o.setPitch(0, 0, 1e7)
	expectEqual(t, o.frequency, 0.0)
	expectEqual(t, o.tableIncr, 0.0)
	o.setBaseFrequency(math.NaN())
	expectEqual(t, o.frequency, 0.0)
}

func TestOscillatorRecoversFromNonFiniteOffset(t *testing.T) {
	o := newOscillator(44100, MakeSinWavetable(1024), 0)
	for _, offset := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		o.tableOffset = offset
		expectEqual(t, o.process(), 0.0)
		expectEqual(t, o.tableOffset, 0.0)
	}
}

func TestOscillatorZeroFrequencyIsConstant(t *testing.T) {
	o := newOscillator(44100, MakeSinWavetable(1024), 0)
	o.setInitialPhase(math.Pi / 2)
	o.reset()
	first := o.process()
	expectNearlyEqual(t, first, 1)
	for i := 0; i < 100; i++ {
		expectEqual(t, o.process(), first)
	}
}

func TestOscillatorReadsTableEntries(t *testing.T) {
	// one table entry per sample
	wt := MakeSinWavetable(8)
	o := newOscillator(8, wt, 1)
	for i := 0; i < 20; i++ {
		expectNearlyEqual(t, o.process(), wt.At(i%8))
	}
}

func TestOscillatorAmplitude(t *testing.T) {
	wt := MakeSinWavetable(8)
	o := newOscillator(8, wt, 0)
	o.setInitialPhase(math.Pi / 2)
	o.reset()
	o.amplitude = 0.5
	expectNearlyEqual(t, o.process(), 0.5)
	o.setAmplitudeModulation(0.5)
	expectNearlyEqual(t, o.process(), 0.25)
	o.amplitude = 0
	expectEqual(t, o.process(), 0.0)
	o.amplitude = 1
	o.enabled = false
	expectEqual(t, o.process(), 0.0)
}

func TestOscillatorFrequencyModulation(t *testing.T) {
	wt := MakeSinWavetable(8)
	o := newOscillator(8, wt, 0)
	o.setFrequencyModulation(2)
	expectEqual(t, o.freqMod, 2.0)
	expectNearlyEqual(t, o.process(), wt.At(0))
	expectNearlyEqual(t, o.process(), wt.At(2))
	expectNearlyEqual(t, o.process(), wt.At(4))
	o.reset()
	expectEqual(t, o.freqMod, 0.0)
	expectNearlyEqual(t, o.process(), wt.At(0))
	expectNearlyEqual(t, o.process(), wt.At(0))
}

func TestOscillatorNegativeModulationWraps(t *testing.T) {
	wt := MakeSinWavetable(8)
	o := newOscillator(8, wt, 0)
	o.setFrequencyModulation(-3)
	o.process()
	expectNearlyEqual(t, o.process(), wt.At(5))
}

func TestOscillatorFreePhase(t *testing.T) {
	wt := MakeSinWavetable(8)
	o := newOscillator(8, wt, 1)
	o.process()
	o.process()
	o.reset()
	expectEqual(t, o.tableOffset, 0.0)

	o.freePhase = true
	o.process()
	o.process()
	o.reset()
	expectEqual(t, o.tableOffset, 2.0)
}

func TestOscillatorSetWavetableKeepsPhase(t *testing.T) {
	o := newOscillator(8, MakeSinWavetable(8), 1)
	o.process()
	o.process()
	o.setWavetable(MakeSinWavetable(16))
	expectEqual(t, o.tableOffset, 4.0)
	expectEqual(t, o.tableIncr, 2.0)
	expectEqual(t, o.frequency, 1.0)
}

func TestPositiveMod(t *testing.T) {
	expectEqual(t, positiveMod(5, 4), 1.0)
	expectEqual(t, positiveMod(-1, 4), 3.0)
	expectEqual(t, positiveMod(-8, 4), 0.0)
	expectEqual(t, positiveMod(0.5, 4), 0.5)
	expectPanic(t, func() { positiveMod(1, 0) })
}
