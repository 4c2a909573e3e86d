package audio

import (
	"math"
)

// ----- Pitch ----- //

// pitchScale converts an octave/semitone/cent shift into a frequency ratio.
func pitchScale(octaves, semitones, detune float64) float64 {
	cents := octaves*1200 + semitones*100 + detune
	if cents == 0 {
		return 1
	}
	return math.Pow(2, cents/1200)
}

// ----- Oscillator ----- //

type oscillator struct {
	enabled   bool
	wavetable *Wavetable

	freePhase    bool    // keep running across note retriggers
	initialPhase float64 // radians

	freqToTableIncr float64
	tableIncr       float64
	tableOffset     float64

	amplitude float64
	ampMod    float64

	baseFrequency float64
	octaves       float64
	semitones     float64
	detune        float64

	frequency float64
	freqMod   float64 // last frequency modulation input, in Hz
	phaseMod  float64 // freqMod converted to table units
}

func newOscillator(sampleRate float64, wavetable *Wavetable, baseFrequency float64) *oscillator {
	o := &oscillator{}
	o.init(sampleRate, wavetable, baseFrequency)
	return o
}

func (o *oscillator) init(sampleRate float64, wavetable *Wavetable, baseFrequency float64) {
	*o = oscillator{
		enabled:         true,
		wavetable:       wavetable,
		freqToTableIncr: float64(wavetable.Size()) / sampleRate,
		amplitude:       1,
		ampMod:          1,
		baseFrequency:   baseFrequency,
	}
	o.resetPhase()
	o.updateFrequency()
}

func (o *oscillator) reset() {
	if !o.freePhase {
		o.resetPhase()
	}
	o.ampMod = 1
	o.freqMod = 0
	o.phaseMod = 0
}

func (o *oscillator) resetPhase() {
	size := float64(o.wavetable.Size())
	o.tableOffset = positiveMod(o.initialPhase/(2*math.Pi)*size, size)
}

func (o *oscillator) updateFrequency() {
	o.frequency = o.baseFrequency * pitchScale(o.octaves, o.semitones, o.detune)
	if !(o.frequency >= 0) || math.IsInf(o.frequency, 1) {
		o.frequency = 0
	}
	o.tableIncr = o.frequency * o.freqToTableIncr
}

func (o *oscillator) setWavetable(wt *Wavetable) {
	if wt == o.wavetable {
		return
	}
	// keep the relative phase when the table size changes
	ratio := float64(wt.Size()) / float64(o.wavetable.Size())
	o.tableOffset *= ratio
	o.freqToTableIncr *= ratio
	o.phaseMod *= ratio
	o.wavetable = wt
	o.updateFrequency()
}

func (o *oscillator) setInitialPhase(phase float64) {
	o.initialPhase = phase
}

func (o *oscillator) setBaseFrequency(freq float64) {
	if o.baseFrequency != freq {
		o.baseFrequency = freq
		o.updateFrequency()
	}
}

func (o *oscillator) setPitch(octaves, semitones, detune float64) {
	if o.octaves != octaves || o.semitones != semitones || o.detune != detune {
		o.octaves = octaves
		o.semitones = semitones
		o.detune = detune
		o.updateFrequency()
	}
}

func (o *oscillator) setAmplitudeModulation(value float64) {
	o.ampMod = value
}

func (o *oscillator) setFrequencyModulation(value float64) {
	o.freqMod = value
	o.phaseMod = value * o.freqToTableIncr
}

func (o *oscillator) process() float64 {
	size := float64(o.wavetable.Size())
	if !(o.tableOffset >= 0 && o.tableOffset < size) {
		if isFinite(o.tableOffset) {
			o.tableOffset = positiveMod(o.tableOffset, size)
		} else {
			o.tableOffset = 0
		}
	}
	value := 0.0
	if o.enabled && o.amplitude > 0 {
		value = o.amplitude * o.ampMod * o.wavetable.Value(o.tableOffset)
	}
	o.tableOffset += o.tableIncr + o.phaseMod
	return value
}

// positiveMod wraps a into [0, b).
func positiveMod(a float64, b float64) float64 {
	if b <= 0 {
		panic("b should be positive")
	}
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	if m >= b {
		m = 0
	}
	return m
}
