package audio

import "math"

const (
	numKeys  = 128
	modIndex = 6.0
)

var keyFrequencies = makeKeyFrequencies()

// equal temperament, A4 (key 69) = 440Hz
func makeKeyFrequencies() [numKeys]float64 {
	var freqs [numKeys]float64
	for key := range freqs {
		freqs[key] = 440 * math.Pow(2, float64(key-69)/12)
	}
	return freqs
}

func keyFrequency(key int) float64 {
	return keyFrequencies[key&0x7f]
}

// ----- Voice ----- //

type voiceOscillator struct {
	osc        oscillator
	panning    panning
	level      float64
	fixedFreq  bool
	amSend     SendLevels
	fmSend     SendLevels
	filterSend [MaxFilters]float64
}

type voiceFilter struct {
	iir     iirFilter
	panning panning
	level   float64
}

// voice is one key's instance of the patch. All state is held in fixed-size
// arrays so that processing never allocates.
type voice struct {
	key          int
	keyFrequency float64
	velocity     float64 // 0 = inactive
	version      uint64  // last applied patch version
	bank         *WavetableBank

	numOscillators int
	oscillators    [MaxOscillators]voiceOscillator
	numFilters     int
	filters        [MaxFilters]voiceFilter

	// per sample scratch
	signals  [MaxOscillators]float64
	ampMod   [MaxOscillators]float64
	freqMod  [MaxOscillators]float64
	filterIn [MaxFilters]float64
}

func (v *voice) init(sampleRate float64, bank *WavetableBank, key int) {
	sin := bank.Get(wavetableSin)
	v.key = key
	v.keyFrequency = keyFrequency(key)
	v.velocity = 0
	v.version = 0
	v.bank = bank
	for i := range v.oscillators {
		vo := &v.oscillators[i]
		vo.osc.init(sampleRate, sin, v.keyFrequency)
		vo.osc.enabled = false
		vo.panning.init(sin, 0)
	}
	for i := range v.filters {
		vf := &v.filters[i]
		vf.iir.init(sampleRate)
		vf.panning.init(sin, 0)
	}
}

// reset clears phases, modulation and filter delays.
func (v *voice) reset() {
	for i := range v.oscillators {
		v.oscillators[i].osc.reset()
	}
	for i := range v.filters {
		v.filters[i].iir.reset()
	}
}

func (v *voice) applyPatch(p *Patch) {
	v.numOscillators = p.NumOscillators
	for i := 0; i < MaxOscillators; i++ {
		vo := &v.oscillators[i]
		if i >= p.NumOscillators {
			vo.osc.enabled = false
			vo.level = 0
			vo.amSend = SendLevels{}
			vo.fmSend = SendLevels{}
			vo.filterSend = [MaxFilters]float64{}
			continue
		}
		op := &p.Oscillators[i]
		o := &vo.osc
		o.enabled = op.Enabled
		o.freePhase = op.FreePhase
		o.amplitude = op.Amplitude
		o.setInitialPhase(op.InitialPhase)
		o.setWavetable(v.bank.Get(op.Wavetable))
		o.setPitch(float64(op.Octaves), float64(op.Semitones), op.Detune)
		vo.fixedFreq = op.FixedFreq
		if op.FixedFreq {
			o.setBaseFrequency(op.BaseFrequency)
		} else {
			o.setBaseFrequency(v.keyFrequency)
		}
		vo.panning.set(op.Panning)
		vo.level = op.Level
		vo.amSend = op.AMSend
		vo.fmSend = op.FMSend
		vo.filterSend = op.FilterSend
	}
	v.numFilters = p.NumFilters
	for i := 0; i < MaxFilters; i++ {
		vf := &v.filters[i]
		if i >= p.NumFilters {
			vf.iir.setEnabled(false)
			vf.level = 0
			continue
		}
		fp := &p.Filters[i]
		vf.iir.setEnabled(fp.Enabled)
		vf.iir.setDesign(fp.Design)
		vf.iir.setSlope(fp.Slope)
		vf.iir.setCutoff(fp.Cutoff)
		vf.iir.setResonance(fp.Resonance)
		vf.panning.set(fp.Panning)
		vf.level = fp.Level
	}
	v.version = p.Version
}

func (v *voice) syncPatch(p *Patch) {
	if v.version != p.Version {
		v.applyPatch(p)
	}
}

// noteOn brings the voice to the current patch before resetting, so the
// phases start from the patch's initial phases.
func (v *voice) noteOn(p *Patch, velocity float64) {
	v.syncPatch(p)
	v.reset()
	v.applyKeyFrequency()
	v.velocity = velocity
}

func (v *voice) applyKeyFrequency() {
	for i := 0; i < v.numOscillators; i++ {
		vo := &v.oscillators[i]
		if !vo.fixedFreq {
			vo.osc.setBaseFrequency(v.keyFrequency)
		}
	}
}

// process renders one stereo sample. Modulation computed from this sample's
// signals takes effect on the next sample.
func (v *voice) process() (float64, float64) {
	n := v.numOscillators
	if n == 0 {
		return 0, 0
	}
	for i := 0; i < n; i++ {
		v.ampMod[i] = 1
		v.freqMod[i] = 0
	}
	for f := 0; f < v.numFilters; f++ {
		v.filterIn[f] = 0
	}
	for i := 0; i < n; i++ {
		vo := &v.oscillators[i]
		signal := vo.osc.process()
		v.signals[i] = signal
		for j := 0; j < n; j++ {
			if level := vo.amSend[j]; level != 0 {
				v.ampMod[j] += signal * level
			}
			if level := vo.fmSend[j]; level != 0 {
				v.freqMod[j] += signal * modIndex * vo.osc.baseFrequency * level
			}
		}
		for f := 0; f < v.numFilters; f++ {
			if level := vo.filterSend[f]; level != 0 {
				v.filterIn[f] += signal * level
			}
		}
	}
	left, right := 0.0, 0.0
	for i := 0; i < n; i++ {
		vo := &v.oscillators[i]
		vo.osc.setAmplitudeModulation(v.ampMod[i])
		vo.osc.setFrequencyModulation(v.freqMod[i])
		if vo.level > 0 {
			l, r := vo.panning.process(v.signals[i])
			left += l * vo.level
			right += r * vo.level
		}
	}
	for f := 0; f < v.numFilters; f++ {
		vf := &v.filters[f]
		if !vf.iir.enabled {
			continue
		}
		out := vf.iir.process(v.filterIn[f])
		if vf.level > 0 {
			l, r := vf.panning.process(out)
			left += l * vf.level
			right += r * vf.level
		}
	}
	scale := v.velocity / float64(n)
	return left * scale, right * scale
}
