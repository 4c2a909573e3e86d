package audio

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

const (
	// MaxOscillators ...
	MaxOscillators = 8
	// MaxFilters ...
	MaxFilters = 2
	// MaxDetune bounds OscillatorPatch.Detune, in cents.
	MaxDetune = 1200
)

// SendLevels routes a signal into other oscillators, indexed by destination.
// A zero level means no route.
type SendLevels [MaxOscillators]float64

// ----- Patch ----- //

// OscillatorPatch ...
type OscillatorPatch struct {
	Enabled       bool
	Wavetable     string
	InitialPhase  float64 // radians
	Amplitude     float64
	FreePhase     bool
	FixedFreq     bool    // base frequency does not follow the key
	BaseFrequency float64 // used when FixedFreq
	Octaves       int
	Semitones     int
	Detune        float64 // cents
	AMSend        SendLevels
	FMSend        SendLevels
	FilterSend    [MaxFilters]float64
	Panning       float64 // -1 ~ 1
	Level         float64 // mix level, -1 ~ 1
}

// FilterPatch ...
type FilterPatch struct {
	Enabled   bool
	Design    FilterDesign
	Slope     FilterSlope
	Cutoff    float64
	Resonance float64 // 0 ~ 1
	Panning   float64
	Level     float64
}

// Patch describes the oscillator/filter graph shared by every voice.
// A published Patch is never mutated; changes produce a new revision with a
// higher Version.
type Patch struct {
	Version        uint64
	NumOscillators int
	Oscillators    [MaxOscillators]OscillatorPatch
	NumFilters     int
	Filters        [MaxFilters]FilterPatch
}

// DefaultOscillatorPatch ...
func DefaultOscillatorPatch() OscillatorPatch {
	return OscillatorPatch{
		Enabled:       true,
		Wavetable:     wavetableSin,
		Amplitude:     1,
		BaseFrequency: 440,
		Level:         1,
	}
}

func silentOscillatorPatch() OscillatorPatch {
	o := DefaultOscillatorPatch()
	o.Enabled = false
	o.Level = 0
	return o
}

// DefaultFilterPatch ...
func DefaultFilterPatch() FilterPatch {
	return FilterPatch{
		Enabled:   false,
		Design:    FilterLowpass,
		Slope:     Slope12,
		Cutoff:    1000,
		Resonance: 0.3,
		Level:     1,
	}
}

// DefaultPatch is a carrier with two slow fixed-frequency modulators in an
// FM chain (osc 2 -> osc 3 -> osc 1).
func DefaultPatch() *Patch {
	p := &Patch{Version: 1, NumOscillators: 3}
	for i := range p.Oscillators {
		p.Oscillators[i] = silentOscillatorPatch()
	}
	for i := range p.Filters {
		p.Filters[i] = DefaultFilterPatch()
	}
	p.Oscillators[0] = DefaultOscillatorPatch()

	o1 := DefaultOscillatorPatch()
	o1.Level = 0
	o1.FixedFreq = true
	o1.BaseFrequency = 1.0 / 4.0
	o1.Amplitude = 16 * o1.BaseFrequency
	o1.FMSend[2] = 1
	p.Oscillators[1] = o1

	o2 := DefaultOscillatorPatch()
	o2.Level = 0
	o2.FixedFreq = true
	o2.BaseFrequency = 2
	o2.Amplitude = 16 * o2.BaseFrequency
	o2.FMSend[0] = 1
	p.Oscillators[2] = o2
	return p
}

// Clone returns an unpublished copy.
func (p *Patch) Clone() *Patch {
	c := *p
	return &c
}

// declareOscillator makes slot i part of the patch, padding any slots in
// between with silent oscillators.
func (p *Patch) declareOscillator(i int) *OscillatorPatch {
	if i < 0 || i >= MaxOscillators {
		panic(fmt.Sprintf("oscillator index out of range: %d", i))
	}
	for ; p.NumOscillators <= i; p.NumOscillators++ {
		p.Oscillators[p.NumOscillators] = silentOscillatorPatch()
	}
	return &p.Oscillators[i]
}

func (p *Patch) declareFilter(i int) *FilterPatch {
	if i < 0 || i >= MaxFilters {
		panic(fmt.Sprintf("filter index out of range: %d", i))
	}
	for ; p.NumFilters <= i; p.NumFilters++ {
		p.Filters[p.NumFilters] = DefaultFilterPatch()
	}
	return &p.Filters[i]
}

// Validate ...
func (p *Patch) Validate() error {
	if p.NumOscillators < 0 || p.NumOscillators > MaxOscillators {
		return fmt.Errorf("too many oscillators: %d", p.NumOscillators)
	}
	if p.NumFilters < 0 || p.NumFilters > MaxFilters {
		return fmt.Errorf("too many filters: %d", p.NumFilters)
	}
	for i := 0; i < p.NumOscillators; i++ {
		o := &p.Oscillators[i]
		if !inRange(o.Panning, -1, 1) {
			return fmt.Errorf("oscillator %d: panning out of range: %v", i+1, o.Panning)
		}
		if !inRange(o.Detune, -MaxDetune, MaxDetune) {
			return fmt.Errorf("oscillator %d: detune out of range: %v", i+1, o.Detune)
		}
		if !isFinite(o.Amplitude) || !isFinite(o.BaseFrequency) || !isFinite(o.Detune) || !isFinite(o.InitialPhase) || !isFinite(o.Level) {
			return fmt.Errorf("oscillator %d: non-finite parameter", i+1)
		}
	}
	for i := 0; i < p.NumFilters; i++ {
		f := &p.Filters[i]
		if f.Slope != Slope12 && f.Slope != Slope24 {
			return fmt.Errorf("filter %d: invalid slope", i+1)
		}
		if !inRange(f.Panning, -1, 1) || !inRange(f.Resonance, 0, 1) {
			return fmt.Errorf("filter %d: parameter out of range", i+1)
		}
	}
	return nil
}

func inRange(v, min, max float64) bool {
	return v >= min && v <= max
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ----- YAML ----- //

type oscillatorYAML struct {
	Enabled       bool            `yaml:"enabled"`
	Wavetable     string          `yaml:"wavetable"`
	InitialPhase  float64         `yaml:"initial_phase,omitempty"`
	Amplitude     float64         `yaml:"amplitude"`
	FreePhase     bool            `yaml:"free_phase,omitempty"`
	FixedFreq     bool            `yaml:"fixed_freq,omitempty"`
	BaseFrequency float64         `yaml:"base_frequency,omitempty"`
	Octaves       int             `yaml:"octaves,omitempty"`
	Semitones     int             `yaml:"semitones,omitempty"`
	Detune        float64         `yaml:"detune,omitempty"`
	AMSend        map[int]float64 `yaml:"am_send,omitempty,flow"`
	FMSend        map[int]float64 `yaml:"fm_send,omitempty,flow"`
	FilterSend    map[int]float64 `yaml:"filter_send,omitempty,flow"`
	Panning       float64         `yaml:"panning,omitempty"`
	Level         float64         `yaml:"level"`
}

type filterYAML struct {
	Enabled   bool         `yaml:"enabled"`
	Design    FilterDesign `yaml:"design"`
	Slope     FilterSlope  `yaml:"slope"`
	Cutoff    float64      `yaml:"cutoff"`
	Resonance float64      `yaml:"resonance"`
	Panning   float64      `yaml:"panning,omitempty"`
	Level     float64      `yaml:"level"`
}

type patchYAML struct {
	Oscillators []oscillatorYAML `yaml:"oscillators"`
	Filters     []filterYAML     `yaml:"filters,omitempty"`
}

// send maps are 1-based like the control surface
func sendsToYAML(levels []float64) map[int]float64 {
	var m map[int]float64
	for i, level := range levels {
		if level != 0 {
			if m == nil {
				m = make(map[int]float64)
			}
			m[i+1] = level
		}
	}
	return m
}

func sendsFromYAML(m map[int]float64, levels []float64) error {
	for index, level := range m {
		if index < 1 || index > len(levels) {
			return fmt.Errorf("send index out of range: %d", index)
		}
		levels[index-1] = level
	}
	return nil
}

func (p *Patch) toYAML() *patchYAML {
	j := &patchYAML{}
	for i := 0; i < p.NumOscillators; i++ {
		o := &p.Oscillators[i]
		j.Oscillators = append(j.Oscillators, oscillatorYAML{
			Enabled:       o.Enabled,
			Wavetable:     o.Wavetable,
			InitialPhase:  o.InitialPhase,
			Amplitude:     o.Amplitude,
			FreePhase:     o.FreePhase,
			FixedFreq:     o.FixedFreq,
			BaseFrequency: o.BaseFrequency,
			Octaves:       o.Octaves,
			Semitones:     o.Semitones,
			Detune:        o.Detune,
			AMSend:        sendsToYAML(o.AMSend[:]),
			FMSend:        sendsToYAML(o.FMSend[:]),
			FilterSend:    sendsToYAML(o.FilterSend[:]),
			Panning:       o.Panning,
			Level:         o.Level,
		})
	}
	for i := 0; i < p.NumFilters; i++ {
		f := &p.Filters[i]
		j.Filters = append(j.Filters, filterYAML{
			Enabled:   f.Enabled,
			Design:    f.Design,
			Slope:     f.Slope,
			Cutoff:    f.Cutoff,
			Resonance: f.Resonance,
			Panning:   f.Panning,
			Level:     f.Level,
		})
	}
	return j
}

func (p *Patch) applyYAML(j *patchYAML) error {
	if len(j.Oscillators) > MaxOscillators {
		return fmt.Errorf("too many oscillators: %d", len(j.Oscillators))
	}
	if len(j.Filters) > MaxFilters {
		return fmt.Errorf("too many filters: %d", len(j.Filters))
	}
	p.NumOscillators = 0
	p.NumFilters = 0
	for i := range p.Oscillators {
		p.Oscillators[i] = silentOscillatorPatch()
	}
	for i := range p.Filters {
		p.Filters[i] = DefaultFilterPatch()
	}
	for i, jo := range j.Oscillators {
		o := p.declareOscillator(i)
		*o = OscillatorPatch{
			Enabled:       jo.Enabled,
			Wavetable:     jo.Wavetable,
			InitialPhase:  jo.InitialPhase,
			Amplitude:     jo.Amplitude,
			FreePhase:     jo.FreePhase,
			FixedFreq:     jo.FixedFreq,
			BaseFrequency: jo.BaseFrequency,
			Octaves:       jo.Octaves,
			Semitones:     jo.Semitones,
			Detune:        jo.Detune,
			Panning:       jo.Panning,
			Level:         jo.Level,
		}
		if o.Wavetable == "" {
			o.Wavetable = wavetableSin
		}
		if err := sendsFromYAML(jo.AMSend, o.AMSend[:]); err != nil {
			return fmt.Errorf("oscillator %d am_send: %w", i+1, err)
		}
		if err := sendsFromYAML(jo.FMSend, o.FMSend[:]); err != nil {
			return fmt.Errorf("oscillator %d fm_send: %w", i+1, err)
		}
		if err := sendsFromYAML(jo.FilterSend, o.FilterSend[:]); err != nil {
			return fmt.Errorf("oscillator %d filter_send: %w", i+1, err)
		}
	}
	for i, jf := range j.Filters {
		f := p.declareFilter(i)
		*f = FilterPatch{
			Enabled:   jf.Enabled,
			Design:    jf.Design,
			Slope:     jf.Slope,
			Cutoff:    jf.Cutoff,
			Resonance: jf.Resonance,
			Panning:   jf.Panning,
			Level:     jf.Level,
		}
		if f.Slope == 0 {
			f.Slope = Slope12
		}
	}
	return p.Validate()
}

// MarshalYAML ...
func (p *Patch) MarshalYAML() (interface{}, error) {
	return p.toYAML(), nil
}

// UnmarshalYAML ...
func (p *Patch) UnmarshalYAML(value *yaml.Node) error {
	var j patchYAML
	if err := value.Decode(&j); err != nil {
		return err
	}
	return p.applyYAML(&j)
}
