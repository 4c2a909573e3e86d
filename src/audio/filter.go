package audio

import (
	"fmt"
	"math"
)

// ----- Filter Design ----- //

// FilterDesign ...
type FilterDesign int

// FilterDesign values
const (
	FilterLowpass FilterDesign = iota
	FilterHighpass
	FilterBandpass
	FilterBandstop
)

var filterDesignNames = [...]string{"lowpass", "highpass", "bandpass", "bandstop"}

func (d FilterDesign) String() string {
	if d < 0 || int(d) >= len(filterDesignNames) {
		return fmt.Sprintf("FilterDesign(%d)", int(d))
	}
	return filterDesignNames[d]
}

// ParseFilterDesign ...
func ParseFilterDesign(s string) (FilterDesign, error) {
	for i, name := range filterDesignNames {
		if name == s {
			return FilterDesign(i), nil
		}
	}
	return 0, fmt.Errorf("unknown filter design %q", s)
}

// MarshalText ...
func (d FilterDesign) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText ...
func (d *FilterDesign) UnmarshalText(text []byte) error {
	v, err := ParseFilterDesign(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// FilterSlope is the number of cascaded biquad stages.
type FilterSlope int

// FilterSlope values
const (
	Slope12 FilterSlope = 1
	Slope24 FilterSlope = 2
)

// DecibelsPerOctave ...
func (s FilterSlope) DecibelsPerOctave() int {
	return int(s) * 12
}

// ParseFilterSlope accepts 12 or 24.
func ParseFilterSlope(dbPerOctave int) (FilterSlope, error) {
	switch dbPerOctave {
	case 12:
		return Slope12, nil
	case 24:
		return Slope24, nil
	}
	return 0, fmt.Errorf("unsupported slope %d dB/oct", dbPerOctave)
}

// MarshalYAML ...
func (s FilterSlope) MarshalYAML() (interface{}, error) {
	return s.DecibelsPerOctave(), nil
}

// UnmarshalYAML ...
func (s *FilterSlope) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var db int
	if err := unmarshal(&db); err != nil {
		return err
	}
	v, err := ParseFilterSlope(db)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ----- IIR Filter ----- //

const (
	filterFreqMin   = 10.0
	filterFreqDelta = 0.01
)

type iirCoeffs struct {
	a0, a1, a2 float64 // feedforward
	b1, b2     float64 // feedback
}

// iirFilter is one or two biquads sharing coefficients, each with its own
// pair of delay registers (transposed direct form II).
type iirFilter struct {
	sampleRate float64
	enabled    bool
	design     FilterDesign
	slope      FilterSlope
	cutoff     float64
	resonance  float64

	coeffs iirCoeffs
	v      [4]float64

	coeffsDirty bool
	delaysDirty bool
}

func newIIRFilter(sampleRate float64) *iirFilter {
	f := &iirFilter{}
	f.init(sampleRate)
	return f
}

func (f *iirFilter) init(sampleRate float64) {
	*f = iirFilter{
		sampleRate:  sampleRate,
		design:      FilterLowpass,
		slope:       Slope12,
		cutoff:      limitFilterFreq(1000, sampleRate),
		coeffsDirty: true,
		delaysDirty: true,
	}
}

func limitFilterFreq(freq float64, sampleRate float64) float64 {
	return math.Max(filterFreqMin, math.Min(freq, (sampleRate-1)/2))
}

func (f *iirFilter) reset() {
	f.v = [4]float64{}
	f.delaysDirty = false
}

func (f *iirFilter) setEnabled(enabled bool) {
	if f.enabled != enabled {
		f.enabled = enabled
		if enabled {
			f.delaysDirty = true
		}
	}
}

func (f *iirFilter) setDesign(design FilterDesign) {
	if f.design != design {
		f.design = design
		f.coeffsDirty = true
		f.delaysDirty = true
	}
}

func (f *iirFilter) setSlope(slope FilterSlope) {
	if slope != Slope12 && slope != Slope24 {
		panic(fmt.Sprintf("invalid filter slope %d", slope))
	}
	if f.slope != slope {
		f.slope = slope
		f.delaysDirty = true
	}
}

func (f *iirFilter) setCutoff(freq float64) {
	freq = limitFilterFreq(freq, f.sampleRate)
	if math.Abs(f.cutoff-freq) >= filterFreqDelta {
		f.cutoff = freq
		f.coeffsDirty = true
	}
}

func (f *iirFilter) setResonance(res float64) {
	if f.resonance != res {
		f.resonance = res
		f.coeffsDirty = true
	}
}

func (f *iirFilter) updateCoeffs() {
	w := f.cutoff / f.sampleRate
	r := math.Max(0.001, 2*(1-f.resonance))
	k := math.Tan(w * math.Pi)
	k2 := k * k
	rk := r * k
	bh := 1 + rk + k2
	c := &f.coeffs
	switch f.design {
	case FilterLowpass:
		c.a0 = k2 / bh
		c.a1 = 2 * c.a0
		c.a2 = c.a0
	case FilterHighpass:
		c.a0 = 1 / bh
		c.a1 = -2 / bh
		c.a2 = c.a0
	case FilterBandpass:
		c.a0 = rk / bh
		c.a1 = 0
		c.a2 = -rk / bh
	case FilterBandstop:
		c.a0 = (1 + k2) / bh
		c.a1 = 2 * (k2 - 1) / bh
		c.a2 = c.a0
	}
	c.b1 = 2 * (k2 - 1) / bh
	c.b2 = (1 - rk + k2) / bh
	f.coeffsDirty = false
}

func (f *iirFilter) process(signal float64) float64 {
	if !f.enabled {
		return signal
	}
	if f.coeffsDirty {
		f.updateCoeffs()
	}
	if f.delaysDirty {
		f.reset()
	}
	c := &f.coeffs
	out := c.a0*signal + f.v[0]
	f.v[0] = c.a1*signal - c.b1*out + f.v[1]
	f.v[1] = c.a2*signal - c.b2*out
	if f.slope == Slope24 {
		in := out
		out = c.a0*in + f.v[2]
		f.v[2] = c.a1*in - c.b1*out + f.v[3]
		f.v[3] = c.a2*in - c.b2*out
	}
	return out
}

// ----- Response ----- //

func impulseResponse(f *iirFilter, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		in := 0.0
		if i == 0 {
			in = 1
		}
		out[i] = f.process(in)
	}
	return out
}

// frequencyResponse returns |H| for the lower half of an n-point FFT of the
// filter's impulse response. The filter's delays are consumed.
func frequencyResponse(f *iirFilter, n int) []float64 {
	h := impulseResponse(f, n)
	NewFFT(n, false).CalcAbs(h)
	return h[:n/2]
}
