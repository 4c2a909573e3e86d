package audio

// ----- Panning ----- //

// panning is a constant power pan law read from the first quarter of a sine table.
type panning struct {
	wavetable *Wavetable
	value     float64
	left      float64
	right     float64
}

func newPanning(sin *Wavetable, value float64) *panning {
	p := &panning{}
	p.init(sin, value)
	return p
}

func (p *panning) init(sin *Wavetable, value float64) {
	p.wavetable = sin
	p.value = value
	p.update()
}

func (p *panning) set(value float64) {
	if p.value != value {
		p.value = value
		p.update()
	}
}

func (p *panning) update() {
	size := float64(p.wavetable.Size())
	p.left = p.wavetable.Value((1.0 - p.value) / 8.0 * size)
	p.right = p.wavetable.Value((1.0 + p.value) / 8.0 * size)
}

func (p *panning) process(signal float64) (float64, float64) {
	return signal * p.left, signal * p.right
}
