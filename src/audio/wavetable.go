package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
)

const wavetableSize = 1 << 14

// ----- Wavetable ----- //

// Wavetable is one cycle of a waveform. It is never mutated after creation.
type Wavetable struct {
	values []float64
}

// NewWavetable ...
func NewWavetable(values []float64) *Wavetable {
	n := len(values)
	if n < 2 || n&(n-1) != 0 {
		panic(fmt.Sprintf("wavetable size should be a power of two >= 2, got %d", n))
	}
	copied := make([]float64, n)
	copy(copied, values)
	return &Wavetable{values: copied}
}

func generateWavetable(samples int, phaseToValue func(phase float64) float64) *Wavetable {
	values := make([]float64, samples)
	for i := 0; i < samples; i++ {
		phase := 2.0 * math.Pi / float64(samples) * float64(i)
		values[i] = phaseToValue(phase)
	}
	return NewWavetable(values)
}

// Size ...
func (wt *Wavetable) Size() int {
	return len(wt.values)
}

// At returns the raw table entry.
func (wt *Wavetable) At(i int) float64 {
	return wt.values[i]
}

// Value reads the table at a fractional offset in [0, Size()) with linear
// interpolation towards the next entry, wrapping at the end.
func (wt *Wavetable) Value(offset float64) float64 {
	length := len(wt.values)
	index := int(offset)
	if offset < 0 || index >= length {
		panic(fmt.Sprintf("wavetable offset out of range: %v", offset))
	}
	value := wt.values[index]
	next := wt.values[(index+1)&(length-1)]
	return value + (offset-float64(index))*(next-value)
}

// IO
//   table = { number_of_samples int32, samples []float64 }

// Save ...
func (wt *Wavetable) Save(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, int32(len(wt.values))); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, wt.values)
}

// LoadWavetable ...
func LoadWavetable(r io.Reader) (*Wavetable, error) {
	var numSamples int32
	if err := binary.Read(r, binary.BigEndian, &numSamples); err != nil {
		return nil, err
	}
	if numSamples < 2 || numSamples&(numSamples-1) != 0 {
		return nil, fmt.Errorf("invalid number of samples: %d", numSamples)
	}
	values := make([]float64, numSamples)
	if err := binary.Read(r, binary.BigEndian, values); err != nil {
		return nil, err
	}
	return &Wavetable{values: values}, nil
}

// ----- Stock Waveforms ----- //

const (
	wavetableSin = "sin"
	wavetableSaw = "saw"
)

var wavetableNames = []string{wavetableSin, wavetableSaw}

// MakeSinWavetable ...
func MakeSinWavetable(samples int) *Wavetable {
	return generateWavetable(samples, math.Sin)
}

// MakeSawWavetable builds a naive rising ramp from -1.
func MakeSawWavetable(samples int) *Wavetable {
	return generateWavetable(samples, func(phase float64) float64 {
		return -1.0 + phase/math.Pi
	})
}

var stockOnce sync.Once
var stockSin, stockSaw *Wavetable

func stockWavetables() (*Wavetable, *Wavetable) {
	stockOnce.Do(func() {
		stockSin = MakeSinWavetable(wavetableSize)
		stockSaw = MakeSawWavetable(wavetableSize)
	})
	return stockSin, stockSaw
}

// ----- Wavetable Bank ----- //

// WavetableBank maps waveform names to shared tables.
type WavetableBank struct {
	tables map[string]*Wavetable
}

// NewWavetableBank loads "<name>.wt" files from dir, or uses the built-in
// tables when dir is empty.
func NewWavetableBank(dir string) (*WavetableBank, error) {
	sin, saw := stockWavetables()
	bank := &WavetableBank{
		tables: map[string]*Wavetable{
			wavetableSin: sin,
			wavetableSaw: saw,
		},
	}
	if dir == "" {
		return bank, nil
	}
	for _, name := range wavetableNames {
		wt, err := loadWavetableFile(filepath.Join(dir, name+".wt"))
		if err != nil {
			return nil, fmt.Errorf("failed to load wavetable %q: %w", name, err)
		}
		bank.tables[name] = wt
	}
	return bank, nil
}

func loadWavetableFile(path string) (*Wavetable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadWavetable(file)
}

// Get returns the table for name, falling back to the sine table.
func (b *WavetableBank) Get(name string) *Wavetable {
	if wt, ok := b.tables[name]; ok {
		return wt
	}
	return b.tables[wavetableSin]
}

// Has ...
func (b *WavetableBank) Has(name string) bool {
	_, ok := b.tables[name]
	return ok
}
