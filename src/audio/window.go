package audio

import (
	"fmt"
	"math"
	"sync"
)

// WindowFunc multiplies data by a window in place.
type WindowFunc func(data []float64)

// Windows are periodic cosine sums: w(x) = a0 - a1 cos(2πx) + a2 cos(4πx).
var (
	Han      = cosineWindow(0.5, 0.5, 0)
	Hamming  = cosineWindow(0.54, 0.46, 0)
	Blackman = cosineWindow(0.42, 0.5, 0.08)
)

// ParseWindow ...
func ParseWindow(name string) (WindowFunc, error) {
	switch name {
	case "han", "hanning":
		return Han, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	}
	return nil, fmt.Errorf("unknown window %q", name)
}

// cosineWindow caches one coefficient table per data length.
func cosineWindow(a0, a1, a2 float64) WindowFunc {
	var mu sync.Mutex
	tables := map[int][]float64{}
	table := func(n int) []float64 {
		mu.Lock()
		defer mu.Unlock()
		if w, ok := tables[n]; ok {
			return w
		}
		w := make([]float64, n)
		for i := range w {
			x := 2 * math.Pi * float64(i) / float64(n)
			w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
		}
		tables[n] = w
		return w
	}
	return func(data []float64) {
		for i, w := range table(len(data)) {
			data[i] *= w
		}
	}
}
