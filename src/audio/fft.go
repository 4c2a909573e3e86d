package audio

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FFT is an in-place radix-2 transform of a fixed power-of-two length. It
// keeps its own work buffer, so a single FFT must not be shared between
// goroutines.
type FFT struct {
	n       int
	swaps   [][2]int     // bit reversal permutation as swap pairs
	twiddle []complex128 // e^(-2πik/n) for k < n/2
	inverse bool
	work    []complex128
}

// NewFFT ...
func NewFFT(length int, inverse bool) *FFT {
	if length < 2 || length&(length-1) != 0 {
		panic(fmt.Sprintf("FFT length should be a power of two, got %d", length))
	}
	fft := &FFT{
		n:       length,
		twiddle: make([]complex128, length/2),
		inverse: inverse,
		work:    make([]complex128, length),
	}
	for i := 0; i < length; i++ {
		if rev := bitReverse(i, length); i < rev {
			fft.swaps = append(fft.swaps, [2]int{i, rev})
		}
	}
	sign := -1.0
	if inverse {
		sign = 1
	}
	for k := range fft.twiddle {
		sin, cos := math.Sincos(sign * 2 * math.Pi * float64(k) / float64(length))
		fft.twiddle[k] = complex(cos, sin)
	}
	return fft
}

// Len ...
func (fft *FFT) Len() int {
	return fft.n
}

// bitReverse reverses the lowest log2(n) bits of k.
func bitReverse(k, n int) int {
	m := 0
	for ; n > 1; n >>= 1 {
		m = m<<1 | k&1
		k >>= 1
	}
	return m
}

// Calc transforms x in place. The inverse transform is scaled by 1/n.
func (fft *FFT) Calc(x []complex128) {
	if len(x) != fft.n {
		panic(fmt.Sprintf("length should be %v, got %v", fft.n, len(x)))
	}
	for _, s := range fft.swaps {
		x[s[0]], x[s[1]] = x[s[1]], x[s[0]]
	}
	for half := 1; half < fft.n; half <<= 1 {
		stride := fft.n / (half << 1)
		for start := 0; start < fft.n; start += half << 1 {
			for k := 0; k < half; k++ {
				a, b := start+k, start+k+half
				t := x[b] * fft.twiddle[k*stride]
				x[b] = x[a] - t
				x[a] += t
			}
		}
	}
	if fft.inverse {
		scale := complex(1/float64(fft.n), 0)
		for i := range x {
			x[i] *= scale
		}
	}
}

func (fft *FFT) load(x []float64) []complex128 {
	if len(x) != fft.n {
		panic(fmt.Sprintf("length should be %v, got %v", fft.n, len(x)))
	}
	for i, v := range x {
		fft.work[i] = complex(v, 0)
	}
	fft.Calc(fft.work)
	return fft.work
}

// CalcReal replaces x with the real part of its transform.
func (fft *FFT) CalcReal(x []float64) []float64 {
	for i, c := range fft.load(x) {
		x[i] = real(c)
	}
	return x
}

// CalcAbs replaces x with the magnitude of its transform.
func (fft *FFT) CalcAbs(x []float64) []float64 {
	for i, c := range fft.load(x) {
		x[i] = cmplx.Abs(c)
	}
	return x
}
