package audio

import (
	"context"
	"io"
	"log"
	"math"
	"sync"

	"github.com/hajimehoshi/oto"
	"github.com/viterin/vek/vek32"
)

const (
	channelNum        = 2
	bitDepthInBytes   = 2
	bytesPerFrame     = bitDepthInBytes * channelNum
	minPlayerBuffer   = 4096
	spectrumSize      = 2048
	defaultMasterGain = 0.25
)

// ----- Audio ----- //

// Audio pulls blocks from an Engine and feeds them to the sound device as
// 16-bit interleaved PCM.
type Audio struct {
	ctx        context.Context
	otoContext *oto.Context
	engine     *Engine
	clock      *Clock

	blockFrames   int
	blockDuration int64 // ns
	nextStart     int64
	gain          float32

	left  []float32
	right []float32
	abs   []float32
	pcm   []byte
	pos   int // read position in pcm

	mu      sync.Mutex
	peakL   float32
	peakR   float32
	ring    []float64 // mono history, length: spectrumSize
	ringPos int

	fftMu  sync.Mutex // FFT keeps a work buffer
	fft    *FFT
	window WindowFunc
}

var _ io.Reader = (*Audio)(nil)

// NewAudio opens the default output device.
func NewAudio(engine *Engine, clock *Clock, blockFrames int, gain float64) (*Audio, error) {
	a := newAudio(engine, clock, blockFrames, gain)
	bufferSize := blockFrames * bytesPerFrame
	if bufferSize < minPlayerBuffer {
		bufferSize = minPlayerBuffer
	}
	otoContext, err := oto.NewContext(int(engine.SampleRate()), channelNum, bitDepthInBytes, bufferSize)
	if err != nil {
		return nil, err
	}
	a.otoContext = otoContext
	return a, nil
}

func newAudio(engine *Engine, clock *Clock, blockFrames int, gain float64) *Audio {
	pcm := make([]byte, blockFrames*bytesPerFrame)
	return &Audio{
		ctx:           context.Background(),
		engine:        engine,
		clock:         clock,
		blockFrames:   blockFrames,
		blockDuration: int64(math.Ceil(float64(blockFrames) * 1e9 / engine.SampleRate())),
		gain:          float32(gain),
		left:          make([]float32, blockFrames),
		right:         make([]float32, blockFrames),
		abs:           make([]float32, blockFrames),
		pcm:           pcm,
		pos:           len(pcm),
		ring:          make([]float64, spectrumSize),
		fft:           NewFFT(spectrumSize, false),
		window:        Han,
	}
}

// SetWindow selects the window used by Spectrum.
func (a *Audio) SetWindow(w WindowFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.window = w
}

func (a *Audio) Read(buf []byte) (int, error) {
	select {
	case <-a.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
	}
	n := 0
	for n < len(buf) {
		if a.pos == len(a.pcm) {
			a.renderBlock(a.nextTimestamp())
			a.pos = 0
		}
		copied := copy(buf[n:], a.pcm[a.pos:])
		a.pos += copied
		n += copied
	}
	return n, nil
}

// nextTimestamp places the block one block behind the clock so that events
// received during the previous block keep their relative positions.
func (a *Audio) nextTimestamp() int64 {
	timestamp := a.clock.Now() - a.blockDuration
	if timestamp < a.nextStart {
		timestamp = a.nextStart
	}
	a.nextStart = timestamp + a.blockDuration
	return timestamp
}

func (a *Audio) renderBlock(timestamp int64) {
	a.engine.Process(timestamp, a.blockFrames,
		StridedBuffer{Data: a.left, Stride: 1},
		StridedBuffer{Data: a.right, Stride: 1})
	for _, ch := range [2][]float32{a.left, a.right} {
		vek32.MulNumber_Inplace(ch, a.gain)
		vek32.MinimumNumber_Inplace(ch, 1)
		vek32.MaximumNumber_Inplace(ch, -1)
	}
	peakL := vek32.Max(vek32.Abs_Into(a.abs, a.left))
	peakR := vek32.Max(vek32.Abs_Into(a.abs, a.right))
	writeBuffer(a.left, a.pcm, 0)
	writeBuffer(a.right, a.pcm, 1)

	a.mu.Lock()
	if peakL > a.peakL {
		a.peakL = peakL
	}
	if peakR > a.peakR {
		a.peakR = peakR
	}
	for i := range a.left {
		a.ring[a.ringPos] = float64(a.left[i]+a.right[i]) / 2
		a.ringPos = (a.ringPos + 1) % len(a.ring)
	}
	a.mu.Unlock()
}

func writeBuffer(out []float32, buf []byte, ch int) {
	for i, value := range out {
		const max = 32767
		b := int16(value * max)
		buf[bytesPerFrame*i+2*ch] = byte(b)
		buf[bytesPerFrame*i+2*ch+1] = byte(b >> 8)
	}
}

// Close ...
func (a *Audio) Close() error {
	log.Println("Closing Audio...")
	if a.otoContext == nil {
		return nil
	}
	return a.otoContext.Close()
}

// Start ...
func (a *Audio) Start(ctx context.Context) error {
	p := a.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	a.ctx = ctx

	// block until cancel() called
	if _, err := io.CopyBuffer(p, a, make([]byte, len(a.pcm))); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

// ----- Reports ----- //

// Peak returns the highest absolute sample per channel since the last call.
func (a *Audio) Peak() (float32, float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, r := a.peakL, a.peakR
	a.peakL, a.peakR = 0, 0
	return l, r
}

// Spectrum returns the magnitude spectrum of the latest spectrumSize mono
// samples, lower half only.
func (a *Audio) Spectrum() []float64 {
	result := make([]float64, spectrumSize)
	a.mu.Lock()
	// ring:   | 4 | 1 | 2 | 3 |
	// offset:     ^
	// result: | 1 | 2 | 3 | 4 |
	offset := a.ringPos
	copy(result, a.ring[offset:])
	copy(result[spectrumSize-offset:], a.ring[:offset])
	window := a.window
	a.mu.Unlock()
	window(result)
	a.fftMu.Lock()
	a.fft.CalcAbs(result)
	a.fftMu.Unlock()
	for i, value := range result {
		result[i] = value * 2 / spectrumSize
	}
	return result[:spectrumSize/2]
}
