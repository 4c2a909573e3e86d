package audio

import (
	"context"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// ----- Strided Buffer ----- //

// StridedBuffer is one output channel inside a possibly interleaved buffer.
type StridedBuffer struct {
	Data   []float32
	Offset int
	Stride int
}

// Set ...
func (b StridedBuffer) Set(i int, value float32) {
	b.Data[b.Offset+i*b.Stride] = value
}

// Get ...
func (b StridedBuffer) Get(i int) float32 {
	return b.Data[b.Offset+i*b.Stride]
}

// ----- Engine ----- //

const droppedReportInterval = time.Second

// Engine schedules timestamped events onto exact samples of the synth's
// output.
//
// Producers call Send from any goroutine. Process is called by the audio
// transport, one block at a time.
type Engine struct {
	sampleRate float64
	synth      *Synth

	input  chan Event
	output chan Output

	mu         sync.Mutex
	pending    *EventsBuffer // guarded by mu
	maxPending int
	block      *EventsBuffer // render goroutine only
	forward    func(Output)

	running        atomic.Bool
	stop           chan struct{}
	wg             sync.WaitGroup
	dropped        atomic.Uint64
	droppedOutputs atomic.Uint64
}

// NewEngine ...
func NewEngine(sampleRate float64, synth *Synth, inputQueue int, outputQueue int) *Engine {
	e := &Engine{
		sampleRate: sampleRate,
		synth:      synth,
		input:      make(chan Event, inputQueue),
		output:     make(chan Output, outputQueue),
		pending:    NewEventsBuffer(inputQueue),
		maxPending: inputQueue,
		block:      NewEventsBuffer(inputQueue),
	}
	e.forward = e.forwardOutput
	return e
}

// Synth ...
func (e *Engine) Synth() *Synth {
	return e.synth
}

// SampleRate ...
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// Send queues events without blocking. When the queue is full the remaining
// events are dropped and false is returned.
func (e *Engine) Send(events ...Event) bool {
	for i, ev := range events {
		select {
		case e.input <- ev:
		default:
			e.dropped.Add(uint64(len(events) - i))
			return false
		}
	}
	return true
}

// Dropped returns the number of events dropped because a queue was full.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// DroppedOutputs returns the number of outbound packets dropped.
func (e *Engine) DroppedOutputs() uint64 {
	return e.droppedOutputs.Load()
}

// Output delivers what the synth produces (e.g. /sync replies).
func (e *Engine) Output() <-chan Output {
	return e.output
}

// Running ...
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Start launches the ingestion goroutine.
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.stop = make(chan struct{})
	e.wg.Add(1)
	go e.ingest(e.stop)
}

// Stop blocks until the ingestion goroutine has exited.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	close(e.stop)
	e.wg.Wait()
}

// Run starts the engine and stops it when ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.Start()
	log.Println("engine started")
	<-ctx.Done()
	e.Stop()
	log.Println("engine stopped")
	return nil
}

func (e *Engine) ingest(stop <-chan struct{}) {
	defer e.wg.Done()
	ticker := time.NewTicker(droppedReportInterval)
	defer ticker.Stop()
	var reported uint64
	for {
		select {
		case <-stop:
			return
		case ev := <-e.input:
			// pending never outgrows block, so Process does not allocate
			e.mu.Lock()
			full := e.pending.NumEvents() >= e.maxPending
			if !full {
				e.pending.Push(ev)
			}
			e.mu.Unlock()
			if full {
				e.dropped.Add(1)
			}
			e.synth.refill()
		case <-ticker.C:
			e.synth.refill()
			if dropped := e.dropped.Load(); dropped != reported {
				log.Printf("WARN: %d input events dropped\n", dropped-reported)
				reported = dropped
			}
		}
	}
}

// Pending returns the number of events waiting to be rendered.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending.NumEvents()
}

// push inserts directly into the pending buffer, bypassing the queue.
func (e *Engine) push(events ...Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range events {
		e.pending.Push(ev)
	}
}

// Process renders numFrames samples starting at timestamp (ns). An event at
// time t is applied right before the first sample s where
// t < ceil(timestamp + (s+1)*dt).
func (e *Engine) Process(timestamp int64, numFrames int, left, right StridedBuffer) {
	dt := 1e9 / e.sampleRate
	start := float64(timestamp)
	blockEnd := int64(math.Ceil(start + float64(numFrames)*dt))

	e.mu.Lock()
	e.pending.SplitInto(blockEnd, e.block)
	e.mu.Unlock()

	events := e.block.Events()
	next := 0
	for s := 0; s < numFrames; s++ {
		boundary := int64(math.Ceil(start + float64(s+1)*dt))
		for ; next < len(events) && events[next].Timestamp < boundary; next++ {
			events[next].Message.applyTo(e.synth)
		}
		l, r := e.synth.Process()
		left.Set(s, float32(l))
		right.Set(s, float32(r))
	}
	e.block.Clear()
	e.synth.DrainOutbox(e.forward)
}

func (e *Engine) forwardOutput(o Output) {
	select {
	case e.output <- o:
	default:
		e.droppedOutputs.Add(1)
	}
}
