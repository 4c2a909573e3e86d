package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

const (
	maxPacketSize = 65535
	spectrumBins  = 128
)

// PacketSender is implemented by *osc.Client.
type PacketSender interface {
	Send(packet osc.Packet) error
}

// ----- OSC IN ----- //

type oscReceiver struct {
	engine  *Engine
	clock   *Clock
	presets *PresetManager
	reply   func(osc.Packet)
}

// ListenToOscIn receives control packets over UDP until ctx is done.
func ListenToOscIn(ctx context.Context, addr string, engine *Engine, clock *Clock, presets *PresetManager) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen OSC IN: %w", err)
	}
	log.Printf("start listening OSC IN on %v...\n", conn.LocalAddr())
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	r := &oscReceiver{
		engine:  engine,
		clock:   clock,
		presets: presets,
		reply: func(p osc.Packet) {
			engine.forwardOutput(Output{Packet: p})
		},
	}
	buf := make([]byte, maxPacketSize)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Println("stop listening OSC IN...")
				return nil
			}
			return fmt.Errorf("failed to read OSC IN: %w", err)
		}
		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			continue
		}
		r.receive(packet)
	}
}

// receive handles preset commands here and forwards everything else to the
// engine as a control event.
func (r *oscReceiver) receive(packet osc.Packet) {
	if msg, ok := packet.(*osc.Message); ok && r.handlePresetCommand(msg) {
		return
	}
	if b, ok := packet.(*osc.Bundle); ok {
		r.walkPresetCommands(b)
	}
	r.engine.Send(Event{Timestamp: r.clock.Now(), Message: ControlMessage(packet)})
}

func (r *oscReceiver) walkPresetCommands(b *osc.Bundle) {
	for _, m := range b.Messages {
		r.handlePresetCommand(m)
	}
	for _, child := range b.Bundles {
		r.walkPresetCommands(child)
	}
}

func (r *oscReceiver) handlePresetCommand(msg *osc.Message) bool {
	switch msg.Address {
	case "/preset/load":
		name, ok := argString(msg, 0)
		if !ok || r.presets == nil {
			return true
		}
		p, err := r.presets.Load(name)
		if err != nil {
			log.Printf("failed to load preset: %v\n", err)
			return true
		}
		log.Printf("loaded preset %q\n", name)
		r.engine.Send(Event{Timestamp: r.clock.Now(), Message: PatchMessage(p)})
	case "/preset/save":
		name, ok := argString(msg, 0)
		if !ok || r.presets == nil {
			return true
		}
		if err := r.presets.Save(name, r.engine.Synth().Patch()); err != nil {
			log.Printf("failed to save preset: %v\n", err)
			return true
		}
		log.Printf("saved preset %q\n", name)
	case "/preset/list":
		if r.presets == nil {
			return true
		}
		names, err := r.presets.List()
		if err != nil {
			log.Printf("failed to list presets: %v\n", err)
			return true
		}
		args := make([]interface{}, len(names))
		for i, name := range names {
			args[i] = name
		}
		r.reply(osc.NewMessage("/preset/list", args...))
	default:
		return false
	}
	return true
}

// ----- OSC OUT ----- //

// SendOscOut sends every output until ctx is done.
func SendOscOut(ctx context.Context, client PacketSender, outputs <-chan Output) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-outputs:
			if err := client.Send(o.Build()); err != nil {
				log.Printf("failed to send OSC packet: %v\n", err)
			}
		}
	}
}

// Report periodically sends /meter and /spectrum for audio.
func Report(ctx context.Context, client PacketSender, audio *Audio, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, p := range reportPackets(audio) {
				if err := client.Send(p); err != nil {
					log.Printf("failed to send report: %v\n", err)
				}
			}
		}
	}
}

func reportPackets(audio *Audio) []osc.Packet {
	l, r := audio.Peak()
	meter := osc.NewMessage("/meter", l, r)
	bins := reduceBins(audio.Spectrum(), spectrumBins)
	args := make([]interface{}, len(bins))
	for i, v := range bins {
		args[i] = float32(v)
	}
	return []osc.Packet{meter, osc.NewMessage("/spectrum", args...)}
}

// reduceBins keeps the maximum of each group of adjacent bins.
func reduceBins(values []float64, bins int) []float64 {
	if len(values) <= bins {
		return values
	}
	group := len(values) / bins
	out := make([]float64, bins)
	for i := range out {
		for _, v := range values[i*group : (i+1)*group] {
			if v > out[i] {
				out[i] = v
			}
		}
	}
	return out
}
