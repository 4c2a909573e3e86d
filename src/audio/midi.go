package audio

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gitlab.com/gomidi/midi"
)

// ListenToMidiIn forwards note messages from the first MIDI IN port whose
// name starts with prefix until ctx is done.
func ListenToMidiIn(ctx context.Context, drv midi.Driver, prefix string, engine *Engine, clock *Clock) error {
	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("failed to get MIDI IN: %w", err)
	}
	log.Printf("MIDI IN: %v\n", ins)

	in := findMidiIn(ins, prefix)
	if in == nil {
		log.Printf("WARN: MIDI IN not found (prefix: %q)\n", prefix)
		<-ctx.Done()
		return nil
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("failed to open MIDI IN: %w", err)
	}
	log.Println("opened " + in.String())
	defer func() {
		err := in.Close()
		if err != nil {
			log.Printf("failed to close MIDI IN: %v\n", err)
		}
	}()
	log.Println("start listening MIDI IN...")
	if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
		if e, ok := decodeMidi(data, clock.Now()); ok {
			engine.Send(e)
		}
	}); err != nil {
		return fmt.Errorf("failed to set listener: %w", err)
	}
	defer func() {
		log.Println("stop listening MIDI IN...")
		err := in.StopListening()
		if err != nil {
			log.Printf("failed to stop listening: %v\n", err)
		}
	}()
	<-ctx.Done()
	return nil
}

func findMidiIn(ins []midi.In, prefix string) midi.In {
	for _, in := range ins {
		if strings.HasPrefix(in.String(), prefix) {
			return in
		}
	}
	return nil
}

// decodeMidi converts a channel voice message into an event. Only note on and
// note off are supported; a note on with velocity 0 is a note off.
func decodeMidi(data []byte, timestamp int64) (Event, bool) {
	if len(data) < 3 {
		return Event{}, false
	}
	key := data[1] & 0x7f
	velocity := float64(data[2]&0x7f) / 127
	switch data[0] >> 4 {
	case 0x8:
		return Event{Timestamp: timestamp, Message: NoteOffMessage(key, velocity)}, true
	case 0x9:
		if velocity == 0 {
			return Event{Timestamp: timestamp, Message: NoteOffMessage(key, 0)}, true
		}
		return Event{Timestamp: timestamp, Message: NoteOnMessage(key, velocity)}, true
	}
	return Event{}, false
}
