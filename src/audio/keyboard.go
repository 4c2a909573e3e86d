package audio

import (
	"context"
	"errors"
	"io"
	"log"
)

// ErrInterrupted is returned by ListenToKeyboard on Ctrl-C or Ctrl-D.
var ErrInterrupted = errors.New("interrupted")

const (
	keyboardVelocity = 0.8
	keyboardBaseKey  = 60
)

// one octave from C, laid out like a piano on two rows
var keyboardLayout = map[byte]int{
	'a': 0, 'w': 1, 's': 2, 'e': 3, 'd': 4, 'f': 5, 't': 6,
	'g': 7, 'y': 8, 'h': 9, 'u': 10, 'j': 11, 'k': 12,
}

type keyboard struct {
	base int
	on   [numKeys]bool
}

func newKeyboard() *keyboard {
	return &keyboard{base: keyboardBaseKey}
}

// press returns the message for one key stroke. Without key release events
// each stroke toggles its note.
func (k *keyboard) press(b byte) (Message, bool) {
	switch b {
	case 'z':
		if k.base >= 12 {
			k.base -= 12
		}
		return Message{}, false
	case 'x':
		if k.base+12+12 < numKeys {
			k.base += 12
		}
		return Message{}, false
	}
	offset, ok := keyboardLayout[b]
	if !ok {
		return Message{}, false
	}
	key := k.base + offset
	k.on[key] = !k.on[key]
	if k.on[key] {
		return NoteOnMessage(uint8(key), keyboardVelocity), true
	}
	return NoteOffMessage(uint8(key), 0), true
}

// ListenToKeyboard reads key strokes from r (a terminal in raw mode) until
// ctx is done or Ctrl-C / Ctrl-D is pressed.
func ListenToKeyboard(ctx context.Context, r io.Reader, engine *Engine, clock *Clock) error {
	bytes := make(chan byte)
	errs := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if err != nil {
				errs <- err
				return
			}
			if n == 0 {
				continue
			}
			select {
			case bytes <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()
	log.Println("start listening keyboard... (a-k: notes, z/x: octave, Ctrl-C: quit)")
	k := newKeyboard()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if err == io.EOF {
				return nil
			}
			return err
		case b := <-bytes:
			if b == 3 || b == 4 {
				return ErrInterrupted
			}
			if m, ok := k.press(b); ok {
				engine.Send(Event{Timestamp: clock.Now(), Message: m})
			}
		}
	}
}
