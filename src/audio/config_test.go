package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	expectNoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	expectNoError(t, c.Validate())
	loaded, err := LoadConfig("")
	expectNoError(t, err)
	expectEqual(t, *loaded, *c)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
sample_rate: 48000
block_frames: 256
osc_listen: 127.0.0.1:7000
midi_in: "-"
keyboard: true
report_interval: 250ms
spectrum_window: blackman
`)
	c, err := LoadConfig(path)
	expectNoError(t, err)
	expectEqual(t, c.SampleRate, 48000)
	expectEqual(t, c.BlockFrames, 256)
	expectEqual(t, c.OscListen, "127.0.0.1:7000")
	expectEqual(t, c.MidiIn, "-")
	expectEqual(t, c.Keyboard, true)
	expectEqual(t, c.ReportInterval, 250*time.Millisecond)
	expectEqual(t, c.SpectrumWindow, "blackman")
	// untouched keys keep their defaults
	expectEqual(t, c.MasterGain, defaultMasterGain)
	expectEqual(t, c.InputQueue, 1024)
}

func TestLoadConfigErrors(t *testing.T) {
	testCases := []string{
		"sample_rate: 100\n",
		"block_frames: 0\n",
		"master_gain: -1\n",
		"input_queue: 0\n",
		"report_interval: -1s\n",
		"spectrum_window: square\n",
		"sample_rate: [1, 2]\n",
	}
	for _, text := range testCases {
		if _, err := LoadConfig(writeConfig(t, text)); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for a missing file")
	}
}
