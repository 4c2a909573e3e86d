package audio

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config ...
type Config struct {
	SampleRate     int           `yaml:"sample_rate"`
	BlockFrames    int           `yaml:"block_frames"`
	MasterGain     float64       `yaml:"master_gain"`
	OscListen      string        `yaml:"osc_listen"`
	OscReply       string        `yaml:"osc_reply"`
	MidiIn         string        `yaml:"midi_in"` // port name prefix, "-" disables MIDI
	Keyboard       bool          `yaml:"keyboard"`
	PresetDir      string        `yaml:"preset_dir"`
	Preset         string        `yaml:"preset"`
	WavetableDir   string        `yaml:"wavetable_dir"`
	InputQueue     int           `yaml:"input_queue"`
	OutputQueue    int           `yaml:"output_queue"`
	ReportInterval time.Duration `yaml:"report_interval"` // 0 disables reports
	SpectrumWindow string        `yaml:"spectrum_window"`
}

// DefaultConfig ...
func DefaultConfig() *Config {
	return &Config{
		SampleRate:     44100,
		BlockFrames:    400,
		MasterGain:     defaultMasterGain,
		OscListen:      ":9000",
		OscReply:       "127.0.0.1:9001",
		PresetDir:      "presets",
		InputQueue:     1024,
		OutputQueue:    256,
		ReportInterval: 100 * time.Millisecond,
		SpectrumWindow: "han",
	}
}

// LoadConfig reads path over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(bytes, c); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", path, err)
	}
	return c, nil
}

// Validate ...
func (c *Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sample_rate out of range: %d", c.SampleRate)
	}
	if c.BlockFrames <= 0 {
		return fmt.Errorf("block_frames should be positive: %d", c.BlockFrames)
	}
	if c.MasterGain < 0 || !isFinite(c.MasterGain) {
		return fmt.Errorf("invalid master_gain: %v", c.MasterGain)
	}
	if c.InputQueue <= 0 || c.OutputQueue <= 0 {
		return fmt.Errorf("queue sizes should be positive: %d, %d", c.InputQueue, c.OutputQueue)
	}
	if c.ReportInterval < 0 {
		return fmt.Errorf("report_interval should not be negative: %v", c.ReportInterval)
	}
	if _, err := ParseWindow(c.SpectrumWindow); err != nil {
		return err
	}
	return nil
}
