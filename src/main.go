package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/hypebeast/go-osc/osc"
	"github.com/jinjor/herosynth/src/audio"
	"gitlab.com/gomidi/rtmididrv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	configPath   = flag.String("config", "", "path to a YAML config file")
	sampleRate   = flag.Int("sample-rate", 0, "sample rate")
	blockFrames  = flag.Int("block", 0, "frames per render block")
	masterGain   = flag.Float64("gain", 0, "master gain")
	oscListen    = flag.String("osc-listen", "", "UDP address for OSC IN")
	oscReply     = flag.String("osc-reply", "", "UDP address for OSC OUT (empty = disabled)")
	midiIn       = flag.String("midi-in", "", `MIDI IN port name prefix ("-" = disabled)`)
	keyboard     = flag.Bool("keyboard", false, "play notes from the terminal")
	presetDir    = flag.String("preset-dir", "", "preset directory")
	preset       = flag.String("preset", "", "initial preset")
	wavetableDir = flag.String("wavetables", "", "directory of generated wavetables")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		sig := <-signalCh
		log.Printf("Caught signal %s: shutting down...\n", sig)
		cancel()
	}()

	bank, err := audio.NewWavetableBank(cfg.WavetableDir)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	presets := audio.NewPresetManager(cfg.PresetDir)
	patch := audio.DefaultPatch()
	if cfg.Preset != "" {
		patch, err = presets.Load(cfg.Preset)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		log.Printf("loaded preset %q\n", cfg.Preset)
	}
	synth := audio.NewSynth(float64(cfg.SampleRate), bank, patch)
	engine := audio.NewEngine(float64(cfg.SampleRate), synth, cfg.InputQueue, cfg.OutputQueue)
	clock := audio.NewClock()

	a, err := audio.NewAudio(engine, clock, cfg.BlockFrames, cfg.MasterGain)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer a.Close()
	window, err := audio.ParseWindow(cfg.SpectrumWindow)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	a.SetWindow(window)

	if cfg.Keyboard && term.IsTerminal(int(os.Stdin.Fd())) {
		fd := int(os.Stdin.Fd())
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		defer term.Restore(fd, oldState)
		log.SetOutput(&crlfWriter{w: os.Stderr})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(ctx)
	})
	g.Go(func() error {
		return a.Start(ctx)
	})
	if cfg.OscListen != "" {
		g.Go(func() error {
			return audio.ListenToOscIn(ctx, cfg.OscListen, engine, clock, presets)
		})
	}
	if cfg.OscReply != "" {
		client, err := newOscClient(cfg.OscReply)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		g.Go(func() error {
			return audio.SendOscOut(ctx, client, engine.Output())
		})
		if cfg.ReportInterval > 0 {
			g.Go(func() error {
				return audio.Report(ctx, client, a, cfg.ReportInterval)
			})
		}
	}
	if cfg.MidiIn != "-" {
		g.Go(func() error {
			drv, err := rtmididrv.New()
			if err != nil {
				log.Printf("failed to initialize MIDI driver: %v\n", err)
				return nil
			}
			defer func() {
				err := drv.Close()
				if err != nil {
					log.Printf("failed to close MIDI driver: %v\n", err)
				}
			}()
			return audio.ListenToMidiIn(ctx, drv, cfg.MidiIn, engine, clock)
		})
	}
	if cfg.Keyboard {
		g.Go(func() error {
			return audio.ListenToKeyboard(ctx, os.Stdin, engine, clock)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, audio.ErrInterrupted) {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

func loadConfig() (*audio.Config, error) {
	cfg, err := audio.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	// explicitly set flags win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sample-rate":
			cfg.SampleRate = *sampleRate
		case "block":
			cfg.BlockFrames = *blockFrames
		case "gain":
			cfg.MasterGain = *masterGain
		case "osc-listen":
			cfg.OscListen = *oscListen
		case "osc-reply":
			cfg.OscReply = *oscReply
		case "midi-in":
			cfg.MidiIn = *midiIn
		case "keyboard":
			cfg.Keyboard = *keyboard
		case "preset-dir":
			cfg.PresetDir = *presetDir
		case "preset":
			cfg.Preset = *preset
		case "wavetables":
			cfg.WavetableDir = *wavetableDir
		}
	})
	return cfg, cfg.Validate()
}

func newOscClient(addr string) (*osc.Client, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return osc.NewClient(host, port), nil
}

// crlfWriter keeps log lines readable while the terminal is in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
