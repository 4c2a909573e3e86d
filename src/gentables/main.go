package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jinjor/herosynth/src/audio"
	"golang.org/x/sync/errgroup"
)

const numSamples = 1 << 14

func main() {
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		panic("dir is not passed")
	}
	log.SetFlags(log.Lshortfile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("error: %v\n", err)
	}

	ctx := context.Background()
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		wt := audio.MakeSinWavetable(numSamples)
		log.Println("generated sin wave")
		err := save(wt, filepath.Join(dir, "sin.wt"))
		log.Println("saved sin wave")
		return err
	})
	g.Go(func() error {
		wt := audio.MakeSawWavetable(numSamples)
		log.Println("generated saw wave")
		err := save(wt, filepath.Join(dir, "saw.wt"))
		log.Println("saved saw wave")
		return err
	})
	err := g.Wait()
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully generated wavetables.")
}

func save(wt *audio.Wavetable, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wt.Save(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %v: %w", path, err)
	}
	return file.Close()
}
