package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mrdg/pluck/audio"
	"github.com/mrdg/pluck/led"
	"github.com/mrdg/pluck/registry"
	"github.com/mrdg/pluck/scene"
	"golang.org/x/sync/errgroup"
)

type options struct {
	settings string
	samples  string
	backend  string
	record   string
	midi     string
	serial   string
	baud     int
	leds     bool
	metrics  string
	debug    bool
	live     bool
	run      string
}

func main() {
	var opts options
	flag.StringVar(&opts.settings, "settings", "pluck.yaml", "settings file")
	flag.StringVar(&opts.samples, "samples", "samples", "directory with the sound effect samples")
	flag.StringVar(&opts.backend, "backend", "portaudio", "audio output: portaudio, oto or wav")
	flag.StringVar(&opts.record, "record", "pluck.wav", "output file of the wav backend")
	flag.StringVar(&opts.midi, "midi", "", "MIDI input to play from, \"auto\" picks the first one")
	flag.StringVar(&opts.serial, "serial", "", "serial device of the LED strip")
	flag.IntVar(&opts.baud, "baud", led.DefaultBaud, "baud rate of the LED strip")
	flag.BoolVar(&opts.leds, "leds", false, "draw the LED strip on stderr")
	flag.StringVar(&opts.metrics, "metrics", "", "address to serve Prometheus metrics on, e.g. :9090")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&opts.live, "live", false, "play from the computer keyboard instead of the command prompt")
	flag.StringVar(&opts.run, "run", "", "file with commands to run at startup")
	flag.Parse()

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(opts); err != nil {
		slog.Error("pluck: exiting", "err", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	script, err := readScript(opts.run)
	if err != nil {
		return err
	}

	settings, err := registry.Open(opts.settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := initMetrics(opts.metrics)
	if err != nil {
		return err
	}
	defer shutdownMetrics(context.Background())

	metrics, err := audio.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	sampler := audio.NewSampler(audio.SoundEffectPaths(opts.samples))
	defer sampler.Close()
	sel := newSelector(settings, sampler)

	sink, err := openSink(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Error("pluck: close audio output", "err", err)
		}
	}()

	props := audio.NewProps()
	player := audio.NewPlayer(sel, sink, props, audio.WithMetrics(metrics))
	scene.RestoreVolume(settings, props)

	display, closeLights, err := openLights(opts)
	if err != nil {
		return err
	}
	defer closeLights()

	env := &scene.Env{
		Keys:        player,
		Instruments: sel,
		Settings:    settings,
		Props:       props,
		Lights:      display,
	}
	stack := scene.NewStack()
	keyboard := scene.NewKeyboard(env)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return player.Run(ctx)
	})
	g.Go(func() error {
		stack.Push(keyboard, nil)
		return stack.Run(ctx)
	})
	if opts.midi != "" {
		g.Go(func() error {
			return runMIDI(ctx, opts.midi, stack)
		})
	}
	if opts.metrics != "" {
		g.Go(func() error {
			return serveMetrics(ctx, opts.metrics)
		})
	}

	e := &replEnv{
		ctx:      ctx,
		player:   player,
		sel:      sel,
		props:    props,
		settings: settings,
		stack:    stack,
		env:      env,
		out:      os.Stdout,
	}
	g.Go(func() error {
		defer stop()
		for _, line := range script {
			if err := e.evalLine(line); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%s: %w", opts.run, err)
			}
		}
		if opts.live {
			return live(ctx, stack, os.Stdin, os.Stdout)
		}
		err := repl(ctx, e)
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	})

	return g.Wait()
}

// startInstrument is selected at power-up.
const startInstrument = "piano2"

// newSelector builds the instrument ring. The order fixes the instr.N
// setting of each instrument.
func newSelector(flags audio.Flags, sampler *audio.Sampler) *audio.Selector {
	low, high := audio.NewBank(audio.Low), audio.NewBank(audio.High)
	sel := audio.NewSelector(flags,
		audio.Slot{Name: "piano1", Instrument: &audio.Doubled{Primary: low, Secondary: high}},
		audio.Slot{Name: "piano2", Instrument: &audio.Doubled{Primary: high, Secondary: low}},
		audio.Slot{Name: "extras", Instrument: sampler},
		audio.Slot{Name: "harp", Instrument: audio.NewTonal(audio.Harp)},
	)
	if err := sel.Select(startInstrument); err != nil {
		panic(err)
	}
	return sel
}

func openSink(opts options) (audio.Sink, error) {
	switch opts.backend {
	case "portaudio":
		return audio.NewPortAudioSink(audio.FrameSize)
	case "oto":
		return audio.NewOtoSink(audio.FrameSize)
	case "wav":
		s := audio.NewWavSink(opts.record)
		s.Realtime = true
		return s, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", opts.backend)
	}
}

func openLights(opts options) (*led.Display, func(), error) {
	if opts.serial != "" {
		strip, err := led.OpenSerial(opts.serial, opts.baud)
		if err != nil {
			return nil, nil, err
		}
		return led.NewDisplay(strip), func() { strip.Close() }, nil
	}
	if opts.leds {
		return led.NewDisplay(led.NewTermStrip(os.Stderr)), func() {}, nil
	}
	return led.NewDisplay(nil), func() {}, nil
}

func readScript(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
