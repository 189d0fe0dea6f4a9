package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mrdg/pluck/scene"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// midiRoot is the pitch played by key 0, middle C.
const midiRoot = 60

// Virtual and system ports that are never picked automatically.
var excludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

// keyForPitch maps a MIDI note onto the keyboard. Pitches above the octave
// reach the control keys.
func keyForPitch(pitch int) (int, bool) {
	key := pitch - midiRoot
	return key, key >= 0 && key < scene.NumKeys
}

type keyHandler interface {
	KeyPressed(key int) bool
	KeyReleased(key int) bool
}

// runMIDI plays note on and note off messages from the named input until ctx
// is done.
func runMIDI(ctx context.Context, name string, keys keyHandler) error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("midi: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("midi: list inputs: %w", err)
	}
	in, err := pickInput(ins, name)
	if err != nil {
		return err
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("midi: open %q: %w", in.String(), err)
	}
	defer in.Close()

	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		var ch, pitch, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &pitch, &vel):
			if key, ok := keyForPitch(int(pitch)); ok {
				slog.Debug("midi: note on", "ch", ch, "pitch", pitch, "key", key)
				keys.KeyPressed(key)
			}
		case msg.GetNoteEnd(&ch, &pitch):
			if key, ok := keyForPitch(int(pitch)); ok {
				keys.KeyReleased(key)
			}
		}
	}, midi.HandleError(func(err error) {
		slog.Warn("midi: listener error", "device", in.String(), "err", err)
	}))
	if err != nil {
		return fmt.Errorf("midi: listen %q: %w", in.String(), err)
	}
	defer stop()

	slog.Info("midi: connected", "device", in.String())
	<-ctx.Done()
	return nil
}

func pickInput(ins []drivers.In, name string) (drivers.In, error) {
	for _, in := range ins {
		port := in.String()
		if name == "auto" {
			if !excluded(port) {
				return in, nil
			}
			continue
		}
		if strings.Contains(strings.ToLower(port), strings.ToLower(name)) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("midi: no input matching %q", name)
}

func excluded(port string) bool {
	for _, pat := range excludedPorts {
		if strings.Contains(strings.ToLower(port), strings.ToLower(pat)) {
			return true
		}
	}
	return false
}
