package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mrdg/pluck/scene"
	"golang.org/x/term"
)

// liveNotes lays the thirteen notes out like a piano on the home row, with
// the sharps on the row above.
const liveNotes = "awsedftgyhujk"

// liveKey maps a typed character to a keyboard key. Digits 1 to 4 pick a
// trainer song and space is the function key.
func liveKey(b byte) (int, bool) {
	if i := strings.IndexByte(liveNotes, b); i >= 0 {
		return i, true
	}
	if b >= '1' && b <= '4' {
		return scene.KeySong0 + int(b-'1'), true
	}
	if b == ' ' {
		return scene.KeyFunction, true
	}
	return 0, false
}

// live reads single key strokes from a terminal until q, Ctrl-C or the end of
// input. A terminal reports no key releases, so every stroke is a tap; m
// holds the function key long enough to open the menu.
func live(ctx context.Context, keys keyHandler, in *os.File, out io.Writer) error {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("live mode needs a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("live: %w", err)
	}
	defer term.Restore(fd, state)

	fmt.Fprint(out, "keys: "+liveNotes+" notes, 1-4 songs, space next instrument, m menu, q quit\r\n")
	buf := make([]byte, 1)
	for ctx.Err() == nil {
		n, err := in.Read(buf)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("live: %w", err)
		}
		if n == 0 {
			continue
		}
		switch b := buf[0]; b {
		case 'q', 3, 4:
			return nil
		case 'm':
			keys.KeyPressed(scene.KeyFunction)
			time.Sleep(scene.DefaultHoldTime + 50*time.Millisecond)
			keys.KeyReleased(scene.KeyFunction)
		default:
			key, ok := liveKey(b)
			if !ok {
				slog.Debug("live: unmapped key", "key", b)
				continue
			}
			keys.KeyPressed(key)
			keys.KeyReleased(key)
		}
	}
	return nil
}
