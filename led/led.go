// Package led drives the eight pixel strip above the keyboard.
package led

import (
	"log/slog"
	"sync"
)

const NumPixels = 8

const (
	full = 255
	half = 127
	tint = 63
	back = 15
)

type Color struct {
	R, G, B uint8
}

var (
	Off   = Color{}
	White = Color{half, half, half}
	Sharp = Color{full, 0, tint}
	Dim   = Color{back, back, back}
	Green = Color{0, full, 0}
	Red   = Color{full, 0, 0}
)

// Frame is the colour of every pixel, left to right.
type Frame [NumPixels]Color

// Strip shows frames on some device.
type Strip interface {
	Show(Frame) error
}

// notePixels maps a note to its pixel. The strip has one pixel per white key;
// a sharp lights the pixel of the white key below it in a different colour.
var notePixels = [13]struct {
	pixel int
	sharp bool
}{
	{0, false}, {0, true}, {1, false}, {1, true}, {2, false}, {3, false},
	{3, true}, {4, false}, {4, true}, {5, false}, {5, true}, {6, false},
	{7, false},
}

// NoteFrame lights the pixel of note. Notes outside the octave give a dark
// frame.
func NoteFrame(note int) Frame {
	var f Frame
	if note < 0 || note >= len(notePixels) {
		return f
	}
	p := notePixels[note]
	if p.sharp {
		f[p.pixel] = Sharp
	} else {
		f[p.pixel] = White
	}
	return f
}

// BacklightFrame dimly lights the whole strip.
func BacklightFrame() Frame {
	var f Frame
	for i := range f {
		f[i] = Dim
	}
	return f
}

// Display remembers the last frame shown and serialises access to the strip.
// Strip failures are logged; they never interrupt the caller.
type Display struct {
	mu    sync.Mutex
	strip Strip
	last  Frame
}

// NewDisplay returns a display on strip. A nil strip discards all frames.
func NewDisplay(strip Strip) *Display {
	return &Display{strip: strip}
}

func (d *Display) Set(f Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = f
	if d.strip == nil {
		return
	}
	if err := d.strip.Show(f); err != nil {
		slog.Warn("led: show frame", "err", err)
	}
}

func (d *Display) Note(note int) { d.Set(NoteFrame(note)) }
func (d *Display) Reset()        { d.Set(Frame{}) }
func (d *Display) Backlight()    { d.Set(BacklightFrame()) }

// Last returns the frame most recently shown.
func (d *Display) Last() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
