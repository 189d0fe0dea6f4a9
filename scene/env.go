package scene

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mrdg/pluck/led"
)

// Keys plays notes on the current instrument.
type Keys interface {
	KeyPress(note int)
	KeyRelease(note int)
	// Press plays a note that is released right away.
	Press(note int)
}

type Instruments interface {
	Next() string
}

// Settings is the persistent registry.
type Settings interface {
	Int(name string, dfl int) int
	SetInt(name string, v int)
	Save() error
	Reload() error
}

// Props holds live engine properties.
type Props interface {
	Float(key string) float64
	Set(key string, value interface{}) error
}

type Lights interface {
	Set(led.Frame)
	Note(note int)
	Reset()
	Backlight()
}

// Env is what the scenes act on. Now and Sleep default to the wall clock.
type Env struct {
	Keys        Keys
	Instruments Instruments
	Settings    Settings
	Props       Props
	Lights      Lights

	Now   func() time.Time
	Sleep func(time.Duration)
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) sleep(d time.Duration) {
	if e.Sleep != nil {
		e.Sleep(d)
		return
	}
	time.Sleep(d)
}

// NoteTable lists the note names in key order. '+' is the upper C.
const NoteTable = "CcDdEFfGgAaH+"

// NoteID returns the key of a note name, or -1 for rests and unknown names.
func NoteID(c byte) int {
	if c == ' ' {
		return -1
	}
	return strings.IndexByte(NoteTable, c)
}

// Play plays a tune, lighting each note while it sounds. A space is a rest.
// It blocks until the tune is over. Higher tempos play faster.
func (e *Env) Play(tune string, tempo float64) {
	if tempo <= 0 {
		slog.Warn("scene: invalid tempo", "tempo", tempo)
		return
	}
	scale := func(ms int) time.Duration {
		return time.Duration(float64(time.Duration(ms)*time.Millisecond) / tempo)
	}
	for i := 0; i < len(tune); i++ {
		id := NoteID(tune[i])
		if id < 0 {
			e.Lights.Note(-1)
			e.sleep(scale(300))
			continue
		}
		e.Lights.Note(id)
		e.Keys.Press(id)
		e.sleep(scale(200))
		e.Lights.Note(-1)
		e.sleep(scale(100))
	}
	e.Lights.Note(-1)
}
