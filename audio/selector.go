package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

var ErrUnknownInstrument = errors.New("unknown instrument")

func errNoteRange(note int) error {
	return fmt.Errorf("note out of range: %d", note)
}

// Flags is the settings store consulted for enabled instruments.
type Flags interface {
	Int(name string, dfl int) int
}

// FlagName is the settings key enabling the instrument at position i of the
// selection ring.
func FlagName(i int) string { return fmt.Sprintf("instr.%d", i) }

// Slot is a named position in the instrument ring.
type Slot struct {
	Name       string
	Instrument Instrument
}

// Selector holds the ring of instruments and the currently selected one.
// Selection may change from any goroutine; the render loop observes it
// through Current.
type Selector struct {
	slots   []Slot
	flags   Flags
	current atomic.Int32
}

// NewSelector selects the first slot. A nil flags enables every slot.
func NewSelector(flags Flags, slots ...Slot) *Selector {
	if len(slots) == 0 {
		panic("selector needs at least one instrument")
	}
	return &Selector{slots: slots, flags: flags}
}

func (s *Selector) Current() Instrument {
	return s.slots[s.current.Load()].Instrument
}

func (s *Selector) CurrentName() string {
	return s.slots[s.current.Load()].Name
}

func (s *Selector) Names() []string {
	names := make([]string, len(s.slots))
	for i, slot := range s.slots {
		names[i] = slot.Name
	}
	return names
}

// Select makes the named instrument current regardless of its enabled flag.
func (s *Selector) Select(name string) error {
	for i, slot := range s.slots {
		if slot.Name == name {
			s.selectIndex(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownInstrument, name)
}

// Next advances to the next enabled instrument in ring order and returns its
// name. If no other instrument is enabled the current one is kept, unless it
// is disabled too, in which case the first instrument of the ring is used.
func (s *Selector) Next() string {
	cur := int(s.current.Load())
	n := len(s.slots)
	for step := 1; step < n; step++ {
		i := (cur + step) % n
		if s.enabled(i) {
			s.selectIndex(i)
			return s.slots[i].Name
		}
	}
	if !s.enabled(cur) {
		slog.Warn("selector: no instrument enabled, falling back", "instrument", s.slots[0].Name)
		s.selectIndex(0)
		return s.slots[0].Name
	}
	return s.slots[cur].Name
}

func (s *Selector) enabled(i int) bool {
	if s.flags == nil {
		return true
	}
	return s.flags.Int(FlagName(i), 1) != 0
}

func (s *Selector) selectIndex(i int) {
	slog.Info("selector: selected instrument", "instrument", s.slots[i].Name)
	s.current.Store(int32(i))
	s.slots[i].Instrument.Enable()
}
