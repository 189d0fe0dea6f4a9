package audio

import "log/slog"

// Strength is the amplitude of the noise burst used for key presses.
const Strength = maxStrength

// Instrument binds key events to sound sources. All methods except Enable are
// called from the rendering goroutine only.
type Instrument interface {
	// Enable is called whenever the instrument becomes the selected one.
	Enable()
	KeyPress(note int)
	KeyRelease(note int)
	// Render adds the instrument's output to buf.
	Render(buf []float32)
}

// Tuner is implemented by instruments whose timbre can be adjusted per note.
type Tuner interface {
	SetFeedback(note int, v float64) error
}

// Tonal plays a single bank of strings.
type Tonal struct {
	Bank Bank
}

func NewTonal(t Tuning) *Tonal {
	return &Tonal{Bank: NewBank(t)}
}

func (t *Tonal) Enable() {}

func (t *Tonal) KeyPress(note int) {
	if s := t.Bank.Note(note); s != nil {
		s.Pluck(Strength)
	} else {
		slog.Debug("instrument: note out of range", "note", note)
	}
}

func (t *Tonal) KeyRelease(note int) {
	if s := t.Bank.Note(note); s != nil {
		s.Dampen()
	}
}

func (t *Tonal) Render(buf []float32) { t.Bank.Render(buf) }

func (t *Tonal) SetFeedback(note int, v float64) error {
	return setFeedback(t.Bank, note, v)
}

// Doubled plucks strings of its primary bank but always renders both banks,
// so whatever still rings in the secondary bank thickens the sound.
type Doubled struct {
	Primary   Bank
	Secondary Bank
}

func (d *Doubled) Enable() {}

func (d *Doubled) KeyPress(note int) {
	if s := d.Primary.Note(note); s != nil {
		s.Pluck(Strength)
	} else {
		slog.Debug("instrument: note out of range", "note", note)
	}
}

func (d *Doubled) KeyRelease(note int) {
	if s := d.Primary.Note(note); s != nil {
		s.Dampen()
	}
}

func (d *Doubled) Render(buf []float32) {
	for n := 0; n < max(len(d.Primary), len(d.Secondary)); n++ {
		if s := d.Primary.Note(n); s != nil {
			s.Render(buf)
		}
		if s := d.Secondary.Note(n); s != nil {
			s.Render(buf)
		}
	}
}

func (d *Doubled) SetFeedback(note int, v float64) error {
	return setFeedback(d.Primary, note, v)
}

func setFeedback(b Bank, note int, v float64) error {
	s := b.Note(note)
	if s == nil {
		return errNoteRange(note)
	}
	return s.SetFeedback(v)
}
