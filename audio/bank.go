package audio

import "math"

// NumNotes is the number of tonal keys: one chromatic octave plus the upper
// tonic.
const NumNotes = 13

const rootPitch = 60 // midi note of key 0

// Bank is a set of strings addressed by note index.
type Bank []*String

// Tuning describes how a bank maps note indices to strings.
type Tuning struct {
	Octave   float64 // frequency multiplier relative to the C4 octave
	Decay    float64
	Feedback [NumNotes]float64
}

var (
	// Low rises in brightness towards the top of the octave.
	Low = Tuning{
		Octave:   1,
		Decay:    0.999,
		Feedback: [NumNotes]float64{0.50, 0.55, 0.60, 0.64, 0.68, 0.70, 0.72, 0.74, 0.76, 0.78, 0.80, 0.80, 0.80},
	}
	High = Tuning{
		Octave:   2,
		Decay:    0.999,
		Feedback: uniform(0.80),
	}
	Harp = Tuning{
		Octave:   0.5,
		Decay:    0.9995,
		Feedback: uniform(0.60),
	}
)

func uniform(fb float64) (out [NumNotes]float64) {
	for i := range out {
		out[i] = fb
	}
	return out
}

func NewBank(t Tuning) Bank {
	bank := make(Bank, NumNotes)
	for n := range bank {
		freq := midiToFreq(rootPitch+n) * t.Octave
		bank[n] = NewString(DelayFor(freq), t.Feedback[n], t.Decay)
	}
	return bank
}

// Note returns the string for note, or nil if the bank has no such note.
func (b Bank) Note(note int) *String {
	if note < 0 || note >= len(b) {
		return nil
	}
	return b[note]
}

func (b Bank) Render(buf []float32) {
	for _, s := range b {
		s.Render(buf)
	}
}

func midiToFreq(note int) float64 {
	return math.Pow(2, float64(note-69)/12.0) * 440
}
