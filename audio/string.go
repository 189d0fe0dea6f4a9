package audio

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
)

const (
	SampleRate = 48000
	FrameSize  = 64 // samples rendered per scheduler tick

	// MaxDelay bounds the ring buffer of a single string and thereby its
	// lowest pitch (48 Hz at the default sample rate).
	MaxDelay = 1000

	// Decay is normalized against this pitch so that strings of different
	// lengths lose energy at a comparable rate in time.
	refPitch = 440.0

	// damping is applied once per dampen and to short plucks.
	damping = 0.99

	maxStrength = math.MaxInt16
)

type stringParams struct {
	decay    float64
	feedback float64
}

// String is a digital waveguide resonator modeling one plucked string. Its
// ring buffer is allocated together with the string and never resized, so it
// can be rendered without allocating.
type String struct {
	delay  int
	offset int

	base   stringParams // as configured
	active stringParams // reset to base on every pluck

	noise *rand.Rand
	ring  [MaxDelay]int16
}

// NewString returns a string whose pitch is determined by delay, the number of
// samples in one period. Parameters outside their valid range are clamped.
func NewString(delay int, feedback, decay float64) *String {
	if delay < 2 || delay > MaxDelay {
		slog.Warn("string: delay out of range, clamping", "delay", delay, "min", 2, "max", MaxDelay)
		delay = max(2, min(delay, MaxDelay))
	}
	if !inUnit(feedback) {
		slog.Warn("string: feedback out of range, clamping", "feedback", feedback)
		feedback = clampUnit(feedback)
	}
	if !inUnit(decay) {
		slog.Warn("string: decay out of range, clamping", "decay", decay)
		decay = clampUnit(decay)
	}
	s := &String{
		delay: delay,
		base:  stringParams{decay: decay, feedback: feedback},
		noise: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	s.active = s.base
	return s
}

// DelayFor returns the ring length for a string sounding at freq.
func DelayFor(freq float64) int {
	return int(SampleRate / freq)
}

// Seed makes the excitation noise of subsequent plucks reproducible.
func (s *String) Seed(seed uint64) {
	s.noise = rand.New(rand.NewPCG(seed, seed))
}

// Pluck fills the resonator with white noise in [-strength, strength] and
// restores the configured decay and feedback.
func (s *String) Pluck(strength float64) {
	strength = max(0, min(strength, maxStrength))
	s.offset = 0
	s.active = s.base
	for i := range s.ring[:s.delay] {
		s.ring[i] = int16((s.noise.Float64()*2 - 1) * strength)
	}
}

// PluckShort is a pluck that dies out faster, for staccato notes and UI
// feedback blips.
func (s *String) PluckShort(strength float64) {
	s.Pluck(strength)
	s.active.decay = s.base.decay * damping
}

// Dampen makes the ongoing resonance fade faster. The energy already in the
// ring keeps circulating.
func (s *String) Dampen() {
	s.active.decay *= damping
}

// Render adds len(buf) samples of the string's output to buf and advances the
// resonator.
func (s *String) Render(buf []float32) {
	var (
		delay = s.delay
		fb    = s.active.feedback
		nfb   = (1 - fb) * 0.5
		decay = clampUnit(1 - (1-s.active.decay)*float64(delay)*refPitch/SampleRate)
	)
	for i := range buf {
		this := (s.offset + i) % delay
		prev := (this + delay - 1) % delay
		next := (this + 1) % delay

		cur := s.ring[this]
		buf[i] += float32(cur)

		v := math.Trunc(float64(cur)*fb + float64(s.ring[prev])*nfb + float64(s.ring[next])*nfb)
		s.ring[this] = int16(v * decay)
	}
	s.offset = (s.offset + len(buf)) % delay
}

// SetFeedback changes the timbre of the string. Values outside [0, 1] are
// rejected and leave the string unchanged.
func (s *String) SetFeedback(v float64) error {
	if !inUnit(v) {
		slog.Warn("string: rejecting feedback", "feedback", v)
		return fmt.Errorf("feedback is not in valid range 0 - 1: %v", v)
	}
	s.base.feedback = v
	s.active.feedback = v
	return nil
}

// SetDecay changes the baseline energy retention of the string. It takes
// effect with the next pluck.
func (s *String) SetDecay(v float64) error {
	if !inUnit(v) {
		slog.Warn("string: rejecting decay", "decay", v)
		return fmt.Errorf("decay is not in valid range 0 - 1: %v", v)
	}
	s.base.decay = v
	return nil
}

func (s *String) Delay() int         { return s.delay }
func (s *String) Offset() int        { return s.offset }
func (s *String) Feedback() float64  { return s.active.feedback }
func (s *String) Decay() float64     { return s.active.decay }
func (s *String) BaseDecay() float64 { return s.base.decay }

// Peak returns the largest magnitude currently stored in the resonator.
func (s *String) Peak() int {
	var peak int
	for _, v := range s.ring[:s.delay] {
		peak = max(peak, abs(int(v)))
	}
	return peak
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 }

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(v, 1))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
