package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/youpy/go-wav"
)

// WavSink records everything the player writes and stores it as a mono 16 bit
// WAV file on Close. With Realtime set, Write paces itself to the sample rate
// so that a live session is recorded with its original timing.
type WavSink struct {
	Realtime bool

	path    string
	samples []wav.Sample
	enabled bool
	start   time.Time
	written int // samples since the last enable
}

func NewWavSink(path string) *WavSink {
	return &WavSink{path: path}
}

func (s *WavSink) Enable() error {
	s.enabled = true
	s.start = time.Now()
	s.written = 0
	return nil
}

func (s *WavSink) Disable() error {
	s.enabled = false
	return nil
}

func (s *WavSink) Write(frame []int16, timeout time.Duration) error {
	if !s.enabled {
		return fmt.Errorf("wav sink is disabled")
	}
	if s.Realtime {
		due := s.start.Add(time.Duration(s.written) * time.Second / SampleRate)
		if wait := time.Until(due); wait > timeout {
			return ErrTimeout
		} else if wait > 0 {
			time.Sleep(wait)
		}
	}
	for _, v := range frame {
		s.samples = append(s.samples, wav.Sample{Values: [2]int{int(v)}})
	}
	s.written += len(frame)
	return nil
}

// Samples returns the number of samples recorded so far.
func (s *WavSink) Samples() int { return len(s.samples) }

func (s *WavSink) Close() error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	w := wav.NewWriter(f, uint32(len(s.samples)), 1, SampleRate, 16)
	if err := w.WriteSamples(s.samples); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return f.Close()
}
