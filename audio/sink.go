package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
)

// ErrTimeout is returned by a Sink whose output did not accept a frame in time.
var ErrTimeout = errors.New("audio: sink write timed out")

// Sink is the audio output the player pushes mono 16 bit frames to.
type Sink interface {
	// Enable powers up the output. Frames are only written while enabled.
	Enable() error
	// Disable stops the output when there is nothing to play.
	Disable() error
	// Write blocks until the frame has been queued or timeout has passed.
	Write(frame []int16, timeout time.Duration) error
	Close() error
}

// PortAudioSink writes frames to the default output device using a blocking
// PortAudio stream.
type PortAudioSink struct {
	stream *portaudio.Stream
	buf    []int16
}

func NewPortAudioSink(frameSize int) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	s := &PortAudioSink{buf: make([]int16, frameSize)}
	stream, err := portaudio.OpenDefaultStream(0, 1, SampleRate, frameSize, &s.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

func (s *PortAudioSink) Enable() error {
	return s.stream.Start()
}

func (s *PortAudioSink) Disable() error {
	return s.stream.Stop()
}

func (s *PortAudioSink) Write(frame []int16, timeout time.Duration) error {
	if len(frame) != len(s.buf) {
		return fmt.Errorf("frame size %d does not match stream buffer %d", len(frame), len(s.buf))
	}
	deadline := time.Now().Add(timeout)
	for {
		n, err := s.stream.AvailableToWrite()
		if err != nil {
			return err
		}
		if n >= len(s.buf) {
			break
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
	copy(s.buf, frame)
	if err := s.stream.Write(); err != nil && err != portaudio.OutputUnderflowed {
		return err
	}
	return nil
}

func (s *PortAudioSink) Close() error {
	s.stream.Close()
	portaudio.Terminate()
	return nil
}
