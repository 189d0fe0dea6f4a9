package audio

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

const otoQueueDepth = 8

// OtoSink adapts the pull based oto player to the push based Sink interface.
// Frames travel through a fixed set of preallocated buffers so that writing
// does not allocate.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player

	free   chan []byte
	queued chan []byte

	pending []byte // partially consumed frame, owned by Read
	current []byte
}

func NewOtoSink(frameSize int) (*OtoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(frameSize*otoQueueDepth) * time.Second / SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	<-ready

	s := &OtoSink{
		ctx:    ctx,
		free:   make(chan []byte, otoQueueDepth),
		queued: make(chan []byte, otoQueueDepth),
	}
	for i := 0; i < otoQueueDepth; i++ {
		s.free <- make([]byte, frameSize*2)
	}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

func (s *OtoSink) Enable() error {
	s.player.Play()
	return nil
}

func (s *OtoSink) Disable() error {
	s.player.Pause()
	return nil
}

func (s *OtoSink) Write(frame []int16, timeout time.Duration) error {
	var buf []byte
	select {
	case buf = <-s.free:
	case <-time.After(timeout):
		return ErrTimeout
	}
	if len(frame)*2 > cap(buf) {
		s.free <- buf
		return fmt.Errorf("frame size %d exceeds sink buffer %d", len(frame), cap(buf)/2)
	}
	buf = buf[:len(frame)*2]
	for i, v := range frame {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	s.queued <- buf
	return nil
}

// Read is called by the oto player. Missing frames are filled with silence.
func (s *OtoSink) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			if s.current != nil {
				s.free <- s.current[:cap(s.current)]
				s.current = nil
			}
			select {
			case buf := <-s.queued:
				s.current = buf
				s.pending = buf
			default:
				clear(p[n:])
				return len(p), nil
			}
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *OtoSink) Close() error {
	return s.player.Close()
}
