package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/youpy/go-wav"
)

// SoundEffects are the files the sample bank plays, one per note key.
var SoundEffects = [NumNotes]string{
	"toilet.wav",
	"bark.wav",
	"knock.wav",
	"meow.wav",
	"cat.wav",
	"fart.wav",
	"frog.wav",
	"chainsaw.wav",
	"rooster.wav",
	"crying.wav",
	"chicken.wav",
	"glass.wav",
	"plate.wav",
}

// SoundEffectPaths returns the sound effect files inside dir.
func SoundEffectPaths(dir string) []string {
	paths := make([]string, len(SoundEffects))
	for i, name := range SoundEffects {
		paths[i] = filepath.Join(dir, name)
	}
	return paths
}

// Sampler is a non-tonal instrument that plays one 16 bit WAV file per key.
// Each press restarts its file from the beginning; playback is one-shot and
// ignores key releases.
type Sampler struct {
	slots []*sample
}

type sample struct {
	path  string
	file  *os.File
	r     *wav.Reader
	align int    // bytes per sample frame, channel 0 first
	raw   []byte // reused between frames
}

func NewSampler(paths []string) *Sampler {
	s := &Sampler{}
	for _, path := range paths {
		s.slots = append(s.slots, &sample{path: path})
	}
	return s
}

func (s *Sampler) Enable() {}

func (s *Sampler) KeyPress(key int) {
	if key < 0 || key >= len(s.slots) {
		slog.Debug("sampler: no slot for key", "key", key)
		return
	}
	slot := s.slots[key]
	slog.Info("sampler: play sample", "key", key, "path", slot.path)
	if err := slot.rewind(); err != nil {
		slog.Warn("sampler: slot stays inactive", "key", key, "err", err)
		slot.close()
	}
}

func (s *Sampler) KeyRelease(key int) {}

// Render streams one frame from every playing slot. A slot that runs out of
// samples mid-frame contributes silence for the rest of the frame and is
// closed. Only the first channel is played.
func (s *Sampler) Render(buf []float32) {
	for key, slot := range s.slots {
		if slot.r == nil {
			continue
		}
		need := len(buf) * slot.align
		if cap(slot.raw) < need {
			slot.raw = make([]byte, need)
		}
		raw := slot.raw[:need]
		n, err := io.ReadFull(slot.r, raw)
		for i := 0; i < n/slot.align; i++ {
			buf[i] += float32(int16(binary.LittleEndian.Uint16(raw[i*slot.align:])))
		}
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			slog.Warn("sampler: read failed", "key", key, "err", err)
		}
		if err != nil {
			slot.close()
		}
	}
}

// Playing reports whether the slot for key is currently streaming.
func (s *Sampler) Playing(key int) bool {
	return key >= 0 && key < len(s.slots) && s.slots[key].r != nil
}

// Close releases all open files.
func (s *Sampler) Close() error {
	for _, slot := range s.slots {
		slot.close()
	}
	return nil
}

func (s *sample) rewind() error {
	if s.file == nil {
		f, err := os.Open(s.path)
		if err != nil {
			return err
		}
		s.file = f
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", s.path, err)
	}
	r := wav.NewReader(s.file)
	format, err := r.Format()
	if err != nil {
		return fmt.Errorf("read format of %s: %w", s.path, err)
	}
	if format.AudioFormat != wav.AudioFormatPCM || format.BitsPerSample != 16 {
		return fmt.Errorf("%s: unsupported format %d with sample width %d", s.path, format.AudioFormat, format.BitsPerSample)
	}
	if int(format.BlockAlign) < 2 {
		return fmt.Errorf("%s: invalid block alignment %d", s.path, format.BlockAlign)
	}
	if format.SampleRate != SampleRate {
		slog.Warn("sampler: sample rate mismatch", "path", s.path, "rate", format.SampleRate, "want", SampleRate)
	}
	s.r = r
	s.align = int(format.BlockAlign)
	return nil
}

func (s *sample) close() {
	if s.file != nil {
		s.file.Close()
	}
	s.file = nil
	s.r = nil
}
