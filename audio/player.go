package audio

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// SilenceFrames is the number of consecutive silent frames after which
	// the sink is powered down.
	SilenceFrames = 100

	defaultWriteTimeout = 100 * time.Millisecond
	defaultIdlePoll     = 10 * time.Millisecond
	eventQueueSize      = 64
)

// Player is the playback scheduler. Its Run loop owns the frame buffers and is
// the only goroutine that touches instrument state; key events reach it
// through a single consumer queue that the render loop drains without
// locking. Key methods may be called from any goroutine.
type Player struct {
	sel     *Selector
	sink    Sink
	metrics *Metrics

	volume    *atomic.Value
	maxVolume *atomic.Value

	pushMu sync.Mutex // serialises producers; the render loop never takes it
	events *eventBuffer
	wake   chan struct{}

	buf []float32
	out []int16

	silenceFrames int
	writeTimeout  time.Duration
	idlePoll      time.Duration

	silent  int
	enabled bool
}

// Option configures a Player during construction.
type Option func(*Player)

func WithMetrics(m *Metrics) Option {
	return func(p *Player) { p.metrics = m }
}

func WithFrameSize(n int) Option {
	return func(p *Player) {
		if n > 0 {
			p.buf = make([]float32, n)
			p.out = make([]int16, n)
		}
	}
}

func WithSilenceFrames(n int) Option {
	return func(p *Player) {
		if n > 0 {
			p.silenceFrames = n
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(p *Player) { p.writeTimeout = d }
}

func WithIdlePoll(d time.Duration) Option {
	return func(p *Player) { p.idlePoll = d }
}

// NewPlayer registers the volume and max_volume properties in props.
func NewPlayer(sel *Selector, sink Sink, props *Props, opts ...Option) *Player {
	p := &Player{
		sel:           sel,
		sink:          sink,
		volume:        props.MustRegister(PropVolume, setVolume, 1.0),
		maxVolume:     props.MustRegister(PropMaxVolume, setMaxVolume, float64(DefaultMaxVolume)),
		events:        newEventBuffer(eventQueueSize),
		wake:          make(chan struct{}, 1),
		buf:           make([]float32, FrameSize),
		out:           make([]int16, FrameSize),
		silenceFrames: SilenceFrames,
		writeTimeout:  defaultWriteTimeout,
		idlePoll:      defaultIdlePoll,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		m, err := NewMetrics(nil)
		if err != nil {
			panic(err)
		}
		p.metrics = m
	}
	return p
}

// KeyPress plucks note on the current instrument.
func (p *Player) KeyPress(note int) { p.push(event{kind: eventPress, key: note}) }

// KeyRelease dampens note on the current instrument.
func (p *Player) KeyRelease(note int) { p.push(event{kind: eventRelease, key: note}) }

// Press plays a note that is released right away, for UI tones and tunes.
func (p *Player) Press(note int) { p.push(event{kind: eventTap, key: note}) }

// SetFeedback adjusts the timbre of note on the current instrument, if it
// supports it.
func (p *Player) SetFeedback(note int, v float64) {
	p.push(event{kind: eventFeedback, key: note, value: v})
}

// Enabled reports whether the sink is currently powered. It must only be
// called from the goroutine running the player.
func (p *Player) Enabled() bool { return p.enabled }

func (p *Player) push(ev event) {
	p.pushMu.Lock()
	ok := p.events.push(ev)
	p.pushMu.Unlock()
	if !ok {
		slog.Warn("player: event queue full, dropping event", "key", ev.key)
		p.metrics.droppedEvent()
		return
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run renders frames until ctx is done. It never returns early because of
// sink errors; those only cost the affected frame.
func (p *Player) Run(ctx context.Context) error {
	defer func() {
		if p.enabled {
			if err := p.sink.Disable(); err != nil {
				slog.Warn("player: disable sink", "err", err)
			}
		}
	}()
	for ctx.Err() == nil {
		p.tick(ctx)
	}
	return nil
}

func (p *Player) tick(ctx context.Context) {
	level := p.process()
	if level == 0 {
		p.silent++
	} else {
		p.silent = 0
	}

	if p.enabled && p.silent >= p.silenceFrames {
		slog.Debug("player: silence, disabling sink")
		if err := p.sink.Disable(); err != nil {
			slog.Warn("player: disable sink", "err", err)
		}
		p.enabled = false
		p.metrics.sinkState(false)
	}

	if !p.enabled {
		if level == 0 {
			p.wait(ctx)
			return
		}
		slog.Debug("player: sound, enabling sink")
		if err := p.sink.Enable(); err != nil {
			slog.Warn("player: enable sink", "err", err)
			p.metrics.sinkError("enable")
			p.wait(ctx)
			return
		}
		p.enabled = true
		p.metrics.sinkState(true)
	}

	if err := p.sink.Write(p.out, p.writeTimeout); err != nil {
		reason := "write"
		if errors.Is(err, ErrTimeout) {
			reason = "timeout"
		}
		slog.Debug("player: skipping frame", "reason", reason, "err", err)
		p.metrics.sinkError(reason)
	}
}

// process renders one frame into p.out and returns its total absolute level.
func (p *Player) process() int {
	inst := p.sel.Current()
	p.events.iter(func(ev event) {
		switch ev.kind {
		case eventPress:
			inst.KeyPress(ev.key)
		case eventRelease:
			inst.KeyRelease(ev.key)
		case eventTap:
			inst.KeyPress(ev.key)
			inst.KeyRelease(ev.key)
		case eventFeedback:
			if t, ok := inst.(Tuner); ok {
				if err := t.SetFeedback(ev.key, ev.value); err != nil {
					slog.Warn("player: set feedback", "key", ev.key, "err", err)
				}
			}
		}
	})

	clear(p.buf)
	inst.Render(p.buf)

	gain := Limit(p.buf, float32(p.maxVolume.Load().(float64)))
	vol := float32(p.volume.Load().(float64))

	level := 0
	for i, v := range p.buf {
		s := toInt16(v * vol)
		p.out[i] = s
		level += abs(int(s))
	}
	p.metrics.frame(level == 0, gain < 1)
	return level
}

func (p *Player) wait(ctx context.Context) {
	t := time.NewTimer(p.idlePoll)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-p.wake:
	case <-t.C:
	}
}

func toInt16(v float32) int16 {
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
