package audio

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSink struct {
	enabled           bool
	enables, disables int
	frames            [][]int16
	err               error
}

func (s *fakeSink) Enable() error {
	s.enabled = true
	s.enables++
	return nil
}

func (s *fakeSink) Disable() error {
	s.enabled = false
	s.disables++
	return nil
}

func (s *fakeSink) Write(frame []int16, timeout time.Duration) error {
	if !s.enabled {
		return errors.New("write to disabled sink")
	}
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, slices.Clone(frame))
	return nil
}

func (s *fakeSink) Close() error { return nil }

type playerFixture struct {
	player *Player
	sink   *fakeSink
	inst   *recorder
	props  *Props
	reader *sdkmetric.ManualReader
	ctx    context.Context
}

func newPlayerFixture(t *testing.T) *playerFixture {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	f := &playerFixture{
		sink:   &fakeSink{},
		inst:   &recorder{},
		props:  NewProps(),
		reader: reader,
	}
	sel := NewSelector(nil, Slot{"recorder", f.inst})
	f.player = NewPlayer(sel, f.sink, f.props, WithMetrics(m), WithFrameSize(8))

	// A canceled context keeps idle ticks from waiting.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.ctx = ctx
	return f
}

func (f *playerFixture) tick(n int) {
	for i := 0; i < n; i++ {
		f.player.tick(f.ctx)
	}
}

func (f *playerFixture) counter(t *testing.T, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := f.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: unexpected data type %T", name, m.Data)
			}
		points:
			for _, dp := range sum.DataPoints {
				for _, kv := range attrs {
					if v, ok := dp.Attributes.Value(kv.Key); !ok || v.Emit() != kv.Value.Emit() {
						continue points
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}

func TestPlayerStaysOffWhileSilent(t *testing.T) {
	f := newPlayerFixture(t)
	f.tick(250)
	if want, got := 0, f.sink.enables; want != got {
		t.Errorf("enables: want %v, got %v", want, got)
	}
	if want, got := 0, len(f.sink.frames); want != got {
		t.Errorf("frames written: want %v, got %v", want, got)
	}
	if want, got := int64(250), f.counter(t, "pluck.frames", attribute.Bool("silent", true)); want != got {
		t.Errorf("silent frames: want %v, got %v", want, got)
	}
}

func TestPlayerEnablesOnSound(t *testing.T) {
	f := newPlayerFixture(t)
	f.inst.level = 100
	f.tick(1)
	if !f.player.Enabled() || f.sink.enables != 1 {
		t.Fatalf("expected the sink to be enabled once, got %v enables", f.sink.enables)
	}
	if want, got := 1, len(f.sink.frames); want != got {
		t.Fatalf("frames written: want %v, got %v", want, got)
	}
	for i, v := range f.sink.frames[0] {
		if want, got := int16(100), v; want != got {
			t.Errorf("sample %d: want %v, got %v", i, want, got)
		}
	}
}

func TestPlayerSilenceDebounce(t *testing.T) {
	f := newPlayerFixture(t)
	f.inst.level = 100
	f.tick(1)
	f.inst.level = 0

	f.tick(SilenceFrames - 1)
	if want, got := 0, f.sink.disables; want != got {
		t.Fatalf("disabled too early after %d silent frames", SilenceFrames-1)
	}
	if want, got := SilenceFrames, len(f.sink.frames); want != got {
		t.Errorf("frames written: want %v, got %v", want, got)
	}

	f.tick(1)
	if want, got := 1, f.sink.disables; want != got {
		t.Errorf("disables: want %v, got %v", want, got)
	}
	if f.player.Enabled() {
		t.Errorf("player still thinks the sink is enabled")
	}
	if want, got := SilenceFrames, len(f.sink.frames); want != got {
		t.Errorf("frame written after disabling: want %v, got %v", want, got)
	}

	// Sound brings the sink back right away.
	f.inst.level = 1
	f.tick(1)
	if want, got := 2, f.sink.enables; want != got {
		t.Errorf("enables: want %v, got %v", want, got)
	}
	if want, got := int64(1), f.counter(t, "pluck.sink.transitions", attribute.Bool("enabled", false)); want != got {
		t.Errorf("disable transitions: want %v, got %v", want, got)
	}
}

func TestPlayerSkipsFramesOnSinkError(t *testing.T) {
	f := newPlayerFixture(t)
	f.inst.level = 100
	f.sink.err = ErrTimeout
	f.tick(3)
	f.sink.err = errors.New("device gone")
	f.tick(2)
	f.sink.err = nil
	f.tick(1)

	if want, got := 1, len(f.sink.frames); want != got {
		t.Errorf("frames written: want %v, got %v", want, got)
	}
	if want, got := int64(3), f.counter(t, "pluck.sink.errors", attribute.String("reason", "timeout")); want != got {
		t.Errorf("timeouts: want %v, got %v", want, got)
	}
	if want, got := int64(2), f.counter(t, "pluck.sink.errors", attribute.String("reason", "write")); want != got {
		t.Errorf("write errors: want %v, got %v", want, got)
	}
}

func TestPlayerRoutesEvents(t *testing.T) {
	f := newPlayerFixture(t)
	f.player.KeyPress(3)
	f.player.Press(5)
	f.player.KeyRelease(3)
	f.tick(1)

	want := []string{"press 3", "press 5", "release 5", "release 3"}
	if !slices.Equal(want, f.inst.log) {
		t.Errorf("want %v, got %v", want, f.inst.log)
	}
}

func TestPlayerFeedbackReachesTuner(t *testing.T) {
	sink := &fakeSink{}
	inst := NewTonal(Low)
	p := NewPlayer(NewSelector(nil, Slot{"tonal", inst}), sink, NewProps())
	p.SetFeedback(2, 0.25)
	p.SetFeedback(99, 0.25)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.tick(ctx)
	if want, got := 0.25, inst.Bank.Note(2).Feedback(); want != got {
		t.Errorf("feedback: want %v, got %v", want, got)
	}
}

func TestPlayerVolume(t *testing.T) {
	f := newPlayerFixture(t)
	if err := f.props.Set(PropVolume, 0.5); err != nil {
		t.Fatal(err)
	}
	if err := f.props.Set(PropVolume, 1.5); err == nil {
		t.Errorf("expected volume above 1 to be rejected")
	}
	f.inst.level = 1000
	f.tick(1)
	if want, got := int16(500), f.sink.frames[0][0]; want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestPlayerLimits(t *testing.T) {
	f := newPlayerFixture(t)
	f.inst.level = 40000
	f.tick(1)
	for i, v := range f.sink.frames[0] {
		if want, got := int16(DefaultMaxVolume), v; want != got {
			t.Errorf("sample %d: want %v, got %v", i, want, got)
		}
	}
	if want, got := int64(1), f.counter(t, "pluck.frames.limited"); want != got {
		t.Errorf("limited frames: want %v, got %v", want, got)
	}
}

func TestPlayerDropsEventsWhenFull(t *testing.T) {
	f := newPlayerFixture(t)
	for n := 0; n < eventQueueSize+3; n++ {
		f.player.KeyPress(0)
	}
	if want, got := int64(3), f.counter(t, "pluck.events.dropped"); want != got {
		t.Errorf("dropped events: want %v, got %v", want, got)
	}
	f.tick(1)
	if want, got := eventQueueSize, len(f.inst.log); want != got {
		t.Errorf("delivered events: want %v, got %v", want, got)
	}
}

func TestPlayerRunStopsOnCancel(t *testing.T) {
	f := newPlayerFixture(t)
	f.inst.level = 10

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- f.player.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if f.sink.enabled {
		t.Errorf("sink left enabled after Run returned")
	}
}
