package audio

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/mrdg/pluck/audio"

// Metrics holds the instruments the player records to. The OTel types handle
// their own synchronisation.
type Metrics struct {
	// Frames counts rendered frames. Use with attribute.Bool("silent", ...).
	Frames metric.Int64Counter

	// Limited counts frames whose gain the limiter had to reduce.
	Limited metric.Int64Counter

	// SinkErrors counts skipped frames. Use with attribute.String("reason", ...).
	SinkErrors metric.Int64Counter

	// SinkState counts sink power transitions. Use with attribute.Bool("enabled", ...).
	SinkState metric.Int64Counter

	// DroppedEvents counts key events lost to a full event queue.
	DroppedEvents metric.Int64Counter

	silent, audible metric.AddOption
}

// NewMetrics creates the player instruments from mp. A nil mp uses the global
// meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	var (
		m   Metrics
		err error
	)
	if m.Frames, err = meter.Int64Counter("pluck.frames",
		metric.WithDescription("Frames rendered by the player.")); err != nil {
		return nil, err
	}
	if m.Limited, err = meter.Int64Counter("pluck.frames.limited",
		metric.WithDescription("Frames attenuated by the limiter.")); err != nil {
		return nil, err
	}
	if m.SinkErrors, err = meter.Int64Counter("pluck.sink.errors",
		metric.WithDescription("Frames skipped because the sink failed.")); err != nil {
		return nil, err
	}
	if m.SinkState, err = meter.Int64Counter("pluck.sink.transitions",
		metric.WithDescription("Audio sink enable and disable transitions.")); err != nil {
		return nil, err
	}
	if m.DroppedEvents, err = meter.Int64Counter("pluck.events.dropped",
		metric.WithDescription("Key events dropped because the queue was full.")); err != nil {
		return nil, err
	}
	m.silent = metric.WithAttributes(attribute.Bool("silent", true))
	m.audible = metric.WithAttributes(attribute.Bool("silent", false))
	return &m, nil
}

func (m *Metrics) frame(silent bool, limited bool) {
	ctx := context.Background()
	if silent {
		m.Frames.Add(ctx, 1, m.silent)
	} else {
		m.Frames.Add(ctx, 1, m.audible)
	}
	if limited {
		m.Limited.Add(ctx, 1)
	}
}

func (m *Metrics) sinkError(reason string) {
	m.SinkErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) sinkState(enabled bool) {
	m.SinkState.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("enabled", enabled)))
}

func (m *Metrics) droppedEvent() {
	m.DroppedEvents.Add(context.Background(), 1)
}
