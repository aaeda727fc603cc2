// Package observe provides the OpenTelemetry metrics of the transport.
//
// Instruments are created through the OpenTelemetry Metrics API. InitProvider
// installs a Prometheus exporter so they can be scraped from /metrics. Tests
// should use NewMetrics with their own metric.MeterProvider. A nil *Metrics is
// valid and records nothing.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/agnivade/sonic_transport"

// Metrics holds all metric instruments.
type Metrics struct {
	// EncodeDuration tracks how long rendering a waveform takes.
	EncodeDuration metric.Float64Histogram

	// MessagesEncoded counts encoded messages. Use with attribute:
	//   attribute.String("protocol", ...)
	MessagesEncoded metric.Int64Counter

	// MessagesDecoded counts messages found by the accumulator.
	MessagesDecoded metric.Int64Counter

	// DecodeErrors counts transient engine failures.
	DecodeErrors metric.Int64Counter

	// SamplesDiscarded counts samples dropped by the accumulator cap.
	SamplesDiscarded metric.Int64Counter

	// Transmissions counts playback attempts. Use with attribute:
	//   attribute.String("status", ...)
	Transmissions metric.Int64Counter

	// FallbackReports counts reports raised because nothing was decoded in
	// time.
	FallbackReports metric.Int64Counter

	// ActiveSessions tracks listening sessions.
	ActiveSessions metric.Int64UpDownCounter

	// RelayClients tracks connected WebSocket clients.
	RelayClients metric.Int64UpDownCounter
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EncodeDuration, err = m.Float64Histogram("sonic.encode.duration",
		metric.WithDescription("Latency of waveform encoding."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1),
	); err != nil {
		return nil, err
	}
	if met.MessagesEncoded, err = m.Int64Counter("sonic.messages.encoded",
		metric.WithDescription("Total encoded messages by protocol."),
	); err != nil {
		return nil, err
	}
	if met.MessagesDecoded, err = m.Int64Counter("sonic.messages.decoded",
		metric.WithDescription("Total decoded messages."),
	); err != nil {
		return nil, err
	}
	if met.DecodeErrors, err = m.Int64Counter("sonic.decode.errors",
		metric.WithDescription("Total transient decode failures."),
	); err != nil {
		return nil, err
	}
	if met.SamplesDiscarded, err = m.Int64Counter("sonic.samples.discarded",
		metric.WithDescription("Total samples dropped from the accumulation buffer."),
	); err != nil {
		return nil, err
	}
	if met.Transmissions, err = m.Int64Counter("sonic.transmissions",
		metric.WithDescription("Total transmissions by status."),
	); err != nil {
		return nil, err
	}
	if met.FallbackReports, err = m.Int64Counter("sonic.fallback.reports",
		metric.WithDescription("Total reports raised by the fallback timer."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("sonic.active_sessions",
		metric.WithDescription("Number of listening sessions."),
	); err != nil {
		return nil, err
	}
	if met.RelayClients, err = m.Int64UpDownCounter("sonic.relay.clients",
		metric.WithDescription("Number of connected relay clients."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordEncode records one encoded message.
func (m *Metrics) RecordEncode(ctx context.Context, protocol string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("protocol", protocol))
	m.EncodeDuration.Record(ctx, seconds, attrs)
	m.MessagesEncoded.Add(ctx, 1, attrs)
}

// RecordDecoded records one decoded message.
func (m *Metrics) RecordDecoded(ctx context.Context) {
	if m == nil {
		return
	}
	m.MessagesDecoded.Add(ctx, 1)
}

// RecordDecodeError records one transient decode failure.
func (m *Metrics) RecordDecodeError(ctx context.Context) {
	if m == nil {
		return
	}
	m.DecodeErrors.Add(ctx, 1)
}

// RecordDiscarded records samples dropped by the buffer cap.
func (m *Metrics) RecordDiscarded(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.SamplesDiscarded.Add(ctx, int64(n))
}

// RecordTransmission records a playback attempt with status "ok" or "error".
func (m *Metrics) RecordTransmission(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Transmissions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordFallback records a fallback report.
func (m *Metrics) RecordFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.FallbackReports.Add(ctx, 1)
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionStopped decrements the active session gauge.
func (m *Metrics) SessionStopped(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}

// RelayClientConnected adjusts the relay client gauge by delta.
func (m *Metrics) RelayClientConnected(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.RelayClients.Add(ctx, delta)
}
