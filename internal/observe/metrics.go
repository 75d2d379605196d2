// Package observe provides the OpenTelemetry metric instruments used across voiceprompt and
// the Prometheus bridge that exposes them on /metrics.
//
// Components take a *Metrics. Tests build one with NewMetrics over a ManualReader;
// production code uses DefaultMetrics after InitProvider has installed the global provider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/rbright/voiceprompt"

// Metrics holds all instruments. The OTel types handle their own synchronisation.
type Metrics struct {
	// AlignDuration tracks the time one alignment search takes.
	AlignDuration metric.Float64Histogram

	// AlignChunks counts heard-text chunks fed to the aligner. Attribute kind=final|interim.
	AlignChunks metric.Int64Counter

	// AlignAdvances counts alignments that moved the cursor.
	AlignAdvances metric.Int64Counter

	// WordsAdvanced sums the words the cursor moved through alignment.
	WordsAdvanced metric.Int64Counter

	// RecognitionRestarts counts recognizer restarts. Attribute reason=end|error.
	RecognitionRestarts metric.Int64Counter

	// RemoteCommands counts applied remote commands. Attributes action, source.
	RemoteCommands metric.Int64Counter

	// Broadcasts counts state frames pushed to remote clients.
	Broadcasts metric.Int64Counter

	// RemoteClients tracks connected remote clients. Attribute transport.
	RemoteClients metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP handler time. Attributes method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// alignBuckets are in seconds; a full window scan is sub-millisecond on typical scripts.
var alignBuckets = []float64{
	0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AlignDuration, err = m.Float64Histogram("voiceprompt.align.duration",
		metric.WithDescription("Latency of one speech-to-script alignment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(alignBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignChunks, err = m.Int64Counter("voiceprompt.align.chunks",
		metric.WithDescription("Heard-text chunks aligned, by kind."),
	); err != nil {
		return nil, err
	}
	if met.AlignAdvances, err = m.Int64Counter("voiceprompt.align.advances",
		metric.WithDescription("Alignments that moved the cursor."),
	); err != nil {
		return nil, err
	}
	if met.WordsAdvanced, err = m.Int64Counter("voiceprompt.align.words_advanced",
		metric.WithDescription("Words the cursor moved through alignment."),
	); err != nil {
		return nil, err
	}
	if met.RecognitionRestarts, err = m.Int64Counter("voiceprompt.recognition.restarts",
		metric.WithDescription("Recognizer restarts, by reason."),
	); err != nil {
		return nil, err
	}
	if met.RemoteCommands, err = m.Int64Counter("voiceprompt.remote.commands",
		metric.WithDescription("Remote commands applied, by action and source."),
	); err != nil {
		return nil, err
	}
	if met.Broadcasts, err = m.Int64Counter("voiceprompt.broadcasts",
		metric.WithDescription("State broadcasts published."),
	); err != nil {
		return nil, err
	}
	if met.RemoteClients, err = m.Int64UpDownCounter("voiceprompt.remote.clients",
		metric.WithDescription("Connected remote clients, by transport."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("voiceprompt.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on the global meter provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Discard returns instruments that record nothing.
func Discard() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return m
}

// RecordAlign records one alignment pass.
func (m *Metrics) RecordAlign(ctx context.Context, kind string, took time.Duration, advanced int) {
	m.AlignDuration.Record(ctx, took.Seconds())
	m.AlignChunks.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	if advanced > 0 {
		m.AlignAdvances.Add(ctx, 1)
		m.WordsAdvanced.Add(ctx, int64(advanced))
	}
}

// RecordRestart records a scheduled recognizer restart.
func (m *Metrics) RecordRestart(ctx context.Context, reason string) {
	m.RecognitionRestarts.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordCommand records an applied remote command.
func (m *Metrics) RecordCommand(ctx context.Context, action, source string) {
	m.RemoteCommands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("source", source),
	))
}

// ClientConnected adjusts the connected-client gauge by delta for transport.
func (m *Metrics) ClientConnected(ctx context.Context, transport string, delta int64) {
	m.RemoteClients.Add(ctx, delta, metric.WithAttributes(attribute.String("transport", transport)))
}
