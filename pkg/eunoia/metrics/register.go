// Package metrics instruments the eunoia client with OpenTelemetry metrics backed by a Prometheus registry.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Manager registers and records metrics. Errors are logged, never returned, so call sites stay clean.
type Manager interface {
	NewCounter(name, desc string)
	NewUpDownCounter(name, desc string)
	NewHistogram(name, desc string, buckets ...float64)

	IncrementCounter(ctx context.Context, name string, labels ...string)
	DeltaUpDownCounter(ctx context.Context, name string, value float64, labels ...string)
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
}

type Logger interface {
	Error(args ...any)
	Warnf(format string, args ...any)
}

type metricsManager struct {
	meter  metric.Meter
	store  *store
	logger Logger
}

// NewMetricsManager returns a Manager recording through meter.
func NewMetricsManager(meter metric.Meter, logger Logger) Manager {
	return &metricsManager{
		meter:  meter,
		store:  newStore(),
		logger: logger,
	}
}

// NewCounter registers a monotonically increasing counter.
//
//	Usage: m.NewCounter("eunoia_forced_logout_total", "Number of forced logouts")
func (m *metricsManager) NewCounter(name, desc string) {
	counter, err := m.meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error(err)

		return
	}

	if err = m.store.setCounter(name, counter); err != nil {
		m.logger.Error(err)
	}
}

func (m *metricsManager) NewUpDownCounter(name, desc string) {
	upDownCounter, err := m.meter.Float64UpDownCounter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error(err)

		return
	}

	if err = m.store.setUpDownCounter(name, upDownCounter); err != nil {
		m.logger.Error(err)
	}
}

// NewHistogram registers a histogram with explicit bucket boundaries.
//
//	Usage: m.NewHistogram("app_http_service_response", "Response time in seconds", .01, .1, 1, 10)
func (m *metricsManager) NewHistogram(name, desc string, buckets ...float64) {
	histogram, err := m.meter.Float64Histogram(name, metric.WithDescription(desc),
		metric.WithExplicitBucketBoundaries(buckets...))
	if err != nil {
		m.logger.Error(err)

		return
	}

	if err = m.store.setHistogram(name, histogram); err != nil {
		m.logger.Error(err)
	}
}

// IncrementCounter adds 1 to a registered counter. Labels alternate name and value:
//
//	m.IncrementCounter(ctx, "eunoia_session_refresh_total", "trigger", "reactive", "outcome", "success")
func (m *metricsManager) IncrementCounter(ctx context.Context, name string, labels ...string) {
	counter, err := m.store.getCounter(name)
	if err != nil {
		m.logger.Error(err)

		return
	}

	counter.Add(ctx, 1, metric.WithAttributes(m.getAttributes(name, labels...)...))
}

func (m *metricsManager) DeltaUpDownCounter(ctx context.Context, name string, value float64, labels ...string) {
	upDownCounter, err := m.store.getUpDownCounter(name)
	if err != nil {
		m.logger.Error(err)

		return
	}

	upDownCounter.Add(ctx, value, metric.WithAttributes(m.getAttributes(name, labels...)...))
}

func (m *metricsManager) RecordHistogram(ctx context.Context, name string, value float64, labels ...string) {
	histogram, err := m.store.getHistogram(name)
	if err != nil {
		m.logger.Error(err)

		return
	}

	histogram.Record(ctx, value, metric.WithAttributes(m.getAttributes(name, labels...)...))
}

// getAttributes turns alternating label names and values into otel attributes. A trailing name without value is dropped.
func (m *metricsManager) getAttributes(name string, labels ...string) []attribute.KeyValue {
	const cardinalityLimit = 20

	if len(labels)%2 != 0 {
		m.logger.Warnf("Metrics %v label has invalid key-value pairs", name)
	}

	if len(labels) > cardinalityLimit {
		m.logger.Warnf("Metrics %v has high cardinality: %v", name, len(labels))
	}

	attributes := make([]attribute.KeyValue, 0, len(labels)/2)

	for i := 0; i < len(labels)-1; i += 2 {
		attributes = append(attributes, attribute.String(labels[i], labels[i+1]))
	}

	return attributes
}
