package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdk "go.opentelemetry.io/otel/sdk/metric"

	"eunoia.dev/pkg/eunoia/version"
)

type ExportLogger interface {
	Logger
	Infof(format string, args ...any)
}

// Exporter owns a private Prometheus registry fed by an OpenTelemetry meter provider.
// The CLI flushes it to the log on exit; the dev server serves it over HTTP.
type Exporter struct {
	Manager

	registry *prometheus.Registry
	provider *sdk.MeterProvider
	logger   ExportLogger
}

// NewExporter builds a Manager whose values can be gathered from the returned Exporter.
// If the Prometheus exporter cannot be created, metrics are recorded into a no-op meter.
func NewExporter(appName string, logger ExportLogger) *Exporter {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry), otelprom.WithoutTargetInfo(), otelprom.WithoutScopeInfo())
	if err != nil {
		logger.Error(err)

		return &Exporter{
			Manager:  NewMetricsManager(noop.NewMeterProvider().Meter(appName), logger),
			registry: registry,
			logger:   logger,
		}
	}

	provider := sdk.NewMeterProvider(sdk.WithReader(exporter))
	meter := provider.Meter(appName, metric.WithInstrumentationVersion(version.Client))

	return &Exporter{
		Manager:  NewMetricsManager(meter, logger),
		registry: registry,
		provider: provider,
		logger:   logger,
	}
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Snapshot gathers every metric family into plain maps keyed by metric name.
func (e *Exporter) Snapshot() (map[string][]any, error) {
	families, err := e.registry.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]any, len(families))

	for _, mf := range families {
		out[mf.GetName()] = convertMetricFamily(mf)
	}

	return out, nil
}

// Flush logs the current snapshot as one JSON line. Nothing is logged when no metric has been recorded.
func (e *Exporter) Flush(_ context.Context) error {
	snapshot, err := e.Snapshot()
	if err != nil {
		return err
	}

	if len(snapshot) == 0 {
		return nil
	}

	b, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	e.logger.Infof("[EUNOIA_METRICS] %s", string(b))

	return nil
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.provider == nil {
		return nil
	}

	return e.provider.Shutdown(ctx)
}

func convertMetricFamily(mf *dto.MetricFamily) []any {
	samples := make([]any, 0, len(mf.GetMetric()))

	for _, m := range mf.GetMetric() {
		sample := make(map[string]any)

		if len(m.GetLabel()) > 0 {
			labels := make(map[string]string, len(m.GetLabel()))

			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}

			sample["labels"] = labels
		}

		switch {
		case m.Counter != nil:
			sample["value"] = m.GetCounter().GetValue()
		case m.Gauge != nil:
			sample["value"] = m.GetGauge().GetValue()
		case m.Histogram != nil:
			h := m.GetHistogram()
			sample["count"] = h.GetSampleCount()
			sample["sum"] = h.GetSampleSum()

			buckets := make(map[string]uint64, len(h.GetBucket()))
			for _, b := range h.GetBucket() {
				buckets[strconv.FormatFloat(b.GetUpperBound(), 'f', -1, 64)] = b.GetCumulativeCount()
			}

			sample["buckets"] = buckets
		}

		samples = append(samples, sample)
	}

	return samples
}
