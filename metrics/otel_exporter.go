package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marcelsud/webhook-relay/health"
	"github.com/marcelsud/webhook-relay/relay"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	gatherer      promclient.Gatherer
	collector     Collector

	// OTel meters and instruments
	meter              metric.Meter
	relayAttempts      metric.Int64Counter
	relayDuration      metric.Float64Histogram
	probeCount         metric.Int64Counter
	probeDuration      metric.Float64Histogram
	cacheDecisions     metric.Int64Counter
	endpointHealthy    metric.Int64ObservableGauge
	endpointFailures   metric.Int64ObservableGauge
	endpointRegistered metric.Int64ObservableGauge
}

// Ensure OTelExporter records relay and health events
var (
	_ relay.Recorder  = (*OTelExporter)(nil)
	_ health.Recorder = (*OTelExporter)(nil)
)

// NewOTelExporter creates an exporter on the default Prometheus registry and
// installs it as the global meter provider
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	oe, err := newOTelExporter(collector, promclient.DefaultRegisterer, promclient.DefaultGatherer)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(oe.meterProvider)
	return oe, nil
}

// NewOTelExporterWithRegistry creates an exporter isolated on reg
func NewOTelExporterWithRegistry(collector Collector, reg *promclient.Registry) (*OTelExporter, error) {
	return newOTelExporter(collector, reg, reg)
}

func newOTelExporter(collector Collector, reg promclient.Registerer, gatherer promclient.Gatherer) (*OTelExporter, error) {
	// Create Prometheus exporter
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	// Create meter with service info
	meter := meterProvider.Meter(
		"webhook-relay",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		gatherer:      gatherer,
		collector:     collector,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.relayAttempts, err = oe.meter.Int64Counter(
		"relay.attempts",
		metric.WithDescription("Relay attempts by endpoint and outcome"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return fmt.Errorf("creating relay attempts counter: %w", err)
	}

	oe.relayDuration, err = oe.meter.Float64Histogram(
		"relay.duration",
		metric.WithDescription("Time spent relaying a message, including the webhook call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating relay duration histogram: %w", err)
	}

	oe.probeCount, err = oe.meter.Int64Counter(
		"health.probes",
		metric.WithDescription("Health probes sent by endpoint and verdict"),
		metric.WithUnit("{probes}"),
	)
	if err != nil {
		return fmt.Errorf("creating probe counter: %w", err)
	}

	oe.probeDuration, err = oe.meter.Float64Histogram(
		"health.probe.duration",
		metric.WithDescription("Time spent on a health probe"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating probe duration histogram: %w", err)
	}

	oe.cacheDecisions, err = oe.meter.Int64Counter(
		"health.cache.decisions",
		metric.WithDescription("How health checks were answered: fresh, backoff, probed or shared"),
		metric.WithUnit("{checks}"),
	)
	if err != nil {
		return fmt.Errorf("creating cache decision counter: %w", err)
	}

	// Cached verdict gauge (per endpoint)
	oe.endpointHealthy, err = oe.meter.Int64ObservableGauge(
		"endpoint.healthy",
		metric.WithDescription("1 when the cached verdict of the endpoint is healthy"),
		metric.WithInt64Callback(oe.observeHealthy),
	)
	if err != nil {
		return fmt.Errorf("creating endpoint healthy gauge: %w", err)
	}

	// Consecutive failures gauge (per endpoint)
	oe.endpointFailures, err = oe.meter.Int64ObservableGauge(
		"endpoint.failures",
		metric.WithDescription("Consecutive failed probes per endpoint"),
		metric.WithUnit("{probes}"),
		metric.WithInt64Callback(oe.observeFailures),
	)
	if err != nil {
		return fmt.Errorf("creating endpoint failures gauge: %w", err)
	}

	oe.endpointRegistered, err = oe.meter.Int64ObservableGauge(
		"endpoint.registered",
		metric.WithDescription("Number of registered endpoints"),
		metric.WithUnit("{endpoints}"),
		metric.WithInt64Callback(oe.observeRegistered),
	)
	if err != nil {
		return fmt.Errorf("creating registered endpoints gauge: %w", err)
	}

	return nil
}

// RecordRelay counts one relay attempt
func (oe *OTelExporter) RecordRelay(ctx context.Context, endpointID string, code relay.Code, elapsed time.Duration) {
	outcome := "delivered"
	if code != relay.CodeNone {
		outcome = code.String()
	}
	attrs := metric.WithAttributes(
		attribute.String("endpoint.id", endpointID),
		attribute.String("relay.outcome", outcome),
	)
	oe.relayAttempts.Add(ctx, 1, attrs)
	oe.relayDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordProbe counts one probe sent over the network or format-checked
func (oe *OTelExporter) RecordProbe(ctx context.Context, endpointID string, healthy bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("endpoint.id", endpointID),
		attribute.Bool("probe.healthy", healthy),
	)
	oe.probeCount.Add(ctx, 1, attrs)
	oe.probeDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordDecision counts how a health check was answered
func (oe *OTelExporter) RecordDecision(ctx context.Context, endpointID string, d health.Decision) {
	oe.cacheDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint.id", endpointID),
		attribute.String("cache.decision", d.String()),
	))
}

// observeHealthy is a callback that reports cached verdicts of checked endpoints
func (oe *OTelExporter) observeHealthy(ctx context.Context, observer metric.Int64Observer) error {
	snapshot, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}

	for id, h := range snapshot.Endpoints {
		if !h.Checked {
			continue
		}
		var v int64
		if h.Healthy {
			v = 1
		}
		observer.Observe(v, metric.WithAttributes(
			attribute.String("endpoint.id", id),
		))
	}

	return nil
}

// observeFailures is a callback that reports consecutive failures
func (oe *OTelExporter) observeFailures(ctx context.Context, observer metric.Int64Observer) error {
	snapshot, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}

	for id, h := range snapshot.Endpoints {
		observer.Observe(h.FailureCount, metric.WithAttributes(
			attribute.String("endpoint.id", id),
		))
	}

	return nil
}

// observeRegistered is a callback that reports the number of endpoints
func (oe *OTelExporter) observeRegistered(ctx context.Context, observer metric.Int64Observer) error {
	snapshot, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}

	observer.Observe(int64(len(snapshot.Endpoints)))
	return nil
}

// ServeHTTP serves Prometheus-formatted metrics
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.gatherer, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
