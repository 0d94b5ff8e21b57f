package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "webhook-router"

// OTelExporter exposes the router state as OpenTelemetry gauges in Prometheus format
type OTelExporter struct {
	registry      *prometheus.Registry
	meterProvider *sdkmetric.MeterProvider
	collector     Collector
	registration  metric.Registration

	statusCount     metric.Int64ObservableGauge
	throughput      metric.Int64ObservableGauge
	inFlight        metric.Int64ObservableGauge
	activeInstances metric.Int64ObservableGauge
}

// NewOTelExporter creates the exporter on its own Prometheus registry.
// It installs the global meter provider, so instruments created through otel.Meter
// (the dispatcher histogram, otelhttp) end up on the same scrape.
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)

	oe := &OTelExporter{
		registry:      registry,
		meterProvider: meterProvider,
		collector:     collector,
	}

	meter := meterProvider.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))
	if err := oe.registerInstruments(meter); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

func (oe *OTelExporter) registerInstruments(meter metric.Meter) error {
	var err error

	oe.statusCount, err = meter.Int64ObservableGauge(
		"webhook.status.count",
		metric.WithDescription("Number of delivery events by status"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return fmt.Errorf("creating status count gauge: %w", err)
	}

	oe.throughput, err = meter.Int64ObservableGauge(
		"webhook.throughput",
		metric.WithDescription("Number of events routed to a terminal state over time window"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return fmt.Errorf("creating throughput gauge: %w", err)
	}

	oe.inFlight, err = meter.Int64ObservableGauge(
		"webhook.routing.in_flight",
		metric.WithDescription("Number of events currently being routed by this instance"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return fmt.Errorf("creating in flight gauge: %w", err)
	}

	oe.activeInstances, err = meter.Int64ObservableGauge(
		"webhook.instances.active",
		metric.WithDescription("Number of router instances with a live heartbeat"),
		metric.WithUnit("{instances}"),
	)
	if err != nil {
		return fmt.Errorf("creating active instances gauge: %w", err)
	}

	// one Collect per scrape instead of one store round trip per gauge
	oe.registration, err = meter.RegisterCallback(oe.observe,
		oe.statusCount, oe.throughput, oe.inFlight, oe.activeInstances)
	if err != nil {
		return fmt.Errorf("registering callback: %w", err)
	}

	return nil
}

func (oe *OTelExporter) observe(ctx context.Context, o metric.Observer) error {
	m, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}

	for status, count := range m.StatusCounts {
		o.ObserveInt64(oe.statusCount, count, metric.WithAttributes(
			attribute.String("webhook.status", status),
		))
	}

	windows := []struct {
		name  string
		value int64
	}{
		{"1m", m.Throughput.LastMinute},
		{"5m", m.Throughput.LastFiveMinutes},
		{"15m", m.Throughput.LastFifteenMinutes},
	}
	for _, w := range windows {
		o.ObserveInt64(oe.throughput, w.value, metric.WithAttributes(
			attribute.String("time.window", w.name),
		))
	}

	o.ObserveInt64(oe.inFlight, m.InFlight)
	o.ObserveInt64(oe.activeInstances, int64(len(m.Instances)))
	return nil
}

// Handler serves the exporter registry in Prometheus text format
func (oe *OTelExporter) Handler() http.Handler {
	return promhttp.HandlerFor(oe.registry, promhttp.HandlerOpts{})
}

// Shutdown unregisters the callback and flushes the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.registration != nil {
		_ = oe.registration.Unregister()
	}
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
