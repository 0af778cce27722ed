// SPDX-License-Identifier: Apache-2.0

package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Provider exports the metrics and traces of the docsync components over
// OTLP/gRPC. Signals that are not configured use noop providers.
type Provider struct {
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	resource       *resource.Resource
	shutdownFns    []func(context.Context) error
}

const (
	serviceName     = "docsync"
	shutdownTimeout = 5 * time.Second
)

func NewProvider(cfg *Config) (*Provider, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, err
	}

	p := &Provider{
		resource: resource.NewSchemaless(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion(cfg.ServiceVersion)),
		),
	}

	ctx := context.Background()
	if err := p.initMeterProvider(ctx, cfg.Metrics); err != nil {
		return nil, fmt.Errorf("initialising metrics: %w", err)
	}
	if err := p.initTracerProvider(ctx, cfg.Traces); err != nil {
		p.Close()
		return nil, fmt.Errorf("initialising traces: %w", err)
	}

	return p, nil
}

func (p *Provider) NewInstrumentation(name string) *Instrumentation {
	return &Instrumentation{
		Meter:  p.meterProvider.Meter(name),
		Tracer: p.tracerProvider.Tracer(name),
	}
}

// Close flushes and shuts down the exporters. All of them are shut down even
// if one fails.
func (p *Provider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for _, shutdown := range p.shutdownFns {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) initMeterProvider(ctx context.Context, cfg *MetricsConfig) error {
	if cfg == nil {
		p.meterProvider = metricnoop.NewMeterProvider()
		otel.SetMeterProvider(p.meterProvider)
		return nil
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithTemporalitySelector(deltaSelector),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
	if err != nil {
		return err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(p.resource),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.collectionInterval()))))
	p.shutdownFns = append(p.shutdownFns, mp.Shutdown)
	p.meterProvider = mp
	otel.SetMeterProvider(mp)

	if !cfg.RuntimeMetrics {
		return nil
	}
	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		return fmt.Errorf("starting runtime metrics: %w", err)
	}
	return nil
}

func (p *Provider) initTracerProvider(ctx context.Context, cfg *TracesConfig) error {
	if cfg == nil {
		p.tracerProvider = tracenoop.NewTracerProvider()
		otel.SetTracerProvider(p.tracerProvider)
		return nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(cfg.Endpoint))
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(p.resource),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))))
	p.shutdownFns = append(p.shutdownFns, tp.Shutdown)
	p.tracerProvider = tp
	otel.SetTracerProvider(tp)

	return nil
}

// deltaSelector reports counters and histograms with delta temporality so
// that collector restarts don't drop data points. Up/down counters stay
// cumulative.
func deltaSelector(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	switch kind {
	case sdkmetric.InstrumentKindUpDownCounter,
		sdkmetric.InstrumentKindObservableUpDownCounter:
		return metricdata.CumulativeTemporality
	default:
		return metricdata.DeltaTemporality
	}
}
