// Package otel sets up OpenTelemetry log and metric export for the analyzer.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// DefaultServiceName is reported when Config.ServiceName is empty.
	DefaultServiceName = "traffic-report"
	// DefaultMetricInterval is how often metrics are exported when enabled.
	DefaultMetricInterval = time.Minute
)

// Config holds OTel configuration
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	BatchTimeout   time.Duration
	LogWriter      io.Writer // receives OTel log records and, with Metrics, metric snapshots
	Endpoint       string    // OTLP log endpoint, used only if set
	Insecure       bool
	Metrics        bool
	MetricInterval time.Duration
}

// Provider owns the log and meter providers. With metrics enabled the meter
// provider is installed globally, so instruments created through otel.Meter
// (analyzer, worker loops, dispatcher) are exported.
type Provider struct {
	logProvider   *sdklog.LoggerProvider
	meterProvider *sdkmetric.MeterProvider
	config        Config
}

// New creates a new OTel provider with the given configuration.
// If OTel is disabled, returns a no-op provider.
func New(cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 5 * time.Second
	}
	if cfg.MetricInterval <= 0 {
		cfg.MetricInterval = DefaultMetricInterval
	}
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	processors, err := logProcessors(cfg)
	if err != nil {
		return nil, err
	}
	if len(processors) == 0 {
		return nil, errors.New("OTel enabled but no log writer or endpoint configured")
	}
	logOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		logOpts = append(logOpts, sdklog.WithProcessor(proc))
	}
	p.logProvider = sdklog.NewLoggerProvider(logOpts...)

	if cfg.Metrics && cfg.LogWriter != nil {
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.LogWriter))
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		)
		otel.SetMeterProvider(p.meterProvider)
	}

	return p, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	attrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(cfg.ServiceVersion)))
	}
	res, err := resource.New(context.Background(), attrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func logProcessors(cfg Config) ([]sdklog.Processor, error) {
	var processors []sdklog.Processor

	if cfg.LogWriter != nil {
		exporter, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exporter, sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exporter, err := otlploghttp.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exporter, sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}

	return processors, nil
}

// LoggerProvider returns the log provider for use with otelslog bridge.
// Returns nil if OTel is not enabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns a meter from this provider's meter provider, or from the
// global one when metrics are off.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meterProvider != nil {
		return p.meterProvider.Meter(name)
	}
	return otel.GetMeterProvider().Meter(name)
}

// MetricsEnabled reports whether a meter provider was installed.
func (p *Provider) MetricsEnabled() bool {
	return p.meterProvider != nil
}

// Flush exports pending logs and metrics.
func (p *Provider) Flush(ctx context.Context) error {
	var errs []error
	if p.logProvider != nil {
		if err := p.logProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log flush failed: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric flush failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops both providers.
// Should be called when the application exits.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric shutdown failed: %w", err))
		}
	}
	if p.logProvider != nil {
		if err := p.logProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log shutdown failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}

// ServiceName returns the reported service name.
func (p *Provider) ServiceName() string {
	return p.config.ServiceName
}
