package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, DefaultServiceName, p.ServiceName())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Meter("test"))
}

func TestNew_EnabledWithoutSink(t *testing.T) {
	_, err := New(Config{Enabled: true})
	assert.Error(t, err)
}

func TestNew_FileExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, ServiceName: "analyzer-test", ServiceVersion: "1.2.3", LogWriter: &buf})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	var rec otellog.Record
	rec.SetBody(otellog.StringValue("Report complete"))
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "Report complete")
	assert.Contains(t, buf.String(), "analyzer-test")
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_MetricsExportThroughGlobalMeter(t *testing.T) {
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, LogWriter: &buf, Metrics: true, MetricInterval: time.Hour})
	require.NoError(t, err)
	require.True(t, p.MetricsEnabled())

	counter, err := otel.Meter("analyzer-test").Int64Counter("analyzer.requests")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "analyzer.requests")
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_MetricsNeedWriter(t *testing.T) {
	p, err := New(Config{Enabled: true, Endpoint: "localhost:4318", Insecure: true, Metrics: true})
	require.NoError(t, err)
	assert.False(t, p.MetricsEnabled())
	assert.NotNil(t, p.Meter("test"))
	require.NoError(t, p.Shutdown(context.Background()))
}
