package analyzer

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/TrafficReport/analyzer/internal/analyzer"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
