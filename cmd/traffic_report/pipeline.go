package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/TrafficReport/analyzer/internal/analyzer"
	"github.com/TrafficReport/analyzer/internal/config"
	"github.com/TrafficReport/analyzer/internal/dump"
	"github.com/TrafficReport/analyzer/internal/influx"
	"github.com/TrafficReport/analyzer/internal/report"
	"github.com/TrafficReport/analyzer/internal/store"
	"github.com/TrafficReport/analyzer/internal/streaming"
	"github.com/TrafficReport/analyzer/internal/worker"
)

// pipeline is an Analyzer with its two execution contexts.
type pipeline struct {
	analyzer *analyzer.Analyzer
	compute  *worker.Loop
	delivery *worker.Loop
	dumps    *dump.Toggle
}

func (a *app) newPipeline(ctx context.Context, provider store.Provider, consumer analyzer.Consumer) (*pipeline, error) {
	acfg := config.GetAnalyzerConfig()
	ecfg := config.GetExportConfig()

	compute, err := worker.NewLoop("compute", a.log, worker.Buffered(acfg.QueueSize))
	if err != nil {
		return nil, err
	}
	delivery, err := worker.NewLoop("delivery", a.log, worker.Buffered(acfg.QueueSize), worker.Blocking())
	if err != nil {
		compute.Close()
		return nil, err
	}

	dumps := dump.NewToggle(dump.FileDumper{Dir: ecfg.OutputDir, Name: dump.DefaultPathFile}, acfg.DumpVehiclePaths)
	an, err := analyzer.New(analyzer.Dependencies{
		Builder:  report.NewBuilder(provider, acfg.MaxChainUnits, a.log),
		Compute:  compute,
		Delivery: delivery,
		Consumer: consumer,
		Logger:   a.log,
	}, analyzer.DumpVehiclePaths(dumps), analyzer.WithContext(ctx))
	if err != nil {
		compute.Close()
		delivery.Close()
		return nil, err
	}

	return &pipeline{analyzer: an, compute: compute, delivery: delivery, dumps: dumps}, nil
}

// Close lets queued work finish before cancelling the analyzer.
func (p *pipeline) Close() {
	p.compute.Close()
	p.delivery.Close()
	p.analyzer.Close()
}

// consumers wraps local with the optional streaming and InfluxDB sinks.
func (a *app) consumers(ctx context.Context, local analyzer.Consumer) (analyzer.Consumer, func()) {
	var (
		chain   = analyzer.Consumers{local}
		closers []func() error
	)

	streamCfg := config.GetStreamConfig()
	if streamCfg.Enabled {
		s := streaming.New(streaming.Config{
			URL:      streamCfg.URL,
			Secret:   streamCfg.Secret,
			Service:  ExtensionName,
			Snapshot: a.currentSnapshot(),
		}, a.log)
		if err := s.Open(); err != nil {
			a.log.Error("Failed to open report stream", "error", err, "url", streamCfg.URL)
			_ = s.Close()
		} else {
			a.log.Info("Streaming reports", "url", streamCfg.URL)
			chain = append(chain, s)
			closers = append(closers, s.Close)
		}
	}

	var consumer analyzer.Consumer = chain
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		backup := filepath.Join(config.GetString("logsDir"), "influx_backup.log.gz")
		m := influx.NewManager(influxCfg, a.dbLog, backup)
		if err := m.Connect(ctx); err != nil {
			a.log.Error("Failed to connect to InfluxDB", "error", err)
		} else {
			consumer = influx.NewPublisher(m, chain, a.log)
			closers = append(closers, m.Close)
		}
	}

	return consumer, func() {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		if err := errors.Join(errs...); err != nil {
			a.log.Warn("Failed to close report sinks", "error", err)
		}
	}
}
