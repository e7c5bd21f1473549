package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/TrafficReport/analyzer/internal/analyzer"
	"github.com/TrafficReport/analyzer/internal/dump"
	"github.com/TrafficReport/analyzer/internal/parser"
	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/spf13/cobra"
)

const defaultReportTimeout = 2 * time.Minute

func newReportCmd(a *app, kind core.ReportKind) *cobra.Command {
	var (
		out     string
		timeout time.Duration
	)
	short := map[core.ReportKind]string{
		core.ReportVehicle:  "Reconstruct the path of one vehicle",
		core.ReportSegment:  "Report the paths of every vehicle routed over a segment",
		core.ReportBuilding: "Report the paths of every vehicle travelling from or to a building",
	}[kind]

	cmd := &cobra.Command{
		Use:   kind.String() + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parser.ParseHandle(args[0])
			if err != nil {
				return fmt.Errorf("invalid %s id: %w", kind, err)
			}
			return a.runReport(cmd.Context(), cmd.OutOrStdout(), kind, target, out, timeout)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the result to a .txt, .json, .json.gz or .geojson file")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultReportTimeout, "give up waiting for the report after this long")
	return cmd
}

// runReport computes one report through the analyzer and prints its summary.
func (a *app) runReport(ctx context.Context, w io.Writer, kind core.ReportKind, target uint16, out string, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out != "" {
		if _, err := dump.FormatFor(out); err != nil {
			return err
		}
	}

	provider, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rec := analyzer.NewRecorder()
	consumer, closeSinks := a.consumers(ctx, rec)
	defer closeSinks()

	p, err := a.newPipeline(ctx, provider, consumer)
	if err != nil {
		return err
	}
	defer p.Close()

	id, err := p.analyzer.Request(kind, target)
	if err != nil {
		return err
	}
	a.log.Info("Report requested", "id", id, "kind", kind.String(), "target", target)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := rec.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for report %s: %w", id, err)
	}

	if out != "" && res.OK() {
		if err := writeResult(out, res); err != nil {
			return err
		}
		a.log.Info("Report written", "id", id, "path", out)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(analyzer.Summarize(res)); err != nil {
		return err
	}
	return res.Err
}

// writeResult exports res. A vehicle path is written as a one-vehicle report.
func writeResult(target string, res analyzer.Result) error {
	r := res.Report
	if res.Kind == core.ReportVehicle {
		r = core.NewReport(core.ReportVehicle, res.Target)
		r.Add(res.Target, res.Path)
		r.Scanned = 1
		r.GeneratedAt = time.Now().UTC()
	}
	p, err := projector()
	if err != nil {
		return err
	}
	return dump.ReportToFile(target, r, p)
}
