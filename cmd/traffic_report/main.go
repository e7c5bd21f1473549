package main

import (
	"fmt"
	"os"
	"time"

	"github.com/TrafficReport/analyzer/internal/config"
	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/spf13/cobra"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	ExtensionName string = "traffic_report"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "traffic_report",
		Short:         "Reconstructs and reports vehicle paths from a traffic simulation snapshot",
		Version:       fmt.Sprintf("%s (built %s)", CurrentVersion, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.shutdown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configDir, "config-dir", ".", "directory holding "+config.FileName+" and .env")
	flags.StringVar(&a.logLevel, "log-level", "", "override logLevel from the config file")
	flags.StringVar(&a.snapshotOverride, "snapshot", "", "override store.snapshot from the config file")

	root.AddCommand(
		newReportCmd(a, core.ReportVehicle),
		newReportCmd(a, core.ReportSegment),
		newReportCmd(a, core.ReportBuilding),
		newServeCmd(a),
		newImportCmd(a),
		newGenerateCmd(a),
		newSnapshotsCmd(a),
	)
	return root
}

func main() {
	a := newApp(time.Now())
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
