package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/TrafficReport/analyzer/internal/store/memory"
	"github.com/TrafficReport/analyzer/internal/store/snapshot"
	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Save a JSON snapshot into the SQL store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshotFile(args[0])
			if err != nil {
				return err
			}
			if name != "" {
				snap.Name = name
			}
			return a.saveSnapshot(cmd.Context(), cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "store under this name instead of the one in the file")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	opts := memory.DefaultGenerateOptions
	var (
		name     string
		jsonPath string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a synthetic grid network with vehicles and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := memory.Generate(opts)
			if err != nil {
				return err
			}
			snap := s.Snapshot(name)
			snap.CapturedAt = time.Now().UTC()
			if jsonPath != "" {
				return writeSnapshotFile(jsonPath, snap)
			}
			return a.saveSnapshot(cmd.Context(), cmd.OutOrStdout(), snap)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&name, "name", "generated", "snapshot name")
	flags.StringVar(&jsonPath, "json", "", "write the snapshot to this JSON file instead of the SQL store")
	flags.IntVar(&opts.Columns, "columns", opts.Columns, "grid columns")
	flags.IntVar(&opts.Rows, "rows", opts.Rows, "grid rows")
	flags.Float64Var(&opts.Spacing, "spacing", opts.Spacing, "distance between grid nodes")
	flags.IntVar(&opts.Vehicles, "vehicles", opts.Vehicles, "number of vehicles")
	flags.IntVar(&opts.Buildings, "buildings", opts.Buildings, "number of buildings")
	flags.IntVar(&opts.PathHops, "hops", opts.PathHops, "segments per journey")
	flags.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	return cmd
}

func newSnapshotsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List the snapshots in the SQL store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listSnapshots(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *app) saveSnapshot(ctx context.Context, w io.Writer, snap *core.Snapshot) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := a.openDB()
	if err != nil {
		return err
	}
	defer m.Close()

	start := time.Now()
	id, err := snapshot.Save(ctx, m.DB, snap)
	if err != nil {
		return err
	}
	a.log.Info("Snapshot saved",
		"name", snap.Name,
		"id", id,
		"vehicles", len(snap.Vehicles),
		"pathUnits", len(snap.PathUnits),
		"duration", time.Since(start),
	)
	_, err = fmt.Fprintf(w, "saved snapshot %q (%d vehicles, %d path units, %d segments, %d nodes)\n",
		snap.Name, len(snap.Vehicles), len(snap.PathUnits), len(snap.Segments), len(snap.Nodes))
	return err
}

func (a *app) listSnapshots(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := a.openDB()
	if err != nil {
		return err
	}
	defer m.Close()

	recs, err := snapshot.List(ctx, m.DB)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCAPTURED\tVEHICLE SLOTS\tPATH UNIT SLOTS")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", r.Name, r.CapturedAt.Format(time.RFC3339), r.Capacities.Vehicles, r.Capacities.PathUnits)
	}
	return tw.Flush()
}

func writeSnapshotFile(path string, snap *core.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return f.Close()
}
