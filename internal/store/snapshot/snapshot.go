// Package snapshot persists core.Snapshot tables through gorm and loads
// them back into a memory.Store.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TrafficReport/analyzer/internal/model"
	"github.com/TrafficReport/analyzer/internal/store/memory"
	"github.com/TrafficReport/analyzer/pkg/core"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ErrNoSnapshot is returned when no stored snapshot matches the request.
var ErrNoSnapshot = errors.New("no snapshot stored")

const batchSize = 1000

// Save writes snap, replacing any stored snapshot of the same name.
func Save(ctx context.Context, db *gorm.DB, snap *core.Snapshot) (uint, error) {
	if snap.Name == "" {
		return 0, errors.New("snapshot name is required")
	}
	capturedAt := snap.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	var id uint
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteByName(tx, snap.Name); err != nil {
			return err
		}

		rec := model.Snapshot{Name: snap.Name, CapturedAt: capturedAt, Capacities: snap.Capacities}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("create snapshot %q: %w", snap.Name, err)
		}
		id = rec.ID

		vehicles := make([]model.Vehicle, len(snap.Vehicles))
		for i, v := range snap.Vehicles {
			vehicles[i] = model.FromVehicle(id, v)
		}
		units := make([]model.PathUnit, len(snap.PathUnits))
		for i, u := range snap.PathUnits {
			units[i] = model.FromPathUnit(id, u)
		}
		segments := make([]model.Segment, len(snap.Segments))
		for i, s := range snap.Segments {
			segments[i] = model.FromSegment(id, s)
		}
		nodes := make([]model.Node, len(snap.Nodes))
		for i, n := range snap.Nodes {
			nodes[i] = model.FromNode(id, n)
		}

		if err := createBatches(tx, "vehicles", vehicles); err != nil {
			return err
		}
		if err := createBatches(tx, "path units", units); err != nil {
			return err
		}
		if err := createBatches(tx, "segments", segments); err != nil {
			return err
		}
		return createBatches(tx, "nodes", nodes)
	})
	return id, err
}

func createBatches[T any](tx *gorm.DB, what string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("insert %s: %w", what, err)
	}
	return nil
}

func deleteByName(tx *gorm.DB, name string) error {
	var old model.Snapshot
	err := tx.Where("name = ?", name).Limit(1).Find(&old).Error
	if err != nil {
		return fmt.Errorf("find snapshot %q: %w", name, err)
	}
	if old.ID == 0 {
		return nil
	}
	for _, table := range []any{&model.Vehicle{}, &model.PathUnit{}, &model.Segment{}, &model.Node{}} {
		if err := tx.Where("snapshot_id = ?", old.ID).Delete(table).Error; err != nil {
			return fmt.Errorf("delete rows of snapshot %q: %w", name, err)
		}
	}
	if err := tx.Unscoped().Delete(&old).Error; err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	return nil
}

// Find returns the snapshot named name, or the most recently captured one
// when name is empty.
func Find(ctx context.Context, db *gorm.DB, name string) (model.Snapshot, error) {
	var rec model.Snapshot
	q := db.WithContext(ctx).Model(&model.Snapshot{})
	if name != "" {
		q = q.Where("name = ?", name)
	}
	if err := q.Order("captured_at desc").Order("id desc").Limit(1).Find(&rec).Error; err != nil {
		return rec, fmt.Errorf("find snapshot: %w", err)
	}
	if rec.ID == 0 {
		if name == "" {
			return rec, ErrNoSnapshot
		}
		return rec, fmt.Errorf("%w: %q", ErrNoSnapshot, name)
	}
	return rec, nil
}

// List returns every stored snapshot, newest first.
func List(ctx context.Context, db *gorm.DB) ([]model.Snapshot, error) {
	var recs []model.Snapshot
	if err := db.WithContext(ctx).Order("captured_at desc").Order("id desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return recs, nil
}

// Read loads every table of a stored snapshot. The four tables are read
// concurrently.
func Read(ctx context.Context, db *gorm.DB, name string) (*core.Snapshot, error) {
	rec, err := Find(ctx, db, name)
	if err != nil {
		return nil, err
	}

	var (
		vehicles []model.Vehicle
		units    []model.PathUnit
		segments []model.Segment
		nodes    []model.Node
	)
	g, gctx := errgroup.WithContext(ctx)
	load := func(what string, dest any) func() error {
		return func() error {
			err := db.WithContext(gctx).Where("snapshot_id = ?", rec.ID).Order("handle").Find(dest).Error
			if err != nil {
				return fmt.Errorf("load %s of snapshot %q: %w", what, rec.Name, err)
			}
			return nil
		}
	}
	g.Go(load("vehicles", &vehicles))
	g.Go(load("path units", &units))
	g.Go(load("segments", &segments))
	g.Go(load("nodes", &nodes))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &core.Snapshot{
		Name:       rec.Name,
		CapturedAt: rec.CapturedAt,
		Capacities: rec.Capacities,
		Vehicles:   make([]core.Vehicle, len(vehicles)),
		PathUnits:  make([]core.PathUnit, len(units)),
		Segments:   make([]core.Segment, len(segments)),
		Nodes:      make([]core.Node, len(nodes)),
	}
	for i, v := range vehicles {
		snap.Vehicles[i] = v.Core()
	}
	for i, u := range units {
		snap.PathUnits[i] = u.Core()
	}
	for i, s := range segments {
		snap.Segments[i] = s.Core()
	}
	for i, n := range nodes {
		snap.Nodes[i] = n.Core()
	}
	return snap, nil
}

// Load reads a stored snapshot into a memory store.
func Load(ctx context.Context, db *gorm.DB, name string) (*memory.Store, *core.Snapshot, error) {
	snap, err := Read(ctx, db, name)
	if err != nil {
		return nil, nil, err
	}
	s, err := memory.FromSnapshot(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %q: %w", snap.Name, err)
	}
	return s, snap, nil
}
