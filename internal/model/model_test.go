package model

import (
	"testing"

	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Snapshot", &Snapshot{}, "snapshots"},
		{"Vehicle", &Vehicle{}, "vehicles"},
		{"PathUnit", &PathUnit{}, "path_units"},
		{"Segment", &Segment{}, "segments"},
		{"Node", &Node{}, "nodes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
	assert.Len(t, DatabaseModels, len(tests))
}

func TestVehicleConversion(t *testing.T) {
	v := core.Vehicle{ID: 12, Name: "Bus 3", Flags: core.VehicleCreated | core.VehicleSpawned, Path: 99, SourceBuilding: 4, TargetBuilding: 8}

	rec := FromVehicle(3, v)
	assert.Equal(t, uint(3), rec.SnapshotID)
	assert.Equal(t, uint16(12), rec.Handle)
	assert.Equal(t, v, rec.Core())
}

func TestPathUnitConversion_OnlyUsedPositions(t *testing.T) {
	u := core.NewPathUnit(7, 8, core.Position{Segment: 1, Offset: 20}, core.Position{Segment: 0})
	u.Positions[5] = core.Position{Segment: 44} // beyond PositionCount

	rec := FromPathUnit(1, u)
	assert.Len(t, rec.Positions, 2)
	assert.Equal(t, u.Next, rec.Next)

	back := rec.Core()
	assert.Equal(t, uint8(2), back.PositionCount)
	assert.Equal(t, core.Position{}, back.Positions[5])
	assert.Equal(t, u.Positions[0], back.Positions[0])
}

func TestNetworkConversion(t *testing.T) {
	s := core.Segment{ID: 5, StartNode: 1, EndNode: 2}
	n := core.Node{ID: 2, Position: core.Position3D{X: 1.5, Y: 2, Z: -3}}

	assert.Equal(t, s, FromSegment(1, s).Core())
	assert.Equal(t, n, FromNode(1, n).Core())
}
