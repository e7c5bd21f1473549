package model

import (
	"time"

	"github.com/TrafficReport/analyzer/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Snapshot{},
	&Vehicle{},
	&PathUnit{},
	&Segment{},
	&Node{},
}

////////////////////////
// SNAPSHOTS
////////////////////////

// Snapshot identifies one captured set of tables. Every other row belongs
// to exactly one snapshot.
type Snapshot struct {
	gorm.Model
	Name       string          `json:"name" gorm:"size:127;uniqueIndex"`
	CapturedAt time.Time       `json:"capturedAt" gorm:"index"`
	Capacities core.Capacities `json:"capacities" gorm:"embedded;embeddedPrefix:cap_"`
}

func (*Snapshot) TableName() string {
	return "snapshots"
}

// Vehicle is one live vehicle slot.
type Vehicle struct {
	SnapshotID     uint   `json:"snapshotId" gorm:"primaryKey;autoIncrement:false"`
	Handle         uint16 `json:"handle" gorm:"primaryKey;autoIncrement:false"`
	Name           string `json:"name" gorm:"size:127"`
	Flags          uint32 `json:"flags"`
	Path           uint32 `json:"path"`
	SourceBuilding uint16 `json:"sourceBuilding" gorm:"index:idx_vehicle_source"`
	TargetBuilding uint16 `json:"targetBuilding" gorm:"index:idx_vehicle_target"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

// PathUnit stores the used positions of a unit as JSON.
type PathUnit struct {
	SnapshotID uint                               `json:"snapshotId" gorm:"primaryKey;autoIncrement:false"`
	Handle     uint32                             `json:"handle" gorm:"primaryKey;autoIncrement:false"`
	Next       uint32                             `json:"next"`
	Positions  datatypes.JSONSlice[core.Position] `json:"positions"`
}

func (*PathUnit) TableName() string {
	return "path_units"
}

// Segment is one road segment.
type Segment struct {
	SnapshotID uint   `json:"snapshotId" gorm:"primaryKey;autoIncrement:false"`
	Handle     uint16 `json:"handle" gorm:"primaryKey;autoIncrement:false"`
	StartNode  uint16 `json:"startNode"`
	EndNode    uint16 `json:"endNode"`
}

func (*Segment) TableName() string {
	return "segments"
}

// Node is one network node.
type Node struct {
	SnapshotID uint    `json:"snapshotId" gorm:"primaryKey;autoIncrement:false"`
	Handle     uint16  `json:"handle" gorm:"primaryKey;autoIncrement:false"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
}

func (*Node) TableName() string {
	return "nodes"
}

////////////////////////
// CONVERSION
////////////////////////

func FromVehicle(snapshotID uint, v core.Vehicle) Vehicle {
	return Vehicle{
		SnapshotID:     snapshotID,
		Handle:         v.ID,
		Name:           v.Name,
		Flags:          uint32(v.Flags),
		Path:           v.Path,
		SourceBuilding: v.SourceBuilding,
		TargetBuilding: v.TargetBuilding,
	}
}

func (v Vehicle) Core() core.Vehicle {
	return core.Vehicle{
		ID:             v.Handle,
		Name:           v.Name,
		Flags:          core.VehicleFlags(v.Flags),
		Path:           v.Path,
		SourceBuilding: v.SourceBuilding,
		TargetBuilding: v.TargetBuilding,
	}
}

// FromPathUnit keeps only the used positions.
func FromPathUnit(snapshotID uint, u core.PathUnit) PathUnit {
	used := u.Used()
	positions := make([]core.Position, len(used))
	copy(positions, used)
	return PathUnit{
		SnapshotID: snapshotID,
		Handle:     u.ID,
		Next:       u.Next,
		Positions:  datatypes.NewJSONSlice(positions),
	}
}

// Core truncates positions beyond core.MaxPathPositions.
func (u PathUnit) Core() core.PathUnit {
	return core.NewPathUnit(u.Handle, u.Next, u.Positions...)
}

func FromSegment(snapshotID uint, s core.Segment) Segment {
	return Segment{SnapshotID: snapshotID, Handle: s.ID, StartNode: s.StartNode, EndNode: s.EndNode}
}

func (s Segment) Core() core.Segment {
	return core.Segment{ID: s.Handle, StartNode: s.StartNode, EndNode: s.EndNode}
}

func FromNode(snapshotID uint, n core.Node) Node {
	return Node{SnapshotID: snapshotID, Handle: n.ID, X: n.Position.X, Y: n.Position.Y, Z: n.Position.Z}
}

func (n Node) Core() core.Node {
	return core.Node{ID: n.Handle, Position: core.Position3D{X: n.X, Y: n.Y, Z: n.Z}}
}
