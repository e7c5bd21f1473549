package geo

import (
	"errors"
	"math"

	"github.com/TrafficReport/analyzer/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrInvalidOrigin is returned when a projection origin is outside WGS84 bounds.
var ErrInvalidOrigin = errors.New("invalid projection origin")

// Web mercator is only defined up to this latitude.
const maxMercatorLat = 85.05112878

// Projector places the simulation's world on the globe.
// World X runs east, world Z runs north, and both are metres from Origin.
// Points are moved in EPSG:3857 and reported as EPSG:4326 lon/lat.
type Projector struct {
	originX float64
	originY float64
	scale   float64

	toMercator func(a, b, c float64) (float64, float64, float64)
	toLonLat   func(a, b, c float64) (float64, float64, float64)
}

// NewProjector anchors world (0,0,0) at the given WGS84 longitude/latitude.
func NewProjector(originLon, originLat float64) (*Projector, error) {
	if math.IsNaN(originLon) || math.IsNaN(originLat) ||
		originLon < -180 || originLon > 180 ||
		originLat < -maxMercatorLat || originLat > maxMercatorLat {
		return nil, ErrInvalidOrigin
	}

	epsg := wgs84.EPSG()
	p := &Projector{
		toMercator: epsg.Transform(4326, 3857),
		toLonLat:   epsg.Transform(3857, 4326),
		// mercator metres are stretched by 1/cos(lat) relative to ground metres
		scale: 1 / math.Cos(originLat*math.Pi/180),
	}
	p.originX, p.originY, _ = p.toMercator(originLon, originLat, 0)
	return p, nil
}

// LonLat returns the WGS84 longitude, latitude and elevation of a world point.
func (p *Projector) LonLat(pos core.Position3D) (lon, lat, elev float64) {
	x := p.originX + pos.X*p.scale
	y := p.originY + pos.Z*p.scale
	lon, lat, _ = p.toLonLat(x, y, 0)
	return lon, lat, pos.Y
}

// LineString projects a path into a WGS84 XYZ line string.
func (p *Projector) LineString(path core.Path) (geom.LineString, error) {
	if len(path) < 2 {
		return geom.LineString{}, nil
	}
	flat := make([]float64, 0, len(path)*3)
	for _, pos := range path {
		lon, lat, elev := p.LonLat(pos)
		flat = append(flat, lon, lat, elev)
	}
	return newLineString(flat)
}
