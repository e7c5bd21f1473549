package dump

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TrafficReport/analyzer/internal/geo"
	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() core.Report {
	r := core.NewReport(core.ReportSegment, 5)
	r.GeneratedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Scanned = 3
	r.Add(2, core.Path{{X: 0}, {X: 3, Z: 4}})
	r.Add(9, core.Path{{X: 1}})
	r.Skip(4, errors.New("path chain loops"))
	return r
}

func TestWritePath(t *testing.T) {
	var buf bytes.Buffer
	err := WritePath(&buf, core.Path{{X: 1280.0 / 255, Y: 0, Z: 0}, {X: -2.5, Y: 10, Z: 3}})

	require.NoError(t, err)
	assert.Equal(t, "5.019607843137255 0 0\n-2.5 10 3\n", buf.String())
}

func TestWritePath_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePath(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestPathToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	target, err := PathToFile(dir, "", core.Path{{X: 1, Y: 2, Z: 3}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultPathFile), target)

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3\n", string(b))

	// overwritten, not appended
	_, err = PathToFile(dir, "", core.Path{{X: 4}})
	require.NoError(t, err)
	b, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "4 0 0\n", string(b))
}

func TestToggle(t *testing.T) {
	dir := t.TempDir()
	tg := NewToggle(FileDumper{Dir: dir, Name: "v.txt"}, false)

	require.NoError(t, tg.DumpPath(1, core.Path{{X: 1}}))
	_, err := os.Stat(filepath.Join(dir, "v.txt"))
	assert.True(t, os.IsNotExist(err))

	tg.SetEnabled(true)
	assert.True(t, tg.Enabled())
	require.NoError(t, tg.DumpPath(1, core.Path{{X: 1}}))
	_, err = os.Stat(filepath.Join(dir, "v.txt"))
	assert.NoError(t, err)
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReportJSON(&buf, testReport(), false))

	var doc ReportDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "segment", doc.Kind)
	assert.Equal(t, uint16(5), doc.Target)
	assert.Equal(t, 3, doc.Scanned)
	require.Len(t, doc.Vehicles, 2)
	assert.Equal(t, uint16(2), doc.Vehicles[0].ID)
	assert.InDelta(t, 5.0, doc.Vehicles[0].Length, 1e-9)
	assert.Equal(t, [3]float64{3, 0, 4}, doc.Vehicles[0].Points[1])
	require.Len(t, doc.Skipped, 1)
	assert.Equal(t, uint16(4), doc.Skipped[0].ID)
}

func TestWriteReportJSON_Gzip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReportJSON(&buf, testReport(), true))

	gr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	var doc ReportDocument
	require.NoError(t, json.NewDecoder(gr).Decode(&doc))
	assert.Len(t, doc.Vehicles, 2)
}

func TestWriteReportGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReportGeoJSON(&buf, testReport(), nil))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string      `json:"type"`
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	// the single-point path has no line geometry
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "LineString", f.Geometry.Type)
	assert.Equal(t, []float64{3, 4, 0}, f.Geometry.Coordinates[1])
	assert.Equal(t, float64(2), f.Properties["vehicle"])
}

func TestWriteReportGeoJSON_Projected(t *testing.T) {
	p, err := geo.NewProjector(10, 50)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteReportGeoJSON(&buf, testReport(), p))
	var fc struct {
		Features []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	require.Len(t, fc.Features, 1)
	origin := fc.Features[0].Geometry.Coordinates[0]
	assert.InDelta(t, 10.0, origin[0], 1e-6)
	assert.InDelta(t, 50.0, origin[1], 1e-6)
}

func TestWriteReportGeoJSON_StationaryPath(t *testing.T) {
	r := core.NewReport(core.ReportBuilding, 7)
	r.Add(3, core.Path{{X: 5, Z: 5}, {X: 5, Y: 2, Z: 5}})
	r.Add(4, core.Path{{X: 0}, {X: 1}})

	var buf bytes.Buffer
	require.NoError(t, WriteReportGeoJSON(&buf, r, nil))
	var fc struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	require.Len(t, fc.Features, 1)
	assert.Equal(t, float64(4), fc.Features[0].Properties["vehicle"])
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"a.txt":          FormatText,
		"a.JSON":         FormatJSON,
		"dir/a.json.gz":  FormatJSONGzip,
		"report.geojson": FormatGeoJSON,
	}
	for name, want := range tests {
		got, err := FormatFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := FormatFor("a.csv")
	assert.Error(t, err)
}

func TestReportToFile(t *testing.T) {
	dir := t.TempDir()
	r := testReport()

	txt := filepath.Join(dir, "nested", "r.txt")
	require.NoError(t, ReportToFile(txt, r, nil))
	b, err := os.ReadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, "0 0 0\n3 0 4\n\n1 0 0\n", string(b))

	for _, name := range []string{"r.json", "r.json.gz", "r.geojson"} {
		require.NoError(t, ReportToFile(filepath.Join(dir, name), r, nil), name)
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), name)
	}

	assert.Error(t, ReportToFile(filepath.Join(dir, "r.csv"), r, nil))
}
