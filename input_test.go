package lanenet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const streetsLayer = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 0]]},
			"properties": {"fid": 17, "trafdir": "FT", "FromZlev": 0, "ToZlev": "1", "st_width": 24, "SPEED": "25", "rw_type": " residential ", "st_name": "Main St", "bike_lane": "1", "snow_pri": "C"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "MultiLineString", "coordinates": [[[1, 0], [2, 0]], [[2, 0], [2, 1]]]},
			"properties": {"trafdir": "XX", "FromZlev": 0, "ToZlev": 0, "st_width": 30}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [5, 5]},
			"properties": {"trafdir": "TF", "FromZlev": 0, "ToZlev": 0, "st_width": 30}
		}
	]
}`

func TestReadSegmentsGeoJSON(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "Test_streets.geojson")
	require.NoError(t, os.WriteFile(fname, []byte(streetsLayer), 0o644))

	segments, err := ReadSegmentsGeoJSON(fname, DefaultConfig(), nil)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	first := segments[0]
	assert.Equal(t, 17, first.ID)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}}, first.Geom)
	assert.Equal(t, DIRECTION_FORWARD, first.Direction)
	assert.Equal(t, 0, first.FromLevel)
	assert.Equal(t, 1, first.ToLevel)
	assert.Equal(t, 24.0, first.StreetWidth)
	assert.Equal(t, 25.0, first.SpeedLimit)
	assert.Equal(t, "residential", first.RoadType)
	assert.Equal(t, "Main St", first.Name)
	assert.Equal(t, "C", first.PriorityClass)
	assert.True(t, first.HasBikeLane)

	// Feature index is used when identifier is absent. Unknown direction falls back to two-way
	second := segments[1]
	assert.Equal(t, 1, second.ID)
	assert.Equal(t, DIRECTION_TWO_WAY, second.Direction)
	assert.Equal(t, orb.LineString{{1, 0}, {2, 0}, {2, 1}}, second.Geom)
}

func TestReadSegmentsGeoJSONMissingAttribute(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "broken.geojson")
	layer := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,0]]},"properties":{"trafdir":"FT","FromZlev":0,"ToZlev":null,"st_width":10}}]}`
	require.NoError(t, os.WriteFile(fname, []byte(layer), 0o644))
	_, err := ReadSegmentsGeoJSON(fname, DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrMissingAttribute)

	cfg := DefaultConfig()
	cfg.Attributes.Required = []string{ATTRIBUTE_DIRECTION}
	segments, err := ReadSegmentsGeoJSON(fname, cfg, nil)
	require.NoError(t, err)
	assert.Len(t, segments, 1)

	cfg.Attributes.Required = []string{ATTRIBUTE_LANES}
	_, err = ReadSegmentsGeoJSON(fname, cfg, nil)
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestSegmentsGeoJSONRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	segments := []RawSegment{
		{
			ID:   3,
			Geom: orb.LineString{{0, 0}, {1, 1}},
			Attributes: Attributes{
				Name:          "Elm St",
				RoadType:      "residential",
				PriorityClass: "V",
				SpeedLimit:    30,
				StreetWidth:   20,
				FromLevel:     1,
				ToLevel:       0,
				Direction:     DIRECTION_REVERSE,
				HasBikeLane:   true,
			},
		},
		{
			ID:         4,
			Geom:       orb.LineString{{1, 1}, {2, 1}},
			Attributes: Attributes{Direction: DIRECTION_TWO_WAY},
		},
	}
	fname := filepath.Join(t.TempDir(), "Test_streets.geojson.bz2")
	require.NoError(t, WriteSegmentsGeoJSON(fname, segments, cfg))
	restored, err := ReadSegmentsGeoJSON(fname, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, segments, restored)
}

func writeStreetsShapefile(t *testing.T, fname string) {
	t.Helper()
	shape, err := createShapefile(fname, shp.POLYLINE, []shp.Field{
		shp.NumberField("fid", 10),
		shp.StringField("trafdir", 2),
		shp.NumberField("FromZlev", 3),
		shp.NumberField("ToZlev", 3),
		shp.FloatField("st_width", 8, 2),
		shp.StringField("st_name", 32),
	})
	require.NoError(t, err)
	lines := [][]shp.Point{
		{{X: 0, Y: 0}, {X: 1, Y: 0}},
		{{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 1}},
	}
	attributes := [][]interface{}{
		{5, "TF", 0, 0, 24.0, "First Ave"},
		{6, "TW", 0, 1, 36.5, "Second Ave"},
	}
	for i, line := range lines {
		row := int(shape.Write(shp.NewPolyLine([][]shp.Point{line})))
		for field, value := range attributes[i] {
			require.NoError(t, shape.WriteAttribute(row, field, value))
		}
	}
	require.NoError(t, shape.Close())
}

func TestReadSegmentsShapefile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "streets.shp")
	writeStreetsShapefile(t, fname)

	segments, err := ReadSegmentsShapefile(fname, DefaultConfig(), nil)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, 5, segments[0].ID)
	assert.Equal(t, DIRECTION_REVERSE, segments[0].Direction)
	assert.Equal(t, 24.0, segments[0].StreetWidth)
	assert.Equal(t, "First Ave", segments[0].Name)
	assert.Equal(t, orb.LineString{{1, 0}, {1, 1}, {2, 1}}, segments[1].Geom)
	assert.Equal(t, DIRECTION_TWO_WAY, segments[1].Direction)
	assert.Equal(t, 1, segments[1].ToLevel)
	assert.Equal(t, 36.5, segments[1].StreetWidth)
}

func TestReadSegmentsDispatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := ReadSegments(ctx, filepath.Join(dir, "streets.csv"), DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = ReadSegments(ctx, filepath.Join(dir, "streets.shp.bz2"), DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	empty := filepath.Join(dir, "empty.geojson")
	require.NoError(t, os.WriteFile(empty, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644))
	_, err = ReadSegments(ctx, empty, DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrEmptyNetwork)

	shapefile := filepath.Join(dir, "streets.shp")
	writeStreetsShapefile(t, shapefile)
	segments, err := ReadSegments(ctx, shapefile, DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Len(t, segments, 2)
}
