package lanenet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readShapefileAttributes returns attribute rows keyed by field name
func readShapefileAttributes(t *testing.T, fname string) []map[string]string {
	t.Helper()
	reader, err := shp.Open(fname)
	require.NoError(t, err)
	defer reader.Close()
	fields := reader.Fields()
	rows := make([]map[string]string, 0)
	for reader.Next() {
		idx, _ := reader.Shape()
		row := make(map[string]string, len(fields))
		for i, field := range fields {
			row[field.String()] = strings.TrimSpace(reader.ReadAttribute(idx, i))
		}
		rows = append(rows, row)
	}
	return rows
}

func TestExportRoadsToShapefile(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "roads.shp")
	require.NoError(t, ExportRoadsToShapefile(fname, sampleRoads()))

	for _, name := range []string{"roads.shp", "roads.shx", "roads.dbf"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(dir, "roadsdbf"))
	assert.True(t, os.IsNotExist(err))

	rows := readShapefileAttributes(t, fname)
	require.Len(t, rows, 2)
	assert.Equal(t, "100000", rows[0]["LinkID"])
	assert.Equal(t, "residential", rows[0]["RoadType"])
	assert.Equal(t, "100001", rows[0]["Through"])
	assert.Equal(t, "1000002", rows[0]["Lane2"])
	assert.Equal(t, "100000", rows[1]["Left"])
}

func TestExportLanesToShapefile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "lanes.shp")
	lanes := []*Lane{
		{LaneID: 1000001, LinkID: 100000, Index: 1, Through: 1000011, Length: 10, Geom: sampleRoads().Roads[0].Geom},
	}
	require.NoError(t, ExportLanesToShapefile(fname, lanes))
	rows := readShapefileAttributes(t, fname)
	require.Len(t, rows, 1)
	assert.Equal(t, "1000001", rows[0]["LaneID"])
	assert.Equal(t, "1000011", rows[0]["Through"])
	assert.Equal(t, "10.000", rows[0]["Length"])
}
