package lanenet

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridSegments returns two-way streets of size x size grid
func gridSegments(size int, step float64) []RawSegment {
	point := func(i, j int) orb.Point {
		return orb.Point{37.6 + float64(i)*step, 55.75 + float64(j)*step}
	}
	attrs := Attributes{Direction: DIRECTION_TWO_WAY, StreetWidth: 24, SpeedLimit: 40, RoadType: "residential"}
	segments := make([]RawSegment, 0)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i+1 < size {
				segments = append(segments, RawSegment{ID: len(segments), Geom: orb.LineString{point(i, j), point(i+1, j)}, Attributes: attrs})
			}
			if j+1 < size {
				segments = append(segments, RawSegment{ID: len(segments), Geom: orb.LineString{point(i, j), point(i, j+1)}, Attributes: attrs})
			}
		}
	}
	return segments
}

func countCSVRows(t *testing.T, fname string) int {
	t.Helper()
	reader, err := openFile(fname)
	require.NoError(t, err)
	defer reader.Close()
	records, err := csv.NewReader(reader).ReadAll()
	require.NoError(t, err)
	return len(records) - 1
}

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.IO.Shapefiles = true
	cfg.IO.Contraction = true
	input := filepath.Join(dir, "grid.geojson")
	require.NoError(t, WriteSegmentsGeoJSON(input, gridSegments(3, 0.001), cfg))

	output := filepath.Join(dir, "output")
	pipeline := NewPipeline(cfg, WithInput(input), WithCity("Test"), WithOutputDir(output))
	require.NoError(t, pipeline.Run(context.Background(), PHASE_INGEST))

	// Corners are chain interiors, so only the center and the middles of the sides remain
	reduced, err := ReadCheckpoint(PHASE_REDUCE.checkpointPath(output, "Test", false))
	require.NoError(t, err)
	assert.Equal(t, 5, reduced.NodesNum())
	assert.Equal(t, 16, reduced.LinksNum())

	for _, name := range []string{
		"Test_streets.geojson",
		"Test_joined_corrected.geojson",
		"Test_joined_correctedbridges_red_4legs_strong_sim.geojson",
		"Test_ch_vertices.csv",
		"Test_ch_shortcuts.csv",
		"road_fileTest.geojson",
		"road_fileTest.shp",
		"road_fileTest.shx",
		"road_fileTest.dbf",
		"road_fileTest_ch_edges.csv",
		"lane_fileTest.shp",
		"lane_fileTest.shx",
		"lane_fileTest.dbf",
	} {
		_, err := os.Stat(filepath.Join(output, name))
		assert.NoError(t, err, name)
	}
	assert.NoFileExists(t, filepath.Join(output, "road_fileTestdbf"))
	assert.NoFileExists(t, filepath.Join(output, "lane_fileTestdbf"))
	assert.Len(t, readShapefileAttributes(t, filepath.Join(output, "road_fileTest.shp")), 16)
	assert.Len(t, readShapefileAttributes(t, filepath.Join(output, "lane_fileTest.shp")), 16)
	assert.Equal(t, 16, countCSVRows(t, filepath.Join(output, "road_fileTest.csv")))
	assert.Equal(t, 16, countCSVRows(t, filepath.Join(output, "lane_fileTest.csv")))

	// Later phases could be repeated from checkpoints
	require.NoError(t, os.Remove(filepath.Join(output, "lane_fileTest.csv")))
	require.NoError(t, pipeline.Run(context.Background(), PHASE_ROADS))
	assert.Equal(t, 16, countCSVRows(t, filepath.Join(output, "lane_fileTest.csv")))
	require.NoError(t, pipeline.Run(context.Background(), PHASE_LANES))
	assert.Equal(t, 16, countCSVRows(t, filepath.Join(output, "road_fileTest.csv")))
}

func TestPipelineErrors(t *testing.T) {
	dir := t.TempDir()
	pipeline := NewPipeline(DefaultConfig(), WithCity("Test"), WithOutputDir(dir))
	err := pipeline.Run(context.Background(), PHASE_REDUCE)
	assert.ErrorIs(t, err, ErrCheckpointMissing)

	err = pipeline.Run(context.Background(), Phase(10))
	assert.ErrorIs(t, err, ErrInvalidPhase)

	// Default input '<input_dir>/Test_streets.geojson' does not exist
	err = pipeline.Run(context.Background(), PHASE_INGEST)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	input := filepath.Join(dir, "grid.geojson")
	require.NoError(t, WriteSegmentsGeoJSON(input, gridSegments(2, 0.001), DefaultConfig()))
	err = NewPipeline(DefaultConfig(), WithInput(input), WithOutputDir(dir)).Run(ctx, PHASE_INGEST)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPipelineDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IO.Input = "NYC_streets.geojson"
	pipeline := NewPipeline(cfg)
	assert.Equal(t, filepath.Join("input", "NYC_streets.geojson"), pipeline.input)
	assert.Equal(t, "NYC", pipeline.city)
	assert.Equal(t, "output", pipeline.outputDir)
	assert.NotNil(t, pipeline.logger)
	assert.Equal(t, filepath.Join("input", "NYC_streets.geojson"), pipeline.inputFile())

	cfg = DefaultConfig()
	cfg.IO.Input = ""
	pipeline = NewPipeline(cfg, WithCity("Chicago"))
	assert.Equal(t, filepath.Join("input", "Chicago_streets.geojson"), pipeline.inputFile())
}

func TestPipelineDefaultInput(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.IO.Input = ""
	cfg.IO.InputDir = dir
	require.NoError(t, WriteSegmentsGeoJSON(filepath.Join(dir, "Grid_streets.geojson"), gridSegments(3, 0.001), cfg))

	output := filepath.Join(dir, "output")
	pipeline := NewPipeline(cfg, WithCity("Grid"), WithOutputDir(output))
	require.NoError(t, pipeline.Run(context.Background(), PHASE_INGEST))
	assert.FileExists(t, filepath.Join(output, "road_fileGrid.csv"))
}

func TestPipelineResumeMatchesContinuousRun(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	segments := gridSegments(3, 0.001)
	// Disconnected street gets the highest node identifiers and is dropped while correcting topology
	segments = append(segments, RawSegment{
		ID:         len(segments),
		Geom:       orb.LineString{{37.7, 55.85}, {37.701, 55.85}},
		Attributes: Attributes{Direction: DIRECTION_TWO_WAY, StreetWidth: 24, SpeedLimit: 40, RoadType: "residential"},
	})
	input := filepath.Join(dir, "grid.geojson")
	require.NoError(t, WriteSegmentsGeoJSON(input, segments, cfg))

	output := filepath.Join(dir, "output")
	pipeline := NewPipeline(cfg, WithInput(input), WithCity("Test"), WithOutputDir(output))
	require.NoError(t, pipeline.Run(context.Background(), PHASE_INGEST))
	roads, err := os.ReadFile(filepath.Join(output, "road_fileTest.csv"))
	require.NoError(t, err)
	lanes, err := os.ReadFile(filepath.Join(output, "lane_fileTest.csv"))
	require.NoError(t, err)

	for phase := PHASE_CORRECT; phase <= PHASE_LAST; phase++ {
		require.NoError(t, pipeline.Run(context.Background(), phase), phase.String())
		resumedRoads, err := os.ReadFile(filepath.Join(output, "road_fileTest.csv"))
		require.NoError(t, err)
		assert.Equal(t, string(roads), string(resumedRoads), phase.String())
		resumedLanes, err := os.ReadFile(filepath.Join(output, "lane_fileTest.csv"))
		require.NoError(t, err)
		assert.Equal(t, string(lanes), string(resumedLanes), phase.String())
	}
}

func TestPipelineRemovesPartialOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.IO.Shapefiles = true
	input := filepath.Join(dir, "grid.geojson")
	require.NoError(t, WriteSegmentsGeoJSON(input, gridSegments(3, 0.001), cfg))

	output := filepath.Join(dir, "output")
	pipeline := NewPipeline(cfg, WithInput(input), WithCity("Test"), WithOutputDir(output))
	require.NoError(t, pipeline.Run(context.Background(), PHASE_INGEST))

	roadsCSV := filepath.Join(output, "road_fileTest.csv")
	roadsShape := filepath.Join(output, "road_fileTest.shp")
	require.NoError(t, os.Remove(roadsShape))
	// Directory in place of the shapefile makes its exporter fail
	require.NoError(t, os.Mkdir(roadsShape, 0o755))
	err := pipeline.Run(context.Background(), PHASE_ROADS)
	require.Error(t, err)
	assert.NoFileExists(t, roadsCSV)
	assert.NoFileExists(t, PHASE_ROADS.checkpointPath(output, "Test", cfg.IO.CompressCheckpoints))
	assert.NoFileExists(t, filepath.Join(output, "road_fileTest.dbf"))
	assert.DirExists(t, roadsShape)
	// Checkpoint of the previous phase is kept, so the phase could be repeated
	assert.FileExists(t, PHASE_SIMULATION.checkpointPath(output, "Test", cfg.IO.CompressCheckpoints))
}
