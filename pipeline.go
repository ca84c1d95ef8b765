package lanenet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pipeline runs phases from the given one up to the lane file, reading the previous checkpoint when resuming
type Pipeline struct {
	cfg       *Config
	logger    *zap.Logger
	input     string
	city      string
	outputDir string
}

func (pipeline *Pipeline) String() string {
	return fmt.Sprintf(`
Pipeline parameters:
	input: '%s'
	city: '%s'
	output_dir: '%s'
	compress checkpoints?: %t
	shapefiles?: %t
	contraction?: %t
	`,
		pipeline.inputFile(),
		pipeline.city,
		pipeline.outputDir,
		pipeline.cfg.IO.CompressCheckpoints,
		pipeline.cfg.IO.Shapefiles,
		pipeline.cfg.IO.Contraction,
	)
}

// NewPipeline creates pipeline. Input, city and output directory default to configured ones
func NewPipeline(cfg *Config, options ...func(*Pipeline)) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	input := cfg.IO.Input
	if input != "" && cfg.IO.InputDir != "" && !filepath.IsAbs(input) {
		input = filepath.Join(cfg.IO.InputDir, input)
	}
	pipeline := &Pipeline{
		cfg:       cfg,
		logger:    zap.NewNop(),
		input:     input,
		city:      cfg.IO.City,
		outputDir: cfg.IO.OutputDir,
	}
	for _, option := range options {
		option(pipeline)
	}
	return pipeline
}

func WithLogger(logger *zap.Logger) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.logger = loggerOrNop(logger)
	}
}

func WithInput(input string) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.input = input
	}
}

func WithCity(city string) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.city = city
	}
}

func WithOutputDir(outputDir string) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.outputDir = outputDir
	}
}

// inputFile returns input layer of the first phase. Default is '<input_dir>/<city>_streets.geojson'
func (pipeline *Pipeline) inputFile() string {
	if pipeline.input != "" {
		return pipeline.input
	}
	return filepath.Join(pipeline.cfg.IO.InputDir, pipeline.city+"_streets.geojson")
}

// phaseOutputs runs exporters of a phase concurrently. When any of them fails, files written by every exporter are removed
type phaseOutputs struct {
	group errgroup.Group
	files []string
}

func (outputs *phaseOutputs) Go(export func() error, files ...string) {
	outputs.files = append(outputs.files, files...)
	outputs.group.Go(export)
}

func (outputs *phaseOutputs) Wait() error {
	err := outputs.group.Wait()
	if err == nil {
		return nil
	}
	for _, fname := range outputs.files {
		if info, statErr := os.Stat(fname); statErr == nil && !info.IsDir() {
			os.Remove(fname)
		}
	}
	return err
}

func shapefileFiles(fname string) []string {
	base := strings.TrimSuffix(fname, filepath.Ext(fname))
	return []string{base + ".shp", base + ".shx", base + ".dbf", base + "dbf"}
}

// pipelineState is the data passed between phases. Only one of the fields is set at a time
type pipelineState struct {
	segments []RawSegment
	net      *Network
	roads    *RoadTable
}

func (state *pipelineState) counts() (int, int) {
	switch {
	case state.net != nil:
		return state.net.NodesNum(), state.net.LinksNum()
	case state.roads != nil:
		return 0, len(state.roads.Roads)
	default:
		return 0, len(state.segments)
	}
}

// Run executes phases starting from the given one
func (pipeline *Pipeline) Run(ctx context.Context, start Phase) error {
	if start < PHASE_FIRST || start > PHASE_LAST {
		return errors.Wrapf(ErrInvalidPhase, "%d", start)
	}
	if pipeline.outputDir != "" {
		if err := os.MkdirAll(pipeline.outputDir, 0o755); err != nil {
			return errors.Wrap(err, "Can't prepare output directory")
		}
	}
	state, err := pipeline.resume(start)
	if err != nil {
		return errors.Wrapf(err, "phase %d (%s)", start, start)
	}
	for phase := start; phase <= PHASE_LAST; phase++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := time.Now()
		state, err = pipeline.runPhase(ctx, phase, state)
		if err != nil {
			return errors.Wrapf(err, "phase %d (%s)", phase, phase)
		}
		nodes, links := state.counts()
		pipeline.logger.Info("phase completed", zap.Int("phase", int(phase)), zap.String("name", phase.String()), zap.Int("nodes", nodes), zap.Int("links", links), zap.Duration("took", time.Since(st)))
	}
	return nil
}

// checkpointFile returns existing checkpoint of the phase. Both compressed and plain variants are accepted
func (pipeline *Pipeline) checkpointFile(phase Phase) (string, error) {
	preferred := phase.checkpointPath(pipeline.outputDir, pipeline.city, pipeline.cfg.IO.CompressCheckpoints)
	alternative := phase.checkpointPath(pipeline.outputDir, pipeline.city, !pipeline.cfg.IO.CompressCheckpoints)
	for _, fname := range []string{preferred, alternative} {
		if _, err := os.Stat(fname); err == nil {
			return fname, nil
		}
	}
	return "", errors.Wrapf(ErrCheckpointMissing, "phase %d (%s) output '%s'", phase, phase, preferred)
}

// resume reads output of the phase preceding the start one
func (pipeline *Pipeline) resume(start Phase) (*pipelineState, error) {
	state := &pipelineState{}
	if start == PHASE_FIRST {
		return state, nil
	}
	previous := start - 1
	fname, err := pipeline.checkpointFile(previous)
	if err != nil {
		return nil, err
	}
	pipeline.logger.Info("resuming from checkpoint", zap.Int("phase", int(previous)), zap.String("file", fname))
	switch previous {
	case PHASE_INGEST:
		state.segments, err = ReadSegmentsGeoJSON(fname, pipeline.cfg, pipeline.logger)
	case PHASE_ROADS:
		state.roads, err = ReadRoadsGeoJSON(fname)
	default:
		state.net, err = ReadCheckpoint(fname)
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

type networkStage func(net *Network, cfg *Config, logger *zap.Logger) (*Network, error)

var networkStages = map[Phase]networkStage{
	PHASE_GRADES:     SeparateGrades,
	PHASE_REDUCE:     ReduceChains,
	PHASE_CONNECT:    RepairConnectivity,
	PHASE_DEGREE:     NormalizeDegree,
	PHASE_SIMULATION: PrepareSimulation,
}

func (pipeline *Pipeline) runPhase(ctx context.Context, phase Phase, state *pipelineState) (*pipelineState, error) {
	cfg := pipeline.cfg
	logger := pipeline.logger.With(zap.String("phase", phase.String()))
	checkpoint := phase.checkpointPath(pipeline.outputDir, pipeline.city, cfg.IO.CompressCheckpoints)
	base := filepath.Join(pipeline.outputDir, phase.baseName(pipeline.city))
	switch phase {
	case PHASE_INGEST:
		segments, err := ReadSegments(ctx, pipeline.inputFile(), cfg, logger)
		if err != nil {
			return nil, err
		}
		segments, err = FilterBySpeed(segments, cfg.Filter, logger)
		if err != nil {
			return nil, err
		}
		if err = WriteSegmentsGeoJSON(checkpoint, segments, cfg); err != nil {
			return nil, err
		}
		return &pipelineState{segments: segments}, nil
	case PHASE_CORRECT:
		net, err := IdentifyNodes(NormalizeDirections(state.segments, logger), cfg, logger)
		if err != nil {
			return nil, err
		}
		net, err = KeepLargestComponent(net, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err = WriteCheckpoint(checkpoint, net); err != nil {
			return nil, err
		}
		return &pipelineState{net: net}, nil
	case PHASE_ROADS:
		roads, err := BuildRoads(state.net, cfg, logger)
		if err != nil {
			return nil, err
		}
		outputs := phaseOutputs{}
		outputs.Go(func() error { return WriteRoadsGeoJSON(checkpoint, roads) }, checkpoint)
		outputs.Go(func() error { return ExportRoadsToCSV(base+".csv", roads, cfg.Lanes.MaxLanes) }, base+".csv")
		if cfg.IO.Shapefiles {
			outputs.Go(func() error { return ExportRoadsToShapefile(base+".shp", roads) }, shapefileFiles(base+".shp")...)
		}
		if cfg.IO.Contraction {
			prefix := base + "_ch"
			outputs.Go(func() error { return ExportMovementContraction(roads, prefix, logger) }, prefix+"_edges.csv", prefix+"_vertices.csv", prefix+"_shortcuts.csv")
		}
		if err = outputs.Wait(); err != nil {
			return nil, err
		}
		return &pipelineState{roads: roads}, nil
	case PHASE_LANES:
		lanes, err := BuildLanes(state.roads, cfg, logger)
		if err != nil {
			return nil, err
		}
		outputs := phaseOutputs{}
		outputs.Go(func() error { return ExportLanesToCSV(base+".csv", lanes, cfg.IO.LaneGeometry) }, base+".csv")
		if cfg.IO.Shapefiles {
			outputs.Go(func() error { return ExportLanesToShapefile(base+".shp", lanes) }, shapefileFiles(base+".shp")...)
		}
		if err = outputs.Wait(); err != nil {
			return nil, err
		}
		return &pipelineState{roads: state.roads}, nil
	default:
		stage, ok := networkStages[phase]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidPhase, "%d", phase)
		}
		net, err := stage(state.net, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err = WriteCheckpoint(checkpoint, net); err != nil {
			return nil, err
		}
		if phase == PHASE_SIMULATION && cfg.IO.Contraction {
			prefix := filepath.Join(pipeline.outputDir, pipeline.city+"_ch")
			if err = ExportContraction(net, prefix, logger); err != nil {
				return nil, err
			}
		}
		return &pipelineState{net: net}, nil
	}
}
