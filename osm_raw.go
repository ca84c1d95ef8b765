package lanenet

import (
	"context"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// newOSMScanner guesses file format by extension. Compressed '.bz2' files are handled by openFile
func newOSMScanner(ctx context.Context, fname string, reader io.Reader) (OSMScanner, error) {
	ext := filepath.Ext(strings.TrimSuffix(strings.ToLower(fname), bzip2Extension))
	switch ext {
	case ".osm", ".xml":
		return osmxml.New(ctx, reader), nil
	case ".pbf":
		return osmpbf.New(ctx, reader, runtime.GOMAXPROCS(0)), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "extension '%s' of file '%s'", ext, fname)
	}
}

// scanOSM opens file and passes every object to given function
func scanOSM(ctx context.Context, fname string, handle func(obj osm.Object)) error {
	reader, err := openFile(fname)
	if err != nil {
		return errors.Wrap(err, "Can't open file")
	}
	defer reader.Close()
	scanner, err := newOSMScanner(ctx, fname, reader)
	if err != nil {
		return err
	}
	defer scanner.Close()
	for scanner.Scan() {
		handle(scanner.Object())
	}
	return scanner.Err()
}

// ReadSegmentsOSM reads drivable ways of OSM file and splits them into segments between shared nodes.
// The file is scanned twice (ways, then nodes), so compressed input is decompressed twice instead of being kept in memory
func ReadSegmentsOSM(ctx context.Context, fname string, logger *zap.Logger) ([]RawSegment, error) {
	logger = loggerOrNop(logger)

	ways := make([]*osmWay, 0)
	nodes := make(map[osm.NodeID]*osmNode)
	err := scanOSM(ctx, fname, func(obj osm.Object) {
		if obj.ObjectID().Type() != osm.TypeWay {
			return
		}
		way, ok := newOSMWay(obj.(*osm.Way), logger)
		if !ok {
			return
		}
		for _, nodeID := range way.Nodes {
			if _, ok := nodes[nodeID]; !ok {
				nodes[nodeID] = &osmNode{ID: nodeID}
			}
			nodes[nodeID].useCount++
		}
		// Way ends are always segment ends
		nodes[way.Nodes[0]].useCount++
		nodes[way.Nodes[len(way.Nodes)-1]].useCount++
		ways = append(ways, way)
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't scan ways")
	}

	found := make(map[osm.NodeID]struct{}, len(nodes))
	err = scanOSM(ctx, fname, func(obj osm.Object) {
		if obj.ObjectID().Type() != osm.TypeNode {
			return
		}
		node := obj.(*osm.Node)
		if prepared, ok := nodes[node.ID]; ok {
			prepared.geom = orb.Point{node.Lon, node.Lat}
			found[node.ID] = struct{}{}
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't scan nodes")
	}

	segments := make([]RawSegment, 0, len(ways))
	for _, way := range ways {
		missing := false
		for _, nodeID := range way.Nodes {
			if _, ok := found[nodeID]; !ok {
				missing = true
				break
			}
		}
		if missing {
			logger.Warn("way refers to absent node", zap.Int64("way_id", int64(way.ID)))
			continue
		}
		segments = append(segments, way.split(nodes)...)
	}
	logger.Debug("OSM data read", zap.Int("ways", len(ways)), zap.Int("nodes", len(found)), zap.Int("segments", len(segments)))
	return segments, nil
}

// split cuts way at nodes used more than once
func (way *osmWay) split(nodes map[osm.NodeID]*osmNode) []RawSegment {
	attrs := way.attributes()
	segments := make([]RawSegment, 0, 1)
	geom := orb.LineString{nodes[way.Nodes[0]].geom}
	for _, nodeID := range way.Nodes[1:] {
		node := nodes[nodeID]
		geom = append(geom, node.geom)
		if node.useCount > 1 {
			segments = append(segments, RawSegment{ID: int(way.ID), Geom: geom, Attributes: attrs})
			geom = orb.LineString{node.geom}
		}
	}
	return segments
}
