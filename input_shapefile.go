package lanenet

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ReadSegmentsShapefile reads polyline layer of ESRI Shapefile. Attribute values come from the paired DBF file
func ReadSegmentsShapefile(fname string, cfg *Config, logger *zap.Logger) ([]RawSegment, error) {
	logger = loggerOrNop(logger)
	reader, err := shp.Open(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open shapefile '%s'", fname)
	}
	defer reader.Close()

	fields := reader.Fields()
	segments := make([]RawSegment, 0)
	for reader.Next() {
		idx, shape := reader.Shape()
		geom, ok := shapeLineString(shape)
		if !ok {
			logger.Warn("feature skipped", zap.Int("feature", idx), zap.String("reason", "not a polyline"))
			continue
		}
		props := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			props[field.String()] = strings.TrimSpace(reader.ReadAttribute(idx, i))
		}
		segment, err := segmentFromProperties(idx, geom, props, cfg, logger)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

// shapeLineString joins parts of polyline shape into single line
func shapeLineString(shape shp.Shape) (orb.LineString, bool) {
	var points []shp.Point
	var parts []int32
	switch s := shape.(type) {
	case *shp.PolyLine:
		points, parts = s.Points, s.Parts
	case *shp.PolyLineZ:
		points, parts = s.Points, s.Parts
	case *shp.PolyLineM:
		points, parts = s.Points, s.Parts
	default:
		return nil, false
	}
	if len(parts) == 0 {
		parts = []int32{0}
	}
	lines := make([]orb.LineString, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		line := make(orb.LineString, 0, end-start)
		for _, pt := range points[start:end] {
			line = append(line, orb.Point{pt.X, pt.Y})
		}
		lines = append(lines, line)
	}
	return joinLines(lines...), true
}
