package lanenet

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ReadSegments reads input layer choosing reader by file extension: GeoJSON, ESRI Shapefile or OSM (XML, PBF, bzip2-compressed XML)
func ReadSegments(ctx context.Context, fname string, cfg *Config, logger *zap.Logger) ([]RawSegment, error) {
	logger = loggerOrNop(logger)
	lower := strings.ToLower(fname)
	ext := filepath.Ext(strings.TrimSuffix(lower, bzip2Extension))
	var segments []RawSegment
	var err error
	switch ext {
	case ".geojson", ".json":
		segments, err = ReadSegmentsGeoJSON(fname, cfg, logger)
	case ".shp":
		if strings.HasSuffix(lower, bzip2Extension) {
			return nil, errors.Wrapf(ErrUnsupportedFormat, "compressed shapefile '%s'", fname)
		}
		segments, err = ReadSegmentsShapefile(fname, cfg, logger)
	case ".osm", ".xml", ".pbf":
		segments, err = ReadSegmentsOSM(ctx, fname, logger)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "extension '%s' of file '%s'", ext, fname)
	}
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errors.Wrapf(ErrEmptyNetwork, "no segments in '%s'", fname)
	}
	return segments, nil
}
