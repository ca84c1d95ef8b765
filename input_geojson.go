package lanenet

import (
	"strings"

	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// segmentFromProperties builds raw segment out of feature attributes using configured column names
func segmentFromProperties(idx int, geom orb.LineString, props map[string]interface{}, cfg *Config, logger *zap.Logger) (RawSegment, error) {
	names := cfg.Attributes
	for _, logical := range append([]string{ATTRIBUTE_DIRECTION}, names.Required...) {
		column := names.column(logical)
		if column == "" {
			return RawSegment{}, errors.Wrapf(ErrMissingAttribute, "feature %d: no column configured for '%s'", idx, logical)
		}
		if value, ok := props[column]; !ok || value == nil {
			return RawSegment{}, errors.Wrapf(ErrMissingAttribute, "feature %d: '%s'", idx, column)
		}
	}
	segment := RawSegment{
		ID:   idx,
		Geom: geom,
	}
	if names.ID != "" {
		if id, ok := propertyInt(props, names.ID); ok {
			segment.ID = id
		}
	}
	attrs := &segment.Attributes
	rawDirection, _ := propertyString(props, names.Direction)
	direction, known := cfg.Directions.parse(rawDirection)
	if !known {
		logger.Warn("unknown direction code, segment treated as two-way", zap.Int("feature", idx), zap.Int("id", segment.ID), zap.String("value", rawDirection))
	}
	attrs.Direction = direction
	if names.SpeedLimit != "" {
		attrs.SpeedLimit, _ = propertyFloat(props, names.SpeedLimit)
	}
	if names.StreetWidth != "" {
		attrs.StreetWidth, _ = propertyFloat(props, names.StreetWidth)
	}
	if names.LanesNum != "" {
		attrs.LanesNum, _ = propertyInt(props, names.LanesNum)
	}
	if names.FromLevel != "" {
		attrs.FromLevel, _ = propertyInt(props, names.FromLevel)
	}
	if names.ToLevel != "" {
		attrs.ToLevel, _ = propertyInt(props, names.ToLevel)
	}
	if names.Priority != "" {
		priority, _ := propertyString(props, names.Priority)
		attrs.PriorityClass = strings.TrimSpace(priority)
	}
	if names.BikeLane != "" {
		attrs.HasBikeLane, _ = propertyBool(props, names.BikeLane)
	}
	if names.RoadType != "" {
		roadType, _ := propertyString(props, names.RoadType)
		attrs.RoadType = strings.TrimSpace(roadType)
	}
	if names.Name != "" {
		name, _ := propertyString(props, names.Name)
		attrs.Name = strings.TrimSpace(name)
	}
	return segment, nil
}

// ReadSegmentsGeoJSON reads LineString (or MultiLineString) features of GeoJSON layer
func ReadSegmentsGeoJSON(fname string, cfg *Config, logger *zap.Logger) ([]RawSegment, error) {
	logger = loggerOrNop(logger)
	fc, err := readFeatureCollection(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read layer '%s'", fname)
	}
	segments := make([]RawSegment, 0, len(fc.Features))
	for idx, feature := range fc.Features {
		geom, err := geometryLineString(feature.Geometry)
		if err != nil {
			logger.Warn("feature skipped", zap.Int("feature", idx), zap.Error(err))
			continue
		}
		props := feature.Properties
		if props == nil {
			props = map[string]interface{}{}
		}
		segment, err := segmentFromProperties(idx, geom, props, cfg, logger)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

// WriteSegmentsGeoJSON writes raw segments back with configured column names, so the file could be read
// by ReadSegmentsGeoJSON
func WriteSegmentsGeoJSON(fname string, segments []RawSegment, cfg *Config) error {
	names := cfg.Attributes
	fc := geojson.NewFeatureCollection()
	for _, segment := range segments {
		feature := geojson.NewFeature(lineStringGeometry(segment.Geom))
		set := func(column string, value interface{}) {
			if column != "" {
				feature.SetProperty(column, value)
			}
		}
		set(names.ID, segment.ID)
		set(names.Direction, cfg.Directions.encode(segment.Direction))
		set(names.SpeedLimit, segment.SpeedLimit)
		set(names.StreetWidth, segment.StreetWidth)
		set(names.LanesNum, segment.LanesNum)
		set(names.FromLevel, segment.FromLevel)
		set(names.ToLevel, segment.ToLevel)
		set(names.Priority, segment.PriorityClass)
		set(names.BikeLane, segment.HasBikeLane)
		set(names.RoadType, segment.RoadType)
		set(names.Name, segment.Name)
		fc.AddFeature(feature)
	}
	if err := writeFeatureCollection(fname, fc); err != nil {
		return errors.Wrapf(err, "Can't write layer '%s'", fname)
	}
	return nil
}
