package lanenet

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"
)

// lineStringGeometry returns GeoJSON representation of LineString
func lineStringGeometry(line orb.LineString) *geojson.Geometry {
	pts2d := make([][]float64, len(line))
	for i := range line {
		pts2d[i] = []float64{line[i].X(), line[i].Y()}
	}
	return geojson.NewLineStringGeometry(pts2d)
}

// pointGeometry returns GeoJSON representation of Point
func pointGeometry(pt orb.Point) *geojson.Geometry {
	return geojson.NewPointGeometry([]float64{pt.X(), pt.Y()})
}

// geometryLineString converts GeoJSON LineString or MultiLineString into single line.
// Parts of MultiLineString are concatenated in order
func geometryLineString(geom *geojson.Geometry) (orb.LineString, error) {
	if geom == nil {
		return nil, fmt.Errorf("empty geometry")
	}
	var parts [][][]float64
	switch geom.Type {
	case geojson.GeometryLineString:
		parts = [][][]float64{geom.LineString}
	case geojson.GeometryMultiLineString:
		parts = geom.MultiLineString
	default:
		return nil, fmt.Errorf("unsupported geometry type '%s'", geom.Type)
	}
	lines := make([]orb.LineString, 0, len(parts))
	for _, part := range parts {
		line := make(orb.LineString, 0, len(part))
		for _, pt := range part {
			if len(pt) < 2 {
				return nil, fmt.Errorf("point with %d coordinates", len(pt))
			}
			line = append(line, orb.Point{pt[0], pt[1]})
		}
		lines = append(lines, line)
	}
	return joinLines(lines...), nil
}

// geometryPoint converts GeoJSON Point
func geometryPoint(geom *geojson.Geometry) (orb.Point, error) {
	if geom == nil || geom.Type != geojson.GeometryPoint || len(geom.Point) < 2 {
		return orb.Point{}, fmt.Errorf("not a point geometry")
	}
	return orb.Point{geom.Point[0], geom.Point[1]}, nil
}

// propertyFloat extracts numeric value of any JSON-compatible type. Missing and null values are reported with false
func propertyFloat(props map[string]interface{}, key string) (float64, bool) {
	value, ok := props[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func propertyInt(props map[string]interface{}, key string) (int, bool) {
	f, ok := propertyFloat(props, key)
	return int(f), ok
}

// propertyString returns textual value. Numbers are formatted without trailing zeros
func propertyString(props map[string]interface{}, key string) (string, bool) {
	value, ok := props[key]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func propertyBool(props map[string]interface{}, key string) (bool, bool) {
	value, ok := props[key]
	if !ok || value == nil {
		return false, false
	}
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "t":
			return true, true
		default:
			return false, true
		}
	default:
		f, ok := propertyFloat(props, key)
		return f != 0, ok
	}
}
