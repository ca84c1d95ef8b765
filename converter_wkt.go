package lanenet

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/twpayne/go-polyline"
)

// Supported text representations of lane geometry
const (
	GEOMETRY_FORMAT_WKT      = "wkt"
	GEOMETRY_FORMAT_POLYLINE = "polyline"
)

// encodeLineString returns text representation of line: WKT (default) or encoded polyline
func encodeLineString(line orb.LineString, format string) string {
	if strings.ToLower(format) == GEOMETRY_FORMAT_POLYLINE {
		return encodePolyline(line)
	}
	return wkt.MarshalString(line)
}

// encodePolyline returns encoded polyline. Coordinates are written in (lat, lon) order
func encodePolyline(line orb.LineString) string {
	coords := make([][]float64, len(line))
	for i, pt := range line {
		coords[i] = []float64{pt.Lat(), pt.Lon()}
	}
	return string(polyline.EncodeCoords(coords))
}
