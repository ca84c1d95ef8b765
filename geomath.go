package lanenet

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// Mean Earth radius (kilometers) used by the street centerline tooling
	earthRadius = 6373.0
	pi180       = math.Pi / 180.0
	pi180Rev    = 180.0 / math.Pi
	// Offset vertices farther than this many offset distances from the source vertex are treated as spikes
	miterLimit = 10.0
)

// DistanceMetric defines how lengths are measured along polylines
type DistanceMetric uint16

const (
	METRIC_HAVERSINE = DistanceMetric(iota + 1)
	METRIC_EUCLIDEAN

	METRIC_UNDEFINED = DistanceMetric(0)
)

func (iotaIdx DistanceMetric) String() string {
	return [...]string{"undefined", "haversine", "euclidean"}[iotaIdx]
}

func distanceMetricFromString(str string) (DistanceMetric, error) {
	switch strings.ToLower(str) {
	case "haversine", "wgs", "":
		return METRIC_HAVERSINE, nil
	case "euclidean", "planar":
		return METRIC_EUCLIDEAN, nil
	default:
		return METRIC_UNDEFINED, fmt.Errorf("Unknown distance metric '%s'", str)
	}
}

// degreesToRadians deg = r * pi / 180
func degreesToRadians(d float64) float64 {
	return d * pi180
}

// radiansTodegrees r = deg  * 180 / pi
func radiansTodegrees(d float64) float64 {
	return d * pi180Rev
}

// greatCircleDistance returns distance between two geo-points (kilometers). X is longitude, Y is latitude
func greatCircleDistance(p, q orb.Point) float64 {
	lat1 := degreesToRadians(p.Lat())
	lon1 := degreesToRadians(p.Lon())
	lat2 := degreesToRadians(q.Lat())
	lon2 := degreesToRadians(q.Lon())
	diffLat := lat2 - lat1
	diffLon := lon2 - lon1
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	ans := c * earthRadius
	return ans
}

// pointsDistance returns distance between two points: meters for haversine metric, native units for euclidean one
func pointsDistance(p, q orb.Point, metric DistanceMetric) float64 {
	if metric == METRIC_EUCLIDEAN {
		return planar.Distance(p, q)
	}
	return 1000.0 * greatCircleDistance(p, q)
}

// Distance returns length of given line as sum of point-to-point distances
func Distance(line orb.LineString, metric DistanceMetric) float64 {
	totalLength := 0.0
	for i := 1; i < len(line); i++ {
		totalLength += pointsDistance(line[i-1], line[i], metric)
	}
	return totalLength
}

// Bearing returns direction from p to q in degrees within [0, 360).
// Angle is measured counter-clockwise from the X (east) axis on raw coordinates.
func Bearing(p, q orb.Point) float64 {
	return normalizeAngle(radiansTodegrees(math.Atan2(q.Y()-p.Y(), q.X()-p.X())))
}

// lineBearings returns departure and arrival bearings of given line.
// Zero-length segments are ignored; false is returned when the line has no segment of positive length
func lineBearings(line orb.LineString) (float64, float64, bool) {
	start, end := -1, -1
	for i := 1; i < len(line); i++ {
		if !line[i-1].Equal(line[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	for i := len(line) - 1; i > 0; i-- {
		if !line[i-1].Equal(line[i]) {
			end = i
			break
		}
	}
	return Bearing(line[start-1], line[start]), Bearing(line[end-1], line[end]), true
}

// normalizeAngle maps any angle (degrees) into [0, 360)
func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 360.0)
	if angle < 0 {
		angle += 360.0
	}
	if angle >= 360.0 {
		angle -= 360.0
	}
	return angle
}

// angularDifference returns unsigned smallest difference between two bearings (degrees, [0, 180])
func angularDifference(a, b float64) float64 {
	diff := normalizeAngle(a - b)
	if diff > 180.0 {
		diff = 360.0 - diff
	}
	return diff
}

// pointOnSegmentByFraction returns a point on given segment using fraction of its length
func pointOnSegmentByFraction(p, q orb.Point, fraction float64) orb.Point {
	return orb.Point{
		(1-fraction)*p.X() + (fraction * q.X()),
		(1-fraction)*p.Y() + (fraction * q.Y()),
	}
}

// DivideLine splits line at given distance from its start.
// Returns the split point, the part before it and the part after it.
// Distances outside of (0, length) clamp to the line endpoints.
func DivideLine(line orb.LineString, distance float64, metric DistanceMetric) (orb.Point, orb.LineString, orb.LineString) {
	if len(line) == 0 {
		return orb.Point{}, orb.LineString{}, orb.LineString{}
	}
	first := line[0]
	if distance <= 0 || len(line) == 1 {
		return first, orb.LineString{first, first}, line.Clone()
	}
	cl := 0.0
	for i := 1; i < len(line); i++ {
		tmpDist := pointsDistance(line[i-1], line[i], metric)
		if tmpDist == 0 {
			continue
		}
		if cl+tmpDist >= distance {
			pt := pointOnSegmentByFraction(line[i-1], line[i], (distance-cl)/tmpDist)
			head := make(orb.LineString, 0, i+1)
			head = append(head, line[:i]...)
			head = append(head, pt)
			tail := make(orb.LineString, 0, len(line)-i+1)
			tail = append(tail, pt)
			tail = append(tail, line[i:]...)
			return pt, atLeastTwoPoints(cleanLine(head)), atLeastTwoPoints(cleanLine(tail))
		}
		cl += tmpDist
	}
	last := line[len(line)-1]
	return last, line.Clone(), orb.LineString{last, last}
}

// cleanLine returns copy of given line without consecutive duplicated points
func cleanLine(line orb.LineString) orb.LineString {
	result := make(orb.LineString, 0, len(line))
	for i, pt := range line {
		if i > 0 && pt.Equal(result[len(result)-1]) {
			continue
		}
		result = append(result, pt)
	}
	return result
}

func atLeastTwoPoints(line orb.LineString) orb.LineString {
	if len(line) == 1 {
		return orb.LineString{line[0], line[0]}
	}
	return line
}

// Check if two segments intersects and returns intersections Point
// p1, p2 - first segment
// p3, p4 - second segment
// Note: Euclidean space
func intersect(p1, p2, p3, p4 orb.Point) (orb.Point, error) {
	// Calculate the coefficients of the linear equations
	a1 := p2[1] - p1[1]
	b1 := p1[0] - p2[0]
	c1 := a1*p1[0] + b1*p1[1]
	a2 := p4[1] - p3[1]
	b2 := p3[0] - p4[0]
	c2 := a2*p3[0] + b2*p3[1]

	// Calculate the determinant
	det := a1*b2 - a2*b1
	if det == 0 {
		return orb.Point{}, fmt.Errorf("The lines are parallel")
	}

	// Calculate the intersection point
	x := (b2*c1 - b1*c2) / det
	y := (a1*c2 - a2*c1) / det
	return orb.Point{x, y}, nil
}

type offsetSegment struct {
	start  orb.Point
	end    orb.Point
	vertex orb.Point
}

// offsetCurve shifts line by given distance: positive to the left, negative to the right.
// Returns the shifted line and the number of zero-length segments which have been skipped.
func offsetCurve(line orb.LineString, distance float64) (orb.LineString, int) {
	var result orb.LineString
	segments := make([]offsetSegment, 0, len(line))
	skipped := 0

	// Iterate over line segments and calculate offset segments
	for i := 1; i < len(line); i++ {
		p1 := line[i-1]
		p2 := line[i]

		vec := [2]float64{p2[0] - p1[0], p2[1] - p1[1]}
		vecLen := math.Sqrt(vec[0]*vec[0] + vec[1]*vec[1])
		if vecLen == 0 {
			skipped++
			continue
		}
		vec = [2]float64{vec[0] / vecLen, vec[1] / vecLen}

		// Rotate the vector by 90 degrees
		rotated := [2]float64{-vec[1], vec[0]}
		offset := [2]float64{rotated[0] * distance, rotated[1] * distance}

		op1 := orb.Point{p1[0] + offset[0], p1[1] + offset[1]}
		op2 := orb.Point{p2[0] + offset[0], p2[1] + offset[1]}
		segments = append(segments, offsetSegment{start: op1, end: op2, vertex: p2})
	}
	if len(segments) == 0 {
		return line.Clone(), skipped
	}

	result = append(result, segments[0].start)
	// Join consecutive offset segments at their intersection
	for i := 1; i < len(segments); i++ {
		seg1 := segments[i-1]
		seg2 := segments[i]
		intersection, err := intersect(seg1.start, seg1.end, seg2.start, seg2.end)
		if err != nil || planar.Distance(intersection, seg1.vertex) > miterLimit*math.Abs(distance) {
			// Collinear segments or a spike on a sharp turn
			result = append(result, seg2.start)
			continue
		}
		result = append(result, intersection)
	}
	result = append(result, segments[len(segments)-1].end)
	return result, skipped
}

// ParallelOffset shifts line by given offset: positive to the right side of travel direction, negative to the left.
// Returns the shifted line and the number of zero-length segments which have been skipped.
func ParallelOffset(line orb.LineString, offset float64) (orb.LineString, int) {
	return offsetCurve(line, -offset)
}

// reverseLine returns reversed copy of given line
func reverseLine(line orb.LineString) orb.LineString {
	inputLen := len(line)
	output := make(orb.LineString, inputLen)
	for i, pt := range line {
		output[inputLen-i-1] = pt
	}
	return output
}

// joinLines concatenates lines and removes consecutive duplicated points
func joinLines(lines ...orb.LineString) orb.LineString {
	total := 0
	for _, line := range lines {
		total += len(line)
	}
	joined := make(orb.LineString, 0, total)
	for _, line := range lines {
		joined = append(joined, line...)
	}
	return cleanLine(joined)
}
