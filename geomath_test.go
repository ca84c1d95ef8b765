package lanenet

import (
	"fmt"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Round(x, unit float64) float64 {
	if x > 0 {
		return float64(int64(x/unit+0.5)) * unit
	}
	return float64(int64(x/unit-0.5)) * unit
}

func lineAsString(l orb.LineString) string {
	agg := []string{}
	for _, pt := range l {
		agg = append(agg, fmt.Sprintf("[%f, %f]", pt.X(), pt.Y()))
	}
	return "[" + strings.Join(agg, ",") + "]"
}

func TestGreatCircleDistance(t *testing.T) {
	p1 := orb.Point{37.6417350769043, 55.751849391735284}
	p2 := orb.Point{37.668514251708984, 55.73261980350401}
	res := 2.71778012928 // kilometers
	gcd := greatCircleDistance(p1, p2)
	if Round(gcd, 0.0005) != Round(res, 0.0005) {
		t.Errorf("Great circle dist must be %f, but got %f", res, gcd)
	}
	assert.InDelta(t, res*1000.0, Distance(orb.LineString{p1, p2}, METRIC_HAVERSINE), 0.5)
}

func TestDistanceEuclidean(t *testing.T) {
	line := orb.LineString{{0, 0}, {3, 4}, {3, 10}}
	assert.InDelta(t, 11.0, Distance(line, METRIC_EUCLIDEAN), 1e-12)
	assert.Equal(t, 0.0, Distance(orb.LineString{{1, 1}}, METRIC_EUCLIDEAN))
}

func TestOffset(t *testing.T) {
	line := orb.LineString{{10.0, 10.0}, {15.0, 10.0}, {18.0, 15.0}, {18.0, 20.0}, {15.0, 24.0}, {12.0, 24.0}, {10.0, 18.0}, {10.0, 15.0}, {13.0, 12.0}, {15.0, 16.0}}
	distance := 1.0

	left, skipped := offsetCurve(line, distance)
	assert.Equal(t, 0, skipped)
	right, _ := offsetCurve(line, -distance)

	correctLeft := "[[10.000000, 11.000000],[14.433810, 11.000000],[17.000000, 15.276984],[17.000000, 19.666667],[14.500000, 23.000000],[12.720759, 23.000000],[11.000000, 17.837722],[11.000000, 15.414214],[12.726049, 13.688165],[14.105573, 16.447214]]"
	if lineAsString(left) != correctLeft {
		t.Errorf("Left offset line should be '%s' but got '%s'", correctLeft, lineAsString(left))
	}
	correctRight := "[[10.000000, 9.000000],[15.566190, 9.000000],[19.000000, 14.723016],[19.000000, 20.333333],[15.500000, 25.000000],[11.279241, 25.000000],[9.000000, 18.162278],[9.000000, 14.585786],[13.273951, 10.311835],[15.894427, 15.552786]]"
	if lineAsString(right) != correctRight {
		t.Errorf("Right offset line should be '%s' but got '%s'", correctRight, lineAsString(right))
	}

	// Positive parallel offset goes to the right of travel direction
	parallel, _ := ParallelOffset(line, distance)
	assert.Equal(t, correctRight, lineAsString(parallel))
}

func TestOffsetZeroLengthSegments(t *testing.T) {
	line := orb.LineString{{0, 0}, {0, 0}, {10, 0}, {10, 0}}
	shifted, skipped := ParallelOffset(line, 2)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, "[[0.000000, -2.000000],[10.000000, -2.000000]]", lineAsString(shifted))

	degenerate := orb.LineString{{5, 5}, {5, 5}}
	shifted, skipped = ParallelOffset(degenerate, 2)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, degenerate, shifted)
}

func TestBearing(t *testing.T) {
	origin := orb.Point{0, 0}
	cases := []struct {
		target  orb.Point
		bearing float64
	}{
		{orb.Point{1, 0}, 0},
		{orb.Point{1, 1}, 45},
		{orb.Point{0, 1}, 90},
		{orb.Point{-1, 0}, 180},
		{orb.Point{0, -1}, 270},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%v", c.target), func(t *testing.T) {
			assert.InDelta(t, c.bearing, Bearing(origin, c.target), 1e-9)
		})
	}
}

func TestLineBearings(t *testing.T) {
	line := orb.LineString{{0, 0}, {0, 0}, {1, 0}, {1, 1}, {1, 1}}
	start, end, ok := lineBearings(line)
	require.True(t, ok)
	assert.InDelta(t, 0.0, start, 1e-9)
	assert.InDelta(t, 90.0, end, 1e-9)

	_, _, ok = lineBearings(orb.LineString{{2, 2}, {2, 2}})
	assert.False(t, ok)
}

func TestAngles(t *testing.T) {
	assert.InDelta(t, 350.0, normalizeAngle(-10), 1e-9)
	assert.InDelta(t, 10.0, normalizeAngle(730), 1e-9)
	assert.InDelta(t, 20.0, angularDifference(350, 10), 1e-9)
	assert.InDelta(t, 180.0, angularDifference(90, 270), 1e-9)
}

func TestDivideLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {2, 0}, {10, 0}}

	pt, head, tail := DivideLine(line, 4, METRIC_EUCLIDEAN)
	assert.Equal(t, orb.Point{4, 0}, pt)
	assert.Equal(t, orb.LineString{{0, 0}, {2, 0}, {4, 0}}, head)
	assert.Equal(t, orb.LineString{{4, 0}, {10, 0}}, tail)

	pt, head, tail = DivideLine(line, 2, METRIC_EUCLIDEAN)
	assert.Equal(t, orb.Point{2, 0}, pt)
	assert.Equal(t, orb.LineString{{0, 0}, {2, 0}}, head)
	assert.Equal(t, orb.LineString{{2, 0}, {10, 0}}, tail)

	pt, _, tail = DivideLine(line, -1, METRIC_EUCLIDEAN)
	assert.Equal(t, orb.Point{0, 0}, pt)
	assert.Equal(t, line, tail)

	pt, head, _ = DivideLine(line, 100, METRIC_EUCLIDEAN)
	assert.Equal(t, orb.Point{10, 0}, pt)
	assert.Equal(t, line, head)
}

func TestDivideLineHaversineLength(t *testing.T) {
	line := orb.LineString{{-73.9857, 40.7484}, {-73.9840, 40.7490}, {-73.9812, 40.7509}, {-73.9790, 40.7515}}
	total := Distance(line, METRIC_HAVERSINE)
	for _, distance := range []float64{10, 150, total / 2, total - 1} {
		pt, head, tail := DivideLine(line, distance, METRIC_HAVERSINE)
		assert.Equal(t, pt, head[len(head)-1])
		assert.Equal(t, pt, tail[0])
		assert.InDelta(t, distance, Distance(head, METRIC_HAVERSINE), 1e-3)
		assert.InDelta(t, total, Distance(head, METRIC_HAVERSINE)+Distance(tail, METRIC_HAVERSINE), 1e-4)
		assert.InDelta(t, total, Distance(joinLines(head, tail), METRIC_HAVERSINE), 1e-4)
	}
}

func TestReverseAndJoin(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 0}, {2, 1}}
	assert.Equal(t, orb.LineString{{2, 1}, {1, 0}, {0, 0}}, reverseLine(line))
	joined := joinLines(orb.LineString{{0, 0}, {1, 0}}, orb.LineString{{1, 0}, {2, 0}}, orb.LineString{{2, 0}, {3, 0}})
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, joined)
}
