package lanenet

import (
	"github.com/paulmach/orb"
)

// DirectionCode is declared travel direction of a segment relative to its digitizing order
type DirectionCode uint16

const (
	DIRECTION_FORWARD = DirectionCode(iota + 1)
	DIRECTION_REVERSE
	DIRECTION_TWO_WAY

	DIRECTION_UNDEFINED = DirectionCode(0)
)

func (iotaIdx DirectionCode) String() string {
	return [...]string{"undefined", "forward", "reverse", "two_way"}[iotaIdx]
}

func directionCodeFromString(str string) DirectionCode {
	switch str {
	case "forward":
		return DIRECTION_FORWARD
	case "reverse":
		return DIRECTION_REVERSE
	case "two_way":
		return DIRECTION_TWO_WAY
	default:
		return DIRECTION_UNDEFINED
	}
}

// Attributes are per-segment properties carried along by links
type Attributes struct {
	Name          string
	RoadType      string
	PriorityClass string
	SpeedLimit    float64
	StreetWidth   float64
	// LanesNum is explicit lanes number; zero means it should be derived from street width
	LanesNum    int
	FromLevel   int
	ToLevel     int
	Direction   DirectionCode
	HasBikeLane bool
}

// RawSegment is an input polyline with its attributes
type RawSegment struct {
	// ID of the source feature (feature index or original identifier)
	ID   int
	Geom orb.LineString
	Attributes
	// twin is 1-based index of the reversed copy produced by direction normalization. Zero means no twin
	twin int
}

// swapLevels returns copy of attributes with from/to levels exchanged
func (attrs Attributes) swapLevels() Attributes {
	attrs.FromLevel, attrs.ToLevel = attrs.ToLevel, attrs.FromLevel
	return attrs
}
