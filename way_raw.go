package lanenet

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

const mphToKmh = 1.609344

// osmWay is a drivable OSM way with flattened tags
type osmWay struct {
	ID        osm.WayID
	Nodes     []osm.NodeID
	TagMap    osm.Tags
	name      string
	highway   HighwayType
	direction DirectionCode
	lanes     int
	width     float64
	maxSpeed  float64
	level     int
	bikeLane  bool
}

var (
	mphRegExp    = regexp.MustCompile(`\d+\.?\d*\s*mph`)
	numberRegExp = regexp.MustCompile(`-?\d+\.?\d*`)
)

func parseNumber(text string) (float64, bool) {
	found := numberRegExp.FindString(text)
	if found == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(found, 64)
	return value, err == nil
}

// newOSMWay flattens tags of drivable way. Returns false for ways which should not be a part of road network
func newOSMWay(way *osm.Way, logger *zap.Logger) (*osmWay, bool) {
	tags := way.Tags
	highway := getHighwayType(tags.Find("highway"))
	if highway == HIGHWAY_UNDEFINED {
		return nil, false
	}
	access := map[AccessType]string{
		ACCESS_MOTOR_VEHICLE: tags.Find("motor_vehicle"),
		ACCESS_MOTORCAR:      tags.Find("motorcar"),
		ACCESS_OSM_ACCESS:    tags.Find("access"),
		ACCESS_SERVICE:       tags.Find("service"),
		ACCESS_AREA:          tags.Find("area"),
	}
	for accessType, value := range access {
		if _, excluded := autoExcludeValues[accessType][value]; excluded {
			return nil, false
		}
	}
	if len(way.Nodes) < 2 {
		logger.Warn("way with less than two nodes", zap.Int64("way_id", int64(way.ID)), zap.Int("nodes", len(way.Nodes)))
		return nil, false
	}

	prepared := &osmWay{
		ID:      way.ID,
		Nodes:   make([]osm.NodeID, 0, len(way.Nodes)),
		TagMap:  make(osm.Tags, len(tags)),
		highway: highway,
		lanes:   -1,
	}
	copy(prepared.TagMap, tags)
	for _, node := range way.Nodes {
		prepared.Nodes = append(prepared.Nodes, node.ID)
	}
	prepared.processTags(logger)
	return prepared, true
}

func (way *osmWay) processTags(logger *zap.Logger) {
	defaults := defaultsByHighway[way.highway]
	way.name = way.TagMap.Find("name")

	onewayText := way.TagMap.Find("oneway")
	way.direction = DIRECTION_TWO_WAY
	if defaults.oneway {
		way.direction = DIRECTION_FORWARD
	}
	if _, ok := junctionTypes[way.TagMap.Find("junction")]; ok {
		way.direction = DIRECTION_FORWARD
	}
	if onewayText != "" {
		if _, ok := onewayForward[onewayText]; ok {
			way.direction = DIRECTION_FORWARD
		} else if _, ok := onewayNone[onewayText]; ok {
			way.direction = DIRECTION_TWO_WAY
		} else if onewayText == "-1" {
			way.direction = DIRECTION_REVERSE
		} else if _, ok := onewayReversible[onewayText]; ok {
			// Time dependent direction
			way.direction = DIRECTION_TWO_WAY
		} else {
			logger.Warn("unhandled oneway tag", zap.Int64("way_id", int64(way.ID)), zap.String("value", onewayText))
		}
	}

	if lanes := way.TagMap.Find("lanes"); lanes != "" {
		if value, ok := parseNumber(lanes); ok && value > 0 {
			way.lanes = int(value)
		} else {
			logger.Warn("lanes tag should be a positive number", zap.Int64("way_id", int64(way.ID)), zap.String("value", lanes))
		}
	}
	if way.lanes <= 0 {
		way.lanes = defaults.lanes
		if way.direction == DIRECTION_TWO_WAY {
			way.lanes *= 2
		}
	}

	way.maxSpeed = defaults.speed
	if maxSpeed := way.TagMap.Find("maxspeed"); maxSpeed != "" {
		if value, ok := parseNumber(maxSpeed); ok {
			if mphRegExp.MatchString(maxSpeed) {
				value *= mphToKmh
			}
			way.maxSpeed = value
		}
	}

	if width := way.TagMap.Find("width"); width != "" {
		way.width, _ = parseNumber(width)
	}

	switch {
	case way.TagMap.Find("layer") != "":
		if value, ok := parseNumber(way.TagMap.Find("layer")); ok {
			way.level = int(value)
		}
	case way.TagMap.Find("bridge") != "" && way.TagMap.Find("bridge") != "no":
		way.level = 1
	case way.TagMap.Find("tunnel") != "" && way.TagMap.Find("tunnel") != "no":
		way.level = -1
	}

	cycleway := strings.ToLower(way.TagMap.Find("cycleway"))
	way.bikeLane = cycleway != "" && cycleway != "no"
}

// attributes returns segment attributes of the way. Both ends of every segment share the way's level
func (way *osmWay) attributes() Attributes {
	return Attributes{
		Name:        way.name,
		RoadType:    way.highway.String(),
		SpeedLimit:  way.maxSpeed,
		StreetWidth: way.width,
		LanesNum:    way.lanes,
		FromLevel:   way.level,
		ToLevel:     way.level,
		Direction:   way.direction,
		HasBikeLane: way.bikeLane,
	}
}
