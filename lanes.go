package lanenet

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Lane is a single lane of a road with its downstream lanes. Zero means no connection
type Lane struct {
	LaneID  int
	LinkID  int
	Index   int
	Left    int
	Through int
	Right   int
	Length  float64
	Geom    orb.LineString
}

// laneConnections are downstream lanes of a single lane per movement
type laneConnections struct {
	Left    int
	Through int
	Right   int
}

// matchLanes connects own lanes (ordered from the leftmost) to lanes of downstream roads.
//
// The leftmost own lane takes the first lane of the left road, the rightmost own lane takes the last lane
// of the right road. Central lanes (every lane except the leftmost and the rightmost when there are more
// than two) are paired with lanes of the through road by position. When there are more central lanes than
// through ones, the shorter list is distributed across the longer.
func matchLanes(own []int, neighbors map[MovementType][]int) map[int]laneConnections {
	unions := make(map[int]laneConnections, len(own))
	for _, lane := range own {
		unions[lane] = laneConnections{}
	}
	if len(own) == 0 {
		return unions
	}
	leftmost := own[0]
	rightmost := own[len(own)-1]
	central := own
	if len(own) > 2 {
		central = own[1 : len(own)-1]
	}
	if lanes := neighbors[MOVEMENT_LEFT]; len(lanes) > 0 {
		conn := unions[leftmost]
		conn.Left = lanes[0]
		unions[leftmost] = conn
	}
	if lanes := neighbors[MOVEMENT_RIGHT]; len(lanes) > 0 {
		conn := unions[rightmost]
		conn.Right = lanes[len(lanes)-1]
		unions[rightmost] = conn
	}
	if lanes := neighbors[MOVEMENT_THRU]; len(lanes) > 0 {
		if len(central) > len(lanes) {
			for i, lane := range central {
				conn := unions[lane]
				conn.Through = lanes[i*len(lanes)/len(central)]
				unions[lane] = conn
			}
		} else {
			for i, lane := range central {
				conn := unions[lane]
				conn.Through = lanes[i]
				unions[lane] = conn
			}
		}
	}
	return unions
}

// laneOffset returns perpendicular distance of k-th lane (0-based) centerline from road centerline
func laneOffset(k int, step float64) float64 {
	return step/2.0 + float64(k)*step
}

// BuildLanes generates lane centerlines and lane-to-lane connectivity for every road
func BuildLanes(roads *RoadTable, cfg *Config, logger *zap.Logger) ([]*Lane, error) {
	logger = loggerOrNop(logger)
	if len(roads.Roads) == 0 {
		return nil, ErrEmptyNetwork
	}
	metric := cfg.Geometry.metric()
	lanes := make([]*Lane, 0, len(roads.Roads)*2)
	for _, road := range roads.Roads {
		neighbors := make(map[MovementType][]int, 3)
		for _, movement := range []MovementType{MOVEMENT_RIGHT, MOVEMENT_THRU, MOVEMENT_LEFT} {
			neighborID := road.Neighbor(movement)
			if neighborID == 0 {
				continue
			}
			neighbor, ok := roads.Road(neighborID)
			if !ok {
				return nil, errors.Errorf("road %d refers to unknown road %d (%s)", road.LinkID, neighborID, movement)
			}
			neighbors[movement] = neighbor.Lanes
		}
		unions := matchLanes(road.Lanes, neighbors)
		for k, laneID := range road.Lanes {
			conn := unions[laneID]
			geom, skipped := ParallelOffset(road.Geom, laneOffset(k, cfg.Lanes.LaneOffset))
			if skipped > 0 {
				logger.Warn("zero-length segments skipped", zap.Int("link_id", road.LinkID), zap.Int("lane_id", laneID), zap.Int("segments", skipped))
			}
			lanes = append(lanes, &Lane{
				LaneID:  laneID,
				LinkID:  road.LinkID,
				Index:   k + 1,
				Left:    conn.Left,
				Through: conn.Through,
				Right:   conn.Right,
				Length:  Distance(geom, metric),
				Geom:    geom,
			})
		}
	}
	return lanes, nil
}
