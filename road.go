package lanenet

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// Simulator link identifiers start from this value
	roadIDBase = 100000
	// Lane identifier is link identifier multiplied by this value plus 1-based lane index
	laneIDFactor = 10
)

// Road is a simulator-ready directed link. Every reference is renumbered; zero means no reference
type Road struct {
	LinkID     int
	SourceLink NetworkLinkID
	LanesNum   int
	RoadType   string
	OppositeID int
	FromNode   NetworkNodeID
	ToNode     NetworkNodeID
	Left       int
	Through    int
	Right      int
	Lanes      []int
	Length     float64
	Geom       orb.LineString
}

// Neighbor returns renumbered downstream link for given movement (zero when absent)
func (road *Road) Neighbor(movement MovementType) int {
	switch movement {
	case MOVEMENT_LEFT:
		return road.Left
	case MOVEMENT_THRU:
		return road.Through
	case MOVEMENT_RIGHT:
		return road.Right
	default:
		return 0
	}
}

// RoadTable is an ordered set of roads
type RoadTable struct {
	Roads    []*Road
	byLinkID map[int]*Road
}

func newRoadTable(capacity int) *RoadTable {
	return &RoadTable{
		Roads:    make([]*Road, 0, capacity),
		byLinkID: make(map[int]*Road, capacity),
	}
}

func (table *RoadTable) add(road *Road) {
	table.Roads = append(table.Roads, road)
	table.byLinkID[road.LinkID] = road
}

// Road returns road by its renumbered identifier
func (table *RoadTable) Road(linkID int) (*Road, bool) {
	road, ok := table.byLinkID[linkID]
	return road, ok
}

// MaxLanes returns the biggest lanes number among roads
func (table *RoadTable) MaxLanes() int {
	maxLanes := 0
	for _, road := range table.Roads {
		if road.LanesNum > maxLanes {
			maxLanes = road.LanesNum
		}
	}
	return maxLanes
}

// laneIDs returns identifiers of lanes of given road from the leftmost to the rightmost one
func laneIDs(linkID, lanesNum int) []int {
	lanes := make([]int, lanesNum)
	for k := range lanes {
		lanes[k] = linkID*laneIDFactor + k + 1
	}
	return lanes
}

// BuildRoads renumbers links, classifies turn movements and enumerates lanes
func BuildRoads(net *Network, cfg *Config, logger *zap.Logger) (*RoadTable, error) {
	logger = loggerOrNop(logger)
	if net.LinksNum() == 0 {
		return nil, ErrEmptyNetwork
	}
	records, err := ClassifyTurns(net, cfg.Lanes.Turns, logger)
	if err != nil {
		return nil, errors.Wrap(err, "Can't classify turns")
	}
	ids := net.LinkIDs()
	renumbered := make(map[NetworkLinkID]int, len(ids))
	for rank, id := range ids {
		renumbered[id] = roadIDBase + rank
	}
	ref := func(id NetworkLinkID) int {
		if id == NO_LINK {
			return 0
		}
		return renumbered[id]
	}
	table := newRoadTable(len(ids))
	isolated := make([]int, 0)
	for _, id := range ids {
		link := net.links[id]
		record := records[id]
		lanes := link.lanesNum
		if lanes < 1 {
			lanes = cfg.Lanes.MinLanes
		}
		road := &Road{
			LinkID:     renumbered[id],
			SourceLink: id,
			LanesNum:   lanes,
			RoadType:   link.attributes.RoadType,
			OppositeID: ref(link.oppositeLinkID),
			FromNode:   link.sourceNodeID,
			ToNode:     link.targetNodeID,
			Left:       ref(record.Left),
			Through:    ref(record.Through),
			Right:      ref(record.Right),
			Lanes:      laneIDs(renumbered[id], lanes),
			Length:     link.lengthMeters,
			Geom:       link.geom.Clone(),
		}
		if record.Empty() {
			isolated = append(isolated, road.LinkID)
		}
		table.add(road)
	}
	if len(isolated) > 0 {
		logger.Warn("links without movements", zap.Int("count", len(isolated)), zap.Ints("link_ids", isolated))
	}
	return table, nil
}
