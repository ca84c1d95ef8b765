package lanenet

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type MovementType uint16

const (
	MOVEMENT_THRU = MovementType(iota + 1)
	MOVEMENT_RIGHT
	MOVEMENT_LEFT
	MOVEMENT_U_TURN

	MOVEMENT_UNDEFINED = MovementType(0)
)

func (iotaIdx MovementType) String() string {
	return [...]string{"undefined", "thru", "right", "left", "uturn"}[iotaIdx]
}

// TurnTable is a classification table for relative angles between arrival and departure bearings.
//
// Relative angle is (departure - arrival - Rotation) normalized into [0, 360). With default rotation
// of 315 degrees going straight gives 45, turning left gives 135, U-turn gives 225 and turning right gives 315.
// Bounds are four ascending sector borders: angles below Bounds[0] or above Bounds[3] are through movements,
// up to Bounds[1] are left ones, up to Bounds[2] are U-turns and the rest are right ones.
type TurnTable struct {
	Rotation float64   `mapstructure:"rotation"`
	Bounds   []float64 `mapstructure:"bounds"`
}

// DefaultTurnTable returns classification table used for NYC-like networks
func DefaultTurnTable() TurnTable {
	return TurnTable{
		Rotation: 315,
		Bounds:   []float64{0, 180, 240, 360},
	}
}

func (table TurnTable) validate() error {
	if table.Rotation < 0 || table.Rotation >= 360 {
		return fmt.Errorf("turn table rotation must be in [0, 360), but got %f", table.Rotation)
	}
	if len(table.Bounds) != 4 {
		return fmt.Errorf("turn table must have 4 sector bounds, but got %d", len(table.Bounds))
	}
	for i := 1; i < len(table.Bounds); i++ {
		if table.Bounds[i] < table.Bounds[i-1] {
			return fmt.Errorf("turn table bounds must be ascending, but got %v", table.Bounds)
		}
	}
	return nil
}

// relativeAngle returns angle between arrival and departure bearings rotated by the table rotation
func (table TurnTable) relativeAngle(arrival, departure float64) float64 {
	return normalizeAngle(departure - arrival - table.Rotation)
}

// classify returns movement type for given relative angle
func (table TurnTable) classify(relative float64) MovementType {
	switch {
	case relative < table.Bounds[0] || relative > table.Bounds[3]:
		return MOVEMENT_THRU
	case relative <= table.Bounds[1]:
		return MOVEMENT_LEFT
	case relative <= table.Bounds[2]:
		return MOVEMENT_U_TURN
	default:
		return MOVEMENT_RIGHT
	}
}

// TurnRecord references downstream links for every movement out of a link. NO_LINK marks absent movement
type TurnRecord struct {
	Left    NetworkLinkID
	Through NetworkLinkID
	Right   NetworkLinkID
}

func newTurnRecord() TurnRecord {
	return TurnRecord{Left: NO_LINK, Through: NO_LINK, Right: NO_LINK}
}

// Empty returns true when there is no movement out of the link
func (record TurnRecord) Empty() bool {
	return record.Left == NO_LINK && record.Through == NO_LINK && record.Right == NO_LINK
}

// Get returns downstream link for given movement
func (record TurnRecord) Get(movement MovementType) NetworkLinkID {
	switch movement {
	case MOVEMENT_LEFT:
		return record.Left
	case MOVEMENT_THRU:
		return record.Through
	case MOVEMENT_RIGHT:
		return record.Right
	default:
		return NO_LINK
	}
}

func (record *TurnRecord) set(movement MovementType, linkID NetworkLinkID) {
	switch movement {
	case MOVEMENT_LEFT:
		record.Left = linkID
	case MOVEMENT_THRU:
		record.Through = linkID
	default:
		// U-turns are not distinguished in simulator data
		record.Right = linkID
	}
}

type turnCandidate struct {
	linkID   NetworkLinkID
	relative float64
}

// turnCandidates returns links one could leave the target node of given link to, ordered by relative angle.
// Link leading straight back to the source node is not a candidate
func (net *Network) turnCandidates(link *NetworkLink, table TurnTable, logger *zap.Logger) []turnCandidate {
	_, arrival, ok := lineBearings(link.geom)
	if !ok {
		logger.Warn("zero-length link has no arrival bearing", zap.Int("link_id", int(link.ID)))
	}
	candidates := make([]turnCandidate, 0)
	for _, out := range net.outcoming(link.targetNodeID) {
		if out.targetNodeID == link.sourceNodeID {
			continue
		}
		departure, _, ok := lineBearings(out.geom)
		if !ok {
			logger.Warn("zero-length link has no departure bearing", zap.Int("link_id", int(out.ID)))
		}
		candidates = append(candidates, turnCandidate{linkID: out.ID, relative: table.relativeAngle(arrival, departure)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].relative != candidates[j].relative {
			return candidates[i].relative < candidates[j].relative
		}
		return candidates[i].linkID < candidates[j].linkID
	})
	return candidates
}

// ClassifyTurns builds turn record for every link of the network.
//
// With a single candidate it is always the through movement. With two candidates the one nearest to
// straight direction is through and the other one is classified by the turn table. Three candidates
// are through, left and right in order of relative angle. More candidates make intersection ambiguous.
func ClassifyTurns(net *Network, table TurnTable, logger *zap.Logger) (map[NetworkLinkID]TurnRecord, error) {
	logger = loggerOrNop(logger)
	records := make(map[NetworkLinkID]TurnRecord, net.LinksNum())
	for _, linkID := range net.LinkIDs() {
		link := net.links[linkID]
		candidates := net.turnCandidates(link, table, logger)
		record := newTurnRecord()
		switch len(candidates) {
		case 0:
		case 1:
			record.Through = candidates[0].linkID
		case 2:
			record.Through = candidates[0].linkID
			record.set(table.classify(candidates[1].relative), candidates[1].linkID)
		case 3:
			record.Through = candidates[0].linkID
			record.Left = candidates[1].linkID
			record.Right = candidates[2].linkID
		default:
			return nil, errors.Wrapf(ErrAmbiguousIntersection, "node %d, incoming link %d: %d outgoing candidates", link.targetNodeID, linkID, len(candidates))
		}
		records[linkID] = record
	}
	return records, nil
}
