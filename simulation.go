package lanenet

import (
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// PrepareSimulation finalizes link attributes required by simulator: lanes number within configured bounds,
// opposite links and lengths.
//
// Opposite of a link is the reverse link over the same pair of nodes with the lowest identifier.
func PrepareSimulation(net *Network, cfg *Config, logger *zap.Logger) (*Network, error) {
	logger = loggerOrNop(logger)
	if net.LinksNum() == 0 {
		return nil, ErrEmptyNetwork
	}
	result := net.Clone()
	metric := cfg.Geometry.metric()
	clamped, withOpposite := 0, 0
	for _, id := range result.LinkIDs() {
		link := result.links[id]
		lanes := link.lanesNum
		if lanes <= 0 {
			lanes = lanesFromAttributes(link.attributes, cfg.Lanes.WidthPerLane)
		}
		link.lanesNum = lo.Clamp(lanes, cfg.Lanes.MinLanes, cfg.Lanes.MaxLanes)
		if link.lanesNum != lanes {
			clamped++
		}
		link.oppositeLinkID = NO_LINK
		if opposite, ok := result.findLink(link.targetNodeID, link.sourceNodeID); ok {
			link.oppositeLinkID = opposite.ID
			withOpposite++
		}
		result.snapEndpoints(link)
		link.lengthMeters = Distance(link.geom, metric)
	}
	logger.Debug("simulation attributes prepared", zap.Int("clamped_lanes", clamped), zap.Int("with_opposite", withOpposite))
	return result, nil
}
