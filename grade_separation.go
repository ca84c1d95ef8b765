package lanenet

import (
	"go.uber.org/zap"
)

// linksByLevel groups links by vertical level they declare at the node
func linksByLevel(links []*NetworkLink, level func(*NetworkLink) int) (map[int][]NetworkLinkID, []int) {
	groups := make(map[int][]NetworkLinkID)
	for _, link := range links {
		groups[level(link)] = append(groups[level(link)], link.ID)
	}
	return groups, sortedKeys(groups)
}

func fromLevel(link *NetworkLink) int {
	return link.attributes.FromLevel
}

func toLevel(link *NetworkLink) int {
	return link.attributes.ToLevel
}

// SeparateGrades splits nodes where incident links disagree on vertical level.
//
// If incoming links arrive on a single level while outcoming ones depart on several levels (or vice versa),
// links of every other level are moved to a cloned node. If both sides show several levels, every matching
// pair of levels beyond the first one is rerouted through its own cloned node.
func SeparateGrades(net *Network, cfg *Config, logger *zap.Logger) (*Network, error) {
	logger = loggerOrNop(logger)
	if net.LinksNum() == 0 {
		return nil, ErrEmptyNetwork
	}
	result := net.Clone()
	disconnected, crossings := 0, 0
	for _, id := range net.NodeIDs() {
		incoming, incomingLevels := linksByLevel(result.incoming(id), toLevel)
		outcoming, outcomingLevels := linksByLevel(result.outcoming(id), fromLevel)
		switch {
		case len(incomingLevels) == 1 && len(outcomingLevels) > 1:
			current := incomingLevels[0]
			for _, level := range outcomingLevels {
				if level == current {
					continue
				}
				clone := result.cloneNode(id)
				for _, linkID := range outcoming[level] {
					result.setLinkSource(linkID, clone.ID)
				}
				disconnected++
				logger.Debug("links disconnected by level", zap.Int("node_id", int(id)), zap.Int("level", level), zap.Int("new_node_id", int(clone.ID)))
			}
		case len(incomingLevels) > 1 && len(outcomingLevels) == 1:
			current := outcomingLevels[0]
			for _, level := range incomingLevels {
				if level == current {
					continue
				}
				clone := result.cloneNode(id)
				for _, linkID := range incoming[level] {
					result.setLinkTarget(linkID, clone.ID)
				}
				disconnected++
				logger.Debug("links disconnected by level", zap.Int("node_id", int(id)), zap.Int("level", level), zap.Int("new_node_id", int(clone.ID)))
			}
		case len(incomingLevels) > 1 && len(outcomingLevels) > 1:
			matched := 0
			for _, level := range incomingLevels {
				if _, ok := outcoming[level]; !ok {
					continue
				}
				matched++
				if matched == 1 {
					continue
				}
				clone := result.cloneNode(id)
				for _, linkID := range incoming[level] {
					result.setLinkTarget(linkID, clone.ID)
				}
				for _, linkID := range outcoming[level] {
					result.setLinkSource(linkID, clone.ID)
				}
				crossings++
			}
		}
	}
	if disconnected+crossings > 0 {
		logger.Info("grades separated", zap.Int("disconnected_levels", disconnected), zap.Int("rerouted_crossings", crossings), zap.Int("nodes", result.NodesNum()))
	}
	return result, nil
}
