package lanenet

import (
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// undirectedGraph returns topology of the network with directions ignored
func undirectedGraph(net *Network) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for _, id := range net.NodeIDs() {
		g.AddNode(simple.Node(id))
	}
	for _, id := range net.LinkIDs() {
		link := net.links[id]
		if link.sourceNodeID == link.targetNodeID {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(link.sourceNodeID), simple.Node(link.targetNodeID)))
	}
	return g
}

// directedGraph returns topology of the network. Parallel links collapse into a single edge
func directedGraph(net *Network) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for _, id := range net.NodeIDs() {
		g.AddNode(simple.Node(id))
	}
	for _, id := range net.LinkIDs() {
		link := net.links[id]
		if link.sourceNodeID == link.targetNodeID {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(link.sourceNodeID), simple.Node(link.targetNodeID)))
	}
	return g
}

// componentNodes converts gonum components into sorted node identifiers.
// Components are ordered by size (descending) and then by the lowest node identifier
func componentNodes(components [][]graph.Node) [][]NetworkNodeID {
	result := make([][]NetworkNodeID, 0, len(components))
	for _, component := range components {
		ids := make([]NetworkNodeID, 0, len(component))
		for _, node := range component {
			ids = append(ids, NetworkNodeID(node.ID()))
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		result = append(result, ids)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if len(result[i]) != len(result[j]) {
			return len(result[i]) > len(result[j])
		}
		return result[i][0] < result[j][0]
	})
	return result
}

// weakComponents returns weakly connected components of the network
func weakComponents(net *Network) [][]NetworkNodeID {
	return componentNodes(topo.ConnectedComponents(undirectedGraph(net)))
}

// strongComponents returns strongly connected components of the network
func strongComponents(net *Network) [][]NetworkNodeID {
	return componentNodes(topo.TarjanSCC(directedGraph(net)))
}

// IsStronglyConnected checks whether every node is reachable from every other one
func IsStronglyConnected(net *Network) bool {
	if net.NodesNum() == 0 {
		return false
	}
	return len(strongComponents(net)) == 1
}

// keepLargestComponent removes every node outside of the largest weakly connected component (in place).
// Returns number of removed nodes and links
func keepLargestComponent(net *Network) (int, int) {
	components := weakComponents(net)
	if len(components) < 2 {
		return 0, 0
	}
	linksBefore := net.LinksNum()
	droppedNodes := 0
	for _, component := range components[1:] {
		for _, id := range component {
			net.removeNode(id)
			droppedNodes++
		}
	}
	return droppedNodes, linksBefore - net.LinksNum()
}

// KeepLargestComponent restricts network to its largest weakly connected component.
// Dropped parts are reported, never silently lost
func KeepLargestComponent(net *Network, cfg *Config, logger *zap.Logger) (*Network, error) {
	logger = loggerOrNop(logger)
	if net.NodesNum() == 0 {
		return nil, ErrEmptyNetwork
	}
	result := net.Clone()
	droppedNodes, droppedLinks := keepLargestComponent(result)
	if droppedNodes > 0 {
		logger.Warn("disconnected parts dropped", zap.Int("dropped_nodes", droppedNodes), zap.Int("dropped_links", droppedLinks), zap.Int("kept_nodes", result.NodesNum()))
	}
	return result, nil
}

// RepairConnectivity makes network strongly connected.
//
// The largest weakly connected component is kept. Then for every ordered pair of distinct strongly connected
// components joined by at least one link, exactly one reversed copy of the lowest-id such link is inserted.
func RepairConnectivity(net *Network, cfg *Config, logger *zap.Logger) (*Network, error) {
	logger = loggerOrNop(logger)
	if net.LinksNum() == 0 {
		return nil, ErrEmptyNetwork
	}
	result := net.Clone()
	droppedNodes, droppedLinks := keepLargestComponent(result)
	if droppedNodes > 0 {
		logger.Warn("disconnected parts dropped", zap.Int("dropped_nodes", droppedNodes), zap.Int("dropped_links", droppedLinks), zap.Int("kept_nodes", result.NodesNum()))
	}

	components := strongComponents(result)
	logger.Debug("strongly connected components found", zap.Int("components", len(components)))
	if len(components) > 1 {
		componentOf := make(map[NetworkNodeID]int, result.NodesNum())
		for idx, component := range components {
			for _, id := range component {
				componentOf[id] = idx
			}
		}
		type componentsPair struct {
			from int
			to   int
		}
		representatives := make(map[componentsPair]NetworkLinkID)
		order := make([]componentsPair, 0)
		for _, id := range result.LinkIDs() {
			link := result.links[id]
			key := componentsPair{componentOf[link.sourceNodeID], componentOf[link.targetNodeID]}
			if key.from == key.to {
				continue
			}
			if _, ok := representatives[key]; ok {
				continue
			}
			representatives[key] = id
			order = append(order, key)
		}
		for _, key := range order {
			if _, err := result.addReversedLink(representatives[key]); err != nil {
				return nil, errors.Wrapf(err, "Can't reverse link %d", representatives[key])
			}
		}
		logger.Info("reverse links inserted", zap.Int("components", len(components)), zap.Int("links", len(order)))
	}

	if !IsStronglyConnected(result) {
		return nil, errors.Wrapf(ErrNotStronglyConnected, "%d components left", len(strongComponents(result)))
	}
	return result, nil
}

// addReversedLink inserts reversed copy of given link
func (net *Network) addReversedLink(id NetworkLinkID) (NetworkLinkID, error) {
	link := net.links[id]
	reversed := link.clone()
	reversed.ID = NO_LINK
	reversed.geom = reverseLine(link.geom)
	reversed.attributes = link.attributes.swapLevels()
	reversed.attributes.Direction = DIRECTION_REVERSE
	reversed.sourceNodeID = link.targetNodeID
	reversed.targetNodeID = link.sourceNodeID
	reversed.oppositeLinkID = NO_LINK
	reversed.wasReversed = true
	newID, err := net.addLink(reversed)
	if err != nil {
		return NO_LINK, err
	}
	if link.oppositeLinkID == NO_LINK {
		link.oppositeLinkID = newID
		reversed.oppositeLinkID = id
	}
	return newID, nil
}
