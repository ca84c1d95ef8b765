package lanenet

import (
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// walkState is a state of the degree-2 walk along a chain of links
type walkState uint16

const (
	WALKING_FORWARD = walkState(iota + 1)
	WALKING_REVERSE
	AT_JUNCTION
	AT_DEADEND

	WALK_STATE_UNDEFINED = walkState(0)
)

func (iotaIdx walkState) String() string {
	return [...]string{"undefined", "walking_forward", "walking_reverse", "at_junction", "at_deadend"}[iotaIdx]
}

// chainKind distinguishes one-way chains from paired carriageways
type chainKind uint16

const (
	CHAIN_SIMPLE = chainKind(iota + 1)
	CHAIN_PAIRED

	CHAIN_NONE = chainKind(0)
)

// interiorKind returns kind of chain given node could be an interior of.
// Simple interior node has exactly one incoming and one outcoming link leading to different nodes.
// Paired interior node has two incoming and two outcoming links with the same two neighbors on both sides.
func (net *Network) interiorKind(id NetworkNodeID) chainKind {
	node, ok := net.nodes[id]
	if !ok {
		return CHAIN_NONE
	}
	preds := net.predecessors(id)
	succs := net.successors(id)
	for _, other := range append(preds, succs...) {
		if other == id {
			return CHAIN_NONE
		}
	}
	switch {
	case len(node.incomingLinks) == 1 && len(node.outcomingLinks) == 1:
		if preds[0] != succs[0] {
			return CHAIN_SIMPLE
		}
	case len(node.incomingLinks) == 2 && len(node.outcomingLinks) == 2:
		if len(preds) == 2 && len(succs) == 2 && preds[0] == succs[0] && preds[1] == succs[1] {
			return CHAIN_PAIRED
		}
	}
	return CHAIN_NONE
}

// isDeadEnd returns true for nodes that could not be passed through
func (net *Network) isDeadEnd(id NetworkNodeID) bool {
	node := net.nodes[id]
	return len(node.incomingLinks) == 0 || len(node.outcomingLinks) == 0 || len(net.neighbors(id)) <= 1
}

// chainWalker collects nodes of a single chain starting from seed node
type chainWalker struct {
	net     *Network
	kind    chainKind
	visited map[NetworkNodeID]bool
	seed    NetworkNodeID
	// Chain nodes ordered along the forward direction. First and last ones are anchors
	nodes  []NetworkNodeID
	state  walkState
	closed bool
	// Terminal states of both walking directions
	reverseEnd walkState
	forwardEnd walkState
}

func newChainWalker(net *Network, seed NetworkNodeID, kind chainKind, visited map[NetworkNodeID]bool) *chainWalker {
	return &chainWalker{
		net:     net,
		kind:    kind,
		visited: visited,
		seed:    seed,
		nodes:   []NetworkNodeID{seed},
		state:   WALK_STATE_UNDEFINED,
	}
}

func (w *chainWalker) walk() {
	w.visited[w.seed] = true
	w.state = WALKING_REVERSE
	for w.state == WALKING_REVERSE {
		w.step()
	}
	w.reverseEnd = w.state
	if w.closed {
		return
	}
	w.state = WALKING_FORWARD
	for w.state == WALKING_FORWARD {
		w.step()
	}
	w.forwardEnd = w.state
}

// step advances walk by one node and performs state transition
func (w *chainWalker) step() {
	var next NetworkNodeID
	switch w.state {
	case WALKING_REVERSE:
		next = w.previous()
	case WALKING_FORWARD:
		next = w.next()
	default:
		return
	}
	if next == w.seed {
		w.closed = true
		w.state = AT_JUNCTION
		return
	}
	if w.state == WALKING_REVERSE {
		w.nodes = append([]NetworkNodeID{next}, w.nodes...)
	} else {
		w.nodes = append(w.nodes, next)
	}
	if !w.visited[next] && w.net.interiorKind(next) == w.kind {
		w.visited[next] = true
		return
	}
	if w.net.isDeadEnd(next) {
		w.state = AT_DEADEND
		return
	}
	w.state = AT_JUNCTION
}

func (w *chainWalker) previous() NetworkNodeID {
	head := w.nodes[0]
	if w.kind == CHAIN_SIMPLE {
		return w.net.predecessors(head)[0]
	}
	neighbors := w.net.neighbors(head)
	if len(w.nodes) == 1 {
		return neighbors[0]
	}
	return otherNeighbor(neighbors, w.nodes[1])
}

func (w *chainWalker) next() NetworkNodeID {
	tail := w.nodes[len(w.nodes)-1]
	if w.kind == CHAIN_SIMPLE {
		return w.net.successors(tail)[0]
	}
	neighbors := w.net.neighbors(tail)
	if len(w.nodes) == 1 {
		return neighbors[1]
	}
	return otherNeighbor(neighbors, w.nodes[len(w.nodes)-2])
}

func otherNeighbor(neighbors []NetworkNodeID, exclude NetworkNodeID) NetworkNodeID {
	if neighbors[0] == exclude {
		return neighbors[1]
	}
	return neighbors[0]
}

// mergeable returns true when walk produced an open chain between two distinct anchors
func (w *chainWalker) mergeable() bool {
	return !w.closed && len(w.nodes) >= 3 && w.nodes[0] != w.nodes[len(w.nodes)-1]
}

// forwardLinks returns links of the chain along its nodes order
func (w *chainWalker) forwardLinks() []*NetworkLink {
	links := make([]*NetworkLink, 0, len(w.nodes)-1)
	for i := 1; i < len(w.nodes); i++ {
		link, ok := w.net.findLink(w.nodes[i-1], w.nodes[i])
		if !ok {
			return nil
		}
		links = append(links, link)
	}
	return links
}

// backwardLinks returns links of the chain against its nodes order (in travel order)
func (w *chainWalker) backwardLinks() []*NetworkLink {
	links := make([]*NetworkLink, 0, len(w.nodes)-1)
	for i := len(w.nodes) - 1; i > 0; i-- {
		link, ok := w.net.findLink(w.nodes[i], w.nodes[i-1])
		if !ok {
			return nil
		}
		links = append(links, link)
	}
	return links
}

// mergeLinks builds single link out of consecutive ones.
// Width and lanes take the minimum, speed limit is length-weighted mean, levels come from the chain ends
func mergeLinks(links []*NetworkLink, metric DistanceMetric) *NetworkLink {
	first := links[0]
	last := links[len(links)-1]
	geoms := make([]orb.LineString, 0, len(links))
	merged := first.clone()
	merged.ID = NO_LINK
	merged.oppositeLinkID = NO_LINK
	merged.targetNodeID = last.targetNodeID
	merged.attributes.ToLevel = last.attributes.ToLevel

	totalLength, weightedSpeed := 0.0, 0.0
	for _, link := range links {
		geoms = append(geoms, link.geom)
		if link.attributes.StreetWidth < merged.attributes.StreetWidth {
			merged.attributes.StreetWidth = link.attributes.StreetWidth
		}
		if link.attributes.LanesNum < merged.attributes.LanesNum {
			merged.attributes.LanesNum = link.attributes.LanesNum
		}
		if link.lanesNum < merged.lanesNum {
			merged.lanesNum = link.lanesNum
		}
		merged.virtual = merged.virtual && link.virtual
		merged.wasReversed = merged.wasReversed && link.wasReversed
		totalLength += link.lengthMeters
		weightedSpeed += link.lengthMeters * link.attributes.SpeedLimit
	}
	if totalLength > 0 {
		merged.attributes.SpeedLimit = weightedSpeed / totalLength
	}
	merged.geom = joinLines(geoms...)
	merged.lengthMeters = Distance(merged.geom, metric)
	return merged
}

// reduceChainsOnce collapses every chain found in a single sweep over nodes. Returns number of collapsed chains
func (net *Network) reduceChainsOnce(metric DistanceMetric, logger *zap.Logger) int {
	visited := make(map[NetworkNodeID]bool)
	collapsed := 0
	for _, id := range net.NodeIDs() {
		if visited[id] {
			continue
		}
		if _, ok := net.nodes[id]; !ok {
			continue
		}
		kind := net.interiorKind(id)
		if kind == CHAIN_NONE {
			continue
		}
		walker := newChainWalker(net, id, kind, visited)
		walker.walk()
		if !walker.mergeable() {
			continue
		}
		runs := [][]*NetworkLink{walker.forwardLinks()}
		if kind == CHAIN_PAIRED {
			runs = append(runs, walker.backwardLinks())
		}
		complete := true
		for _, run := range runs {
			if len(run) == 0 {
				complete = false
			}
		}
		if !complete {
			logger.Warn("chain skipped: missing link", zap.Int("seed_node_id", int(id)))
			continue
		}
		mergedIDs := make([]NetworkLinkID, 0, len(runs))
		mergedLinks := make([]*NetworkLink, 0, len(runs))
		for _, run := range runs {
			mergedLinks = append(mergedLinks, mergeLinks(run, metric))
		}
		for _, interior := range walker.nodes[1 : len(walker.nodes)-1] {
			net.removeNode(interior)
		}
		for _, merged := range mergedLinks {
			mergedID, err := net.addLink(merged)
			if err != nil {
				logger.Warn("chain skipped", zap.Int("seed_node_id", int(id)), zap.Error(err))
				continue
			}
			mergedIDs = append(mergedIDs, mergedID)
		}
		if len(mergedIDs) == 2 {
			net.links[mergedIDs[0]].oppositeLinkID = mergedIDs[1]
			net.links[mergedIDs[1]].oppositeLinkID = mergedIDs[0]
		}
		collapsed++
	}
	return collapsed
}

// trimDeadEndsOnce removes nodes which could not be passed through, together with their links
func (net *Network) trimDeadEndsOnce() int {
	removed := 0
	for _, id := range net.NodeIDs() {
		if _, ok := net.nodes[id]; !ok {
			continue
		}
		if net.isDeadEnd(id) {
			net.removeNode(id)
			removed++
		}
	}
	return removed
}

// ReduceChains collapses interior degree-2 chains (and paired carriageways) into single links and trims dead ends.
// Reduction is repeated until nothing changes or configured iterations bound is reached.
func ReduceChains(net *Network, cfg *Config, logger *zap.Logger) (*Network, error) {
	logger = loggerOrNop(logger)
	if net.LinksNum() == 0 {
		return nil, ErrEmptyNetwork
	}
	result := net.Clone()
	metric := cfg.Geometry.metric()
	converged := false
	iterations := 0
	for iterations < cfg.Reduction.MaxIterations {
		iterations++
		collapsed := result.reduceChainsOnce(metric, logger)
		trimmed := 0
		if cfg.Reduction.TrimDeadEnds {
			trimmed = result.trimDeadEndsOnce()
		}
		logger.Debug("reduction iteration", zap.Int("iteration", iterations), zap.Int("collapsed", collapsed), zap.Int("trimmed", trimmed), zap.Int("links", result.LinksNum()))
		if collapsed == 0 && trimmed == 0 {
			converged = true
			break
		}
	}
	if !converged {
		logger.Warn("reduction iterations bound reached", zap.Int("max_iterations", cfg.Reduction.MaxIterations))
	}
	if result.LinksNum() == 0 {
		return nil, ErrEmptyNetwork
	}
	droppedNodes, droppedLinks := keepLargestComponent(result)
	if droppedNodes > 0 {
		logger.Warn("disconnected parts dropped", zap.Int("dropped_nodes", droppedNodes), zap.Int("dropped_links", droppedLinks))
	}
	return result, nil
}
