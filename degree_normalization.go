package lanenet

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// leg is an approach to the node: a neighbor node with every link joining them
type leg struct {
	neighbor NetworkNodeID
	links    []*NetworkLink
	weight   int
	firstID  NetworkLinkID
	bearing  float64
}

// realLegs returns distinct neighbors joined to the node by at least one non-virtual link.
// Legs are ordered by importance: lanes number (descending) and then by the lowest link identifier
func (net *Network) realLegs(id NetworkNodeID) []*leg {
	byNeighbor := make(map[NetworkNodeID]*leg)
	collect := func(link *NetworkLink, neighbor NetworkNodeID) {
		if neighbor == id {
			return
		}
		l, ok := byNeighbor[neighbor]
		if !ok {
			l = &leg{neighbor: neighbor, firstID: link.ID}
			byNeighbor[neighbor] = l
		}
		l.links = append(l.links, link)
		if link.ID < l.firstID {
			l.firstID = link.ID
		}
	}
	for _, link := range net.outcoming(id) {
		collect(link, link.targetNodeID)
	}
	for _, link := range net.incoming(id) {
		collect(link, link.sourceNodeID)
	}
	legs := make([]*leg, 0, len(byNeighbor))
	for _, neighbor := range sortedKeys(byNeighbor) {
		l := byNeighbor[neighbor]
		real := false
		for _, link := range l.links {
			if !link.virtual {
				real = true
			}
			if link.lanesNum > l.weight {
				l.weight = link.lanesNum
			}
		}
		if !real {
			continue
		}
		l.bearing = net.legBearing(id, l)
		legs = append(legs, l)
	}
	sort.SliceStable(legs, func(i, j int) bool {
		if legs[i].weight != legs[j].weight {
			return legs[i].weight > legs[j].weight
		}
		return legs[i].firstID < legs[j].firstID
	})
	return legs
}

// legBearing returns direction of the leg as seen from the node
func (net *Network) legBearing(id NetworkNodeID, l *leg) float64 {
	for _, link := range l.links {
		if link.sourceNodeID == id {
			start, _, ok := lineBearings(link.geom)
			if ok {
				return start
			}
		}
	}
	for _, link := range l.links {
		if link.targetNodeID == id {
			_, end, ok := lineBearings(link.geom)
			if ok {
				return normalizeAngle(end + 180.0)
			}
		}
	}
	return 0
}

// geomFromNode returns leg geometry oriented away from the node
func geomFromNode(id NetworkNodeID, l *leg) orb.LineString {
	for _, link := range l.links {
		if link.sourceNodeID == id {
			return link.geom
		}
	}
	return reverseLine(l.links[0].geom)
}

// NormalizeDegree rewrites intersections with more real legs than allowed.
//
// The most important legs stay as principal approaches. Every other leg is attached to a virtual node
// inserted on the angularly closest principal leg at a fixed offset from the intersection.
// Minor legs sharing a principal leg share the same virtual node.
func NormalizeDegree(net *Network, cfg *Config, logger *zap.Logger) (*Network, error) {
	logger = loggerOrNop(logger)
	if net.LinksNum() == 0 {
		return nil, ErrEmptyNetwork
	}
	result := net.Clone()
	metric := cfg.Geometry.metric()
	maxLegs := cfg.Degree.MaxLegs

	queue := result.NodeIDs()
	inserted := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := result.nodes[id]; !ok {
			continue
		}
		legs := result.realLegs(id)
		if len(legs) <= maxLegs {
			continue
		}
		principals := legs[:maxLegs]
		assigned := make(map[int][]*leg)
		for _, minor := range legs[maxLegs:] {
			best := 0
			bestDiff := angularDifference(minor.bearing, principals[0].bearing)
			for idx := 1; idx < len(principals); idx++ {
				diff := angularDifference(minor.bearing, principals[idx].bearing)
				if diff < bestDiff {
					best, bestDiff = idx, diff
				}
			}
			assigned[best] = append(assigned[best], minor)
		}
		for idx, principal := range principals {
			minors, ok := assigned[idx]
			if !ok {
				continue
			}
			virtualID, err := result.splitLeg(id, principal, cfg.Degree.VirtualOffset, metric)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't split leg %d-%d", id, principal.neighbor)
			}
			for _, minor := range minors {
				result.rerouteLeg(id, minor, virtualID, metric)
			}
			inserted++
			queue = append(queue, virtualID)
			logger.Debug("virtual node inserted", zap.Int("node_id", int(id)), zap.Int("virtual_node_id", int(virtualID)), zap.Int("principal_node_id", int(principal.neighbor)), zap.Int("minor_legs", len(minors)))
		}
	}

	violations := 0
	for _, id := range result.NodeIDs() {
		if len(result.realLegs(id)) > maxLegs {
			violations++
			logger.Warn("node still exceeds legs bound", zap.Int("node_id", int(id)))
		}
	}
	logger.Info("intersections degree normalized", zap.Int("virtual_nodes", inserted), zap.Int("violations", violations))
	return result, nil
}

// splitLeg inserts virtual node on the principal leg at given offset from the node.
// Every link of the leg is cut there: the piece adjacent to the node becomes a new virtual link,
// the remaining piece keeps identifier of the original link.
func (net *Network) splitLeg(id NetworkNodeID, principal *leg, offset float64, metric DistanceMetric) (NetworkNodeID, error) {
	reference := geomFromNode(id, principal)
	length := Distance(reference, metric)
	distance := offset
	if length <= offset {
		distance = length / 2.0
	}
	pt, _, _ := DivideLine(reference, distance, metric)
	virtualNode := net.addNode(pt, true)

	stubs := make([]NetworkLinkID, 0, 2)
	for _, link := range principal.links {
		linkLength := Distance(link.geom, metric)
		cut := distance
		if linkLength <= cut {
			cut = linkLength / 2.0
		}
		stub := link.clone()
		stub.ID = NO_LINK
		stub.oppositeLinkID = NO_LINK
		stub.virtual = true
		stub.wasReversed = false
		if link.sourceNodeID == id {
			_, head, tail := DivideLine(link.geom, cut, metric)
			stub.geom = head
			stub.targetNodeID = virtualNode.ID
			stub.attributes.ToLevel = stub.attributes.FromLevel
			link.geom = tail
			net.setLinkSource(link.ID, virtualNode.ID)
			link.attributes.FromLevel = link.attributes.ToLevel
		} else {
			_, head, tail := DivideLine(link.geom, linkLength-cut, metric)
			stub.geom = tail
			stub.sourceNodeID = virtualNode.ID
			stub.attributes.FromLevel = stub.attributes.ToLevel
			link.geom = head
			net.setLinkTarget(link.ID, virtualNode.ID)
			link.attributes.ToLevel = link.attributes.FromLevel
		}
		net.snapEndpoints(link)
		link.lengthMeters = Distance(link.geom, metric)
		net.snapEndpoints(stub)
		stub.lengthMeters = Distance(stub.geom, metric)
		stubID, err := net.addLink(stub)
		if err != nil {
			return virtualNode.ID, err
		}
		stubs = append(stubs, stubID)
	}
	if len(stubs) == 2 && net.links[stubs[0]].sourceNodeID == net.links[stubs[1]].targetNodeID {
		net.links[stubs[0]].oppositeLinkID = stubs[1]
		net.links[stubs[1]].oppositeLinkID = stubs[0]
	}
	return virtualNode.ID, nil
}

// rerouteLeg moves every link of the minor leg from the node to the virtual one
func (net *Network) rerouteLeg(id NetworkNodeID, minor *leg, virtualID NetworkNodeID, metric DistanceMetric) {
	for _, link := range minor.links {
		if link.sourceNodeID == id {
			net.setLinkSource(link.ID, virtualID)
		} else {
			net.setLinkTarget(link.ID, virtualID)
		}
		net.snapEndpoints(link)
		link.geom = atLeastTwoPoints(cleanLine(link.geom))
		link.lengthMeters = Distance(link.geom, metric)
	}
}
