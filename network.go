package lanenet

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Network is a snapshot of directed road graph.
// Identifiers are never reused: once removed, node or link identifier stays retired.
type Network struct {
	links      map[NetworkLinkID]*NetworkLink
	nodes      map[NetworkNodeID]*NetworkNode
	nextNodeID NetworkNodeID
	nextLinkID NetworkLinkID
}

// NewNetwork returns empty network
func NewNetwork() *Network {
	return &Network{
		links: make(map[NetworkLinkID]*NetworkLink),
		nodes: make(map[NetworkNodeID]*NetworkNode),
	}
}

// Clone returns deep copy of the network. Stages work on clones so the input snapshot stays untouched
func (net *Network) Clone() *Network {
	cloned := &Network{
		links:      make(map[NetworkLinkID]*NetworkLink, len(net.links)),
		nodes:      make(map[NetworkNodeID]*NetworkNode, len(net.nodes)),
		nextNodeID: net.nextNodeID,
		nextLinkID: net.nextLinkID,
	}
	for id, link := range net.links {
		cloned.links[id] = link.clone()
	}
	for id, node := range net.nodes {
		cloned.nodes[id] = node.clone()
	}
	return cloned
}

func (net *Network) String() string {
	return fmt.Sprintf("Network{nodes: %d, links: %d}", len(net.nodes), len(net.links))
}

func (net *Network) NodesNum() int {
	return len(net.nodes)
}

func (net *Network) LinksNum() int {
	return len(net.links)
}

func (net *Network) Node(id NetworkNodeID) (*NetworkNode, bool) {
	node, ok := net.nodes[id]
	return node, ok
}

func (net *Network) Link(id NetworkLinkID) (*NetworkLink, bool) {
	link, ok := net.links[id]
	return link, ok
}

// NodeIDs returns sorted node identifiers
func (net *Network) NodeIDs() []NetworkNodeID {
	return sortedKeys(net.nodes)
}

// LinkIDs returns sorted link identifiers
func (net *Network) LinkIDs() []NetworkLinkID {
	return sortedKeys(net.links)
}

// addNode creates node with the next free identifier
func (net *Network) addNode(pt orb.Point, virtual bool) *NetworkNode {
	return net.addNodeWithID(net.nextNodeID, pt, virtual)
}

func (net *Network) addNodeWithID(id NetworkNodeID, pt orb.Point, virtual bool) *NetworkNode {
	if existing, ok := net.nodes[id]; ok {
		return existing
	}
	node := &NetworkNode{
		incomingLinks:  make([]NetworkLinkID, 0),
		outcomingLinks: make([]NetworkLinkID, 0),
		ID:             id,
		geom:           pt,
		virtual:        virtual,
	}
	net.nodes[id] = node
	if id >= net.nextNodeID {
		net.nextNodeID = id + 1
	}
	return node
}

// cloneNode creates new node at the same position as given one, without any links
func (net *Network) cloneNode(id NetworkNodeID) *NetworkNode {
	node := net.nodes[id]
	return net.addNode(node.geom, node.virtual)
}

// addLink registers link in the network. Link with negative identifier gets the next free one
func (net *Network) addLink(link *NetworkLink) (NetworkLinkID, error) {
	source, ok := net.nodes[link.sourceNodeID]
	if !ok {
		return NO_LINK, errors.Errorf("Can't add link: no source node %d", link.sourceNodeID)
	}
	target, ok := net.nodes[link.targetNodeID]
	if !ok {
		return NO_LINK, errors.Errorf("Can't add link: no target node %d", link.targetNodeID)
	}
	if link.ID < 0 {
		link.ID = net.nextLinkID
	}
	if _, ok := net.links[link.ID]; ok {
		return NO_LINK, errors.Errorf("Can't add link: duplicated identifier %d", link.ID)
	}
	if link.ID >= net.nextLinkID {
		net.nextLinkID = link.ID + 1
	}
	net.links[link.ID] = link
	source.outcomingLinks = append(source.outcomingLinks, link.ID)
	target.incomingLinks = append(target.incomingLinks, link.ID)
	return link.ID, nil
}

// removeLink detaches link from its nodes. Opposite references to it are cleared
func (net *Network) removeLink(id NetworkLinkID) {
	link, ok := net.links[id]
	if !ok {
		return
	}
	if source, ok := net.nodes[link.sourceNodeID]; ok {
		source.outcomingLinks = removeLinkID(source.outcomingLinks, id)
	}
	if target, ok := net.nodes[link.targetNodeID]; ok {
		target.incomingLinks = removeLinkID(target.incomingLinks, id)
	}
	if opposite, ok := net.links[link.oppositeLinkID]; ok && opposite.oppositeLinkID == id {
		opposite.oppositeLinkID = NO_LINK
	}
	delete(net.links, id)
}

// removeNode removes node and every link incident to it
func (net *Network) removeNode(id NetworkNodeID) {
	node, ok := net.nodes[id]
	if !ok {
		return
	}
	incident := make([]NetworkLinkID, 0, len(node.incomingLinks)+len(node.outcomingLinks))
	incident = append(incident, node.incomingLinks...)
	incident = append(incident, node.outcomingLinks...)
	for _, linkID := range incident {
		net.removeLink(linkID)
	}
	delete(net.nodes, id)
}

// setLinkSource moves link start to another node. Geometry is left to the caller
func (net *Network) setLinkSource(linkID NetworkLinkID, nodeID NetworkNodeID) {
	link := net.links[linkID]
	if link.sourceNodeID == nodeID {
		return
	}
	if old, ok := net.nodes[link.sourceNodeID]; ok {
		old.outcomingLinks = removeLinkID(old.outcomingLinks, linkID)
	}
	link.sourceNodeID = nodeID
	net.nodes[nodeID].outcomingLinks = append(net.nodes[nodeID].outcomingLinks, linkID)
}

// setLinkTarget moves link end to another node. Geometry is left to the caller
func (net *Network) setLinkTarget(linkID NetworkLinkID, nodeID NetworkNodeID) {
	link := net.links[linkID]
	if link.targetNodeID == nodeID {
		return
	}
	if old, ok := net.nodes[link.targetNodeID]; ok {
		old.incomingLinks = removeLinkID(old.incomingLinks, linkID)
	}
	link.targetNodeID = nodeID
	net.nodes[nodeID].incomingLinks = append(net.nodes[nodeID].incomingLinks, linkID)
}

// outcoming returns links leaving given node ordered by identifier
func (net *Network) outcoming(id NetworkNodeID) []*NetworkLink {
	node, ok := net.nodes[id]
	if !ok {
		return nil
	}
	return net.linksByIDs(node.outcomingLinks)
}

// incoming returns links entering given node ordered by identifier
func (net *Network) incoming(id NetworkNodeID) []*NetworkLink {
	node, ok := net.nodes[id]
	if !ok {
		return nil
	}
	return net.linksByIDs(node.incomingLinks)
}

func (net *Network) linksByIDs(ids []NetworkLinkID) []*NetworkLink {
	sortedIDs := make([]NetworkLinkID, len(ids))
	copy(sortedIDs, ids)
	sort.Slice(sortedIDs, func(i, j int) bool { return sortedIDs[i] < sortedIDs[j] })
	result := make([]*NetworkLink, 0, len(sortedIDs))
	for _, linkID := range sortedIDs {
		result = append(result, net.links[linkID])
	}
	return result
}

// successors returns distinct target nodes of links leaving given node
func (net *Network) successors(id NetworkNodeID) []NetworkNodeID {
	result := []NetworkNodeID{}
	for _, link := range net.outcoming(id) {
		result = append(result, link.targetNodeID)
	}
	return uniqSorted(result)
}

// predecessors returns distinct source nodes of links entering given node
func (net *Network) predecessors(id NetworkNodeID) []NetworkNodeID {
	result := []NetworkNodeID{}
	for _, link := range net.incoming(id) {
		result = append(result, link.sourceNodeID)
	}
	return uniqSorted(result)
}

// neighbors returns distinct adjacent nodes regardless of links direction
func (net *Network) neighbors(id NetworkNodeID) []NetworkNodeID {
	return uniqSorted(append(net.predecessors(id), net.successors(id)...))
}

// findLink returns link with the lowest identifier connecting given nodes
func (net *Network) findLink(source, target NetworkNodeID) (*NetworkLink, bool) {
	for _, link := range net.outcoming(source) {
		if link.targetNodeID == target {
			return link, true
		}
	}
	return nil, false
}

// removeIsolatedNodes removes nodes without any links and returns their number
func (net *Network) removeIsolatedNodes() int {
	removed := 0
	for _, id := range net.NodeIDs() {
		node := net.nodes[id]
		if len(node.incomingLinks) == 0 && len(node.outcomingLinks) == 0 {
			delete(net.nodes, id)
			removed++
		}
	}
	return removed
}

// snapEndpoints makes link geometry start and end exactly at its nodes positions
func (net *Network) snapEndpoints(link *NetworkLink) {
	if len(link.geom) == 0 {
		return
	}
	link.geom[0] = net.nodes[link.sourceNodeID].geom
	link.geom[len(link.geom)-1] = net.nodes[link.targetNodeID].geom
}
