package lanenet

import (
	"github.com/paulmach/orb"
)

/* Nodes stuff */

type NetworkNodeID int

type NetworkNode struct {
	incomingLinks  []NetworkLinkID
	outcomingLinks []NetworkLinkID
	ID             NetworkNodeID
	geom           orb.Point
	virtual        bool
}

func (node *NetworkNode) clone() *NetworkNode {
	cloned := NetworkNode{
		incomingLinks:  make([]NetworkLinkID, len(node.incomingLinks)),
		outcomingLinks: make([]NetworkLinkID, len(node.outcomingLinks)),
		ID:             node.ID,
		geom:           node.geom,
		virtual:        node.virtual,
	}
	copy(cloned.incomingLinks, node.incomingLinks)
	copy(cloned.outcomingLinks, node.outcomingLinks)
	return &cloned
}

// Geom returns node position
func (node *NetworkNode) Geom() orb.Point {
	return node.geom
}

// IsVirtual returns true for nodes inserted by degree normalization
func (node *NetworkNode) IsVirtual() bool {
	return node.virtual
}

// InDegree returns number of incoming links
func (node *NetworkNode) InDegree() int {
	return len(node.incomingLinks)
}

// OutDegree returns number of outcoming links
func (node *NetworkNode) OutDegree() int {
	return len(node.outcomingLinks)
}

func removeLinkID(ids []NetworkLinkID, id NetworkLinkID) []NetworkLinkID {
	for i := range ids {
		if ids[i] == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
