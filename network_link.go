package lanenet

import (
	"math"

	"github.com/paulmach/orb"
)

/* Links stuff */
type NetworkLinkID int

const (
	// Marker for absent link reference
	NO_LINK = NetworkLinkID(-1)
)

type NetworkLink struct {
	geom           orb.LineString
	attributes     Attributes
	lengthMeters   float64
	ID             NetworkLinkID
	sourceNodeID   NetworkNodeID
	targetNodeID   NetworkNodeID
	oppositeLinkID NetworkLinkID
	originID       int
	lanesNum       int
	virtual        bool
	// Link has been added as reversed copy of another one to make network strongly connected
	wasReversed bool
}

func (link *NetworkLink) clone() *NetworkLink {
	cloned := *link
	cloned.geom = link.geom.Clone()
	return &cloned
}

func (link *NetworkLink) Source() NetworkNodeID {
	return link.sourceNodeID
}

func (link *NetworkLink) Target() NetworkNodeID {
	return link.targetNodeID
}

func (link *NetworkLink) Geom() orb.LineString {
	return link.geom
}

func (link *NetworkLink) Attributes() Attributes {
	return link.attributes
}

func (link *NetworkLink) IsVirtual() bool {
	return link.virtual
}

func (link *NetworkLink) Opposite() NetworkLinkID {
	return link.oppositeLinkID
}

func (link *NetworkLink) GetLanes() int {
	return link.lanesNum
}

func (link *NetworkLink) LengthMeters() float64 {
	return link.lengthMeters
}

// lanesFromAttributes returns explicit lanes number or derives it from street width
func lanesFromAttributes(attrs Attributes, widthPerLane float64) int {
	if attrs.LanesNum > 0 {
		return attrs.LanesNum
	}
	if widthPerLane <= 0 {
		return 0
	}
	return int(math.Round(attrs.StreetWidth / widthPerLane))
}
