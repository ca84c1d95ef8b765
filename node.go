package lanenet

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// osmNode is an OSM node referenced by drivable ways
type osmNode struct {
	ID       osm.NodeID
	geom     orb.Point
	useCount int
}
