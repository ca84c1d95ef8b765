package lanenet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaneIDs(t *testing.T) {
	assert.Equal(t, []int{1000001, 1000002, 1000003}, laneIDs(100000, 3))
	assert.Empty(t, laneIDs(100000, 0))
}

func TestBuildRoads(t *testing.T) {
	net := crossroad(t)
	net.links[0].oppositeLinkID = 4
	net.links[4].oppositeLinkID = 0

	roads, err := BuildRoads(net, planarConfig(), nil)
	require.NoError(t, err)
	require.Len(t, roads.Roads, 5)
	assert.Equal(t, 3, roads.MaxLanes())

	approach, ok := roads.Road(100000)
	require.True(t, ok)
	assert.Equal(t, NetworkLinkID(0), approach.SourceLink)
	assert.Equal(t, 2, approach.LanesNum)
	assert.Equal(t, "street", approach.RoadType)
	assert.Equal(t, 100004, approach.OppositeID)
	assert.Equal(t, NetworkNodeID(0), approach.FromNode)
	assert.Equal(t, NetworkNodeID(1), approach.ToNode)
	assert.Equal(t, 100001, approach.Through)
	assert.Equal(t, 100002, approach.Left)
	assert.Equal(t, 100003, approach.Right)
	assert.Equal(t, 100001, approach.Neighbor(MOVEMENT_THRU))
	assert.Equal(t, 0, approach.Neighbor(MOVEMENT_U_TURN))
	assert.Equal(t, []int{1000001, 1000002}, approach.Lanes)
	assert.InDelta(t, 1.0, approach.Length, 1e-9)

	// Link without lanes gets the minimal number
	back, ok := roads.Road(100004)
	require.True(t, ok)
	assert.Equal(t, 1, back.LanesNum)
	assert.Equal(t, 0, back.Through)
	assert.Equal(t, 100000, back.OppositeID)

	_, err = BuildRoads(NewNetwork(), planarConfig(), nil)
	assert.ErrorIs(t, err, ErrEmptyNetwork)
}

func TestBuildRoadsAmbiguous(t *testing.T) {
	net := crossroad(t)
	net.addNodeWithID(5, orb.Point{1, 1}, false)
	connect(t, net, 1, 5, 1, Attributes{})
	_, err := BuildRoads(net, planarConfig(), nil)
	assert.ErrorIs(t, err, ErrAmbiguousIntersection)
}

func TestExpandRoads(t *testing.T) {
	roads, err := BuildRoads(crossroad(t), planarConfig(), nil)
	require.NoError(t, err)
	edges := expandRoads(roads)
	require.Len(t, edges, 3)
	assert.Equal(t, ExpandedEdge{ID: 0, Source: 100000, Target: 100002, Movement: MOVEMENT_LEFT, CostMeters: 1}, edges[0])
	assert.Equal(t, MOVEMENT_THRU, edges[1].Movement)
	assert.Equal(t, 100001, edges[1].Target)
	assert.Equal(t, MOVEMENT_RIGHT, edges[2].Movement)
	assert.Equal(t, 100003, edges[2].Target)

	var buf bytes.Buffer
	require.NoError(t, writeExpandedEdges(&buf, edges))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "from_vertex_id;to_vertex_id;weight;movement;edge_id", lines[0])
	assert.Equal(t, "100000;100002;1.000000;left;0", lines[1])
}
