package lanenet

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reductionConfig(trim bool) *Config {
	cfg := planarConfig()
	cfg.Reduction.TrimDeadEnds = trim
	return cfg
}

func TestInteriorKind(t *testing.T) {
	net := networkFromPoints(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{3, 0})
	connect(t, net, 0, 1, 1, Attributes{})
	connect(t, net, 1, 2, 1, Attributes{})
	connect(t, net, 2, 1, 1, Attributes{})
	connect(t, net, 2, 3, 1, Attributes{})
	connect(t, net, 3, 2, 1, Attributes{})
	assert.Equal(t, CHAIN_NONE, net.interiorKind(0))
	assert.Equal(t, CHAIN_NONE, net.interiorKind(1))
	assert.Equal(t, CHAIN_PAIRED, net.interiorKind(2))
	assert.Equal(t, CHAIN_NONE, net.interiorKind(3))
	assert.True(t, net.isDeadEnd(0))
	assert.True(t, net.isDeadEnd(3))
	assert.False(t, net.isDeadEnd(1))
}

func TestReduceSimpleChain(t *testing.T) {
	net := networkFromPoints(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{4, 0})
	connect(t, net, 0, 1, 3, Attributes{StreetWidth: 10, SpeedLimit: 10, FromLevel: -1})
	connect(t, net, 1, 2, 1, Attributes{StreetWidth: 6, SpeedLimit: 20})
	connect(t, net, 2, 3, 2, Attributes{StreetWidth: 8, SpeedLimit: 40, ToLevel: 1})

	result, err := ReduceChains(net, reductionConfig(false), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.NodesNum())
	require.Equal(t, 1, result.LinksNum())
	merged, ok := result.findLink(0, 3)
	require.True(t, ok)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {2, 0}, {4, 0}}, merged.Geom())
	assert.InDelta(t, 4.0, merged.LengthMeters(), 1e-9)
	assert.Equal(t, 1, merged.GetLanes())
	assert.Equal(t, 6.0, merged.Attributes().StreetWidth)
	assert.InDelta(t, 27.5, merged.Attributes().SpeedLimit, 1e-9)
	assert.Equal(t, -1, merged.Attributes().FromLevel)
	assert.Equal(t, 1, merged.Attributes().ToLevel)
	// Merged link gets a fresh identifier
	assert.Equal(t, NetworkLinkID(3), merged.ID)
	assert.Equal(t, 3, net.LinksNum())
}

func TestReducePairedChain(t *testing.T) {
	net := NewNetwork()
	twoWayPath(t, net, 0, 4, 0)

	result, err := ReduceChains(net, reductionConfig(false), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.NodesNum())
	require.Equal(t, 2, result.LinksNum())
	forward, ok := result.findLink(0, 3)
	require.True(t, ok)
	backward, ok := result.findLink(3, 0)
	require.True(t, ok)
	assert.Equal(t, backward.ID, forward.Opposite())
	assert.Equal(t, forward.ID, backward.Opposite())
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, forward.Geom())
	assert.Equal(t, orb.LineString{{3, 0}, {2, 0}, {1, 0}, {0, 0}}, backward.Geom())

	// Trimming dead ends leaves nothing of a lonely street
	_, err = ReduceChains(net, reductionConfig(true), nil)
	assert.ErrorIs(t, err, ErrEmptyNetwork)
}

func TestReduceChainsKeepsClosedRing(t *testing.T) {
	net := networkFromPoints(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{1, 1})
	connect(t, net, 0, 1, 1, Attributes{})
	connect(t, net, 1, 2, 1, Attributes{})
	connect(t, net, 2, 0, 1, Attributes{})
	result, err := ReduceChains(net, reductionConfig(true), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.NodesNum())
	assert.Equal(t, 3, result.LinksNum())
}

func TestReduceChainsFixedPoint(t *testing.T) {
	// Square block with two-way sides, a one-way chain between opposite corners and a spur
	net := networkFromPoints(
		orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{10, 10}, orb.Point{0, 10},
		orb.Point{15, 0}, orb.Point{5, 5}, orb.Point{7, 7},
	)
	corners := []NetworkNodeID{0, 1, 2, 3}
	for i, source := range corners {
		target := corners[(i+1)%len(corners)]
		connect(t, net, source, target, 1, Attributes{})
		connect(t, net, target, source, 1, Attributes{})
	}
	connect(t, net, 0, 5, 1, Attributes{})
	connect(t, net, 5, 6, 1, Attributes{})
	connect(t, net, 6, 2, 1, Attributes{})
	connect(t, net, 1, 4, 1, Attributes{})
	connect(t, net, 4, 1, 1, Attributes{})

	cfg := reductionConfig(false)
	first, err := ReduceChains(net, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []NetworkNodeID{0, 1, 2, 4}, first.NodeIDs())
	assert.Equal(t, 9, first.LinksNum())

	second, err := ReduceChains(first, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, first.NodeIDs(), second.NodeIDs())
	assert.Equal(t, first.LinkIDs(), second.LinkIDs())
}

func TestReduceChainsTrimsSpur(t *testing.T) {
	net := networkFromPoints(orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{5, 5}, orb.Point{20, 0})
	for _, pair := range [][2]NetworkNodeID{{0, 1}, {1, 2}, {2, 0}, {1, 3}} {
		connect(t, net, pair[0], pair[1], 1, Attributes{})
		connect(t, net, pair[1], pair[0], 1, Attributes{})
	}
	result, err := ReduceChains(net, reductionConfig(true), nil)
	require.NoError(t, err)
	assert.Equal(t, []NetworkNodeID{0, 1, 2}, result.NodeIDs())
	assert.Equal(t, 6, result.LinksNum())
}

func TestReduceChainsIterationsBound(t *testing.T) {
	net := NewNetwork()
	twoWayPath(t, net, 0, 6, 0)
	cfg := reductionConfig(false)
	cfg.Reduction.MaxIterations = 1
	result, err := ReduceChains(net, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.LinksNum())
}
