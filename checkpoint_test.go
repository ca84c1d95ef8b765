package lanenet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNetwork(t *testing.T) *Network {
	t.Helper()
	net := networkFromPoints(orb.Point{-73.99, 40.75}, orb.Point{-73.98, 40.75}, orb.Point{-73.98, 40.76})
	net.nodes[2].virtual = true
	forward := connect(t, net, 0, 1, 2, Attributes{
		Name:          "Broadway",
		RoadType:      "residential",
		PriorityClass: "C",
		SpeedLimit:    40,
		StreetWidth:   24,
		FromLevel:     0,
		ToLevel:       1,
		Direction:     DIRECTION_FORWARD,
		HasBikeLane:   true,
	})
	backward := connect(t, net, 1, 0, 1, Attributes{Direction: DIRECTION_REVERSE, ToLevel: -1})
	net.links[forward].oppositeLinkID = backward
	net.links[backward].oppositeLinkID = forward
	net.links[backward].wasReversed = true
	net.links[forward].originID = 42
	stub := connect(t, net, 1, 2, 1, Attributes{})
	net.links[stub].virtual = true
	net.links[stub].geom = orb.LineString{{-73.98, 40.75}, {-73.981, 40.755}, {-73.98, 40.76}}
	return net
}

func assertSameNetwork(t *testing.T, expected, actual *Network) {
	t.Helper()
	require.Equal(t, expected.NodeIDs(), actual.NodeIDs())
	require.Equal(t, expected.LinkIDs(), actual.LinkIDs())
	for _, id := range expected.NodeIDs() {
		assert.Equal(t, expected.nodes[id].geom, actual.nodes[id].geom)
		assert.Equal(t, expected.nodes[id].virtual, actual.nodes[id].virtual)
		assert.ElementsMatch(t, expected.nodes[id].incomingLinks, actual.nodes[id].incomingLinks)
		assert.ElementsMatch(t, expected.nodes[id].outcomingLinks, actual.nodes[id].outcomingLinks)
	}
	for _, id := range expected.LinkIDs() {
		want, got := expected.links[id], actual.links[id]
		assert.Equal(t, want.geom, got.geom)
		assert.Equal(t, want.attributes, got.attributes)
		assert.Equal(t, want.sourceNodeID, got.sourceNodeID)
		assert.Equal(t, want.targetNodeID, got.targetNodeID)
		assert.Equal(t, want.oppositeLinkID, got.oppositeLinkID)
		assert.Equal(t, want.originID, got.originID)
		assert.Equal(t, want.lanesNum, got.lanesNum)
		assert.Equal(t, want.virtual, got.virtual)
		assert.Equal(t, want.wasReversed, got.wasReversed)
		assert.InDelta(t, want.lengthMeters, got.lengthMeters, 1e-9)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	net := sampleNetwork(t)
	for _, name := range []string{"checkpoint.geojson", "checkpoint.geojson.bz2"} {
		t.Run(name, func(t *testing.T) {
			fname := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteCheckpoint(fname, net))
			restored, err := ReadCheckpoint(fname)
			require.NoError(t, err)
			assertSameNetwork(t, net, restored)

			// Identifiers keep growing after restore
			node := restored.addNode(orb.Point{0, 0}, false)
			assert.Equal(t, NetworkNodeID(3), node.ID)
		})
	}
}

func TestCheckpointKeepsRetiredIdentifiers(t *testing.T) {
	net := sampleNetwork(t)
	net.removeNode(2)
	require.Equal(t, 2, net.NodesNum())
	require.Equal(t, 2, net.LinksNum())

	fname := filepath.Join(t.TempDir(), "checkpoint.geojson")
	require.NoError(t, WriteCheckpoint(fname, net))
	restored, err := ReadCheckpoint(fname)
	require.NoError(t, err)
	assertSameNetwork(t, net, restored)

	node := restored.addNode(orb.Point{1, 1}, false)
	assert.Equal(t, NetworkNodeID(3), node.ID)
	linkID := connect(t, restored, 0, node.ID, 1, Attributes{})
	assert.Equal(t, NetworkLinkID(3), linkID)
}

func TestCheckpointCompressed(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.geojson")
	compressed := filepath.Join(dir, "compressed.geojson.bz2")
	net := sampleNetwork(t)
	require.NoError(t, WriteCheckpoint(plain, net))
	require.NoError(t, WriteCheckpoint(compressed, net))
	raw, err := os.ReadFile(compressed)
	require.NoError(t, err)
	assert.Equal(t, "BZh", string(raw[:3]))
}

func TestReadCheckpointErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadCheckpoint(filepath.Join(dir, "absent.geojson"))
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.geojson")
	require.NoError(t, os.WriteFile(broken, []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"kind":"node"}}]}`), 0o644))
	_, err = ReadCheckpoint(broken)
	assert.ErrorIs(t, err, ErrMissingAttribute)

	unknown := filepath.Join(dir, "unknown.geojson")
	require.NoError(t, os.WriteFile(unknown, []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"kind":"edge"}}]}`), 0o644))
	_, err = ReadCheckpoint(unknown)
	assert.Error(t, err)
}

func TestRoadsGeoJSONRoundTrip(t *testing.T) {
	roads := sampleRoads()
	fname := filepath.Join(t.TempDir(), "road_fileTest.geojson.bz2")
	require.NoError(t, WriteRoadsGeoJSON(fname, roads))
	restored, err := ReadRoadsGeoJSON(fname)
	require.NoError(t, err)
	require.Len(t, restored.Roads, len(roads.Roads))
	for i, road := range roads.Roads {
		assert.Equal(t, road, restored.Roads[i])
	}
	byID, ok := restored.Road(100001)
	require.True(t, ok)
	assert.Equal(t, 100000, byID.Left)
}
