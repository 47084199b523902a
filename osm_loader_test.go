package crossnet

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Primary road heading east which forks into northbound and southbound branches
const forkOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="crossnet">
 <node id="1" lat="55.0" lon="37.0"/>
 <node id="2" lat="55.0" lon="37.001"/>
 <node id="3" lat="55.0" lon="37.002"/>
 <node id="4" lat="55.001" lon="37.002"/>
 <node id="5" lat="54.999" lon="37.002"/>
 <node id="6" lat="54.0" lon="36.0"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <nd ref="3"/>
  <tag k="highway" v="primary"/>
  <tag k="oneway" v="yes"/>
  <tag k="lanes" v="2"/>
 </way>
 <way id="11">
  <nd ref="3"/>
  <nd ref="4"/>
  <tag k="highway" v="secondary"/>
  <tag k="oneway" v="yes"/>
 </way>
 <way id="12">
  <nd ref="3"/>
  <nd ref="5"/>
  <tag k="highway" v="secondary"/>
  <tag k="oneway" v="yes"/>
 </way>
 <way id="13">
  <nd ref="5"/>
  <nd ref="6"/>
  <tag k="highway" v="footway"/>
 </way>
</osm>
`

func TestReadOSMNetwork(t *testing.T) {
	fname := writeFile(t, "fork.osm", forkOSM)
	network, err := ReadOSMNetwork(context.Background(), fname, nil, false)
	require.NoError(t, err)

	require.Len(t, network.Links, 3)
	assert.Equal(t, 2, network.Links[0].Lanes)
	assert.Len(t, network.Links[0].Geom, 3)
	assert.Equal(t, 2, network.Links[1].Lanes)
	require.Len(t, network.Connectors, 2)

	graph, err := BuildLinkGraph(network)
	require.NoError(t, err)
	first := mustLink(t, graph, network.Links[0].ID)
	assert.InDelta(t, getLength(network.Links[0].Geom), first.Length(), 1e-9)

	// Northbound branch is the leftmost one
	leftmost, err := first.LeftmostSuccessor()
	require.NoError(t, err)
	assert.Equal(t, network.Links[1].ID, leftmost.ID)

	_, _, links, err := graph.MainRoute()
	require.NoError(t, err)
	assert.Equal(t, []NetworkLinkID{network.Links[0].ID, network.Links[1].ID}, links)

	start := pointToGeographic(network.Links[0].Geom[0])
	assert.InDelta(t, 37.0, start.Lon(), 1e-9)
	assert.InDelta(t, 55.0, start.Lat(), 1e-9)
}

func TestReadOSMNetworkErrors(t *testing.T) {
	_, err := ReadOSMNetwork(context.Background(), writeFile(t, "fork.txt", forkOSM), nil, false)
	assert.Error(t, err)

	_, err = ReadOSMNetwork(context.Background(), "missing.osm", nil, false)
	assert.Error(t, err)
}

func TestNetworkFromOSMTwoWay(t *testing.T) {
	nodes := map[osm.NodeID]orb.Point{
		1: {0, 0},
		2: {100, 0},
		3: {200, 0},
	}
	ways := []*osmWay{
		{ID: 1, Nodes: []osm.NodeID{1, 2}, highway: "residential", lanes: 4, lanesForward: -1, lanesBackward: -1},
		{ID: 2, Nodes: []osm.NodeID{2, 3}, highway: "primary", oneway: true, isReversed: true, lanes: -1, lanesForward: -1, lanesBackward: -1},
	}
	network, err := networkFromOSM(ways, nodes)
	require.NoError(t, err)

	// Way 1 in both directions, way 2 against its node order only
	require.Len(t, network.Links, 3)
	assert.Equal(t, orb.LineString{{0, 0}, {100, 0}}, network.Links[0].Geom)
	assert.Equal(t, orb.LineString{{100, 0}, {0, 0}}, network.Links[1].Geom)
	assert.Equal(t, orb.LineString{{200, 0}, {100, 0}}, network.Links[2].Geom)
	assert.Equal(t, 2, network.Links[0].Lanes)
	assert.Equal(t, 3, network.Links[2].Lanes)

	// U-turn onto the same way is not a connector
	require.Len(t, network.Connectors, 1)
	conn := network.Connectors[0]
	assert.Equal(t, network.Links[2].ID, conn.FromLink)
	assert.Equal(t, network.Links[1].ID, conn.ToLink)
	assert.Greater(t, int(conn.ID), int(network.Links[2].ID))

	_, err = networkFromOSM([]*osmWay{{ID: 3, Nodes: []osm.NodeID{1, 42}, highway: "road"}}, nodes)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLanesFor(t *testing.T) {
	way := &osmWay{highway: "primary", lanes: 4, lanesForward: 3, lanesBackward: -1}
	assert.Equal(t, 3, way.lanesFor(true))
	assert.Equal(t, 2, way.lanesFor(false))

	way = &osmWay{highway: "primary", lanes: -1, lanesForward: -1, lanesBackward: -1}
	assert.Equal(t, 3, way.lanesFor(true))

	way = &osmWay{highway: "road", oneway: true, lanes: -1}
	assert.Equal(t, 1, way.lanesFor(true))
}

func TestParseLanes(t *testing.T) {
	assert.Equal(t, 2, parseLanes("2"))
	assert.Equal(t, 2, parseLanes(" 2;3"))
	assert.Equal(t, -1, parseLanes(""))
	assert.Equal(t, -1, parseLanes("two"))
	assert.Equal(t, -1, parseLanes("0"))
}
