package crossnet

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkCrossSections(t *testing.T) {
	link := newLink(1, orb.LineString{{0, 0}, {100, 0}}, 1, false)
	assert.Equal(t, 100.0, link.Length())

	require.NoError(t, link.AddCrossSection(30, 3))
	require.NoError(t, link.AddCrossSection(10, 1))
	require.NoError(t, link.AddCrossSection(20, 2))
	assert.Equal(t, []CrossSectionID{1, 2, 3}, link.CrossSections())

	err := link.AddCrossSection(20, 4)
	assert.True(t, errors.Is(err, ErrCreationConflict), err)
	assert.Equal(t, []CrossSectionID{1, 2, 3}, link.CrossSections())

	err = link.AddCrossSection(-1, 5)
	assert.True(t, errors.Is(err, ErrGraphInconsistency), err)

	require.NoError(t, link.RemoveCrossSection(20))
	assert.Equal(t, []CrossSectionID{1, 3}, link.CrossSections())

	err = link.RemoveCrossSection(20)
	assert.True(t, errors.Is(err, ErrNotFound), err)
}

func TestLinkContainsPoint(t *testing.T) {
	link := newLink(1, orb.LineString{{0, 0}, {50, 0}, {100, 0}}, 1, false)

	ok, offset := link.ContainsPoint(orb.Point{75, 0}, DefaultProjectionTolerance)
	assert.True(t, ok)
	assert.InDelta(t, 75.0, offset, 1e-9)

	ok, offset = link.ContainsPoint(orb.Point{50, 0}, DefaultProjectionTolerance)
	assert.True(t, ok)
	assert.InDelta(t, 50.0, offset, 1e-9)

	ok, offset = link.ContainsPoint(orb.Point{75, 1}, DefaultProjectionTolerance)
	assert.False(t, ok)
	assert.Equal(t, -1.0, offset)

	// Slightly off the polyline but within tolerance
	ok, offset = link.ContainsPoint(orb.Point{75, 0.005}, DefaultProjectionTolerance)
	assert.True(t, ok)
	assert.InDelta(t, 75.0, offset, 1e-9)

	diagonal := newLink(2, orb.LineString{{0, 0}, {3, 4}}, 1, false)
	ok, offset = diagonal.ContainsPoint(orb.Point{1.5, 2}, DefaultProjectionTolerance)
	assert.True(t, ok)
	assert.InDelta(t, 2.5, offset, 1e-9)

	assert.Equal(t, orb.Point{25, 0}, link.PointAt(25))
}

func TestLinkGeomIsCopied(t *testing.T) {
	geom := orb.LineString{{0, 0}, {10, 0}}
	link := newLink(1, geom, 1, false)
	geom[1] = orb.Point{20, 0}
	assert.Equal(t, orb.Point{10, 0}, link.Geom()[1])

	copied := link.Geom()
	copied[0] = orb.Point{-5, 0}
	assert.Equal(t, orb.Point{0, 0}, link.Geom()[0])
}

func TestLeftmostSuccessor(t *testing.T) {
	graph := mustGraph(t, diamondNetwork())

	first := mustLink(t, graph, 1)
	assert.Equal(t, []NetworkLinkID{2, 3}, linkIDs(first.Successors()))
	leftmost, err := first.LeftmostSuccessor()
	require.NoError(t, err)
	assert.Equal(t, NetworkLinkID(3), leftmost.ID)

	// Single successor is leftmost regardless of lane
	leftmost, err = mustLink(t, graph, 2).LeftmostSuccessor()
	require.NoError(t, err)
	assert.Equal(t, NetworkLinkID(4), leftmost.ID)

	leftmost, err = mustLink(t, graph, 4).LeftmostSuccessor()
	require.NoError(t, err)
	assert.Nil(t, leftmost)
}

func TestLeftmostSuccessorInconsistent(t *testing.T) {
	raw := diamondNetwork()
	// Three lanes but divergence is fed by lanes 1 and 2 only
	raw.Links[0].Lanes = 3
	graph := mustGraph(t, raw)

	_, err := mustLink(t, graph, 1).LeftmostSuccessor()
	assert.True(t, errors.Is(err, ErrGraphInconsistency), err)
}

func TestSuccessorsAreDistinct(t *testing.T) {
	raw := twoLinkNetwork()
	raw.Connectors = append(raw.Connectors, RawConnector{ID: 101, FromLink: 1, FromLane: 1, ToLink: 2, ToLane: 1})
	graph := mustGraph(t, raw)

	first := mustLink(t, graph, 1)
	assert.Equal(t, []NetworkLinkID{2}, linkIDs(first.Successors()))
	leftmost, err := first.LeftmostSuccessor()
	require.NoError(t, err)
	assert.Equal(t, NetworkLinkID(2), leftmost.ID)
}

func TestSuccessorCrossSections(t *testing.T) {
	t.Run("same link", func(t *testing.T) {
		graph := mustGraph(t, chainNetwork())
		first := mustLink(t, graph, 1)
		require.NoError(t, first.AddCrossSection(10, 1))
		require.NoError(t, first.AddCrossSection(50, 2))
		require.NoError(t, mustLink(t, graph, 2).AddCrossSection(0, 3))

		assert.Equal(t, []CrossSectionID{2}, first.SuccessorCrossSections(10))
		assert.Equal(t, []CrossSectionID{1}, first.SuccessorCrossSections(5))
		// Successor link is searched from its very start
		assert.Equal(t, []CrossSectionID{3}, first.SuccessorCrossSections(50))
	})
	t.Run("skips empty links", func(t *testing.T) {
		graph := mustGraph(t, chainNetwork())
		require.NoError(t, mustLink(t, graph, 1).AddCrossSection(10, 1))
		require.NoError(t, mustLink(t, graph, 3).AddCrossSection(40, 2))

		ids, err := graph.SuccessorCrossSections(1, 10)
		require.NoError(t, err)
		assert.Equal(t, []CrossSectionID{2}, ids)

		ids, err = graph.SuccessorCrossSections(3, 40)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
	t.Run("divergence", func(t *testing.T) {
		graph := mustGraph(t, diamondNetwork())
		require.NoError(t, mustLink(t, graph, 1).AddCrossSection(0, 1))
		require.NoError(t, mustLink(t, graph, 3).AddCrossSection(5, 3))
		require.NoError(t, mustLink(t, graph, 2).AddCrossSection(5, 2))

		ids, err := graph.SuccessorCrossSections(1, 0)
		require.NoError(t, err)
		assert.Equal(t, []CrossSectionID{2, 3}, ids)
	})
	t.Run("diamond visits merge link once", func(t *testing.T) {
		graph := mustGraph(t, diamondNetwork())
		require.NoError(t, mustLink(t, graph, 1).AddCrossSection(0, 1))
		require.NoError(t, mustLink(t, graph, 4).AddCrossSection(5, 4))

		ids, err := graph.SuccessorCrossSections(1, 0)
		require.NoError(t, err)
		assert.Equal(t, []CrossSectionID{4}, ids)
	})
	t.Run("cycle terminates", func(t *testing.T) {
		graph := mustGraph(t, cycleNetwork())
		require.NoError(t, mustLink(t, graph, 1).AddCrossSection(50, 1))

		ids, err := graph.SuccessorCrossSections(1, 50)
		require.NoError(t, err)
		assert.Empty(t, ids)

		require.NoError(t, mustLink(t, graph, 3).AddCrossSection(10, 2))
		ids, err = graph.SuccessorCrossSections(1, 50)
		require.NoError(t, err)
		assert.Equal(t, []CrossSectionID{2}, ids)
	})
}
