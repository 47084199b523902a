package crossnet

import (
	"math"

	"github.com/LdDl/ch"
	"github.com/pkg/errors"
)

// prepareContraction builds contraction hierarchies over links once: vertices are links, edge u->v weights length of u
func (graph *LinkGraph) prepareContraction() (*ch.Graph, error) {
	graph.chOnce.Do(func() {
		chGraph := &ch.Graph{}
		for _, id := range graph.order {
			err := chGraph.CreateVertex(int64(id))
			if err != nil {
				graph.chErr = errors.Wrapf(err, "Can not create vertex for link %d", id)
				return
			}
		}
		for _, id := range graph.order {
			link := graph.links[id]
			for _, succ := range link.Successors() {
				err := chGraph.AddEdge(int64(link.ID), int64(succ.ID), link.lengthMeters)
				if err != nil {
					graph.chErr = errors.Wrapf(err, "Can not wrap links %d and %d as edge", link.ID, succ.ID)
					return
				}
			}
		}
		chGraph.PrepareContractionHierarchies()
		graph.chGraph = chGraph
	})
	return graph.chGraph, graph.chErr
}

// NetworkDistance returns distance (meters along links) from one position to another.
// Returns error matching ErrNotFound when the target position is unreachable
func (graph *LinkGraph) NetworkDistance(fromLinkID NetworkLinkID, fromOffset float64, toLinkID NetworkLinkID, toOffset float64) (float64, error) {
	fromLink, err := graph.Link(fromLinkID)
	if err != nil {
		return -1, err
	}
	if _, err := graph.Link(toLinkID); err != nil {
		return -1, err
	}
	if fromLinkID == toLinkID && toOffset >= fromOffset {
		return toOffset - fromOffset, nil
	}
	chGraph, err := graph.prepareContraction()
	if err != nil {
		return -1, errors.Wrap(err, "Can't prepare contraction hierarchies")
	}
	best := math.Inf(1)
	for _, succ := range fromLink.Successors() {
		cost := 0.0
		if succ.ID != toLinkID {
			var path []int64
			cost, path = chGraph.ShortestPath(int64(succ.ID), int64(toLinkID))
			if cost < 0 || len(path) == 0 {
				continue
			}
		}
		if total := fromLink.lengthMeters + cost; total < best {
			best = total
		}
	}
	if math.IsInf(best, 1) {
		return -1, notFoundf("Link %d is not reachable from link %d", toLinkID, fromLinkID)
	}
	return best - fromOffset + toOffset, nil
}
