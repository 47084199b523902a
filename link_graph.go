package crossnet

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LdDl/ch"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const (
	// DefaultProjectionTolerance is max distance (meters) between a point and a polyline for the point to be considered lying on it
	DefaultProjectionTolerance = 0.01
)

// LinkGraph owns all links of a network
type LinkGraph struct {
	links map[NetworkLinkID]*Link
	// Link IDs in ascending order. Scans over links follow this order
	order     []NetworkLinkID
	tolerance float64
	verbose   bool

	chOnce  sync.Once
	chGraph *ch.Graph
	chErr   error
}

// WithGraphTolerance sets projection tolerance (meters)
func WithGraphTolerance(tolerance float64) func(*LinkGraph) {
	return func(graph *LinkGraph) {
		graph.tolerance = tolerance
	}
}

// WithGraphVerbose enables progress output while building
func WithGraphVerbose(verbose bool) func(*LinkGraph) {
	return func(graph *LinkGraph) {
		graph.verbose = verbose
	}
}

// BuildLinkGraph creates links from raw description and resolves successors of every link
func BuildLinkGraph(raw *RawNetwork, options ...func(*LinkGraph)) (*LinkGraph, error) {
	graph := &LinkGraph{
		links:     make(map[NetworkLinkID]*Link, len(raw.Links)+len(raw.Connectors)),
		tolerance: DefaultProjectionTolerance,
	}
	for _, option := range options {
		option(graph)
	}
	if err := raw.Validate(); err != nil {
		return nil, errors.Wrap(err, "Can't build link graph")
	}

	if graph.verbose {
		fmt.Print("Preparing link graph...")
	}
	st := time.Now()

	// Group connectors by origin so every link resolves its successors in one pass
	connectorsByOrigin := make(map[NetworkLinkID][]RawConnector, len(raw.Links))
	for _, conn := range raw.Connectors {
		connectorsByOrigin[conn.FromLink] = append(connectorsByOrigin[conn.FromLink], conn)
	}

	for _, rawLink := range raw.Links {
		graph.links[rawLink.ID] = newLink(rawLink.ID, rawLink.Geom, rawLink.Lanes, false)
	}
	connectorLinks := make(map[NetworkLinkID]*Link)
	for _, conn := range raw.Connectors {
		if !conn.hasGeom() {
			continue
		}
		connLink := newLink(conn.ID, conn.Geom, 1, true)
		// A connector link leads directly to its destination
		connLink.setSuccessors([]linkSuccessor{{link: graph.links[conn.ToLink], fromLane: 1}})
		connectorLinks[conn.ID] = connLink
	}

	for _, rawLink := range raw.Links {
		link := graph.links[rawLink.ID]
		conns := connectorsByOrigin[rawLink.ID]
		successors := make([]linkSuccessor, 0, len(conns))
		for _, conn := range conns {
			target := graph.links[conn.ToLink]
			if conn.hasGeom() {
				target = connectorLinks[conn.ID]
			}
			successors = append(successors, linkSuccessor{link: target, fromLane: conn.FromLane})
		}
		link.setSuccessors(successors)
	}
	for id, connLink := range connectorLinks {
		graph.links[id] = connLink
	}

	graph.order = make([]NetworkLinkID, 0, len(graph.links))
	for id := range graph.links {
		graph.order = append(graph.order, id)
	}
	sort.Slice(graph.order, func(i, j int) bool {
		return graph.order[i] < graph.order[j]
	})

	if graph.verbose {
		fmt.Printf("Done in %v\n\tLinks: %d (connectors with geometry: %d)\n", time.Since(st), len(raw.Links), len(connectorLinks))
	}
	return graph, nil
}

// Link returns link by its ID
func (graph *LinkGraph) Link(id NetworkLinkID) (*Link, error) {
	link, ok := graph.links[id]
	if !ok {
		return nil, notFoundf("No such link %d", id)
	}
	return link, nil
}

// Links returns all links ordered by ID
func (graph *LinkGraph) Links() []*Link {
	result := make([]*Link, len(graph.order))
	for i, id := range graph.order {
		result[i] = graph.links[id]
	}
	return result
}

func (graph *LinkGraph) AddCrossSection(linkID NetworkLinkID, offset float64, csID CrossSectionID) error {
	link, err := graph.Link(linkID)
	if err != nil {
		return err
	}
	return link.AddCrossSection(offset, csID)
}

func (graph *LinkGraph) RemoveCrossSection(linkID NetworkLinkID, offset float64) error {
	link, err := graph.Link(linkID)
	if err != nil {
		return err
	}
	return link.RemoveCrossSection(offset)
}

// SuccessorCrossSections returns cross sections structurally downstream of given position
func (graph *LinkGraph) SuccessorCrossSections(linkID NetworkLinkID, offset float64) ([]CrossSectionID, error) {
	link, err := graph.Link(linkID)
	if err != nil {
		return nil, err
	}
	return link.SuccessorCrossSections(offset), nil
}

// CrossSectionsAffected returns span of links governed by a cross section placed at given position.
//
// The walk starts at the given link and moves forward while the path is unambiguous.
// It stops at (and includes) the first link carrying its own cross section, at (and includes) a diverging link, or at the end of the network
func (graph *LinkGraph) CrossSectionsAffected(linkID NetworkLinkID, offset float64) ([]*Link, error) {
	link, err := graph.Link(linkID)
	if err != nil {
		return nil, err
	}
	result := []*Link{link}
	if link.hasCrossSectionsAfter(offset) {
		return result, nil
	}
	visited := map[NetworkLinkID]struct{}{link.ID: {}}
	current := link
	for {
		successors := current.Successors()
		if len(successors) != 1 {
			break
		}
		next := successors[0]
		if _, ok := visited[next.ID]; ok {
			break
		}
		visited[next.ID] = struct{}{}
		result = append(result, next)
		if len(next.crossSections) > 0 {
			break
		}
		current = next
	}
	return result, nil
}

// ProjectPoint returns first link (in ID order) containing given point and distance from the link start to the point
func (graph *LinkGraph) ProjectPoint(pt orb.Point) (*Link, float64, error) {
	for _, id := range graph.order {
		link := graph.links[id]
		if ok, distance := link.ContainsPoint(pt, graph.tolerance); ok {
			return link, distance, nil
		}
	}
	return nil, -1, notFoundf("Point [%f, %f] is not covered by any link", pt.X(), pt.Y())
}

// MainRoute concatenates polylines and cross sections of links obtained by following leftmost successors.
// Walk starts at the link with the smallest ID when no start is provided and stops on a revisited link or on a link without successors
func (graph *LinkGraph) MainRoute(start ...NetworkLinkID) (orb.LineString, []CrossSectionID, []NetworkLinkID, error) {
	if len(graph.order) == 0 {
		return orb.LineString{}, []CrossSectionID{}, []NetworkLinkID{}, nil
	}
	startID := graph.order[0]
	if len(start) > 0 {
		startID = start[0]
	}
	current, err := graph.Link(startID)
	if err != nil {
		return nil, nil, nil, err
	}
	points := orb.LineString{}
	crossSections := []CrossSectionID{}
	links := []NetworkLinkID{}
	visited := make(map[NetworkLinkID]struct{})
	for current != nil {
		if _, ok := visited[current.ID]; ok {
			break
		}
		visited[current.ID] = struct{}{}
		points = append(points, current.geom...)
		crossSections = append(crossSections, current.CrossSections()...)
		links = append(links, current.ID)
		current, err = current.LeftmostSuccessor()
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "Can't extract main route")
		}
	}
	return points, crossSections, links, nil
}
