package crossnet

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Route is the primary path through the network
type Route struct {
	Points        orb.LineString
	CrossSections []CrossSectionID
	Links         []NetworkLinkID
}

// RouteExtractor follows leftmost branches of a link graph
type RouteExtractor struct {
	graph    *LinkGraph
	start    NetworkLinkID
	hasStart bool
}

func NewRouteExtractor(graph *LinkGraph) *RouteExtractor {
	return &RouteExtractor{graph: graph}
}

// From fixes the link the route starts at
func (extractor *RouteExtractor) From(start NetworkLinkID) *RouteExtractor {
	return &RouteExtractor{graph: extractor.graph, start: start, hasStart: true}
}

// Extract walks the graph. Result is deterministic for a fixed graph and start link
func (extractor *RouteExtractor) Extract() (*Route, error) {
	var start []NetworkLinkID
	if extractor.hasStart {
		start = append(start, extractor.start)
	}
	points, crossSections, links, err := extractor.graph.MainRoute(start...)
	if err != nil {
		return nil, err
	}
	return &Route{
		Points:        points,
		CrossSections: crossSections,
		Links:         links,
	}, nil
}

// Geographic returns copy of the route with points converted from EPSG:3857 to WGS84
func (route *Route) Geographic() *Route {
	return &Route{
		Points:        lineToGeographic(route.Points),
		CrossSections: route.CrossSections,
		Links:         route.Links,
	}
}

func (route *Route) String() string {
	return fmt.Sprintf("Route: %d links, %d points, %d cross sections", len(route.Links), len(route.Points), len(route.CrossSections))
}
