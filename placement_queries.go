package crossnet

import (
	"github.com/pkg/errors"
)

// positioned returns graph and position of a graph-backed cross section
func (svc *PlacementService) positioned(id CrossSectionID) (*LinkGraph, *CrossSection, error) {
	graph, err := svc.Graph()
	if err != nil {
		return nil, nil, err
	}
	cs, err := svc.CrossSection(id)
	if err != nil {
		return nil, nil, err
	}
	if !cs.onLink {
		return nil, nil, notFoundf("Cross section %d is not placed on any link", id)
	}
	return graph, cs, nil
}

// GetRoute returns main route of the network: polyline and ordered cross sections met along it
func (svc *PlacementService) GetRoute() (*Route, error) {
	graph, err := svc.Graph()
	if err != nil {
		return nil, err
	}
	extractor := NewRouteExtractor(graph)
	if svc.hasRouteStart {
		extractor = extractor.From(svc.routeStart)
	}
	return extractor.Extract()
}

// GetSuccessors returns cross sections structurally downstream of the given one
func (svc *PlacementService) GetSuccessors(id CrossSectionID) ([]CrossSectionID, error) {
	graph, cs, err := svc.positioned(id)
	if err != nil {
		return nil, err
	}
	return graph.SuccessorCrossSections(cs.LinkID, cs.Offset)
}

// AffectedLinks returns span of road governed by the given cross section
func (svc *PlacementService) AffectedLinks(id CrossSectionID) ([]*Link, error) {
	graph, cs, err := svc.positioned(id)
	if err != nil {
		return nil, err
	}
	return graph.CrossSectionsAffected(cs.LinkID, cs.Offset)
}

// Distance returns network distance (meters along links) from one cross section to another
func (svc *PlacementService) Distance(from, to CrossSectionID) (float64, error) {
	graph, source, err := svc.positioned(from)
	if err != nil {
		return -1, err
	}
	_, target, err := svc.positioned(to)
	if err != nil {
		return -1, err
	}
	dist, err := graph.NetworkDistance(source.LinkID, source.Offset, target.LinkID, target.Offset)
	if err != nil {
		return -1, errors.Wrapf(err, "Can't evaluate distance between cross sections %d and %d", from, to)
	}
	return dist, nil
}
