package crossnet

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// RawLink is plain-data description of a road segment
type RawLink struct {
	ID    NetworkLinkID
	Geom  orb.LineString
	Lanes int
}

// RawConnector is plain-data description of a transition between two links.
// A connector with a polyline of two or more points becomes a link of its own in the graph
type RawConnector struct {
	ID       NetworkLinkID
	FromLink NetworkLinkID
	FromLane int
	ToLink   NetworkLinkID
	ToLane   int
	Geom     orb.LineString
}

func (conn *RawConnector) hasGeom() bool {
	return len(conn.Geom) >= 2
}

// RawNetwork is the one-shot network description produced by a simulator adapter
type RawNetwork struct {
	Links      []RawLink
	Connectors []RawConnector
}

// Validate checks that description can be turned into a link graph
func (raw *RawNetwork) Validate() error {
	ids := make(map[NetworkLinkID]int, len(raw.Links))
	for _, link := range raw.Links {
		if _, ok := ids[link.ID]; ok {
			return errors.Wrapf(ErrGraphInconsistency, "Duplicate link ID %d", link.ID)
		}
		if len(link.Geom) == 0 {
			return errors.Wrapf(ErrGraphInconsistency, "Link %d has empty geometry", link.ID)
		}
		if link.Lanes <= 0 {
			return errors.Wrapf(ErrGraphInconsistency, "Link %d has %d lanes", link.ID, link.Lanes)
		}
		ids[link.ID] = link.Lanes
	}
	for _, conn := range raw.Connectors {
		fromLanes, ok := ids[conn.FromLink]
		if !ok {
			return errors.Wrapf(ErrNotFound, "Connector %d starts at unknown link %d", conn.ID, conn.FromLink)
		}
		if _, ok := ids[conn.ToLink]; !ok {
			return errors.Wrapf(ErrNotFound, "Connector %d ends at unknown link %d", conn.ID, conn.ToLink)
		}
		if conn.FromLane < 1 || conn.FromLane > fromLanes {
			return errors.Wrapf(ErrGraphInconsistency, "Connector %d starts at lane %d but link %d has %d lanes", conn.ID, conn.FromLane, conn.FromLink, fromLanes)
		}
	}
	// Connectors with geometry share ID space with links
	for _, conn := range raw.Connectors {
		if !conn.hasGeom() {
			continue
		}
		if _, ok := ids[conn.ID]; ok {
			return errors.Wrapf(ErrGraphInconsistency, "Connector ID %d clashes with another link", conn.ID)
		}
		ids[conn.ID] = 1
	}
	return nil
}
