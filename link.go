package crossnet

import (
	"sort"

	"github.com/paulmach/orb"
)

/* Links stuff */
type NetworkLinkID int

// Link is a directed road segment (or a connector with own geometry) of the link graph
type Link struct {
	geom         orb.LineString
	lanesNum     int
	lengthMeters float64
	isConnector  bool
	ID           NetworkLinkID

	// Outgoing edges. Several edges may lead to the same link through different lanes
	successors []linkSuccessor
	// Attached cross sections, always sorted by offset
	crossSections []attachedCrossSection
}

type linkSuccessor struct {
	link     *Link
	fromLane int
}

type attachedCrossSection struct {
	offset float64
	id     CrossSectionID
}

func newLink(id NetworkLinkID, geom orb.LineString, lanesNum int, isConnector bool) *Link {
	return &Link{
		geom:          copyLine(geom),
		lanesNum:      lanesNum,
		lengthMeters:  getLength(geom),
		isConnector:   isConnector,
		ID:            id,
		successors:    make([]linkSuccessor, 0),
		crossSections: make([]attachedCrossSection, 0),
	}
}

// Geom returns copy of link's polyline
func (link *Link) Geom() orb.LineString {
	return copyLine(link.geom)
}

func (link *Link) GetLanes() int {
	return link.lanesNum
}

func (link *Link) Length() float64 {
	return link.lengthMeters
}

func (link *Link) IsConnector() bool {
	return link.isConnector
}

// setSuccessors attaches precomputed successor edges. Edges are ordered by target link ID and then by lane
func (link *Link) setSuccessors(successors []linkSuccessor) {
	link.successors = make([]linkSuccessor, len(successors))
	copy(link.successors, successors)
	sort.SliceStable(link.successors, func(i, j int) bool {
		if link.successors[i].link.ID != link.successors[j].link.ID {
			return link.successors[i].link.ID < link.successors[j].link.ID
		}
		return link.successors[i].fromLane < link.successors[j].fromLane
	})
}

// Successors returns distinct successor links ordered by ID
func (link *Link) Successors() []*Link {
	result := make([]*Link, 0, len(link.successors))
	for i, succ := range link.successors {
		if i > 0 && link.successors[i-1].link.ID == succ.link.ID {
			continue
		}
		result = append(result, succ.link)
	}
	return result
}

// CrossSections returns IDs of attached cross sections ordered by offset
func (link *Link) CrossSections() []CrossSectionID {
	result := make([]CrossSectionID, len(link.crossSections))
	for i, attached := range link.crossSections {
		result[i] = attached.id
	}
	return result
}

// searchOffset returns index of the first attached cross section with offset >= given one
func (link *Link) searchOffset(offset float64) int {
	return sort.Search(len(link.crossSections), func(i int) bool {
		return link.crossSections[i].offset >= offset
	})
}

// AddCrossSection attaches cross section at given offset. Offsets are unique within the link
func (link *Link) AddCrossSection(offset float64, id CrossSectionID) error {
	if offset < 0 {
		return inconsistencyf("Negative offset %f on link %d", offset, link.ID)
	}
	idx := link.searchOffset(offset)
	if idx < len(link.crossSections) && link.crossSections[idx].offset == offset {
		return conflictf("Offset %f on link %d is already occupied by cross section %d", offset, link.ID, link.crossSections[idx].id)
	}
	link.crossSections = append(link.crossSections, attachedCrossSection{})
	copy(link.crossSections[idx+1:], link.crossSections[idx:])
	link.crossSections[idx] = attachedCrossSection{offset: offset, id: id}
	return nil
}

// RemoveCrossSection detaches cross section at given offset
func (link *Link) RemoveCrossSection(offset float64) error {
	idx := link.searchOffset(offset)
	if idx >= len(link.crossSections) || link.crossSections[idx].offset != offset {
		return notFoundf("No cross section at offset %f on link %d", offset, link.ID)
	}
	link.crossSections = append(link.crossSections[:idx], link.crossSections[idx+1:]...)
	return nil
}

// SuccessorCrossSections returns cross sections structurally downstream of the given offset.
// The next cross section on this link is returned if any. Otherwise the search continues at the beginning of every successor link.
// Each link is visited at most once per call
func (link *Link) SuccessorCrossSections(offset float64) []CrossSectionID {
	visited := make(map[NetworkLinkID]struct{})
	result := make([]CrossSectionID, 0)
	link.successorCrossSections(offset, false, visited, &result)
	return result
}

func (link *Link) successorCrossSections(offset float64, inclusive bool, visited map[NetworkLinkID]struct{}, result *[]CrossSectionID) {
	if _, ok := visited[link.ID]; ok {
		return
	}
	visited[link.ID] = struct{}{}
	idx := link.searchOffset(offset)
	if !inclusive {
		for idx < len(link.crossSections) && link.crossSections[idx].offset <= offset {
			idx++
		}
	}
	if idx < len(link.crossSections) {
		*result = append(*result, link.crossSections[idx].id)
		return
	}
	for _, succ := range link.Successors() {
		succ.successorCrossSections(0, true, visited, result)
	}
}

// hasCrossSectionsAfter reports whether there is an attached cross section strictly after given offset
func (link *Link) hasCrossSectionsAfter(offset float64) bool {
	return len(link.crossSections) > 0 && link.crossSections[len(link.crossSections)-1].offset > offset
}

// LeftmostSuccessor returns successor reached from the leftmost lane.
//
// Lanes are numbered from 1 (rightmost) to GetLanes() (leftmost), so at a divergence the successor whose edge starts at lane GetLanes() is chosen.
// Returns nil when link has no successors
func (link *Link) LeftmostSuccessor() (*Link, error) {
	successors := link.Successors()
	switch len(successors) {
	case 0:
		return nil, nil
	case 1:
		return successors[0], nil
	}
	for _, succ := range link.successors {
		if succ.fromLane == link.lanesNum {
			return succ.link, nil
		}
	}
	return nil, inconsistencyf("Link %d diverges into %d links but none of them starts at lane %d", link.ID, len(successors), link.lanesNum)
}

// ContainsPoint checks whether point lies on the link's polyline.
// Returns distance from the link start to the point along the polyline, or -1 if the point is not on the link
func (link *Link) ContainsPoint(pt orb.Point, tolerance float64) (bool, float64) {
	if len(link.geom) == 1 {
		if findDistance(link.geom[0], pt) <= tolerance {
			return true, 0
		}
		return false, -1
	}
	cl := 0.0
	for i := 1; i < len(link.geom); i++ {
		if ok, along := segmentContains(link.geom[i-1], link.geom[i], pt, tolerance); ok {
			return true, cl + along
		}
		cl += findDistance(link.geom[i-1], link.geom[i])
	}
	return false, -1
}

// PointAt returns location at given offset along the link
func (link *Link) PointAt(offset float64) orb.Point {
	return pointAtDistanceAlongLine(link.geom, offset)
}
