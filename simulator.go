package crossnet

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Simulator is the flat backing store of cross sections
type Simulator interface {
	CreateCrossSection(ctx context.Context, location orb.Point, csType CrossSectionType) (CrossSection, error)
	RemoveCrossSection(ctx context.Context, id CrossSectionID) error
	MoveCrossSection(ctx context.Context, id CrossSectionID, location orb.Point) error
	// ListCrossSections returns simulator's cross sections in its own order
	ListCrossSections(ctx context.Context) ([]CrossSection, error)
}

// TopologySimulator is a simulator which exposes its road network
type TopologySimulator interface {
	Simulator
	Network(ctx context.Context) (*RawNetwork, error)
}

// MemorySimulator is in-memory flat simulator
type MemorySimulator struct {
	sync.Mutex
	crossSections []CrossSection
	nextID        CrossSectionID
	defaultLanes  int
}

func NewMemorySimulator() *MemorySimulator {
	return &MemorySimulator{
		crossSections: make([]CrossSection, 0),
		nextID:        1,
		defaultLanes:  1,
	}
}

func (sim *MemorySimulator) CreateCrossSection(ctx context.Context, location orb.Point, csType CrossSectionType) (CrossSection, error) {
	return sim.create(ctx, location, csType, sim.defaultLanes)
}

func (sim *MemorySimulator) create(ctx context.Context, location orb.Point, csType CrossSectionType, lanes int) (CrossSection, error) {
	if err := ctx.Err(); err != nil {
		return CrossSection{}, err
	}
	if csType == CROSS_SECTION_UNDEFINED {
		return CrossSection{}, errors.New("Undefined cross section type")
	}
	sim.Lock()
	defer sim.Unlock()
	cs := CrossSection{
		ID:       sim.nextID,
		Type:     csType,
		Location: location,
		Lanes:    lanes,
	}
	sim.nextID++
	sim.crossSections = append(sim.crossSections, cs)
	return cs, nil
}

func (sim *MemorySimulator) find(id CrossSectionID) int {
	for i := range sim.crossSections {
		if sim.crossSections[i].ID == id {
			return i
		}
	}
	return -1
}

func (sim *MemorySimulator) RemoveCrossSection(ctx context.Context, id CrossSectionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sim.Lock()
	defer sim.Unlock()
	idx := sim.find(id)
	if idx < 0 {
		return notFoundf("No such cross section %d", id)
	}
	sim.crossSections = append(sim.crossSections[:idx], sim.crossSections[idx+1:]...)
	return nil
}

func (sim *MemorySimulator) MoveCrossSection(ctx context.Context, id CrossSectionID, location orb.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sim.Lock()
	defer sim.Unlock()
	idx := sim.find(id)
	if idx < 0 {
		return notFoundf("No such cross section %d", id)
	}
	sim.crossSections[idx].Location = location
	return nil
}

func (sim *MemorySimulator) ListCrossSections(ctx context.Context) ([]CrossSection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sim.Lock()
	defer sim.Unlock()
	result := make([]CrossSection, len(sim.crossSections))
	copy(result, sim.crossSections)
	return result, nil
}

// MemoryTopologySimulator is in-memory simulator holding a road network.
// Cross sections can be placed only on the network; lane count is taken from the link they are placed on
type MemoryTopologySimulator struct {
	*MemorySimulator
	network *RawNetwork
	graph   *LinkGraph
}

func NewMemoryTopologySimulator(network *RawNetwork) (*MemoryTopologySimulator, error) {
	graph, err := BuildLinkGraph(network)
	if err != nil {
		return nil, err
	}
	return &MemoryTopologySimulator{
		MemorySimulator: NewMemorySimulator(),
		network:         network,
		graph:           graph,
	}, nil
}

func (sim *MemoryTopologySimulator) Network(ctx context.Context) (*RawNetwork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sim.network, nil
}

func (sim *MemoryTopologySimulator) CreateCrossSection(ctx context.Context, location orb.Point, csType CrossSectionType) (CrossSection, error) {
	link, _, err := sim.graph.ProjectPoint(location)
	if err != nil {
		return CrossSection{}, err
	}
	return sim.create(ctx, location, csType, link.GetLanes())
}

func (sim *MemoryTopologySimulator) MoveCrossSection(ctx context.Context, id CrossSectionID, location orb.Point) error {
	if _, _, err := sim.graph.ProjectPoint(location); err != nil {
		return err
	}
	return sim.MemorySimulator.MoveCrossSection(ctx, id, location)
}
