package crossnet

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// twoLinkNetwork: link 1 (3 points, 2 lanes) -> link 2 (2 points) via connector from lane 2
func twoLinkNetwork() *RawNetwork {
	return &RawNetwork{
		Links: []RawLink{
			{ID: 1, Geom: orb.LineString{{0, 0}, {50, 0}, {100, 0}}, Lanes: 2},
			{ID: 2, Geom: orb.LineString{{100, 0}, {200, 0}}, Lanes: 1},
		},
		Connectors: []RawConnector{
			{ID: 100, FromLink: 1, FromLane: 2, ToLink: 2, ToLane: 1},
		},
	}
}

// chainNetwork: 1 -> 2 -> 3, 100 meters each, single lane
func chainNetwork() *RawNetwork {
	return &RawNetwork{
		Links: []RawLink{
			{ID: 1, Geom: orb.LineString{{0, 0}, {100, 0}}, Lanes: 1},
			{ID: 2, Geom: orb.LineString{{100, 0}, {200, 0}}, Lanes: 1},
			{ID: 3, Geom: orb.LineString{{200, 0}, {300, 0}}, Lanes: 1},
		},
		Connectors: []RawConnector{
			{ID: 100, FromLink: 1, FromLane: 1, ToLink: 2, ToLane: 1},
			{ID: 101, FromLink: 2, FromLane: 1, ToLink: 3, ToLane: 1},
		},
	}
}

// cycleNetwork: 1 -> 2 -> 3 -> 1
func cycleNetwork() *RawNetwork {
	return &RawNetwork{
		Links: []RawLink{
			{ID: 1, Geom: orb.LineString{{0, 0}, {100, 0}}, Lanes: 1},
			{ID: 2, Geom: orb.LineString{{100, 0}, {100, 100}}, Lanes: 1},
			{ID: 3, Geom: orb.LineString{{100, 100}, {0, 0}}, Lanes: 1},
		},
		Connectors: []RawConnector{
			{ID: 100, FromLink: 1, FromLane: 1, ToLink: 2, ToLane: 1},
			{ID: 101, FromLink: 2, FromLane: 1, ToLink: 3, ToLane: 1},
			{ID: 102, FromLink: 3, FromLane: 1, ToLink: 1, ToLane: 1},
		},
	}
}

// diamondNetwork: 1 diverges into 2 (from lane 1) and 3 (from lane 2), both merge into 4
func diamondNetwork() *RawNetwork {
	return &RawNetwork{
		Links: []RawLink{
			{ID: 1, Geom: orb.LineString{{0, 0}, {10, 0}}, Lanes: 2},
			{ID: 2, Geom: orb.LineString{{10, 0}, {20, -10}, {30, 0}}, Lanes: 1},
			{ID: 3, Geom: orb.LineString{{10, 0}, {20, 10}, {30, 0}}, Lanes: 1},
			{ID: 4, Geom: orb.LineString{{30, 0}, {40, 0}}, Lanes: 2},
		},
		Connectors: []RawConnector{
			{ID: 100, FromLink: 1, FromLane: 1, ToLink: 2, ToLane: 1},
			{ID: 101, FromLink: 1, FromLane: 2, ToLink: 3, ToLane: 1},
			{ID: 102, FromLink: 2, FromLane: 1, ToLink: 4, ToLane: 1},
			{ID: 103, FromLink: 3, FromLane: 1, ToLink: 4, ToLane: 2},
		},
	}
}

func mustGraph(t *testing.T, raw *RawNetwork) *LinkGraph {
	t.Helper()
	graph, err := BuildLinkGraph(raw)
	require.NoError(t, err)
	return graph
}

func mustLink(t *testing.T, graph *LinkGraph, id NetworkLinkID) *Link {
	t.Helper()
	link, err := graph.Link(id)
	require.NoError(t, err)
	return link
}

func linkIDs(links []*Link) []NetworkLinkID {
	ids := make([]NetworkLinkID, len(links))
	for i, link := range links {
		ids[i] = link.ID
	}
	return ids
}

// faultySimulator fails selected operations. Removal fails for removeOnly ID (or for any ID when it is zero)
type faultySimulator struct {
	*MemorySimulator
	createErr  error
	removeErr  error
	removeOnly CrossSectionID
	moveErr    error
}

func (sim *faultySimulator) CreateCrossSection(ctx context.Context, location orb.Point, csType CrossSectionType) (CrossSection, error) {
	if sim.createErr != nil {
		return CrossSection{}, sim.createErr
	}
	return sim.MemorySimulator.CreateCrossSection(ctx, location, csType)
}

func (sim *faultySimulator) RemoveCrossSection(ctx context.Context, id CrossSectionID) error {
	if sim.removeErr != nil && (sim.removeOnly == 0 || sim.removeOnly == id) {
		return sim.removeErr
	}
	return sim.MemorySimulator.RemoveCrossSection(ctx, id)
}

func (sim *faultySimulator) MoveCrossSection(ctx context.Context, id CrossSectionID, location orb.Point) error {
	if sim.moveErr != nil {
		return sim.moveErr
	}
	return sim.MemorySimulator.MoveCrossSection(ctx, id, location)
}

// memoryStore is MetadataStore which may hold loads until released
type memoryStore struct {
	sync.Mutex
	data    map[CrossSectionID]Metadata
	release chan struct{}
}

func newMemoryStore() *memoryStore {
	release := make(chan struct{})
	close(release)
	return &memoryStore{data: make(map[CrossSectionID]Metadata), release: release}
}

func (store *memoryStore) LoadMetadata(ctx context.Context, id CrossSectionID) (Metadata, error) {
	select {
	case <-store.release:
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	}
	store.Lock()
	defer store.Unlock()
	md, ok := store.data[id]
	if !ok {
		return Metadata{}, notFoundf("No metadata for cross section %d", id)
	}
	return md, nil
}

func (store *memoryStore) SaveMetadata(ctx context.Context, id CrossSectionID, md Metadata) error {
	store.Lock()
	defer store.Unlock()
	store.data[id] = md
	return nil
}

func (store *memoryStore) DeleteMetadata(ctx context.Context, id CrossSectionID) error {
	store.Lock()
	defer store.Unlock()
	delete(store.data, id)
	return nil
}
