package crossnet

import (
	"context"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type ChangeKind uint16

const (
	CHANGE_ADDED = ChangeKind(iota + 1)
	CHANGE_REMOVED
	CHANGE_MOVED
)

func (iotaIdx ChangeKind) String() string {
	if int(iotaIdx) >= len(changeKindTxt) {
		return "undefined"
	}
	return changeKindTxt[iotaIdx]
}

var changeKindTxt = [...]string{"undefined", "added", "removed", "moved"}

// Change describes single mutation of the canonical collection.
// Index is position in the collection after an addition or a move and before a removal
type Change struct {
	Kind         ChangeKind
	CrossSection *CrossSection
	Index        int
}

// PlacementService is the single entry point for cross section lifecycle operations.
//
// It owns the canonical collection of cross sections and, for topology-aware simulators, the link graph.
// Mutations (Create, Remove, Move, ImportBulk) must not be issued concurrently against the same service;
// read-side queries do not suspend and may be called between mutations freely
type PlacementService struct {
	sim      Simulator
	topology TopologySimulator
	graph    *LinkGraph
	loaded   bool

	crossSections []*CrossSection

	observers []func(Change)
	pending   []*MetadataLoad

	mergeRadius     float64
	distance        DistanceFunc
	tolerance       float64
	logger          *slog.Logger
	store           MetadataStore
	routeStart      NetworkLinkID
	hasRouteStart   bool
	reconcileOnMove bool
	registerer      prometheus.Registerer
	verbose         bool
	metrics         *placementMetrics
}

// NewPlacementService creates service over given simulator. Simulators implementing TopologySimulator get graph-aware placement
func NewPlacementService(sim Simulator, options ...func(*PlacementService)) *PlacementService {
	svc := &PlacementService{
		sim:           sim,
		crossSections: make([]*CrossSection, 0),
		mergeRadius:   DefaultMergeRadius,
		distance:      PlanarDistance,
		tolerance:     DefaultProjectionTolerance,
		logger:        slog.Default(),
	}
	if topology, ok := sim.(TopologySimulator); ok {
		svc.topology = topology
	}
	for _, option := range options {
		option(svc)
	}
	svc.metrics = newPlacementMetrics(svc.registerer)
	return svc
}

// Load builds link graph (topology-aware simulators only) and adopts cross sections already known to the simulator.
// Metadata of adopted cross sections is loaded in background; see WaitMetadata.
// Calling Load on a loaded service is a no-op
func (svc *PlacementService) Load(ctx context.Context) error {
	if svc.loaded {
		return nil
	}
	var graph *LinkGraph
	if svc.topology != nil {
		network, err := svc.topology.Network(ctx)
		if err != nil {
			return wrapBackingStore(err, "Can't fetch network")
		}
		graph, err = BuildLinkGraph(network, WithGraphTolerance(svc.tolerance), WithGraphVerbose(svc.verbose))
		if err != nil {
			return err
		}
		svc.logger.Info("link graph loaded", "links", len(network.Links), "connectors", len(network.Connectors))
	}
	records, err := svc.sim.ListCrossSections(ctx)
	if err != nil {
		return wrapBackingStore(err, "Can't list cross sections")
	}
	adopted := make([]*CrossSection, 0, len(records))
	for _, record := range records {
		cs := adopt(record)
		if graph != nil {
			link, offset, err := graph.ProjectPoint(cs.Location)
			if err == nil {
				err = link.AddCrossSection(offset, cs.ID)
			}
			if err != nil {
				svc.logger.Warn("cross section is kept off the link graph", "id", cs.ID, "error", err)
			} else {
				cs.setPosition(link.ID, offset)
			}
		}
		adopted = append(adopted, cs)
	}
	svc.graph = graph
	svc.crossSections = adopted
	svc.loaded = true
	if svc.store != nil {
		for _, cs := range adopted {
			svc.loadMetadata(ctx, cs)
		}
	}
	return nil
}

func (svc *PlacementService) ensureLoaded(ctx context.Context) error {
	if svc.loaded {
		return nil
	}
	return svc.Load(ctx)
}

// loadMetadata starts background metadata load. Returned handle is also tracked by WaitMetadata.
// The load outlives cancellation of ctx since it is not bound to the call that started it
func (svc *PlacementService) loadMetadata(ctx context.Context, cs *CrossSection) *MetadataLoad {
	ctx = context.WithoutCancel(ctx)
	load := newMetadataLoad()
	cs.meta.Lock()
	cs.meta.load = load
	cs.meta.Unlock()
	svc.pending = append(svc.pending, load)
	store := svc.store
	go func() {
		md, err := store.LoadMetadata(ctx, cs.ID)
		switch {
		case err == nil:
			cs.setMetadata(md)
		case errors.Is(err, ErrNotFound):
			err = nil
		default:
			svc.logger.Warn("can't load cross section metadata", "id", cs.ID, "error", err)
		}
		load.finish(err)
	}()
	return load
}

// awaitMetadata blocks until pending metadata loads of given cross sections complete
func (svc *PlacementService) awaitMetadata(ctx context.Context, crossSections ...*CrossSection) error {
	for _, cs := range crossSections {
		if cs.meta == nil {
			continue
		}
		cs.meta.RLock()
		load := cs.meta.load
		cs.meta.RUnlock()
		if load == nil {
			continue
		}
		if err := load.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(err, "Can't load metadata of cross section %d", cs.ID)
		}
	}
	return nil
}

// WaitMetadata blocks until every metadata load started so far has completed
func (svc *PlacementService) WaitMetadata(ctx context.Context) error {
	var firstErr error
	for _, load := range svc.pending {
		err := load.Wait(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (svc *PlacementService) Observe(fn func(Change)) {
	svc.observers = append(svc.observers, fn)
}

func (svc *PlacementService) notify(kind ChangeKind, cs *CrossSection, index int) {
	change := Change{Kind: kind, CrossSection: cs, Index: index}
	for _, fn := range svc.observers {
		fn(change)
	}
}

// CrossSections returns snapshot of the canonical collection. Returned cross sections must be treated as read-only
func (svc *PlacementService) CrossSections() []*CrossSection {
	result := make([]*CrossSection, len(svc.crossSections))
	copy(result, svc.crossSections)
	return result
}

func (svc *PlacementService) indexOf(id CrossSectionID) int {
	for i, cs := range svc.crossSections {
		if cs.ID == id {
			return i
		}
	}
	return -1
}

func (svc *PlacementService) CrossSection(id CrossSectionID) (*CrossSection, error) {
	idx := svc.indexOf(id)
	if idx < 0 {
		return nil, notFoundf("No such cross section %d", id)
	}
	return svc.crossSections[idx], nil
}

// Graph returns link graph. Fails with ErrNoTopology for flat simulators and with ErrNotLoaded before Load
func (svc *PlacementService) Graph() (*LinkGraph, error) {
	if svc.graph == nil {
		if svc.topology != nil && !svc.loaded {
			return nil, errors.WithStack(ErrNotLoaded)
		}
		return nil, errors.WithStack(ErrNoTopology)
	}
	return svc.graph, nil
}

// nearest returns closest cross section within merge radius of the location, skipping excluded IDs
func (svc *PlacementService) nearest(location orb.Point, exclude ...CrossSectionID) *CrossSection {
	var found *CrossSection
	best := math.Inf(1)
	for _, cs := range svc.crossSections {
		skip := false
		for _, id := range exclude {
			if cs.ID == id {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		dist := svc.distance(location, cs.Location)
		if dist <= svc.mergeRadius && dist < best {
			best = dist
			found = cs
		}
	}
	return found
}

// placement is graph position resolved for a location
type placement struct {
	link   *Link
	offset float64
}

// resolve projects location onto link graph and checks that the offset is free (ignoring given cross sections).
// Returns nil placement for flat simulators
func (svc *PlacementService) resolve(location orb.Point, ignore ...*CrossSection) (*placement, error) {
	if svc.graph == nil {
		return nil, nil
	}
	link, offset, err := svc.graph.ProjectPoint(location)
	if err != nil {
		return nil, err
	}
	idx := link.searchOffset(offset)
	if idx < len(link.crossSections) && link.crossSections[idx].offset == offset {
		occupant := link.crossSections[idx].id
		for _, cs := range ignore {
			if cs.ID == occupant {
				return &placement{link: link, offset: offset}, nil
			}
		}
		return nil, conflictf("Offset %f on link %d is already occupied by cross section %d", offset, link.ID, occupant)
	}
	return &placement{link: link, offset: offset}, nil
}

// Create places new cross section at given location.
//
// When a cross section of complementary type (DISPLAY vs MEASURING) lies within merge radius, both are replaced
// by a single COMBINED cross section at the incoming location named "<existing>_<incoming>".
// Any other neighbour within merge radius makes the request fail with ErrCreationConflict.
// Returns position of the new cross section in the canonical collection
func (svc *PlacementService) Create(ctx context.Context, name string, location orb.Point, csType CrossSectionType) (int, error) {
	if err := svc.ensureLoaded(ctx); err != nil {
		return -1, err
	}
	if csType == CROSS_SECTION_UNDEFINED {
		return -1, errors.Errorf("Can't create cross section '%s' of undefined type", name)
	}
	existing := svc.nearest(location)
	if existing == nil {
		return svc.place(ctx, name, false, location, csType)
	}
	if !complementary(existing.Type, csType) {
		svc.metrics.rejected.Inc()
		svc.logger.Info("cross section rejected", "name", name, "type", csType, "neighbour", existing.ID, "neighbour_type", existing.Type)
		return -1, conflictf("Can't place %s cross section '%s': %s cross section %d is within %.1f m", csType, name, existing.Type, existing.ID, svc.mergeRadius)
	}
	if err := svc.awaitMetadata(ctx, existing); err != nil {
		return -1, err
	}
	md := Metadata{
		Name:         existing.Name() + "_" + name,
		HardShoulder: existing.HardShoulder(),
	}
	return svc.replaceWithCombined(ctx, md, location, existing)
}

// place creates cross section in simulator, attaches it to graph and appends it to the collection
func (svc *PlacementService) place(ctx context.Context, name string, hardShoulder bool, location orb.Point, csType CrossSectionType) (int, error) {
	pos, err := svc.resolve(location)
	if err != nil {
		return -1, err
	}
	record, err := svc.sim.CreateCrossSection(ctx, location, csType)
	if err != nil {
		return -1, wrapBackingStore(err, "Can't create cross section")
	}
	cs := adopt(record)
	if pos != nil {
		if err := pos.link.AddCrossSection(pos.offset, cs.ID); err != nil {
			svc.rollbackCreate(ctx, cs.ID)
			return -1, err
		}
		cs.setPosition(pos.link.ID, pos.offset)
	}
	md := Metadata{Name: name, HardShoulder: hardShoulder}
	cs.setMetadata(md)
	svc.crossSections = append(svc.crossSections, cs)
	idx := len(svc.crossSections) - 1
	svc.saveMetadata(ctx, cs.ID, md)
	svc.metrics.created.Inc()
	svc.logger.Info("cross section created", "id", cs.ID, "name", name, "type", cs.Type, "index", idx)
	svc.notify(CHANGE_ADDED, cs, idx)
	return idx, nil
}

// replaceWithCombined creates COMBINED cross section at location and removes given ones.
// New cross section is created first so a simulator failure leaves the collection untouched.
// When only some of the old cross sections could be removed, the collection follows the simulator:
// removed ones are dropped, the combined one is added and ErrBackingStore is returned
func (svc *PlacementService) replaceWithCombined(ctx context.Context, md Metadata, location orb.Point, olds ...*CrossSection) (int, error) {
	pos, err := svc.resolve(location, olds...)
	if err != nil {
		return -1, err
	}
	record, err := svc.sim.CreateCrossSection(ctx, location, CROSS_SECTION_COMBINED)
	if err != nil {
		return -1, wrapBackingStore(err, "Can't create combined cross section")
	}
	removed := 0
	var removeErr error
	for _, old := range olds {
		if removeErr = svc.sim.RemoveCrossSection(ctx, old.ID); removeErr != nil {
			break
		}
		removed++
	}
	if removeErr != nil && removed == 0 {
		svc.rollbackCreate(ctx, record.ID)
		return -1, wrapBackingStore(removeErr, "Can't remove cross section being combined")
	}
	for _, old := range olds[:removed] {
		svc.detach(old)
		if idx := svc.indexOf(old.ID); idx >= 0 {
			svc.crossSections = append(svc.crossSections[:idx], svc.crossSections[idx+1:]...)
			svc.deleteMetadata(ctx, old.ID)
			svc.notify(CHANGE_REMOVED, old, idx)
		}
	}
	cs := adopt(record)
	if pos != nil {
		// Offset is free unless it is held by an old cross section the simulator refused to remove
		if err := pos.link.AddCrossSection(pos.offset, cs.ID); err != nil {
			svc.logger.Warn("combined cross section is kept off the link graph", "id", cs.ID, "error", err)
		} else {
			cs.setPosition(pos.link.ID, pos.offset)
		}
	}
	cs.setMetadata(md)
	svc.crossSections = append(svc.crossSections, cs)
	idx := len(svc.crossSections) - 1
	svc.saveMetadata(ctx, cs.ID, md)
	svc.metrics.created.Inc()
	svc.notify(CHANGE_ADDED, cs, idx)
	if removeErr != nil {
		svc.logger.Error("combined cross section is partially applied", "id", cs.ID, "removed", removed, "kept", olds[removed].ID)
		return -1, wrapBackingStore(removeErr, "Can't remove cross section being combined")
	}
	svc.metrics.merged.Inc()
	svc.logger.Info("cross sections combined", "id", cs.ID, "name", md.Name, "replaced", len(olds), "index", idx)
	return idx, nil
}

func (svc *PlacementService) rollbackCreate(ctx context.Context, id CrossSectionID) {
	if err := svc.sim.RemoveCrossSection(ctx, id); err != nil {
		svc.logger.Error("can't roll back cross section creation", "id", id, "error", err)
	}
}

// detach removes cross section from link graph (if it is attached)
func (svc *PlacementService) detach(cs *CrossSection) {
	linkID, offset, ok := cs.Position()
	if !ok || svc.graph == nil {
		return
	}
	if err := svc.graph.RemoveCrossSection(linkID, offset); err != nil {
		svc.logger.Warn("cross section is missing on link graph", "id", cs.ID, "error", err)
	}
	cs.onLink = false
}

// Remove deletes cross section from simulator and from the collection
func (svc *PlacementService) Remove(ctx context.Context, id CrossSectionID) error {
	if err := svc.ensureLoaded(ctx); err != nil {
		return err
	}
	idx := svc.indexOf(id)
	if idx < 0 {
		return notFoundf("No such cross section %d", id)
	}
	cs := svc.crossSections[idx]
	if err := svc.sim.RemoveCrossSection(ctx, id); err != nil {
		return wrapBackingStore(err, "Can't remove cross section")
	}
	svc.detach(cs)
	svc.crossSections = append(svc.crossSections[:idx], svc.crossSections[idx+1:]...)
	svc.deleteMetadata(ctx, id)
	svc.metrics.removed.Inc()
	svc.logger.Info("cross section removed", "id", id)
	svc.notify(CHANGE_REMOVED, cs, idx)
	return nil
}

// Move changes location of cross section. Merge rules are not re-evaluated at the destination
// unless the service has been created WithReconcileOnMove(true)
func (svc *PlacementService) Move(ctx context.Context, id CrossSectionID, location orb.Point) error {
	if svc.reconcileOnMove {
		_, err := svc.MoveAndReconcile(ctx, id, location)
		return err
	}
	if err := svc.ensureLoaded(ctx); err != nil {
		return err
	}
	return svc.move(ctx, id, location)
}

func (svc *PlacementService) move(ctx context.Context, id CrossSectionID, location orb.Point) error {
	idx := svc.indexOf(id)
	if idx < 0 {
		return notFoundf("No such cross section %d", id)
	}
	cs := svc.crossSections[idx]
	pos, err := svc.resolve(location, cs)
	if err != nil {
		return err
	}
	if err := svc.sim.MoveCrossSection(ctx, id, location); err != nil {
		return wrapBackingStore(err, "Can't move cross section")
	}
	if pos != nil {
		svc.detach(cs)
		if err := pos.link.AddCrossSection(pos.offset, cs.ID); err != nil {
			return err
		}
		cs.setPosition(pos.link.ID, pos.offset)
	}
	cs.Location = location
	svc.metrics.moved.Inc()
	svc.notify(CHANGE_MOVED, cs, idx)
	return nil
}

// MoveAndReconcile moves cross section and applies merge rules at the destination.
// Complementary neighbour makes both cross sections combine at the destination, incompatible one makes the call fail without moving.
// Returns position of the moved (or combined) cross section in the collection
func (svc *PlacementService) MoveAndReconcile(ctx context.Context, id CrossSectionID, location orb.Point) (int, error) {
	if err := svc.ensureLoaded(ctx); err != nil {
		return -1, err
	}
	moving, err := svc.CrossSection(id)
	if err != nil {
		return -1, err
	}
	neighbour := svc.nearest(location, id)
	if neighbour == nil {
		if err := svc.move(ctx, id, location); err != nil {
			return -1, err
		}
		return svc.indexOf(id), nil
	}
	if !complementary(neighbour.Type, moving.Type) {
		svc.metrics.rejected.Inc()
		return -1, conflictf("Can't move %s cross section %d: %s cross section %d is within %.1f m", moving.Type, id, neighbour.Type, neighbour.ID, svc.mergeRadius)
	}
	if err := svc.awaitMetadata(ctx, neighbour, moving); err != nil {
		return -1, err
	}
	md := Metadata{
		Name:         neighbour.Name() + "_" + moving.Name(),
		HardShoulder: neighbour.HardShoulder() || moving.HardShoulder(),
	}
	return svc.replaceWithCombined(ctx, md, location, neighbour, moving)
}

// SetName updates and persists name of cross section
func (svc *PlacementService) SetName(ctx context.Context, id CrossSectionID, name string) error {
	cs, err := svc.CrossSection(id)
	if err != nil {
		return err
	}
	md := cs.metadata()
	md.Name = name
	return svc.updateMetadata(ctx, cs, md)
}

// SetHardShoulder updates and persists hard shoulder availability of cross section
func (svc *PlacementService) SetHardShoulder(ctx context.Context, id CrossSectionID, available bool) error {
	cs, err := svc.CrossSection(id)
	if err != nil {
		return err
	}
	md := cs.metadata()
	md.HardShoulder = available
	return svc.updateMetadata(ctx, cs, md)
}

func (svc *PlacementService) updateMetadata(ctx context.Context, cs *CrossSection, md Metadata) error {
	if svc.store != nil {
		if err := svc.store.SaveMetadata(ctx, cs.ID, md); err != nil {
			return errors.Wrapf(err, "Can't save metadata of cross section %d", cs.ID)
		}
	}
	cs.setMetadata(md)
	return nil
}

func (svc *PlacementService) saveMetadata(ctx context.Context, id CrossSectionID, md Metadata) {
	if svc.store == nil {
		return
	}
	if err := svc.store.SaveMetadata(ctx, id, md); err != nil {
		svc.logger.Warn("can't save cross section metadata", "id", id, "error", err)
	}
}

func (svc *PlacementService) deleteMetadata(ctx context.Context, id CrossSectionID) {
	if svc.store == nil {
		return
	}
	if err := svc.store.DeleteMetadata(ctx, id); err != nil {
		svc.logger.Warn("can't delete cross section metadata", "id", id, "error", err)
	}
}
