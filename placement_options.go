package crossnet

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultMergeRadius is proximity (meters) within which two cross sections are candidates for combination
	DefaultMergeRadius = 25.0
)

func (svc *PlacementService) String() string {
	routeStart := "auto"
	if svc.hasRouteStart {
		routeStart = fmt.Sprintf("%d", svc.routeStart)
	}
	return fmt.Sprintf(`
Placement service parameters:
	merge_radius: %f
	projection_tolerance: %f
	route_start: %s
	reconcile_on_move?: %t
	metadata store?: %t
	`,
		svc.mergeRadius,
		svc.tolerance,
		routeStart,
		svc.reconcileOnMove,
		svc.store != nil,
	)
}

// WithMergeRadius overrides DefaultMergeRadius
func WithMergeRadius(radius float64) func(*PlacementService) {
	return func(svc *PlacementService) {
		svc.mergeRadius = radius
	}
}

// WithDistance sets distance function used for the proximity check. PlanarDistance by default
func WithDistance(distance DistanceFunc) func(*PlacementService) {
	return func(svc *PlacementService) {
		svc.distance = distance
	}
}

// WithProjectionTolerance sets max distance between a location and a link for the location to be projected onto that link
func WithProjectionTolerance(tolerance float64) func(*PlacementService) {
	return func(svc *PlacementService) {
		svc.tolerance = tolerance
	}
}

func WithLogger(logger *slog.Logger) func(*PlacementService) {
	return func(svc *PlacementService) {
		svc.logger = logger
	}
}

func WithMetadataStore(store MetadataStore) func(*PlacementService) {
	return func(svc *PlacementService) {
		svc.store = store
	}
}

// WithRouteStart fixes the link GetRoute starts at
func WithRouteStart(linkID NetworkLinkID) func(*PlacementService) {
	return func(svc *PlacementService) {
		svc.routeStart = linkID
		svc.hasRouteStart = true
	}
}

// WithReconcileOnMove makes Move behave like MoveAndReconcile
func WithReconcileOnMove(reconcile bool) func(*PlacementService) {
	return func(svc *PlacementService) {
		svc.reconcileOnMove = reconcile
	}
}

// WithRegisterer registers service metrics
func WithRegisterer(registerer prometheus.Registerer) func(*PlacementService) {
	return func(svc *PlacementService) {
		svc.registerer = registerer
	}
}

// WithVerbose enables progress output while loading the network
func WithVerbose(verbose bool) func(*PlacementService) {
	return func(svc *PlacementService) {
		svc.verbose = verbose
	}
}
