package crossnet

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type placementMetrics struct {
	created    prometheus.Counter
	merged     prometheus.Counter
	rejected   prometheus.Counter
	removed    prometheus.Counter
	moved      prometheus.Counter
	importRows *prometheus.CounterVec
}

func newPlacementMetrics(registerer prometheus.Registerer) *placementMetrics {
	metrics := &placementMetrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossnet",
			Name:      "cross_sections_created_total",
			Help:      "Number of cross sections created (merges included)",
		}),
		merged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossnet",
			Name:      "cross_sections_merged_total",
			Help:      "Number of DISPLAY and MEASURING pairs combined into a single cross section",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossnet",
			Name:      "cross_sections_rejected_total",
			Help:      "Number of creation requests rejected due to incompatible neighbour",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossnet",
			Name:      "cross_sections_removed_total",
			Help:      "Number of removed cross sections",
		}),
		moved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossnet",
			Name:      "cross_sections_moved_total",
			Help:      "Number of moved cross sections",
		}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossnet",
			Name:      "import_rows_total",
			Help:      "Number of processed bulk import rows",
		}, []string{"result"}),
	}
	if registerer == nil {
		return metrics
	}
	metrics.created = register(registerer, metrics.created).(prometheus.Counter)
	metrics.merged = register(registerer, metrics.merged).(prometheus.Counter)
	metrics.rejected = register(registerer, metrics.rejected).(prometheus.Counter)
	metrics.removed = register(registerer, metrics.removed).(prometheus.Counter)
	metrics.moved = register(registerer, metrics.moved).(prometheus.Counter)
	metrics.importRows = register(registerer, metrics.importRows).(*prometheus.CounterVec)
	return metrics
}

// register returns already registered collector when the same one has been registered by another service
func register(registerer prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return already.ExistingCollector
	}
	panic(err)
}
