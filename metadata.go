package crossnet

import (
	"context"
)

// Metadata is auxiliary per-cross-section information persisted outside of the simulator
type Metadata struct {
	Name         string
	HardShoulder bool
}

// MetadataStore persists cross section metadata.
// LoadMetadata must return an error matching ErrNotFound when nothing is stored for the given ID
type MetadataStore interface {
	LoadMetadata(ctx context.Context, id CrossSectionID) (Metadata, error)
	SaveMetadata(ctx context.Context, id CrossSectionID, md Metadata) error
	DeleteMetadata(ctx context.Context, id CrossSectionID) error
}

// MetadataLoad is a completion handle of background metadata load
type MetadataLoad struct {
	done chan struct{}
	err  error
}

func newMetadataLoad() *MetadataLoad {
	return &MetadataLoad{done: make(chan struct{})}
}

func (load *MetadataLoad) finish(err error) {
	load.err = err
	close(load.done)
}

// Ready reports whether the load has completed (successfully or not)
func (load *MetadataLoad) Ready() bool {
	select {
	case <-load.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the load completes or context is done
func (load *MetadataLoad) Wait(ctx context.Context) error {
	select {
	case <-load.done:
		return load.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
