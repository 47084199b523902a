package crossnet

import (
	"github.com/pkg/errors"
)

var (
	// ErrCreationConflict is returned when a new cross section would sit within the merge radius of an incompatible one
	ErrCreationConflict = errors.New("cross section creation conflict")
	// ErrNotFound is returned for unknown links, cross sections or coordinates not covered by any link
	ErrNotFound = errors.New("not found")
	// ErrGraphInconsistency is returned when the topology is malformed (e.g. a divergence without a leftmost successor)
	ErrGraphInconsistency = errors.New("graph inconsistency")
	// ErrBackingStore wraps failures reported by the simulator
	ErrBackingStore = errors.New("backing store failure")
	// ErrNoTopology is returned for graph queries against a simulator that does not expose its network
	ErrNoTopology = errors.New("simulator does not expose network topology")
	// ErrNotLoaded is returned for graph queries issued before the service has been loaded
	ErrNotLoaded = errors.New("placement service is not loaded")
)

// kindError attaches one of the sentinel kinds to a detailed message while keeping errors.Is working
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string {
	return e.msg + ": " + e.kind.Error()
}

func (e *kindError) Unwrap() error {
	return e.kind
}

func newKindError(kind error, format string, args ...interface{}) error {
	return errors.WithStack(&kindError{kind: kind, msg: errors.Errorf(format, args...).Error()})
}

func notFoundf(format string, args ...interface{}) error {
	return newKindError(ErrNotFound, format, args...)
}

func conflictf(format string, args ...interface{}) error {
	return newKindError(ErrCreationConflict, format, args...)
}

func inconsistencyf(format string, args ...interface{}) error {
	return newKindError(ErrGraphInconsistency, format, args...)
}

// backingStoreError wraps simulator failure keeping both the kind and the cause reachable
type backingStoreError struct {
	op    string
	cause error
}

func (e *backingStoreError) Error() string {
	return e.op + ": " + ErrBackingStore.Error() + ": " + e.cause.Error()
}

func (e *backingStoreError) Is(target error) bool {
	return target == ErrBackingStore
}

func (e *backingStoreError) Unwrap() error {
	return e.cause
}

func (e *backingStoreError) Cause() error {
	return e.cause
}

func wrapBackingStore(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&backingStoreError{op: op, cause: err})
}
