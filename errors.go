package csrgo

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/csrgo/adjacency"
	"github.com/hupe1980/csrgo/idmap"
	"github.com/hupe1980/csrgo/internal/arena"
	"github.com/hupe1980/csrgo/internal/batch"
	"github.com/hupe1980/csrgo/internal/resource"
)

var (
	// ErrConfiguration classifies caller contract violations such as
	// duplicate node ids, unmapped nodes in strict mode or inconsistent
	// property columns. These errors are never transient.
	ErrConfiguration = errors.New("configuration error")
	// ErrResourceExhausted classifies failed page allocations.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrCancelled classifies builds stopped by their context.
	ErrCancelled = errors.New("build cancelled")
	// ErrInvalidState is returned when a loader method is called out of order.
	ErrInvalidState = errors.New("invalid loader state")
	// ErrLoaderClosed is returned when a closed LocalLoader is used.
	ErrLoaderClosed = errors.New("loader closed")
	// ErrUnknownProperty is returned for a property name the graph does not have.
	ErrUnknownProperty = errors.New("unknown property")
)

// ErrOpenLoaders is returned by Build while local loaders are still open.
type ErrOpenLoaders struct {
	Open int64
}

func (e *ErrOpenLoaders) Error() string {
	return fmt.Sprintf("%d local loaders still open", e.Open)
}

func (e *ErrOpenLoaders) Unwrap() error { return ErrInvalidState }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	if errors.Is(err, arena.ErrResourceExhausted) || errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}

	var dup *idmap.ErrDuplicateNodeID
	if errors.As(err, &dup) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	var oor *idmap.ErrNodeIDOutOfRange
	if errors.As(err, &oor) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	var unknown *idmap.ErrUnknownLabel
	if errors.As(err, &unknown) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	var unmapped *batch.ErrUnmappedNode
	if errors.As(err, &unmapped) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	var mismatch *adjacency.ErrPropertyCountMismatch
	if errors.As(err, &mismatch) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if errors.Is(err, idmap.ErrInvalidNodeID) ||
		errors.Is(err, adjacency.ErrMixedAggregation) ||
		errors.Is(err, adjacency.ErrInvalidAggregation) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return err
}
