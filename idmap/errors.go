package idmap

import (
	"errors"
	"fmt"

	"github.com/hupe1980/csrgo/model"
)

var (
	// ErrAlreadyBuilt is returned when a Builder is used after Build.
	ErrAlreadyBuilt = errors.New("idmap: builder already built")
	// ErrInvalidNodeID is returned for the reserved model.NotFound id.
	ErrInvalidNodeID = errors.New("idmap: node id is reserved")
)

// ErrDuplicateNodeID is returned by a checked build when an external id was
// inserted more than once.
type ErrDuplicateNodeID struct {
	NodeID uint64
}

func (e *ErrDuplicateNodeID) Error() string {
	return fmt.Sprintf("idmap: duplicate node id %d", e.NodeID)
}

// ErrNodeIDOutOfRange is returned when an inserted id exceeds the configured
// highest external id.
type ErrNodeIDOutOfRange struct {
	NodeID  uint64
	Highest uint64
}

func (e *ErrNodeIDOutOfRange) Error() string {
	return fmt.Sprintf("idmap: node id %d exceeds highest node id %d", e.NodeID, e.Highest)
}

// ErrUnknownLabel is returned when filtering by a label no node carries.
type ErrUnknownLabel struct {
	Label model.NodeLabel
}

func (e *ErrUnknownLabel) Error() string {
	return fmt.Sprintf("idmap: unknown node label %q", string(e.Label))
}
