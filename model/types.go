package model

import (
	"fmt"
	"math"
	"strings"
)

// ExternalID is a node identifier supplied by a loader.
type ExternalID = uint64

// NodeID is a dense internal node identifier.
type NodeID = uint64

// NotFound is returned for identifiers that have no mapping.
const NotFound uint64 = math.MaxUint64

// NodeLabel is a named node label.
type NodeLabel string

// AllNodes is the implicit label carried by every node of a graph that was
// loaded without labels.
const AllNodes NodeLabel = "__ALL__"

// String returns the label name.
func (l NodeLabel) String() string { return string(l) }

// Aggregation is the merge policy applied to parallel relationships, i.e.
// relationships sharing source and target.
type Aggregation uint8

const (
	// AggregationDefault resolves to AggregationNone.
	AggregationDefault Aggregation = iota
	// AggregationNone keeps every parallel relationship.
	AggregationNone
	// AggregationSingle keeps the first relationship of each parallel group.
	AggregationSingle
	// AggregationSum adds property values.
	AggregationSum
	// AggregationMin keeps the smallest property value.
	AggregationMin
	// AggregationMax keeps the largest property value.
	AggregationMax
	// AggregationCount counts parallel relationships.
	AggregationCount
)

var aggregationNames = [...]string{"DEFAULT", "NONE", "SINGLE", "SUM", "MIN", "MAX", "COUNT"}

// Resolve maps AggregationDefault to AggregationNone.
func (a Aggregation) Resolve() Aggregation {
	if a == AggregationDefault {
		return AggregationNone
	}
	return a
}

// Merges reports whether the policy merges parallel relationships.
func (a Aggregation) Merges() bool {
	return a.Resolve() != AggregationNone
}

// Valid reports whether a is a known policy.
func (a Aggregation) Valid() bool {
	return int(a) < len(aggregationNames)
}

// Normalize returns the value stored for a relationship before any merge.
func (a Aggregation) Normalize(v float64) float64 {
	if a == AggregationCount {
		return 1
	}
	return v
}

// Merge combines the running value with the next parallel value.
func (a Aggregation) Merge(running, next float64) float64 {
	switch a {
	case AggregationSum:
		return running + next
	case AggregationMin:
		return math.Min(running, next)
	case AggregationMax:
		return math.Max(running, next)
	case AggregationCount:
		return running + 1
	default:
		return running
	}
}

func (a Aggregation) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Aggregation(%d)", a)
	}
	return aggregationNames[a]
}

// ParseAggregation parses a policy name, case-insensitively.
func ParseAggregation(s string) (Aggregation, error) {
	for i, name := range aggregationNames {
		if strings.EqualFold(name, s) {
			return Aggregation(i), nil
		}
	}
	return AggregationDefault, fmt.Errorf("unknown aggregation %q", s)
}

// Orientation determines how a loaded relationship is stored.
type Orientation uint8

const (
	// OrientationNatural stores source -> target.
	OrientationNatural Orientation = iota
	// OrientationReverse stores target -> source.
	OrientationReverse
	// OrientationUndirected stores both directions.
	OrientationUndirected
)

func (o Orientation) String() string {
	switch o {
	case OrientationNatural:
		return "NATURAL"
	case OrientationReverse:
		return "REVERSE"
	case OrientationUndirected:
		return "UNDIRECTED"
	default:
		return fmt.Sprintf("Orientation(%d)", o)
	}
}

// Compression selects the adjacency storage strategy of a graph.
type Compression uint8

const (
	// CompressionDelta stores sorted targets as delta encoded varints.
	CompressionDelta Compression = iota
	// CompressionRaw stores targets as plain 64-bit words.
	CompressionRaw
)

func (c Compression) String() string {
	switch c {
	case CompressionDelta:
		return "DELTA_VARINT"
	case CompressionRaw:
		return "RAW"
	default:
		return fmt.Sprintf("Compression(%d)", c)
	}
}
