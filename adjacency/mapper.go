package adjacency

// ValueMapper maps target ids while they are decoded for compression.
// Targets mapped to model.NotFound are dropped together with their
// property values.
type ValueMapper interface {
	Map(value uint64) uint64
}

// IdentityMapper leaves target ids unchanged.
type IdentityMapper struct{}

// Map returns value.
func (IdentityMapper) Map(value uint64) uint64 { return value }

// MapperFunc adapts a function to ValueMapper.
type MapperFunc func(value uint64) uint64

// Map calls f(value).
func (f MapperFunc) Map(value uint64) uint64 { return f(value) }

// mapFunc returns nil for the identity so that decoding can skip the call.
func mapFunc(m ValueMapper) func(uint64) uint64 {
	switch m := m.(type) {
	case nil, IdentityMapper, *IdentityMapper:
		return nil
	case MapperFunc:
		return m
	default:
		return m.Map
	}
}
