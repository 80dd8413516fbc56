// Package varint implements the variable-length and delta encodings used for
// adjacency lists.
//
// Values are stored as unsigned LEB128 (seven payload bits per byte, high bit
// set on every byte except the last). Sorted lists are stored as the first
// value followed by successive non-negative differences.
package varint

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when the input ends inside a value.
var ErrTruncated = errors.New("varint: truncated input")

// Size returns the number of bytes v occupies when encoded.
func Size(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Append appends the encoding of every value in values to dst.
func Append(dst []byte, values []uint64) []byte {
	for _, v := range values {
		dst = binary.AppendUvarint(dst, v)
	}
	return dst
}

// PutDeltas writes the delta encoding of the sorted values into dst and
// returns the number of bytes written. dst must hold DeltasSize(values)
// bytes.
func PutDeltas(dst []byte, values []uint64) int {
	var (
		last uint64
		pos  int
	)
	for _, v := range values {
		pos += binary.PutUvarint(dst[pos:], v-last)
		last = v
	}
	return pos
}

// DeltasSize returns the encoded size of the sorted values.
func DeltasSize(values []uint64) int {
	var (
		last uint64
		n    int
	)
	for _, v := range values {
		n += Size(v - last)
		last = v
	}
	return n
}

// Decode decodes count values from src into dst, passing each through
// mapValue when it is non-nil. It returns the number of bytes consumed.
func Decode(src []byte, count int, dst []uint64, mapValue func(uint64) uint64) (int, error) {
	pos := 0
	for i := 0; i < count; i++ {
		v, n := binary.Uvarint(src[pos:])
		if n <= 0 {
			return pos, fmt.Errorf("%w: value %d of %d", ErrTruncated, i, count)
		}
		pos += n
		if mapValue != nil {
			v = mapValue(v)
		}
		dst[i] = v
	}
	return pos, nil
}

// Next decodes a single value from src and returns it with the number of
// bytes consumed. It is the cursor-side primitive of the read path.
func Next(src []byte) (uint64, int) {
	// inlined fast path for one-byte values
	if len(src) > 0 && src[0] < 0x80 {
		return uint64(src[0]), 1
	}
	return binary.Uvarint(src)
}
