// Package delta implements the byte-delta codec used by the diff-based
// archives. A delta records the span of the previous revision that
// changed: the length of the shared prefix and suffix, plus the
// replacement bytes in between. Reconstruction walks the revision chain
// forward from the first full snapshot.
package delta

import (
	"encoding/binary"
	"fmt"
)

const headerSize = 8 // two uint32: prefix length, suffix length

// Encode produces the delta that turns base into target.
func Encode(base, target []byte) []byte {
	prefix := 0
	max := len(base)
	if len(target) < max {
		max = len(target)
	}
	for prefix < max && base[prefix] == target[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < max-prefix &&
		base[len(base)-1-suffix] == target[len(target)-1-suffix] {
		suffix++
	}
	middle := target[prefix : len(target)-suffix]

	out := make([]byte, headerSize+len(middle))
	binary.BigEndian.PutUint32(out[0:4], uint32(prefix))
	binary.BigEndian.PutUint32(out[4:8], uint32(suffix))
	copy(out[headerSize:], middle)
	return out
}

// Apply reconstructs the target revision from base and a delta produced
// by Encode.
func Apply(base, delta []byte) ([]byte, error) {
	if len(delta) < headerSize {
		return nil, fmt.Errorf("delta truncated: %d bytes", len(delta))
	}
	prefix := int(binary.BigEndian.Uint32(delta[0:4]))
	suffix := int(binary.BigEndian.Uint32(delta[4:8]))
	if prefix+suffix > len(base) {
		return nil, fmt.Errorf("delta out of range: prefix %d + suffix %d > base %d",
			prefix, suffix, len(base))
	}
	middle := delta[headerSize:]

	out := make([]byte, 0, prefix+len(middle)+suffix)
	out = append(out, base[:prefix]...)
	out = append(out, middle...)
	out = append(out, base[len(base)-suffix:]...)
	return out, nil
}
