// Package identity provides the canonical cohort identifier used for
// deterministic bucketing. A StableID is a lowercase hex string derived from
// an arbitrary user identifier; identical input bytes always yield the same
// StableID, so the same user lands in the same rollout bucket everywhere.
package identity

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// HexIDLength is the length of an already-canonical hex identifier as it
// appears in allowlists on the wire.
const HexIDLength = 32

// StableID is a canonical lowercase hex cohort key. The zero value is the
// empty id, which never appears in allowlists and buckets like any other
// byte sequence.
type StableID string

// FromBytes derives a StableID by hex-encoding the raw byte sequence.
func FromBytes(b []byte) StableID {
	return StableID(hex.EncodeToString(b))
}

// FromString derives a StableID from an arbitrary user identifier string.
// The input is treated as raw bytes and hex-encoded; it is never interpreted
// as hex itself. Use Parse for identifiers that are already canonical.
func FromString(s string) StableID {
	return FromBytes([]byte(s))
}

// Parse accepts an already-canonical 32-character hex identifier, as carried
// in wire-format allowlists. Uppercase hex digits are normalised to lowercase.
func Parse(s string) (StableID, error) {
	if len(s) != HexIDLength {
		return "", fmt.Errorf("hex id %q: expected %d characters, got %d", s, HexIDLength, len(s))
	}
	lower := strings.ToLower(s)
	if _, err := hex.DecodeString(lower); err != nil {
		return "", fmt.Errorf("hex id %q: not valid hex", s)
	}
	return StableID(lower), nil
}

// String returns the canonical hex form.
func (id StableID) String() string { return string(id) }

// Set is an unordered collection of StableIDs with O(1) membership checks.
type Set map[StableID]struct{}

// NewSet builds a Set from the given ids.
func NewSet(ids ...StableID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set. A nil Set contains nothing.
func (s Set) Contains(id StableID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexicographic order, for stable serialization.
func (s Set) Sorted() []StableID {
	out := make([]StableID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
