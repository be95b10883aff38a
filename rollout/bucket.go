// Package rollout provides deterministic user bucketing for percentage
// ramp-ups. It maps (salt, feature, stable id) to one of 10 000 buckets so a
// ramp-up percentage can be expressed in basis points, giving 0.01%
// granularity. The same inputs always produce the same bucket, across
// processes and restarts:
//   - Increasing a ramp-up only adds users, never removes existing ones.
//   - Changing the salt deliberately resamples the whole population.
//   - Distinct (salt, feature) pairs bucket independently.
package rollout

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"

	"github.com/TimurManjosov/flagcore/identity"
)

// NumBuckets is the size of the bucket space. Thresholds are expressed in
// basis points of the ramp-up percentage.
const NumBuckets = 10000

// ErrInvalidRollout is returned when a ramp-up percentage is outside [0, 100].
var ErrInvalidRollout = errors.New("ramp-up must be between 0 and 100")

// Bucket returns a deterministic bucket in [0, NumBuckets) for the given
// salt, feature id and stable id.
//
// Algorithm: SHA-256 over "salt:feature:id", first four bytes read as a
// big-endian unsigned integer with the sign bit cleared, modulo NumBuckets.
// The hash is fixed by the wire contract: buckets must agree between
// independent implementations evaluating the same snapshot.
func Bucket(salt, featureID string, id identity.StableID) uint32 {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte{':'})
	h.Write([]byte(featureID))
	h.Write([]byte{':'})
	h.Write([]byte(id))
	var sum [sha256.Size]byte
	digest := h.Sum(sum[:0])
	v := binary.BigEndian.Uint32(digest[:4]) & 0x7FFFFFFF
	return v % NumBuckets
}

// Threshold converts a ramp-up percentage in [0, 100] to a basis-point
// admission threshold. 100 admits every bucket, 0 admits none.
func Threshold(rampUp float64) uint32 {
	return uint32(math.Round(rampUp * 100.0))
}

// Admitted reports whether the bucket is inside the ramp-up.
func Admitted(rampUp float64, bucket uint32) bool {
	return bucket < Threshold(rampUp)
}

// ValidateRampUp checks that a ramp-up percentage is in [0, 100].
func ValidateRampUp(rampUp float64) error {
	if math.IsNaN(rampUp) || rampUp < 0 || rampUp > 100 {
		return ErrInvalidRollout
	}
	return nil
}
