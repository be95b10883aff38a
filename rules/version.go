package rules

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is a semantic version triple used for version-range targeting.
type Version struct {
	Major uint64 `json:"major"`
	Minor uint64 `json:"minor"`
	Patch uint64 `json:"patch"`
}

// ParseVersion parses a "major.minor.patch" string. Pre-release and build
// metadata are rejected: targeting compares plain triples only.
func ParseVersion(s string) (Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("version %q: %w", s, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return Version{}, fmt.Errorf("version %q: pre-release and build metadata are not supported", s)
	}
	return Version{Major: v.Major(), Minor: v.Minor(), Patch: v.Patch()}, nil
}

// Compare returns -1, 0 or 1 as v is ordered before, equal to or after o.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpUint64(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpUint64(v.Minor, o.Minor)
	default:
		return cmpUint64(v.Patch, o.Patch)
	}
}

func cmpUint64(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// String renders the triple as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// RangeKind discriminates the VersionRange union.
type RangeKind uint8

const (
	RangeUnbounded RangeKind = iota
	RangeMinOnly
	RangeMaxOnly
	RangeBoth
)

// VersionRange is an inclusive version interval: unbounded, bounded below,
// bounded above, or bounded on both sides. The zero value is unbounded.
type VersionRange struct {
	kind RangeKind
	min  Version
	max  Version
}

// Unbounded returns the range that matches every version.
func Unbounded() VersionRange { return VersionRange{} }

// MinOnly returns the range [v, ∞).
func MinOnly(v Version) VersionRange { return VersionRange{kind: RangeMinOnly, min: v} }

// MaxOnly returns the range (-∞, v].
func MaxOnly(v Version) VersionRange { return VersionRange{kind: RangeMaxOnly, max: v} }

// Between returns the range [lo, hi]. lo must not be greater than hi.
func Between(lo, hi Version) (VersionRange, error) {
	if lo.Compare(hi) > 0 {
		return VersionRange{}, fmt.Errorf("version range: min %s greater than max %s", lo, hi)
	}
	return VersionRange{kind: RangeBoth, min: lo, max: hi}, nil
}

// Kind returns the range discriminant.
func (r VersionRange) Kind() RangeKind { return r.kind }

// Min returns the lower bound, if the range has one.
func (r VersionRange) Min() (Version, bool) {
	return r.min, r.kind == RangeMinOnly || r.kind == RangeBoth
}

// Max returns the upper bound, if the range has one.
func (r VersionRange) Max() (Version, bool) {
	return r.max, r.kind == RangeMaxOnly || r.kind == RangeBoth
}

// Bounded reports whether the range constrains anything. Unbounded ranges do
// not contribute to rule specificity.
func (r VersionRange) Bounded() bool { return r.kind != RangeUnbounded }

// Matches reports whether v falls inside the range, bounds inclusive.
func (r VersionRange) Matches(v Version) bool {
	switch r.kind {
	case RangeMinOnly:
		return v.Compare(r.min) >= 0
	case RangeMaxOnly:
		return v.Compare(r.max) <= 0
	case RangeBoth:
		return v.Compare(r.min) >= 0 && v.Compare(r.max) <= 0
	default:
		return true
	}
}
