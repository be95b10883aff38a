package codec

import "fmt"

// ErrorKind classifies a decode failure.
type ErrorKind uint8

const (
	// ErrInvalidJSON: the payload is not syntactically valid JSON.
	ErrInvalidJSON ErrorKind = iota + 1
	// ErrInvalidSnapshot: valid JSON that violates the schema or an
	// invariant (type mismatch, bad structure, missing declared flag).
	ErrInvalidSnapshot
	// ErrFeatureNotFound: a flag key not declared in the schema, under
	// strict unknown-feature handling.
	ErrFeatureNotFound
	// ErrInvalidHexID: a malformed allowlist identifier.
	ErrInvalidHexID
	// ErrInvalidVersion: a malformed version tuple or version range.
	ErrInvalidVersion
	// ErrInvalidRollout: a ramp-up percentage outside [0, 100].
	ErrInvalidRollout
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidJSON:
		return "invalid_json"
	case ErrInvalidSnapshot:
		return "invalid_snapshot"
	case ErrFeatureNotFound:
		return "feature_not_found"
	case ErrInvalidHexID:
		return "invalid_hex_id"
	case ErrInvalidVersion:
		return "invalid_version"
	case ErrInvalidRollout:
		return "invalid_rollout"
	default:
		return "unknown"
	}
}

// ParseError is the typed failure a decode returns. A failed decode mutates
// nothing; the caller's previously-loaded snapshot stays in force.
type ParseError struct {
	Kind      ErrorKind
	Reason    string
	Namespace string
	// Feature is the canonical feature id the failure is attributed to,
	// when one is known.
	Feature string
	// Input is the offending field input for field-level kinds.
	Input string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("decode %s: %s: %s", e.Namespace, e.Kind, e.Reason)
	if e.Feature != "" {
		msg += fmt.Sprintf(" (feature %s)", e.Feature)
	}
	if e.Input != "" {
		msg += fmt.Sprintf(" (input %q)", e.Input)
	}
	return msg
}

func (d *decoder) errf(kind ErrorKind, feature, input, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:      kind,
		Reason:    fmt.Sprintf(format, args...),
		Namespace: d.schema.Namespace(),
		Feature:   feature,
		Input:     input,
	}
}
