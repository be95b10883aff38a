package codec

import "fmt"

// UnknownFeatureStrategy controls how a decode handles flag keys that are
// not declared in the schema.
type UnknownFeatureStrategy uint8

const (
	// UnknownFeatureReject fails the decode with ErrFeatureNotFound.
	UnknownFeatureReject UnknownFeatureStrategy = iota
	// UnknownFeatureSkip drops the flag and reports it through OnWarning.
	UnknownFeatureSkip
)

// MissingFeatureStrategy controls how a decode handles features declared in
// the schema but absent from the payload.
type MissingFeatureStrategy uint8

const (
	// MissingFeatureReject fails the decode.
	MissingFeatureReject MissingFeatureStrategy = iota
	// MissingFeatureFill substitutes the schema's declared definition.
	MissingFeatureFill
)

// UnknownFieldStrategy controls how a decode handles JSON fields the wire
// format does not define.
type UnknownFieldStrategy uint8

const (
	// UnknownFieldReject fails the decode.
	UnknownFieldReject UnknownFieldStrategy = iota
	// UnknownFieldIgnore silently drops them.
	UnknownFieldIgnore
)

// Options tune a decode. The zero value is fully strict, which is the
// posture production loads should keep.
type Options struct {
	UnknownFeatures UnknownFeatureStrategy
	MissingFeatures MissingFeatureStrategy
	UnknownFields   UnknownFieldStrategy

	// OnWarning receives lenient-mode diagnostics (skipped unknown flags).
	// May be nil. Never called after a failure: a failed decode stops at its
	// first error.
	OnWarning func(msg string)
}

// Strict returns the all-reject option set.
func Strict() Options { return Options{} }

// Lenient returns an option set that skips unknown flags, fills missing
// declared flags from the schema and ignores unknown fields.
func Lenient() Options {
	return Options{
		UnknownFeatures: UnknownFeatureSkip,
		MissingFeatures: MissingFeatureFill,
		UnknownFields:   UnknownFieldIgnore,
	}
}

func (o Options) warnf(format string, args ...any) {
	if o.OnWarning != nil {
		o.OnWarning(fmt.Sprintf(format, args...))
	}
}
