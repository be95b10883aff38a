package codec

import "encoding/json"

// Wire DTOs. Field names are a compatibility contract; do not rename.

type wireSnapshot struct {
	Meta  *wireMeta  `json:"meta,omitempty"`
	Flags []wireFlag `json:"flags"`
}

type wireMeta struct {
	Version               string `json:"version,omitempty"`
	GeneratedAtEpochMilli int64  `json:"generatedAtEpochMillis,omitempty"`
	Source                string `json:"source,omitempty"`
}

type wireFlag struct {
	Key             string     `json:"key"`
	DefaultValue    wireValue  `json:"defaultValue"`
	Salt            *string    `json:"salt,omitempty"`
	IsActive        *bool      `json:"isActive,omitempty"`
	RampUpAllowlist []string   `json:"rampUpAllowlist,omitempty"`
	Rules           []wireRule `json:"rules,omitempty"`
}

type wireValue struct {
	Type          string          `json:"type"`
	Value         json.RawMessage `json:"value"`
	EnumClassName string          `json:"enumClassName,omitempty"`
	DataClassName string          `json:"dataClassName,omitempty"`
}

type wireRule struct {
	Value           wireValue           `json:"value"`
	RampUp          *float64            `json:"rampUp,omitempty"`
	RampUpAllowlist []string            `json:"rampUpAllowlist,omitempty"`
	Note            string              `json:"note,omitempty"`
	Locales         []string            `json:"locales,omitempty"`
	Platforms       []string            `json:"platforms,omitempty"`
	VersionRange    *wireRange          `json:"versionRange,omitempty"`
	Axes            map[string][]string `json:"axes,omitempty"`
	Expression      json.RawMessage     `json:"expression,omitempty"`
}

type wireRange struct {
	Type string       `json:"type"`
	Min  *wireVersion `json:"min,omitempty"`
	Max  *wireVersion `json:"max,omitempty"`
}

type wireVersion struct {
	Major uint64 `json:"major"`
	Minor uint64 `json:"minor"`
	Patch uint64 `json:"patch"`
}

// Range type tags on the wire.
const (
	rangeTagUnbounded = "UNBOUNDED"
	rangeTagMin       = "MIN_BOUND"
	rangeTagMax       = "MAX_BOUND"
	rangeTagBoth      = "FULLY_BOUND"
)
