// Package values defines the typed payloads a feature can resolve to.
package values

import "reflect"

// Kind tags the runtime type of a flag value. The string forms are the wire
// format's type tags.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBoolean
	KindString
	KindInt
	KindDouble
	KindEnum
	KindDataClass
)

// String returns the wire tag for the kind.
func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "BOOLEAN"
	case KindString:
		return "STRING"
	case KindInt:
		return "INT"
	case KindDouble:
		return "DOUBLE"
	case KindEnum:
		return "ENUM"
	case KindDataClass:
		return "DATA_CLASS"
	default:
		return "INVALID"
	}
}

// ParseKind maps a wire type tag to its Kind. Unknown tags yield KindInvalid.
func ParseKind(tag string) Kind {
	switch tag {
	case "BOOLEAN":
		return KindBoolean
	case "STRING":
		return KindString
	case "INT":
		return KindInt
	case "DOUBLE":
		return KindDouble
	case "ENUM":
		return KindEnum
	case "DATA_CLASS":
		return KindDataClass
	default:
		return KindInvalid
	}
}

// Value is a typed flag payload. Only the fields relevant to Kind are set;
// values are constructed through the Bool/String/... constructors and are not
// mutated afterwards.
type Value struct {
	Kind Kind

	BoolVal   bool
	StrVal    string // STRING payload, or the ENUM constant name
	IntVal    int64
	DoubleVal float64

	// EnumClass is the trusted enum type tag carried alongside ENUM values.
	EnumClass string

	// DataClass is the trusted type tag of a DATA_CLASS value and Fields its
	// raw field map. Custom holds the strongly-typed value produced by a
	// schema decoder; it is derived state and excluded from equality.
	DataClass string
	Fields    map[string]any
	Custom    any
}

// Bool constructs a BOOLEAN value.
func Bool(v bool) Value { return Value{Kind: KindBoolean, BoolVal: v} }

// String constructs a STRING value.
func String(v string) Value { return Value{Kind: KindString, StrVal: v} }

// Int constructs an INT value.
func Int(v int64) Value { return Value{Kind: KindInt, IntVal: v} }

// Double constructs a DOUBLE value.
func Double(v float64) Value { return Value{Kind: KindDouble, DoubleVal: v} }

// Enum constructs an ENUM value from a constant name and its enum class tag.
func Enum(constant, enumClass string) Value {
	return Value{Kind: KindEnum, StrVal: constant, EnumClass: enumClass}
}

// Object constructs a DATA_CLASS value from a class tag and raw field map.
func Object(dataClass string, fields map[string]any) Value {
	return Value{Kind: KindDataClass, DataClass: dataClass, Fields: fields}
}

// WithCustom returns a copy of a DATA_CLASS value carrying the decoded
// strongly-typed payload.
func (v Value) WithCustom(custom any) Value {
	v.Custom = custom
	return v
}

// IsZero reports whether the value was never constructed.
func (v Value) IsZero() bool { return v.Kind == KindInvalid }

// Any returns the dynamic payload: the decoded Custom value for DATA_CLASS
// when present, otherwise the raw payload for the kind.
func (v Value) Any() any {
	switch v.Kind {
	case KindBoolean:
		return v.BoolVal
	case KindString, KindEnum:
		return v.StrVal
	case KindInt:
		return v.IntVal
	case KindDouble:
		return v.DoubleVal
	case KindDataClass:
		if v.Custom != nil {
			return v.Custom
		}
		return v.Fields
	default:
		return nil
	}
}

// Equal compares two values structurally. Decoded Custom payloads are derived
// from Fields and do not participate.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBoolean:
		return v.BoolVal == o.BoolVal
	case KindString:
		return v.StrVal == o.StrVal
	case KindInt:
		return v.IntVal == o.IntVal
	case KindDouble:
		return v.DoubleVal == o.DoubleVal
	case KindEnum:
		return v.StrVal == o.StrVal && v.EnumClass == o.EnumClass
	case KindDataClass:
		return v.DataClass == o.DataClass && reflect.DeepEqual(v.Fields, o.Fields)
	default:
		return true
	}
}
