package types

import (
	"fmt"
	"strings"
)

// Type is the variant tag of a Field.
type Type int

const (
	InvalidType Type = iota
	IntType
	StringType
	FloatType
	BoolType
)

// StringMaxSize is the number of payload bytes reserved for every string
// value. The serialized width is 4 (length prefix) + StringMaxSize.
const StringMaxSize = 128

func (t Type) String() string {
	switch t {
	case IntType:
		return "INT_TYPE"
	case StringType:
		return "STRING_TYPE"
	case FloatType:
		return "FLOAT_TYPE"
	case BoolType:
		return "BOOL_TYPE"
	default:
		return "INVALID_TYPE"
	}
}

// Size is the fixed serialized width in bytes.
func (t Type) Size() uint32 {
	switch t {
	case IntType:
		return 4
	case StringType:
		return 4 + StringMaxSize
	case FloatType:
		return 8
	case BoolType:
		return 1
	default:
		return 0
	}
}

// ParseType accepts the short names used in schema strings and on the
// command line: int, string, float, bool.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "int_type":
		return IntType, nil
	case "string", "string_type":
		return StringType, nil
	case "float", "float_type":
		return FloatType, nil
	case "bool", "bool_type":
		return BoolType, nil
	default:
		return InvalidType, fmt.Errorf("unknown field type %q", s)
	}
}
