package types

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/OneOfOne/xxhash"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
)

// Field is an immutable typed value. The zero Field is invalid and stands
// for "not set".
type Field struct {
	kind Type
	num  int64
	flt  float64
	str  string
}

func NewIntField(v int32) Field {
	return Field{kind: IntType, num: int64(v)}
}

// NewStringField truncates v to at most StringMaxSize bytes, cutting on a
// rune boundary.
func NewStringField(v string) Field {
	if len(v) > StringMaxSize {
		cut := StringMaxSize
		for cut > 0 && !utf8.RuneStart(v[cut]) {
			cut--
		}
		v = v[:cut]
	}
	return Field{kind: StringType, str: v}
}

func NewFloatField(v float64) Field {
	return Field{kind: FloatType, flt: v}
}

func NewBoolField(v bool) Field {
	var n int64
	if v {
		n = 1
	}
	return Field{kind: BoolType, num: n}
}

func (f Field) Type() Type    { return f.kind }
func (f Field) IsValid() bool { return f.kind != InvalidType }

// Length is the serialized width of the value.
func (f Field) Length() uint32 { return f.kind.Size() }

func (f Field) IntValue() int32     { return int32(f.num) }
func (f Field) StringValue() string { return f.str }
func (f Field) FloatValue() float64 { return f.flt }
func (f Field) BoolValue() bool     { return f.num != 0 }

// Serialize writes exactly Length() bytes.
func (f Field) Serialize(w io.Writer) error {
	switch f.kind {
	case IntType:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(int32(f.num)))
		_, err := w.Write(buf[:])
		return err

	case FloatType:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(f.flt))
		_, err := w.Write(buf[:])
		return err

	case BoolType:
		_, err := w.Write([]byte{byte(f.num)})
		return err

	case StringType:
		buf := make([]byte, 4+StringMaxSize)
		binary.BigEndian.PutUint32(buf, uint32(len(f.str)))
		copy(buf[4:], f.str)
		_, err := w.Write(buf)
		return err

	default:
		return dberr.Newf(dberr.ErrSchemaMismatch, "cannot serialize an unset field")
	}
}

// CompareTo is a three-way comparison of two values of the same variant.
func (f Field) CompareTo(other Field) (int, error) {
	if f.kind != other.kind || !f.IsValid() {
		return 0, dberr.Newf(dberr.ErrSchemaMismatch, "cannot compare %s with %s", f.kind, other.kind)
	}

	switch f.kind {
	case FloatType:
		return cmp.Compare(f.flt, other.flt), nil
	case StringType:
		return strings.Compare(f.str, other.str), nil
	default:
		return cmp.Compare(f.num, other.num), nil
	}
}

// Compare evaluates "f op other". LIKE is substring containment for strings
// and equality for every other variant.
func (f Field) Compare(op primitives.Predicate, other Field) (bool, error) {
	if op == primitives.Like && f.kind == StringType && other.kind == StringType {
		return strings.Contains(f.str, other.str), nil
	}

	c, err := f.CompareTo(other)
	if err != nil {
		return false, err
	}

	switch op {
	case primitives.Equals, primitives.Like:
		return c == 0, nil
	case primitives.NotEqual:
		return c != 0, nil
	case primitives.GreaterThan:
		return c > 0, nil
	case primitives.GreaterThanOrEqual:
		return c >= 0, nil
	case primitives.LessThan:
		return c < 0, nil
	case primitives.LessThanOrEqual:
		return c <= 0, nil
	default:
		return false, dberr.Newf(dberr.ErrInvalidArg, "unsupported predicate %d", int(op))
	}
}

func (f Field) Equals(other Field) bool {
	return f == other
}

// Hash is the xxhash of the serialized value, so equal values hash equally.
func (f Field) Hash() primitives.HashCode {
	var buf bytes.Buffer
	if err := f.Serialize(&buf); err != nil {
		return 0
	}
	return primitives.HashCode(xxhash.Checksum64(buf.Bytes()))
}

func (f Field) String() string {
	switch f.kind {
	case IntType:
		return strconv.FormatInt(f.num, 10)
	case StringType:
		return f.str
	case FloatType:
		return strconv.FormatFloat(f.flt, 'g', -1, 64)
	case BoolType:
		return strconv.FormatBool(f.num != 0)
	default:
		return "<unset>"
	}
}
