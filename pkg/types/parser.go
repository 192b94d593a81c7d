package types

import (
	"encoding/binary"
	"io"
	"math"

	dberr "pagekernel/pkg/error"
)

// ParseField reads exactly t.Size() bytes from r and decodes them as t.
// Short reads and out-of-range encodings are reported as corrupt data.
func ParseField(r io.Reader, t Type) (Field, error) {
	size := t.Size()
	if size == 0 {
		return Field{}, dberr.Newf(dberr.ErrSchemaMismatch, "cannot parse %s", t)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Field{}, dberr.Newf(dberr.ErrCorruptPage, "short read for %s", t).WithCause(err)
	}

	switch t {
	case IntType:
		return NewIntField(int32(binary.BigEndian.Uint32(buf))), nil

	case FloatType:
		return NewFloatField(math.Float64frombits(binary.BigEndian.Uint64(buf))), nil

	case BoolType:
		if buf[0] > 1 {
			return Field{}, dberr.Newf(dberr.ErrCorruptPage, "invalid bool byte 0x%02x", buf[0])
		}
		return NewBoolField(buf[0] == 1), nil

	default:
		n := binary.BigEndian.Uint32(buf)
		if n > StringMaxSize {
			return Field{}, dberr.Newf(dberr.ErrCorruptPage, "string length %d exceeds %d", n, StringMaxSize)
		}
		return NewStringField(string(buf[4 : 4+n])), nil
	}
}
