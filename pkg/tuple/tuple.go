package tuple

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/OneOfOne/xxhash"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/types"
)

// Tuple is a row: one field per column of TupleDesc, plus its storage
// location once it has been placed on a page.
type Tuple struct {
	TupleDesc *TupleDescription
	fields    []types.Field
	RecordID  *RecordID
}

func NewTuple(td *TupleDescription) *Tuple {
	return &Tuple{
		TupleDesc: td,
		fields:    make([]types.Field, td.NumFields()),
	}
}

// SetField rejects values whose variant differs from the column type.
func (t *Tuple) SetField(i primitives.ColumnID, field types.Field) error {
	if int(i) >= len(t.fields) {
		return fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}

	expected := t.TupleDesc.Types[i]
	if field.Type() != expected {
		return dberr.Newf(dberr.ErrSchemaMismatch, "field %d: expected %s, got %s", i, expected, field.Type())
	}

	t.fields[i] = field
	return nil
}

// GetField returns the field at i. Unset fields are the zero Field.
func (t *Tuple) GetField(i primitives.ColumnID) (types.Field, error) {
	if int(i) >= len(t.fields) {
		return types.Field{}, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// IsComplete reports whether every column has a value.
func (t *Tuple) IsComplete() bool {
	for _, f := range t.fields {
		if !f.IsValid() {
			return false
		}
	}
	return true
}

// Equals compares field values; schemas must match and record ids are ignored.
func (t *Tuple) Equals(other *Tuple) bool {
	if other == nil || !t.TupleDesc.Equals(other.TupleDesc) {
		return false
	}
	for i := range t.fields {
		if !t.fields[i].Equals(other.fields[i]) {
			return false
		}
	}
	return true
}

// HashCode folds the field hashes in column order. Equal tuples hash
// equally; the record id is not part of the hash.
func (t *Tuple) HashCode() primitives.HashCode {
	h := xxhash.New64()
	var buf [8]byte
	for _, field := range t.fields {
		binary.BigEndian.PutUint64(buf[:], uint64(field.Hash()))
		h.Write(buf[:])
	}
	return primitives.HashCode(h.Sum64())
}

// String renders the fields tab-separated.
func (t *Tuple) String() string {
	parts := make([]string, len(t.fields))
	for i, field := range t.fields {
		if field.IsValid() {
			parts[i] = field.String()
		} else {
			parts[i] = "null"
		}
	}
	return strings.Join(parts, "\t")
}

// CombineTuples concatenates the fields of left and right under the merged
// schema. Pass the merged schema when the caller already built it, or nil.
func CombineTuples(left, right *Tuple, merged *TupleDescription) (*Tuple, error) {
	if left == nil || right == nil {
		return nil, fmt.Errorf("cannot combine nil tuples")
	}

	if merged == nil {
		merged = Merge(left.TupleDesc, right.TupleDesc)
	}
	if int(merged.NumFields()) != len(left.fields)+len(right.fields) {
		return nil, dberr.Newf(dberr.ErrSchemaMismatch, "merged schema has %d fields, tuples have %d",
			merged.NumFields(), len(left.fields)+len(right.fields))
	}

	out := &Tuple{
		TupleDesc: merged,
		fields:    make([]types.Field, 0, len(left.fields)+len(right.fields)),
	}
	out.fields = append(out.fields, left.fields...)
	out.fields = append(out.fields, right.fields...)
	return out, nil
}

// Clone copies the fields. The copy has no RecordID.
func (t *Tuple) Clone() *Tuple {
	fields := make([]types.Field, len(t.fields))
	copy(fields, t.fields)
	return &Tuple{TupleDesc: t.TupleDesc, fields: fields}
}
