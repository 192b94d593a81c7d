package tuple

import (
	"fmt"
	"strings"

	"pagekernel/pkg/primitives"
	"pagekernel/pkg/types"
)

// TupleDescription is a row schema: an ordered list of column types with
// optional column names.
type TupleDescription struct {
	Types      []types.Type
	FieldNames []string
}

// NewTupleDesc copies its arguments. fieldNames may be nil; otherwise it must
// match fieldTypes in length.
func NewTupleDesc(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	if len(fieldTypes) < 1 {
		return nil, fmt.Errorf("must provide at least one field type")
	}

	for i, t := range fieldTypes {
		if t.Size() == 0 {
			return nil, fmt.Errorf("field %d has invalid type %s", i, t)
		}
	}

	typesCopy := make([]types.Type, len(fieldTypes))
	copy(typesCopy, fieldTypes)

	var namesCopy []string
	if fieldNames != nil {
		if len(fieldNames) != len(fieldTypes) {
			return nil, fmt.Errorf("field names length (%d) must match field types length (%d)",
				len(fieldNames), len(fieldTypes))
		}
		namesCopy = make([]string, len(fieldNames))
		copy(namesCopy, fieldNames)
	}

	return &TupleDescription{
		Types:      typesCopy,
		FieldNames: namesCopy,
	}, nil
}

func (td *TupleDescription) NumFields() primitives.ColumnID {
	return primitives.ColumnID(len(td.Types))
}

// GetFieldName returns "" for unnamed schemas.
func (td *TupleDescription) GetFieldName(i primitives.ColumnID) (string, error) {
	if i >= td.NumFields() {
		return "", fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}

	if td.FieldNames == nil {
		return "", nil
	}
	return td.FieldNames[i], nil
}

func (td *TupleDescription) TypeAtIndex(i primitives.ColumnID) (types.Type, error) {
	if i >= td.NumFields() {
		return types.InvalidType, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	return td.Types[i], nil
}

// GetSize is the serialized width of one tuple in bytes.
func (td *TupleDescription) GetSize() uint32 {
	var size uint32
	for _, fieldType := range td.Types {
		size += fieldType.Size()
	}
	return size
}

// Equals compares column types position by position. Names are ignored.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if td == other {
		return true
	}
	if td == nil || other == nil || len(td.Types) != len(other.Types) {
		return false
	}

	for i, fieldType := range td.Types {
		if fieldType != other.Types[i] {
			return false
		}
	}
	return true
}

func (td *TupleDescription) String() string {
	parts := make([]string, len(td.Types))
	for i, fieldType := range td.Types {
		name := "null"
		if td.FieldNames != nil {
			name = td.FieldNames[i]
		}
		parts[i] = fmt.Sprintf("%s(%s)", fieldType, name)
	}
	return strings.Join(parts, ",")
}

func (td *TupleDescription) FindFieldIndex(fieldName string) (primitives.ColumnID, error) {
	for i, name := range td.FieldNames {
		if name == fieldName {
			return primitives.ColumnID(i), nil
		}
	}
	return primitives.InvalidColumnID, fmt.Errorf("column %s not found", fieldName)
}

// Merge concatenates two schemas, left columns first. Missing names on one
// side become empty strings when the other side is named.
func Merge(left, right *TupleDescription) *TupleDescription {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}

	newTypes := make([]types.Type, 0, len(left.Types)+len(right.Types))
	newTypes = append(newTypes, left.Types...)
	newTypes = append(newTypes, right.Types...)

	var names []string
	if left.FieldNames != nil || right.FieldNames != nil {
		names = make([]string, 0, len(newTypes))
		names = append(names, namesOrBlank(left)...)
		names = append(names, namesOrBlank(right)...)
	}

	return &TupleDescription{Types: newTypes, FieldNames: names}
}

func namesOrBlank(td *TupleDescription) []string {
	if td.FieldNames != nil {
		return td.FieldNames
	}
	return make([]string, len(td.Types))
}
