package query

import (
	"fmt"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/tuple"
	"pagekernel/pkg/types"
)

// Predicate compares one field of a tuple against a constant.
type Predicate struct {
	fieldIndex primitives.ColumnID
	op         primitives.Predicate
	operand    types.Field
}

func NewPredicate(fieldIndex primitives.ColumnID, op primitives.Predicate, operand types.Field) *Predicate {
	return &Predicate{
		fieldIndex: fieldIndex,
		op:         op,
		operand:    operand,
	}
}

// Filter reports whether t satisfies "field op operand".
func (p *Predicate) Filter(t *tuple.Tuple) (bool, error) {
	if t == nil {
		return false, dberr.Newf(dberr.ErrInvalidArg, "cannot filter a nil tuple")
	}

	field, err := t.GetField(p.fieldIndex)
	if err != nil {
		return false, err
	}
	return field.Compare(p.op, p.operand)
}

func (p *Predicate) String() string {
	return fmt.Sprintf("field[%d] %s %s", p.fieldIndex, p.op, p.operand)
}

func (p *Predicate) FieldIndex() primitives.ColumnID {
	return p.fieldIndex
}

func (p *Predicate) Operation() primitives.Predicate {
	return p.op
}

// Value is the constant the field is compared against.
func (p *Predicate) Value() types.Field {
	return p.operand
}
