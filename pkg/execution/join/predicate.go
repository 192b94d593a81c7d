package join

import (
	"fmt"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/tuple"
)

// JoinPredicate compares a field of a left tuple with a field of a right
// tuple.
type JoinPredicate struct {
	leftField  primitives.ColumnID
	rightField primitives.ColumnID
	op         primitives.Predicate
}

func NewJoinPredicate(leftField primitives.ColumnID, op primitives.Predicate, rightField primitives.ColumnID) (*JoinPredicate, error) {
	if op < primitives.Equals || op > primitives.Like {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "unsupported join operator %d", int(op))
	}

	return &JoinPredicate{
		leftField:  leftField,
		rightField: rightField,
		op:         op,
	}, nil
}

// Filter reports whether "left.leftField op right.rightField" holds.
func (jp *JoinPredicate) Filter(left, right *tuple.Tuple) (bool, error) {
	if left == nil || right == nil {
		return false, dberr.Newf(dberr.ErrInvalidArg, "tuples cannot be nil")
	}

	l, err := left.GetField(jp.leftField)
	if err != nil {
		return false, fmt.Errorf("failed to get field %d from left tuple: %w", jp.leftField, err)
	}
	r, err := right.GetField(jp.rightField)
	if err != nil {
		return false, fmt.Errorf("failed to get field %d from right tuple: %w", jp.rightField, err)
	}
	return l.Compare(jp.op, r)
}

// compare is the three-way comparison of the two join columns.
func (jp *JoinPredicate) compare(left, right *tuple.Tuple) (int, error) {
	l, err := left.GetField(jp.leftField)
	if err != nil {
		return 0, err
	}
	r, err := right.GetField(jp.rightField)
	if err != nil {
		return 0, err
	}
	return l.CompareTo(r)
}

// validate checks that both columns exist and hold the same type.
func (jp *JoinPredicate) validate(left, right *tuple.TupleDescription) error {
	if jp.leftField >= left.NumFields() {
		return dberr.Newf(dberr.ErrInvalidArg, "left join field %d out of bounds (schema has %d fields)", jp.leftField, left.NumFields())
	}
	if jp.rightField >= right.NumFields() {
		return dberr.Newf(dberr.ErrInvalidArg, "right join field %d out of bounds (schema has %d fields)", jp.rightField, right.NumFields())
	}

	lt, _ := left.TypeAtIndex(jp.leftField)
	rt, _ := right.TypeAtIndex(jp.rightField)
	if lt != rt {
		return dberr.Newf(dberr.ErrSchemaMismatch, "cannot join %s column with %s column", lt, rt)
	}
	return nil
}

func (jp *JoinPredicate) String() string {
	return fmt.Sprintf("left[%d] %s right[%d]", jp.leftField, jp.op, jp.rightField)
}

func (jp *JoinPredicate) LeftField() primitives.ColumnID {
	return jp.leftField
}

func (jp *JoinPredicate) RightField() primitives.ColumnID {
	return jp.rightField
}

func (jp *JoinPredicate) Operation() primitives.Predicate {
	return jp.op
}
