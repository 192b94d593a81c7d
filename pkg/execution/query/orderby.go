package query

import (
	"fmt"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/iterator"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/tuple"
)

// OrderBy sorts its child's output on one column.
//
// Open drains the child and stable-sorts the buffered tuples, so rows with
// equal keys keep their input order. Rewind replays the sorted buffer
// without touching the child again. The buffer is dropped on Close.
type OrderBy struct {
	*iterator.UnaryOperator
	sortField primitives.ColumnID
	ascending bool
	sorted    *iterator.SliceIterator[*tuple.Tuple]
}

func NewOrderBy(child iterator.DbIterator, sortField primitives.ColumnID, ascending bool) (*OrderBy, error) {
	if child == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "child operator cannot be nil")
	}

	td := child.GetTupleDesc()
	if td == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "child operator has nil tuple descriptor")
	}
	if sortField >= td.NumFields() {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "sort field index %d out of bounds (schema has %d fields)",
			sortField, td.NumFields())
	}

	o := &OrderBy{sortField: sortField, ascending: ascending}
	unary, err := iterator.NewUnaryOperator(child, o.readNext)
	if err != nil {
		return nil, err
	}
	o.UnaryOperator = unary
	return o, nil
}

func (o *OrderBy) Open() error {
	if err := o.UnaryOperator.Open(); err != nil {
		return err
	}

	tuples, err := o.materialize()
	if err != nil {
		o.Close()
		return err
	}
	o.sorted = iterator.NewSliceIterator(tuples)
	return nil
}

func (o *OrderBy) materialize() ([]*tuple.Tuple, error) {
	var tuples []*tuple.Tuple
	for {
		t, err := o.FetchNext()
		if err != nil {
			return nil, fmt.Errorf("error fetching tuple from child: %w", err)
		}
		if t == nil {
			break
		}
		tuples = append(tuples, t)
	}

	if err := tuple.SortByField(tuples, o.sortField, o.ascending); err != nil {
		return nil, fmt.Errorf("error sorting tuples: %w", err)
	}
	return tuples, nil
}

func (o *OrderBy) readNext() (*tuple.Tuple, error) {
	if o.sorted == nil || !o.sorted.HasNext() {
		return nil, nil
	}
	return o.sorted.Next()
}

func (o *OrderBy) Rewind() error {
	if err := o.RewindOutput(); err != nil {
		return err
	}
	o.sorted.Rewind()
	return nil
}

func (o *OrderBy) Close() error {
	o.sorted = nil
	return o.UnaryOperator.Close()
}

func (o *OrderBy) SortField() primitives.ColumnID {
	return o.sortField
}

func (o *OrderBy) Ascending() bool {
	return o.ascending
}

func (o *OrderBy) GetChildren() []iterator.DbIterator {
	return []iterator.DbIterator{o.GetChild()}
}

func (o *OrderBy) SetChildren(children []iterator.DbIterator) error {
	if len(children) != 1 {
		return dberr.Newf(dberr.ErrInvalidArg, "order by takes exactly one child, got %d", len(children))
	}

	child := children[0]
	if child == nil || child.GetTupleDesc() == nil || o.sortField >= child.GetTupleDesc().NumFields() {
		return dberr.Newf(dberr.ErrInvalidArg, "child cannot supply sort field %d", o.sortField)
	}

	unary, err := iterator.NewUnaryOperator(child, o.readNext)
	if err != nil {
		return err
	}
	o.UnaryOperator = unary
	o.sorted = nil
	return nil
}
