package iterator

import "pagekernel/pkg/tuple"

// TupleSliceIterator is a leaf DbIterator over an in-memory list of tuples.
// It follows the full operator lifecycle.
type TupleSliceIterator struct {
	*BaseIterator
	td     *tuple.TupleDescription
	tuples *SliceIterator[*tuple.Tuple]
}

func NewTupleSliceIterator(td *tuple.TupleDescription, tuples []*tuple.Tuple) *TupleSliceIterator {
	it := &TupleSliceIterator{
		td:     td,
		tuples: NewSliceIterator(tuples),
	}
	it.BaseIterator = NewBaseIterator(it.readNext)
	return it
}

func (it *TupleSliceIterator) readNext() (*tuple.Tuple, error) {
	if !it.tuples.HasNext() {
		return nil, nil
	}
	return it.tuples.Next()
}

func (it *TupleSliceIterator) Open() error {
	it.tuples.Rewind()
	it.MarkOpened()
	return nil
}

func (it *TupleSliceIterator) Rewind() error {
	if err := it.BaseIterator.Rewind(); err != nil {
		return err
	}
	it.tuples.Rewind()
	return nil
}

func (it *TupleSliceIterator) GetTupleDesc() *tuple.TupleDescription {
	return it.td
}
