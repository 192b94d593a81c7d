package iterator

import "pagekernel/pkg/tuple"

// TupleIterator is the pull half of every iterator: HasNext peeks, Next
// consumes.
type TupleIterator interface {
	HasNext() (bool, error)
	Next() (*tuple.Tuple, error)
}

// DbIterator is the contract shared by all relational operators.
//
// An operator starts Unopened. Open moves it (from Unopened or Closed) to
// Open, opening its children and doing any up-front work such as
// materializing and sorting. HasNext, Next and Rewind are only valid while
// Open and fail with an ITERATOR_STATE error otherwise. Rewind restarts the
// output without re-opening children. Close releases buffers, closes the
// children and may be called any number of times. GetTupleDesc is valid in
// every state.
type DbIterator interface {
	TupleIterator
	Open() error
	Rewind() error
	Close() error
	GetTupleDesc() *tuple.TupleDescription
}

// Operator is a DbIterator that owns child iterators. SetChildren rebuilds
// the operator around the new children and leaves it Unopened.
type Operator interface {
	DbIterator
	GetChildren() []DbIterator
	SetChildren(children []DbIterator) error
}
