package iterator

import (
	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/tuple"
)

// State is an operator's position in its lifecycle.
type State int

const (
	Unopened State = iota
	Opened
	Closed
)

func (s State) String() string {
	switch s {
	case Opened:
		return "OPEN"
	case Closed:
		return "CLOSED"
	default:
		return "UNOPENED"
	}
}

// ReadNextFunc produces the next output tuple, or nil once the source is
// exhausted.
type ReadNextFunc func() (*tuple.Tuple, error)

// BaseIterator holds the lifecycle state and the one-tuple lookahead shared
// by all operators. Operators supply a ReadNextFunc and let BaseIterator
// answer HasNext and Next.
type BaseIterator struct {
	nextTuple    *tuple.Tuple
	state        State
	readNextFunc ReadNextFunc
}

func NewBaseIterator(readNextFunc ReadNextFunc) *BaseIterator {
	return &BaseIterator{readNextFunc: readNextFunc}
}

func (it *BaseIterator) State() State {
	return it.state
}

func (it *BaseIterator) checkOpen(op string) error {
	if it.state != Opened {
		return dberr.Newf(dberr.ErrIteratorState, "%s called on %s iterator", op, it.state)
	}
	return nil
}

func (it *BaseIterator) HasNext() (bool, error) {
	if err := it.checkOpen("HasNext"); err != nil {
		return false, err
	}

	if it.nextTuple == nil {
		var err error
		it.nextTuple, err = it.readNextFunc()
		if err != nil {
			return false, err
		}
	}
	return it.nextTuple != nil, nil
}

// Next fails with ITERATOR_STATE when nothing is pending.
func (it *BaseIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, dberr.Newf(dberr.ErrIteratorState, "no more tuples")
	}

	result := it.nextTuple
	it.nextTuple = nil
	return result, nil
}

// MarkOpened moves the iterator to Open with an empty lookahead.
func (it *BaseIterator) MarkOpened() {
	it.state = Opened
	it.nextTuple = nil
}

// Rewind drops the lookahead. The caller restarts its own source.
func (it *BaseIterator) Rewind() error {
	if err := it.checkOpen("Rewind"); err != nil {
		return err
	}
	it.nextTuple = nil
	return nil
}

func (it *BaseIterator) Close() error {
	it.nextTuple = nil
	it.state = Closed
	return nil
}

// Reset returns the iterator to Unopened.
func (it *BaseIterator) Reset() {
	it.nextTuple = nil
	it.state = Unopened
}
