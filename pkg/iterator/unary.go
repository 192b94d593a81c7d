package iterator

import (
	"fmt"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/tuple"
)

// UnaryOperator is the base for operators with one child. It opens, rewinds
// and closes the child and serves HasNext/Next through a BaseIterator, so an
// embedding operator only supplies its ReadNextFunc.
type UnaryOperator struct {
	base  *BaseIterator
	child DbIterator
}

func NewUnaryOperator(child DbIterator, readNextFunc ReadNextFunc) (*UnaryOperator, error) {
	if child == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "child operator cannot be nil")
	}
	return &UnaryOperator{
		child: child,
		base:  NewBaseIterator(readNextFunc),
	}, nil
}

// FetchNext pulls one tuple from the child, or nil when it is exhausted.
func (u *UnaryOperator) FetchNext() (*tuple.Tuple, error) {
	return fetch(u.child)
}

func (u *UnaryOperator) Open() error {
	if err := u.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}
	u.base.MarkOpened()
	return nil
}

// Close closes the child even if this operator never opened, so it is safe
// on any error path.
func (u *UnaryOperator) Close() error {
	err := u.child.Close()
	u.base.Close()
	return err
}

func (u *UnaryOperator) Rewind() error {
	if err := u.base.Rewind(); err != nil {
		return err
	}
	if err := u.child.Rewind(); err != nil {
		return fmt.Errorf("failed to rewind child operator: %w", err)
	}
	return nil
}

// RewindOutput restarts this operator's own output without touching the
// child. Operators that materialize their input use it to replay.
func (u *UnaryOperator) RewindOutput() error {
	return u.base.Rewind()
}

func (u *UnaryOperator) GetTupleDesc() *tuple.TupleDescription {
	return u.child.GetTupleDesc()
}

func (u *UnaryOperator) HasNext() (bool, error) {
	return u.base.HasNext()
}

func (u *UnaryOperator) Next() (*tuple.Tuple, error) {
	return u.base.Next()
}

func (u *UnaryOperator) State() State {
	return u.base.State()
}

func (u *UnaryOperator) GetChild() DbIterator {
	return u.child
}

// fetch runs the HasNext/Next ceremony on child.
func fetch(child TupleIterator) (*tuple.Tuple, error) {
	hasNext, err := child.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, nil
	}
	return child.Next()
}
