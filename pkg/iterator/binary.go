package iterator

import (
	"errors"
	"fmt"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/tuple"
)

// BinaryOperator is the base for operators with two children, such as joins.
// It owns the lifecycle of both children and delegates the state machine to
// a BaseIterator driven by the embedding operator's readNext function.
//
// Embedding operators must still provide GetTupleDesc, since the output
// schema depends on how the children are combined.
type BinaryOperator struct {
	base       *BaseIterator
	leftChild  DbIterator
	rightChild DbIterator
}

// NewBinaryOperator wires the two children to readNextFunc. Both children
// are required.
//
// Parameters:
//   - leftChild, rightChild: the operator's inputs, owned by it from now on
//   - readNextFunc: produces the next output tuple, nil at the end
//
// Returns an INVALID_ARGUMENT error when either child is nil.
func NewBinaryOperator(leftChild, rightChild DbIterator, readNextFunc ReadNextFunc) (*BinaryOperator, error) {
	if leftChild == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "left child operator cannot be nil")
	}
	if rightChild == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "right child operator cannot be nil")
	}

	return &BinaryOperator{
		leftChild:  leftChild,
		rightChild: rightChild,
		base:       NewBaseIterator(readNextFunc),
	}, nil
}

// FetchLeft pulls the next tuple from the left child, nil once it is
// exhausted.
func (b *BinaryOperator) FetchLeft() (*tuple.Tuple, error) {
	t, err := fetch(b.leftChild)
	if err != nil {
		return nil, fmt.Errorf("error fetching left child tuple: %w", err)
	}
	return t, nil
}

// FetchRight pulls the next tuple from the right child, nil once it is
// exhausted.
func (b *BinaryOperator) FetchRight() (*tuple.Tuple, error) {
	t, err := fetch(b.rightChild)
	if err != nil {
		return nil, fmt.Errorf("error fetching right child tuple: %w", err)
	}
	return t, nil
}

// Open opens both children. If the right child fails the left one is closed
// again.
func (b *BinaryOperator) Open() error {
	if err := b.leftChild.Open(); err != nil {
		return fmt.Errorf("failed to open left child: %w", err)
	}
	if err := b.rightChild.Open(); err != nil {
		b.leftChild.Close()
		return fmt.Errorf("failed to open right child: %w", err)
	}

	b.base.MarkOpened()
	return nil
}

// Close closes both children and moves the operator to Closed. Every child
// is closed even if one fails; the errors are joined.
func (b *BinaryOperator) Close() error {
	var errs []error
	if err := b.leftChild.Close(); err != nil {
		errs = append(errs, fmt.Errorf("left child close: %w", err))
	}
	if err := b.rightChild.Close(); err != nil {
		errs = append(errs, fmt.Errorf("right child close: %w", err))
	}
	b.base.Close()
	return errors.Join(errs...)
}

// Rewind restarts the operator's output and rewinds both children. It is
// only valid while Open.
func (b *BinaryOperator) Rewind() error {
	if err := b.base.Rewind(); err != nil {
		return err
	}
	if err := b.leftChild.Rewind(); err != nil {
		return fmt.Errorf("failed to rewind left child: %w", err)
	}
	if err := b.rightChild.Rewind(); err != nil {
		return fmt.Errorf("failed to rewind right child: %w", err)
	}
	return nil
}

// RewindOutput restarts this operator's own output without touching the
// children.
func (b *BinaryOperator) RewindOutput() error {
	return b.base.Rewind()
}

// HasNext reports whether Next will return a tuple without consuming it.
func (b *BinaryOperator) HasNext() (bool, error) {
	return b.base.HasNext()
}

// Next returns the next output tuple.
func (b *BinaryOperator) Next() (*tuple.Tuple, error) {
	return b.base.Next()
}

// State is the operator's position in the Unopened/Open/Closed lifecycle.
func (b *BinaryOperator) State() State {
	return b.base.State()
}

// GetLeftChild returns the left input.
func (b *BinaryOperator) GetLeftChild() DbIterator {
	return b.leftChild
}

// GetRightChild returns the right input.
func (b *BinaryOperator) GetRightChild() DbIterator {
	return b.rightChild
}
