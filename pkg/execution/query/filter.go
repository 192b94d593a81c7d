package query

import (
	"fmt"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/iterator"
	"pagekernel/pkg/tuple"
)

// Filter passes through the child tuples that satisfy its predicate, in
// child order.
type Filter struct {
	*iterator.UnaryOperator
	predicate *Predicate
}

func NewFilter(predicate *Predicate, child iterator.DbIterator) (*Filter, error) {
	if predicate == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "predicate cannot be nil")
	}

	f := &Filter{predicate: predicate}
	unary, err := iterator.NewUnaryOperator(child, f.readNext)
	if err != nil {
		return nil, err
	}
	f.UnaryOperator = unary
	return f, nil
}

func (f *Filter) readNext() (*tuple.Tuple, error) {
	for {
		t, err := f.FetchNext()
		if err != nil || t == nil {
			return t, err
		}

		passes, err := f.predicate.Filter(t)
		if err != nil {
			return nil, fmt.Errorf("predicate evaluation failed: %w", err)
		}
		if passes {
			return t, nil
		}
	}
}

func (f *Filter) Predicate() *Predicate {
	return f.predicate
}

func (f *Filter) GetChildren() []iterator.DbIterator {
	return []iterator.DbIterator{f.GetChild()}
}

func (f *Filter) SetChildren(children []iterator.DbIterator) error {
	if len(children) != 1 {
		return dberr.Newf(dberr.ErrInvalidArg, "filter takes exactly one child, got %d", len(children))
	}

	unary, err := iterator.NewUnaryOperator(children[0], f.readNext)
	if err != nil {
		return err
	}
	f.UnaryOperator = unary
	return nil
}
