package join

import (
	"fmt"

	"pagekernel/pkg/config"
	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/iterator"
	"pagekernel/pkg/logging"
	"pagekernel/pkg/tuple"
)

// Join is a blocked sort-merge join.
//
// Open reads the left child one block at a time. For each left block the
// right child is rewound and read block by block; every (left block, right
// block) pair is sorted on the join columns and merged. Block capacity is the
// block memory divided by the tuple width of that side. The result is
// materialized and served lazily; Rewind rewinds both children and computes
// it again.
//
// Output is grouped by block pair. Within a pair, EQUALS and <, <= emit in
// ascending key order, > and >= in descending order. NOT_EQUALS and LIKE are
// matched by nested loop in child order.
type Join struct {
	*iterator.BinaryOperator
	predicate   *JoinPredicate
	tupleDesc   *tuple.TupleDescription
	blockMemory int
	results     *iterator.SliceIterator[*tuple.Tuple]
}

// Option configures a Join.
type Option func(*Join)

// WithBlockMemory sets the bytes each side may buffer per block. Values
// below one are ignored.
func WithBlockMemory(bytes int) Option {
	return func(j *Join) {
		if bytes > 0 {
			j.blockMemory = bytes
		}
	}
}

func NewJoin(predicate *JoinPredicate, leftChild, rightChild iterator.DbIterator, opts ...Option) (*Join, error) {
	if predicate == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "join predicate cannot be nil")
	}

	j := &Join{
		predicate:   predicate,
		blockMemory: config.DefaultJoinBlockMemory,
	}
	for _, opt := range opts {
		opt(j)
	}

	if err := j.attach(leftChild, rightChild); err != nil {
		return nil, err
	}
	return j, nil
}

// attach validates the children against the predicate and builds a fresh,
// unopened operator around them.
func (j *Join) attach(leftChild, rightChild iterator.DbIterator) error {
	binary, err := iterator.NewBinaryOperator(leftChild, rightChild, j.readNext)
	if err != nil {
		return err
	}

	leftTd, rightTd := leftChild.GetTupleDesc(), rightChild.GetTupleDesc()
	if leftTd == nil || rightTd == nil {
		return dberr.Newf(dberr.ErrInvalidArg, "child operators must have tuple descriptors")
	}
	if err := j.predicate.validate(leftTd, rightTd); err != nil {
		return err
	}

	j.BinaryOperator = binary
	j.tupleDesc = tuple.Merge(leftTd, rightTd)
	j.results = nil
	return nil
}

func (j *Join) Open() error {
	if err := j.BinaryOperator.Open(); err != nil {
		return err
	}
	if err := j.compute(); err != nil {
		j.Close()
		return err
	}
	return nil
}

func (j *Join) Rewind() error {
	if err := j.BinaryOperator.Rewind(); err != nil {
		return err
	}
	return j.compute()
}

func (j *Join) Close() error {
	j.results = nil
	return j.BinaryOperator.Close()
}

func (j *Join) readNext() (*tuple.Tuple, error) {
	if j.results == nil || !j.results.HasNext() {
		return nil, nil
	}
	return j.results.Next()
}

// compute runs the block loops over both children and materializes every
// joined tuple.
func (j *Join) compute() error {
	leftCap := blockCapacity(j.blockMemory, j.GetLeftChild().GetTupleDesc())
	rightCap := blockCapacity(j.blockMemory, j.GetRightChild().GetTupleDesc())

	var out []*tuple.Tuple
	emit := func(l, r *tuple.Tuple) error {
		combined, err := tuple.CombineTuples(l, r, j.tupleDesc)
		if err != nil {
			return err
		}
		out = append(out, combined)
		return nil
	}

	leftBlocks, pairs := 0, 0
	for {
		leftBlock, err := fillBlock(j.FetchLeft, leftCap)
		if err != nil {
			return err
		}
		if len(leftBlock) == 0 {
			break
		}
		leftBlocks++

		if err := sortBlock(leftBlock, j.predicate.leftField, j.predicate.op); err != nil {
			return fmt.Errorf("failed to sort left block: %w", err)
		}
		if err := j.GetRightChild().Rewind(); err != nil {
			return fmt.Errorf("failed to rewind right child: %w", err)
		}

		for {
			rightBlock, err := fillBlock(j.FetchRight, rightCap)
			if err != nil {
				return err
			}
			if len(rightBlock) == 0 {
				break
			}
			pairs++

			if err := sortBlock(rightBlock, j.predicate.rightField, j.predicate.op); err != nil {
				return fmt.Errorf("failed to sort right block: %w", err)
			}
			if err := mergeBlocks(j.predicate, leftBlock, rightBlock, emit); err != nil {
				return err
			}
			if len(rightBlock) < rightCap {
				break
			}
		}

		if len(leftBlock) < leftCap {
			break
		}
	}

	logging.WithComponent("join").Debug("join materialized",
		"predicate", j.predicate.String(),
		"left_blocks", leftBlocks,
		"block_pairs", pairs,
		"rows", len(out))

	j.results = iterator.NewSliceIterator(out)
	return nil
}

// blockCapacity is how many tuples of td fit in blockMemory bytes, at least
// one.
func blockCapacity(blockMemory int, td *tuple.TupleDescription) int {
	size := int(td.GetSize())
	if size <= 0 || blockMemory < size {
		return 1
	}
	return blockMemory / size
}

// fillBlock pulls up to capacity tuples with fetch. A short block means the
// source is exhausted.
func fillBlock(fetch iterator.ReadNextFunc, capacity int) ([]*tuple.Tuple, error) {
	block := make([]*tuple.Tuple, 0, min(capacity, 1024))
	for len(block) < capacity {
		t, err := fetch()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		block = append(block, t)
	}
	return block, nil
}

func (j *Join) GetTupleDesc() *tuple.TupleDescription {
	return j.tupleDesc
}

func (j *Join) Predicate() *JoinPredicate {
	return j.predicate
}

func (j *Join) BlockMemory() int {
	return j.blockMemory
}

func (j *Join) GetChildren() []iterator.DbIterator {
	return []iterator.DbIterator{j.GetLeftChild(), j.GetRightChild()}
}

// SetChildren replaces both children and leaves the join Unopened.
func (j *Join) SetChildren(children []iterator.DbIterator) error {
	if len(children) != 2 {
		return dberr.Newf(dberr.ErrInvalidArg, "join takes exactly two children, got %d", len(children))
	}
	return j.attach(children[0], children[1])
}
