package join

import (
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/tuple"
)

// emitFunc receives one matching (left, right) pair.
type emitFunc func(left, right *tuple.Tuple) error

// sortOrder reports how blocks must be ordered for op. Operators with no
// useful order return sorted=false and are matched by nested loop.
func sortOrder(op primitives.Predicate) (sorted, ascending bool) {
	switch op {
	case primitives.Equals, primitives.LessThan, primitives.LessThanOrEqual:
		return true, true
	case primitives.GreaterThan, primitives.GreaterThanOrEqual:
		return true, false
	default:
		return false, false
	}
}

// sortBlock orders a block on col for op. It is a no-op for nested-loop
// operators.
func sortBlock(block []*tuple.Tuple, col primitives.ColumnID, op primitives.Predicate) error {
	sorted, ascending := sortOrder(op)
	if !sorted {
		return nil
	}
	return tuple.SortByField(block, col, ascending)
}

// mergeBlocks emits every matching pair of one left block and one right
// block. Both blocks must already be ordered by sortBlock.
func mergeBlocks(pred *JoinPredicate, left, right []*tuple.Tuple, emit emitFunc) error {
	switch pred.op {
	case primitives.Equals:
		return mergeEquals(pred, left, right, emit)
	case primitives.GreaterThan, primitives.GreaterThanOrEqual,
		primitives.LessThan, primitives.LessThanOrEqual:
		return mergeInequality(pred, left, right, emit)
	default:
		return nestedLoop(pred, left, right, emit)
	}
}

// mergeEquals walks two ascending blocks. When the left cursor runs off a
// group of equal keys, the right cursor advances and the left cursor returns
// to the start of the group, so the whole group is paired with each equal
// right tuple.
func mergeEquals(pred *JoinPredicate, left, right []*tuple.Tuple, emit emitFunc) error {
	l, r := 0, 0
	runStart := -1

	for l < len(left) && r < len(right) {
		c, err := pred.compare(left[l], right[r])
		if err != nil {
			return err
		}

		switch {
		case c == 0:
			if runStart < 0 {
				runStart = l
			}
			if err := emit(left[l], right[r]); err != nil {
				return err
			}
			l++
			if l == len(left) {
				r++
				l, runStart = runStart, -1
			}
		case c > 0:
			r++
			if runStart >= 0 {
				l, runStart = runStart, -1
			}
		default:
			l++
		}
	}
	return nil
}

// mergeInequality handles <, <=, > and >=. Blocks are sorted so that once
// left[l] satisfies the predicate against right[r], it also satisfies it
// against every later right tuple. A right tuple that fails against left[l]
// fails against every later left tuple too and is skipped.
func mergeInequality(pred *JoinPredicate, left, right []*tuple.Tuple, emit emitFunc) error {
	l, r := 0, 0
	for l < len(left) && r < len(right) {
		ok, err := pred.Filter(left[l], right[r])
		if err != nil {
			return err
		}
		if !ok {
			r++
			continue
		}

		for _, rt := range right[r:] {
			if err := emit(left[l], rt); err != nil {
				return err
			}
		}
		l++
	}
	return nil
}

func nestedLoop(pred *JoinPredicate, left, right []*tuple.Tuple, emit emitFunc) error {
	for _, lt := range left {
		for _, rt := range right {
			ok, err := pred.Filter(lt, rt)
			if err != nil {
				return err
			}
			if ok {
				if err := emit(lt, rt); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
