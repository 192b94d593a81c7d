package iterator

import "pagekernel/pkg/tuple"

// Iterate drives iter until it is exhausted, processFunc returns false, or an
// error occurs. Nil tuples are skipped. The iterator must already be open.
func Iterate(iter TupleIterator, processFunc func(*tuple.Tuple) (continueLooping bool, err error)) error {
	for {
		tup, err := fetch(iter)
		if err != nil {
			return err
		}
		if tup == nil {
			return nil
		}

		more, err := processFunc(tup)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func ForEach(iter TupleIterator, processFunc func(*tuple.Tuple) error) error {
	return Iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		return true, processFunc(tup)
	})
}

// Take returns up to n tuples.
func Take(iter TupleIterator, n int) ([]*tuple.Tuple, error) {
	if n <= 0 {
		return nil, nil
	}
	tuples := make([]*tuple.Tuple, 0, n)
	err := Iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		tuples = append(tuples, tup)
		return len(tuples) < n, nil
	})
	return tuples, err
}

func Reduce[T any](iter TupleIterator, initial T, accumulator func(T, *tuple.Tuple) (T, error)) (T, error) {
	result := initial
	err := Iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		var err error
		result, err = accumulator(result, tup)
		return true, err
	})
	return result, err
}

// Count consumes iter and returns how many tuples it produced.
func Count(iter TupleIterator) (int, error) {
	return Reduce(iter, 0, func(count int, _ *tuple.Tuple) (int, error) {
		return count + 1, nil
	})
}

// Collect consumes iter into a slice.
func Collect(iter TupleIterator) ([]*tuple.Tuple, error) {
	var results []*tuple.Tuple
	err := ForEach(iter, func(tup *tuple.Tuple) error {
		results = append(results, tup)
		return nil
	})
	return results, err
}
