package iterator

import dberr "pagekernel/pkg/error"

// SliceIterator walks a materialized slice. It has no lifecycle: it is ready
// on construction and Rewind just resets the position. Operators that buffer
// their input (sort, join) replay results through it.
type SliceIterator[T any] struct {
	data         []T
	currentIndex int
}

func NewSliceIterator[T any](data []T) *SliceIterator[T] {
	return &SliceIterator[T]{data: data}
}

func (it *SliceIterator[T]) HasNext() bool {
	return it.currentIndex < len(it.data)
}

func (it *SliceIterator[T]) Next() (T, error) {
	var zero T
	if it.currentIndex >= len(it.data) {
		return zero, dberr.Newf(dberr.ErrIteratorState, "no more elements in slice iterator")
	}

	element := it.data[it.currentIndex]
	it.currentIndex++
	return element, nil
}

func (it *SliceIterator[T]) Peek() (T, error) {
	var zero T
	if it.currentIndex >= len(it.data) {
		return zero, dberr.Newf(dberr.ErrIteratorState, "no more elements in slice iterator")
	}
	return it.data[it.currentIndex], nil
}

func (it *SliceIterator[T]) Rewind() {
	it.currentIndex = 0
}

func (it *SliceIterator[T]) Len() int {
	return len(it.data)
}

func (it *SliceIterator[T]) Remaining() int {
	return len(it.data) - it.currentIndex
}

func (it *SliceIterator[T]) GetData() []T {
	return it.data
}
