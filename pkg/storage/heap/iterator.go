package heap

import (
	"fmt"

	"pagekernel/pkg/tuple"
)

// HeapPageIterator walks the tuples of one page as they were when Open or
// Rewind was called.
type HeapPageIterator struct {
	page         *HeapPage
	tuples       []*tuple.Tuple
	currentIndex int
}

func NewHeapPageIterator(page *HeapPage) *HeapPageIterator {
	return &HeapPageIterator{
		page:         page,
		currentIndex: -1,
	}
}

func (it *HeapPageIterator) Open() error {
	it.tuples = it.page.GetTuples()
	it.currentIndex = -1
	return nil
}

func (it *HeapPageIterator) HasNext() (bool, error) {
	return it.currentIndex+1 < len(it.tuples), nil
}

func (it *HeapPageIterator) Next() (*tuple.Tuple, error) {
	if it.currentIndex+1 >= len(it.tuples) {
		return nil, fmt.Errorf("no more tuples")
	}

	it.currentIndex++
	return it.tuples[it.currentIndex], nil
}

func (it *HeapPageIterator) Rewind() error {
	return it.Open()
}

func (it *HeapPageIterator) Close() error {
	it.tuples = nil
	it.currentIndex = -1
	return nil
}
