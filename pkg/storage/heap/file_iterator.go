package heap

import (
	"fmt"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/page"
	"pagekernel/pkg/tuple"
)

// PageSource hands out buffer-resident pages under a lock. The buffer pool
// implements it.
type PageSource interface {
	GetPage(tid *primitives.TransactionID, pid page.PageDescriptor, perm page.Permissions) (page.Page, error)
}

// HeapFileIterator scans every tuple of a HeapFile page by page, fetching
// each page read-only through a PageSource so that page locks are taken.
type HeapFileIterator struct {
	file        *HeapFile
	tid         *primitives.TransactionID
	source      PageSource
	currentPage primitives.PageNumber
	started     bool
	pageIter    *HeapPageIterator
	isOpen      bool
}

func NewHeapFileIterator(file *HeapFile, tid *primitives.TransactionID, source PageSource) *HeapFileIterator {
	return &HeapFileIterator{
		file:   file,
		tid:    tid,
		source: source,
	}
}

func (it *HeapFileIterator) Open() error {
	it.started = false
	it.currentPage = 0
	it.pageIter = nil
	it.isOpen = true
	return nil
}

func (it *HeapFileIterator) HasNext() (bool, error) {
	if !it.isOpen {
		return false, dberr.Newf(dberr.ErrIteratorState, "heap file iterator not opened")
	}

	for {
		if it.pageIter != nil {
			hasNext, err := it.pageIter.HasNext()
			if err != nil || hasNext {
				return hasNext, err
			}
		}

		more, err := it.moveToNextPage()
		if err != nil || !more {
			return false, err
		}
	}
}

func (it *HeapFileIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, fmt.Errorf("no more tuples")
	}
	return it.pageIter.Next()
}

func (it *HeapFileIterator) Rewind() error {
	if err := it.Close(); err != nil {
		return err
	}
	return it.Open()
}

func (it *HeapFileIterator) Close() error {
	if it.pageIter != nil {
		it.pageIter.Close()
		it.pageIter = nil
	}
	it.isOpen = false
	return nil
}

// moveToNextPage loads the next page of the file. It reports false once
// the file is exhausted.
func (it *HeapFileIterator) moveToNextPage() (bool, error) {
	numPages, err := it.file.NumPages()
	if err != nil {
		return false, dberr.Wrap(err, dberr.CodeIOFailure, "Scan", "HeapFileIterator")
	}

	next := it.currentPage
	if it.started {
		next++
	}
	if next >= numPages {
		it.pageIter = nil
		return false, nil
	}

	pid := page.NewPageDescriptor(it.file.GetID(), next)
	p, err := it.source.GetPage(it.tid, pid, page.ReadOnly)
	if err != nil {
		return false, err
	}

	heapPage, ok := p.(*HeapPage)
	if !ok {
		return false, dberr.Newf(dberr.ErrCorruptPage, "%s is not a heap page", pid)
	}

	it.started = true
	it.currentPage = next
	it.pageIter = NewHeapPageIterator(heapPage)
	return true, it.pageIter.Open()
}
