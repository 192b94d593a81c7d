package query

import (
	"fmt"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/iterator"
	"pagekernel/pkg/memory"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/heap"
	"pagekernel/pkg/tuple"
)

// SequentialScan reads every tuple of a table in storage order. Pages are
// requested read-only from the buffer pool, so the scanning transaction
// takes a shared lock on each page it visits.
type SequentialScan struct {
	*iterator.BaseIterator
	tid     *primitives.TransactionID
	tableID primitives.FileID
	file    *heap.HeapFile
	tupIter *heap.HeapFileIterator
}

func NewSeqScan(tid *primitives.TransactionID, tableID primitives.FileID, tables memory.TableSource, pages heap.PageSource) (*SequentialScan, error) {
	if tables == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "table source cannot be nil")
	}
	if pages == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "page source cannot be nil")
	}

	file, err := tables.GetDbFile(tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get db file for table %d: %w", tableID, err)
	}

	ss := &SequentialScan{
		tid:     tid,
		tableID: tableID,
		file:    file,
		tupIter: file.Iterator(tid, pages),
	}
	ss.BaseIterator = iterator.NewBaseIterator(ss.readNext)
	return ss, nil
}

func (ss *SequentialScan) readNext() (*tuple.Tuple, error) {
	hasNext, err := ss.tupIter.HasNext()
	if err != nil || !hasNext {
		return nil, err
	}
	return ss.tupIter.Next()
}

func (ss *SequentialScan) Open() error {
	if err := ss.tupIter.Open(); err != nil {
		return fmt.Errorf("failed to open file iterator: %w", err)
	}
	ss.MarkOpened()
	return nil
}

func (ss *SequentialScan) Rewind() error {
	if err := ss.BaseIterator.Rewind(); err != nil {
		return err
	}
	return ss.tupIter.Rewind()
}

func (ss *SequentialScan) Close() error {
	err := ss.tupIter.Close()
	ss.BaseIterator.Close()
	return err
}

func (ss *SequentialScan) GetTupleDesc() *tuple.TupleDescription {
	return ss.file.GetTupleDesc()
}

func (ss *SequentialScan) TableID() primitives.FileID {
	return ss.tableID
}
