package heap

import (
	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/page"
	"pagekernel/pkg/tuple"
)

// HeapFile stores one table as an unordered sequence of HeapPages.
type HeapFile struct {
	*page.BaseFile
	tupleDesc *tuple.TupleDescription
	codec     page.ImageCodec
}

type FileOption func(*HeapFile)

// WithImageCodec selects the codec for before-images of this file's pages.
func WithImageCodec(codec page.ImageCodec) FileOption {
	return func(hf *HeapFile) {
		if codec != nil {
			hf.codec = codec
		}
	}
}

// NewHeapFile opens or creates the table file at filename. The table id is
// derived from the path.
func NewHeapFile(filename primitives.Filepath, td *tuple.TupleDescription, opts ...FileOption) (*HeapFile, error) {
	if td == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "heap file %s needs a schema", filename)
	}

	baseFile, err := page.NewBaseFile(filename)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CodeIOFailure, "OpenFile", "HeapFile")
	}

	hf := &HeapFile{
		BaseFile:  baseFile,
		tupleDesc: td,
		codec:     page.DefaultCodec,
	}
	for _, opt := range opts {
		opt(hf)
	}
	return hf, nil
}

func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

func (hf *HeapFile) Codec() page.ImageCodec {
	return hf.codec
}

// ReadPage reads and decodes an existing page of this file.
func (hf *HeapFile) ReadPage(pid page.PageDescriptor) (page.Page, error) {
	if err := hf.checkOwnership(pid); err != nil {
		return nil, err
	}

	numPages, err := hf.NumPages()
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CodeIOFailure, "ReadPage", "HeapFile")
	}
	if pid.PageNo() >= numPages {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "page %d beyond end of file (%d pages)", pid.PageNo(), numPages)
	}

	data, err := hf.ReadPageData(pid.PageNo())
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CodeIOFailure, "ReadPage", "HeapFile")
	}

	return NewHeapPage(pid, data, hf.tupleDesc, hf.codec)
}

// WritePage writes p's encoded image at its page offset.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return dberr.Newf(dberr.ErrInvalidArg, "page cannot be nil")
	}
	if err := hf.checkOwnership(p.GetID()); err != nil {
		return err
	}

	if err := hf.WritePageData(p.GetID().PageNo(), p.GetPageData()); err != nil {
		return dberr.Wrap(err, dberr.CodeIOFailure, "WritePage", "HeapFile")
	}
	return nil
}

// AddEmptyPage appends a zeroed page and returns its descriptor.
func (hf *HeapFile) AddEmptyPage() (page.PageDescriptor, error) {
	pageNo, err := hf.AllocateNewPage()
	if err != nil {
		return page.PageDescriptor{}, dberr.Wrap(err, dberr.CodeIOFailure, "AddEmptyPage", "HeapFile")
	}
	return page.NewPageDescriptor(hf.GetID(), pageNo), nil
}

// Iterator scans the file's tuples through source under tid.
func (hf *HeapFile) Iterator(tid *primitives.TransactionID, source PageSource) *HeapFileIterator {
	return NewHeapFileIterator(hf, tid, source)
}

func (hf *HeapFile) checkOwnership(pid page.PageDescriptor) error {
	if pid.TableID() != hf.GetID() {
		return dberr.Newf(dberr.ErrInvalidArg, "%s does not belong to table %d", pid, hf.GetID())
	}
	return nil
}
