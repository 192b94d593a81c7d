package page

import (
	"pagekernel/pkg/primitives"
)

// PageSize is the size of every page image in bytes, on disk and in memory.
const PageSize = 4096

// Page is a buffer-resident page.
type Page interface {
	GetID() PageDescriptor

	// IsDirty returns the transaction that last dirtied the page, or nil.
	IsDirty() *primitives.TransactionID

	// MarkDirty sets or clears the dirty owner. A new owner replaces the old one.
	MarkDirty(dirty bool, tid *primitives.TransactionID)

	// GetPageData encodes the page into exactly PageSize bytes.
	GetPageData() []byte

	// GetBeforeImage decodes the image captured by the last SetBeforeImage.
	GetBeforeImage() (Page, error)

	// SetBeforeImage captures the current contents as the clean image.
	SetBeforeImage() error
}

// Permissions is the access mode requested when fetching a page; it maps to
// a shared or exclusive page lock.
type Permissions int

const (
	ReadOnly Permissions = iota
	ReadWrite
)

func (p Permissions) String() string {
	if p == ReadWrite {
		return "READ_WRITE"
	}
	return "READ_ONLY"
}

// DbFile is the page-level view of a table's backing file.
type DbFile interface {
	GetID() primitives.FileID
	ReadPage(pid PageDescriptor) (Page, error)
	WritePage(p Page) error
	NumPages() (primitives.PageNumber, error)
	Close() error
}
