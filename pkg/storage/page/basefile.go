package page

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"pagekernel/pkg/primitives"
)

// ErrFileClosed is returned by BaseFile operations after Close.
var ErrFileClosed = errors.New("file is closed")

// BaseFile performs page-granular I/O on one table file. Page k occupies
// bytes [k*PageSize, (k+1)*PageSize).
type BaseFile struct {
	file     *os.File
	fileID   primitives.FileID
	mutex    sync.RWMutex
	filePath primitives.Filepath
}

// NewBaseFile opens (creating if needed) the file at filePath. The file id
// is derived from the path.
func NewBaseFile(filePath primitives.Filepath) (*BaseFile, error) {
	if filePath.IsEmpty() {
		return nil, errors.New("filePath cannot be empty")
	}

	file, err := os.OpenFile(string(filePath), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file %s", filePath)
	}

	return &BaseFile{
		file:     file,
		fileID:   filePath.Hash(),
		filePath: filePath,
	}, nil
}

func (bf *BaseFile) GetID() primitives.FileID {
	return bf.fileID
}

func (bf *BaseFile) FilePath() primitives.Filepath {
	return bf.filePath
}

// NumPages counts a trailing partial page as a page.
func (bf *BaseFile) NumPages() (primitives.PageNumber, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	if bf.file == nil {
		return 0, ErrFileClosed
	}
	return bf.numPagesLocked()
}

func (bf *BaseFile) numPagesLocked() (primitives.PageNumber, error) {
	info, err := bf.file.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat %s", bf.filePath)
	}

	n := info.Size() / int64(PageSize)
	if info.Size()%int64(PageSize) != 0 {
		n++
	}
	return primitives.PageNumber(n), nil
}

// ReadPageData returns the PageSize bytes of page pageNo. A trailing partial
// page is zero-filled; a page past the end yields an error wrapping io.EOF.
func (bf *BaseFile) ReadPageData(pageNo primitives.PageNumber) ([]byte, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	if bf.file == nil {
		return nil, ErrFileClosed
	}

	data := make([]byte, PageSize)
	n, err := bf.file.ReadAt(data, int64(pageNo)*int64(PageSize))
	if err == io.EOF && n > 0 {
		return data, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read page %d of %s", pageNo, bf.filePath)
	}
	return data, nil
}

// WritePageData writes and syncs one page image.
func (bf *BaseFile) WritePageData(pageNo primitives.PageNumber, data []byte) error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return ErrFileClosed
	}

	if len(data) != PageSize {
		return errors.Errorf("invalid page data size: expected %d, got %d", PageSize, len(data))
	}

	if _, err := bf.file.WriteAt(data, int64(pageNo)*int64(PageSize)); err != nil {
		return errors.Wrapf(err, "failed to write page %d of %s", pageNo, bf.filePath)
	}

	if err := bf.file.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %s", bf.filePath)
	}
	return nil
}

// AllocateNewPage appends a zeroed page and returns its number.
func (bf *BaseFile) AllocateNewPage() (primitives.PageNumber, error) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return 0, ErrFileClosed
	}

	pageNo, err := bf.numPagesLocked()
	if err != nil {
		return 0, err
	}

	zero := make([]byte, PageSize)
	if _, err := bf.file.WriteAt(zero, int64(pageNo)*int64(PageSize)); err != nil {
		return 0, errors.Wrapf(err, "failed to reserve page %d of %s", pageNo, bf.filePath)
	}

	if err := bf.file.Sync(); err != nil {
		return 0, errors.Wrapf(err, "failed to sync %s after allocation", bf.filePath)
	}

	return pageNo, nil
}

func (bf *BaseFile) Close() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return nil
	}
	err := bf.file.Close()
	bf.file = nil
	return err
}
