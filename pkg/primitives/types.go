package primitives

import "math"

// HashCode is the 64-bit hash of a file path, field value or row.
type HashCode uint64

// FileID identifies a table's backing file. It doubles as the table id
// carried in every page descriptor.
type FileID uint64

// SlotID is the position of a tuple slot within a heap page.
type SlotID uint16

// PageNumber is the zero-based index of a page within its file.
type PageNumber uint64

// ColumnID is the zero-based index of a column within a schema.
type ColumnID uint32

const (
	InvalidFileID FileID = 0

	InvalidColumnID ColumnID = math.MaxUint32
)
