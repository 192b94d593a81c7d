package error

import "errors"

const (
	CodeSchemaMismatch = "SCHEMA_MISMATCH"
	CodeSlotState      = "SLOT_STATE"
	CodeIteratorState  = "ITERATOR_STATE"
	CodeLockWait       = "LOCK_WAIT_FAILURE"
	CodeCorruptPage    = "CORRUPT_PAGE_DATA"
	CodeNotFound       = "NOT_FOUND"
	CodeIOFailure      = "IO_FAILURE"
	CodeBufferPoolFull = "BUFFER_POOL_FULL"
	CodeInvalidArg     = "INVALID_ARGUMENT"
)

// Sentinels for errors.Is. Use Newf to build an instance with detail.
var (
	ErrSchemaMismatch = New(ErrCategoryUser, CodeSchemaMismatch, "schema mismatch")
	ErrSlotState      = New(ErrCategoryUser, CodeSlotState, "invalid slot state")
	ErrIteratorState  = New(ErrCategoryUser, CodeIteratorState, "invalid iterator state")
	ErrLockWait       = New(ErrCategoryConcurrency, CodeLockWait, "lock wait failed")
	ErrCorruptPage    = New(ErrCategoryData, CodeCorruptPage, "corrupt page data")
	ErrNotFound       = New(ErrCategoryUser, CodeNotFound, "not found")
	ErrIOFailure      = New(ErrCategorySystem, CodeIOFailure, "i/o failure")
	ErrBufferPoolFull = New(ErrCategoryTransient, CodeBufferPoolFull, "buffer pool full")
	ErrInvalidArg     = New(ErrCategoryUser, CodeInvalidArg, "invalid argument")
)

// CodeOf returns the code of the first DBError in err's chain, or "".
func CodeOf(err error) string {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Code
	}
	return ""
}
