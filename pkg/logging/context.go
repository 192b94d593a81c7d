package logging

import (
	"log/slog"
)

// WithTx returns a logger carrying the transaction id.
//
//	log := logging.WithTx(tid.ID())
//	log.Debug("flushing", "pages", n)
func WithTx(txID int64) *slog.Logger {
	return GetLogger().With("tx_id", txID)
}

// WithTable returns a logger carrying the table id.
func WithTable(tableID uint64) *slog.Logger {
	return GetLogger().With("table_id", tableID)
}

// WithPage returns a logger carrying the page address. Useful for buffer pool
// and storage operations.
//
//	log := logging.WithPage(uint64(pid.TableID()), uint64(pid.PageNo()))
//	log.Debug("page evicted")
func WithPage(tableID, pageNo uint64) *slog.Logger {
	return GetLogger().With("table_id", tableID, "page_no", pageNo)
}

// WithLock returns a logger carrying the transaction and locked resource.
func WithLock(txID int64, resource string) *slog.Logger {
	return GetLogger().With("tx_id", txID, "resource", resource)
}

// WithComponent returns a logger carrying the subsystem name.
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError returns a logger carrying err's message.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
