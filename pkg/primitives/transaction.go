package primitives

import (
	"fmt"
	"sync/atomic"
)

var transactionCounter int64

// TransactionID is the opaque token naming the transaction that reads a page
// or owns its dirty state. A nil *TransactionID means "no transaction".
type TransactionID struct {
	id int64
}

// NewTransactionID allocates a process-unique transaction id.
func NewTransactionID() *TransactionID {
	return &TransactionID{id: atomic.AddInt64(&transactionCounter, 1)}
}

func (tid *TransactionID) ID() int64 {
	return tid.id
}

func (tid *TransactionID) String() string {
	if tid == nil {
		return "TID-none"
	}
	return fmt.Sprintf("TID-%d", tid.id)
}

// Equals reports whether both ids name the same transaction. Two nil ids are
// not considered equal.
func (tid *TransactionID) Equals(other *TransactionID) bool {
	if tid == nil || other == nil {
		return false
	}
	return tid.id == other.id
}
