package transaction

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"
	"time"

	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/page"
)

// Status is the lifecycle state of a transaction.
type Status int

const (
	TxActive Status = iota
	TxCommitting
	TxAborting
	TxCommitted
	TxAborted
)

func (s Status) String() string {
	switch s {
	case TxActive:
		return "ACTIVE"
	case TxCommitting:
		return "COMMITTING"
	case TxAborting:
		return "ABORTING"
	case TxCommitted:
		return "COMMITTED"
	case TxAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

type Stats struct {
	PagesRead     int
	PagesWritten  int
	TuplesWritten int
	TuplesDeleted int
	TouchedPages  int
	DirtyPages    int
}

// Context records what one transaction has done to the buffer pool: the pages
// it fetched, the pages it dirtied and a few counters.
type Context struct {
	ID *primitives.TransactionID

	status    Status
	startTime time.Time
	endTime   time.Time
	mutex     sync.RWMutex

	touched map[page.PageDescriptor]page.Permissions
	dirty   map[page.PageDescriptor]struct{}

	pagesRead     int
	pagesWritten  int
	tuplesWritten int
	tuplesDeleted int
}

func NewContext(tid *primitives.TransactionID) *Context {
	return &Context{
		ID:        tid,
		status:    TxActive,
		startTime: time.Now(),
		touched:   make(map[page.PageDescriptor]page.Permissions),
		dirty:     make(map[page.PageDescriptor]struct{}),
	}
}

func (tc *Context) IsActive() bool {
	return tc.Status() == TxActive
}

func (tc *Context) Status() Status {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.status
}

// SetStatus moves the transaction to status. Terminal states stamp the end
// time.
func (tc *Context) SetStatus(status Status) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.status = status
	if status == TxCommitted || status == TxAborted {
		tc.endTime = time.Now()
	}
}

// RecordPageAccess notes that the transaction fetched pid. A read-write
// access is never downgraded by a later read-only one.
func (tc *Context) RecordPageAccess(pid page.PageDescriptor, perm page.Permissions) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	existing, seen := tc.touched[pid]
	if seen && existing == page.ReadWrite {
		return
	}
	tc.touched[pid] = perm
	if !seen && perm == page.ReadOnly {
		tc.pagesRead++
	}
}

func (tc *Context) MarkPageDirty(pid page.PageDescriptor) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if _, ok := tc.dirty[pid]; !ok {
		tc.dirty[pid] = struct{}{}
		tc.pagesWritten++
	}
}

// DirtyPages returns the dirtied pages in a stable order.
func (tc *Context) DirtyPages() []page.PageDescriptor {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return sortedPages(maps.Keys(tc.dirty))
}

// TouchedPages returns every page the transaction fetched, in a stable order.
func (tc *Context) TouchedPages() []page.PageDescriptor {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return sortedPages(maps.Keys(tc.touched))
}

func (tc *Context) PagePermission(pid page.PageDescriptor) (perm page.Permissions, ok bool) {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	perm, ok = tc.touched[pid]
	return
}

func (tc *Context) RecordTupleWrite() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tuplesWritten++
}

func (tc *Context) RecordTupleDelete() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tuplesDeleted++
}

func (tc *Context) Statistics() Stats {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	return Stats{
		PagesRead:     tc.pagesRead,
		PagesWritten:  tc.pagesWritten,
		TuplesWritten: tc.tuplesWritten,
		TuplesDeleted: tc.tuplesDeleted,
		TouchedPages:  len(tc.touched),
		DirtyPages:    len(tc.dirty),
	}
}

// Duration is how long the transaction ran, or has been running so far.
func (tc *Context) Duration() time.Duration {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.durationLocked()
}

func (tc *Context) durationLocked() time.Duration {
	end := tc.endTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(tc.startTime)
}

func (tc *Context) String() string {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	return fmt.Sprintf("Transaction %s [Status=%s, Duration=%v, Dirty=%d, Touched=%d]",
		tc.ID, tc.status, tc.durationLocked(), len(tc.dirty), len(tc.touched))
}

func sortedPages(seq iter.Seq[page.PageDescriptor]) []page.PageDescriptor {
	out := slices.Collect(seq)
	slices.SortFunc(out, func(a, b page.PageDescriptor) int {
		if c := cmp.Compare(a.TableID(), b.TableID()); c != 0 {
			return c
		}
		return cmp.Compare(a.PageNo(), b.PageNo())
	})
	return out
}
