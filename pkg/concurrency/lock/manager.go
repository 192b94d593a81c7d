package lock

import (
	"sync"
	"time"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/logging"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/page"
)

const (
	DefaultTimeout       = 2 * time.Second
	DefaultRetryInterval = 5 * time.Millisecond
)

// Manager grants shared and exclusive page locks to transactions.
type Manager struct {
	mutex     sync.Mutex
	pageLocks map[page.PageDescriptor]map[int64]LockType
	txPages   map[int64]map[page.PageDescriptor]struct{}
	depGraph  *DependencyGraph

	timeout       time.Duration
	retryInterval time.Duration
}

// NewManager builds a lock manager. Non-positive durations fall back to
// DefaultTimeout and DefaultRetryInterval.
func NewManager(timeout, retryInterval time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	return &Manager{
		pageLocks:     make(map[page.PageDescriptor]map[int64]LockType),
		txPages:       make(map[int64]map[page.PageDescriptor]struct{}),
		depGraph:      NewDependencyGraph(),
		timeout:       timeout,
		retryInterval: retryInterval,
	}
}

// LockPage blocks until tid holds pid in the requested mode. It fails with a
// LOCK_WAIT_FAILURE error when the wait would deadlock or exceeds the timeout.
func (lm *Manager) LockPage(tid *primitives.TransactionID, pid page.PageDescriptor, exclusive bool) error {
	if tid == nil {
		return dberr.Newf(dberr.ErrInvalidArg, "lock on %s requested without a transaction", pid)
	}

	want := SharedLock
	if exclusive {
		want = ExclusiveLock
	}

	deadline := time.Now().Add(lm.timeout)
	for {
		lm.mutex.Lock()
		if lm.tryAcquire(tid.ID(), pid, want) {
			lm.depGraph.ClearWaits(tid.ID())
			lm.mutex.Unlock()
			return nil
		}

		lm.recordWait(tid.ID(), pid, want)
		if lm.depGraph.HasCycleFrom(tid.ID()) {
			lm.depGraph.ClearWaits(tid.ID())
			lm.mutex.Unlock()
			logging.WithLock(tid.ID(), pid.String()).Warn("deadlock detected", "mode", want.String())
			return dberr.Newf(dberr.ErrLockWait, "deadlock acquiring %s lock on %s for %s", want, pid, tid)
		}
		lm.mutex.Unlock()

		if time.Now().After(deadline) {
			lm.mutex.Lock()
			lm.depGraph.ClearWaits(tid.ID())
			lm.mutex.Unlock()
			logging.WithLock(tid.ID(), pid.String()).Warn("lock wait timed out", "mode", want.String(), "timeout", lm.timeout)
			return dberr.Newf(dberr.ErrLockWait, "timed out after %s waiting for %s lock on %s", lm.timeout, want, pid)
		}
		time.Sleep(lm.retryInterval)
	}
}

// tryAcquire grants the lock if it is compatible with every other holder.
// Caller holds lm.mutex.
func (lm *Manager) tryAcquire(tid int64, pid page.PageDescriptor, want LockType) bool {
	holders := lm.pageLocks[pid]
	if held, ok := holders[tid]; ok && held.covers(want) {
		return true
	}

	for other, mode := range holders {
		if other == tid {
			continue
		}
		if want == ExclusiveLock || mode == ExclusiveLock {
			return false
		}
	}

	// Either a fresh grant or a sole-holder upgrade.
	if holders == nil {
		holders = make(map[int64]LockType)
		lm.pageLocks[pid] = holders
	}
	holders[tid] = want
	if lm.txPages[tid] == nil {
		lm.txPages[tid] = make(map[page.PageDescriptor]struct{})
	}
	lm.txPages[tid][pid] = struct{}{}
	return true
}

// recordWait refreshes tid's wait-for edges toward the conflicting holders of
// pid. Caller holds lm.mutex.
func (lm *Manager) recordWait(tid int64, pid page.PageDescriptor, want LockType) {
	lm.depGraph.ClearWaits(tid)
	for other, mode := range lm.pageLocks[pid] {
		if other == tid {
			continue
		}
		if want == ExclusiveLock || mode == ExclusiveLock {
			lm.depGraph.AddEdge(tid, other)
		}
	}
}

// UnlockAllPages releases every lock tid holds. Unknown or nil ids are a
// no-op.
func (lm *Manager) UnlockAllPages(tid *primitives.TransactionID) {
	if tid == nil {
		return
	}
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	id := tid.ID()
	for pid := range lm.txPages[id] {
		holders := lm.pageLocks[pid]
		delete(holders, id)
		if len(holders) == 0 {
			delete(lm.pageLocks, pid)
		}
	}
	delete(lm.txPages, id)
	lm.depGraph.RemoveTransaction(id)
}

// HoldsLock reports whether tid holds any lock on pid.
func (lm *Manager) HoldsLock(tid *primitives.TransactionID, pid page.PageDescriptor) bool {
	if tid == nil {
		return false
	}
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	_, ok := lm.pageLocks[pid][tid.ID()]
	return ok
}

// LockMode returns the mode tid holds on pid, if any.
func (lm *Manager) LockMode(tid *primitives.TransactionID, pid page.PageDescriptor) (LockType, bool) {
	if tid == nil {
		return SharedLock, false
	}
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	mode, ok := lm.pageLocks[pid][tid.ID()]
	return mode, ok
}

// IsPageLocked reports whether anyone holds a lock on pid.
func (lm *Manager) IsPageLocked(pid page.PageDescriptor) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return len(lm.pageLocks[pid]) > 0
}

// LockedPages lists the pages tid currently holds.
func (lm *Manager) LockedPages(tid *primitives.TransactionID) []page.PageDescriptor {
	if tid == nil {
		return nil
	}
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	out := make([]page.PageDescriptor, 0, len(lm.txPages[tid.ID()]))
	for pid := range lm.txPages[tid.ID()] {
		out = append(out, pid)
	}
	return out
}
