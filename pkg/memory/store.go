package memory

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"pagekernel/pkg/concurrency/lock"
	"pagekernel/pkg/concurrency/transaction"
	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/logging"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/heap"
	"pagekernel/pkg/storage/page"
	"pagekernel/pkg/tuple"
)

// DefaultCapacity is the number of pages a PageStore caches when none is
// configured.
const DefaultCapacity = 50

// TableSource resolves a table id to its heap file.
type TableSource interface {
	GetDbFile(tableID primitives.FileID) (*heap.HeapFile, error)
}

// PageStore is the buffer pool. Every page access goes through GetPage, which
// takes the page lock before touching the cache. Dirty pages stay in memory
// until their transaction completes (NO-STEAL); commit forces them to disk and
// abort swaps in their before-images.
//
// A page written early by FlushPages or FlushAllPages stays pinned until its
// owner completes, so an abort can still restore it in cache and on disk.
type PageStore struct {
	tables       TableSource
	lockManager  *lock.Manager
	transactions *transaction.Registry
	cache        *LRUPageCache
	capacity     int
	pinned       map[page.PageDescriptor]*primitives.TransactionID
	mutex        sync.Mutex
}

// NewPageStore builds a buffer pool holding at most capacity pages. A
// non-positive capacity means DefaultCapacity.
func NewPageStore(tables TableSource, lm *lock.Manager, capacity int) *PageStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &PageStore{
		tables:       tables,
		lockManager:  lm,
		transactions: transaction.NewRegistry(),
		cache:        NewLRUPageCache(capacity),
		capacity:     capacity,
		pinned:       make(map[page.PageDescriptor]*primitives.TransactionID),
	}
}

// Transactions exposes the registry of transactions that touched the pool.
func (p *PageStore) Transactions() *transaction.Registry {
	return p.transactions
}

// GetPage returns pid for tid, locking it shared for ReadOnly and exclusive
// for ReadWrite. On a miss the page is read from its heap file, evicting the
// least recently used clean page if the pool is full.
func (p *PageStore) GetPage(tid *primitives.TransactionID, pid page.PageDescriptor, perm page.Permissions) (page.Page, error) {
	if err := p.lockManager.LockPage(tid, pid, perm == page.ReadWrite); err != nil {
		return nil, err
	}
	p.transactions.GetOrCreate(tid).RecordPageAccess(pid, perm)

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if pg, ok := p.cache.Get(pid); ok {
		return pg, nil
	}

	if p.cache.Size() >= p.capacity {
		if err := p.evictPage(); err != nil {
			return nil, err
		}
	}

	file, err := p.tables.GetDbFile(pid.TableID())
	if err != nil {
		return nil, err
	}
	pg, err := file.ReadPage(pid)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Put(pid, pg); err != nil {
		return nil, err
	}
	return pg, nil
}

// evictPage drops the least recently used clean page. Dirty and pinned pages
// are never evicted. Caller holds p.mutex.
func (p *PageStore) evictPage() error {
	for _, pid := range p.cache.GetAll() {
		pg, ok := p.cache.Peek(pid)
		if !ok || pg.IsDirty() != nil {
			continue
		}
		if _, pinned := p.pinned[pid]; pinned {
			continue
		}
		p.cache.Remove(pid)
		logging.WithPage(uint64(pid.TableID()), uint64(pid.PageNo())).Debug("page evicted")
		return nil
	}
	return dberr.Newf(dberr.ErrBufferPoolFull, "all %d cached pages are dirty or pinned", p.cache.Size())
}

// InsertTuple places t on the first page of tableID with a free slot,
// appending a new page when every existing one is full. The page is marked
// dirty for tid.
func (p *PageStore) InsertTuple(tid *primitives.TransactionID, tableID primitives.FileID, t *tuple.Tuple) error {
	if t == nil {
		return dberr.Newf(dberr.ErrInvalidArg, "cannot insert a nil tuple")
	}
	file, err := p.tables.GetDbFile(tableID)
	if err != nil {
		return err
	}
	if !t.TupleDesc.Equals(file.GetTupleDesc()) {
		return dberr.Newf(dberr.ErrSchemaMismatch, "tuple schema %s does not match table schema %s",
			t.TupleDesc, file.GetTupleDesc())
	}

	hp, err := p.findPageWithRoom(tid, file)
	if err != nil {
		return err
	}
	if err := hp.AddTuple(t); err != nil {
		return err
	}

	p.markDirty(tid, hp)
	p.transactions.GetOrCreate(tid).RecordTupleWrite()
	return nil
}

// findPageWithRoom scans pages under a shared lock and only asks for the
// exclusive lock on the page it will write.
func (p *PageStore) findPageWithRoom(tid *primitives.TransactionID, file *heap.HeapFile) (*heap.HeapPage, error) {
	numPages, err := file.NumPages()
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CodeIOFailure, "InsertTuple", "PageStore")
	}

	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		pid := page.NewPageDescriptor(file.GetID(), pageNo)
		pg, err := p.GetPage(tid, pid, page.ReadOnly)
		if err != nil {
			return nil, err
		}
		if hp, ok := pg.(*heap.HeapPage); !ok || hp.GetNumEmptySlots() == 0 {
			continue
		}
		return p.getHeapPage(tid, pid, page.ReadWrite)
	}

	pid, err := file.AddEmptyPage()
	if err != nil {
		return nil, err
	}
	logging.WithPage(uint64(pid.TableID()), uint64(pid.PageNo())).Debug("appended empty page", "tx_id", tid.ID())
	return p.getHeapPage(tid, pid, page.ReadWrite)
}

// DeleteTuple removes t from the page its RecordID names, marking the page
// dirty for tid.
func (p *PageStore) DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return dberr.Newf(dberr.ErrSlotState, "tuple has no record id")
	}

	hp, err := p.getHeapPage(tid, t.RecordID.PageID, page.ReadWrite)
	if err != nil {
		return err
	}
	if err := hp.DeleteTuple(t); err != nil {
		return err
	}

	p.markDirty(tid, hp)
	p.transactions.GetOrCreate(tid).RecordTupleDelete()
	return nil
}

// getHeapPage is GetPage narrowed to heap pages.
func (p *PageStore) getHeapPage(tid *primitives.TransactionID, pid page.PageDescriptor, perm page.Permissions) (*heap.HeapPage, error) {
	pg, err := p.GetPage(tid, pid, perm)
	if err != nil {
		return nil, err
	}
	hp, ok := pg.(*heap.HeapPage)
	if !ok {
		return nil, dberr.Newf(dberr.ErrCorruptPage, "page %s is not a heap page", pid)
	}
	return hp, nil
}

// markDirty marks pg dirty for tid and records it in tid's context so
// commit and abort can find it.
func (p *PageStore) markDirty(tid *primitives.TransactionID, pg page.Page) {
	pg.MarkDirty(true, tid)
	p.transactions.GetOrCreate(tid).MarkPageDirty(pg.GetID())
}

// FlushPage writes pid to disk if it is cached and dirty, then marks it
// clean. Uncached or clean pages are left alone.
func (p *PageStore) FlushPage(pid page.PageDescriptor) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.pin([]page.PageDescriptor{pid})
	return p.flushPage(pid)
}

// pin records the current owner of every dirty page in pids before it is
// written. Caller holds p.mutex.
func (p *PageStore) pin(pids []page.PageDescriptor) {
	for _, pid := range pids {
		if pg, ok := p.cache.Peek(pid); ok && pg.IsDirty() != nil {
			p.pinned[pid] = pg.IsDirty()
		}
	}
}

// flushPage writes one dirty page and marks it clean. Caller holds p.mutex.
func (p *PageStore) flushPage(pid page.PageDescriptor) error {
	pg, ok := p.cache.Peek(pid)
	if !ok || pg.IsDirty() == nil {
		return nil
	}
	file, err := p.tables.GetDbFile(pid.TableID())
	if err != nil {
		return err
	}
	if err := file.WritePage(pg); err != nil {
		return err
	}
	pg.MarkDirty(false, nil)
	return nil
}

// flushGroup writes pids with one worker per table file. Caller holds
// p.mutex.
func (p *PageStore) flushGroup(pids []page.PageDescriptor) error {
	p.pin(pids)

	byTable := make(map[primitives.FileID][]page.PageDescriptor)
	for _, pid := range pids {
		byTable[pid.TableID()] = append(byTable[pid.TableID()], pid)
	}

	var g errgroup.Group
	for _, group := range byTable {
		g.Go(func() error {
			for _, pid := range group {
				if err := p.flushPage(pid); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// FlushPages writes every page tid has dirtied without completing tid. The
// written pages stay pinned in the cache until tid commits or aborts, and an
// abort writes their before-images back.
func (p *PageStore) FlushPages(tid *primitives.TransactionID) error {
	ctx, err := p.transactions.Get(tid)
	if err != nil {
		// Unknown transactions have dirtied nothing.
		return nil
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.flushGroup(ctx.DirtyPages())
}

// FlushAllPages writes every dirty cached page regardless of owner. It
// bypasses NO-STEAL and is meant for shutdown and tests.
func (p *PageStore) FlushAllPages() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.flushGroup(p.cache.GetAll())
}

// DiscardPage drops pid from the cache without writing it.
func (p *PageStore) DiscardPage(pid page.PageDescriptor) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.cache.Remove(pid)
	delete(p.pinned, pid)
}

// TransactionComplete finishes tid. On commit its dirty pages are flushed and
// become the new before-images; on abort the cached pages are replaced by
// their before-images. Either way every lock tid holds is released.
func (p *PageStore) TransactionComplete(tid *primitives.TransactionID, commit bool) error {
	if tid == nil {
		return dberr.Newf(dberr.ErrInvalidArg, "cannot complete a nil transaction")
	}
	defer p.lockManager.UnlockAllPages(tid)

	ctx, err := p.transactions.Get(tid)
	if err != nil {
		// Never touched the pool; nothing to flush or restore.
		return nil
	}
	defer p.transactions.Remove(tid)

	log := logging.WithTx(tid.ID())
	dirty := ctx.DirtyPages()

	if commit {
		ctx.SetStatus(transaction.TxCommitting)
		if err := p.commitPages(dirty); err != nil {
			log.Error("commit flush failed, rolling back cached pages", "error", err)
			ctx.SetStatus(transaction.TxAborting)
			if rbErr := p.restorePages(tid, dirty); rbErr != nil {
				log.Error("rollback after failed commit", "error", rbErr)
			}
			ctx.SetStatus(transaction.TxAborted)
			return err
		}
		ctx.SetStatus(transaction.TxCommitted)
		log.Debug("transaction committed", "dirty_pages", len(dirty), "duration", ctx.Duration())
		return nil
	}

	ctx.SetStatus(transaction.TxAborting)
	if err := p.restorePages(tid, dirty); err != nil {
		return err
	}
	ctx.SetStatus(transaction.TxAborted)
	log.Debug("transaction aborted", "dirty_pages", len(dirty))
	return nil
}

// commitPages forces pids to disk and makes their current contents the new
// before-images.
func (p *PageStore) commitPages(pids []page.PageDescriptor) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.flushGroup(pids); err != nil {
		return err
	}
	for _, pid := range pids {
		delete(p.pinned, pid)
		if pg, ok := p.cache.Peek(pid); ok {
			if err := pg.SetBeforeImage(); err != nil {
				return err
			}
		}
	}
	return nil
}

// restorePages replaces every page tid dirtied with its before-image. Pages
// that were already flushed get the before-image written back to disk too.
func (p *PageStore) restorePages(tid *primitives.TransactionID, pids []page.PageDescriptor) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pid := range pids {
		owner, flushed := p.pinned[pid]
		if flushed && !tid.Equals(owner) {
			continue
		}
		delete(p.pinned, pid)

		pg, ok := p.cache.Peek(pid)
		if !ok {
			continue
		}
		if dirtier := pg.IsDirty(); dirtier != nil && !tid.Equals(dirtier) {
			continue
		}

		before, err := pg.GetBeforeImage()
		if err != nil {
			// An undecodable before-image must not be served again.
			p.cache.Remove(pid)
			return err
		}
		if err := p.cache.Put(pid, before); err != nil {
			return err
		}
		if !flushed {
			continue
		}

		file, err := p.tables.GetDbFile(pid.TableID())
		if err != nil {
			return err
		}
		if err := file.WritePage(before); err != nil {
			return err
		}
		logging.WithPage(uint64(pid.TableID()), uint64(pid.PageNo())).Debug("flushed page rolled back", "tx_id", tid.ID())
	}
	return nil
}

// HoldsLock reports whether tid holds a lock on pid.
func (p *PageStore) HoldsLock(tid *primitives.TransactionID, pid page.PageDescriptor) bool {
	return p.lockManager.HoldsLock(tid, pid)
}

// Capacity is the maximum number of cached pages.
func (p *PageStore) Capacity() int {
	return p.capacity
}

// Size is the number of pages currently cached.
func (p *PageStore) Size() int {
	return p.cache.Size()
}
