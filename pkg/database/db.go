// Package database wires the storage kernel together: configuration,
// logging, the catalog, the lock manager and the buffer pool.
package database

import (
	"errors"
	"fmt"
	"sync"

	"pagekernel/pkg/catalog"
	"pagekernel/pkg/concurrency/lock"
	"pagekernel/pkg/config"
	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/execution/join"
	"pagekernel/pkg/execution/query"
	"pagekernel/pkg/iterator"
	"pagekernel/pkg/logging"
	"pagekernel/pkg/memory"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/heap"
	"pagekernel/pkg/storage/page"
	"pagekernel/pkg/tuple"
)

// TableFileExt is appended to a table name to form its heap file name.
const TableFileExt = ".dat"

// Database is one open kernel instance rooted at a data directory.
type Database struct {
	cfg         *config.Config
	catalog     *catalog.Catalog
	lockManager *lock.Manager
	pageStore   *memory.PageStore
	codec       page.ImageCodec
	dataDir     primitives.Filepath
	ownsLogger  bool

	mutex  sync.RWMutex
	closed bool
	stats  DatabaseStats
}

// DatabaseStats counts completed transactions.
type DatabaseStats struct {
	Begun     int64
	Committed int64
	Aborted   int64
	Failed    int64
}

// DatabaseInfo is a snapshot of the database for reporting.
type DatabaseInfo struct {
	DataDir       string
	Tables        []string
	CachedPages   int
	PoolCapacity  int
	ActiveTxCount int
	Stats         DatabaseStats
}

// Open validates cfg, installs the logger unless one is already installed
// and prepares the data directory. A nil cfg means config.Default().
func Open(cfg *config.Config) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, dberr.Wrap(err, dberr.CodeInvalidArg, "Open", "Database")
	}

	ownsLogger := false
	if !logging.IsInitialized() {
		if err := logging.Init(cfg.Logging()); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		ownsLogger = true
	}

	codec, err := page.CodecByName(cfg.Storage.BeforeImageCodec)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CodeInvalidArg, "Open", "Database")
	}

	dataDir := primitives.Filepath(cfg.DataDir)
	if err := dataDir.MkdirAll(0o755); err != nil {
		return nil, dberr.Wrap(err, dberr.CodeIOFailure, "Open", "Database")
	}

	cat := catalog.NewCatalog()
	locks := lock.NewManager(cfg.Lock.Timeout, cfg.Lock.RetryInterval)
	db := &Database{
		cfg:         cfg,
		catalog:     cat,
		lockManager: locks,
		pageStore:   memory.NewPageStore(cat, locks, cfg.BufferPool.Capacity),
		codec:       codec,
		dataDir:     dataDir,
		ownsLogger:  ownsLogger,
	}

	logging.WithComponent("database").Info("database opened",
		"data_dir", cfg.DataDir,
		"pool_capacity", cfg.BufferPool.Capacity,
		"codec", codec.Name(),
		"join_block_memory", cfg.Join.BlockMemory)
	return db, nil
}

func (db *Database) checkOpen() error {
	if db.closed {
		return dberr.Newf(dberr.ErrInvalidArg, "database is closed")
	}
	return nil
}

// CreateTable opens (or creates) the heap file for name under the data
// directory and registers it. An existing file is reused as is, so its rows
// survive a restart as long as the schema matches.
func (db *Database) CreateTable(name string, td *tuple.TupleDescription, primaryKey string) (primitives.FileID, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.checkOpen(); err != nil {
		return primitives.InvalidFileID, err
	}
	if name == "" {
		return primitives.InvalidFileID, dberr.Newf(dberr.ErrInvalidArg, "table name cannot be empty")
	}

	path := db.dataDir.Join(name + TableFileExt)
	hf, err := heap.NewHeapFile(path, td, heap.WithImageCodec(db.codec))
	if err != nil {
		return primitives.InvalidFileID, err
	}
	if err := db.catalog.AddTable(hf, name, primaryKey); err != nil {
		hf.Close()
		return primitives.InvalidFileID, err
	}

	logging.WithTable(uint64(hf.GetID())).Info("table created", "name", name, "path", path.String())
	return hf.GetID(), nil
}

// Begin starts a transaction.
func (db *Database) Begin() (*primitives.TransactionID, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	ctx := db.pageStore.Transactions().Begin()
	db.stats.Begun++
	return ctx.ID, nil
}

// Commit forces tid's dirty pages to disk and releases its locks.
func (db *Database) Commit(tid *primitives.TransactionID) error {
	return db.complete(tid, true)
}

// Abort restores the before-images of tid's dirty pages and releases its
// locks.
func (db *Database) Abort(tid *primitives.TransactionID) error {
	return db.complete(tid, false)
}

func (db *Database) complete(tid *primitives.TransactionID, commit bool) error {
	err := db.pageStore.TransactionComplete(tid, commit)

	db.mutex.Lock()
	defer db.mutex.Unlock()
	switch {
	case err != nil:
		db.stats.Failed++
	case commit:
		db.stats.Committed++
	default:
		db.stats.Aborted++
	}
	return err
}

// InsertTuple adds t to the named table on behalf of tid.
func (db *Database) InsertTuple(tid *primitives.TransactionID, table string, t *tuple.Tuple) error {
	tableID, err := db.catalog.GetTableID(table)
	if err != nil {
		return err
	}
	return db.pageStore.InsertTuple(tid, tableID, t)
}

// DeleteTuple removes t, which must carry the RecordID it was read with.
func (db *Database) DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple) error {
	return db.pageStore.DeleteTuple(tid, t)
}

// Scan returns an unopened sequential scan of the named table.
func (db *Database) Scan(tid *primitives.TransactionID, table string) (*query.SequentialScan, error) {
	tableID, err := db.catalog.GetTableID(table)
	if err != nil {
		return nil, err
	}
	return query.NewSeqScan(tid, tableID, db.catalog, db.pageStore)
}

// NewJoin builds a join that uses the configured block memory unless opts
// override it.
func (db *Database) NewJoin(pred *join.JoinPredicate, left, right iterator.DbIterator, opts ...join.Option) (*join.Join, error) {
	all := append([]join.Option{join.WithBlockMemory(db.cfg.Join.BlockMemory)}, opts...)
	return join.NewJoin(pred, left, right, all...)
}

func (db *Database) Catalog() *catalog.Catalog {
	return db.catalog
}

func (db *Database) PageStore() *memory.PageStore {
	return db.pageStore
}

func (db *Database) LockManager() *lock.Manager {
	return db.lockManager
}

func (db *Database) Config() *config.Config {
	return db.cfg
}

// Tables lists the registered table names in table id order.
func (db *Database) Tables() []string {
	ids := db.catalog.TableIDs()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, err := db.catalog.GetTableName(id); err == nil {
			names = append(names, name)
		}
	}
	return names
}

func (db *Database) GetStatistics() DatabaseInfo {
	db.mutex.RLock()
	stats := db.stats
	db.mutex.RUnlock()

	return DatabaseInfo{
		DataDir:       db.dataDir.String(),
		Tables:        db.Tables(),
		CachedPages:   db.pageStore.Size(),
		PoolCapacity:  db.pageStore.Capacity(),
		ActiveTxCount: db.pageStore.Transactions().Count(),
		Stats:         stats,
	}
}

// Close writes every cached dirty page, closes the table files and, if Open
// installed the logger, releases it. Calling Close again is a no-op.
func (db *Database) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	log := logging.WithComponent("database")
	var errs []error

	// Uncommitted work must not reach disk through the final flush.
	if active := db.pageStore.Transactions().Active(); len(active) > 0 {
		log.Warn("aborting transactions still active at close", "count", len(active))
		for _, ctx := range active {
			if err := db.pageStore.TransactionComplete(ctx.ID, false); err != nil {
				db.stats.Failed++
				errs = append(errs, fmt.Errorf("failed to abort %s: %w", ctx.ID, err))
				continue
			}
			db.stats.Aborted++
		}
	}

	if err := db.pageStore.FlushAllPages(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush pages: %w", err))
	}
	if err := db.catalog.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close tables: %w", err))
	}
	log.Info("database closed", "data_dir", db.dataDir.String())

	if db.ownsLogger {
		if err := logging.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
