// Package catalog keeps the in-memory registry of tables: their names, heap
// files, schemas and primary keys. Tables are addressed by the id of their
// backing file.
package catalog

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/logging"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/heap"
	"pagekernel/pkg/tuple"
)

type TableInfo struct {
	File       *heap.HeapFile
	Name       string
	PrimaryKey string
}

func (ti *TableInfo) ID() primitives.FileID {
	return ti.File.GetID()
}

func (ti *TableInfo) String() string {
	return fmt.Sprintf("Table(name=%s, id=%d, pk=%q, schema=%s)",
		ti.Name, ti.ID(), ti.PrimaryKey, ti.File.GetTupleDesc())
}

// Catalog is safe for concurrent use.
type Catalog struct {
	nameToTable map[string]*TableInfo
	idToTable   map[primitives.FileID]*TableInfo
	mutex       sync.RWMutex
}

func NewCatalog() *Catalog {
	return &Catalog{
		nameToTable: make(map[string]*TableInfo),
		idToTable:   make(map[primitives.FileID]*TableInfo),
	}
}

// AddTable registers f under name. A table already registered under the same
// name or file id is replaced. primaryKey may be empty; otherwise it must name
// a column of f's schema.
func (c *Catalog) AddTable(f *heap.HeapFile, name, primaryKey string) error {
	if f == nil {
		return dberr.Newf(dberr.ErrInvalidArg, "table %q has no file", name)
	}
	if strings.TrimSpace(name) == "" {
		return dberr.Newf(dberr.ErrInvalidArg, "table name cannot be empty")
	}
	if primaryKey != "" {
		if _, err := f.GetTupleDesc().FindFieldIndex(primaryKey); err != nil {
			return dberr.Newf(dberr.ErrSchemaMismatch, "primary key %q is not a column of %s", primaryKey, name)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	info := &TableInfo{File: f, Name: name, PrimaryKey: primaryKey}
	c.removeExisting(name, f.GetID())
	c.nameToTable[name] = info
	c.idToTable[f.GetID()] = info

	logging.WithTable(uint64(f.GetID())).Debug("table registered", "name", name)
	return nil
}

// removeExisting drops entries that clash with name or id. Caller holds the
// write lock.
func (c *Catalog) removeExisting(name string, id primitives.FileID) {
	if existing, ok := c.nameToTable[name]; ok {
		delete(c.idToTable, existing.ID())
	}
	if existing, ok := c.idToTable[id]; ok {
		delete(c.nameToTable, existing.Name)
	}
}

func (c *Catalog) info(tableID primitives.FileID) (*TableInfo, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ti, ok := c.idToTable[tableID]
	if !ok {
		return nil, dberr.Newf(dberr.ErrNotFound, "table with id %d not found", tableID)
	}
	return ti, nil
}

func (c *Catalog) GetTableID(name string) (primitives.FileID, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ti, ok := c.nameToTable[name]
	if !ok {
		return primitives.InvalidFileID, dberr.Newf(dberr.ErrNotFound, "table %q not found", name)
	}
	return ti.ID(), nil
}

func (c *Catalog) GetTableName(tableID primitives.FileID) (string, error) {
	ti, err := c.info(tableID)
	if err != nil {
		return "", err
	}
	return ti.Name, nil
}

func (c *Catalog) GetTupleDesc(tableID primitives.FileID) (*tuple.TupleDescription, error) {
	ti, err := c.info(tableID)
	if err != nil {
		return nil, err
	}
	return ti.File.GetTupleDesc(), nil
}

func (c *Catalog) GetDbFile(tableID primitives.FileID) (*heap.HeapFile, error) {
	ti, err := c.info(tableID)
	if err != nil {
		return nil, err
	}
	return ti.File, nil
}

func (c *Catalog) GetPrimaryKey(tableID primitives.FileID) (string, error) {
	ti, err := c.info(tableID)
	if err != nil {
		return "", err
	}
	return ti.PrimaryKey, nil
}

// TableIDs returns the registered ids in ascending order.
func (c *Catalog) TableIDs() []primitives.FileID {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ids := make([]primitives.FileID, 0, len(c.idToTable))
	for id := range c.idToTable {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (c *Catalog) TableExists(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	_, ok := c.nameToTable[name]
	return ok
}

// RemoveTable unregisters name and closes its file.
func (c *Catalog) RemoveTable(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ti, ok := c.nameToTable[name]
	if !ok {
		return dberr.Newf(dberr.ErrNotFound, "table %q not found", name)
	}
	delete(c.nameToTable, name)
	delete(c.idToTable, ti.ID())
	return ti.File.Close()
}

// Clear unregisters every table and closes the files. Close failures are
// logged and the first one is returned.
func (c *Catalog) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var first error
	for _, ti := range c.idToTable {
		if err := ti.File.Close(); err != nil {
			logging.WithTable(uint64(ti.ID())).Warn("failed to close table file", "name", ti.Name, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	c.nameToTable = make(map[string]*TableInfo)
	c.idToTable = make(map[primitives.FileID]*TableInfo)
	return first
}

// ValidateIntegrity checks that the name and id indexes agree.
func (c *Catalog) ValidateIntegrity() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if len(c.nameToTable) != len(c.idToTable) {
		return fmt.Errorf("catalog integrity violation: %d names but %d ids", len(c.nameToTable), len(c.idToTable))
	}
	for name, ti := range c.nameToTable {
		if c.idToTable[ti.ID()] != ti {
			return fmt.Errorf("catalog integrity violation: table %s missing from id index", name)
		}
	}
	return nil
}

func (c *Catalog) String() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.nameToTable))
	for name := range c.nameToTable {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Catalog(tables=%d):\n", len(names))
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", c.nameToTable[name])
	}
	return b.String()
}
