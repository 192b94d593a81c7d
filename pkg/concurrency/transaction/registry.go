package transaction

import (
	"sync"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
)

// Registry tracks the contexts of transactions that have not yet completed.
type Registry struct {
	contexts map[int64]*Context
	mutex    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{contexts: make(map[int64]*Context)}
}

// Begin allocates a fresh transaction id and registers its context.
func (tr *Registry) Begin() *Context {
	ctx := NewContext(primitives.NewTransactionID())

	tr.mutex.Lock()
	tr.contexts[ctx.ID.ID()] = ctx
	tr.mutex.Unlock()
	return ctx
}

func (tr *Registry) Get(tid *primitives.TransactionID) (*Context, error) {
	if tid == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "nil transaction id")
	}
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	ctx, ok := tr.contexts[tid.ID()]
	if !ok {
		return nil, dberr.Newf(dberr.ErrNotFound, "transaction %s not found", tid)
	}
	return ctx, nil
}

// GetOrCreate returns the context for tid, registering one for ids that were
// allocated outside Begin.
func (tr *Registry) GetOrCreate(tid *primitives.TransactionID) *Context {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	if ctx, ok := tr.contexts[tid.ID()]; ok {
		return ctx
	}
	ctx := NewContext(tid)
	tr.contexts[tid.ID()] = ctx
	return ctx
}

func (tr *Registry) Remove(tid *primitives.TransactionID) {
	if tid == nil {
		return
	}
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	delete(tr.contexts, tid.ID())
}

func (tr *Registry) Active() []*Context {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	active := make([]*Context, 0, len(tr.contexts))
	for _, ctx := range tr.contexts {
		if ctx.IsActive() {
			active = append(active, ctx)
		}
	}
	return active
}

func (tr *Registry) Count() int {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()
	return len(tr.contexts)
}
