// Package memory implements the buffer pool: a bounded cache of decoded pages
// shared by every transaction, with lock acquisition on access and
// commit/abort handling of the pages a transaction dirtied.
package memory

import (
	"sync"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/storage/page"
)

// PageCache stores and retrieves pages in memory. It knows nothing about
// transactions, locks or durability.
type PageCache interface {
	// Get returns the page and marks it most recently used.
	Get(pid page.PageDescriptor) (page.Page, bool)

	// Put stores or replaces a page. Adding a new page to a full cache fails
	// with BUFFER_POOL_FULL; the caller is expected to evict first.
	Put(pid page.PageDescriptor, p page.Page) error

	Remove(pid page.PageDescriptor)
	Size() int
	Clear()

	// GetAll lists the cached ids, least recently used first.
	GetAll() []page.PageDescriptor
}

type node struct {
	pid  page.PageDescriptor
	page page.Page
	prev *node
	next *node
}

// LRUPageCache is a PageCache with least-recently-used ordering, backed by a
// doubly linked list between two sentinel nodes.
type LRUPageCache struct {
	maxSize int
	cache   map[page.PageDescriptor]*node
	head    *node // most recently used end
	tail    *node // least recently used end
	mutex   sync.RWMutex
}

func NewLRUPageCache(maxSize int) *LRUPageCache {
	head := &node{}
	tail := &node{}
	head.next = tail
	tail.prev = head

	return &LRUPageCache{
		maxSize: maxSize,
		cache:   make(map[page.PageDescriptor]*node),
		head:    head,
		tail:    tail,
	}
}

func (c *LRUPageCache) addToFront(n *node) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRUPageCache) removeNode(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LRUPageCache) moveToFront(n *node) {
	c.removeNode(n)
	c.addToFront(n)
}

func (c *LRUPageCache) Get(pid page.PageDescriptor) (page.Page, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, ok := c.cache[pid]; ok {
		c.moveToFront(n)
		return n.page, true
	}
	return nil, false
}

// Peek returns the page without touching its recency.
func (c *LRUPageCache) Peek(pid page.PageDescriptor) (page.Page, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if n, ok := c.cache[pid]; ok {
		return n.page, true
	}
	return nil, false
}

func (c *LRUPageCache) Put(pid page.PageDescriptor, p page.Page) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, ok := c.cache[pid]; ok {
		n.page = p
		c.moveToFront(n)
		return nil
	}

	if len(c.cache) >= c.maxSize {
		return dberr.Newf(dberr.ErrBufferPoolFull, "cache holds %d pages, cannot add %s", c.maxSize, pid)
	}

	n := &node{pid: pid, page: p}
	c.cache[pid] = n
	c.addToFront(n)
	return nil
}

func (c *LRUPageCache) Remove(pid page.PageDescriptor) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, ok := c.cache[pid]; ok {
		delete(c.cache, pid)
		c.removeNode(n)
	}
}

func (c *LRUPageCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

func (c *LRUPageCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[page.PageDescriptor]*node)
	c.head.next = c.tail
	c.tail.prev = c.head
}

func (c *LRUPageCache) GetAll() []page.PageDescriptor {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	pids := make([]page.PageDescriptor, 0, len(c.cache))
	for cur := c.tail.prev; cur != c.head; cur = cur.prev {
		pids = append(pids, cur.pid)
	}
	return pids
}
