// Package pagecache implements a bounded LRU cache of page handles: a hash
// map from block index to entry plus an intrusive recency list, where a
// page is flushed back through a caller-supplied Flush function exactly
// once, on eviction (or on an explicit Flush). Handles are
// reference-counted so the cache never evicts or double-loads a page a
// tree operation is mid-descent through, even single-threaded.
package pagecache

import (
	"container/list"
	"errors"
	"fmt"
)

var (
	// ErrDoubleRelease signals a programmer error: Release called more
	// times than Touch/Insert for the same handle.
	ErrDoubleRelease = errors.New("pagecache: handle released more times than acquired")
)

// Loader loads the page for a block index from durable storage.
type Loader[P any] func(index int64) (P, error)

// Flusher writes a page back to durable storage.
type Flusher[P any] func(index int64, page P) error

// Handle is a reference-counted, dirty-aware loaner of a cached page. It is
// the sole legal mutator of its in-memory page: callers must call
// MarkDirty before or after mutating Value, and must call Release exactly
// once for every Touch/Insert that produced the handle.
type Handle[P any] struct {
	index int64
	Value P
	dirty bool
	refs  int
}

func (h *Handle[P]) Index() int64  { return h.index }
func (h *Handle[P]) Dirty() bool   { return h.dirty }
func (h *Handle[P]) Refs() int     { return h.refs }

// Cache is a bounded LRU cache of page handles keyed by block index.
type Cache[P any] struct {
	maxSize int
	load    Loader[P]
	flush   Flusher[P]

	order   *list.List // front = most recently used
	entries map[int64]*list.Element
}

// New creates a Cache bounded to maxSize entries, reading misses via load
// and writing dirty evictions back via flush.
func New[P any](maxSize int, load Loader[P], flush Flusher[P]) *Cache[P] {
	if maxSize < 4 {
		maxSize = 4
	}
	return &Cache[P]{
		maxSize: maxSize,
		load:    load,
		flush:   flush,
		order:   list.New(),
		entries: make(map[int64]*list.Element),
	}
}

// Touch returns a handle to the page at index, loading it on a cache miss.
// The returned handle's reference count is incremented; the caller must
// Release it exactly once.
func (c *Cache[P]) Touch(index int64) (*Handle[P], error) {
	if elem, ok := c.entries[index]; ok {
		c.order.MoveToFront(elem)
		h := elem.Value.(*Handle[P])
		h.refs++
		return h, nil
	}

	value, err := c.load(index)
	if err != nil {
		return nil, err
	}
	h := &Handle[P]{index: index, Value: value, refs: 1}
	c.insert(h)
	return h, nil
}

// Insert registers a freshly allocated page in the cache with an initial
// reference count of 1, returning the handle.
func (c *Cache[P]) Insert(index int64, value P) *Handle[P] {
	h := &Handle[P]{index: index, Value: value, refs: 1}
	c.insert(h)
	return h
}

func (c *Cache[P]) insert(h *Handle[P]) {
	elem := c.order.PushFront(h)
	c.entries[h.index] = elem
	if c.order.Len() > c.maxSize {
		c.popBack()
	}
}

// MarkDirty marks a handle's page as needing write-back.
func (c *Cache[P]) MarkDirty(h *Handle[P]) {
	h.dirty = true
}

// Release decrements a handle's reference count. It does not evict or
// flush by itself — eviction is driven by popBack when the cache grows
// past maxSize; an unreferenced page that is never touched again simply
// waits for that to happen, or for Flush/Close to write it back.
func (c *Cache[P]) Release(h *Handle[P]) error {
	if h.refs <= 0 {
		return ErrDoubleRelease
	}
	h.refs--
	return nil
}

// popBack evicts the least-recently-used *unreferenced* entry, flushing it
// first if dirty. If every entry is currently referenced, it is a no-op —
// the cache is allowed to grow past maxSize transiently, bounded by
// however deep the caller's own path stack can get.
func (c *Cache[P]) popBack() error {
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		h := elem.Value.(*Handle[P])
		if h.refs > 0 {
			continue
		}
		if h.dirty {
			if err := c.flush(h.index, h.Value); err != nil {
				return fmt.Errorf("pagecache: evict flush block %d: %w", h.index, err)
			}
			h.dirty = false
		}
		c.order.Remove(elem)
		delete(c.entries, h.index)
		return nil
	}
	return nil
}

// Evict forcibly removes a specific index from the cache without flushing
// (used by internal/bptree when a page is freed via recycling — its
// content no longer matters once it is back on the free list).
func (c *Cache[P]) Evict(index int64) {
	if elem, ok := c.entries[index]; ok {
		c.order.Remove(elem)
		delete(c.entries, index)
	}
}

// Flush writes back every dirty, cached page without evicting it.
func (c *Cache[P]) Flush() error {
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		h := elem.Value.(*Handle[P])
		if h.dirty {
			if err := c.flush(h.index, h.Value); err != nil {
				return fmt.Errorf("pagecache: flush block %d: %w", h.index, err)
			}
			h.dirty = false
		}
	}
	return nil
}

// Len reports the current number of cached entries.
func (c *Cache[P]) Len() int { return c.order.Len() }
