// Package bptree implements a generic, disk-backed B+-tree over (K, V)
// keyed by a caller-supplied Less[K], backed by an internal/blockfile.File
// for pages and an internal/pagecache.Cache for the working set, with a
// free-list header slot for page recycling.
//
// Keys and values have fixed binary layouts reported by a Codec, so pages
// use a fixed-offset slot array (page.go) rather than a variable-length
// slotted layout.
package bptree

import (
	"errors"
	"os"

	"github.com/foxhollow/trackvault/internal/blockfile"
	"github.com/foxhollow/trackvault/internal/pagecache"
	"github.com/foxhollow/trackvault/internal/types"
)

const maxPathDepth = 40

// header slots.
const (
	slotRoot     = 1
	slotSize     = 2
	slotFreeList = 3
)

// Config configures one tree instantiation. Fan-out is derived (see
// page.go's computeFanout) from block size and K/V's known fixed sizes
// rather than configured directly, and Recycle toggles free-list reuse.
type Config struct {
	BlockSize int
	CacheSize int
	Recycle   bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{BlockSize: blockfile.DefaultBlockSize, CacheSize: 256, Recycle: true}
}

// BTree is a generic on-disk B+-tree over (K, V).
type BTree[K, V any] struct {
	cfg      Config
	bf       *blockfile.File
	cache    *pagecache.Cache[*page[K, V]]
	keyCodec types.Codec[K]
	valCodec types.Codec[V]
	less     types.Less[K]
	fan      fanout
	closed   bool
}

// pathEntry records one inner page visited during a descent and the child
// slot taken, so insert/remove can propagate splits and rebalances back up
// without re-descending. Handles are released in LIFO order by whichever
// operation consumes the path.
type pathEntry[K, V any] struct {
	h    *pagecache.Handle[*page[K, V]]
	slot int
}

// Open opens an existing tree file at path, or creates one if it doesn't
// exist yet.
func Open[K, V any](path string, keyCodec types.Codec[K], valCodec types.Codec[V], less types.Less[K], cfg Config) (*BTree[K, V], error) {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = blockfile.DefaultBlockSize
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 256
	}

	fan := computeFanout(cfg.BlockSize, keyCodec.Size(), valCodec.Size())
	bfCfg := blockfile.Config{BlockSize: cfg.BlockSize, InfoLen: 3}

	var bf *blockfile.File
	var err error
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		bf, err = blockfile.Init(path, bfCfg)
	} else {
		bf, err = blockfile.Open(path, bfCfg)
	}
	if err != nil {
		return nil, err
	}

	t := &BTree[K, V]{cfg: cfg, bf: bf, keyCodec: keyCodec, valCodec: valCodec, less: less, fan: fan}
	t.cache = pagecache.New[*page[K, V]](cfg.CacheSize,
		func(block int64) (*page[K, V], error) {
			buf := make([]byte, cfg.BlockSize)
			if err := bf.Read(buf, block, 0); err != nil {
				return nil, err
			}
			kind := pageKind(buf[offKind])
			return t.decodePage(newPageID(kind, block), buf), nil
		},
		func(block int64, p *page[K, V]) error {
			buf := make([]byte, cfg.BlockSize)
			t.encodePage(p, buf)
			return bf.Update(buf, block, 0)
		},
	)
	return t, nil
}

// Close flushes every dirty cached page and the header slots, then closes
// the backing file.
func (t *BTree[K, V]) Close() error {
	if t.closed {
		return nil
	}
	if err := t.cache.Flush(); err != nil {
		return err
	}
	t.closed = true
	return t.bf.Close()
}

func (t *BTree[K, V]) rootID() pageID {
	v, _ := t.bf.GetSlot(slotRoot)
	return pageID(v)
}

func (t *BTree[K, V]) setRootID(id pageID) { t.bf.SetSlot(slotRoot, int64(id)) }

func (t *BTree[K, V]) sizeRaw() int64 {
	v, _ := t.bf.GetSlot(slotSize)
	return v
}

func (t *BTree[K, V]) setSizeRaw(n int64) { t.bf.SetSlot(slotSize, n) }

// Size returns the number of live entries in the tree.
func (t *BTree[K, V]) Size() (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	return int(t.sizeRaw()), nil
}

// Empty reports whether the tree has no entries.
func (t *BTree[K, V]) Empty() (bool, error) {
	n, err := t.Size()
	return n == 0, err
}

func (t *BTree[K, V]) loadPage(id pageID) (*pagecache.Handle[*page[K, V]], error) {
	if id.IsZero() {
		panic("bptree: attempt to load the nil page")
	}
	h, err := t.cache.Touch(id.Block())
	if err != nil {
		return nil, err
	}
	assertf(h.Value.kind == id.Kind(), "bptree: page kind mismatch for block %d", id.Block())
	return h, nil
}

func (t *BTree[K, V]) newPage(kind pageKind) (*pagecache.Handle[*page[K, V]], error) {
	block, err := t.popFreeBlock()
	if err != nil {
		return nil, err
	}
	if block == 0 {
		block, err = t.bf.Allocate()
		if err != nil {
			return nil, err
		}
	}
	id := newPageID(kind, block)
	var p *page[K, V]
	if kind == kindLeaf {
		p = newLeafPage[K, V](id)
	} else {
		p = newInnerPage[K, V](id)
	}
	h := t.cache.Insert(block, p)
	t.cache.MarkDirty(h)
	return h, nil
}

// popFreeBlock pops one block off the recycling free list, returning 0 if
// recycling is disabled or the list is empty.
func (t *BTree[K, V]) popFreeBlock() (int64, error) {
	if !t.cfg.Recycle {
		return 0, nil
	}
	head, _ := t.bf.GetSlot(slotFreeList)
	if head == 0 {
		return 0, nil
	}
	var buf [8]byte
	if err := t.bf.Read(buf[:], head, offCount); err != nil {
		return 0, err
	}
	next := leUint64ToInt64(buf[:])
	if err := t.bf.SetSlot(slotFreeList, next); err != nil {
		return 0, err
	}
	return head, nil
}

// freePage evicts a page from the cache without flushing and, if
// recycling is enabled, pushes its block onto the free list — reusing the
// page's count field as the next-free pointer.
func (t *BTree[K, V]) freePage(h *pagecache.Handle[*page[K, V]]) error {
	block := h.Index()
	t.cache.Evict(block)
	if !t.cfg.Recycle {
		return nil
	}
	head, _ := t.bf.GetSlot(slotFreeList)
	var buf [8]byte
	int64ToLeUint64(buf[:], head)
	if err := t.bf.Update(buf[:], block, offCount); err != nil {
		return err
	}
	return t.bf.SetSlot(slotFreeList, block)
}

func (t *BTree[K, V]) releaseEntries(path []pathEntry[K, V]) error {
	for _, e := range path {
		if err := t.cache.Release(e.h); err != nil {
			return err
		}
	}
	return nil
}

// descend walks from root to the leaf that should contain k, recording the
// (handle, child slot) pair at every inner page visited. Each separator
// is the first key of the child to its right, so every descent takes the
// smallest i with key[i] > k (or the last child), sending a key equal to a
// separator into the right-hand child. ge only names the caller (true for
// insert/find/modify/remove, false for search's lower bound); both use
// this same rule.
func (t *BTree[K, V]) descend(root pageID, k K, ge bool) ([]pathEntry[K, V], *pagecache.Handle[*page[K, V]], error) {
	var path []pathEntry[K, V]
	id := root
	for {
		h, err := t.loadPage(id)
		if err != nil {
			t.releaseEntries(path)
			return nil, nil, err
		}
		p := h.Value
		if p.kind == kindLeaf {
			return path, h, nil
		}
		assertf(len(path) < maxPathDepth, "bptree: path stack depth exceeded %d", maxPathDepth)
		slot := childSlot(t.less, p, k, ge)
		path = append(path, pathEntry[K, V]{h: h, slot: slot})
		id = p.children[slot]
	}
}

func childSlot[K, V any](less types.Less[K], p *page[K, V], k K, ge bool) int {
	for i := 0; i < p.count-1; i++ {
		if less(k, p.ikeys[i]) {
			return i
		}
	}
	return p.count - 1
}

func searchLeaf[K, V any](less types.Less[K], p *page[K, V], k K) (int, bool) {
	lo, hi := 0, p.count
	for lo < hi {
		mid := (lo + hi) / 2
		if less(p.keys[mid], k) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < p.count && !less(k, p.keys[lo]) && !less(p.keys[lo], k) {
		return lo, true
	}
	return lo, false
}

// Find performs an exact-key lookup.
func (t *BTree[K, V]) Find(k K) (V, bool, error) {
	var zero V
	if t.closed {
		return zero, false, ErrClosed
	}
	root := t.rootID()
	if root.IsZero() {
		return zero, false, nil
	}
	path, leafH, err := t.descend(root, k, true)
	if err != nil {
		return zero, false, err
	}
	if err := t.releaseEntries(path); err != nil {
		return zero, false, err
	}
	leaf := leafH.Value
	idx, found := searchLeaf(t.less, leaf, k)
	var v V
	if found {
		v = leaf.vals[idx]
	}
	if err := t.cache.Release(leafH); err != nil {
		return zero, false, err
	}
	return v, found, nil
}

// Modify overwrites the value for an existing key, failing with
// ErrNotFound if the key is absent.
func (t *BTree[K, V]) Modify(k K, v V) error {
	if t.closed {
		return ErrClosed
	}
	root := t.rootID()
	if root.IsZero() {
		return ErrNotFound
	}
	path, leafH, err := t.descend(root, k, true)
	if err != nil {
		return err
	}
	if err := t.releaseEntries(path); err != nil {
		return err
	}
	leaf := leafH.Value
	idx, found := searchLeaf(t.less, leaf, k)
	if !found {
		t.cache.Release(leafH)
		return ErrNotFound
	}
	leaf.vals[idx] = v
	t.cache.MarkDirty(leafH)
	return t.cache.Release(leafH)
}

func leUint64ToInt64(b []byte) int64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return int64(v)
}

func int64ToLeUint64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}
