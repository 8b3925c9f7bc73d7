package bptree

import "github.com/foxhollow/trackvault/internal/pagecache"

// Insert adds a new (k, v) pair, failing with ErrDuplicateKey if k is
// already present.
func (t *BTree[K, V]) Insert(k K, v V) error {
	if t.closed {
		return ErrClosed
	}
	root := t.rootID()
	if root.IsZero() {
		h, err := t.newPage(kindLeaf)
		if err != nil {
			return err
		}
		h.Value.keys = []K{k}
		h.Value.vals = []V{v}
		h.Value.count = 1
		t.cache.MarkDirty(h)
		t.setRootID(h.Value.id)
		t.setSizeRaw(1)
		return t.cache.Release(h)
	}

	path, leafH, err := t.descend(root, k, true)
	if err != nil {
		return err
	}
	leaf := leafH.Value
	idx, found := searchLeaf(t.less, leaf, k)
	if found {
		t.releaseEntries(path)
		t.cache.Release(leafH)
		return ErrDuplicateKey
	}
	insertAtLeaf(leaf, idx, k, v)
	t.cache.MarkDirty(leafH)

	if leaf.count <= t.fan.leafL {
		if err := t.cache.Release(leafH); err != nil {
			return err
		}
		if err := t.releaseEntries(path); err != nil {
			return err
		}
		t.setSizeRaw(t.sizeRaw() + 1)
		return nil
	}

	sepKey, newLeafID, err := t.splitLeaf(leafH)
	if err != nil {
		return err
	}
	if err := t.cache.Release(leafH); err != nil {
		return err
	}
	if err := t.propagateSplit(path, sepKey, newLeafID); err != nil {
		return err
	}
	t.setSizeRaw(t.sizeRaw() + 1)
	return nil
}

func insertAtLeaf[K, V any](p *page[K, V], idx int, k K, v V) {
	p.keys = append(p.keys, k)
	copy(p.keys[idx+1:], p.keys[idx:len(p.keys)-1])
	p.keys[idx] = k

	p.vals = append(p.vals, v)
	copy(p.vals[idx+1:], p.vals[idx:len(p.vals)-1])
	p.vals[idx] = v

	p.count++
}

// splitLeaf splits an overfull leaf (count == leafL+1) roughly in half,
// linking the new right sibling into the leaf chain. Returns the
// separator key (the new leaf's first key) and its page ID.
func (t *BTree[K, V]) splitLeaf(h *pagecache.Handle[*page[K, V]]) (K, pageID, error) {
	left := h.Value
	leftCount := ceilHalf(left.count)

	rh, err := t.newPage(kindLeaf)
	if err != nil {
		var zero K
		return zero, 0, err
	}
	right := rh.Value
	right.keys = append([]K(nil), left.keys[leftCount:]...)
	right.vals = append([]V(nil), left.vals[leftCount:]...)
	right.count = len(right.keys)
	right.next = left.next

	left.keys = left.keys[:leftCount]
	left.vals = left.vals[:leftCount]
	left.count = leftCount
	left.next = right.id

	t.cache.MarkDirty(h)
	t.cache.MarkDirty(rh)

	sep := right.keys[0]
	id := right.id
	if err := t.cache.Release(rh); err != nil {
		return sep, id, err
	}
	return sep, id, nil
}

// splitInner splits an overfull inner page (count == innerM+1 children),
// promoting its middle separator key rather than copying it into both
// halves. This single midpoint formula covers the "insertion lands left of
// middle / is the middle / lands right of middle" cases uniformly.
func (t *BTree[K, V]) splitInner(h *pagecache.Handle[*page[K, V]]) (K, pageID, error) {
	left := h.Value
	leftChildren := ceilHalf(left.count)
	promotedIdx := leftChildren - 1
	promoted := left.ikeys[promotedIdx]

	rh, err := t.newPage(kindInner)
	if err != nil {
		var zero K
		return zero, 0, err
	}
	right := rh.Value
	right.children = append([]pageID(nil), left.children[leftChildren:]...)
	right.ikeys = append([]K(nil), left.ikeys[promotedIdx+1:]...)
	right.count = len(right.children)

	left.children = left.children[:leftChildren]
	left.ikeys = left.ikeys[:promotedIdx]
	left.count = len(left.children)

	t.cache.MarkDirty(h)
	t.cache.MarkDirty(rh)

	id := right.id
	if err := t.cache.Release(rh); err != nil {
		return promoted, id, err
	}
	return promoted, id, nil
}

// insertAtInner inserts a new child immediately after children[slot] and
// its separator key at ikeys[slot], shifting later entries right.
func insertAtInner[K, V any](p *page[K, V], slot int, sepKey K, newChild pageID) {
	p.children = append(p.children, 0)
	copy(p.children[slot+2:], p.children[slot+1:len(p.children)-1])
	p.children[slot+1] = newChild

	var zero K
	p.ikeys = append(p.ikeys, zero)
	copy(p.ikeys[slot+1:], p.ikeys[slot:len(p.ikeys)-1])
	p.ikeys[slot] = sepKey

	p.count++
}

// propagateSplit inserts (sepKey, newChildID) into the parent recorded at
// the end of path, splitting ancestors as needed and growing a new root if
// the split propagates past the top.
func (t *BTree[K, V]) propagateSplit(path []pathEntry[K, V], sepKey K, newChildID pageID) error {
	lastID := t.rootID()
	i := len(path) - 1
	for ; i >= 0; i-- {
		entry := path[i]
		parent := entry.h.Value
		lastID = parent.id
		insertAtInner(parent, entry.slot, sepKey, newChildID)
		t.cache.MarkDirty(entry.h)

		if parent.count <= t.fan.innerM {
			if err := t.releaseEntries(path[:i+1]); err != nil {
				return err
			}
			return nil
		}

		newSep, newInnerID, err := t.splitInner(entry.h)
		if err != nil {
			return err
		}
		if err := t.cache.Release(entry.h); err != nil {
			return err
		}
		sepKey, newChildID = newSep, newInnerID
	}
	return t.growRoot(lastID, sepKey, newChildID)
}

func (t *BTree[K, V]) growRoot(leftID pageID, sepKey K, rightID pageID) error {
	h, err := t.newPage(kindInner)
	if err != nil {
		return err
	}
	root := h.Value
	root.count = 2
	root.ikeys = []K{sepKey}
	root.children = []pageID{leftID, rightID}
	t.cache.MarkDirty(h)
	t.setRootID(root.id)
	return t.cache.Release(h)
}
