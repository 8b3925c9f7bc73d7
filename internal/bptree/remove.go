package bptree

import "github.com/foxhollow/trackvault/internal/pagecache"

// Remove deletes k if present; deleting an absent key is a silent no-op.
// Leaf and inner underflow are handled by explicit borrow/merge helpers
// over typed key/child slices.
func (t *BTree[K, V]) Remove(k K) error {
	if t.closed {
		return ErrClosed
	}
	root := t.rootID()
	if root.IsZero() {
		return nil
	}
	path, leafH, err := t.descend(root, k, true)
	if err != nil {
		return err
	}
	leaf := leafH.Value
	idx, found := searchLeaf(t.less, leaf, k)
	if !found {
		t.releaseEntries(path)
		return t.cache.Release(leafH)
	}

	removeAtLeaf(leaf, idx)
	t.cache.MarkDirty(leafH)
	if idx == 0 {
		t.fixAncestorSeparator(path, leaf)
	}

	isRoot := leaf.id == root
	switch {
	case isRoot:
		if leaf.count == 0 {
			t.setRootID(0)
			if err := t.freePage(leafH); err != nil {
				return err
			}
		} else if err := t.cache.Release(leafH); err != nil {
			return err
		}
	case leaf.count < ceilHalf(t.fan.leafL):
		if err := t.rebalanceLeaf(path, leafH); err != nil {
			return err
		}
	default:
		if err := t.cache.Release(leafH); err != nil {
			return err
		}
		if err := t.releaseEntries(path); err != nil {
			return err
		}
	}

	t.setSizeRaw(t.sizeRaw() - 1)
	return nil
}

func removeAtLeaf[K, V any](p *page[K, V], idx int) {
	p.keys = append(p.keys[:idx], p.keys[idx+1:]...)
	p.vals = append(p.vals[:idx], p.vals[idx+1:]...)
	p.count--
}

func removeAtInner[K, V any](p *page[K, V], childIdx, keyIdx int) {
	p.children = append(p.children[:childIdx], p.children[childIdx+1:]...)
	p.ikeys = append(p.ikeys[:keyIdx], p.ikeys[keyIdx+1:]...)
	p.count--
}

// fixAncestorSeparator walks up from the deepest ancestor, replacing the
// first separator that routed through a non-zero child slot with the
// leaf's new first key, keeping ancestor separators in sync whenever
// position-0 of a leaf is deleted.
func (t *BTree[K, V]) fixAncestorSeparator(path []pathEntry[K, V], leaf *page[K, V]) {
	if leaf.count == 0 {
		return
	}
	newKey := leaf.keys[0]
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].slot > 0 {
			parent := path[i].h.Value
			parent.ikeys[path[i].slot-1] = newKey
			t.cache.MarkDirty(path[i].h)
			return
		}
	}
}

// rebalanceLeaf restores the minimum occupancy of an underfull, non-root
// leaf by borrowing from a sibling, or else merging with one (left
// preferred, then right), recycling the surrendered page.
func (t *BTree[K, V]) rebalanceLeaf(path []pathEntry[K, V], leafH *pagecache.Handle[*page[K, V]]) error {
	parentEntry := path[len(path)-1]
	parent := parentEntry.h.Value
	slot := parentEntry.slot
	leaf := leafH.Value
	minL := ceilHalf(t.fan.leafL)

	var leftH, rightH *pagecache.Handle[*page[K, V]]
	var err error
	if slot > 0 {
		if leftH, err = t.loadPage(parent.children[slot-1]); err != nil {
			return err
		}
	}
	if slot < parent.count-1 {
		if rightH, err = t.loadPage(parent.children[slot+1]); err != nil {
			if leftH != nil {
				t.cache.Release(leftH)
			}
			return err
		}
	}

	switch {
	case leftH != nil && leftH.Value.count > minL:
		left := leftH.Value
		li := left.count - 1
		bk, bv := left.keys[li], left.vals[li]
		removeAtLeaf(left, li)
		insertAtLeaf(leaf, 0, bk, bv)
		parent.ikeys[slot-1] = bk
		t.cache.MarkDirty(leftH)
		t.cache.MarkDirty(leafH)
		t.cache.MarkDirty(parentEntry.h)
		if rightH != nil {
			t.cache.Release(rightH)
		}
		t.cache.Release(leftH)
		t.cache.Release(leafH)
		return t.releaseEntries(path)

	case rightH != nil && rightH.Value.count > minL:
		right := rightH.Value
		bk, bv := right.keys[0], right.vals[0]
		removeAtLeaf(right, 0)
		insertAtLeaf(leaf, leaf.count, bk, bv)
		parent.ikeys[slot] = right.keys[0]
		t.cache.MarkDirty(rightH)
		t.cache.MarkDirty(leafH)
		t.cache.MarkDirty(parentEntry.h)
		if leftH != nil {
			t.cache.Release(leftH)
		}
		t.cache.Release(rightH)
		t.cache.Release(leafH)
		return t.releaseEntries(path)

	case leftH != nil:
		left := leftH.Value
		left.keys = append(left.keys, leaf.keys...)
		left.vals = append(left.vals, leaf.vals...)
		left.count = len(left.keys)
		left.next = leaf.next
		t.cache.MarkDirty(leftH)
		if rightH != nil {
			t.cache.Release(rightH)
		}
		t.cache.Release(leftH)
		removeAtInner(parent, slot, slot-1)
		t.cache.MarkDirty(parentEntry.h)
		if err := t.freePage(leafH); err != nil {
			return err
		}
		return t.rebalanceAncestors(path)

	default:
		right := rightH.Value
		leaf.keys = append(leaf.keys, right.keys...)
		leaf.vals = append(leaf.vals, right.vals...)
		leaf.count = len(leaf.keys)
		leaf.next = right.next
		t.cache.MarkDirty(leafH)
		if leftH != nil {
			t.cache.Release(leftH)
		}
		t.cache.Release(leafH)
		removeAtInner(parent, slot+1, slot)
		t.cache.MarkDirty(parentEntry.h)
		if err := t.freePage(rightH); err != nil {
			return err
		}
		return t.rebalanceAncestors(path)
	}
}

// rebalanceAncestors is invoked after a child merge shrank path[len-1] by
// one entry; it walks upward applying the same borrow/merge discipline to
// inner pages, collapsing the root if it is left with a single child.
func (t *BTree[K, V]) rebalanceAncestors(path []pathEntry[K, V]) error {
	idx := len(path) - 1
	for idx >= 0 {
		h := path[idx].h
		p := h.Value
		if idx == 0 {
			if p.count == 1 {
				t.setRootID(p.children[0])
				return t.freePage(h)
			}
			return t.cache.Release(h)
		}
		if p.count >= ceilHalf(t.fan.innerM) {
			return t.releaseEntries(path[:idx+1])
		}
		ownSlot := path[idx-1].slot
		parentH := path[idx-1].h
		merged, err := t.rebalanceInnerPage(parentH.Value, parentH, p, h, ownSlot)
		if err != nil {
			return err
		}
		if !merged {
			return t.releaseEntries(path[:idx])
		}
		idx--
	}
	return nil
}

// rebalanceInnerPage rebalances the underfull inner page p (handle h),
// which sits at parent.children[ownSlot]. It returns true if p was merged
// away (the parent lost an entry and must itself be checked).
func (t *BTree[K, V]) rebalanceInnerPage(parent *page[K, V], parentH *pagecache.Handle[*page[K, V]], p *page[K, V], h *pagecache.Handle[*page[K, V]], ownSlot int) (bool, error) {
	minM := ceilHalf(t.fan.innerM)

	var leftH, rightH *pagecache.Handle[*page[K, V]]
	var err error
	if ownSlot > 0 {
		if leftH, err = t.loadPage(parent.children[ownSlot-1]); err != nil {
			return false, err
		}
	}
	if ownSlot < parent.count-1 {
		if rightH, err = t.loadPage(parent.children[ownSlot+1]); err != nil {
			if leftH != nil {
				t.cache.Release(leftH)
			}
			return false, err
		}
	}

	switch {
	case leftH != nil && leftH.Value.count > minM:
		left := leftH.Value
		borrowedChild := left.children[left.count-1]
		borrowedSep := parent.ikeys[ownSlot-1]
		newParentSep := left.ikeys[len(left.ikeys)-1]

		left.children = left.children[:left.count-1]
		left.ikeys = left.ikeys[:len(left.ikeys)-1]
		left.count--

		p.children = append([]pageID{borrowedChild}, p.children...)
		p.ikeys = append([]K{borrowedSep}, p.ikeys...)
		p.count++

		parent.ikeys[ownSlot-1] = newParentSep

		t.cache.MarkDirty(leftH)
		t.cache.MarkDirty(h)
		t.cache.MarkDirty(parentH)
		if rightH != nil {
			t.cache.Release(rightH)
		}
		t.cache.Release(leftH)
		t.cache.Release(h)
		return false, nil

	case rightH != nil && rightH.Value.count > minM:
		right := rightH.Value
		borrowedChild := right.children[0]
		borrowedSep := parent.ikeys[ownSlot]
		newParentSep := right.ikeys[0]

		right.children = right.children[1:]
		right.ikeys = right.ikeys[1:]
		right.count--

		p.children = append(p.children, borrowedChild)
		p.ikeys = append(p.ikeys, borrowedSep)
		p.count++

		parent.ikeys[ownSlot] = newParentSep

		t.cache.MarkDirty(rightH)
		t.cache.MarkDirty(h)
		t.cache.MarkDirty(parentH)
		if leftH != nil {
			t.cache.Release(leftH)
		}
		t.cache.Release(rightH)
		t.cache.Release(h)
		return false, nil

	case leftH != nil:
		left := leftH.Value
		sep := parent.ikeys[ownSlot-1]
		left.ikeys = append(left.ikeys, sep)
		left.ikeys = append(left.ikeys, p.ikeys...)
		left.children = append(left.children, p.children...)
		left.count = len(left.children)
		t.cache.MarkDirty(leftH)
		if rightH != nil {
			t.cache.Release(rightH)
		}
		t.cache.Release(leftH)
		removeAtInner(parent, ownSlot, ownSlot-1)
		t.cache.MarkDirty(parentH)
		if err := t.freePage(h); err != nil {
			return false, err
		}
		return true, nil

	default:
		right := rightH.Value
		sep := parent.ikeys[ownSlot]
		p.ikeys = append(p.ikeys, sep)
		p.ikeys = append(p.ikeys, right.ikeys...)
		p.children = append(p.children, right.children...)
		p.count = len(p.children)
		t.cache.MarkDirty(h)
		if leftH != nil {
			t.cache.Release(leftH)
		}
		t.cache.Release(h)
		removeAtInner(parent, ownSlot+1, ownSlot)
		t.cache.MarkDirty(parentH)
		if err := t.freePage(rightH); err != nil {
			return false, err
		}
		return true, nil
	}
}
