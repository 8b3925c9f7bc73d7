package bptree

import "fmt"

// CheckInvariants walks the whole tree and verifies its structural
// invariants: every page's occupancy is within bounds (root exempt from
// the minimum), keys are strictly ascending within a page, and the leaf
// chain is ascending end-to-end. It is meant for tests, not the hot path.
func (t *BTree[K, V]) CheckInvariants() error {
	if t.closed {
		return ErrClosed
	}
	root := t.rootID()
	if root.IsZero() {
		return nil
	}

	var lastLeafKey *K
	sawLastLeafKey := false

	var walk func(id pageID, isRoot bool) error
	walk = func(id pageID, isRoot bool) error {
		h, err := t.loadPage(id)
		if err != nil {
			return err
		}
		p := h.Value
		defer t.cache.Release(h)

		if p.kind == kindLeaf {
			if !isRoot && p.count < ceilHalf(t.fan.leafL) {
				return fmt.Errorf("bptree: leaf %d underfull: %d < %d", p.id.Block(), p.count, ceilHalf(t.fan.leafL))
			}
			if p.count > t.fan.leafL {
				return fmt.Errorf("bptree: leaf %d overfull: %d > %d", p.id.Block(), p.count, t.fan.leafL)
			}
			for i := 1; i < p.count; i++ {
				if !t.less(p.keys[i-1], p.keys[i]) {
					return fmt.Errorf("bptree: leaf %d keys not strictly ascending at %d", p.id.Block(), i)
				}
			}
			if sawLastLeafKey && p.count > 0 && lastLeafKey != nil {
				if !t.less(*lastLeafKey, p.keys[0]) {
					return fmt.Errorf("bptree: leaf chain not ascending at block %d", p.id.Block())
				}
			}
			if p.count > 0 {
				k := p.keys[p.count-1]
				lastLeafKey = &k
				sawLastLeafKey = true
			}
			return nil
		}

		if !isRoot && p.count < ceilHalf(t.fan.innerM) {
			return fmt.Errorf("bptree: inner %d underfull: %d < %d", p.id.Block(), p.count, ceilHalf(t.fan.innerM))
		}
		if p.count > t.fan.innerM {
			return fmt.Errorf("bptree: inner %d overfull: %d > %d", p.id.Block(), p.count, t.fan.innerM)
		}
		if len(p.children) != p.count || len(p.ikeys) != max0(p.count-1) {
			return fmt.Errorf("bptree: inner %d malformed slot counts", p.id.Block())
		}
		for i := 1; i < p.count-1; i++ {
			if !t.less(p.ikeys[i-1], p.ikeys[i]) {
				return fmt.Errorf("bptree: inner %d separators not strictly ascending at %d", p.id.Block(), i)
			}
		}
		for _, child := range p.children {
			if err := walk(child, false); err != nil {
				return err
			}
		}
		return nil
	}

	return walk(root, true)
}
