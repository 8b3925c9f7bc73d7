package bptree

// Search appends, in ascending key order, the value of every entry with a
// key in [low, high] to sink. The caller supplies the sink rather than
// getting back a slice or writing into a shared scratch buffer, so no
// result set is ever truncated silently.
func (t *BTree[K, V]) Search(low, high K, sink func(V)) error {
	if t.closed {
		return ErrClosed
	}
	root := t.rootID()
	if root.IsZero() {
		return nil
	}
	path, leafH, err := t.descend(root, low, false)
	if err != nil {
		return err
	}
	if err := t.releaseEntries(path); err != nil {
		return err
	}

	cur := leafH
	for {
		p := cur.Value
		for i := 0; i < p.count; i++ {
			if t.less(p.keys[i], low) {
				continue
			}
			if t.less(high, p.keys[i]) {
				return t.cache.Release(cur)
			}
			sink(p.vals[i])
		}
		next := p.next
		if err := t.cache.Release(cur); err != nil {
			return err
		}
		if next.IsZero() {
			return nil
		}
		if cur, err = t.loadPage(next); err != nil {
			return err
		}
	}
}

// PrefixScan scans every entry whose primary component equals primary,
// synthesizing the (primary, min)..(primary, max) bounding pair
// internally instead of making every caller build one by hand.
func PrefixScan[A, B, V any](t *BTree[Pair[A, B], V], primary A, minB, maxB B, sink func(V)) error {
	return t.Search(Pair[A, B]{First: primary, Second: minB}, Pair[A, B]{First: primary, Second: maxB}, sink)
}
