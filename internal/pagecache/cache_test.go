package pagecache

import "testing"

func newTestCache(t *testing.T, maxSize int) (*Cache[string], map[int64]string, *[]int64) {
	t.Helper()
	backing := map[int64]string{}
	var flushed []int64
	load := func(i int64) (string, error) { return backing[i], nil }
	flush := func(i int64, v string) error {
		backing[i] = v
		flushed = append(flushed, i)
		return nil
	}
	return New[string](maxSize, load, flush), backing, &flushed
}

func TestTouchLoadsOnMiss(t *testing.T) {
	c, backing, _ := newTestCache(t, 4)
	backing[1] = "hello"

	h, err := c.Touch(1)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if h.Value != "hello" {
		t.Fatalf("got %q, want hello", h.Value)
	}
	if err := c.Release(h); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestDirtyFlushOnEvict(t *testing.T) {
	c, backing, flushed := newTestCache(t, 4)

	for i := int64(1); i <= 4; i++ {
		h := c.Insert(i, "v")
		c.MarkDirty(h)
		if err := c.Release(h); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}
	// Fifth insert forces eviction of block 1 (LRU tail), which is dirty.
	h := c.Insert(5, "v")
	if err := c.Release(h); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if len(*flushed) == 0 {
		t.Fatalf("expected a flush to have occurred on eviction")
	}
	if backing[(*flushed)[0]] != "v" {
		t.Fatalf("evicted page was not flushed with its value")
	}
}

func TestReferencedPageNotEvicted(t *testing.T) {
	c, _, flushed := newTestCache(t, 4)

	held := c.Insert(1, "held")
	c.MarkDirty(held)
	// held is never released — it must survive even as the cache grows past max.
	for i := int64(2); i <= 6; i++ {
		h := c.Insert(i, "v")
		if err := c.Release(h); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}

	for _, idx := range *flushed {
		if idx == 1 {
			t.Fatalf("referenced page 1 must not be flushed/evicted")
		}
	}
	if _, ok := c.entries[1]; !ok {
		t.Fatalf("referenced page 1 must remain in cache")
	}
}

func TestDoubleReleaseIsRejected(t *testing.T) {
	c, _, _ := newTestCache(t, 4)
	h := c.Insert(1, "v")
	if err := c.Release(h); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := c.Release(h); err == nil {
		t.Fatalf("expected error on double release")
	}
}

func TestFlushWritesBackWithoutEvicting(t *testing.T) {
	c, backing, _ := newTestCache(t, 4)
	h := c.Insert(1, "v")
	c.MarkDirty(h)
	if err := c.Release(h); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if backing[1] != "v" {
		t.Fatalf("Flush did not persist value")
	}
	if c.Len() != 1 {
		t.Fatalf("Flush must not evict entries, got len %d", c.Len())
	}
}
