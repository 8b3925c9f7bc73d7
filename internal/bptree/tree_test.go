package bptree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/foxhollow/trackvault/internal/types"
)

func lessInt64(a, b int64) bool { return a < b }

func openTestTree(t *testing.T, cfg Config) *BTree[int64, int64] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.db")
	tr, err := Open[int64, int64](path, types.Int64Codec{}, types.Int64Codec{}, lessInt64, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestInsertFindBasic(t *testing.T) {
	tr := openTestTree(t, Config{BlockSize: 256, CacheSize: 8, Recycle: true})

	for i := int64(0); i < 200; i++ {
		if err := tr.Insert(i, i*10); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	if err := tr.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after inserts: %v", err)
	}
	size, err := tr.Size()
	if err != nil || size != 200 {
		t.Fatalf("Size() = %d, %v, want 200", size, err)
	}

	for i := int64(0); i < 200; i++ {
		v, ok, err := tr.Find(i)
		if err != nil || !ok || v != i*10 {
			t.Fatalf("Find(%d) = %v, %v, %v", i, v, ok, err)
		}
	}
	if _, ok, _ := tr.Find(9999); ok {
		t.Fatalf("Find(9999) unexpectedly found")
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	tr := openTestTree(t, Config{BlockSize: 256, CacheSize: 8, Recycle: true})
	if err := tr.Insert(1, 100); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tr.Insert(1, 200); err == nil {
		t.Fatalf("expected ErrDuplicateKey")
	}
}

func TestModify(t *testing.T) {
	tr := openTestTree(t, Config{BlockSize: 256, CacheSize: 8, Recycle: true})
	if err := tr.Insert(1, 100); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tr.Modify(1, 999); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	v, ok, _ := tr.Find(1)
	if !ok || v != 999 {
		t.Fatalf("Find after Modify = %v, %v, want 999, true", v, ok)
	}
	if err := tr.Modify(42, 1); err == nil {
		t.Fatalf("expected ErrNotFound modifying absent key")
	}
}

func TestRemoveAndRebalance(t *testing.T) {
	tr := openTestTree(t, Config{BlockSize: 256, CacheSize: 8, Recycle: true})

	const n = 300
	for i := int64(0); i < n; i++ {
		if err := tr.Insert(i, i); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := int64(0); i < n; i += 2 {
		if err := tr.Remove(i); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}
	if err := tr.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after removals: %v", err)
	}
	size, _ := tr.Size()
	if size != n/2 {
		t.Fatalf("Size() = %d, want %d", size, n/2)
	}
	for i := int64(0); i < n; i++ {
		_, ok, _ := tr.Find(i)
		want := i%2 != 0
		if ok != want {
			t.Fatalf("Find(%d) present=%v, want %v", i, ok, want)
		}
	}

	for i := int64(1); i < n; i += 2 {
		if err := tr.Remove(i); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}
	if err := tr.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after full drain: %v", err)
	}
	empty, err := tr.Empty()
	if err != nil || !empty {
		t.Fatalf("Empty() = %v, %v, want true", empty, err)
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	tr := openTestTree(t, Config{BlockSize: 256, CacheSize: 8, Recycle: true})
	if err := tr.Insert(1, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tr.Remove(42); err != nil {
		t.Fatalf("Remove of absent key returned error: %v", err)
	}
	size, _ := tr.Size()
	if size != 1 {
		t.Fatalf("Size() = %d, want 1", size)
	}
}

func TestSearchOrderedRange(t *testing.T) {
	tr := openTestTree(t, Config{BlockSize: 256, CacheSize: 8, Recycle: true})
	for i := int64(0); i < 100; i++ {
		if err := tr.Insert(i, i*2); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	var got []int64
	if err := tr.Search(20, 29, func(v int64) { got = append(got, v) }); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d values, want 10", len(got))
	}
	for i, v := range got {
		want := (20 + int64(i)) * 2
		if v != want {
			t.Fatalf("got[%d] = %d, want %d", i, v, want)
		}
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	cfg := Config{BlockSize: 256, CacheSize: 8, Recycle: true}

	tr, err := Open[int64, int64](path, types.Int64Codec{}, types.Int64Codec{}, lessInt64, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := int64(0); i < 150; i++ {
		if err := tr.Insert(i, i+1); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("tree file missing after close: %v", err)
	}

	tr2, err := Open[int64, int64](path, types.Int64Codec{}, types.Int64Codec{}, lessInt64, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tr2.Close()

	size, err := tr2.Size()
	if err != nil || size != 150 {
		t.Fatalf("Size() after reopen = %d, %v, want 150", size, err)
	}
	for i := int64(0); i < 150; i++ {
		v, ok, err := tr2.Find(i)
		if err != nil || !ok || v != i+1 {
			t.Fatalf("Find(%d) after reopen = %v, %v, %v", i, v, ok, err)
		}
	}
	if err := tr2.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after reopen: %v", err)
	}
}

func TestRecyclingReusesFreedBlocks(t *testing.T) {
	tr := openTestTree(t, Config{BlockSize: 256, CacheSize: 8, Recycle: true})

	for i := int64(0); i < 400; i++ {
		if err := tr.Insert(i, i); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	before := tr.bf.NumBlocks()

	for i := int64(0); i < 400; i++ {
		if err := tr.Remove(i); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}
	for i := int64(400); i < 800; i++ {
		if err := tr.Insert(i, i); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	after := tr.bf.NumBlocks()

	if after > before {
		t.Fatalf("recycling failed to bound growth: before=%d after=%d", before, after)
	}
	if err := tr.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestPairCompositeKeyPrefixScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.db")
	keyCodec := PairCodec[int64, int64]{A: types.Int64Codec{}, B: types.Int64Codec{}}
	less := PairLess[int64, int64](lessInt64, lessInt64)

	tr, err := Open[Pair[int64, int64], int64](path, keyCodec, types.Int64Codec{}, less, Config{BlockSize: 256, CacheSize: 8, Recycle: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	for primary := int64(0); primary < 5; primary++ {
		for secondary := int64(0); secondary < 20; secondary++ {
			k := Pair[int64, int64]{First: primary, Second: secondary}
			if err := tr.Insert(k, primary*1000+secondary); err != nil {
				t.Fatalf("Insert(%v): %v", k, err)
			}
		}
	}

	var got []int64
	if err := PrefixScan(tr, int64(3), int64(0), int64(19), func(v int64) { got = append(got, v) }); err != nil {
		t.Fatalf("PrefixScan: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("got %d values, want 20", len(got))
	}
	for i, v := range got {
		want := int64(3000 + i)
		if v != want {
			t.Fatalf("got[%d] = %d, want %d", i, v, want)
		}
	}
}
