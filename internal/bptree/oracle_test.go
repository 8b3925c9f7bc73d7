package bptree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestOracleAgreesAcrossMixedOps drives a long sequence of
// insert/remove/modify against both the tree and a plain Go map oracle,
// checking the returned errors on every step and, every 97th step and once
// at the end, that Size, Find and a full-range Search agree with the oracle — spec.md §8's "functional correctness" and "ordered scan"
// testable properties, structurally diffed with go-cmp rather than
// compared field by field.
func TestOracleAgreesAcrossMixedOps(t *testing.T) {
	tr := openTestTree(t, Config{BlockSize: 512, CacheSize: 16, Recycle: true})
	oracle := map[int64]int64{}

	rng := rand.New(rand.NewSource(1))
	const ops = 2000
	const keySpace = 300

	for i := 0; i < ops; i++ {
		k := int64(rng.Intn(keySpace))
		switch rng.Intn(3) {
		case 0: // insert
			v := rng.Int63()
			err := tr.Insert(k, v)
			if _, exists := oracle[k]; exists {
				if err == nil {
					t.Fatalf("step %d: Insert(%d) succeeded but key already present", i, k)
				}
			} else {
				if err != nil {
					t.Fatalf("step %d: Insert(%d): %v", i, k, err)
				}
				oracle[k] = v
			}
		case 1: // remove
			err := tr.Remove(k)
			if err != nil {
				t.Fatalf("step %d: Remove(%d): %v", i, k, err)
			}
			delete(oracle, k)
		case 2: // modify
			v := rng.Int63()
			err := tr.Modify(k, v)
			if _, exists := oracle[k]; exists {
				if err != nil {
					t.Fatalf("step %d: Modify(%d): %v", i, k, err)
				}
				oracle[k] = v
			} else if err == nil {
				t.Fatalf("step %d: Modify(%d) succeeded on an absent key", i, k)
			}
		}

		if i%97 != 0 {
			continue
		}
		if err := tr.CheckInvariants(); err != nil {
			t.Fatalf("step %d: CheckInvariants: %v", i, err)
		}
		assertOracleMatches(t, tr, oracle, i)
	}
	assertOracleMatches(t, tr, oracle, ops)
}

func assertOracleMatches(t *testing.T, tr *BTree[int64, int64], oracle map[int64]int64, step int) {
	t.Helper()

	size, err := tr.Size()
	if err != nil {
		t.Fatalf("step %d: Size: %v", step, err)
	}
	if size != len(oracle) {
		t.Fatalf("step %d: Size() = %d, oracle has %d", step, size, len(oracle))
	}

	wantKeys := make([]int64, 0, len(oracle))
	for k := range oracle {
		wantKeys = append(wantKeys, k)
	}
	sort.Slice(wantKeys, func(i, j int) bool { return wantKeys[i] < wantKeys[j] })

	for _, k := range wantKeys {
		v, ok, err := tr.Find(k)
		if err != nil {
			t.Fatalf("step %d: Find(%d): %v", step, k, err)
		}
		if !ok {
			t.Fatalf("step %d: Find(%d) missing, oracle has it", step, k)
		}
		if v != oracle[k] {
			t.Fatalf("step %d: Find(%d) = %d, oracle has %d", step, k, v, oracle[k])
		}
	}

	var scanned []int64
	if err := tr.Search(int64(-1<<62), int64(1<<62-1), func(v int64) { scanned = append(scanned, v) }); err != nil {
		t.Fatalf("step %d: Search: %v", step, err)
	}
	var wantScan []int64
	for _, k := range wantKeys {
		wantScan = append(wantScan, oracle[k])
	}
	if diff := cmp.Diff(wantScan, scanned); diff != "" {
		t.Fatalf("step %d: full-range Search mismatch (-want +got):\n%s", step, diff)
	}
}

func TestOracleRangeSubset(t *testing.T) {
	tr := openTestTree(t, Config{BlockSize: 512, CacheSize: 16, Recycle: true})
	for i := int64(0); i < 64; i++ {
		if err := tr.Insert(i, i*i); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	type bound struct{ lo, hi int64 }
	bounds := []bound{{10, 20}, {0, 0}, {63, 63}, {-5, 5}, {50, 200}}

	for _, b := range bounds {
		var got []int64
		if err := tr.Search(b.lo, b.hi, func(v int64) { got = append(got, v) }); err != nil {
			t.Fatalf("Search(%d,%d): %v", b.lo, b.hi, err)
		}
		var want []int64
		for k := int64(0); k < 64; k++ {
			if k >= b.lo && k <= b.hi {
				want = append(want, k*k)
			}
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Search(%d,%d) mismatch (-want +got):\n%s", b.lo, b.hi, diff)
		}
	}
}

