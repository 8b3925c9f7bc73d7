package container

import (
	"path/filepath"
	"testing"

	"github.com/foxhollow/trackvault/internal/types"
)

func TestVectorFileAppendPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vec.dat")
	v, err := OpenVectorFile[int64](path, types.Int64Codec{}, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := int64(0); i < 10; i++ {
		if _, err := v.Append(i * 7); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	v2, err := OpenVectorFile[int64](path, types.Int64Codec{}, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v2.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", v2.Len())
	}
	for i := 0; i < 10; i++ {
		if v2.Get(i) != int64(i)*7 {
			t.Fatalf("Get(%d) = %d, want %d", i, v2.Get(i), int64(i)*7)
		}
	}
}

func TestVectorFileCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vec.dat")
	v, _ := OpenVectorFile[int64](path, types.Int64Codec{}, 2)
	if _, err := v.Append(1); err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	if _, err := v.Append(2); err != nil {
		t.Fatalf("Append 2: %v", err)
	}
	if _, err := v.Append(3); err != ErrTooLarge {
		t.Fatalf("Append 3 err = %v, want ErrTooLarge", err)
	}
}

func TestHashMapFilePersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.dat")
	h, err := OpenHashMapFile[uint64, int64](path, types.Uint64Codec{}, types.Int64Codec{}, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := uint64(0); i < 20; i++ {
		if err := h.Put(i, int64(i*3)); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	if err := h.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	h2, err := OpenHashMapFile[uint64, int64](path, types.Uint64Codec{}, types.Int64Codec{}, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if h2.Len() != 20 {
		t.Fatalf("Len() = %d, want 20", h2.Len())
	}
	for i := uint64(0); i < 20; i++ {
		v, ok := h2.Get(i)
		if !ok || v != int64(i*3) {
			t.Fatalf("Get(%d) = %v, %v, want %d, true", i, v, ok, i*3)
		}
	}
	h2.Delete(5)
	if _, ok := h2.Get(5); ok {
		t.Fatalf("key 5 should be deleted")
	}
}

func TestHashMapFileCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.dat")
	h, _ := OpenHashMapFile[uint64, int64](path, types.Uint64Codec{}, types.Int64Codec{}, 1)
	if err := h.Put(1, 1); err != nil {
		t.Fatalf("Put 1: %v", err)
	}
	if err := h.Put(1, 2); err != nil {
		t.Fatalf("overwriting existing key should not hit capacity: %v", err)
	}
	if err := h.Put(2, 1); err != ErrTooLarge {
		t.Fatalf("Put 2 err = %v, want ErrTooLarge", err)
	}
}
