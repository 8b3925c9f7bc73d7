package blockfile

import (
	"path/filepath"
	"testing"
)

func TestInitAllocateWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	bf, err := Init(path, DefaultConfig(3))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	payload := []byte("hello-block")
	idx, err := bf.Write(payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected first payload block to be index 1, got %d", idx)
	}

	dst := make([]byte, len(payload))
	if err := bf.Read(dst, idx, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(dst) != string(payload) {
		t.Fatalf("round trip mismatch: got %q want %q", dst, payload)
	}

	if err := bf.SetSlot(1, 42); err != nil {
		t.Fatalf("SetSlot: %v", err)
	}
	v, err := bf.GetSlot(1)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if v != 42 {
		t.Fatalf("GetSlot returned %d, want 42", v)
	}

	if err := bf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestMonotonicAllocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	bf, err := Init(path, DefaultConfig(3))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer bf.Close()

	var last int64
	for i := 0; i < 10; i++ {
		idx, err := bf.Allocate()
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if idx <= last {
			t.Fatalf("block indices must increase: got %d after %d", idx, last)
		}
		last = idx
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	bf, err := Init(path, DefaultConfig(3))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	idx, err := bf.Write([]byte("persisted"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := bf.SetSlot(2, 7); err != nil {
		t.Fatalf("SetSlot: %v", err)
	}
	if err := bf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, DefaultConfig(3))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	v, err := reopened.GetSlot(2)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if v != 7 {
		t.Fatalf("GetSlot after reopen = %d, want 7", v)
	}

	dst := make([]byte, len("persisted"))
	if err := reopened.Read(dst, idx, 0); err != nil {
		t.Fatalf("Read after reopen: %v", err)
	}
	if string(dst) != "persisted" {
		t.Fatalf("Read after reopen = %q", dst)
	}
}

func TestReadBlockZeroRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	bf, err := Init(path, DefaultConfig(1))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer bf.Close()

	if err := bf.Read(make([]byte, 4), 0, 0); err == nil {
		t.Fatalf("expected error reading reserved header block")
	}
}
