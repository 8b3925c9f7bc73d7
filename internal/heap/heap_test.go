package heap

import (
	"path/filepath"
	"testing"

	"github.com/foxhollow/trackvault/internal/blockfile"
	"github.com/foxhollow/trackvault/internal/types"
)

func TestWriteReadUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.db")
	bf, err := blockfile.Init(path, blockfile.DefaultConfig(0))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer bf.Close()

	h := Open[int64](bf, types.Int64Codec{})

	idx, err := h.Write(42)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	v, err := h.Read(idx)
	if err != nil || v != 42 {
		t.Fatalf("Read = %v, %v, want 42", v, err)
	}

	if err := h.Update(idx, 99); err != nil {
		t.Fatalf("Update: %v", err)
	}
	v, err = h.Read(idx)
	if err != nil || v != 99 {
		t.Fatalf("Read after Update = %v, %v, want 99", v, err)
	}
}

func TestRangeIO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.db")
	bf, err := blockfile.Init(path, blockfile.DefaultConfig(0))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer bf.Close()

	h := Open[[4]int64](bf, fixedArrayCodec{})
	idx, err := h.Write([4]int64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var buf [8]byte
	if err := h.ReadRange(idx, 8, buf[:]); err != nil {
		t.Fatalf("ReadRange: %v", err)
	}

	patched := [8]byte{9, 0, 0, 0, 0, 0, 0, 0}
	if err := h.UpdateRange(idx, 8, patched[:]); err != nil {
		t.Fatalf("UpdateRange: %v", err)
	}
	v, err := h.Read(idx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v[1] != 9 || v[0] != 1 || v[2] != 3 {
		t.Fatalf("got %v, want patched second element only", v)
	}
}

type fixedArrayCodec struct{}

func (fixedArrayCodec) Size() int { return 32 }

func (fixedArrayCodec) Encode(v [4]int64, buf []byte) {
	for i, x := range v {
		putLE(buf[i*8:], uint64(x))
	}
}

func (fixedArrayCodec) Decode(buf []byte) [4]int64 {
	var v [4]int64
	for i := range v {
		v[i] = int64(getLE(buf[i*8:]))
	}
	return v
}

func putLE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getLE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
