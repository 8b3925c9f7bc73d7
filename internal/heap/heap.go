// Package heap implements a record heap: a block-addressable container
// that stores exactly one fixed-size T per block, with Read/Write/Update
// supporting byte-range partial I/O so a caller can update a slice of a
// record (e.g. one day's seat counts) without rewriting the whole thing.
package heap

import (
	"github.com/foxhollow/trackvault/internal/blockfile"
	"github.com/foxhollow/trackvault/internal/types"
)

// Heap stores fixed-size records of type T, one per block, on top of a
// blockfile.File.
type Heap[T any] struct {
	bf    *blockfile.File
	codec types.Codec[T]
}

// Open wraps an already-open blockfile.File as a record heap. The caller
// owns the File's lifetime; Close is not exposed here. In internal/railway
// each heap gets its own file, which the Engine closes.
func Open[T any](bf *blockfile.File, codec types.Codec[T]) *Heap[T] {
	return &Heap[T]{bf: bf, codec: codec}
}

// Write appends a new record and returns its block index.
func (h *Heap[T]) Write(v T) (int64, error) {
	buf := make([]byte, h.codec.Size())
	h.codec.Encode(v, buf)
	return h.bf.Write(buf)
}

// Read loads the full record at index.
func (h *Heap[T]) Read(index int64) (T, error) {
	buf := make([]byte, h.codec.Size())
	if err := h.bf.Read(buf, index, 0); err != nil {
		var zero T
		return zero, err
	}
	return h.codec.Decode(buf), nil
}

// Update overwrites the full record at index.
func (h *Heap[T]) Update(index int64, v T) error {
	buf := make([]byte, h.codec.Size())
	h.codec.Encode(v, buf)
	return h.bf.Update(buf, index, 0)
}

// ReadRange loads len(dst) bytes of the record's in-place encoding
// starting at byte offset, without decoding the full record — used for
// cheap partial reads of a large fixed-size T (e.g. one day's slice of a
// seat matrix).
func (h *Heap[T]) ReadRange(index int64, offset int, dst []byte) error {
	return h.bf.Read(dst, index, offset)
}

// UpdateRange overwrites src's bytes into the record at offset, without
// touching the rest of the record.
func (h *Heap[T]) UpdateRange(index int64, offset int, src []byte) error {
	return h.bf.Update(src, index, offset)
}
