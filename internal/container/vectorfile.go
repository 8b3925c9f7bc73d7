// Package container implements small persistent containers: VectorFile[T],
// an append-only list deserialized whole on open and reserialized whole on
// Flush, and HashMapFile[K, V] in hashmapfile.go. Both are meant for
// small, in-memory-sized collections (train-ID directories, user records)
// rather than the block-at-a-time structures in internal/heap and
// internal/bptree, so load-whole-file-on-open/rewrite-whole-on-flush is
// the simplest approach that fits.
package container

import (
	"encoding/binary"
	"errors"
	"os"

	"github.com/foxhollow/trackvault/internal/types"
)

// ErrTooLarge is returned instead of silently truncating when a container
// would exceed its configured capacity.
var ErrTooLarge = errors.New("container: capacity exceeded")

// VectorFile is an append-only, index-addressed list of T, persisted as a
// flat file: a uint64 count header followed by count fixed-size records.
type VectorFile[T any] struct {
	path     string
	codec    types.Codec[T]
	items    []T
	capacity int
}

// OpenVectorFile loads path if it exists, or starts empty. capacity <= 0
// means unbounded.
func OpenVectorFile[T any](path string, codec types.Codec[T], capacity int) (*VectorFile[T], error) {
	v := &VectorFile[T]{path: path, codec: codec, capacity: capacity}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return v, nil
	}
	count := binary.LittleEndian.Uint64(data[:8])
	recSize := codec.Size()
	v.items = make([]T, count)
	off := 8
	for i := range v.items {
		v.items[i] = codec.Decode(data[off : off+recSize])
		off += recSize
	}
	return v, nil
}

// Len reports the number of stored items.
func (v *VectorFile[T]) Len() int { return len(v.items) }

// Get returns the item at idx.
func (v *VectorFile[T]) Get(idx int) T { return v.items[idx] }

// Append adds v to the end, returning its index, or ErrTooLarge if the
// container is already at capacity.
func (v *VectorFile[T]) Append(item T) (int, error) {
	if v.capacity > 0 && len(v.items) >= v.capacity {
		return 0, ErrTooLarge
	}
	v.items = append(v.items, item)
	return len(v.items) - 1, nil
}

// Set overwrites the item at idx.
func (v *VectorFile[T]) Set(idx int, item T) { v.items[idx] = item }

// Flush rewrites the whole backing file.
func (v *VectorFile[T]) Flush() error {
	recSize := v.codec.Size()
	buf := make([]byte, 8+len(v.items)*recSize)
	binary.LittleEndian.PutUint64(buf[:8], uint64(len(v.items)))
	off := 8
	for _, item := range v.items {
		v.codec.Encode(item, buf[off:off+recSize])
		off += recSize
	}
	return os.WriteFile(v.path, buf, 0o644)
}
