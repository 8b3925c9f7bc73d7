package container

import (
	"encoding/binary"
	"errors"
	"os"

	"github.com/foxhollow/trackvault/internal/types"
)

// HashMapFile is a key/value map persisted as a flat file: a uint64 count
// header followed by count (key, value) pairs, deserialized whole on open
// and reserialized whole on Flush.
type HashMapFile[K comparable, V any] struct {
	path     string
	keyCodec types.Codec[K]
	valCodec types.Codec[V]
	items    map[K]V
	capacity int
}

// OpenHashMapFile loads path if it exists, or starts empty. capacity <= 0
// means unbounded.
func OpenHashMapFile[K comparable, V any](path string, keyCodec types.Codec[K], valCodec types.Codec[V], capacity int) (*HashMapFile[K, V], error) {
	h := &HashMapFile[K, V]{path: path, keyCodec: keyCodec, valCodec: valCodec, items: map[K]V{}, capacity: capacity}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return h, nil
	}
	count := binary.LittleEndian.Uint64(data[:8])
	ks, vs := keyCodec.Size(), valCodec.Size()
	off := 8
	for i := uint64(0); i < count; i++ {
		k := keyCodec.Decode(data[off : off+ks])
		off += ks
		v := valCodec.Decode(data[off : off+vs])
		off += vs
		h.items[k] = v
	}
	return h, nil
}

// Len reports the number of stored keys.
func (h *HashMapFile[K, V]) Len() int { return len(h.items) }

// Get returns the value for key, if present.
func (h *HashMapFile[K, V]) Get(key K) (V, bool) {
	v, ok := h.items[key]
	return v, ok
}

// Put inserts or overwrites key's value; inserting a brand-new key beyond
// capacity returns ErrTooLarge instead of silently truncating.
func (h *HashMapFile[K, V]) Put(key K, value V) error {
	if _, exists := h.items[key]; !exists && h.capacity > 0 && len(h.items) >= h.capacity {
		return ErrTooLarge
	}
	h.items[key] = value
	return nil
}

// Delete removes key, if present.
func (h *HashMapFile[K, V]) Delete(key K) { delete(h.items, key) }

// Flush rewrites the whole backing file.
func (h *HashMapFile[K, V]) Flush() error {
	ks, vs := h.keyCodec.Size(), h.valCodec.Size()
	buf := make([]byte, 8+len(h.items)*(ks+vs))
	binary.LittleEndian.PutUint64(buf[:8], uint64(len(h.items)))
	off := 8
	for k, v := range h.items {
		h.keyCodec.Encode(k, buf[off:off+ks])
		off += ks
		h.valCodec.Encode(v, buf[off:off+vs])
		off += vs
	}
	return os.WriteFile(h.path, buf, 0o644)
}
