package railway

import "hash/fnv"

// StringHash maps an arbitrary string (username, train ID, station name)
// to a uint64 key suitable for a bptree.BTree[uint64, V] index. FNV-1a via
// hash/fnv is the standard idiomatic choice for this kind of small
// opaque-key hashing (see DESIGN.md for why no third-party hashing
// library was pulled in instead).
func StringHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
