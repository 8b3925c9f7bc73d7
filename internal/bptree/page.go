package bptree

import (
	"encoding/binary"

	"github.com/foxhollow/trackvault/internal/types"
)

// Page header layout. Both inner and leaf pages start with a 1-byte kind
// tag and an 8-byte count field; a recycled page reuses the count field's
// 8 bytes as its free-list "next" pointer, which is why it is full int64
// width rather than a narrower cell count — it must be able to hold a
// block index.
const (
	offKind     = 0
	offCount    = 1
	innerHeader = offCount + 8 // kind(1) + count(8)
	offNext     = innerHeader
	leafHeader  = offNext + 8 // kind(1) + count(8) + next(8)
)

// page is the in-memory image of one inner or leaf node. Rather than a
// variable-length slotted layout (needed for []byte keys/values of
// unknown size), this page is a fixed-offset slot array: every K/V here
// reports a constant encoded size via its Codec, so fan-out is known up
// front and no cell directory is required.
type page[K, V any] struct {
	id    pageID
	kind  pageKind
	count int

	// leaf
	keys []K
	vals []V
	next pageID // next sibling leaf, 0 = end of chain

	// inner
	ikeys    []K      // count-1 separator keys
	children []pageID // count children
}

func newLeafPage[K, V any](id pageID) *page[K, V] {
	return &page[K, V]{id: id, kind: kindLeaf}
}

func newInnerPage[K, V any](id pageID) *page[K, V] {
	return &page[K, V]{id: id, kind: kindInner}
}

// fanout holds the derived maximum child count (inner, M) and maximum
// entry count (leaf, L) for one (block size, sizeof(K), sizeof(V))
// combination, computed rather than hard-coded so any Codec pair works.
type fanout struct {
	innerM int
	leafL  int
}

func computeFanout(blockSize, keySize, valSize int) fanout {
	leafL := (blockSize - leafHeader) / (keySize + valSize)
	// (M-1)*keySize + M*8 <= blockSize - innerHeader
	innerM := (blockSize - innerHeader + keySize) / (keySize + 8)
	if leafL < 4 {
		leafL = 4
	}
	if innerM < 4 {
		innerM = 4
	}
	return fanout{innerM: innerM, leafL: leafL}
}

func ceilHalf(n int) int { return (n + 1) / 2 }

// encode serialises p into buf[:blockSize]. buf is zeroed by the caller's
// allocation (raw blocks start zero-filled).
func (t *BTree[K, V]) encodePage(p *page[K, V], buf []byte) {
	if p.kind == kindLeaf {
		buf[offKind] = byte(kindLeaf)
		binary.LittleEndian.PutUint64(buf[offCount:], uint64(p.count))
		binary.LittleEndian.PutUint64(buf[offNext:], uint64(p.next))
		entrySize := t.keyCodec.Size() + t.valCodec.Size()
		for i := 0; i < p.count; i++ {
			off := leafHeader + i*entrySize
			t.keyCodec.Encode(p.keys[i], buf[off:])
			t.valCodec.Encode(p.vals[i], buf[off+t.keyCodec.Size():])
		}
		return
	}

	buf[offKind] = byte(kindInner)
	binary.LittleEndian.PutUint64(buf[offCount:], uint64(p.count))
	keySize := t.keyCodec.Size()
	keysOff := innerHeader
	for i := 0; i < p.count-1; i++ {
		t.keyCodec.Encode(p.ikeys[i], buf[keysOff+i*keySize:])
	}
	childOff := keysOff + (t.fan.innerM-1)*keySize
	for i := 0; i < p.count; i++ {
		binary.LittleEndian.PutUint64(buf[childOff+i*8:], uint64(p.children[i]))
	}
}

func (t *BTree[K, V]) decodePage(id pageID, buf []byte) *page[K, V] {
	kind := pageKind(buf[offKind])
	count := int(binary.LittleEndian.Uint64(buf[offCount:]))

	if kind == kindLeaf {
		p := newLeafPage[K, V](id)
		p.count = count
		p.next = pageID(int64(binary.LittleEndian.Uint64(buf[offNext:])))
		entrySize := t.keyCodec.Size() + t.valCodec.Size()
		p.keys = make([]K, count)
		p.vals = make([]V, count)
		for i := 0; i < count; i++ {
			off := leafHeader + i*entrySize
			p.keys[i] = t.keyCodec.Decode(buf[off:])
			p.vals[i] = t.valCodec.Decode(buf[off+t.keyCodec.Size():])
		}
		return p
	}

	p := newInnerPage[K, V](id)
	p.count = count
	keySize := t.keyCodec.Size()
	keysOff := innerHeader
	p.ikeys = make([]K, max0(count-1))
	for i := 0; i < count-1; i++ {
		p.ikeys[i] = t.keyCodec.Decode(buf[keysOff+i*keySize:])
	}
	childOff := keysOff + (t.fan.innerM-1)*keySize
	p.children = make([]pageID, count)
	for i := 0; i < count; i++ {
		p.children[i] = pageID(int64(binary.LittleEndian.Uint64(buf[childOff+i*8:])))
	}
	return p
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// PairCodec and Pair give composite (primary, tiebreaker) keys a
// first-class representation (REDESIGN FLAGS: "Ad-hoc pair-as-composite-key").
type Pair[A, B any] struct {
	First  A
	Second B
}

type PairCodec[A, B any] struct {
	A types.Codec[A]
	B types.Codec[B]
}

func (c PairCodec[A, B]) Size() int { return c.A.Size() + c.B.Size() }

func (c PairCodec[A, B]) Encode(v Pair[A, B], buf []byte) {
	c.A.Encode(v.First, buf)
	c.B.Encode(v.Second, buf[c.A.Size():])
}

func (c PairCodec[A, B]) Decode(buf []byte) Pair[A, B] {
	return Pair[A, B]{
		First:  c.A.Decode(buf),
		Second: c.B.Decode(buf[c.A.Size():]),
	}
}

// PairLess orders Pair[A, B] lexicographically given Less functions for
// each component.
func PairLess[A, B any](lessA types.Less[A], lessB types.Less[B]) types.Less[Pair[A, B]] {
	return func(x, y Pair[A, B]) bool {
		if lessA(x.First, y.First) {
			return true
		}
		if lessA(y.First, x.First) {
			return false
		}
		return lessB(x.Second, y.Second)
	}
}

func pairEqual[A, B any](lessA types.Less[A], lessB types.Less[B], x, y Pair[A, B]) bool {
	return !lessA(x.First, y.First) && !lessA(y.First, x.First) &&
		!lessB(x.Second, y.Second) && !lessB(y.Second, x.Second)
}
