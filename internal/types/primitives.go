package types

import "encoding/binary"

// Uint64Codec encodes a uint64 as 8 big-endian bytes. Used for string
// hashes (railway.StringHash) and other opaque 64-bit keys.
type Uint64Codec struct{}

func (Uint64Codec) Size() int { return 8 }

func (Uint64Codec) Encode(v uint64, buf []byte) {
	binary.BigEndian.PutUint64(buf, v)
}

func (Uint64Codec) Decode(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}

// Int64Codec encodes an int64's two's-complement bit pattern as 8
// big-endian bytes, unshifted. The bytes do not sort in numeric order for
// negative values; trees order keys with a Less function, not by bytes.
type Int64Codec struct{}

func (Int64Codec) Size() int { return 8 }

func (Int64Codec) Encode(v int64, buf []byte) {
	binary.BigEndian.PutUint64(buf, uint64(v))
}

func (Int64Codec) Decode(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf))
}

// Int32Codec encodes an int32 as 4 big-endian bytes. DatetimeCodec is
// built on it.
type Int32Codec struct{}

func (Int32Codec) Size() int { return 4 }

func (Int32Codec) Encode(v int32, buf []byte) {
	binary.BigEndian.PutUint32(buf, uint32(v))
}

func (Int32Codec) Decode(buf []byte) int32 {
	return int32(binary.BigEndian.Uint32(buf))
}
