// Package blockfile implements the storage core's lowest layer: a
// fixed-size-block-addressed file with a reserved header region holding a
// small array of application integers. It hands out monotonically
// increasing block indices and performs raw, uncached I/O — every call
// touches the OS file, with no implicit caching layered in underneath.
package blockfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// DefaultBlockSize matches the common OS page size.
const DefaultBlockSize = 4096

var (
	ErrClosed       = errors.New("blockfile: file is closed")
	ErrBadSlot      = errors.New("blockfile: slot index out of range")
	ErrBadBlock     = errors.New("blockfile: block index out of range")
	ErrShortIO      = errors.New("blockfile: short read or write")
	ErrHeaderTooBig = errors.New("blockfile: info slots do not fit in one block")
)

// Config configures a File's block size and reserved header slot count.
type Config struct {
	BlockSize int // bytes per block, including the header block
	InfoLen   int // number of application-addressable header slots, 1-based
}

// DefaultConfig returns sensible defaults for a tree/heap with infoLen
// reserved integer slots.
func DefaultConfig(infoLen int) Config {
	return Config{BlockSize: DefaultBlockSize, InfoLen: infoLen}
}

// File is a fixed-size-block file with a reserved header block (block 0).
// Block indices are stable for the file's lifetime once handed out by
// Allocate/Write; recycling them is an application-level concern (see
// internal/bptree's free list).
type File struct {
	f         *os.File
	blockSize int
	infoLen   int
	slots     []int64 // in-memory authoritative copy of the header slots
	numBlocks int64   // total blocks, including block 0
	closed    bool
}

func slotBytes(infoLen int) int { return infoLen * 8 }

// Init creates (truncating any existing file) a new block file with a
// zero-filled header block.
func Init(path string, cfg Config) (*File, error) {
	if slotBytes(cfg.InfoLen) > cfg.BlockSize {
		return nil, ErrHeaderTooBig
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockfile: init %s: %w", path, err)
	}
	bf := &File{f: f, blockSize: cfg.BlockSize, infoLen: cfg.InfoLen, slots: make([]int64, cfg.InfoLen), numBlocks: 1}
	header := make([]byte, cfg.BlockSize)
	if _, err := f.WriteAt(header, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("blockfile: init %s: %w", path, err)
	}
	return bf, nil
}

// Open opens an existing block file and loads its header slots into memory.
func Open(path string, cfg Config) (*File, error) {
	if slotBytes(cfg.InfoLen) > cfg.BlockSize {
		return nil, ErrHeaderTooBig
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockfile: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size()%int64(cfg.BlockSize) != 0 || info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("blockfile: open %s: %w", path, ErrShortIO)
	}
	bf := &File{
		f:         f,
		blockSize: cfg.BlockSize,
		infoLen:   cfg.InfoLen,
		slots:     make([]int64, cfg.InfoLen),
		numBlocks: info.Size() / int64(cfg.BlockSize),
	}
	header := make([]byte, slotBytes(cfg.InfoLen))
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("blockfile: open %s: %w", path, err)
	}
	for i := 0; i < cfg.InfoLen; i++ {
		bf.slots[i] = int64(binary.LittleEndian.Uint64(header[i*8:]))
	}
	return bf, nil
}

// Close flushes the in-memory header slot buffer to block 0 and closes the
// underlying file. Slots are only persisted here — reads during a run
// always come from the in-memory buffer.
func (bf *File) Close() error {
	if bf.closed {
		return nil
	}
	header := make([]byte, slotBytes(bf.infoLen))
	for i, v := range bf.slots {
		binary.LittleEndian.PutUint64(header[i*8:], uint64(v))
	}
	if _, err := bf.f.WriteAt(header, 0); err != nil {
		return fmt.Errorf("blockfile: close: %w", err)
	}
	bf.closed = true
	return bf.f.Close()
}

// GetSlot returns the n-th reserved integer (1-based).
func (bf *File) GetSlot(n int) (int64, error) {
	if n < 1 || n > bf.infoLen {
		return 0, ErrBadSlot
	}
	return bf.slots[n-1], nil
}

// SetSlot writes the n-th reserved integer (1-based) in memory; it is
// persisted only on Close.
func (bf *File) SetSlot(n int, v int64) error {
	if n < 1 || n > bf.infoLen {
		return ErrBadSlot
	}
	bf.slots[n-1] = v
	return nil
}

// Allocate appends one zero-filled block and returns its index.
func (bf *File) Allocate() (int64, error) {
	if bf.closed {
		return 0, ErrClosed
	}
	idx := bf.numBlocks
	zero := make([]byte, bf.blockSize)
	if _, err := bf.f.WriteAt(zero, idx*int64(bf.blockSize)); err != nil {
		return 0, fmt.Errorf("blockfile: allocate: %w", err)
	}
	bf.numBlocks++
	return idx, nil
}

// Write allocates a new block and copies value into it. len(value) must be
// <= BlockSize.
func (bf *File) Write(value []byte) (int64, error) {
	if len(value) > bf.blockSize {
		return 0, ErrShortIO
	}
	idx, err := bf.Allocate()
	if err != nil {
		return 0, err
	}
	if err := bf.Update(value, idx, 0); err != nil {
		return 0, err
	}
	return idx, nil
}

// Read reads len(dst) bytes at index*BlockSize+offset into dst; the range
// must lie inside the block.
func (bf *File) Read(dst []byte, index int64, offset int) error {
	if bf.closed {
		return ErrClosed
	}
	if index <= 0 || index >= bf.numBlocks {
		return ErrBadBlock
	}
	if offset < 0 || offset+len(dst) > bf.blockSize {
		return ErrShortIO
	}
	at := index*int64(bf.blockSize) + int64(offset)
	n, err := bf.f.ReadAt(dst, at)
	if err != nil {
		return fmt.Errorf("blockfile: read block %d: %w", index, err)
	}
	if n != len(dst) {
		return ErrShortIO
	}
	return nil
}

// Update writes src at index*BlockSize+offset.
func (bf *File) Update(src []byte, index int64, offset int) error {
	if bf.closed {
		return ErrClosed
	}
	if index <= 0 || index >= bf.numBlocks {
		return ErrBadBlock
	}
	if offset < 0 || offset+len(src) > bf.blockSize {
		return ErrShortIO
	}
	at := index*int64(bf.blockSize) + int64(offset)
	n, err := bf.f.WriteAt(src, at)
	if err != nil {
		return fmt.Errorf("blockfile: update block %d: %w", index, err)
	}
	if n != len(src) {
		return ErrShortIO
	}
	return nil
}

// BlockSize returns the configured block size.
func (bf *File) BlockSize() int { return bf.blockSize }

// NumBlocks returns the total block count, including the header block.
func (bf *File) NumBlocks() int64 { return bf.numBlocks }
