// Package storage byte addressable non-volatile store (EEPROM emulation)
package storage

import (
	"errors"
	"io"
)

// ErasedByte value of an erased EEPROM cell
const ErasedByte byte = 0xff

var (
	ErrNotBegun    = errors.New("storage not begun")
	ErrOutOfRange  = errors.New("offset out of range")
	ErrInvalidSize = errors.New("invalid storage size")
)

// Storager the byte level contract of a non-volatile store.
// Writes land in a RAM image and become durable only after Commit.
type Storager interface {
	io.ReaderAt
	io.WriterAt

	// Begin reserves a region of at least size bytes
	Begin(size int) error
	// Size of the reserved region, 0 before Begin
	Size() int
	GetByte(off int) (byte, error)
	PutByte(off int, b byte) error
	// Commit flushes pending writes to durable media
	Commit() error
}

// image the RAM copy shared by all implementations
type image struct {
	buf   []byte
	dirty bool
}

func (m *image) check(off int64, n int) error {
	if m.buf == nil {
		return ErrNotBegun
	}
	if off < 0 || n < 0 || off+int64(n) > int64(len(m.buf)) {
		return ErrOutOfRange
	}
	return nil
}

func (m *image) Size() int {
	return len(m.buf)
}

func (m *image) GetByte(off int) (byte, error) {
	if err := m.check(int64(off), 1); err != nil {
		return 0, err
	}
	return m.buf[off], nil
}

func (m *image) PutByte(off int, b byte) error {
	if err := m.check(int64(off), 1); err != nil {
		return err
	}
	if m.buf[off] != b {
		m.buf[off] = b
		m.dirty = true
	}
	return nil
}

func (m *image) ReadAt(p []byte, off int64) (int, error) {
	if err := m.check(off, len(p)); err != nil {
		return 0, err
	}
	return copy(p, m.buf[off:]), nil
}

func (m *image) WriteAt(p []byte, off int64) (int, error) {
	if err := m.check(off, len(p)); err != nil {
		return 0, err
	}
	n := copy(m.buf[off:], p)
	m.dirty = true
	return n, nil
}

func erased(size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = ErasedByte
	}
	return buf
}
