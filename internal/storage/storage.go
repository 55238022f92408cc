package storage

// Memory the RAM only store, a fresh one reads as erased EEPROM.
// Commit only clears the dirty flag.
type Memory struct {
	image
	commits int
}

// NewMemory create new memory store
func NewMemory() *Memory {
	return &Memory{}
}

// Begin keeps the existing contents if the region is already big enough
func (m *Memory) Begin(size int) error {
	if size <= 0 {
		return ErrInvalidSize
	}
	if len(m.buf) >= size {
		return nil
	}
	buf := erased(size)
	copy(buf, m.buf)
	m.buf = buf
	return nil
}

func (m *Memory) Commit() error {
	if m.buf == nil {
		return ErrNotBegun
	}
	m.dirty = false
	m.commits++
	return nil
}

// Commits number of successful commits
func (m *Memory) Commits() int {
	return m.commits
}

// Bytes copy of the current image
func (m *Memory) Bytes() []byte {
	ret := make([]byte, len(m.buf))
	copy(ret, m.buf)
	return ret
}
