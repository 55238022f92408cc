package locdb

// saved previous contents of a device range
type saved struct {
	off  int64
	data []byte
}

// tx keeps the previous contents of every range written through it, so a
// failed operation can put the image back the way it was
type tx struct {
	s    *Store
	undo []saved
}

// apply runs f in a tx. Any error from f rolls back all writes made in it,
// including writes already committed by an earlier step of f.
func (s *Store) apply(f func(t *tx) error) error {
	t := &tx{s: s}
	if err := f(t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

func (t *tx) write(op string, p []byte, off int64) error {
	prev := make([]byte, len(p))
	if _, err := t.s.dev.ReadAt(prev, off); err != nil {
		return t.s.ioErr("read before "+op, err)
	}
	if _, err := t.s.dev.WriteAt(p, off); err != nil {
		return t.s.ioErr(op, err)
	}
	t.undo = append(t.undo, saved{off: off, data: prev})
	return nil
}

func (t *tx) putByte(op string, off int, b byte) error {
	return t.write(op, []byte{b}, int64(off))
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		u := t.undo[i]
		if _, err := t.s.dev.WriteAt(u.data, u.off); err != nil {
			t.s.sugar.Errorw("rollback", "offset", u.off, "err", err)
		}
	}
	if len(t.undo) > 0 {
		t.s.sugar.Warnw("rolled back", "ranges", len(t.undo))
	}
	t.undo = nil
}
