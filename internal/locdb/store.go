// Package locdb the loco list kept in a byte addressable non-volatile store
package locdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"locstash/internal/config"
	"locstash/internal/storage"
)

// Store the loco list. Records [0,count) are packed on the device, one of
// them is selected and cached in memory. Every mutation is written through
// and committed before the call returns.
//
// A failed operation puts the image back as it was before the call. A
// Remove or Sort failing after some of its commits leaves those on the
// durable media until the next successful commit rewrites them.
type Store struct {
	mu sync.Mutex

	dev     storage.Storager
	lay     layout
	restore bool

	count    int
	selected int
	cache    Record

	sugar *zap.SugaredLogger
}

// Open reserves the region on dev and loads the store, a device with an
// unknown layout version is formatted with one default loco.
func Open(conf *config.Config, dev storage.Storager, logger *zap.Logger) (*Store, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	region := RegionSize(conf.MaxLocs)
	if region > conf.StoreSize {
		return nil, fmt.Errorf("%w: %d locos need %d bytes, store size %d",
			ErrInvalidConfig, conf.MaxLocs, region, conf.StoreSize)
	}

	s := &Store{
		dev:     dev,
		lay:     layout{max: conf.MaxLocs},
		restore: conf.Restore,
		sugar:   logger.Sugar(),
	}
	if err := dev.Begin(conf.StoreSize); err != nil {
		return nil, s.ioErr("begin", err)
	}
	if err := s.initializeOrLoad(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initializeOrLoad() error {
	version, err := s.dev.GetByte(versionOffset)
	if err != nil {
		return s.ioErr("read version", err)
	}
	if version != LayoutVersion {
		s.sugar.Infow("layout version mismatch, formatting", "stored", version, "want", LayoutVersion)
		return s.format()
	}

	n, err := s.dev.GetByte(countOffset)
	if err != nil {
		return s.ioErr("read count", err)
	}
	count := int(n)
	if count == 0 || count > s.lay.max {
		s.sugar.Warnw("stored count out of range, formatting", "count", count, "max", s.lay.max)
		return s.format()
	}

	index := 0
	if s.restore {
		b, err := s.dev.GetByte(s.lay.fieldOffset(selectedField))
		if err != nil {
			return s.ioErr("read selected", err)
		}
		if int(b) < count {
			index = int(b)
		}
	}

	rec, err := s.readRecord(index)
	if errors.Is(err, ErrCorruptRecord) {
		s.sugar.Warnw("corrupt record, formatting", "index", index, "err", err)
		return s.format()
	}
	if err != nil {
		return err
	}

	s.count = count
	s.selected = index
	s.cache = rec
	s.sugar.Infow("loaded", "count", count, "selected", index, "loco", rec)
	return nil
}

// format writes the layout version, one default loco and cleared options
func (s *Store) format() error {
	rec := NewRecord(DefaultAddress, DefaultAssignment())

	err := s.apply(func(t *tx) error {
		if err := t.putByte("write version", versionOffset, LayoutVersion); err != nil {
			return err
		}
		if err := t.putByte("write count", countOffset, 1); err != nil {
			return err
		}
		if err := s.writeRecord(t, 0, rec); err != nil {
			return err
		}
		if err := t.write("write options", make([]byte, optionsSize), int64(s.lay.optionsBase())); err != nil {
			return err
		}
		return s.commit("format")
	})
	if err != nil {
		return err
	}

	s.count = 1
	s.selected = 0
	s.cache = rec
	return nil
}

// Format discards every loco and option, leaving one default loco
func (s *Store) Format() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.format()
}

// MaxRecords capacity of the record table
func (s *Store) MaxRecords() int {
	return s.lay.max
}

// Count number of stored locos
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Selected 0-based index of the selected loco
func (s *Store) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Position 1-based index of the selected loco, as shown to the user
func (s *Store) Position() int {
	return s.Selected() + 1
}

// Current copy of the selected loco
func (s *Store) Current() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// Records all stored locos in device order
func (s *Store) Records() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]Record, 0, s.count)
	for i := 0; i < s.count; i++ {
		rec, err := s.readRecord(i)
		if err != nil {
			return nil, err
		}
		ret = append(ret, rec)
	}
	return ret, nil
}

// FindByKey index of the loco with address, ErrNotFound if there is none
func (s *Store) FindByKey(address uint16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findByKey(address)
}

func (s *Store) findByKey(address uint16) (int, error) {
	for i := 0; i < s.count; i++ {
		a, err := s.readAddress(i)
		if err != nil {
			return 0, err
		}
		if a == address {
			return i, nil
		}
	}
	return 0, ErrNotFound
}

// Upsert stores a loco. A known address only gets its function assignment
// replaced, a new one is appended with default settings. Either way the
// loco becomes the selected one. ErrStoreFull when there is no free slot.
func (s *Store) Upsert(address uint16, assignment [FunctionSlots]uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.findByKey(address)
	switch {
	case err == nil:
		return s.updateAssignment(index, assignment)
	case errors.Is(err, ErrNotFound):
		return s.insert(address, assignment)
	default:
		return err
	}
}

func (s *Store) updateAssignment(index int, assignment [FunctionSlots]uint8) error {
	var rec Record
	err := s.apply(func(t *tx) error {
		prev, err := s.readRecord(index)
		if err != nil {
			return err
		}
		prev.FunctionAssignment = assignment
		if err = s.writeRecord(t, index, prev); err != nil {
			return err
		}
		if err = s.writeSelected(t, index); err != nil {
			return err
		}
		if rec, err = s.readRecord(index); err != nil {
			return err
		}
		return s.commit("update assignment")
	})
	if err != nil {
		return err
	}

	s.selected = index
	s.cache = rec
	s.sugar.Debugw("assignment updated", "index", index, "loco", rec)
	return nil
}

func (s *Store) insert(address uint16, assignment [FunctionSlots]uint8) error {
	if s.count >= s.lay.max {
		s.sugar.Debugw("store full", "address", address, "count", s.count)
		return ErrStoreFull
	}

	index := s.count
	var loaded Record
	err := s.apply(func(t *tx) error {
		err := s.writeRecord(t, index, NewRecord(address, assignment))
		if err != nil {
			return err
		}
		if err = t.putByte("write count", countOffset, byte(s.count+1)); err != nil {
			return err
		}
		if err = s.writeSelected(t, index); err != nil {
			return err
		}
		if loaded, err = s.readRecord(index); err != nil {
			return err
		}
		return s.commit("insert")
	})
	if err != nil {
		return err
	}

	s.count++
	s.selected = index
	s.cache = loaded
	s.sugar.Debugw("inserted", "index", index, "loco", loaded)
	return nil
}

// Remove deletes the loco with address by shifting the following records
// down one slot, committing after every shift. The loco that slides into
// the freed index gets selected, or the new last one if the last was
// removed. ErrLastRecord if only one loco is left.
//
// An unknown address still drops the last record and selects the new
// last one; callers wanting strict semantics check FindByKey first.
func (s *Store) Remove(address uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count <= 1 {
		return ErrLastRecord
	}

	index, err := s.findByKey(address)
	found := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if !found {
		s.sugar.Warnw("remove unknown address", "address", address, "count", s.count)
	}

	count := s.count - 1
	selected := count - 1
	if found && index < count {
		selected = index
	}

	var rec Record
	err = s.apply(func(t *tx) error {
		if found {
			for i := index; i+1 < s.count; i++ {
				if err := s.moveRecord(t, i+1, i); err != nil {
					return err
				}
				if err := s.commit("remove shift"); err != nil {
					return err
				}
			}
		}
		if err := t.putByte("write count", countOffset, byte(count)); err != nil {
			return err
		}
		if err := s.writeSelected(t, selected); err != nil {
			return err
		}
		var err error
		if rec, err = s.readRecord(selected); err != nil {
			return err
		}
		return s.commit("remove")
	})
	if err != nil {
		return err
	}

	s.count = count
	s.selected = selected
	s.cache = rec
	s.sugar.Debugw("removed", "address", address, "count", count, "selected", selected)
	return nil
}

// Move selects the next (delta > 0) or previous (delta < 0) loco with
// wraparound and returns its address. Delta 0 changes nothing.
func (s *Store) Move(delta int) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if delta == 0 {
		return s.cache.Address, nil
	}

	selected := s.selected
	if delta > 0 {
		selected++
		if selected >= s.count {
			selected = 0
		}
	} else {
		if selected == 0 {
			selected = s.count - 1
		} else {
			selected--
		}
	}

	rec, err := s.readRecord(selected)
	if err != nil {
		return s.cache.Address, err
	}
	if s.restore {
		err = s.apply(func(t *tx) error {
			if err := s.writeSelected(t, selected); err != nil {
				return err
			}
			return s.commit("move")
		})
		if err != nil {
			return s.cache.Address, err
		}
	}

	s.selected = selected
	s.cache = rec
	return rec.Address, nil
}

// Sort orders the locos by ascending address with a bubble sort on the
// device, each swap is committed. Equal addresses keep their order. The
// selection follows the selected loco to its new index.
func (s *Store) Sort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	swaps := 0
	index := s.selected
	var rec Record
	err := s.apply(func(t *tx) error {
		for i := 0; i < s.count-1; i++ {
			for j := 0; j < s.count-1-i; j++ {
				a, err := s.readAddress(j)
				if err != nil {
					return err
				}
				b, err := s.readAddress(j + 1)
				if err != nil {
					return err
				}
				if a <= b {
					continue
				}
				if err = s.swapRecords(t, j, j+1); err != nil {
					return err
				}
				if err = s.commit("sort swap"); err != nil {
					return err
				}
				swaps++
			}
		}
		if swaps == 0 {
			return nil
		}

		var err error
		if index, err = s.findByKey(s.cache.Address); err != nil {
			return err
		}
		if rec, err = s.readRecord(index); err != nil {
			return err
		}
		if index != s.selected && s.restore {
			if err = s.writeSelected(t, index); err != nil {
				return err
			}
			return s.commit("sort")
		}
		return nil
	})
	if err != nil || swaps == 0 {
		return err
	}

	s.selected = index
	s.cache = rec
	s.sugar.Debugw("sorted", "swaps", swaps, "selected", index)
	return nil
}

func (s *Store) readRecord(index int) (Record, error) {
	var rec Record
	buf := make([]byte, RecordSize)
	if _, err := s.dev.ReadAt(buf, s.lay.recordOffset(index)); err != nil {
		return rec, s.ioErr("read record", err)
	}
	if err := rec.UnmarshalBinary(buf); err != nil {
		return rec, fmt.Errorf("record %d: %w", index, err)
	}
	return rec, nil
}

func (s *Store) readAddress(index int) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := s.dev.ReadAt(buf, s.lay.recordOffset(index)); err != nil {
		return 0, s.ioErr("read address", err)
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (s *Store) writeRecord(t *tx, index int, rec Record) error {
	buf := make([]byte, RecordSize)
	rec.put(buf)
	return t.write("write record", buf, s.lay.recordOffset(index))
}

// moveRecord copies the raw bytes of record from onto record to
func (s *Store) moveRecord(t *tx, from, to int) error {
	buf := make([]byte, RecordSize)
	if _, err := s.dev.ReadAt(buf, s.lay.recordOffset(from)); err != nil {
		return s.ioErr("read record", err)
	}
	return t.write("write record", buf, s.lay.recordOffset(to))
}

func (s *Store) swapRecords(t *tx, i, j int) error {
	a := make([]byte, RecordSize)
	b := make([]byte, RecordSize)
	if _, err := s.dev.ReadAt(a, s.lay.recordOffset(i)); err != nil {
		return s.ioErr("read record", err)
	}
	if _, err := s.dev.ReadAt(b, s.lay.recordOffset(j)); err != nil {
		return s.ioErr("read record", err)
	}
	if err := t.write("write record", b, s.lay.recordOffset(i)); err != nil {
		return err
	}
	return t.write("write record", a, s.lay.recordOffset(j))
}

// writeSelected persists the selected index when restore is enabled
func (s *Store) writeSelected(t *tx, index int) error {
	if !s.restore {
		return nil
	}
	return t.putByte("write selected", s.lay.fieldOffset(selectedField), byte(index))
}

func (s *Store) commit(op string) error {
	if err := s.dev.Commit(); err != nil {
		s.sugar.Errorw("commit", "op", op, "err", err)
		return s.ioErr(op+" commit", err)
	}
	return nil
}

func (s *Store) ioErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageIO, err)
}
