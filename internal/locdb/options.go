package locdb

import "fmt"

// BusAddress the XpressNet device address
func (s *Store) BusAddress() (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.dev.GetByte(s.lay.fieldOffset(busAddressField))
	if err != nil {
		return 0, s.ioErr("read bus address", err)
	}
	return b, nil
}

func (s *Store) SetBusAddress(address uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putField("bus address", busAddressField, address)
}

// Option state of a persisted option flag
func (s *Store) Option(o Option) (bool, error) {
	if !o.valid() {
		return false, fmt.Errorf("%w: %d", ErrInvalidOption, o)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.dev.GetByte(s.lay.fieldOffset(int(o)))
	if err != nil {
		return false, s.ioErr("read option "+o.String(), err)
	}
	return b == 1, nil
}

func (s *Store) SetOption(o Option, on bool) error {
	if !o.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidOption, o)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var b byte
	if on {
		b = 1
	}
	return s.putField("option "+o.String(), int(o), b)
}

func (s *Store) putField(name string, field int, b byte) error {
	err := s.apply(func(t *tx) error {
		if err := t.putByte("write "+name, s.lay.fieldOffset(field), b); err != nil {
			return err
		}
		return s.commit(name)
	})
	if err != nil {
		return err
	}
	s.sugar.Debugw("option stored", "name", name, "value", b)
	return nil
}
