package locdb

// update applies f to a copy of the selected loco and writes it through.
// The cache is only replaced after a successful commit.
func (s *Store) update(op string, f func(rec *Record)) error {
	rec := s.cache
	f(&rec)
	if rec == s.cache {
		return nil
	}

	err := s.apply(func(t *tx) error {
		if err := s.writeRecord(t, s.selected, rec); err != nil {
			return err
		}
		return s.commit(op)
	})
	if err != nil {
		return err
	}
	s.cache = rec
	return nil
}

// AdjustSpeed runs the throttle for the selected loco: delta 0 stops it,
// or toggles the direction when it is already stopped. A positive delta
// speeds up going forward and slows down going backward, a stopped loco
// going backward turns forward first. A negative delta mirrors that.
// Returns false when the speed was limited to the decoder maximum.
func (s *Store) AdjustSpeed(delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	adjusted := true
	err := s.update("speed", func(rec *Record) {
		adjusted = rec.adjustSpeed(delta)
	})
	return adjusted, err
}

func (s *Store) Speed() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Speed
}

// SetSpeed sets the speed as is, without limiting it to the step mode
func (s *Store) SetSpeed(speed uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update("set speed", func(rec *Record) {
		rec.Speed = speed
	})
}

func (s *Store) Steps() DecoderSteps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Steps
}

func (s *Store) SetSteps(steps DecoderSteps) error {
	if !steps.valid() {
		return ErrCorruptRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update("set steps", func(rec *Record) {
		rec.Steps = steps
	})
}

func (s *Store) Direction() Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Direction
}

func (s *Store) SetDirection(dir Direction) error {
	if !dir.valid() {
		return ErrCorruptRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update("set direction", func(rec *Record) {
		rec.Direction = dir
	})
}

func (s *Store) ToggleDirection() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update("toggle direction", func(rec *Record) {
		rec.toggleDirection()
	})
}

// Address of the selected loco
func (s *Store) Address() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Address
}

// ToggleFunction flips function number of the selected loco and returns
// its new state, FunctionInvalid without any change above MaxFunction.
func (s *Store) ToggleFunction(number uint8) (FunctionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := FunctionInvalid
	err := s.update("toggle function", func(rec *Record) {
		state = rec.toggleFunction(number)
	})
	if err != nil {
		return s.cache.FunctionState(number), err
	}
	return state, nil
}

// SetFunctions replaces all function states, bit N of bits is function N
func (s *Store) SetFunctions(bits uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update("set functions", func(rec *Record) {
		rec.Function = bits << 1
	})
}

// FunctionState state of function number of the selected loco
func (s *Store) FunctionState(number uint8) FunctionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.FunctionState(number)
}

// AssignedFunction function number on button slot, InvalidIndex if slot
// is out of range
func (s *Store) AssignedFunction(slot uint8) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.AssignedFunction(slot)
}
