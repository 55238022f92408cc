package locdb

import (
	"encoding/binary"
	"fmt"
)

// RecordSize bytes of one record on the device. All digits stored in LittleEndian notation.
//
// [0:2] address uint16
//
// [2] decoder steps code
//
// [3] direction code
//
// [4] speed
//
// [5:9] function bits uint32, function N at bit N+1
//
// [9:14] function assignment
const RecordSize = 14

const (
	// FunctionSlots number of function buttons with an assignment
	FunctionSlots = 5
	// MaxFunction highest addressable function number
	MaxFunction = 28
	// InvalidIndex returned for an out of range slot
	InvalidIndex uint8 = 255
)

type DecoderSteps uint8

const (
	Steps14 DecoderSteps = iota
	Steps28
	Steps128
)

// ParseSteps maps 14, 28 or 128 to DecoderSteps
func ParseSteps(n int) (DecoderSteps, error) {
	switch n {
	case 14:
		return Steps14, nil
	case 28:
		return Steps28, nil
	case 128:
		return Steps128, nil
	}
	return 0, fmt.Errorf("unsupported decoder steps %d", n)
}

// MaxSpeed the highest legal speed for the step mode
func (s DecoderSteps) MaxSpeed() uint8 {
	switch s {
	case Steps14:
		return 14
	case Steps28:
		return 28
	}
	return 127
}

func (s DecoderSteps) valid() bool {
	return s <= Steps128
}

func (s DecoderSteps) String() string {
	switch s {
	case Steps14:
		return "14"
	case Steps28:
		return "28"
	case Steps128:
		return "128"
	}
	return "?"
}

type Direction uint8

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

func (d Direction) valid() bool {
	return d <= Backward
}

type FunctionState uint8

const (
	FunctionOff FunctionState = iota
	FunctionOn
	FunctionInvalid
)

func (f FunctionState) String() string {
	switch f {
	case FunctionOff:
		return "off"
	case FunctionOn:
		return "on"
	}
	return "invalid"
}

// Record one loco as stored on the device
type Record struct {
	Address            uint16               `json:"address"`
	Steps              DecoderSteps         `json:"steps"`
	Direction          Direction            `json:"direction"`
	Speed              uint8                `json:"speed"`
	Function           uint32               `json:"function"`
	FunctionAssignment [FunctionSlots]uint8 `json:"function_assignment"`
}

// DefaultAssignment function buttons mapped to F0..F4
func DefaultAssignment() [FunctionSlots]uint8 {
	return [FunctionSlots]uint8{0, 1, 2, 3, 4}
}

// NewRecord new stopped loco, 28 steps, forward, all functions off
func NewRecord(address uint16, assignment [FunctionSlots]uint8) Record {
	return Record{
		Address:            address,
		Steps:              Steps28,
		Direction:          Forward,
		FunctionAssignment: assignment,
	}
}

func (r Record) String() string {
	return fmt.Sprintf("addr=%d steps=%s dir=%s speed=%d fn=%08x assign=%v",
		r.Address, r.Steps, r.Direction, r.Speed, r.Function>>1, r.FunctionAssignment)
}

// MarshalBinary encodes the record into RecordSize bytes
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	r.put(buf)
	return buf, nil
}

func (r Record) put(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], r.Address)
	buf[2] = byte(r.Steps)
	buf[3] = byte(r.Direction)
	buf[4] = r.Speed
	binary.LittleEndian.PutUint32(buf[5:9], r.Function)
	copy(buf[9:14], r.FunctionAssignment[:])
}

// UnmarshalBinary decodes RecordSize bytes
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("%w: %d bytes", ErrCorruptRecord, len(data))
	}
	steps := DecoderSteps(data[2])
	if !steps.valid() {
		return fmt.Errorf("%w: steps code %d", ErrCorruptRecord, data[2])
	}
	dir := Direction(data[3])
	if !dir.valid() {
		return fmt.Errorf("%w: direction code %d", ErrCorruptRecord, data[3])
	}

	r.Address = binary.LittleEndian.Uint16(data[0:2])
	r.Steps = steps
	r.Direction = dir
	r.Speed = data[4]
	r.Function = binary.LittleEndian.Uint32(data[5:9])
	copy(r.FunctionAssignment[:], data[9:14])
	return nil
}

// FunctionState state of function number, FunctionInvalid above MaxFunction
func (r Record) FunctionState(number uint8) FunctionState {
	if number > MaxFunction {
		return FunctionInvalid
	}
	if r.Function&(1<<(number+1)) != 0 {
		return FunctionOn
	}
	return FunctionOff
}

// AssignedFunction function number on slot, InvalidIndex for slot >= FunctionSlots
func (r Record) AssignedFunction(slot uint8) uint8 {
	if slot >= FunctionSlots {
		return InvalidIndex
	}
	return r.FunctionAssignment[slot]
}

func (r *Record) toggleFunction(number uint8) FunctionState {
	if number > MaxFunction {
		return FunctionInvalid
	}
	r.Function ^= 1 << (number + 1)
	return r.FunctionState(number)
}

func (r *Record) toggleDirection() {
	if r.Direction == Forward {
		r.Direction = Backward
	} else {
		r.Direction = Forward
	}
}

// adjustSpeed the throttle state machine. Delta 0 stops, or toggles the
// direction when already stopped. A positive delta accelerates forward
// and brakes backward, a stopped loco going backward turns forward first.
// Negative delta mirrors that. Returns false if the speed was clamped.
func (r *Record) adjustSpeed(delta int) bool {
	switch {
	case delta == 0:
		if r.Speed != 0 {
			r.Speed = 0
		} else {
			r.toggleDirection()
		}
	case delta > 0:
		if r.Speed == 0 && r.Direction == Backward {
			r.Direction = Forward
		} else if r.Direction == Forward {
			r.accelerate()
		} else if r.Speed > 0 {
			r.Speed--
		}
	default:
		if r.Speed == 0 && r.Direction == Forward {
			r.Direction = Backward
		} else if r.Direction == Backward {
			r.accelerate()
		} else if r.Speed > 0 {
			r.Speed--
		}
	}

	if limit := r.Steps.MaxSpeed(); r.Speed > limit {
		r.Speed = limit
		return false
	}
	return true
}

func (r *Record) accelerate() {
	if r.Speed < 0xff {
		r.Speed++
	}
}
