package locdb

import (
	"errors"

	"locstash/internal/config"
)

var (
	// ErrNotFound no record with the given address
	ErrNotFound = errors.New("loco not found")
	// ErrStoreFull the record table is at capacity
	ErrStoreFull = errors.New("loco store full")
	// ErrLastRecord the store always keeps at least one record
	ErrLastRecord = errors.New("cannot remove last loco")
	// ErrStorageIO read, write or commit on the device failed
	ErrStorageIO = errors.New("storage io")
	// ErrCorruptRecord record bytes hold an unknown step or direction code
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrInvalidConfig the config is out of range or the layout does not
	// fit into the store size
	ErrInvalidConfig = config.ErrInvalidConfig
	ErrInvalidOption = errors.New("invalid option")
)
