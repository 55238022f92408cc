package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
)

const (
	DefaultStoreFile = "db/eeprom.bin"
	DefaultStoreSize = 1024
	DefaultMaxLocs   = 64
	maxLocsByteLimit = 255
	envStoreFile     = "STORE_FILE"
	envStoreSize     = "STORE_SIZE"
	envMaxLocs       = "MAX_LOCS"
	envRestore       = "RESTORE"
	envDebug         = "DEBUG"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	StoreFile string
	StoreSize int  // bytes reserved on the device
	MaxLocs   int  // capacity of the record table
	Restore   bool // restore the selected loco on startup
	Debug     bool

	// Args positional arguments left after the flags
	Args []string
}

// Default config, environment variables override the built in defaults
func Default() *Config {
	return &Config{
		StoreFile: envString(envStoreFile, DefaultStoreFile),
		StoreSize: envInt(envStoreSize, DefaultStoreSize),
		MaxLocs:   envInt(envMaxLocs, DefaultMaxLocs),
		Restore:   envBool(envRestore, true),
		Debug:     envBool(envDebug, false),
	}
}

// NewConfig parses args (without the program name), flags take
// precedence over the environment
func NewConfig(name string, args []string) (*Config, error) {
	c := Default()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&c.StoreFile, envStoreFile, c.StoreFile, "store file")
	fs.IntVar(&c.StoreSize, envStoreSize, c.StoreSize, "store size in bytes")
	fs.IntVar(&c.MaxLocs, envMaxLocs, c.MaxLocs, "max number of stored locos")
	fs.BoolVar(&c.Restore, envRestore, c.Restore, "restore selected loco on startup")
	fs.BoolVar(&c.Debug, envDebug, c.Debug, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.Args = fs.Args()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.MaxLocs < 1 || c.MaxLocs > maxLocsByteLimit {
		return fmt.Errorf("%w: %s=%d must be in [1,%d]", ErrInvalidConfig, envMaxLocs, c.MaxLocs, maxLocsByteLimit)
	}
	if c.StoreSize <= 0 {
		return fmt.Errorf("%w: %s=%d must be positive", ErrInvalidConfig, envStoreSize, c.StoreSize)
	}
	return nil
}

func envString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
