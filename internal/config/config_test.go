package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv(envStoreFile, "")
	t.Setenv(envMaxLocs, "")

	c, err := NewConfig("test", nil)
	require.NoError(t, err)
	// empty env value is taken as is for strings, ignored for numbers
	require.Equal(t, "", c.StoreFile)
	require.EqualValues(t, DefaultMaxLocs, c.MaxLocs)
	require.EqualValues(t, DefaultStoreSize, c.StoreSize)
	require.Empty(t, c.Args)
}

func TestNewConfig_Env(t *testing.T) {
	t.Setenv(envStoreFile, "db/test_eeprom.bin")
	t.Setenv(envMaxLocs, "10")
	t.Setenv(envRestore, "false")

	c, err := NewConfig("test", nil)
	require.NoError(t, err)
	require.Equal(t, "db/test_eeprom.bin", c.StoreFile)
	require.EqualValues(t, 10, c.MaxLocs)
	require.False(t, c.Restore)
}

func TestNewConfig_Flags(t *testing.T) {
	t.Setenv(envMaxLocs, "10")

	c, err := NewConfig("test", []string{"-MAX_LOCS", "20", "-DEBUG", "list", "-json"})
	require.NoError(t, err)
	require.EqualValues(t, 20, c.MaxLocs)
	require.True(t, c.Debug)
	require.Equal(t, []string{"list", "-json"}, c.Args)
}

func TestNewConfig_Invalid(t *testing.T) {
	_, err := NewConfig("test", []string{"-MAX_LOCS", "0"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewConfig("test", []string{"-MAX_LOCS", "256"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewConfig("test", []string{"-STORE_SIZE", "-1"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewConfig("test", []string{"-NO_SUCH_FLAG"})
	require.Error(t, err)
}
