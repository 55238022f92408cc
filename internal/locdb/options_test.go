package locdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_Options(t *testing.T) {
	conf := getConfig(8)
	mem := seed(t, conf, 3)
	s, err := Open(conf, mem, getTestLogger())
	require.NoError(t, err)

	// erased cells do not count as set
	for _, o := range Options() {
		on, err := s.Option(o)
		require.NoError(t, err)
		require.False(t, on, o.String())
	}

	require.NoError(t, s.SetOption(OptionEmergency, true))
	require.NoError(t, s.SetOption(OptionPulseInvert, true))
	require.NoError(t, s.SetOption(OptionPulseInvert, false))
	require.NoError(t, s.SetBusAddress(27))

	s, err = Open(conf, mem, getTestLogger())
	require.NoError(t, err)
	on, err := s.Option(OptionEmergency)
	require.NoError(t, err)
	require.True(t, on)
	on, err = s.Option(OptionPulseInvert)
	require.NoError(t, err)
	require.False(t, on)
	addr, err := s.BusAddress()
	require.NoError(t, err)
	require.EqualValues(t, 27, addr)

	base := dataOffset + 8*RecordSize
	data := mem.Bytes()
	require.EqualValues(t, 27, data[base+busAddressField])
	require.EqualValues(t, 1, data[base+int(OptionEmergency)])

	_, err = s.Option(Option(0))
	require.ErrorIs(t, err, ErrInvalidOption)
	require.ErrorIs(t, s.SetOption(Option(5), true), ErrInvalidOption)
	require.Equal(t, "unknown", Option(9).String())
}
