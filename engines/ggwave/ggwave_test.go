//go:build ggwave && cgo

package ggwave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnivade/sonic_transport/engines"
)

// feed passes samples to dec in capture-sized steps, growing the buffer the
// way the accumulator does, and returns every payload found.
func feed(t *testing.T, dec engines.Decoder, samples []int8) []string {
	t.Helper()
	var buf []int8
	var got []string
	for off := 0; off < len(samples); off += 1024 {
		buf = append(buf, samples[off:min(off+1024, len(samples))]...)
		payload, err := dec.Decode(buf)
		require.NoError(t, err)
		if payload != nil {
			got = append(got, string(payload))
			buf = buf[:0]
			dec.Reset()
		}
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	assert.True(t, Available)
	assert.Equal(t, "ggwave", e.Name())

	params := engines.Parameters{}.WithDefaults()
	enc, err := e.NewEncoder(params)
	require.NoError(t, err)
	defer enc.Free()

	tests := []struct {
		name     string
		text     string
		protocol engines.Protocol
	}{
		{name: "audible", text: "EMERGENCY:HELP", protocol: engines.AudibleFast},
		{name: "ultrasonic", text: "TX:42", protocol: engines.UltrasoundFastest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := enc.Encode([]byte(tt.text), tt.protocol, 25)
			require.NoError(t, err)

			dec, err := e.NewDecoder(params)
			require.NoError(t, err)
			defer dec.Free()

			stream := append(append(make([]int8, 4096), samples...), make([]int8, 16*1024)...)
			assert.Equal(t, []string{tt.text}, feed(t, dec, stream))
		})
	}
}

func TestDecodeAfterReset(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	params := engines.Parameters{}.WithDefaults()

	enc, err := e.NewEncoder(params)
	require.NoError(t, err)
	defer enc.Free()
	first, err := enc.Encode([]byte("first"), engines.AudibleFastest, 25)
	require.NoError(t, err)
	second, err := enc.Encode([]byte("second"), engines.AudibleFastest, 25)
	require.NoError(t, err)

	dec, err := e.NewDecoder(params)
	require.NoError(t, err)
	defer dec.Free()

	gap := make([]int8, 16*1024)
	stream := append(append(append(append([]int8{}, first...), gap...), second...), gap...)
	assert.Equal(t, []string{"first", "second"}, feed(t, dec, stream))
}

func TestFreed(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	params := engines.Parameters{}.WithDefaults()

	dec, err := e.NewDecoder(params)
	require.NoError(t, err)
	require.NoError(t, dec.Free())
	assert.Error(t, dec.Free())
	_, err = dec.Decode(make([]int8, 1024))
	assert.Error(t, err)

	enc, err := e.NewEncoder(params)
	require.NoError(t, err)
	require.NoError(t, enc.Free())
	_, err = enc.Encode([]byte("late"), engines.AudibleFast, 25)
	assert.Error(t, err)
}
