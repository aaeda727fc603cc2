package sonic_transport

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agnivade/sonic_transport/engines"
	"github.com/agnivade/sonic_transport/engines/mocks"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestDecoderSignalCheck(t *testing.T) {
	codec := newTestCodec(t)

	samples, err := codec.Encode("signal check", engines.AudibleFast, 10)
	require.NoError(t, err)
	require.Zero(t, len(samples)%4)

	dec, err := codec.NewDecoder(48000, 10*48000)
	require.NoError(t, err)
	defer dec.Dispose()

	quarter := len(samples) / 4
	for i := 0; i < 3; i++ {
		text, err := dec.ProcessSamples(samples[i*quarter : (i+1)*quarter])
		require.NoError(t, err)
		require.Empty(t, text, "chunk %d", i+1)
	}

	text, err := dec.ProcessSamples(samples[3*quarter:])
	require.NoError(t, err)
	assert.Equal(t, "signal check", text)
	assert.Zero(t, dec.Buffered())
	assert.Equal(t, StateMessageReady, dec.State())
}

func TestDecoderChunkSizes(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name     string
		text     string
		protocol engines.Protocol
		chunk    int
	}{
		{name: "single samples", text: "TX:42", protocol: engines.AudibleFastest, chunk: 1},
		{name: "odd chunks", text: "odd sizes", protocol: engines.AudibleNormal, chunk: 333},
		{name: "capture buffers", text: "EMERGENCY:HELP", protocol: engines.UltrasoundFast, chunk: 1024},
		{name: "large chunks", text: "12.97160,77.59460", protocol: engines.DTFastest, chunk: 48000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := codec.Encode(tt.text, tt.protocol, 50)
			require.NoError(t, err)
			stream := concat(silence(3000), samples, silence(2*1024))

			dec, err := codec.NewDecoder(48000, 10*48000)
			require.NoError(t, err)
			defer dec.Dispose()

			var got []string
			for off := 0; off < len(stream); off += tt.chunk {
				text, err := dec.ProcessSamples(stream[off:min(off+tt.chunk, len(stream))])
				require.NoError(t, err)
				if text != "" {
					got = append(got, text)
				}
			}
			assert.Equal(t, []string{tt.text}, got)
			assert.Zero(t, dec.Failures())
		})
	}
}

func TestDecoderBackToBackMessages(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.Encode("first", engines.AudibleFast, 40)
	require.NoError(t, err)
	second, err := codec.Encode("second", engines.AudibleFast, 40)
	require.NoError(t, err)

	dec, err := codec.NewDecoder(48000, 10*48000)
	require.NoError(t, err)
	defer dec.Dispose()

	var got []string
	stream := concat(first, silence(4096), second, silence(4096))
	for off := 0; off < len(stream); off += 2048 {
		text, err := dec.ProcessSamples(stream[off:min(off+2048, len(stream))])
		require.NoError(t, err)
		if text != "" {
			got = append(got, text)
			assert.Zero(t, dec.Buffered())
		}
	}
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestDecoderEmptyChunk(t *testing.T) {
	engine := mocks.NewMockDecoder(t)
	dec := newDecoder(engine, 4, 16, discardLogger(), nil)

	text, err := dec.ProcessSamples(nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, StateIdle, dec.State())

	_, err = dec.ProcessSamples([]float32{0.5, 0.5})
	require.NoError(t, err)
	_, err = dec.ProcessSamples([]float32{})
	require.NoError(t, err)
	assert.Equal(t, 2, dec.Buffered())
	assert.Equal(t, StateListening, dec.State())
}

func TestDecoderCapacity(t *testing.T) {
	codec := newTestCodec(t)

	const rate = 48000
	dec, err := codec.NewDecoder(rate, 2*rate)
	require.NoError(t, err)
	defer dec.Dispose()
	require.Equal(t, 2*rate, dec.Capacity())

	in := noise(7, 5*rate, 1)
	for off := 0; off < len(in); off += rate / 10 {
		text, err := dec.ProcessSamples(in[off : off+rate/10])
		require.NoError(t, err)
		require.Empty(t, text)
		require.LessOrEqual(t, dec.Buffered(), 2*rate)
	}
	assert.Equal(t, 2*rate, dec.Buffered())
}

func TestDecoderCapacityBelowFrame(t *testing.T) {
	engine := mocks.NewMockDecoder(t)
	dec := newDecoder(engine, 8, 3, discardLogger(), nil)
	assert.Equal(t, 8, dec.Capacity())
}

func TestDecoderTrimsOldest(t *testing.T) {
	engine := mocks.NewMockDecoder(t)
	dec := newDecoder(engine, 4, 8, discardLogger(), nil)

	engine.EXPECT().Decode(mock.MatchedBy(func(b []int8) bool { return len(b) == 6 })).Return(nil, nil).Once()
	engine.EXPECT().Decode(mock.MatchedBy(func(b []int8) bool { return len(b) == 10 })).Return(nil, nil).Once()
	engine.EXPECT().Discard(2).Once()

	_, err := dec.ProcessSamples([]float32{0, 0, 0})
	require.NoError(t, err)
	_, err = dec.ProcessSamples([]float32{0, 0, 0})
	require.NoError(t, err)
	_, err = dec.ProcessSamples([]float32{0, 0, 0, 1})
	require.NoError(t, err)

	assert.Equal(t, 8, dec.Buffered())
	dec.mu.Lock()
	assert.Equal(t, int8(127), dec.buf[7])
	dec.mu.Unlock()
}

func TestDecoderTransientFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *mocks.MockDecoder)
	}{
		{
			name: "engine error",
			setup: func(e *mocks.MockDecoder) {
				e.EXPECT().Decode(mock.Anything).Return(nil, errors.New("bad frame")).Once()
			},
		},
		{
			name: "engine panic",
			setup: func(e *mocks.MockDecoder) {
				e.EXPECT().Decode(mock.Anything).Run(func(buf []int8) {
					panic("index out of range")
				}).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := mocks.NewMockDecoder(t)
			tt.setup(engine)
			engine.EXPECT().Decode(mock.Anything).Return([]byte("ok"), nil).Once()
			engine.EXPECT().Reset().Once()

			dec := newDecoder(engine, 2, 64, discardLogger(), nil)

			text, err := dec.ProcessSamples([]float32{0.1, 0.2})
			require.NoError(t, err)
			assert.Empty(t, text)
			assert.Equal(t, 1, dec.Failures())
			assert.Equal(t, 2, dec.Buffered())

			text, err = dec.ProcessSamples([]float32{0.3})
			require.NoError(t, err)
			assert.Equal(t, "ok", text)
			assert.Zero(t, dec.Buffered())
		})
	}
}

func TestDecoderReset(t *testing.T) {
	engine := mocks.NewMockDecoder(t)
	engine.EXPECT().Reset().Once()
	dec := newDecoder(engine, 4, 16, discardLogger(), nil)

	_, err := dec.ProcessSamples([]float32{0.1, 0.1})
	require.NoError(t, err)
	require.NoError(t, dec.Reset())
	assert.Zero(t, dec.Buffered())
	assert.Equal(t, StateIdle, dec.State())
}

func TestDecoderDisposed(t *testing.T) {
	engine := mocks.NewMockDecoder(t)
	engine.EXPECT().Free().Return(errors.New("double free")).Once()
	dec := newDecoder(engine, 4, 16, discardLogger(), nil)

	_, err := dec.ProcessSamples([]float32{0.1})
	require.NoError(t, err)

	err = dec.Dispose()
	assert.ErrorContains(t, err, "double free")
	assert.Equal(t, StateDisposed, dec.State())
	assert.Zero(t, dec.Buffered())

	_, err = dec.ProcessSamples([]float32{0.1})
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = dec.ProcessSamples(nil)
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, dec.Reset(), ErrDisposed)
	assert.ErrorIs(t, dec.Dispose(), ErrDisposed)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrDecodeTransient))
	assert.False(t, IsTransient(ErrDisposed))
	assert.False(t, IsTransient(nil))
}

func TestDecoderStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "message-ready", StateMessageReady.String())
	assert.Equal(t, "state(9)", DecoderState(9).String())
}
