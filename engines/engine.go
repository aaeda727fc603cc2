package engines

import (
	"errors"
)

var (
	// ErrUnknownProtocol is returned when a protocol value is not part of the
	// protocol table.
	ErrUnknownProtocol = errors.New("unknown protocol")

	// ErrPayloadSize is returned when a payload is empty or larger than
	// MaxPayloadLength.
	ErrPayloadSize = errors.New("payload size out of range")

	// ErrVolume is returned when the requested volume is outside 0..100.
	ErrVolume = errors.New("volume out of range")

	// ErrUnavailable is returned by engines that cannot run in the current
	// build or environment.
	ErrUnavailable = errors.New("engine unavailable")
)

// Engine creates encoder and decoder instances for one waveform
// implementation. Different engines can implement this interface as long as
// they produce and understand the same frame layout.
type Engine interface {
	// Name returns the registry name of the engine (e.g., "tone").
	Name() string

	// NewEncoder creates an encoder for the output sample rate in params.
	NewEncoder(params Parameters) (Encoder, error)

	// NewDecoder creates a decoder for the input sample rate in params.
	NewDecoder(params Parameters) (Decoder, error)
}

// Encoder turns payload bytes into engine-native PCM.
type Encoder interface {
	// Encode returns the waveform for payload as signed 8-bit samples at the
	// output sample rate. The length depends on the protocol and on the error
	// correction added for the payload length.
	Encode(payload []byte, protocol Protocol, volume int) ([]int8, error)

	// Free releases the instance. The encoder must not be used afterwards.
	Free() error
}

// Decoder looks for a complete transmission in a growing sample buffer.
//
// The caller owns the buffer. Decode is called repeatedly with the whole
// buffer as it grows; implementations are free to cache analysis for samples
// they have already seen. When the caller drops samples from the front of the
// buffer it must call Discard with the number of dropped samples, and when it
// clears the buffer it must call Reset.
type Decoder interface {
	// Decode returns the payload of the first complete transmission found in
	// buf, or nil when none is complete yet. The buffer does not need to start
	// on a transmission boundary.
	Decode(buf []int8) ([]byte, error)

	// Discard tells the decoder that the first n samples of the buffer were
	// dropped.
	Discard(n int)

	// Reset tells the decoder that the buffer was cleared.
	Reset()

	// Free releases the instance. The decoder must not be used afterwards.
	Free() error
}

// Parameters holds the instance configuration shared by encoders and decoders.
type Parameters struct {
	// SampleRateIn is the capture sample rate in Hz (e.g., 48000).
	SampleRateIn int

	// SampleRateOut is the playback sample rate in Hz.
	SampleRateOut int

	// SamplesPerFrame is the length of one symbol frame at BaseSampleRate.
	// The tone spacing is BaseSampleRate / SamplesPerFrame.
	SamplesPerFrame int
}

const (
	// BaseSampleRate is the rate the frame layout is defined at.
	BaseSampleRate = 48000

	// DefaultSamplesPerFrame gives a tone spacing of 46.875 Hz.
	DefaultSamplesPerFrame = 1024

	// MaxPayloadLength is the largest payload an engine accepts.
	MaxPayloadLength = 140
)

// DefaultParameters returns parameters for 48 kHz capture and playback.
func DefaultParameters() Parameters {
	return Parameters{
		SampleRateIn:    BaseSampleRate,
		SampleRateOut:   BaseSampleRate,
		SamplesPerFrame: DefaultSamplesPerFrame,
	}
}

// WithDefaults fills zero fields from DefaultParameters.
func (p Parameters) WithDefaults() Parameters {
	d := DefaultParameters()
	if p.SampleRateIn <= 0 {
		p.SampleRateIn = d.SampleRateIn
	}
	if p.SampleRateOut <= 0 {
		p.SampleRateOut = d.SampleRateOut
	}
	if p.SamplesPerFrame <= 0 {
		p.SamplesPerFrame = d.SamplesPerFrame
	}
	return p
}

// FrameLength returns the frame length in samples at the given rate.
func (p Parameters) FrameLength(sampleRate int) float64 {
	return float64(p.SamplesPerFrame) * float64(sampleRate) / BaseSampleRate
}

// BinFrequency returns the tone frequency of frequency bin b in Hz.
func (p Parameters) BinFrequency(b int) float64 {
	return float64(b) * BaseSampleRate / float64(p.SamplesPerFrame)
}
