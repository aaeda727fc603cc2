package devices

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied is returned when the platform refuses access to
	// the microphone.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceNotFound is returned when no usable audio device exists.
	ErrDeviceNotFound = errors.New("audio device not found")

	// ErrStreamClosed is returned by Read after the stream was closed.
	ErrStreamClosed = errors.New("stream closed")
)

// StreamConfig holds the capture configuration requested by the caller.
type StreamConfig struct {
	// SampleRate is the requested rate in Hz. Zero selects the device default.
	SampleRate int

	// FramesPerBuffer is the size of each chunk returned by Read.
	FramesPerBuffer int
}

// Microphone opens capture streams on an input device.
type Microphone interface {
	// Open opens and starts a mono capture stream. The stream may run at a
	// different rate than requested; callers must use InputStream.SampleRate.
	Open(ctx context.Context, cfg StreamConfig) (InputStream, error)
}

// InputStream delivers captured audio in order.
type InputStream interface {
	// SampleRate returns the rate the stream actually runs at.
	SampleRate() int

	// Read blocks until the next chunk of mono samples in [-1, 1] is
	// available. The returned slice is owned by the caller.
	Read(ctx context.Context) ([]float32, error)

	// Close stops capturing and releases the device.
	Close() error
}

// Speaker plays audio on an output device.
type Speaker interface {
	// Play blocks until samples have been played or ctx is done.
	Play(ctx context.Context, samples []float32, sampleRate int) error
}
