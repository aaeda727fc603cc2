// Package portaudio implements the devices interfaces with PortAudio.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/agnivade/sonic_transport/devices"
)

const defaultFramesPerBuffer = 1024

// Device gives access to the default input and output devices. PortAudio is
// initialized on first use and terminated when the last stream closes.
type Device struct {
	mu   sync.Mutex
	refs int
	log  *log.Logger
}

// New creates a Device.
func New(logger *log.Logger) *Device {
	return &Device{log: logger}
}

func (d *Device) acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refs == 0 {
		if err := pa.Initialize(); err != nil {
			return fmt.Errorf("portaudio.Initialize: %w", err)
		}
	}
	d.refs++
	return nil
}

func (d *Device) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refs--
	if d.refs == 0 {
		if err := pa.Terminate(); err != nil {
			d.log.Printf("portaudio.Terminate: %v\n", err)
		}
	}
}

// mapError translates PortAudio errors to the device errors.
func mapError(err error) error {
	var paErr pa.Error
	if !errors.As(err, &paErr) {
		return err
	}
	switch paErr {
	case pa.InvalidDevice:
		return fmt.Errorf("%w: %v", devices.ErrDeviceNotFound, err)
	case pa.DeviceUnavailable:
		return fmt.Errorf("%w: %v", devices.ErrPermissionDenied, err)
	}
	return err
}

// Open opens a mono float32 capture stream on the default input device.
func (d *Device) Open(ctx context.Context, cfg devices.StreamConfig) (devices.InputStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.acquire(); err != nil {
		return nil, err
	}

	dev, err := pa.DefaultInputDevice()
	if err != nil || dev == nil || dev.MaxInputChannels < 1 {
		d.release()
		return nil, fmt.Errorf("%w: no default input device", devices.ErrDeviceNotFound)
	}

	rate := float64(cfg.SampleRate)
	if rate <= 0 {
		rate = dev.DefaultSampleRate
	}
	frames := cfg.FramesPerBuffer
	if frames <= 0 {
		frames = defaultFramesPerBuffer
	}

	params := pa.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = rate
	params.FramesPerBuffer = frames

	buffer := make([]float32, frames)
	stream, err := pa.OpenStream(params, buffer)
	if err != nil {
		d.release()
		return nil, mapError(err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		d.release()
		return nil, mapError(err)
	}

	d.log.Printf("capturing from %q at %.0f Hz\n", dev.Name, rate)
	return &InputStream{
		dev:    d,
		stream: stream,
		buffer: buffer,
		rate:   int(rate),
	}, nil
}

// InputStream implements devices.InputStream.
type InputStream struct {
	dev    *Device
	stream *pa.Stream
	buffer []float32
	rate   int

	closeOnce sync.Once
	closeErr  error
}

// SampleRate returns the rate the stream was opened at.
func (s *InputStream) SampleRate() int {
	return s.rate
}

// Read captures one buffer. Input overflows are not fatal: the samples that
// were captured are still returned.
func (s *InputStream) Read(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.stream.Read(); err != nil && !errors.Is(err, pa.InputOverflowed) {
		return nil, mapError(err)
	}
	out := make([]float32, len(s.buffer))
	copy(out, s.buffer)
	return out, nil
}

// Close stops the stream, closes it and releases PortAudio. Only the first
// error is returned.
func (s *InputStream) Close() error {
	s.closeOnce.Do(func() {
		if stopErr := s.stream.Stop(); stopErr != nil {
			s.closeErr = stopErr
		}
		if closeErr := s.stream.Close(); closeErr != nil && s.closeErr == nil {
			s.closeErr = closeErr
		}
		s.dev.release()
	})
	return s.closeErr
}

// Play writes samples to the default output device and blocks until they
// were handed to the device.
func (d *Device) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	buffer := make([]float32, defaultFramesPerBuffer)
	stream, err := pa.OpenDefaultStream(0, 1, float64(sampleRate), len(buffer), buffer)
	if err != nil {
		return mapError(err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return mapError(err)
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += len(buffer) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buffer, samples[off:])
		clear(buffer[n:])
		if err := stream.Write(); err != nil && !errors.Is(err, pa.OutputUnderflowed) {
			return mapError(err)
		}
	}
	return nil
}
