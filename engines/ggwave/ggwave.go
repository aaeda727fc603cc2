//go:build ggwave && cgo

// Package ggwave binds the native libggwave library. Build with -tags ggwave
// and the library installed to enable it.
package ggwave

/*
#cgo LDFLAGS: -lggwave
#include <stdlib.h>
#include <ggwave/ggwave.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/agnivade/sonic_transport/engines"
)

const engineName = "ggwave"

// Available reports whether the native engine is compiled in.
const Available = true

// Engine implements engines.Engine on top of libggwave.
type Engine struct{}

// New returns the ggwave engine.
func New() (*Engine, error) {
	return &Engine{}, nil
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return engineName
}

func newInstance(params engines.Parameters) (C.ggwave_Instance, error) {
	p := C.ggwave_getDefaultParameters()
	p.sampleRateInp = C.float(params.SampleRateIn)
	p.sampleRateOut = C.float(params.SampleRateOut)
	p.samplesPerFrame = C.int(params.SamplesPerFrame)
	p.sampleFormatInp = C.GGWAVE_SAMPLE_FORMAT_I8
	p.sampleFormatOut = C.GGWAVE_SAMPLE_FORMAT_I8
	inst := C.ggwave_init(p)
	if inst < 0 {
		return inst, fmt.Errorf("ggwave: init failed for %+v", params)
	}
	return inst, nil
}

// NewEncoder creates a native instance used for encoding.
func (e *Engine) NewEncoder(params engines.Parameters) (engines.Encoder, error) {
	params = params.WithDefaults()
	inst, err := newInstance(params)
	if err != nil {
		return nil, err
	}
	return &Encoder{inst: inst}, nil
}

// NewDecoder creates a native instance used for decoding.
func (e *Engine) NewDecoder(params engines.Parameters) (engines.Decoder, error) {
	params = params.WithDefaults()
	inst, err := newInstance(params)
	if err != nil {
		return nil, err
	}
	return &Decoder{inst: inst, params: params}, nil
}

// Encoder implements engines.Encoder.
type Encoder struct {
	inst  C.ggwave_Instance
	freed bool
}

// Encode renders payload with the native encoder.
func (e *Encoder) Encode(payload []byte, protocol engines.Protocol, volume int) ([]int8, error) {
	if e.freed {
		return nil, fmt.Errorf("ggwave: encoder already freed")
	}
	if !protocol.IsValid() {
		return nil, fmt.Errorf("ggwave: %w: %d", engines.ErrUnknownProtocol, int(protocol))
	}
	if len(payload) == 0 || len(payload) > engines.MaxPayloadLength {
		return nil, fmt.Errorf("ggwave: %w: %d bytes", engines.ErrPayloadSize, len(payload))
	}
	if volume < 0 || volume > 100 {
		return nil, fmt.Errorf("ggwave: %w: %d", engines.ErrVolume, volume)
	}

	src := C.CBytes(payload)
	defer C.free(src)

	size := C.ggwave_encode(e.inst, src, C.int(len(payload)), C.ggwave_ProtocolId(protocol), C.int(volume), nil, 1)
	if size <= 0 {
		return nil, fmt.Errorf("ggwave: encode size query failed: %d", int(size))
	}
	out := make([]int8, int(size))
	n := C.ggwave_encode(e.inst, src, C.int(len(payload)), C.ggwave_ProtocolId(protocol), C.int(volume), unsafe.Pointer(&out[0]), 0)
	if n <= 0 {
		return nil, fmt.Errorf("ggwave: encode failed: %d", int(n))
	}
	return out[:int(n)], nil
}

// Free releases the native instance.
func (e *Encoder) Free() error {
	if e.freed {
		return fmt.Errorf("ggwave: encoder already freed")
	}
	C.ggwave_free(e.inst)
	e.freed = true
	return nil
}

// Decoder implements engines.Decoder. The native decoder is a stream
// consumer, so only the part of the buffer it has not seen is passed on.
type Decoder struct {
	inst   C.ggwave_Instance
	params engines.Parameters
	fed    int
	freed  bool
	// stale is set when Reset could not replace the native instance; the
	// old one was freed and Decode retries the replacement.
	stale error
}

// Decode passes the unseen tail of buf to the native decoder.
func (d *Decoder) Decode(buf []int8) ([]byte, error) {
	if d.freed {
		return nil, fmt.Errorf("ggwave: decoder already freed")
	}
	if d.stale != nil {
		inst, err := newInstance(d.params)
		if err != nil {
			return nil, fmt.Errorf("ggwave: reset: %w", err)
		}
		d.inst = inst
		d.stale = nil
	}
	if d.fed > len(buf) {
		d.fed = len(buf)
	}
	tail := buf[d.fed:]
	d.fed = len(buf)
	if len(tail) == 0 {
		return nil, nil
	}

	out := make([]byte, engines.MaxPayloadLength+1)
	n := C.ggwave_ndecode(d.inst, unsafe.Pointer(&tail[0]), C.int(len(tail)), unsafe.Pointer(&out[0]), C.int(len(out)))
	switch {
	case n < 0:
		return nil, fmt.Errorf("ggwave: decode failed: %d", int(n))
	case n == 0:
		return nil, nil
	}
	return out[:int(n)], nil
}

// Discard shifts the position of the unseen tail.
func (d *Decoder) Discard(n int) {
	d.fed = max(0, d.fed-n)
}

// Reset replaces the native instance, dropping its internal state. When no
// new instance can be created the old one is still dropped and Decode fails
// until a replacement succeeds.
func (d *Decoder) Reset() {
	d.fed = 0
	if d.freed {
		return
	}
	if d.stale == nil {
		C.ggwave_free(d.inst)
	}
	inst, err := newInstance(d.params)
	if err != nil {
		d.stale = err
		return
	}
	d.inst = inst
	d.stale = nil
}

// Free releases the native instance.
func (d *Decoder) Free() error {
	if d.freed {
		return fmt.Errorf("ggwave: decoder already freed")
	}
	if d.stale == nil {
		C.ggwave_free(d.inst)
	}
	d.freed = true
	return nil
}
