package sonic_transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/agnivade/sonic_transport/engines"
	"github.com/agnivade/sonic_transport/observe"
)

// DecoderState is the lifecycle state of a Decoder.
type DecoderState int

const (
	// StateIdle means nothing is buffered.
	StateIdle DecoderState = iota
	// StateListening means samples are buffered and no message was found yet.
	StateListening
	// StateMessageReady means the last chunk completed a message.
	StateMessageReady
	// StateDisposed is final.
	StateDisposed
)

func (s DecoderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateMessageReady:
		return "message-ready"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Decoder accumulates capture chunks of arbitrary size and asks the engine,
// on every chunk once a frame is buffered, whether a complete message is
// present. The buffer is cleared after every message and never grows beyond
// its capacity: when it would, the oldest samples are dropped.
type Decoder struct {
	mu       sync.Mutex
	engine   engines.Decoder
	buf      []int8
	frame    int
	capacity int
	state    DecoderState
	failures int

	log     *log.Logger
	metrics *observe.Metrics
}

func newDecoder(engine engines.Decoder, frame, capacity int, logger *log.Logger, metrics *observe.Metrics) *Decoder {
	frame = max(frame, 1)
	return &Decoder{
		engine:   engine,
		frame:    frame,
		capacity: max(capacity, frame),
		log:      logger,
		metrics:  metrics,
	}
}

// ProcessSamples appends chunk and returns the decoded message, or "" when
// none is complete yet. Engine failures are logged and reported as "".
func (d *Decoder) ProcessSamples(chunk []float32) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateDisposed {
		return "", ErrDisposed
	}
	if len(chunk) == 0 {
		return "", nil
	}

	d.buf = appendFloat32sAsInt8s(d.buf, chunk)
	d.state = StateListening
	if len(d.buf) < d.frame {
		return "", nil
	}

	payload, err := d.decode()
	if err != nil {
		d.failures++
		d.log.Printf("decode: %v\n", err)
		d.metrics.RecordDecodeError(context.Background())
	}
	if len(payload) > 0 {
		d.buf = d.buf[:0]
		d.engine.Reset()
		d.state = StateMessageReady
		d.metrics.RecordDecoded(context.Background())
		return string(payload), nil
	}

	if over := len(d.buf) - d.capacity; over > 0 {
		d.buf = append(d.buf[:0], d.buf[over:]...)
		d.engine.Discard(over)
		d.metrics.RecordDiscarded(context.Background(), over)
	}
	return "", nil
}

// decode calls the engine, turning errors and panics into ErrDecodeTransient.
func (d *Decoder) decode() (payload []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("%w: engine panic: %v", ErrDecodeTransient, r)
		}
	}()
	payload, err = d.engine.Decode(d.buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeTransient, err)
	}
	return payload, nil
}

// Reset clears the buffer and keeps the engine instance.
func (d *Decoder) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateDisposed {
		return ErrDisposed
	}
	d.buf = d.buf[:0]
	d.engine.Reset()
	d.state = StateIdle
	return nil
}

// Dispose clears the buffer and frees the engine instance. Every later call
// returns ErrDisposed.
func (d *Decoder) Dispose() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateDisposed {
		return ErrDisposed
	}
	d.state = StateDisposed
	d.buf = nil
	if err := d.engine.Free(); err != nil {
		return fmt.Errorf("free decoder: %w", err)
	}
	return nil
}

// Buffered returns the number of buffered samples.
func (d *Decoder) Buffered() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buf)
}

// Capacity returns the maximum number of buffered samples.
func (d *Decoder) Capacity() int {
	return d.capacity
}

// State returns the current state.
func (d *Decoder) State() DecoderState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Failures returns how many engine calls failed.
func (d *Decoder) Failures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures
}

// IsTransient reports whether err is a decode failure that should be retried
// with more samples rather than treated as fatal.
func IsTransient(err error) bool {
	return errors.Is(err, ErrDecodeTransient)
}
