package sonic_transport

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/agnivade/sonic_transport/engines"
	"github.com/agnivade/sonic_transport/observe"
)

// MaxMessageLength is the longest message, in bytes, the codec encodes.
const MaxMessageLength = 120

// CodecConfig configures a Codec.
type CodecConfig struct {
	// Engine is the registry name of the engine. Default: DefaultEngine.
	Engine string

	// SampleRate is the playback rate in Hz. Default: 48000.
	SampleRate int

	// SamplesPerFrame is the symbol frame length at 48 kHz. Default: 1024.
	SamplesPerFrame int

	// Metrics is optional.
	Metrics *observe.Metrics

	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

// Codec converts text to waveforms and back. A Codec is safe for concurrent
// use.
type Codec struct {
	engine  engines.Engine
	params  engines.Parameters
	metrics *observe.Metrics
	log     *log.Logger

	mu      sync.Mutex
	encoder engines.Encoder
	closed  bool
}

// NewCodec loads the configured engine and creates an encoder instance.
func NewCodec(ctx context.Context, cfg CodecConfig) (*Codec, error) {
	engine, err := LoadEngine(ctx, cfg.Engine)
	if err != nil {
		return nil, err
	}
	return NewCodecWithEngine(engine, cfg)
}

// NewCodecWithEngine creates a codec on an already loaded engine.
func NewCodecWithEngine(engine engines.Engine, cfg CodecConfig) (*Codec, error) {
	if engine == nil {
		return nil, ErrEngineNotReady
	}
	params := engines.Parameters{
		SampleRateIn:    cfg.SampleRate,
		SampleRateOut:   cfg.SampleRate,
		SamplesPerFrame: cfg.SamplesPerFrame,
	}.WithDefaults()

	encoder, err := engine.NewEncoder(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s encoder: %w", ErrEngineNotReady, engine.Name(), err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Codec{
		engine:  engine,
		params:  params,
		metrics: cfg.Metrics,
		log:     logger,
		encoder: encoder,
	}, nil
}

// EngineName returns the name of the engine behind the codec.
func (c *Codec) EngineName() string {
	if c == nil || c.engine == nil {
		return ""
	}
	return c.engine.Name()
}

// SampleRate returns the rate of encoded waveforms.
func (c *Codec) SampleRate() int {
	if c == nil {
		return 0
	}
	return c.params.SampleRateOut
}

// Airtime returns how long a message of the given length plays for.
func (c *Codec) Airtime(length int, protocol engines.Protocol) time.Duration {
	if !protocol.IsValid() {
		return 0
	}
	var params engines.Parameters
	if c != nil {
		params = c.params
	}
	return engines.Airtime(params, protocol, length)
}

// MaxAirtime returns how long a MaxMessageLength message plays for on the
// slowest protocol. A capture window shorter than this loses long messages.
func (c *Codec) MaxAirtime() time.Duration {
	var params engines.Parameters
	if c != nil {
		params = c.params
	}
	var longest time.Duration
	for _, p := range engines.Protocols() {
		longest = max(longest, engines.Airtime(params, p, MaxMessageLength))
	}
	return longest
}

func (c *Codec) check() error {
	if c == nil || c.engine == nil {
		return ErrEngineNotReady
	}
	if c.closed {
		return ErrDisposed
	}
	return nil
}

// Encode returns the waveform for text at SampleRate. Text is never
// truncated: messages above MaxMessageLength bytes are rejected.
func (c *Codec) Encode(text string, protocol engines.Protocol, volume int) ([]float32, error) {
	if c == nil || c.engine == nil {
		return nil, ErrEngineNotReady
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	switch {
	case len(text) == 0:
		return nil, ErrEmptyMessage
	case len(text) > MaxMessageLength:
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrMessageTooLong, len(text), MaxMessageLength)
	case volume < 0 || volume > 100:
		return nil, fmt.Errorf("%w: %d", ErrInvalidVolume, volume)
	case !protocol.IsValid():
		return nil, fmt.Errorf("%w: %d", engines.ErrUnknownProtocol, int(protocol))
	}

	start := time.Now()
	samples, err := c.encoder.Encode([]byte(text), protocol, volume)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	c.metrics.RecordEncode(context.Background(), protocol.String(), time.Since(start).Seconds())
	return Int8sToFloat32s(samples), nil
}

// Decode looks for a message in a complete recording at SampleRate. It
// returns "" when the recording holds no complete message.
func (c *Codec) Decode(samples []float32) (string, error) {
	dec, err := c.NewDecoder(c.SampleRate(), len(samples))
	if err != nil {
		return "", err
	}
	defer dec.Dispose()
	return dec.ProcessSamples(samples)
}

// NewDecoder creates an accumulator for a capture stream at sampleRate that
// holds at most maxBuffered samples.
func (c *Codec) NewDecoder(sampleRate, maxBuffered int) (*Decoder, error) {
	if c == nil || c.engine == nil {
		return nil, ErrEngineNotReady
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	params := c.params
	params.SampleRateIn = sampleRate
	engDec, err := c.engine.NewDecoder(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s decoder: %w", ErrEngineNotReady, c.engine.Name(), err)
	}
	frame := int(params.FrameLength(sampleRate))
	return newDecoder(engDec, frame, maxBuffered, c.log, c.metrics), nil
}

// Close releases the encoder. Decoders created earlier stay usable.
func (c *Codec) Close() error {
	if c == nil || c.engine == nil {
		return ErrEngineNotReady
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	c.closed = true
	return c.encoder.Free()
}
