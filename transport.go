package sonic_transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agnivade/sonic_transport/devices"
	"github.com/agnivade/sonic_transport/engines"
	"github.com/agnivade/sonic_transport/observe"
)

const (
	// DefaultEchoGuard is how long after playback a decode of the text just
	// sent is treated as the speaker heard by its own microphone.
	DefaultEchoGuard = 2 * time.Second

	// bufferMargin is kept in the accumulator beyond the longest message.
	bufferMargin = time.Second

	defaultFramesPerBuffer = 1024
)

// Message is a decoded message.
type Message struct {
	Text       string
	SessionID  uuid.UUID
	ReceivedAt time.Time
}

// TransportConfig configures a Transport.
type TransportConfig struct {
	// SampleRate is the requested capture rate. Zero uses the device default.
	SampleRate int

	// FramesPerBuffer is the capture chunk size. Default: 1024.
	FramesPerBuffer int

	// MaxBuffered bounds the accumulator. It is raised to fit the longest
	// message on the slowest protocol; zero uses exactly that.
	MaxBuffered time.Duration

	// EchoGuard is how long after a Send its text is dropped when decoded.
	// Zero uses DefaultEchoGuard; negative delivers echoes.
	EchoGuard time.Duration

	// Metrics is optional.
	Metrics *observe.Metrics
}

// Transport owns the microphone and speaker. It runs at most one listening
// session at a time; decoded messages are delivered to the OnMessage handler
// from the capture goroutine.
type Transport struct {
	codec   *Codec
	mic     devices.Microphone
	speaker devices.Speaker
	cfg     TransportConfig
	log     *log.Logger
	metrics *observe.Metrics

	mu      sync.Mutex
	session *listenSession
	handler func(Message)
	echo    echo

	sendMu sync.Mutex
}

// echo is the last text sent. until is zero while it is playing.
type echo struct {
	text  string
	until time.Time
}

// listenSession is one StartListening..StopListening span. The capture
// goroutine is the only user of the decoder; teardown waits until that
// goroutine has exited or is parked inside the message handler.
type listenSession struct {
	id      uuid.UUID
	stream  devices.InputStream
	decoder *Decoder
	cancel  context.CancelFunc

	mu      sync.Mutex
	cond    *sync.Cond
	stopped bool
	parked  bool
	exited  bool

	stopOnce sync.Once
	stopErr  error
}

// NewTransport creates a Transport.
func NewTransport(codec *Codec, mic devices.Microphone, speaker devices.Speaker, cfg TransportConfig, logger *log.Logger) *Transport {
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = defaultFramesPerBuffer
	}
	if cfg.EchoGuard == 0 {
		cfg.EchoGuard = DefaultEchoGuard
	}
	if least := codec.MaxAirtime() + bufferMargin; cfg.MaxBuffered < least {
		if cfg.MaxBuffered > 0 {
			logger.Printf("max buffered %v raised to %v to fit the longest message\n", cfg.MaxBuffered, least)
		}
		cfg.MaxBuffered = least
	}
	return &Transport{
		codec:   codec,
		mic:     mic,
		speaker: speaker,
		cfg:     cfg,
		log:     logger,
		metrics: cfg.Metrics,
	}
}

// OnMessage sets the handler for decoded messages. The handler runs on the
// capture goroutine and may call StopListening.
func (t *Transport) OnMessage(fn func(Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

// Listening reports whether a session is active.
func (t *Transport) Listening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session != nil
}

// StartListening opens the microphone and starts decoding. ctx only bounds
// opening the device; the session runs until StopListening.
func (t *Transport) StartListening(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil {
		return ErrAlreadyListening
	}
	if t.codec == nil || t.codec.engine == nil {
		return ErrEngineNotReady
	}

	stream, err := t.mic.Open(ctx, devices.StreamConfig{
		SampleRate:      t.cfg.SampleRate,
		FramesPerBuffer: t.cfg.FramesPerBuffer,
	})
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}

	rate := stream.SampleRate()
	dec, err := t.codec.NewDecoder(rate, t.capacity(rate))
	if err != nil {
		if closeErr := stream.Close(); closeErr != nil {
			t.log.Printf("close stream: %v\n", closeErr)
		}
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &listenSession{
		id:      uuid.New(),
		stream:  stream,
		decoder: dec,
		cancel:  cancel,
	}
	s.cond = sync.NewCond(&s.mu)
	t.session = s

	t.metrics.SessionStarted(ctx)
	t.log.Printf("listening session %s at %d Hz\n", s.id, rate)

	go t.capture(loopCtx, s)
	return nil
}

// capacity returns the accumulator size in samples at rate.
func (t *Transport) capacity(rate int) int {
	return int(t.cfg.MaxBuffered.Seconds() * float64(rate))
}

// StopListening ends the active session: it stops the capture loop, closes
// the stream and disposes the decoder, in that order. Every step runs even if
// an earlier one fails. Calling it without an active session is a no-op.
func (t *Transport) StopListening() error {
	t.mu.Lock()
	s := t.session
	t.mu.Unlock()
	if s == nil {
		return nil
	}
	return t.stopSession(s)
}

func (t *Transport) stopSession(s *listenSession) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cancel()

		s.mu.Lock()
		for !s.parked && !s.exited {
			s.cond.Wait()
		}
		s.mu.Unlock()

		var errs []error
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream: %w", err))
		}
		if err := s.decoder.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose decoder: %w", err))
		}
		s.stopErr = errors.Join(errs...)

		t.mu.Lock()
		if t.session == s {
			t.session = nil
		}
		t.mu.Unlock()

		t.metrics.SessionStopped(context.Background())
		t.log.Printf("listening session %s stopped\n", s.id)
	})
	return s.stopErr
}

func (s *listenSession) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *listenSession) markExited() {
	s.mu.Lock()
	s.exited = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// capture feeds chunks to the decoder in the order they were read.
func (t *Transport) capture(ctx context.Context, s *listenSession) {
	defer s.markExited()

	for {
		chunk, err := s.stream.Read(ctx)
		if s.isStopped() {
			return
		}
		if err != nil {
			t.log.Printf("capture: %v\n", err)
			// The device is gone; tear the session down from here.
			s.markExited()
			if err := t.stopSession(s); err != nil {
				t.log.Printf("stop after capture error: %v\n", err)
			}
			return
		}

		text, err := s.decoder.ProcessSamples(chunk)
		if err != nil {
			t.log.Printf("process samples: %v\n", err)
			return
		}
		if text == "" {
			continue
		}
		if t.isEcho(text) {
			t.log.Printf("dropped echo of %q\n", text)
			continue
		}
		if !t.dispatch(s, Message{Text: text, SessionID: s.id, ReceivedAt: time.Now()}) {
			return
		}
	}
}

// dispatch runs the handler with the session parked and reports whether the
// loop should continue.
func (t *Transport) dispatch(s *listenSession, msg Message) bool {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.parked = true
	s.cond.Broadcast()
	s.mu.Unlock()

	if handler != nil {
		handler(msg)
	}

	s.mu.Lock()
	s.parked = false
	stopped := s.stopped
	s.mu.Unlock()
	return !stopped
}

// Airtime returns how long a message of the given length plays for.
func (t *Transport) Airtime(length int, protocol engines.Protocol) time.Duration {
	return t.codec.Airtime(length, protocol)
}

// isEcho reports whether text is what the speaker is playing or played within
// the echo guard.
func (t *Transport) isEcho(text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg.EchoGuard < 0 || text != t.echo.text {
		return false
	}
	return t.echo.until.IsZero() || time.Now().Before(t.echo.until)
}

func (t *Transport) setEcho(e echo) {
	t.mu.Lock()
	t.echo = e
	t.mu.Unlock()
}

// Send encodes text and plays it, blocking until playback completes. Sends
// are serialised. While listening, a decode of the same text during playback
// or within EchoGuard after it is not delivered.
func (t *Transport) Send(ctx context.Context, text string, protocol engines.Protocol, volume int) error {
	samples, err := t.codec.Encode(text, protocol, volume)
	if err != nil {
		return err
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.setEcho(echo{text: text})
	err = t.speaker.Play(ctx, samples, t.codec.SampleRate())
	t.setEcho(echo{text: text, until: time.Now().Add(t.cfg.EchoGuard)})
	if err != nil {
		t.metrics.RecordTransmission(ctx, "error")
		return fmt.Errorf("play: %w", err)
	}
	t.metrics.RecordTransmission(ctx, "ok")
	return nil
}
