// Package mock provides in-memory audio devices for tests.
package mock

import (
	"context"
	"sync"

	"github.com/agnivade/sonic_transport/devices"
)

// Microphone is a devices.Microphone fed by the test through Feed.
type Microphone struct {
	// OpenErr, when set, is returned by Open.
	OpenErr error
	// CloseErr, when set, is returned by Close of every stream.
	CloseErr error
	// Rate is the sample rate streams report. Zero means the requested rate.
	Rate int

	mu         sync.Mutex
	chunks     chan []float32
	readErrs   chan error
	openCount  int
	closeCount int
	lastConfig devices.StreamConfig
}

// NewMicrophone returns a microphone that can queue up to capacity chunks.
func NewMicrophone(rate, capacity int) *Microphone {
	return &Microphone{
		Rate:     rate,
		chunks:   make(chan []float32, capacity),
		readErrs: make(chan error, 1),
	}
}

// FailRead makes the next Read of the open stream return err.
func (m *Microphone) FailRead(err error) {
	m.readErrs <- err
}

// Pending returns the number of queued chunks not read yet.
func (m *Microphone) Pending() int {
	return len(m.chunks)
}

// Feed queues a chunk for the stream. It blocks when the queue is full.
func (m *Microphone) Feed(chunk []float32) {
	m.chunks <- chunk
}

// FeedChunks splits samples into chunks of size n and queues them.
func (m *Microphone) FeedChunks(samples []float32, n int) {
	for off := 0; off < len(samples); off += n {
		m.Feed(samples[off:min(off+n, len(samples))])
	}
}

// Open returns a stream reading from the queue.
func (m *Microphone) Open(ctx context.Context, cfg devices.StreamConfig) (devices.InputStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCount++
	m.lastConfig = cfg
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	rate := m.Rate
	if rate == 0 {
		rate = cfg.SampleRate
	}
	return &Stream{mic: m, rate: rate, done: make(chan struct{})}, nil
}

// OpenCount returns how many times Open was called.
func (m *Microphone) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCount
}

// CloseCount returns how many streams were closed.
func (m *Microphone) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

// LastConfig returns the configuration of the last Open call.
func (m *Microphone) LastConfig() devices.StreamConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastConfig
}

// Stream implements devices.InputStream.
type Stream struct {
	mic  *Microphone
	rate int
	once sync.Once
	done chan struct{}
}

// SampleRate returns the stream rate.
func (s *Stream) SampleRate() int {
	return s.rate
}

// Read returns the next queued chunk.
func (s *Stream) Read(ctx context.Context) ([]float32, error) {
	select {
	case <-s.done:
		return nil, devices.ErrStreamClosed
	default:
	}
	select {
	case c := <-s.mic.chunks:
		return c, nil
	case err := <-s.mic.readErrs:
		return nil, err
	case <-s.done:
		return nil, devices.ErrStreamClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the stream. Closing twice is a no-op.
func (s *Stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.mic.mu.Lock()
		s.mic.closeCount++
		s.mic.mu.Unlock()
	})
	return s.mic.CloseErr
}

// Speaker records everything played on it and can loop it back into a
// Microphone.
type Speaker struct {
	// PlayErr, when set, is returned by Play.
	PlayErr error
	// Loopback receives played samples in chunks of ChunkSize.
	Loopback  *Microphone
	ChunkSize int

	mu     sync.Mutex
	played [][]float32
	rates  []int
}

// Play records samples and forwards them to the loopback microphone.
func (s *Speaker) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.PlayErr != nil {
		return s.PlayErr
	}
	s.mu.Lock()
	s.played = append(s.played, append([]float32(nil), samples...))
	s.rates = append(s.rates, sampleRate)
	s.mu.Unlock()

	if s.Loopback != nil {
		n := s.ChunkSize
		if n <= 0 {
			n = 1024
		}
		s.Loopback.FeedChunks(samples, n)
	}
	return nil
}

// Played returns a copy of every played buffer.
func (s *Speaker) Played() [][]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]float32(nil), s.played...)
}

// PlayCount returns the number of Play calls that succeeded.
func (s *Speaker) PlayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

// Rates returns the sample rate of every played buffer.
func (s *Speaker) Rates() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.rates...)
}
