package session

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	sonic "github.com/agnivade/sonic_transport"
	"github.com/agnivade/sonic_transport/history"
	"github.com/agnivade/sonic_transport/observe"
)

const (
	// DefaultFallbackAfter is how long a receiver listens before reporting a
	// fallback emergency.
	DefaultFallbackAfter = 10 * time.Second

	// DefaultLocationTimeout bounds the location lookup of a fallback report.
	DefaultLocationTimeout = 3 * time.Second

	// DefaultDedupWindow is the number of recent messages kept for duplicate
	// suppression.
	DefaultDedupWindow = 10

	// DefaultSimilarity is the Levenshtein similarity at which two messages
	// are treated as the same.
	DefaultSimilarity = 0.9

	recordTimeout = 5 * time.Second
)

// Listener is the receive half of a sonic_transport.Transport.
type Listener interface {
	OnMessage(func(sonic.Message))
	StartListening(ctx context.Context) error
	StopListening() error
	Listening() bool
}

// LocationProvider returns the current position.
type LocationProvider interface {
	Location(ctx context.Context) (Location, error)
}

// LocationFunc adapts a function to LocationProvider.
type LocationFunc func(ctx context.Context) (Location, error)

// Location calls f.
func (f LocationFunc) Location(ctx context.Context) (Location, error) {
	return f(ctx)
}

// Recorder persists reports.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Handler receives every report. It runs on the goroutine that produced the
// report and may call Stop.
type Handler func(Report)

// ReceiverConfig configures a Receiver.
type ReceiverConfig struct {
	// FallbackAfter is the fallback delay. Zero disables the fallback.
	FallbackAfter time.Duration

	// LocationTimeout bounds the location lookup. Default: 3s.
	LocationTimeout time.Duration

	// DedupWindow and Similarity tune duplicate suppression. Defaults: 10 and
	// 0.9.
	DedupWindow int
	Similarity  float64

	// Location, Recorder and Metrics are optional.
	Location LocationProvider
	Recorder Recorder
	Metrics  *observe.Metrics

	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

// Receiver listens for messages and turns them into reports. When nothing
// is decoded within FallbackAfter of Start it reports a fallback emergency,
// with the current location when one is available.
type Receiver struct {
	listener Listener
	cfg      ReceiverConfig
	dedup    *recentMessages
	log      *log.Logger
	metrics  *observe.Metrics

	mu             sync.Mutex
	handler        Handler
	running        bool
	received       bool
	timer          *time.Timer
	cancelFallback context.CancelFunc
}

// NewReceiver creates a Receiver on listener.
func NewReceiver(listener Listener, cfg ReceiverConfig) *Receiver {
	if cfg.LocationTimeout <= 0 {
		cfg.LocationTimeout = DefaultLocationTimeout
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultDedupWindow
	}
	if cfg.Similarity <= 0 {
		cfg.Similarity = DefaultSimilarity
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Receiver{
		listener: listener,
		cfg:      cfg,
		dedup:    newRecentMessages(cfg.DedupWindow, cfg.Similarity),
		log:      logger,
		metrics:  cfg.Metrics,
	}
}

// OnReport sets the report handler.
func (r *Receiver) OnReport(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

// Start starts listening and arms the fallback timer.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		if r.listener.Listening() {
			return sonic.ErrAlreadyListening
		}
		// The listener stopped on its own, e.g. after a device error.
		r.running = false
		r.disarmLocked()
	}
	r.dedup.reset()
	r.received = false

	r.listener.OnMessage(r.handleMessage)
	if err := r.listener.StartListening(ctx); err != nil {
		return err
	}
	r.running = true

	if r.cfg.FallbackAfter > 0 {
		fallbackCtx, cancel := context.WithCancel(context.Background())
		r.cancelFallback = cancel
		r.timer = time.AfterFunc(r.cfg.FallbackAfter, func() { r.fallback(fallbackCtx) })
	}
	return nil
}

// Stop disarms the fallback timer and stops listening. Stopping a receiver
// that is not running is a no-op.
func (r *Receiver) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.disarmLocked()
	r.mu.Unlock()

	return r.listener.StopListening()
}

// Running reports whether the receiver is listening. It turns false when the
// listener stops on its own.
func (r *Receiver) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running && r.listener.Listening()
}

// Received reports whether a message was decoded since Start.
func (r *Receiver) Received() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received
}

func (r *Receiver) disarmLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.cancelFallback != nil {
		r.cancelFallback()
		r.cancelFallback = nil
	}
}

func (r *Receiver) handleMessage(msg sonic.Message) {
	r.mu.Lock()
	r.received = true
	r.disarmLocked()
	r.mu.Unlock()

	r.deliver(msg.Text, msg.ReceivedAt, false)
}

func (r *Receiver) fallback(ctx context.Context) {
	var loc *Location
	if r.cfg.Location != nil {
		lctx, cancel := context.WithTimeout(ctx, r.cfg.LocationTimeout)
		l, err := r.cfg.Location.Location(lctx)
		cancel()
		if err != nil {
			r.log.Printf("fallback location: %v\n", err)
		} else {
			loc = &l
		}
	}

	r.mu.Lock()
	// A message may have arrived during the location lookup.
	if r.received || !r.running || ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.log.Printf("nothing decoded after %v, reporting fallback\n", r.cfg.FallbackAfter)
	r.metrics.RecordFallback(ctx)
	r.deliver(FallbackMessage(loc), time.Now(), true)
}

func (r *Receiver) deliver(text string, at time.Time, fallback bool) {
	if r.dedup.seen(text) {
		r.log.Printf("dropping repeated message %q\n", text)
		return
	}

	report := ParseReport(text)
	report.ReceivedAt = at
	report.Fallback = fallback

	if r.cfg.Recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if _, err := r.cfg.Recorder.Record(ctx, report.Entry()); err != nil {
			r.log.Printf("record report: %v\n", err)
		}
		cancel()
	}

	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()
	if h != nil {
		h(report)
	}
}
