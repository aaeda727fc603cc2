package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/agnivade/sonic_transport/engines"
)

// DefaultInterval is the delay between beacon retransmissions.
const DefaultInterval = 1200 * time.Millisecond

// ErrBeaconBusy is returned by Transmit while another transmission runs.
var ErrBeaconBusy = errors.New("beacon already transmitting")

// Sender is the send half of a sonic_transport.Transport.
type Sender interface {
	Send(ctx context.Context, text string, protocol engines.Protocol, volume int) error
}

// Beacon repeats a message until it is acknowledged.
type Beacon struct {
	sender   Sender
	interval time.Duration
	log      *log.Logger

	mu  sync.Mutex
	ack chan struct{}
}

// NewBeacon creates a Beacon. A non-positive interval uses DefaultInterval.
func NewBeacon(sender Sender, interval time.Duration, logger *log.Logger) *Beacon {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Beacon{
		sender:   sender,
		interval: interval,
		log:      logger,
	}
}

// Transmit plays text, then replays it every interval until Ack is called or
// ctx is done. It returns the number of plays. A failure of the first play is
// returned; later failures are logged and the beacon keeps going.
func (b *Beacon) Transmit(ctx context.Context, text string, protocol engines.Protocol, volume int) (int, error) {
	b.mu.Lock()
	if b.ack != nil {
		b.mu.Unlock()
		return 0, ErrBeaconBusy
	}
	ack := make(chan struct{})
	b.ack = ack
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if b.ack == ack {
			b.ack = nil
		}
		b.mu.Unlock()
	}()

	if err := b.sender.Send(ctx, text, protocol, volume); err != nil {
		return 0, err
	}
	plays := 1

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ack:
			return plays, nil
		case <-ctx.Done():
			return plays, ctx.Err()
		case <-ticker.C:
		}

		// Ack may have arrived while the ticker fired.
		select {
		case <-ack:
			return plays, nil
		default:
		}
		if err := b.sender.Send(ctx, text, protocol, volume); err != nil {
			if ctx.Err() != nil {
				return plays, ctx.Err()
			}
			b.log.Printf("beacon replay: %v\n", err)
			continue
		}
		plays++
	}
}

// Ack stops the running transmission. It is a no-op when nothing is being
// transmitted.
func (b *Beacon) Ack() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ack != nil {
		close(b.ack)
		b.ack = nil
	}
}

// Transmitting reports whether a transmission is running.
func (b *Beacon) Transmitting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ack != nil
}
