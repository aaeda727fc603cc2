package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sonic "github.com/agnivade/sonic_transport"
	devmock "github.com/agnivade/sonic_transport/devices/mock"
	"github.com/agnivade/sonic_transport/engines"
)

type fakeSender struct {
	mu    sync.Mutex
	sends []string
	errs  []error
	// onSend runs after each send is recorded.
	onSend func(n int)
}

func (f *fakeSender) Send(ctx context.Context, text string, _ engines.Protocol, _ int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	if err == nil {
		f.sends = append(f.sends, text)
	}
	n := len(f.sends)
	onSend := f.onSend
	f.mu.Unlock()

	if err == nil && onSend != nil {
		onSend(n)
	}
	return err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func TestBeaconRepeatsUntilAck(t *testing.T) {
	sender := &fakeSender{}
	b := NewBeacon(sender, 5*time.Millisecond, nil)
	sender.onSend = func(n int) {
		if n == 3 {
			b.Ack()
		}
	}

	plays, err := b.Transmit(context.Background(), "EMERGENCY:HELP", engines.AudibleFast, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, plays)
	assert.Equal(t, 3, sender.count())
	assert.False(t, b.Transmitting())
}

func TestBeaconCancelled(t *testing.T) {
	sender := &fakeSender{}
	b := NewBeacon(sender, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	plays, err := b.Transmit(ctx, "EMERGENCY:HELP", engines.AudibleFast, 50)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, plays, 1)
	assert.False(t, b.Transmitting())
}

func TestBeaconFirstSendFails(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("no speaker")}}
	b := NewBeacon(sender, time.Millisecond, nil)

	plays, err := b.Transmit(context.Background(), "hi", engines.AudibleFast, 50)
	assert.ErrorContains(t, err, "no speaker")
	assert.Zero(t, plays)
	assert.False(t, b.Transmitting())
}

func TestBeaconReplayFailureKeepsGoing(t *testing.T) {
	sender := &fakeSender{errs: []error{nil, errors.New("underrun")}}
	b := NewBeacon(sender, 2*time.Millisecond, nil)
	sender.onSend = func(n int) {
		if n == 2 {
			b.Ack()
		}
	}

	plays, err := b.Transmit(context.Background(), "hi", engines.AudibleFast, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, plays)
}

func TestBeaconBusy(t *testing.T) {
	sender := &fakeSender{}
	b := NewBeacon(sender, time.Hour, nil)

	done := make(chan error, 1)
	go func() {
		_, err := b.Transmit(context.Background(), "first", engines.AudibleFast, 50)
		done <- err
	}()
	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, time.Millisecond)

	_, err := b.Transmit(context.Background(), "second", engines.AudibleFast, 50)
	assert.ErrorIs(t, err, ErrBeaconBusy)

	b.Ack()
	b.Ack()
	require.NoError(t, <-done)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestCodec(t *testing.T) *sonic.Codec {
	t.Helper()
	codec, err := sonic.NewCodec(context.Background(), sonic.CodecConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { codec.Close() })
	return codec
}

func TestBeaconAckedByReply(t *testing.T) {
	codec := newTestCodec(t)
	logger := discardLogger()

	// Two devices, each speaker heard by the other microphone.
	micA := devmock.NewMicrophone(48000, 4096)
	micB := devmock.NewMicrophone(48000, 4096)
	trA := sonic.NewTransport(codec, micA, &devmock.Speaker{Loopback: micB, ChunkSize: 1024}, sonic.TransportConfig{}, logger)
	trB := sonic.NewTransport(codec, micB, &devmock.Speaker{Loopback: micA, ChunkSize: 1024}, sonic.TransportConfig{}, logger)

	beacon := NewBeacon(trA, 200*time.Millisecond, logger)
	sinkA := &reportSink{}
	rA := NewReceiver(trA, ReceiverConfig{Logger: logger})
	rA.OnReport(func(rep Report) {
		sinkA.handle(rep)
		beacon.Ack()
	})
	require.NoError(t, rA.Start(context.Background()))
	defer rA.Stop()

	sinkB := &reportSink{}
	rB := NewReceiver(trB, ReceiverConfig{Logger: logger})
	rB.OnReport(func(rep Report) {
		sinkB.handle(rep)
		assert.NoError(t, trB.Send(context.Background(), "TX:ACK", engines.AudibleFastest, 40))
	})
	require.NoError(t, rB.Start(context.Background()))
	defer rB.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	msg := EmergencyMessage(&Location{Lat: 52.52, Lng: 13.405})
	plays, err := beacon.Transmit(ctx, msg, engines.AudibleFast, 40)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, plays, 1)

	received := sinkB.all()
	require.NotEmpty(t, received)
	assert.Equal(t, "HELP at 52.5200, 13.4050", received[0].Display)

	replies := sinkA.all()
	require.Len(t, replies, 1)
	assert.Equal(t, KindTransaction, replies[0].Kind)
	assert.Equal(t, "ACK", replies[0].Display)
}

func TestBeaconIgnoresOwnEcho(t *testing.T) {
	codec := newTestCodec(t)
	logger := discardLogger()

	mic := devmock.NewMicrophone(48000, 4096)
	speaker := &devmock.Speaker{Loopback: mic, ChunkSize: 1024}
	tr := sonic.NewTransport(codec, mic, speaker, sonic.TransportConfig{}, logger)

	beacon := NewBeacon(tr, 50*time.Millisecond, logger)
	sink := &reportSink{}
	r := NewReceiver(tr, ReceiverConfig{Logger: logger})
	r.OnReport(func(rep Report) {
		sink.handle(rep)
		beacon.Ack()
	})
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	plays, err := beacon.Transmit(ctx, "EMERGENCY:HELP", engines.AudibleFastest, 40)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, plays, 2)

	require.Eventually(t, func() bool { return mic.Pending() == 0 }, 10*time.Second, 5*time.Millisecond)
	assert.Empty(t, sink.all())
}
