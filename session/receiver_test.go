package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sonic "github.com/agnivade/sonic_transport"
	devmock "github.com/agnivade/sonic_transport/devices/mock"
	"github.com/agnivade/sonic_transport/history"
)

type fakeListener struct {
	mu       sync.Mutex
	handler  func(sonic.Message)
	startErr  error
	starts    int
	stops     int
	listening bool
}

func (f *fakeListener) OnMessage(h func(sonic.Message)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *fakeListener) StartListening(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.listening = true
	return nil
}

func (f *fakeListener) StopListening() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.listening = false
	return nil
}

func (f *fakeListener) Listening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening
}

// drop ends the listening session without the receiver asking for it.
func (f *fakeListener) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listening = false
}

func (f *fakeListener) emit(text string) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(sonic.Message{Text: text, ReceivedAt: time.Now()})
}

func (f *fakeListener) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, e history.Entry) (history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return history.Entry{}, f.err
	}
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeRecorder) recorded() []history.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]history.Entry(nil), f.entries...)
}

type reportSink struct {
	mu      sync.Mutex
	reports []Report
}

func (s *reportSink) handle(r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
}

func (s *reportSink) all() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Report(nil), s.reports...)
}

func TestReceiverDeliversReports(t *testing.T) {
	listener := &fakeListener{}
	recorder := &fakeRecorder{}
	sink := &reportSink{}
	r := NewReceiver(listener, ReceiverConfig{Recorder: recorder})
	r.OnReport(sink.handle)

	require.NoError(t, r.Start(context.Background()))
	listener.emit("EMERGENCY:12.97160,77.59460")
	listener.emit("EMERGENCY:12.97160,77.59460")
	listener.emit("TX:42")

	reports := sink.all()
	require.Len(t, reports, 2)
	assert.Equal(t, KindEmergency, reports[0].Kind)
	assert.Equal(t, "HELP at 12.9716, 77.5946", reports[0].Display)
	assert.False(t, reports[0].Fallback)
	assert.False(t, reports[0].ReceivedAt.IsZero())
	assert.Equal(t, KindTransaction, reports[1].Kind)
	assert.True(t, r.Received())

	entries := recorder.recorded()
	require.Len(t, entries, 2)
	assert.Equal(t, reports[0].ID, entries[0].ID)
}

func TestReceiverFallback(t *testing.T) {
	tests := []struct {
		name     string
		location LocationProvider
		wantRaw  string
		wantLoc  bool
	}{
		{
			name:    "no provider",
			wantRaw: "EMERGENCY:HELP IM IN DANGER",
		},
		{
			name: "with location",
			location: LocationFunc(func(context.Context) (Location, error) {
				return Location{Lat: 1.5, Lng: 2.25}, nil
			}),
			wantRaw: "EMERGENCY:1.50000,2.25000",
			wantLoc: true,
		},
		{
			name: "location error",
			location: LocationFunc(func(context.Context) (Location, error) {
				return Location{}, errors.New("no fix")
			}),
			wantRaw: "EMERGENCY:HELP IM IN DANGER",
		},
		{
			name: "location timeout",
			location: LocationFunc(func(ctx context.Context) (Location, error) {
				<-ctx.Done()
				return Location{}, ctx.Err()
			}),
			wantRaw: "EMERGENCY:HELP IM IN DANGER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener := &fakeListener{}
			sink := &reportSink{}
			r := NewReceiver(listener, ReceiverConfig{
				FallbackAfter:   20 * time.Millisecond,
				LocationTimeout: 20 * time.Millisecond,
				Location:        tt.location,
			})
			r.OnReport(sink.handle)
			defer r.Stop()

			require.NoError(t, r.Start(context.Background()))
			require.Eventually(t, func() bool { return len(sink.all()) == 1 }, 2*time.Second, 5*time.Millisecond)

			report := sink.all()[0]
			assert.Equal(t, tt.wantRaw, report.Raw)
			assert.True(t, report.Fallback)
			assert.Equal(t, KindEmergency, report.Kind)
			assert.Equal(t, tt.wantLoc, report.Location != nil)
			assert.False(t, r.Received())
		})
	}
}

func TestReceiverDecodeCancelsFallback(t *testing.T) {
	listener := &fakeListener{}
	sink := &reportSink{}
	r := NewReceiver(listener, ReceiverConfig{FallbackAfter: 50 * time.Millisecond})
	r.OnReport(sink.handle)
	defer r.Stop()

	require.NoError(t, r.Start(context.Background()))
	listener.emit("hello")

	time.Sleep(150 * time.Millisecond)
	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "hello", reports[0].Raw)
	assert.False(t, reports[0].Fallback)
}

func TestReceiverStopCancelsFallback(t *testing.T) {
	listener := &fakeListener{}
	sink := &reportSink{}
	r := NewReceiver(listener, ReceiverConfig{FallbackAfter: 30 * time.Millisecond})
	r.OnReport(sink.handle)

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, sink.all())
	assert.False(t, r.Running())
	starts, stops := listener.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
}

func TestReceiverFallbackDisabled(t *testing.T) {
	listener := &fakeListener{}
	sink := &reportSink{}
	r := NewReceiver(listener, ReceiverConfig{})
	r.OnReport(sink.handle)
	defer r.Stop()

	require.NoError(t, r.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.all())
}

func TestReceiverStartErrors(t *testing.T) {
	listener := &fakeListener{startErr: sonic.ErrPermissionDenied}
	r := NewReceiver(listener, ReceiverConfig{FallbackAfter: time.Millisecond})

	assert.ErrorIs(t, r.Start(context.Background()), sonic.ErrPermissionDenied)
	assert.False(t, r.Running())

	listener.startErr = nil
	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), sonic.ErrAlreadyListening)
	require.NoError(t, r.Stop())
}

func TestReceiverRestartForgetsDuplicates(t *testing.T) {
	listener := &fakeListener{}
	sink := &reportSink{}
	r := NewReceiver(listener, ReceiverConfig{})
	r.OnReport(sink.handle)

	require.NoError(t, r.Start(context.Background()))
	listener.emit("EMERGENCY:HELP")
	require.NoError(t, r.Stop())

	require.NoError(t, r.Start(context.Background()))
	listener.emit("EMERGENCY:HELP")
	require.NoError(t, r.Stop())

	assert.Len(t, sink.all(), 2)
}

func TestReceiverRecorderFailure(t *testing.T) {
	listener := &fakeListener{}
	sink := &reportSink{}
	r := NewReceiver(listener, ReceiverConfig{Recorder: &fakeRecorder{err: errors.New("disk full")}})
	r.OnReport(sink.handle)
	defer r.Stop()

	require.NoError(t, r.Start(context.Background()))
	listener.emit("TX:1")
	assert.Len(t, sink.all(), 1)
}

func TestReceiverStopFromHandler(t *testing.T) {
	listener := &fakeListener{}
	r := NewReceiver(listener, ReceiverConfig{})
	r.OnReport(func(Report) { assert.NoError(t, r.Stop()) })

	require.NoError(t, r.Start(context.Background()))
	listener.emit("TX:1")
	assert.False(t, r.Running())
}

func TestReceiverListenerStoppedOnItsOwn(t *testing.T) {
	listener := &fakeListener{}
	r := NewReceiver(listener, ReceiverConfig{FallbackAfter: time.Hour})

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.Running())

	listener.drop()
	assert.False(t, r.Running())

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.Running())
	starts, _ := listener.counts()
	assert.Equal(t, 2, starts)
	require.NoError(t, r.Stop())
}

func TestReceiverRestartsAfterDeviceFailure(t *testing.T) {
	mic := devmock.NewMicrophone(48000, 16)
	tr := sonic.NewTransport(newTestCodec(t), mic, &devmock.Speaker{}, sonic.TransportConfig{}, discardLogger())
	r := NewReceiver(tr, ReceiverConfig{})
	defer r.Stop()

	require.NoError(t, r.Start(context.Background()))
	mic.FailRead(errors.New("unplugged"))
	require.Eventually(t, func() bool { return !r.Running() }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.Running())
	assert.Equal(t, 2, mic.OpenCount())
}
