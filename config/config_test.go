package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoadFromReader(t *testing.T) {
	const yamlDoc = `
server:
  addr: "127.0.0.1:9000"
codec:
  engine: tone
capture:
  sample_rate: 44100
  max_buffered: 40s
  echo_guard: -1s
transmit:
  protocol: ultrasonic-fastest
  volume: 80
  interval: 2s
receiver:
  fallback_after: 0s
  location:
    lat: 52.52
    lng: 13.405
history:
  path: /tmp/reports.db
`
	cfg, err := LoadFromReader(strings.NewReader(yamlDoc))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 44100, cfg.Capture.SampleRate)
	assert.Equal(t, 40*time.Second, cfg.Capture.MaxBuffered)
	assert.Equal(t, -time.Second, cfg.Capture.EchoGuard)
	assert.Equal(t, "ultrasonic-fastest", cfg.Transmit.Protocol)
	assert.Equal(t, 80, cfg.Transmit.Volume)
	assert.Equal(t, 2*time.Second, cfg.Transmit.Interval)
	assert.Zero(t, cfg.Receiver.FallbackAfter)
	require.NotNil(t, cfg.Receiver.Location)
	assert.Equal(t, 52.52, cfg.Receiver.Location.Lat)
	assert.Equal(t, "/tmp/reports.db", cfg.History.Path)

	// Fields missing from the document keep their defaults.
	assert.Equal(t, 1024, cfg.Capture.FramesPerBuffer)
	assert.Equal(t, 3*time.Second, cfg.Receiver.LocationTimeout)
	assert.Equal(t, 0.9, cfg.Receiver.Similarity)
}

func TestLoadFromReaderEmpty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  port: 8081\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "port")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.Codec.Engine = "whisper" },
			wantErr: []string{"codec.engine"},
		},
		{
			name:    "unknown protocol",
			mutate:  func(c *Config) { c.Transmit.Protocol = "audible-slow" },
			wantErr: []string{"transmit.protocol"},
		},
		{
			name:    "volume",
			mutate:  func(c *Config) { c.Transmit.Volume = 101 },
			wantErr: []string{"transmit.volume"},
		},
		{
			name:    "buffer",
			mutate:  func(c *Config) { c.Capture.MaxBuffered = -time.Second },
			wantErr: []string{"capture.max_buffered"},
		},
		{
			name:    "location",
			mutate:  func(c *Config) { c.Receiver.Location = &LocationConfig{Lat: 91, Lng: -181} },
			wantErr: []string{"receiver.location.lat", "receiver.location.lng"},
		},
		{
			name: "several problems",
			mutate: func(c *Config) {
				c.Server.Addr = ""
				c.Receiver.Similarity = 2
				c.Receiver.FallbackAfter = -time.Second
			},
			wantErr: []string{"server.addr", "receiver.similarity", "receiver.fallback_after"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sonic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transmit:\n  volume: 10\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Transmit.Volume)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("transmit:\n  volume: 900\n"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "transmit.volume")
}
