// Package config loads the sonic transport YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agnivade/sonic_transport/engines"
)

// ValidEngines lists the engine names the codec loader knows. An empty name
// picks the default engine.
var ValidEngines = []string{"", "tone", "ggwave"}

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Codec    CodecConfig    `yaml:"codec"`
	Capture  CaptureConfig  `yaml:"capture"`
	Transmit TransmitConfig `yaml:"transmit"`
	Receiver ReceiverConfig `yaml:"receiver"`
	History  HistoryConfig  `yaml:"history"`
}

// ServerConfig configures the relay.
type ServerConfig struct {
	// Addr is the listen address of the relay. Default: ":8081".
	Addr string `yaml:"addr"`
}

// CodecConfig selects and tunes the engine.
type CodecConfig struct {
	Engine          string `yaml:"engine"`
	SampleRate      int    `yaml:"sample_rate"`
	SamplesPerFrame int    `yaml:"samples_per_frame"`
}

// CaptureConfig configures the microphone stream.
type CaptureConfig struct {
	// SampleRate of zero uses the device default.
	SampleRate      int `yaml:"sample_rate"`
	FramesPerBuffer int `yaml:"frames_per_buffer"`

	// MaxBuffered of zero fits the longest message on the slowest protocol.
	// Shorter values are raised to that.
	MaxBuffered time.Duration `yaml:"max_buffered"`

	// EchoGuard of zero uses the transport default; negative delivers the
	// transport's own transmissions.
	EchoGuard time.Duration `yaml:"echo_guard"`
}

// TransmitConfig holds the defaults for outgoing messages.
type TransmitConfig struct {
	Protocol string        `yaml:"protocol"`
	Volume   int           `yaml:"volume"`
	Interval time.Duration `yaml:"interval"`
}

// ReceiverConfig configures the session receiver.
type ReceiverConfig struct {
	// FallbackAfter of zero disables the fallback report.
	FallbackAfter   time.Duration `yaml:"fallback_after"`
	LocationTimeout time.Duration `yaml:"location_timeout"`
	DedupWindow     int           `yaml:"dedup_window"`
	Similarity      float64       `yaml:"similarity"`

	// Location is a fixed position used for fallback reports.
	Location *LocationConfig `yaml:"location"`
}

// LocationConfig is a position in decimal degrees.
type LocationConfig struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// HistoryConfig configures the report log.
type HistoryConfig struct {
	// Path of the SQLite database. Empty disables the history.
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8081"},
		Codec: CodecConfig{
			Engine:          "",
			SampleRate:      engines.BaseSampleRate,
			SamplesPerFrame: engines.DefaultSamplesPerFrame,
		},
		Capture: CaptureConfig{
			FramesPerBuffer: 1024,
		},
		Transmit: TransmitConfig{
			Protocol: engines.DefaultDemoProtocol.String(),
			Volume:   50,
			Interval: 1200 * time.Millisecond,
		},
		Receiver: ReceiverConfig{
			FallbackAfter:   10 * time.Second,
			LocationTimeout: 3 * time.Second,
			DedupWindow:     10,
			Similarity:      0.9,
		},
	}
}

// Load reads the YAML file at path over Default and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over Default and validates the result.
// Unknown fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	if !slices.Contains(ValidEngines, cfg.Codec.Engine) {
		errs = append(errs, fmt.Errorf("codec.engine %q is invalid; valid values: %v", cfg.Codec.Engine, ValidEngines))
	}
	if cfg.Codec.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("codec.sample_rate %d must not be negative", cfg.Codec.SampleRate))
	}
	if cfg.Codec.SamplesPerFrame < 0 {
		errs = append(errs, fmt.Errorf("codec.samples_per_frame %d must not be negative", cfg.Codec.SamplesPerFrame))
	}

	if cfg.Capture.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d must not be negative", cfg.Capture.SampleRate))
	}
	if cfg.Capture.FramesPerBuffer < 0 {
		errs = append(errs, fmt.Errorf("capture.frames_per_buffer %d must not be negative", cfg.Capture.FramesPerBuffer))
	}
	if cfg.Capture.MaxBuffered < 0 {
		errs = append(errs, fmt.Errorf("capture.max_buffered %v must not be negative", cfg.Capture.MaxBuffered))
	}

	if _, err := engines.ParseProtocol(cfg.Transmit.Protocol); err != nil {
		errs = append(errs, fmt.Errorf("transmit.protocol: %w", err))
	}
	if cfg.Transmit.Volume < 0 || cfg.Transmit.Volume > 100 {
		errs = append(errs, fmt.Errorf("transmit.volume %d must be between 0 and 100", cfg.Transmit.Volume))
	}
	if cfg.Transmit.Interval <= 0 {
		errs = append(errs, fmt.Errorf("transmit.interval %v must be positive", cfg.Transmit.Interval))
	}

	if cfg.Receiver.FallbackAfter < 0 {
		errs = append(errs, fmt.Errorf("receiver.fallback_after %v must not be negative", cfg.Receiver.FallbackAfter))
	}
	if cfg.Receiver.LocationTimeout < 0 {
		errs = append(errs, fmt.Errorf("receiver.location_timeout %v must not be negative", cfg.Receiver.LocationTimeout))
	}
	if cfg.Receiver.DedupWindow < 0 {
		errs = append(errs, fmt.Errorf("receiver.dedup_window %d must not be negative", cfg.Receiver.DedupWindow))
	}
	if cfg.Receiver.Similarity < 0 || cfg.Receiver.Similarity > 1 {
		errs = append(errs, fmt.Errorf("receiver.similarity %v must be between 0 and 1", cfg.Receiver.Similarity))
	}
	if loc := cfg.Receiver.Location; loc != nil {
		if loc.Lat < -90 || loc.Lat > 90 {
			errs = append(errs, fmt.Errorf("receiver.location.lat %v is out of range", loc.Lat))
		}
		if loc.Lng < -180 || loc.Lng > 180 {
			errs = append(errs, fmt.Errorf("receiver.location.lng %v is out of range", loc.Lng))
		}
	}

	return errors.Join(errs...)
}
