package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	sonic "github.com/agnivade/sonic_transport"
	"github.com/agnivade/sonic_transport/config"
	"github.com/agnivade/sonic_transport/devices/portaudio"
	"github.com/agnivade/sonic_transport/engines"
	"github.com/agnivade/sonic_transport/history"
	"github.com/agnivade/sonic_transport/observe"
	"github.com/agnivade/sonic_transport/session"
)

type options struct {
	configPath string
	addr       string
	engine     string
	protocol   string
	volume     int
	fallback   time.Duration
	history    string
	listen     bool
	beacon     string
	emergency  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML configuration file (optional)")
	flag.StringVar(&opts.addr, "addr", "", "relay listen address")
	flag.StringVar(&opts.engine, "engine", "", "codec engine: tone or ggwave (default: ggwave when compiled in)")
	flag.StringVar(&opts.protocol, "protocol", "", "default transmit protocol")
	flag.IntVar(&opts.volume, "volume", 0, "default transmit volume (0-100)")
	flag.DurationVar(&opts.fallback, "fallback", 0, "report a fallback emergency after this long without a decode (0 disables)")
	flag.StringVar(&opts.history, "history", "", "SQLite file for received reports")
	flag.BoolVar(&opts.listen, "listen", true, "listen on the microphone")
	flag.StringVar(&opts.beacon, "beacon", "", "repeat this message until a reply is decoded")
	flag.BoolVar(&opts.emergency, "emergency", false, "repeat an emergency message until a reply is decoded")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if err := run(cfg, opts, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

// loadConfig reads the config file, if any, and applies the flags that were
// set on the command line.
func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = opts.addr
		case "engine":
			cfg.Codec.Engine = opts.engine
		case "protocol":
			cfg.Transmit.Protocol = opts.protocol
		case "volume":
			cfg.Transmit.Volume = opts.volume
		case "fallback":
			cfg.Receiver.FallbackAfter = opts.fallback
		case "history":
			cfg.History.Path = opts.history
		}
	})
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config, opts options, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics, shutdownMetrics, err := observe.InitProvider(ctx)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logger.Printf("Error shutting down metrics: %v\n", err)
		}
	}()

	codec, err := sonic.NewCodec(ctx, sonic.CodecConfig{
		Engine:          cfg.Codec.Engine,
		SampleRate:      cfg.Codec.SampleRate,
		SamplesPerFrame: cfg.Codec.SamplesPerFrame,
		Metrics:         metrics,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("create codec: %w", err)
	}
	defer codec.Close()

	// Validated by config.Validate.
	protocol, _ := engines.ParseProtocol(cfg.Transmit.Protocol)

	device := portaudio.New(logger)
	transport := sonic.NewTransport(codec, device, device, sonic.TransportConfig{
		SampleRate:      cfg.Capture.SampleRate,
		FramesPerBuffer: cfg.Capture.FramesPerBuffer,
		MaxBuffered:     cfg.Capture.MaxBuffered,
		EchoGuard:       cfg.Capture.EchoGuard,
		Metrics:         metrics,
	}, logger)

	serverCfg := sonic.ServerConfig{
		Addr:     cfg.Server.Addr,
		Sender:   transport,
		Protocol: protocol,
		Volume:   cfg.Transmit.Volume,
		Metrics:  metrics,
	}
	receiverCfg := session.ReceiverConfig{
		FallbackAfter:   cfg.Receiver.FallbackAfter,
		LocationTimeout: cfg.Receiver.LocationTimeout,
		DedupWindow:     cfg.Receiver.DedupWindow,
		Similarity:      cfg.Receiver.Similarity,
		Metrics:         metrics,
		Logger:          logger,
	}
	if loc := cfg.Receiver.Location; loc != nil {
		receiverCfg.Location = staticLocation(*loc)
	}
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		serverCfg.History = store
		receiverCfg.Recorder = store
	}

	relay := sonic.New(serverCfg, logger)
	beacon := session.NewBeacon(transport, cfg.Transmit.Interval, logger)
	receiver := session.NewReceiver(transport, receiverCfg)
	receiver.OnReport(func(r session.Report) {
		logger.Printf("received %s report: %s\n", r.Kind, r.Display)
		beacon.Ack()
		relay.Broadcast(sonic.ResponseFromEntry(r.Entry()))
	})

	if opts.listen {
		if err := receiver.Start(ctx); err != nil {
			return fmt.Errorf("start listening: %w", err)
		}
		defer func() {
			if err := receiver.Stop(); err != nil {
				logger.Printf("Error stopping receiver: %v\n", err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(relay.Start)
	g.Go(func() error {
		<-gctx.Done()
		return relay.Stop()
	})

	message := opts.beacon
	if opts.emergency {
		message = session.EmergencyMessage(toLocation(cfg.Receiver.Location))
	}
	if message != "" {
		g.Go(func() error {
			plays, err := beacon.Transmit(gctx, message, protocol, cfg.Transmit.Volume)
			logger.Printf("beacon %q stopped after %d plays\n", message, plays)
			if err != nil && gctx.Err() == nil {
				return fmt.Errorf("beacon: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-sig:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	return g.Wait()
}

func toLocation(loc *config.LocationConfig) *session.Location {
	if loc == nil {
		return nil
	}
	return &session.Location{Lat: loc.Lat, Lng: loc.Lng}
}

func staticLocation(loc config.LocationConfig) session.LocationFunc {
	return func(context.Context) (session.Location, error) {
		return session.Location{Lat: loc.Lat, Lng: loc.Lng}, nil
	}
}
