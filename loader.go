package sonic_transport

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/agnivade/sonic_transport/engines"
	"github.com/agnivade/sonic_transport/engines/ggwave"
	"github.com/agnivade/sonic_transport/engines/tone"
)

// DefaultEngine is the engine used when none is configured: the native
// ggwave binding when it is compiled in, the pure-Go tone engine otherwise.
// The tone engine follows the ggwave frame layout but is not bit-exact with
// libggwave, so peers must run the same engine.
var DefaultEngine = defaultEngine()

func defaultEngine() string {
	if ggwave.Available {
		return "ggwave"
	}
	return "tone"
}

// EngineFactory creates an engine. It may be slow; the loader calls it at most
// once at a time per name.
type EngineFactory func(ctx context.Context) (engines.Engine, error)

// engineLoader is shared by the whole process. The first caller loads an
// engine, concurrent callers wait for the same load, a loaded engine is kept
// for the life of the process and a failed load is retried by the next caller.
var engineLoader = newLoader()

type loader struct {
	group     singleflight.Group
	mu        sync.Mutex
	factories map[string]EngineFactory
	loaded    map[string]engines.Engine
}

func newLoader() *loader {
	l := &loader{
		factories: make(map[string]EngineFactory),
		loaded:    make(map[string]engines.Engine),
	}
	l.factories["tone"] = func(context.Context) (engines.Engine, error) {
		return tone.New(), nil
	}
	l.factories["ggwave"] = func(context.Context) (engines.Engine, error) {
		e, err := ggwave.New()
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return l
}

// RegisterEngine makes an engine factory available under name. Registering an
// existing name replaces the factory but not an engine that was already
// loaded.
func RegisterEngine(name string, factory EngineFactory) {
	engineLoader.mu.Lock()
	defer engineLoader.mu.Unlock()
	engineLoader.factories[name] = factory
}

// LoadEngine returns the engine registered under name, loading it if needed.
func LoadEngine(ctx context.Context, name string) (engines.Engine, error) {
	return engineLoader.load(ctx, name)
}

func (l *loader) load(ctx context.Context, name string) (engines.Engine, error) {
	if name == "" {
		name = DefaultEngine
	}

	l.mu.Lock()
	if e, ok := l.loaded[name]; ok {
		l.mu.Unlock()
		return e, nil
	}
	factory, ok := l.factories[name]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine %q", ErrEngineNotReady, name)
	}

	ch := l.group.DoChan(name, func() (any, error) {
		// Shared by every waiting caller, so no single caller's context.
		e, err := factory(context.Background())
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.loaded[name] = e
		l.mu.Unlock()
		return e, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: load %s: %w", ErrEngineNotReady, name, res.Err)
		}
		return res.Val.(engines.Engine), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
