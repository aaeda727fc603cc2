//go:build !ggwave || !cgo

// Package ggwave binds the native libggwave library. Build with -tags ggwave
// and the library installed to enable it.
package ggwave

import (
	"fmt"

	"github.com/agnivade/sonic_transport/engines"
)

// Available reports whether the native engine is compiled in.
const Available = false

// Engine is not available in this build.
type Engine struct{}

// New reports that the native engine was not compiled in.
func New() (*Engine, error) {
	return nil, fmt.Errorf("ggwave: %w: rebuild with -tags ggwave", engines.ErrUnavailable)
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return "ggwave"
}

// NewEncoder always fails in this build.
func (e *Engine) NewEncoder(engines.Parameters) (engines.Encoder, error) {
	return nil, engines.ErrUnavailable
}

// NewDecoder always fails in this build.
func (e *Engine) NewDecoder(engines.Parameters) (engines.Decoder, error) {
	return nil, engines.ErrUnavailable
}
