// Package tone implements a pure Go multi-frequency FSK engine.
//
// A transmission is a start marker, a Reed-Solomon protected length header,
// the protected payload and an end marker. Every byte is sent as two nibbles
// and every nibble selects one of 16 tones in its own sub-band, so a symbol of
// n bytes plays 2n tones at once.
package tone

import (
	"fmt"

	"github.com/agnivade/sonic_transport/engines"
)

const engineName = "tone"

// Engine implements engines.Engine.
type Engine struct{}

// New returns the tone engine.
func New() *Engine {
	return &Engine{}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return engineName
}

// NewEncoder creates an encoder producing samples at params.SampleRateOut.
func (e *Engine) NewEncoder(params engines.Parameters) (engines.Encoder, error) {
	params = params.WithDefaults()
	return &Encoder{params: params}, nil
}

// NewDecoder creates a decoder for samples at params.SampleRateIn.
func (e *Engine) NewDecoder(params engines.Parameters) (engines.Decoder, error) {
	params = params.WithDefaults()
	d := newDecoder(params)
	if len(d.groups) == 0 {
		return nil, fmt.Errorf("tone: input rate %d too low for any protocol", params.SampleRateIn)
	}
	return d, nil
}
