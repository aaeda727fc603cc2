package engines

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Protocol selects the tone band and symbol speed of a transmission.
type Protocol int

const (
	AudibleNormal Protocol = iota
	AudibleFast
	AudibleFastest
	UltrasoundNormal
	UltrasoundFast
	UltrasoundFastest
	DTNormal
	DTFast
	DTFastest
)

const (
	// DefaultCovertProtocol is used for reports that should not be heard.
	DefaultCovertProtocol = UltrasoundNormal

	// DefaultDemoProtocol is used for audible demonstrations and tests.
	DefaultDemoProtocol = AudibleFast
)

const (
	// MarkerFrames is the length of the start and end markers in frames.
	MarkerFrames = 16

	// MarkerBins is the number of frequency bins a marker occupies.
	MarkerBins = 2 * MarkerFrames

	// HeaderLength is the length of the encoded header: one length byte
	// followed by two correction bytes.
	HeaderLength = 3
)

type protocolInfo struct {
	name        string
	freqStart   int
	framesPerTx int
	bytesPerTx  int
}

var protocols = [...]protocolInfo{
	AudibleNormal:     {"audible-normal", 40, 9, 3},
	AudibleFast:       {"audible-fast", 40, 6, 3},
	AudibleFastest:    {"audible-fastest", 40, 3, 3},
	UltrasoundNormal:  {"ultrasonic-normal", 320, 9, 3},
	UltrasoundFast:    {"ultrasonic-fast", 320, 6, 3},
	UltrasoundFastest: {"ultrasonic-fastest", 320, 3, 3},
	DTNormal:          {"dt-normal", 24, 9, 1},
	DTFast:            {"dt-fast", 24, 6, 1},
	DTFastest:         {"dt-fastest", 24, 3, 1},
}

// Protocols returns every known protocol in table order.
func Protocols() []Protocol {
	out := make([]Protocol, len(protocols))
	for i := range protocols {
		out[i] = Protocol(i)
	}
	return out
}

// ParseProtocol returns the protocol with the given name.
func ParseProtocol(name string) (Protocol, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, p := range protocols {
		if p.name == name {
			return Protocol(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
}

// IsValid reports whether p is part of the protocol table.
func (p Protocol) IsValid() bool {
	return p >= 0 && int(p) < len(protocols)
}

func (p Protocol) String() string {
	if !p.IsValid() {
		return fmt.Sprintf("protocol(%d)", int(p))
	}
	return protocols[p].name
}

// FreqStart returns the first frequency bin used by the protocol.
func (p Protocol) FreqStart() int { return protocols[p].freqStart }

// FramesPerTx returns how many frames every symbol is held for.
func (p Protocol) FramesPerTx() int { return protocols[p].framesPerTx }

// BytesPerTx returns how many bytes one symbol carries.
func (p Protocol) BytesPerTx() int { return protocols[p].bytesPerTx }

// Tones returns the number of simultaneous data tones (one per nibble).
func (p Protocol) Tones() int { return 2 * protocols[p].bytesPerTx }

// MaxBin returns the highest frequency bin the protocol can use.
func (p Protocol) MaxBin() int {
	return p.FreqStart() + 16*p.Tones() - 1
}

// ECCLength returns the number of Reed-Solomon bytes protecting a payload of
// the given length.
func ECCLength(length int) int {
	if length < 4 {
		return 2
	}
	return max(4, 2*(length/5))
}

// TxCount returns the number of symbols needed for a payload of the given
// length, header included.
func (p Protocol) TxCount(length int) int {
	total := HeaderLength + length + ECCLength(length)
	bpt := p.BytesPerTx()
	return (total + bpt - 1) / bpt
}

// HeaderTxCount returns the number of symbols carrying the header.
func (p Protocol) HeaderTxCount() int {
	bpt := p.BytesPerTx()
	return (HeaderLength + bpt - 1) / bpt
}

// Frames returns the total length of a transmission in frames.
func (p Protocol) Frames(length int) int {
	return 2*MarkerFrames + p.TxCount(length)*p.FramesPerTx()
}

// Airtime returns how long a payload of the given length takes to play.
func Airtime(params Parameters, p Protocol, length int) time.Duration {
	params = params.WithDefaults()
	samples := float64(p.Frames(length)) * float64(params.SamplesPerFrame)
	secs := samples / BaseSampleRate
	return time.Duration(math.Round(secs * float64(time.Second)))
}
