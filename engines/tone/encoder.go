package tone

import (
	"errors"
	"fmt"
	"math"

	"github.com/agnivade/sonic_transport/engines"
)

var errFreed = errors.New("tone: instance already freed")

// Encoder implements engines.Encoder.
type Encoder struct {
	params engines.Parameters
	freed  bool
}

// Encode renders payload as a complete transmission.
func (e *Encoder) Encode(payload []byte, protocol engines.Protocol, volume int) ([]int8, error) {
	if e.freed {
		return nil, errFreed
	}
	if !protocol.IsValid() {
		return nil, fmt.Errorf("tone: %w: %d", engines.ErrUnknownProtocol, int(protocol))
	}
	if len(payload) == 0 || len(payload) > engines.MaxPayloadLength {
		return nil, fmt.Errorf("tone: %w: %d bytes", engines.ErrPayloadSize, len(payload))
	}
	if volume < 0 || volume > 100 {
		return nil, fmt.Errorf("tone: %w: %d", engines.ErrVolume, volume)
	}
	rate := e.params.SampleRateOut
	if 2*e.params.BinFrequency(protocol.MaxBin()) >= float64(rate) {
		return nil, fmt.Errorf("tone: %s needs a sample rate above %d", protocol, rate)
	}

	frames := e.frames(payload, protocol)
	frameLen := e.params.FrameLength(rate)
	out := make([]int8, int(math.Round(float64(len(frames))*frameLen)))

	gain := float64(volume) / 100
	for f, bins := range frames {
		start := int(math.Round(float64(f) * frameLen))
		end := int(math.Round(float64(f+1) * frameLen))
		amp := gain / float64(len(bins))
		for n := start; n < end && n < len(out); n++ {
			var v float64
			for _, b := range bins {
				v += math.Sin(2 * math.Pi * e.params.BinFrequency(b) * float64(n) / float64(rate))
			}
			out[n] = quantize(amp * v)
		}
	}
	return out, nil
}

// frames returns the active tone bins of every frame of the transmission.
func (e *Encoder) frames(payload []byte, protocol engines.Protocol) [][]int {
	fs := protocol.FreqStart()
	data := frameData(payload, protocol)

	out := make([][]int, 0, protocol.Frames(len(payload)))
	start := markerBins(fs, false)
	for i := 0; i < engines.MarkerFrames; i++ {
		out = append(out, start)
	}
	bpt := protocol.BytesPerTx()
	for k := 0; k < len(data)/bpt; k++ {
		bins := dataBins(fs, data[k*bpt:(k+1)*bpt])
		for i := 0; i < protocol.FramesPerTx(); i++ {
			out = append(out, bins)
		}
	}
	end := markerBins(fs, true)
	for i := 0; i < engines.MarkerFrames; i++ {
		out = append(out, end)
	}
	return out
}

// Free releases the encoder.
func (e *Encoder) Free() error {
	if e.freed {
		return errFreed
	}
	e.freed = true
	return nil
}

// frameData returns the header and the protected payload, zero padded to a
// whole number of symbols.
func frameData(payload []byte, protocol engines.Protocol) []byte {
	header := rsEncode([]byte{byte(len(payload))}, engines.HeaderLength-1)
	body := rsEncode(payload, engines.ECCLength(len(payload)))

	data := make([]byte, protocol.TxCount(len(payload))*protocol.BytesPerTx())
	copy(data, header)
	copy(data[len(header):], body)
	return data
}

// markerBins returns the tone of every marker pair. Even pairs use the lower
// bin in the start marker, odd pairs the upper one; the end marker is the
// inverse.
func markerBins(fs int, end bool) []int {
	bins := make([]int, engines.MarkerFrames)
	for i := range bins {
		bins[i] = fs + markerBin(i, end)
	}
	return bins
}

func markerBin(pair int, end bool) int {
	hi := pair%2 == 1
	if end {
		hi = !hi
	}
	if hi {
		return 2*pair + 1
	}
	return 2 * pair
}

// dataBins maps each nibble of chunk, low nibble first, to a tone in its own
// 16-bin sub-band.
func dataBins(fs int, chunk []byte) []int {
	bins := make([]int, 0, 2*len(chunk))
	for i, c := range chunk {
		bins = append(bins,
			fs+16*(2*i)+int(c&0x0f),
			fs+16*(2*i+1)+int(c>>4),
		)
	}
	return bins
}

func quantize(x float64) int8 {
	v := math.Round(x * 127)
	if v > 127 {
		v = 127
	} else if v < -127 {
		v = -127
	}
	return int8(v)
}
