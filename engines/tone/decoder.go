package tone

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/agnivade/sonic_transport/engines"
)

const (
	// markerRatio is how much louder the keyed bin of a marker pair must be
	// than its neighbour.
	markerRatio = 3.0

	// windowsPerFrame is the analysis overlap.
	windowsPerFrame = 8

	// minMarkerRun is the number of consecutive analysis windows (four frames)
	// a marker has to be seen in.
	minMarkerRun = 4 * windowsPerFrame

	// searchHops bounds how far from the estimated data start, in windows,
	// the decoder looks for the real one.
	searchHops = windowsPerFrame
)

// window holds the magnitude of every protocol bin for one analysis window.
type window struct {
	pos  int
	mags []float32
}

// group tracks the start marker of all protocols sharing a tone band.
type group struct {
	fs        int
	protocols []engines.Protocol
	run       int
	lastPass  int
}

type pendingStart struct {
	group    *group
	estimate int
}

type candidateState int

const (
	candidateUnknown candidateState = iota
	candidateWaiting
	candidateRejected
)

type candidateKey struct {
	pos      int
	protocol engines.Protocol
}

type candidate struct {
	state  candidateState
	length int
}

// Decoder implements engines.Decoder. It analyses every window of the buffer
// once, follows start markers per tone band and decodes a transmission as soon
// as its header, payload and half of its end marker have been seen.
type Decoder struct {
	params   engines.Parameters
	winLen   int
	hop      int
	frameLen float64
	binIdx   []int
	groups   []*group

	// base is the stream position of buf[0]; next is the position of the
	// next window to analyse. Positions are multiples of hop.
	base    int
	next    int
	windows []window
	pending []pendingStart
	cache   map[candidateKey]candidate
	scratch []float64
	freed   bool
}

func newDecoder(params engines.Parameters) *Decoder {
	rate := params.SampleRateIn
	winLen := int(math.Round(params.FrameLength(rate)))
	d := &Decoder{
		params:   params,
		winLen:   winLen,
		hop:      max(1, winLen/windowsPerFrame),
		frameLen: params.FrameLength(rate),
		cache:    make(map[candidateKey]candidate),
		scratch:  make([]float64, winLen),
	}

	nBins := 0
	for _, p := range engines.Protocols() {
		nBins = max(nBins, p.MaxBin()+1)
	}
	d.binIdx = make([]int, nBins)
	for b := range d.binIdx {
		d.binIdx[b] = int(math.Round(params.BinFrequency(b) * float64(winLen) / float64(rate)))
	}

	for _, p := range engines.Protocols() {
		if d.binIdx[p.MaxBin()] >= winLen/2 {
			continue
		}
		var g *group
		for _, existing := range d.groups {
			if existing.fs == p.FreqStart() {
				g = existing
				break
			}
		}
		if g == nil {
			g = &group{fs: p.FreqStart()}
			d.groups = append(d.groups, g)
		}
		g.protocols = append(g.protocols, p)
	}
	return d
}

// Decode analyses the new part of buf and returns the first complete payload.
func (d *Decoder) Decode(buf []int8) ([]byte, error) {
	if d.freed {
		return nil, errFreed
	}

	end := d.base + len(buf)
	added := false
	for d.next+d.winLen <= end {
		off := d.next - d.base
		w := d.analyze(buf[off : off+d.winLen])
		w.pos = d.next
		d.windows = append(d.windows, w)
		d.track(w)
		d.next += d.hop
		added = true
	}
	if !added {
		return nil, nil
	}
	return d.search(), nil
}

// Discard drops the analysis of the first n samples.
func (d *Decoder) Discard(n int) {
	if n <= 0 {
		return
	}
	d.base += n

	i := 0
	for i < len(d.windows) && d.windows[i].pos < d.base {
		i++
	}
	d.windows = d.windows[i:]
	if d.next < d.base {
		d.next = (d.base + d.hop - 1) / d.hop * d.hop
	}

	for key := range d.cache {
		if key.pos < d.base {
			delete(d.cache, key)
		}
	}
}

// Reset forgets everything seen so far.
func (d *Decoder) Reset() {
	d.base = 0
	d.next = 0
	d.windows = nil
	d.pending = nil
	clear(d.cache)
	for _, g := range d.groups {
		g.run = 0
		g.lastPass = 0
	}
}

// Free releases the decoder.
func (d *Decoder) Free() error {
	if d.freed {
		return errFreed
	}
	d.Reset()
	d.freed = true
	return nil
}

func (d *Decoder) analyze(samples []int8) window {
	for i, s := range samples {
		d.scratch[i] = float64(s)
	}
	spectrum := fft.FFTReal(d.scratch)

	mags := make([]float32, len(d.binIdx))
	for b, idx := range d.binIdx {
		if idx < len(spectrum)/2 {
			mags[b] = float32(cmplx.Abs(spectrum[idx]))
		}
	}
	return window{mags: mags}
}

// track updates the start marker run of every band. A run that ends after
// enough windows becomes a pending start estimated at the end of its last
// window.
func (d *Decoder) track(w window) {
	for _, g := range d.groups {
		if markerPass(w.mags, g.fs, false) {
			g.run++
			g.lastPass = w.pos
			continue
		}
		if g.run >= minMarkerRun {
			d.pending = append(d.pending, pendingStart{group: g, estimate: g.lastPass + d.winLen})
		}
		g.run = 0
	}
}

func markerPass(mags []float32, fs int, end bool) bool {
	for i := 0; i < engines.MarkerFrames; i++ {
		lo := fs + 2*i
		keyed := fs + markerBin(i, end)
		other := lo
		if keyed == lo {
			other = lo + 1
		}
		if !(mags[keyed] > markerRatio*mags[other]) {
			return false
		}
	}
	return true
}

func (d *Decoder) search() []byte {
	for i := 0; i < len(d.pending); {
		payload, exhausted := d.tryStart(d.pending[i])
		if payload != nil {
			return payload
		}
		if exhausted {
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			continue
		}
		i++
	}
	return nil
}

// tryStart tries the data start positions around the estimate, closest
// first, for every protocol of the band.
func (d *Decoder) tryStart(ps pendingStart) ([]byte, bool) {
	exhausted := true
	for k := 0; k <= 2*searchHops; k++ {
		j := (k + 1) / 2
		if k%2 == 1 {
			j = -j
		}
		pos := ps.estimate + j*d.hop
		for _, p := range ps.group.protocols {
			payload, final := d.tryCandidate(pos, p)
			if payload != nil {
				return payload, true
			}
			if !final {
				exhausted = false
			}
		}
	}
	return nil, exhausted
}

// tryCandidate returns the payload of the transmission starting at pos, or
// reports whether the candidate is settled (rejected) or still waiting for
// samples.
func (d *Decoder) tryCandidate(pos int, p engines.Protocol) ([]byte, bool) {
	key := candidateKey{pos: pos, protocol: p}
	c := d.cache[key]
	switch c.state {
	case candidateRejected:
		return nil, true
	case candidateUnknown:
		length, ok, ready := d.readHeader(pos, p)
		if !ready {
			return nil, false
		}
		if !ok {
			d.cache[key] = candidate{state: candidateRejected}
			return nil, true
		}
		c = candidate{state: candidateWaiting, length: length}
		d.cache[key] = c
	}

	payload, ok, ready := d.readBody(pos, p, c.length)
	if !ready {
		return nil, false
	}
	if !ok {
		d.cache[key] = candidate{state: candidateRejected}
		return nil, true
	}
	return payload, true
}

func (d *Decoder) readHeader(pos int, p engines.Protocol) (int, bool, bool) {
	raw, ok, ready := d.readSymbols(pos, p, p.HeaderTxCount())
	if !ready || !ok {
		return 0, ok, ready
	}
	hdr, err := rsDecode(raw[:engines.HeaderLength], engines.HeaderLength-1)
	if err != nil {
		return 0, false, true
	}
	length := int(hdr[0])
	if length < 1 || length > engines.MaxPayloadLength {
		return 0, false, true
	}
	return length, true, true
}

func (d *Decoder) readBody(pos int, p engines.Protocol, length int) ([]byte, bool, bool) {
	nTx := p.TxCount(length)
	endStart := float64(pos) + float64(nTx)*d.symbolLen(p)
	hop := float64(d.hop)

	count, ok, ready := d.countMarker(endStart+hop, endStart+engines.MarkerFrames/2*d.frameLen-hop, p.FreqStart())
	if !ready {
		return nil, false, false
	}
	if !ok || count < minMarkerRun {
		return nil, false, true
	}

	raw, ok, ready := d.readSymbols(pos, p, nTx)
	if !ready || !ok {
		return nil, ok, ready
	}
	ecc := engines.ECCLength(length)
	payload, err := rsDecode(raw[engines.HeaderLength:engines.HeaderLength+length+ecc], ecc)
	if err != nil {
		return nil, false, true
	}
	return payload, true, true
}

func (d *Decoder) symbolLen(p engines.Protocol) float64 {
	return float64(p.FramesPerTx()) * d.frameLen
}

// readSymbols decodes the first n symbols of the transmission at pos. Each
// symbol averages the windows that lie inside it, one hop away from its
// edges, and takes the loudest tone of every sub-band.
func (d *Decoder) readSymbols(pos int, p engines.Protocol, n int) ([]byte, bool, bool) {
	span := d.symbolLen(p)
	hop := float64(d.hop)
	fs := p.FreqStart()

	out := make([]byte, 0, n*p.BytesPerTx())
	sum := make([]float32, len(d.binIdx))
	for k := 0; k < n; k++ {
		start := float64(pos) + float64(k)*span
		first, last, ok, ready := d.windowRange(start+hop, start+span-hop)
		if !ready || !ok {
			return nil, ok, ready
		}
		clear(sum)
		for i := first; i <= last; i++ {
			for b, m := range d.windows[i].mags {
				sum[b] += m
			}
		}
		for slot := 0; slot < p.Tones(); slot += 2 {
			lo := loudest(sum, fs+16*slot)
			hi := loudest(sum, fs+16*(slot+1))
			out = append(out, byte(lo|hi<<4))
		}
	}
	return out, true, true
}

func (d *Decoder) countMarker(lo, hi float64, fs int) (int, bool, bool) {
	first, last, ok, ready := d.windowRange(lo, hi)
	if !ready || !ok {
		return 0, ok, ready
	}
	count := 0
	for i := first; i <= last; i++ {
		if markerPass(d.windows[i].mags, fs, true) {
			count++
		}
	}
	return count, true, true
}

// windowRange returns the indexes of the windows lying entirely within
// [lo, hi]. ok is false when some of them were discarded; ready is false
// when some of them were not analysed yet.
func (d *Decoder) windowRange(lo, hi float64) (int, int, bool, bool) {
	hop := float64(d.hop)
	firstPos := int(math.Ceil(lo/hop)) * d.hop
	lastPos := int(math.Floor((hi-float64(d.winLen))/hop)) * d.hop
	if lastPos < firstPos {
		return 0, 0, false, true
	}
	if d.next <= lastPos {
		return 0, 0, true, false
	}
	if len(d.windows) == 0 || d.windows[0].pos > firstPos {
		return 0, 0, false, true
	}
	first := (firstPos - d.windows[0].pos) / d.hop
	last := (lastPos - d.windows[0].pos) / d.hop
	return first, last, true, true
}

func loudest(mags []float32, from int) int {
	best := 0
	for v := 1; v < 16; v++ {
		if mags[from+v] > mags[from+best] {
			best = v
		}
	}
	return best
}
