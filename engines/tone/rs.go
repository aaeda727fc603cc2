package tone

import (
	"errors"
)

// Reed-Solomon over GF(2^8) with primitive polynomial 0x11d, generator 2 and
// first consecutive root 0.

var (
	errTooManyErrors = errors.New("rs: too many errors")
	errCorrupt       = errors.New("rs: message could not be corrected")
)

const gfPrim = 0x11d

var (
	gfExp [512]byte
	gfLog [256]int
)

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		gfExp[i] = byte(x)
		gfLog[x] = i
		x <<= 1
		if x&0x100 != 0 {
			x ^= gfPrim
		}
	}
	for i := 255; i < 512; i++ {
		gfExp[i] = gfExp[i-255]
	}
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExp[gfLog[a]+gfLog[b]]
}

func gfDiv(a, b byte) byte {
	if b == 0 {
		panic("rs: division by zero")
	}
	if a == 0 {
		return 0
	}
	return gfExp[(gfLog[a]+255-gfLog[b])%255]
}

func gfPow(x byte, p int) byte {
	e := (gfLog[x] * p) % 255
	if e < 0 {
		e += 255
	}
	return gfExp[e]
}

func gfInverse(x byte) byte {
	return gfExp[255-gfLog[x]]
}

func polyScale(p []byte, x byte) []byte {
	out := make([]byte, len(p))
	for i, c := range p {
		out[i] = gfMul(c, x)
	}
	return out
}

func polyAdd(p, q []byte) []byte {
	n := max(len(p), len(q))
	out := make([]byte, n)
	for i, c := range p {
		out[i+n-len(p)] = c
	}
	for i, c := range q {
		out[i+n-len(q)] ^= c
	}
	return out
}

func polyMul(p, q []byte) []byte {
	out := make([]byte, len(p)+len(q)-1)
	for j, qc := range q {
		for i, pc := range p {
			out[i+j] ^= gfMul(pc, qc)
		}
	}
	return out
}

func polyEval(p []byte, x byte) byte {
	y := p[0]
	for i := 1; i < len(p); i++ {
		y = gfMul(y, x) ^ p[i]
	}
	return y
}

func generatorPoly(nsym int) []byte {
	g := []byte{1}
	for i := 0; i < nsym; i++ {
		g = polyMul(g, []byte{1, gfPow(2, i)})
	}
	return g
}

// rsEncode returns msg followed by nsym parity bytes.
func rsEncode(msg []byte, nsym int) []byte {
	gen := generatorPoly(nsym)
	out := make([]byte, len(msg)+nsym)
	copy(out, msg)
	for i := range msg {
		coef := out[i]
		if coef == 0 {
			continue
		}
		for j := 1; j < len(gen); j++ {
			out[i+j] ^= gfMul(gen[j], coef)
		}
	}
	copy(out, msg)
	return out
}

func syndromes(msg []byte, nsym int) ([]byte, bool) {
	synd := make([]byte, nsym)
	clean := true
	for i := range synd {
		synd[i] = polyEval(msg, gfPow(2, i))
		if synd[i] != 0 {
			clean = false
		}
	}
	return synd, clean
}

// errorLocator runs Berlekamp-Massey on the syndromes.
func errorLocator(synd []byte, nsym int) ([]byte, error) {
	errLoc := []byte{1}
	oldLoc := []byte{1}
	for i := 0; i < nsym; i++ {
		delta := synd[i]
		for j := 1; j < len(errLoc) && i-j >= 0; j++ {
			delta ^= gfMul(errLoc[len(errLoc)-1-j], synd[i-j])
		}
		oldLoc = append(oldLoc, 0)
		if delta != 0 {
			if len(oldLoc) > len(errLoc) {
				newLoc := polyScale(oldLoc, delta)
				oldLoc = polyScale(errLoc, gfInverse(delta))
				errLoc = newLoc
			}
			errLoc = polyAdd(errLoc, polyScale(oldLoc, delta))
		}
	}
	for len(errLoc) > 0 && errLoc[0] == 0 {
		errLoc = errLoc[1:]
	}
	if len(errLoc) == 0 || (len(errLoc)-1)*2 > nsym {
		return nil, errTooManyErrors
	}
	return errLoc, nil
}

// errorPositions runs a Chien search over the reversed locator.
func errorPositions(errLocRev []byte, n int) ([]int, error) {
	nerr := len(errLocRev) - 1
	var pos []int
	for i := 0; i < n; i++ {
		if polyEval(errLocRev, gfPow(2, i)) == 0 {
			pos = append(pos, n-1-i)
		}
	}
	if len(pos) != nerr {
		return nil, errCorrupt
	}
	return pos, nil
}

// correctErrata applies Forney's algorithm. synd must carry a leading zero.
func correctErrata(msg, synd []byte, errPos []int) []byte {
	coefPos := make([]int, len(errPos))
	for i, p := range errPos {
		coefPos[i] = len(msg) - 1 - p
	}

	loc := []byte{1}
	for _, c := range coefPos {
		loc = polyMul(loc, polyAdd([]byte{1}, []byte{gfPow(2, c), 0}))
	}

	rev := make([]byte, len(synd))
	for i, s := range synd {
		rev[len(synd)-1-i] = s
	}
	prod := polyMul(rev, loc)
	// Error evaluator: the product modulo x^len(loc).
	eval := append([]byte(nil), prod[len(prod)-len(loc):]...)

	x := make([]byte, len(coefPos))
	for i, c := range coefPos {
		x[i] = gfPow(2, c)
	}

	e := make([]byte, len(msg))
	for i, xi := range x {
		xiInv := gfInverse(xi)
		prime := byte(1)
		for j, xj := range x {
			if j != i {
				prime = gfMul(prime, 1^gfMul(xiInv, xj))
			}
		}
		y := polyEval(eval, xiInv)
		y = gfMul(xi, y)
		e[errPos[i]] = gfDiv(y, prime)
	}
	return polyAdd(msg, e)
}

// rsDecode corrects up to nsym/2 byte errors in msg and returns the data part.
func rsDecode(msg []byte, nsym int) ([]byte, error) {
	if len(msg) <= nsym || len(msg) > 255 {
		return nil, errCorrupt
	}
	synd, clean := syndromes(msg, nsym)
	if clean {
		return append([]byte(nil), msg[:len(msg)-nsym]...), nil
	}

	errLoc, err := errorLocator(synd, nsym)
	if err != nil {
		return nil, err
	}
	rev := make([]byte, len(errLoc))
	for i, c := range errLoc {
		rev[len(errLoc)-1-i] = c
	}
	pos, err := errorPositions(rev, len(msg))
	if err != nil {
		return nil, err
	}

	padded := append([]byte{0}, synd...)
	fixed := correctErrata(msg, padded, pos)
	if _, clean := syndromes(fixed, nsym); !clean {
		return nil, errCorrupt
	}
	return fixed[:len(fixed)-nsym], nil
}
