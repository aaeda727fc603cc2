package tone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		msg     []byte
		nsym    int
		corrupt []int
	}{
		{
			name: "clean header",
			msg:  []byte{12},
			nsym: 2,
		},
		{
			name:    "header with one error",
			msg:     []byte{12},
			nsym:    2,
			corrupt: []int{0},
		},
		{
			name:    "header parity error",
			msg:     []byte{120},
			nsym:    2,
			corrupt: []int{2},
		},
		{
			name:    "payload with two errors",
			msg:     []byte("signal check"),
			nsym:    4,
			corrupt: []int{1, 7},
		},
		{
			name:    "payload with maximum errors",
			msg:     []byte("EMERGENCY:52.37021,4.89517"),
			nsym:    10,
			corrupt: []int{0, 5, 13, 21, 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := rsEncode(tt.msg, tt.nsym)
			require.Len(t, code, len(tt.msg)+tt.nsym)
			assert.Equal(t, tt.msg, code[:len(tt.msg)])

			for _, i := range tt.corrupt {
				code[i] ^= 0x5a
			}

			got, err := rsDecode(code, tt.nsym)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestRSDecodeRejectsShortMessage(t *testing.T) {
	_, err := rsDecode([]byte{1, 2}, 2)
	assert.Error(t, err)
}

func TestGaloisField(t *testing.T) {
	for a := 1; a < 256; a++ {
		x := byte(a)
		assert.Equal(t, byte(1), gfMul(x, gfInverse(x)), "inverse of %d", a)
		assert.Equal(t, x, gfDiv(gfMul(x, 7), 7), "div of %d", a)
	}
	assert.Equal(t, byte(0), gfMul(0, 9))
	assert.Equal(t, byte(1), gfPow(2, 255))
}
