package portaudio

import (
	"errors"
	"testing"

	pa "github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"

	"github.com/agnivade/sonic_transport/devices"
)

func TestMapError(t *testing.T) {
	other := errors.New("something else")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "invalid device", err: pa.InvalidDevice, want: devices.ErrDeviceNotFound},
		{name: "device unavailable", err: pa.DeviceUnavailable, want: devices.ErrPermissionDenied},
		{name: "unrelated portaudio error", err: pa.InvalidSampleRate, want: pa.InvalidSampleRate},
		{name: "foreign error", err: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}
}
