package sonic_transport

import (
	"errors"

	"github.com/agnivade/sonic_transport/devices"
)

var (
	// ErrEngineNotReady is returned when the codec engine has not been loaded.
	ErrEngineNotReady = errors.New("codec engine not ready")

	// ErrPermissionDenied is returned when microphone access is refused.
	ErrPermissionDenied = devices.ErrPermissionDenied

	// ErrDeviceNotFound is returned when no usable audio device exists.
	ErrDeviceNotFound = devices.ErrDeviceNotFound

	// ErrDecodeTransient marks an engine decode failure. It is logged and
	// counted inside the decode loop and never surfaces from ProcessSamples.
	ErrDecodeTransient = errors.New("transient decode failure")

	// ErrDisposed is returned by every operation on a disposed instance.
	ErrDisposed = errors.New("instance disposed")

	// ErrAlreadyListening is returned by StartListening while a session is
	// active.
	ErrAlreadyListening = errors.New("already listening")

	// ErrEmptyMessage is returned when encoding an empty message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned for messages above MaxMessageLength bytes.
	ErrMessageTooLong = errors.New("message too long")

	// ErrInvalidVolume is returned for volumes outside 0..100.
	ErrInvalidVolume = errors.New("volume must be between 0 and 100")
)
