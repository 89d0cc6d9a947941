package audio

import "errors"

// Policy outcomes. These are legitimate results of arbitration, not bugs.
var (
	ErrFocusDenied           = errors.New("audio focus denied")
	ErrConcedeIncomingStream = errors.New("incoming stream concedes focus")
)

// Resource-not-ready conditions. The caller may retry after the resource
// (HAL adapter, zone, pipe) becomes available.
var (
	ErrInvalidHandle = errors.New("invalid HAL handle")
	ErrNotStarted    = errors.New("stream not started")
	ErrNullPointer   = errors.New("required collaborator is nil")
)

// Internal short-circuit outcomes; never surfaced to external callers as
// failures.
var (
	ErrNeedNotSwitchDevice = errors.New("no device switch needed")
)

// Contract errors, rejected at the boundary before touching any state.
var (
	ErrInvalidParam = errors.New("invalid parameter")
	ErrUnknown      = errors.New("unknown internal error")
)

// Device exceptions.
var (
	ErrBluetoothActivation = errors.New("bluetooth device activation failed")
	ErrDeviceNotFound      = errors.New("device not found")
)
