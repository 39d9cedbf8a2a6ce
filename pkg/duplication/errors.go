package duplication

import (
	"errors"
	"fmt"
)

// Errors returned by Manager capture calls. Driver result codes never escape
// the Manager; they are translated into one of these.
var (
	// ErrAccessDenied means the output could not be duplicated, typically
	// because protected or exclusive fullscreen content is on screen. The
	// session is kept; back off and keep calling.
	ErrAccessDenied = errors.New("duplication: access denied")

	// ErrAccessLost means the duplication was invalidated, e.g. by a mode
	// change. The manager has already tried to re-acquire.
	ErrAccessLost = errors.New("duplication: access lost")

	// ErrRefreshFailure means re-acquiring the output after a failure did
	// not succeed. Every later call retries acquisition from scratch.
	ErrRefreshFailure = errors.New("duplication: refresh failure")

	// ErrTimeout means no new frame arrived within the configured timeout.
	ErrTimeout = errors.New("duplication: timeout waiting for frame")

	// ErrNoDuplicatedOutput is returned by New and SetCaptureSourceIndex
	// when no output matches the capture source index.
	ErrNoDuplicatedOutput = errors.New("duplication: failed to get outputs")

	// ErrNotSupported is returned on platforms without desktop duplication.
	ErrNotSupported = errors.New("duplication: desktop duplication not supported on this platform")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("duplication: manager closed")
)

// FailError is a generic capture failure carrying a static reason.
type FailError struct {
	Reason string
}

func (e *FailError) Error() string {
	return "duplication: " + e.Reason
}

// HRESULT is a COM result code returned by the display driver.
type HRESULT uint32

// Driver result codes the capture pipeline distinguishes.
const (
	HRNotFound      HRESULT = 0x887A0002 // DXGI_ERROR_NOT_FOUND
	HRAccessLost    HRESULT = 0x887A0026 // DXGI_ERROR_ACCESS_LOST
	HRWaitTimeout   HRESULT = 0x887A0027 // DXGI_ERROR_WAIT_TIMEOUT
	HRInvalidCall   HRESULT = 0x887A0001 // DXGI_ERROR_INVALID_CALL
	HRDeviceRemoved HRESULT = 0x887A0005 // DXGI_ERROR_DEVICE_REMOVED
	HRAccessDenied  HRESULT = 0x80070005 // E_ACCESSDENIED
	HRUnsupported   HRESULT = 0x887A0004 // DXGI_ERROR_UNSUPPORTED
)

// Failed reports whether hr is a failure code.
func (hr HRESULT) Failed() bool { return int32(hr) < 0 }

func (hr HRESULT) Error() string {
	switch hr {
	case HRNotFound:
		return "DXGI_ERROR_NOT_FOUND"
	case HRAccessLost:
		return "DXGI_ERROR_ACCESS_LOST"
	case HRWaitTimeout:
		return "DXGI_ERROR_WAIT_TIMEOUT"
	case HRInvalidCall:
		return "DXGI_ERROR_INVALID_CALL"
	case HRDeviceRemoved:
		return "DXGI_ERROR_DEVICE_REMOVED"
	case HRAccessDenied:
		return "E_ACCESSDENIED"
	case HRUnsupported:
		return "DXGI_ERROR_UNSUPPORTED"
	}
	return fmt.Sprintf("HRESULT 0x%08X", uint32(hr))
}
