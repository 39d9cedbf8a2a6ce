//go:build !windows

package duplication

func platformDriver() (Driver, Windowing, error) {
	return nil, nil, ErrNotSupported
}

// PlatformDriver returns the display driver and windowing layer for the
// current OS.
func PlatformDriver() (Driver, Windowing, error) {
	return platformDriver()
}
