package serial

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)

// Error kinds. A *PortError matches exactly one of these with errors.Is.
var (
	ErrConfig = errors.New("serial configuration error")
	ErrOpen   = errors.New("serial open error")
	ErrIO     = errors.New("serial I/O error")
)

// PortError describes a failed port operation.
type PortError struct {
	Op   string // "open", "configure", "write", "read"
	Path string
	Kind error // one of ErrConfig, ErrOpen, ErrIO
	Err  error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PortError) Unwrap() error { return e.Err }

// Is reports whether target is the kind of this error.
func (e *PortError) Is(target error) bool {
	return target == e.Kind
}

func configError(op, path string, err error) error {
	return &PortError{Op: op, Path: path, Kind: ErrConfig, Err: err}
}

func openError(path string, err error) error {
	return &PortError{Op: "open", Path: path, Kind: ErrOpen, Err: err}
}

func ioError(op, path string, err error) error {
	return &PortError{Op: op, Path: path, Kind: ErrIO, Err: err}
}
