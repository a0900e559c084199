package serial

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// reenumerationDelay is how long a reset device typically needs to come back
var reenumerationDelay = 2 * time.Second

// runUSBReset executes usbreset. It is a variable so tests can stub it.
var runUSBReset = func(ctx context.Context, usbPath string) ([]byte, error) {
	return exec.CommandContext(ctx, "usbreset", usbPath).CombinedOutput()
}

// lookPathUSBReset reports whether usbreset is installed
var lookPathUSBReset = func() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	return lookPathUSBReset()
}

// formatUSBPath builds the BBB/DDD argument usbreset expects
func formatUSBPath(bus, device string) string {
	return zeroPad(bus, 3) + "/" + zeroPad(device, 3)
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// ResetUSBDevice performs a USB-level reset of the device behind portPath.
// This can recover a modem that stopped answering without unplugging it.
// The node may come back under a different name; its InterfaceID does not
// change.
//
// Requirements:
// - usbreset utility must be installed (from usbutils package)
// - Requires appropriate permissions (typically root/sudo)
func (r *Resolver) ResetUSBDevice(ctx context.Context, portPath string) error {
	info, err := r.Describe(portPath)
	if err != nil {
		return fmt.Errorf("failed to get USB info for %s: %w", portPath, err)
	}

	if info.BusNumber == "" || info.DeviceNumber == "" {
		return ErrUSBInfoNotAvailable
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	usbPath := formatUSBPath(info.BusNumber, info.DeviceNumber)
	if output, err := runUSBReset(ctx, usbPath); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	select {
	case <-time.After(reenumerationDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// ResetUSBDeviceBySerial resets the USB device with the given serial number.
// Useful when device paths change after reboot or when multiple devices are connected
func (r *Resolver) ResetUSBDeviceBySerial(ctx context.Context, devDir, serialNumber string) error {
	ports, err := ListPorts(devDir)
	if err != nil {
		return err
	}

	for _, portPath := range ports {
		info, err := r.Describe(portPath)
		if err != nil {
			continue
		}
		if info.SerialNumber == serialNumber {
			return r.ResetUSBDevice(ctx, portPath)
		}
	}

	return fmt.Errorf("device with serial %s not found", serialNumber)
}
