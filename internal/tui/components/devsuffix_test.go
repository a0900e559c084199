package components

import "testing"

func TestDevSuffix(t *testing.T) {
	tests := []struct {
		devDir, path, want string
	}{
		{"/dev", "/dev/ttyUSB0", "ttyUSB0"},
		{"/dev/", "/dev/ttyUSB0", "ttyUSB0"},
		{"/dev", "/dev/serial/by-id/usb-Quectel", "serial/by-id/usb-Quectel"},
		{"/dev", "/tmp/fake/ttyACM1", "ttyACM1"},
		{"/dev", "/dev/", "dev"},
	}

	for _, tt := range tests {
		if got := DevSuffix(tt.devDir, tt.path); got != tt.want {
			t.Errorf("DevSuffix(%q, %q) = %q, want %q", tt.devDir, tt.path, got, tt.want)
		}
	}
}
