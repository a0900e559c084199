package components

import (
	"path/filepath"
	"strings"
)

// DevSuffix shortens a device path for display: "/dev/ttyUSB0" becomes
// "ttyUSB0". Paths outside devDir fall back to their base name.
func DevSuffix(devDir, path string) string {
	if rest, ok := strings.CutPrefix(path, strings.TrimSuffix(devDir, "/")+"/"); ok && rest != "" {
		return rest
	}
	return filepath.Base(path)
}
