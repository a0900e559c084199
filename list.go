package serial

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yookoala/realpath"
	"go.uber.org/zap"
)

// DefaultClasses are the device name prefixes of USB serial nodes
var DefaultClasses = []string{"ttyUSB", "ttyACM"}

// DeviceMapping relates a serial node to its USB interface. Virtual is the
// symlink path, or "" for a node found by name.
type DeviceMapping struct {
	Virtual   string
	Physical  string
	Interface InterfaceID
}

// Enumerator lists USB serial nodes and the interfaces behind them.
type Enumerator struct {
	Resolver *Resolver
	// Classes is the allow-list of node name prefixes. Defaults to DefaultClasses.
	Classes []string
	Logger  *zap.SugaredLogger
}

// NewEnumerator creates an enumerator recognising the given classes.
func NewEnumerator(resolver *Resolver, classes []string, logger *zap.SugaredLogger) *Enumerator {
	return &Enumerator{Resolver: resolver, Classes: classes, Logger: logger}
}

func (e *Enumerator) logger() *zap.SugaredLogger {
	if e.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return e.Logger
}

func (e *Enumerator) classes() []string {
	if len(e.Classes) == 0 {
		return DefaultClasses
	}
	return e.Classes
}

// Recognized reports whether name is <class><number> for a known class
func (e *Enumerator) Recognized(name string) bool {
	for _, class := range e.classes() {
		rest, ok := strings.CutPrefix(name, class)
		if ok && isDigits(rest) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// EnumerateSymlinks maps the tty* symlinks directly under rootDir to the
// USB serial nodes they point at. Links to anything else are skipped.
// The order is the directory listing order.
func (e *Enumerator) EnumerateSymlinks(rootDir string) ([]DeviceMapping, error) {
	log := e.logger()

	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, err
	}

	var mappings []DeviceMapping
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "tty") || entry.Type()&os.ModeSymlink == 0 {
			continue
		}

		link := filepath.Join(rootDir, entry.Name())
		target, err := resolveLink(link)
		if err != nil {
			log.Debugw("unresolvable link", "link", link, "error", err)
			continue
		}
		if !e.Recognized(filepath.Base(target)) {
			log.Debugw("link target not a USB serial node", "link", link, "target", target)
			continue
		}

		mappings = append(mappings, DeviceMapping{
			Virtual:   link,
			Physical:  target,
			Interface: e.Resolver.Resolve(target),
		})
	}

	return mappings, nil
}

// resolveLink returns the absolute physical path behind link. A dangling
// link resolves to its target text taken relative to the link directory.
func resolveLink(link string) (string, error) {
	if p, err := realpath.Realpath(link); err == nil {
		return p, nil
	}
	target, err := os.Readlink(link)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	return filepath.Clean(target), nil
}

// EnumeratePhysical checks prefix+N for N in [0, maxIndexExclusive) for each
// prefix (e.g. "/dev/ttyUSB") and maps the nodes that exist.
func (e *Enumerator) EnumeratePhysical(prefixes []string, maxIndexExclusive int) []DeviceMapping {
	log := e.logger()

	var mappings []DeviceMapping
	for _, prefix := range prefixes {
		for path := range NumberedCandidates(prefix, 0, maxIndexExclusive) {
			if _, err := os.Stat(path); err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					log.Debugw("stat failed", "port", path, "error", err)
				}
				continue
			}
			mappings = append(mappings, DeviceMapping{
				Physical:  path,
				Interface: e.Resolver.Resolve(path),
			})
		}
	}
	return mappings
}

// PhysicalPrefixes joins devDir with each class, e.g. /dev/ttyUSB
func PhysicalPrefixes(devDir string, classes []string) []string {
	prefixes := make([]string, 0, len(classes))
	for _, class := range classes {
		prefixes = append(prefixes, filepath.Join(devDir, class))
	}
	return prefixes
}

// serialPatterns match communication-capable serial devices
var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// ListPorts returns the serial character devices in devDir, sorted
func ListPorts(devDir string) ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		for _, pattern := range serialPatterns {
			if !pattern.MatchString(name) {
				continue
			}
			fullPath := filepath.Join(devDir, name)
			if isCharacterDevice(fullPath) {
				ports = append(ports, fullPath)
			}
			break
		}
	}

	sort.Strings(ports)
	return ports, nil
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortDescription provides human-readable descriptions for different port types
func PortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// String renders the mapping as "virtual -> physical (interface)"
func (m DeviceMapping) String() string {
	virtual := m.Virtual
	if virtual == "" {
		virtual = "-"
	}
	return fmt.Sprintf("%s -> %s (%s)", virtual, m.Physical, m.Interface)
}
