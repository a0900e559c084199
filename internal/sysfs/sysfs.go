// Package sysfs reads the Linux device graph from a mounted sysfs tree.
//
// A device is a directory below <root>/devices that carries a uevent file.
// Its subsystem is the base name of the target of its "subsystem" link and
// its device type is the DEVTYPE key of the uevent file, the same data
// libudev reports.
package sysfs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRoot is where sysfs is normally mounted
const DefaultRoot = "/sys"

// Graph is a read-only view of a sysfs tree. The zero value is not usable;
// create one with Open.
type Graph struct {
	root    string
	devices string
}

// Open checks that root looks like a sysfs mount and returns a graph on it.
func Open(root string) (*Graph, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	// resolve the root itself so syspaths compare against canonical paths
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(filepath.Join(abs, "class"))
	if err != nil {
		return nil, fmt.Errorf("open device graph at %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open device graph at %s: class is not a directory", root)
	}
	return &Graph{root: abs, devices: filepath.Join(abs, "devices")}, nil
}

// Root returns the sysfs mount point
func (g *Graph) Root() string {
	return g.root
}

// Lookup finds a device by subsystem and sysname, via class/<subsystem>
// first and bus/<subsystem>/devices second.
func (g *Graph) Lookup(subsystem, sysname string) (string, bool) {
	if sysname == "" || strings.ContainsRune(sysname, filepath.Separator) {
		return "", false
	}
	for _, dir := range []string{
		filepath.Join(g.root, "class", subsystem, sysname),
		filepath.Join(g.root, "bus", subsystem, "devices", sysname),
	} {
		syspath, err := filepath.EvalSymlinks(dir)
		if err != nil {
			continue
		}
		if g.isDevice(syspath) {
			return syspath, true
		}
	}
	return "", false
}

// Ancestor walks up from syspath and returns the nearest device with the
// given subsystem and devtype. An empty devtype matches any type.
func (g *Graph) Ancestor(syspath, subsystem, devtype string) (string, bool) {
	for dev, ok := g.Parent(syspath); ok; dev, ok = g.Parent(dev) {
		if g.Subsystem(dev) != subsystem {
			continue
		}
		if devtype == "" || g.Devtype(dev) == devtype {
			return dev, true
		}
	}
	return "", false
}

// Parent returns the closest ancestor directory that is a device
func (g *Graph) Parent(syspath string) (string, bool) {
	dir := syspath
	for {
		next := filepath.Dir(dir)
		if next == dir || !strings.HasPrefix(next, g.devices+string(filepath.Separator)) {
			return "", false
		}
		dir = next
		if g.isDevice(dir) {
			return dir, true
		}
	}
}

// Sysname returns the kernel name of a device, the last path element
func (g *Graph) Sysname(syspath string) string {
	return filepath.Base(syspath)
}

// Subsystem returns the subsystem a device belongs to
func (g *Graph) Subsystem(syspath string) string {
	target, err := os.Readlink(filepath.Join(syspath, "subsystem"))
	if err != nil {
		return ""
	}
	return filepath.Base(target)
}

// Devtype returns the DEVTYPE of a device
func (g *Graph) Devtype(syspath string) string {
	return g.Property(syspath, "DEVTYPE")
}

// Property returns a key from the device's uevent file
func (g *Graph) Property(syspath, key string) string {
	f, err := os.Open(filepath.Join(syspath, "uevent"))
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		k, v, ok := strings.Cut(scanner.Text(), "=")
		if ok && k == key {
			return v
		}
	}
	return ""
}

// Attribute reads a sysfs attribute file of a device
func (g *Graph) Attribute(syspath, name string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return ""
	}
	return readSysfsFile(filepath.Join(syspath, name))
}

func (g *Graph) isDevice(dir string) bool {
	if !strings.HasPrefix(dir, g.devices+string(filepath.Separator)) {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, "uevent"))
	return err == nil
}

// readSysfsFile reads a sysfs attribute and trims surrounding whitespace.
// Missing or unreadable files read as "".
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
