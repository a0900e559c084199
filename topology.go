package serial

import (
	"path/filepath"
)

// InterfaceID identifies the USB interface behind a serial node, e.g.
// "1-1.2:1.0". It stays the same when the node is renumbered after a
// reconnect at the same physical port.
type InterfaceID string

// NotFound is the InterfaceID for nodes with no USB interface ancestor.
const NotFound InterfaceID = ""

// String returns the id, or "N/A" for NotFound.
func (id InterfaceID) String() string {
	if id == NotFound {
		return "N/A"
	}
	return string(id)
}

// DeviceGraph is read-only access to the OS device database. Devices are
// addressed by their syspath.
type DeviceGraph interface {
	// Lookup finds a device by subsystem and short name ("tty", "ttyUSB0").
	Lookup(subsystem, sysname string) (string, bool)
	// Ancestor returns the nearest ancestor with the given subsystem and
	// device type.
	Ancestor(syspath, subsystem, devtype string) (string, bool)
	// Sysname returns the system name of a device.
	Sysname(syspath string) string
	// Attribute reads a device attribute, "" when absent.
	Attribute(syspath, name string) string
}

// Resolver maps serial device nodes to the USB interface that backs them.
// It keeps no state of its own and is safe for concurrent use.
type Resolver struct {
	graph DeviceGraph
}

// NewResolver creates a resolver over graph.
func NewResolver(graph DeviceGraph) *Resolver {
	return &Resolver{graph: graph}
}

// Resolve returns the interface id of devicePath, or NotFound.
func (r *Resolver) Resolve(devicePath string) InterfaceID {
	iface, ok := r.usbInterface(devicePath)
	if !ok {
		return NotFound
	}
	return InterfaceID(r.graph.Sysname(iface))
}

func (r *Resolver) usbInterface(devicePath string) (string, bool) {
	dev, ok := r.graph.Lookup("tty", filepath.Base(devicePath))
	if !ok {
		return "", false
	}
	return r.graph.Ancestor(dev, "usb", "usb_interface")
}

// USBInfo holds metadata of the USB interface and device behind a port
type USBInfo struct {
	Interface       InterfaceID
	InterfaceNumber string
	VendorID        string
	ProductID       string
	SerialNumber    string
	Manufacturer    string
	Product         string
	BusNumber       string
	DeviceNumber    string
}

// Describe reads the attributes of the USB interface behind devicePath and
// of the USB device it belongs to.
func (r *Resolver) Describe(devicePath string) (*USBInfo, error) {
	iface, ok := r.usbInterface(devicePath)
	if !ok {
		return nil, ErrUSBInfoNotAvailable
	}

	info := &USBInfo{
		Interface:       InterfaceID(r.graph.Sysname(iface)),
		InterfaceNumber: r.graph.Attribute(iface, "bInterfaceNumber"),
	}

	dev, ok := r.graph.Ancestor(iface, "usb", "usb_device")
	if !ok {
		return info, nil
	}
	info.VendorID = r.graph.Attribute(dev, "idVendor")
	info.ProductID = r.graph.Attribute(dev, "idProduct")
	info.SerialNumber = r.graph.Attribute(dev, "serial")
	info.Manufacturer = r.graph.Attribute(dev, "manufacturer")
	info.Product = r.graph.Attribute(dev, "product")
	info.BusNumber = r.graph.Attribute(dev, "busnum")
	info.DeviceNumber = r.graph.Attribute(dev, "devnum")
	return info, nil
}
