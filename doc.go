// Package serial locates modems on USB serial ports and maps serial device
// nodes to the USB interfaces behind them.
//
// USB serial nodes such as /dev/ttyUSB0 are renumbered whenever devices
// reconnect. The USB interface id (e.g. "1-1.2:1.0") depends only on the
// physical port a device is plugged into, so it is the stable way to refer
// to a device across reconnects.
//
// # Port I/O
//
// Open a serial port exclusively in raw mode (115200 8N1 by default):
//
//	port, err := serial.Open("/dev/ttyUSB0", serial.WithBaudRate(115200))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	_, err = port.Write([]byte("AT\r\n"))
//	reply, err := port.ReadWithTimeout(time.Second)
//
// ReadWithTimeout returns an empty slice and a nil error when nothing
// arrives in time. Close never blocks: the descriptor is flushed and
// released in the background, since USB serial drivers may stall while
// discarding pending output.
//
// # Probing
//
// A Prober sends one command to every candidate port and records the
// outcome of each. Candidates that cannot be opened are non-matches:
//
//	prober := serial.NewProber(logger)
//	results := prober.Probe(ctx,
//	    serial.NumberedCandidates("/dev/ttyUSB", 0, 10),
//	    []byte("AT\r\n"), serial.ContainsMatch("OK"), time.Second)
//
//	if modem, ok := serial.FirstMatch(results); ok {
//	    fmt.Println(modem.Path)
//	}
//
// # Interface Resolution
//
// A Resolver walks a DeviceGraph (internal/sysfs reads /sys) from a tty
// node up to its USB interface:
//
//	id := resolver.Resolve("/dev/ttyUSB2") // "1-1.2:1.0", or NotFound
//
// # Enumeration
//
// An Enumerator pairs device nodes with their interface ids, either via
// symlinks in /dev pointing at ttyUSB/ttyACM nodes or by checking the
// numbered nodes directly.
//
// # Errors
//
// Port errors are *PortError values carrying one of the kinds ErrConfig,
// ErrOpen or ErrIO, plus a detail such as ErrDeviceNotFound. Both match
// with errors.Is:
//
//	if errors.Is(err, serial.ErrOpen) && errors.Is(err, serial.ErrDeviceInUse) {
//	    // another process holds the port
//	}
package serial
