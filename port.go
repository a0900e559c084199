package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// readChunkSize bounds a single ReadWithTimeout call.
const readChunkSize = 1024

// Port represents a serial port connection interface
type Port interface {
	io.ReadWriteCloser

	// ReadWithTimeout waits up to timeout for input and returns what is
	// available. An empty slice with a nil error means the timeout elapsed.
	ReadWithTimeout(timeout time.Duration) ([]byte, error)
	Path() string
	Drain() error
	FlushInput() error
	FlushOutput() error
}

// port is the concrete implementation of the Port interface
type port struct {
	mu     sync.RWMutex
	path   string
	fd     int
	config Config
	closed bool

	// unlock drops exclusivity before the descriptor is handed to release,
	// so the path can be opened again while release is still running
	unlock func(fd int)
	// release tears the descriptor down. It runs on its own goroutine and
	// is never waited for.
	release func(fd int)
}

// Ensure port implements Port interface at compile time
var _ Port = (*port)(nil)

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// setDTR sets DTR signal state
func setDTR(fd int, state bool) error {
	if state {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, unix.TIOCM_DTR)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, unix.TIOCM_DTR)
}

// setRTSSignal sets RTS signal state
func setRTSSignal(fd int, state bool) error {
	if state {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, unix.TIOCM_RTS)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, unix.TIOCM_RTS)
}

// releaseDetached flushes both queues and closes fd. Some USB-serial
// adapters stall in close(2) for tens of seconds, so callers run it on a
// goroutine they never wait for.
func releaseDetached(fd int) {
	_ = unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
	_ = unix.Close(fd)
}

// classifyOpenError maps open(2) and locking failures to the package sentinels
func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case errors.Is(err, unix.EBUSY), errors.Is(err, unix.EWOULDBLOCK):
		return fmt.Errorf("%w: %w", ErrDeviceInUse, err)
	default:
		return err
	}
}

// Open opens a serial port with the given device path and options.
//
// Option validation errors and termios failures are reported with kind
// ErrConfig. A missing, inaccessible or busy device is reported with kind
// ErrOpen.
func Open(device string, opts ...Option) (Port, error) {
	// Apply default configuration
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, configError("configure", device, err)
		}
	}

	// O_NONBLOCK keeps open(2) from waiting on carrier detect
	flags := unix.O_RDWR | unix.O_NOCTTY | unix.O_NONBLOCK | unix.O_CLOEXEC
	if config.WriteMode == WriteModeSynced {
		flags |= unix.O_SYNC
	}

	fd, err := unix.Open(device, flags, 0)
	if err != nil {
		return nil, openError(device, classifyOpenError(err))
	}

	if err := acquireExclusive(fd); err != nil {
		go releaseDetached(fd)
		return nil, openError(device, classifyOpenError(err))
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		go releaseDetached(fd)
		return nil, openError(device, err)
	}

	if err := configurePort(fd, config); err != nil {
		go releaseDetached(fd)
		return nil, configError("configure", device, err)
	}

	// Apply initial signal states if configured
	if config.InitialRTS != nil {
		if err := setRTSSignal(fd, *config.InitialRTS); err != nil {
			go releaseDetached(fd)
			return nil, configError("configure", device, fmt.Errorf("failed to set initial RTS: %w", err))
		}
	}
	if config.InitialDTR != nil {
		if err := setDTR(fd, *config.InitialDTR); err != nil {
			go releaseDetached(fd)
			return nil, configError("configure", device, fmt.Errorf("failed to set initial DTR: %w", err))
		}
	}

	return &port{
		path:    device,
		fd:      fd,
		config:  config,
		unlock:  releaseExclusive,
		release: releaseDetached,
	}, nil
}

// acquireExclusive sets TIOCEXCL and takes an advisory lock so a second
// opener (including one running as root) sees the device as busy.
func acquireExclusive(fd int) error {
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil && !errors.Is(err, unix.ENOTTY) {
		return err
	}
	return unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
}

// releaseExclusive undoes acquireExclusive. Neither call waits on the
// device, unlike the flush and close in releaseDetached.
func releaseExclusive(fd int) {
	_ = unix.Flock(fd, unix.LOCK_UN)
	_ = unix.IoctlSetInt(fd, unix.TIOCNXCL, 0)
}

// configurePort switches the port to raw mode with the configured framing
func configurePort(fd int, config Config) error {
	// Get current termios settings
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	// Raw mode: no line editing, echo, signals or output processing
	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	// Timeout: VMIN=0, VTIME from config (deciseconds)
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = config.readTimeoutTenths()

	baudRate, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag |= baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	}

	if config.FlowControl == FlowControlRTSCTS {
		termios.Cflag |= unix.CRTSCTS
	}

	// Apply settings immediately
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}

	return nil
}

// Path returns the device path the port was opened with
func (p *port) Path() string {
	return p.path
}

// Close releases the port. The caller's handle is dead once Close returns
// and the path can be opened again right away; the flush and close(2) of
// the descriptor finish in the background.
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	fd := p.fd
	p.fd = -1
	p.closed = true
	if p.unlock != nil {
		p.unlock(fd)
	}
	go p.release(fd)
	return nil
}

// Read reads data from the serial port, bounded by the VTIME setting
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	n, err := readRetry(p.fd, buf)
	if err != nil {
		return n, ioError("read", p.path, err)
	}
	return n, nil
}

// ReadWithTimeout polls for input for at most timeout and reads whatever
// is available, up to readChunkSize bytes
func (p *port) ReadWithTimeout(timeout time.Duration) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPortClosed
	}

	ready, err := waitReadable(p.fd, timeout)
	if err != nil {
		return nil, ioError("read", p.path, err)
	}
	if !ready {
		return []byte{}, nil
	}

	buf := make([]byte, readChunkSize)
	n, err := readRetry(p.fd, buf)
	if err != nil {
		return nil, ioError("read", p.path, err)
	}
	return buf[:n], nil
}

// Write discards stale output and writes data in one blocking call
func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	if err := unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCOFLUSH); err != nil {
		return 0, ioError("write", p.path, err)
	}

	n, err := writeRetry(p.fd, data)
	if err != nil {
		return n, ioError("write", p.path, err)
	}
	if n != len(data) {
		return n, ioError("write", p.path, io.ErrShortWrite)
	}
	return n, nil
}

// Drain waits until all output written to the port has been transmitted
func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH)
}

// FlushOutput discards any unwritten output data
func (p *port) FlushOutput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCOFLUSH)
}

// waitReadable blocks in poll(2) until fd is readable or timeout elapses.
// Interrupted polls resume with the remaining budget.
func waitReadable(fd int, timeout time.Duration) (bool, error) {
	if timeout < 0 {
		timeout = 0
	}
	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		// round up so poll never returns before the deadline
		ms := int((remaining + time.Millisecond - 1) / time.Millisecond)

		n, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}

		revents := fds[0].Revents
		switch {
		case revents&unix.POLLNVAL != 0:
			return false, unix.EBADF
		case revents&unix.POLLIN != 0:
			return true, nil
		case revents&(unix.POLLERR|unix.POLLHUP) != 0:
			return false, unix.EIO
		default:
			return false, nil
		}
	}
}

func readRetry(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

func writeRetry(fd int, data []byte) (int, error) {
	for {
		n, err := unix.Write(fd, data)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}
