package serial

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		hasError bool
	}{
		{115200, false},
		{9600, false},
		{57600, false},
		{4000000, false},
		{123456, true}, // Invalid baud rate
		{0, true},
	}

	for _, test := range tests {
		result, err := getBaudRate(test.input)
		if test.hasError {
			if err != ErrInvalidBaudRate {
				t.Errorf("Expected ErrInvalidBaudRate for %d, got %v", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for baud rate %d: %v", test.input, err)
		}
		if result == 0 {
			t.Errorf("Got zero result for valid baud rate %d", test.input)
		}
	}
}

func TestOpenNonExistentDevice(t *testing.T) {
	_, err := Open("/dev/nonexistent")
	if err == nil {
		t.Fatal("Expected error when opening non-existent device")
	}
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected kind ErrOpen, got %v", err)
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
	if errors.Is(err, ErrConfig) || errors.Is(err, ErrIO) {
		t.Errorf("Error matches more than one kind: %v", err)
	}

	var perr *PortError
	if !errors.As(err, &perr) || perr.Path != "/dev/nonexistent" {
		t.Errorf("Expected *PortError for the path, got %#v", err)
	}
}

func TestOpenInvalidOption(t *testing.T) {
	_, err := Open("/dev/nonexistent", WithBaudRate(123456))
	if !errors.Is(err, ErrConfig) {
		t.Errorf("Expected kind ErrConfig, got %v", err)
	}
	if !errors.Is(err, ErrInvalidBaudRate) {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
}

func TestOpenNotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "plain")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = Open(f.Name())
	if !errors.Is(err, ErrConfig) {
		t.Errorf("Expected kind ErrConfig for a regular file, got %v", err)
	}
}

func TestClassifyOpenError(t *testing.T) {
	tests := []struct {
		errno error
		want  error
	}{
		{unix.ENOENT, ErrDeviceNotFound},
		{unix.ENXIO, ErrDeviceNotFound},
		{unix.EACCES, ErrPermissionDenied},
		{unix.EBUSY, ErrDeviceInUse},
		{unix.EWOULDBLOCK, ErrDeviceInUse},
	}

	for _, tt := range tests {
		err := classifyOpenError(tt.errno)
		if !errors.Is(err, tt.want) || !errors.Is(err, tt.errno) {
			t.Errorf("classifyOpenError(%v) = %v, want %v wrapping the errno", tt.errno, err, tt.want)
		}
	}
}

// openPTY returns a port on the slave side of a fresh pseudo terminal and
// the master side to talk to it.
func openPTY(t *testing.T, opts ...Option) (Port, *os.File) {
	t.Helper()

	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo terminals unavailable: %v", err)
	}
	t.Cleanup(func() {
		master.Close()
		slave.Close()
	})

	p, err := Open(slave.Name(), opts...)
	if err != nil {
		t.Fatalf("Open(%s): %v", slave.Name(), err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, master
}

func TestReadWithTimeoutElapses(t *testing.T) {
	p, _ := openPTY(t)

	timeout := 200 * time.Millisecond
	start := time.Now()
	data, err := p.ReadWithTimeout(timeout)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("ReadWithTimeout: %v", err)
	}
	if data == nil || len(data) != 0 {
		t.Errorf("Expected empty non-nil slice, got %q", data)
	}
	if elapsed < timeout {
		t.Errorf("Returned after %v, before the %v timeout", elapsed, timeout)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Errorf("Returned after %v, well past the %v timeout", elapsed, timeout)
	}
}

func TestReadWithTimeoutReturnsData(t *testing.T) {
	p, master := openPTY(t)

	if _, err := master.Write([]byte("OK\r\n")); err != nil {
		t.Fatal(err)
	}

	data, err := p.ReadWithTimeout(time.Second)
	if err != nil {
		t.Fatalf("ReadWithTimeout: %v", err)
	}
	if string(data) != "OK\r\n" {
		t.Errorf("Expected %q, got %q", "OK\r\n", data)
	}
}

func TestWriteReachesDevice(t *testing.T) {
	p, master := openPTY(t)

	n, err := p.Write([]byte("AT\r\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bytes written, got %d", n)
	}

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := master.Read(buf)
		got <- string(buf[:n])
	}()

	select {
	case s := <-got:
		if s != "AT\r\n" {
			t.Errorf("Expected %q on the line, got %q", "AT\r\n", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Nothing arrived on the master side")
	}
}

func TestOpenIsExclusive(t *testing.T) {
	p, _ := openPTY(t)

	_, err := Open(p.Path())
	if err == nil {
		t.Fatal("Expected second open to fail")
	}
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected kind ErrOpen, got %v", err)
	}
}

func TestReopenAfterClose(t *testing.T) {
	p, _ := openPTY(t)
	path := p.Path()

	for i := range 20 {
		if err := p.Close(); err != nil {
			t.Fatalf("iteration %d: Close: %v", i, err)
		}
		next, err := Open(path)
		if err != nil {
			t.Fatalf("iteration %d: reopen right after Close: %v", i, err)
		}
		p = next
	}
	t.Cleanup(func() { _ = p.Close() })
}

func TestCloseUnlocksBeforeRelease(t *testing.T) {
	var order []string
	released := make(chan struct{})
	p := &port{
		fd:      7,
		unlock:  func(int) { order = append(order, "unlock") },
		release: func(int) { close(released) },
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(order) != 1 {
		t.Errorf("Expected exclusivity dropped synchronously by Close, got %v", order)
	}
	<-released
}

func TestClosedPort(t *testing.T) {
	p, _ := openPTY(t)

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != ErrPortClosed {
		t.Errorf("Second Close: expected ErrPortClosed, got %v", err)
	}
	if _, err := p.Write([]byte("AT")); err != ErrPortClosed {
		t.Errorf("Write: expected ErrPortClosed, got %v", err)
	}
	if _, err := p.ReadWithTimeout(10 * time.Millisecond); err != ErrPortClosed {
		t.Errorf("ReadWithTimeout: expected ErrPortClosed, got %v", err)
	}
	if _, err := p.Read(make([]byte, 1)); err != ErrPortClosed {
		t.Errorf("Read: expected ErrPortClosed, got %v", err)
	}
}

func TestCloseDoesNotWaitForRelease(t *testing.T) {
	unblock := make(chan struct{})
	defer close(unblock)

	released := make(chan int, 1)
	p := &port{
		path: "/dev/ttyUSB0",
		fd:   42,
		release: func(fd int) {
			<-unblock
			released <- fd
		},
	}

	done := make(chan error, 1)
	go func() { done <- p.Close() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close blocked on the release of the descriptor")
	}

	if p.fd != -1 {
		t.Errorf("Expected handle invalidated, fd = %d", p.fd)
	}

	unblock <- struct{}{}
	select {
	case fd := <-released:
		if fd != 42 {
			t.Errorf("Released fd %d, want 42", fd)
		}
	case <-time.After(time.Second):
		t.Error("Release never ran")
	}
}
