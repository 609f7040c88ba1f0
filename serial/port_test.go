package serial

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		expected uint32
		hasError bool
	}{
		{115200, unix.B115200, false},
		{9600, unix.B9600, false},
		{57600, unix.B57600, false},
		{DMXBaudRate, unix.BOTHER, false}, // no termios constant for 250k
		{123456, unix.BOTHER, false},
		{0, 0, true},
		{maxBaudRate + 1, 0, true},
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
		if result != test.expected {
			t.Errorf("getBaudRate(%d) = %#x, want %#x", test.input, result, test.expected)
		}
	}
}

func TestOpenNonExistentDevice(t *testing.T) {
	_, err := Open("/dev/nonexistent")
	if err == nil {
		t.Fatal("Expected error when opening non-existent device")
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestOpenRejectsInvalidOption(t *testing.T) {
	_, err := Open("/dev/nonexistent", WithStopBits(5))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestOpenError(t *testing.T) {
	tests := []struct {
		errno error
		want  error
	}{
		{unix.ENOENT, ErrDeviceNotFound},
		{unix.ENXIO, ErrDeviceNotFound},
		{unix.EACCES, ErrPermissionDenied},
		{unix.EBUSY, ErrDeviceInUse},
		{unix.EIO, unix.EIO},
	}

	for _, tt := range tests {
		if got := openError(tt.errno); !errors.Is(got, tt.want) {
			t.Errorf("openError(%v) = %v, want %v", tt.errno, got, tt.want)
		}
	}
}

func TestContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Microsecond)
	defer cancel()

	time.Sleep(10 * time.Microsecond)

	// An expired context is checked before any syscall, so no fd is needed
	p := &port{fd: -1}

	buf := make([]byte, 10)
	if _, err := p.ReadContext(ctx, buf); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}

	if _, err := p.WriteContext(ctx, []byte("test")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestClosedPort(t *testing.T) {
	p := &port{fd: -1, closed: true}

	if _, err := p.Read(make([]byte, 1)); err != ErrPortClosed {
		t.Errorf("Read: expected ErrPortClosed, got %v", err)
	}
	if _, err := p.Write([]byte{0}); err != ErrPortClosed {
		t.Errorf("Write: expected ErrPortClosed, got %v", err)
	}
	if err := p.SetBreak(true); err != ErrPortClosed {
		t.Errorf("SetBreak: expected ErrPortClosed, got %v", err)
	}
	if err := p.SetRTS(true); err != ErrPortClosed {
		t.Errorf("SetRTS: expected ErrPortClosed, got %v", err)
	}
	if err := p.Drain(); err != ErrPortClosed {
		t.Errorf("Drain: expected ErrPortClosed, got %v", err)
	}
	if err := p.FlushInput(); err != ErrPortClosed {
		t.Errorf("FlushInput: expected ErrPortClosed, got %v", err)
	}
	if err := p.FlushOutput(); err != ErrPortClosed {
		t.Errorf("FlushOutput: expected ErrPortClosed, got %v", err)
	}
	if err := p.Close(); err != ErrPortClosed {
		t.Errorf("Close: expected ErrPortClosed, got %v", err)
	}
}
