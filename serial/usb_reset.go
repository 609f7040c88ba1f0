package serial

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// reenumerateDelay is how long a reset device takes to come back
var reenumerateDelay = 2 * time.Second

// ResetUSBDevice performs a USB-level reset of the adapter behind a port.
// DMX widgets that stop answering after a power glitch usually recover
// this way without replugging.
//
// Requires the usbreset utility from usbutils and, typically, root.
// Returns ErrUSBResetNotAvailable when usbreset is missing and
// ErrUSBInfoNotAvailable when the port is not a USB device.
func ResetUSBDevice(portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}

	if info.BusNumber == "" || info.DeviceNumber == "" {
		return ErrUSBInfoNotAvailable
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	cmd := exec.Command("usbreset", usbPath(info.BusNumber, info.DeviceNumber))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	time.Sleep(reenumerateDelay)
	return nil
}

// usbPath formats bus and device numbers as the zero padded BBB/DDD
// form usbreset expects
func usbPath(bus, device string) string {
	return zeroPad(bus, 3) + "/" + zeroPad(device, 3)
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// ResetUSBDeviceBySerial resets a USB device by its serial number
// Useful when device paths change after reboot or when multiple devices are connected
func ResetUSBDeviceBySerial(serialNumber string) error {
	ports, err := ListPorts()
	if err != nil {
		return err
	}

	for _, portPath := range ports {
		info, err := GetPortInfo(portPath)
		if err != nil {
			continue
		}

		if info.SerialNumber == serialNumber {
			return ResetUSBDevice(portPath)
		}
	}

	return fmt.Errorf("device with serial %s: %w", serialNumber, ErrDeviceNotFound)
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}
