// Package serial drives Linux serial lines for DMX512 widgets.
//
// DMX runs at 250000 baud 8N2, a rate
// with no termios constant. Open programs it through termios2 (BOTHER), and
// the defaults are already set for it:
//
//	port, err := serial.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
// Widgets that are just a UART on a USB bridge need the reset sequence
// generated by hand; SetBreak holds the line low for the break:
//
//	port.SetBreak(true)
//	time.Sleep(110 * time.Microsecond)
//	port.SetBreak(false)
//	port.Write(frame)
//	port.Drain()
//
// Framed widgets such as the Enttec USB Pro are talked to with plain
// Write/ReadContext at whatever rate they advertise.
//
// # Port Discovery
//
// ListPorts finds candidate devices and GetPortInfo reads the USB metadata
// from sysfs. KnownWidget maps that metadata to a widget kind:
//
//	ports, _ := serial.ListPorts()
//	for _, p := range ports {
//	    info, _ := serial.GetPortInfo(p)
//	    fmt.Println(p, serial.KnownWidget(info))
//	}
//
// # USB Reset
//
// ResetUSBDevice and ResetUSBDeviceBySerial recover hung adapters through
// the usbreset utility from usbutils. They usually need root.
//
// # Errors
//
// Open wraps the sentinels ErrDeviceNotFound, ErrPermissionDenied and
// ErrDeviceInUse; check them with errors.Is.
package serial
