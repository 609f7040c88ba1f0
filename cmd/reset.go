/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/allbin/go-dmx/serial"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <port|serial>",
	Short: "Reset a USB DMX widget",
	Long: `Perform a USB-level reset on a DMX widget. This recovers widgets whose
FTDI bridge has stopped answering without unplugging them.

The widget re-enumerates after the reset and may come back on another
port path (e.g. /dev/ttyUSB0 becomes /dev/ttyUSB1). The command looks the
widget up again by its USB serial number and prints where it went.

Requirements:
- usbreset utility must be installed (from usbutils package)
- Root/sudo permissions required for USB operations

Examples:
  sudo dmx reset /dev/ttyUSB0          # Reset by port path
  sudo dmx reset --serial EN123456    # Reset by serial number`,
	Args: func(cmd *cobra.Command, args []string) error {
		serialFlag, _ := cmd.Flags().GetString("serial")
		if serialFlag == "" && len(args) != 1 {
			return errors.New("requires either a port path argument or --serial flag")
		}
		if serialFlag != "" && len(args) > 0 {
			return errors.New("cannot specify both port path and --serial flag")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !serial.IsUSBResetAvailable() {
			return errors.New("usbreset utility not available, install with: sudo apt-get install usbutils")
		}

		serialNumber, _ := cmd.Flags().GetString("serial")
		wait, _ := cmd.Flags().GetDuration("wait")

		if serialNumber != "" {
			fmt.Printf("Resetting widget with serial: %s\n", serialNumber)
			if err := serial.ResetUSBDeviceBySerial(serialNumber); err != nil {
				return err
			}
		} else {
			portPath := args[0]
			if info, err := serial.GetPortInfo(portPath); err == nil {
				serialNumber = info.SerialNumber
			}
			fmt.Printf("Resetting widget: %s\n", portPath)
			if err := serial.ResetUSBDevice(portPath); err != nil {
				if errors.Is(err, serial.ErrUSBInfoNotAvailable) {
					return fmt.Errorf("%s does not appear to be a USB device: %w", portPath, err)
				}
				return err
			}
		}

		fmt.Println("USB device reset successfully")
		if serialNumber == "" || wait <= 0 {
			fmt.Println("Widget will re-enumerate (port path may change)")
			return nil
		}

		path, err := waitForWidget(serialNumber, wait)
		if err != nil {
			return err
		}
		fmt.Printf("Widget %s is back on %s\n", serialNumber, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringP("serial", "s", "", "Reset device by serial number")
	resetCmd.Flags().Duration("wait", 10*time.Second, "How long to wait for the widget to come back (0 to not wait)")
}

// waitForWidget polls the serial ports until one reports serialNumber
func waitForWidget(serialNumber string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if path, ok := findPortBySerial(serialNumber); ok {
			return path, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("widget %s did not come back within %v: %w", serialNumber, timeout, serial.ErrDeviceNotFound)
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func findPortBySerial(serialNumber string) (string, bool) {
	ports, err := serial.ListPorts()
	if err != nil {
		log.Debug().Err(err).Msg("listing ports")
		return "", false
	}
	for _, port := range ports {
		info, err := serial.GetPortInfo(port)
		if err == nil && info.SerialNumber == serialNumber {
			return info.Path, true
		}
	}
	return "", false
}
