/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/allbin/go-dmx/serial"
	"github.com/allbin/go-dmx/widget"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port or DMX widget",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  dmx info /dev/ttyUSB0
  dmx info /dev/ttyUSB0 --signals
  dmx info /dev/ttyUSB0 --probe

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and other USB-specific metadata extracted from sysfs.

--signals opens the port and shows the modem control lines.
--probe talks to the widget and shows the serial number it reports.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		info, err := serial.GetPortInfo(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Description: %s\n", info.Description)
		kind := serial.KnownWidget(info)
		if kind != serial.WidgetUnknown {
			fmt.Printf("  DMX widget:  %s\n", kind)
		}

		// USB Device Information
		if info.VendorID != "" || info.ProductID != "" {
			fmt.Println("\nUSB Device Information:")
			if info.VendorID != "" {
				fmt.Printf("  Vendor ID:    %s\n", info.VendorID)
			}
			if info.ProductID != "" {
				fmt.Printf("  Product ID:   %s\n", info.ProductID)
			}
			if info.SerialNumber != "" {
				fmt.Printf("  Serial:       %s\n", info.SerialNumber)
			}
			if info.InterfaceNumber != "" {
				fmt.Printf("  Interface:    %s\n", info.InterfaceNumber)
			}
			if info.BusNumber != "" {
				fmt.Printf("  Bus:          %s\n", info.BusNumber)
			}
			if info.DeviceNumber != "" {
				fmt.Printf("  Device:       %s\n", info.DeviceNumber)
			}
			if info.Manufacturer != "" {
				fmt.Printf("  Manufacturer: %s\n", info.Manufacturer)
			}
			if info.Product != "" {
				fmt.Printf("  Product:      %s\n", info.Product)
			}
		}

		if showSignals, _ := cmd.Flags().GetBool("signals"); showSignals {
			if err := printModemSignals(portPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error reading modem signals: %v\n", err)
				os.Exit(1)
			}
		}

		if probe, _ := cmd.Flags().GetBool("probe"); probe {
			if kind == serial.WidgetUnknown {
				kind, _ = cmd.Flags().GetString("widget")
			}
			if err := probeWidget(cmd.Context(), portPath, kind); err != nil {
				fmt.Fprintf(os.Stderr, "Error probing widget: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("signals", false, "Show modem control signal states")
	infoCmd.Flags().Bool("probe", false, "Detect the widget and show its serial number")
	infoCmd.Flags().String("widget", serial.WidgetUSBPro, "Widget kind to probe when it cannot be recognised: usbpro, opendmx")
}

func printModemSignals(portPath string) error {
	port, err := serial.Open(portPath)
	if err != nil {
		return err
	}
	defer port.Close()

	signals, err := port.GetModemSignals()
	if err != nil {
		return err
	}

	fmt.Println("\nModem Signals:")
	fmt.Printf("  CTS (Clear To Send):       %s\n", formatSignalState(signals.CTS))
	fmt.Printf("  DSR (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
	fmt.Printf("  RI  (Ring Indicator):      %s\n", formatSignalState(signals.RI))
	fmt.Printf("  DCD (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
	fmt.Printf("  RTS (Request To Send):     %s\n", formatSignalState(signals.RTS))
	fmt.Printf("  DTR (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))
	return nil
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func probeWidget(ctx context.Context, portPath, kind string) error {
	protocol, err := widget.ByName(kind)
	if err != nil {
		return fmt.Errorf("widget %q: %w", kind, err)
	}
	dev, err := widget.NewDevice("", portPath, protocol,
		widget.WithLogger(log.Logger),
		widget.WithDetectTimeout(2*time.Second),
	)
	if err != nil {
		return err
	}
	if err := dev.Start(ctx); err != nil {
		return err
	}
	defer dev.Stop()

	fmt.Println("\nWidget:")
	fmt.Printf("  Protocol:     %s\n", protocol.Name())
	if sn := dev.SerialNumber(); sn != "" {
		fmt.Printf("  Serial:       %s\n", sn)
	}
	return nil
}
