/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/allbin/go-dmx/serial"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial ports and DMX widgets",
	Long: `List the serial ports on the system and the DMX widgets behind them.

Enttec USB Pro and Open DMX widgets are recognised from their USB
vendor, product and product string. The widget column shows the kind to
pass to 'dmx send --widget'.

Examples:
  dmx list
  dmx list --table
  dmx list --filter dmx`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return
		}

		// Get filter flag
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		// Filter ports if requested
		filteredPorts := filterPorts(ports, filterType)

		if len(filteredPorts) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(filteredPorts)
		} else {
			renderSimple(filteredPorts)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: dmx, usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []string, filterType string) []string {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []string
	for _, port := range ports {
		info, err := serial.GetPortInfo(port)
		if err != nil {
			continue
		}

		name := strings.ToLower(info.Name)
		switch strings.ToLower(filterType) {
		case "dmx":
			if serial.KnownWidget(info) != serial.WidgetUnknown {
				filtered = append(filtered, port)
			}
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, port)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, port)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, port)
			}
		}
	}
	return filtered
}

// renderTable prints the ports with their USB identity and widget kind
func renderTable(ports []string) {
	fmt.Printf("Found %d serial port(s):\n\n", len(ports))

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	widgetStyle := cellStyle.Foreground(lipgloss.Color("40")).Bold(true)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("Port", "Type", "Widget", "USB ID", "Serial", "Description").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 2:
				return widgetStyle
			default:
				return cellStyle
			}
		})

	for _, port := range ports {
		info, err := serial.GetPortInfo(port)
		if err != nil {
			t.Row(port, "Unknown", "-", "-", "-", fmt.Sprintf("Error: %v", err))
			continue
		}

		kind := serial.KnownWidget(info)
		if kind == serial.WidgetUnknown {
			kind = "-"
		}
		usbID := "-"
		if info.VendorID != "" {
			usbID = info.VendorID + ":" + info.ProductID
		}
		serialNumber := info.SerialNumber
		if serialNumber == "" {
			serialNumber = "-"
		}
		t.Row(info.Name, getPortType(info.Name), kind, usbID, serialNumber, info.Description)
	}

	fmt.Println(t)
}

// renderSimple prints one port per line, followed by the widget kind
// when one is recognised
func renderSimple(ports []string) {
	for _, port := range ports {
		info, err := serial.GetPortInfo(port)
		if err != nil {
			fmt.Println(port)
			continue
		}
		if widget := serial.KnownWidget(info); widget != serial.WidgetUnknown {
			fmt.Printf("%s\t%s\n", port, widget)
			continue
		}
		fmt.Println(port)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
