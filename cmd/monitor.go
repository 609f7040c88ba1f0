/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/artnet"
	"github.com/allbin/go-dmx/internal/tui/models"
	"github.com/allbin/go-dmx/widget"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch a universe live",
	Long: `Watch the channels of an incoming universe in a live grid.

The source is an Art-Net universe received on this host, or the DMX input
of an Enttec USB Pro widget. With --to-artnet the received frame is also
sent on to another Art-Net universe, and 'b' toggles a blackout on it.

Keys: b blackout, h hex/decimal, f freeze, ? help, q quit.

Examples:
  dmx monitor --artnet 0
  dmx monitor --artnet 1 --bind 192.168.1.10:6454
  dmx monitor --port /dev/ttyUSB0
  dmx monitor --artnet 0 --to-artnet 1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The TUI owns the terminal, so only errors are logged
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		u, source, cleanup, err := buildMonitorUniverse(ctx, cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		interval, _ := cmd.Flags().GetDuration("rate")
		m := models.NewMonitor(ctx, u, source, interval)
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().IntP("artnet", "a", -1, "Art-Net universe (0-15) to receive")
	monitorCmd.Flags().StringP("port", "p", "", "Serial port of a USB Pro widget to receive from")
	monitorCmd.Flags().String("bind", fmt.Sprintf("0.0.0.0:%d", artnet.UDPPort), "Art-Net listen address")
	monitorCmd.Flags().String("broadcast", fmt.Sprintf("255.255.255.255:%d", artnet.UDPPort), "Art-Net destination for --to-artnet")
	monitorCmd.Flags().Int("to-artnet", -1, "Forward the frame to this Art-Net universe (0-15)")
	monitorCmd.Flags().Duration("rate", models.DefaultRefreshInterval, "Refresh interval")
}

func buildMonitorUniverse(ctx context.Context, cmd *cobra.Command) (*dmx.Universe, string, func(), error) {
	inUniverse, _ := cmd.Flags().GetInt("artnet")
	portPath, _ := cmd.Flags().GetString("port")
	forward, _ := cmd.Flags().GetInt("to-artnet")

	if (inUniverse >= 0) == (portPath != "") {
		return nil, "", nil, errors.New("exactly one of --artnet or --port is required")
	}

	id := inUniverse
	if id < 0 {
		id = 0
	}
	u, err := dmx.NewUniverse(id, dmx.WithMergeMode(dmx.MergeLTP))
	if err != nil {
		return nil, "", nil, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*dmx.Universe, string, func(), error) {
		cleanup()
		return nil, "", nil, err
	}

	var source string
	if inUniverse >= 0 || forward >= 0 {
		bind, _ := cmd.Flags().GetString("bind")
		if inUniverse < 0 {
			bind = "0.0.0.0:0"
		}
		broadcast, _ := cmd.Flags().GetString("broadcast")
		node, err := artnet.NewNode(
			artnet.WithBindAddress(bind),
			artnet.WithBroadcast(broadcast),
		)
		if err != nil {
			return fail(err)
		}
		if err := node.Start(ctx); err != nil {
			return fail(err)
		}
		cleanups = append(cleanups, func() { _ = node.Close() })

		if inUniverse >= 0 {
			in, err := node.Port(0)
			if err != nil {
				return fail(err)
			}
			if err := in.SetUniverse(inUniverse); err != nil {
				return fail(err)
			}
			u.AddInput(in)
			source = in.Description()
		}
		if forward >= 0 {
			out, err := node.Port(1)
			if err != nil {
				return fail(err)
			}
			if err := out.SetUniverse(forward); err != nil {
				return fail(err)
			}
			u.AddOutput(out)
		}
	}

	if portPath != "" {
		dev, err := widget.NewDevice("", portPath, widget.NewUSBPro(), widget.WithInputTimeout(time.Second))
		if err != nil {
			return fail(err)
		}
		if err := dev.Start(ctx); err != nil {
			return fail(err)
		}
		cleanups = append(cleanups, func() { _ = dev.Stop() })

		in, err := dev.InputPort()
		if err != nil {
			return fail(err)
		}
		u.AddInput(in)
		source = in.Description()
	}

	return u, source, cleanup, nil
}
