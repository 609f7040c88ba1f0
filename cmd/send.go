/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/go-dmx"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [frame]",
	Short: "Send a DMX frame to a widget or Art-Net universe",
	Long: `Send one DMX frame to a widget or an Art-Net universe.

The frame is given as comma separated channel values, channel 1 first.
Empty fields are 0. The frame can also be piped on stdin or taken from
a stored scene with --scene.

Open DMX widgets only drive the line while frames are being sent; use
--hold to keep sending the frame.

Example usage:
  dmx send "255,0,128" --port /dev/ttyUSB0
  dmx send "255,,,255" --port /dev/ttyUSB0 --widget opendmx --hold 10s
  dmx send "0,0,0" --artnet 1
  echo "10,20,30" | dmx send --artnet 0 --broadcast 192.168.1.255:6454
  dmx send --scene warm --port /dev/ttyUSB0`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var frame *dmx.Buffer
		var err error

		sceneName, _ := cmd.Flags().GetString("scene")
		if sceneName != "" {
			store, _, err := openScenes()
			if err != nil {
				return err
			}
			sc, err := store.Get(sceneName)
			if err != nil {
				return err
			}
			frame = sc.Frame
		} else {
			frame, err = frameArg(args)
			if err != nil {
				return err
			}
		}
		defer frame.Release()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		hold, _ := cmd.Flags().GetDuration("hold")
		rate, _ := cmd.Flags().GetDuration("rate")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out, release, err := openOutput(ctx, cmd)
		if err != nil {
			return err
		}
		defer release()

		return sendFrame(ctx, out, frame, timeout, hold, rate)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	addOutputFlags(sendCmd)
	sendCmd.Flags().StringP("scene", "s", "", "Send a stored scene instead of a frame")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for sending one frame")
	sendCmd.Flags().Duration("hold", 0, "Keep sending the frame for this long (until interrupted if negative)")
	sendCmd.Flags().Duration("rate", 25*time.Millisecond, "Interval between frames while holding")
}

func sendFrame(ctx context.Context, out dmx.OutputPort, frame *dmx.Buffer, timeout, hold, rate time.Duration) error {
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	fmt.Printf("%s Sending %d channels to %s\n", infoStyle.Render("⚡"), frame.Size(), out.Description())

	writeOnce := func() error {
		wctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return out.WriteDMX(wctx, frame)
	}

	if err := writeOnce(); err != nil {
		return fmt.Errorf("%s failed to send frame: %w", errorStyle.Render("✗"), err)
	}

	if hold != 0 {
		if rate <= 0 {
			rate = 25 * time.Millisecond
		}
		if hold > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, hold)
			defer cancel()
		}
		ticker := time.NewTicker(rate)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				if err := writeOnce(); err != nil && ctx.Err() == nil {
					return fmt.Errorf("%s failed to send frame: %w", errorStyle.Render("✗"), err)
				}
			}
		}
	}

	fmt.Printf("%s Sent %s\n", successStyle.Render("✓"), frame.String())
	return nil
}
