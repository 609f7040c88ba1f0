/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/artnet"
	"github.com/allbin/go-dmx/scene"
	"github.com/allbin/go-dmx/serial"
	"github.com/allbin/go-dmx/widget"
)

var errBadFrame = errors.New("frame must be comma separated values 0-255")

// parseFrame reads the text form of a frame, e.g. "0,255,128"
func parseFrame(text string) (*dmx.Buffer, error) {
	frame := dmx.NewBuffer()
	if !frame.SetFromString(strings.TrimSpace(text)) {
		return nil, fmt.Errorf("%q: %w", text, errBadFrame)
	}
	return frame, nil
}

// frameArg returns the frame given as args[0], or read from stdin when
// there is no argument and stdin is a pipe
func frameArg(args []string) (*dmx.Buffer, error) {
	if len(args) > 0 {
		return parseFrame(args[0])
	}
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, errors.New("no frame given and nothing piped on stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return parseFrame(string(data))
}

// openScenes opens the scene file named by --scene-file or the config
func openScenes() (*scene.Store, string, error) {
	path := viper.GetString("scene_file")
	store, err := scene.Open(path)
	if err != nil {
		return nil, path, err
	}
	return store, path, nil
}

// addOutputFlags registers the flags read by openOutput
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("port", "p", "", "Serial port of a DMX widget, e.g. /dev/ttyUSB0")
	cmd.Flags().StringP("widget", "w", "", "Widget kind: usbpro, opendmx (default: detect from USB info)")
	cmd.Flags().IntP("artnet", "a", -1, "Send to this Art-Net universe (0-15) instead of a widget")
	cmd.Flags().String("broadcast", fmt.Sprintf("255.255.255.255:%d", artnet.UDPPort), "Art-Net destination address")
	cmd.Flags().Uint8("net", 0, "Art-Net net")
	cmd.Flags().Uint8("subnet", 0, "Art-Net subnet")
}

// openOutput opens the output selected by the flags added with
// addOutputFlags. The returned func releases it.
func openOutput(ctx context.Context, cmd *cobra.Command) (dmx.OutputPort, func(), error) {
	universe, _ := cmd.Flags().GetInt("artnet")
	if universe >= 0 {
		return openArtNetOutput(ctx, cmd, universe)
	}

	portPath, _ := cmd.Flags().GetString("port")
	if portPath == "" {
		return nil, nil, errors.New("either --port or --artnet is required")
	}
	kind, _ := cmd.Flags().GetString("widget")
	if kind == "" {
		kind = detectWidgetKind(portPath)
	}
	protocol, err := widget.ByName(kind)
	if err != nil {
		return nil, nil, fmt.Errorf("widget %q: %w", kind, err)
	}

	dev, err := widget.NewDevice("", portPath, protocol, widget.WithLogger(log.Logger))
	if err != nil {
		return nil, nil, err
	}
	if err := dev.Start(ctx); err != nil {
		return nil, nil, err
	}
	log.Debug().Str("port", portPath).Str("widget", protocol.Name()).Str("serial", dev.SerialNumber()).Msg("widget ready")
	return dev.OutputPort(), func() { _ = dev.Stop() }, nil
}

// detectWidgetKind names the widget from its USB info, assuming a USB Pro
// when the port cannot be recognised
func detectWidgetKind(portPath string) string {
	info, err := serial.GetPortInfo(portPath)
	if err != nil {
		return serial.WidgetUSBPro
	}
	if kind := serial.KnownWidget(info); kind != serial.WidgetUnknown {
		return kind
	}
	return serial.WidgetUSBPro
}

func openArtNetOutput(ctx context.Context, cmd *cobra.Command, universe int) (dmx.OutputPort, func(), error) {
	broadcast, _ := cmd.Flags().GetString("broadcast")
	netID, _ := cmd.Flags().GetUint8("net")
	subNet, _ := cmd.Flags().GetUint8("subnet")

	node, err := artnet.NewNode(
		artnet.WithBindAddress("0.0.0.0:0"),
		artnet.WithBroadcast(broadcast),
		artnet.WithNet(netID),
		artnet.WithSubNet(subNet),
		artnet.WithLogger(log.Logger),
	)
	if err != nil {
		return nil, nil, err
	}
	port, err := node.Port(1)
	if err != nil {
		return nil, nil, err
	}
	if err := port.SetUniverse(universe); err != nil {
		return nil, nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, nil, err
	}
	return port, func() { _ = node.Close() }, nil
}
