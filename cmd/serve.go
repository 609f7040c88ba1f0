/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/artnet"
	"github.com/allbin/go-dmx/internal/config"
	"github.com/allbin/go-dmx/internal/server"
	"github.com/allbin/go-dmx/scene"
	"github.com/allbin/go-dmx/widget"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DMX daemon",
	Long: `Run the DMX daemon described by the config file.

Each configured universe merges its inputs and the sources set over HTTP,
and writes the result to its outputs every refresh_rate. The HTTP API
listens on http_address.

Example config (~/.config/dmx/dmx.yaml):

  http_address: ":8080"
  refresh_rate: 25ms
  artnet:
    enabled: true
    broadcast: 192.168.1.255:6454
  universes:
    - id: 1
      name: Stage
      merge: htp
      inputs:
        - {type: artnet, index: 0}
      outputs:
        - {type: usbpro, path: /dev/ttyUSB0}

Settings can be overridden with DMX_ environment variables, e.g.
DMX_HTTP_ADDRESS=:9090.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
			viper.Set("http_address", addr)
		}
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, log.Logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "HTTP listen address (overrides http_address)")
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	r, err := newRig(cfg, logger)
	if err != nil {
		return err
	}
	if err := r.start(ctx); err != nil {
		return err
	}
	defer r.stop()

	scenes, err := scene.Open(cfg.SceneFile)
	if err != nil {
		return err
	}

	srv := server.New(r.universes, scenes,
		server.WithLogger(logger),
		server.WithVersion(Version),
		server.WithStreamInterval(cfg.RefreshRate),
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, u := range r.universes {
		g.Go(func() error {
			if err := u.Run(ctx, cfg.RefreshRate); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.HTTPAddress)
	})

	logger.Info().
		Int("universes", len(r.universes)).
		Str("http", cfg.HTTPAddress).
		Dur("refresh", cfg.RefreshRate).
		Msg("DMX daemon running")

	err = g.Wait()
	logger.Info().Msg("DMX daemon stopped")
	return err
}

// rig is the hardware a configuration describes: the universes with
// their ports wired in, the Art-Net node and the widgets behind them
type artnetAddr struct {
	input    bool
	universe int
}

type rig struct {
	universes []*dmx.Universe
	node      *artnet.Node
	devices   []*widget.Device
	log       zerolog.Logger
}

// newRig builds the universes of cfg. Nothing is opened until start.
func newRig(cfg *config.Config, logger zerolog.Logger) (*rig, error) {
	r := &rig{log: logger}

	if cfg.ArtNet.Enabled {
		node, err := artnet.NewNode(
			artnet.WithBindAddress(cfg.ArtNet.Bind),
			artnet.WithBroadcast(cfg.ArtNet.Broadcast),
			artnet.WithNet(uint8(cfg.ArtNet.Net)),
			artnet.WithSubNet(uint8(cfg.ArtNet.SubNet)),
			artnet.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		r.node = node
	}

	devices := make(map[string]*widget.Device)
	artnetUsers := make(map[int]int)
	// universes sharing an Art-Net address per direction
	artnetAddrs := make(map[artnetAddr]int)

	for i, uc := range cfg.Universes {
		field := fmt.Sprintf("universes[%d]", i)
		mode, err := dmx.ParseMergeMode(uc.Merge)
		if err != nil {
			return nil, fmt.Errorf("%s.merge: %w", field, err)
		}
		opts := []dmx.UniverseOption{
			dmx.WithMergeMode(mode),
			dmx.WithRefreshAll(uc.RefreshAll),
			dmx.WithLogger(logger),
		}
		if uc.Name != "" {
			opts = append(opts, dmx.WithName(uc.Name))
		}
		u, err := dmx.NewUniverse(uc.ID, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}

		wire := func(pc config.Port, input bool, where string) error {
			switch strings.ToLower(pc.Type) {
			case config.PortArtNet:
				if r.node == nil {
					return fmt.Errorf("%s: artnet port with artnet disabled: %w", where, config.ErrInvalid)
				}
				id := pc.Index * 2
				if !input {
					id++
				}
				if owner, ok := artnetUsers[id]; ok && owner != uc.ID {
					return fmt.Errorf("%s: artnet port %d is used by universe %d: %w", where, pc.Index, owner, config.ErrInvalid)
				}
				addr := artnetAddr{input: input, universe: uc.ID % 16}
				if owner, ok := artnetAddrs[addr]; ok && owner != uc.ID {
					return fmt.Errorf("%s: universe %d maps to the same artnet address as universe %d: %w", where, uc.ID, owner, config.ErrInvalid)
				}
				artnetUsers[id] = uc.ID
				artnetAddrs[addr] = uc.ID
				port, err := r.node.Port(id)
				if err != nil {
					return fmt.Errorf("%s: %w", where, err)
				}
				if err := port.SetUniverse(uc.ID); err != nil {
					return fmt.Errorf("%s: %w", where, err)
				}
				if input {
					u.AddInput(port)
				} else {
					u.AddOutput(port)
				}
				return nil

			default:
				dev, err := r.device(devices, pc)
				if err != nil {
					return fmt.Errorf("%s: %w", where, err)
				}
				if input {
					in, err := dev.InputPort()
					if err != nil {
						return fmt.Errorf("%s: %w", where, err)
					}
					u.AddInput(in)
				} else {
					u.AddOutput(dev.OutputPort())
				}
				return nil
			}
		}

		for j, pc := range uc.Inputs {
			if err := wire(pc, true, fmt.Sprintf("%s.inputs[%d]", field, j)); err != nil {
				return nil, err
			}
		}
		for j, pc := range uc.Outputs {
			if err := wire(pc, false, fmt.Sprintf("%s.outputs[%d]", field, j)); err != nil {
				return nil, err
			}
		}
		r.universes = append(r.universes, u)
	}
	return r, nil
}

// device returns the widget on pc.Path, creating it on first use. A widget
// can serve as input of one universe and output of another.
func (r *rig) device(devices map[string]*widget.Device, pc config.Port) (*widget.Device, error) {
	protocol, err := widget.ByName(strings.ToLower(pc.Type))
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", pc.Type, err)
	}
	if dev, ok := devices[pc.Path]; ok {
		if dev.Protocol().Name() != protocol.Name() {
			return nil, fmt.Errorf("%s is configured as %s and %s: %w", pc.Path, dev.Protocol().Name(), protocol.Name(), config.ErrInvalid)
		}
		return dev, nil
	}

	dev, err := widget.NewDevice("", pc.Path, protocol, widget.WithLogger(r.log))
	if err != nil {
		return nil, err
	}
	devices[pc.Path] = dev
	r.devices = append(r.devices, dev)
	return dev, nil
}

// start opens the Art-Net socket and connects every widget. Widgets that
// fail to start are logged and left out, so one unplugged widget does not
// take the other universes down.
func (r *rig) start(ctx context.Context) error {
	if r.node != nil {
		if err := r.node.Start(ctx); err != nil {
			return fmt.Errorf("artnet: %w", err)
		}
	}
	for _, dev := range r.devices {
		if err := dev.Start(ctx); err != nil {
			r.log.Error().Err(err).Str("path", dev.Path()).Msg("widget not started")
			continue
		}
		r.log.Info().Str("path", dev.Path()).Str("widget", dev.Name()).Str("serial", dev.SerialNumber()).Msg("widget started")
	}
	return nil
}

func (r *rig) stop() {
	for _, dev := range r.devices {
		if err := dev.Stop(); err != nil && !errors.Is(err, widget.ErrNotStarted) {
			r.log.Warn().Err(err).Str("path", dev.Path()).Msg("stopping widget")
		}
	}
	if r.node != nil {
		if err := r.node.Close(); err != nil {
			r.log.Warn().Err(err).Msg("closing artnet node")
		}
	}
}
