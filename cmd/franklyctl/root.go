package main

import (
	"context"
	"time"

	"github.com/franc0r/frankly-fw-update/device"
	"github.com/franc0r/frankly-fw-update/transport"
	"github.com/franc0r/frankly-fw-update/transport/can"
	"github.com/franc0r/frankly-fw-update/transport/serial"
	"github.com/spf13/cobra"
)

// connFlags are the bus-selection flags shared by every subcommand that
// needs a live transport.
type connFlags struct {
	port    string
	canIf   string
	baud    int
	timeout time.Duration
	node    uint8
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "franklyctl",
		Short:         "Host tool for the Frankly bootloader",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := &connFlags{}
	root.PersistentFlags().StringVar(&flags.port, "port", "", "serial port (e.g. /dev/ttyUSB0), or \"auto\" to pick the first USB serial port from a known board/adapter vendor")
	root.PersistentFlags().StringVar(&flags.canIf, "can", "", "SocketCAN interface name (e.g. can0); mutually exclusive with --port")
	root.PersistentFlags().IntVar(&flags.baud, "baud", 115200, "serial baud rate")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", transport.DefaultTimeout, "per-request receive timeout")
	root.PersistentFlags().Uint8Var(&flags.node, "node", 0, "CAN node id to address (ignored for --port)")

	root.AddCommand(
		newScanCmd(flags),
		newInfoCmd(flags),
		newEraseCmd(flags),
		newFlashCmd(flags),
		newResetCmd(flags),
	)
	return root
}

// selectTransport picks the unopened transport implementation named by
// flags. Exactly one of --port/--can is expected to be set.
func selectTransport(flags *connFlags) (transport.Transport, transport.OpenParams, error) {
	switch {
	case flags.port != "" && flags.canIf != "":
		return nil, transport.OpenParams{}, errBothBusFlags
	case flags.canIf != "":
		params := transport.NewOpenParams(flags.canIf, transport.WithTimeout(flags.timeout))
		return can.New(), params, nil
	default:
		port := flags.port
		if port == "auto" {
			name, err := autoSelectPort()
			if err != nil {
				return nil, transport.OpenParams{}, err
			}
			port = name
		}
		params := transport.NewOpenParams(port, transport.WithBaud(flags.baud), transport.WithTimeout(flags.timeout))
		return serial.New(), params, nil
	}
}

// newDriver opens the transport selected by flags and returns a Driver over
// it. progress renders Erase/Flash events, or nil. When single is true and
// the transport is a network (CAN), it is switched to address flags.node
// before returning; scan leaves addressing at the transport's default
// (broadcast) so it can see every node.
func newDriver(ctx context.Context, flags *connFlags, progress device.ProgressFunc, single bool) (*device.Driver, error) {
	tr, params, err := selectTransport(flags)
	if err != nil {
		return nil, err
	}
	tr.SetLogger(log)

	drv := device.NewDriver(tr, progress)
	drv.SetLogger(log)
	if err := drv.Open(ctx, params); err != nil {
		return nil, err
	}
	if single && tr.IsNetwork() {
		if err := tr.SetMode(transport.Specific(flags.node)); err != nil {
			return nil, err
		}
	}
	return drv, nil
}
