package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List responding node ids on a CAN bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			drv, err := newDriver(ctx, flags, nil, false)
			if err != nil {
				return err
			}

			devices, err := drv.DiscoverAndIdentify(ctx)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Println("no nodes responded")
				return nil
			}
			for _, d := range devices {
				fmt.Printf("%s: %s\n", d.Display, d.Info)
			}
			return nil
		},
	}
}
