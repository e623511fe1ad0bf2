package main

import "github.com/spf13/cobra"

func newResetCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the device back to the bootloader",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			drv, err := newDriver(ctx, flags, nil, true)
			if err != nil {
				return err
			}
			defer drv.Close()

			return drv.Reset(ctx)
		},
	}
}
