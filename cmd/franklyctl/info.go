package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInfoCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Read the identity and flash layout of one device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			drv, err := newDriver(ctx, flags, nil, true)
			if err != nil {
				return err
			}
			defer drv.Close()

			dev, err := drv.Identify(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n%s\n", dev.Display, dev.Info)

			if err := drv.Init(ctx); err != nil {
				return err
			}
			fmt.Println("flash layout initialized")
			return nil
		},
	}
}
