package main

import (
	"github.com/spf13/cobra"
)

func newEraseCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "erase",
		Short: "Erase the application flash region",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bar := newProgressBar("erasing")
			drv, err := newDriver(ctx, flags, bar.onProgress, true)
			if err != nil {
				return err
			}
			defer drv.Close()

			if err := drv.Init(ctx); err != nil {
				return err
			}
			if err := drv.Erase(ctx); err != nil {
				return err
			}
			return bar.finish()
		},
	}
}
