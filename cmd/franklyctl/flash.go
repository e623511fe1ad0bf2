package main

import (
	"github.com/franc0r/frankly-fw-update/firmware/hexfile"
	"github.com/spf13/cobra"
)

func newFlashCmd(flags *connFlags) *cobra.Command {
	var hexPath string

	cmd := &cobra.Command{
		Use:   "flash",
		Short: "Flash an Intel-HEX firmware image and start the application",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hexfile.ParseFile(hexPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			bar := newProgressBar("flashing")
			drv, err := newDriver(ctx, flags, bar.onProgress, true)
			if err != nil {
				return err
			}
			defer drv.Close()

			if err := drv.Init(ctx); err != nil {
				return err
			}
			if err := drv.Flash(ctx, data); err != nil {
				return err
			}
			return bar.finish()
		},
	}

	cmd.Flags().StringVar(&hexPath, "hex", "", "path to the Intel-HEX firmware image")
	cmd.MarkFlagRequired("hex")
	return cmd
}
