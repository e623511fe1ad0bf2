// Command franklyctl is a thin CLI front end for the Frankly bootloader
// host library: scan a bus for devices, read their identity info, erase
// and flash the application region, or reset back to the bootloader.
package main

import (
	"os"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
