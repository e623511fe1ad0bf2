package main

import (
	"strings"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"go.bug.st/serial/enumerator"
)

var errBothBusFlags = ferrors.New(ferrors.Error, "specify only one of --port or --can")

// preferredVIDs lists USB vendor ids of common microcontroller boards and
// USB-serial adapters, used to auto-select --port=auto.
var preferredVIDs = map[string]bool{
	"2341": true, // Arduino
	"1A86": true, // QinHeng CH340
	"0403": true, // FTDI
	"10C4": true, // Silicon Labs CP210x
}

// autoSelectPort returns the first USB serial port whose vendor id looks
// like a microcontroller board.
func autoSelectPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", ferrors.Wrap(ferrors.Error, err, "enumerating serial ports")
	}
	for _, p := range ports {
		if p.IsUSB && preferredVIDs[strings.ToUpper(p.VID)] {
			return p.Name, nil
		}
	}
	return "", ferrors.New(ferrors.Error, "no USB serial port found for auto-select")
}
