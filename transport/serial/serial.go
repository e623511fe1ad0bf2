// Package serial drives the Frankly bootloader over a point-to-point
// serial port using go.bug.st/serial.
package serial

import (
	"context"
	"io"
	"time"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"github.com/franc0r/frankly-fw-update/transport"
	"github.com/franc0r/frankly-fw-update/wire"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// Transport implements transport.Transport over a serial port. The
// bootloader never uses more than one node per port, so SetMode and
// ScanNetwork are not supported.
type Transport struct {
	port    serial.Port
	timeout time.Duration
	logger  zerolog.Logger
}

// New returns an unopened serial transport.
func New() *Transport {
	return &Transport{timeout: transport.DefaultTimeout, logger: zerolog.Nop()}
}

// SetLogger installs the logger used for per-frame Debug logging.
func (t *Transport) SetLogger(logger zerolog.Logger) { t.logger = logger }

func (t *Transport) Open(ctx context.Context, params transport.OpenParams) error {
	if params.Name == "" {
		return ferrors.New(ferrors.Error, "serial port name not set")
	}
	baud := params.Baud
	if baud == 0 {
		baud = 115200
	}

	timeout := params.Timeout
	if timeout == 0 {
		timeout = transport.DefaultTimeout
	}

	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(params.Name, mode)
	if err != nil {
		return ferrors.Wrap(ferrors.ComError, err, "opening serial port %q", params.Name)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return ferrors.Wrap(ferrors.ComError, err, "setting serial read timeout")
	}

	t.port = port
	t.timeout = timeout
	return nil
}

func (t *Transport) IsNetwork() bool { return false }

func (t *Transport) ScanNetwork(ctx context.Context) ([]uint8, error) {
	return nil, ferrors.New(ferrors.NotSupported, "serial transport does not support network scan")
}

func (t *Transport) SetMode(mode transport.Mode) error {
	return ferrors.New(ferrors.NotSupported, "serial transport does not support addressing modes")
}

func (t *Transport) SetTimeout(d time.Duration) error {
	if t.port == nil {
		return ferrors.New(ferrors.ComError, "serial port not open")
	}
	if err := t.port.SetReadTimeout(d); err != nil {
		return ferrors.Wrap(ferrors.ComError, err, "setting serial read timeout")
	}
	t.timeout = d
	return nil
}

func (t *Transport) GetTimeout() time.Duration { return t.timeout }

func (t *Transport) Send(ctx context.Context, msg wire.Message) error {
	if t.port == nil {
		return ferrors.New(ferrors.ComError, "serial port not open")
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return ferrors.Wrap(ferrors.ComError, err, "clearing serial input buffer")
	}
	if err := t.port.ResetOutputBuffer(); err != nil {
		return ferrors.Wrap(ferrors.ComError, err, "clearing serial output buffer")
	}

	buf := wire.Encode(msg)
	if _, err := t.port.Write(buf[:]); err != nil {
		return ferrors.Wrap(ferrors.ComError, err, "writing to serial port")
	}
	t.logger.Debug().Stringer("request", msg.Request).Uint8("packet_id", msg.PacketID).
		Uint32("payload", msg.Payload).Msg("sent frame")
	return nil
}

func (t *Transport) Receive(ctx context.Context) (wire.Message, error) {
	if t.port == nil {
		return wire.Message{}, ferrors.New(ferrors.ComError, "serial port not open")
	}

	var buf [8]byte
	read := 0
	for read < len(buf) {
		n, err := t.port.Read(buf[read:])
		if err != nil {
			if err == io.EOF {
				return wire.Message{}, ferrors.Wrap(ferrors.ComNoResponse, err, "no response from serial port")
			}
			return wire.Message{}, ferrors.Wrap(ferrors.ComError, err, "reading from serial port")
		}
		if n == 0 {
			// go.bug.st/serial returns a zero-length read when the
			// configured read timeout elapses with no data.
			return wire.Message{}, ferrors.New(ferrors.ComNoResponse, "timed out waiting for response")
		}
		read += n
	}

	msg, err := wire.Decode(buf)
	if err != nil {
		return wire.Message{}, err
	}
	t.logger.Debug().Stringer("request", msg.Request).Stringer("result", msg.Result).
		Uint8("packet_id", msg.PacketID).Uint32("payload", msg.Payload).Msg("received frame")
	return msg, nil
}

func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return ferrors.Wrap(ferrors.ComError, err, "closing serial port")
	}
	return nil
}

var _ transport.Transport = (*Transport)(nil)
