// Package sim provides an in-memory transport.Transport used by device
// driver tests, standing in for a real serial or CAN link.
package sim

import (
	"context"
	"time"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"github.com/franc0r/frankly-fw-update/transport"
	"github.com/franc0r/frankly-fw-update/wire"
	"github.com/rs/zerolog"
)

// Handler computes the response a simulated device would give to req.
type Handler func(req wire.Message) (wire.Message, error)

// Transport is a scriptable transport.Transport: responses are either
// computed by a Handler or drawn from a pre-seeded queue, and single-shot
// send/receive errors can be injected between any two operations.
type Transport struct {
	open bool

	Handler  Handler
	queue    []wire.Message
	sendErr  error
	recvErr  error
	recvNone bool

	isNetwork bool
	scanIDs   []uint8
	mode      transport.Mode
	timeout   time.Duration
	logger    zerolog.Logger

	// Sent records every message handed to Send, in order, for
	// assertions in driver tests.
	Sent []wire.Message
}

// New returns a closed simulated transport. isNetwork determines whether
// ScanNetwork/SetMode behave as on a CAN bus (true) or are rejected as
// NotSupported (false), matching a real serial transport.
func New(isNetwork bool) *Transport {
	return &Transport{isNetwork: isNetwork, timeout: transport.DefaultTimeout, logger: zerolog.Nop()}
}

// SetLogger installs the logger used for per-frame Debug logging.
func (t *Transport) SetLogger(logger zerolog.Logger) { t.logger = logger }

// AddResponse appends a canned response to the reply queue, consumed in
// FIFO order by Receive. Responses computed by a Handler are appended to
// the same queue by Send.
func (t *Transport) AddResponse(msg wire.Message) {
	t.queue = append(t.queue, msg)
}

// SetSendError makes the next Send call fail with err, then clears.
func (t *Transport) SetSendError(err error) { t.sendErr = err }

// SetRecvError makes the next Receive call fail with err, then clears.
func (t *Transport) SetRecvError(err error) { t.recvErr = err }

// SetRecvTimeout makes the next Receive call fail with ComNoResponse,
// then clears.
func (t *Transport) SetRecvTimeout() { t.recvNone = true }

// SetScanResult configures the node ids ScanNetwork returns.
func (t *Transport) SetScanResult(ids []uint8) { t.scanIDs = ids }

func (t *Transport) Open(ctx context.Context, params transport.OpenParams) error {
	if params.Timeout != 0 {
		t.timeout = params.Timeout
	}
	t.open = true
	return nil
}

func (t *Transport) IsNetwork() bool { return t.isNetwork }

func (t *Transport) ScanNetwork(ctx context.Context) ([]uint8, error) {
	if !t.isNetwork {
		return nil, ferrors.New(ferrors.NotSupported, "simulated point-to-point transport does not support network scan")
	}
	return t.scanIDs, nil
}

func (t *Transport) SetMode(mode transport.Mode) error {
	if !t.isNetwork {
		return ferrors.New(ferrors.NotSupported, "simulated point-to-point transport does not support addressing modes")
	}
	t.mode = mode
	return nil
}

func (t *Transport) SetTimeout(d time.Duration) error {
	t.timeout = d
	return nil
}

func (t *Transport) GetTimeout() time.Duration { return t.timeout }

func (t *Transport) Send(ctx context.Context, msg wire.Message) error {
	if !t.open {
		return ferrors.New(ferrors.ComError, "simulated transport not open")
	}
	if t.sendErr != nil {
		err := t.sendErr
		t.sendErr = nil
		return err
	}
	t.Sent = append(t.Sent, msg)
	t.logger.Debug().Stringer("request", msg.Request).Uint8("packet_id", msg.PacketID).
		Uint32("payload", msg.Payload).Msg("sent frame")

	if t.Handler != nil {
		resp, err := t.Handler(msg)
		if err != nil {
			return err
		}
		t.queue = append(t.queue, resp)
	}
	return nil
}

func (t *Transport) Receive(ctx context.Context) (wire.Message, error) {
	if !t.open {
		return wire.Message{}, ferrors.New(ferrors.ComError, "simulated transport not open")
	}
	if t.recvErr != nil {
		err := t.recvErr
		t.recvErr = nil
		return wire.Message{}, err
	}
	if t.recvNone {
		t.recvNone = false
		return wire.Message{}, ferrors.New(ferrors.ComNoResponse, "simulated receive timeout")
	}
	if len(t.queue) == 0 {
		return wire.Message{}, ferrors.New(ferrors.ComNoResponse, "no simulated response queued")
	}

	resp := t.queue[0]
	t.queue = t.queue[1:]
	t.logger.Debug().Stringer("request", resp.Request).Stringer("result", resp.Result).
		Uint8("packet_id", resp.PacketID).Uint32("payload", resp.Payload).Msg("received frame")
	return resp, nil
}

func (t *Transport) Close() error {
	t.open = false
	return nil
}

var _ transport.Transport = (*Transport)(nil)
