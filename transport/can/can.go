// Package can drives the Frankly bootloader over a SocketCAN bus using
// go.einride.tech/can.
package can

import (
	"context"
	"time"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"github.com/franc0r/frankly-fw-update/transport"
	"github.com/franc0r/frankly-fw-update/wire"
	"github.com/rs/zerolog"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// BaseID is the CAN arbitration id of a response from node 0; node N
// answers on BaseID + 2N.
const BaseID uint32 = 0x781

// BroadcastID is the CAN arbitration id every node listens on for
// requests.
const BroadcastID uint32 = 0x780

// MaxID is the highest standard (11-bit) CAN arbitration id.
const MaxID uint32 = 0x7FF

// Transport implements transport.Transport over a SocketCAN interface.
type Transport struct {
	conn     *socketcan.Conn
	sender   *socketcan.Sender
	receiver *socketcan.Receiver
	timeout  time.Duration
	mode     transport.Mode
	logger   zerolog.Logger
}

// New returns an unopened CAN transport.
func New() *Transport {
	return &Transport{timeout: transport.DefaultTimeout, mode: transport.Broadcast(), logger: zerolog.Nop()}
}

// SetLogger installs the logger used for per-frame Debug logging.
func (t *Transport) SetLogger(logger zerolog.Logger) { t.logger = logger }

func (t *Transport) Open(ctx context.Context, params transport.OpenParams) error {
	if params.Name == "" {
		return ferrors.New(ferrors.Error, "CAN interface name not set")
	}
	timeout := params.Timeout
	if timeout == 0 {
		timeout = transport.DefaultTimeout
	}

	conn, err := socketcan.DialContext(ctx, "can", params.Name)
	if err != nil {
		return ferrors.Wrap(ferrors.ComError, err, "opening CAN interface %q", params.Name)
	}

	t.conn = conn
	t.sender = socketcan.NewSender(conn)
	t.receiver = socketcan.NewReceiver(conn)
	t.timeout = timeout
	t.mode = transport.Broadcast()

	// Drain any frames already queued on the bus before the first scan
	// or receive, mirroring the original driver's open-time flush.
	t.drain(ctx)

	return nil
}

func (t *Transport) drain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	for t.receiver.ReceiveContext(drainCtx) {
	}
}

func (t *Transport) IsNetwork() bool { return true }

func (t *Transport) ScanNetwork(ctx context.Context) ([]uint8, error) {
	if t.conn == nil {
		return nil, ferrors.New(ferrors.ComError, "CAN interface not open")
	}
	if err := t.SetMode(transport.Broadcast()); err != nil {
		return nil, err
	}

	if err := t.Send(ctx, wire.NewRequest(wire.Ping, 0, 0)); err != nil {
		return nil, err
	}

	var nodeIDs []uint8
	for {
		recvCtx, cancel := context.WithTimeout(ctx, t.timeout)
		ok := t.receiver.ReceiveContext(recvCtx)
		cancel()
		if !ok {
			break
		}

		frame := t.receiver.Frame()
		if frame.IsRemote || frame.IsExtended {
			continue
		}

		msg, err := frameToMessage(frame)
		if err != nil {
			continue
		}
		if wire.IsResponseOK(wire.NewRequest(wire.Ping, 0, 0), msg) != nil {
			continue
		}

		nodeID := uint8((uint32(frame.ID) - BaseID) / 2)
		nodeIDs = append(nodeIDs, nodeID)
	}

	return nodeIDs, nil
}

func (t *Transport) SetMode(mode transport.Mode) error {
	t.mode = mode
	return nil
}

func (t *Transport) SetTimeout(d time.Duration) error {
	t.timeout = d
	return nil
}

func (t *Transport) GetTimeout() time.Duration { return t.timeout }

func (t *Transport) Send(ctx context.Context, msg wire.Message) error {
	if t.sender == nil {
		return ferrors.New(ferrors.ComError, "CAN interface not open")
	}

	buf := wire.Encode(msg)
	frame := can.Frame{
		ID:     BroadcastID,
		Length: uint8(len(buf)),
	}
	copy(frame.Data[:], buf[:])

	if err := t.sender.TransmitFrame(ctx, frame); err != nil {
		return ferrors.Wrap(ferrors.ComError, err, "transmitting CAN frame")
	}
	t.logger.Debug().Stringer("request", msg.Request).Uint8("packet_id", msg.PacketID).
		Uint32("payload", msg.Payload).Uint32("arbitration_id", frame.ID).Msg("sent frame")
	return nil
}

func (t *Transport) Receive(ctx context.Context) (wire.Message, error) {
	if t.receiver == nil {
		return wire.Message{}, ferrors.New(ferrors.ComError, "CAN interface not open")
	}

	recvCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	wantID, filtered := t.expectedResponseID()

	for {
		if !t.receiver.ReceiveContext(recvCtx) {
			return wire.Message{}, ferrors.New(ferrors.ComNoResponse, "timed out waiting for CAN response")
		}
		frame := t.receiver.Frame()
		if frame.IsRemote || frame.IsExtended {
			continue
		}
		if filtered && frame.ID != wantID {
			continue
		}
		msg, err := frameToMessage(frame)
		if err != nil {
			return wire.Message{}, err
		}
		t.logger.Debug().Stringer("request", msg.Request).Stringer("result", msg.Result).
			Uint8("packet_id", msg.PacketID).Uint32("payload", msg.Payload).Uint32("arbitration_id", frame.ID).
			Msg("received frame")
		return msg, nil
	}
}

// expectedResponseID returns the arbitration id this transport should
// accept responses on for the current mode, and whether filtering by id
// applies at all (it does not in broadcast mode, where any node may
// answer).
func (t *Transport) expectedResponseID() (id uint32, filtered bool) {
	if t.mode.IsBroadcast() {
		return 0, false
	}
	return BaseID + uint32(t.mode.NodeID())*2, true
}

func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.sender = nil
	t.receiver = nil
	if err != nil {
		return ferrors.Wrap(ferrors.ComError, err, "closing CAN interface")
	}
	return nil
}

func frameToMessage(frame can.Frame) (wire.Message, error) {
	var buf [8]byte
	copy(buf[:], frame.Data[:frame.Length])
	return wire.Decode(buf)
}

var _ transport.Transport = (*Transport)(nil)
