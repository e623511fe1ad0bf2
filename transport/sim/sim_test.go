package sim

import (
	"context"
	"testing"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"github.com/franc0r/frankly-fw-update/transport"
	"github.com/franc0r/frankly-fw-update/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	tr := New(false)
	require.NoError(t, tr.Open(context.Background(), transport.NewOpenParams("sim")))
	defer tr.Close()

	tr.AddResponse(wire.Message{Request: wire.Ping, Result: wire.ResOk, PacketID: 0})

	require.NoError(t, tr.Send(context.Background(), wire.NewRequest(wire.Ping, 0, 0)))
	resp, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wire.ResOk, resp.Result)

	require.Len(t, tr.Sent, 1)
	assert.Equal(t, wire.Ping, tr.Sent[0].Request)
}

func TestHandlerComputesResponse(t *testing.T) {
	tr := New(false)
	tr.Handler = func(req wire.Message) (wire.Message, error) {
		return wire.Message{Request: req.Request, Result: wire.ResOk, PacketID: req.PacketID, Payload: 0xAABBCCDD}, nil
	}
	require.NoError(t, tr.Open(context.Background(), transport.NewOpenParams("sim")))

	require.NoError(t, tr.Send(context.Background(), wire.NewRequest(wire.DevInfoUID, 7, 0)))
	resp, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(0xAABBCCDD), resp.Payload)
	assert.Equal(t, uint8(7), resp.PacketID)
}

func TestRecvTimeout(t *testing.T) {
	tr := New(false)
	require.NoError(t, tr.Open(context.Background(), transport.NewOpenParams("sim")))

	tr.SetRecvTimeout()
	_, err := tr.Receive(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.ComNoResponse))
}

func TestSendErrorInjection(t *testing.T) {
	tr := New(false)
	require.NoError(t, tr.Open(context.Background(), transport.NewOpenParams("sim")))

	injected := ferrors.New(ferrors.ComError, "simulated cable pull")
	tr.SetSendError(injected)

	err := tr.Send(context.Background(), wire.NewRequest(wire.Ping, 0, 0))
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.ComError))

	require.NoError(t, tr.Send(context.Background(), wire.NewRequest(wire.Ping, 1, 0)))
}

func TestNetworkModeRejectedOnPointToPoint(t *testing.T) {
	tr := New(false)
	err := tr.SetMode(transport.Broadcast())
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.NotSupported))

	_, err = tr.ScanNetwork(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.NotSupported))
}

func TestScanNetworkReturnsConfiguredNodes(t *testing.T) {
	tr := New(true)
	require.NoError(t, tr.Open(context.Background(), transport.NewOpenParams("can0")))
	tr.SetScanResult([]uint8{0, 2, 5})

	ids, err := tr.ScanNetwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 2, 5}, ids)
}
