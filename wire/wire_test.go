package wire

import (
	"testing"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrameLayout(t *testing.T) {
	m := Message{Request: Ping, Result: ResOk, PacketID: 5, Payload: 0x01020304}
	buf := Encode(m)
	assert.Equal(t, [8]byte{0x01, 0x00, 0x01, 0x05, 0x04, 0x03, 0x02, 0x01}, buf)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Message{
		{Request: Ping, Result: ResNone, PacketID: 0, Payload: 0},
		{Request: FlashWriteAppCRC, Result: ResOk, PacketID: 255, Payload: 0xDEADBEEF},
		{Request: DevInfoUID, Result: ResErrInvldArg, PacketID: 128, Payload: 0x00000001},
	}
	for _, m := range cases {
		buf := Encode(m)
		got, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestDecodeUnknownRequest(t *testing.T) {
	buf := [8]byte{0xFF, 0xFF, 0x01, 0x00, 0, 0, 0, 0}
	_, err := Decode(buf)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.MsgCorruption))
}

func TestDecodeUnknownResult(t *testing.T) {
	buf := [8]byte{0x01, 0x00, 0x77, 0x00, 0, 0, 0, 0}
	_, err := Decode(buf)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.MsgCorruption))
}

func TestIsResponseOK(t *testing.T) {
	req := NewRequest(Ping, 3, 0)

	okResp := Message{Request: Ping, Result: ResOk, PacketID: 3}
	assert.NoError(t, IsResponseOK(req, okResp))

	wrongPacket := Message{Request: Ping, Result: ResOk, PacketID: 4}
	err := IsResponseOK(req, wrongPacket)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.MsgCorruption))

	wrongRequest := Message{Request: ResetDevice, Result: ResOk, PacketID: 3}
	err = IsResponseOK(req, wrongRequest)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.MsgCorruption))

	errResult := Message{Request: Ping, Result: ResErrInvldArg, PacketID: 3}
	err = IsResponseOK(req, errResult)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.ResultError))
}

func TestIsResponseDataOK(t *testing.T) {
	req := NewRequest(PageBufferWriteWord, 1, 0x11223344)

	match := Message{Request: PageBufferWriteWord, Result: ResOk, PacketID: 1, Payload: 0x11223344}
	assert.NoError(t, IsResponseDataOK(req, match))

	mismatch := Message{Request: PageBufferWriteWord, Result: ResOk, PacketID: 1, Payload: 0x11223345}
	err := IsResponseDataOK(req, mismatch)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.MsgCorruption))
}

func TestResultIsSuccess(t *testing.T) {
	assert.True(t, ResNone.IsSuccess())
	assert.True(t, ResOk.IsSuccess())
	assert.False(t, ResError.IsSuccess())
	assert.False(t, ResErrCRCInvld.IsSuccess())
}
