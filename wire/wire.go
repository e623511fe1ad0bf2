// Package wire implements the Frankly bootloader's fixed 8-byte message
// frame: encode/decode, the request and result code enumerations, and the
// two response validators the device driver builds on.
//
// Frame layout, offset 0..7, all integers little-endian:
//
//	[0-1] request code  u16
//	[2]   result code   u8
//	[3]   packet id     u8
//	[4-7] payload       u32
package wire

import (
	"encoding/binary"

	"github.com/franc0r/frankly-fw-update/ferrors"
)

// Request is the 16-bit request code enumeration. Numeric values are part
// of the wire contract and must not change.
type Request uint16

const (
	Ping        Request = 0x0001
	ResetDevice Request = 0x0011
	StartApp    Request = 0x0012

	DevInfoBootloaderVersion Request = 0x0101
	DevInfoBootloaderCRC     Request = 0x0102
	DevInfoVID               Request = 0x0103
	DevInfoPID               Request = 0x0104
	DevInfoPRD               Request = 0x0105
	DevInfoUID               Request = 0x0106

	FlashInfoStartAddr Request = 0x0201
	FlashInfoPageSize  Request = 0x0202
	FlashInfoNumPages  Request = 0x0203

	AppInfoPageIdx Request = 0x0301
	AppInfoCRCCalc Request = 0x0302
	AppInfoCRCStrd Request = 0x0303

	FlashReadWord Request = 0x0401

	PageBufferClear        Request = 0x1001
	PageBufferReadWord     Request = 0x1002
	PageBufferWriteWord    Request = 0x1003
	PageBufferCalcCRC      Request = 0x1004
	PageBufferWriteToFlash Request = 0x1005

	FlashWriteErasePage Request = 0x1101
	FlashWriteAppCRC    Request = 0x1102
)

var requestNames = map[Request]string{
	Ping:                     "Ping",
	ResetDevice:              "ResetDevice",
	StartApp:                 "StartApp",
	DevInfoBootloaderVersion: "DevInfoBootloaderVersion",
	DevInfoBootloaderCRC:     "DevInfoBootloaderCRC",
	DevInfoVID:               "DevInfoVID",
	DevInfoPID:               "DevInfoPID",
	DevInfoPRD:               "DevInfoPRD",
	DevInfoUID:               "DevInfoUID",
	FlashInfoStartAddr:       "FlashInfoStartAddr",
	FlashInfoPageSize:        "FlashInfoPageSize",
	FlashInfoNumPages:        "FlashInfoNumPages",
	AppInfoPageIdx:           "AppInfoPageIdx",
	AppInfoCRCCalc:           "AppInfoCRCCalc",
	AppInfoCRCStrd:           "AppInfoCRCStrd",
	FlashReadWord:            "FlashReadWord",
	PageBufferClear:          "PageBufferClear",
	PageBufferReadWord:       "PageBufferReadWord",
	PageBufferWriteWord:      "PageBufferWriteWord",
	PageBufferCalcCRC:        "PageBufferCalcCRC",
	PageBufferWriteToFlash:   "PageBufferWriteToFlash",
	FlashWriteErasePage:      "FlashWriteErasePage",
	FlashWriteAppCRC:         "FlashWriteAppCRC",
}

func (r Request) String() string {
	if name, ok := requestNames[r]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether r is a known request code.
func (r Request) Valid() bool {
	_, ok := requestNames[r]
	return ok
}

// Result is the 8-bit result code enumeration.
type Result uint8

const (
	ResNone            Result = 0x00
	ResOk              Result = 0x01
	ResError           Result = 0xFE
	ResErrUnknownReq   Result = 0xFD
	ResErrNotSupported Result = 0xFC
	ResErrCRCInvld     Result = 0xFB
	ResAckPageFull     Result = 0xFA
	ResErrPageFull     Result = 0xF9
	ResErrInvldArg     Result = 0xF8
)

var resultNames = map[Result]string{
	ResNone:            "None",
	ResOk:              "Ok",
	ResError:           "Error",
	ResErrUnknownReq:   "ErrUnknownReq",
	ResErrNotSupported: "ErrNotSupported",
	ResErrCRCInvld:     "ErrCRCInvld",
	ResAckPageFull:     "AckPageFull",
	ResErrPageFull:     "ErrPageFull",
	ResErrInvldArg:     "ErrInvldArg",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether r is a known result code.
func (r Result) Valid() bool {
	_, ok := resultNames[r]
	return ok
}

// IsSuccess reports whether r counts as a successful result.
func (r Result) IsSuccess() bool {
	return r == ResNone || r == ResOk
}

// Message is one 8-byte protocol frame, decoded.
type Message struct {
	Request  Request
	Result   Result
	PacketID uint8
	Payload  uint32
}

// NewRequest builds a request-side message: Result is always ResNone.
func NewRequest(req Request, packetID uint8, payload uint32) Message {
	return Message{Request: req, Result: ResNone, PacketID: packetID, Payload: payload}
}

// Encode packs m into its 8-byte wire representation.
func Encode(m Message) [8]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint16(buf[0:2], uint16(m.Request))
	buf[2] = byte(m.Result)
	buf[3] = m.PacketID
	binary.LittleEndian.PutUint32(buf[4:8], m.Payload)
	return buf
}

// Decode unpacks an 8-byte wire frame into a Message. An unknown request
// or result code is an error, never a silent default.
func Decode(buf [8]byte) (Message, error) {
	req := Request(binary.LittleEndian.Uint16(buf[0:2]))
	if !req.Valid() {
		return Message{}, ferrors.New(ferrors.MsgCorruption, "unknown request code %#04x", uint16(req))
	}
	res := Result(buf[2])
	if !res.Valid() {
		return Message{}, ferrors.New(ferrors.MsgCorruption, "unknown result code %#02x", uint8(res))
	}
	return Message{
		Request:  req,
		Result:   res,
		PacketID: buf[3],
		Payload:  binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

// IsResponseOK validates that response answers request: same request code,
// a successful result code, and a matching packet id.
func IsResponseOK(request, response Message) error {
	if request.Request != response.Request || request.PacketID != response.PacketID {
		return ferrors.New(ferrors.MsgCorruption,
			"response mismatch: sent %s/pid=%d, got %s/pid=%d",
			request.Request, request.PacketID, response.Request, response.PacketID)
	}
	if !response.Result.IsSuccess() {
		return ferrors.New(ferrors.ResultError, "device returned %s for %s", response.Result, request.Request)
	}
	return nil
}

// IsResponseDataOK validates that response echoes the payload request
// wrote. Used after write-like requests.
func IsResponseDataOK(request, response Message) error {
	if response.Payload != request.Payload {
		return ferrors.New(ferrors.MsgCorruption,
			"echoed payload mismatch for %s: sent %#08x, got %#08x",
			request.Request, request.Payload, response.Payload)
	}
	return nil
}
