// Package hexfile parses Intel-HEX firmware images into the sparse
// address→byte map the firmware assembler consumes.
package hexfile

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/franc0r/frankly-fw-update/ferrors"
)

const lineMinChars = 10

// recordType is the Intel-HEX record type byte.
type recordType byte

const (
	recordData                   recordType = 0x00
	recordEndOfFile              recordType = 0x01
	recordExtendedSegmentAddress recordType = 0x02
	recordStartSegmentAddress    recordType = 0x03
	recordExtendedLinearAddress  recordType = 0x04
	recordStartLinearAddress     recordType = 0x05
)

func recordTypeFromByte(b byte) (recordType, bool) {
	switch recordType(b) {
	case recordData, recordEndOfFile, recordExtendedSegmentAddress,
		recordStartSegmentAddress, recordExtendedLinearAddress, recordStartLinearAddress:
		return recordType(b), true
	default:
		return 0, false
	}
}

// record is one decoded Intel-HEX line (without its leading ':').
type record struct {
	byteCount  uint8
	offset     uint16
	recordType recordType
	data       []byte
	checksum   uint8
}

// parseRecord decodes a single hex line (leading ':' already stripped).
func parseRecord(line string) (record, error) {
	if len(line) < lineMinChars {
		return record{}, ferrors.New(ferrors.Error, "hex record too short: %q", line)
	}

	byteCountRaw, err := strconv.ParseUint(line[0:2], 16, 8)
	if err != nil {
		return record{}, ferrors.Wrap(ferrors.Error, err, "parsing byte count in %q", line)
	}
	byteCount := uint8(byteCountRaw)

	expectedLen := int(byteCount)*2 + lineMinChars
	if len(line) != expectedLen {
		return record{}, ferrors.New(ferrors.Error,
			"hex record byte count %d implies line length %d, got %d", byteCount, expectedLen, len(line))
	}

	offsetRaw, err := strconv.ParseUint(line[2:6], 16, 16)
	if err != nil {
		return record{}, ferrors.Wrap(ferrors.Error, err, "parsing offset in %q", line)
	}
	offset := uint16(offsetRaw)

	recordTypeRaw, err := strconv.ParseUint(line[6:8], 16, 8)
	if err != nil {
		return record{}, ferrors.Wrap(ferrors.Error, err, "parsing record type in %q", line)
	}
	rt, ok := recordTypeFromByte(byte(recordTypeRaw))
	if !ok {
		return record{}, ferrors.New(ferrors.Error, "unknown hex record type %#02x", recordTypeRaw)
	}

	data := make([]byte, byteCount)
	for i := 0; i < int(byteCount); i++ {
		b, err := strconv.ParseUint(line[8+i*2:10+i*2], 16, 8)
		if err != nil {
			return record{}, ferrors.Wrap(ferrors.Error, err, "parsing data byte %d in %q", i, line)
		}
		data[i] = byte(b)
	}

	checksumRaw, err := strconv.ParseUint(line[8+int(byteCount)*2:10+int(byteCount)*2], 16, 8)
	if err != nil {
		return record{}, ferrors.Wrap(ferrors.Error, err, "parsing checksum in %q", line)
	}
	checksum := uint8(checksumRaw)

	var sum uint16
	sum += uint16(byteCount)
	sum += uint16(offset >> 8)
	sum += uint16(offset & 0xFF)
	sum += uint16(recordTypeRaw)
	for _, b := range data {
		sum += uint16(b)
	}
	calcChecksum := uint8((^sum + 1) & 0x00FF)

	if calcChecksum != checksum {
		return record{}, ferrors.New(ferrors.Error,
			"hex record checksum mismatch: calculated %#02x, got %#02x", calcChecksum, checksum)
	}

	return record{
		byteCount:  byteCount,
		offset:     offset,
		recordType: rt,
		data:       data,
		checksum:   checksum,
	}, nil
}

// Parse reads an Intel-HEX stream and returns the sparse address→byte map
// it encodes. Accepts LF and CRLF line endings.
func Parse(r io.Reader) (map[uint32]byte, error) {
	var records []record

	scanner := bufio.NewScanner(r)
	lineIdx := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) > 0 && line[0] == ':' {
			rec, err := parseRecord(line[1:])
			if err != nil {
				return nil, ferrors.Wrap(ferrors.Error, err, "hex parse error at line %d", lineIdx)
			}
			records = append(records, rec)
		}
		lineIdx++
	}
	if err := scanner.Err(); err != nil {
		return nil, ferrors.Wrap(ferrors.Error, err, "reading hex stream")
	}

	data := make(map[uint32]byte)
	var addressExtended uint32
	for _, rec := range records {
		switch rec.recordType {
		case recordExtendedLinearAddress:
			addressExtended = uint32(rec.data[0])<<24 | uint32(rec.data[1])<<16
		case recordData:
			address := addressExtended | uint32(rec.offset)
			for i, b := range rec.data {
				data[address+uint32(i)] = b
			}
		case recordEndOfFile:
			goto done
		}
	}
done:

	if len(data) == 0 {
		return nil, ferrors.New(ferrors.Error, "hex stream does not contain any valid data")
	}

	return data, nil
}

// ParseFile opens path and parses it as an Intel-HEX file.
func ParseFile(path string) (map[uint32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.Error, err, "opening hex file %q", path)
	}
	defer f.Close()

	return Parse(f)
}
