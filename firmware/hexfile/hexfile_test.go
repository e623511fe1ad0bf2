package hexfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expectedStart = 0x08002000

var expectedData = []byte{
	0x00, 0x00, 0x01, 0x20, 0x09, 0x23, 0x00, 0x08, 0xD1, 0x22, 0x00, 0x08, 0xD5, 0x22,
	0x00, 0x08, 0xD9, 0x22, 0x00, 0x08, 0xDD, 0x22, 0x00, 0x08, 0xE1, 0x22, 0x00, 0x08,
	0x00, 0x00, 0x00, 0x00,
}

func assertExpectedMap(t *testing.T, data map[uint32]byte) {
	t.Helper()
	require.Len(t, data, len(expectedData))
	for i, want := range expectedData {
		got, ok := data[expectedStart+uint32(i)]
		require.True(t, ok, "missing address %#08x", expectedStart+uint32(i))
		assert.Equal(t, want, got)
	}
}

func TestParseDOSFormat(t *testing.T) {
	hex := ":020000040800F2\r\n" +
		":102000000000012009230008D1220008D522000881\r\n" +
		":10201000D9220008DD220008E122000800000000AB\r\n" +
		":00000001FF\r\n"

	data, err := Parse(strings.NewReader(hex))
	require.NoError(t, err)
	assertExpectedMap(t, data)
}

func TestParseLinuxFormat(t *testing.T) {
	hex := ":020000040800F2\n" +
		":102000000000012009230008D1220008D522000881\n" +
		":10201000D9220008DD220008E122000800000000AB\n" +
		":00000001FF\n"

	data, err := Parse(strings.NewReader(hex))
	require.NoError(t, err)
	assertExpectedMap(t, data)
}

func TestParseRecordTooShort(t *testing.T) {
	_, err := parseRecord("00")
	require.Error(t, err)
}

func TestParseRecordByteCountValid(t *testing.T) {
	rec, err := parseRecord("102000000000012009230008D1220008D522000881")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x10), rec.byteCount)
	assert.Equal(t, uint16(0x2000), rec.offset)
}

func TestParseRecordInvalidByteCount(t *testing.T) {
	_, err := parseRecord("030000040800F2")
	require.Error(t, err)
}

func TestParseRecordInvalidRecordType(t *testing.T) {
	_, err := parseRecord("020000F10800F2")
	require.Error(t, err)
}

func TestParseRecordExtendedLinearAddress(t *testing.T) {
	rec, err := parseRecord("020000040800F2")
	require.NoError(t, err)
	assert.Equal(t, recordExtendedLinearAddress, rec.recordType)
}

func TestParseRecordChecksumMismatch(t *testing.T) {
	_, err := parseRecord("102000000000012009230008D1220008D522000880")
	require.Error(t, err)
}

func TestParseRecordChecksumValid(t *testing.T) {
	rec, err := parseRecord("102000000000012009230008D1220008D522000881")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x81), rec.checksum)
}

func TestParseNoValidData(t *testing.T) {
	_, err := Parse(strings.NewReader(":00000001FF\n"))
	require.Error(t, err)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("/nonexistent/path/does/not/exist.hex")
	require.Error(t, err)
}
