package firmware

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32Parameters(t *testing.T) {
	bytes := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	checksum := crc32.Checksum(bytes, crcTable)
	assert.Equal(t, uint32(0x40EFAB9E), checksum)
}

func TestAppendInvalidAddress(t *testing.T) {
	img := New(0x08000000, 0x400, 0x10)
	err := img.Append(map[uint32]byte{0x07000000: 0x00})
	require.Error(t, err)
}

func TestAppendOnePage(t *testing.T) {
	img := New(0x08000000, 0x400, 0x10)
	err := img.Append(map[uint32]byte{
		0x08000000: 0x00,
		0x08000001: 0x01,
		0x08000002: 0x02,
		0x08000003: 0x03,
		0x08000005: 0x04,
	})
	require.NoError(t, err)

	assert.Len(t, img.Pages(), 1)

	page, ok := img.Page(0)
	require.True(t, ok)
	assert.Equal(t, uint32(0x08000000), page.Address)
	assert.Len(t, page.Bytes, 0x400)
	assert.Equal(t, byte(0x00), page.Bytes[0])
	assert.Equal(t, byte(0x01), page.Bytes[1])
	assert.Equal(t, byte(0x02), page.Bytes[2])
	assert.Equal(t, byte(0x03), page.Bytes[3])
	assert.Equal(t, byte(0xFF), page.Bytes[4])
	assert.Equal(t, byte(0x04), page.Bytes[5])
}

func TestAppendTwoPages(t *testing.T) {
	img := New(0x08000000, 0x400, 0x10)
	err := img.Append(map[uint32]byte{
		0x08000000: 0x00,
		0x08000001: 0x01,
		0x08000002: 0x02,
		0x08000003: 0x03,
		0x08000005: 0x04,
		0x08000800: 0x10,
		0x08000801: 0x11,
		0x0800080F: 0x12,
	})
	require.NoError(t, err)

	assert.Len(t, img.Pages(), 2)

	page0, ok := img.Page(0)
	require.True(t, ok)
	assert.Equal(t, uint32(0x08000000), page0.Address)

	page2, ok := img.Page(2)
	require.True(t, ok)
	assert.Equal(t, uint32(0x08000800), page2.Address)
	expected := [16]byte{0x10, 0x11, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x12}
	for i, want := range expected {
		assert.Equal(t, want, page2.Bytes[i], "byte %d", i)
	}

	_, ok = img.Page(1)
	assert.False(t, ok, "page 1 must not exist")
}

func TestImageCRCExcludesFinalFourBytes(t *testing.T) {
	img := New(0x08000000, 0x400, 0x1)
	require.NoError(t, img.Append(map[uint32]byte{0x08000000: 0xAA}))

	full := make([]byte, 0x400)
	for i := range full {
		full[i] = FlashDftValue
	}
	full[0] = 0xAA
	want := crc32.Checksum(full[:len(full)-4], crcTable)

	assert.Equal(t, want, img.CRC())
}
