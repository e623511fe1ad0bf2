package flash

import (
	"testing"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDesc(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)

	assert.Equal(t, uint32(0x08000000), d.Address())
	assert.Equal(t, uint32(0x10000), d.Size())
	assert.Equal(t, uint32(0x400), d.PageSize())
	assert.Equal(t, uint32(0x40), d.NumPages())
}

func TestAddSection(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)

	require.NoError(t, d.AddSection("test", 0x08000000, 0x1000))

	assert.Equal(t, 1, d.NumSections())

	addr, ok := d.SectionAddress("test")
	require.True(t, ok)
	assert.Equal(t, uint32(0x08000000), addr)

	size, ok := d.SectionSize("test")
	require.True(t, ok)
	assert.Equal(t, uint32(0x1000), size)

	pageID, ok := d.SectionPageID("test")
	require.True(t, ok)
	assert.Equal(t, uint32(0), pageID)

	numPages, ok := d.SectionNumPages("test")
	require.True(t, ok)
	assert.Equal(t, uint32(4), numPages)
}

func TestAddSectionDuplicateName(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)
	require.NoError(t, d.AddSection("test", 0x08000000, 0x1000))

	err := d.AddSection("test", 0x08000000, 0x1000)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.FlashNameAlreadyUsed))
}

func TestAddSectionInvalidAddress(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)

	err := d.AddSection("test", 0x08000001, 0x1000)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.FlashAddressInvalid))
}

func TestAddSectionInvalidSize(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)

	err := d.AddSection("test", 0x08000000, 0x1001)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.FlashSizeInvalid))
}

func TestAddSectionTooBig(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)

	err := d.AddSection("test", 0x08000000, 0x20000)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.FlashSizeTooBig))
}

func TestAddSectionOverlaps(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)
	require.NoError(t, d.AddSection("test", 0x08000000, 0x1000))

	err := d.AddSection("test2", 0x08000400, 0x1000)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.FlashAreaAlreadyUsed))
}

func TestAddSectionOverlapsEnclosing(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)
	require.NoError(t, d.AddSection("test", 0x08000400, 0x400))

	err := d.AddSection("test2", 0x08000000, 0x1000)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.FlashAreaAlreadyUsed))
}

func TestGetSectionByNameMissing(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)
	require.NoError(t, d.AddSection("test", 0x08000000, 0x1000))

	_, ok := d.SectionAddress("missing")
	assert.False(t, ok)
}

func TestSectionNamesPreservesOrder(t *testing.T) {
	d := NewDesc(0x08000000, 0x10000, 0x400)
	require.NoError(t, d.AddSection("bootloader", 0x08000000, 0x400))
	require.NoError(t, d.AddSection("app", 0x08000400, 0x1000))

	assert.Equal(t, []string{"bootloader", "app"}, d.SectionNames())
}
