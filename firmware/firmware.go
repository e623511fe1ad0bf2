// Package firmware assembles a sparse byte map (as produced by the
// hexfile reader) into page-aligned flash pages and computes the CRC-32
// values the bootloader uses to verify a flash write.
package firmware

import (
	"hash/crc32"
	"sort"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"github.com/franc0r/frankly-fw-update/flash"
)

// FlashDftValue is the byte value used to pad unwritten flash bytes.
const FlashDftValue byte = 0xFF

var crcTable = crc32.MakeTable(crc32.IEEE)

// Page is one page-aligned slice of firmware bytes, with its own CRC-32.
type Page struct {
	ID      uint32
	Address uint32
	Bytes   []byte
	CRC     uint32
}

func newPage(id, address, pageSize uint32) *Page {
	bytes := make([]byte, pageSize)
	for i := range bytes {
		bytes[i] = FlashDftValue
	}
	return &Page{ID: id, Address: address, Bytes: bytes}
}

func (p *Page) calculateCRC() {
	p.CRC = crc32.Checksum(p.Bytes, crcTable)
}

// Image is the in-memory representation of an application firmware image:
// a set of flash pages plus the CRC-32 over the whole image.
type Image struct {
	startAddress uint32
	pageSize     uint32
	numPages     uint32
	pages        map[uint32]*Page
	crc          uint32
}

// New creates an empty firmware image targeting a flash region described
// by its start address, page size and page count.
func New(startAddress, pageSize, numPages uint32) *Image {
	return &Image{
		startAddress: startAddress,
		pageSize:     pageSize,
		numPages:     numPages,
		pages:        make(map[uint32]*Page),
	}
}

// FromSection creates an empty firmware image sized to match a flash
// section.
func FromSection(s flash.Section) *Image {
	return New(s.Address, s.PageSize, s.NumPages)
}

// Append writes a sparse address→byte map into the image's pages,
// recalculating every touched page's CRC and the whole-image CRC
// afterward. Addresses below the image's start address, or whose page
// index is not below the page count, are rejected.
func (img *Image) Append(data map[uint32]byte) error {
	addrs := make([]uint32, 0, len(data))
	for addr := range data {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, addr := range addrs {
		if addr < img.startAddress {
			return ferrors.New(ferrors.Error,
				"firmware layout invalid: byte address %#010x is out of range (min address %#010x)",
				addr, img.startAddress)
		}

		pageID := (addr - img.startAddress) / img.pageSize
		pageByteIdx := (addr - img.startAddress) % img.pageSize

		if pageID >= img.numPages {
			return ferrors.New(ferrors.Error,
				"firmware layout invalid: byte address %#010x, page %d is out of range (max %d)",
				addr, pageID, img.numPages-1)
		}

		page, ok := img.pages[pageID]
		if !ok {
			page = newPage(pageID, img.startAddress+pageID*img.pageSize, img.pageSize)
			img.pages[pageID] = page
		}
		page.Bytes[pageByteIdx] = data[addr]
	}

	for _, page := range img.pages {
		page.calculateCRC()
	}

	img.calculateImageCRC()
	return nil
}

func (img *Image) calculateImageCRC() {
	flat := make([]byte, 0, img.pageSize*img.numPages)
	for pageID := uint32(0); pageID < img.numPages; pageID++ {
		if page, ok := img.pages[pageID]; ok {
			flat = append(flat, page.Bytes...)
		} else {
			for i := uint32(0); i < img.pageSize; i++ {
				flat = append(flat, FlashDftValue)
			}
		}
	}

	// The last 4 bytes of the app region hold the stored CRC and are
	// excluded from the whole-image CRC calculation.
	if len(flat) >= 4 {
		flat = flat[:len(flat)-4]
	}

	img.crc = crc32.Checksum(flat, crcTable)
}

// CRC returns the whole-image CRC-32, valid after the most recent Append.
func (img *Image) CRC() uint32 { return img.crc }

// Page returns the page with the given id, if it has been written.
func (img *Image) Page(id uint32) (*Page, bool) {
	p, ok := img.pages[id]
	return p, ok
}

// Pages returns all written pages, sorted by page id.
func (img *Image) Pages() []*Page {
	out := make([]*Page, 0, len(img.pages))
	for _, p := range img.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StartAddress returns the image's configured flash start address.
func (img *Image) StartAddress() uint32 { return img.startAddress }

// PageSize returns the image's configured page size.
func (img *Image) PageSize() uint32 { return img.pageSize }

// NumPages returns the image's configured page count.
func (img *Image) NumPages() uint32 { return img.numPages }
