// Package flash describes the page-aligned layout of a device's flash
// memory: a fixed address range split into named, non-overlapping
// sections, each a whole number of pages.
package flash

import (
	"fmt"

	"github.com/franc0r/frankly-fw-update/ferrors"
)

// Desc describes the structure of one flash memory: its address range,
// page size, and the named sections carved out of it.
type Desc struct {
	address    uint32
	size       uint32
	pageSize   uint32
	sections   []Section
	sectionIdx map[string]int
}

// NewDesc creates a flash description for a flash region starting at
// address, size bytes long, split into pages of pageSize bytes.
func NewDesc(address, size, pageSize uint32) *Desc {
	return &Desc{
		address:    address,
		size:       size,
		pageSize:   pageSize,
		sectionIdx: make(map[string]int),
	}
}

// Address returns the start address of the flash memory.
func (d *Desc) Address() uint32 { return d.address }

// Size returns the size of the flash memory in bytes.
func (d *Desc) Size() uint32 { return d.size }

// PageSize returns the page size of the flash memory.
func (d *Desc) PageSize() uint32 { return d.pageSize }

// NumPages returns the number of pages in the flash memory.
func (d *Desc) NumPages() uint32 { return d.size / d.pageSize }

// NumSections returns the number of sections registered so far.
func (d *Desc) NumSections() int { return len(d.sections) }

// SectionNames returns the names of all registered sections, in
// registration order.
func (d *Desc) SectionNames() []string {
	names := make([]string, len(d.sections))
	for i, s := range d.sections {
		names[i] = s.Name
	}
	return names
}

// AddSection registers a new named, page-aligned section of the flash
// memory. name must be unique, address must be page-aligned, size must be
// a multiple of the page size, the section must fit within the flash
// memory, and it must not overlap any previously-added section.
func (d *Desc) AddSection(name string, address, size uint32) error {
	if _, used := d.sectionIdx[name]; used {
		return ferrors.New(ferrors.FlashNameAlreadyUsed, "flash section name %q already used", name)
	}

	if address%d.pageSize != 0 {
		return ferrors.New(ferrors.FlashAddressInvalid, "flash section %q address %#08x is not page-aligned to %#x", name, address, d.pageSize)
	}

	if size%d.pageSize != 0 {
		return ferrors.New(ferrors.FlashSizeInvalid, "flash section %q size %#x is not a multiple of page size %#x", name, size, d.pageSize)
	}

	if address+size > d.address+d.size {
		return ferrors.New(ferrors.FlashSizeTooBig, "flash section %q does not fit into flash", name)
	}

	for _, s := range d.sections {
		if s.Address < address+size && address < s.Address+s.Size {
			return ferrors.New(ferrors.FlashAreaAlreadyUsed, "flash section %q overlaps section %q", name, s.Name)
		}
	}

	pageID := (address - d.address) / d.pageSize

	d.sectionIdx[name] = len(d.sections)
	d.sections = append(d.sections, Section{
		Name:        name,
		Address:     address,
		Size:        size,
		FirstPageID: pageID,
		PageSize:    d.pageSize,
		NumPages:    size / d.pageSize,
	})
	return nil
}

// Section returns the full section record for the named section.
func (d *Desc) Section(name string) (Section, bool) {
	idx, ok := d.sectionIdx[name]
	if !ok {
		return Section{}, false
	}
	return d.sections[idx], true
}

// SectionAddress returns the start address of the named section.
func (d *Desc) SectionAddress(name string) (uint32, bool) {
	s, ok := d.Section(name)
	return s.Address, ok
}

// SectionSize returns the size in bytes of the named section.
func (d *Desc) SectionSize(name string) (uint32, bool) {
	s, ok := d.Section(name)
	return s.Size, ok
}

// SectionPageID returns the page index (relative to the flash memory's
// start) of the named section.
func (d *Desc) SectionPageID(name string) (uint32, bool) {
	s, ok := d.Section(name)
	return s.FirstPageID, ok
}

// SectionNumPages returns the number of pages occupied by the named
// section.
func (d *Desc) SectionNumPages(name string) (uint32, bool) {
	s, ok := d.Section(name)
	if !ok {
		return 0, false
	}
	return s.Size / d.pageSize, true
}

// Section is one named, page-aligned region of a flash memory, carrying
// enough of its parent Desc's geometry to be handed to the firmware
// assembler standalone.
type Section struct {
	Name        string
	Address     uint32
	Size        uint32
	FirstPageID uint32
	PageSize    uint32
	NumPages    uint32
}

func (s Section) String() string {
	return fmt.Sprintf("%s@%#08x+%#x (page %d)", s.Name, s.Address, s.Size, s.FirstPageID)
}
