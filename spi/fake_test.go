package spi

import (
	"encoding/binary"
	"fmt"

	"github.com/spisec/pchspi/internal/catalog"
	"github.com/spisec/pchspi/internal/pciio"
)

const (
	hsfsOffset  = 0x04
	hsfcOffset  = 0x06
	faddrOffset = 0x08
	fdataOffset = 0x10
	ptinxOffset = 0xB8
	ptdataOffset = 0xBC
)

// fakeMMIO is an in-memory Accessor standing in for both the physical SPI
// controller register window and the flash array behind it. Writing the
// one-byte HSFC command at offset 0x06 (the cycle commit point, spec.md §6)
// synchronously executes the addressed READ/WRITE/ERASE against the backing
// flash array and reports completion via HSFS, mirroring what the real
// controller does against actual flash in a fraction of the time.
type fakeMMIO struct {
	regs  [0x200]byte
	flash [1 << 17]byte

	// sfdp maps a BIOS_PTINX index to the dword returned through
	// BIOS_PTDATA, standing in for the component's SFDP/JEDEC Basic Table
	// address space.
	sfdp map[uint32]uint32

	failNext bool // when true, the next completed cycle reports FCERR instead of FDONE
	closed   bool
}

// newFakeMMIO returns a fakeMMIO with HSFS.FDV pre-set (as if hardware
// sequencing were enabled by platform firmware) and an erased flash array.
func newFakeMMIO() *fakeMMIO {
	f := &fakeMMIO{sfdp: make(map[uint32]uint32)}
	for i := range f.flash {
		f.flash[i] = 0xFF
	}
	binary.LittleEndian.PutUint16(f.regs[hsfsOffset:], 1<<14) // FDV
	return f
}

func (f *fakeMMIO) Read(base uint64, offset uint32, size int) (uint32, error) {
	if offset == ptdataOffset && size == 4 {
		index := binary.LittleEndian.Uint32(f.regs[ptinxOffset:])
		return f.sfdp[index], nil
	}

	switch size {
	case 1:
		return uint32(f.regs[offset]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(f.regs[offset:])), nil
	case 4:
		return binary.LittleEndian.Uint32(f.regs[offset:]), nil
	default:
		return 0, fmt.Errorf("fakeMMIO: bad size %d", size)
	}
}

func (f *fakeMMIO) Write(base uint64, offset uint32, value uint32, size int) error {
	// HSFS's low byte is write-one-to-clear (FDONE|FCERR|AEL); every write
	// this driver performs against HSFS is the clear-mask write, so model
	// that semantic instead of a raw store. FCERR/AEL are modeled as
	// persisting through the clear (a genuine access violation keeps
	// reasserting), so a failed cycle is still observed as failed after
	// wait_cycle_done's own clear-and-recheck.
	if offset == hsfsOffset {
		f.regs[offset] &^= byte(value) & 0x1
		return nil
	}

	switch size {
	case 1:
		f.regs[offset] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(f.regs[offset:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(f.regs[offset:], value)
	default:
		return fmt.Errorf("fakeMMIO: bad size %d", size)
	}

	if offset == hsfcOffset && size == 1 {
		f.completeCycle()
	}

	return nil
}

func (f *fakeMMIO) completeCycle() {
	cmd := f.regs[hsfcOffset]
	fcycle := (cmd >> 1) & 0x7
	dbc := int(f.regs[hsfcOffset+1]) + 1
	faddr := int(binary.LittleEndian.Uint32(f.regs[faddrOffset:]) & FADDRMask)

	switch fcycle {
	case 0x0: // READ
		for i := 0; i < dbc; i++ {
			f.regs[fdataOffset+i] = f.flash[faddr+i]
		}
	case 0x2: // WRITE
		for i := 0; i < dbc; i++ {
			f.flash[faddr+i] = f.regs[fdataOffset+i]
		}
	case 0x3: // ERASE
		block := faddr &^ (EraseBlock - 1)
		for i := 0; i < EraseBlock; i++ {
			f.flash[block+i] = 0xFF
		}
	}

	hsfs := binary.LittleEndian.Uint16(f.regs[hsfsOffset:])
	hsfs &^= 0x7

	if f.failNext {
		hsfs |= 1 << 1 // FCERR
		f.failNext = false
	} else {
		hsfs |= 1 << 0 // FDONE
	}

	binary.LittleEndian.PutUint16(f.regs[hsfsOffset:], hsfs)
}

func (f *fakeMMIO) Close() error {
	f.closed = true
	return nil
}

// fakePCI is an in-memory pciio.ConfigSpace.
type fakePCI struct {
	dwords map[pciio.Address]map[uint32]uint32
}

func newFakePCI() *fakePCI {
	return &fakePCI{dwords: make(map[pciio.Address]map[uint32]uint32)}
}

func (p *fakePCI) ReadDword(addr pciio.Address, offset uint32) (uint32, error) {
	return p.dwords[addr][offset], nil
}

func (p *fakePCI) WriteDword(addr pciio.Address, offset uint32, value uint32) error {
	if p.dwords[addr] == nil {
		p.dwords[addr] = make(map[uint32]uint32)
	}
	p.dwords[addr][offset] = value
	return nil
}

// newTestController builds a Controller over PCH100Series() and the two
// fakes above, discarding log output.
func newTestController() (*Controller, *fakeMMIO, *fakePCI) {
	m := newFakeMMIO()
	p := newFakePCI()

	c, err := New(catalog.PCH100Series(), m, p, nil)
	if err != nil {
		panic(err)
	}

	return c, m, p
}
