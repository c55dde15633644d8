// Package catalog models the register-definition database the SPI driver
// consults to resolve named registers, fields, controls and MMIO BARs to
// concrete offsets and bit positions (spec.md §4, "Register Catalog
// (external)"). In a full assessment framework this data is normally loaded
// from an XML chipset database; here it is compiled in, the same way the
// teacher encodes per-SoC register layout as Go tables (soc/intel/apic,
// soc/intel/uart) rather than parsing a description file at runtime.
//
// A register or control missing from a Table is not an error: callers treat
// an undefined lookup as "this platform does not expose that feature" (see
// spec.md §7, "Catalog miss").
package catalog

import (
	"github.com/spisec/pchspi/bits"
	"github.com/spisec/pchspi/internal/pciio"
)

// Space identifies where a register physically lives.
type Space int

const (
	// SpaceMMIO registers live in the SPI controller's memory-mapped
	// window (SPIBAR + offset).
	SpaceMMIO Space = iota
	// SpacePCIConfig registers live in a PCI function's configuration
	// space, such as BIOS Control on the LPC/eSPI bridge.
	SpacePCIConfig
)

// Field describes a bit-field within a register: it starts at bit Pos and is
// Size bits wide.
type Field struct {
	Pos  int
	Size int
}

// Mask returns the field's bitmask, unshifted.
func (f Field) Mask() int {
	return (1 << f.Size) - 1
}

// RegisterDef resolves a symbolic register name to its physical location.
type RegisterDef struct {
	Name   string
	Space  Space
	Offset uint32
	// Width is the native access size in bytes (1, 2 or 4).
	Width int
	Fields map[string]Field

	// PCIAddress is only meaningful when Space == SpacePCIConfig.
	PCIAddress pciio.Address
}

// Control names a single-bit (or small-field) named control surfaced
// through a register, e.g. "BiosWriteEnable" -> (BC, BIOSWE).
type Control struct {
	Register string
	Field    string
}

// BAR describes a resolved PCI Base Address Register window.
type BAR struct {
	Base   uint64
	Length uint32
}

// PCIFallback describes the hardcoded PCI configuration read used to locate
// SPIBAR when the catalog has no SPIBAR BAR definition (spec.md §4.1).
type PCIFallback struct {
	Address        pciio.Address
	RegisterOffset uint32
	BaseShift      uint
	BaseOffset     uint64
}

// Table is one chipset generation's register catalog.
type Table struct {
	Name        string
	Registers   map[string]RegisterDef
	Controls    map[string]Control
	BARs        map[string]BAR
	PCIFallback PCIFallback
}

// RegisterDefined reports whether name is present in the catalog.
func (t Table) RegisterDefined(name string) bool {
	_, ok := t.Registers[name]
	return ok
}

// RegisterDef returns the definition for name.
func (t Table) RegisterDef(name string) (RegisterDef, bool) {
	d, ok := t.Registers[name]
	return d, ok
}

// RegisterHasField reports whether register name defines field. Used to
// probe optional hardware features (e.g. HSFS.FCYCLE gating SFDP/JEDEC
// support, spec.md §4.5-4.6).
func (t Table) RegisterHasField(name, field string) bool {
	d, ok := t.Registers[name]
	if !ok {
		return false
	}

	_, ok = d.Fields[field]
	return ok
}

// FieldValue extracts field from a raw register value previously read from
// register name.
func (t Table) FieldValue(name string, raw uint32, field string) (uint32, bool) {
	d, ok := t.Registers[name]
	if !ok {
		return 0, false
	}

	f, ok := d.Fields[field]
	if !ok {
		return 0, false
	}

	return bits.GetN(&raw, f.Pos, f.Mask()), true
}

// MMIOBARDefined reports whether name is a known MMIO BAR.
func (t Table) MMIOBARDefined(name string) bool {
	_, ok := t.BARs[name]
	return ok
}

// MMIOBARBaseAddress returns the resolved base and length of a named MMIO
// BAR.
func (t Table) MMIOBARBaseAddress(name string) (base uint64, length uint32, ok bool) {
	b, ok := t.BARs[name]
	return b.Base, b.Length, ok
}

// ControlDef resolves a named control to its backing register and field.
func (t Table) ControlDef(name string) (Control, bool) {
	c, ok := t.Controls[name]
	return c, ok
}
