package spi

import (
	"fmt"
	"log/slog"

	"github.com/spisec/pchspi/internal/catalog"
	"github.com/spisec/pchspi/internal/mmio"
	"github.com/spisec/pchspi/internal/pciio"
)

// Controller drives one SPI flash controller instance. It composes the
// three external collaborators named in spec.md §6 (an MMIO primitive, a
// PCI config-space primitive and a register catalog) into the concrete
// operations spec.md §4 describes.
//
// A Controller is not safe for concurrent use: spec.md §5 models the
// controller as a process-wide singleton owned exclusively by the caller
// for the duration of each public call.
type Controller struct {
	catalog catalog.Table
	mmio    mmio.Accessor
	pci     pciio.ConfigSpace
	base    uint64
	log     *slog.Logger
}

// New constructs a Controller bound to the given register catalog and
// collaborators, and resolves the SPI MMIO base address (spec.md §4.1). log
// may be nil, in which case slog.Default() is used.
func New(cat catalog.Table, m mmio.Accessor, pci pciio.ConfigSpace, log *slog.Logger) (*Controller, error) {
	if log == nil {
		log = slog.Default()
	}

	c := &Controller{catalog: cat, mmio: m, pci: pci, log: log}

	base, err := c.resolveBase()
	if err != nil {
		return nil, err
	}
	c.base = base

	return c, nil
}

// readNamed reads a catalog-defined register by name, dispatching to MMIO
// or PCI configuration space as the catalog indicates.
func (c *Controller) readNamed(name string) (uint32, error) {
	def, ok := c.catalog.RegisterDef(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRegisterNotDefined, name)
	}

	return c.readDef(def)
}

func (c *Controller) readDef(def catalog.RegisterDef) (uint32, error) {
	switch def.Space {
	case catalog.SpacePCIConfig:
		v, err := c.pci.ReadDword(def.PCIAddress, def.Offset)
		if err != nil {
			return 0, fmt.Errorf("spi: read %s: %w", def.Name, err)
		}
		return v, nil
	default:
		v, err := c.mmio.Read(c.base, def.Offset, def.Width)
		if err != nil {
			return 0, fmt.Errorf("spi: read %s: %w", def.Name, err)
		}
		return v, nil
	}
}

// writeNamed writes a catalog-defined register by name.
func (c *Controller) writeNamed(name string, value uint32) error {
	def, ok := c.catalog.RegisterDef(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRegisterNotDefined, name)
	}

	return c.writeDef(def, value)
}

func (c *Controller) writeDef(def catalog.RegisterDef, value uint32) error {
	switch def.Space {
	case catalog.SpacePCIConfig:
		if err := c.pci.WriteDword(def.PCIAddress, def.Offset, value); err != nil {
			return fmt.Errorf("spi: write %s: %w", def.Name, err)
		}
		return nil
	default:
		if err := c.mmio.Write(c.base, def.Offset, value, def.Width); err != nil {
			return fmt.Errorf("spi: write %s: %w", def.Name, err)
		}
		return nil
	}
}

// readRaw reads register name's MMIO offset plus deltaOffset at an explicit
// transfer size, independent of the register's catalog-defined width. The
// cycle engine uses this to read/write sub-fields of a register in
// isolation (e.g. the single DBC byte at HSFC+1) the same way spi.py calls
// spi_reg_read/spi_reg_write with an explicit size at each call site.
func (c *Controller) readRaw(name string, deltaOffset uint32, size int) (uint32, error) {
	def, ok := c.catalog.RegisterDef(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRegisterNotDefined, name)
	}
	if def.Space != catalog.SpaceMMIO {
		return 0, fmt.Errorf("spi: %s is not MMIO-addressable", name)
	}

	v, err := c.mmio.Read(c.base, def.Offset+deltaOffset, size)
	if err != nil {
		return 0, fmt.Errorf("spi: read %s+%d: %w", name, deltaOffset, err)
	}
	return v, nil
}

func (c *Controller) writeRaw(name string, deltaOffset uint32, value uint32, size int) error {
	def, ok := c.catalog.RegisterDef(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRegisterNotDefined, name)
	}
	if def.Space != catalog.SpaceMMIO {
		return fmt.Errorf("spi: %s is not MMIO-addressable", name)
	}

	if err := c.mmio.Write(c.base, def.Offset+deltaOffset, value, size); err != nil {
		return fmt.Errorf("spi: write %s+%d: %w", name, deltaOffset, err)
	}
	return nil
}

// fieldOf extracts a named field from a raw register value previously read
// from register name.
func (c *Controller) fieldOf(name string, raw uint32, field string) (uint32, error) {
	v, ok := c.catalog.FieldValue(name, raw, field)
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s", ErrFieldNotDefined, name, field)
	}
	return v, nil
}

// registerHasField reports whether the catalog defines field on register
// name, used to gate optional features (spec.md §4.5, §4.6).
func (c *Controller) registerHasField(name, field string) bool {
	return c.catalog.RegisterHasField(name, field)
}

// checkHardwareSequencing verifies HSFS.FDV is set. It is the one operation
// in this package that returns a fatal, non-aggregable error (spec.md §4.2,
// §7).
func (c *Controller) checkHardwareSequencing() error {
	hsfs, err := c.readNamed("HSFS")
	if err != nil {
		return err
	}

	fdv, err := c.fieldOf("HSFS", hsfs, "FDV")
	if err != nil {
		return err
	}

	if fdv == 0 {
		c.log.Error("hardware sequencing disabled", "HSFS", hsfs)
		return ErrHardwareSequencingDisabled
	}

	return nil
}

// Close releases the underlying MMIO accessor.
func (c *Controller) Close() error {
	return c.mmio.Close()
}
