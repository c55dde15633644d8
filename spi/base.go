package spi

import "github.com/spisec/pchspi/internal/catalog"

// mappable is implemented by MMIO accessors that support pre-mapping a
// window for faster repeated access (internal/mmio.DevMem). Accessors that
// don't implement it are used through the slower per-access path
// transparently.
type mappable interface {
	Map(base uint64, length uint32) error
}

// resolveBase locates the SPI controller's MMIO base address (spec.md
// §4.1, "SPI Base Resolver"): prefer the catalog's SPIBAR definition, and
// fall back to the hardcoded PCI configuration read when the catalog has
// none.
func (c *Controller) resolveBase() (uint64, error) {
	var (
		base   uint64
		length uint32
	)

	if b, l, ok := c.catalog.MMIOBARBaseAddress("SPIBAR"); ok {
		base, length = b, l
		c.log.Debug("SPI MMIO base from catalog SPIBAR", "base", base, "length", length)
	} else {
		b, err := c.resolveBaseFallback(c.catalog.PCIFallback)
		if err != nil {
			return 0, err
		}
		base, length = b, defaultWindowLength
		c.log.Debug("SPI MMIO base from PCI fallback", "base", base)
	}

	if m, ok := c.mmio.(mappable); ok {
		if err := m.Map(base, length); err != nil {
			// Mapping failure is non-fatal: the accessor falls back to
			// slower per-access reads (spec.md §5 "Resource scoping").
			c.log.Debug("SPI MMIO window mapping failed, using slow path", "error", err)
		}
	}

	return base, nil
}

// defaultWindowLength is used when the catalog provides no explicit SPIBAR
// length (i.e. the fallback path was taken).
const defaultWindowLength = 0x1000

// resolveBaseFallback implements the hardcoded PCI-configuration-read
// fallback: read a dword from (bus, device, function, offset), mask off
// the low address bits by shifting right then left, and add the fixed
// window offset.
func (c *Controller) resolveBaseFallback(fb catalog.PCIFallback) (uint64, error) {
	raw, err := c.pci.ReadDword(fb.Address, fb.RegisterOffset)
	if err != nil {
		return 0, err
	}

	masked := (uint64(raw) >> fb.BaseShift) << fb.BaseShift

	if masked == 0 && fb.BaseOffset == 0 {
		return 0, ErrNoSPIBAR
	}

	return masked + fb.BaseOffset, nil
}
