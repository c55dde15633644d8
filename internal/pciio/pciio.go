// Package pciio provides the abstract PCI configuration-space primitive
// consumed by the SPI Base Resolver's hardcoded fallback path (spec.md
// §4.1), adapted from the bare-metal PCI config access the teacher
// implements with port I/O instructions (soc/intel/pci) to a host-side
// equivalent that goes through the kernel's PCI config-space file instead of
// raw IN/OUT instructions, since a userspace process cannot issue those
// directly.
package pciio

import "fmt"

// Address identifies a PCI function's configuration space.
type Address struct {
	Bus      uint8
	Device   uint8
	Function uint8
}

func (a Address) String() string {
	return fmt.Sprintf("%02x:%02x.%d", a.Bus, a.Device, a.Function)
}

// ConfigSpace reads and writes PCI configuration space registers. Only
// dword-aligned access is required by the driver (spec.md §4.1 and §4.4's
// FDOC/FDOD access go through named registers, not raw PCI config).
type ConfigSpace interface {
	ReadDword(addr Address, offset uint32) (uint32, error)
	WriteDword(addr Address, offset uint32, value uint32) error
}
