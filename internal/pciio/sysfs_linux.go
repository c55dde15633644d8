//go:build linux

package pciio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Sysfs reads PCI configuration space through the kernel's
// /sys/bus/pci/devices/<domain:bus:device.function>/config files, the
// standard unprivileged-adjacent path on Linux (root is still required to
// open most of the file, but no raw port I/O or ioctl helper is needed).
type Sysfs struct {
	// Domain is the PCI domain number, almost always 0 on PC-class
	// hardware.
	Domain uint16
}

// ReadDword implements ConfigSpace.
func (s Sysfs) ReadDword(addr Address, offset uint32) (uint32, error) {
	path := fmt.Sprintf("/sys/bus/pci/devices/%04x:%02x:%02x.%d/config",
		s.Domain, addr.Bus, addr.Device, addr.Function)

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("pciio: open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 4)
	if _, err := f.ReadAt(buf, int64(offset)); err != nil {
		return 0, fmt.Errorf("pciio: read %s at 0x%x: %w", path, offset, err)
	}

	return binary.LittleEndian.Uint32(buf), nil
}

// WriteDword implements ConfigSpace. Used by BIOS Control's BIOSWE toggle
// (spec.md §4.7) — the one PCI configuration write this driver performs.
func (s Sysfs) WriteDword(addr Address, offset uint32, value uint32) error {
	path := fmt.Sprintf("/sys/bus/pci/devices/%04x:%02x:%02x.%d/config",
		s.Domain, addr.Bus, addr.Device, addr.Function)

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("pciio: open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, value)

	if _, err := f.WriteAt(buf, int64(offset)); err != nil {
		return fmt.Errorf("pciio: write %s at 0x%x: %w", path, offset, err)
	}

	return nil
}
