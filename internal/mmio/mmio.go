// Package mmio provides the abstract memory-mapped I/O primitive consumed by
// the SPI flash controller driver.
//
// The actual physical read/write of the SPI controller's MMIO window is an
// external collaborator: on a real host it is backed by a privileged kernel
// helper (a loaded driver performing /dev/mem or PCI BAR access on the
// caller's behalf). This package only defines the primitive and ships one
// concrete, best-effort Linux backend; callers needing different privilege
// models (a custom kernel module, a remote debug probe, a simulator) supply
// their own Accessor.
package mmio

import "errors"

// ErrUnsupportedSize is returned when a read or write requests a transfer
// size other than 1, 2 or 4 bytes.
var ErrUnsupportedSize = errors.New("mmio: unsupported access size")

// Accessor performs sized reads and writes against a physical MMIO window.
// Implementations must serialize concurrent access internally if they are
// shared across goroutines; the SPI driver itself assumes exclusive
// ownership of the window for the duration of each public call (see
// spec.md §5).
type Accessor interface {
	// Read returns the value at base+offset. size must be 1, 2 or 4.
	Read(base uint64, offset uint32, size int) (uint32, error)

	// Write stores value at base+offset. size must be 1, 2 or 4.
	Write(base uint64, offset uint32, value uint32, size int) error

	// Close releases any resources (mappings, file descriptors) held by
	// the accessor. It is safe to call Close more than once.
	Close() error
}

// checkSize validates a requested transfer width.
func checkSize(size int) error {
	switch size {
	case 1, 2, 4:
		return nil
	default:
		return ErrUnsupportedSize
	}
}
