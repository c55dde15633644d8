//go:build linux

package mmio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// pageSize is assumed rather than queried with os.Getpagesize so that window
// math below stays reproducible across hosts; 4KiB holds on every platform
// this driver targets.
const pageSize = 4096

// mapping is one mapped window of the physical address space.
type mapping struct {
	raw  []byte // page-aligned region returned by Mmap, for Munmap
	view []byte // raw, shifted to start exactly at base
}

// DevMem is a /dev/mem backed Accessor. A window covering
// [base, base+length) is mapped into the process's address space once, when
// Map is called for it; reads and writes against that base thereafter are
// plain memory accesses. For a base with no mapping (Map not called, or the
// mapping failed: no CAP_SYS_RAWIO, locked-down kernel, etc.) DevMem
// transparently uses pread/pwrite on the open file descriptor, matching the
// "mapping failure is non-fatal" resource policy in spec.md §5.
type DevMem struct {
	mu   sync.Mutex
	fd   int
	maps map[uint64]mapping // window base -> mapping
}

// NewDevMem opens /dev/mem for a new Accessor. The file descriptor is kept
// open for the lifetime of the Accessor; call Close to release it.
func NewDevMem() (*DevMem, error) {
	fd, err := unix.Open("/dev/mem", unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("mmio: open /dev/mem: %w", err)
	}

	return &DevMem{fd: fd, maps: make(map[uint64]mapping)}, nil
}

// Map attempts to map a window of the physical address space into the
// caller's address space, for faster repeated access. Failure is reported
// but is not meant to be treated as fatal by callers (see resolveBase in
// spi/base.go).
func (d *DevMem) Map(base uint64, length uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.maps[base]; ok {
		return nil
	}

	alignedBase := base &^ (pageSize - 1)
	pad := base - alignedBase
	size := int(length) + int(pad)

	raw, err := unix.Mmap(d.fd, int64(alignedBase), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmio: mmap base=0x%x length=%d: %w", base, length, err)
	}

	d.maps[base] = mapping{raw: raw, view: raw[pad:]}
	return nil
}

func (d *DevMem) window(base uint64) []byte {
	return d.maps[base].view
}

// Read implements Accessor.
func (d *DevMem) Read(base uint64, offset uint32, size int) (uint32, error) {
	if err := checkSize(size); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if w := d.window(base); w != nil {
		return readMapped(w, offset, size)
	}

	return d.readFile(base, offset, size)
}

// Write implements Accessor.
func (d *DevMem) Write(base uint64, offset uint32, value uint32, size int) error {
	if err := checkSize(size); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if w := d.window(base); w != nil {
		return writeMapped(w, offset, value, size)
	}

	return d.writeFile(base, offset, value, size)
}

// Close implements Accessor.
func (d *DevMem) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, m := range d.maps {
		_ = unix.Munmap(m.raw)
	}
	d.maps = nil

	if d.fd == 0 {
		return nil
	}

	fd := d.fd
	d.fd = 0
	return unix.Close(fd)
}

func readMapped(w []byte, offset uint32, size int) (uint32, error) {
	if int(offset)+size > len(w) {
		return 0, fmt.Errorf("mmio: offset 0x%x out of mapped window (len %d)", offset, len(w))
	}

	switch size {
	case 1:
		return uint32(w[offset]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(w[offset:])), nil
	default:
		return binary.LittleEndian.Uint32(w[offset:]), nil
	}
}

func writeMapped(w []byte, offset uint32, value uint32, size int) error {
	if int(offset)+size > len(w) {
		return fmt.Errorf("mmio: offset 0x%x out of mapped window (len %d)", offset, len(w))
	}

	switch size {
	case 1:
		w[offset] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(w[offset:], uint16(value))
	default:
		binary.LittleEndian.PutUint32(w[offset:], value)
	}

	return nil
}

func (d *DevMem) readFile(base uint64, offset uint32, size int) (uint32, error) {
	buf := make([]byte, size)

	if _, err := unix.Pread(d.fd, buf, int64(base+uint64(offset))); err != nil {
		return 0, fmt.Errorf("mmio: pread base=0x%x offset=0x%x: %w", base, offset, err)
	}

	switch size {
	case 1:
		return uint32(buf[0]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(buf)), nil
	default:
		return binary.LittleEndian.Uint32(buf), nil
	}
}

func (d *DevMem) writeFile(base uint64, offset uint32, value uint32, size int) error {
	buf := make([]byte, size)

	switch size {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	default:
		binary.LittleEndian.PutUint32(buf, value)
	}

	if _, err := unix.Pwrite(d.fd, buf, int64(base+uint64(offset))); err != nil {
		return fmt.Errorf("mmio: pwrite base=0x%x offset=0x%x: %w", base, offset, err)
	}

	return nil
}
