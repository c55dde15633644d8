package spi

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/spisec/pchspi/internal/catalog"
)

// Read performs a chunked hardware-sequencing read of n bytes starting at
// fla (spec.md §4.3 "Read"). Failed chunks are logged and skipped; the
// returned slice holds only the successfully-read bytes, and a
// *multierror.Error describing every failed chunk is returned alongside it
// (nil if every chunk succeeded) — see spec.md §7 "Cycle failure" and §9
// "Partial-success reads".
func (c *Controller) Read(fla uint32, n int) ([]byte, error) {
	if err := c.checkHardwareSequencing(); err != nil {
		return nil, err
	}

	dbc := uint32(ReadMinDBC)
	if n >= ReadMaxDBC {
		dbc = ReadMaxDBC
	}

	q := n / int(dbc)
	r := n % int(dbc)

	c.log.Debug("reading SPI flash", "fla", fla, "bytes", n, "chunks", q, "dbc", dbc, "remainder", r)

	if ready, err := c.waitCycleDone(); err != nil {
		return nil, err
	} else if !ready {
		return nil, ErrCycleNotReady
	}

	var (
		out  []byte
		errs *multierror.Error
	)

	for i := 0; i < q; i++ {
		chunkFLA := fla + uint32(i)*dbc
		ok, err := c.sendCycle(cycleRead, dbc-1, chunkFLA)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("chunk at 0x%x: %w", chunkFLA, err))
			continue
		}
		if !ok {
			c.log.Error("SPI flash read failed", "fla", chunkFLA)
			errs = multierror.Append(errs, fmt.Errorf("%w: chunk at 0x%x", ErrCycleFailed, chunkFLA))
			continue
		}

		bytes, err := c.readFDATA(int(dbc))
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out = append(out, bytes...)
	}

	if r != 0 {
		remFLA := fla + uint32(q)*dbc
		ok, err := c.sendCycle(cycleRead, uint32(r-1), remFLA)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("remainder at 0x%x: %w", remFLA, err))
		} else if !ok {
			c.log.Error("SPI flash read failed", "fla", remFLA)
			errs = multierror.Append(errs, fmt.Errorf("%w: remainder at 0x%x", ErrCycleFailed, remFLA))
		} else {
			bytes, err := c.readFDATA(r)
			if err != nil {
				errs = multierror.Append(errs, err)
			} else {
				out = append(out, bytes...)
			}
		}
	}

	return out, errs.ErrorOrNil()
}

// readFDATA reads ceil(n/4) dwords from FDATA0.. and returns exactly n
// little-endian bytes, truncating the final dword's tail per spec.md §4.3.
func (c *Controller) readFDATA(n int) ([]byte, error) {
	ndwords := (n + 3) / 4
	out := make([]byte, 0, n)

	for i := 0; i < ndwords; i++ {
		dword, err := c.readNamed(catalog.FDataName(i))
		if err != nil {
			return nil, err
		}

		take := 4
		if i == ndwords-1 {
			if rem := n % 4; rem != 0 {
				take = rem
			}
		}

		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], dword)
		out = append(out, buf[:take]...)
	}

	return out, nil
}

// Write performs a chunked hardware-sequencing write of buf starting at fla
// (spec.md §4.3 "Write"). The boolean result is the logical AND of every
// chunk's outcome; a non-nil *multierror.Error accompanies any failure.
func (c *Controller) Write(fla uint32, buf []byte) (bool, error) {
	if err := c.checkHardwareSequencing(); err != nil {
		return false, err
	}

	n := len(buf)
	q := n / WriteDBC
	r := n % WriteDBC

	c.log.Debug("writing SPI flash", "fla", fla, "bytes", n, "chunks", q, "remainder", r)

	if ready, err := c.waitCycleDone(); err != nil {
		return false, err
	} else if !ready {
		return false, ErrCycleNotReady
	}

	var errs *multierror.Error
	ok := true

	for i := 0; i < q; i++ {
		chunkFLA := fla + uint32(i*WriteDBC)
		dword := binary.LittleEndian.Uint32(buf[i*WriteDBC:])

		if werr := c.writeChunk(dword, chunkFLA, WriteDBC-1); werr != nil {
			ok = false
			errs = multierror.Append(errs, werr)
		}
	}

	if r != 0 {
		remFLA := fla + uint32(q*WriteDBC)

		var dword uint32
		for j := 0; j < r; j++ {
			dword |= uint32(buf[q*WriteDBC+j]) << (8 * j)
		}

		if werr := c.writeChunk(dword, remFLA, uint32(r-1)); werr != nil {
			ok = false
			errs = multierror.Append(errs, werr)
		}
	}

	return ok, errs.ErrorOrNil()
}

func (c *Controller) writeChunk(dword uint32, fla uint32, dbcMinusOne uint32) error {
	if err := c.writeNamed(catalog.FDataName(0), dword); err != nil {
		return err
	}

	done, err := c.sendCycle(cycleWrite, dbcMinusOne, fla)
	if err != nil {
		return err
	}
	if !done {
		c.log.Error("SPI flash write cycle failed", "fla", fla)
		return fmt.Errorf("%w: chunk at 0x%x", ErrCycleFailed, fla)
	}

	return nil
}

// Erase erases the single 4KiB hardware block containing fla (spec.md
// §4.3 "Erase"). fla's low 12 bits are expected to already be block
// aligned; the hardware ignores DBC for erase cycles.
func (c *Controller) Erase(fla uint32) (bool, error) {
	if err := c.checkHardwareSequencing(); err != nil {
		return false, err
	}

	c.log.Debug("erasing SPI flash block", "fla", fla)

	if ready, err := c.waitCycleDone(); err != nil {
		return false, err
	} else if !ready {
		return false, ErrCycleNotReady
	}

	ok, err := c.sendCycle(cycleErase, 0, fla)
	if err != nil {
		return false, err
	}
	if !ok {
		c.log.Error("SPI flash erase cycle failed", "fla", fla)
	}

	return ok, nil
}

// ReadTo reads n bytes starting at fla and writes them to w, the idiomatic
// replacement for spi.py's read_spi_to_file.
func (c *Controller) ReadTo(w io.Writer, fla uint32, n int) error {
	buf, err := c.Read(fla, n)
	if werr := writeAll(w, buf); werr != nil {
		return werr
	}
	return err
}

// WriteFrom reads all of r and writes it to flash starting at fla, the
// idiomatic replacement for spi.py's write_spi_from_file.
func (c *Controller) WriteFrom(r io.Reader, fla uint32) (bool, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("spi: read source: %w", err)
	}

	return c.Write(fla, buf)
}

func writeAll(w io.Writer, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	_, err := w.Write(buf)
	return err
}
