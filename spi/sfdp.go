package spi

import (
	"fmt"

	"github.com/spisec/pchspi/internal/catalog"
	"github.com/spisec/pchspi/internal/sfdpschema"
)

// sfdpSignature is 'SFDP' read little-endian as a dword (spec.md §4.5).
const sfdpSignature = 0x50444653

// PTINX bit layout (spec.md §6 "PTINX layout").
const (
	ptinxComponentSelect = 1 << 14
	ptinxStratumShift    = 12
	ptinxOffsetMask      = 0xFFF

	strataHeader     = 0x0000
	strataParamTable = 0x1000
	strataBasicTable = 0x2000
)

// ParameterHeader is one SFDP Parameter Header (spec.md §4.5 step 3-4).
type ParameterHeader struct {
	ManufacturerID uint32
	Minor          uint32
	Major          uint32
	LengthDwords   uint32
	TablePointer   uint32
}

// ComponentSFDP is the decoded SFDP data for a single flash component
// (spec.md §4.5).
type ComponentSFDP struct {
	Component int

	Present bool
	Minor   uint32
	Major   uint32

	FirstHeader     ParameterHeader
	AdditionalPages []ParameterHeader

	BasicTable []sfdpschema.FieldValue
}

func (c *Controller) ptinxAddress(component int, stratum, offset uint32) uint32 {
	addr := stratum | (offset & ptinxOffsetMask)
	if component == 1 {
		addr |= ptinxComponentSelect
	}
	return addr
}

// readPTDATA writes index to BIOS_PTINX and reads the resulting PTDATA
// dword.
func (c *Controller) readPTDATA(index uint32) (uint32, error) {
	if err := c.writeNamed("BIOS_PTINX", index); err != nil {
		return 0, err
	}
	return c.readNamed("BIOS_PTDATA")
}

// GetSFDP walks both possible SFDP components (spec.md §4.5). A component
// missing the 'SFDP' signature is skipped, not an error; schema is the
// externally-supplied field-description document used to decode the JEDEC
// Basic Flash Parameter Table.
func (c *Controller) GetSFDP(schema sfdpschema.Schema) ([]ComponentSFDP, error) {
	var out []ComponentSFDP

	for component := 0; component < 2; component++ {
		comp, err := c.getComponentSFDP(component, schema)
		if err != nil {
			return out, fmt.Errorf("spi: SFDP component %d: %w", component, err)
		}
		if comp.Present {
			out = append(out, comp)
		}
	}

	return out, nil
}

func (c *Controller) getComponentSFDP(component int, schema sfdpschema.Schema) (ComponentSFDP, error) {
	sig, err := c.readPTDATA(c.ptinxAddress(component, strataHeader, 0))
	if err != nil {
		return ComponentSFDP{}, err
	}
	if sig != sfdpSignature {
		c.log.Debug("SFDP signature absent, skipping component", "component", component)
		return ComponentSFDP{Component: component}, nil
	}

	version, err := c.readPTDATA(c.ptinxAddress(component, strataHeader, 4))
	if err != nil {
		return ComponentSFDP{}, err
	}

	minor := version & 0xFF
	major := (version >> 8) & 0xFF
	numHeaders := ((version >> 16) & 0xFF) + 1

	firstRaw, err := c.readPTDATA(c.ptinxAddress(component, strataParamTable, 0))
	if err != nil {
		return ComponentSFDP{}, err
	}

	first := ParameterHeader{
		Minor:        (firstRaw >> 8) & 0xFF,
		Major:        (firstRaw >> 16) & 0xFF,
		LengthDwords: (firstRaw >> 24) & 0xFF,
	}

	comp := ComponentSFDP{
		Component:   component,
		Present:     true,
		Minor:       minor,
		Major:       major,
		FirstHeader: first,
	}

	if numHeaders > 1 && c.registerHasField("HSFS", "FCYCLE") {
		headers, err := c.readAdditionalParameterHeaders(int(numHeaders))
		if err != nil {
			c.log.Warn("failed reading additional SFDP parameter headers", "error", err)
		} else {
			comp.AdditionalPages = headers
		}
	}

	if first.LengthDwords > 0 {
		table, err := c.readBasicTable(component, int(first.LengthDwords), schema)
		if err != nil {
			c.log.Warn("failed reading JEDEC Basic Flash Parameter Table", "error", err)
		} else {
			comp.BasicTable = table
		}
	}

	return comp, nil
}

// readAdditionalParameterHeaders clears FDATA12..FDATA15, issues an SFDP
// cycle, then decodes additional parameter header i (1..numHeaders-1) from
// the dword pair FDATA(2+2i), FDATA(2+2i+1) (spec.md §4.5 step 4).
func (c *Controller) readAdditionalParameterHeaders(numHeaders int) ([]ParameterHeader, error) {
	for i := 12; i <= 15; i++ {
		if err := c.writeNamed(catalog.FDataName(i), 0); err != nil {
			return nil, err
		}
	}

	ok, err := c.sendCycle(cycleSFDP, SFDPCycleDBC-1, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCycleFailed
	}

	var headers []ParameterHeader

	for i := 1; i < numHeaders; i++ {
		lo, err := c.readNamed(catalog.FDataName(2 + 2*i))
		if err != nil {
			return headers, err
		}
		hi, err := c.readNamed(catalog.FDataName(2 + 2*i + 1))
		if err != nil {
			return headers, err
		}

		// ManufacturerID combines byte 0 of the first dword with byte 3 of
		// the second, the latter shifted right by 16 before OR-ing in
		// (chipsec/hal/spi.py: (d2 & 0xFF000000) >> 16 | (d1 & 0xFF)). This
		// asymmetric mask is flagged as a possible source bug relative to
		// JEDEC JESD216 (spec.md §9 "Open question"); kept bit-for-bit
		// identical to the original rather than "corrected" against the
		// spec, since no deviation was chosen.
		headers = append(headers, ParameterHeader{
			ManufacturerID: ((hi & 0xFF000000) >> 16) | (lo & 0xFF),
			Minor:          (lo >> 8) & 0xFF,
			Major:          (lo >> 16) & 0xFF,
			LengthDwords:   (lo >> 24) & 0xFF,
			TablePointer:   hi & 0x00FFFFFF,
		})
	}

	return headers, nil
}

// readBasicTable reads lengthDwords consecutive dwords of the JEDEC Basic
// Flash Parameter Table (stratum 0x2000) and decodes each against schema's
// corresponding register description (spec.md §4.5 step 5).
func (c *Controller) readBasicTable(component, lengthDwords int, schema sfdpschema.Schema) ([]sfdpschema.FieldValue, error) {
	var all []sfdpschema.FieldValue

	for i := 0; i < lengthDwords; i++ {
		raw, err := c.readPTDATA(c.ptinxAddress(component, strataBasicTable, uint32(i*4)))
		if err != nil {
			return all, err
		}

		reg, ok := schema.RegisterAt(i)
		if !ok {
			continue
		}

		all = append(all, sfdpschema.Decode(reg, raw)...)
	}

	return all, nil
}
