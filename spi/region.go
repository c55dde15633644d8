package spi

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// decodeRange turns a region/protected-range raw base/limit pair into FLA
// values: both fields hold only bits 24:12 of the address (spec.md §3), so
// the limit's low 12 bits are implicitly all-ones.
func decodeRange(base, limit uint32) (uint32, uint32) {
	return base << FLAShift, (limit << FLAShift) | FLAPageMask
}

// GetRegion reads and decodes a single Flash Region. It returns
// ErrRegisterNotDefined if this platform's catalog has no FREGx register for
// id (spec.md §7 "Catalog miss").
func (c *Controller) GetRegion(id RegionID) (Region, error) {
	name, ok := regionRegisterNames[id]
	if !ok {
		return Region{}, fmt.Errorf("%w: region %s", ErrRegisterNotDefined, id)
	}

	raw, err := c.readNamed(name)
	if err != nil {
		return Region{}, err
	}

	return c.decodeRegion(id, raw)
}

func (c *Controller) decodeRegion(id RegionID, raw uint32) (Region, error) {
	name := regionRegisterNames[id]

	rb, err := c.fieldOf(name, raw, "RB")
	if err != nil {
		return Region{}, err
	}
	rl, err := c.fieldOf(name, raw, "RL")
	if err != nil {
		return Region{}, err
	}

	base, limit := decodeRange(rb, rl)

	return Region{ID: id, Base: base, Limit: limit, Raw: raw}, nil
}

// GetRegions decodes every Flash Region this platform's catalog defines
// (spec.md §4.4 "Region & Descriptor Decoder"). When allRegions is false,
// regions reporting Available()==false are omitted from the result, mirroring
// spi.py's default "skip unused regions" display behavior. Failures reading
// individual regions are aggregated and returned alongside whatever regions
// did decode successfully.
func (c *Controller) GetRegions(allRegions bool) (map[RegionID]Region, error) {
	out := make(map[RegionID]Region)
	var errs *multierror.Error

	for _, id := range allRegionIDs {
		if !c.catalog.RegisterDefined(regionRegisterNames[id]) {
			continue
		}

		r, err := c.GetRegion(id)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		if !allRegions && !r.Available() {
			continue
		}

		out[id] = r
	}

	return out, errs.ErrorOrNil()
}

// GetBootFlashPrimaryRegion decodes BFPR, the boot flash primary region
// window the CPU reset vector initially fetches through (spec.md §3).
func (c *Controller) GetBootFlashPrimaryRegion() (Region, error) {
	raw, err := c.readNamed("BFPR")
	if err != nil {
		return Region{}, err
	}

	prb, err := c.fieldOf("BFPR", raw, "PRB")
	if err != nil {
		return Region{}, err
	}
	prl, err := c.fieldOf("BFPR", raw, "PRL")
	if err != nil {
		return Region{}, err
	}

	base, limit := decodeRange(prb, prl)

	return Region{ID: RegionBIOS, Base: base, Limit: limit, Raw: raw}, nil
}

// GetProtectedRange reads and decodes PRi (spec.md §3, §4.4). index must be
// in [0, 5); ErrProtectedRangeIndex is returned outside that range, and
// ErrRegisterNotDefined if this platform's catalog defines fewer ranges.
func (c *Controller) GetProtectedRange(index int) (ProtectedRange, error) {
	if index < 0 || index >= 5 {
		return ProtectedRange{}, fmt.Errorf("%w: %d", ErrProtectedRangeIndex, index)
	}

	name := "PR" + string(rune('0'+index))
	if !c.catalog.RegisterDefined(name) {
		return ProtectedRange{}, fmt.Errorf("%w: %s", ErrRegisterNotDefined, name)
	}

	raw, err := c.readNamed(name)
	if err != nil {
		return ProtectedRange{}, err
	}

	prb, err := c.fieldOf(name, raw, "PRB")
	if err != nil {
		return ProtectedRange{}, err
	}
	prl, err := c.fieldOf(name, raw, "PRL")
	if err != nil {
		return ProtectedRange{}, err
	}
	wpe, err := c.fieldOf(name, raw, "WPE")
	if err != nil {
		return ProtectedRange{}, err
	}
	rpe, err := c.fieldOf(name, raw, "RPE")
	if err != nil {
		return ProtectedRange{}, err
	}

	base := prb << FLAShift
	limit := prl << FLAShift

	active := wpe != 0 || rpe != 0
	if active {
		// Only an active range's limit is canonicalized with the
		// implicit low-12 page mask (spec.md §4.4, invariant 2).
		limit |= FLAPageMask
	}

	return ProtectedRange{
		Index: index, Base: base, Limit: limit,
		WPE: wpe != 0, RPE: rpe != 0, Raw: raw,
	}, nil
}

// GetProtectedRanges decodes every protected range this platform's catalog
// defines.
func (c *Controller) GetProtectedRanges() ([]ProtectedRange, error) {
	var (
		out  []ProtectedRange
		errs *multierror.Error
	)

	for i := 0; i < 5; i++ {
		name := "PR" + string(rune('0'+i))
		if !c.catalog.RegisterDefined(name) {
			continue
		}

		pr, err := c.GetProtectedRange(i)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out = append(out, pr)
	}

	return out, errs.ErrorOrNil()
}

// GetAccessGrants reads FRAP and decodes the BIOS master's region access
// shadows and the global grant matrices (spec.md §4.4).
func (c *Controller) GetAccessGrants() (AccessGrants, error) {
	raw, err := c.readNamed("FRAP")
	if err != nil {
		return AccessGrants{}, err
	}

	bmrag, err := c.fieldOf("FRAP", raw, "BMRAG")
	if err != nil {
		return AccessGrants{}, err
	}
	bmwag, err := c.fieldOf("FRAP", raw, "BMWAG")
	if err != nil {
		return AccessGrants{}, err
	}
	brra, err := c.fieldOf("FRAP", raw, "BRRA")
	if err != nil {
		return AccessGrants{}, err
	}
	brwa, err := c.fieldOf("FRAP", raw, "BRWA")
	if err != nil {
		return AccessGrants{}, err
	}

	return AccessGrants{
		Raw:              raw,
		BIOSReadAccess:   uint8(brra),
		BIOSWriteAccess:  uint8(brwa),
		MasterReadGrant:  uint8(bmrag),
		MasterWriteGrant: uint8(bmwag),
	}, nil
}

// FlashDescriptorSection is one of the four fixed Flash Descriptor sections
// (spec.md §4.4 "Flash Descriptor dump"): FDSS selector 0 signature+map,
// 1 components, 2 regions, 3 masters.
type FlashDescriptorSection int

const (
	DescriptorSectionSignatureMap FlashDescriptorSection = iota
	DescriptorSectionComponent
	DescriptorSectionRegions
	DescriptorSectionMaster
)

var descriptorSectionNames = map[FlashDescriptorSection]string{
	DescriptorSectionSignatureMap: "Signature and Descriptor Map",
	DescriptorSectionComponent:    "Components",
	DescriptorSectionRegions:      "Regions",
	DescriptorSectionMaster:       "Masters",
}

// descriptorSectionDwordCount is the fixed N of dwords each Flash Descriptor
// section holds (spec.md §4.4: "N ∈ {5, 3, 5, 3}"), matching
// display_SPI_Flash_Descriptor's per-section range() in original_source.
var descriptorSectionDwordCount = map[FlashDescriptorSection]int{
	DescriptorSectionSignatureMap: 5,
	DescriptorSectionComponent:    3,
	DescriptorSectionRegions:      5,
	DescriptorSectionMaster:       3,
}

func (s FlashDescriptorSection) String() string {
	if n, ok := descriptorSectionNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Section%d", int(s))
}

// ReadDescriptorDword reads a single dword from Flash Descriptor section
// section at dword index idx, through FDOC/FDOD (spec.md §4.4). This is the
// same indirect-window pattern BIOS_PTINX/BIOS_PTDATA uses for SFDP.
func (c *Controller) ReadDescriptorDword(section FlashDescriptorSection, idx int) (uint32, error) {
	fdoc := (uint32(section) << 12) | (uint32(idx) << 2)

	if err := c.writeNamed("FDOC", fdoc); err != nil {
		return 0, err
	}

	return c.readNamed("FDOD")
}

// ReadDescriptorSection reads all of Flash Descriptor section section's
// fixed-count dwords (spec.md §4.4; N is per-section, never caller-supplied).
func (c *Controller) ReadDescriptorSection(section FlashDescriptorSection) ([]uint32, error) {
	n := descriptorSectionDwordCount[section]

	out := make([]uint32, 0, n)
	var errs *multierror.Error

	for i := 0; i < n; i++ {
		v, err := c.ReadDescriptorDword(section, i)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s[%d]: %w", section, i, err))
			continue
		}
		out = append(out, v)
	}

	return out, errs.ErrorOrNil()
}
