package spi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRegionMatchesWorkedExample(t *testing.T) {
	c, m, _ := newTestController()

	// FREG1_BIOS offset 0x54+4 = 0x58 (spec.md §3 worked example).
	require.NoError(t, m.Write(0, 0x58, 0x0BFF0003, 4))

	r, err := c.GetRegion(RegionBIOS)
	require.NoError(t, err)

	assert.Equal(t, uint32(0x00003000), r.Base)
	assert.Equal(t, uint32(0x00BFFFFF), r.Limit)
	assert.True(t, r.Available())
}

func TestRegionUnavailableWhenLimitBelowBase(t *testing.T) {
	c, m, _ := newTestController()

	// RB=5, RL=0 -> limit < base.
	require.NoError(t, m.Write(0, 0x58, 0x00000005, 4))

	regions, err := c.GetRegions(false)
	require.NoError(t, err)
	_, present := regions[RegionBIOS]
	assert.False(t, present, "unavailable region must be dropped when allRegions=false")

	all, err := c.GetRegions(true)
	require.NoError(t, err)
	r, present := all[RegionBIOS]
	require.True(t, present)
	assert.False(t, r.Available())
}

func TestProtectedRangeLimitCanonicalizationInvariant(t *testing.T) {
	c, m, _ := newTestController()

	// PR0 offset: 0x54 + 12*4 = 0x84. WPE=0, RPE=0, PRL=1: the limit's low
	// 12 bits are zero and must NOT be OR'd with 0xFFF while inactive.
	raw := uint32(0x00010000) // PRB=0, PRL=1, WPE=0, RPE=0
	require.NoError(t, m.Write(0, 0x84, raw, 4))

	pr, err := c.GetProtectedRange(0)
	require.NoError(t, err)
	assert.False(t, pr.Active())
	assert.Equal(t, uint32(1<<FLAShift), pr.Limit, "inactive range's limit must not be OR'd with 0xFFF")
}

func TestProtectedRangeActiveCanonicalizesLimit(t *testing.T) {
	c, m, _ := newTestController()

	raw := uint32(1)<<31 | uint32(1)<<16 // WPE=1, PRL=1
	require.NoError(t, m.Write(0, 0x84, raw, 4))

	pr, err := c.GetProtectedRange(0)
	require.NoError(t, err)
	assert.True(t, pr.Active())
	assert.Equal(t, uint32(1<<FLAShift)|FLAPageMask, pr.Limit)
}

func TestProtectedRangeIndexBounds(t *testing.T) {
	c, _, _ := newTestController()

	_, err := c.GetProtectedRange(5)
	assert.ErrorIs(t, err, ErrProtectedRangeIndex)
}

func TestAccessGrantsDecodeFRAP(t *testing.T) {
	c, m, _ := newTestController()

	// BRRA (bits 16:23) = 0x03, BRWA (bits 24:31) = 0x01.
	require.NoError(t, m.Write(0, 0x50, 0x01030000, 4))

	grants, err := c.GetAccessGrants()
	require.NoError(t, err)

	assert.True(t, grants.CanRead(RegionFlashDescriptor))
	assert.True(t, grants.CanRead(RegionBIOS))
	assert.False(t, grants.CanRead(RegionME))
	assert.True(t, grants.CanWrite(RegionFlashDescriptor))
	assert.False(t, grants.CanWrite(RegionBIOS))
}

func TestMissingRegionCatalogMiss(t *testing.T) {
	c, _, _ := newTestController()

	_, err := c.GetRegion(RegionID(99))
	assert.ErrorIs(t, err, ErrRegisterNotDefined)
}

func TestReadDescriptorSectionFixedCounts(t *testing.T) {
	c, _, _ := newTestController()

	counts := map[FlashDescriptorSection]int{
		DescriptorSectionSignatureMap: 5,
		DescriptorSectionComponent:    3,
		DescriptorSectionRegions:      5,
		DescriptorSectionMaster:       3,
	}

	for section, n := range counts {
		words, err := c.ReadDescriptorSection(section)
		require.NoError(t, err)
		assert.Len(t, words, n, "section %s", section)
	}
}

func TestReadDescriptorDwordWritesFDOCPerFDSSAndIndex(t *testing.T) {
	c, m, _ := newTestController()

	require.NoError(t, m.Write(0, 0xB4, 0xDEADBEEF, 4)) // FDOD

	v, err := c.ReadDescriptorDword(DescriptorSectionRegions, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v)

	fdoc, err := c.readNamed("FDOC")
	require.NoError(t, err)
	assert.Equal(t, uint32(DescriptorSectionRegions)<<12|uint32(2)<<2, fdoc)
}
