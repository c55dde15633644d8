package spi

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/spisec/pchspi/internal/sfdpschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemaXML = `<SFDP>
	<register name="BFPT_DW1" desc="Basic Flash Parameter Table, dword 1">
		<field bit="0" size="2" name="EraseSize" desc="4KiB erase supported"/>
		<field bit="2" size="1" name="WriteGranularity" desc="write granularity"/>
	</register>
</SFDP>`

func TestGetSFDPSkipsComponentWithoutSignature(t *testing.T) {
	c, _, _ := newTestController()
	schema, err := sfdpschema.Parse(strings.NewReader(testSchemaXML))
	require.NoError(t, err)

	comps, err := c.GetSFDP(schema)
	require.NoError(t, err)
	assert.Empty(t, comps, "neither component has the SFDP signature preset")
}

func TestGetSFDPReadsComponentZero(t *testing.T) {
	c, m, _ := newTestController()
	schema, err := sfdpschema.Parse(strings.NewReader(testSchemaXML))
	require.NoError(t, err)

	// Component 0 header: signature, then version (minor=1, major=6,
	// num_param_headers-1=0).
	m.sfdp[c.ptinxAddress(0, strataHeader, 0)] = sfdpSignature
	m.sfdp[c.ptinxAddress(0, strataHeader, 4)] = 0x00000601

	// First Parameter Header: length=1 dword.
	m.sfdp[c.ptinxAddress(0, strataParamTable, 0)] = 0x01000000

	// JEDEC Basic Table dword 0.
	m.sfdp[c.ptinxAddress(0, strataBasicTable, 0)] = 0x00000005

	comps, err := c.GetSFDP(schema)
	require.NoError(t, err)
	require.Len(t, comps, 1)

	comp := comps[0]
	assert.Equal(t, uint32(1), comp.Minor)
	assert.Equal(t, uint32(6), comp.Major)
	assert.Equal(t, uint32(1), comp.FirstHeader.LengthDwords)
	require.Len(t, comp.BasicTable, 2)
	assert.Equal(t, uint32(1), comp.BasicTable[0].Value) // EraseSize bits 1:0 = 01
}

func TestGetSFDPReadsAdditionalParameterHeaders(t *testing.T) {
	c, m, _ := newTestController()
	schema, err := sfdpschema.Parse(strings.NewReader(testSchemaXML))
	require.NoError(t, err)

	// Component 0 header: signature, then version (num_param_headers-1=1,
	// so num_param_headers=2 and one additional header is read).
	m.sfdp[c.ptinxAddress(0, strataHeader, 0)] = sfdpSignature
	m.sfdp[c.ptinxAddress(0, strataHeader, 4)] = 0x00010601

	// First Parameter Header: length=0 dwords (skip Basic Table decode).
	m.sfdp[c.ptinxAddress(0, strataParamTable, 0)] = 0x00000000

	// Additional header i=1 is read from FDATA4/FDATA5 (2+2*1, 2+2*1+1);
	// only FDATA12-15 are zeroed before the cycle, so presetting FDATA4/5
	// directly survives the SFDP cycle the same way FDATA0 survives a
	// JEDEC cycle in jedec_test.go. lo carries ManufacturerID byte 0 =
	// 0x30, minor=0x02, major=0x01, length=4. hi carries ManufacturerID
	// byte 3 = 0xEF000000 and a 24-bit table pointer of 0x001234.
	lo := uint32(0x04010230)
	hi := uint32(0xEF001234)
	binary.LittleEndian.PutUint32(m.regs[fdataOffset+4*4:], lo) // FDATA4
	binary.LittleEndian.PutUint32(m.regs[fdataOffset+5*4:], hi) // FDATA5

	comps, err := c.GetSFDP(schema)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	require.Len(t, comps[0].AdditionalPages, 1)

	hdr := comps[0].AdditionalPages[0]
	// (hi & 0xFF000000) >> 16 | (lo & 0xFF): (0xEF000000 >> 16) | 0x30 = 0xEF00 | 0x30 = 0xEF30.
	assert.Equal(t, uint32(0xEF30), hdr.ManufacturerID)
	assert.Equal(t, uint32(0x02), hdr.Minor)
	assert.Equal(t, uint32(0x01), hdr.Major)
	assert.Equal(t, uint32(0x04), hdr.LengthDwords)
	assert.Equal(t, uint32(0x001234), hdr.TablePointer)
}
