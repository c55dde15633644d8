package sfdpschema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `<SFDP>
	<register name="BFPT_DW1" desc="dword 1">
		<field bit="0" size="2" name="EraseSize" desc="erase granularity"/>
		<field bit="2" size="1" name="WriteGranularity" desc="byte or page"/>
	</register>
	<register name="BFPT_DW2" desc="dword 2">
		<field bit="0" size="32" name="Density" desc="capacity minus one, bits"/>
	</register>
</SFDP>`

const wrongRootDoc = `<NotSFDP></NotSFDP>`

func TestParseValidSchema(t *testing.T) {
	s, err := Parse(strings.NewReader(validDoc))
	require.NoError(t, err)
	require.Len(t, s.Registers, 2)
	assert.Equal(t, "BFPT_DW1", s.Registers[0].Name)
	require.Len(t, s.Registers[0].Fields, 2)
	assert.Equal(t, "EraseSize", s.Registers[0].Fields[0].Name)
}

func TestParseRejectsWrongRoot(t *testing.T) {
	_, err := Parse(strings.NewReader(wrongRootDoc))
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestDecodeExtractsFields(t *testing.T) {
	s, err := Parse(strings.NewReader(validDoc))
	require.NoError(t, err)

	reg, ok := s.RegisterAt(0)
	require.True(t, ok)

	values := Decode(reg, 0b0000_0101)
	require.Len(t, values, 2)
	assert.Equal(t, uint32(1), values[0].Value) // EraseSize bits 1:0
	assert.Equal(t, uint32(1), values[1].Value) // WriteGranularity bit 2
}

func TestRegisterAtOutOfRange(t *testing.T) {
	s, err := Parse(strings.NewReader(validDoc))
	require.NoError(t, err)

	_, ok := s.RegisterAt(5)
	assert.False(t, ok)
}
