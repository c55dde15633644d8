package spi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPreopcodes(t *testing.T) {
	c, m, _ := newTestController()

	require.NoError(t, m.Write(0, 0xA0, 0x0605, 2)) // PREOP: pre0=0x05, pre1=0x06

	pre0, pre1, err := c.GetPreopcodes()
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), pre0)
	assert.Equal(t, byte(0x06), pre1)
}

func TestGetOpcodeMenu(t *testing.T) {
	c, m, _ := newTestController()

	require.NoError(t, m.Write(0, 0xA2, 0x0001, 2))       // OPTYPE: slot0=1 (write, no address)
	require.NoError(t, m.Write(0, 0xA4, 0x00000006, 4))   // OPMENU_LO: opcode[0]=0x06
	require.NoError(t, m.Write(0, 0xA8, 0x00000000, 4))   // OPMENU_HI

	opcodes, err := c.GetOpcodeMenu()
	require.NoError(t, err)
	require.Len(t, opcodes, 8)

	assert.Equal(t, byte(0x06), opcodes[0].Value)
	assert.Equal(t, byte(1), opcodes[0].Type)
	assert.Equal(t, byte(0), opcodes[1].Value)
}
