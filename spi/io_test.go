package spi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadExactMultipleOf64(t *testing.T) {
	c, m, _ := newTestController()

	for i := 0; i < 64; i++ {
		m.flash[i] = byte(i + 1)
	}

	out, err := c.Read(0, 64)
	require.NoError(t, err)
	require.Len(t, out, 64)
	assert.Equal(t, m.flash[:64], out)
}

func TestReadWithRemainder(t *testing.T) {
	c, m, _ := newTestController()
	copy(m.flash[:3], []byte{0xDD, 0xCC, 0xBB})

	out, err := c.Read(0, 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []byte{0xDD, 0xCC, 0xBB}, out)
}

func TestWriteThenReadBackRoundTrip(t *testing.T) {
	c, _, _ := newTestController()

	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	ok, err := c.Write(0, payload)
	require.NoError(t, err)
	assert.True(t, ok)

	out, err := c.Read(0, len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestErase(t *testing.T) {
	c, m, _ := newTestController()
	for i := 0; i < EraseBlock; i++ {
		m.flash[i] = 0x42
	}

	ok, err := c.Erase(0x000)
	require.NoError(t, err)
	assert.True(t, ok)

	for i := 0; i < EraseBlock; i++ {
		assert.Equal(t, byte(0xFF), m.flash[i])
	}
}

func TestReadToWriteFrom(t *testing.T) {
	c, _, _ := newTestController()

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}
	ok, err := c.WriteFrom(bytes.NewReader(payload), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	var buf bytes.Buffer
	err = c.ReadTo(&buf, 0, len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, buf.Bytes())
}

func TestReadFailureWithoutHardwareSequencing(t *testing.T) {
	c, m, _ := newTestController()
	m.regs[hsfsOffset+1] = 0 // clear HSFS.FDV (bit 14, high byte bit 6)

	_, err := c.Read(0, 4)
	assert.ErrorIs(t, err, ErrHardwareSequencingDisabled)
}

func TestWritePartialChunkFailureStillAggregates(t *testing.T) {
	c, m, _ := newTestController()
	m.failNext = true

	ok, err := c.Write(0, []byte{0x01, 0x02})
	assert.False(t, ok)
	assert.Error(t, err)
}
