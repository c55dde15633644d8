package spi

import "fmt"

// Opcode is one entry of the software-sequencing opcode menu (PREOP/OPTYPE/
// OPMENU). This driver never issues software-sequencing cycles — see
// package doc "Non-goals" — but read-only introspection of the configured
// menu is useful during assessment to see what the platform firmware has
// programmed (SPEC_FULL.md "Supplemented features").
type Opcode struct {
	Index int
	Value byte
	// Type is OPTYPE's 2-bit encoding for this slot: 0 read-no-address,
	// 1 write-no-address, 2 read-with-address, 3 write-with-address.
	Type byte
}

func (o Opcode) String() string {
	kinds := [4]string{"read, no address", "write, no address", "read, with address", "write, with address"}
	return fmt.Sprintf("opcode[%d] = 0x%02X (%s)", o.Index, o.Value, kinds[o.Type&0x3])
}

// GetOpcodeMenu reads the 8-entry software-sequencing opcode menu
// (OPTYPE/OPMENU_LO/OPMENU_HI) without issuing any cycle; the preopcodes
// are read by GetPreopcodes.
func (c *Controller) GetOpcodeMenu() ([]Opcode, error) {
	optype, err := c.readNamed("OPTYPE")
	if err != nil {
		return nil, err
	}
	lo, err := c.readNamed("OPMENU_LO")
	if err != nil {
		return nil, err
	}
	hi, err := c.readNamed("OPMENU_HI")
	if err != nil {
		return nil, err
	}

	menu := uint64(lo) | uint64(hi)<<32

	opcodes := make([]Opcode, 8)
	for i := 0; i < 8; i++ {
		opcodes[i] = Opcode{
			Index: i,
			Value: byte(menu >> uint(8*i)),
			Type:  byte(optype>>uint(2*i)) & 0x3,
		}
	}

	return opcodes, nil
}

// GetPreopcodes reads the two preopcodes (PREOP), the opcodes allowed to
// precede an atomic cycle (e.g. write-enable before a program/erase).
func (c *Controller) GetPreopcodes() (byte, byte, error) {
	preop, err := c.readNamed("PREOP")
	if err != nil {
		return 0, 0, err
	}

	return byte(preop), byte(preop >> 8), nil
}
