package spi

import (
	"fmt"

	"github.com/spisec/pchspi/bits"
)

// WriteProtectionStatus is the decoded state of the three BIOS Control
// write-protection controls (spec.md §4.7).
type WriteProtectionStatus struct {
	BiosLockEnable         bool
	BiosWriteEnable        bool
	SmmBiosWriteProtection bool
}

// GetWriteProtectionStatus reads BiosLockEnable, BiosWriteEnable and
// SmmBiosWriteProtection through the register catalog's control indirection
// (spec.md §4.7).
func (c *Controller) GetWriteProtectionStatus() (WriteProtectionStatus, error) {
	ble, err := c.readControl("BiosLockEnable")
	if err != nil {
		return WriteProtectionStatus{}, err
	}
	biosWE, err := c.readControl("BiosWriteEnable")
	if err != nil {
		return WriteProtectionStatus{}, err
	}
	smmBWP, err := c.readControl("SmmBiosWriteProtection")
	if err != nil {
		return WriteProtectionStatus{}, err
	}

	return WriteProtectionStatus{
		BiosLockEnable:         ble != 0,
		BiosWriteEnable:        biosWE != 0,
		SmmBiosWriteProtection: smmBWP != 0,
	}, nil
}

// DisableWriteProtection sets BiosWriteEnable unconditionally and re-reads
// it, returning true only if it reads back as set (spec.md §4.7). It does
// not attempt to defeat a BiosLockEnable-locked configuration; the caller
// interprets the returned status.
func (c *Controller) DisableWriteProtection() (bool, error) {
	if err := c.setControl("BiosWriteEnable", 1); err != nil {
		return false, err
	}

	v, err := c.readControl("BiosWriteEnable")
	if err != nil {
		return false, err
	}

	return v == 1, nil
}

func (c *Controller) readControl(name string) (uint32, error) {
	ctrl, ok := c.catalog.ControlDef(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrControlNotDefined, name)
	}

	raw, err := c.readNamed(ctrl.Register)
	if err != nil {
		return 0, err
	}

	return c.fieldOf(ctrl.Register, raw, ctrl.Field)
}

func (c *Controller) setControl(name string, value uint32) error {
	ctrl, ok := c.catalog.ControlDef(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrControlNotDefined, name)
	}

	def, ok := c.catalog.RegisterDef(ctrl.Register)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRegisterNotDefined, ctrl.Register)
	}

	field, ok := def.Fields[ctrl.Field]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrFieldNotDefined, ctrl.Register, ctrl.Field)
	}

	raw, err := c.readNamed(ctrl.Register)
	if err != nil {
		return err
	}

	bits.SetN(&raw, field.Pos, field.Mask(), value)

	return c.writeNamed(ctrl.Register, raw)
}
