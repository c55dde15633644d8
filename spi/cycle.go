package spi

import (
	"fmt"
	"time"
)

// cyclePollBudget is the number of SCIP=0 polls attempted before falling
// back to a single 100ms sleep (spec.md §4.2, §9 "100ms stall on busy
// controller"). The loop intentionally has no sleep between polls, to
// preserve the documented ~7s/MiB throughput at DBC=64.
const cyclePollBudget = 1000

// cycleFallbackSleep is the single backstop sleep issued once the poll
// budget is exhausted.
const cycleFallbackSleep = 100 * time.Millisecond

// waitCycleDone polls HSFS.SCIP until the controller reports idle, clears
// the sticky FDONE/FCERR/AEL bits, and reports whether the cycle completed
// cleanly (spec.md §4.2).
func (c *Controller) waitCycleDone() (bool, error) {
	done, err := c.pollCycleIdle()
	if err != nil {
		return false, err
	}

	if !done {
		c.log.Debug("SPI cycle still in progress, waiting", "timeout", cycleFallbackSleep)
		time.Sleep(cycleFallbackSleep)

		done, err = c.scipClear()
		if err != nil {
			return false, err
		}
	}

	if !done {
		return false, nil
	}

	mask, err := c.hsfsClearMask()
	if err != nil {
		return false, err
	}

	if err := c.writeRaw("HSFS", 0, mask, 1); err != nil {
		return false, err
	}

	hsfs, err := c.readRaw("HSFS", 0, 1)
	if err != nil {
		return false, err
	}

	ael, err := c.fieldOf("HSFS", hsfs, "AEL")
	if err != nil {
		return false, err
	}
	fcerr, err := c.fieldOf("HSFS", hsfs, "FCERR")
	if err != nil {
		return false, err
	}

	return ael == 0 && fcerr == 0, nil
}

func (c *Controller) pollCycleIdle() (bool, error) {
	for i := 0; i < cyclePollBudget; i++ {
		clear, err := c.scipClear()
		if err != nil {
			return false, err
		}
		if clear {
			return true, nil
		}
	}

	return false, nil
}

func (c *Controller) scipClear() (bool, error) {
	hsfs, err := c.readRaw("HSFS", 0, 1)
	if err != nil {
		return false, err
	}

	scip, err := c.fieldOf("HSFS", hsfs, "SCIP")
	if err != nil {
		return false, err
	}

	return scip == 0, nil
}

// hsfsClearMask computes the write-one-to-clear mask for FDONE|FCERR|AEL
// from the catalog's field positions (spec.md §6 "HSFS clear mask").
func (c *Controller) hsfsClearMask() (uint32, error) {
	def, ok := c.catalog.RegisterDef("HSFS")
	if !ok {
		return 0, fmt.Errorf("%w: HSFS", ErrRegisterNotDefined)
	}

	var mask uint32
	for _, name := range [...]string{"FDONE", "FCERR", "AEL"} {
		f, ok := def.Fields[name]
		if !ok {
			return 0, fmt.Errorf("%w: HSFS.%s", ErrFieldNotDefined, name)
		}
		mask |= 1 << uint(f.Pos)
	}

	return mask, nil
}

// sendCycle issues one hardware cycle and waits for its completion
// (spec.md §4.2 "send_cycle"). dbcMinusOne is ignored for ERASE cycles,
// which never write the DBC byte.
func (c *Controller) sendCycle(kind cycleKind, dbcMinusOne uint32, fla uint32) (bool, error) {
	c.log.Debug("send SPI cycle", "kind", kind.String(), "fla", fla, "dbc-1", dbcMinusOne)

	if err := c.writeNamed("FADDR", fla&FADDRMask); err != nil {
		return false, err
	}

	if kind != cycleErase {
		if err := c.writeRaw("HSFC", 1, dbcMinusOne, 1); err != nil {
			return false, err
		}
	}

	fgoDef, ok := c.catalog.RegisterDef("HSFC")
	if !ok {
		return false, fmt.Errorf("%w: HSFC", ErrRegisterNotDefined)
	}
	fgo, ok := fgoDef.Fields["FGO"]
	if !ok {
		return false, fmt.Errorf("%w: HSFC.FGO", ErrFieldNotDefined)
	}
	fcycleField, ok := fgoDef.Fields["FCYCLE"]
	if !ok {
		return false, fmt.Errorf("%w: HSFC.FCYCLE", ErrFieldNotDefined)
	}

	cmd := (fcycle[kind] << uint(fcycleField.Pos)) | (1 << uint(fgo.Pos))

	if err := c.writeRaw("HSFC", 0, cmd, 1); err != nil {
		return false, err
	}

	done, err := c.waitCycleDone()
	if err != nil {
		return false, err
	}
	if !done {
		c.log.Warn("SPI cycle not done", "kind", kind.String(), "fla", fla)
	}

	return done, nil
}
