package spi

import "errors"

// Sentinel errors. ErrHardwareSequencingDisabled, ErrCycleNotReady and
// ErrNoSPIBAR end the operation that returns them. Read, Write, GetRegions,
// GetProtectedRanges and ReadDescriptorSection aggregate per-chunk or
// per-register failures into a *multierror.Error and continue past them.
var (
	// ErrHardwareSequencingDisabled is returned by checkHardwareSequencing
	// when HSFS.FDV reads as 0: the platform does not support hardware
	// sequencing and no further SPI operation can proceed.
	ErrHardwareSequencingDisabled = errors.New("spi: hardware sequencing is disabled (HSFS.FDV = 0)")

	// ErrCycleNotReady is returned by Read, Write and Erase when the wait
	// before their first cycle fails: SCIP still set after the poll budget
	// and fallback sleep, or AEL/FCERR still set after the clear.
	ErrCycleNotReady = errors.New("spi: SPI cycle still in progress")

	// ErrCycleFailed is returned when a cycle completed but left AEL or
	// FCERR set after the write-one-to-clear.
	ErrCycleFailed = errors.New("spi: SPI cycle reported an error (AEL/FCERR)")

	// ErrRegisterNotDefined is returned when a required named register is
	// absent from the catalog.
	ErrRegisterNotDefined = errors.New("spi: register not defined in catalog")

	// ErrFieldNotDefined is returned when a required field is absent from
	// an otherwise-defined register.
	ErrFieldNotDefined = errors.New("spi: register field not defined in catalog")

	// ErrControlNotDefined is returned when a named BIOS write-protection
	// control has no catalog mapping.
	ErrControlNotDefined = errors.New("spi: control not defined in catalog")

	// ErrProtectedRangeIndex is returned for an out-of-range protected
	// range index.
	ErrProtectedRangeIndex = errors.New("spi: protected range index out of bounds")

	// ErrNoSPIBAR is returned when the Base Resolver can find SPIBAR
	// neither in the catalog nor via the PCI fallback.
	ErrNoSPIBAR = errors.New("spi: unable to resolve SPI MMIO base address")
)
