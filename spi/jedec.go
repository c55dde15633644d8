package spi

// JedecID is the decoded result of a JEDEC ID cycle (spec.md §4.6).
type JedecID struct {
	Raw uint32

	Manufacturer byte
	DeviceHigh   byte
	DeviceLow    byte
}

// ID24 returns the canonical 24-bit JEDEC id, manufacturer in the high byte.
func (j JedecID) ID24() uint32 {
	return uint32(j.Manufacturer)<<16 | uint32(j.DeviceHigh)<<8 | uint32(j.DeviceLow)
}

// GetJEDECID issues a JEDEC cycle and rearranges the returned dword into
// canonical manufacturer/device byte order (spec.md §4.6). It requires the
// catalog to expose HSFS.FCYCLE; ErrFieldNotDefined otherwise.
func (c *Controller) GetJEDECID() (JedecID, error) {
	if !c.registerHasField("HSFS", "FCYCLE") {
		return JedecID{}, ErrFieldNotDefined
	}

	if err := c.checkHardwareSequencing(); err != nil {
		return JedecID{}, err
	}

	ok, err := c.sendCycle(cycleJedec, JedecDBC-1, 0)
	if err != nil {
		return JedecID{}, err
	}
	if !ok {
		return JedecID{}, ErrCycleFailed
	}

	raw, err := c.readNamed("FDATA0")
	if err != nil {
		return JedecID{}, err
	}

	// The hardware returns the three ID bytes little-endian; canonical
	// JEDEC ordering is {manufacturer, device_hi, device_lo} big-endian.
	id := ((raw & 0xFF) << 16) | (raw & 0xFF00) | ((raw >> 16) & 0xFF)

	return JedecID{
		Raw:          raw,
		Manufacturer: byte(id >> 16),
		DeviceHigh:   byte(id >> 8),
		DeviceLow:    byte(id),
	}, nil
}

// jedecManufacturers is a representative subset of the JEDEC JEP106
// manufacturer ID table. spi_jedec_ids.py (the original tool's full static
// lookup file) was not present in this retrieval, so only the manufacturers
// commonly seen on PCH-attached BIOS flash parts are listed; an id absent
// here is reported as unknown rather than guessed.
var jedecManufacturers = map[byte]string{
	0x20: "Micron/Numonyx/ST",
	0xEF: "Winbond",
	0xC2: "Macronix",
	0x1F: "Adesto/Atmel",
	0x01: "Spansion/Cypress",
	0xBF: "SST/Microchip",
	0x9D: "ISSI",
	0x8C: "Eon Silicon",
}

// jedecDevices maps a small set of full 24-bit ids to a display name, again
// a representative subset grounded on the same manufacturer list above.
var jedecDevices = map[uint32]string{
	0x202018: "M25P16",
	0x202020: "N25Q128",
	0xEF4018: "W25Q128FV",
	0xEF3013: "W25X40",
	0xC22018: "MX25L1606E",
	0xC22019: "MX25L3206E",
}

// DecodedJedecID is a JedecID resolved against the static manufacturer/device
// tables, for presentational dumps (spec.md §4.6 "Decoded form").
type DecodedJedecID struct {
	JedecID
	Manufacturer string
	Device       string
}

// GetJEDECIDDecoded issues a JEDEC cycle and resolves the result against the
// static lookup tables.
func (c *Controller) GetJEDECIDDecoded() (DecodedJedecID, error) {
	id, err := c.GetJEDECID()
	if err != nil {
		return DecodedJedecID{}, err
	}

	manufacturer, ok := jedecManufacturers[id.Manufacturer]
	if !ok {
		manufacturer = "unknown"
	}

	device, ok := jedecDevices[id.ID24()]
	if !ok {
		device = "unknown"
	}

	return DecodedJedecID{JedecID: id, Manufacturer: manufacturer, Device: device}, nil
}
