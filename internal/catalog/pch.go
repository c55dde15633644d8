package catalog

import "github.com/spisec/pchspi/internal/pciio"

// lpcBridge is the conventional (bus 0, device 31, function 0) PCI address
// of the LPC/eSPI bridge function hosting BIOS Control on every PCH
// generation this catalog models.
var lpcBridge = pciio.Address{Bus: 0, Device: 31, Function: 0}

func hsfsFields() map[string]Field {
	return map[string]Field{
		"FDONE":   {Pos: 0, Size: 1},
		"FCERR":   {Pos: 1, Size: 1},
		"AEL":     {Pos: 2, Size: 1},
		"SCIP":    {Pos: 5, Size: 1},
		"FDOPSS":  {Pos: 13, Size: 1},
		"FDV":     {Pos: 14, Size: 1},
		"FLOCKDN": {Pos: 15, Size: 1},
		// FCYCLE is not an HSFS bit on real silicon (it lives in HSFC) but
		// the JEDEC and SFDP readers gate their optional behavior on
		// register_has_field('HSFS', 'FCYCLE'), matching
		// chipsec/hal/spi.py's own (likely accidental) choice of register.
		// Carried here as a presence marker only; its value is never read.
		"FCYCLE": {Pos: 1, Size: 3},
	}
}

func hsfcFields() map[string]Field {
	return map[string]Field{
		"FGO":    {Pos: 0, Size: 1},
		"FCYCLE": {Pos: 1, Size: 3},
		"DBC":    {Pos: 8, Size: 6},
	}
}

func regionFields() map[string]Field {
	return map[string]Field{
		"RB": {Pos: 0, Size: 15},
		"RL": {Pos: 16, Size: 15},
	}
}

func prFields() map[string]Field {
	return map[string]Field{
		"PRB": {Pos: 0, Size: 15},
		"RPE": {Pos: 15, Size: 1},
		"PRL": {Pos: 16, Size: 15},
		"WPE": {Pos: 31, Size: 1},
	}
}

func bfprFields() map[string]Field {
	return map[string]Field{
		"PRB": {Pos: 0, Size: 15},
		"PRL": {Pos: 16, Size: 15},
	}
}

func frapFields() map[string]Field {
	return map[string]Field{
		"BMRAG": {Pos: 0, Size: 8},
		"BMWAG": {Pos: 8, Size: 8},
		"BRRA":  {Pos: 16, Size: 8},
		"BRWA":  {Pos: 24, Size: 8},
	}
}

func bcFields() map[string]Field {
	return map[string]Field{
		"BIOSWE":  {Pos: 0, Size: 1},
		"BLE":     {Pos: 1, Size: 1},
		"SMM_BWP": {Pos: 5, Size: 1},
	}
}

// baseRegisters builds the set of registers common to every PCH generation
// modeled here: hardware sequencing engine, descriptor observability, SFDP
// index/data window and the software-sequencing opcode menu (read-only
// introspection of the latter is in scope, see SPEC_FULL.md).
func baseRegisters() map[string]RegisterDef {
	regs := map[string]RegisterDef{
		"HSFS":        {Name: "HSFS", Space: SpaceMMIO, Offset: 0x04, Width: 2, Fields: hsfsFields()},
		"HSFC":        {Name: "HSFC", Space: SpaceMMIO, Offset: 0x06, Width: 2, Fields: hsfcFields()},
		"FADDR":       {Name: "FADDR", Space: SpaceMMIO, Offset: 0x08, Width: 4},
		"BFPR":        {Name: "BFPR", Space: SpaceMMIO, Offset: 0x00, Width: 4, Fields: bfprFields()},
		"FRAP":        {Name: "FRAP", Space: SpaceMMIO, Offset: 0x50, Width: 4, Fields: frapFields()},
		"FDOC":        {Name: "FDOC", Space: SpaceMMIO, Offset: 0xB0, Width: 4},
		"FDOD":        {Name: "FDOD", Space: SpaceMMIO, Offset: 0xB4, Width: 4},
		"BIOS_PTINX":  {Name: "BIOS_PTINX", Space: SpaceMMIO, Offset: 0xB8, Width: 4},
		"BIOS_PTDATA": {Name: "BIOS_PTDATA", Space: SpaceMMIO, Offset: 0xBC, Width: 4},
		"PREOP":       {Name: "PREOP", Space: SpaceMMIO, Offset: 0xA0, Width: 2},
		"OPTYPE":      {Name: "OPTYPE", Space: SpaceMMIO, Offset: 0xA2, Width: 2},
		"OPMENU_LO":   {Name: "OPMENU_LO", Space: SpaceMMIO, Offset: 0xA4, Width: 4},
		"OPMENU_HI":   {Name: "OPMENU_HI", Space: SpaceMMIO, Offset: 0xA8, Width: 4},
		"BC": {
			Name: "BC", Space: SpacePCIConfig, Offset: 0xDC, Width: 4,
			Fields: bcFields(), PCIAddress: lpcBridge,
		},
	}

	for i := 0; i < 16; i++ {
		name := FDataName(i)
		regs[name] = RegisterDef{Name: name, Space: SpaceMMIO, Offset: 0x10 + uint32(i)*4, Width: 4}
	}

	return regs
}

// FDataName returns the catalog register name of the i-th FDATA register
// (0..15), the 64-byte buffer FDATA0..FDATA15 form together (spec.md §6
// "FDATA marshalling").
func FDataName(i int) string {
	const letters = "0123456789"
	if i < 10 {
		return "FDATA" + string(letters[i])
	}
	return "FDATA1" + string(letters[i-10])
}

// addRegions adds region descriptors FREG0..FREGn-1 starting at offset 0x54.
func addRegions(regs map[string]RegisterDef, n int) {
	names := []string{
		"FREG0_FLASHD", "FREG1_BIOS", "FREG2_ME", "FREG3_GBE", "FREG4_PD",
		"FREG5", "FREG6", "FREG7", "FREG8_EC", "FREG9", "FREG10", "FREG11",
	}

	for i := 0; i < n && i < len(names); i++ {
		regs[names[i]] = RegisterDef{
			Name: names[i], Space: SpaceMMIO, Offset: 0x54 + uint32(i)*4, Width: 4,
			Fields: regionFields(),
		}
	}
}

// addProtectedRanges adds PR0..PRn-1 immediately after the region table.
func addProtectedRanges(regs map[string]RegisterDef, regionCount, n int) {
	base := uint32(0x54) + uint32(regionCount)*4

	for i := 0; i < n; i++ {
		name := "PR" + string(rune('0'+i))
		regs[name] = RegisterDef{
			Name: name, Space: SpaceMMIO, Offset: base + uint32(i)*4, Width: 4,
			Fields: prFields(),
		}
	}
}

func baseControls() map[string]Control {
	return map[string]Control{
		"BiosLockEnable":         {Register: "BC", Field: "BLE"},
		"BiosWriteEnable":        {Register: "BC", Field: "BIOSWE"},
		"SmmBiosWriteProtection": {Register: "BC", Field: "SMM_BWP"},
	}
}

// PCH100Series models the register catalog for the 100/200/300-series
// ("Sunrise Point" onward) desktop/mobile PCH generation: the full 12 flash
// regions and all 5 protected ranges named in spec.md §3.
func PCH100Series() Table {
	regs := baseRegisters()
	addRegions(regs, 12)
	addProtectedRanges(regs, 12, 5)

	return Table{
		Name:      "PCH 100/200/300-series",
		Registers: regs,
		Controls:  baseControls(),
		BARs: map[string]BAR{
			"SPIBAR": {Base: 0xFE010000, Length: 0x1000},
		},
		PCIFallback: PCIFallback{
			Address:        pciio.Address{Bus: 0, Device: 31, Function: 5},
			RegisterOffset: 0x10,
			BaseShift:      12,
			BaseOffset:     0,
		},
	}
}

// PCH9Series models an earlier ("9-series"/Lynx Point) generation that
// exposes only 10 flash regions and 3 protected ranges — used to exercise
// the "region/range absent from this platform" paths of the Region &
// Descriptor Decoder (spec.md §4.4, §7 "Catalog miss").
func PCH9Series() Table {
	regs := baseRegisters()
	addRegions(regs, 10)
	addProtectedRanges(regs, 10, 3)

	return Table{
		Name:      "PCH 9-series",
		Registers: regs,
		Controls:  baseControls(),
		BARs: map[string]BAR{
			"SPIBAR": {Base: 0xFED1F800, Length: 0x200},
		},
		PCIFallback: PCIFallback{
			Address:        pciio.Address{Bus: 0, Device: 31, Function: 0},
			RegisterOffset: 0xF0,
			BaseShift:      9,
			BaseOffset:     0,
		},
	}
}
