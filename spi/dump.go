package spi

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// DumpRegions renders a table of every decoded Flash Region to w (spec.md
// §6 "presentational dumps").
func (c *Controller) DumpRegions(w io.Writer, allRegions bool) error {
	regions, err := c.GetRegions(allRegions)
	if err != nil {
		c.log.Warn("some regions could not be decoded", "error", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Region", "Base", "Limit", "Size", "Available"})

	for _, id := range allRegionIDs {
		r, ok := regions[id]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{
			id.String(),
			fmt.Sprintf("0x%06X", r.Base),
			fmt.Sprintf("0x%06X", r.Limit),
			fmt.Sprintf("0x%06X", r.Size()),
			r.Available(),
		})
	}

	t.Render()
	return nil
}

// DumpProtectedRanges renders a table of every decoded Protected Range.
func (c *Controller) DumpProtectedRanges(w io.Writer) error {
	ranges, err := c.GetProtectedRanges()
	if err != nil {
		c.log.Warn("some protected ranges could not be decoded", "error", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Index", "Base", "Limit", "WPE", "RPE", "Active"})

	for _, pr := range ranges {
		t.AppendRow(table.Row{
			pr.Index,
			fmt.Sprintf("0x%06X", pr.Base),
			fmt.Sprintf("0x%06X", pr.Limit),
			pr.WPE,
			pr.RPE,
			pr.Active(),
		})
	}

	t.Render()
	return nil
}

// DumpAccessGrants renders the FRAP-derived access-grant matrix.
func (c *Controller) DumpAccessGrants(w io.Writer) error {
	grants, err := c.GetAccessGrants()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Region", "BIOS Read", "BIOS Write"})

	for _, id := range allRegionIDs {
		if id >= 8 {
			continue
		}
		t.AppendRow(table.Row{id.String(), grants.CanRead(id), grants.CanWrite(id)})
	}

	t.Render()

	fmt.Fprintf(w, "master read grant: 0x%02X  master write grant: 0x%02X\n",
		grants.MasterReadGrant, grants.MasterWriteGrant)

	return nil
}

// DumpWriteProtectionStatus renders the three BIOS Control write-protection
// fields.
func (c *Controller) DumpWriteProtectionStatus(w io.Writer) error {
	status, err := c.GetWriteProtectionStatus()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Control", "Value"})
	t.AppendRow(table.Row{"BiosLockEnable", status.BiosLockEnable})
	t.AppendRow(table.Row{"BiosWriteEnable", status.BiosWriteEnable})
	t.AppendRow(table.Row{"SmmBiosWriteProtection", status.SmmBiosWriteProtection})
	t.Render()

	return nil
}

// DumpFlashDescriptor renders each of the four fixed Flash Descriptor
// sections at its fixed dword count (spec.md §4.4: N ∈ {5, 3, 5, 3}).
func (c *Controller) DumpFlashDescriptor(w io.Writer) error {
	sections := []FlashDescriptorSection{
		DescriptorSectionSignatureMap, DescriptorSectionComponent,
		DescriptorSectionRegions, DescriptorSectionMaster,
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Section", "Dword", "Value"})

	for _, s := range sections {
		words, err := c.ReadDescriptorSection(s)
		if err != nil {
			c.log.Warn("descriptor section read failed", "section", s.String(), "error", err)
		}
		for i, v := range words {
			t.AppendRow(table.Row{s.String(), i, fmt.Sprintf("0x%08X", v)})
		}
	}

	t.Render()
	return nil
}

// DumpOpcodes renders the preopcodes and the 8-entry opcode menu.
func (c *Controller) DumpOpcodes(w io.Writer) error {
	pre0, pre1, err := c.GetPreopcodes()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "preop0: 0x%02X  preop1: 0x%02X\n", pre0, pre1)

	opcodes, err := c.GetOpcodeMenu()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Index", "Value", "Type"})
	for _, o := range opcodes {
		t.AppendRow(table.Row{o.Index, fmt.Sprintf("0x%02X", o.Value), o.Type})
	}
	t.Render()

	return nil
}

// DumpBootFlashPrimaryRegion renders BFPR, the boot flash primary region.
func (c *Controller) DumpBootFlashPrimaryRegion(w io.Writer) error {
	r, err := c.GetBootFlashPrimaryRegion()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Base", "Limit", "Size"})
	t.AppendRow(table.Row{
		fmt.Sprintf("0x%06X", r.Base),
		fmt.Sprintf("0x%06X", r.Limit),
		fmt.Sprintf("0x%06X", r.Size()),
	})
	t.Render()

	return nil
}

// DumpSPIMap renders the complete SPI map report: descriptor, regions, BIOS
// primary region, FRAP matrix, opcode info, BIOS write-protection status and
// protected ranges, in that order (SPEC_FULL.md's supplemented features).
func (c *Controller) DumpSPIMap(w io.Writer) error {
	fmt.Fprintln(w, "== Flash Descriptor ==")
	if err := c.DumpFlashDescriptor(w); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n== Flash Regions ==")
	if err := c.DumpRegions(w, true); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n== Boot Flash Primary Region ==")
	if err := c.DumpBootFlashPrimaryRegion(w); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n== Access Grants ==")
	if err := c.DumpAccessGrants(w); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n== Opcode Info ==")
	if err := c.DumpOpcodes(w); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n== Write Protection ==")
	if err := c.DumpWriteProtectionStatus(w); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n== Protected Ranges ==")
	return c.DumpProtectedRanges(w)
}
