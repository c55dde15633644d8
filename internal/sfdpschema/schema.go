// Package sfdpschema models the externally-supplied SFDP field-description
// document (spec.md §4.5, §6 "File-format input") used to decode the JEDEC
// Basic Flash Parameter Table dwords read from the flash part. The document
// is XML-shaped: a root element identifying it as an SFDP schema, one child
// per register, and one grandchild per bit-field carrying bit/size/name/desc
// attributes.
package sfdpschema

import (
	"encoding/xml"
	"fmt"
	"io"
)

// rootTag is the expected root element name of a valid schema document.
const rootTag = "SFDP"

// Field describes one bit-field of a JEDEC Basic Flash Parameter Table
// dword.
type Field struct {
	Bit  int    `xml:"bit,attr"`
	Size int    `xml:"size,attr"`
	Name string `xml:"name,attr"`
	Desc string `xml:"desc,attr"`
}

// mask returns the field's bitmask, unshifted.
func (f Field) mask() uint32 {
	return (uint32(1) << uint(f.Size)) - 1
}

// Register describes one decodable dword of the parameter table.
type Register struct {
	Name   string  `xml:"name,attr"`
	Desc   string  `xml:"desc,attr"`
	Fields []Field `xml:"field"`
}

// xmlDoc mirrors the on-disk shape; Schema is the public, validated form.
// XMLName carries no tag so that any root element decodes and Parse can
// report a wrong root as ErrInvalidSchema.
type xmlDoc struct {
	XMLName   xml.Name
	Registers []Register `xml:"register"`
}

// Schema is a parsed, validated SFDP field-description document.
type Schema struct {
	Registers []Register
}

// ErrInvalidSchema is returned when a document's root element does not
// identify it as an SFDP schema.
var ErrInvalidSchema = fmt.Errorf("sfdpschema: root element is not %q", rootTag)

// Parse reads and validates an SFDP schema document.
func Parse(r io.Reader) (Schema, error) {
	var doc xmlDoc

	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return Schema{}, fmt.Errorf("sfdpschema: decode: %w", err)
	}

	if doc.XMLName.Local != rootTag {
		return Schema{}, ErrInvalidSchema
	}

	return Schema{Registers: doc.Registers}, nil
}

// FieldValue is one decoded bit-field, paired with its description for
// presentational dumps.
type FieldValue struct {
	Field Field
	Value uint32
}

// Decode extracts every field of register from a raw 32-bit value read from
// the JEDEC Basic Flash Parameter Table.
func Decode(reg Register, raw uint32) []FieldValue {
	values := make([]FieldValue, 0, len(reg.Fields))

	for _, f := range reg.Fields {
		values = append(values, FieldValue{
			Field: f,
			Value: (raw >> uint(f.Bit)) & f.mask(),
		})
	}

	return values
}

// RegisterAt returns the schema's i-th register and whether i is in range,
// used when walking the JEDEC Basic Flash Parameter Table dword-by-dword
// (spec.md §4.5 step 5).
func (s Schema) RegisterAt(i int) (Register, bool) {
	if i < 0 || i >= len(s.Registers) {
		return Register{}, false
	}

	return s.Registers[i], true
}
