// Package idcode decodes IEEE 1149.1 device identification registers read
// from a JTAG scan chain.
package idcode

import "fmt"

// IDCode is a parsed 32-bit IDCODE.
type IDCode struct {
	Raw          uint32
	Version      uint8  // bits [31:28]
	PartNumber   uint16 // bits [27:12]
	Manufacturer uint16 // bits [11:1], JEP106 code
	Valid        bool   // bit 0, always 1 in a real IDCODE capture
}

// Parse splits a raw IDCODE into its fields.
func Parse(raw uint32) IDCode {
	return IDCode{
		Raw:          raw,
		Version:      uint8((raw >> 28) & 0xF),
		PartNumber:   uint16((raw >> 12) & 0xFFFF),
		Manufacturer: uint16((raw >> 1) & 0x7FF),
		Valid:        raw&0x1 == 0x1,
	}
}

// FromScan assembles the IDCODE from the first four bytes of a TDO buffer.
// Scan data arrives LSB first, so byte 0 carries IDCODE bits [7:0].
func FromScan(tdo []byte) (IDCode, error) {
	if len(tdo) < 4 {
		return IDCode{}, fmt.Errorf("idcode: need 4 TDO bytes, have %d", len(tdo))
	}
	raw := uint32(tdo[0]) | uint32(tdo[1])<<8 | uint32(tdo[2])<<16 | uint32(tdo[3])<<24
	return Parse(raw), nil
}

func (id IDCode) String() string {
	return fmt.Sprintf("0x%08X (Mfg: %s, Part: 0x%04X, Ver: %d)",
		id.Raw, ManufacturerName(id.Manufacturer), id.PartNumber, id.Version)
}

// manufacturers maps the JEP106 codes commonly seen on JTAG chains to
// vendor names.
var manufacturers = map[uint16]string{
	0x001: "AMD",
	0x009: "Intel",
	0x015: "Philips",
	0x017: "Texas Instruments",
	0x01F: "Atmel",
	0x020: "STMicroelectronics",
	0x025: "Analog Devices",
	0x02E: "Cypress",
	0x031: "Xilinx",
	0x03D: "Altera",
	0x041: "Lattice",
	0x049: "Infineon",
	0x06E: "Microchip",
	0x093: "ARM",
	0x0B7: "Espressif",
	0x13B: "Nordic Semiconductor",
	0x1F1: "Raspberry Pi",
}

// ManufacturerName resolves a JEP106 code to a vendor name, falling back to
// the numeric code for vendors not in the table.
func ManufacturerName(code uint16) string {
	if name, ok := manufacturers[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%03X)", code)
}
