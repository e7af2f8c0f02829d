package vpi

import (
	"encoding/binary"
	"fmt"
)

// JTAG VPI command opcodes
const (
	CmdReset       = 0x00
	CmdTMSSequence = 0x01
	CmdScanChain   = 0x02
)

const (
	// Command header: opcode, two reserved bytes, one pad byte, then a
	// 32-bit big-endian length field.
	HeaderSize = 8

	// RESET reply: response, tdo, mode, status.
	ResetResponseSize = 4
)

// Command is a decoded command header. For CmdScanChain and CmdTMSSequence
// the Length field carries the bit count of the operation, not a byte count.
type Command struct {
	Opcode byte
	Length uint32
}

// ResponseHeader is the 4-byte reply to a RESET command. The protocol does
// not define success semantics for these fields; they are opaque diagnostics
// reported by the remote server.
type ResponseHeader struct {
	Response uint8
	TDO      uint8
	Mode     uint8
	Status   uint8
}

// String formats the header the way the VPI server logs it.
func (r ResponseHeader) String() string {
	return fmt.Sprintf("response=%d tdo=%d mode=%d status=%d",
		r.Response, r.TDO, r.Mode, r.Status)
}

// ScanBytes returns the number of buffer bytes needed to carry bits, i.e.
// ceil(bits/8). TMS, TDI, and TDO buffers for one scan are all this long.
// The sum is widened so a bit count near the top of the uint32 range cannot
// wrap to a zero-length buffer.
func ScanBytes(bits uint32) int {
	return int((uint64(bits) + 7) / 8)
}

func encodeHeader(opcode byte, length uint32) []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = opcode
	// buf[1:4] are reserved/pad and stay zero on encode.
	binary.BigEndian.PutUint32(buf[4:], length)
	return buf
}

// EncodeReset builds a RESET command frame. The length field is unused for
// RESET and is sent as zero.
func EncodeReset() []byte {
	return encodeHeader(CmdReset, 0)
}

// EncodeScan builds a SCAN_CHAIN command frame for a scan of the given bit
// count. A zero-bit scan is meaningless and is rejected before any I/O.
func EncodeScan(bits uint32) ([]byte, error) {
	if bits == 0 {
		return nil, fmt.Errorf("scan of zero bits: %w", ErrInvalidArgument)
	}
	return encodeHeader(CmdScanChain, bits), nil
}

// EncodeTMSSequence builds a TMS_SEQ command frame announcing a TMS-only
// buffer of the given bit count. The server consumes the buffer without
// replying.
func EncodeTMSSequence(bits uint32) ([]byte, error) {
	if bits == 0 {
		return nil, fmt.Errorf("TMS sequence of zero bits: %w", ErrInvalidArgument)
	}
	return encodeHeader(CmdTMSSequence, bits), nil
}

// DecodeResetResponse parses the 4-byte RESET reply. Any other length means
// the stream is desynchronized.
func DecodeResetResponse(buf []byte) (ResponseHeader, error) {
	if len(buf) != ResetResponseSize {
		return ResponseHeader{}, fmt.Errorf("reset response is %d bytes, want %d: %w",
			len(buf), ResetResponseSize, ErrMalformedResponse)
	}
	return ResponseHeader{
		Response: buf[0],
		TDO:      buf[1],
		Mode:     buf[2],
		Status:   buf[3],
	}, nil
}

// ParseCommand decodes an 8-byte command header as the server side of the
// protocol sees it. Reserved bytes are ignored on decode.
func ParseCommand(buf []byte) (Command, error) {
	if len(buf) != HeaderSize {
		return Command{}, fmt.Errorf("command header is %d bytes, want %d: %w",
			len(buf), HeaderSize, ErrMalformedCommand)
	}
	cmd := Command{
		Opcode: buf[0],
		Length: binary.BigEndian.Uint32(buf[4:]),
	}
	switch cmd.Opcode {
	case CmdReset, CmdTMSSequence, CmdScanChain:
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("unknown opcode 0x%02X: %w", cmd.Opcode, ErrMalformedCommand)
	}
}

// ValidateScanBuffers checks a scan request before anything touches the
// wire: the bit count must be positive and both buffers must be exactly
// ceil(bits/8) bytes. It returns the required byte length.
func ValidateScanBuffers(tms, tdi []byte, bits uint32) (int, error) {
	if bits == 0 {
		return 0, fmt.Errorf("scan of zero bits: %w", ErrInvalidArgument)
	}
	required := ScanBytes(bits)
	if len(tms) != required {
		return 0, fmt.Errorf("tms buffer is %d bytes, need %d for %d bits: %w",
			len(tms), required, bits, ErrInvalidArgument)
	}
	if len(tdi) != required {
		return 0, fmt.Errorf("tdi buffer is %d bytes, need %d for %d bits: %w",
			len(tdi), required, bits, ErrInvalidArgument)
	}
	return required, nil
}
