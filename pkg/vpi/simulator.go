package vpi

import (
	"fmt"
	"time"

	"github.com/OpenTraceLab/jtagvpi/pkg/tap"
)

// ScanHook lets a test supply device-specific TDO data for a scan.
type ScanHook func(tms, tdi []byte, bits uint32) ([]byte, error)

// ScanOp captures the last scan served by the simulator for inspection
// within tests.
type ScanOp struct {
	TMS  []byte
	TDI  []byte
	Bits uint32
}

// SimTransport is an in-memory Transport that behaves like the remote VPI
// server: it consumes command frames written to it, tracks the TAP state the
// TMS bits imply, and queues the bytes a real server would send back. It is
// useful for unit tests and for exercising the CLI without a simulator
// process running.
type SimTransport struct {
	// ResetResponse is the 4-byte reply returned for RESET commands.
	ResetResponse ResponseHeader

	// OnScan, when set, provides the TDO buffer for each scan. The default
	// echoes TDI to keep tests predictable.
	OnScan ScanHook

	// Silent suppresses all replies so reads fail with ErrTimeout,
	// mimicking a server that accepts commands but never answers.
	Silent bool

	machine *tap.StateMachine

	pending   Command
	inScan    bool
	awaitTDI  bool
	scanTMS   []byte
	readQueue []byte
	lastScan  ScanOp
	lastTMS   []byte
	resets    int
	writes    int
	closed    bool
}

// NewSimTransport creates a simulator with the TAP in Test-Logic-Reset.
func NewSimTransport() *SimTransport {
	return &SimTransport{machine: tap.NewStateMachine()}
}

// TAPState reports the TAP controller state implied by the TMS bits the
// simulator has consumed so far.
func (s *SimTransport) TAPState() tap.State {
	return s.machine.State()
}

// LastScan returns a copy of the most recent scan request.
func (s *SimTransport) LastScan() ScanOp {
	return ScanOp{
		TMS:  append([]byte(nil), s.lastScan.TMS...),
		TDI:  append([]byte(nil), s.lastScan.TDI...),
		Bits: s.lastScan.Bits,
	}
}

// LastTMSSequence returns a copy of the most recent TMS_SEQ buffer.
func (s *SimTransport) LastTMSSequence() []byte {
	return append([]byte(nil), s.lastTMS...)
}

// ResetCount reports how many RESET commands have been consumed.
func (s *SimTransport) ResetCount() int {
	return s.resets
}

// WriteCount reports how many writes reached the transport. Validation
// failures in the session must leave this at zero.
func (s *SimTransport) WriteCount() int {
	return s.writes
}

func (s *SimTransport) Write(p []byte) error {
	if s.closed {
		return fmt.Errorf("write %d bytes: %w", len(p), ErrConnectionClosed)
	}
	s.writes++

	if s.inScan {
		return s.consumeScanBuffer(p)
	}

	cmd, err := ParseCommand(p)
	if err != nil {
		return err
	}

	switch cmd.Opcode {
	case CmdReset:
		s.resets++
		s.machine.Reset()
		if !s.Silent {
			s.readQueue = append(s.readQueue,
				s.ResetResponse.Response, s.ResetResponse.TDO,
				s.ResetResponse.Mode, s.ResetResponse.Status)
		}
	case CmdScanChain, CmdTMSSequence:
		if cmd.Length == 0 {
			return fmt.Errorf("%s with zero bit count: %w", opcodeName(cmd.Opcode), ErrMalformedCommand)
		}
		s.pending = cmd
		s.inScan = true
		s.awaitTDI = false
		s.scanTMS = nil
	}
	return nil
}

// consumeScanBuffer handles the payload writes that follow a SCAN or TMS_SEQ
// header: one TMS buffer, then (for SCAN) one TDI buffer.
func (s *SimTransport) consumeScanBuffer(p []byte) error {
	required := ScanBytes(s.pending.Length)
	if len(p) != required {
		return fmt.Errorf("payload buffer is %d bytes, need %d for %d bits: %w",
			len(p), required, s.pending.Length, ErrMalformedCommand)
	}

	if !s.awaitTDI {
		s.machine.ClockBuffer(p, s.pending.Length)
		if s.pending.Opcode == CmdTMSSequence {
			s.lastTMS = append([]byte(nil), p...)
			s.inScan = false
			return nil
		}
		s.scanTMS = append([]byte(nil), p...)
		s.awaitTDI = true
		return nil
	}

	tdi := append([]byte(nil), p...)
	s.lastScan = ScanOp{TMS: s.scanTMS, TDI: tdi, Bits: s.pending.Length}
	s.inScan = false

	if s.Silent {
		return nil
	}

	tdo := make([]byte, required)
	if s.OnScan != nil {
		out, err := s.OnScan(s.scanTMS, tdi, s.pending.Length)
		if err != nil {
			return err
		}
		copy(tdo, out)
	} else {
		copy(tdo, tdi)
	}
	s.readQueue = append(s.readQueue, tdo...)
	return nil
}

func (s *SimTransport) ReadFull(p []byte) error {
	if s.closed {
		return fmt.Errorf("read %d bytes: %w", len(p), ErrConnectionClosed)
	}
	if len(s.readQueue) < len(p) {
		// A real transport would block until the deadline here.
		return fmt.Errorf("read %d bytes: %w", len(p), ErrTimeout)
	}
	copy(p, s.readQueue[:len(p)])
	s.readQueue = s.readQueue[len(p):]
	return nil
}

// SetTimeout is a no-op; the simulator never blocks.
func (s *SimTransport) SetTimeout(time.Duration) {}

func (s *SimTransport) Close() error {
	s.closed = true
	return nil
}

func opcodeName(op byte) string {
	switch op {
	case CmdReset:
		return "RESET"
	case CmdTMSSequence:
		return "TMS_SEQ"
	case CmdScanChain:
		return "SCAN_CHAIN"
	default:
		return fmt.Sprintf("0x%02X", op)
	}
}
