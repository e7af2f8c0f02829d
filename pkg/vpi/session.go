package vpi

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Session drives RESET, SCAN, and TMS sequence operations over a single
// transport. Each operation is one blocking round trip; commands complete
// strictly in the order issued because the remote TAP is stateful. The
// session holds no state between calls beyond the transport it owns, and the
// transport must not be shared with anything else.
//
// Nothing is retried here. A JTAG scan can shift device state, so a silent
// retry after a transport failure could corrupt the TAP; the caller decides
// whether to reconnect and reset first.
type Session struct {
	transport Transport
	log       zerolog.Logger

	mu sync.Mutex // one operation in flight per session
}

// NewSession wraps a transport. Logging is off until SetLogger is called.
func NewSession(t Transport) *Session {
	return &Session{transport: t, log: zerolog.Nop()}
}

// SetLogger installs a logger for per-operation debug output.
func (s *Session) SetLogger(log zerolog.Logger) {
	s.log = log
}

// SetTimeout sets the deadline for each receive. On expiry the operation
// fails with ErrTimeout and the connection state is indeterminate; close and
// reconnect rather than reusing the session.
func (s *Session) SetTimeout(d time.Duration) {
	s.transport.SetTimeout(d)
}

// Reset sends a RESET command and decodes the 4-byte reply. The reply
// fields are diagnostics from the server and are returned uninterpreted.
func (s *Session) Reset() (ResponseHeader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transport.Write(EncodeReset()); err != nil {
		return ResponseHeader{}, fmt.Errorf("send RESET: %w", err)
	}

	buf := make([]byte, ResetResponseSize)
	if err := s.transport.ReadFull(buf); err != nil {
		return ResponseHeader{}, fmt.Errorf("read RESET response: %w", err)
	}

	resp, err := DecodeResetResponse(buf)
	if err != nil {
		return ResponseHeader{}, err
	}

	s.log.Debug().
		Uint8("response", resp.Response).
		Uint8("tdo", resp.TDO).
		Uint8("mode", resp.Mode).
		Uint8("status", resp.Status).
		Msg("reset complete")
	return resp, nil
}

// Scan shifts bits through the chain: SCAN header, then the TMS buffer, then
// the TDI buffer, each as one contiguous write, followed by a read of exactly
// ceil(bits/8) TDO bytes. The order is part of the wire contract: the server
// may start consuming TMS bits before TDI has arrived.
//
// The TDO buffer is returned unmodified; which bits mean what (instruction
// vs. data register) is the caller's concern.
func (s *Session) Scan(tms, tdi []byte, bits uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	required, err := ValidateScanBuffers(tms, tdi, bits)
	if err != nil {
		return nil, err
	}

	header, err := EncodeScan(bits)
	if err != nil {
		return nil, err
	}

	if err := s.transport.Write(header); err != nil {
		return nil, fmt.Errorf("send SCAN header: %w", err)
	}
	if err := s.transport.Write(tms); err != nil {
		return nil, fmt.Errorf("send TMS buffer: %w", err)
	}
	if err := s.transport.Write(tdi); err != nil {
		return nil, fmt.Errorf("send TDI buffer: %w", err)
	}

	tdo := make([]byte, required)
	if err := s.transport.ReadFull(tdo); err != nil {
		return nil, fmt.Errorf("read TDO buffer: %w", err)
	}

	s.log.Debug().
		Uint32("bits", bits).
		Hex("tms", tms).
		Hex("tdi", tdi).
		Hex("tdo", tdo).
		Msg("scan complete")
	return tdo, nil
}

// TMSSequence clocks a TMS-only bit pattern into the TAP: header then the
// TMS buffer. The server consumes it without replying.
func (s *Session) TMSSequence(tms []byte, bits uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bits == 0 {
		return fmt.Errorf("TMS sequence of zero bits: %w", ErrInvalidArgument)
	}
	if required := ScanBytes(bits); len(tms) != required {
		return fmt.Errorf("tms buffer is %d bytes, need %d for %d bits: %w",
			len(tms), required, bits, ErrInvalidArgument)
	}

	header, err := EncodeTMSSequence(bits)
	if err != nil {
		return err
	}
	if err := s.transport.Write(header); err != nil {
		return fmt.Errorf("send TMS_SEQ header: %w", err)
	}
	if err := s.transport.Write(tms); err != nil {
		return fmt.Errorf("send TMS buffer: %w", err)
	}

	s.log.Debug().Uint32("bits", bits).Hex("tms", tms).Msg("tms sequence sent")
	return nil
}

// Close releases the underlying transport. It waits for any operation in
// flight to finish first.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport.Close()
}
