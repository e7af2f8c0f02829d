package vpi

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/OpenTraceLab/jtagvpi/pkg/tap"
)

func TestSessionReset(t *testing.T) {
	sim := NewSimTransport()
	sim.ResetResponse = ResponseHeader{Response: 1, TDO: 0, Mode: 0, Status: 0}

	s := NewSession(sim)
	resp, err := s.Reset()
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if resp != sim.ResetResponse {
		t.Errorf("Reset() = %+v, want %+v", resp, sim.ResetResponse)
	}
	if sim.ResetCount() != 1 {
		t.Errorf("ResetCount() = %d, want 1", sim.ResetCount())
	}
	if got := sim.TAPState(); got != tap.TestLogicReset {
		t.Errorf("TAPState() = %s, want %s", got, tap.TestLogicReset)
	}
}

func TestSessionScanEcho(t *testing.T) {
	sim := NewSimTransport()
	s := NewSession(sim)

	// 32 zero bits: a correctly behaving server echoes 4 zero TDO bytes.
	tdo, err := s.Scan(make([]byte, 4), make([]byte, 4), 32)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !bytes.Equal(tdo, make([]byte, 4)) {
		t.Errorf("tdo = % X, want 4 zero bytes", tdo)
	}

	last := sim.LastScan()
	if last.Bits != 32 || len(last.TMS) != 4 || len(last.TDI) != 4 {
		t.Errorf("unexpected scan metadata: %+v", last)
	}
}

func TestSessionScanPattern(t *testing.T) {
	sim := NewSimTransport()
	s := NewSession(sim)

	tdi := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	tdo, err := s.Scan(make([]byte, 4), tdi, 32)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !bytes.Equal(tdo, tdi) {
		t.Errorf("tdo = % X, want echo of % X", tdo, tdi)
	}
}

func TestSessionScanHook(t *testing.T) {
	sim := NewSimTransport()
	sim.OnScan = func(tms, tdi []byte, bits uint32) ([]byte, error) {
		if bits != 8 {
			t.Fatalf("hook bits = %d, want 8", bits)
		}
		return []byte{0xA5}, nil
	}

	s := NewSession(sim)
	tdo, err := s.Scan([]byte{0x00}, []byte{0xFF}, 8)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !bytes.Equal(tdo, []byte{0xA5}) {
		t.Errorf("tdo = % X, want A5", tdo)
	}
}

func TestSessionScanMismatchedBuffers(t *testing.T) {
	tests := []struct {
		name string
		tms  []byte
		tdi  []byte
		bits uint32
	}{
		{"zero bits", nil, nil, 0},
		{"tdi short", make([]byte, 4), make([]byte, 3), 32},
		{"tms short", make([]byte, 3), make([]byte, 4), 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimTransport()
			s := NewSession(sim)

			if _, err := s.Scan(tt.tms, tt.tdi, tt.bits); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Scan() error = %v, want ErrInvalidArgument", err)
			}
			// Validation failures must be caught before any I/O.
			if sim.WriteCount() != 0 {
				t.Errorf("WriteCount() = %d, want 0", sim.WriteCount())
			}
		})
	}
}

func TestSessionScanTimeout(t *testing.T) {
	sim := NewSimTransport()
	sim.Silent = true

	s := NewSession(sim)
	if _, err := s.Scan(make([]byte, 4), make([]byte, 4), 32); !errors.Is(err, ErrTimeout) {
		t.Errorf("Scan() error = %v, want ErrTimeout", err)
	}
}

func TestSessionResetTimeout(t *testing.T) {
	sim := NewSimTransport()
	sim.Silent = true

	s := NewSession(sim)
	if _, err := s.Reset(); !errors.Is(err, ErrTimeout) {
		t.Errorf("Reset() error = %v, want ErrTimeout", err)
	}
}

func TestSessionTMSSequence(t *testing.T) {
	sim := NewSimTransport()
	s := NewSession(sim)

	// The simulator's TAP starts in Test-Logic-Reset; walk it to Shift-DR.
	seq, err := tap.Path(tap.TestLogicReset, tap.ShiftDR)
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}

	tms, bits := seq.Pack()
	if err := s.TMSSequence(tms, bits); err != nil {
		t.Fatalf("TMSSequence() error = %v", err)
	}
	if !bytes.Equal(sim.LastTMSSequence(), tms) {
		t.Errorf("LastTMSSequence() = % X, want % X", sim.LastTMSSequence(), tms)
	}
	// The simulator tracks the TAP state the TMS bits imply.
	if got := sim.TAPState(); got != tap.ShiftDR {
		t.Errorf("TAPState() = %s, want %s", got, tap.ShiftDR)
	}
}

func TestSessionTMSSequenceBadLength(t *testing.T) {
	sim := NewSimTransport()
	s := NewSession(sim)

	if err := s.TMSSequence(make([]byte, 1), 9); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("TMSSequence() error = %v, want ErrInvalidArgument", err)
	}
	if err := s.TMSSequence(nil, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("TMSSequence(0 bits) error = %v, want ErrInvalidArgument", err)
	}
	if sim.WriteCount() != 0 {
		t.Errorf("WriteCount() = %d, want 0", sim.WriteCount())
	}
}

func TestSessionCloseWaitsForOperation(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	tr := NewTCPTransport(client)
	tr.SetTimeout(100 * time.Millisecond)
	s := NewSession(tr)

	// Consume the RESET header so the operation reaches its blocking read.
	go io.ReadFull(server, make([]byte, HeaderSize))

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := s.Reset()
		done <- err
	}()

	<-started
	time.Sleep(10 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Close holds the session lock, so by the time it returns the reset
	// must have finished (with a transport error, never a success).
	select {
	case err := <-done:
		if err == nil {
			t.Error("Reset() succeeded against a closing session")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Reset() did not finish after Close()")
	}
}

func TestSessionOrdering(t *testing.T) {
	// A scan after a reset must leave both operations fully consumed and
	// the transport drained, per the strict request/response ordering.
	sim := NewSimTransport()
	s := NewSession(sim)

	if _, err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	tdo, err := s.Scan([]byte{0x00}, []byte{0x3C}, 8)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !bytes.Equal(tdo, []byte{0x3C}) {
		t.Errorf("tdo = % X, want 3C", tdo)
	}
	if sim.ResetCount() != 1 {
		t.Errorf("ResetCount() = %d, want 1", sim.ResetCount())
	}
}
