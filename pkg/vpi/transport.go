package vpi

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultPort is the port jtag_vpi servers conventionally listen on.
	DefaultPort = 3333

	// DefaultTimeout bounds each receive when the caller does not supply
	// a deadline of their own.
	DefaultTimeout = 5 * time.Second
)

// Transport is the byte stream carrying VPI frames. Implementations must
// preserve write ordering; the scan handshake depends on the server seeing
// the header, TMS, and TDI buffers in exactly that order.
type Transport interface {
	// Write sends the whole buffer or fails.
	Write(p []byte) error
	// ReadFull fills p completely, failing with ErrTimeout when the
	// configured deadline expires and ErrShortRead/ErrConnectionClosed
	// when the stream ends early.
	ReadFull(p []byte) error
	// SetTimeout sets the per-read deadline. Zero disables it.
	SetTimeout(d time.Duration)
	Close() error
}

// TCPTransport adapts a net.Conn to the Transport interface.
type TCPTransport struct {
	conn    net.Conn
	timeout time.Duration
}

// Dial connects to a VPI server. An empty host means localhost and a zero
// port means DefaultPort.
func Dial(host string, port int, dialTimeout time.Duration) (*TCPTransport, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("vpi: dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		// Each operation is a small round trip; do not batch them.
		tc.SetNoDelay(true)
	}
	return NewTCPTransport(conn), nil
}

// NewTCPTransport wraps an established connection.
func NewTCPTransport(conn net.Conn) *TCPTransport {
	return &TCPTransport{conn: conn, timeout: DefaultTimeout}
}

func (t *TCPTransport) Write(p []byte) error {
	if _, err := t.conn.Write(p); err != nil {
		return fmt.Errorf("write %d bytes: %w", len(p), mapStreamErr(err))
	}
	return nil
}

func (t *TCPTransport) ReadFull(p []byte) error {
	if t.timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	}
	if _, err := io.ReadFull(t.conn, p); err != nil {
		return fmt.Errorf("read %d bytes: %w", len(p), mapStreamErr(err))
	}
	return nil
}

func (t *TCPTransport) SetTimeout(d time.Duration) {
	t.timeout = d
}

func (t *TCPTransport) Close() error {
	return t.conn.Close()
}

// mapStreamErr folds net/io failures onto the protocol error taxonomy so
// callers never have to inspect transport internals.
func mapStreamErr(err error) error {
	var nerr net.Error
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrTimeout
	case errors.As(err, &nerr) && nerr.Timeout():
		return ErrTimeout
	case errors.Is(err, io.ErrUnexpectedEOF):
		return ErrShortRead
	case errors.Is(err, io.EOF):
		return ErrConnectionClosed
	default:
		return err
	}
}
