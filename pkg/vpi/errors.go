package vpi

import "errors"

// Sentinel errors for the protocol engine. Every failure returned by the
// codec, transport, and session wraps one of these so callers can branch
// with errors.Is.
var (
	// ErrInvalidArgument reports a caller bug (zero-bit scan, mismatched
	// buffer lengths). Nothing has been sent when it is returned.
	ErrInvalidArgument = errors.New("vpi: invalid argument")

	// ErrMalformedCommand reports a command header of unexpected size or
	// with an unknown opcode.
	ErrMalformedCommand = errors.New("vpi: malformed command")

	// ErrMalformedResponse reports a response header of unexpected size.
	// The connection is desynchronized and should be discarded.
	ErrMalformedResponse = errors.New("vpi: malformed response")

	// ErrShortRead means the transport yielded fewer bytes than the frame
	// requires. The caller must reconnect; no automatic retry happens here.
	ErrShortRead = errors.New("vpi: short read")

	// ErrConnectionClosed means the peer closed the stream before any byte
	// of the expected frame arrived.
	ErrConnectionClosed = errors.New("vpi: connection closed")

	// ErrTimeout means the read deadline expired. The connection state is
	// indeterminate and must be discarded.
	ErrTimeout = errors.New("vpi: timeout")
)
