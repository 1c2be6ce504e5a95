package bintrac

import "fmt"

// ConnectionError is a transport-level connect failure. Recoverable via the
// rate-limited Reconnect.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError means the instrument did not deliver the expected bytes
// within the bounded wait. Counts toward connection staleness.
type TimeoutError struct {
	Endpoint string
	Waiting  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s from %s", e.Waiting, e.Endpoint)
}

// ProtocolError is a malformed or unexpected response: a device-reported
// exception code or a byte count that does not match the request.
type ProtocolError struct {
	ExceptionCode byte // device-reported exception, 0 if none
	Detail        string
}

func (e *ProtocolError) Error() string {
	if e.ExceptionCode != 0 {
		return fmt.Sprintf("modbus exception code %d: %s", e.ExceptionCode, e.Detail)
	}
	return "protocol error: " + e.Detail
}
