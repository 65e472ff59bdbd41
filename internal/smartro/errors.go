package smartro

import "fmt"

// NACKReceived is returned when the terminal answers a request with NACK
// instead of ACK.
type NACKReceived struct{}

func (NACKReceived) Error() string { return "smartro: NACK received" }

// HandshakeTimeout is returned when an ACK or response frame does not
// arrive within its timeout floor.
type HandshakeTimeout struct{ Stage string }

func (e HandshakeTimeout) Error() string { return fmt.Sprintf("smartro: timeout waiting for %s", e.Stage) }

// FrameError wraps a framing-level failure (BCC mismatch, bad ETX, length
// violation) encountered while parsing a response.
type FrameError struct{ Err error }

func (e FrameError) Error() string { return fmt.Sprintf("smartro: frame error: %v", e.Err) }
func (e FrameError) Unwrap() error { return e.Err }
