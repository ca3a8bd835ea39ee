package protocol

import (
	"errors"
	"fmt"
)

// Error represents a failure in the client/backend exchange.
//
// The taxonomy:
//   - TRANSPORT_FAILURE: a submit, status, or fetch call could not
//     complete (network failure, non-success status, channel error).
//     Submit-phase failures are fatal to the request.
//   - PROTOCOL_MISMATCH: a body or payload is not parseable as the shape
//     its tag declares. Fatal when the payload was expected to drive a
//     display update.
//   - ALREADY_EXECUTING: the backend refused a submit because the cell
//     is already being executed on that kernel.
//   - CHANNEL_CLOSED: the duplex channel closed before a terminal record
//     was observed.
//   - POLL_BUDGET_EXHAUSTED: the polling client hit its configured
//     maximum attempts without observing a terminal record.
//
// An identity miss (a record for some other cell) is NOT an error; the
// Reconciler absorbs those as Skip outcomes.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// KernelID identifies the kernel session, when known.
	KernelID string

	// CellID identifies the tracked cell, when known.
	CellID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes protocol errors.
type ErrorCode string

const (
	// ErrCodeTransportFailure indicates a request or channel operation failed.
	ErrCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"

	// ErrCodeProtocolMismatch indicates a payload did not match its declared shape.
	ErrCodeProtocolMismatch ErrorCode = "PROTOCOL_MISMATCH"

	// ErrCodeAlreadyExecuting indicates the backend is already executing the cell.
	ErrCodeAlreadyExecuting ErrorCode = "ALREADY_EXECUTING"

	// ErrCodeChannelClosed indicates the duplex channel closed before Terminal.
	ErrCodeChannelClosed ErrorCode = "CHANNEL_CLOSED"

	// ErrCodePollBudgetExhausted indicates the poll attempt budget ran out.
	ErrCodePollBudgetExhausted ErrorCode = "POLL_BUDGET_EXHAUSTED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.KernelID != "" && e.CellID != "":
		return fmt.Sprintf("%s: %s (kernel=%s, cell=%s)", e.Code, e.Message, e.KernelID, e.CellID)
	case e.KernelID != "":
		return fmt.Sprintf("%s: %s (kernel=%s)", e.Code, e.Message, e.KernelID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransportFailure reports whether err is a TRANSPORT_FAILURE error.
// Uses errors.As to handle wrapped errors.
func IsTransportFailure(err error) bool {
	return hasCode(err, ErrCodeTransportFailure)
}

// IsProtocolMismatch reports whether err is a PROTOCOL_MISMATCH error.
func IsProtocolMismatch(err error) bool {
	return hasCode(err, ErrCodeProtocolMismatch)
}

// IsAlreadyExecuting reports whether err is an ALREADY_EXECUTING error.
func IsAlreadyExecuting(err error) bool {
	return hasCode(err, ErrCodeAlreadyExecuting)
}

// IsChannelClosed reports whether err is a CHANNEL_CLOSED error.
func IsChannelClosed(err error) bool {
	return hasCode(err, ErrCodeChannelClosed)
}

// IsPollBudgetExhausted reports whether err is a POLL_BUDGET_EXHAUSTED error.
func IsPollBudgetExhausted(err error) bool {
	return hasCode(err, ErrCodePollBudgetExhausted)
}

func hasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// NewTransportError creates a TRANSPORT_FAILURE error wrapping cause.
func NewTransportError(message, kernelID string, cause error) *Error {
	return &Error{
		Code:     ErrCodeTransportFailure,
		Message:  message,
		KernelID: kernelID,
		Err:      cause,
	}
}

// NewMismatchError creates a PROTOCOL_MISMATCH error.
func NewMismatchError(message string) *Error {
	return &Error{
		Code:    ErrCodeProtocolMismatch,
		Message: message,
	}
}

// WrapMismatchError creates a PROTOCOL_MISMATCH error wrapping a decode cause.
func WrapMismatchError(message string, cause error) *Error {
	return &Error{
		Code:    ErrCodeProtocolMismatch,
		Message: message,
		Err:     cause,
	}
}
