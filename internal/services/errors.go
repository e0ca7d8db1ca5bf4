package services

import "errors"

var (
	// ErrProtocolViolation marks a malformed command stream. Processing must stop.
	ErrProtocolViolation = errors.New("ledger: protocol violation")

	// ErrDecreasingTimestamp is returned when a place command goes back in time.
	ErrDecreasingTimestamp = fmtProtocol("Invalid decreasing timestamp in 'place' command.")
	// ErrExecutionBeforePlacement is returned when a transfer is scheduled before it is placed.
	ErrExecutionBeforePlacement = fmtProtocol("You cannot have an execution date before the current timestamp.")

	// ErrMalformedRegistration is returned by the registration import.
	ErrMalformedRegistration = errors.New("ledger: malformed registration")
	// ErrDirectoryLoaded is returned when the directory is imported twice.
	ErrDirectoryLoaded = errors.New("ledger: directory already imported")
	// ErrQueryMode is returned when an operational command arrives after the end-of-operations marker.
	ErrQueryMode = errors.New("ledger: query mode is read-only")
	// ErrOperationalMode is returned when a query runs before the end-of-operations marker.
	ErrOperationalMode = errors.New("ledger: queries require query mode")
	// ErrTransactionNotFound is returned for an unknown executed transaction id.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
)

// protocolError carries the operator-facing message of a fatal input error.
type protocolError struct {
	msg string
}

func fmtProtocol(msg string) error { return &protocolError{msg: msg} }

func (e *protocolError) Error() string { return e.msg }

func (e *protocolError) Unwrap() error { return ErrProtocolViolation }
