package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind represents the category of a client error.
type ErrorKind int

// Error kind constants let callers branch on failures without matching messages.
const (
	// ErrorKindUnknown indicates an unclassified error.
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindTransport indicates the HTTP exchange could not complete.
	ErrorKindTransport
	// ErrorKindConfiguration indicates invalid client configuration such as a malformed secret.
	ErrorKindConfiguration
	// ErrorKindDomain indicates the server answered with a non-success result.
	ErrorKindDomain
	// ErrorKindDecode indicates a response body could not be decoded.
	ErrorKindDecode
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	return [...]string{
		"UNKNOWN",
		"TRANSPORT",
		"CONFIGURATION",
		"DOMAIN",
		"DECODE",
	}[k]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed session.
	ErrClientClosed = errors.New("client is closed")
	// ErrNoCredentials is returned when an authenticated call has no API key configured.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Error is the structured error returned by every client operation.
type Error struct {
	// Kind categorizes the error for programmatic handling.
	Kind ErrorKind `json:"kind"`
	// Op is the endpoint path or component that failed.
	Op string `json:"op"`
	// Message is the human-readable description. For domain errors it is the
	// server's error text, unmodified.
	Message string `json:"message"`
	// Err is the underlying cause, if any.
	Err error `json:"-"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{
		Kind:      kind,
		Op:        op,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// NewTransportError wraps a failed HTTP exchange.
func NewTransportError(op string, err error) *Error {
	return newError(ErrorKindTransport, op, "", err)
}

// NewConfigurationError reports unusable configuration. The message must never
// contain secret material.
func NewConfigurationError(op, message string, err error) *Error {
	return newError(ErrorKindConfiguration, op, message, err)
}

// NewDomainError carries the server's error text verbatim.
func NewDomainError(op, message string) *Error {
	return newError(ErrorKindDomain, op, message, nil)
}

// NewDecodeError wraps a response decoding failure.
func NewDecodeError(op string, err error) *Error {
	return newError(ErrorKindDecode, op, "", err)
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsTransportError returns true if the HTTP exchange did not complete.
// The core never retries these; retry policy belongs to the caller.
func IsTransportError(err error) bool {
	return IsKind(err, ErrorKindTransport)
}

// IsConfigurationError returns true for configuration failures. They are not retryable.
func IsConfigurationError(err error) bool {
	return IsKind(err, ErrorKindConfiguration)
}

// IsDomainError returns true if the server reported a non-success result.
func IsDomainError(err error) bool {
	return IsKind(err, ErrorKindDomain)
}

// IsDecodeError returns true if a response could not be decoded.
func IsDecodeError(err error) bool {
	return IsKind(err, ErrorKindDecode)
}
