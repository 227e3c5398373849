// Package faults defines the typed errors shared across the lookup pipeline.
package faults

import (
	"errors"
	"fmt"
)

// TransportError wraps a network-level failure or a non-success HTTP status
// from the radio database or AI provider. Transport failures are logged and
// the source is treated as unavailable; they are never retried.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError indicates the provider rejected the supplied credentials
// (a fault string in the response body rather than an HTTP status).
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Msg
}

// NotFoundError indicates a valid request matched no region or data.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.What
}

// ParseError indicates an AI response yielded no valid JSON after all
// recovery attempts.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parse response: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether any error in the chain is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAuth reports whether any error in the chain is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNotFound reports whether any error in the chain is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsParse reports whether any error in the chain is a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
