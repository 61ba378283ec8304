package model

import "fmt"

// ValidationError represents malformed input caught before any
// network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AllocationError means the sequence counter store was unreachable.
// Fatal to the current attempt; no local fallback numbering exists.
type AllocationError struct {
	Kind  DocumentKind
	Cause error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("sequence allocation failed for kind %s: %v", e.Kind, e.Cause)
}

func (e *AllocationError) Unwrap() error {
	return e.Cause
}

// NewAllocationError creates a new allocation error.
func NewAllocationError(kind DocumentKind, cause error) *AllocationError {
	return &AllocationError{Kind: kind, Cause: cause}
}

// SigningError means certificate material was missing, invalid or
// expired. Non-retryable.
type SigningError struct {
	Message string
	Cause   error
}

func (e *SigningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("signing failed: %s (%v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("signing failed: %s", e.Message)
}

func (e *SigningError) Unwrap() error {
	return e.Cause
}

// NewSigningError creates a new signing error.
func NewSigningError(message string, cause error) *SigningError {
	return &SigningError{Message: message, Cause: cause}
}

// TransportError is a network-level failure with no well-formed
// authority response. Safe to retry for authorization queries only.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// NewTransportError creates a new transport error.
func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, Cause: cause}
}

// BusinessRejection is an authority-issued rejection with explanatory
// messages. Fatal unless the orchestrator recognizes a recoverable
// pattern in the message text.
type BusinessRejection struct {
	AccessKey string
	Messages  []string
}

func (e *BusinessRejection) Error() string {
	return fmt.Sprintf("document rejected by authority (key %s): %v", e.AccessKey, e.Messages)
}

// NewBusinessRejection creates a new business rejection.
func NewBusinessRejection(accessKey string, messages []string) *BusinessRejection {
	return &BusinessRejection{AccessKey: accessKey, Messages: messages}
}
