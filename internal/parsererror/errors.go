// Package parsererror holds the typed errors raised while ingesting and
// validating CFDI documents.
package parsererror

import (
	"fmt"
	"time"
)

// EncodingError is returned when the XML declaration names an encoding
// outside the supported set. It is raised before any tree parsing.
type EncodingError struct {
	FilePath string
	Detected string
}

func (e *EncodingError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("unsupported encoding %q in file '%s'", e.Detected, e.FilePath)
	}
	return fmt.Sprintf("unsupported encoding %q", e.Detected)
}

// ParseError represents malformed markup or a document that is not a CFDI.
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Parser, e.Err)
	}
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedVersionError represents a CFDI version no rule set covers.
type UnsupportedVersionError struct {
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported CFDI version '%s'", e.Version)
}

// ValidationError represents a structural failure on a named field.
type ValidationError struct {
	FilePath string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s: %s", e.FilePath, e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.FilePath, e.Reason)
}

// TimeoutError is returned when a document exceeds its processing budget.
type TimeoutError struct {
	FilePath string
	Limit    time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("processing '%s' exceeded %s", e.FilePath, e.Limit)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// StoreError wraps a failure from a persistence or remote collaborator.
type StoreError struct {
	Store     string
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Store, e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
