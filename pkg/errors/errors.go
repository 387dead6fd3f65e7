// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package errors provides typed errors for the linkage service so that the
// HTTP layer can map failures to status codes with errors.Is / errors.As.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// New is an alias for the standard library errors.New.
var New = errors.New

// Sentinel errors.
var (
	// ErrInvalidInput indicates caller input failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrGridFileNotFound indicates a grid-file reference could not be dereferenced.
	ErrGridFileNotFound = errors.New("grid file not found")
)

// GeneralField is the error key for failures not tied to a parameter.
const GeneralField = "GENERAL"

// ValidationError collects per-parameter validation messages.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates a ValidationError with one message for field.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add records message against field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no messages were recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// GridFileError reports a grid file that could not be read or decoded.
type GridFileError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *GridFileError) Error() string {
	return fmt.Sprintf("grid file %s: %v", e.Ref, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *GridFileError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
