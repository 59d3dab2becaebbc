// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the content core: the post lifecycle manager,
// the query/filter/sort service, taxonomy management, and media references.
package service

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested resource does not exist. It is also
// returned when a caller without rights asks for an unpublished resource, so
// existence information never leaks.
var ErrNotFound = errors.New("not found")

// ErrPermission indicates the actor lacks rights over the resource.
var ErrPermission = errors.New("permission denied")

// ValidationError describes caller-correctable input problems, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// NewValidationError creates a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// ConflictError indicates a uniqueness violation, always a slug collision in
// this core.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
