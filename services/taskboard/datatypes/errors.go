// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"errors"
	"fmt"
)

// Error kinds returned by board operations. Callers wrap them with context
// using %w; the HTTP layer maps them to status codes with errors.Is.
var (
	// ErrValidation indicates a missing or empty required field.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated indicates missing or malformed identity claims.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates an authenticated caller without ownership or admin.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the referenced task, comment or mention is absent.
	ErrNotFound = errors.New("not found")
)

// ValidationError is a request validation failure with a message that is
// safe to return to clients. It matches ErrValidation under errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
