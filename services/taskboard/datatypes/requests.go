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
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Validator Setup
// =============================================================================

// requestValidate is the validator instance for request payloads.
// Initialized in init() with custom validators.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("notblank", validateNotBlank)
}

// validateNotBlank rejects strings that are empty after trimming whitespace.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateStruct runs tag validation and folds the first failure into an
// ErrValidation carrying a client-safe message.
func validateStruct(v any) error {
	err := requestValidate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "notblank", "required":
			return Invalid("%s required", fieldLabel(fe.Field()))
		case "max":
			return Invalid("%s exceeds %s characters", fieldLabel(fe.Field()), fe.Param())
		}
		return Invalid("%s is invalid", fieldLabel(fe.Field()))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

func fieldLabel(field string) string {
	switch field {
	case "Body":
		return "Comment"
	default:
		return field
	}
}

// =============================================================================
// Task Requests
// =============================================================================

// CreateTaskRequest is the body of POST /v1/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"notblank,max=512"`
	Description string `json:"description" validate:"max=20000"`
	Category    string `json:"category" validate:"max=64"`
	Status      string `json:"status" validate:"max=64"`
	Priority    string `json:"priority" validate:"max=64"`
}

// Validate checks the request after binding.
func (r *CreateTaskRequest) Validate() error {
	return validateStruct(r)
}

// EnsureDefaults trims the title and applies category/status/priority
// defaults. Status is always stored lower-cased.
func (r *CreateTaskRequest) EnsureDefaults() {
	r.Title = strings.TrimSpace(r.Title)
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	if strings.TrimSpace(r.Status) == "" {
		r.Status = DefaultStatus
	}
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	if r.Priority == "" {
		r.Priority = DefaultPriority
	}
}

// UpdateTaskRequest is the body of PATCH/PUT /v1/tasks/:taskId.
//
// Nil fields are absent from the request and never compared.
type UpdateTaskRequest struct {
	Status   *string `json:"status" validate:"omitempty,max=64"`
	Priority *string `json:"priority" validate:"omitempty,max=64"`
}

// Validate checks the request after binding.
func (r *UpdateTaskRequest) Validate() error {
	return validateStruct(r)
}

// =============================================================================
// Comment Requests
// =============================================================================

// CommentRequest is the body for adding and editing comments.
type CommentRequest struct {
	Body string `json:"comment" validate:"notblank,max=10000"`
}

// Validate checks the request after binding and trims the body.
func (r *CommentRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	r.Body = strings.TrimSpace(r.Body)
	return nil
}

// =============================================================================
// Provisioning
// =============================================================================

// UserConfirmedEvent is the payload delivered by the identity provider
// after a new account is confirmed.
type UserConfirmedEvent struct {
	UserName string `json:"userName"`
	Request  struct {
		UserAttributes map[string]string `json:"userAttributes"`
	} `json:"request"`
}

// Subject returns the stable identifier of the confirmed identity: the
// sub attribute, falling back to the username.
func (e *UserConfirmedEvent) Subject() string {
	if sub := e.Request.UserAttributes["sub"]; sub != "" {
		return sub
	}
	return e.UserName
}

// Email returns the email attribute, or "".
func (e *UserConfirmedEvent) Email() string {
	return e.Request.UserAttributes["email"]
}
