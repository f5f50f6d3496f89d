// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package converr

import (
	"errors"
	"fmt"
)

// ConversionError reports that a conversion step failed to produce
// usable output.
type ConversionError struct {
	// Code is a stable machine-readable identifier such as
	// "glb/truncated-chunk" or "assembly/missing-gltf-mapping".
	Code string

	// Message is the human-readable description, including the
	// offending values (offsets, node ids, indices).
	Message string

	// Err is the underlying cause, usually a package sentinel.
	Err error
}

func (e *ConversionError) Error() string {
	return formatError(e.Code, e.Message, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ValidationError reports caller-supplied input that violates a
// precondition.
type ValidationError struct {
	Code    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return formatError(e.Code, e.Message, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Conversion returns a ConversionError wrapping cause with a formatted
// message.
func Conversion(code string, cause error, format string, args ...any) *ConversionError {
	return &ConversionError{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Validation returns a ValidationError wrapping cause with a formatted
// message.
func Validation(code string, cause error, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// IsValidation reports whether any error in err's chain is a
// ValidationError.
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// IsConversion reports whether any error in err's chain is a
// ConversionError.
func IsConversion(err error) bool {
	var conversion *ConversionError
	return errors.As(err, &conversion)
}

// CodeOf returns the Code of the first ConversionError or
// ValidationError in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var conversion *ConversionError
	if errors.As(err, &conversion) {
		return conversion.Code
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Code
	}
	return ""
}

// formatError renders "code: message: cause", omitting the cause when
// the message already is the cause's text.
func formatError(code, message string, cause error) string {
	switch {
	case cause == nil && message == "":
		return code
	case cause == nil:
		return code + ": " + message
	case message == "" || message == cause.Error():
		return code + ": " + cause.Error()
	default:
		return code + ": " + message + ": " + cause.Error()
	}
}
