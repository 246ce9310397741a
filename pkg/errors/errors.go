package errors

import (
	"errors"
	"fmt"
)

// AppError is the single structured error type used throughout moldex. It
// satisfies the standard error interface and supports Go 1.13+ wrapping so
// errors.Is / errors.As / errors.Unwrap work transparently across layers.
type AppError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description.
	Message string

	// Detail carries supplementary structured context: molecule id, row
	// index, property name, upstream HTTP status, and similar fields named
	// in spec §7 ("error kind, message, optional contextual detail bag").
	Detail map[string]any

	// Cause is the underlying error, enabling errors.Is / errors.As
	// traversal of the full chain.
	Cause error

	// Stack holds a formatted call-stack snapshot captured at construction
	// time. Compiled out entirely under the "nostack" build tag — see
	// stack_enabled.go / stack_disabled.go.
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code_name>(<code_int>)] <message>".
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s(%d)] %s", e.Code.String(), int(e.Code), e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with the given key set
// in Detail. Safe to call on nil.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = make(map[string]any, len(e.Detail)+1)
	for k, v := range e.Detail {
		clone.Detail[k] = v
	}
	clone.Detail[key] = value
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// New constructs a fresh AppError with the given code and message, capturing
// a call-stack snapshot (unless built with -tags nostack).
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Stack: captureStack(1)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap constructs an AppError wrapping an existing error. Returns nil if err
// is nil, so it composes inline:
//
//	return errors.Wrap(repo.FindByID(ctx, id), errors.CodeDatabaseError, "query failed")
//
// When code is CodeUnknown and err is already an *AppError, the original
// code is preserved so cross-layer propagation never loses the original
// classification.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{Code: code, Message: message, Cause: err, Stack: captureStack(1)}
}

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err denotes any "not found" condition.
func IsNotFound(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			switch ae.Code {
			case CodeMoleculeNotFound, CodeLibraryNotFound, CodePredictionJobNotFound, CodeTaskNotFound:
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsTransient reports whether err denotes a transient upstream condition
// that callers (C6, C7) should retry with backoff per spec §7.
func IsTransient(err error) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code.IsTransient()
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError in err's chain, or
// CodeUnknown if none is present.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience constructors for the most common domain failures
// ─────────────────────────────────────────────────────────────────────────────

// MoleculeNotFound constructs a CodeMoleculeNotFound error for the given
// lookup key (id, SMILES, or InChIKey).
func MoleculeNotFound(key string) *AppError {
	return New(CodeMoleculeNotFound, fmt.Sprintf("molecule not found: %s", key)).WithDetail("key", key)
}

// InvalidSmiles constructs a CodeInvalidSmiles error.
func InvalidSmiles(smiles, reason string) *AppError {
	return New(CodeInvalidSmiles, fmt.Sprintf("invalid SMILES %q: %s", smiles, reason)).WithDetail("smiles", smiles)
}

// InvalidPropertyValue constructs a CodeInvalidPropertyValue error scoped to
// a property name.
func InvalidPropertyValue(name, reason string) *AppError {
	return New(CodeInvalidPropertyValue, fmt.Sprintf("invalid value for property %q: %s", name, reason)).WithDetail("property", name)
}

// Internal constructs a CodeUnexpectedError error — use when no more
// specific code applies.
func Internal(message string) *AppError {
	return New(CodeUnexpectedError, message)
}

// InvalidParam constructs a generic CodeValidation error for malformed
// caller input that doesn't warrant a more specific code.
func InvalidParam(message string) *AppError {
	return New(CodeValidation, message)
}
