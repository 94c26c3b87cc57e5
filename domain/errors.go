package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeStorageRead  ErrorCode = "STORAGE_READ"
	ErrCodeStorageWrite ErrorCode = "STORAGE_WRITE"
	ErrCodeRelay        ErrorCode = "RELAY"
	ErrCodeNotification ErrorCode = "NOTIFICATION"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches sentinel domain errors by code and message so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrTaskNotFound      = NewError(ErrCodeNotFound, "task not found")
	ErrNoFieldsProvided  = NewError(ErrCodeInvalid, "no valid fields provided for update")
	ErrDescriptionEmpty  = NewError(ErrCodeInvalid, "description is required")
	ErrInvalidPayload    = NewError(ErrCodeInvalid, "invalid payload")
	ErrUnauthorized      = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrUnknownTrigger    = NewError(ErrCodeInternal, "unknown trigger")
	ErrMissingMessageKey = NewError(ErrCodeInvalid, "message is missing task_id or owner_id")
)

// StorageReadError classifies a failed store read.
func StorageReadError(err error) *Error {
	return WrapError(ErrCodeStorageRead, "task store read failed", err)
}

// StorageWriteError classifies a failed store write.
func StorageWriteError(err error) *Error {
	return WrapError(ErrCodeStorageWrite, "task store write failed", err)
}

// RelayProcessingError classifies a change event that could not be scheduled.
func RelayProcessingError(err error) *Error {
	return WrapError(ErrCodeRelay, "change event processing failed", err)
}

// NotificationError classifies a failed notifier publish.
func NotificationError(err error) *Error {
	return WrapError(ErrCodeNotification, "notification publish failed", err)
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
