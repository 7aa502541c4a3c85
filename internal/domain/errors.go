package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures so callers can decide whether to skip,
// propagate, or swallow them.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeDataUnavailable
	ErrCodeCompute
	ErrCodePersistenceCritical
	ErrCodePersistenceNonCritical
	ErrCodeInvalidConfiguration
	ErrCodeNotify
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeDataUnavailable:
		return "data_unavailable"
	case ErrCodeCompute:
		return "compute_error"
	case ErrCodePersistenceCritical:
		return "persistence_critical"
	case ErrCodePersistenceNonCritical:
		return "persistence_non_critical"
	case ErrCodeInvalidConfiguration:
		return "invalid_configuration"
	case ErrCodeNotify:
		return "notify_failed"
	default:
		return "unknown"
	}
}

type Error struct {
	Code    ErrorCode
	Pair    string
	Message string
	Cause   error
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func WrapError(code ErrorCode, pair, message string, cause error) *Error {
	return &Error{Code: code, Pair: pair, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	prefix := e.Code.String()
	if e.Pair != "" {
		prefix += " " + e.Pair
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
