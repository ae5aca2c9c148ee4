package errors

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrMalformedIdentifier = NewError("MALFORMED_IDENTIFIER", "origin identifier cannot be parsed")
	ErrEmptyBatch          = NewError("EMPTY_BATCH", "change batch is empty")
	ErrProcessing          = NewError("PROCESSING_ERROR", "event processing failed")
	ErrForward             = NewError("FORWARD_ERROR", "quarantine forward failed")
	ErrWorkflow            = NewError("WORKFLOW_ERROR", "workflow trigger failed")
	ErrValidation          = NewError("VALIDATION_ERROR", "validation failed")
	ErrServiceUnavailable  = NewError("SERVICE_UNAVAILABLE", "service unavailable")
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so the package sentinels work
// with errors.Is after WithCause/WithDetail copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return !fatalErr.IsFatal()
		}
	}
	return e.Code != ErrValidation.Code && e.Code != ErrMalformedIdentifier.Code && e.Code != ErrEmptyBatch.Code
}

func (e *Error) IsFatal() bool {
	if e.retryable != nil {
		return !*e.retryable
	}

	if e.Cause != nil {
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return fatalErr.IsFatal()
		}
	}

	return e.Code == ErrValidation.Code || e.Code == ErrMalformedIdentifier.Code || e.Code == ErrEmptyBatch.Code
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	err := *e
	err.Message = fmt.Sprintf(format, args...)
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func IsMalformedIdentifier(err error) bool {
	return errors.Is(err, ErrMalformedIdentifier)
}

func IsEmptyBatch(err error) bool {
	return errors.Is(err, ErrEmptyBatch)
}

func IsProcessing(err error) bool {
	return errors.Is(err, ErrProcessing)
}

func IsForward(err error) bool {
	return errors.Is(err, ErrForward)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

var wrapperTypes = map[string]bool{
	"errors.errorString": true,
	"errors.joinError":   true,
	"fmt.wrapError":      true,
	"fmt.wrapErrors":     true,
}

// Class names the failure for quarantine metadata: the innermost error in the
// chain that is either a coded *Error or a concrete, non-wrapper type.
func Class(err error) string {
	if err == nil {
		return ""
	}

	class := typeName(err)
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if appErr, ok := cur.(*Error); ok {
			class = appErr.Code
			continue
		}
		if name := typeName(cur); !wrapperTypes[name] {
			class = name
		}
	}
	return class
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}
