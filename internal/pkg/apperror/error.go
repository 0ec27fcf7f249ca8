package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the calling layer.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindNotFound     Kind = "NOT_FOUND"
	KindBusinessRule Kind = "BUSINESS_RULE_VIOLATION"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed input or a violated data invariant.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotFound reports an unknown identifier.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// BusinessRule reports an illegal state transition.
func BusinessRule(message string) *Error {
	return &Error{Kind: KindBusinessRule, Message: message}
}

// Wrap attaches a cause to a sentinel while keeping errors.Is on the sentinel working.
func Wrap(sentinel *Error, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// MessageOf returns the user-facing message of the first *Error in the chain.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

func IsValidation(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindValidation
}

func IsNotFound(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindNotFound
}

func IsBusinessRule(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindBusinessRule
}
