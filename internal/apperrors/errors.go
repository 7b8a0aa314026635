// Package apperrors defines the typed error taxonomy shared by the desk
// client, the migration engine and the ledger.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind categorises an AppError
type Kind string

const (
	KindAuth       Kind = "AUTH"
	KindTransport  Kind = "TRANSPORT"
	KindNotFound   Kind = "NOT_FOUND"
	KindValidation Kind = "VALIDATION"
	KindInternal   Kind = "INTERNAL"

	KindUnmappedCategory   Kind = "UNMAPPED_CATEGORY"
	KindPlaceholderMapping Kind = "PLACEHOLDER_MAPPING"

	KindCategoryResolutionFailed Kind = "CATEGORY_RESOLUTION_FAILED"
	KindSourceFetchFailed        Kind = "SOURCE_FETCH_FAILED"
	KindDestinationCreateFailed  Kind = "DESTINATION_CREATE_FAILED"
	KindPageLimitExceeded        Kind = "PAGE_LIMIT_EXCEEDED"
)

// AppError is the error type returned across package boundaries
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError without a cause
func New(kind Kind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

// Newf creates an AppError with a formatted message
func Newf(kind Kind, format string, args ...any) error {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an AppError of the given kind around err. A nil err yields nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Kind: kind, Message: message, Err: err}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return New(KindNotFound, message)
}

// NewValidation creates a validation error
func NewValidation(message string) error {
	return New(KindValidation, message)
}

// Is reports whether any AppError in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Err
	}
	return false
}

// KindOf returns the kind of the outermost AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// RootKind returns the kind of the innermost AppError in err's chain.
func RootKind(err error) Kind {
	kind := KindInternal
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			break
		}
		kind = appErr.Kind
		err = appErr.Err
	}
	return kind
}
