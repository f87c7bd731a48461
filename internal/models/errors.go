package models

import (
	"errors"
	"fmt"
)

// Error kinds used throughout the application. Business failures wrap one of
// these so callers can classify them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")

	// ErrRecordNotFound is returned by stores when a row does not exist.
	ErrRecordNotFound = errors.New("record not found")
)

// APIError is a business rule failure surfaced to the caller
type APIError struct {
	Kind    error
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// ResourceNotFound builds a not found error for a resource looked up by field
func ResourceNotFound(resource, field string, value interface{}) error {
	return &APIError{
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%s not found with %s: %v", resource, field, value),
	}
}

// NewConflict builds a conflict error
func NewConflict(format string, args ...interface{}) error {
	return &APIError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidState builds an invalid state error
func NewInvalidState(format string, args ...interface{}) error {
	return &APIError{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidInput builds an invalid input error
func NewInvalidInput(format string, args ...interface{}) error {
	return &APIError{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
