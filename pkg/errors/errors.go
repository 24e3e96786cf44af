package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidQty        Code = "INVALID_QTY"
	CodeOutOfStock        Code = "OUT_OF_STOCK"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeNetwork           Code = "NETWORK_ERROR"
	CodeSessionExpired    Code = "SESSION_EXPIRED"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Metadata describes how the terminal should react to a given code.
type Metadata struct {
	Retryable       bool
	OperatorMessage string
	PreservesCart   bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:       false,
		OperatorMessage: "validation failed",
		PreservesCart:   true,
	},
	CodeInvalidQty: {
		Retryable:       false,
		OperatorMessage: "quantity must be at least 1",
		PreservesCart:   true,
	},
	CodeOutOfStock: {
		Retryable:       false,
		OperatorMessage: "product is out of stock",
		PreservesCart:   true,
	},
	CodeInsufficientStock: {
		Retryable:       false,
		OperatorMessage: "not enough stock available",
		PreservesCart:   true,
	},
	CodeNotFound: {
		Retryable:       false,
		OperatorMessage: "product not found",
		PreservesCart:   true,
	},
	CodeConflict: {
		Retryable:       false,
		OperatorMessage: "order rejected by the server",
		PreservesCart:   true,
	},
	CodeNetwork: {
		Retryable:       true,
		OperatorMessage: "network error, try again",
		PreservesCart:   true,
	},
	CodeSessionExpired: {
		Retryable:       false,
		OperatorMessage: "session expired, sign in again",
		PreservesCart:   false,
	},
	CodeInternal: {
		Retryable:       true,
		OperatorMessage: "internal error",
		PreservesCart:   true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf extracts the domain code from any error, defaulting to internal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}
