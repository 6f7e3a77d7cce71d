package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeForbidden              Code = "FORBIDDEN"
	CodeNotFound               Code = "NOT_FOUND"
	CodeConflict               Code = "CONFLICT"
	CodeInsufficientStock      Code = "INSUFFICIENT_STOCK"
	CodeProductUnavailable     Code = "PRODUCT_UNAVAILABLE"
	CodeEmptyCart              Code = "EMPTY_CART"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodePaymentFailed          Code = "PAYMENT_FAILED"
	CodeIdempotency            Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit              Code = "RATE_LIMIT_EXCEEDED"
	CodeStorage                Code = "STORAGE_FAULT"
	CodeInternal               Code = "INTERNAL_ERROR"
	CodeDependency             Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retryable = 1 << iota
	withDetails
)

func entry(status int, public string, flags int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		Retryable:      flags&retryable != 0,
		PublicMessage:  public,
		DetailsAllowed: flags&withDetails != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:             entry(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:           entry(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:              entry(http.StatusForbidden, "access denied", 0),
	CodeNotFound:               entry(http.StatusNotFound, "resource not found", withDetails),
	CodeConflict:               entry(http.StatusConflict, "conflict detected", retryable),
	CodeInsufficientStock:      entry(http.StatusConflict, "insufficient stock", withDetails),
	CodeProductUnavailable:     entry(http.StatusConflict, "product unavailable", withDetails),
	CodeEmptyCart:              entry(http.StatusUnprocessableEntity, "cart is empty", 0),
	CodeInvalidStateTransition: entry(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodePaymentFailed:          entry(http.StatusPaymentRequired, "payment failed", withDetails),
	CodeIdempotency:            entry(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:              entry(http.StatusTooManyRequests, "rate limit exceeded", 0),
	CodeStorage:                entry(http.StatusServiceUnavailable, "storage unavailable", retryable),
	CodeInternal:               entry(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:             entry(http.StatusServiceUnavailable, "dependency unavailable", retryable | withDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed application error. Its code decides the HTTP status
// and whether message and details reach the client.
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

// Accessors are nil-safe so callers can chain on As.
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

// WithDetails attaches client-facing context; it is only rendered for codes
// whose metadata allows details.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// CodeOf returns the code of the first typed error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}
