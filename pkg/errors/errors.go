package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeStockInsufficient Code = "STOCK_INSUFFICIENT"
	CodeItemNotFound      Code = "ITEM_NOT_FOUND"
	CodeAuthRequired      Code = "AUTH_REQUIRED"
	CodeRemoteUnavailable Code = "REMOTE_UNAVAILABLE"
	CodeStorage           Code = "STORAGE_ERROR"
	CodeInternal          Code = "INTERNAL_ERROR"
)

type Metadata struct {
	Retryable      bool
	UserFacing     bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:      false,
		UserFacing:     true,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeStockInsufficient: {
		Retryable:      false,
		UserFacing:     true,
		PublicMessage:  "insufficient stock",
		DetailsAllowed: true,
	},
	CodeItemNotFound: {
		Retryable:      false,
		UserFacing:     true,
		PublicMessage:  "item not in cart",
		DetailsAllowed: false,
	},
	CodeAuthRequired: {
		Retryable:      false,
		UserFacing:     false,
		PublicMessage:  "authentication required",
		DetailsAllowed: false,
	},
	CodeRemoteUnavailable: {
		Retryable:      true,
		UserFacing:     false,
		PublicMessage:  "remote cart unavailable",
		DetailsAllowed: true,
	},
	CodeStorage: {
		Retryable:      false,
		UserFacing:     false,
		PublicMessage:  "local storage error",
		DetailsAllowed: true,
	},
	CodeInternal: {
		Retryable:      true,
		UserFacing:     false,
		PublicMessage:  "internal error",
		DetailsAllowed: false,
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

// StockDetails carries the last known availability alongside a
// STOCK_INSUFFICIENT error so the caller can render it.
type StockDetails struct {
	Available int `json:"available"`
}

// StockInsufficient builds the stock rejection error with the available
// quantity attached as details.
func StockInsufficient(available int) *Error {
	return New(CodeStockInsufficient, "insufficient stock for requested quantity").
		WithDetails(StockDetails{Available: available})
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

// HasCode reports whether err is a typed error carrying the given code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
