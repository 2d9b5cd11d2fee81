package errors

import (
	"encoding/json"
	stderrors "errors"
)

type ZapErrorType int

const (
	UnknownError ZapErrorType = iota
)

// payment pipeline errors
const (
	MissingPaymentAddressError ZapErrorType = 1000 + iota
	EndpointUnreachableError
	AmountOutOfRangeError
	InvoiceMissingError
	AmountMismatchError
	NoActiveIdentityError
)

// token settlement errors
const (
	NoOfferFoundError ZapErrorType = 2000 + iota
	ZeroAmountError
	InsufficientBalanceError
	NoKeysetConfiguredError
	MintCallFailedError
)

func New(code ZapErrorType, err error) ZapError {
	return ZapError{Err: err, Message: err.Error(), Code: code}
}

type ZapError struct {
	Message string       `json:"message"`
	Err     error        `json:"-"`
	Code    ZapErrorType `json:"code"`
}

func (e ZapError) Error() string {
	j, err := json.Marshal(&e)
	if err != nil {
		return e.Message
	}
	return string(j)
}

func (e ZapError) Unwrap() error {
	return e.Err
}

// TypeOf returns the error code carried by err, or UnknownError for
// errors that did not come out of the payment pipeline.
func TypeOf(err error) ZapErrorType {
	var zerr ZapError
	if stderrors.As(err, &zerr) {
		return zerr.Code
	}
	return UnknownError
}
