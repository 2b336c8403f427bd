package lookup

import (
	"errors"
	"fmt"
)

// Lookup failures. Every error returned by Service.Lookup matches exactly one
// of these with errors.Is.
var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrNoDataFound        = errors.New("no screen time data found")
	ErrStoreUnavailable   = errors.New("usage store unavailable")
)

// Code names a lookup outcome. Codes double as metric labels and API error codes.
type Code string

const (
	CodeOK                 Code = "ok"
	CodeInvalidPhoneNumber Code = "invalid_phone_number"
	CodeNoDataFound        Code = "no_data_found"
	CodeStoreUnavailable   Code = "store_unavailable"
)

func (c Code) sentinel() error {
	switch c {
	case CodeInvalidPhoneNumber:
		return ErrInvalidPhoneNumber
	case CodeNoDataFound:
		return ErrNoDataFound
	case CodeStoreUnavailable:
		return ErrStoreUnavailable
	}
	return nil
}

// Error is a failed lookup.
type Error struct {
	Stage Stage
	Code  Code
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("lookup failed while %s: %v", e.Stage, e.Code.sentinel())
	}
	return fmt.Sprintf("lookup failed while %s: %v: %v", e.Stage, e.Code.sentinel(), e.Err)
}

// Unwrap exposes both the outcome sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Code.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// CodeOf returns the outcome code for an error returned by Lookup.
func CodeOf(err error) Code {
	var le *Error
	switch {
	case err == nil:
		return CodeOK
	case errors.As(err, &le):
		return le.Code
	case errors.Is(err, ErrInvalidPhoneNumber):
		return CodeInvalidPhoneNumber
	case errors.Is(err, ErrNoDataFound):
		return CodeNoDataFound
	}
	return CodeStoreUnavailable
}

// Message returns the user-facing text for a lookup error.
func Message(err error) string {
	switch CodeOf(err) {
	case CodeOK:
		return ""
	case CodeInvalidPhoneNumber:
		return "Please enter a valid phone number."
	case CodeNoDataFound:
		return "No screen time data found for this phone number."
	}
	return "Something went wrong while fetching screen time data. Please try again."
}
