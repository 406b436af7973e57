package escrow

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the escrow service.
var (
	// Validation.
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrAmountBelowPrice        = errors.New("amount below unit price")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidRole             = errors.New("invalid role")
	ErrInvalidEmail            = errors.New("invalid email")
	ErrInvalidUserID           = errors.New("invalid user id")
	ErrInvalidBuyerID          = errors.New("invalid buyer id")
	ErrInvalidProjectID        = errors.New("invalid project id")
	ErrInvalidUnitID           = errors.New("invalid unit id")
	ErrInvalidUnitCode         = errors.New("invalid unit code")
	ErrInvalidBookingID        = errors.New("invalid booking id")
	ErrInvalidTransactionID    = errors.New("invalid transaction id")
	ErrInvalidMetadataJSON     = errors.New("invalid metadata json")
	ErrInvalidProjectInput     = errors.New("invalid project input")
	ErrInvalidUserInput        = errors.New("invalid user input")
	ErrInvalidBuyerInput       = errors.New("invalid buyer input")
	ErrInvalidBookingInput     = errors.New("invalid booking input")
	ErrInvalidTransactionInput = errors.New("invalid transaction input")
	ErrInvalidServiceConfig    = errors.New("invalid service config")

	// Referential.
	ErrProjectNotFound     = errors.New("project not found")
	ErrUnitNotFound        = errors.New("unit not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrBuyerNotFound       = errors.New("buyer not found")

	// Conflict.
	ErrUnitAlreadyBooked         = errors.New("unit already booked")
	ErrBookingAlreadyMatched     = errors.New("booking already matched")
	ErrTransactionAlreadyMatched = errors.New("transaction already matched")
	ErrDuplicateUnitCode         = errors.New("duplicate unit code")
	ErrDuplicateEmail            = errors.New("email already in use")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
