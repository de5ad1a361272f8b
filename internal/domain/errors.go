package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	ErrAccessDenied     = errors.New("login required to modify cart")
	ErrItemNotFound     = errors.New("item not found")
	ErrCartNotPersisted = errors.New("cart not persisted for authenticated user")
	ErrOrderNotFound    = errors.New("order not found or access denied")
	ErrInvalidPage      = errors.New("page number must be >= 1 and page size > 0")
	ErrInvalidSort      = errors.New("unknown sort mode")
	ErrInvalidAction    = errors.New("unknown cart action")

	ErrPaymentDeclined    = errors.New("payment declined")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	ErrCheckoutInProgress   = errors.New("checkout already in progress for this cart")
	ErrCheckoutNotCommitted = errors.New("order could not be saved after payment")
)

// DeclinedError is a business refusal from the payment gateway.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return "payment declined: " + e.Reason
}

func (e *DeclinedError) Is(target error) bool {
	return target == ErrPaymentDeclined
}

// PaymentFailedError is the single outcome reported to a buyer when the debit
// did not go through. Err is ErrPaymentDeclined or ErrGatewayUnavailable.
type PaymentFailedError struct {
	Reason string
	Err    error
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("Payment declined. Reason: %s", e.Reason)
}

func (e *PaymentFailedError) Unwrap() error {
	return e.Err
}

// ErrCheckoutStateChanged means another process moved the attempt out of the
// expected state first.
var ErrCheckoutStateChanged = errors.New("checkout attempt state changed concurrently")
