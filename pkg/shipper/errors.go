package shipper

import (
	"errors"
	"fmt"
)

// ShipperError represents an error from a shipping carrier.
type ShipperError struct {
	Carrier     string
	Code        string
	Message     string
	StatusCode  int
	Retryable   bool
	FieldErrors map[string][]string
	Cause       error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ShipperError.
func (e *ShipperError) Is(target error) bool {
	t, ok := target.(*ShipperError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewShipperError creates a new ShipperError.
func NewShipperError(carrier, code, message string) *ShipperError {
	return &ShipperError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// WithFieldErrors attaches the carrier's field-level validation errors.
func (e *ShipperError) WithFieldErrors(fields map[string][]string) *ShipperError {
	e.FieldErrors = fields
	return e
}

// Sentinel errors for the carrier error taxonomy.
var (
	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrValidation indicates invalid or incomplete input data; never retried.
	ErrValidation = errors.New("validation failed")

	// ErrMapping indicates a fulfillment item could not be matched to an order line.
	ErrMapping = errors.New("item mapping failed")

	// ErrNotFound indicates the requested resource was not found at the carrier.
	ErrNotFound = errors.New("not found")

	// ErrNoCourierAvailable indicates no courier can serve the requested lane.
	ErrNoCourierAvailable = errors.New("no courier available")

	// ErrCarrierRejected indicates the carrier refused the order submission.
	ErrCarrierRejected = errors.New("carrier rejected order")

	// ErrAWBAssignmentFailed indicates waybill assignment failed after order creation.
	ErrAWBAssignmentFailed = errors.New("awb assignment failed")

	// ErrUnexpectedCarrierState indicates an unclassified carrier-side failure.
	ErrUnexpectedCarrierState = errors.New("unexpected carrier state")

	// ErrClientDisposed indicates the client has been torn down.
	ErrClientDisposed = errors.New("client disposed")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")
)

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Retryable
	}
	return errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrUnexpectedCarrierState)
}
