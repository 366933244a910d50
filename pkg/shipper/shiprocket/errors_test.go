package shiprocket

import (
	"errors"
	"testing"

	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError_Nil(t *testing.T) {
	assert.NoError(t, translateError(nil))
}

func TestTranslateError_PassThrough(t *testing.T) {
	original := shipper.NewShipperError(carrierName, "VALIDATION_FAILED", "already translated").
		WithCause(shipper.ErrValidation)
	assert.Equal(t, original, translateError(original))
}

func TestTranslateError_Transport(t *testing.T) {
	err := translateError(errors.New("connection reset by peer"))

	var shipperErr *shipper.ShipperError
	require.True(t, errors.As(err, &shipperErr))
	assert.Equal(t, "TRANSPORT_ERROR", shipperErr.Code)
	assert.True(t, shipperErr.Retryable)
	assert.True(t, errors.Is(err, shipper.ErrUnexpectedCarrierState))
}

func TestTranslateError_Unauthorized(t *testing.T) {
	err := translateError(&APIError{StatusCode: 401, Message: "Wrong credentials"})

	assert.True(t, errors.Is(err, shipper.ErrAuthenticationFailed))
	assert.False(t, shipper.IsRetryable(err))
}

func TestTranslateError_RateLimited(t *testing.T) {
	err := translateError(&APIError{StatusCode: 429, Message: "Too many requests"})

	assert.True(t, errors.Is(err, shipper.ErrRateLimitExceeded))
	assert.True(t, shipper.IsRetryable(err))
}

func TestTranslateError_ValidationWithFields(t *testing.T) {
	err := translateError(&APIError{
		StatusCode: 400,
		Message:    "Validation failed",
		Errors: map[string][]string{
			"billing_pincode": {"Pincode must be 6 digits", "Pincode is required"},
			"billing_phone":   {"Phone is invalid"},
		},
	})

	var shipperErr *shipper.ShipperError
	require.True(t, errors.As(err, &shipperErr))
	assert.True(t, errors.Is(err, shipper.ErrValidation))
	assert.Equal(t, "VALIDATION_FAILED", shipperErr.Code)
	assert.Equal(t,
		"validation failed: billing_phone: Phone is invalid; billing_pincode: Pincode must be 6 digits, Pincode is required",
		shipperErr.Message)
	assert.Len(t, shipperErr.FieldErrors, 2)
}

func TestTranslateError_BadRequestWithoutFields(t *testing.T) {
	err := translateError(&APIError{StatusCode: 400, Message: "Malformed request"})

	var shipperErr *shipper.ShipperError
	require.True(t, errors.As(err, &shipperErr))
	assert.Equal(t, "HTTP_400", shipperErr.Code)
	assert.True(t, errors.Is(err, shipper.ErrUnexpectedCarrierState))
	assert.False(t, shipperErr.Retryable)
}

func TestTranslateError_NotFound(t *testing.T) {
	err := translateError(&APIError{StatusCode: 404, Message: "Order not found"})

	assert.True(t, errors.Is(err, shipper.ErrNotFound))
}

func TestTranslateError_ServerError(t *testing.T) {
	err := translateError(&APIError{StatusCode: 502, Message: "Bad gateway"})

	var shipperErr *shipper.ShipperError
	require.True(t, errors.As(err, &shipperErr))
	assert.Equal(t, "HTTP_502", shipperErr.Code)
	assert.True(t, shipperErr.Retryable)
	assert.True(t, errors.Is(err, shipper.ErrUnexpectedCarrierState))
}

func TestFirstFieldError(t *testing.T) {
	err := translateError(&APIError{
		StatusCode: 400,
		Message:    "Validation failed",
		Errors: map[string][]string{
			"shipping_city": {"City is required"},
			"billing_phone": {"Phone is invalid", "Phone too short"},
		},
	})

	assert.Equal(t, "Phone is invalid", firstFieldError(err))
}

func TestFirstFieldError_NoFields(t *testing.T) {
	assert.Empty(t, firstFieldError(errors.New("plain error")))
	assert.Empty(t, firstFieldError(translateError(&APIError{StatusCode: 500, Message: "boom"})))
}
