package shipper_test

import (
	"errors"
	"testing"

	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
	"github.com/stretchr/testify/assert"
)

func TestShipperError_Error(t *testing.T) {
	err := shipper.NewShipperError("shiprocket", "VALIDATION_FAILED", "Invalid pincode")
	assert.Equal(t, "shiprocket error (VALIDATION_FAILED): Invalid pincode", err.Error())
}

func TestShipperError_ErrorWithCause(t *testing.T) {
	cause := errors.New("network timeout")
	err := shipper.NewShipperError("shiprocket", "TRANSPORT_ERROR", "API call failed").WithCause(cause)
	assert.Contains(t, err.Error(), "API call failed")
	assert.Contains(t, err.Error(), "network timeout")
}

func TestShipperError_Unwrap(t *testing.T) {
	cause := errors.New("network timeout")
	err := shipper.NewShipperError("shiprocket", "TRANSPORT_ERROR", "API call failed").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestShipperError_Is(t *testing.T) {
	err1 := shipper.NewShipperError("shiprocket", "VALIDATION_FAILED", "Invalid pincode")
	err2 := shipper.NewShipperError("othercarrier", "VALIDATION_FAILED", "Different message")

	// Same code should match
	assert.True(t, errors.Is(err1, err2))
}

func TestShipperError_IsNot(t *testing.T) {
	err1 := shipper.NewShipperError("shiprocket", "VALIDATION_FAILED", "Invalid pincode")
	err2 := shipper.NewShipperError("shiprocket", "AUTH_FAILED", "Different error")

	// Different codes should not match
	assert.False(t, errors.Is(err1, err2))
}

func TestShipperError_WithStatusCode(t *testing.T) {
	err := shipper.NewShipperError("shiprocket", "AUTH_FAILED", "Unauthorized").WithStatusCode(401)
	assert.Equal(t, 401, err.StatusCode)
}

func TestShipperError_WithRetryable(t *testing.T) {
	err := shipper.NewShipperError("shiprocket", "RATE_LIMITED", "Too many requests").WithRetryable(true)
	assert.True(t, err.Retryable)
}

func TestShipperError_WithFieldErrors(t *testing.T) {
	fields := map[string][]string{
		"billing_pincode": {"The billing pincode must be 6 digits"},
	}
	err := shipper.NewShipperError("shiprocket", "VALIDATION_FAILED", "Validation failed").WithFieldErrors(fields)
	assert.Equal(t, fields, err.FieldErrors)
}

func TestIsRetryable_ShipperError(t *testing.T) {
	err := shipper.NewShipperError("shiprocket", "RATE_LIMITED", "Too many requests").WithRetryable(true)
	assert.True(t, shipper.IsRetryable(err))
}

func TestIsRetryable_ShipperErrorNotRetryable(t *testing.T) {
	err := shipper.NewShipperError("shiprocket", "VALIDATION_FAILED", "Bad pincode").WithRetryable(false)
	assert.False(t, shipper.IsRetryable(err))
}

func TestIsRetryable_RateLimitExceeded(t *testing.T) {
	assert.True(t, shipper.IsRetryable(shipper.ErrRateLimitExceeded))
}

func TestIsRetryable_UnexpectedCarrierState(t *testing.T) {
	assert.True(t, shipper.IsRetryable(shipper.ErrUnexpectedCarrierState))
}

func TestIsRetryable_Validation(t *testing.T) {
	assert.False(t, shipper.IsRetryable(shipper.ErrValidation))
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrAuthenticationFailed", shipper.ErrAuthenticationFailed},
		{"ErrRateLimitExceeded", shipper.ErrRateLimitExceeded},
		{"ErrValidation", shipper.ErrValidation},
		{"ErrMapping", shipper.ErrMapping},
		{"ErrNotFound", shipper.ErrNotFound},
		{"ErrNoCourierAvailable", shipper.ErrNoCourierAvailable},
		{"ErrCarrierRejected", shipper.ErrCarrierRejected},
		{"ErrAWBAssignmentFailed", shipper.ErrAWBAssignmentFailed},
		{"ErrUnexpectedCarrierState", shipper.ErrUnexpectedCarrierState},
		{"ErrClientDisposed", shipper.ErrClientDisposed},
		{"ErrCarrierNotFound", shipper.ErrCarrierNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
