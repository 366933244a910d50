package shiprocket

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
)

// translateError maps a transport failure to the domain error taxonomy.
// Already-translated errors pass through unchanged; anything that is not
// an APIError (timeouts, connection resets, decode failures) becomes an
// unexpected-carrier-state error.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var shipperErr *shipper.ShipperError
	if errors.As(err, &shipperErr) {
		return err
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return shipper.NewShipperError(carrierName, "TRANSPORT_ERROR", "carrier request failed").
			WithCause(fmt.Errorf("%w: %v", shipper.ErrUnexpectedCarrierState, err)).
			WithRetryable(true)
	}

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return shipper.NewShipperError(carrierName, "AUTH_FAILED", "authentication failed with carrier").
			WithStatusCode(apiErr.StatusCode).
			WithCause(shipper.ErrAuthenticationFailed)

	case apiErr.StatusCode == http.StatusTooManyRequests:
		return shipper.NewShipperError(carrierName, "RATE_LIMITED", "rate limit exceeded, try again later").
			WithStatusCode(apiErr.StatusCode).
			WithRetryable(true).
			WithCause(shipper.ErrRateLimitExceeded)

	case apiErr.StatusCode == http.StatusBadRequest && len(apiErr.Errors) > 0:
		return shipper.NewShipperError(carrierName, "VALIDATION_FAILED", "validation failed: "+joinFieldErrors(apiErr.Errors)).
			WithStatusCode(apiErr.StatusCode).
			WithFieldErrors(apiErr.Errors).
			WithCause(shipper.ErrValidation)

	case apiErr.StatusCode == http.StatusNotFound:
		return shipper.NewShipperError(carrierName, "NOT_FOUND", apiErr.Message).
			WithStatusCode(apiErr.StatusCode).
			WithCause(shipper.ErrNotFound)

	default:
		return shipper.NewShipperError(carrierName, fmt.Sprintf("HTTP_%d", apiErr.StatusCode), apiErr.Message).
			WithStatusCode(apiErr.StatusCode).
			WithRetryable(apiErr.StatusCode >= 500).
			WithCause(shipper.ErrUnexpectedCarrierState)
	}
}

// joinFieldErrors renders field-level errors as "field: msg1, msg2"
// pairs joined by "; ". Fields are sorted for a deterministic message.
func joinFieldErrors(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(fields[k], ", ")))
	}
	return strings.Join(parts, "; ")
}

// firstFieldError returns the first field-level message from a carrier
// validation payload, or empty when none is attached. "First" is the
// first key in sorted order since carrier response order is not
// preserved across JSON decoding.
func firstFieldError(err error) string {
	var shipperErr *shipper.ShipperError
	if !errors.As(err, &shipperErr) || len(shipperErr.FieldErrors) == 0 {
		return ""
	}

	keys := make([]string, 0, len(shipperErr.FieldErrors))
	for k := range shipperErr.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := shipperErr.FieldErrors[keys[0]]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}
