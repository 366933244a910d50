package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/srujan00123/shiprocket-fulfillment/internal/server"
	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// The server registers its Prometheus collectors globally, so tests
// share one instance and reconfigure the mock carrier per test.
var (
	setupOnce   sync.Once
	testRouter  http.Handler
	testCarrier *mock.Client
)

func setup(t *testing.T) (http.Handler, *mock.Client) {
	t.Helper()
	setupOnce.Do(func() {
		logger := otelzap.New(zap.NewNop())
		registry := shipper.NewRegistry()
		testCarrier = mock.New("shiprocket")
		registry.Register(testCarrier)
		testRouter = server.New(server.Config{Port: 8080}, registry, logger).Router()
	})

	t.Cleanup(func() {
		testCarrier.OnGetRate = nil
		testCarrier.OnCreateShipment = nil
		testCarrier.OnCancelShipment = nil
		testCarrier.OnGetTracking = nil
		testCarrier.OnCreateReturn = nil
		testCarrier.OnGetDocuments = nil
		testCarrier.OnRefreshToken = nil
	})
	return testRouter, testCarrier
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeBody(t, rec)
	errObj, ok := resp["error"].(map[string]interface{})
	require.True(t, ok, "response should carry an error object")
	code, _ := errObj["code"].(string)
	return code
}

func TestServer_Health(t *testing.T) {
	router, _ := setup(t)

	rec := doJSON(t, router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	router, _ := setup(t)

	rec := doJSON(t, router, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetRate(t *testing.T) {
	router, _ := setup(t)

	rec := doJSON(t, router, http.MethodPost, "/api/rates",
		`{"pickup_postcode":"400001","delivery_postcode":"560001","weight_kg":1.2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "shiprocket", resp["carrier"])
	assert.Equal(t, 96.0, resp["price"])
}

func TestServer_GetRate_InvalidJSON(t *testing.T) {
	router, _ := setup(t)

	rec := doJSON(t, router, http.MethodPost, "/api/rates", "not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetRate_UnknownCarrier(t *testing.T) {
	router, _ := setup(t)

	rec := doJSON(t, router, http.MethodPost, "/api/rates",
		`{"carrier":"nonexistent","pickup_postcode":"400001","delivery_postcode":"560001","weight_kg":1}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CARRIER_NOT_FOUND", errorCode(t, rec))
}

func TestServer_GetRate_NoCourier(t *testing.T) {
	router, carrier := setup(t)
	carrier.OnGetRate = func(ctx context.Context, query *shipper.RateQuery) (float64, error) {
		return 0, shipper.NewShipperError("shiprocket", "NO_COURIER", "no couriers available for this route").
			WithCause(shipper.ErrNoCourierAvailable)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/rates",
		`{"pickup_postcode":"400001","delivery_postcode":"999999","weight_kg":1}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_COURIER", errorCode(t, rec))
}

func TestServer_CreateShipment(t *testing.T) {
	router, _ := setup(t)

	body := `{
		"fulfillment": {"id": "ful_1", "order_id": "order_123"},
		"items": [{"id": "fi_1", "title": "T-Shirt", "line_item_id": "line_1", "quantity": 1}],
		"order": {"id": "order_123", "customer": {"first_name": "Asha"}}
	}`
	rec := doJSON(t, router, http.MethodPost, "/api/shipments", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody(t, rec)
	assert.NotEmpty(t, resp["carrier_order_id"])
	assert.NotEmpty(t, resp["tracking_number"])
}

func TestServer_CreateShipment_ValidationError(t *testing.T) {
	router, carrier := setup(t)
	carrier.OnCreateShipment = func(ctx context.Context, fulfillment *shipper.Fulfillment, items []shipper.FulfillmentItem, order *shipper.Order) (*shipper.ShipmentResult, error) {
		return nil, shipper.NewShipperError("shiprocket", "VALIDATION_FAILED", "missing required field: Billing Pincode").
			WithCause(shipper.ErrValidation)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/shipments",
		`{"fulfillment": {}, "items": [], "order": {}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
}

func TestServer_CreateShipment_AWBFailure(t *testing.T) {
	router, carrier := setup(t)
	carrier.OnCreateShipment = func(ctx context.Context, fulfillment *shipper.Fulfillment, items []shipper.FulfillmentItem, order *shipper.Order) (*shipper.ShipmentResult, error) {
		return nil, shipper.NewShipperError("shiprocket", "AWB_ASSIGNMENT_FAILED", "no couriers serviceable").
			WithCause(shipper.ErrAWBAssignmentFailed)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/shipments",
		`{"fulfillment": {}, "items": [], "order": {}}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "AWB_ASSIGNMENT_FAILED", errorCode(t, rec))
}

func TestServer_CreateShipment_CarrierRejected(t *testing.T) {
	router, carrier := setup(t)
	carrier.OnCreateShipment = func(ctx context.Context, fulfillment *shipper.Fulfillment, items []shipper.FulfillmentItem, order *shipper.Order) (*shipper.ShipmentResult, error) {
		return nil, shipper.NewShipperError("shiprocket", "ORDER_REJECTED", "order creation rejected by carrier").
			WithCause(shipper.ErrCarrierRejected)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/shipments",
		`{"fulfillment": {}, "items": [], "order": {}}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_CancelShipment(t *testing.T) {
	router, carrier := setup(t)
	var cancelled string
	carrier.OnCancelShipment = func(ctx context.Context, carrierOrderID string) error {
		cancelled = carrierOrderID
		return nil
	}

	rec := doJSON(t, router, http.MethodDelete, "/api/shipments/400123", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "400123", cancelled)
}

func TestServer_CancelShipment_AuthFailure(t *testing.T) {
	router, carrier := setup(t)
	carrier.OnCancelShipment = func(ctx context.Context, carrierOrderID string) error {
		return shipper.NewShipperError("shiprocket", "AUTH_FAILED", "authentication failed with carrier").
			WithCause(shipper.ErrAuthenticationFailed)
	}

	rec := doJSON(t, router, http.MethodDelete, "/api/shipments/400123", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_GetTracking(t *testing.T) {
	router, _ := setup(t)

	rec := doJSON(t, router, http.MethodGet, "/api/tracking/123456789012", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "123456789012", resp["tracking_number"])
	assert.Equal(t, "In Transit", resp["current_status"])
}

func TestServer_CreateReturn(t *testing.T) {
	router, _ := setup(t)

	body := `{
		"fulfillment": {
			"id": "ful_r1",
			"order_id": "order_123",
			"return_items": [{"name": "T-Shirt", "units": 1, "selling_price": 499}]
		}
	}`
	rec := doJSON(t, router, http.MethodPost, "/api/returns", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody(t, rec)
	assert.NotEmpty(t, resp["carrier_order_id"])
}

func TestServer_GetDocuments(t *testing.T) {
	router, _ := setup(t)

	rec := doJSON(t, router, http.MethodGet, "/api/documents?order_id=400123&shipment_id=390123", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.NotEmpty(t, resp["label"])
	assert.NotEmpty(t, resp["manifest"])
	assert.NotEmpty(t, resp["invoice"])
}

func TestServer_GetDocuments_MissingParams(t *testing.T) {
	router, _ := setup(t)

	rec := doJSON(t, router, http.MethodGet, "/api/documents?order_id=400123", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetDocuments_PartialFailureStillOK(t *testing.T) {
	router, carrier := setup(t)
	carrier.OnGetDocuments = func(ctx context.Context, ref *shipper.ShipmentRef) (*shipper.Documents, error) {
		return &shipper.Documents{Invoice: "https://files.example/invoice.pdf"}, nil
	}

	rec := doJSON(t, router, http.MethodGet, "/api/documents?order_id=400123&shipment_id=390123", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Empty(t, resp["label"])
	assert.Empty(t, resp["manifest"])
	assert.NotEmpty(t, resp["invoice"])
}

func TestServer_RefreshToken(t *testing.T) {
	router, carrier := setup(t)
	refreshed := false
	carrier.OnRefreshToken = func(ctx context.Context) error {
		refreshed = true
		return nil
	}

	rec := doJSON(t, router, http.MethodPost, "/api/token/refresh", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, refreshed)
}

func TestServer_RefreshToken_Disposed(t *testing.T) {
	router, carrier := setup(t)
	carrier.OnRefreshToken = func(ctx context.Context) error {
		return shipper.NewShipperError("shiprocket", "CLIENT_DISPOSED", "client has been disposed").
			WithCause(shipper.ErrClientDisposed)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/token/refresh", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_RateLimited(t *testing.T) {
	router, carrier := setup(t)
	carrier.OnGetRate = func(ctx context.Context, query *shipper.RateQuery) (float64, error) {
		return 0, shipper.NewShipperError("shiprocket", "RATE_LIMITED", "rate limit exceeded, try again later").
			WithRetryable(true).
			WithCause(shipper.ErrRateLimitExceeded)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/rates",
		`{"pickup_postcode":"400001","delivery_postcode":"560001","weight_kg":1}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestServer_UnexpectedCarrierState(t *testing.T) {
	router, carrier := setup(t)
	carrier.OnGetRate = func(ctx context.Context, query *shipper.RateQuery) (float64, error) {
		return 0, shipper.NewShipperError("shiprocket", "TRANSPORT_ERROR", "carrier request failed").
			WithCause(shipper.ErrUnexpectedCarrierState)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/rates",
		`{"pickup_postcode":"400001","delivery_postcode":"560001","weight_kg":1}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
