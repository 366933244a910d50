package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the Shiprocket external API endpoint.
const DefaultBaseURL = "https://apiv2.shiprocket.in/v1/external"

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPAPIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Authenticate obtains a bearer token from the Shiprocket API.
// POST /auth/login
func (c *HTTPAPIClient) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/login", "", nil, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	return &result, nil
}

// GetServiceability queries courier serviceability for a lane.
// GET /courier/serviceability/
func (c *HTTPAPIClient) GetServiceability(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	query := url.Values{}
	query.Set("pickup_postcode", req.PickupPostcode)
	query.Set("delivery_postcode", req.DeliveryPostcode)
	query.Set("weight", strconv.FormatFloat(req.Weight, 'f', -1, 64))
	query.Set("cod", strconv.Itoa(req.COD))
	if req.DeclaredValue > 0 {
		query.Set("declared_value", strconv.FormatFloat(req.DeclaredValue, 'f', -1, 64))
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/courier/serviceability/", token, query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result ServiceabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode serviceability response: %w", err)
	}

	return &result, nil
}

// CreateOrder submits an adhoc order.
// POST /orders/create/adhoc
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, token string, req *OrderRequest) (*OrderResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/orders/create/adhoc", token, nil, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	return &result, nil
}

// CreateReturnOrder submits a return order.
// POST /orders/create/return
func (c *HTTPAPIClient) CreateReturnOrder(ctx context.Context, token string, req *ReturnOrderRequest) (*OrderResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/orders/create/return", token, nil, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode return order response: %w", err)
	}

	return &result, nil
}

// AssignAWB requests waybill assignment for a shipment.
// POST /courier/assign/awb
func (c *HTTPAPIClient) AssignAWB(ctx context.Context, token string, req *AssignAWBRequest) (*AssignAWBResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/courier/assign/awb", token, nil, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result AssignAWBResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode awb response: %w", err)
	}

	return &result, nil
}

// CancelOrder cancels orders by carrier order id.
// POST /orders/cancel
func (c *HTTPAPIClient) CancelOrder(ctx context.Context, token string, orderIDs []string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/orders/cancel", token, nil, &CancelRequest{IDs: orderIDs})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.parseError(resp)
	}

	return nil
}

// GetTracking retrieves tracking information for a waybill.
// GET /courier/track/awb/{awb}
func (c *HTTPAPIClient) GetTracking(ctx context.Context, token string, awb string) (*TrackingResponse, error) {
	path := fmt.Sprintf("/courier/track/awb/%s", url.PathEscape(awb))

	resp, err := c.doRequest(ctx, http.MethodGet, path, token, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result TrackingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode tracking response: %w", err)
	}

	return &result, nil
}

// GenerateManifest generates the pickup manifest for orders.
// GET /manifests/generate
func (c *HTTPAPIClient) GenerateManifest(ctx context.Context, token string, orderIDs []string) (*ManifestResponse, error) {
	query := url.Values{}
	for _, id := range orderIDs {
		query.Add("order_ids[]", id)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/manifests/generate", token, query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result ManifestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode manifest response: %w", err)
	}

	return &result, nil
}

// GenerateLabel generates the shipping label for shipments.
// GET /courier/generate/label
func (c *HTTPAPIClient) GenerateLabel(ctx context.Context, token string, shipmentIDs []string) (*LabelResponse, error) {
	query := url.Values{}
	for _, id := range shipmentIDs {
		query.Add("shipment_id[]", id)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/courier/generate/label", token, query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result LabelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode label response: %w", err)
	}

	return &result, nil
}

// GenerateInvoice generates the invoice for orders.
// GET /orders/print/invoice
func (c *HTTPAPIClient) GenerateInvoice(ctx context.Context, token string, orderIDs []string) (*InvoiceResponse, error) {
	query := url.Values{}
	for _, id := range orderIDs {
		query.Add("ids[]", id)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/orders/print/invoice", token, query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result InvoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode invoice response: %w", err)
	}

	return &result, nil
}

// doRequest performs an HTTP request with proper headers and authentication.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path, token string, query url.Values, body interface{}) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", "shiprocket-fulfillment/1.0")

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err == nil && (apiErr.Message != "" || len(apiErr.Errors) > 0) {
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	// Some error payloads carry a bare "error" field instead
	var simpleErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &simpleErr); err == nil && simpleErr.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: simpleErr.Error}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
