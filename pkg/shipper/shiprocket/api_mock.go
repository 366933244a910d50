package shiprocket

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
// Call counters track how many times each endpoint was hit so tests
// can assert on invocation counts.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnAuthenticate      func(ctx context.Context, req *AuthRequest) (*AuthResponse, error)
	OnGetServiceability func(ctx context.Context, req *ServiceabilityRequest) (*ServiceabilityResponse, error)
	OnCreateOrder       func(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	OnCreateReturnOrder func(ctx context.Context, req *ReturnOrderRequest) (*OrderResponse, error)
	OnAssignAWB         func(ctx context.Context, req *AssignAWBRequest) (*AssignAWBResponse, error)
	OnCancelOrder       func(ctx context.Context, orderIDs []string) error
	OnGetTracking       func(ctx context.Context, awb string) (*TrackingResponse, error)
	OnGenerateManifest  func(ctx context.Context, orderIDs []string) (*ManifestResponse, error)
	OnGenerateLabel     func(ctx context.Context, shipmentIDs []string) (*LabelResponse, error)
	OnGenerateInvoice   func(ctx context.Context, orderIDs []string) (*InvoiceResponse, error)

	AuthenticateCalls      atomic.Int64
	GetServiceabilityCalls atomic.Int64
	CreateOrderCalls       atomic.Int64
	CreateReturnOrderCalls atomic.Int64
	AssignAWBCalls         atomic.Int64
	CancelOrderCalls       atomic.Int64
	GetTrackingCalls       atomic.Int64
	GenerateManifestCalls  atomic.Int64
	GenerateLabelCalls     atomic.Int64
	GenerateInvoiceCalls   atomic.Int64
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &APIError{StatusCode: 500, Message: "Simulated API error"}
	}
	return nil
}

// Authenticate returns a mock bearer token.
func (m *MockAPIClient) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error) {
	m.AuthenticateCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnAuthenticate != nil {
		return m.OnAuthenticate(ctx, req)
	}

	return &AuthResponse{
		Token: "mock-token-" + uuid.New().String()[:8],
	}, nil
}

// GetServiceability returns mock serviceable couriers.
func (m *MockAPIClient) GetServiceability(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	m.GetServiceabilityCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetServiceability != nil {
		return m.OnGetServiceability(ctx, req)
	}

	resp := &ServiceabilityResponse{}
	resp.Data.AvailableCourierCompanies = []CourierCompany{
		{
			ID:                    24,
			CourierName:           "Delhivery Surface",
			Rate:                  "95.50",
			EstimatedDeliveryDays: "4",
			IsSurface:             true,
		},
		{
			ID:                    10,
			CourierName:           "Bluedart Air",
			Rate:                  "142",
			EstimatedDeliveryDays: "2",
		},
		{
			ID:                    51,
			CourierName:           "Ecom Express",
			Rate:                  "101.25",
			EstimatedDeliveryDays: "5",
			IsSurface:             true,
		},
	}
	return resp, nil
}

// CreateOrder creates a mock adhoc order.
func (m *MockAPIClient) CreateOrder(ctx context.Context, token string, req *OrderRequest) (*OrderResponse, error) {
	m.CreateOrderCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}

	return &OrderResponse{
		OrderID:          Flex(fmt.Sprintf("%d", 400000000+time.Now().UnixNano()%100000000)),
		ShipmentID:       Flex(fmt.Sprintf("%d", 390000000+time.Now().UnixNano()%100000000)),
		Status:           "NEW",
		StatusCode:       1,
		CourierCompanyID: "24",
		CourierName:      "Delhivery Surface",
		PaymentMethod:    req.PaymentMethod,
	}, nil
}

// CreateReturnOrder creates a mock return order.
func (m *MockAPIClient) CreateReturnOrder(ctx context.Context, token string, req *ReturnOrderRequest) (*OrderResponse, error) {
	m.CreateReturnOrderCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateReturnOrder != nil {
		return m.OnCreateReturnOrder(ctx, req)
	}

	return &OrderResponse{
		OrderID:    Flex(fmt.Sprintf("%d", 500000000+time.Now().UnixNano()%100000000)),
		ShipmentID: Flex(fmt.Sprintf("%d", 490000000+time.Now().UnixNano()%100000000)),
		Status:     "RETURN PENDING",
		StatusCode: 1,
	}, nil
}

// AssignAWB assigns a mock waybill.
func (m *MockAPIClient) AssignAWB(ctx context.Context, token string, req *AssignAWBRequest) (*AssignAWBResponse, error) {
	m.AssignAWBCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnAssignAWB != nil {
		return m.OnAssignAWB(ctx, req)
	}

	resp := &AssignAWBResponse{AWBAssignStatus: 1}
	resp.Response.Data.AWBCode = fmt.Sprintf("%d", 100000000000+time.Now().UnixNano()%900000000000)
	resp.Response.Data.CourierCompanyID = "24"
	resp.Response.Data.CourierName = "Delhivery Surface"
	return resp, nil
}

// CancelOrder cancels mock orders.
func (m *MockAPIClient) CancelOrder(ctx context.Context, token string, orderIDs []string) error {
	m.CancelOrderCalls.Add(1)
	if err := m.simulate(); err != nil {
		return err
	}
	if m.OnCancelOrder != nil {
		return m.OnCancelOrder(ctx, orderIDs)
	}
	return nil
}

// GetTracking returns mock tracking information.
func (m *MockAPIClient) GetTracking(ctx context.Context, token string, awb string) (*TrackingResponse, error) {
	m.GetTrackingCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, awb)
	}

	now := time.Now()
	resp := &TrackingResponse{}
	resp.TrackingData.TrackStatus = "1"
	resp.TrackingData.ShipmentStatus = "6"
	resp.TrackingData.CurrentStatus = "In Transit"
	resp.TrackingData.ETD = now.AddDate(0, 0, 2).Format("2006-01-02 15:04:05")
	resp.TrackingData.Scans = []TrackingScan{
		{
			Date:     now.Add(-36 * time.Hour).Format("2006-01-02 15:04:05"),
			Activity: "Shipment picked up",
			Location: "Mumbai, MH",
		},
		{
			Date:     now.Add(-12 * time.Hour).Format("2006-01-02 15:04:05"),
			Activity: "In transit to destination hub",
			Location: "Bhiwandi, MH",
		},
	}
	return resp, nil
}

// GenerateManifest returns a mock manifest URL.
func (m *MockAPIClient) GenerateManifest(ctx context.Context, token string, orderIDs []string) (*ManifestResponse, error) {
	m.GenerateManifestCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGenerateManifest != nil {
		return m.OnGenerateManifest(ctx, orderIDs)
	}

	return &ManifestResponse{
		Status:      1,
		ManifestURL: fmt.Sprintf("https://files.shiprocket.in/manifest/%s.pdf", uuid.New().String()[:8]),
	}, nil
}

// GenerateLabel returns a mock label URL.
func (m *MockAPIClient) GenerateLabel(ctx context.Context, token string, shipmentIDs []string) (*LabelResponse, error) {
	m.GenerateLabelCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGenerateLabel != nil {
		return m.OnGenerateLabel(ctx, shipmentIDs)
	}

	return &LabelResponse{
		LabelCreated: 1,
		LabelURL:     fmt.Sprintf("https://files.shiprocket.in/label/%s.pdf", uuid.New().String()[:8]),
	}, nil
}

// GenerateInvoice returns a mock invoice URL.
func (m *MockAPIClient) GenerateInvoice(ctx context.Context, token string, orderIDs []string) (*InvoiceResponse, error) {
	m.GenerateInvoiceCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGenerateInvoice != nil {
		return m.OnGenerateInvoice(ctx, orderIDs)
	}

	return &InvoiceResponse{
		IsInvoiceCreated: true,
		InvoiceURL:       fmt.Sprintf("https://files.shiprocket.in/invoice/%s.pdf", uuid.New().String()[:8]),
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
