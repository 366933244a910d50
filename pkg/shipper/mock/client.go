// Package mock provides a mock shipper implementation for testing.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
)

// Client is a mock shipper for testing. Per-operation hooks override
// the canned defaults so tests can drive error paths.
type Client struct {
	name     string
	disposed bool

	OnGetRate        func(ctx context.Context, query *shipper.RateQuery) (float64, error)
	OnCreateShipment func(ctx context.Context, fulfillment *shipper.Fulfillment, items []shipper.FulfillmentItem, order *shipper.Order) (*shipper.ShipmentResult, error)
	OnCancelShipment func(ctx context.Context, carrierOrderID string) error
	OnGetTracking    func(ctx context.Context, awb string) (*shipper.TrackingInfo, error)
	OnCreateReturn   func(ctx context.Context, fulfillment *shipper.Fulfillment) (*shipper.ShipmentResult, error)
	OnGetDocuments   func(ctx context.Context, ref *shipper.ShipmentRef) (*shipper.Documents, error)
	OnRefreshToken   func(ctx context.Context) error
}

// New creates a new mock shipper.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// GetRate returns a fixed mock rate.
func (c *Client) GetRate(ctx context.Context, query *shipper.RateQuery) (float64, error) {
	if c.OnGetRate != nil {
		return c.OnGetRate(ctx, query)
	}
	return 96, nil
}

// CreateShipment creates a mock shipment.
func (c *Client) CreateShipment(ctx context.Context, fulfillment *shipper.Fulfillment, items []shipper.FulfillmentItem, order *shipper.Order) (*shipper.ShipmentResult, error) {
	if c.OnCreateShipment != nil {
		return c.OnCreateShipment(ctx, fulfillment, items, order)
	}

	now := time.Now()
	awb := fmt.Sprintf("%d", 100000000000+now.UnixNano()%900000000000)
	return &shipper.ShipmentResult{
		CarrierOrderID: fmt.Sprintf("%s-order-%d", c.name, now.UnixNano()),
		ShipmentID:     fmt.Sprintf("%s-ship-%d", c.name, now.UnixNano()),
		Status:         "NEW",
		StatusCode:     1,
		TrackingNumber: awb,
		TrackingURL:    fmt.Sprintf("https://track.%s.mock/%s", c.name, awb),
		CourierID:      24,
		CourierName:    "Mock Courier",
	}, nil
}

// CancelShipment cancels a mock shipment.
func (c *Client) CancelShipment(ctx context.Context, carrierOrderID string) error {
	if c.OnCancelShipment != nil {
		return c.OnCancelShipment(ctx, carrierOrderID)
	}
	return nil
}

// GetTracking returns mock tracking information.
func (c *Client) GetTracking(ctx context.Context, awb string) (*shipper.TrackingInfo, error) {
	if c.OnGetTracking != nil {
		return c.OnGetTracking(ctx, awb)
	}

	now := time.Now()
	return &shipper.TrackingInfo{
		TrackingNumber: awb,
		TrackStatus:    "1",
		CurrentStatus:  "In Transit",
		ETA:            now.AddDate(0, 0, 3).Format("2006-01-02 15:04:05"),
		Events: []shipper.TrackingEvent{
			{
				Date:     now.Add(-24 * time.Hour).Format("2006-01-02 15:04:05"),
				Activity: "Shipment picked up",
				Location: "Mumbai, MH",
			},
		},
	}, nil
}

// CreateReturn creates a mock return shipment.
func (c *Client) CreateReturn(ctx context.Context, fulfillment *shipper.Fulfillment) (*shipper.ShipmentResult, error) {
	if c.OnCreateReturn != nil {
		return c.OnCreateReturn(ctx, fulfillment)
	}

	now := time.Now()
	return &shipper.ShipmentResult{
		CarrierOrderID: fmt.Sprintf("%s-return-%d", c.name, now.UnixNano()),
		ShipmentID:     fmt.Sprintf("%s-retship-%d", c.name, now.UnixNano()),
		Status:         "RETURN PENDING",
		StatusCode:     1,
	}, nil
}

// GetDocuments returns mock document URLs.
func (c *Client) GetDocuments(ctx context.Context, ref *shipper.ShipmentRef) (*shipper.Documents, error) {
	if c.OnGetDocuments != nil {
		return c.OnGetDocuments(ctx, ref)
	}

	return &shipper.Documents{
		Label:    fmt.Sprintf("https://docs.%s.mock/label/%s.pdf", c.name, ref.ShipmentID),
		Manifest: fmt.Sprintf("https://docs.%s.mock/manifest/%s.pdf", c.name, ref.OrderID),
		Invoice:  fmt.Sprintf("https://docs.%s.mock/invoice/%s.pdf", c.name, ref.OrderID),
	}, nil
}

// RefreshToken refreshes the mock credential.
func (c *Client) RefreshToken(ctx context.Context) error {
	if c.OnRefreshToken != nil {
		return c.OnRefreshToken(ctx)
	}
	if c.disposed {
		return shipper.NewShipperError(c.name, "CLIENT_DISPOSED", "client has been disposed").
			WithCause(shipper.ErrClientDisposed)
	}
	return nil
}

// Dispose marks the mock client disposed.
func (c *Client) Dispose() {
	c.disposed = true
}

var _ shipper.Shipper = (*Client)(nil)
