// Package shipper provides an abstraction layer for shipping carriers.
package shipper

import (
	"context"
)

// Shipper defines the interface that all shipping carriers must implement.
type Shipper interface {
	// Name returns the carrier identifier (e.g., "shiprocket").
	Name() string

	// GetRate returns the cheapest permitted shipping rate for a lane,
	// ceiling-rounded to the next whole currency unit.
	GetRate(ctx context.Context, query *RateQuery) (float64, error)

	// CreateShipment creates a carrier order from internal fulfillment
	// data and assigns a tracking waybill. Partial failures are rolled
	// back; the outcome is all-or-nothing.
	CreateShipment(ctx context.Context, fulfillment *Fulfillment, items []FulfillmentItem, order *Order) (*ShipmentResult, error)

	// CancelShipment cancels an existing carrier order.
	CancelShipment(ctx context.Context, carrierOrderID string) error

	// GetTracking retrieves tracking information for a waybill.
	GetTracking(ctx context.Context, awb string) (*TrackingInfo, error)

	// CreateReturn creates a return shipment with the carrier.
	CreateReturn(ctx context.Context, fulfillment *Fulfillment) (*ShipmentResult, error)

	// GetDocuments fetches label, manifest, and invoice URLs for an
	// existing shipment. Unavailable documents come back empty.
	GetDocuments(ctx context.Context, ref *ShipmentRef) (*Documents, error)

	// RefreshToken forces an immediate re-authentication attempt,
	// independent of credential expiry.
	RefreshToken(ctx context.Context) error

	// Dispose tears the client down. Further operations fail with
	// ErrClientDisposed.
	Dispose()
}
