package shipper

import (
	"time"
)

// RateQuery describes a lane and consignment for rate calculation.
type RateQuery struct {
	PickupPostcode    string
	DeliveryPostcode  string
	WeightKg          float64
	COD               bool
	DeclaredValue     float64
	AllowedCourierIDs []int // Empty = all couriers
}

// CourierOption is a single courier offered by the carrier for a lane.
// Rate is NaN when the carrier returned a non-numeric value.
type CourierOption struct {
	ID            int
	Name          string
	Rate          float64
	EstimatedDays int
}

// Address represents a shipping or billing address.
type Address struct {
	FirstName  string
	LastName   string
	Address1   string
	Address2   string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
	Email      string
}

// Customer represents the billing party on an order.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Variant carries the physical attributes of a product variant.
// Weight is stored in grams; dimensions in centimetres.
type Variant struct {
	ID          string
	SKU         string
	HSCode      string
	WeightGrams float64
	LengthCm    float64
	WidthCm     float64
	HeightCm    float64
}

// OrderLine is a line item on the originating order.
type OrderLine struct {
	ID        string
	UnitPrice float64
	Variant   *Variant
}

// FulfillmentItem is an item included in a fulfillment, referencing
// its originating order line by LineItemID.
type FulfillmentItem struct {
	ID         string
	Title      string
	SKU        string
	LineItemID string
	Quantity   int
}

// Order is the internal order a shipment is created from.
type Order struct {
	ID              string
	CreatedAt       time.Time
	Items           []OrderLine
	Customer        Customer
	ShippingAddress *Address
	DiscountTotal   float64
}

// ReturnItem is an item on a return shipment. Returns often lack full
// variant data, so only commercial fields are required.
type ReturnItem struct {
	Name         string
	SKU          string
	Units        int
	SellingPrice float64
}

// Fulfillment is the internal fulfillment a shipment or return is
// created for. DeliveryAddress is the outbound destination;
// PickupAddress is where a return is collected from.
type Fulfillment struct {
	ID              string
	OrderID         string
	ShipmentID      string
	DeliveryAddress *Address
	PickupAddress   *Address
	ReturnItems     []ReturnItem
}

// ShipmentResult is the durable record of a successful creation.
// TrackingNumber is immutable once assigned.
type ShipmentResult struct {
	CarrierOrderID string
	ShipmentID     string
	Status         string
	StatusCode     int
	TrackingNumber string
	TrackingURL    string
	LabelURL       string
	CourierID      int
	CourierName    string
}

// ShipmentRef identifies an existing carrier shipment for document
// generation.
type ShipmentRef struct {
	OrderID    string
	ShipmentID string
}

// Documents holds the URLs of generated shipment documents. A document
// that could not be generated is an empty string.
type Documents struct {
	Label    string
	Manifest string
	Invoice  string
}

// TrackingEvent is a single scan on a shipment's journey.
type TrackingEvent struct {
	Date     string
	Activity string
	Location string
}

// TrackingInfo is the normalized tracking state for a waybill.
type TrackingInfo struct {
	TrackingNumber string
	TrackStatus    string
	CurrentStatus  string
	ETA            string
	Events         []TrackingEvent
}
