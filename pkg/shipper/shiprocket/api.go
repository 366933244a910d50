package shiprocket

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// APIClient defines the interface for Shiprocket API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
//
// The bearer token is passed explicitly so that the credential
// lifecycle (single-flight refresh, 401 retry) stays outside the
// transport and remains independently testable.
type APIClient interface {
	// Authenticate exchanges account credentials for a bearer token
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error)

	// GetServiceability queries courier serviceability for a lane
	GetServiceability(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error)

	// CreateOrder submits an adhoc (custom) order
	CreateOrder(ctx context.Context, token string, req *OrderRequest) (*OrderResponse, error)

	// CreateReturnOrder submits a return order
	CreateReturnOrder(ctx context.Context, token string, req *ReturnOrderRequest) (*OrderResponse, error)

	// AssignAWB requests waybill assignment for a created shipment
	AssignAWB(ctx context.Context, token string, req *AssignAWBRequest) (*AssignAWBResponse, error)

	// CancelOrder cancels existing orders by carrier order id
	CancelOrder(ctx context.Context, token string, orderIDs []string) error

	// GetTracking retrieves tracking information for a waybill
	GetTracking(ctx context.Context, token string, awb string) (*TrackingResponse, error)

	// GenerateManifest generates the pickup manifest for orders
	GenerateManifest(ctx context.Context, token string, orderIDs []string) (*ManifestResponse, error)

	// GenerateLabel generates the shipping label for shipments
	GenerateLabel(ctx context.Context, token string, shipmentIDs []string) (*LabelResponse, error)

	// GenerateInvoice generates the invoice for orders
	GenerateInvoice(ctx context.Context, token string, orderIDs []string) (*InvoiceResponse, error)
}

// ============================================================================
// API Request/Response Types (match Shiprocket external API v1 structure)
// ============================================================================

// Flex decodes carrier fields that arrive as either JSON numbers or
// quoted strings; Shiprocket mixes both depending on the courier.
type Flex string

// UnmarshalJSON accepts numbers, strings, and null.
func (f *Flex) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*f = Flex(s)
	return nil
}

// String returns the raw value.
func (f Flex) String() string {
	return string(f)
}

// Float64 parses the value as a float.
func (f Flex) Float64() (float64, error) {
	return strconv.ParseFloat(string(f), 64)
}

// Int parses the value as an integer, returning 0 when unparseable.
func (f Flex) Int() int {
	n, err := strconv.Atoi(string(f))
	if err != nil {
		if v, ferr := f.Float64(); ferr == nil {
			return int(v)
		}
		return 0
	}
	return n
}

// AuthRequest represents the authentication request.
// POST /auth/login
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response.
type AuthResponse struct {
	Token string `json:"token"`
}

// ServiceabilityRequest represents a courier serviceability query.
// GET /courier/serviceability/ (query parameters)
type ServiceabilityRequest struct {
	PickupPostcode   string
	DeliveryPostcode string
	Weight           float64 // kg
	COD              int     // 1 = cash on delivery
	DeclaredValue    float64
}

// CourierCompany represents a single available courier for a lane.
type CourierCompany struct {
	ID                    int    `json:"id"`
	CourierName           string `json:"courier_name"`
	Rate                  Flex   `json:"rate"`
	EstimatedDeliveryDays Flex   `json:"estimated_delivery_days"`
	IsSurface             bool   `json:"is_surface"`
}

// ServiceabilityResponse represents the serviceability query response.
type ServiceabilityResponse struct {
	Data struct {
		AvailableCourierCompanies []CourierCompany `json:"available_courier_companies"`
	} `json:"data"`
}

// OrderItem is a single line on a carrier order.
type OrderItem struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Units        int    `json:"units"`
	SellingPrice int    `json:"selling_price"`
	Discount     string `json:"discount"`
	Tax          string `json:"tax"`
	HSN          int    `json:"hsn"`
}

// OrderRequest represents an adhoc order creation request.
// POST /orders/create/adhoc
type OrderRequest struct {
	OrderID        string `json:"order_id"`
	OrderDate      string `json:"order_date"` // "02-01-2006 15:04"
	PickupLocation string `json:"pickup_location"`

	BillingCustomerName string `json:"billing_customer_name"`
	BillingLastName     string `json:"billing_last_name"`
	BillingAddress      string `json:"billing_address"`
	BillingAddress2     string `json:"billing_address_2,omitempty"`
	BillingCity         string `json:"billing_city"`
	BillingPincode      int    `json:"billing_pincode"`
	BillingState        string `json:"billing_state"`
	BillingCountry      string `json:"billing_country"`
	BillingEmail        string `json:"billing_email"`
	BillingPhone        int64  `json:"billing_phone"`

	ShippingIsBilling    bool   `json:"shipping_is_billing"`
	ShippingCustomerName string `json:"shipping_customer_name"`
	ShippingLastName     string `json:"shipping_last_name"`
	ShippingAddress      string `json:"shipping_address"`
	ShippingAddress2     string `json:"shipping_address_2,omitempty"`
	ShippingCity         string `json:"shipping_city"`
	ShippingPincode      int    `json:"shipping_pincode"`
	ShippingCountry      string `json:"shipping_country"`
	ShippingState        string `json:"shipping_state"`
	ShippingEmail        string `json:"shipping_email"`
	ShippingPhone        int64  `json:"shipping_phone"`

	OrderItems []OrderItem `json:"order_items"`

	PaymentMethod      string  `json:"payment_method"` // "Prepaid" or "COD"
	ShippingCharges    float64 `json:"shipping_charges"`
	GiftwrapCharges    float64 `json:"giftwrap_charges"`
	TransactionCharges float64 `json:"transaction_charges"`
	TotalDiscount      float64 `json:"total_discount"`
	SubTotal           float64 `json:"sub_total"`

	Length  float64 `json:"length"`  // cm
	Breadth float64 `json:"breadth"` // cm
	Height  float64 `json:"height"`  // cm
	Weight  float64 `json:"weight"`  // kg
}

// ReturnOrderRequest represents a return order creation request.
// POST /orders/create/return
type ReturnOrderRequest struct {
	OrderID   string `json:"order_id"`
	OrderDate string `json:"order_date"`

	PickupCustomerName string `json:"pickup_customer_name"`
	PickupLastName     string `json:"pickup_last_name"`
	PickupAddress      string `json:"pickup_address"`
	PickupAddress2     string `json:"pickup_address_2,omitempty"`
	PickupCity         string `json:"pickup_city"`
	PickupPincode      int    `json:"pickup_pincode"`
	PickupState        string `json:"pickup_state"`
	PickupCountry      string `json:"pickup_country"`
	PickupEmail        string `json:"pickup_email"`
	PickupPhone        int64  `json:"pickup_phone"`

	ShippingCustomerName string `json:"shipping_customer_name"`
	ShippingLastName     string `json:"shipping_last_name"`
	ShippingAddress      string `json:"shipping_address"`
	ShippingAddress2     string `json:"shipping_address_2,omitempty"`
	ShippingCity         string `json:"shipping_city"`
	ShippingPincode      int    `json:"shipping_pincode"`
	ShippingCountry      string `json:"shipping_country"`
	ShippingState        string `json:"shipping_state"`
	ShippingEmail        string `json:"shipping_email"`
	ShippingPhone        int64  `json:"shipping_phone"`

	OrderItems []OrderItem `json:"order_items"`

	PaymentMethod string  `json:"payment_method"`
	SubTotal      float64 `json:"sub_total"`

	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Height  float64 `json:"height"`
	Weight  float64 `json:"weight"`
}

// OrderResponse represents the order creation response. Shiprocket
// returns ids as numbers; Flex keeps them lossless either way.
type OrderResponse struct {
	OrderID          Flex   `json:"order_id"`
	ShipmentID       Flex   `json:"shipment_id"`
	Status           string `json:"status"`
	StatusCode       int    `json:"status_code"`
	CourierCompanyID Flex   `json:"courier_company_id"`
	CourierName      string `json:"courier_name"`
	LabelURL         string `json:"label_url"`
	PaymentMethod    string `json:"payment_method"`
}

// AssignAWBRequest represents a waybill assignment request.
// POST /courier/assign/awb
type AssignAWBRequest struct {
	ShipmentID string `json:"shipment_id"`
	CourierID  string `json:"courier_id,omitempty"`
}

// AssignAWBResponse represents the waybill assignment response.
// AWBAssignStatus is 1 on success.
type AssignAWBResponse struct {
	AWBAssignStatus int    `json:"awb_assign_status"`
	Message         string `json:"message,omitempty"`
	Response        struct {
		Data struct {
			AWBCode          string `json:"awb_code"`
			CourierCompanyID Flex   `json:"courier_company_id"`
			CourierName      string `json:"courier_name"`
		} `json:"data"`
	} `json:"response"`
}

// CancelRequest represents an order cancellation request.
// POST /orders/cancel
type CancelRequest struct {
	IDs []string `json:"ids"`
}

// TrackingScan is a single tracking scan.
type TrackingScan struct {
	Date     string `json:"date"`
	Activity string `json:"activity"`
	Location string `json:"location"`
}

// TrackingResponse represents tracking information for a waybill.
// GET /courier/track/awb/{awb}
type TrackingResponse struct {
	TrackingData struct {
		TrackStatus    Flex           `json:"track_status"`
		ShipmentStatus Flex           `json:"shipment_status"`
		CurrentStatus  string         `json:"current_status"`
		ETD            string         `json:"etd,omitempty"`
		Scans          []TrackingScan `json:"scans"`
	} `json:"tracking_data"`
}

// ManifestResponse represents the manifest generation response.
// GET /manifests/generate
type ManifestResponse struct {
	Status      int    `json:"status"`
	ManifestURL string `json:"manifest_url"`
}

// LabelResponse represents the label generation response.
// GET /courier/generate/label
type LabelResponse struct {
	LabelCreated int    `json:"label_created"`
	LabelURL     string `json:"label_url"`
}

// InvoiceResponse represents the invoice generation response.
// GET /orders/print/invoice
type InvoiceResponse struct {
	IsInvoiceCreated bool   `json:"is_invoice_created"`
	InvoiceURL       string `json:"invoice_url"`
}

// APIError represents an error from the Shiprocket API.
type APIError struct {
	StatusCode int                 `json:"status_code"`
	Message    string              `json:"message"`
	Errors     map[string][]string `json:"errors,omitempty"` // Field-level errors
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP_%d: %s", e.StatusCode, e.Message)
}
