// Package shiprocket provides integration with the Shiprocket shipping API.
package shiprocket

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const carrierName = "shiprocket"

// trackingURLPrefix derives the human-facing tracking page from an
// assigned waybill code.
const trackingURLPrefix = "https://shiprocket.co/tracking/"

// Config holds Shiprocket configuration.
type Config struct {
	Email          string
	Password       string
	BaseURL        string
	PickupLocation string // Registered pickup location; defaults to "Primary"
	COD            bool   // When true, orders are placed as cash-on-delivery
	Timeout        time.Duration
	UseMock        bool // When true, uses mock API client
}

// Client is the Shiprocket shipper client.
// It implements the shipper.Shipper interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config Config
	api    APIClient
	tokens *tokenManager
	logger *otelzap.Logger
	tracer trace.Tracer
}

// New creates a new Shiprocket client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new Shiprocket client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config: cfg,
		api:    apiClient,
		tokens: newTokenManager(apiClient, cfg.Email, cfg.Password),
		logger: logger,
		tracer: tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// RefreshToken forces an immediate re-authentication attempt,
// independent of credential expiry. Wired to the scheduled maintenance
// trigger so tokens are renewed ahead of their expiry horizon.
func (c *Client) RefreshToken(ctx context.Context) error {
	if err := c.tokens.forceRefresh(ctx); err != nil {
		c.logger.Error("Shiprocket token refresh failed", zap.Error(err))
		return err
	}
	c.logger.Info("Shiprocket token refreshed")
	return nil
}

// Dispose clears the credential and refuses further authentication.
func (c *Client) Dispose() {
	c.tokens.dispose()
	c.logger.Info("Shiprocket client disposed")
}

// withAuthRetry runs fn with a valid bearer token and retries it
// exactly once after a 401: the credential the carrier refused is
// invalidated, a fresh one is obtained, and the original call is
// replayed. A second consecutive 401 surfaces as-is.
func (c *Client) withAuthRetry(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	token, err := c.tokens.ensureValid(ctx)
	if err != nil {
		return err
	}

	err = translateError(fn(ctx, token))
	if err == nil || !errors.Is(err, shipper.ErrAuthenticationFailed) {
		return err
	}

	c.logger.Warn("Shiprocket rejected token, refreshing and retrying once")
	c.tokens.invalidate(token)

	token, err = c.tokens.ensureValid(ctx)
	if err != nil {
		return err
	}
	return translateError(fn(ctx, token))
}

// GetRate returns the cheapest permitted courier rate for a lane,
// ceiling-rounded.
func (c *Client) GetRate(ctx context.Context, query *shipper.RateQuery) (float64, error) {
	ctx, end := c.span(ctx, "shiprocket.get_rate")
	defer end()

	c.logger.Info("Getting Shiprocket rate",
		zap.String("pickup_postcode", query.PickupPostcode),
		zap.String("delivery_postcode", query.DeliveryPostcode),
		zap.Float64("weight_kg", query.WeightKg),
	)

	cod := 0
	if query.COD {
		cod = 1
	}

	var resp *ServiceabilityResponse
	err := c.withAuthRetry(ctx, func(ctx context.Context, token string) error {
		r, err := c.api.GetServiceability(ctx, token, &ServiceabilityRequest{
			PickupPostcode:   query.PickupPostcode,
			DeliveryPostcode: query.DeliveryPostcode,
			Weight:           query.WeightKg,
			COD:              cod,
			DeclaredValue:    query.DeclaredValue,
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		c.logger.Error("Shiprocket serviceability error", zap.Error(err))
		return 0, err
	}

	options := courierOptionsFromAPI(resp.Data.AvailableCourierCompanies)
	if len(options) == 0 {
		return 0, noCourierError("no couriers available for this route")
	}

	if len(query.AllowedCourierIDs) > 0 {
		options = filterAllowedCouriers(options, query.AllowedCourierIDs)
		if len(options) == 0 {
			return 0, noCourierError("no allowed couriers available for this route")
		}
	}

	cheapest := cheapestCourier(options)

	// A courier that won selection with an unparseable rate resolves to
	// zero rather than an error; the carrier occasionally omits rates
	// on lanes it still serves.
	rate := cheapest.Rate
	if math.IsNaN(rate) {
		rate = 0
	}
	price := math.Ceil(rate)

	c.logger.Info("Selected cheapest courier",
		zap.Int("courier_id", cheapest.ID),
		zap.String("courier_name", cheapest.Name),
		zap.Float64("rate", price),
	)

	return price, nil
}

// CreateShipment creates a carrier order from internal fulfillment data
// and assigns a tracking waybill. The sequence is a bounded two-step
// remote transaction: order creation followed by waybill assignment,
// with a compensating cancellation when assignment fails.
func (c *Client) CreateShipment(ctx context.Context, fulfillment *shipper.Fulfillment, items []shipper.FulfillmentItem, order *shipper.Order) (*shipper.ShipmentResult, error) {
	ctx, end := c.span(ctx, "shiprocket.create_shipment")
	defer end()

	payload, err := buildOrderPayload(fulfillment, items, order, c.payloadOptions())
	if err != nil {
		return nil, err
	}

	c.logger.Info("Creating Shiprocket order",
		zap.String("external_order_id", payload.OrderID),
		zap.Int("item_count", len(payload.OrderItems)),
		zap.Float64("weight_kg", payload.Weight),
	)

	var created *OrderResponse
	err = c.withAuthRetry(ctx, func(ctx context.Context, token string) error {
		r, err := c.api.CreateOrder(ctx, token, payload)
		if err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		c.logger.Error("Shiprocket order creation rejected", zap.Error(err))
		return nil, rejectionError(err)
	}

	if created.ShipmentID.String() == "" {
		return nil, shipper.NewShipperError(carrierName, "ORDER_REJECTED", "no shipment id returned by carrier").
			WithCause(shipper.ErrCarrierRejected)
	}

	var assigned *AssignAWBResponse
	err = c.withAuthRetry(ctx, func(ctx context.Context, token string) error {
		r, err := c.api.AssignAWB(ctx, token, &AssignAWBRequest{
			ShipmentID: created.ShipmentID.String(),
			CourierID:  created.CourierCompanyID.String(),
		})
		if err != nil {
			return err
		}
		assigned = r
		return nil
	})

	if err != nil || assigned.AWBAssignStatus != 1 {
		// Roll back the created order; cancellation failures are logged
		// and never mask the assignment failure the caller gets.
		c.cancelBestEffort(ctx, created.OrderID.String())

		msg := "AWB assignment failed"
		if err != nil {
			msg = err.Error()
		} else if assigned.Message != "" {
			msg = assigned.Message
		}

		c.logger.Error("Shiprocket AWB assignment failed",
			zap.String("shipment_id", created.ShipmentID.String()),
			zap.String("message", msg),
		)

		awbErr := shipper.NewShipperError(carrierName, "AWB_ASSIGNMENT_FAILED", msg).
			WithCause(shipper.ErrAWBAssignmentFailed)
		return nil, awbErr
	}

	awb := assigned.Response.Data.AWBCode

	result := &shipper.ShipmentResult{
		CarrierOrderID: created.OrderID.String(),
		ShipmentID:     created.ShipmentID.String(),
		Status:         created.Status,
		StatusCode:     created.StatusCode,
		TrackingNumber: awb,
		TrackingURL:    trackingURLPrefix + awb,
		LabelURL:       created.LabelURL,
		CourierID:      assigned.Response.Data.CourierCompanyID.Int(),
		CourierName:    firstNonEmpty(assigned.Response.Data.CourierName, created.CourierName),
	}

	c.logger.Info("Shiprocket shipment created",
		zap.String("carrier_order_id", result.CarrierOrderID),
		zap.String("awb", result.TrackingNumber),
		zap.String("courier", result.CourierName),
	)

	return result, nil
}

// CancelShipment cancels a carrier order. Failures are translated and
// propagated; use cancelBestEffort for compensating rollback.
func (c *Client) CancelShipment(ctx context.Context, carrierOrderID string) error {
	ctx, end := c.span(ctx, "shiprocket.cancel_shipment")
	defer end()

	c.logger.Info("Cancelling Shiprocket order", zap.String("carrier_order_id", carrierOrderID))

	err := c.withAuthRetry(ctx, func(ctx context.Context, token string) error {
		return c.api.CancelOrder(ctx, token, []string{carrierOrderID})
	})
	if err != nil {
		c.logger.Error("Shiprocket cancellation failed", zap.Error(err))
		return err
	}
	return nil
}

// cancelBestEffort is the compensating variant of CancelShipment:
// failures are swallowed after logging so the original failure reason
// reaches the caller intact.
func (c *Client) cancelBestEffort(ctx context.Context, carrierOrderID string) {
	if carrierOrderID == "" {
		return
	}
	if err := c.CancelShipment(ctx, carrierOrderID); err != nil {
		c.logger.Warn("Rollback cancellation failed",
			zap.String("carrier_order_id", carrierOrderID),
			zap.Error(err),
		)
	}
}

// CreateReturn creates a return shipment. Returns use the pickup
// address in place of the delivery address and tolerate default package
// dimensions, since the carrier's return flow does not require measured
// variant data.
func (c *Client) CreateReturn(ctx context.Context, fulfillment *shipper.Fulfillment) (*shipper.ShipmentResult, error) {
	ctx, end := c.span(ctx, "shiprocket.create_return")
	defer end()

	payload, err := buildReturnPayload(fulfillment, c.payloadOptions())
	if err != nil {
		return nil, err
	}

	c.logger.Info("Creating Shiprocket return order",
		zap.String("external_order_id", payload.OrderID),
		zap.Int("item_count", len(payload.OrderItems)),
	)

	var created *OrderResponse
	err = c.withAuthRetry(ctx, func(ctx context.Context, token string) error {
		r, err := c.api.CreateReturnOrder(ctx, token, payload)
		if err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		c.logger.Error("Shiprocket return creation rejected", zap.Error(err))
		return nil, rejectionError(err)
	}

	if created.ShipmentID.String() == "" {
		return nil, shipper.NewShipperError(carrierName, "ORDER_REJECTED", "no shipment id returned by carrier").
			WithCause(shipper.ErrCarrierRejected)
	}

	return &shipper.ShipmentResult{
		CarrierOrderID: created.OrderID.String(),
		ShipmentID:     created.ShipmentID.String(),
		Status:         created.Status,
		StatusCode:     created.StatusCode,
		LabelURL:       created.LabelURL,
		CourierID:      created.CourierCompanyID.Int(),
		CourierName:    created.CourierName,
	}, nil
}

// GetDocuments fetches manifest, label, and invoice URLs concurrently.
// Each fetch is individually tolerant of failure: a failed or
// not-yet-generated document yields an empty URL rather than aborting
// the others.
func (c *Client) GetDocuments(ctx context.Context, ref *shipper.ShipmentRef) (*shipper.Documents, error) {
	ctx, end := c.span(ctx, "shiprocket.get_documents")
	defer end()

	// Surface disposal and authentication failure before fanning out;
	// per-document failures after this point are tolerated.
	if _, err := c.tokens.ensureValid(ctx); err != nil {
		return nil, err
	}

	docs := &shipper.Documents{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var resp *ManifestResponse
		err := c.withAuthRetry(ctx, func(ctx context.Context, token string) error {
			r, err := c.api.GenerateManifest(ctx, token, []string{ref.OrderID})
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			c.logger.Warn("Manifest generation failed", zap.Error(err))
			return nil
		}
		if resp.Status == 1 {
			docs.Manifest = resp.ManifestURL
		}
		return nil
	})

	g.Go(func() error {
		var resp *LabelResponse
		err := c.withAuthRetry(ctx, func(ctx context.Context, token string) error {
			r, err := c.api.GenerateLabel(ctx, token, []string{ref.ShipmentID})
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			c.logger.Warn("Label generation failed", zap.Error(err))
			return nil
		}
		if resp.LabelCreated == 1 {
			docs.Label = resp.LabelURL
		}
		return nil
	})

	g.Go(func() error {
		var resp *InvoiceResponse
		err := c.withAuthRetry(ctx, func(ctx context.Context, token string) error {
			r, err := c.api.GenerateInvoice(ctx, token, []string{ref.OrderID})
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			c.logger.Warn("Invoice generation failed", zap.Error(err))
			return nil
		}
		if resp.IsInvoiceCreated {
			docs.Invoice = resp.InvoiceURL
		}
		return nil
	})

	g.Wait()
	return docs, nil
}

// GetTracking retrieves tracking information for a waybill.
func (c *Client) GetTracking(ctx context.Context, awb string) (*shipper.TrackingInfo, error) {
	ctx, end := c.span(ctx, "shiprocket.get_tracking")
	defer end()

	var resp *TrackingResponse
	err := c.withAuthRetry(ctx, func(ctx context.Context, token string) error {
		r, err := c.api.GetTracking(ctx, token, awb)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		c.logger.Error("Shiprocket tracking error", zap.Error(err))
		return nil, err
	}

	info := &shipper.TrackingInfo{
		TrackingNumber: awb,
		TrackStatus:    resp.TrackingData.TrackStatus.String(),
		CurrentStatus:  resp.TrackingData.CurrentStatus,
		ETA:            resp.TrackingData.ETD,
		Events:         make([]shipper.TrackingEvent, len(resp.TrackingData.Scans)),
	}
	for i, scan := range resp.TrackingData.Scans {
		info.Events[i] = shipper.TrackingEvent{
			Date:     scan.Date,
			Activity: scan.Activity,
			Location: scan.Location,
		}
	}
	return info, nil
}

func (c *Client) payloadOptions() payloadOptions {
	method := "Prepaid"
	if c.config.COD {
		method = "COD"
	}
	return payloadOptions{
		PickupLocation: c.config.PickupLocation,
		PaymentMethod:  method,
	}
}

func (c *Client) span(ctx context.Context, name string) (context.Context, func()) {
	if c.tracer == nil {
		return ctx, func() {}
	}
	ctx, span := c.tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}

// ============================================================================
// Conversion and selection helpers
// ============================================================================

// courierOptionsFromAPI converts wire couriers into domain options.
// Unparseable rates become NaN so selection treats them the way the
// carrier's own tooling does: a NaN challenger never displaces the
// incumbent, but a NaN first option survives every comparison.
func courierOptionsFromAPI(couriers []CourierCompany) []shipper.CourierOption {
	options := make([]shipper.CourierOption, len(couriers))
	for i, courier := range couriers {
		rate, err := courier.Rate.Float64()
		if err != nil {
			rate = math.NaN()
		}
		options[i] = shipper.CourierOption{
			ID:            courier.ID,
			Name:          courier.CourierName,
			Rate:          rate,
			EstimatedDays: courier.EstimatedDeliveryDays.Int(),
		}
	}
	return options
}

// filterAllowedCouriers keeps only couriers whose id appears in the
// allow-list.
func filterAllowedCouriers(options []shipper.CourierOption, allowed []int) []shipper.CourierOption {
	allowedSet := make(map[int]struct{}, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = struct{}{}
	}

	filtered := make([]shipper.CourierOption, 0, len(options))
	for _, opt := range options {
		if _, ok := allowedSet[opt.ID]; ok {
			filtered = append(filtered, opt)
		}
	}
	return filtered
}

// cheapestCourier selects the option with the minimum rate. Ties break
// by encounter order (first minimum wins). NaN never wins as a
// challenger, but a NaN seed is never displaced either: no rate
// compares less than NaN.
func cheapestCourier(options []shipper.CourierOption) shipper.CourierOption {
	best := options[0]
	for _, opt := range options[1:] {
		if opt.Rate < best.Rate {
			best = opt
		}
	}
	return best
}

func noCourierError(msg string) error {
	return shipper.NewShipperError(carrierName, "NO_COURIER", msg).
		WithCause(shipper.ErrNoCourierAvailable)
}

// rejectionError maps an order submission failure to CarrierRejected,
// carrying the carrier's first field-level message when one exists.
// Authentication, rate-limit, and disposal failures pass through so
// their retry semantics stay intact.
func rejectionError(err error) error {
	if errors.Is(err, shipper.ErrAuthenticationFailed) ||
		errors.Is(err, shipper.ErrRateLimitExceeded) ||
		errors.Is(err, shipper.ErrClientDisposed) {
		return err
	}

	msg := firstFieldError(err)
	if msg == "" {
		msg = "order creation rejected by carrier"
	}
	return shipper.NewShipperError(carrierName, "ORDER_REJECTED", msg).
		WithCause(fmt.Errorf("%w: %v", shipper.ErrCarrierRejected, err))
}

// Ensure Client implements the Shipper interface
var _ shipper.Shipper = (*Client)(nil)
