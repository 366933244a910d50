package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
	"go.uber.org/zap"
)

const defaultCarrier = "shiprocket"

// ============================================================================
// Request/response DTOs
// ============================================================================

type addressDTO struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
	Address1   string `json:"address_1"`
	Address2   string `json:"address_2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
}

type customerDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type variantDTO struct {
	ID          string  `json:"id"`
	SKU         string  `json:"sku,omitempty"`
	HSCode      string  `json:"hs_code,omitempty"`
	WeightGrams float64 `json:"weight_grams"`
	LengthCm    float64 `json:"length_cm"`
	WidthCm     float64 `json:"width_cm"`
	HeightCm    float64 `json:"height_cm"`
}

type orderLineDTO struct {
	ID        string      `json:"id"`
	UnitPrice float64     `json:"unit_price"`
	Variant   *variantDTO `json:"variant,omitempty"`
}

type orderDTO struct {
	ID              string         `json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	Items           []orderLineDTO `json:"items"`
	Customer        customerDTO    `json:"customer"`
	ShippingAddress *addressDTO    `json:"shipping_address,omitempty"`
	DiscountTotal   float64        `json:"discount_total,omitempty"`
}

type fulfillmentItemDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SKU        string `json:"sku,omitempty"`
	LineItemID string `json:"line_item_id"`
	Quantity   int    `json:"quantity"`
}

type returnItemDTO struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku,omitempty"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

type fulfillmentDTO struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	ShipmentID      string          `json:"shipment_id,omitempty"`
	DeliveryAddress *addressDTO     `json:"delivery_address,omitempty"`
	PickupAddress   *addressDTO     `json:"pickup_address,omitempty"`
	ReturnItems     []returnItemDTO `json:"return_items,omitempty"`
}

type rateRequest struct {
	Carrier           string  `json:"carrier,omitempty"`
	PickupPostcode    string  `json:"pickup_postcode"`
	DeliveryPostcode  string  `json:"delivery_postcode"`
	WeightKg          float64 `json:"weight_kg"`
	COD               bool    `json:"cod,omitempty"`
	DeclaredValue     float64 `json:"declared_value,omitempty"`
	AllowedCourierIDs []int   `json:"allowed_courier_ids,omitempty"`
}

type rateResponse struct {
	Carrier string  `json:"carrier"`
	Price   float64 `json:"price"`
}

type createShipmentRequest struct {
	Carrier     string               `json:"carrier,omitempty"`
	Fulfillment fulfillmentDTO       `json:"fulfillment"`
	Items       []fulfillmentItemDTO `json:"items"`
	Order       orderDTO             `json:"order"`
}

type createReturnRequest struct {
	Carrier     string         `json:"carrier,omitempty"`
	Fulfillment fulfillmentDTO `json:"fulfillment"`
}

type shipmentResponse struct {
	CarrierOrderID string `json:"carrier_order_id"`
	ShipmentID     string `json:"shipment_id"`
	Status         string `json:"status"`
	StatusCode     int    `json:"status_code"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	TrackingURL    string `json:"tracking_url,omitempty"`
	LabelURL       string `json:"label_url,omitempty"`
	CourierID      int    `json:"courier_id,omitempty"`
	CourierName    string `json:"courier_name,omitempty"`
}

type documentsResponse struct {
	Label    string `json:"label"`
	Manifest string `json:"manifest"`
	Invoice  string `json:"invoice"`
}

type trackingEventDTO struct {
	Date     string `json:"date"`
	Activity string `json:"activity"`
	Location string `json:"location"`
}

type trackingResponse struct {
	TrackingNumber string             `json:"tracking_number"`
	TrackStatus    string             `json:"track_status"`
	CurrentStatus  string             `json:"current_status"`
	ETA            string             `json:"eta,omitempty"`
	Events         []trackingEventDTO `json:"events"`
}

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	carrier, ok := s.carrier(w, req.Carrier)
	if !ok {
		return
	}

	start := time.Now()
	price, err := carrier.GetRate(r.Context(), &shipper.RateQuery{
		PickupPostcode:    req.PickupPostcode,
		DeliveryPostcode:  req.DeliveryPostcode,
		WeightKg:          req.WeightKg,
		COD:               req.COD,
		DeclaredValue:     req.DeclaredValue,
		AllowedCourierIDs: req.AllowedCourierIDs,
	})
	s.record("get_rate", carrier.Name(), start, err)
	if err != nil {
		s.writeError(w, carrier.Name(), err)
		return
	}

	s.writeJSON(w, http.StatusOK, rateResponse{Carrier: carrier.Name(), Price: price})
}

func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	carrier, ok := s.carrier(w, req.Carrier)
	if !ok {
		return
	}

	fulfillment := fulfillmentFromDTO(&req.Fulfillment)
	items := fulfillmentItemsFromDTO(req.Items)
	order := orderFromDTO(&req.Order)

	start := time.Now()
	result, err := carrier.CreateShipment(r.Context(), fulfillment, items, order)
	s.record("create_shipment", carrier.Name(), start, err)
	if err != nil {
		s.writeError(w, carrier.Name(), err)
		return
	}

	s.writeJSON(w, http.StatusCreated, shipmentResponseFromResult(result))
}

func (s *Server) handleCancelShipment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	carrier, ok := s.carrier(w, r.URL.Query().Get("carrier"))
	if !ok {
		return
	}

	start := time.Now()
	err := carrier.CancelShipment(r.Context(), orderID)
	s.record("cancel_shipment", carrier.Name(), start, err)
	if err != nil {
		s.writeError(w, carrier.Name(), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTracking(w http.ResponseWriter, r *http.Request) {
	awb := chi.URLParam(r, "awb")
	carrier, ok := s.carrier(w, r.URL.Query().Get("carrier"))
	if !ok {
		return
	}

	start := time.Now()
	info, err := carrier.GetTracking(r.Context(), awb)
	s.record("get_tracking", carrier.Name(), start, err)
	if err != nil {
		s.writeError(w, carrier.Name(), err)
		return
	}

	resp := trackingResponse{
		TrackingNumber: info.TrackingNumber,
		TrackStatus:    info.TrackStatus,
		CurrentStatus:  info.CurrentStatus,
		ETA:            info.ETA,
		Events:         make([]trackingEventDTO, len(info.Events)),
	}
	for i, ev := range info.Events {
		resp.Events[i] = trackingEventDTO{Date: ev.Date, Activity: ev.Activity, Location: ev.Location}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateReturn(w http.ResponseWriter, r *http.Request) {
	var req createReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	carrier, ok := s.carrier(w, req.Carrier)
	if !ok {
		return
	}

	start := time.Now()
	result, err := carrier.CreateReturn(r.Context(), fulfillmentFromDTO(&req.Fulfillment))
	s.record("create_return", carrier.Name(), start, err)
	if err != nil {
		s.writeError(w, carrier.Name(), err)
		return
	}

	s.writeJSON(w, http.StatusCreated, shipmentResponseFromResult(result))
}

func (s *Server) handleGetDocuments(w http.ResponseWriter, r *http.Request) {
	ref := &shipper.ShipmentRef{
		OrderID:    r.URL.Query().Get("order_id"),
		ShipmentID: r.URL.Query().Get("shipment_id"),
	}
	if ref.OrderID == "" || ref.ShipmentID == "" {
		s.writeBadRequest(w, "order_id and shipment_id query parameters are required")
		return
	}

	carrier, ok := s.carrier(w, r.URL.Query().Get("carrier"))
	if !ok {
		return
	}

	start := time.Now()
	docs, err := carrier.GetDocuments(r.Context(), ref)
	s.record("get_documents", carrier.Name(), start, err)
	if err != nil {
		s.writeError(w, carrier.Name(), err)
		return
	}

	s.writeJSON(w, http.StatusOK, documentsResponse{
		Label:    docs.Label,
		Manifest: docs.Manifest,
		Invoice:  docs.Invoice,
	})
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	carrier, ok := s.carrier(w, r.URL.Query().Get("carrier"))
	if !ok {
		return
	}

	start := time.Now()
	err := carrier.RefreshToken(r.Context())
	s.record("refresh_token", carrier.Name(), start, err)
	if err != nil {
		s.writeError(w, carrier.Name(), err)
		return
	}

	s.metrics.TokenRefreshes.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Server) carrier(w http.ResponseWriter, name string) (shipper.Shipper, bool) {
	if name == "" {
		name = defaultCarrier
	}
	carrier, err := s.registry.Get(name)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Code:    "CARRIER_NOT_FOUND",
			Message: err.Error(),
		}})
		return nil, false
	}
	return carrier, true
}

func (s *Server) record(operation, carrier string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		s.metrics.RecordError(carrier, errorType(err))
	}
	s.metrics.RecordRequest(operation, carrier, status, time.Since(start).Seconds())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    "BAD_REQUEST",
		Message: msg,
	}})
}

func (s *Server) writeError(w http.ResponseWriter, carrier string, err error) {
	body := errorBody{Code: "INTERNAL", Message: err.Error()}

	var shipperErr *shipper.ShipperError
	if errors.As(err, &shipperErr) {
		body.Code = shipperErr.Code
		body.Message = shipperErr.Message
		body.Fields = shipperErr.FieldErrors
	}

	s.logger.Warn("Operation failed",
		zap.String("carrier", carrier),
		zap.String("code", body.Code),
		zap.Error(err),
	)

	s.writeJSON(w, statusForError(err), errorResponse{Error: body})
}

// statusForError maps the carrier error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, shipper.ErrValidation), errors.Is(err, shipper.ErrMapping):
		return http.StatusBadRequest
	case errors.Is(err, shipper.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, shipper.ErrNotFound),
		errors.Is(err, shipper.ErrNoCourierAvailable),
		errors.Is(err, shipper.ErrCarrierNotFound):
		return http.StatusNotFound
	case errors.Is(err, shipper.ErrAWBAssignmentFailed):
		return http.StatusConflict
	case errors.Is(err, shipper.ErrCarrierRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shipper.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, shipper.ErrClientDisposed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func errorType(err error) string {
	var shipperErr *shipper.ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Code
	}
	return "INTERNAL"
}

// ============================================================================
// DTO conversion
// ============================================================================

func addressFromDTO(dto *addressDTO) *shipper.Address {
	if dto == nil {
		return nil
	}
	return &shipper.Address{
		FirstName:  dto.FirstName,
		LastName:   dto.LastName,
		Address1:   dto.Address1,
		Address2:   dto.Address2,
		City:       dto.City,
		State:      dto.State,
		PostalCode: dto.PostalCode,
		Country:    dto.Country,
		Phone:      dto.Phone,
		Email:      dto.Email,
	}
}

func fulfillmentFromDTO(dto *fulfillmentDTO) *shipper.Fulfillment {
	f := &shipper.Fulfillment{
		ID:              dto.ID,
		OrderID:         dto.OrderID,
		ShipmentID:      dto.ShipmentID,
		DeliveryAddress: addressFromDTO(dto.DeliveryAddress),
		PickupAddress:   addressFromDTO(dto.PickupAddress),
	}
	for _, item := range dto.ReturnItems {
		f.ReturnItems = append(f.ReturnItems, shipper.ReturnItem{
			Name:         item.Name,
			SKU:          item.SKU,
			Units:        item.Units,
			SellingPrice: item.SellingPrice,
		})
	}
	return f
}

func fulfillmentItemsFromDTO(dtos []fulfillmentItemDTO) []shipper.FulfillmentItem {
	items := make([]shipper.FulfillmentItem, len(dtos))
	for i, dto := range dtos {
		items[i] = shipper.FulfillmentItem{
			ID:         dto.ID,
			Title:      dto.Title,
			SKU:        dto.SKU,
			LineItemID: dto.LineItemID,
			Quantity:   dto.Quantity,
		}
	}
	return items
}

func orderFromDTO(dto *orderDTO) *shipper.Order {
	order := &shipper.Order{
		ID:              dto.ID,
		CreatedAt:       dto.CreatedAt,
		Customer:        shipper.Customer(dto.Customer),
		ShippingAddress: addressFromDTO(dto.ShippingAddress),
		DiscountTotal:   dto.DiscountTotal,
	}
	for _, line := range dto.Items {
		ol := shipper.OrderLine{ID: line.ID, UnitPrice: line.UnitPrice}
		if line.Variant != nil {
			ol.Variant = &shipper.Variant{
				ID:          line.Variant.ID,
				SKU:         line.Variant.SKU,
				HSCode:      line.Variant.HSCode,
				WeightGrams: line.Variant.WeightGrams,
				LengthCm:    line.Variant.LengthCm,
				WidthCm:     line.Variant.WidthCm,
				HeightCm:    line.Variant.HeightCm,
			}
		}
		order.Items = append(order.Items, ol)
	}
	return order
}

func shipmentResponseFromResult(result *shipper.ShipmentResult) shipmentResponse {
	return shipmentResponse{
		CarrierOrderID: result.CarrierOrderID,
		ShipmentID:     result.ShipmentID,
		Status:         result.Status,
		StatusCode:     result.StatusCode,
		TrackingNumber: result.TrackingNumber,
		TrackingURL:    result.TrackingURL,
		LabelURL:       result.LabelURL,
		CourierID:      result.CourierID,
		CourierName:    result.CourierName,
	}
}
