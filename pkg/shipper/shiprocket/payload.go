package shiprocket

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
)

// Defaults used for return shipments, where full variant data is often
// unavailable and the carrier's return flow does not require measured
// dimensions.
const (
	defaultReturnWeightKg = 0.5
	defaultReturnLengthCm = 10
	defaultReturnWidthCm  = 10
	defaultReturnHeightCm = 10
)

const orderDateLayout = "02-01-2006 15:04"

// payloadOptions carries the account-level settings the payload builder
// needs from configuration.
type payloadOptions struct {
	PickupLocation string
	PaymentMethod  string // "Prepaid" or "COD"
}

// buildOrderPayload assembles and validates the carrier order payload
// from internal fulfillment data. Every required field is checked
// explicitly; a missing field fails with a named validation error
// rather than a silent default.
func buildOrderPayload(fulfillment *shipper.Fulfillment, items []shipper.FulfillmentItem, order *shipper.Order, opts payloadOptions) (*OrderRequest, error) {
	if order == nil {
		return nil, validationError("order data is required")
	}
	if len(items) == 0 {
		return nil, validationError("fulfillment has no items")
	}

	lines := make(map[string]*shipper.OrderLine, len(order.Items))
	for i := range order.Items {
		lines[order.Items[i].ID] = &order.Items[i]
	}

	var (
		subTotal     float64
		totalWeight  float64
		totalLength  float64
		totalBreadth float64
		totalHeight  float64
	)

	orderItems := make([]OrderItem, 0, len(items))

	for _, item := range items {
		line, ok := lines[item.LineItemID]
		if !ok {
			return nil, mappingError(fmt.Sprintf(
				"fulfillment item %s (%s) has no matching order line with line_item_id: %s",
				item.ID, item.Title, item.LineItemID))
		}

		if line.UnitPrice <= 0 || item.Quantity <= 0 {
			return nil, validationError(fmt.Sprintf(
				"missing unit price or quantity for fulfillment item %s (%s)",
				item.ID, item.Title))
		}

		variant := line.Variant
		if variant == nil {
			return nil, validationError(fmt.Sprintf(
				"variant data not found for order line %s (item %q)", line.ID, item.Title))
		}

		weight := variant.WeightGrams / 1000 // carrier expects kg
		length := variant.LengthCm
		breadth := variant.WidthCm
		height := variant.HeightCm

		if weight <= 0 || length <= 0 || breadth <= 0 || height <= 0 {
			return nil, validationError(fmt.Sprintf(
				"missing dimensions/weight for item %q (order line %s, variant %s): set weight, length, width, and height on the product variant",
				item.Title, line.ID, variant.ID))
		}

		qty := float64(item.Quantity)
		subTotal += line.UnitPrice * qty

		// One consolidated package: the box must fit the largest item's
		// footprint, with items stacked by height.
		totalWeight += weight * qty
		totalLength = math.Max(totalLength, length)
		totalBreadth = math.Max(totalBreadth, breadth)
		totalHeight += height * qty

		orderItems = append(orderItems, OrderItem{
			Name:         item.Title,
			SKU:          firstNonEmpty(variant.SKU, item.SKU, item.ID),
			Units:        item.Quantity,
			SellingPrice: int(math.Round(line.UnitPrice)),
			Discount:     "",
			Tax:          "",
			HSN:          parseHSN(variant.HSCode),
		})
	}

	shipping := order.ShippingAddress
	if shipping == nil && fulfillment != nil {
		shipping = fulfillment.DeliveryAddress
	}
	if shipping == nil {
		return nil, validationError("missing required field: Shipping Address")
	}

	billingName, err := requireField("Billing Name", firstNonEmpty(order.Customer.FirstName, shipping.FirstName))
	if err != nil {
		return nil, err
	}
	billingEmail, err := requireField("Billing Email", order.Customer.Email)
	if err != nil {
		return nil, err
	}
	billingAddr, err := requireField("Billing Address", shipping.Address1)
	if err != nil {
		return nil, err
	}
	billingCity, err := requireField("Billing City", shipping.City)
	if err != nil {
		return nil, err
	}
	billingState, err := requireField("Billing State", shipping.State)
	if err != nil {
		return nil, err
	}
	billingCountry, err := requireField("Billing Country", shipping.Country)
	if err != nil {
		return nil, err
	}
	billingPincode, err := parsePincode("Billing Pincode", shipping.PostalCode)
	if err != nil {
		return nil, err
	}
	billingPhone, err := normalizePhone("Billing Phone", firstNonEmpty(shipping.Phone, order.Customer.Phone))
	if err != nil {
		return nil, err
	}

	shippingName, err := requireField("Shipping Name", firstNonEmpty(shipping.FirstName, order.Customer.FirstName))
	if err != nil {
		return nil, err
	}

	return &OrderRequest{
		OrderID:        externalOrderID(order.ID),
		OrderDate:      order.CreatedAt.Format(orderDateLayout),
		PickupLocation: firstNonEmpty(opts.PickupLocation, "Primary"),

		BillingCustomerName: billingName,
		BillingLastName:     firstNonEmpty(order.Customer.LastName, shipping.LastName),
		BillingAddress:      billingAddr,
		BillingAddress2:     shipping.Address2,
		BillingCity:         billingCity,
		BillingPincode:      billingPincode,
		BillingState:        billingState,
		BillingCountry:      billingCountry,
		BillingEmail:        billingEmail,
		BillingPhone:        billingPhone,

		ShippingIsBilling:    true,
		ShippingCustomerName: shippingName,
		ShippingLastName:     shipping.LastName,
		ShippingAddress:      billingAddr,
		ShippingAddress2:     shipping.Address2,
		ShippingCity:         billingCity,
		ShippingPincode:      billingPincode,
		ShippingCountry:      billingCountry,
		ShippingState:        billingState,
		ShippingEmail:        billingEmail,
		ShippingPhone:        billingPhone,

		OrderItems: orderItems,

		PaymentMethod: firstNonEmpty(opts.PaymentMethod, "Prepaid"),
		TotalDiscount: order.DiscountTotal,
		SubTotal:      subTotal,

		Length:  totalLength,
		Breadth: totalBreadth,
		Height:  totalHeight,
		Weight:  totalWeight,
	}, nil
}

// buildReturnPayload assembles the return order payload. The pickup
// party (the customer the parcel is collected from) is validated
// strictly; package dimensions fall back to defaults since returns
// often lack variant data.
func buildReturnPayload(fulfillment *shipper.Fulfillment, opts payloadOptions) (*ReturnOrderRequest, error) {
	if fulfillment == nil {
		return nil, validationError("fulfillment data is required")
	}
	if len(fulfillment.ReturnItems) == 0 {
		return nil, validationError("return has no items")
	}

	pickup := fulfillment.PickupAddress
	if pickup == nil {
		return nil, validationError("missing required field: Pickup Address")
	}

	pickupName, err := requireField("Pickup Name", pickup.FirstName)
	if err != nil {
		return nil, err
	}
	pickupAddr, err := requireField("Pickup Address", pickup.Address1)
	if err != nil {
		return nil, err
	}
	pickupCity, err := requireField("Pickup City", pickup.City)
	if err != nil {
		return nil, err
	}
	pickupState, err := requireField("Pickup State", pickup.State)
	if err != nil {
		return nil, err
	}
	pickupCountry, err := requireField("Pickup Country", pickup.Country)
	if err != nil {
		return nil, err
	}
	pickupPincode, err := parsePincode("Pickup Pincode", pickup.PostalCode)
	if err != nil {
		return nil, err
	}
	pickupPhone, err := normalizePhone("Pickup Phone", pickup.Phone)
	if err != nil {
		return nil, err
	}

	req := &ReturnOrderRequest{
		OrderID:   externalOrderID(firstNonEmpty(fulfillment.OrderID, fulfillment.ID)),
		OrderDate: time.Now().Format(orderDateLayout),

		PickupCustomerName: pickupName,
		PickupLastName:     pickup.LastName,
		PickupAddress:      pickupAddr,
		PickupAddress2:     pickup.Address2,
		PickupCity:         pickupCity,
		PickupPincode:      pickupPincode,
		PickupState:        pickupState,
		PickupCountry:      pickupCountry,
		PickupEmail:        pickup.Email,
		PickupPhone:        pickupPhone,

		PaymentMethod: firstNonEmpty(opts.PaymentMethod, "Prepaid"),

		Length:  defaultReturnLengthCm,
		Breadth: defaultReturnWidthCm,
		Height:  defaultReturnHeightCm,
		Weight:  defaultReturnWeightKg,
	}

	// Destination defaults to the registered pickup location; an explicit
	// delivery address on the fulfillment overrides it.
	if dest := fulfillment.DeliveryAddress; dest != nil {
		destPincode, err := parsePincode("Shipping Pincode", dest.PostalCode)
		if err != nil {
			return nil, err
		}
		destPhone, err := normalizePhone("Shipping Phone", dest.Phone)
		if err != nil {
			return nil, err
		}
		req.ShippingCustomerName = dest.FirstName
		req.ShippingLastName = dest.LastName
		req.ShippingAddress = dest.Address1
		req.ShippingAddress2 = dest.Address2
		req.ShippingCity = dest.City
		req.ShippingPincode = destPincode
		req.ShippingState = dest.State
		req.ShippingCountry = dest.Country
		req.ShippingEmail = dest.Email
		req.ShippingPhone = destPhone
	}

	var subTotal float64
	for _, item := range fulfillment.ReturnItems {
		units := item.Units
		if units <= 0 {
			units = 1
		}
		subTotal += item.SellingPrice * float64(units)
		req.OrderItems = append(req.OrderItems, OrderItem{
			Name:         item.Name,
			SKU:          firstNonEmpty(item.SKU, item.Name),
			Units:        units,
			SellingPrice: int(math.Round(item.SellingPrice)),
		})
	}
	req.SubTotal = subTotal

	return req, nil
}

// externalOrderID combines the internal order id with a random suffix
// so repeated submissions for the same order (e.g. after a prior
// partial failure) never collide on the carrier side.
func externalOrderID(orderID string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
	return orderID + "-" + suffix
}

func requireField(name, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", validationError("missing required field: " + name)
	}
	return value, nil
}

// parsePincode coerces a postal code to the numeric form the carrier
// expects.
func parsePincode(name, value string) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, validationError("missing required field: " + name)
	}
	pin, err := strconv.Atoi(v)
	if err != nil {
		return 0, validationError(fmt.Sprintf("invalid %s: %q is not numeric", name, value))
	}
	return pin, nil
}

// normalizePhone strips all non-digit characters before numeric
// coercion.
func normalizePhone(name, value string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)

	if digits == "" {
		return 0, validationError("missing required field: " + name)
	}
	phone, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, validationError(fmt.Sprintf("invalid %s: %q", name, value))
	}
	return phone, nil
}

func parseHSN(code string) int {
	if code == "" {
		return 0
	}
	hsn, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return hsn
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func validationError(msg string) error {
	return shipper.NewShipperError(carrierName, "VALIDATION_FAILED", msg).
		WithCause(shipper.ErrValidation)
}

func mappingError(msg string) error {
	return shipper.NewShipperError(carrierName, "MAPPING_FAILED", msg).
		WithCause(shipper.ErrMapping)
}
