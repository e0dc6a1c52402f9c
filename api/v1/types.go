package v1

import (
	"encoding/json"
	"time"

	"github.com/christianberko/orobor-website/core/validator"
)

// ShipmentRequest is the inbound payload for label creation. It mirrors
// the carrier's own request envelope so the shipment body can be
// forwarded to the carrier unchanged.
type ShipmentRequest struct {
	ShipmentRequest *ShipmentRequestBody `json:"ShipmentRequest,omitempty"`
}

type ShipmentRequestBody struct {
	Shipment           Shipment        `json:"Shipment"`
	LabelSpecification json.RawMessage `json:"LabelSpecification,omitempty"`
}

type Shipment struct {
	Description        string          `json:"Description,omitempty"`
	Shipper            *Party          `json:"Shipper,omitempty"`
	ShipTo             *Party          `json:"ShipTo,omitempty"`
	ShipFrom           *Party          `json:"ShipFrom,omitempty"`
	Service            *Service        `json:"Service,omitempty"`
	PaymentInformation json.RawMessage `json:"PaymentInformation,omitempty"`
	// Package is an object in some carrier API versions and an array in
	// others, so it is carried opaquely and only checked for presence.
	Package json.RawMessage `json:"Package,omitempty"`
}

type Party struct {
	Name          string   `json:"Name,omitempty"`
	AttentionName string   `json:"AttentionName,omitempty"`
	ShipperNumber string   `json:"ShipperNumber,omitempty"`
	Phone         *Phone   `json:"Phone,omitempty"`
	Address       *Address `json:"Address,omitempty"`
}

type Phone struct {
	Number string `json:"Number,omitempty"`
}

type Address struct {
	AddressLine       string `json:"AddressLine,omitempty"`
	City              string `json:"City,omitempty"`
	StateProvinceCode string `json:"StateProvinceCode,omitempty"`
	PostalCode        string `json:"PostalCode,omitempty"`
	CountryCode       string `json:"CountryCode,omitempty"`
}

type Service struct {
	Code        string `json:"Code,omitempty"`
	Description string `json:"Description,omitempty"`
}

// ValidateShipmentRequest checks the minimum structure required before
// any carrier call is made. Deeper problems (bad address fields, bad
// service codes) surface later as carrier-side errors.
func ValidateShipmentRequest(v *validator.Validator, req *ShipmentRequest) {
	if req == nil || req.ShipmentRequest == nil {
		v.AddError("ShipmentRequest", "must be present")
		return
	}

	shipment := req.ShipmentRequest.Shipment
	v.Check(shipment.Shipper != nil, "Shipper", "must be present")
	v.Check(shipment.ShipTo != nil, "ShipTo", "must be present")
	v.Check(hasPackage(shipment.Package), "Package", "must be present")
}

func hasPackage(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// LabelResult is the caller-visible outcome of a successful label
// creation.
type LabelResult struct {
	TrackingNumber string `json:"trackingNumber"`
	LabelImage     string `json:"labelImage"`
	LabelFormat    string `json:"labelFormat"`
	TotalCharges   string `json:"totalCharges"`
	Currency       string `json:"currency"`
	ShipmentID     string `json:"shipmentId,omitempty"`
}

// OrderRecord is the persisted representation of one successfully
// created label. Every field is always populated; absent source fields
// are replaced with sentinels so downstream analytics never see nulls.
type OrderRecord struct {
	ID             string    `json:"id"`
	TrackingNumber string    `json:"tracking_number"`
	ShipmentID     string    `json:"shipment_id"`
	ShipperName    string    `json:"shipper_name"`
	ShipperPhone   string    `json:"shipper_phone"`
	ShipperAddress string    `json:"shipper_address"`
	ShipperCity    string    `json:"shipper_city"`
	ShipperState   string    `json:"shipper_state"`
	ShipperZip     string    `json:"shipper_zip"`
	ServiceCode    string    `json:"service_code"`
	ServiceName    string    `json:"service_name"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
