// Package orders persists and aggregates order records derived from
// successfully created shipping labels.
package orders

import (
	"time"

	"github.com/google/uuid"

	v1 "github.com/christianberko/orobor-website/api/v1"
)

const StatusCreated = "created"

// Sentinels keep every record field populated so analytics arithmetic
// never has to deal with missing values.
const (
	unknownField     = "Unknown"
	placeholderPhone = "0000000000"
)

var serviceNames = map[string]string{
	"01": "UPS Next Day Air",
	"02": "UPS 2nd Day Air",
	"03": "UPS Ground",
	"12": "UPS 3 Day Select",
	"13": "UPS Next Day Air Saver",
	"14": "UPS Next Day Air Early",
	"59": "UPS 2nd Day Air A.M.",
	"65": "UPS Worldwide Saver",
}

// ServiceName resolves a carrier service code to a readable name.
// Unknown codes fall back to ground service.
func ServiceName(code string) string {
	if name, ok := serviceNames[code]; ok {
		return name
	}
	return "UPS Ground"
}

// NewRecord maps a shipment request and its label result into a fully
// populated order record.
func NewRecord(req *v1.ShipmentRequest, label v1.LabelResult) v1.OrderRecord {
	record := v1.OrderRecord{
		ID:             uuid.NewString(),
		TrackingNumber: label.TrackingNumber,
		ShipmentID:     label.ShipmentID,
		ShipperName:    unknownField,
		ShipperPhone:   placeholderPhone,
		ShipperAddress: unknownField,
		ShipperCity:    unknownField,
		ShipperState:   unknownField,
		ShipperZip:     unknownField,
		ServiceName:    ServiceName(""),
		Amount:         label.TotalCharges,
		Currency:       label.Currency,
		Status:         StatusCreated,
		CreatedAt:      time.Now(),
	}

	if req == nil || req.ShipmentRequest == nil {
		return record
	}
	shipment := req.ShipmentRequest.Shipment

	if shipper := shipment.Shipper; shipper != nil {
		if shipper.Name != "" {
			record.ShipperName = shipper.Name
		}
		if shipper.Phone != nil && shipper.Phone.Number != "" {
			record.ShipperPhone = shipper.Phone.Number
		}
		if addr := shipper.Address; addr != nil {
			if addr.AddressLine != "" {
				record.ShipperAddress = addr.AddressLine
			}
			if addr.City != "" {
				record.ShipperCity = addr.City
			}
			if addr.StateProvinceCode != "" {
				record.ShipperState = addr.StateProvinceCode
			}
			if addr.PostalCode != "" {
				record.ShipperZip = addr.PostalCode
			}
		}
	}
	if shipment.Service != nil {
		record.ServiceCode = shipment.Service.Code
		record.ServiceName = ServiceName(shipment.Service.Code)
	}
	return record
}
