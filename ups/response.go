package ups

import (
	"encoding/json"

	v1 "github.com/christianberko/orobor-website/api/v1"
)

const (
	defaultLabelFormat = "GIF"
	defaultCharge      = "0.00"
	defaultCurrency    = "USD"
)

// The carrier has shipped several response envelopes over the years and
// they all remain in the wild. Classification is strictly ordered:
// fault, then the versioned ShipmentResponse envelope, then the legacy
// top-level Response shape, and only then unrecognized.
type shape int

const (
	shapeUnrecognized shape = iota
	shapeFault
	shapeVersioned
	shapeLegacy
)

type carrierEnvelope struct {
	Fault            *carrierFault     `json:"fault"`
	ShipmentResponse *shipmentResponse `json:"ShipmentResponse"`
	Response         *responseSection  `json:"Response"`
	ShipmentResults  *shipmentResults  `json:"ShipmentResults"`
}

type carrierFault struct {
	FaultCode   string       `json:"faultcode"`
	FaultString string       `json:"faultstring"`
	Detail      *faultDetail `json:"detail"`
}

type faultDetail struct {
	Errors *faultErrors `json:"Errors"`
}

type faultErrors struct {
	ErrorDetail *faultErrorDetail `json:"ErrorDetail"`
}

type faultErrorDetail struct {
	PrimaryErrorCode *primaryErrorCode `json:"PrimaryErrorCode"`
}

type primaryErrorCode struct {
	Code        string `json:"Code"`
	Description string `json:"Description"`
}

type shipmentResponse struct {
	Response        *responseSection `json:"Response"`
	ShipmentResults *shipmentResults `json:"ShipmentResults"`
}

type responseSection struct {
	ResponseStatusCode        string          `json:"ResponseStatusCode"`
	ResponseStatusDescription string          `json:"ResponseStatusDescription"`
	ResponseStatus            *responseStatus `json:"ResponseStatus"`
	Error                     *responseError  `json:"Error"`
}

type responseStatus struct {
	Code        string `json:"Code"`
	Description string `json:"Description"`
}

type responseError struct {
	ErrorCode        string `json:"ErrorCode"`
	ErrorDescription string `json:"ErrorDescription"`
}

type shipmentResults struct {
	ShipmentIdentificationNumber string             `json:"ShipmentIdentificationNumber"`
	ShipmentCharges              *shipmentCharges   `json:"ShipmentCharges"`
	PackageResults               packageResultsList `json:"PackageResults"`
}

type shipmentCharges struct {
	TotalCharges *monetaryAmount `json:"TotalCharges"`
}

type monetaryAmount struct {
	CurrencyCode  string `json:"CurrencyCode"`
	MonetaryValue string `json:"MonetaryValue"`
}

// packageResultsList accepts both a single object and an array, since
// the carrier returns either depending on package count and API
// version.
type packageResultsList []packageResult

func (l *packageResultsList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var list []packageResult
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var single packageResult
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = packageResultsList{single}
	return nil
}

type packageResult struct {
	TrackingNumber string         `json:"TrackingNumber"`
	ShippingLabel  *shippingLabel `json:"ShippingLabel"`
}

type shippingLabel struct {
	ImageFormat  *imageFormat `json:"ImageFormat"`
	GraphicImage string       `json:"GraphicImage"`
	HTMLImage    string       `json:"HTMLImage"`
}

type imageFormat struct {
	Code string `json:"Code"`
}

func classify(env *carrierEnvelope) shape {
	switch {
	case env.Fault != nil:
		return shapeFault
	case env.ShipmentResponse != nil && env.ShipmentResponse.Response != nil:
		return shapeVersioned
	case env.Response != nil && env.Response.ResponseStatus != nil:
		return shapeLegacy
	default:
		return shapeUnrecognized
	}
}

// successful checks both status code fields the carrier has used across
// API versions. Both are authoritative; first match wins.
func (r *responseSection) successful() bool {
	if r == nil {
		return false
	}
	if r.ResponseStatusCode == "1" {
		return true
	}
	return r.ResponseStatus != nil && r.ResponseStatus.Code == "1"
}

func (r *responseSection) errorDescription() string {
	if r == nil {
		return "carrier did not return a response status"
	}
	if r.Error != nil && r.Error.ErrorDescription != "" {
		return r.Error.ErrorDescription
	}
	if r.ResponseStatus != nil && r.ResponseStatus.Description != "" {
		return r.ResponseStatus.Description
	}
	if r.ResponseStatusDescription != "" {
		return r.ResponseStatusDescription
	}
	return "carrier reported failure without a description"
}

func (f *carrierFault) message() string {
	if f.FaultString != "" {
		return f.FaultString
	}
	if f.Detail != nil && f.Detail.Errors != nil &&
		f.Detail.Errors.ErrorDetail != nil &&
		f.Detail.Errors.ErrorDetail.PrimaryErrorCode != nil {
		return f.Detail.Errors.ErrorDetail.PrimaryErrorCode.Description
	}
	return "carrier returned a fault without a message"
}

// decodeResponse turns a raw 2xx carrier body into a LabelResult or one
// of the taxonomy errors.
func decodeResponse(raw []byte) (v1.LabelResult, error) {
	var env carrierEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return v1.LabelResult{}, &UnrecognizedShapeError{Raw: raw}
	}

	switch classify(&env) {
	case shapeFault:
		return v1.LabelResult{}, &CarrierError{
			Status:  200,
			Message: env.Fault.message(),
			Body:    string(raw),
		}
	case shapeVersioned:
		if !env.ShipmentResponse.Response.successful() {
			return v1.LabelResult{}, &CarrierError{
				Status:  200,
				Message: env.ShipmentResponse.Response.errorDescription(),
				Body:    string(raw),
			}
		}
		return buildResult(env.ShipmentResponse.ShipmentResults)
	case shapeLegacy:
		if !env.Response.successful() {
			return v1.LabelResult{}, &CarrierError{
				Status:  200,
				Message: env.Response.errorDescription(),
				Body:    string(raw),
			}
		}
		return buildResult(env.ShipmentResults)
	default:
		return v1.LabelResult{}, &UnrecognizedShapeError{Raw: raw}
	}
}

func buildResult(results *shipmentResults) (v1.LabelResult, error) {
	if results == nil || len(results.PackageResults) == 0 {
		return v1.LabelResult{}, &IncompleteSuccessError{Missing: "ShipmentResults.PackageResults"}
	}

	pkg := results.PackageResults[0]
	if pkg.TrackingNumber == "" {
		return v1.LabelResult{}, &IncompleteSuccessError{Missing: "PackageResults[0].TrackingNumber"}
	}
	if pkg.ShippingLabel == nil || pkg.ShippingLabel.GraphicImage == "" {
		return v1.LabelResult{}, &IncompleteSuccessError{Missing: "PackageResults[0].ShippingLabel.GraphicImage"}
	}

	result := v1.LabelResult{
		TrackingNumber: pkg.TrackingNumber,
		LabelImage:     pkg.ShippingLabel.GraphicImage,
		LabelFormat:    defaultLabelFormat,
		TotalCharges:   defaultCharge,
		Currency:       defaultCurrency,
		ShipmentID:     results.ShipmentIdentificationNumber,
	}
	if pkg.ShippingLabel.ImageFormat != nil && pkg.ShippingLabel.ImageFormat.Code != "" {
		result.LabelFormat = pkg.ShippingLabel.ImageFormat.Code
	}
	if results.ShipmentCharges != nil && results.ShipmentCharges.TotalCharges != nil {
		if mv := results.ShipmentCharges.TotalCharges.MonetaryValue; mv != "" {
			result.TotalCharges = mv
		}
		if cc := results.ShipmentCharges.TotalCharges.CurrencyCode; cc != "" {
			result.Currency = cc
		}
	}
	return result, nil
}
