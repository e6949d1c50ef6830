package ups

import (
	"context"
	"errors"
	"fmt"
)

// Transport performs POST requests against the UPS API base URL.
// Implementations must return an *HTTPError for non-2xx responses and
// network failures.
type Transport interface {
	Post(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error)
}

// Response is a successful transport response.
type Response struct {
	Data   []byte
	Status int
}

// HTTPError is a failed transport call. StatusCode is 0 when the request
// never produced a response.
type HTTPError struct {
	StatusCode int
	Code       string // UPS error code, when the body carried one
	Message    string
	Body       []byte
	Err        error
}

func (e *HTTPError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return "ups transport: " + e.Err.Error()
	case e.Code != "":
		return fmt.Sprintf("ups transport: HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
	default:
		return fmt.Sprintf("ups transport: HTTP %d: %s", e.StatusCode, e.Message)
	}
}

// Unwrap returns the underlying network error, if any.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// statusOf returns the HTTP status carried by err, or 0.
func statusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Errors returned by FromWireResponse.
var (
	// ErrMalformedResponse means the rating response did not have the
	// expected structure.
	ErrMalformedResponse = errors.New("malformed UPS rate response")

	// ErrInvalidAmount means a monetary value was not a finite number.
	ErrInvalidAmount = errors.New("invalid UPS monetary value")
)

// ============================================================================
// OAuth types
// POST /security/v1/oauth/token
// ============================================================================

// tokenResponse is decoded with pointer fields so that absent values can be
// told apart from zero values.
type tokenResponse struct {
	AccessToken *string  `json:"access_token"`
	ExpiresIn   *float64 `json:"expires_in"`
}

// ============================================================================
// Rating request types
// POST /api/rating/{version}/Shop
// ============================================================================

// RateRequestEnvelope is the top-level rating request body.
type RateRequestEnvelope struct {
	RateRequest RateRequest `json:"RateRequest"`
}

// RateRequest holds the request options and the shipment to rate.
type RateRequest struct {
	Request  RequestInfo `json:"Request"`
	Shipment Shipment    `json:"Shipment"`
}

// RequestInfo selects the rating mode; "Shop" rates every service.
type RequestInfo struct {
	RequestOption string `json:"RequestOption"`
}

// Shipment describes the parties and packages of a rating request.
type Shipment struct {
	Shipper  Party     `json:"Shipper"`
	ShipTo   Party     `json:"ShipTo"`
	ShipFrom Party     `json:"ShipFrom"`
	Package  []Package `json:"Package"`
}

// Party is a shipper, ship-to or ship-from entry.
type Party struct {
	Name    string  `json:"Name,omitempty"`
	Address Address `json:"Address"`
}

// Address is the UPS address shape.
type Address struct {
	AddressLine       []string `json:"AddressLine"`
	City              string   `json:"City"`
	StateProvinceCode string   `json:"StateProvinceCode"`
	PostalCode        string   `json:"PostalCode"`
	CountryCode       string   `json:"CountryCode"`
}

// Package is the UPS package shape.
type Package struct {
	PackagingType CodeDescription `json:"PackagingType"`
	Dimensions    *Dimensions     `json:"Dimensions,omitempty"`
	PackageWeight PackageWeight   `json:"PackageWeight"`
}

// CodeDescription is the UPS code/description pair.
type CodeDescription struct {
	Code        string `json:"Code"`
	Description string `json:"Description,omitempty"`
}

// Dimensions holds package dimensions as decimal strings.
type Dimensions struct {
	UnitOfMeasurement CodeDescription `json:"UnitOfMeasurement"`
	Length            string          `json:"Length"`
	Width             string          `json:"Width"`
	Height            string          `json:"Height"`
}

// PackageWeight holds the package weight as a decimal string.
type PackageWeight struct {
	UnitOfMeasurement CodeDescription `json:"UnitOfMeasurement"`
	Weight            string          `json:"Weight"`
}

// ============================================================================
// Rating response types
// Pointer fields mark required members; a nil after decoding means the
// member was absent or null.
// ============================================================================

// RateResponseEnvelope is the top-level rating response body.
type RateResponseEnvelope struct {
	RateResponse *RateResponse `json:"RateResponse"`
}

// RateResponse holds the rated shipments.
type RateResponse struct {
	RatedShipment *[]RatedShipment `json:"RatedShipment"`
}

// RatedShipment is one priced service option.
type RatedShipment struct {
	Service      *ServiceCode  `json:"Service"`
	TotalCharges *TotalCharges `json:"TotalCharges"`
}

// ServiceCode identifies the UPS service of a rated shipment.
type ServiceCode struct {
	Code *string `json:"Code"`
}

// TotalCharges is the total price of a rated shipment.
type TotalCharges struct {
	MonetaryValue *string `json:"MonetaryValue"`
	CurrencyCode  *string `json:"CurrencyCode"`
}

// errorResponse is the UPS error body.
type errorResponse struct {
	Response struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"response"`
}
