package ups_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/ratebridge/pkg/shipper"
	"github.com/tournevent/ratebridge/pkg/shipper/ups"
)

func testRateRequest() *shipper.RateRequest {
	return &shipper.RateRequest{
		Origin: shipper.Address{
			Line1:       "Tower 2, 5th Floor, IT Park",
			City:        "Bengaluru",
			State:       "KA",
			PostalCode:  "560103",
			CountryCode: "IN",
		},
		Destination: shipper.Address{
			Name:        "Receiver",
			Line1:       "shibuya cross",
			City:        "Tokyo",
			State:       "Tokyo",
			PostalCode:  "400120",
			CountryCode: "JP",
		},
		Packages: []shipper.Package{
			{Weight: 5, WeightUnit: shipper.WeightLB},
			{
				Weight:     2.5,
				WeightUnit: shipper.WeightKG,
				Dimensions: &shipper.PackageDimensions{Length: 10, Width: 20, Height: 30.5, Unit: shipper.DimensionCM},
			},
		},
		ServiceLevel: shipper.ServiceGround,
	}
}

func TestToWireRequest(t *testing.T) {
	env := ups.ToWireRequest(testRateRequest())
	shipment := env.RateRequest.Shipment

	assert.Equal(t, "Shop", env.RateRequest.Request.RequestOption)

	assert.Equal(t, ups.Address{
		AddressLine:       []string{"Tower 2, 5th Floor, IT Park"},
		City:              "Bengaluru",
		StateProvinceCode: "KA",
		PostalCode:        "560103",
		CountryCode:       "IN",
	}, shipment.Shipper.Address)
	assert.Equal(t, shipment.Shipper, shipment.ShipFrom, "origin is both shipper and ship-from")
	assert.Equal(t, "Tokyo", shipment.ShipTo.Address.City)
	assert.Equal(t, "Receiver", shipment.ShipTo.Name)
	assert.Empty(t, shipment.Shipper.Name)

	require.Len(t, shipment.Package, 2)
	assert.Equal(t, "02", shipment.Package[0].PackagingType.Code)
	assert.Equal(t, "LBS", shipment.Package[0].PackageWeight.UnitOfMeasurement.Code)
	assert.Equal(t, "5", shipment.Package[0].PackageWeight.Weight)
	assert.Nil(t, shipment.Package[0].Dimensions)

	assert.Equal(t, "KGS", shipment.Package[1].PackageWeight.UnitOfMeasurement.Code)
	assert.Equal(t, "2.5", shipment.Package[1].PackageWeight.Weight)
	require.NotNil(t, shipment.Package[1].Dimensions)
	assert.Equal(t, "CM", shipment.Package[1].Dimensions.UnitOfMeasurement.Code)
	assert.Equal(t, "30.5", shipment.Package[1].Dimensions.Height)
}

func TestToWireRequest_JSONShape(t *testing.T) {
	req := testRateRequest()
	req.Packages = req.Packages[:1]

	data, err := json.Marshal(ups.ToWireRequest(req))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"RateRequest": {
			"Request": {"RequestOption": "Shop"},
			"Shipment": {
				"Shipper": {"Address": {"AddressLine": ["Tower 2, 5th Floor, IT Park"], "City": "Bengaluru", "StateProvinceCode": "KA", "PostalCode": "560103", "CountryCode": "IN"}},
				"ShipTo": {"Name": "Receiver", "Address": {"AddressLine": ["shibuya cross"], "City": "Tokyo", "StateProvinceCode": "Tokyo", "PostalCode": "400120", "CountryCode": "JP"}},
				"ShipFrom": {"Address": {"AddressLine": ["Tower 2, 5th Floor, IT Park"], "City": "Bengaluru", "StateProvinceCode": "KA", "PostalCode": "560103", "CountryCode": "IN"}},
				"Package": [{"PackagingType": {"Code": "02"}, "PackageWeight": {"UnitOfMeasurement": {"Code": "LBS"}, "Weight": "5"}}]
			}
		}
	}`, string(data))
}

func TestFromWireResponse(t *testing.T) {
	body := `{"RateResponse": {"RatedShipment": [
		{"Service": {"Code": "03"}, "TotalCharges": {"MonetaryValue": "42.50", "CurrencyCode": "USD"}},
		{"TotalCharges": {"MonetaryValue": "7", "CurrencyCode": "EUR"}},
		{"Service": {}, "TotalCharges": {"MonetaryValue": "0.99", "CurrencyCode": "JPY"}}
	]}}`

	quotes, err := ups.FromWireResponse([]byte(body))

	require.NoError(t, err)
	assert.Equal(t, []shipper.RateQuote{
		{Carrier: "UPS", ServiceLevel: "03", Amount: 42.5, Currency: "USD"},
		{Carrier: "UPS", ServiceLevel: "UNKNOWN", Amount: 7, Currency: "EUR"},
		{Carrier: "UPS", ServiceLevel: "UNKNOWN", Amount: 0.99, Currency: "JPY"},
	}, quotes)
}

func TestFromWireResponse_IgnoresExtraKeys(t *testing.T) {
	body := `{
		"Response": {"ResponseStatus": {"Code": "1", "Description": "Success"}},
		"RateResponse": {
			"Response": {"Alert": [{"Code": "110971"}]},
			"RatedShipment": [{
				"Service": {"Code": "03", "Description": ""},
				"RatedPackage": [{"Weight": "5.0"}],
				"TotalCharges": {"MonetaryValue": "15.82", "CurrencyCode": "USD"}
			}]
		}
	}`

	quotes, err := ups.FromWireResponse([]byte(body))

	require.NoError(t, err)
	assert.Equal(t, []shipper.RateQuote{{Carrier: "UPS", ServiceLevel: "03", Amount: 15.82, Currency: "USD"}}, quotes)
}

func TestFromWireResponse_EmptyShipments(t *testing.T) {
	quotes, err := ups.FromWireResponse([]byte(`{"RateResponse": {"RatedShipment": []}}`))

	require.NoError(t, err)
	assert.Empty(t, quotes)
	assert.NotNil(t, quotes)
}

func TestFromWireResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing envelope", `{}`},
		{"null envelope", `{"RateResponse": null}`},
		{"missing rated shipments", `{"RateResponse": {}}`},
		{"rated shipment is a string", `{"RateResponse": {"RatedShipment": "invalid"}}`},
		{"rated shipment is an object", `{"RateResponse": {"RatedShipment": {"TotalCharges": {"MonetaryValue": "1", "CurrencyCode": "USD"}}}}`},
		{"missing total charges", `{"RateResponse": {"RatedShipment": [{"Service": {"Code": "03"}}]}}`},
		{"missing currency", `{"RateResponse": {"RatedShipment": [{"TotalCharges": {"MonetaryValue": "1"}}]}}`},
		{"numeric monetary value", `{"RateResponse": {"RatedShipment": [{"TotalCharges": {"MonetaryValue": 1, "CurrencyCode": "USD"}}]}}`},
		{"lowercase envelope key", `{"rateresponse": {"RatedShipment": [{"TotalCharges": {"MonetaryValue": "1", "CurrencyCode": "USD"}}]}}`},
		{"camel case rated shipment key", `{"RateResponse": {"ratedShipment": [{"TotalCharges": {"MonetaryValue": "1", "CurrencyCode": "USD"}}]}}`},
		{"upper case charge keys", `{"RateResponse": {"RatedShipment": [{"TOTALCHARGES": {"MONETARYVALUE": "1", "CurrencyCode": "USD"}}]}}`},
		{"lowercase monetary value in second shipment", `{"RateResponse": {"RatedShipment": [
			{"TotalCharges": {"MonetaryValue": "1", "CurrencyCode": "USD"}},
			{"TotalCharges": {"monetaryValue": "2", "CurrencyCode": "USD"}}
		]}}`},
		{"numeric service code", `{"RateResponse": {"RatedShipment": [{"Service": {"Code": 3}, "TotalCharges": {"MonetaryValue": "1", "CurrencyCode": "USD"}}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotes, err := ups.FromWireResponse([]byte(tt.body))

			assert.Nil(t, quotes)
			assert.True(t, errors.Is(err, ups.ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestFromWireResponse_InvalidAmount(t *testing.T) {
	for _, value := range []string{"", "abc", "NaN", "Inf", "-Infinity", "1e999", "12,50", "0x1p4", "-0x10", "+0X1A"} {
		t.Run(value, func(t *testing.T) {
			body := `{"RateResponse": {"RatedShipment": [{"TotalCharges": {"MonetaryValue": "` + value + `", "CurrencyCode": "USD"}}]}}`

			quotes, err := ups.FromWireResponse([]byte(body))

			assert.Nil(t, quotes)
			assert.True(t, errors.Is(err, ups.ErrInvalidAmount), "got %v", err)
		})
	}
}

func TestMapping_RoundTrip(t *testing.T) {
	// Requests built by ToWireRequest and answered with a known charge come
	// back as the exact parsed amount and the same currency.
	wire := ups.ToWireRequest(testRateRequest())
	require.Len(t, wire.RateRequest.Shipment.Package, 2)

	body := `{"RateResponse": {"RatedShipment": [{"Service": {"Code": "11"}, "TotalCharges": {"MonetaryValue": "123.45", "CurrencyCode": "CAD"}}]}}`
	quotes, err := ups.FromWireResponse([]byte(body))

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, 123.45, quotes[0].Amount)
	assert.Equal(t, "CAD", quotes[0].Currency)
}
