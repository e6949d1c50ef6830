package ups

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/tournevent/ratebridge/pkg/shipper"
)

const (
	quoteCarrier        = "UPS"
	unknownService      = "UNKNOWN"
	customerPackaging   = "02"
	requestOptionShop   = "Shop"
	weightCodePounds    = "LBS"
	weightCodeKilograms = "KGS"
)

// ============================================================================
// Conversion helpers: Shipper models -> API models
// ============================================================================

// ToWireRequest maps a validated rate request to the UPS rating body.
// The origin is sent as both shipper and ship-from.
func ToWireRequest(req *shipper.RateRequest) *RateRequestEnvelope {
	packages := make([]Package, len(req.Packages))
	for i, p := range req.Packages {
		packages[i] = packageToAPI(p)
	}

	origin := addressToParty(req.Origin)
	return &RateRequestEnvelope{
		RateRequest: RateRequest{
			Request: RequestInfo{RequestOption: requestOptionShop},
			Shipment: Shipment{
				Shipper:  origin,
				ShipTo:   addressToParty(req.Destination),
				ShipFrom: origin,
				Package:  packages,
			},
		},
	}
}

func addressToParty(addr shipper.Address) Party {
	return Party{
		Name: addr.Name,
		Address: Address{
			AddressLine:       []string{addr.Line1},
			City:              addr.City,
			StateProvinceCode: addr.State,
			PostalCode:        addr.PostalCode,
			CountryCode:       addr.CountryCode,
		},
	}
}

func packageToAPI(p shipper.Package) Package {
	weightCode := weightCodeKilograms
	if p.WeightUnit == shipper.WeightLB {
		weightCode = weightCodePounds
	}

	pkg := Package{
		PackagingType: CodeDescription{Code: customerPackaging},
		PackageWeight: PackageWeight{
			UnitOfMeasurement: CodeDescription{Code: weightCode},
			Weight:            formatDecimal(p.Weight),
		},
	}

	if d := p.Dimensions; d != nil {
		pkg.Dimensions = &Dimensions{
			UnitOfMeasurement: CodeDescription{Code: string(d.Unit)},
			Length:            formatDecimal(d.Length),
			Width:             formatDecimal(d.Width),
			Height:            formatDecimal(d.Height),
		}
	}
	return pkg
}

// formatDecimal renders 5 as "5" and 2.5 as "2.5".
func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ============================================================================
// Conversion helpers: API models -> Shipper models
// ============================================================================

// FromWireResponse decodes a UPS rating response into quotes, preserving the
// order of the rated shipments. Known keys must be spelled exactly as UPS
// sends them; keys the mapper does not read are ignored. Structural
// mismatches wrap ErrMalformedResponse; unparseable amounts wrap
// ErrInvalidAmount.
func FromWireResponse(data []byte) ([]shipper.RateQuote, error) {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := checkKeyCase("", tree, reflect.TypeOf(RateResponseEnvelope{})); err != nil {
		return nil, err
	}

	var env RateResponseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.RateResponse == nil {
		return nil, fmt.Errorf("%w: missing RateResponse", ErrMalformedResponse)
	}
	if env.RateResponse.RatedShipment == nil {
		return nil, fmt.Errorf("%w: missing RateResponse.RatedShipment", ErrMalformedResponse)
	}

	shipments := *env.RateResponse.RatedShipment
	quotes := make([]shipper.RateQuote, len(shipments))
	for i, s := range shipments {
		q, err := ratedShipmentToQuote(s)
		if err != nil {
			return nil, fmt.Errorf("RatedShipment[%d]: %w", i, err)
		}
		quotes[i] = q
	}
	return quotes, nil
}

func ratedShipmentToQuote(s RatedShipment) (shipper.RateQuote, error) {
	tc := s.TotalCharges
	if tc == nil || tc.MonetaryValue == nil || tc.CurrencyCode == nil {
		return shipper.RateQuote{}, fmt.Errorf("%w: TotalCharges requires MonetaryValue and CurrencyCode", ErrMalformedResponse)
	}

	amount, err := parseAmount(*tc.MonetaryValue)
	if err != nil {
		return shipper.RateQuote{}, err
	}

	service := unknownService
	if s.Service != nil && s.Service.Code != nil {
		service = *s.Service.Code
	}

	return shipper.RateQuote{
		Carrier:      quoteCarrier,
		ServiceLevel: service,
		Amount:       amount,
		Currency:     *tc.CurrencyCode,
	}, nil
}

// parseAmount accepts decimal notation only; ParseFloat on its own also
// takes hex floats such as "0x1p4".
func parseAmount(value string) (float64, error) {
	digits := strings.TrimLeft(value, "+-")
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return amount, nil
}

// checkKeyCase rejects object keys that encoding/json would bind to a field
// of t only through its case-insensitive fallback, such as "rateresponse"
// for RateResponse.
func checkKeyCase(path string, v any, t reflect.Type) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		for key, child := range obj {
			for i := 0; i < t.NumField(); i++ {
				f := t.Field(i)
				name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
				if name == "" || name == "-" {
					name = f.Name
				}
				if key == name {
					if err := checkKeyCase(path+"."+name, child, f.Type); err != nil {
						return err
					}
					break
				}
				if strings.EqualFold(key, name) {
					return fmt.Errorf("%w: key %q at %q must be spelled %q", ErrMalformedResponse, key, strings.TrimPrefix(path, "."), name)
				}
			}
		}
	case reflect.Slice:
		arr, ok := v.([]any)
		if !ok {
			return nil
		}
		for i, item := range arr {
			if err := checkKeyCase(path+"["+strconv.Itoa(i)+"]", item, t.Elem()); err != nil {
				return err
			}
		}
	}
	return nil
}
