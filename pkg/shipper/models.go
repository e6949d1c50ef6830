package shipper

// ServiceLevel is the requested speed of delivery.
type ServiceLevel string

const (
	ServiceGround  ServiceLevel = "GROUND"
	ServiceTwoDay  ServiceLevel = "TWO_DAY"
	ServiceNextDay ServiceLevel = "NEXT_DAY"
)

// ServiceLevels lists every accepted service level.
var ServiceLevels = []ServiceLevel{ServiceGround, ServiceTwoDay, ServiceNextDay}

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightLB WeightUnit = "LB"
	WeightKG WeightUnit = "KG"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionIN DimensionUnit = "IN"
	DimensionCM DimensionUnit = "CM"
)

// Address represents a postal address.
type Address struct {
	Name        string `json:"name,omitempty"`
	Line1       string `json:"line1" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"required"`
	PostalCode  string `json:"postalCode" validate:"required"`
	CountryCode string `json:"countryCode" validate:"required,len=2"` // ISO 3166-1 alpha-2
}

// PackageDimensions holds the outer dimensions of a package.
type PackageDimensions struct {
	Length float64       `json:"length" validate:"gt=0"`
	Width  float64       `json:"width" validate:"gt=0"`
	Height float64       `json:"height" validate:"gt=0"`
	Unit   DimensionUnit `json:"unit" validate:"required,oneof=IN CM"`
}

// Package represents a package to be rated.
type Package struct {
	Weight     float64            `json:"weight" validate:"gt=0"`
	WeightUnit WeightUnit         `json:"weightUnit" validate:"required,oneof=LB KG"`
	Dimensions *PackageDimensions `json:"dimensions,omitempty"`
}

// RateRequest is the carrier-agnostic request for shipping rates.
// Values of this type returned by ValidateRateRequest satisfy every
// constraint expressed in the struct tags.
type RateRequest struct {
	Origin       Address      `json:"origin"`
	Destination  Address      `json:"destination"`
	Packages     []Package    `json:"packages" validate:"required,min=1,dive"`
	ServiceLevel ServiceLevel `json:"serviceLevel" validate:"required,oneof=GROUND TWO_DAY NEXT_DAY"`
}

// RateQuote is a single priced service option.
type RateQuote struct {
	Carrier string `json:"carrier"`
	// ServiceLevel is the carrier's own service code, "UNKNOWN" when the
	// carrier did not report one.
	ServiceLevel          string  `json:"serviceLevel"`
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
	EstimatedDeliveryDays *int    `json:"estimatedDeliveryDays,omitempty"`
}
