// Package shipper provides an abstraction layer for shipping carriers.
package shipper

import (
	"context"
)

// Shipper defines the interface that a rating carrier must implement.
type Shipper interface {
	// Name returns the carrier identifier (e.g., "ups").
	Name() string

	// GetRates validates an unstructured rate request and returns the
	// carrier's quotes for it. Failures are reported as *Error values.
	GetRates(ctx context.Context, input any) ([]RateQuote, error)
}
