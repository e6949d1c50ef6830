// Package mock provides a mock shipper implementation for testing.
package mock

import (
	"context"
	"sync/atomic"

	"github.com/tournevent/ratebridge/pkg/shipper"
)

// Client is a mock shipper for testing. It validates input like a real
// carrier and answers with fixed quotes.
type Client struct {
	name  string
	calls atomic.Int32

	// Err, when set, is returned for every valid request.
	Err error
	// Quotes overrides the default quotes.
	Quotes []shipper.RateQuote
}

// New creates a new mock shipper.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// Calls returns how many validated requests reached the mock.
func (c *Client) Calls() int {
	return int(c.calls.Load())
}

// GetRates returns mock shipping quotes.
func (c *Client) GetRates(ctx context.Context, input any) ([]shipper.RateQuote, error) {
	if _, err := shipper.ValidateRateRequest(input); err != nil {
		return nil, err
	}
	c.calls.Add(1)

	if c.Err != nil {
		return nil, c.Err
	}
	if c.Quotes != nil {
		return c.Quotes, nil
	}

	twoDays := 2
	return []shipper.RateQuote{
		{Carrier: c.name, ServiceLevel: "STANDARD", Amount: 15.82, Currency: "USD"},
		{Carrier: c.name, ServiceLevel: "EXPRESS", Amount: 29.95, Currency: "USD", EstimatedDeliveryDays: &twoDays},
	}, nil
}

var _ shipper.Shipper = (*Client)(nil)
