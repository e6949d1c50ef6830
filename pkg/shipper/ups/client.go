// Package ups provides integration with the UPS rating API.
package ups

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tournevent/ratebridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	carrierName = "ups"
	tracerName  = "github.com/tournevent/ratebridge/pkg/shipper/ups"
)

// Config holds UPS configuration.
type Config struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	RatingVersion string        // e.g. "v2409"
	Timeout       time.Duration // transport timeout, 5s when zero
	UseMock       bool          // When true, uses the in-memory transport
}

// RatingPath returns the Shop rating endpoint for an API version.
func RatingPath(version string) string {
	return fmt.Sprintf("/api/rating/%s/Shop", version)
}

// Client is the UPS shipper client.
// It implements the shipper.Shipper interface: it validates input,
// obtains a token from its TokenProvider and calls the rating endpoint
// through the Transport.
type Client struct {
	config    Config
	transport Transport
	tokens    *TokenProvider
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new UPS client.
// If cfg.UseMock is true, it uses an in-memory transport.
// Otherwise, it uses the HTTP transport.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var transport Transport

	if cfg.UseMock {
		transport = NewMockTransport()
	} else {
		transport = NewHTTPTransport(HTTPTransportConfig{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
	}

	return NewWithTransport(cfg, transport, logger, tracer)
}

// NewWithTransport creates a new UPS client with a custom transport.
// The client owns a fresh TokenProvider bound to the same transport.
func NewWithTransport(cfg Config, transport Transport, logger *otelzap.Logger, tracer trace.Tracer, opts ...TokenOption) *Client {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	opts = append([]TokenOption{WithTokenLogger(logger)}, opts...)
	return &Client{
		config:    cfg,
		transport: transport,
		tokens:    NewTokenProvider(transport, cfg.ClientID, cfg.ClientSecret, opts...),
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// GetRates returns UPS quotes for an unstructured rate request.
//
// Invalid input fails with a KindValidation error before any network call.
// Token failures keep their KindAuth error. Every other failure is returned
// as a single KindCarrier error carrying the HTTP status when one is known.
func (c *Client) GetRates(ctx context.Context, input any) ([]shipper.RateQuote, error) {
	ctx, span := c.tracer.Start(ctx, "ups.GetRates")
	defer span.End()

	quotes, err := c.getRates(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", string(shipper.KindOf(err))))
		return nil, err
	}

	span.SetAttributes(attribute.Int("ups.quote_count", len(quotes)))
	return quotes, nil
}

func (c *Client) getRates(ctx context.Context, input any) ([]shipper.RateQuote, error) {
	req, err := shipper.ValidateRateRequest(input)
	if err != nil {
		c.logger.Ctx(ctx).Warn("Rejected UPS rate request", zap.Error(err))
		return nil, err
	}

	c.logger.Ctx(ctx).Info("Getting UPS rates",
		zap.String("origin_city", req.Origin.City),
		zap.String("destination_city", req.Destination.City),
		zap.Int("package_count", len(req.Packages)),
		zap.String("service_level", string(req.ServiceLevel)),
	)

	token, err := c.token(ctx)
	if err != nil {
		return nil, c.carrierFailure(ctx, "token acquisition failed", err)
	}

	body, err := json.Marshal(ToWireRequest(req))
	if err != nil {
		return nil, c.carrierFailure(ctx, "failed to encode rating request", err)
	}

	resp, err := c.transport.Post(ctx, RatingPath(c.config.RatingVersion), body, map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	})
	if err != nil {
		return nil, c.carrierFailure(ctx, "rating request failed", err)
	}

	quotes, err := FromWireResponse(resp.Data)
	if err != nil {
		return nil, c.carrierFailure(ctx, "unexpected rating response", err)
	}

	return quotes, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ups.Token")
	defer span.End()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return token, err
}

// carrierFailure wraps err once into a KindCarrier error. Errors that are
// already part of the taxonomy are returned unchanged.
func (c *Client) carrierFailure(ctx context.Context, message string, err error) error {
	if shipper.IsKnown(err) {
		c.logger.Ctx(ctx).Error("UPS API error", zap.Error(err))
		return err
	}

	wrapped := shipper.NewCarrierError(quoteCarrier, message).
		WithStatusCode(statusOf(err)).
		WithCause(err)
	c.logger.Ctx(ctx).Error("UPS API error", zap.Error(wrapped))
	return wrapped
}

var _ shipper.Shipper = (*Client)(nil)
