package graphql

import (
	"context"
	"errors"
	"time"

	"github.com/tournevent/ratebridge/internal/telemetry"
	"github.com/tournevent/ratebridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultCarrier is used when a rate request names no carrier.
const DefaultCarrier = "ups"

// Resolver is the root resolver for the GraphQL schema.
// It holds dependencies needed by all resolvers.
type Resolver struct {
	Registry *shipper.Registry
	Logger   *otelzap.Logger
	Metrics  *telemetry.Metrics
}

// NewResolver creates a new resolver with the given dependencies.
func NewResolver(registry *shipper.Registry, logger *otelzap.Logger, metrics *telemetry.Metrics) *Resolver {
	return &Resolver{
		Registry: registry,
		Logger:   logger,
		Metrics:  metrics,
	}
}

// Health reports service liveness.
func (r *Resolver) Health(_ context.Context) string {
	return "ok"
}

// Carriers returns the registered carrier names.
func (r *Resolver) Carriers(_ context.Context) []string {
	return r.Registry.Names()
}

// GetRates quotes request with the named carrier. The request is handed to
// the carrier untouched; validation belongs to the carrier.
func (r *Resolver) GetRates(ctx context.Context, carrier string, request any) ([]shipper.RateQuote, error) {
	if carrier == "" {
		carrier = DefaultCarrier
	}
	start := time.Now()

	s, err := r.Registry.Get(carrier)
	if err != nil {
		r.Metrics.RecordRequest("getRates", "unknown", "not_found", time.Since(start).Seconds())
		r.Logger.Ctx(ctx).Warn("Unknown carrier requested", zap.String("carrier", carrier))
		return nil, err
	}

	quotes, err := s.GetRates(ctx, request)
	duration := time.Since(start).Seconds()
	if err != nil {
		kind := string(shipper.KindOf(err))
		if kind == "" {
			kind = "unknown"
		}
		r.Metrics.RecordRequest("getRates", carrier, "error", duration)
		r.Metrics.RecordError(carrier, kind)
		r.Logger.Ctx(ctx).Warn("Rate request failed",
			zap.String("carrier", carrier),
			zap.String("error_kind", kind),
			zap.Error(err),
		)
		return nil, err
	}

	r.Metrics.RecordRequest("getRates", carrier, "success", duration)
	r.Logger.Ctx(ctx).Info("Rates returned",
		zap.String("carrier", carrier),
		zap.Int("quote_count", len(quotes)),
		zap.Float64("duration_seconds", duration),
	)
	return quotes, nil
}

// ErrorExtensions describes err for API clients: its kind, code, HTTP
// status and validation issues when it belongs to the shipper taxonomy.
func ErrorExtensions(err error) map[string]any {
	var serr *shipper.Error
	switch {
	case errors.As(err, &serr):
		ext := map[string]any{
			"kind": string(serr.Kind),
			"code": serr.Code,
		}
		if serr.StatusCode != 0 {
			ext["statusCode"] = serr.StatusCode
		}
		if len(serr.Issues) > 0 {
			ext["issues"] = serr.Issues
		}
		return ext
	case errors.Is(err, shipper.ErrCarrierNotFound):
		return map[string]any{"kind": "not_found", "code": "CARRIER_NOT_FOUND"}
	default:
		return map[string]any{"kind": "internal", "code": "INTERNAL"}
	}
}
