package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/ratebridge/internal/graphql"
	"github.com/tournevent/ratebridge/internal/telemetry"
	"github.com/tournevent/ratebridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

const (
	maxBodyBytes    = 1 << 20
	requestIDHeader = "X-Request-ID"
)

// Server is the HTTP server for the rating service.
type Server struct {
	port     int
	registry *shipper.Registry
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	resolver *graphql.Resolver
	executor *graphql.Executor
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, registry *shipper.Registry, logger *otelzap.Logger) *Server {
	metrics := telemetry.NewMetrics()
	resolver := graphql.NewResolver(registry, logger, metrics)

	return &Server{
		port:     cfg.Port,
		registry: registry,
		logger:   logger,
		metrics:  metrics,
		resolver: resolver,
		executor: graphql.NewExecutor(resolver),
	}
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("/metrics", s.metrics.Handler())

	// REST rating endpoint
	mux.HandleFunc("/rates", s.handleRates)

	// GraphQL endpoint
	mux.HandleFunc("/graphql", s.handleGraphQL)

	return s.withRequestID(mux)
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// withRequestID tags every request with an id, reusing the caller's one.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Ctx(r.Context()).Debug("Handled request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ratesResponse is the body of a successful POST /rates.
type ratesResponse struct {
	Quotes []shipper.RateQuote `json:"quotes"`
}

// errorBody is the body of a failed REST call.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind       string          `json:"kind"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	StatusCode int             `json:"statusCode,omitempty"`
	Issues     []shipper.Issue `json:"issues,omitempty"`
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{
			Kind: "request", Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed, use POST",
		}})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: errorDetail{
				Kind: "request", Code: "BODY_TOO_LARGE", Message: err.Error(),
			}})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Kind: "request", Code: "INVALID_BODY", Message: "failed to read request body: " + err.Error(),
		}})
		return
	}

	quotes, err := s.resolver.GetRates(r.Context(), r.URL.Query().Get("carrier"), json.RawMessage(body))
	if err != nil {
		ext := graphql.ErrorExtensions(err)
		detail := errorDetail{Message: err.Error()}
		detail.Kind, _ = ext["kind"].(string)
		detail.Code, _ = ext["code"].(string)
		detail.StatusCode, _ = ext["statusCode"].(int)
		detail.Issues, _ = ext["issues"].([]shipper.Issue)
		writeJSON(w, statusFor(err), errorBody{Error: detail})
		return
	}

	writeJSON(w, http.StatusOK, ratesResponse{Quotes: quotes})
}

// statusFor maps a rating failure to the HTTP status returned to clients.
func statusFor(err error) int {
	switch shipper.KindOf(err) {
	case shipper.KindValidation:
		return http.StatusBadRequest
	case shipper.KindAuth, shipper.KindCarrier:
		return http.StatusBadGateway
	}
	if errors.Is(err, shipper.ErrCarrierNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, graphql.Response{
			Errors: gqlErrors("Method not allowed, use POST"),
		})
		return
	}

	var req graphql.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, graphql.Response{
			Errors: gqlErrors("Invalid JSON: " + err.Error()),
		})
		return
	}

	writeJSON(w, http.StatusOK, s.executor.Execute(r.Context(), req))
}

func gqlErrors(message string) gqlerror.List {
	return gqlerror.List{{Message: message}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
