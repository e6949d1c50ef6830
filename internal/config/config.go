package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// UPS
	UPSEnabled       bool          `envconfig:"UPS_ENABLED" default:"true"`
	UPSUseMock       bool          `envconfig:"UPS_USE_MOCK" default:"false"`
	UPSBaseURL       string        `envconfig:"UPS_BASE_URL"`
	UPSClientID      string        `envconfig:"UPS_CLIENT_ID"`
	UPSClientSecret  string        `envconfig:"UPS_CLIENT_SECRET"`
	UPSRatingVersion string        `envconfig:"UPS_RATING_VERSION" default:"v2409"`
	UPSTimeout       time.Duration `envconfig:"UPS_TIMEOUT" default:"5s"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"ups-ratebridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.1.0"`
}

// Load reads configuration from environment variables, after loading any
// of the given dotenv files that exist. Variables already set in the
// environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.UPSEnabled && !c.UPSUseMock {
		var missing []string
		if c.UPSBaseURL == "" {
			missing = append(missing, "UPS_BASE_URL")
		}
		if c.UPSClientID == "" {
			missing = append(missing, "UPS_CLIENT_ID")
		}
		if c.UPSClientSecret == "" {
			missing = append(missing, "UPS_CLIENT_SECRET")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
		}
	}
	if c.UPSRatingVersion == "" {
		return errors.New("UPS_RATING_VERSION must not be empty")
	}
	return nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("ups.enabled", c.UPSEnabled),
		attribute.Bool("ups.use_mock", c.UPSUseMock),
		attribute.String("ups.rating_version", c.UPSRatingVersion),
	}
}
