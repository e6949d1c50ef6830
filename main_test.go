package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/ratebridge/internal/config"
	"github.com/tournevent/ratebridge/pkg/shipper"
)

const quoteRequest = `{
	"origin": {"line1": "Tower 2, 5th Floor, IT Park", "city": "Bengaluru", "state": "KA", "postalCode": "560103", "countryCode": "IN"},
	"destination": {"line1": "shibuya cross", "city": "Tokyo", "state": "Tokyo", "postalCode": "400120", "countryCode": "JP"},
	"packages": [{"weight": 5, "weightUnit": "LB"}],
	"serviceLevel": "GROUND"
}`

func TestInitShipperRegistry(t *testing.T) {
	logger, err := initLogger(&config.Config{LogLevel: "error", ServiceName: "ratebridge-test"})
	require.NoError(t, err)

	registry := initShipperRegistry(&config.Config{UPSEnabled: true, UPSUseMock: true}, logger, nil)
	assert.Equal(t, []string{"ups"}, registry.Names())

	registry = initShipperRegistry(&config.Config{UPSEnabled: false}, logger, nil)
	assert.Zero(t, registry.Count())
}

func TestQuoteCommand(t *testing.T) {
	t.Setenv("UPS_USE_MOCK", "true")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("OTEL_ENABLED", "false")

	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(quoteRequest), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"quote", "--file", path})

	require.NoError(t, rootCmd.Execute())

	var quotes []shipper.RateQuote
	require.NoError(t, json.Unmarshal(out.Bytes(), &quotes))
	require.Len(t, quotes, 3)
	assert.Equal(t, "UPS", quotes[0].Carrier)
}
