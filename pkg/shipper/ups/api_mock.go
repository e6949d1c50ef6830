package ups

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Call is a request recorded by MockTransport.
type Call struct {
	Path    string
	Body    []byte
	Headers map[string]string
}

// MockTransport is an in-memory Transport for testing and local runs.
// Without hooks it answers the token endpoint with a one-hour token and
// the rating endpoint with three rated shipments.
type MockTransport struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnPost func(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error)

	mu    sync.Mutex
	calls []Call
}

// NewMockTransport creates a new mock transport with default behavior.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Post records the call and returns the mock response.
func (m *MockTransport) Post(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error) {
	m.record(path, body, headers)

	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return nil, &HTTPError{Message: "request failed", Err: ctx.Err()}
		}
	}

	if m.SimulateErrors {
		return nil, &HTTPError{StatusCode: http.StatusServiceUnavailable, Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnPost != nil {
		return m.OnPost(ctx, path, body, headers)
	}

	switch {
	case path == TokenPath:
		token := "mock-token-" + uuid.New().String()[:8]
		return &Response{
			Status: http.StatusOK,
			Data:   []byte(fmt.Sprintf(`{"token_type":"Bearer","access_token":%q,"expires_in":3600}`, token)),
		}, nil
	case strings.HasPrefix(path, "/api/rating/"):
		return &Response{Status: http.StatusOK, Data: []byte(mockRateResponse)}, nil
	default:
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "no mock route for " + path}
	}
}

func (m *MockTransport) record(path string, body []byte, headers map[string]string) {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Path: path, Body: append([]byte(nil), body...), Headers: h})
}

// Calls returns a copy of every recorded call, in order.
func (m *MockTransport) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the recorded calls made to path.
func (m *MockTransport) CallsTo(path string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

const mockRateResponse = `{
  "RateResponse": {
    "Response": {"ResponseStatus": {"Code": "1", "Description": "Success"}},
    "RatedShipment": [
      {"Service": {"Code": "03"}, "TotalCharges": {"CurrencyCode": "USD", "MonetaryValue": "18.35"}},
      {"Service": {"Code": "02"}, "TotalCharges": {"CurrencyCode": "USD", "MonetaryValue": "36.69"}},
      {"Service": {"Code": "01"}, "TotalCharges": {"CurrencyCode": "USD", "MonetaryValue": "64.10"}}
    ]
  }
}`

var _ Transport = (*MockTransport)(nil)
