package ups

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout          = 5 * time.Second
	defaultMaxResponseBytes = 10 << 20
)

// HTTPTransport is the production implementation of Transport.
type HTTPTransport struct {
	baseURL          string
	maxResponseBytes int64
	httpClient       *http.Client
}

// HTTPTransportConfig holds configuration for the HTTP transport.
type HTTPTransportConfig struct {
	BaseURL string
	Timeout time.Duration
	// MaxResponseBytes caps how much of a response body is read.
	// Zero means 10 MiB.
	MaxResponseBytes int64
}

// NewHTTPTransport creates a new HTTP transport for production use.
func NewHTTPTransport(cfg HTTPTransportConfig) *HTTPTransport {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxResponseBytes := cfg.MaxResponseBytes
	if maxResponseBytes <= 0 {
		maxResponseBytes = defaultMaxResponseBytes
	}

	return &HTTPTransport{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		maxResponseBytes: maxResponseBytes,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Post sends body to baseURL+path. Non-2xx responses and network errors
// are returned as *HTTPError.
func (t *HTTPTransport) Post(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &HTTPError{Message: "failed to create request", Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ups-ratebridge/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &HTTPError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	// One byte past the cap tells an oversized body from one that fits exactly.
	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseBytes+1))
	if err != nil {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}
	if int64(len(data)) > t.maxResponseBytes {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("response body exceeds %d bytes", t.maxResponseBytes),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, data)
	}

	return &Response{Data: data, Status: resp.StatusCode}, nil
}

// parseError extracts error information from a failed UPS response.
func parseError(status int, body []byte) *HTTPError {
	httpErr := &HTTPError{StatusCode: status, Body: body}

	var upsErr errorResponse
	if err := json.Unmarshal(body, &upsErr); err == nil && len(upsErr.Response.Errors) > 0 {
		httpErr.Code = upsErr.Response.Errors[0].Code
		httpErr.Message = upsErr.Response.Errors[0].Message
		return httpErr
	}

	// OAuth endpoints answer with the RFC 6749 error shape.
	var oauthErr struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
		httpErr.Code = oauthErr.Error
		httpErr.Message = oauthErr.Description
		return httpErr
	}

	httpErr.Message = http.StatusText(status)
	if len(body) > 0 {
		httpErr.Message = fmt.Sprintf("%s: %s", httpErr.Message, truncate(string(body), 256))
	}
	return httpErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Ensure HTTPTransport implements Transport interface
var _ Transport = (*HTTPTransport)(nil)
