package ups

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/tournevent/ratebridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// TokenPath is the UPS OAuth client-credentials endpoint.
	TokenPath = "/security/v1/oauth/token" //nolint:gosec // not a credential

	refreshBuffer = 60 * time.Second
)

// TokenProvider hands out UPS bearer tokens obtained through the OAuth2
// client-credentials flow. A token is reused until 60 seconds before the
// lifetime UPS reported for it. Concurrent callers that find no valid
// token share a single exchange.
type TokenProvider struct {
	transport    Transport
	clientID     string
	clientSecret string
	logger       *otelzap.Logger

	mu      sync.Mutex
	token   string
	expiry  time.Time
	nowFunc func() time.Time

	group singleflight.Group
}

// TokenOption configures the TokenProvider.
type TokenOption func(*TokenProvider)

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) TokenOption {
	return func(p *TokenProvider) {
		p.nowFunc = f
	}
}

// WithTokenLogger sets the logger used for token lifecycle events.
func WithTokenLogger(l *otelzap.Logger) TokenOption {
	return func(p *TokenProvider) {
		p.logger = l
	}
}

// NewTokenProvider creates a token provider for one client id/secret pair.
func NewTokenProvider(transport Transport, clientID, clientSecret string, opts ...TokenOption) *TokenProvider {
	p := &TokenProvider{
		transport:    transport,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       otelzap.New(zap.NewNop()),
		nowFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Token returns a valid access token, exchanging credentials when no
// cached token is usable. Failures are *shipper.Error values of KindAuth.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if token, ok := p.cached(); ok {
		return token, nil
	}

	// The exchange outlives a single caller so that other waiters still
	// get its result; the transport timeout bounds it.
	exchangeCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan("token", func() (any, error) {
		if token, ok := p.cached(); ok {
			return token, nil
		}
		return p.exchange(exchangeCtx)
	})

	select {
	case <-ctx.Done():
		return "", shipper.NewAuthError(quoteCarrier, "token request abandoned").WithCause(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (p *TokenProvider) cached() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.nowFunc().Before(p.expiry) {
		return p.token, true
	}
	return "", false
}

func (p *TokenProvider) exchange(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"client_credentials"},
	}

	creds := base64.StdEncoding.EncodeToString(
		[]byte(p.clientID + ":" + p.clientSecret),
	)
	headers := map[string]string{
		"Authorization": "Basic " + creds,
		"Content-Type":  "application/x-www-form-urlencoded",
	}

	resp, err := p.transport.Post(ctx, TokenPath, []byte(form.Encode()), headers)
	if err != nil {
		p.logger.Ctx(ctx).Error("UPS token request failed", zap.Error(err))
		return "", shipper.NewAuthError(quoteCarrier, "token request failed").
			WithStatusCode(statusOf(err)).
			WithCause(err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Data, &tr); err != nil {
		return "", shipper.NewAuthError(quoteCarrier, "invalid token response").
			WithStatusCode(resp.Status).
			WithCause(err)
	}
	if tr.AccessToken == nil || *tr.AccessToken == "" || tr.ExpiresIn == nil {
		return "", shipper.NewAuthError(quoteCarrier, "invalid token response: access_token and expires_in are required").
			WithStatusCode(resp.Status)
	}

	lifetime := time.Duration(*tr.ExpiresIn*float64(time.Second)) - refreshBuffer
	now := p.nowFunc()

	p.mu.Lock()
	p.token = *tr.AccessToken
	p.expiry = now.Add(lifetime)
	p.mu.Unlock()

	p.logger.Ctx(ctx).Info("UPS token acquired",
		zap.Float64("expires_in_seconds", *tr.ExpiresIn),
		zap.Time("refresh_at", now.Add(lifetime)),
	)

	return *tr.AccessToken, nil
}
