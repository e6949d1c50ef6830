package ups_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/ratebridge/pkg/shipper"
	"github.com/tournevent/ratebridge/pkg/shipper/ups"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// tokenJSON returns a UPS OAuth token response body.
func tokenJSON(token string, expiresIn int) []byte {
	return []byte(fmt.Sprintf(`{"token_type":"Bearer","access_token":%q,"expires_in":%d}`, token, expiresIn))
}

// tokenServer returns a mock transport answering the token endpoint with
// numbered tokens, and the counter of exchanges.
func tokenServer(expiresIn int) (*ups.MockTransport, *atomic.Int32) {
	var calls atomic.Int32
	transport := ups.NewMockTransport()
	transport.OnPost = func(_ context.Context, path string, _ []byte, _ map[string]string) (*ups.Response, error) {
		if path != ups.TokenPath {
			return nil, &ups.HTTPError{StatusCode: http.StatusNotFound, Message: "unexpected path " + path}
		}
		n := calls.Add(1)
		return &ups.Response{Status: http.StatusOK, Data: tokenJSON(fmt.Sprintf("token-%d", n), expiresIn)}, nil
	}
	return transport, &calls
}

func TestTokenProvider_ExchangeRequest(t *testing.T) {
	transport, _ := tokenServer(3600)
	provider := ups.NewTokenProvider(transport, "test-id", "test-secret")

	token, err := provider.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	calls := transport.CallsTo(ups.TokenPath)
	require.Len(t, calls, 1)
	assert.Equal(t, "grant_type=client_credentials", string(calls[0].Body))
	assert.Equal(t, "application/x-www-form-urlencoded", calls[0].Headers["Content-Type"])

	wantCreds := base64.StdEncoding.EncodeToString([]byte("test-id:test-secret"))
	assert.Equal(t, "Basic "+wantCreds, calls[0].Headers["Authorization"])
}

func TestTokenProvider_TokenCaching(t *testing.T) {
	transport, calls := tokenServer(3600)
	clock := newFakeClock()
	provider := ups.NewTokenProvider(transport, "id", "secret", ups.WithNowFunc(clock.Now))

	for i := 0; i < 5; i++ {
		token, err := provider.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
		clock.Advance(10 * time.Minute)
	}

	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenProvider_RefreshMargin(t *testing.T) {
	transport, calls := tokenServer(3600)
	clock := newFakeClock()
	provider := ups.NewTokenProvider(transport, "id", "secret", ups.WithNowFunc(clock.Now))

	_, err := provider.Token(context.Background())
	require.NoError(t, err)

	// Still inside the lifetime minus the 60s margin.
	clock.Advance(3539 * time.Second)
	token, err := provider.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, int32(1), calls.Load())

	// Exactly at the computed expiry the token is no longer used.
	clock.Advance(time.Second)
	token, err = provider.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenProvider_ShortLifetimeForcesExchange(t *testing.T) {
	transport, calls := tokenServer(60)
	provider := ups.NewTokenProvider(transport, "id", "secret")

	first, err := provider.Token(context.Background())
	require.NoError(t, err)
	second, err := provider.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-1", first)
	assert.Equal(t, "token-2", second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenProvider_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `not json`},
		{"missing access_token", `{"expires_in":3600}`},
		{"missing expires_in", `{"access_token":"abc"}`},
		{"empty access_token", `{"access_token":"","expires_in":3600}`},
		{"numeric access_token", `{"access_token":123,"expires_in":3600}`},
		{"string expires_in", `{"access_token":"abc","expires_in":"3600"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			transport := ups.NewMockTransport()
			transport.OnPost = func(context.Context, string, []byte, map[string]string) (*ups.Response, error) {
				calls.Add(1)
				return &ups.Response{Status: http.StatusOK, Data: []byte(tt.body)}, nil
			}
			provider := ups.NewTokenProvider(transport, "id", "secret")

			_, err := provider.Token(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, shipper.ErrAuth), "got %v", err)

			// Nothing was cached, so the next call exchanges again.
			_, err = provider.Token(context.Background())
			require.Error(t, err)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestTokenProvider_TransportFailure(t *testing.T) {
	transport := ups.NewMockTransport()
	transport.OnPost = func(context.Context, string, []byte, map[string]string) (*ups.Response, error) {
		return nil, &ups.HTTPError{StatusCode: http.StatusUnauthorized, Code: "250002", Message: "Invalid Authentication Information."}
	}
	provider := ups.NewTokenProvider(transport, "id", "wrong-secret")

	_, err := provider.Token(context.Background())

	var serr *shipper.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, shipper.KindAuth, serr.Kind)
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)

	var httpErr *ups.HTTPError
	require.True(t, errors.As(err, &httpErr), "cause should be kept")
	assert.Equal(t, "250002", httpErr.Code)
	assert.Len(t, transport.CallsTo(ups.TokenPath), 1, "failures are not retried")
}

func TestTokenProvider_ConcurrentCallersShareExchange(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	transport := ups.NewMockTransport()
	transport.OnPost = func(context.Context, string, []byte, map[string]string) (*ups.Response, error) {
		calls.Add(1)
		<-release
		return &ups.Response{Status: http.StatusOK, Data: tokenJSON("shared-token", 3600)}, nil
	}
	provider := ups.NewTokenProvider(transport, "id", "secret")

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = provider.Token(context.Background())
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared-token", tokens[i])
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenProvider_CallerCancellation(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	transport := ups.NewMockTransport()
	transport.OnPost = func(context.Context, string, []byte, map[string]string) (*ups.Response, error) {
		calls.Add(1)
		<-release
		return &ups.Response{Status: http.StatusOK, Data: tokenJSON("late-token", 3600)}, nil
	}
	provider := ups.NewTokenProvider(transport, "id", "secret")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := provider.Token(ctx)
		done <- err
	}()

	// Wait until the exchange is in flight.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrAuth))
	assert.True(t, errors.Is(err, context.Canceled))

	// The detached exchange still completes and fills the cache.
	close(release)
	require.Eventually(t, func() bool {
		token, err := provider.Token(context.Background())
		return err == nil && token == "late-token"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
