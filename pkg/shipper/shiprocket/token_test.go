package shiprocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_AuthenticatesOnce(t *testing.T) {
	mockAPI := NewMockAPIClient()
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	ctx := context.Background()
	first, err := tm.ensureValid(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := tm.ensureValid(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), mockAPI.AuthenticateCalls.Load())
}

func TestTokenManager_SingleFlight(t *testing.T) {
	mockAPI := NewMockAPIClient()
	mockAPI.SimulateLatency = 20 * time.Millisecond
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	ctx := context.Background()
	var wg sync.WaitGroup
	tokens := make([]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := tm.ensureValid(ctx)
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), mockAPI.AuthenticateCalls.Load(),
		"concurrent callers should share one authentication request")
	for _, token := range tokens {
		assert.Equal(t, tokens[0], token)
	}
}

func TestTokenManager_RefreshesAfterHorizon(t *testing.T) {
	mockAPI := NewMockAPIClient()
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	current := time.Now()
	tm.now = func() time.Time { return current }

	ctx := context.Background()
	first, err := tm.ensureValid(ctx)
	require.NoError(t, err)

	// Within the horizon the credential is reused.
	current = current.Add(7 * 24 * time.Hour)
	second, err := tm.ensureValid(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), mockAPI.AuthenticateCalls.Load())

	// Past the horizon a new credential is fetched.
	current = current.Add(2 * 24 * time.Hour)
	third, err := tm.ensureValid(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, int64(2), mockAPI.AuthenticateCalls.Load())
}

func TestTokenManager_EmptyTokenResponse(t *testing.T) {
	mockAPI := NewMockAPIClient()
	mockAPI.OnAuthenticate = func(ctx context.Context, req *AuthRequest) (*AuthResponse, error) {
		return &AuthResponse{}, nil
	}
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	_, err := tm.ensureValid(context.Background())
	assert.True(t, errors.Is(err, shipper.ErrAuthenticationFailed))
}

func TestTokenManager_AuthFailureWrapped(t *testing.T) {
	mockAPI := NewMockAPIClient()
	mockAPI.SimulateErrors = true
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	_, err := tm.ensureValid(context.Background())
	assert.True(t, errors.Is(err, shipper.ErrAuthenticationFailed),
		"any authentication failure should surface as an authentication error")
}

func TestTokenManager_Invalidate(t *testing.T) {
	mockAPI := NewMockAPIClient()
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	ctx := context.Background()
	first, err := tm.ensureValid(ctx)
	require.NoError(t, err)

	tm.invalidate(first)

	second, err := tm.ensureValid(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, int64(2), mockAPI.AuthenticateCalls.Load())
}

func TestTokenManager_InvalidateStaleOnly(t *testing.T) {
	mockAPI := NewMockAPIClient()
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	ctx := context.Background()
	first, err := tm.ensureValid(ctx)
	require.NoError(t, err)

	// Invalidating with a token that no longer matches is a no-op.
	tm.invalidate("some-older-token")

	second, err := tm.ensureValid(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), mockAPI.AuthenticateCalls.Load())
}

func TestTokenManager_ForceRefresh(t *testing.T) {
	mockAPI := NewMockAPIClient()
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	ctx := context.Background()
	first, err := tm.ensureValid(ctx)
	require.NoError(t, err)

	require.NoError(t, tm.forceRefresh(ctx))

	second, err := tm.ensureValid(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, int64(2), mockAPI.AuthenticateCalls.Load())
}

func TestTokenManager_Dispose(t *testing.T) {
	mockAPI := NewMockAPIClient()
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	ctx := context.Background()
	_, err := tm.ensureValid(ctx)
	require.NoError(t, err)

	tm.dispose()

	_, err = tm.ensureValid(ctx)
	assert.True(t, errors.Is(err, shipper.ErrClientDisposed))

	err = tm.forceRefresh(ctx)
	assert.True(t, errors.Is(err, shipper.ErrClientDisposed))

	// No authentication attempts after disposal.
	assert.Equal(t, int64(1), mockAPI.AuthenticateCalls.Load())
}

func TestTokenManager_DisposeDuringInFlightAuth(t *testing.T) {
	mockAPI := NewMockAPIClient()
	mockAPI.SimulateLatency = 10 * time.Millisecond
	tm := newTokenManager(mockAPI, "a@b.c", "secret")

	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = tm.ensureValid(ctx)
		}(i)
	}

	time.Sleep(2 * time.Millisecond)
	tm.dispose()
	wg.Wait()

	// Each in-flight caller either got a token before disposal landed
	// or a disposal error; nothing else is acceptable.
	for _, err := range results {
		if err != nil {
			assert.True(t, errors.Is(err, shipper.ErrClientDisposed), "unexpected error: %v", err)
		}
	}

	_, err := tm.ensureValid(ctx)
	assert.True(t, errors.Is(err, shipper.ErrClientDisposed))
}
