package shiprocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
	"golang.org/x/sync/singleflight"
)

// Shiprocket tokens are valid for 10 days; refresh after 8 so the
// proactive path never races expiry. The reactive 401 path remains the
// correctness backstop either way.
const tokenRefreshHorizon = 8 * 24 * time.Hour

type credential struct {
	token     string
	expiresAt time.Time
}

// tokenManager owns the access credential's lifecycle: acquisition,
// expiry tracking, and refresh. Authentication is single-flighted so
// concurrent callers discovering an expired credential issue exactly
// one login request and share its result.
type tokenManager struct {
	api      APIClient
	email    string
	password string

	mu       sync.Mutex
	cred     credential
	disposed bool

	sf  singleflight.Group
	now func() time.Time
}

func newTokenManager(api APIClient, email, password string) *tokenManager {
	return &tokenManager{
		api:      api,
		email:    email,
		password: password,
		now:      time.Now,
	}
}

// ensureValid returns a usable bearer token, authenticating first if no
// credential is held or the held one has passed its expiry horizon.
func (m *tokenManager) ensureValid(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return "", disposedError()
	}
	if m.cred.token != "" && m.now().Before(m.cred.expiresAt) {
		token := m.cred.token
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	v, err, _ := m.sf.Do("authenticate", func() (interface{}, error) {
		// Another caller may have refreshed while this one queued.
		m.mu.Lock()
		if m.disposed {
			m.mu.Unlock()
			return nil, disposedError()
		}
		if m.cred.token != "" && m.now().Before(m.cred.expiresAt) {
			token := m.cred.token
			m.mu.Unlock()
			return token, nil
		}
		m.mu.Unlock()

		resp, err := m.api.Authenticate(ctx, &AuthRequest{Email: m.email, Password: m.password})
		if err != nil {
			return nil, authError(translateError(err))
		}
		if resp.Token == "" {
			return nil, shipper.NewShipperError(carrierName, "AUTH_FAILED", "no token received in authentication response").
				WithCause(shipper.ErrAuthenticationFailed)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.disposed {
			return nil, disposedError()
		}
		m.cred = credential{
			token:     resp.Token,
			expiresAt: m.now().Add(tokenRefreshHorizon),
		}
		return resp.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// invalidate discards the credential if it still matches the token a
// caller observed as stale. A credential refreshed in the meantime is
// left alone.
func (m *tokenManager) invalidate(stale string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred.token == stale {
		m.cred = credential{}
	}
}

// forceRefresh discards the current credential and authenticates
// immediately, independent of expiry state.
func (m *tokenManager) forceRefresh(ctx context.Context) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return disposedError()
	}
	m.cred = credential{}
	m.mu.Unlock()

	_, err := m.ensureValid(ctx)
	return err
}

// dispose clears the credential and refuses further authentication.
// Safe to call concurrently with in-flight operations.
func (m *tokenManager) dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = credential{}
	m.disposed = true
}

// authError guarantees authentication failures surface as
// AuthenticationError regardless of the underlying transport status.
func authError(err error) error {
	if errors.Is(err, shipper.ErrAuthenticationFailed) || errors.Is(err, shipper.ErrClientDisposed) {
		return err
	}
	return shipper.NewShipperError(carrierName, "AUTH_FAILED", "authentication failed").
		WithCause(fmt.Errorf("%w: %v", shipper.ErrAuthenticationFailed, err))
}

func disposedError() error {
	return shipper.NewShipperError(carrierName, "CLIENT_DISPOSED", "client has been disposed").
		WithCause(shipper.ErrClientDisposed)
}
