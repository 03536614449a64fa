package authn

import (
	"fmt"
	"github.com/mousybusiness/nowplaying/internal/errs"
	"github.com/pkg/errors"
)

var (
	// ErrMissingVerifier means a callback arrived without a prior login on this client.
	ErrMissingVerifier = errors.New("missing PKCE verifier (try login again)")

	// ErrNoRefreshToken means refresh was attempted with nothing to refresh.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// ConfigurationError is returned when a required setting is missing at the point of use.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %v", e.Field)
}

// ProviderAuthError carries the error reported by the provider on the callback,
// e.g. access_denied when the user declined consent.
type ProviderAuthError struct {
	Reason string
}

func (e *ProviderAuthError) Error() string {
	return fmt.Sprintf("provider auth error: %v", e.Reason)
}

// TokenExchangeError is a non-2xx response to the authorization_code grant.
type TokenExchangeError struct {
	errs.HttpError
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %d %s", e.Code(), e.Body())
}

// TokenRefreshError is a non-2xx response to the refresh_token grant.
type TokenRefreshError struct {
	errs.HttpError
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("refresh failed: %d %s", e.Code(), e.Body())
}
