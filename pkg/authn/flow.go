package authn

import (
	"context"
	"encoding/json"
	"github.com/mousybusiness/go-web/web"
	"github.com/mousybusiness/nowplaying/internal/errs"
	"github.com/mousybusiness/nowplaying/pkg/creds"
	"github.com/mousybusiness/nowplaying/pkg/pkce"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultAuthorizeURL   = "https://accounts.spotify.com/authorize"
	DefaultTokenURL       = "https://accounts.spotify.com/api/token"
	DefaultDevRedirectURL = "http://localhost:5173/callback"
	DefaultCallbackPath   = "/callback"

	defaultTimeout = time.Second * 60

	// access tokens are treated as expired this long before the provider says so
	expiryMargin int64 = 30_000

	devHost = "localhost"
)

// State is the position of the client in the login lifecycle.
type State string

const (
	StateLoggedOut        State = "logged_out"
	StateAwaitingCallback State = "awaiting_callback"
	StateLoggedIn         State = "logged_in"
	StateError            State = "error"
)

type (
	Config struct {
		// ClientID of the application registered with the provider.
		// Checked when login is attempted, not at construction.
		ClientID string

		// RedirectURL used when the current location is not localhost.
		// Must match the provider dashboard exactly.
		RedirectURL string
		// DevRedirectURL used when the current location is localhost
		// default http://localhost:5173/callback
		DevRedirectURL string

		Scopes []string

		AuthorizeURL string // default https://accounts.spotify.com/authorize
		TokenURL     string // default https://accounts.spotify.com/api/token

		// CallbackPath is matched as a prefix of the current location path
		// default /callback
		CallbackPath string

		// Timeout for each token endpoint request
		// default 60s
		Timeout time.Duration
	}

	// Navigator is the page the client lives on.
	Navigator interface {
		// Location is the URL the client is currently showing.
		Location() *url.URL
		// RedirectTo leaves the current page for target.
		RedirectTo(target string) error
		// ReplaceLocation rewrites the current location without a new history entry.
		ReplaceLocation(target string) error
	}

	// Flow drives the authorization code + PKCE lifecycle.
	Flow struct {
		config Config
		store  *creds.Store
		nav    Navigator

		mu      sync.Mutex
		lastErr error
	}

	tokenResponse struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		ExpiresIn    int64  `json:"expires_in"`
	}
)

func New(config Config, store *creds.Store, nav Navigator) (*Flow, error) {
	if store == nil {
		return nil, errors.New("require Store")
	}

	if nav == nil {
		return nil, errors.New("require Navigator")
	}

	if config.AuthorizeURL == "" {
		config.AuthorizeURL = DefaultAuthorizeURL
	}

	if config.TokenURL == "" {
		config.TokenURL = DefaultTokenURL
	}

	if config.DevRedirectURL == "" {
		config.DevRedirectURL = DefaultDevRedirectURL
	}

	if config.CallbackPath == "" {
		config.CallbackPath = DefaultCallbackPath
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	return &Flow{
		config: config,
		store:  store,
		nav:    nav,
	}, nil
}

// RedirectURL picks the loopback callback on localhost and the configured
// production URL anywhere else. Login and exchange must agree on it.
func (f *Flow) RedirectURL() string {
	if loc := f.nav.Location(); loc != nil && loc.Hostname() == devHost {
		return f.config.DevRedirectURL
	}
	return f.config.RedirectURL
}

// Login stores a fresh verifier and sends the user to the provider's consent page.
func (f *Flow) Login(ctx context.Context) error {
	return f.track(f.login(ctx))
}

func (f *Flow) login(ctx context.Context) error {
	if f.config.ClientID == "" {
		return &ConfigurationError{Field: "client_id"}
	}

	redirectURL := f.RedirectURL()
	if redirectURL == "" {
		return &ConfigurationError{Field: "redirect_uri"}
	}

	pair, err := pkce.New(pkce.DefaultVerifierLength)
	if err != nil {
		return err
	}

	if err := f.store.SetVerifier(ctx, pair.Verifier); err != nil {
		return err
	}

	params := url.Values{}
	params.Add("response_type", "code")
	params.Add("client_id", f.config.ClientID)
	params.Add("redirect_uri", redirectURL)
	params.Add("code_challenge_method", pkce.MethodS256)
	params.Add("code_challenge", pair.Challenge)
	params.Add("scope", strings.Join(f.config.Scopes, " "))
	uri := f.config.AuthorizeURL + "?" + params.Encode()

	log.Debugf("redirecting to authorize endpoint, redirect_uri: %v", redirectURL)

	return errors.Wrap(f.nav.RedirectTo(uri), "failed to redirect to provider")
}

// HandleCallbackIfPresent completes the login when the current location is
// the provider's redirect back to us. It reports whether a code was exchanged.
func (f *Flow) HandleCallbackIfPresent(ctx context.Context) (bool, error) {
	ok, err := f.handleCallback(ctx)
	if err != nil || ok {
		return ok, f.track(err)
	}
	return false, nil
}

func (f *Flow) handleCallback(ctx context.Context) (bool, error) {
	loc := f.nav.Location()
	if loc == nil || !strings.HasPrefix(loc.Path, f.config.CallbackPath) {
		return false, nil
	}

	q := loc.Query()
	if reason := q.Get("error"); reason != "" {
		return false, &ProviderAuthError{Reason: reason}
	}

	code := q.Get("code")
	if code == "" {
		return false, nil
	}

	verifier, ok, err := f.store.Verifier(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrMissingVerifier
	}

	token, err := f.exchangeCode(ctx, code, verifier)
	if err != nil {
		return false, err
	}

	if err := f.storeToken(ctx, token); err != nil {
		return false, err
	}

	if err := f.store.ClearVerifier(ctx); err != nil {
		log.WithError(err).Warn("failed to clear verifier after exchange")
	}

	// drop the code from the visible location so a reload cannot replay it
	if err := f.nav.ReplaceLocation("/"); err != nil {
		return false, errors.Wrap(err, "failed to rewrite location")
	}

	log.Infof("login successful!")

	return true, nil
}

// exchangeCode trades the authorization code retrieved from the first leg for tokens.
func (f *Flow) exchangeCode(ctx context.Context, code, verifier string) (tokenResponse, error) {
	if f.config.ClientID == "" {
		return tokenResponse{}, &ConfigurationError{Field: "client_id"}
	}

	params := url.Values{}
	params.Add("client_id", f.config.ClientID)
	params.Add("grant_type", "authorization_code")
	params.Add("code", code)
	params.Add("redirect_uri", f.RedirectURL())
	params.Add("code_verifier", verifier)

	status, body, err := f.postForm(ctx, params)
	if err != nil {
		return tokenResponse{}, errors.Wrap(err, "token exchange request failed")
	}

	if !success(status) {
		return tokenResponse{}, &TokenExchangeError{errs.NewHttpError(status, body, "error response from token exchange")}
	}

	return decodeToken(body)
}

// IsAccessTokenExpiringSoon reports whether the stored access token is
// within 30 seconds of expiry. A missing expiry counts as expired.
func (f *Flow) IsAccessTokenExpiringSoon(ctx context.Context) (bool, error) {
	expiresAt, err := f.store.ExpiresAt(ctx)
	if err != nil {
		return false, err
	}
	return f.store.Now().UnixMilli() > expiresAt-expiryMargin, nil
}

// Refresh mints a new access token from the stored refresh token and returns it.
func (f *Flow) Refresh(ctx context.Context) (string, error) {
	t, err := f.refresh(ctx)
	return t, f.track(err)
}

func (f *Flow) refresh(ctx context.Context) (string, error) {
	rt, ok, err := f.store.Get(ctx, creds.FieldRefresh)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoRefreshToken
	}

	params := url.Values{}
	params.Add("client_id", f.config.ClientID)
	params.Add("grant_type", "refresh_token")
	params.Add("refresh_token", rt)

	status, body, err := f.postForm(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "refresh request failed")
	}

	if !success(status) {
		return "", &TokenRefreshError{errs.NewHttpError(status, body, "error response from token refresh")}
	}

	token, err := decodeToken(body)
	if err != nil {
		return "", err
	}

	// providers may not rotate the refresh token, keep the old one then
	if err := f.storeToken(ctx, token); err != nil {
		return "", err
	}

	log.Debugf("refresh successful!")

	return token.AccessToken, nil
}

// Logout forgets every stored credential. Calling it again is harmless.
func (f *Flow) Logout(ctx context.Context) error {
	if err := f.store.ClearAll(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	f.lastErr = nil
	f.mu.Unlock()

	log.Infof("logged out")
	return nil
}

func (f *Flow) IsLoggedIn(ctx context.Context) (bool, error) {
	return f.store.IsLoggedIn(ctx)
}

// AccessToken returns the stored access token, empty when logged out.
func (f *Flow) AccessToken(ctx context.Context) (string, error) {
	t, _, err := f.store.Get(ctx, creds.FieldAccess)
	return t, err
}

// State derives the lifecycle state from the store and the last auth action.
func (f *Flow) State(ctx context.Context) (State, error) {
	if f.Err() != nil {
		return StateError, nil
	}

	if ok, err := f.store.IsLoggedIn(ctx); err != nil || ok {
		return StateLoggedIn, err
	}

	_, ok, err := f.store.Verifier(ctx)
	if err != nil {
		return StateLoggedOut, err
	}
	if ok {
		return StateAwaitingCallback, nil
	}

	return StateLoggedOut, nil
}

// Err is the failure of the most recent auth action, nil once one succeeds.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Flow) track(err error) error {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()

	if err != nil {
		log.WithError(err).Debug("auth action failed")
	}
	return err
}

func (f *Flow) storeToken(ctx context.Context, token tokenResponse) error {
	if err := f.store.SetAccess(ctx, token.AccessToken, token.ExpiresIn); err != nil {
		return err
	}

	if token.RefreshToken != "" {
		if err := f.store.SetRefresh(ctx, token.RefreshToken); err != nil {
			return err
		}
	}

	return nil
}

func (f *Flow) postForm(ctx context.Context, params url.Values) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	return web.Post(f.config.TokenURL, f.config.Timeout, []byte(params.Encode()),
		web.KV{Key: "Accept", Value: "application/json"},
		web.KV{Key: "Content-Type", Value: "application/x-www-form-urlencoded"},
		web.KV{Key: "Cache-Control", Value: "no-cache"},
	)
}

func decodeToken(body []byte) (tokenResponse, error) {
	var t tokenResponse
	if err := json.Unmarshal(body, &t); err != nil {
		return t, errors.Wrap(err, "failed to decode token response")
	}

	if t.AccessToken == "" {
		return t, errors.New("token response missing access_token")
	}

	return t, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}
