package creds

import (
	"context"
	"github.com/pkg/errors"
	"strconv"
	"time"
)

type (
	// AccessToken is the short lived bearer credential sent to the resource API.
	AccessToken string

	// RefreshToken is used to mint a new access token
	// without requiring user input. Keep this secure.
	RefreshToken string

	// Credentials is a point in time copy of the stored credential record.
	Credentials struct {
		AccessToken
		RefreshToken
		Expiry time.Time
	}

	// Field names one slot of the credential record. Its value is the storage key.
	Field string

	// KV is durable string keyed storage. Implementations must be
	// read-after-write consistent and safe for concurrent use.
	KV interface {
		Get(ctx context.Context, key string) (string, bool, error)
		Set(ctx context.Context, key, value string) error
		// Delete removes all keys in a single operation.
		Delete(ctx context.Context, keys ...string) error
	}

	Option func(*Store)

	// Store keeps the credential record on top of a KV backend.
	Store struct {
		kv  KV
		now func() time.Time
	}
)

const (
	FieldVerifier  Field = "sp_pkce_verifier"
	FieldAccess    Field = "sp_access_token"
	FieldRefresh   Field = "sp_refresh_token"
	FieldExpiresAt Field = "sp_expires_at"
)

// Fields lists every slot of the record.
var Fields = []Field{FieldVerifier, FieldAccess, FieldRefresh, FieldExpiresAt}

// WithClock overrides the time source used to compute expiry instants.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:  kv,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time according to the store clock.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) IsLoggedIn(ctx context.Context) (bool, error) {
	_, ok, err := s.Get(ctx, FieldAccess)
	return ok, err
}

// Get reads a single field. Empty values are reported as absent.
func (s *Store) Get(ctx context.Context, f Field) (string, bool, error) {
	v, ok, err := s.kv.Get(ctx, string(f))
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read %v", f)
	}
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// SetAccess stores the access token along with now + expiresIn.
// The expiry is written first so an access token is never visible without one.
func (s *Store) SetAccess(ctx context.Context, token string, expiresIn int64) error {
	expiresAt := s.now().UnixMilli() + expiresIn*1000
	if err := s.set(ctx, FieldExpiresAt, strconv.FormatInt(expiresAt, 10)); err != nil {
		return err
	}
	return s.set(ctx, FieldAccess, token)
}

func (s *Store) SetRefresh(ctx context.Context, token string) error {
	return s.set(ctx, FieldRefresh, token)
}

func (s *Store) SetVerifier(ctx context.Context, v string) error {
	return s.set(ctx, FieldVerifier, v)
}

func (s *Store) Verifier(ctx context.Context) (string, bool, error) {
	return s.Get(ctx, FieldVerifier)
}

func (s *Store) ClearVerifier(ctx context.Context) error {
	return errors.Wrap(s.kv.Delete(ctx, string(FieldVerifier)), "failed to clear verifier")
}

// ExpiresAt returns the stored expiry in epoch milliseconds, 0 if absent or unreadable.
func (s *Store) ExpiresAt(ctx context.Context) (int64, error) {
	v, ok, err := s.Get(ctx, FieldExpiresAt)
	if err != nil || !ok {
		return 0, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return ms, nil
}

func (s *Store) Credentials(ctx context.Context) (Credentials, error) {
	var c Credentials

	access, _, err := s.Get(ctx, FieldAccess)
	if err != nil {
		return c, err
	}
	refresh, _, err := s.Get(ctx, FieldRefresh)
	if err != nil {
		return c, err
	}
	ms, err := s.ExpiresAt(ctx)
	if err != nil {
		return c, err
	}

	c.AccessToken = AccessToken(access)
	c.RefreshToken = RefreshToken(refresh)
	if ms > 0 {
		c.Expiry = time.UnixMilli(ms)
	}
	return c, nil
}

// ClearAll removes every field in one backend call.
func (s *Store) ClearAll(ctx context.Context) error {
	keys := make([]string, 0, len(Fields))
	for _, f := range Fields {
		keys = append(keys, string(f))
	}
	return errors.Wrap(s.kv.Delete(ctx, keys...), "failed to clear credentials")
}

func (s *Store) set(ctx context.Context, f Field, v string) error {
	return errors.Wrapf(s.kv.Set(ctx, string(f), v), "failed to write %v", f)
}
