package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// UserSource resolves an access token to a user. *Provider implements it.
type UserSource interface {
	GetUser(ctx context.Context, token string) (User, error)
}

// Resolver answers "who owns this token" and caches positive answers for
// ttl. Entries are dropped explicitly on logout and never outlive the
// token's own expiry.
type Resolver struct {
	users UserSource
	jwt   *JWT
	ttl   time.Duration
	cache *cache.Cache
}

// NewResolver returns a resolver. j may be nil, in which case every cache
// miss goes to the provider. ttl <= 0 disables caching.
func NewResolver(users UserSource, j *JWT, ttl time.Duration) *Resolver {
	return &Resolver{
		users: users,
		jwt:   j,
		ttl:   ttl,
		cache: cache.New(ttl, 2*ttl+time.Minute),
	}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Resolve returns the token's user, ErrUnauthorized when the session is
// missing or invalid, or an error wrapping ErrUnavailable when the auth
// API could not be asked.
func (r *Resolver) Resolve(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthorized
	}
	key := cacheKey(token)
	if v, ok := r.cache.Get(key); ok {
		return v.(User), nil
	}

	expires := time.Time{}
	if r.jwt != nil {
		c, err := r.jwt.Verify(token)
		if err != nil {
			return User{}, err
		}
		expires = c.ExpiresAt
	}

	u, err := r.users.GetUser(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrUnavailable) {
			return User{}, err
		}
		return User{}, errors.Wrap(ErrUnavailable, err.Error())
	}
	r.store(key, u, expires)
	return u, nil
}

// Remember seeds the cache right after a sign-in.
func (r *Resolver) Remember(s Session) {
	var expires time.Time
	if s.ExpiresIn > 0 {
		expires = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	r.store(cacheKey(s.AccessToken), s.User, expires)
}

// Invalidate forgets token; the next Resolve asks the provider again.
func (r *Resolver) Invalidate(token string) {
	r.cache.Delete(cacheKey(token))
}

// ForgetUser drops every cached session of userID, whatever the token.
func (r *Resolver) ForgetUser(userID string) {
	for key, item := range r.cache.Items() {
		if u, ok := item.Object.(User); ok && u.ID == userID {
			r.cache.Delete(key)
		}
	}
}

func (r *Resolver) store(key string, u User, expires time.Time) {
	if r.ttl <= 0 {
		return
	}
	ttl := r.ttl
	if !expires.IsZero() {
		left := time.Until(expires)
		if left <= 0 {
			return
		}
		if left < ttl {
			ttl = left
		}
	}
	r.cache.Set(key, u, ttl)
}
