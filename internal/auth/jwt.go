package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims are the fields flashdeck reads from a hosted access token.
type Claims struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// JWT verifies access tokens issued by the hosted auth API using the
// project's shared HS256 secret.
type JWT struct {
	secret []byte
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Sign issues a token the way the auth API does. Only tests and local
// tooling mint tokens; production tokens come from the provider.
func (j *JWT) Sign(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(j.secret)
}

func (j *JWT) Verify(tokenStr string) (Claims, error) {
	var tc tokenClaims
	t, err := jwt.ParseWithClaims(tokenStr, &tc, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !t.Valid {
		return Claims{}, ErrUnauthorized
	}
	if tc.Subject == "" {
		return Claims{}, errors.Wrap(ErrUnauthorized, "missing sub")
	}
	return Claims{UserID: tc.Subject, Email: tc.Email, ExpiresAt: tc.ExpiresAt.Time}, nil
}
