package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = errors.New("user not found")
	// ErrUnavailable means the auth API could not answer, as opposed to
	// answering "no".
	ErrUnavailable = errors.New("auth provider unavailable")
)

// User is the identity record the hosted auth API returns.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the result of a password sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// NewUser describes an account created through the admin API.
type NewUser struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// EmailConfirm skips the confirmation mail.
	EmailConfirm bool `json:"email_confirm"`
}

// Provider talks to the hosted auth REST API. Key is the public API key;
// ServiceKey authorizes admin calls and may be empty for clients that
// never make them.
type Provider struct {
	BaseURL    string
	Key        string
	ServiceKey string
	HTTP       *http.Client
}

func NewProvider(baseURL, key, serviceKey string) *Provider {
	return &Provider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Key:        key,
		ServiceKey: serviceKey,
		HTTP:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", p.Key, body, &s)
	switch {
	case errors.Is(err, ErrUnauthorized), isStatus(err, http.StatusBadRequest):
		return Session{}, ErrInvalidCredentials
	case err != nil:
		return Session{}, err
	}
	return s, nil
}

// GetUser resolves an access token to its user.
func (p *Provider) GetUser(ctx context.Context, token string) (User, error) {
	var u User
	if err := p.do(ctx, http.MethodGet, "/auth/v1/user", token, nil, &u); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return User{}, ErrUnauthorized
		}
		return User{}, err
	}
	return u, nil
}

// SignOut revokes the token's session. An already revoked token is not an
// error.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	err := p.do(ctx, http.MethodPost, "/auth/v1/logout", token, nil, nil)
	if errors.Is(err, ErrUnauthorized) || isStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

func (p *Provider) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	var u User
	if err := p.do(ctx, http.MethodPost, "/auth/v1/admin/users", p.ServiceKey, nu, &u); err != nil {
		return User{}, errors.Wrapf(err, "create user %s", nu.Email)
	}
	return u, nil
}

// DeleteUser removes an account. A user that no longer exists reports
// ErrUserNotFound.
func (p *Provider) DeleteUser(ctx context.Context, userID string) error {
	err := p.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+userID, p.ServiceKey, nil, nil)
	if isStatus(err, http.StatusNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "delete user %s", userID)
	}
	return nil
}

// StatusError is a non-2xx answer from the auth API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("auth api: status %d: %s", e.Code, e.Body)
}

func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func (p *Provider) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("apikey", p.Key)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 500:
		return errors.Wrapf(ErrUnavailable, "status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
