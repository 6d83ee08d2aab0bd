// Package client is the JSON API client used by the terminal review UI.
package client

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

	"flashdeck/internal/account"
	"flashdeck/internal/auth"
	"flashdeck/internal/deck"
)

var (
	ErrUnauthorized = errors.New("not signed in")
	ErrNotFound     = errors.New("not found")
)

type Client struct {
	BaseURL string
	HTTP    *http.Client

	token string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	User        auth.User `json:"user"`
}

// Login signs in and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (auth.User, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return auth.User{}, err
	}
	c.token = out.AccessToken
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.token = ""
	return err
}

// Me is the signed-in user together with their preferences.
type Me struct {
	User        auth.User           `json:"user"`
	Preferences account.Preferences `json:"preferences"`
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var out Me
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) Decks(ctx context.Context) ([]deck.Deck, error) {
	var out []deck.Deck
	if err := c.do(ctx, http.MethodGet, "/api/decks", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) Deck(ctx context.Context, id int64) (deck.Deck, error) {
	var out deck.Deck
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/decks/%d", id), nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) Cards(ctx context.Context, deckID int64) ([]deck.ReconciledCard, error) {
	var out []deck.ReconciledCard
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/decks/%d/cards", deckID), nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
