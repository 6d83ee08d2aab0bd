// Package fixture creates throwaway users against the hosted backend and
// removes everything they left behind. It backs the cleanup and teardown
// commands and end-to-end test setup.
package fixture

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"flashdeck/internal/account"
	"flashdeck/internal/auth"
	"flashdeck/internal/deck"
)

type TestUser struct {
	ID       string
	Email    string
	Password string
}

type Admin interface {
	CreateUser(ctx context.Context, nu auth.NewUser) (auth.User, error)
}

type Harness struct {
	Admin    Admin
	Purger   *account.Purger
	Decks    *deck.Service
	Accounts *account.Service
	Log      *zap.Logger

	mu      sync.Mutex
	created []TestUser
}

// CreateUser registers a confirmed user. Empty fields get defaults: a
// random id, user-<id>@test.com and password<n> where n counts the users
// created so far.
func (h *Harness) CreateUser(ctx context.Context, opts TestUser) (TestUser, error) {
	h.mu.Lock()
	n := len(h.created)
	h.mu.Unlock()

	u := opts
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Email == "" {
		u.Email = fmt.Sprintf("user-%s@test.com", u.ID)
	}
	if u.Password == "" {
		u.Password = fmt.Sprintf("password%d", n)
	}

	if _, err := h.Admin.CreateUser(ctx, auth.NewUser{
		ID:           u.ID,
		Email:        u.Email,
		Password:     u.Password,
		EmailConfirm: true,
	}); err != nil {
		return TestUser{}, err
	}

	h.mu.Lock()
	h.created = append(h.created, u)
	h.mu.Unlock()
	return u, nil
}

func (h *Harness) Created() []TestUser {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]TestUser, len(h.created))
	copy(out, h.created)
	return out
}

// Cleanup purges every user created through h, one at a time. Failures are
// logged and skipped; the returned count says how many users failed.
func (h *Harness) Cleanup(ctx context.Context) int {
	h.mu.Lock()
	users := h.created
	h.created = nil
	h.mu.Unlock()

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return h.Purger.PurgeAll(ctx, ids)
}

// Teardown deletes every deck (cascading) and every preferences row,
// regardless of owner.
func (h *Harness) Teardown(ctx context.Context) error {
	decks, err := h.Decks.DeleteAllDecks(ctx)
	if err != nil {
		h.Log.Error("failed to delete decks", zap.Int("deleted", decks), zap.Error(err))
		return errors.Wrap(err, "teardown decks")
	}
	prefs, err := h.Accounts.DeleteAll(ctx)
	if err != nil {
		h.Log.Error("failed to delete user preferences", zap.Error(err))
		return errors.Wrap(err, "teardown preferences")
	}
	h.Log.Info("teardown complete", zap.Int("decks", decks), zap.Int64("preferences", prefs))
	return nil
}
