package account

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"flashdeck/internal/auth"
)

type DeckStore interface {
	DeleteDecksOwnedBy(ctx context.Context, userID string) (int, error)
}

type UserDeleter interface {
	DeleteUser(ctx context.Context, userID string) error
}

// SessionCache forgets cached sessions; *auth.Resolver implements it.
type SessionCache interface {
	ForgetUser(userID string)
}

// Purger removes a user and everything they own: decks (cascading), the
// preferences row, then the auth account. Once the account is gone the
// user's cached sessions are dropped and decks are swept again, catching
// any written by a session that was still live. Running it twice is
// harmless.
type Purger struct {
	Decks    DeckStore
	Accounts *Service
	Users    UserDeleter
	// Sessions is optional.
	Sessions SessionCache
	Log      *zap.Logger
}

func (p *Purger) Purge(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Account.Purger.Purge")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	n, err := p.Decks.DeleteDecksOwnedBy(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "purge decks of %s", userID)
	}
	if err := p.Accounts.Delete(ctx, userID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := p.Users.DeleteUser(ctx, userID); err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		span.RecordError(err)
		return err
	}
	if p.Sessions != nil {
		p.Sessions.ForgetUser(userID)
	}

	late, err := p.Decks.DeleteDecksOwnedBy(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "sweep decks of %s", userID)
	}
	if late > 0 {
		p.Log.Warn("decks written during purge", zap.String("user_id", userID), zap.Int("decks", late))
	}

	p.Log.Info("user purged", zap.String("user_id", userID), zap.Int("decks", n+late))
	return nil
}

// PurgeAll purges each user in turn. A failure is logged and does not stop
// the remaining users; the number of failures is returned.
func (p *Purger) PurgeAll(ctx context.Context, userIDs []string) int {
	failed := 0
	for _, id := range userIDs {
		if err := p.Purge(ctx, id); err != nil {
			failed++
			p.Log.Error("failed to clean up user", zap.String("user_id", id), zap.Error(err))
		}
	}
	return failed
}
