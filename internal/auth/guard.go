package auth

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	LoginPath  = "/login"
	CookieName = "flashdeck_session"
)

// Route is a navigable page and whether it needs a signed-in user.
type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
}

type Outcome int

const (
	Proceed Outcome = iota
	Redirect
	// Unavailable means the session could not be checked at all.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Proceed:
		return "proceed"
	case Redirect:
		return "redirect"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

// Decision is the guard's verdict for one navigation. User is set when a
// session was resolved, Location when Outcome is Redirect.
type Decision struct {
	Outcome  Outcome
	Location string
	User     *User
	Err      error
}

type Guard struct {
	Sessions *Resolver
	Log      *zap.Logger
}

// Check decides a single navigation. Public routes always proceed, but
// still carry the user when the token resolves.
func (g *Guard) Check(ctx context.Context, route Route, token string) Decision {
	u, err := g.Sessions.Resolve(ctx, token)
	switch {
	case err == nil:
		return Decision{Outcome: Proceed, User: &u}
	case !route.RequiresAuth:
		return Decision{Outcome: Proceed}
	case errors.Is(err, ErrUnavailable):
		return Decision{Outcome: Unavailable, Err: err}
	default:
		return Decision{Outcome: Redirect, Location: LoginPath}
	}
}

// Pages guards a browser route using the session cookie. unavailable
// renders the "cannot check your session" page.
func (g *Guard) Pages(route Route, unavailable http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Check(r.Context(), route, TokenFromCookie(r))
			switch d.Outcome {
			case Redirect:
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
				return
			case Unavailable:
				g.Log.Warn("session check failed", zap.String("route", route.Name), zap.Error(d.Err))
				unavailable.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if d.User != nil {
				ctx = WithUser(ctx, *d.User, TokenFromCookie(r))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TokenFromCookie(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
