package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"flashdeck/internal/account"
	"flashdeck/internal/auth"
	"flashdeck/internal/config"
	"flashdeck/internal/deck"
	"flashdeck/internal/http/handler"
	mw "flashdeck/internal/http/middleware"
	"flashdeck/internal/notify"
	"flashdeck/internal/tracing"
)

type Deps struct {
	Config   config.Config
	Log      *zap.Logger
	Decks    *deck.Service
	Accounts *account.Service
	Purges   handler.PurgeQueue
	Auth     handler.Authenticator
	Sessions *auth.Resolver
	Notify   *notify.Center
}

var (
	loginRoute  = auth.Route{Name: "login", Path: auth.LoginPath}
	homeRoute   = auth.Route{Name: "home", Path: "/", RequiresAuth: true}
	editorRoute = auth.Route{Name: "deck-editor", Path: "/deck/edit/{id}", RequiresAuth: true}
	reviewRoute = auth.Route{Name: "deck-review", Path: "/deck/review/{id}", RequiresAuth: true}
)

func NewRouter(d Deps) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(tracing.Middleware)
	r.Use(mw.AccessLog(d.Log.Named("http")))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{Auth: d.Auth, Sessions: d.Sessions, Notify: d.Notify, Log: d.Log}
	me := &handler.MeHandler{Accounts: d.Accounts, Queue: d.Purges, Sessions: d.Sessions, Notify: d.Notify, Log: d.Log}
	nh := &handler.NotificationHandler{Notify: d.Notify}
	dh := &handler.DeckHandler{Decks: d.Decks, Log: d.Log}

	r.Route("/api", func(r chi.Router) {
		if len(d.Config.CORSAllowedOrigins) > 0 {
			r.Use(mw.CORS(d.Config))
		}

		r.Post("/auth/login", ah.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.Sessions))

			r.Post("/auth/logout", ah.Logout)

			r.Get("/me", me.Me)
			r.Put("/me/preferences", me.SavePreferences)
			r.Delete("/me", me.Delete)

			r.Get("/notifications", nh.List)
			r.Delete("/notifications/{nid}", nh.Dismiss)

			r.Route("/decks", func(r chi.Router) {
				r.Get("/", dh.List)
				r.Post("/", dh.Create)
				r.Get("/{id}", dh.Get)
				r.Patch("/{id}", dh.Rename)
				r.Delete("/{id}", dh.Delete)

				r.Get("/{id}/attributes", dh.ListAttributes)
				r.Post("/{id}/attributes", dh.AddAttribute)
				r.Delete("/{id}/attributes/{attrID}", dh.RemoveAttribute)

				r.Get("/{id}/cards", dh.ListCards)
				r.Post("/{id}/cards", dh.CreateCard)
				r.Put("/{id}/cards/{cardID}", dh.UpdateCard)
				r.Delete("/{id}/cards/{cardID}", dh.DeleteCard)
			})
		})
	})

	pages := &handler.PageHandler{
		Decks:         d.Decks,
		Accounts:      d.Accounts,
		Auth:          d.Auth,
		Sessions:      d.Sessions,
		Notify:        d.Notify,
		Log:           d.Log,
		SecureCookies: d.Config.CookieSecure,
	}
	if err := pages.Init(); err != nil {
		return nil, err
	}
	guard := &auth.Guard{Sessions: d.Sessions, Log: d.Log}
	unavailable := http.HandlerFunc(pages.Unavailable)

	r.With(guard.Pages(loginRoute, unavailable)).Get("/login", pages.LoginForm)
	r.Post("/login", pages.Login)
	r.With(guard.Pages(loginRoute, unavailable)).Post("/logout", pages.Logout)

	r.Group(func(r chi.Router) {
		r.Use(guard.Pages(homeRoute, unavailable))
		r.Get("/", pages.Dashboard)
		r.Post("/deck", pages.CreateDeck)
		r.Post("/settings", pages.Settings)
	})

	r.Route("/deck/edit/{id}", func(r chi.Router) {
		r.Use(guard.Pages(editorRoute, unavailable))
		r.Get("/", pages.EditDeck)
		r.Post("/rename", pages.RenameDeck)
		r.Post("/attributes", pages.AddAttribute)
		r.Post("/attributes/{attrID}/delete", pages.RemoveAttribute)
		r.Post("/cards", pages.CreateCard)
		r.Post("/cards/{cardID}", pages.UpdateCard)
		r.Post("/cards/{cardID}/delete", pages.DeleteCard)
		r.Post("/delete", pages.DeleteDeck)
	})

	r.With(guard.Pages(reviewRoute, unavailable)).Get("/deck/review/{id}", pages.Review)

	return r, nil
}
