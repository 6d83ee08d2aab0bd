package handler

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"flashdeck/internal/account"
	"flashdeck/internal/auth"
	"flashdeck/internal/deck"
	"flashdeck/internal/notify"
	"flashdeck/internal/review"
)

//go:embed templates/*.html
var templateFiles embed.FS

// PageHandler renders the browser UI. Mutating forms follow
// post/redirect/get and report their outcome as a notification.
type PageHandler struct {
	Decks    *deck.Service
	Accounts *account.Service
	Auth     Authenticator
	Sessions *auth.Resolver
	Notify   *notify.Center
	Log      *zap.Logger
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool

	tpl *template.Template
}

func (h *PageHandler) Init() error {
	tpl, err := template.New("").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return errors.Wrap(err, "parse templates")
	}
	h.tpl = tpl
	return nil
}

type page struct {
	Title         string
	User          *auth.User
	DarkMode      bool
	Notifications []notify.Notification
	Error         string

	Email string

	Decks []deck.Deck
	Deck  deck.Deck
	Types []deck.AttributeType
	Cards []deck.ReconciledCard

	Card  deck.ReconciledCard
	Pos   int
	Total int
	Back  bool
	Next  int
	Prev  int
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		p.User = &u
		p.Notifications = h.Notify.For(u.ID).List()
		if prefs, err := h.Accounts.Preferences(r.Context(), u.ID); err == nil {
			p.DarkMode = prefs.DarkMode
		} else {
			h.Log.Warn("load preferences", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tpl.ExecuteTemplate(w, name, p); err != nil {
		h.Log.Error("render template", zap.String("template", name), zap.Error(err))
	}
}

func (h *PageHandler) notify(r *http.Request, kind notify.Kind, msg string) {
	h.Notify.For(userID(r)).Queue(msg, kind)
}

// Unavailable is shown when the session could not be checked.
func (h *PageHandler) Unavailable(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusServiceUnavailable, "unavailable", page{Title: "Sign-in unavailable"})
}

func (h *PageHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login", page{Title: "Login"})
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(strings.ToLower(r.PostFormValue("email")))
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		h.render(w, r, http.StatusBadRequest, "login", page{Title: "Login", Email: email, Error: "Email and password are required."})
		return
	}

	s, err := h.Auth.SignIn(r.Context(), email, password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.render(w, r, http.StatusUnauthorized, "login", page{Title: "Login", Email: email, Error: "Invalid email or password."})
		return
	case err != nil:
		h.Log.Warn("sign-in failed", zap.Error(err))
		h.Unavailable(w, r)
		return
	}

	h.Sessions.Remember(s)
	cookie := &http.Cookie{
		Name:     auth.CookieName,
		Value:    s.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if s.ExpiresIn > 0 {
		cookie.Expires = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromCookie(r)
	if token != "" {
		h.Sessions.Invalidate(token)
		if err := h.Auth.SignOut(r.Context(), token); err != nil {
			h.Log.Warn("sign-out failed", zap.Error(err))
		}
	}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		h.Notify.Forget(u.ID)
	}
	http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	decks, err := h.Decks.ListDecks(r.Context(), userID(r))
	if err != nil {
		h.Log.Error("list decks", zap.Error(err))
		h.render(w, r, http.StatusInternalServerError, "dashboard", page{Title: "Decks", Error: "Could not load your decks."})
		return
	}
	h.render(w, r, http.StatusOK, "dashboard", page{Title: "Decks", Decks: decks})
}

func (h *PageHandler) Settings(w http.ResponseWriter, r *http.Request) {
	dark := r.PostFormValue("dark_mode") == "on"
	if _, err := h.Accounts.SavePreferences(r.Context(), userID(r), dark); err != nil {
		h.Log.Error("save preferences", zap.Error(err))
		h.notify(r, notify.Error, "Could not update user settings")
	} else {
		h.notify(r, notify.Success, "User settings updated")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	d, err := h.Decks.CreateDeck(r.Context(), userID(r), r.PostFormValue("name"))
	if err != nil {
		h.failed(r, "create deck", err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.notify(r, notify.Success, "Deck created")
	http.Redirect(w, r, editPath(d.ID), http.StatusSeeOther)
}

func editPath(id int64) string { return fmt.Sprintf("/deck/edit/%d", id) }

func (h *PageHandler) EditDeck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	ctx, uid := r.Context(), userID(r)
	d, err := h.Decks.GetDeck(ctx, uid, id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	types, err := h.Decks.ListAttributeTypes(ctx, uid, id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	cards, err := h.Decks.ListCards(ctx, uid, id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "editor", page{Title: "Deck Editor " + d.Name, Deck: d, Types: types, Cards: cards})
}

func (h *PageHandler) RenameDeck(w http.ResponseWriter, r *http.Request) {
	h.deckAction(w, r, "rename deck", "Deck renamed", func(id int64) error {
		_, err := h.Decks.RenameDeck(r.Context(), userID(r), id, r.PostFormValue("name"))
		return err
	})
}

func (h *PageHandler) AddAttribute(w http.ResponseWriter, r *http.Request) {
	h.deckAction(w, r, "add attribute", "Attribute added", func(id int64) error {
		kind := deck.Kind(r.PostFormValue("attribute_type"))
		_, err := h.Decks.AddAttributeType(r.Context(), userID(r), id, r.PostFormValue("attribute_name"), kind)
		return err
	})
}

func (h *PageHandler) RemoveAttribute(w http.ResponseWriter, r *http.Request) {
	h.deckAction(w, r, "remove attribute", "Attribute removed", func(id int64) error {
		attrID, ok := pathID(r, "attrID")
		if !ok {
			return deck.ErrNotFound
		}
		return h.Decks.RemoveAttributeType(r.Context(), userID(r), id, attrID)
	})
}

func (h *PageHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	h.deckAction(w, r, "create card", "Card saved", func(id int64) error {
		in, err := cardForm(r)
		if err != nil {
			return err
		}
		_, err = h.Decks.CreateCard(r.Context(), userID(r), id, in)
		return err
	})
}

func (h *PageHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	h.deckAction(w, r, "update card", "Card saved", func(id int64) error {
		cardID, ok := pathID(r, "cardID")
		if !ok {
			return deck.ErrNotFound
		}
		in, err := cardForm(r)
		if err != nil {
			return err
		}
		_, err = h.Decks.UpdateCard(r.Context(), userID(r), id, cardID, in)
		return err
	})
}

func (h *PageHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	h.deckAction(w, r, "delete card", "Card deleted", func(id int64) error {
		cardID, ok := pathID(r, "cardID")
		if !ok {
			return deck.ErrNotFound
		}
		return h.Decks.DeleteCard(r.Context(), userID(r), id, cardID)
	})
}

func (h *PageHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := h.Decks.DeleteDeck(r.Context(), userID(r), id); err != nil {
		h.failed(r, "delete deck", err)
		http.Redirect(w, r, editPath(id), http.StatusSeeOther)
		return
	}
	h.notify(r, notify.Success, "Deck deleted")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	ctx, uid := r.Context(), userID(r)
	d, err := h.Decks.GetDeck(ctx, uid, id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	cards, err := h.Decks.ListCards(ctx, uid, id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	s := review.NewSession(cards)
	pos, _ := strconv.Atoi(r.URL.Query().Get("pos"))
	s.Seek(pos)
	if r.URL.Query().Get("side") == "back" {
		s.Reveal()
	}

	p := page{Title: "Review " + d.Name, Deck: d, Total: s.Len(), Pos: s.Pos()}
	if c, ok := s.Current(); ok {
		p.Card = c
		p.Back = s.Side() == review.Back
		s.Next()
		p.Next = s.Pos()
		s.Seek(p.Pos)
		s.Prev()
		p.Prev = s.Pos()
	}
	h.render(w, r, http.StatusOK, "review", p)
}

// deckAction runs a form action against the deck in the URL and redirects
// back to its editor.
func (h *PageHandler) deckAction(w http.ResponseWriter, r *http.Request, what, success string, fn func(id int64) error) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := fn(id); err != nil {
		h.failed(r, what, err)
	} else {
		h.notify(r, notify.Success, success)
	}
	http.Redirect(w, r, editPath(id), http.StatusSeeOther)
}

func (h *PageHandler) failed(r *http.Request, what string, err error) {
	if statusOf(err) >= 500 {
		h.Log.Error(what+" failed", zap.String("user_id", userID(r)), zap.Error(err))
		h.notify(r, notify.Error, "Could not "+what)
		return
	}
	h.notify(r, notify.Error, "Could not "+what+": "+errors.Cause(err).Error())
}

func (h *PageHandler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, deck.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	h.Log.Error("render page", zap.String("path", r.URL.Path), zap.Error(err))
	h.render(w, r, http.StatusInternalServerError, "error", page{Title: "Error", Error: "Something went wrong loading this page."})
}

// cardForm reads front_content, notes and attr_<typeID> fields.
func cardForm(r *http.Request) (deck.CardInput, error) {
	if err := r.ParseForm(); err != nil {
		return deck.CardInput{}, errors.Wrap(deck.ErrInvalidName, err.Error())
	}
	in := deck.CardInput{FrontContent: r.PostForm.Get("front_content"), Values: map[int64]string{}}
	if notes := strings.TrimSpace(r.PostForm.Get("notes")); notes != "" {
		in.Notes = &notes
	}
	for key, vals := range r.PostForm {
		raw, ok := strings.CutPrefix(key, "attr_")
		if !ok || len(vals) == 0 {
			continue
		}
		typeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return deck.CardInput{}, deck.ErrUnknownAttribute
		}
		in.Values[typeID] = vals[0]
	}
	return in, nil
}
