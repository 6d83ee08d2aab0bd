package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"flashdeck/internal/auth"
	"flashdeck/internal/deck"
)

type DeckHandler struct {
	Decks *deck.Service
	Log   *zap.Logger
}

type deckReq struct {
	Name string `json:"name" validate:"required,max=200"`
}

type attributeReq struct {
	AttributeName string `json:"attribute_name" validate:"required,max=200"`
	AttributeType string `json:"attribute_type" validate:"omitempty,oneof=text image"`
}

type cardReq struct {
	FrontContent string  `json:"front_content" validate:"required"`
	Notes        *string `json:"notes"`
	// Values is keyed by attribute type id. JSON object keys are strings.
	Values map[string]string `json:"values"`
}

func (c cardReq) input() (deck.CardInput, bool) {
	in := deck.CardInput{FrontContent: c.FrontContent, Notes: c.Notes, Values: map[int64]string{}}
	for k, v := range c.Values {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return deck.CardInput{}, false
		}
		in.Values[id] = v
	}
	return in, true
}

func userID(r *http.Request) string {
	u, _ := auth.UserFromContext(r.Context())
	return u.ID
}

func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	decks, err := h.Decks.ListDecks(r.Context(), userID(r))
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, decks)
}

func (h *DeckHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req deckReq
	if !decode(w, r, &req) {
		return
	}
	d, err := h.Decks.CreateDeck(r.Context(), userID(r), req.Name)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	d, err := h.Decks.GetDeck(r.Context(), userID(r), id)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DeckHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req deckReq
	if !decode(w, r, &req) {
		return
	}
	d, err := h.Decks.RenameDeck(r.Context(), userID(r), id, req.Name)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DeckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.Decks.DeleteDeck(r.Context(), userID(r), id); err != nil {
		fail(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeckHandler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	types, err := h.Decks.ListAttributeTypes(r.Context(), userID(r), id)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *DeckHandler) AddAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req attributeReq
	if !decode(w, r, &req) {
		return
	}
	at, err := h.Decks.AddAttributeType(r.Context(), userID(r), id, req.AttributeName, deck.Kind(req.AttributeType))
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, at)
}

func (h *DeckHandler) RemoveAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	attrID, ok2 := pathID(r, "attrID")
	if !ok || !ok2 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.Decks.RemoveAttributeType(r.Context(), userID(r), id, attrID); err != nil {
		fail(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeckHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	cards, err := h.Decks.ListCards(r.Context(), userID(r), id)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *DeckHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req cardReq
	if !decode(w, r, &req) {
		return
	}
	in, ok := req.input()
	if !ok {
		http.Error(w, "invalid attribute id", http.StatusBadRequest)
		return
	}
	c, err := h.Decks.CreateCard(r.Context(), userID(r), id, in)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *DeckHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	cardID, ok2 := pathID(r, "cardID")
	if !ok || !ok2 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req cardReq
	if !decode(w, r, &req) {
		return
	}
	in, ok := req.input()
	if !ok {
		http.Error(w, "invalid attribute id", http.StatusBadRequest)
		return
	}
	c, err := h.Decks.UpdateCard(r.Context(), userID(r), id, cardID, in)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *DeckHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	cardID, ok2 := pathID(r, "cardID")
	if !ok || !ok2 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.Decks.DeleteCard(r.Context(), userID(r), id, cardID); err != nil {
		fail(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
