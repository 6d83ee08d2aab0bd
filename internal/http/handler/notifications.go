package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"flashdeck/internal/auth"
	"flashdeck/internal/notify"
)

type NotificationHandler struct {
	Notify *notify.Center
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, h.Notify.For(u.ID).List())
}

func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "nid"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if !h.Notify.For(u.ID).Dismiss(id) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
