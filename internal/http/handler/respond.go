package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"flashdeck/internal/deck"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, deck.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, deck.ErrInvalidName), errors.Is(err, deck.ErrInvalidKind),
		errors.Is(err, deck.ErrUnknownAttribute):
		return http.StatusBadRequest
	case errors.Is(err, deck.ErrDuplicateAttribute):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusOf(err)
	if status >= 500 {
		log.Error("request failed", zap.Error(err))
		http.Error(w, "server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}
