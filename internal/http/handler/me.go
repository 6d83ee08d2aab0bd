package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"flashdeck/internal/account"
	"flashdeck/internal/auth"
	"flashdeck/internal/jobs"
	"flashdeck/internal/notify"
)

type PurgeQueue interface {
	EnqueuePurge(ctx context.Context, userID string) (*jobs.Job, error)
}

type MeHandler struct {
	Accounts *account.Service
	Queue    PurgeQueue
	Sessions *auth.Resolver
	Notify   *notify.Center
	Log      *zap.Logger
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	prefs, err := h.Accounts.Preferences(r.Context(), u.ID)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        u,
		"preferences": prefs,
	})
}

type preferencesReq struct {
	DarkMode *bool `json:"dark_mode" validate:"required"`
}

func (h *MeHandler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	var req preferencesReq
	if !decode(w, r, &req) {
		return
	}
	prefs, err := h.Accounts.SavePreferences(r.Context(), u.ID, *req.DarkMode)
	if err != nil {
		h.Notify.For(u.ID).Queue("Could not update user settings", notify.Error)
		fail(w, h.Log, err)
		return
	}
	h.Notify.For(u.ID).Queue("User settings updated", notify.Success)
	writeJSON(w, http.StatusOK, prefs)
}

// Delete schedules removal of the account and everything it owns.
func (h *MeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	job, err := h.Queue.EnqueuePurge(r.Context(), u.ID)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	// The account is on its way out: no session of it stays cached.
	h.Sessions.Invalidate(auth.TokenFromContext(r.Context()))
	h.Sessions.ForgetUser(u.ID)
	h.Notify.Forget(u.ID)

	h.Log.Info("account purge queued", zap.String("user_id", u.ID), zap.Uint64("job_id", job.ID))
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": job.ID, "status": job.Status})
}
