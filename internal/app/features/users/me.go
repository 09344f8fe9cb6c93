// internal/app/features/users/me.go
package users

import (
	"context"
	"net/http"

	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
)

// ServeMe handles GET /me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	respond.OK(w, u)
}

type preferencesRequest struct {
	PushEnabled *bool                            `json:"push_enabled"`
	Muted       map[models.NotificationType]bool `json:"muted"`
}

// ServePreferences handles PATCH /me/preferences. Omitted fields keep
// their current value; a muted map replaces the stored one.
func (h *Handler) ServePreferences(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var req preferencesRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	prefs := u.Preferences
	if req.PushEnabled != nil {
		prefs.PushEnabled = *req.PushEnabled
	}
	if req.Muted != nil {
		prefs.Muted = make(map[models.NotificationType]bool, len(req.Muted))
		for t, muted := range req.Muted {
			if muted {
				prefs.Muted[t] = true
			}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	updated, err := h.Users.SetPreferences(ctx, u.ID, prefs)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, updated)
}
