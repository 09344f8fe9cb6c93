// internal/app/features/users/admin.go
package users

import (
	"context"
	"net/http"

	userstore "github.com/dalemusser/expensehub/internal/app/store/users"
	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/app/system/paging"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

var errSelf = apperr.Invalid("admins cannot change their own account here")

// ServeList handles GET /users?q=&role=&after=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f := userstore.ListFilter{
		Search: query.Search(r, "q"),
		After:  paging.ParseAfter(r),
		Limit:  paging.ParseLimit(r),
	}
	if s := query.Get(r, "role"); s != "" {
		role, ok := models.ParseRole(s)
		if !ok {
			respond.Error(w, r, h.Log, apperr.Invalid("unknown role "+s))
			return
		}
		f.Role = role
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, next, err := h.Users.List(ctx, f)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, paging.Page[models.User]{Items: rows, NextCursor: next})
}

type createRequest struct {
	FullName   string      `json:"full_name"`
	Phone      string      `json:"phone"`
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	Department string      `json:"department"`
}

// ServeCreate handles POST /users. Accounts are keyed by phone number, the
// identity the sign-in provider verifies.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		FullName:   req.FullName,
		Phone:      req.Phone,
		Email:      req.Email,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, u)
}

type roleRequest struct {
	Role string `json:"role"`
}

// ServeSetRole handles POST /users/{userID}/role and notifies the user
// when the role actually changes.
func (h *Handler) ServeSetRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	id, err := respond.PathID(r, "userID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if id == actor.ID {
		respond.Error(w, r, h.Log, errSelf)
		return
	}

	var req roleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		respond.Error(w, r, h.Log, apperr.Invalid("unknown role "+req.Role))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, err := h.Users.SetRole(ctx, id, role)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	after := *before
	after.Role = role
	if before.Role == role {
		respond.OK(w, after)
		return
	}

	h.Audit.RoleChanged(ctx, actor.ID, id, before.Role, role)
	ev := events.Event{Kind: models.NotifyRoleChanged, Actor: actor, Subject: &after, Text: string(role)}
	if _, err := h.Notify.Dispatch(ctx, ev); err != nil {
		h.Log.Warn("role change notification failed", zap.Error(err), zap.String("user_id", id.Hex()))
	}

	respond.OK(w, after)
}

// ServeDeactivate handles POST /users/{userID}/deactivate.
func (h *Handler) ServeDeactivate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	id, err := respond.PathID(r, "userID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if id == actor.ID {
		respond.Error(w, r, h.Log, errSelf)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.Deactivate(ctx, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Audit.UserDeactivated(ctx, actor.ID, id)
	w.WriteHeader(http.StatusNoContent)
}
