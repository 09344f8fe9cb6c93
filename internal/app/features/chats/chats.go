// internal/app/features/chats/chats.go
package chats

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	errNotMember      = fmt.Errorf("not a member of this project: %w", apperr.ErrForbidden)
	errNotParticipant = fmt.Errorf("not a participant in this chat: %w", apperr.ErrForbidden)
	errArchived       = fmt.Errorf("project is archived: %w", apperr.ErrConflict)
	errRecipientLeft  = fmt.Errorf("the other participant is no longer on this project: %w", apperr.ErrForbidden)
)

// chatView is a chat with the caller's unread count.
type chatView struct {
	models.Chat
	Unread int64 `json:"unread"`
}

// ServeList handles GET /projects/{projectID}/chats.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	p, ok := h.project(w, r, u)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Chats.ListForUser(ctx, p.ID, u.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	out := make([]chatView, 0, len(rows))
	for _, c := range rows {
		n, err := h.Chats.UnreadCount(ctx, c.ID, u.ID)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		out = append(out, chatView{Chat: c, Unread: n})
	}
	respond.OK(w, out)
}

type openRequest struct {
	UserID primitive.ObjectID `json:"user_id"`
}

// ServeOpen handles POST /projects/{projectID}/chats. It returns the
// existing chat with that user when there is one.
func (h *Handler) ServeOpen(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	var req openRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	p, ok := h.project(w, r, u)
	if !ok {
		return
	}
	if p.IsArchived() {
		respond.Error(w, r, h.Log, errArchived)
		return
	}
	if !p.HasMember(req.UserID) {
		respond.Error(w, r, h.Log, apperr.Invalid("the other participant must be on the project team"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, created, err := h.Chats.Open(ctx, p.ID, u.ID, req.UserID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if created {
		respond.Created(w, c)
		return
	}
	respond.OK(w, c)
}

// project loads the {projectID} project and checks the caller is on it.
// Chats are limited to team members, admins included.
func (h *Handler) project(w http.ResponseWriter, r *http.Request, u *models.User) (*models.Project, bool) {
	id, err := respond.PathID(r, "projectID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return nil, false
	}
	if !p.HasMember(u.ID) {
		respond.Error(w, r, h.Log, errNotMember)
		return nil, false
	}
	return p, true
}
