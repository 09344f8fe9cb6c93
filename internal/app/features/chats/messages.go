// internal/app/features/chats/messages.go
package chats

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/expensehub/internal/app/system/paging"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.uber.org/zap"
)

const maxMessageLen = 2000

// ServeMessages handles GET /chats/{chatID}/messages, newest first.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.chat(ctx, r, u)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	rows, next, err := h.Chats.Messages(ctx, c.ID, paging.ParseAfter(r), paging.ParseLimit(r))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, paging.Page[models.Message]{Items: rows, NextCursor: next})
}

type sendRequest struct {
	Text string `json:"text"`
}

// ServeSend handles POST /chats/{chatID}/messages and notifies the other
// participant. Both participants must still be on the project crew.
func (h *Handler) ServeSend(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	var req sendRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	text := htmlsanitize.PlainText(req.Text)
	if text == "" {
		respond.Error(w, r, h.Log, apperr.Invalid("message text is required"))
		return
	}
	if len([]rune(text)) > maxMessageLen {
		respond.Error(w, r, h.Log, apperr.Invalid("message is too long"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.chat(ctx, r, u)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	p, err := h.Projects.GetByID(ctx, c.ProjectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if p.IsArchived() {
		respond.Error(w, r, h.Log, errArchived)
		return
	}
	if !p.HasMember(u.ID) {
		respond.Error(w, r, h.Log, errNotMember)
		return
	}
	if other, ok := c.Other(u.ID); ok && !p.HasMember(other) {
		respond.Error(w, r, h.Log, errRecipientLeft)
		return
	}

	m, err := h.Chats.Append(ctx, c.ID, u.ID, text, time.Now())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ev := events.Event{Kind: models.NotifyChatMessage, Actor: u, Project: p, Chat: c, Text: text}
	if _, err := h.Notify.Dispatch(ctx, ev); err != nil {
		h.Log.Warn("chat notification failed", zap.Error(err), zap.String("chat_id", c.ID.Hex()))
	}
	respond.Created(w, m)
}

type readResponse struct {
	Updated int64 `json:"updated"`
}

// ServeMarkRead handles POST /chats/{chatID}/read.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.chat(ctx, r, u)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	n, err := h.Chats.MarkRead(ctx, c.ID, u.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, readResponse{Updated: n})
}

// chat loads {chatID} and checks the caller is a participant.
func (h *Handler) chat(ctx context.Context, r *http.Request, u *models.User) (*models.Chat, error) {
	id, err := respond.PathID(r, "chatID")
	if err != nil {
		return nil, err
	}
	c, err := h.Chats.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Includes(u.ID) {
		return nil, errNotParticipant
	}
	return c, nil
}
