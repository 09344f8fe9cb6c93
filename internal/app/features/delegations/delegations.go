// internal/app/features/delegations/delegations.go
package delegations

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/delegation"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type assignRequest struct {
	ApproverID   primitive.ObjectID `json:"approver_id"`
	StartDate    *time.Time         `json:"start_date"`
	ExpiringDate time.Time          `json:"expiring_date"`
}

// ServeAssign handles POST /projects/{projectID}/delegations.
func (h *Handler) ServeAssign(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	projectID, err := respond.PathID(r, "projectID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req assignRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	a := delegation.Assignment{
		ProjectID:    projectID,
		ApproverID:   req.ApproverID,
		ExpiringDate: req.ExpiringDate,
	}
	if req.StartDate != nil {
		a.StartDate = *req.StartDate
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Delegations.Assign(ctx, actor, a)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, d)
}

// ServeListActive handles GET /projects/{projectID}/delegations/active.
func (h *Handler) ServeListActive(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	projectID, err := respond.PathID(r, "projectID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ds, err := h.Delegations.ListActive(ctx, actor, projectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, nonNil(ds))
}

// ServeListMine handles GET /delegations/mine.
func (h *Handler) ServeListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ds, err := h.Delegations.ListMine(ctx, actor)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, nonNil(ds))
}

// ServeGet handles GET /delegations/{delegationID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Delegations.Get)
}

// ServeAccept handles POST /delegations/{delegationID}/accept.
func (h *Handler) ServeAccept(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Delegations.Accept)
}

// ServeReject handles POST /delegations/{delegationID}/reject.
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Delegations.Reject)
}

// ServeRemove handles DELETE /delegations/{delegationID}. The record is
// kept, deactivated.
func (h *Handler) ServeRemove(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Delegations.Remove)
}

type action func(context.Context, *models.User, primitive.ObjectID) (*models.TemporaryApprover, error)

func (h *Handler) act(w http.ResponseWriter, r *http.Request, fn action) {
	actor, _ := auth.CurrentUser(r)
	id, err := respond.PathID(r, "delegationID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := fn(ctx, actor, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, d)
}

func nonNil(ds []models.TemporaryApprover) []models.TemporaryApprover {
	if ds == nil {
		return []models.TemporaryApprover{}
	}
	return ds
}
