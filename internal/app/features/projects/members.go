// internal/app/features/projects/members.go
package projects

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/expensehub/internal/app/store/audit"
	projectstore "github.com/dalemusser/expensehub/internal/app/store/projects"
	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/authz"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/app/system/txn"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type membersRequest struct {
	TeamMembers       []primitive.ObjectID `json:"team_members"`
	ApproverIDs       []primitive.ObjectID `json:"approver_ids"`
	ProductionHeadIDs []primitive.ObjectID `json:"production_head_ids"`
}

// ServeSetMembers handles POST /projects/{projectID}/members. The request
// replaces the whole crew; people who join or leave the project entirely
// are notified, role moves within the crew are not.
func (h *Handler) ServeSetMembers(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req membersRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.load(ctx, r, authz.RequireManage)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	crew := projectstore.Crew{Members: req.TeamMembers, Approvers: req.ApproverIDs, ProductionHeads: req.ProductionHeadIDs}
	people, err := h.loadCrew(ctx, crew)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var (
		after          *models.Project
		added, removed []primitive.ObjectID
	)
	// The crew lists and each user's assigned_projects move together.
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		before, saved, err := h.Projects.SetMembers(ctx, p.ID, crew)
		if err != nil {
			return err
		}
		after = saved
		added, removed = Diff(crewIDs(before), crewIDs(after))
		if err := h.Users.AddProject(ctx, added, p.ID); err != nil {
			return err
		}
		return h.Users.RemoveProject(ctx, removed, p.ID)
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.Audit.Project(ctx, audit.EventProjectMembersSet, actor.ID, after, map[string]string{
		"added":   joinIDs(added),
		"removed": joinIDs(removed),
	})

	if len(removed) > 0 {
		gone, err := h.Users.ListByIDs(ctx, removed)
		if err != nil {
			h.Log.Warn("load removed crew failed", zap.Error(err))
		}
		for i := range gone {
			people[gone[i].ID] = &gone[i]
		}
	}
	for _, id := range added {
		h.dispatch(ctx, events.Event{Kind: models.NotifyProjectAssigned, Actor: actor, Project: after, Subject: people[id]})
	}
	for _, id := range removed {
		if u := people[id]; u != nil {
			h.dispatch(ctx, events.Event{Kind: models.NotifyProjectRemoved, Actor: actor, Project: after, Subject: u})
		}
	}

	respond.OK(w, after)
}

// loadCrew checks that every id names an active user and returns them by id.
func (h *Handler) loadCrew(ctx context.Context, crew projectstore.Crew) (map[primitive.ObjectID]*models.User, error) {
	ids := union(crew.Members, crew.Approvers, crew.ProductionHeads)
	out := make(map[primitive.ObjectID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	us, err := h.Users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range us {
		if us[i].IsActive {
			out[us[i].ID] = &us[i]
		}
	}
	for _, id := range ids {
		if out[id] == nil {
			return nil, apperr.Invalid("unknown or inactive user " + id.Hex())
		}
	}
	return out, nil
}

// Diff returns the ids in after but not before, and in before but not after.
func Diff(before, after []primitive.ObjectID) (added, removed []primitive.ObjectID) {
	in := func(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
		m := make(map[primitive.ObjectID]bool, len(ids))
		for _, id := range ids {
			m[id] = true
		}
		return m
	}
	was, is := in(before), in(after)
	for _, id := range after {
		if !was[id] {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !is[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func crewIDs(p *models.Project) []primitive.ObjectID {
	return union(p.TeamMembers, p.ApproverIDs, p.ProductionHeadIDs)
}

func union(lists ...[]primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var out []primitive.ObjectID
	for _, l := range lists {
		for _, id := range l {
			if id.IsZero() || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func joinIDs(ids []primitive.ObjectID) string {
	hex := make([]string, len(ids))
	for i, id := range ids {
		hex[i] = id.Hex()
	}
	return strings.Join(hex, ",")
}
