// internal/app/features/projects/projects.go
package projects

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/expensehub/internal/app/store/audit"
	projectstore "github.com/dalemusser/expensehub/internal/app/store/projects"
	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/authz"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/app/system/paging"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/app/system/txn"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createRequest struct {
	Name              string               `json:"name"`
	Description       string               `json:"description"`
	Currency          string               `json:"currency"`
	Budget            int64                `json:"budget"`
	DepartmentBudgets map[string]int64     `json:"department_budgets"`
	TeamMembers       []primitive.ObjectID `json:"team_members"`
	ApproverIDs       []primitive.ObjectID `json:"approver_ids"`
	ProductionHeadIDs []primitive.ObjectID `json:"production_head_ids"`
	StartDate         *time.Time           `json:"start_date"`
	EndDate           *time.Time           `json:"end_date"`
}

// ServeCreate handles POST /projects (admin only).
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req createRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		respond.Error(w, r, h.Log, apperr.Invalid("end_date must not be before start_date"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	crew := projectstore.Crew{Members: req.TeamMembers, Approvers: req.ApproverIDs, ProductionHeads: req.ProductionHeadIDs}
	people, err := h.loadCrew(ctx, crew)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var p models.Project
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		created, err := h.Projects.Create(ctx, models.Project{
			Name:              req.Name,
			Description:       req.Description,
			Currency:          req.Currency,
			Budget:            req.Budget,
			DepartmentBudgets: req.DepartmentBudgets,
			TeamMembers:       req.TeamMembers,
			ApproverIDs:       req.ApproverIDs,
			ProductionHeadIDs: req.ProductionHeadIDs,
			StartDate:         req.StartDate,
			EndDate:           req.EndDate,
			CreatedBy:         actor.ID,
		})
		if err != nil {
			return err
		}
		p = created
		return h.Users.AddProject(ctx, crewIDs(&p), p.ID)
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.Audit.Project(ctx, audit.EventProjectCreated, actor.ID, &p, nil)
	added := crewIDs(&p)
	for _, id := range added {
		h.dispatch(ctx, events.Event{Kind: models.NotifyProjectAssigned, Actor: actor, Project: &p, Subject: people[id]})
	}

	respond.Created(w, p)
}

// ServeList handles GET /projects. Admins see every project; everyone else
// sees the projects they are on.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	f := projectstore.ListFilter{
		IncludeArchived: query.Get(r, "include_archived") == "true",
		After:           paging.ParseAfter(r),
		Limit:           paging.ParseLimit(r),
	}
	if u.Role != models.RoleAdmin {
		f.MemberID = &u.ID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, next, err := h.Projects.List(ctx, f)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if rows == nil {
		rows = []models.Project{}
	}
	respond.OK(w, paging.Page[models.Project]{Items: rows, NextCursor: next})
}

// ServeGet handles GET /projects/{projectID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.load(ctx, r, authz.RequireView)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, p)
}

type budgetRequest struct {
	Budget            int64            `json:"budget"`
	DepartmentBudgets map[string]int64 `json:"department_budgets"`
}

// ServeSetBudget handles POST /projects/{projectID}/budget.
func (h *Handler) ServeSetBudget(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req budgetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.load(ctx, r, authz.RequireManage)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	updated, err := h.Projects.SetBudget(ctx, p.ID, req.Budget, req.DepartmentBudgets)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Audit.Project(ctx, audit.EventProjectBudgetSet, actor.ID, updated, map[string]string{
		"budget": models.FormatAmount(updated.Budget),
	})
	respond.OK(w, updated)
}

// ServeArchive handles POST /projects/{projectID}/archive and notifies the
// whole crew.
func (h *Handler) ServeArchive(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.load(ctx, r, authz.RequireManage)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	archived, err := h.Projects.Archive(ctx, p.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Audit.Project(ctx, audit.EventProjectArchived, actor.ID, archived, nil)
	h.dispatch(ctx, events.Event{Kind: models.NotifyProjectArchived, Actor: actor, Project: archived})
	respond.OK(w, archived)
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

// ServeSetTemporaryApproverPhone handles PUT
// /projects/{projectID}/temporary-approver-phone. An empty phone clears it.
func (h *Handler) ServeSetTemporaryApproverPhone(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.load(ctx, r, authz.RequireManage)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.Projects.SetTemporaryApproverPhone(ctx, p.ID, req.Phone); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	updated, err := h.Projects.GetByID(ctx, p.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, updated)
}

// load reads the {projectID} project and applies check for the current user.
func (h *Handler) load(ctx context.Context, r *http.Request, check func(*models.User, *models.Project) error) (*models.Project, error) {
	u, _ := auth.CurrentUser(r)
	id, err := respond.PathID(r, "projectID")
	if err != nil {
		return nil, err
	}
	p, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(u, p); err != nil {
		return nil, err
	}
	return p, nil
}
